package module

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"commitpipe/internal/platform/config"
	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/store"
	"commitpipe/internal/services/commits/domain"
)

// Sink drivers
const (
	DriverPostgres   = "postgres"
	DriverClickhouse = "clickhouse"
)

// Required lists the settings a run cannot start without
var Required = []config.Key{
	{Section: "git_repo", Name: "owner"},
	{Section: "git_repo", Name: "repo_name"},
	{Section: "local_storage", Name: "path"},
	{Section: "table", Name: "name"},
}

// Options is the immutable configuration of one pipeline run
type Options struct {
	Owner          string
	Repo           string
	BaseURL        string
	Token          string
	PerPage        int
	Windows        int
	RequestTimeout time.Duration

	StorageRoot string

	Driver           string
	DSN              string
	LogSQL           bool
	SlowQueryMs      int
	StatementTimeout time.Duration

	Table     string
	BatchSize int

	Mode domain.ValidationMode
}

// FromSettings reads Options from the settings file and the token from env
func FromSettings(s config.Settings, env config.Conf) (Options, error) {
	if err := s.Require(Required...); err != nil {
		return Options{}, err
	}

	o := Options{
		Owner:       s.Get("git_repo", "owner", ""),
		Repo:        s.Get("git_repo", "repo_name", ""),
		BaseURL:     s.Get("git_repo", "base_url", ""),
		Token:       env.MayString("GITHUB_TOKEN", ""),
		StorageRoot: s.Get("local_storage", "path", ""),
		Driver:      strings.ToLower(s.Get("database", "driver", DriverPostgres)),
		Table:       s.Get("table", "name", ""),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error
	o.PerPage, err = s.Int("git_repo", "per_page", 100)
	collect(err)
	o.Windows, err = s.Int("git_repo", "windows", 6)
	collect(err)
	o.RequestTimeout, err = s.Duration("git_repo", "request_timeout", 0)
	collect(err)
	o.LogSQL, err = s.Bool("database", "log_sql", false)
	collect(err)
	o.SlowQueryMs, err = s.Int("database", "slow_query_ms", 0)
	collect(err)
	o.StatementTimeout, err = s.Duration("database", "statement_timeout", 0)
	collect(err)
	o.BatchSize, err = s.Int("table", "batch_size", 100)
	collect(err)
	o.Mode, err = domain.ParseValidationMode(strings.ToLower(s.Get("validation", "mode", "")))
	collect(err)
	if len(errs) > 0 {
		return Options{}, errs[0]
	}

	switch o.Driver {
	case DriverPostgres, DriverClickhouse:
	default:
		return Options{}, perr.WithField(
			perr.InvalidArgf("database.driver %q: want %s or %s", o.Driver, DriverPostgres, DriverClickhouse),
			"database.driver")
	}
	if o.PerPage < 1 || o.PerPage > 100 {
		return Options{}, perr.WithField(perr.InvalidArgf("git_repo.per_page must be 1..100, got %d", o.PerPage), "git_repo.per_page")
	}
	if limit := domain.MaxBatchSize(); o.BatchSize > limit {
		return Options{}, perr.WithField(
			perr.InvalidArgf("table.batch_size must be at most %d, got %d", limit, o.BatchSize), "table.batch_size")
	}
	if o.Windows < 1 {
		return Options{}, perr.WithField(perr.InvalidArgf("git_repo.windows must be positive, got %d", o.Windows), "git_repo.windows")
	}

	o.DSN, err = dsn(s, o.Driver)
	if err != nil {
		return Options{}, err
	}
	return o, nil
}

// dsn returns database.url when set, otherwise builds one from the parts
func dsn(s config.Settings, driver string) (string, error) {
	if u := s.Get("database", "url", ""); u != "" {
		return u, nil
	}
	if err := s.Require(
		config.Key{Section: "database", Name: "dbname"},
		config.Key{Section: "database", Name: "user"},
		config.Key{Section: "database", Name: "host"},
	); err != nil {
		return "", err
	}

	port := s.Get("database", "port", "5432")
	if driver == DriverClickhouse {
		port = s.Get("database", "port", "9000")
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", perr.WithField(perr.InvalidArgf("database.port %q is not a number", port), "database.port")
	}

	u := url.URL{
		Scheme: driver,
		User:   url.UserPassword(s.Get("database", "user", ""), s.Get("database", "password", "")),
		Host:   net.JoinHostPort(s.Get("database", "host", ""), port),
		Path:   "/" + s.Get("database", "dbname", ""),
	}
	return u.String(), nil
}

// StoreConfig maps Options onto the store facade. The sink is a single
// connection, used by one operation at a time
func (o Options) StoreConfig() store.Config {
	return store.Config{
		AppName: "commitpipe",
		PG: store.PGConfig{
			Enabled:     o.Driver == DriverPostgres,
			URL:         o.DSN,
			MaxConns:    1,
			LogSQL:      o.LogSQL,
			SlowQueryMs: o.SlowQueryMs,
		},
		CH: store.CHConfig{
			Enabled: o.Driver == DriverClickhouse,
			URL:     o.DSN,
			Role:    "loader",
		},
	}
}
