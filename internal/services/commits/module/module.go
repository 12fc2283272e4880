// Package module wires the commits pipeline from settings
package module

import (
	"context"
	"time"

	"commitpipe/internal/adapters/ingest/github"
	"commitpipe/internal/modkit"
	"commitpipe/internal/modkit/module"
	"commitpipe/internal/platform/store"
	"commitpipe/internal/services/commits/adapt"
	"commitpipe/internal/services/commits/domain"
	"commitpipe/internal/services/commits/ingest"
	"commitpipe/internal/services/commits/loader"
	"commitpipe/internal/services/commits/partition"
	"commitpipe/internal/services/commits/service"
)

// Ports defines the commits module ports
type Ports struct {
	Runner domain.RunnerPort
}

var _ module.Module = (*Module)(nil)

// Module implements the commits module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New reads Options from deps and wires every stage. The sink is opened
// lazily by the run, after adaptation succeeded
func New(deps modkit.Deps) (*Module, error) {
	opts, err := FromSettings(deps.Settings, deps.Cfg)
	if err != nil {
		return nil, err
	}

	gh := github.NewClient(github.Options{
		BaseURL: opts.BaseURL,
		Token:   opts.Token,
	})
	fetch := ingest.NewFetcher(gh, opts.Owner, opts.Repo, opts.PerPage)
	coord := ingest.NewCoordinator(fetch, ingest.Config{
		Windows:       opts.Windows,
		WindowTimeout: opts.RequestTimeout,
	}, time.Now)

	storeCfg := opts.StoreConfig()
	loaderOpts := loader.Options{StatementTimeout: opts.StatementTimeout}
	openSink := func(ctx context.Context) (domain.Loader, error) {
		l, err := loader.Open(ctx, storeCfg, loaderOpts, store.WithLogger(deps.Log))
		if err != nil {
			return nil, err
		}
		return l, nil
	}

	svc := service.New(
		coord,
		partition.New(opts.StorageRoot),
		adapt.New(opts.Mode),
		openSink,
		service.Config{Table: opts.Table, BatchSize: opts.BatchSize},
	)

	return &Module{deps: deps, opts: opts, ports: Ports{Runner: svc}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "commits" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the resolved run configuration
func (m *Module) Options() Options { return m.opts }
