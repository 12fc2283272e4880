package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	perr "commitpipe/internal/platform/errors"

	"gopkg.in/yaml.v3"
)

// Key names one (section, key) pair in the settings file
type Key struct{ Section, Name string }

func (k Key) String() string { return k.Section + "." + k.Name }

// Settings is a read-only (section, key) -> value view over a YAML document.
// When env overrides are attached, COMMITPIPE_<SECTION>_<KEY> wins over the file
type Settings struct {
	path string
	data map[string]map[string]any
	env  *Conf
}

// LoadSettings reads and parses the YAML settings file at path
func LoadSettings(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, perr.IOf(err, "read settings %s", path)
	}
	s, err := ParseSettings(b)
	if err != nil {
		return Settings{}, perr.WithField(err, path)
	}
	s.path = path
	return s, nil
}

// ParseSettings parses a YAML document whose top level keys are sections
func ParseSettings(b []byte) (Settings, error) {
	data := map[string]map[string]any{}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return Settings{}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "parse settings yaml")
	}
	return Settings{data: data}, nil
}

// WithEnvOverrides returns a copy that consults env under c before the file
func (s Settings) WithEnvOverrides(c Conf) Settings {
	s.env = &c
	return s
}

// Path returns the file the settings were loaded from, if any
func (s Settings) Path() string { return s.path }

func (s Settings) lookup(section, key string) (string, bool) {
	if s.env != nil {
		name := strings.ToUpper(section + "_" + key)
		if v := s.env.MayString(name, ""); v != "" {
			return v, true
		}
	}
	sec, ok := s.data[section]
	if !ok {
		return "", false
	}
	v, ok := sec[key]
	if !ok || v == nil {
		return "", false
	}
	out := strings.TrimSpace(fmt.Sprint(v))
	return out, out != ""
}

// Get returns the value for (section, key) or def when missing
func (s Settings) Get(section, key, def string) string {
	if v, ok := s.lookup(section, key); ok {
		return v
	}
	return def
}

// Int returns an integer value or def when missing
func (s Settings) Int(section, key string, def int) (int, error) {
	v, ok := s.lookup(section, key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, perr.WithField(perr.InvalidArgf("setting %s.%s: %q is not an integer", section, key, v), section+"."+key)
	}
	return n, nil
}

// Bool returns a boolean value or def when missing
func (s Settings) Bool(section, key string, def bool) (bool, error) {
	v, ok := s.lookup(section, key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, perr.WithField(perr.InvalidArgf("setting %s.%s: %q is not a bool", section, key, v), section+"."+key)
	}
	return b, nil
}

// Duration returns a duration value (e.g. 30s, 2m) or def when missing
func (s Settings) Duration(section, key string, def time.Duration) (time.Duration, error) {
	v, ok := s.lookup(section, key)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, perr.WithField(perr.InvalidArgf("setting %s.%s: %q is not a duration", section, key, v), section+"."+key)
	}
	return d, nil
}

// Require reports every missing key in one error
func (s Settings) Require(keys ...Key) error {
	var missing []string
	for _, k := range keys {
		if _, ok := s.lookup(k.Section, k.Name); !ok {
			missing = append(missing, k.String())
		}
	}
	if len(missing) > 0 {
		return perr.InvalidArgf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
