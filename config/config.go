// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package config resolves the database backends and log level from a TOML
// file found on a list of search paths.
//
// The first file that exists is the only one read. Load falls back to the
// built in default, an in memory sqlite database, when no file exists or the
// file found can't be used:
//
//	default_backend = "default"
//	log_level = "info"
//
//	[backends.default]
//	engine = "sqlite"
//	url = "file:app.db"
//
// A url may name an environment variable (env://NAME) or a file
// (file:///path) holding the actual url. GORMEXT_LOG_LEVEL and
// GORMEXT_DEFAULT_BACKEND override the values of the file.
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/parnell/gormext/internal/errors"
)

const (
	// EnvConfig names a config file which is searched before any other.
	EnvConfig = "GORMEXT_CONFIG"

	// EnvPrefix is the prefix of the environment variables overriding the
	// values of the file.
	EnvPrefix = "GORMEXT_"

	// DefaultBackendName is the backend used when default_backend isn't set.
	DefaultBackendName = "default"

	// DefaultEngine and DefaultUrl describe the backend of the built in
	// default.
	DefaultEngine = "sqlite"
	DefaultUrl    = "file::memory:"

	appName  = "gormext"
	fileName = "config.toml"
)

// envKeys are the keys environment variables may override.
var envKeys = map[string]bool{
	"log_level":       true,
	"default_backend": true,
}

// Config is a resolved configuration.
type Config struct {
	// DefaultBackendName names the entry of Backends returned by
	// DefaultBackend.
	DefaultBackendName string `koanf:"default_backend" validate:"required"`

	// Backends are the databases, by name.
	Backends map[string]Backend `koanf:"backends" validate:"required,min=1,dive"`

	// LogLevel is one of debug, info, warn, error or critical. Empty means
	// info.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn error critical"`

	// Source is the file the configuration was read from. It's empty for the
	// built in default.
	Source string `koanf:"-"`
}

// Backend is a database.
type Backend struct {
	Engine string `koanf:"engine" validate:"required,oneof=sqlite sqlite3 postgres postgresql"`
	Url    string `koanf:"url" validate:"required"`
}

// Default returns the built in configuration, a single in memory sqlite
// backend.
func Default() *Config {
	return &Config{
		DefaultBackendName: DefaultBackendName,
		Backends: map[string]Backend{
			DefaultBackendName: {Engine: DefaultEngine, Url: DefaultUrl},
		},
	}
}

// SearchPaths returns the paths searched for a config file, in order. Paths
// which can't be determined on this system are left out.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfig); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "."+appName+".toml")
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, appName, fileName))
	}
	if home, err := homedir.Dir(); err == nil {
		p := filepath.Join(home, ".config", appName, fileName)
		if !contains(paths, p) {
			paths = append(paths, p)
		}
	}
	return append(paths, filepath.Join("/etc", appName, fileName))
}

// Load returns the configuration of the first file found on the search
// paths. It never fails: when no file is found, or the file found can't be
// read or is invalid, the built in default is returned. Supported options:
// WithSearchPaths, WithFile and WithLogger.
func Load(opt ...Option) *Config {
	opts := getOpts(opt...)
	paths := opts.withSearchPaths
	switch {
	case opts.withFile != "":
		paths = []string{opts.withFile}
	case paths == nil:
		paths = SearchPaths()
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		cfg, err := LoadFile(p)
		if err != nil {
			opts.withLogger.Warn("unable to use config file, using the default", "path", p, "error", err)
			break
		}
		opts.withLogger.Debug("loaded config", "path", p)
		return cfg
	}
	cfg, err := withEnv(Default())
	if err != nil {
		opts.withLogger.Warn("ignoring environment overrides", "error", err)
		return Default()
	}
	return cfg
}

// LoadFile returns the configuration of the file at path. Unlike Load it
// reports why the file can't be used.
func LoadFile(path string) (*Config, error) {
	const op = "config.LoadFile"
	ctx := context.Background()
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidConfig), errors.WithoutEvent())
	}
	if err := k.Load(envProvider(), nil); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidConfig), errors.WithoutEvent())
	}
	cfg := &Config{DefaultBackendName: DefaultBackendName}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidConfig), errors.WithoutEvent())
	}
	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithoutEvent())
	}
	return cfg, nil
}

// withEnv returns a copy of cfg with the environment overrides applied.
func withEnv(cfg *Config) (*Config, error) {
	const op = "config.withEnv"
	ctx := context.Background()
	k := koanf.New(".")
	if err := k.Load(envProvider(), nil); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidConfig), errors.WithoutEvent())
	}
	out := *cfg
	if err := k.Unmarshal("", &out); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidConfig), errors.WithoutEvent())
	}
	if err := out.Validate(); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithoutEvent())
	}
	return &out, nil
}

// envProvider reads the overriding variables, variables set to an empty
// value are skipped.
func envProvider() *env.Env {
	return env.ProviderWithValue(EnvPrefix, ".", func(k, v string) (string, any) {
		key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
		if !envKeys[key] || v == "" {
			return "", nil
		}
		return key, v
	})
}

// Validate checks the field values and that the default backend exists.
func (c *Config) Validate() error {
	const op = "config.(Config).Validate"
	ctx := context.Background()
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidConfig), errors.WithoutEvent())
	}
	if _, ok := c.Backends[c.DefaultBackendName]; !ok {
		return errors.New(ctx, errors.InvalidConfig, op, fmt.Sprintf("default backend %q is not defined", c.DefaultBackendName), errors.WithoutEvent())
	}
	return nil
}

// DefaultBackend returns the backend named by DefaultBackendName.
func (c *Config) DefaultBackend() (Backend, error) {
	const op = "config.(Config).DefaultBackend"
	b, ok := c.Backends[c.DefaultBackendName]
	if !ok {
		return Backend{}, errors.New(context.Background(), errors.InvalidConfig, op, fmt.Sprintf("default backend %q is not defined", c.DefaultBackendName), errors.WithoutEvent())
	}
	return b, nil
}

// DefaultUrl returns the connection url of the default backend, reading it
// from the environment variable or file it names, if any.
func (c *Config) DefaultUrl() (string, error) {
	const op = "config.(Config).DefaultUrl"
	b, err := c.DefaultBackend()
	if err != nil {
		return "", errors.Wrap(context.Background(), err, op, errors.WithoutEvent())
	}
	return b.ResolveUrl()
}

// ResolveUrl returns the url of the backend. An env:// url is replaced by
// the value of the variable, a file:// url by the contents of the file.
// Other urls, sqlite file: urls included, are returned as they are.
func (b Backend) ResolveUrl() (string, error) {
	const op = "config.(Backend).ResolveUrl"
	if !strings.HasPrefix(b.Url, "env://") && !strings.HasPrefix(b.Url, "file://") {
		return b.Url, nil
	}
	url, err := parseutil.ParsePath(b.Url)
	if err != nil && !errors.Is(err, parseutil.ErrNotAUrl) {
		return "", errors.Wrap(context.Background(), err, op, errors.WithCode(errors.InvalidConfig), errors.WithoutEvent())
	}
	if url == "" {
		return "", errors.New(context.Background(), errors.InvalidConfig, op, fmt.Sprintf("%s resolves to an empty url", b.Url), errors.WithoutEvent())
	}
	return url, nil
}

// Level returns the hclog level of LogLevel. Critical maps to error, the
// highest level hclog has.
func (c *Config) Level() hclog.Level {
	switch c.LogLevel {
	case "debug":
		return hclog.Debug
	case "warn":
		return hclog.Warn
	case "error", "critical":
		return hclog.Error
	default:
		return hclog.Info
	}
}

// Logger returns a logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   appName,
		Level:  c.Level(),
		Output: w,
	})
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
