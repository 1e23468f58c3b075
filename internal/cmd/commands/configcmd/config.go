// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package configcmd prints the configuration gormext resolves.
package configcmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/cli"
	"github.com/parnell/gormext/config"
	"github.com/parnell/gormext/internal/cmd/base"
	"github.com/posener/complete"
)

var (
	_ cli.Command             = (*Command)(nil)
	_ cli.CommandAutocomplete = (*Command)(nil)
)

type Command struct {
	*base.Command

	flagPaths bool
}

func (c *Command) Synopsis() string {
	return "Print the resolved gormext configuration"
}

func (c *Command) Help() string {
	return base.WrapForHelpText([]string{
		"Usage: gormext config [options]",
		"",
		"  Print the configuration after resolving the search paths and the environment overrides:",
		"",
		"    $ gormext config",
		"",
		"  Print the paths searched for a config file, in order:",
		"",
		"    $ gormext config -paths",
	}) + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.FlagSet("config")
	if f.Lookup("paths") == nil {
		f.BoolVar(&c.flagPaths, "paths", false, "Print the search paths instead of the configuration.")
	}
	return f
}

func (c *Command) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *Command) AutocompleteFlags() complete.Flags {
	return c.Flags().Completions()
}

// output is the json form of a resolved configuration.
type output struct {
	Source         string             `json:"source"`
	DefaultBackend string             `json:"default_backend"`
	Url            string             `json:"url"`
	LogLevel       string             `json:"log_level"`
	Backends       map[string]backend `json:"backends"`
}

type backend struct {
	Engine string `json:"engine"`
	Url    string `json:"url"`
}

func (c *Command) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(err.Error())
		return base.CommandUserError
	}
	if c.flagPaths {
		c.UI.Output(strings.Join(config.SearchPaths(), "\n"))
		return base.CommandSuccess
	}

	cfg, err := c.LoadConfig(base.WarnWriter(c.UI))
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error loading config: %s", err))
		return base.CommandUserError
	}
	resolved, err := cfg.DefaultUrl()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error resolving url: %s", err))
		return base.CommandUserError
	}
	out := output{
		Source:         cfg.Source,
		DefaultBackend: cfg.DefaultBackendName,
		Url:            base.RedactUrl(resolved),
		LogLevel:       strings.ToLower(cfg.Level().String()),
		Backends:       make(map[string]backend, len(cfg.Backends)),
	}
	for n, b := range cfg.Backends {
		out.Backends[n] = backend{Engine: b.Engine, Url: base.RedactUrl(b.Url)}
	}
	if out.Source == "" {
		out.Source = "(built in default)"
	}

	if c.Format() == "json" {
		b, err := base.JsonFormatter{}.Format(out)
		if err != nil {
			c.UI.Error(fmt.Errorf("Error formatting as JSON: %w", err).Error())
			return base.CommandCliError
		}
		c.UI.Output(string(b))
		return base.CommandSuccess
	}

	c.UI.Output("Config:")
	c.UI.Output(base.WrapMap(2, map[string]any{
		"Source":          out.Source,
		"Default Backend": out.DefaultBackend,
		"Url":             out.Url,
		"Log Level":       out.LogLevel,
	}))
	names := make([]string, 0, len(out.Backends))
	for n := range out.Backends {
		names = append(names, n)
	}
	sort.Strings(names)
	c.UI.Output("")
	c.UI.Output("  Backends:")
	for _, n := range names {
		b := out.Backends[n]
		c.UI.Output(fmt.Sprintf("    %s:", n))
		c.UI.Output(base.WrapMap(6, map[string]any{
			"Engine": b.Engine,
			"Url":    b.Url,
		}))
	}
	return base.CommandSuccess
}
