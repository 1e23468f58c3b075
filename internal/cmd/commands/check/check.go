// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package check verifies the default backend of the configuration can be
// reached.
package check

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/cli"
	"github.com/parnell/gormext/config"
	"github.com/parnell/gormext/internal/cmd/base"
	"github.com/parnell/gormext/session"
	"github.com/posener/complete"
)

var (
	_ cli.Command             = (*Command)(nil)
	_ cli.CommandAutocomplete = (*Command)(nil)
)

type Command struct {
	*base.Command

	flagTimeout string
}

func (c *Command) Synopsis() string {
	return "Check the default backend can be reached"
}

func (c *Command) Help() string {
	return base.WrapForHelpText([]string{
		"Usage: gormext check [options]",
		"",
		"  Open the default backend of the configuration, ping it and run an empty transaction:",
		"",
		"    $ gormext check -timeout=5s",
	}) + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := c.FlagSet("check")
	if f.Lookup("timeout") == nil {
		f.StringVar(&c.flagTimeout, "timeout", "10s", "How long to wait for the database.", complete.PredictNothing)
	}
	return f
}

func (c *Command) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *Command) AutocompleteFlags() complete.Flags {
	return c.Flags().Completions()
}

// result is the json form of a successful check.
type result struct {
	Engine  string `json:"engine"`
	Url     string `json:"url"`
	Latency string `json:"latency"`
}

func (c *Command) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(err.Error())
		return base.CommandUserError
	}
	timeout, err := time.ParseDuration(c.flagTimeout)
	if err != nil || timeout <= 0 {
		c.UI.Error(fmt.Sprintf("Invalid timeout %q", c.flagTimeout))
		return base.CommandUserError
	}

	cfg, err := c.LoadConfig(base.WarnWriter(c.UI))
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error loading config: %s", err))
		return base.CommandUserError
	}
	backend, err := cfg.DefaultBackend()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error loading config: %s", err))
		return base.CommandUserError
	}
	url, err := cfg.DefaultUrl()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error resolving url: %s", err))
		return base.CommandUserError
	}

	ctx, cancel := context.WithTimeout(c.Context, timeout)
	defer cancel()
	start := time.Now()
	if err := ping(ctx, cfg); err != nil {
		c.UI.Error(fmt.Sprintf("Error checking %s: %s", base.RedactUrl(url), err))
		return base.CommandCliError
	}
	out := result{
		Engine:  backend.Engine,
		Url:     base.RedactUrl(url),
		Latency: time.Since(start).Round(time.Millisecond).String(),
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
	c.UI.Info("Backend is reachable:")
	c.UI.Output(base.WrapMap(2, map[string]any{
		"Engine":  out.Engine,
		"Url":     out.Url,
		"Latency": out.Latency,
	}))
	return base.CommandSuccess
}

// ping opens the default backend, pings it and begins and rolls back a
// transaction.
func ping(ctx context.Context, cfg *config.Config) error {
	m, err := session.NewMakerFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close(context.Background()) }()
	sqlDB, err := m.DB().SqlDB(ctx)
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	return tx.Rollback(ctx)
}
