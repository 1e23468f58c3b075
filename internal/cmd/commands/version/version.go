// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	"fmt"

	"github.com/mitchellh/cli"
	"github.com/parnell/gormext/internal/cmd/base"
	ver "github.com/parnell/gormext/version"
	"github.com/posener/complete"
)

var (
	_ cli.Command             = (*Command)(nil)
	_ cli.CommandAutocomplete = (*Command)(nil)
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version of the local gormext binary"
}

func (c *Command) Help() string {
	return base.WrapForHelpText([]string{
		"Usage: gormext version [options]",
		"",
		"  This command displays the version of the local gormext binary.",
	}) + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	return c.FlagSet("version")
}

func (c *Command) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *Command) AutocompleteFlags() complete.Flags {
	return c.Flags().Completions()
}

func (c *Command) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(err.Error())
		return base.CommandUserError
	}
	verInfo := ver.Get()

	if c.Format() == "json" {
		b, err := base.JsonFormatter{}.Format(verInfo)
		if err != nil {
			c.UI.Error(fmt.Errorf("Error formatting as JSON: %w", err).Error())
			return base.CommandCliError
		}
		c.UI.Output(string(b))
		return base.CommandSuccess
	}

	attrs := map[string]any{
		"Version Number": verInfo.VersionNumber(),
	}
	if verInfo.Revision != "" {
		attrs["Git Revision"] = verInfo.Revision
	}
	if verInfo.BuildDate != "" {
		attrs["Build Date"] = verInfo.BuildDate
	}
	if verInfo.GoVersion != "" {
		attrs["Go Version"] = verInfo.GoVersion
	}
	c.UI.Output("Version information:")
	c.UI.Output(base.WrapMap(2, attrs))
	return base.CommandSuccess
}
