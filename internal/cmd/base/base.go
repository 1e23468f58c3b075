// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package base

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/parnell/gormext/config"
	"github.com/posener/complete"
)

const (
	// CommandSuccess is the exit code of a command which succeeded.
	CommandSuccess = 0

	// CommandUserError is the exit code of a command given bad input.
	CommandUserError = 1

	// CommandCliError is the exit code of a command which failed to do its
	// work.
	CommandCliError = 2

	// EnvCLIFormat sets the output format when -format isn't given.
	EnvCLIFormat = "GORMEXT_CLI_FORMAT"

	// EnvCLINoColor disables colored output when set.
	EnvCLINoColor = "GORMEXT_CLI_NO_COLOR"
)

// Command holds what every command shares: the UI, a context canceled on
// shutdown and the flags common to all commands.
type Command struct {
	UI         cli.Ui
	ShutdownCh chan struct{}
	Context    context.Context

	FlagConfig string
	FlagFormat string

	flags *FlagSet
}

// FlagSet returns the flags of the command, creating them with the common
// -config and -format flags the first time.
func (c *Command) FlagSet(name string) *FlagSet {
	if c.flags != nil {
		return c.flags
	}
	f := NewFlagSet(name)
	f.StringVar(&c.FlagConfig, "config", "",
		"Path of the config file to use instead of searching for one.",
		complete.PredictFiles("*.toml"))
	f.StringVar(&c.FlagFormat, "format", "",
		`The format of the output, "table" or "json". The default is "table".`,
		complete.PredictSet("table", "json"))
	c.flags = f
	return f
}

// LoadConfig resolves the configuration, from -config when it was given and
// from the search paths otherwise. Problems with a searched file are logged
// to w and the default is used.
func (c *Command) LoadConfig(w io.Writer) (*config.Config, error) {
	if c.FlagConfig != "" {
		return config.LoadFile(c.FlagConfig)
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "gormext",
		Level:  hclog.Warn,
		Output: w,
	})
	return config.Load(config.WithLogger(logger)), nil
}

// Format returns the output format of the command.
func (c *Command) Format() string {
	if c.FlagFormat != "" {
		return strings.ToLower(c.FlagFormat)
	}
	return Format(c.UI)
}

// FlagSet is a flag.FlagSet which also knows how to complete its flags.
type FlagSet struct {
	*flag.FlagSet
	completions complete.Flags
}

// NewFlagSet returns an empty FlagSet. Parse errors are returned, not
// printed.
func NewFlagSet(name string) *FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	return &FlagSet{FlagSet: f, completions: complete.Flags{}}
}

// StringVar defines a string flag completed by predictor.
func (f *FlagSet) StringVar(p *string, name, value, usage string, predictor complete.Predictor) {
	f.FlagSet.StringVar(p, name, value, usage)
	f.completions["-"+name] = predictor
}

// BoolVar defines a bool flag.
func (f *FlagSet) BoolVar(p *bool, name string, value bool, usage string) {
	f.FlagSet.BoolVar(p, name, value, usage)
	f.completions["-"+name] = complete.PredictNothing
}

// Completions returns the completions of the flags.
func (f *FlagSet) Completions() complete.Flags {
	return f.completions
}

// Help returns the usage of the flags, sorted by name.
func (f *FlagSet) Help() string {
	var names []string
	f.VisitAll(func(fl *flag.Flag) {
		names = append(names, fl.Name)
	})
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	lines := []string{"", "", "Command Options:", ""}
	for _, n := range names {
		fl := f.Lookup(n)
		head := "  -" + n
		if fl.DefValue != "" && fl.DefValue != "false" {
			head += fmt.Sprintf("=<%s>", fl.DefValue)
		}
		lines = append(lines, head, "      "+fl.Usage, "")
	}
	return WrapForHelpText(lines)
}
