// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package cmd is the gormext command line.
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	colorable "github.com/mattn/go-colorable"
	"github.com/mitchellh/cli"
	"github.com/parnell/gormext/internal/cmd/base"
)

// RunOptions overrides where the commands read and write.
type RunOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// DotEnv are the .env files loaded before the commands run. Nil loads
	// .env from the working directory, when it exists.
	DotEnv []string
}

// setupEnv parses args and may replace them, and returns the output format
// given by -format or the environment.
func setupEnv(args []string) (retArgs []string, format string) {
	var nextArgFormat bool

	for _, arg := range args {
		if nextArgFormat {
			nextArgFormat = false
			format = arg
			continue
		}

		if arg == "--" {
			break
		}

		if len(args) == 1 &&
			(arg == "-version" ||
				arg == "-v") {
			args = []string{"version"}
			break
		}

		// Parse a given flag here, which overrides the env var
		if strings.HasPrefix(arg, "-format=") {
			format = strings.TrimPrefix(arg, "-format=")
		}
		// Handle the case where it is specified without an equal sign
		if arg == "-format" {
			nextArgFormat = true
		}
	}

	// If we did not parse a value, fetch the env var
	if format == "" {
		format = os.Getenv(base.EnvCLIFormat)
	}
	// Lowercase for consistency
	format = strings.ToLower(format)
	if format == "" {
		format = "table"
	}

	return args, format
}

func Run(args []string) int {
	return RunCustom(args, nil)
}

// RunCustom runs the command named by args with the reader and writers of
// runOpts.
func RunCustom(args []string, runOpts *RunOptions) int {
	if runOpts == nil {
		runOpts = &RunOptions{}
	}
	if err := loadDotEnv(runOpts.DotEnv); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %s\n", err)
		return base.CommandUserError
	}

	var format string
	args, format = setupEnv(args)

	// Don't use color if disabled
	useColor := true
	if os.Getenv(base.EnvCLINoColor) != "" || color.NoColor {
		useColor = false
	}

	if runOpts.Stdin == nil {
		runOpts.Stdin = os.Stdin
	}
	if runOpts.Stdout == nil {
		runOpts.Stdout = os.Stdout
	}
	if runOpts.Stderr == nil {
		runOpts.Stderr = os.Stderr
	}

	// Only use colored UI if stdout is a tty, and not disabled
	if useColor && format == "table" {
		if f, ok := runOpts.Stdout.(*os.File); ok {
			runOpts.Stdout = colorable.NewColorable(f)
		}
		if f, ok := runOpts.Stderr.(*os.File); ok {
			runOpts.Stderr = colorable.NewColorable(f)
		}
	} else {
		runOpts.Stdout = colorable.NewNonColorable(runOpts.Stdout)
		runOpts.Stderr = colorable.NewNonColorable(runOpts.Stderr)
	}

	basic := &cli.BasicUi{
		Reader:      bufio.NewReader(runOpts.Stdin),
		Writer:      runOpts.Stdout,
		ErrorWriter: runOpts.Stderr,
	}
	ui := &base.UI{Ui: basic, Format: format}
	if useColor && format == "table" {
		ui.Ui = &cli.ColoredUi{
			ErrorColor: cli.UiColorRed,
			WarnColor:  cli.UiColorYellow,
			InfoColor:  cli.UiColorGreen,
			Ui:         basic,
		}
	}

	switch format {
	case "table", "json":
	default:
		ui.Error(fmt.Sprintf("Invalid output format: %s", format))
		return base.CommandUserError
	}

	initCommands(ui)

	cli := &cli.CLI{
		Name:                       "gormext",
		Args:                       args,
		Commands:                   Commands,
		HelpFunc:                   cli.BasicHelpFunc("gormext"),
		HelpWriter:                 runOpts.Stderr,
		Autocomplete:               true,
		AutocompleteNoDefaultFlags: true,
	}

	exitCode, err := cli.Run()
	if err != nil {
		fmt.Fprintf(runOpts.Stderr, "Error executing CLI: %s\n", err.Error())
		return base.CommandUserError
	}
	return exitCode
}

// loadDotEnv loads the files into the environment without overriding
// variables which are already set. The default .env may be missing.
func loadDotEnv(files []string) error {
	if files == nil {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if len(files) == 0 {
		return nil
	}
	return godotenv.Load(files...)
}
