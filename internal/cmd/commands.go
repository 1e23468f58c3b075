// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/cli"
	"github.com/parnell/gormext/internal/cmd/base"
	"github.com/parnell/gormext/internal/cmd/commands/check"
	"github.com/parnell/gormext/internal/cmd/commands/configcmd"
	"github.com/parnell/gormext/internal/cmd/commands/version"
)

// Commands is the mapping of all the available commands.
var Commands map[string]cli.CommandFactory

func initCommands(ui cli.Ui) {
	getBaseCommand := func() *base.Command {
		ctx, cancel := context.WithCancel(context.Background())
		ret := &base.Command{
			UI:         ui,
			ShutdownCh: MakeShutdownCh(),
			Context:    ctx,
		}

		go func() {
			<-ret.ShutdownCh
			cancel()
		}()

		return ret
	}

	Commands = map[string]cli.CommandFactory{
		"check": func() (cli.Command, error) {
			return &check.Command{
				Command: getBaseCommand(),
			}, nil
		},
		"config": func() (cli.Command, error) {
			return &configcmd.Command{
				Command: getBaseCommand(),
			}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{
				Command: getBaseCommand(),
			}, nil
		},
	}
}

// MakeShutdownCh returns a channel that can be used for shutdown
// notifications for commands. This channel will send a message for every
// SIGINT or SIGTERM received.
func MakeShutdownCh() chan struct{} {
	resultCh := make(chan struct{})

	shutdownCh := make(chan os.Signal, 4)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdownCh
		close(resultCh)
	}()
	return resultCh
}
