// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package db

import (
	"github.com/hashicorp/go-hclog"
)

// getOpts - iterate the inbound Options and return a struct.
func getOpts(opt ...Option) (options, error) {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// Option - how options are passed as arguments.
type Option func(*options) error

// options = how options are represented
type options struct {
	withLogger             hclog.Logger
	withLogLevel           hclog.Level
	withMaxOpenConnections int
	withDebug              bool
}

func getDefaultOptions() options {
	return options{
		withLogLevel: hclog.Error,
	}
}

// WithLogger provides an optional logger which receives the database driver
// errors.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) error {
		o.withLogger = l
		return nil
	}
}

// WithLogLevel provides an optional level for the database logger. Debug and
// trace log every statement.
func WithLogLevel(l hclog.Level) Option {
	return func(o *options) error {
		o.withLogLevel = l
		return nil
	}
}

// WithMaxOpenConnections provides an optional max open connections for the
// database. A value of zero equals unlimited connections. It is ignored for
// in-memory sqlite databases, which always use one connection.
func WithMaxOpenConnections(max int) Option {
	return func(o *options) error {
		o.withMaxOpenConnections = max
		return nil
	}
}

// WithDebug enables the database debug output.
func WithDebug(with bool) Option {
	return func(o *options) error {
		o.withDebug = with
		return nil
	}
}
