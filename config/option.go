// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package config

import "github.com/hashicorp/go-hclog"

// getOpts - iterate the inbound Options and return a struct.
func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// Option - how Options are passed as arguments.
type Option func(*options)

// options = how options are represented
type options struct {
	withSearchPaths []string
	withFile        string
	withLogger      hclog.Logger
}

func getDefaultOptions() options {
	return options{
		withLogger: hclog.NewNullLogger(),
	}
}

// WithSearchPaths replaces the paths searched for a config file. An empty,
// non nil slice searches nothing.
func WithSearchPaths(paths []string) Option {
	return func(o *options) {
		o.withSearchPaths = paths
	}
}

// WithFile makes Load read the named file only.
func WithFile(path string) Option {
	return func(o *options) {
		o.withFile = path
	}
}

// WithLogger provides an optional logger for reporting the file used and
// why a file was passed over.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.withLogger = l
		}
	}
}
