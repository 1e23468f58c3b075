// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/parnell/gormext/internal/errors"
)

// Strategy selects how a record is kept from being inserted twice.
type Strategy int

const (
	// StrategyCheck queries for existing rows and then inserts the records
	// that weren't found. Inside a transaction each insert runs under a
	// savepoint, so a concurrent writer that wins the race costs the record
	// its insert without aborting the transaction.
	StrategyCheck Strategy = iota

	// StrategyOnConflict inserts with an ON CONFLICT DO NOTHING clause on the
	// key columns and reads the rows affected. The key columns must be
	// covered by a unique index or primary key.
	StrategyOnConflict
)

func (s Strategy) String() string {
	switch s {
	case StrategyCheck:
		return "check"
	case StrategyOnConflict:
		return "on-conflict"
	default:
		return "unknown"
	}
}

// getOpts - iterate the inbound Options and return a struct.
func getOpts(base options, opt ...Option) (options, error) {
	opts := base
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

// Option - how options are passed as arguments. Options given to New apply
// to every operation of the Session, options given to an operation apply to
// that call only.
type Option func(*options) error

// options = how options are represented
type options struct {
	withLogger            hclog.Logger
	withStrategy          Strategy
	withCascade           bool
	withAllowKeyOverwrite bool
	withBatchSize         int
	withDebug             bool
}

func getDefaultOptions() options {
	return options{
		withLogger:   hclog.NewNullLogger(),
		withStrategy: StrategyCheck,
	}
}

// WithLogger provides an optional logger. Skipped records and lost insert
// races are logged at debug level.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) error {
		if l != nil {
			o.withLogger = l
		}
		return nil
	}
}

// WithStrategy provides an optional insert strategy, the default is
// StrategyCheck.
func WithStrategy(s Strategy) Option {
	const op = "session.WithStrategy"
	return func(o *options) error {
		if s != StrategyCheck && s != StrategyOnConflict {
			return errors.New(context.Background(), errors.InvalidParameter, op, "unknown strategy", errors.WithoutEvent())
		}
		o.withStrategy = s
		return nil
	}
}

// WithCascade enables insert ignore of the belongs to, has one and has many
// associations of the records.
func WithCascade(enable bool) Option {
	return func(o *options) error {
		o.withCascade = enable
		return nil
	}
}

// WithAllowKeyOverwrite allows attaching a found primary key to a record
// that already has a different primary key assigned.
func WithAllowKeyOverwrite(allow bool) Option {
	return func(o *options) error {
		o.withAllowKeyOverwrite = allow
		return nil
	}
}

// WithBatchSize provides an optional batch size for inserting records. A
// value of zero uses the default batch size.
func WithBatchSize(size int) Option {
	const op = "session.WithBatchSize"
	return func(o *options) error {
		if size < 0 {
			return errors.New(context.Background(), errors.InvalidParameter, op, "negative batch size", errors.WithoutEvent())
		}
		o.withBatchSize = size
		return nil
	}
}

// WithDebug enables debug output of the statements written.
func WithDebug(enable bool) Option {
	return func(o *options) error {
		o.withDebug = enable
		return nil
	}
}
