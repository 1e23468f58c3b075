// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"
	"os"

	"github.com/hashicorp/go-dbw"
	"github.com/parnell/gormext/config"
	"github.com/parnell/gormext/internal/db"
	"github.com/parnell/gormext/internal/errors"
)

type (
	// Backoff computes the wait between transaction retries.
	Backoff = db.Backoff

	// ConstBackoff waits the same duration between retries.
	ConstBackoff = db.ConstBackoff

	// ExpBackoff waits exponentially longer between retries.
	ExpBackoff = db.ExpBackoff

	// RetryInfo reports the retries of a transaction.
	RetryInfo = db.RetryInfo
)

// Maker makes Sessions for a database, all of them sharing the options given
// to NewMaker.
type Maker struct {
	db   *dbw.DB
	opts []Option
}

// NewMaker returns a Maker for the database.
func NewMaker(d *dbw.DB, opt ...Option) (*Maker, error) {
	const op = "session.NewMaker"
	if d == nil {
		return nil, errors.New(context.Background(), errors.InvalidParameter, op, "missing db", errors.WithoutEvent())
	}
	if _, err := getOpts(getDefaultOptions(), opt...); err != nil {
		return nil, errors.Wrap(context.Background(), err, op, errors.WithoutEvent())
	}
	return &Maker{db: d, opts: opt}, nil
}

// NewMakerFromConfig opens the default backend of the configuration and
// returns a Maker for it. Sessions log with the configured level to stderr
// unless WithLogger is given.
func NewMakerFromConfig(ctx context.Context, cfg *config.Config, opt ...Option) (*Maker, error) {
	const op = "session.NewMakerFromConfig"
	if cfg == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing config")
	}
	backend, err := cfg.DefaultBackend()
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	url, err := cfg.DefaultUrl()
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	dbType, err := db.StringToDbType(backend.Engine)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	logger := cfg.Logger(os.Stderr)
	d, err := db.Open(ctx, dbType, url, db.WithLogger(logger), db.WithLogLevel(cfg.Level()))
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return NewMaker(d, append([]Option{WithLogger(logger.Named("session"))}, opt...)...)
}

// DB returns the database of the Maker.
func (m *Maker) DB() *dbw.DB {
	return m.db
}

// Session returns a Session outside of any transaction, every statement it
// runs commits on its own.
func (m *Maker) Session(opt ...Option) (*Session, error) {
	return New(dbw.New(m.db), append(append([]Option{}, m.opts...), opt...)...)
}

// Begin returns a Session in a new transaction. The caller must Commit or
// Rollback it.
func (m *Maker) Begin(ctx context.Context, opt ...Option) (*Session, error) {
	const op = "session.(Maker).Begin"
	s, err := m.Session(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	tx, err := s.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return tx, nil
}

// DoTx runs fn in a transaction, which is committed when fn returns nil and
// rolled back otherwise. Serialization failures are retried up to retries
// times, waiting between attempts as backoff says.
func (m *Maker) DoTx(ctx context.Context, retries uint, backoff Backoff, fn func(*Session) error, opt ...Option) (RetryInfo, error) {
	const op = "session.(Maker).DoTx"
	if fn == nil {
		return RetryInfo{}, errors.New(ctx, errors.InvalidParameter, op, "missing func")
	}
	opts := append(append([]Option{}, m.opts...), opt...)
	info, err := db.DoTx(ctx, dbw.New(m.db), nil, retries, backoff, func(tx *dbw.RW) error {
		s, err := New(tx, opts...)
		if err != nil {
			return err
		}
		return fn(s)
	})
	if err != nil {
		return info, errors.Wrap(ctx, err, op)
	}
	return info, nil
}

// Close closes the database of the Maker.
func (m *Maker) Close(ctx context.Context) error {
	const op = "session.(Maker).Close"
	if err := m.db.Close(ctx); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}
