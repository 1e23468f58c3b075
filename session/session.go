// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package session adds insert ignore and logical key operations to a dbw
// read/writer.
//
// The insert ignore family writes a record only when no row with the same
// primary key, or the same logical key for the L variants, exists. Existing
// rows are never touched and the uniqueness violation such a write would
// cause is never raised. Writes are staged in the caller's transaction: the
// helpers never commit, the record becomes durable when the caller commits.
//
// The existence check followed by the insert is a best effort guard and not
// atomic against concurrent writers. Inside a transaction each insert runs
// under a savepoint, so losing a race to a concurrent writer reports the
// record as not inserted and leaves the transaction usable. Callers that need
// stronger guarantees should use a serializable transaction (see Maker.DoTx)
// or StrategyOnConflict, which relies on the database's conflict handling.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-dbw"
	"github.com/hashicorp/go-hclog"
	"github.com/parnell/gormext/internal/errors"
)

// Conn is the subset of the dbw read/writer used by a Session. *dbw.RW
// satisfies it.
type Conn interface {
	Create(ctx context.Context, i any, opt ...dbw.Option) error
	CreateItems(ctx context.Context, createItems any, opt ...dbw.Option) error
	Update(ctx context.Context, i any, fieldMaskPaths []string, setToNullPaths []string, opt ...dbw.Option) (int, error)
	Exec(ctx context.Context, sql string, values []any, opt ...dbw.Option) (int, error)
	Query(ctx context.Context, sql string, values []any, opt ...dbw.Option) (*sql.Rows, error)
	SearchWhere(ctx context.Context, resources any, where string, args []any, opt ...dbw.Option) error
	IsTx() bool
}

var _ Conn = (*dbw.RW)(nil)

// txConn is implemented by connections that can begin and end transactions.
type txConn interface {
	Begin(ctx context.Context) (*dbw.RW, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

var savepointSeq atomic.Uint64

// Session holds a connection and the options applied to every operation run
// with it. A Session is safe to share when its Conn is, a Session in a
// transaction must not be used concurrently.
type Session struct {
	conn Conn
	opts options
}

// New creates a Session for the connection. Supported options: WithLogger,
// WithStrategy, WithCascade, WithAllowKeyOverwrite, WithBatchSize and
// WithDebug.
func New(conn Conn, opt ...Option) (*Session, error) {
	const op = "session.New"
	if conn == nil {
		return nil, errors.New(context.Background(), errors.InvalidParameter, op, "missing connection", errors.WithoutEvent())
	}
	opts, err := getOpts(getDefaultOptions(), opt...)
	if err != nil {
		return nil, errors.Wrap(context.Background(), err, op, errors.WithoutEvent())
	}
	return &Session{conn: conn, opts: opts}, nil
}

// Conn returns the connection of the session.
func (s *Session) Conn() Conn {
	return s.conn
}

// Logger returns the logger of the session.
func (s *Session) Logger() hclog.Logger {
	return s.opts.withLogger
}

// IsTx reports whether the session is in a transaction.
func (s *Session) IsTx() bool {
	return s.conn.IsTx()
}

// Begin starts a transaction and returns a Session for it, with the same
// options as s.
func (s *Session) Begin(ctx context.Context) (*Session, error) {
	const op = "session.(Session).Begin"
	c, ok := s.conn.(txConn)
	if !ok {
		return nil, errors.New(ctx, errors.InvalidParameter, op, fmt.Sprintf("%T does not support transactions", s.conn))
	}
	if s.conn.IsTx() {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "session is already in a transaction")
	}
	tx, err := c.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.TxBegin))
	}
	return &Session{conn: tx, opts: s.opts}, nil
}

// Commit the transaction of the session.
func (s *Session) Commit(ctx context.Context) error {
	const op = "session.(Session).Commit"
	c, ok := s.conn.(txConn)
	if !ok || !s.conn.IsTx() {
		return errors.New(ctx, errors.InvalidParameter, op, "session is not in a transaction")
	}
	if err := c.Commit(ctx); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// Rollback the transaction of the session.
func (s *Session) Rollback(ctx context.Context) error {
	const op = "session.(Session).Rollback"
	c, ok := s.conn.(txConn)
	if !ok || !s.conn.IsTx() {
		return errors.New(ctx, errors.InvalidParameter, op, "session is not in a transaction")
	}
	if err := c.Rollback(ctx); err != nil {
		return errors.Wrap(ctx, err, op, errors.WithCode(errors.TxRollback))
	}
	return nil
}

func (s *Session) callOpts(opt ...Option) (options, error) {
	return getOpts(s.opts, opt...)
}

// with returns a Session on the same connection using the options of a call.
func (s *Session) with(opt ...Option) (*Session, error) {
	if len(opt) == 0 {
		return s, nil
	}
	opts, err := s.callOpts(opt...)
	if err != nil {
		return nil, err
	}
	return &Session{conn: s.conn, opts: opts}, nil
}

func (o options) dbwOpts() []dbw.Option {
	opts := []dbw.Option{dbw.WithDebug(o.withDebug)}
	if o.withBatchSize > 0 {
		opts = append(opts, dbw.WithBatchSize(o.withBatchSize))
	}
	return opts
}

// underSavepoint runs fn under a savepoint when the session is in a
// transaction, rolling back to the savepoint when fn fails. Outside of a
// transaction fn runs as is, each statement commits on its own.
func (s *Session) underSavepoint(ctx context.Context, fn func() error) error {
	const op = "session.(Session).underSavepoint"
	if !s.conn.IsTx() {
		return fn()
	}
	name := fmt.Sprintf("gormext_%d", savepointSeq.Add(1))
	if _, err := s.conn.Exec(ctx, "savepoint "+name, nil); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if err := fn(); err != nil {
		if _, rbErr := s.conn.Exec(ctx, "rollback to savepoint "+name, nil); rbErr != nil {
			return errors.Join(err, errors.Wrap(ctx, rbErr, op, errors.WithCode(errors.TxRollback)))
		}
		return err
	}
	if _, err := s.conn.Exec(ctx, "release savepoint "+name, nil); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}
