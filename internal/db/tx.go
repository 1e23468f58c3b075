// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hashicorp/go-dbw"
	"github.com/hashicorp/go-multierror"
	"github.com/parnell/gormext/internal/errors"
)

// RetryInfo provides information on the retries of a transaction
type RetryInfo struct {
	Retries int
	Backoff time.Duration
}

// TxHandler defines a handler for a func that writes a transaction for use
// with DoTx
type TxHandler func(tx *dbw.RW) error

// RetryMatcher reports whether a failed transaction should be retried.
type RetryMatcher func(error) bool

// DoTx will wrap the handler func passed within a transaction with retries.
// The handler's transaction is committed when it returns nil and rolled back
// otherwise. A failed attempt is retried, after the backoff, when the
// handler's or the commit's error satisfies retryable. A nil retryable
// retries serialization failures.
func DoTx(ctx context.Context, rw *dbw.RW, retryable RetryMatcher, retries uint, backOff Backoff, handler TxHandler) (RetryInfo, error) {
	const op = "db.DoTx"
	info := RetryInfo{}
	switch {
	case rw == nil:
		return info, errors.New(ctx, errors.InvalidParameter, op, "missing read/writer")
	case rw.IsTx():
		return info, errors.New(ctx, errors.InvalidParameter, op, "read/writer is already in a transaction")
	case backOff == nil:
		return info, errors.New(ctx, errors.InvalidParameter, op, "missing backoff")
	case handler == nil:
		return info, errors.New(ctx, errors.InvalidParameter, op, "missing handler")
	}
	if retryable == nil {
		retryable = errors.IsSerializationError
	}
	for attempts := uint(1); ; attempts++ {
		if attempts > retries+1 {
			return info, errors.New(ctx, errors.MaxRetries, op, fmt.Sprintf("too many retries: %d of %d", attempts-1, retries+1))
		}

		// step one of this, start a transaction...
		tx, err := rw.Begin(ctx)
		if err != nil {
			return info, errors.Wrap(ctx, err, op, errors.WithCode(errors.TxBegin))
		}

		err = handler(tx)
		if err == nil {
			if err = tx.Commit(ctx); err == nil {
				return info, nil // it all worked!!!
			}
			err = errors.Wrap(ctx, err, op, errors.WithMsg("unable to commit transaction"))
		}
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			return info, multierror.Append(err, errors.Wrap(ctx, rollbackErr, op, errors.WithCode(errors.TxRollback)))
		}
		if !retryable(err) {
			return info, err
		}
		d := backOff.Duration(attempts)
		info.Retries++
		info.Backoff = info.Backoff + d
		select {
		case <-ctx.Done():
			return info, errors.Wrap(ctx, ctx.Err(), op)
		case <-time.After(d):
		}
	}
}
