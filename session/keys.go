// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/parnell/gormext/internal/errors"
	"github.com/parnell/gormext/model"
)

// FindKeys returns the primary keys which exist in T's table, in the order
// given. The key values are converted to the types of the primary key fields
// and a key found more than once is returned once. Supported options:
// WithLogger.
func FindKeys[T any](ctx context.Context, s *Session, keys []model.Key, opt ...Option) ([]model.Key, error) {
	const op = "session.FindKeys"
	m, err := mappingOf[T](op)
	if err != nil {
		return nil, err
	}
	callSession, err := s.with(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	normalized, err := normalizeKeys(ctx, op, m.PrimaryKey, keys)
	if err != nil {
		return nil, err
	}
	normalized, _ = dedupe(normalized)
	found, err := callSession.lookup(ctx, m, m.PrimaryKey, normalized, nil)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	out := make([]model.Key, 0, len(found))
	for _, k := range normalized {
		if _, ok := found[k.String()]; ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// FindLogicalKeys returns, aligned with values, the primary key of the row
// matching each logical key value, or nil when there is none. A nil
// logicalKey uses the fields tagged as the logical key of T. A value
// matching more than one row is an error.
func FindLogicalKeys[T any](ctx context.Context, s *Session, logicalKey []string, values [][]any, opt ...Option) ([]model.Key, error) {
	const op = "session.FindLogicalKeys"
	m, err := mappingOf[T](op)
	if err != nil {
		return nil, err
	}
	fields, err := m.LogicalKeyFields(logicalKey)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	callSession, err := s.with(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	keys := make([]model.Key, 0, len(values))
	for _, v := range values {
		keys = append(keys, v)
	}
	normalized, err := normalizeKeys(ctx, op, fields, keys)
	if err != nil {
		return nil, err
	}
	unique, _ := dedupe(normalized)
	found, err := callSession.uniqueLookup(ctx, m, fields, unique, m.PrimaryKey)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	out := make([]model.Key, len(normalized))
	for i, k := range normalized {
		out[i] = found[k.String()]
	}
	return out, nil
}

// AttachKeys sets the primary key of record to the key of the row with the
// same logical key and reports whether one was found. A record which
// already holds a different primary key is an InvalidParameter error unless
// WithAllowKeyOverwrite(true) is given.
func AttachKeys[T any](ctx context.Context, s *Session, record *T, logicalKey []string, opt ...Option) (bool, error) {
	const op = "session.AttachKeys"
	if record == nil {
		return false, errors.New(ctx, errors.InvalidParameter, op, "missing record")
	}
	n, err := AttachKeysAll(ctx, s, []*T{record}, logicalKey, opt...)
	if err != nil {
		return false, errors.Wrap(ctx, err, op)
	}
	return n == 1, nil
}

// AttachKeysAll is the batched form of AttachKeys, it runs one query and
// returns the number of records a key was attached to. Records which can't
// take the key found are reported together in the returned error, the keys
// of the other records are attached.
func AttachKeysAll[T any](ctx context.Context, s *Session, records []*T, logicalKey []string, opt ...Option) (int, error) {
	const op = "session.AttachKeysAll"
	m, err := mappingOf[T](op)
	if err != nil {
		return 0, err
	}
	fields, err := m.LogicalKeyFields(logicalKey)
	if err != nil {
		return 0, errors.Wrap(ctx, err, op)
	}
	opts, err := s.callOpts(opt...)
	if err != nil {
		return 0, errors.Wrap(ctx, err, op)
	}
	recs, err := anySlice(op, records)
	if err != nil {
		return 0, err
	}
	keys := make([]model.Key, 0, len(recs))
	for _, r := range recs {
		keys = append(keys, model.KeyOf(ctx, fields, r))
	}
	unique, _ := dedupe(keys)
	found, err := s.uniqueLookup(ctx, m, fields, unique, m.PrimaryKey)
	if err != nil {
		return 0, errors.Wrap(ctx, err, op)
	}
	var attached int
	var merr *multierror.Error
	for i, r := range recs {
		pk, ok := found[keys[i].String()]
		if !ok {
			continue
		}
		if err := s.attachKey(ctx, opts, m, r, pk); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		attached++
	}
	if err := merr.ErrorOrNil(); err != nil {
		return attached, errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidParameter))
	}
	return attached, nil
}

func normalizeKeys(ctx context.Context, op errors.Op, fields []*model.Field, keys []model.Key) ([]model.Key, error) {
	out := make([]model.Key, 0, len(keys))
	for i, k := range keys {
		n, err := model.NormalizeKey(fields, k)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op, errors.WithMsg("key %d", i))
		}
		out = append(out, n)
	}
	return out, nil
}
