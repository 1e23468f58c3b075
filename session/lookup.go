// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-dbw"
	"github.com/parnell/gormext/internal/errors"
	"github.com/parnell/gormext/model"
)

// LGet returns the record of T whose logical key has the values given. No
// match is an error for which IsNotFound is true, more than one match an
// error for which IsAmbiguous is true. A nil logicalKey uses the fields
// tagged as the logical key of T.
func LGet[T any](ctx context.Context, s *Session, logicalKey []string, values []any, opt ...Option) (*T, error) {
	const op = "session.LGet"
	m, fields, key, err := logicalKeyOf[T](ctx, op, logicalKey, values)
	if err != nil {
		return nil, err
	}
	opts, err := s.callOpts(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	where, args := keyPredicate(model.QuotedColumns(fields), []model.Key{key})
	var found []*T
	if err := s.conn.SearchWhere(ctx, &found, where, args, append(opts.dbwOpts(), dbw.WithLimit(2))...); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	switch len(found) {
	case 0:
		return nil, errors.New(ctx, errors.RecordNotFound, op,
			fmt.Sprintf("no %s with %s %v", m.Name(), strings.Join(model.Names(fields), ","), []any(key)), errors.WithoutEvent())
	case 1:
		return found[0], nil
	default:
		return nil, errors.New(ctx, errors.MultipleRecords, op,
			fmt.Sprintf("more than one %s with %s %v", m.Name(), strings.Join(model.Names(fields), ","), []any(key)))
	}
}

// LExists reports whether a record of T whose logical key has the values
// given exists.
func LExists[T any](ctx context.Context, s *Session, logicalKey []string, values []any, opt ...Option) (bool, error) {
	const op = "session.LExists"
	m, fields, key, err := logicalKeyOf[T](ctx, op, logicalKey, values)
	if err != nil {
		return false, err
	}
	if _, err := s.callOpts(opt...); err != nil {
		return false, errors.Wrap(ctx, err, op)
	}
	where, args := keyPredicate(model.QuotedColumns(fields), []model.Key{key})
	rows, err := s.conn.Query(ctx, fmt.Sprintf("select 1 from %s where %s limit 1", m.QuotedTable(), where), args)
	if err != nil {
		return false, errors.Wrap(ctx, err, op)
	}
	defer rows.Close()
	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, errors.Wrap(ctx, err, op)
	}
	return exists, nil
}

// Count returns the number of rows in T's table.
func Count[T any](ctx context.Context, s *Session) (int64, error) {
	const op = "session.Count"
	var zero T
	m, err := model.Parse(&zero)
	if err != nil {
		return 0, errors.Wrap(ctx, err, op)
	}
	rows, err := s.conn.Query(ctx, "select count(*) from "+m.QuotedTable(), nil)
	if err != nil {
		return 0, errors.Wrap(ctx, err, op)
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, errors.Wrap(ctx, err, op)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, errors.Wrap(ctx, err, op)
	}
	return n, nil
}

func logicalKeyOf[T any](ctx context.Context, op errors.Op, logicalKey []string, values []any) (*model.Mapping, []*model.Field, model.Key, error) {
	var zero T
	m, err := model.Parse(&zero)
	if err != nil {
		return nil, nil, nil, errors.Wrap(ctx, err, op)
	}
	fields, err := m.LogicalKeyFields(logicalKey)
	if err != nil {
		return nil, nil, nil, errors.Wrap(ctx, err, op)
	}
	key, err := model.NormalizeKey(fields, values)
	if err != nil {
		return nil, nil, nil, errors.Wrap(ctx, err, op)
	}
	return m, fields, key, nil
}
