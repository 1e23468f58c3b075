// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/parnell/gormext/internal/errors"
	"github.com/parnell/gormext/model"
)

// keyPredicate returns a where clause matching any of the keys on the
// columns, which must be quoted, along with its arguments. A single column uses an in list, several
// columns an or of ands. Nil values match null columns.
func keyPredicate(cols []string, keys []model.Key) (string, []any) {
	args := make([]any, 0, len(keys)*len(cols))
	if len(cols) == 1 {
		var clauses []string
		var hasNull bool
		for _, k := range keys {
			if k[0] == nil {
				hasNull = true
				continue
			}
			args = append(args, k[0])
		}
		if len(args) > 0 {
			clauses = append(clauses, fmt.Sprintf("%s in (%s)", cols[0], placeholders(len(args))))
		}
		if hasNull {
			clauses = append(clauses, cols[0]+" is null")
		}
		return strings.Join(clauses, " or "), args
	}
	clauses := make([]string, 0, len(keys))
	for _, k := range keys {
		conds := make([]string, 0, len(cols))
		for i, c := range cols {
			if k[i] == nil {
				conds = append(conds, c+" is null")
				continue
			}
			conds = append(conds, c+" = ?")
			args = append(args, k[i])
		}
		clauses = append(clauses, "("+strings.Join(conds, " and ")+")")
	}
	return strings.Join(clauses, " or "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// lookup runs one query for the rows of the table whose by columns match any
// of the keys, returning the selected columns of every row grouped by the
// key matched. When selected is empty the by columns are returned.
func (s *Session) lookup(ctx context.Context, m *model.Mapping, by []*model.Field, keys []model.Key, selected []*model.Field) (map[string][]model.Key, error) {
	const op = "session.(Session).lookup"
	found := map[string][]model.Key{}
	if len(keys) == 0 {
		return found, nil
	}
	fields := by
	if len(selected) > 0 {
		fields = append(append(make([]*model.Field, 0, len(selected)+len(by)), selected...), by...)
	}
	where, args := keyPredicate(model.QuotedColumns(by), keys)
	query := fmt.Sprintf("select %s from %s where %s", strings.Join(model.QuotedColumns(fields), ", "), m.QuotedTable(), where)
	s.opts.withLogger.Trace("lookup", "table", m.Table, "keys", len(keys))

	rows, err := s.conn.Query(ctx, query, args)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	defer rows.Close()
	for rows.Next() {
		dest := make([]any, 0, len(fields))
		for _, f := range fields {
			// a pointer to a pointer scans nulls as nil
			dest = append(dest, reflect.New(reflect.PointerTo(f.Type)).Interface())
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		values := make(model.Key, 0, len(dest))
		for _, d := range dest {
			p := reflect.ValueOf(d).Elem()
			if p.IsNil() {
				values = append(values, nil)
				continue
			}
			values = append(values, p.Elem().Interface())
		}
		matched := values
		if len(selected) > 0 {
			matched = values[len(selected):]
			values = values[:len(selected)]
		}
		k := matched.String()
		found[k] = append(found[k], values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return found, nil
}

// uniqueLookup is lookup for keys which must match at most one row. A key
// matching several rows is a MultipleRecords error.
func (s *Session) uniqueLookup(ctx context.Context, m *model.Mapping, by []*model.Field, keys []model.Key, selected []*model.Field) (map[string]model.Key, error) {
	const op = "session.(Session).uniqueLookup"
	found, err := s.lookup(ctx, m, by, keys, selected)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	unique := make(map[string]model.Key, len(found))
	for k, rows := range found {
		if len(rows) > 1 {
			return nil, errors.New(ctx, errors.MultipleRecords, op,
				fmt.Sprintf("%d %s rows match %s %s", len(rows), m.Name(), strings.Join(model.Names(by), ","), k))
		}
		unique[k] = rows[0]
	}
	return unique, nil
}

// dedupe returns the keys in order without repeats, keyed by their string.
func dedupe(keys []model.Key) ([]model.Key, map[string]bool) {
	seen := make(map[string]bool, len(keys))
	out := make([]model.Key, 0, len(keys))
	for _, k := range keys {
		ks := k.String()
		if seen[ks] {
			continue
		}
		seen[ks] = true
		out = append(out, k)
	}
	return out, seen
}

func mappingOf[T any](op errors.Op) (*model.Mapping, error) {
	var zero T
	m, err := model.Parse(&zero)
	if err != nil {
		return nil, errors.Wrap(context.Background(), err, op, errors.WithoutEvent())
	}
	if len(m.PrimaryKey) == 0 {
		return nil, errors.New(context.Background(), errors.InvalidParameter, op, fmt.Sprintf("%s has no primary key", m.Name()), errors.WithoutEvent())
	}
	return m, nil
}
