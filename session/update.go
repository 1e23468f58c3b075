// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"

	"github.com/parnell/gormext/internal/errors"
	"github.com/parnell/gormext/model"
)

// LInsertUpdate stages record when no row with the same logical key exists
// and otherwise attaches the key of the row found and updates its non key
// columns from record. It returns true when the record was staged as new.
func LInsertUpdate[T any](ctx context.Context, s *Session, record *T, logicalKey []string, opt ...Option) (bool, error) {
	const op = "session.LInsertUpdate"
	if record == nil {
		return false, errors.New(ctx, errors.InvalidParameter, op, "missing record")
	}
	staged, err := LInsertUpdateAll(ctx, s, []*T{record}, logicalKey, opt...)
	if err != nil {
		return false, errors.Wrap(ctx, err, op)
	}
	return len(staged) == 1, nil
}

// LInsertUpdateAll is the batched form of LInsertUpdate and returns the
// records staged as new. A record repeating the logical key of an earlier
// record of the input only gets its primary key attached.
func LInsertUpdateAll[T any](ctx context.Context, s *Session, records []*T, logicalKey []string, opt ...Option) ([]*T, error) {
	const op = "session.LInsertUpdateAll"
	m, err := mappingOf[T](op)
	if err != nil {
		return nil, err
	}
	fields, err := m.LogicalKeyFields(logicalKey)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	opts, err := s.callOpts(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	recs, err := anySlice(op, records)
	if err != nil {
		return nil, err
	}
	keys := make([]model.Key, 0, len(recs))
	for _, r := range recs {
		keys = append(keys, model.KeyOf(ctx, fields, r))
	}
	unique, _ := dedupe(keys)
	found, err := s.uniqueLookup(ctx, m, fields, unique, m.PrimaryKey)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}

	updated := map[string]bool{}
	var rest []any
	var restIdx []int
	for i, r := range recs {
		ks := keys[i].String()
		pk, ok := found[ks]
		if !ok {
			rest = append(rest, r)
			restIdx = append(restIdx, i)
			continue
		}
		if err := s.attachKey(ctx, opts, m, r, pk); err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		if updated[ks] {
			continue
		}
		updated[ks] = true
		if err := s.update(ctx, opts, m, r); err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
	}

	staged, err := s.insertIgnore(ctx, opts, keySpec{m: m, fields: fields, logical: true}, rest, visited{})
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	out := make([]*T, 0, len(rest))
	for n, i := range restIdx {
		if staged[n] {
			out = append(out, records[i])
		}
	}
	return out, nil
}

// update writes the non key columns of record to its row. Nil pointer fields
// are set to null.
func (s *Session) update(ctx context.Context, opts options, m *model.Mapping, record any) error {
	const op = "session.(Session).update"
	var fieldMask, setToNull []string
	for _, f := range m.Columns {
		if isPrimaryKey(m, f) {
			continue
		}
		if f.Value(ctx, record) == nil {
			setToNull = append(setToNull, f.Name)
			continue
		}
		fieldMask = append(fieldMask, f.Name)
	}
	if len(fieldMask) == 0 && len(setToNull) == 0 {
		return nil
	}
	restore := detach(ctx, m, []any{record})
	defer restore()
	if _, err := s.conn.Update(ctx, record, fieldMask, setToNull, opts.dbwOpts()...); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

func isPrimaryKey(m *model.Mapping, f *model.Field) bool {
	for _, pk := range m.PrimaryKey {
		if pk == f {
			return true
		}
	}
	return false
}
