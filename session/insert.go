// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/go-dbw"
	"github.com/parnell/gormext/internal/errors"
	"github.com/parnell/gormext/model"
)

// InsertIgnore stages record unless a row with the same primary key exists.
// It returns true when the record was staged. A record with an unassigned
// primary key is always staged and gets the key the database assigns.
func InsertIgnore[T any](ctx context.Context, s *Session, record *T, opt ...Option) (bool, error) {
	const op = "session.InsertIgnore"
	if record == nil {
		return false, errors.New(ctx, errors.InvalidParameter, op, "missing record")
	}
	staged, err := InsertIgnoreAll(ctx, s, []*T{record}, opt...)
	if err != nil {
		return false, errors.Wrap(ctx, err, op)
	}
	return len(staged) == 1, nil
}

// InsertIgnoreAll stages the records for which no row with the same primary
// key exists, using one query to find the existing rows. It returns the
// staged records in input order. When several records share a primary key
// only the first one is considered.
func InsertIgnoreAll[T any](ctx context.Context, s *Session, records []*T, opt ...Option) ([]*T, error) {
	const op = "session.InsertIgnoreAll"
	m, err := mappingOf[T](op)
	if err != nil {
		return nil, err
	}
	opts, err := s.callOpts(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	recs, err := anySlice(op, records)
	if err != nil {
		return nil, err
	}
	staged, err := s.insertIgnore(ctx, opts, keySpec{m: m, fields: m.PrimaryKey}, recs, visited{})
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return pick(records, staged), nil
}

// LInsertIgnore stages record unless a row with the same logical key exists.
// A nil logicalKey uses the fields tagged as the logical key of T. When a
// row is found its primary key is attached to record and false is returned.
func LInsertIgnore[T any](ctx context.Context, s *Session, record *T, logicalKey []string, opt ...Option) (bool, error) {
	const op = "session.LInsertIgnore"
	if record == nil {
		return false, errors.New(ctx, errors.InvalidParameter, op, "missing record")
	}
	staged, err := LInsertIgnoreAll(ctx, s, []*T{record}, logicalKey, opt...)
	if err != nil {
		return false, errors.Wrap(ctx, err, op)
	}
	return len(staged) == 1, nil
}

// LInsertIgnoreAll is the batched form of LInsertIgnore. Records sharing a
// logical key with an earlier record of the input are not staged, they get
// the primary key of the first one.
func LInsertIgnoreAll[T any](ctx context.Context, s *Session, records []*T, logicalKey []string, opt ...Option) ([]*T, error) {
	const op = "session.LInsertIgnoreAll"
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
	staged, err := s.insertIgnore(ctx, opts, keySpec{m: m, fields: fields, logical: true}, recs, visited{})
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return pick(records, staged), nil
}

// keySpec is the key existence is judged on.
type keySpec struct {
	m       *model.Mapping
	fields  []*model.Field
	logical bool
}

// visited holds the record types an insert cascaded through.
type visited map[reflect.Type]bool

// insertIgnore writes the records not found by key and reports, aligned with
// records, which ones were staged.
func (s *Session) insertIgnore(ctx context.Context, opts options, ks keySpec, records []any, seen visited) ([]bool, error) {
	const op = "session.(Session).insertIgnore"
	staged := make([]bool, len(records))
	if len(records) == 0 {
		return staged, nil
	}
	if opts.withCascade {
		seen[ks.m.Type] = true
		if err := s.cascadeParents(ctx, opts, ks.m, ks, records, seen); err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
	}

	restore := detach(ctx, ks.m, records)
	defer func() { restore() }()

	// first holds the index of the first record of each key, dups the index
	// of the first record for records repeating a key.
	first := map[string]int{}
	dups := map[int]int{}
	var keys []model.Key
	var pending []int
	for i, r := range records {
		if !ks.logical && !ks.m.HasPrimaryKey(ctx, r) {
			pending = append(pending, i)
			continue
		}
		k := model.KeyOf(ctx, ks.fields, r)
		if j, ok := first[k.String()]; ok {
			dups[i] = j
			continue
		}
		first[k.String()] = i
		keys = append(keys, k)
		pending = append(pending, i)
	}
	if len(dups) > 0 {
		opts.withLogger.Debug("skipping records repeating a key", "type", ks.m.Name(), "count", len(dups))
	}

	switch {
	case ks.logical:
		found, err := s.uniqueLookup(ctx, ks.m, ks.fields, keys, ks.m.PrimaryKey)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		pending, err = s.attachFound(ctx, opts, ks, records, pending, found)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
	case opts.withStrategy == StrategyCheck:
		found, err := s.lookup(ctx, ks.m, ks.fields, keys, nil)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		kept := pending[:0]
		for _, i := range pending {
			if ks.m.HasPrimaryKey(ctx, records[i]) {
				if _, ok := found[ks.m.PrimaryKeyOf(ctx, records[i]).String()]; ok {
					continue
				}
			}
			kept = append(kept, i)
		}
		pending = kept
	}

	toCreate := make([]any, 0, len(pending))
	for _, i := range pending {
		toCreate = append(toCreate, records[i])
	}
	var created []bool
	var err error
	switch opts.withStrategy {
	case StrategyOnConflict:
		created, err = s.createOnConflict(ctx, opts, ks, toCreate)
	default:
		created, err = s.createChecked(ctx, opts, ks, toCreate)
	}
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	var lost []int
	for n, i := range pending {
		staged[i] = created[n]
		if !created[n] {
			lost = append(lost, i)
		}
	}
	if len(lost) > 0 {
		opts.withLogger.Debug("records not inserted, a row with the same key exists", "type", ks.m.Name(), "count", len(lost))
		// a concurrent writer inserted the key after the lookup
		if ks.logical {
			lostKeys := make([]model.Key, 0, len(lost))
			for _, i := range lost {
				lostKeys = append(lostKeys, model.KeyOf(ctx, ks.fields, records[i]))
			}
			found, err := s.uniqueLookup(ctx, ks.m, ks.fields, lostKeys, ks.m.PrimaryKey)
			if err != nil {
				return nil, errors.Wrap(ctx, err, op)
			}
			if _, err := s.attachFound(ctx, opts, ks, records, lost, found); err != nil {
				return nil, errors.Wrap(ctx, err, op)
			}
		}
	}

	if ks.logical {
		for i, j := range dups {
			if !ks.m.HasPrimaryKey(ctx, records[j]) {
				continue
			}
			if err := s.attachKey(ctx, opts, ks.m, records[i], ks.m.PrimaryKeyOf(ctx, records[j])); err != nil {
				return nil, errors.Wrap(ctx, err, op)
			}
		}
	}

	if opts.withCascade {
		restore()
		restore = func() {}
		if err := s.cascadeChildren(ctx, opts, ks.m, ks, records, seen); err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
	}
	return staged, nil
}

// attachFound attaches the primary keys found by logical key to the records
// at the pending indexes and returns the indexes of the records not found.
func (s *Session) attachFound(ctx context.Context, opts options, ks keySpec, records []any, pending []int, found map[string]model.Key) ([]int, error) {
	const op = "session.(Session).attachFound"
	var missing []int
	for _, i := range pending {
		pk, ok := found[model.KeyOf(ctx, ks.fields, records[i]).String()]
		if !ok {
			missing = append(missing, i)
			continue
		}
		if err := s.attachKey(ctx, opts, ks.m, records[i], pk); err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
	}
	return missing, nil
}

// attachKey sets the primary key of record. A record holding a different
// assigned key is an error unless overwriting is allowed.
func (s *Session) attachKey(ctx context.Context, opts options, m *model.Mapping, record any, pk model.Key) error {
	const op = "session.(Session).attachKey"
	if m.HasPrimaryKey(ctx, record) && !opts.withAllowKeyOverwrite {
		current := m.PrimaryKeyOf(ctx, record)
		if current.String() == pk.String() {
			return nil
		}
		return errors.New(ctx, errors.InvalidParameter, op,
			fmt.Sprintf("%s already has primary key %v, the row found has %v", m.Name(), []any(current), []any(pk)))
	}
	if err := m.SetPrimaryKey(ctx, record, pk); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// createChecked creates the records, in one batch when there are several.
// A unique violation reports the record as not created when a row with its
// key exists by then, any other unique violation is returned. Inside a
// transaction every create runs under a savepoint so the violation leaves
// the transaction usable.
func (s *Session) createChecked(ctx context.Context, opts options, ks keySpec, records []any) ([]bool, error) {
	const op = "session.(Session).createChecked"
	m := ks.m
	created := make([]bool, len(records))
	if len(records) == 0 {
		return created, nil
	}
	if len(records) > 1 {
		unassigned := make([]bool, len(records))
		for i, r := range records {
			unassigned[i] = !m.HasPrimaryKey(ctx, r)
		}
		items := typedSlice(m.Type, records)
		err := s.underSavepoint(ctx, func() error {
			return s.conn.CreateItems(ctx, items, opts.dbwOpts()...)
		})
		switch {
		case err == nil:
			for i := range created {
				created[i] = true
			}
			return created, nil
		case !errors.IsUniqueError(err):
			return nil, errors.Wrap(ctx, err, op)
		}
		opts.withLogger.Debug("batch insert hit a unique violation, inserting one at a time", "type", m.Name(), "count", len(records))
		// the failed batch may have assigned keys
		for i, r := range records {
			if !unassigned[i] {
				continue
			}
			if err := m.ClearPrimaryKey(ctx, r); err != nil {
				return nil, errors.Wrap(ctx, err, op)
			}
		}
	}
	for i, r := range records {
		err := s.underSavepoint(ctx, func() error {
			return s.conn.Create(ctx, r, opts.dbwOpts()...)
		})
		switch {
		case err == nil:
			created[i] = true
		case errors.IsUniqueError(err):
			exists, existsErr := s.keyExists(ctx, ks, r)
			if existsErr != nil {
				return nil, errors.Wrap(ctx, errors.Join(err, existsErr), op)
			}
			if !exists {
				return nil, errors.Wrap(ctx, err, op)
			}
			opts.withLogger.Debug("insert lost to an existing row", "type", m.Name(), "error", err)
		default:
			return nil, errors.Wrap(ctx, err, op)
		}
	}
	return created, nil
}

// keyExists reports whether a row with the key of record exists. A record
// with an unassigned primary key has no key to find.
func (s *Session) keyExists(ctx context.Context, ks keySpec, record any) (bool, error) {
	const op = "session.(Session).keyExists"
	if !ks.logical && !ks.m.HasPrimaryKey(ctx, record) {
		return false, nil
	}
	found, err := s.lookup(ctx, ks.m, ks.fields, []model.Key{model.KeyOf(ctx, ks.fields, record)}, nil)
	if err != nil {
		return false, errors.Wrap(ctx, err, op)
	}
	return len(found) > 0, nil
}

// createOnConflict creates the records one at a time with a do nothing
// conflict clause on the key columns, a record is created when a row was
// affected.
func (s *Session) createOnConflict(ctx context.Context, opts options, ks keySpec, records []any) ([]bool, error) {
	const op = "session.(Session).createOnConflict"
	created := make([]bool, len(records))
	target := dbw.Columns(model.Columns(ks.fields))
	for i, r := range records {
		var rowsAffected int64
		dbOpts := append(opts.dbwOpts(),
			dbw.WithOnConflict(&dbw.OnConflict{Target: target, Action: dbw.DoNothing(true)}),
			dbw.WithReturnRowsAffected(&rowsAffected),
		)
		if err := s.conn.Create(ctx, r, dbOpts...); err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		created[i] = rowsAffected > 0
	}
	return created, nil
}

// detach clears the associations of the records so gorm doesn't save them
// with the records. The returned func restores them.
func detach(ctx context.Context, m *model.Mapping, records []any) func() {
	var restores []func()
	for _, r := range records {
		for _, rel := range m.Relationships {
			restores = append(restores, rel.Detach(ctx, r))
		}
	}
	return func() {
		for _, fn := range restores {
			fn()
		}
	}
}

// anySlice returns the records as a []any, rejecting nil records.
func anySlice[T any](op errors.Op, records []*T) ([]any, error) {
	out := make([]any, 0, len(records))
	for i, r := range records {
		if r == nil {
			return nil, errors.New(context.Background(), errors.InvalidParameter, op, fmt.Sprintf("missing record at index %d", i), errors.WithoutEvent())
		}
		out = append(out, r)
	}
	return out, nil
}

// typedSlice returns the records, pointers to typ, as a []*typ.
func typedSlice(typ reflect.Type, records []any) any {
	items := reflect.MakeSlice(reflect.SliceOf(reflect.PointerTo(typ)), 0, len(records))
	for _, r := range records {
		items = reflect.Append(items, reflect.ValueOf(r))
	}
	return items.Interface()
}

func pick[T any](records []*T, staged []bool) []*T {
	out := make([]*T, 0, len(records))
	for i, r := range records {
		if staged[i] {
			out = append(out, r)
		}
	}
	return out
}
