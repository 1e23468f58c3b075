// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import (
	"context"

	"github.com/parnell/gormext/internal/errors"
	"github.com/parnell/gormext/model"
)

// cascadeParents insert ignores the belongs to associations of the records
// and copies their keys into the foreign keys of the records.
func (s *Session) cascadeParents(ctx context.Context, opts options, m *model.Mapping, ks keySpec, records []any, seen visited) error {
	const op = "session.(Session).cascadeParents"
	for _, rel := range m.Relationships {
		if rel.Kind != model.BelongsTo {
			continue
		}
		target, err := rel.Target()
		if err != nil {
			return errors.Wrap(ctx, err, op)
		}
		if seen[target.Type] {
			continue
		}
		refs, err := rel.References(m)
		if err != nil {
			return errors.Wrap(ctx, err, op)
		}
		owners := map[any][]any{}
		var parents []any
		for _, r := range records {
			for _, p := range rel.Records(ctx, r) {
				if _, ok := owners[p]; !ok {
					parents = append(parents, p)
				}
				owners[p] = append(owners[p], r)
			}
		}
		if len(parents) == 0 {
			continue
		}
		opts.withLogger.Trace("cascading to parents", "type", m.Name(), "relationship", rel.Name, "count", len(parents))
		if _, err := s.insertIgnore(ctx, opts, cascadeKey(target, ks.logical), parents, seen); err != nil {
			return errors.Wrap(ctx, err, op)
		}
		for _, p := range parents {
			for _, r := range owners[p] {
				if err := copyReferences(ctx, refs, p, r); err != nil {
					return errors.Wrap(ctx, err, op)
				}
			}
		}
	}
	return nil
}

// cascadeChildren copies the keys of the records into the foreign keys of
// their has one and has many associations and insert ignores them.
func (s *Session) cascadeChildren(ctx context.Context, opts options, m *model.Mapping, ks keySpec, records []any, seen visited) error {
	const op = "session.(Session).cascadeChildren"
	for _, rel := range m.Relationships {
		if rel.Kind != model.HasOne && rel.Kind != model.HasMany {
			continue
		}
		target, err := rel.Target()
		if err != nil {
			return errors.Wrap(ctx, err, op)
		}
		if seen[target.Type] {
			continue
		}
		refs, err := rel.References(m)
		if err != nil {
			return errors.Wrap(ctx, err, op)
		}
		var children []any
		for _, r := range records {
			for _, c := range rel.Records(ctx, r) {
				if err := copyReferences(ctx, refs, r, c); err != nil {
					return errors.Wrap(ctx, err, op)
				}
				children = append(children, c)
			}
		}
		if len(children) == 0 {
			continue
		}
		opts.withLogger.Trace("cascading to children", "type", m.Name(), "relationship", rel.Name, "count", len(children))
		if _, err := s.insertIgnore(ctx, opts, cascadeKey(target, ks.logical), children, seen); err != nil {
			return errors.Wrap(ctx, err, op)
		}
	}
	return nil
}

// cascadeKey returns the key associated records are insert ignored on: their
// declared logical key when the cascade started from a logical insert, their
// primary key otherwise.
func cascadeKey(m *model.Mapping, logical bool) keySpec {
	if logical && len(m.LogicalKey) > 0 {
		return keySpec{m: m, fields: m.LogicalKey, logical: true}
	}
	return keySpec{m: m, fields: m.PrimaryKey}
}

// copyReferences copies the referenced values of parent into the foreign key
// fields of child. Unset parent values are skipped.
func copyReferences(ctx context.Context, refs []model.Reference, parent, child any) error {
	const op = "session.copyReferences"
	for _, ref := range refs {
		v := ref.Parent.Value(ctx, parent)
		if v == nil {
			continue
		}
		if err := ref.Child.Set(ctx, child, v); err != nil {
			return errors.Wrap(ctx, err, op)
		}
	}
	return nil
}
