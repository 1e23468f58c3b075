// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package model

import (
	"context"
	"fmt"
	"reflect"

	"github.com/parnell/gormext/internal/errors"
	"gorm.io/gorm/schema"
)

// RelationshipKind is the kind of a relationship between two record types.
type RelationshipKind string

const (
	BelongsTo RelationshipKind = RelationshipKind(schema.BelongsTo)
	HasOne    RelationshipKind = RelationshipKind(schema.HasOne)
	HasMany   RelationshipKind = RelationshipKind(schema.HasMany)
)

// Relationship is an association field of a record type. Many to many and
// polymorphic associations aren't supported and are left out of a Mapping.
type Relationship struct {
	// Name is the Go name of the association field.
	Name string

	// Kind of the relationship.
	Kind RelationshipKind

	rel *schema.Relationship
}

// Reference copies the value of the Parent field into the Child field, which
// is the foreign key. For belongs to relationships the parent is the
// associated record, otherwise it's the record owning the association.
type Reference struct {
	Parent *Field
	Child  *Field
}

func newRelationship(rel *schema.Relationship) *Relationship {
	if rel.Polymorphic != nil || rel.JoinTable != nil {
		return nil
	}
	switch rel.Type {
	case schema.BelongsTo, schema.HasOne, schema.HasMany:
	default:
		return nil
	}
	return &Relationship{Name: rel.Name, Kind: RelationshipKind(rel.Type), rel: rel}
}

// Target returns the Mapping of the associated record type.
func (r *Relationship) Target() (*Mapping, error) {
	const op = "model.(Relationship).Target"
	m, err := Parse(reflect.New(r.rel.FieldSchema.ModelType).Interface())
	if err != nil {
		return nil, errors.Wrap(context.Background(), err, op, errors.WithoutEvent())
	}
	return m, nil
}

// References returns the foreign key references of the relationship between
// owner, the Mapping the relationship belongs to, and its target.
func (r *Relationship) References(owner *Mapping) ([]Reference, error) {
	const op = "model.(Relationship).References"
	target, err := r.Target()
	if err != nil {
		return nil, errors.Wrap(context.Background(), err, op, errors.WithoutEvent())
	}
	parent, child := owner, target
	if r.Kind == BelongsTo {
		parent, child = target, owner
	}
	refs := make([]Reference, 0, len(r.rel.References))
	for _, ref := range r.rel.References {
		if ref.PrimaryKey == nil || ref.ForeignKey == nil {
			continue
		}
		p, ok := parent.Field(ref.PrimaryKey.Name)
		if !ok {
			return nil, errors.New(context.Background(), errors.InvalidParameter, op, fmt.Sprintf("%s has no field %s", parent.Name(), ref.PrimaryKey.Name), errors.WithoutEvent())
		}
		c, ok := child.Field(ref.ForeignKey.Name)
		if !ok {
			return nil, errors.New(context.Background(), errors.InvalidParameter, op, fmt.Sprintf("%s has no field %s", child.Name(), ref.ForeignKey.Name), errors.WithoutEvent())
		}
		refs = append(refs, Reference{Parent: p, Child: c})
	}
	return refs, nil
}

// Records returns pointers to the associated records held by the association
// field of record. Nil pointers and empty slices yield nothing.
func (r *Relationship) Records(ctx context.Context, record any) []any {
	fv := r.rel.Field.ReflectValueOf(ctx, reflect.ValueOf(record))
	var out []any
	var collect func(v reflect.Value)
	collect = func(v reflect.Value) {
		switch v.Kind() {
		case reflect.Pointer:
			if !v.IsNil() {
				out = append(out, v.Interface())
			}
		case reflect.Struct:
			if v.CanAddr() && !v.IsZero() {
				out = append(out, v.Addr().Interface())
			}
		case reflect.Slice, reflect.Array:
			for i := 0; i < v.Len(); i++ {
				collect(v.Index(i))
			}
		}
	}
	collect(fv)
	return out
}

// Detach clears the association field of record and returns a func which
// restores it. Detaching keeps gorm from saving the associated records along
// with the record.
func (r *Relationship) Detach(ctx context.Context, record any) func() {
	fv := r.rel.Field.ReflectValueOf(ctx, reflect.ValueOf(record))
	if !fv.CanSet() {
		return func() {}
	}
	saved := reflect.New(fv.Type()).Elem()
	saved.Set(fv)
	fv.Set(reflect.Zero(fv.Type()))
	return func() {
		fv.Set(saved)
	}
}
