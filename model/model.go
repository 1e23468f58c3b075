// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package model describes how a record type maps onto its table: the primary
// key, the logical key, the columns and the relationships to other record
// types. Mappings are parsed from the gorm struct tags of the record type.
//
// A logical key is an alternate identity of a record, made of one or more
// columns that are not the primary key. Fields join the declared logical key
// by carrying the gormext struct tag:
//
//	type User struct {
//		Id    int    `gorm:"primaryKey"`
//		Email string `gormext:"logical_key"`
//	}
package model

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/parnell/gormext/internal/errors"
	"gorm.io/gorm/schema"
)

const (
	// TagName is the struct tag key read by Parse.
	TagName = "gormext"

	// LogicalKeyTag marks a field as part of the declared logical key.
	LogicalKeyTag = "logical_key"
)

var (
	schemaCache  = &sync.Map{}
	mappingCache = &sync.Map{}
)

// Mapping describes a record type and its table.
type Mapping struct {
	// Type is the struct type of the record.
	Type reflect.Type

	// Table is the name of the table the record is stored in.
	Table string

	// PrimaryKey holds the primary key fields in declaration order.
	PrimaryKey []*Field

	// LogicalKey holds the fields tagged as logical keys, in declaration
	// order. It's empty when the type declares no logical key.
	LogicalKey []*Field

	// Columns holds every field that maps to a column.
	Columns []*Field

	// Relationships holds the belongs to, has one and has many relationships
	// of the type, in declaration order.
	Relationships []*Relationship

	byName map[string]*Field
}

// Parse returns the Mapping for the type of v, which must be a struct, a
// pointer to a struct or a slice of either. Mappings are cached per type.
func Parse(v any) (*Mapping, error) {
	const op = "model.Parse"
	if v == nil {
		return nil, errors.New(context.Background(), errors.InvalidParameter, op, "missing model", errors.WithoutEvent())
	}
	typ := reflect.TypeOf(v)
	for typ.Kind() == reflect.Pointer || typ.Kind() == reflect.Slice || typ.Kind() == reflect.Array {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, errors.New(context.Background(), errors.InvalidParameter, op, fmt.Sprintf("%s is not a struct", typ), errors.WithoutEvent())
	}
	if m, ok := mappingCache.Load(typ); ok {
		return m.(*Mapping), nil
	}
	s, err := schema.Parse(reflect.New(typ).Interface(), schemaCache, schema.NamingStrategy{})
	if err != nil {
		return nil, errors.Wrap(context.Background(), err, op, errors.WithCode(errors.InvalidParameter), errors.WithoutEvent())
	}
	m := newMapping(typ, s)
	actual, _ := mappingCache.LoadOrStore(typ, m)
	return actual.(*Mapping), nil
}

func newMapping(typ reflect.Type, s *schema.Schema) *Mapping {
	m := &Mapping{
		Type:   typ,
		Table:  s.Table,
		byName: make(map[string]*Field, len(s.Fields)*2),
	}
	for _, sf := range s.Fields {
		if sf.DBName == "" {
			if rel, ok := s.Relationships.Relations[sf.Name]; ok {
				if r := newRelationship(rel); r != nil {
					m.Relationships = append(m.Relationships, r)
				}
			}
			continue
		}
		f := &Field{Name: sf.Name, Column: sf.DBName, Type: sf.IndirectFieldType, field: sf}
		m.Columns = append(m.Columns, f)
		m.byName[f.Name] = f
		m.byName[f.Column] = f
		if sf.PrimaryKey {
			m.PrimaryKey = append(m.PrimaryKey, f)
		}
		if hasTagOption(sf.Tag.Get(TagName), LogicalKeyTag) {
			m.LogicalKey = append(m.LogicalKey, f)
		}
	}
	return m
}

func hasTagOption(tag, option string) bool {
	for _, o := range strings.Split(tag, ",") {
		if strings.TrimSpace(o) == option {
			return true
		}
	}
	return false
}

// Name returns the Go name of the record type.
func (m *Mapping) Name() string {
	return m.Type.Name()
}

// Field returns the column field with the Go field name or column name.
func (m *Mapping) Field(name string) (*Field, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// Fields resolves the Go field names or column names to their fields. Unknown
// names are an InvalidParameter error and so is an empty list.
func (m *Mapping) Fields(names []string) ([]*Field, error) {
	const op = "model.(Mapping).Fields"
	if len(names) == 0 {
		return nil, errors.New(context.Background(), errors.InvalidParameter, op, "missing field names", errors.WithoutEvent())
	}
	fields := make([]*Field, 0, len(names))
	seen := make(map[*Field]bool, len(names))
	for _, n := range names {
		f, ok := m.byName[n]
		if !ok {
			return nil, errors.New(context.Background(), errors.InvalidParameter, op, fmt.Sprintf("%s has no attribute %q", m.Name(), n), errors.WithoutEvent())
		}
		if seen[f] {
			return nil, errors.New(context.Background(), errors.InvalidParameter, op, fmt.Sprintf("attribute %q is repeated", n), errors.WithoutEvent())
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields, nil
}

// LogicalKeyFields returns the fields named by names. When names is empty the
// declared logical key is returned, and a type without one is a NoLogicalKey
// error.
func (m *Mapping) LogicalKeyFields(names []string) ([]*Field, error) {
	const op = "model.(Mapping).LogicalKeyFields"
	if len(names) == 0 {
		if len(m.LogicalKey) == 0 {
			return nil, errors.New(context.Background(), errors.NoLogicalKey, op,
				fmt.Sprintf("%s has no defined logical keys, it must contain at least one field tagged %s:%q", m.Name(), TagName, LogicalKeyTag),
				errors.WithoutEvent())
		}
		return m.LogicalKey, nil
	}
	fields, err := m.Fields(names)
	if err != nil {
		return nil, errors.Wrap(context.Background(), err, op, errors.WithoutEvent())
	}
	return fields, nil
}

// NonKeyColumns returns the column names of every field that is not part of
// the primary key.
func (m *Mapping) NonKeyColumns() []string {
	cols := make([]string, 0, len(m.Columns))
	for _, f := range m.Columns {
		if !f.field.PrimaryKey {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// HasPrimaryKey reports whether every primary key field of record is set. A
// zero valued primary key field is considered unassigned, the database
// assigns it on insert.
func (m *Mapping) HasPrimaryKey(ctx context.Context, record any) bool {
	if len(m.PrimaryKey) == 0 {
		return false
	}
	rv := reflect.ValueOf(record)
	for _, f := range m.PrimaryKey {
		if _, zero := f.field.ValueOf(ctx, rv); zero {
			return false
		}
	}
	return true
}

// PrimaryKeyOf returns the primary key of the record.
func (m *Mapping) PrimaryKeyOf(ctx context.Context, record any) Key {
	return KeyOf(ctx, m.PrimaryKey, record)
}

// SetPrimaryKey sets the primary key fields of the record.
func (m *Mapping) SetPrimaryKey(ctx context.Context, record any, key Key) error {
	const op = "model.(Mapping).SetPrimaryKey"
	if err := SetKey(ctx, m.PrimaryKey, record, key); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// ClearPrimaryKey zeroes the primary key fields of the record.
func (m *Mapping) ClearPrimaryKey(ctx context.Context, record any) error {
	const op = "model.(Mapping).ClearPrimaryKey"
	if err := SetKey(ctx, m.PrimaryKey, record, make(Key, len(m.PrimaryKey))); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// QuotedTable returns the table name quoted with Quote.
func (m *Mapping) QuotedTable() string {
	return Quote(m.Table)
}

// String returns the type and table names.
func (m *Mapping) String() string {
	return fmt.Sprintf("%s(%s)", m.Name(), m.Table)
}
