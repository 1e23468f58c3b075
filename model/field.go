// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package model

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/parnell/gormext/internal/errors"
	"gorm.io/gorm/schema"
)

// Field is a struct field of a record type that maps to a column.
type Field struct {
	// Name is the Go field name.
	Name string

	// Column is the column name.
	Column string

	// Type is the field type with any pointer removed.
	Type reflect.Type

	field *schema.Field
}

// Value returns the value of the field in record. Pointer fields are
// dereferenced and a nil pointer is returned as nil.
func (f *Field) Value(ctx context.Context, record any) any {
	v, zero := f.field.ValueOf(ctx, reflect.ValueOf(record))
	if zero && v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// Set the field in record, which must be a pointer, to v.
func (f *Field) Set(ctx context.Context, record any, v any) error {
	const op = "model.(Field).Set"
	if err := f.field.Set(ctx, reflect.ValueOf(record), v); err != nil {
		return errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidParameter), errors.WithMsg("unable to set %s", f.Name))
	}
	return nil
}

// Zero returns a new pointer to the zero value of the field type, suitable as
// a scan destination.
func (f *Field) Zero() any {
	return reflect.New(f.Type).Interface()
}

// Columns returns the column names of the fields.
func Columns(fields []*Field) []string {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, f.Column)
	}
	return cols
}

// QuotedColumns returns the column names of the fields quoted with Quote.
func QuotedColumns(fields []*Field) []string {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, Quote(f.Column))
	}
	return cols
}

// Quote returns ident as a double quoted SQL identifier. Each part of a
// dotted name is quoted on its own and embedded quotes are doubled.
func Quote(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// Names returns the Go field names of the fields.
func Names(fields []*Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

// Key is an ordered tuple of field values identifying a record, either by its
// primary key or by a logical key.
type Key []any

// String returns the canonical form of the key, two keys built from the same
// fields are equal when their strings are. Each value is written with its
// type and quoted, a nil value as nil.
func (k Key) String() string {
	parts := make([]string, 0, len(k))
	for _, v := range k {
		if v == nil {
			parts = append(parts, "nil")
			continue
		}
		var text string
		switch t := v.(type) {
		case time.Time:
			text = t.UTC().Format(time.RFC3339Nano)
		default:
			if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
				text = rv.String()
			} else {
				text = fmt.Sprintf("%v", v)
			}
		}
		parts = append(parts, fmt.Sprintf("%T:%s", v, strconv.Quote(text)))
	}
	return strings.Join(parts, ",")
}

// HasNil reports whether any value of the key is nil.
func (k Key) HasNil() bool {
	for _, v := range k {
		if v == nil {
			return true
		}
	}
	return false
}

// KeyOf returns the values of the fields in record.
func KeyOf(ctx context.Context, fields []*Field, record any) Key {
	k := make(Key, 0, len(fields))
	for _, f := range fields {
		k = append(k, f.Value(ctx, record))
	}
	return k
}

// SetKey sets the fields in record to the values of key.
func SetKey(ctx context.Context, fields []*Field, record any, key Key) error {
	const op = "model.SetKey"
	if len(fields) != len(key) {
		return errors.New(ctx, errors.InvalidParameter, op, fmt.Sprintf("key has %d values for %d fields", len(key), len(fields)))
	}
	for i, f := range fields {
		if err := f.Set(ctx, record, key[i]); err != nil {
			return errors.Wrap(ctx, err, op)
		}
	}
	return nil
}

// NormalizeKey converts the values to the types of the fields, so keys built
// by callers compare equal to keys read from records. Integer, float and
// unsigned values convert between each other when the value is representable,
// strings convert to named string types. Any other mismatch is an
// InvalidParameter error, and so is a key with the wrong number of values.
func NormalizeKey(fields []*Field, values []any) (Key, error) {
	const op = "model.NormalizeKey"
	if len(fields) != len(values) {
		return nil, errors.New(context.Background(), errors.InvalidParameter, op,
			fmt.Sprintf("key has %d values for %d fields", len(values), len(fields)), errors.WithoutEvent())
	}
	k := make(Key, 0, len(values))
	for i, f := range fields {
		v, err := convert(values[i], f.Type)
		if err != nil {
			return nil, errors.Wrap(context.Background(), err, op, errors.WithMsg("field %s", f.Name), errors.WithoutEvent())
		}
		k = append(k, v)
	}
	return k, nil
}

func convert(v any, to reflect.Type) (any, error) {
	const op = "model.convert"
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Type() == to {
		return rv.Interface(), nil
	}
	invalid := errors.New(context.Background(), errors.InvalidParameter, op, fmt.Sprintf("cannot use %s as %s", rv.Type(), to), errors.WithoutEvent())
	from := rv.Kind()
	switch {
	case isInt(to.Kind()):
		var n int64
		switch {
		case isInt(from):
			n = rv.Int()
		case isUint(from):
			if rv.Uint() > math.MaxInt64 {
				return nil, invalid
			}
			n = int64(rv.Uint())
		case isFloat(from):
			f := rv.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, invalid
			}
			n = int64(f)
		default:
			return nil, invalid
		}
		out := reflect.New(to).Elem()
		if out.OverflowInt(n) {
			return nil, invalid
		}
		out.SetInt(n)
		return out.Interface(), nil
	case isUint(to.Kind()):
		var n uint64
		switch {
		case isInt(from):
			if rv.Int() < 0 {
				return nil, invalid
			}
			n = uint64(rv.Int())
		case isUint(from):
			n = rv.Uint()
		case isFloat(from):
			f := rv.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return nil, invalid
			}
			n = uint64(f)
		default:
			return nil, invalid
		}
		out := reflect.New(to).Elem()
		if out.OverflowUint(n) {
			return nil, invalid
		}
		out.SetUint(n)
		return out.Interface(), nil
	case isFloat(to.Kind()) && (isInt(from) || isUint(from) || isFloat(from)):
		return rv.Convert(to).Interface(), nil
	case from == to.Kind() && rv.Type().ConvertibleTo(to):
		// named types sharing an underlying kind, e.g. a string for a
		// type Status string field
		return rv.Convert(to).Interface(), nil
	}
	return nil, invalid
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
