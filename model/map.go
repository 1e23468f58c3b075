// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package model

import (
	"context"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/parnell/gormext/internal/errors"
)

// ToMap returns the column values of record keyed by column name. Nil
// pointer fields are returned as nil values.
func ToMap(ctx context.Context, record any) (map[string]any, error) {
	const op = "model.ToMap"
	m, err := Parse(record)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	if reflect.ValueOf(record).Kind() != reflect.Pointer {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "record must be a pointer")
	}
	out := make(map[string]any, len(m.Columns))
	for _, f := range m.Columns {
		out[f.Column] = f.Value(ctx, record)
	}
	return out, nil
}

// FromMap fills dest, a pointer to a record, from values. Keys may be column
// names or Go field names, values are weakly typed so "1" decodes into an int
// field. Keys that match no field are an InvalidParameter error.
func FromMap(ctx context.Context, values map[string]any, dest any) error {
	const op = "model.FromMap"
	m, err := Parse(dest)
	if err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if reflect.ValueOf(dest).Kind() != reflect.Pointer {
		return errors.New(ctx, errors.InvalidParameter, op, "destination must be a pointer")
	}
	named := make(map[string]any, len(values))
	for k, v := range values {
		if f, ok := m.Field(k); ok {
			k = f.Name
		}
		if _, dup := named[k]; dup {
			return errors.New(ctx, errors.InvalidParameter, op, fmt.Sprintf("%s is set more than once", k))
		}
		named[k] = v
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dest,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if err := decoder.Decode(named); err != nil {
		return errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidParameter))
	}
	return nil
}
