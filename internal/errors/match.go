// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package errors

// Template is used to match Errs without specifying every field. A zero field
// in the Template matches anything.
type Template struct {
	Err       // Err embedded to support matching Errs
	Kind Kind // Kind allows explicit matching on a Template without a Code.
}

// T creates a new Template for matching Errs. Args of an unsupported type are
// ignored and when a type is repeated the last one wins.
func T(args ...any) *Template {
	t := &Template{}
	for _, a := range args {
		switch arg := a.(type) {
		case Code:
			t.Code = arg
		case string:
			t.Msg = arg
		case Op:
			t.Op = arg
		case Kind:
			t.Kind = arg
		case *Template:
			t.Wrapped = arg
		case error:
			t.Wrapped = arg
		}
	}
	return t
}

// Info about the Template, which is useful when matching a Template's Kind with
// an Err's Kind.
func (t *Template) Info() Info {
	switch {
	case t == nil:
		return errorCodeInfo[Unknown]
	case t.Code != Unknown:
		return t.Code.Info()
	case t.Kind != Other:
		return Info{Message: "Unknown", Kind: t.Kind}
	default:
		return errorCodeInfo[Unknown]
	}
}

// Error satisfies the error interface. A Template is not a domain error and
// its message carries nothing of value.
func (t *Template) Error() string {
	return "Template error"
}

// Match the template against the error. The error must be of type *Err, or
// wrap an error of type *Err, otherwise match will return false. A wrapped
// Template is matched recursively, any other wrapped error matches with
// errors.Is.
func Match(t *Template, err error) bool {
	if t == nil || err == nil {
		return false
	}
	var e *Err
	if !As(err, &e) {
		return false
	}
	switch {
	case t.Code != Unknown && t.Code != e.Code:
		return false
	case t.Msg != "" && t.Msg != e.Msg:
		return false
	case t.Op != "" && t.Op != e.Op:
		return false
	case t.Kind != Other && t.Info().Kind != e.Info().Kind:
		return false
	}
	switch wrapped := t.Wrapped.(type) {
	case nil:
		return true
	case *Template:
		return Match(wrapped, e.Wrapped)
	default:
		return Is(e.Wrapped, wrapped)
	}
}
