// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Op represents an operation (package.function).
// For example iam.CreateRole
type Op string

// Err provides the ability to specify a Msg, Op, Code and Wrapped error.
// Errs must have a Code and all other fields are optional. We've chosen Err
// over Error for the identifier to support the easy embedding of Errs.  Errs
// can be embedded without a conflict between the embedded Err and Err.Error().
type Err struct {
	// Code is the error's code, which can be used to get the error's
	// errorCodeInfo, which contains the error's Kind and Message
	Code Code

	// Msg for the error
	Msg string

	// Op represents the operation raising/propagating an error and is optional.
	Op Op

	// Wrapped is the error which this Err wraps and will be nil if there's no
	// error to wrap.
	Wrapped error
}

// E creates a new Err with provided code and supports the options of:
//
// * WithOp() - allows you to specify an optional Op (operation).
//
// * WithMsg() - allows you to specify an optional error msg, if the default
// msg for the error Code is not sufficient.
//
// * WithWrap() - allows you to specify an error to wrap.  If the wrapped error
// is a *Err and WithCode() is not used, the Code of the wrapped error is
// inherited.
//
// * WithCode() - allows you to specify an optional Code.
//
// * WithoutEvent() - allows you to specify that an event should not be
// written to the context's logger.
func E(ctx context.Context, opt ...Option) error {
	opts := GetOpts(opt...)
	var code Code
	var wrapped *Err
	switch {
	case opts.withCode != Unknown:
		code = opts.withCode
	case As(opts.withErrWrapped, &wrapped):
		code = wrapped.Code
	}

	err := &Err{
		Code:    code,
		Op:      opts.withOp,
		Wrapped: opts.withErrWrapped,
		Msg:     opts.withErrMsg,
	}
	if !opts.withoutEvent {
		hclog.FromContext(ctx).Trace("error", "op", string(err.Op), "code", uint32(err.Code), "error", err.Error())
	}
	return err
}

// New creates a new Err and supports the options of:
// WithOp - allows you to specify an optional Op (operation)
// WithWrap() - allows you to specify an error to wrap
func New(ctx context.Context, c Code, op Op, msg string, opt ...Option) error {
	// the options are appended to the arguments, so explicit options win
	opt = append([]Option{
		WithCode(c),
		WithOp(op),
		WithMsg("%s", msg),
	}, opt...)
	return E(ctx, opt...)
}

// Wrap creates a new Err from the provided err and op, preserving the code
// from the originating error. Database driver errors are converted first, so
// unique, not null and check constraint violations carry their own code.
// Supports the options of:
//
// * WithMsg() - allows you to specify an optional error msg, if the default
// msg for the error Code is not sufficient.
//
// * WithCode() - allows you to override the error code inherited from err.
func Wrap(ctx context.Context, err error, op Op, opt ...Option) error {
	if err == nil {
		return nil
	}
	err = Convert(err)
	opt = append([]Option{
		WithWrap(err),
		WithOp(op),
	}, opt...)
	return E(ctx, opt...)
}

// Convert will convert the error to a *Err (if that's not possible, it just
// returns the error as is) and it will attempt to add a helpful error msg too.
// The original error stays in the chain so errors.Is and errors.As still
// match it.
func Convert(e error) error {
	// nothing to convert.
	if e == nil {
		return nil
	}

	var alreadyConverted *Err
	if As(e, &alreadyConverted) {
		return e
	}
	if code, msg, ok := pgCode(e); ok {
		return &Err{Code: code, Msg: msg, Wrapped: e}
	}
	if code, ok := sqliteCode(e); ok {
		return &Err{Code: code, Wrapped: e}
	}
	// some drivers only report constraint failures in the message text
	lowered := strings.ToLower(e.Error())
	switch {
	case strings.Contains(lowered, "unique constraint failed"),
		strings.Contains(lowered, "duplicate key value violates unique constraint"):
		return &Err{Code: NotUnique, Wrapped: e}
	case strings.Contains(lowered, "no such table"):
		return &Err{Code: MissingTable, Wrapped: e}
	}
	// unfortunately, we can't help.
	return e
}

// Info about the Err
func (e *Err) Info() Info {
	if e == nil {
		return errorCodeInfo[Unknown]
	}
	return e.Code.Info()
}

// Error satisfies the error interface and returns a string representation of
// the Err
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	var s strings.Builder
	if e.Op != "" {
		join(&s, ": ", string(e.Op))
	}
	if e.Msg != "" {
		join(&s, ": ", e.Msg)
	}

	var skipInfo bool
	var wrapped *Err
	if As(e.Wrapped, &wrapped) {
		// the wrapped error will print the same code info
		skipInfo = wrapped.Code == e.Code
	}
	if !skipInfo {
		info := e.Info()
		if e.Msg == "" {
			join(&s, ": ", fmt.Sprintf("%s, %s", info.Message, info.Kind))
		} else {
			join(&s, ": ", info.Kind.String())
		}
		join(&s, ": ", fmt.Sprintf("error #%d", e.Code))
	}
	if e.Wrapped != nil {
		join(&s, ": ", e.Wrapped.Error())
	}
	return s.String()
}

func join(str *strings.Builder, delim string, s string) {
	if str.Len() == 0 {
		_, _ = str.WriteString(s)
		return
	}
	_, _ = str.WriteString(delim + s)
}

// Unwrap implements the errors.Unwrap interface and allows callers to use the
// errors.Is() and errors.As() functions effectively for any wrapped errors.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}

// Is the std errors.Is function, so packages don't need to import both this
// package and the std errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As the std errors.As function, so packages don't need to import both this
// package and the std errors package.
func As(err error, target any) bool {
	if err == nil {
		return false
	}
	return errors.As(err, target)
}

// Join the std errors.Join function.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
