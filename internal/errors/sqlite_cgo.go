// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build cgo

package errors

import (
	"github.com/mattn/go-sqlite3"
)

// sqliteCode maps a mattn/go-sqlite3 error to a Code.
func sqliteCode(err error) (Code, bool) {
	var sqliteErr sqlite3.Error
	if !As(err, &sqliteErr) {
		return Unknown, false
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return NotUnique, true
	case sqlite3.ErrConstraintNotNull:
		return NotNull, true
	case sqlite3.ErrConstraintCheck:
		return CheckConstraint, true
	case sqlite3.ErrConstraintForeignKey:
		return ForeignKey, true
	}
	switch sqliteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return SerializationFailure, true
	case sqlite3.ErrConstraint:
		return NotSpecificIntegrity, true
	}
	return Unknown, false
}
