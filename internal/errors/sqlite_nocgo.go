// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build !cgo

package errors

import (
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteCoder is satisfied by the errors of modernc.org/sqlite and its
// github.com/glebarez/go-sqlite fork.
type sqliteCoder interface {
	error
	Code() int
}

// sqliteCode maps a pure go sqlite error to a Code.
func sqliteCode(err error) (Code, bool) {
	var sqliteErr sqliteCoder
	if !As(err, &sqliteErr) {
		return Unknown, false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return NotUnique, true
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return NotNull, true
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return CheckConstraint, true
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ForeignKey, true
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return SerializationFailure, true
	case sqlite3.SQLITE_CONSTRAINT:
		return NotSpecificIntegrity, true
	}
	return Unknown, false
}
