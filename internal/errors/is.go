// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package errors

import (
	"strings"

	pgconnv1 "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// pgCode maps a postgres SQLSTATE reported by pgx, the v1 pgconn or lib/pq
// to a Code.
func pgCode(err error) (Code, string, bool) {
	var state, msg string
	var pgxErr *pgconn.PgError
	var pgxV1Err *pgconnv1.PgError
	var pqErr *pq.Error
	switch {
	case As(err, &pgxErr):
		state, msg = pgxErr.Code, pgxErr.Detail
		if msg == "" {
			msg = pgxErr.Message
		}
	case As(err, &pgxV1Err):
		state, msg = pgxV1Err.Code, pgxV1Err.Detail
		if msg == "" {
			msg = pgxV1Err.Message
		}
	case As(err, &pqErr):
		state, msg = string(pqErr.Code), pqErr.Detail
		if msg == "" {
			msg = pqErr.Message
		}
	default:
		return Unknown, "", false
	}
	switch state {
	case "23505": // unique_violation
		return NotUnique, msg, true
	case "23502": // not_null_violation
		return NotNull, msg, true
	case "23514": // check_violation
		return CheckConstraint, msg, true
	case "23503": // foreign_key_violation
		return ForeignKey, msg, true
	case "42P01": // undefined_table
		return MissingTable, msg, true
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return SerializationFailure, msg, true
	}
	if strings.HasPrefix(state, "23") {
		return NotSpecificIntegrity, msg, true
	}
	return Unknown, "", false
}

func isCode(err error, c Code) bool {
	if err == nil {
		return false
	}
	var domainErr *Err
	if As(Convert(err), &domainErr) {
		return domainErr.Code == c
	}
	return false
}

// IsUniqueError returns a boolean indicating whether the error is known to
// report a unique constraint violation.
func IsUniqueError(err error) bool {
	return isCode(err, NotUnique)
}

// IsCheckConstraintError returns a boolean indicating whether the error is
// known to report a check constraint violation.
func IsCheckConstraintError(err error) bool {
	return isCode(err, CheckConstraint)
}

// IsNotNullError returns a boolean indicating whether the error is known
// to report a not-null constraint violation.
func IsNotNullError(err error) bool {
	return isCode(err, NotNull)
}

// IsForeignKeyError returns a boolean indicating whether the error is known
// to report a foreign key violation.
func IsForeignKeyError(err error) bool {
	return isCode(err, ForeignKey)
}

// IsMissingTableError returns a boolean indicating whether the error is known
// to report a undefined/missing table violation.
func IsMissingTableError(err error) bool {
	return isCode(err, MissingTable)
}

// IsNotFoundError returns a boolean indicating whether the error is known to
// report a not found violation.
func IsNotFoundError(err error) bool {
	return isCode(err, RecordNotFound)
}

// IsMultipleRecordsError returns a boolean indicating whether the error
// reports that more than one record matched where at most one was expected.
func IsMultipleRecordsError(err error) bool {
	return isCode(err, MultipleRecords)
}

// IsSerializationError returns a boolean indicating whether the error reports
// a transaction that failed because of concurrent access and can be retried.
func IsSerializationError(err error) bool {
	return isCode(err, SerializationFailure)
}
