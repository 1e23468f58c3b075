// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package session

import "github.com/parnell/gormext/internal/errors"

// IsNotFound reports whether err is the error of a lookup that matched no
// record.
func IsNotFound(err error) bool {
	return errors.IsNotFoundError(err)
}

// IsAmbiguous reports whether err is the error of a lookup by logical key
// that matched more than one record.
func IsAmbiguous(err error) bool {
	return errors.IsMultipleRecordsError(err)
}

// IsNoLogicalKey reports whether err was caused by a record type declaring no
// logical key.
func IsNoLogicalKey(err error) bool {
	return errors.Match(errors.T(errors.NoLogicalKey), err)
}

// IsInvalidParameter reports whether err was caused by an invalid argument.
func IsInvalidParameter(err error) bool {
	return errors.Match(errors.T(errors.InvalidParameter), err)
}

// IsUnique reports whether err is a unique constraint violation.
func IsUnique(err error) bool {
	return errors.IsUniqueError(err)
}
