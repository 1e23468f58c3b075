// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package errors

// Code specifies a code for the error.
type Code uint32

// String will return the Code's Info.Message
func (c Code) String() string {
	return c.Info().Message
}

// Info will look up the Code's Info.  If the Info is not found, it will return
// Info for an Unknown Code.
func (c Code) Info() Info {
	if info, ok := errorCodeInfo[c]; ok {
		return info
	}
	return errorCodeInfo[Unknown]
}

const (
	Unknown Code = 0 // Unknown will be equal to a zero value for Codes

	// General function errors are reserved Codes 100-999
	InvalidParameter Code = 100 // InvalidParameter represents an invalid parameter for an operation.
	NoLogicalKey     Code = 101 // NoLogicalKey represents a model without any declared logical key columns
	InvalidFieldMask Code = 102 // InvalidFieldMask represents an update field mask that names no updatable columns
	InvalidConfig    Code = 103 // InvalidConfig represents a configuration document that failed to parse or validate

	// DB errors are reserved Codes from 1000-1999
	CheckConstraint      Code = 1000 // CheckConstraint represents a check constraint error
	NotNull              Code = 1001 // NotNull represents a value must not be null error
	NotUnique            Code = 1002 // NotUnique represents a value must be unique error
	NotSpecificIntegrity Code = 1003 // NotSpecificIntegrity represents an integrity error that has no specific domain error code
	MissingTable         Code = 1004 // Missing table represents an undefined table error
	ForeignKey           Code = 1005 // ForeignKey represents a foreign key constraint error
	RecordNotFound       Code = 1100 // RecordNotFound represents that a record/row was not found matching the criteria
	MultipleRecords      Code = 1101 // MultipleRecords represents that multiple records/rows were found matching the criteria

	// Transaction errors are reserved Codes from 2000-2999
	SerializationFailure Code = 2000 // SerializationFailure represents a transaction that could not be serialized and may be retried
	MaxRetries           Code = 2001 // MaxRetries represents that a transaction was retried too many times
	TxBegin              Code = 2002 // TxBegin represents an error starting a transaction
	TxCommit             Code = 2003 // TxCommit represents an error committing a transaction
	TxRollback           Code = 2004 // TxRollback represents an error rolling back a transaction
)
