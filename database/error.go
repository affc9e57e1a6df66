// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific database Error.
const (
	// ErrDbTypeRegistered indicates two different database drivers
	// attempt to register with the name database type.
	ErrDbTypeRegistered ErrorCode = iota

	// ErrDbUnknownType indicates there is no driver registered for
	// the specified database type.
	ErrDbUnknownType

	// ErrDbDoesNotExist indicates open is called for a database that
	// does not exist.
	ErrDbDoesNotExist

	// ErrDbExists indicates create is called for a database that
	// already exists.
	ErrDbExists

	// ErrDbNotOpen indicates a database instance is accessed before
	// it is opened or after it is closed.
	ErrDbNotOpen

	// ErrInvalid indicates the arguments passed to a driver are invalid.
	ErrInvalid

	// ErrTxNotWritable indicates an operation that requires write access
	// to the database was attempted against a read-only transaction.
	ErrTxNotWritable

	// ErrKeyNotFound indicates the requested key is absent.
	ErrKeyNotFound

	// ErrDriverSpecific indicates the Err field is a driver-specific error.
	ErrDriverSpecific
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDbTypeRegistered: "ErrDbTypeRegistered",
	ErrDbUnknownType:    "ErrDbUnknownType",
	ErrDbDoesNotExist:   "ErrDbDoesNotExist",
	ErrDbExists:         "ErrDbExists",
	ErrDbNotOpen:        "ErrDbNotOpen",
	ErrInvalid:          "ErrInvalid",
	ErrTxNotWritable:    "ErrTxNotWritable",
	ErrKeyNotFound:      "ErrKeyNotFound",
	ErrDriverSpecific:   "ErrDriverSpecific",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen during database
// operation.  The caller can use type assertions to determine the specific
// error and access the ErrorCode field.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error, optional
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap exposes the driver error.
func (e Error) Unwrap() error { return e.Err }

// makeError creates an Error given a set of arguments.
func makeError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// MakeError is used by drivers to report failures with a code.
func MakeError(c ErrorCode, desc string, err error) Error {
	return makeError(c, desc, err)
}

// IsErrorCode reports whether err, or an error it wraps, is a database
// Error with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var dbErr Error
	return errors.As(err, &dbErr) && dbErr.ErrorCode == c
}

// IsNotFound is a shortcut for IsErrorCode(err, ErrKeyNotFound).
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrKeyNotFound)
}
