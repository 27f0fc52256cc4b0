// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package vocerrors defines the stable error taxonomy returned by the
// server lifecycle and directory management core. Every error that
// crosses a public API boundary is a *Error so callers can branch on
// Code instead of parsing messages.
package vocerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code identifies a class of failure. Codes are stable across releases.
type Code string

const (
	// Environment errors - something about basePath itself is wrong.
	DatadirInvalid     Code = "DATADIR_INVALID"
	DatadirNotWritable Code = "DATADIR_NOT_WRITABLE"
	DatadirLocked      Code = "DATADIR_LOCKED"
	DatadirUnlockable  Code = "DATADIR_UNLOCKABLE"

	// Logical errors - caller asked for something that conflicts with
	// current state.
	DatabaseNameInvalid Code = "DATABASE_NAME_INVALID"
	DatabaseNameUsed    Code = "DATABASE_NAME_USED"
	DatabaseNotFound    Code = "DATABASE_NOT_FOUND"

	// Resource errors.
	OutOfMemory Code = "OUT_OF_MEMORY"

	// Fatal internal errors - corrupt on-disk state that the core
	// cannot safely recover from.
	Internal Code = "INTERNAL"
)

// Error is the concrete error type returned by this module's public API.
type Error struct {
	Code    Code
	Message string
	Path    string // offending file or directory, if any
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an Error with no associated path.
func New(code Code, format string, a ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

// NewWithPath builds an Error naming the offending filesystem path.
func NewWithPath(code Code, path string, format string, a ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, a...), Path: path}
}

// Wrap classifies cause as code, with a Message built by
// github.com/pkg/errors' Wrap ("message: cause"). Only that text is
// kept: the returned Error does not hold cause itself or a stack trace,
// so errors.Cause and errors.Unwrap do not reach the original error.
func Wrap(cause error, code Code, path string, message string) *Error {
	return &Error{Code: code, Path: path, Message: errors.Wrap(cause, message).Error()}
}

// Is reports whether err is a *Error with the given code. Mirrors the
// storage.IsNotFound-style helpers the teacher uses for branching on
// error classes without type assertions at every call site.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

// IsInternal reports whether err is a fatal internal error.
func IsInternal(err error) bool {
	return Is(err, Internal)
}
