// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import "errors"

// Sentinel errors for filesystem operations. Use errors.Is in callers.
//
// Every public operation that the data model describes as boolean-returning still
// returns (bool, error): ok mirrors the boolean contract exactly, err carries one of
// these sentinels (wrapped with context via fmt.Errorf("...: %w", ...)) for callers
// that want errors.Is-based diagnostics. Nothing here is ever thrown or panicked across
// a package boundary.
var (
	// ErrInvalidArgument means a caller-supplied argument is empty, malformed, or out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyExists means the target path or identifier already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound means a mount, file, importer, or on-disk path was not found.
	ErrNotFound = errors.New("not found")
	// ErrIoFailure means an underlying read, write, seek, rename, or remove failed.
	ErrIoFailure = errors.New("i/o failure")
	// ErrFormatError means the container magic, header, or record data is malformed.
	ErrFormatError = errors.New("format error")
	// ErrPolicyDenied means the operation is disallowed by mount or importer policy.
	ErrPolicyDenied = errors.New("policy denied")
)
