// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataerr holds the dataset service's error taxonomy.
//
// It sits below every other dataset package so the stage and session
// layers can return these errors without depending on the HTTP
// service that maps them to responses.
package dataerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dataset service.
var (
	// ErrNoDataLoaded indicates the session pointer references no
	// dataset. Recoverable by ingesting one.
	ErrNoDataLoaded = errors.New("no dataset loaded")

	// ErrDataExpired indicates the pointer references a key whose
	// entry is absent or past its TTL. Recoverable by re-ingesting.
	ErrDataExpired = errors.New("dataset expired or missing")

	// ErrPreviewExpired indicates a join save arrived after the
	// preview's short TTL elapsed. The preview must be redone; saving
	// is never a silent no-op.
	ErrPreviewExpired = errors.New("join preview expired")

	// ErrInvalidPreviewKey indicates a join save named a key that was
	// never issued for a preview. Committed entries are immutable and
	// must not be consumed by promotion.
	ErrInvalidPreviewKey = errors.New("key does not reference a join preview")
)

// ComputationError reports a transform or join that failed on the
// data itself (absent column, incompatible fill value, empty result).
// The pointer is never moved when one of these is returned: the
// previous version stays current.
type ComputationError struct {
	// Op names the operation that failed (rename, drop, join...).
	Op string

	// Message is the user-facing diagnostic, naming the offending
	// column or value.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ComputationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: computation failed", e.Op)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// NewComputationError wraps err as a data-level failure of op. The
// error's own text becomes the user-facing diagnostic.
func NewComputationError(op string, err error) *ComputationError {
	return &ComputationError{Op: op, Message: err.Error(), Err: err}
}

// IsComputationError reports whether err is a data-level failure
// rather than an infrastructure one.
func IsComputationError(err error) bool {
	var ce *ComputationError
	return errors.As(err, &ce)
}
