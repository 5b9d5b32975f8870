// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"github.com/AleutianAI/AleutianData/services/dataset/dataerr"
)

// The error taxonomy lives in dataerr so the stage and session layers
// can return these values without importing the HTTP service. They
// are re-exported here for callers of the service API; errors.Is and
// errors.As work against either name.
var (
	ErrNoDataLoaded      = dataerr.ErrNoDataLoaded
	ErrDataExpired       = dataerr.ErrDataExpired
	ErrPreviewExpired    = dataerr.ErrPreviewExpired
	ErrInvalidPreviewKey = dataerr.ErrInvalidPreviewKey
)

// ComputationError is the data-level failure type; see dataerr.
type ComputationError = dataerr.ComputationError

// NewComputationError wraps err as a data-level failure of op.
func NewComputationError(op string, err error) *ComputationError {
	return dataerr.NewComputationError(op, err)
}

// IsComputationError reports whether err is a data-level failure
// rather than an infrastructure one.
func IsComputationError(err error) bool {
	return dataerr.IsComputationError(err)
}
