// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package keys issues opaque cache keys for dataset versions.
//
// Keys are 128-bit random identifiers (UUID v4). They are never derived
// from content: two identical datasets computed independently receive
// different keys. Preview keys carry a prefix for diagnostics only; the
// store treats all keys uniformly.
package keys

import (
	"strings"

	"github.com/google/uuid"
)

// TempPrefix marks keys that hold unconfirmed join previews.
//
// The prefix exists so humans reading logs or cache dumps can tell a
// short-lived preview from a committed dataset. Nothing in the storage
// layer branches on it.
const TempPrefix = "temp_join_"

// New returns a fresh opaque key for a committed dataset version.
//
// Outputs:
//
//	string - UUID v4 string. Unique with overwhelming probability;
//	never reused.
func New() string {
	return uuid.NewString()
}

// NewTemp returns a fresh key for an unconfirmed join preview.
//
// Outputs:
//
//	string - TempPrefix followed by a UUID v4 string.
func NewTemp() string {
	return TempPrefix + uuid.NewString()
}

// IsTemp reports whether key was issued by NewTemp.
func IsTemp(key string) bool {
	return strings.HasPrefix(key, TempPrefix)
}
