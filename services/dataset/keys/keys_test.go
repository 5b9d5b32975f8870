// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package keys

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000000)
	for i := 0; i < 1000000; i++ {
		k := New()
		_, dup := seen[k]
		require.False(t, dup, "duplicate key %s", k)
		seen[k] = struct{}{}
	}
}

func TestNew_IsValidUUID(t *testing.T) {
	_, err := uuid.Parse(New())
	require.NoError(t, err)
}

func TestNewTemp(t *testing.T) {
	k := NewTemp()
	assert.True(t, IsTemp(k))

	_, err := uuid.Parse(k[len(TempPrefix):])
	require.NoError(t, err)
}

func TestIsTemp(t *testing.T) {
	assert.False(t, IsTemp(New()))
	assert.False(t, IsTemp(""))
	assert.True(t, IsTemp(TempPrefix))
}
