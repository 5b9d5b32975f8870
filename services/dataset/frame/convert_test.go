// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	ts := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		in     Value
		target Kind
		want   Value
	}{
		{"int to float", Int(7), KindFloat, Float(7)},
		{"bool to int", Bool(true), KindInt, Int(1)},
		{"string to float", String(" 3.14 "), KindFloat, Float(3.14)},
		{"string to float garbage", String("abc"), KindFloat, Null()},
		{"exact float to int", Float(4), KindInt, Int(4)},
		{"fractional float to int", Float(4.5), KindInt, Null()},
		{"string integer to int", String("42"), KindInt, Int(42)},
		{"string exact float to int", String("42.0"), KindInt, Int(42)},
		{"time to int is unix seconds", Time(ts), KindInt, Int(ts.Unix())},
		{"int to string", Int(42), KindString, String("42")},
		{"float to string", Float(2.5), KindString, String("2.5")},
		{"iso string to time", String("2025-03-15 10:30:00"), KindTime, Time(ts)},
		{"brazilian string to time", String("15/03/2025 10:30:00"), KindTime, Time(ts)},
		{"bad string to time", String("ontem"), KindTime, Null()},
		{"unix int to time", Int(ts.Unix()), KindTime, Time(ts)},
		{"string sim to bool", String("sim"), KindBool, Bool(true)},
		{"string não to bool", String("não"), KindBool, Bool(false)},
		{"string maybe to bool", String("talvez"), KindBool, Null()},
		{"nonzero int to bool", Int(-3), KindBool, Bool(true)},
		{"null stays null", Null(), KindInt, Null()},
		{"same kind passes through", String("x"), KindString, String("x")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Convert(tc.in, tc.target)
			assert.True(t, tc.want.Equal(got), "want %+v, got %+v", tc.want, got)
		})
	}
}

func TestCoerceConstant(t *testing.T) {
	v, err := CoerceConstant("3.5", KindFloat)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, v.Float, 1e-12)

	v, err = CoerceConstant("10", KindInt)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.Int)

	// An exact float spelling is accepted for integer targets.
	v, err = CoerceConstant("10.0", KindInt)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.Int)

	_, err = CoerceConstant("abc", KindFloat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"abc"`)

	_, err = CoerceConstant("4.5", KindInt)
	require.Error(t, err)
}

func TestCoerceConstant_BoolNeverFails(t *testing.T) {
	v, err := CoerceConstant("Sim", KindBool)
	require.NoError(t, err)
	assert.True(t, v.Bool)

	// Anything outside the truthy set is false, never an error.
	v, err = CoerceConstant("qualquer coisa", KindBool)
	require.NoError(t, err)
	assert.False(t, v.Bool)
}

func TestCoerceConstant_Time(t *testing.T) {
	v, err := CoerceConstant("2025-03-15", KindTime)
	require.NoError(t, err)
	assert.Equal(t, 2025, v.Time.Year())

	_, err = CoerceConstant("amanhã", KindTime)
	require.Error(t, err)
}

func TestCoerceConstant_StringKeepsRaw(t *testing.T) {
	v, err := CoerceConstant("  espaços  ", KindString)
	require.NoError(t, err)
	assert.Equal(t, "  espaços  ", v.Str)
}
