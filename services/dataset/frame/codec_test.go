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
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	d := salesFixture(t)

	payload, err := Encode(d)
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, d.Source, got.Source)
	require.Equal(t, d.NumCols(), got.NumCols())
	for i, c := range d.Columns {
		assert.Equal(t, c.Name, got.Columns[i].Name)
		assert.Equal(t, c.Type, got.Columns[i].Type)
		for j, v := range c.Values {
			assert.True(t, v.Equal(got.Columns[i].Values[j]),
				"column %s row %d differs", c.Name, j)
		}
	}
}

func TestEncodeDecode_FloatBitsExact(t *testing.T) {
	// Values that decimal text forms commonly corrupt.
	d, err := New("",
		Column{Name: "x", Type: KindFloat, Values: []Value{
			Float(0.1), Float(math.Pi), Float(math.SmallestNonzeroFloat64),
			Float(math.MaxFloat64), Float(math.Inf(-1)),
		}},
	)
	require.NoError(t, err)

	payload, encErr := Encode(d)
	require.NoError(t, encErr)
	got, decErr := Decode(payload)
	require.NoError(t, decErr)

	col := got.Columns[0]
	for i, v := range d.Columns[0].Values {
		assert.Equal(t,
			math.Float64bits(v.Float),
			math.Float64bits(col.Values[i].Float),
			"row %d lost bits", i)
	}
}

func TestEncodeDecode_Timestamps(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 987654321, time.UTC)
	d, err := New("",
		Column{Name: "quando", Type: KindTime, Values: []Value{Time(ts), Null()}},
	)
	require.NoError(t, err)

	payload, encErr := Encode(d)
	require.NoError(t, encErr)
	got, decErr := Decode(payload)
	require.NoError(t, decErr)

	assert.True(t, got.Columns[0].Values[0].Time.Equal(ts))
	assert.True(t, got.Columns[0].Values[1].IsNull())
}

func TestEncode_NilDataset(t *testing.T) {
	_, err := Encode(nil)
	require.Error(t, err)
}

func TestDecode_CorruptPayload(t *testing.T) {
	_, err := Decode([]byte("not a dataset"))
	require.Error(t, err)
}

func TestJSON_RoundTrip(t *testing.T) {
	d := salesFixture(t)

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var got Dataset
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, d.ColumnNames(), got.ColumnNames())
	qty, _ := got.Column("quantidade")
	assert.Equal(t, KindInt, qty.Type)
	assert.True(t, qty.Values[2].IsNull())
}

func TestJSON_Unmarshal(t *testing.T) {
	raw := `{
		"source": "upload",
		"columns": [
			{"name": "produto", "type": "string", "values": ["caneta", null]},
			{"name": "quando", "type": "datetime", "values": ["2025-06-01T12:00:00Z", null]},
			{"name": "quantidade", "type": "int", "values": [3, 8]}
		]
	}`

	var d Dataset
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	assert.Equal(t, "upload", d.Source)
	assert.Equal(t, 2, d.NumRows())
	quando, _ := d.Column("quando")
	assert.Equal(t, 2025, quando.Values[0].Time.Year())
	assert.True(t, quando.Values[1].IsNull())
}

func TestJSON_UnmarshalRejectsUnknownType(t *testing.T) {
	raw := `{"columns": [{"name": "x", "type": "decimal", "values": [1]}]}`
	var d Dataset
	err := json.Unmarshal([]byte(raw), &d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column type")
}

func TestJSON_UnmarshalRejectsRaggedColumns(t *testing.T) {
	raw := `{"columns": [
		{"name": "a", "type": "int", "values": [1, 2]},
		{"name": "b", "type": "int", "values": [1]}
	]}`
	var d Dataset
	require.Error(t, json.Unmarshal([]byte(raw), &d))
}
