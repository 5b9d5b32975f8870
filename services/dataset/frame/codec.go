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
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"time"
)

// Encode serializes a dataset for the cache.
//
// Description:
//
//	Uses gob, which transmits float64 bit patterns and timestamp wall
//	clocks exactly; a dataset round-trips through Encode/Decode without
//	loss for every supported column type. The returned buffer is owned
//	by the caller.
//
// Outputs:
//
//	[]byte - The encoded payload.
//	error - Non-nil if encoding fails; nothing is partially written.
func Encode(d *Dataset) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("dataset must not be nil")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a cache payload back into a dataset.
//
// Outputs:
//
//	*Dataset - The decoded dataset.
//	error - Non-nil on a corrupt or truncated payload.
func Decode(payload []byte) (*Dataset, error) {
	var d Dataset
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &d, nil
}

// -----------------------------------------------------------------------------
// JSON wire form
// -----------------------------------------------------------------------------

// columnWire is the JSON shape of a column: scalar cells typed by the
// declared column type, nulls as JSON null, timestamps as RFC 3339.
type columnWire struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Values []json.RawMessage `json:"values"`
}

type datasetWire struct {
	Source  string       `json:"source,omitempty"`
	Columns []columnWire `json:"columns"`
}

// MarshalJSON renders the dataset in the HTTP API shape.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	wire := datasetWire{
		Source:  d.Source,
		Columns: make([]columnWire, len(d.Columns)),
	}
	for i, c := range d.Columns {
		cw := columnWire{
			Name:   c.Name,
			Type:   c.Type.String(),
			Values: make([]json.RawMessage, len(c.Values)),
		}
		for j, v := range c.Values {
			raw, err := marshalValue(v)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", c.Name, j, err)
			}
			cw.Values[j] = raw
		}
		wire.Columns[i] = cw
	}
	return json.Marshal(wire)
}

// UnmarshalJSON parses the HTTP API shape, validating the result with
// the same rules as New.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var wire datasetWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	cols := make([]Column, len(wire.Columns))
	for i, cw := range wire.Columns {
		kind, err := KindFromString(cw.Type)
		if err != nil {
			return fmt.Errorf("column %q: %w", cw.Name, err)
		}
		vals := make([]Value, len(cw.Values))
		for j, raw := range cw.Values {
			v, err := unmarshalValue(raw, kind)
			if err != nil {
				return fmt.Errorf("column %q row %d: %w", cw.Name, j, err)
			}
			vals[j] = v
		}
		cols[i] = Column{Name: cw.Name, Type: kind, Values: vals}
	}
	parsed, err := New(wire.Source, cols...)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func marshalValue(v Value) (json.RawMessage, error) {
	switch v.Kind {
	case KindNull:
		return json.RawMessage("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindString:
		return json.Marshal(v.Str)
	case KindTime:
		return json.Marshal(v.Time.Format(time.RFC3339Nano))
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

func unmarshalValue(raw json.RawMessage, kind Kind) (Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Null(), nil
	}
	switch kind {
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Null(), err
		}
		return Bool(b), nil
	case KindInt:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Null(), err
		}
		i, err := n.Int64()
		if err != nil {
			return Null(), err
		}
		return Int(i), nil
	case KindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Null(), err
		}
		return Float(f), nil
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Null(), err
		}
		return String(s), nil
	case KindTime:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Null(), err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Null(), fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		return Time(t), nil
	default:
		return Null(), fmt.Errorf("cannot decode into column type %s", kind)
	}
}
