// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package frame implements the tabular dataset model for the dataset
// cache: named, typed columns of tagged values with ordered rows.
//
// Datasets referenced through the cache are immutable for their entire
// lifetime. Every operation in this package follows explicit
// copy-on-write: the input dataset is read-only and the result is a
// newly owned value. Per-value type coercion never panics; a failed
// conversion yields Null (see convert.go) or an explicit error where
// the operation's policy demands one.
package frame

import (
	"fmt"
	"time"
)

// Kind is the tag of a Value variant.
type Kind uint8

const (
	// KindNull marks a missing value.
	KindNull Kind = iota

	// KindBool holds a boolean.
	KindBool

	// KindInt holds a signed 64-bit integer.
	KindInt

	// KindFloat holds a 64-bit float.
	KindFloat

	// KindString holds a UTF-8 string.
	KindString

	// KindTime holds a timestamp.
	KindTime
)

// String returns the wire name of the kind, matching the JSON API.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "datetime"
	default:
		return "null"
	}
}

// KindFromString parses a wire name into a Kind.
//
// Outputs:
//
//	Kind - The parsed kind.
//	error - Non-nil if name is not a known kind.
func KindFromString(name string) (Kind, error) {
	switch name {
	case "bool":
		return KindBool, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "datetime":
		return KindTime, nil
	case "null":
		return KindNull, nil
	default:
		return KindNull, fmt.Errorf("unknown column type %q", name)
	}
}

// IsNumeric reports whether the kind supports arithmetic.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// Value is a tagged variant holding one cell.
//
// Exactly one payload field is meaningful, selected by Kind. A zero
// Value is Null. Values are compared with Equal, never ==, because
// time.Time carries a monotonic component that must be ignored.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Time  time.Time
}

// Null is the missing value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// Int wraps an integer.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Float wraps a float.
func Float(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// String wraps a string.
func String(v string) Value { return Value{Kind: KindString, Str: v} }

// Time wraps a timestamp.
func Time(v time.Time) Value { return Value{Kind: KindTime, Time: v} }

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports whether two values hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindString:
		return v.Str == o.Str
	case KindTime:
		return v.Time.Equal(o.Time)
	default:
		return false
	}
}

// Column is a named, typed slice of values.
//
// Type is the declared column type; individual values are either of
// that type or Null. Mixed non-null kinds inside one column are a
// construction error.
type Column struct {
	Name   string
	Type   Kind
	Values []Value
}

// clone returns a deep copy of the column.
func (c Column) clone() Column {
	vals := make([]Value, len(c.Values))
	copy(vals, c.Values)
	return Column{Name: c.Name, Type: c.Type, Values: vals}
}

// Dataset is an immutable tabular value: ordered rows, named typed
// columns. Source is a human-readable label for the status surface
// ("vendas (upload)", "postgres: pedidos", ...).
//
// Thread Safety: a Dataset is safe for concurrent reads. Mutation is
// forbidden by convention; operations return new datasets.
type Dataset struct {
	Columns []Column
	Source  string
}

// New builds a dataset from columns, validating shape and types.
//
// Description:
//
//	All columns must have the same length, distinct names, and values
//	consistent with their declared type (Null always allowed).
//
// Outputs:
//
//	*Dataset - The validated dataset.
//	error - Non-nil on ragged columns, duplicate names, or a value
//	whose kind disagrees with the column type.
func New(source string, cols ...Column) (*Dataset, error) {
	seen := make(map[string]struct{}, len(cols))
	rows := -1
	for _, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column with empty name")
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if rows == -1 {
			rows = len(c.Values)
		} else if len(c.Values) != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Values), rows)
		}
		for i, v := range c.Values {
			if v.Kind != KindNull && v.Kind != c.Type {
				return nil, fmt.Errorf("column %q row %d: value kind %s disagrees with column type %s",
					c.Name, i, v.Kind, c.Type)
			}
		}
	}
	return &Dataset{Columns: cols, Source: source}, nil
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// NumCols returns the column count.
func (d *Dataset) NumCols() int { return len(d.Columns) }

// ColumnNames returns column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or false if absent.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.Column(name)
	return ok
}

// Clone returns a deep copy the caller owns.
func (d *Dataset) Clone() *Dataset {
	cols := make([]Column, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = c.clone()
	}
	return &Dataset{Columns: cols, Source: d.Source}
}

// WithSource returns a copy carrying a new source label.
func (d *Dataset) WithSource(source string) *Dataset {
	out := d.Clone()
	out.Source = source
	return out
}

// selectRows builds a new dataset containing the given row indexes of
// d, in order. Indexes must be in range.
func (d *Dataset) selectRows(idx []int) *Dataset {
	cols := make([]Column, len(d.Columns))
	for i, c := range d.Columns {
		vals := make([]Value, len(idx))
		for j, r := range idx {
			vals[j] = c.Values[r]
		}
		cols[i] = Column{Name: c.Name, Type: c.Type, Values: vals}
	}
	return &Dataset{Columns: cols, Source: d.Source}
}

// Delta summarizes the shape change of a transform for the UI.
type Delta struct {
	// ColumnsAdded is how many columns the result gained.
	ColumnsAdded int

	// ColumnsRemoved is how many columns the result lost.
	ColumnsRemoved int

	// RowDelta is result rows minus input rows (negative for drops).
	RowDelta int
}

// deltaBetween computes the shape delta from before to after.
func deltaBetween(before, after *Dataset) Delta {
	beforeSet := make(map[string]struct{}, len(before.Columns))
	for _, c := range before.Columns {
		beforeSet[c.Name] = struct{}{}
	}
	afterSet := make(map[string]struct{}, len(after.Columns))
	for _, c := range after.Columns {
		afterSet[c.Name] = struct{}{}
	}

	var added, removed int
	for name := range afterSet {
		if _, ok := beforeSet[name]; !ok {
			added++
		}
	}
	for name := range beforeSet {
		if _, ok := afterSet[name]; !ok {
			removed++
		}
	}

	return Delta{
		ColumnsAdded:   added,
		ColumnsRemoved: removed,
		RowDelta:       after.NumRows() - before.NumRows(),
	}
}

// Describe renders the delta in the product's feedback style, e.g.
// "(1 col. adicionada(s)). (2 linha(s) removida(s))." Empty when the
// shape did not change.
func (dl Delta) Describe() string {
	out := ""
	if dl.ColumnsAdded > 0 {
		out += fmt.Sprintf("(%d col. adicionada(s)).", dl.ColumnsAdded)
	}
	if dl.ColumnsRemoved > 0 {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("(%d col. removida(s)).", dl.ColumnsRemoved)
	}
	if dl.RowDelta != 0 {
		if out != "" {
			out += " "
		}
		word := "adicionada(s)"
		n := dl.RowDelta
		if n < 0 {
			word = "removida(s)"
			n = -n
		}
		out += fmt.Sprintf("(%d linha(s) %s).", n, word)
	}
	return out
}
