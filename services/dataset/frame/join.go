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
	"fmt"
	"strings"
)

// JoinType selects the join semantics.
type JoinType string

const (
	// JoinInner keeps only matching row pairs.
	JoinInner JoinType = "inner"

	// JoinLeft keeps every left row; unmatched right cells are missing.
	JoinLeft JoinType = "left"

	// JoinRight keeps every right row; unmatched left cells are missing.
	JoinRight JoinType = "right"

	// JoinOuter keeps every row from both sides.
	JoinOuter JoinType = "outer"
)

// JoinSpec configures a join between a main (left) dataset and a
// second (right) dataset.
type JoinSpec struct {
	Type JoinType

	// LeftKeys and RightKeys pair up positionally and must have equal
	// length.
	LeftKeys  []string
	RightKeys []string
}

// Join combines two datasets by key equality.
//
// Description:
//
//	Hash join over the key pairs. A missing value in any key cell
//	never matches, on either side. Column names that collide between
//	the two sides are disambiguated with "_A" (left) and "_B" (right)
//	suffixes. An empty result is rejected so a bad key choice never
//	silently replaces the working dataset.
//
// Inputs:
//
//	left, right - The datasets. Both treated as read-only.
//	spec - Join type and key pairs.
//
// Outputs:
//
//	*Dataset - The newly owned joined dataset.
//	error - Non-nil on unknown keys, mismatched key counts, an
//	unknown join type, or an empty result.
func Join(left, right *Dataset, spec JoinSpec) (*Dataset, error) {
	if left == nil || right == nil {
		return nil, fmt.Errorf("both datasets must be provided")
	}
	if len(spec.LeftKeys) == 0 {
		return nil, fmt.Errorf("selecione ao menos uma coluna chave")
	}
	if len(spec.LeftKeys) != len(spec.RightKeys) {
		return nil, fmt.Errorf("número de chaves deve ser igual (%d vs %d)",
			len(spec.LeftKeys), len(spec.RightKeys))
	}
	switch spec.Type {
	case JoinInner, JoinLeft, JoinRight, JoinOuter:
	default:
		return nil, fmt.Errorf("tipo de join inválido: %q", spec.Type)
	}

	leftKeyCols, err := keyColumns(left, spec.LeftKeys, "A")
	if err != nil {
		return nil, err
	}
	rightKeyCols, err := keyColumns(right, spec.RightKeys, "B")
	if err != nil {
		return nil, err
	}

	// Index right rows by key tuple. Null keys are excluded: they can
	// never match.
	rightIndex := make(map[string][]int, right.NumRows())
	for r := 0; r < right.NumRows(); r++ {
		k, ok := rowKey(rightKeyCols, r)
		if ok {
			rightIndex[k] = append(rightIndex[k], r)
		}
	}

	type pair struct{ l, r int } // -1 marks the unmatched side
	var pairs []pair
	matchedRight := make([]bool, right.NumRows())

	for l := 0; l < left.NumRows(); l++ {
		k, ok := rowKey(leftKeyCols, l)
		var matches []int
		if ok {
			matches = rightIndex[k]
		}
		if len(matches) == 0 {
			if spec.Type == JoinLeft || spec.Type == JoinOuter {
				pairs = append(pairs, pair{l, -1})
			}
			continue
		}
		for _, r := range matches {
			matchedRight[r] = true
			pairs = append(pairs, pair{l, r})
		}
	}
	if spec.Type == JoinRight || spec.Type == JoinOuter {
		for r := 0; r < right.NumRows(); r++ {
			if !matchedRight[r] {
				pairs = append(pairs, pair{-1, r})
			}
		}
	}
	if spec.Type == JoinRight {
		// Right join keeps only pairs with a right row.
		kept := pairs[:0]
		for _, p := range pairs {
			if p.r != -1 {
				kept = append(kept, p)
			}
		}
		pairs = kept
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("join resultou em conjunto de dados vazio; verifique as chaves e o tipo de join")
	}

	cols := make([]Column, 0, left.NumCols()+right.NumCols())
	collide := collisions(left, right)
	for _, c := range left.Columns {
		name := c.Name
		if collide[name] {
			name += "_A"
		}
		vals := make([]Value, len(pairs))
		for i, p := range pairs {
			if p.l >= 0 {
				vals[i] = c.Values[p.l]
			} else {
				vals[i] = Null()
			}
		}
		cols = append(cols, Column{Name: name, Type: c.Type, Values: vals})
	}
	for _, c := range right.Columns {
		name := c.Name
		if collide[name] {
			name += "_B"
		}
		vals := make([]Value, len(pairs))
		for i, p := range pairs {
			if p.r >= 0 {
				vals[i] = c.Values[p.r]
			} else {
				vals[i] = Null()
			}
		}
		cols = append(cols, Column{Name: name, Type: c.Type, Values: vals})
	}

	source := left.Source
	if right.Source != "" {
		source = fmt.Sprintf("%s + %s (join %s)", left.Source, right.Source, spec.Type)
	}
	return &Dataset{Columns: cols, Source: source}, nil
}

func keyColumns(d *Dataset, names []string, side string) ([]Column, error) {
	cols := make([]Column, len(names))
	for i, name := range names {
		c, ok := d.Column(name)
		if !ok {
			return nil, fmt.Errorf("coluna chave '%s' não encontrada na tabela %s", name, side)
		}
		cols[i] = c
	}
	return cols, nil
}

// rowKey encodes the key tuple of one row. ok is false when any key
// cell is missing.
func rowKey(keyCols []Column, row int) (string, bool) {
	var b strings.Builder
	for _, c := range keyCols {
		v := c.Values[row]
		if v.IsNull() {
			return "", false
		}
		// Int and Float cells with the same numeric value compare equal
		// across sides, as users expect from relational joins.
		if v.Kind.IsNumeric() {
			fmt.Fprintf(&b, "n:%v|", numericAsFloat(v))
			continue
		}
		switch v.Kind {
		case KindBool:
			fmt.Fprintf(&b, "b:%v|", v.Bool)
		case KindString:
			fmt.Fprintf(&b, "s:%d:%s|", len(v.Str), v.Str)
		case KindTime:
			fmt.Fprintf(&b, "t:%d|", v.Time.UnixNano())
		}
	}
	return b.String(), true
}

func collisions(left, right *Dataset) map[string]bool {
	out := make(map[string]bool)
	for _, lc := range left.Columns {
		if right.HasColumn(lc.Name) {
			out[lc.Name] = true
		}
	}
	return out
}
