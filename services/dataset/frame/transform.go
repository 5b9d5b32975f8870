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
	"sort"
	"strings"
)

// Op is one transform operation.
//
// An Op is a pure function over its input: it never mutates the
// dataset it is given and returns a newly owned result. A failed Op
// returns an error and no dataset; callers must not publish anything
// in that case.
type Op interface {
	// Name identifies the operation for logs and metrics.
	Name() string

	apply(d *Dataset) (*Dataset, string, error)
}

// Result reports a successful transform.
type Result struct {
	// Message is the operation-specific feedback, with the delta
	// summary appended.
	Message string

	// Delta is the shape change from input to output.
	Delta Delta
}

// Apply runs one operation against a dataset.
//
// Description:
//
//	The input is treated as read-only. On success the result message
//	carries the operation feedback plus the delta summary (columns
//	added/removed, row delta).
//
// Outputs:
//
//	*Dataset - The newly owned result. Nil on error.
//	Result - Message and delta. Zero on error.
//	error - Non-nil when the operation's edge-case policy rejects the
//	request; the input dataset is unaffected.
func Apply(d *Dataset, op Op) (*Dataset, Result, error) {
	if d == nil {
		return nil, Result{}, fmt.Errorf("dataset must not be nil")
	}
	out, msg, err := op.apply(d)
	if err != nil {
		return nil, Result{}, err
	}
	delta := deltaBetween(d, out)
	if extra := delta.Describe(); extra != "" {
		msg = msg + " " + extra
	}
	return out, Result{Message: msg, Delta: delta}, nil
}

// -----------------------------------------------------------------------------
// Rename
// -----------------------------------------------------------------------------

// Rename renames one column. The source column must exist.
type Rename struct {
	Column  string
	NewName string
}

// Name implements Op.
func (Rename) Name() string { return "rename" }

func (op Rename) apply(d *Dataset) (*Dataset, string, error) {
	if !d.HasColumn(op.Column) {
		return nil, "", fmt.Errorf("coluna '%s' não encontrada", op.Column)
	}
	if op.NewName == "" {
		return nil, "", fmt.Errorf("novo nome da coluna não pode ser vazio")
	}
	if op.NewName != op.Column && d.HasColumn(op.NewName) {
		return nil, "", fmt.Errorf("coluna '%s' já existe", op.NewName)
	}
	out := d.Clone()
	for i := range out.Columns {
		if out.Columns[i].Name == op.Column {
			out.Columns[i].Name = op.NewName
		}
	}
	return out, fmt.Sprintf("Coluna '%s' renomeada para '%s'.", op.Column, op.NewName), nil
}

// -----------------------------------------------------------------------------
// Drop columns
// -----------------------------------------------------------------------------

// DropColumns removes the named columns. Names that do not exist are
// silently ignored; only columns actually dropped are reported. An
// empty effective set fails closed: nothing is published.
type DropColumns struct {
	Columns []string
}

// Name implements Op.
func (DropColumns) Name() string { return "drop_columns" }

func (op DropColumns) apply(d *Dataset) (*Dataset, string, error) {
	drop := make(map[string]struct{})
	var dropped []string
	for _, name := range op.Columns {
		if _, already := drop[name]; already {
			continue
		}
		if d.HasColumn(name) {
			drop[name] = struct{}{}
			dropped = append(dropped, name)
		}
	}
	if len(dropped) == 0 {
		return nil, "", fmt.Errorf("nenhuma coluna válida selecionada para remoção")
	}
	if len(dropped) == d.NumCols() {
		return nil, "", fmt.Errorf("a remoção deixaria o conjunto de dados sem colunas")
	}
	kept := make([]Column, 0, d.NumCols()-len(dropped))
	for _, c := range d.Columns {
		if _, gone := drop[c.Name]; !gone {
			kept = append(kept, c.clone())
		}
	}
	out := &Dataset{Columns: kept, Source: d.Source}
	return out, fmt.Sprintf("Coluna(s) removida(s): %s.", strings.Join(dropped, ", ")), nil
}

// -----------------------------------------------------------------------------
// Type change
// -----------------------------------------------------------------------------

// ChangeType retypes one column. The result column always has the
// requested type; cells that cannot convert become missing values.
type ChangeType struct {
	Column  string
	NewType Kind
}

// Name implements Op.
func (ChangeType) Name() string { return "change_type" }

func (op ChangeType) apply(d *Dataset) (*Dataset, string, error) {
	col, ok := d.Column(op.Column)
	if !ok {
		return nil, "", fmt.Errorf("coluna '%s' não encontrada", op.Column)
	}
	if op.NewType == KindNull {
		return nil, "", fmt.Errorf("tipo de destino inválido")
	}
	oldType := col.Type
	out := d.Clone()
	for i := range out.Columns {
		if out.Columns[i].Name != op.Column {
			continue
		}
		out.Columns[i].Type = op.NewType
		for j, v := range out.Columns[i].Values {
			out.Columns[i].Values[j] = Convert(v, op.NewType)
		}
	}
	msg := fmt.Sprintf("Tipo de '%s' alterado: %s -> %s.", op.Column, oldType, op.NewType)
	return out, msg, nil
}

// -----------------------------------------------------------------------------
// Derived sum column
// -----------------------------------------------------------------------------

// DerivedSum appends a new column holding A+B. Both inputs must exist
// and be numeric. A name collision is resolved with a deterministic
// "_soma" suffix, never a silent overwrite.
type DerivedSum struct {
	A       string
	B       string
	NewName string
}

// Name implements Op.
func (DerivedSum) Name() string { return "derived_sum" }

func (op DerivedSum) apply(d *Dataset) (*Dataset, string, error) {
	colA, okA := d.Column(op.A)
	colB, okB := d.Column(op.B)
	if !okA || !okB || !colA.Type.IsNumeric() || !colB.Type.IsNumeric() {
		return nil, "", fmt.Errorf("colunas A e B devem existir e ser numéricas")
	}
	if op.NewName == "" {
		return nil, "", fmt.Errorf("nome da nova coluna não pode ser vazio")
	}

	name := op.NewName
	for d.HasColumn(name) {
		name += "_soma"
	}

	// Int+Int stays Int; any Float operand promotes the result.
	resultType := KindInt
	if colA.Type == KindFloat || colB.Type == KindFloat {
		resultType = KindFloat
	}

	vals := make([]Value, d.NumRows())
	for i := range vals {
		a, b := colA.Values[i], colB.Values[i]
		if a.IsNull() || b.IsNull() {
			vals[i] = Null()
			continue
		}
		if resultType == KindInt {
			vals[i] = Int(a.Int + b.Int)
		} else {
			vals[i] = Float(numericAsFloat(a) + numericAsFloat(b))
		}
	}

	out := d.Clone()
	out.Columns = append(out.Columns, Column{Name: name, Type: resultType, Values: vals})
	return out, fmt.Sprintf("Nova coluna '%s' (%s+%s).", name, op.A, op.B), nil
}

func numericAsFloat(v Value) float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

// -----------------------------------------------------------------------------
// Missing values
// -----------------------------------------------------------------------------

// FillMethod selects the missing-value strategy.
type FillMethod string

const (
	// FillDropRows removes rows where the target column is missing.
	FillDropRows FillMethod = "dropna_col"

	// FillMean imputes the arithmetic mean (numeric columns only).
	FillMean FillMethod = "mean"

	// FillMedian imputes the median (numeric columns only).
	FillMedian FillMethod = "median"

	// FillMode imputes the most frequent value.
	FillMode FillMethod = "mode"

	// FillConstant imputes a user constant coerced to the column type.
	FillConstant FillMethod = "constant"
)

// FillMissing handles missing values in one column.
type FillMissing struct {
	Column   string
	Method   FillMethod
	Constant string
}

// Name implements Op.
func (FillMissing) Name() string { return "fill_missing" }

func (op FillMissing) apply(d *Dataset) (*Dataset, string, error) {
	col, ok := d.Column(op.Column)
	if !ok {
		return nil, "", fmt.Errorf("coluna '%s' não encontrada", op.Column)
	}

	switch op.Method {
	case FillDropRows:
		var keep []int
		for i, v := range col.Values {
			if !v.IsNull() {
				keep = append(keep, i)
			}
		}
		out := d.selectRows(keep)
		return out, fmt.Sprintf("Linhas com NaN em '%s' removidas.", op.Column), nil

	case FillMean, FillMedian:
		if !col.Type.IsNumeric() {
			return nil, "", fmt.Errorf("método '%s' requer coluna numérica; '%s' é %s",
				op.Method, op.Column, col.Type)
		}
		fill, label := centralFill(col, op.Method)
		if fill.IsNull() {
			return nil, "", fmt.Errorf("coluna '%s' não possui valores para calcular a %s",
				op.Column, label)
		}
		out := fillColumn(d, op.Column, fill)
		return out, fmt.Sprintf("NaNs em '%s' preenchidos com %s.", op.Column, label), nil

	case FillMode:
		fill := modeOf(col.Values)
		if fill.IsNull() {
			return nil, "", fmt.Errorf("coluna '%s' não possui valores para calcular a moda", op.Column)
		}
		out := fillColumn(d, op.Column, fill)
		return out, fmt.Sprintf("NaNs em '%s' preenchidos com moda.", op.Column), nil

	case FillConstant:
		if op.Constant == "" {
			return nil, "", fmt.Errorf("valor constante não fornecido")
		}
		fill, err := CoerceConstant(op.Constant, effectiveFillType(col))
		if err != nil {
			return nil, "", fmt.Errorf("valor '%s' incompatível com '%s': %w", op.Constant, op.Column, err)
		}
		out := fillColumn(d, op.Column, fill)
		return out, fmt.Sprintf("NaNs em '%s' preenchidos com '%s'.", op.Column, op.Constant), nil

	default:
		return nil, "", fmt.Errorf("método '%s' inválido", op.Method)
	}
}

func allNull(vals []Value) bool {
	for _, v := range vals {
		if !v.IsNull() {
			return false
		}
	}
	return true
}

// effectiveFillType is the coercion target for constant fill. A column
// that is entirely missing has no usable base type; the constant is
// kept as text, matching the original fill behavior.
func effectiveFillType(col Column) Kind {
	for _, v := range col.Values {
		if !v.IsNull() {
			return col.Type
		}
	}
	return KindString
}

// centralFill computes the mean or median of a numeric column.
func centralFill(col Column, method FillMethod) (Value, string) {
	var xs []float64
	for _, v := range col.Values {
		if !v.IsNull() {
			xs = append(xs, numericAsFloat(v))
		}
	}
	if len(xs) == 0 {
		if method == FillMean {
			return Null(), "média"
		}
		return Null(), "mediana"
	}

	var f float64
	var label string
	if method == FillMean {
		label = "média"
		for _, x := range xs {
			f += x
		}
		f /= float64(len(xs))
	} else {
		label = "mediana"
		sort.Float64s(xs)
		mid := len(xs) / 2
		if len(xs)%2 == 1 {
			f = xs[mid]
		} else {
			f = (xs[mid-1] + xs[mid]) / 2
		}
	}

	// Integer columns keep their type when the fill value is exact.
	if col.Type == KindInt {
		if v := toInt(Float(f)); !v.IsNull() {
			return v, label
		}
	}
	return Float(f), label
}

// modeOf returns the most frequent non-null value; ties resolve to the
// value seen first.
func modeOf(vals []Value) Value {
	type bucket struct {
		value Value
		count int
		first int
	}
	counts := make(map[string]*bucket)
	for i, v := range vals {
		if v.IsNull() {
			continue
		}
		key := fmt.Sprintf("%d|%v|%v|%v|%v|%v", v.Kind, v.Bool, v.Int, v.Float, v.Str, v.Time.UnixNano())
		if b, ok := counts[key]; ok {
			b.count++
		} else {
			counts[key] = &bucket{value: v, count: 1, first: i}
		}
	}
	best := Null()
	bestCount, bestFirst := 0, 0
	for _, b := range counts {
		if b.count > bestCount || (b.count == bestCount && b.first < bestFirst) {
			best, bestCount, bestFirst = b.value, b.count, b.first
		}
	}
	return best
}

// fillColumn replaces missing cells of one column with fill. When the
// fill value promotes an integer column to float, existing cells are
// converted too.
func fillColumn(d *Dataset, name string, fill Value) *Dataset {
	out := d.Clone()
	for i := range out.Columns {
		c := &out.Columns[i]
		if c.Name != name {
			continue
		}
		if c.Type == KindInt && fill.Kind == KindFloat {
			c.Type = KindFloat
			for j, v := range c.Values {
				c.Values[j] = Convert(v, KindFloat)
			}
		}
		if fill.Kind != c.Type && allNull(c.Values) {
			// An entirely missing column has no usable base type; it
			// takes the type of the fill value.
			c.Type = fill.Kind
		}
		for j, v := range c.Values {
			if v.IsNull() {
				c.Values[j] = fill
			}
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Drop all rows with any missing value
// -----------------------------------------------------------------------------

// DropMissingRows removes every row containing a missing value in any
// column.
type DropMissingRows struct{}

// Name implements Op.
func (DropMissingRows) Name() string { return "drop_missing_rows" }

func (DropMissingRows) apply(d *Dataset) (*Dataset, string, error) {
	var keep []int
	for i := 0; i < d.NumRows(); i++ {
		complete := true
		for _, c := range d.Columns {
			if c.Values[i].IsNull() {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}
	out := d.selectRows(keep)
	return out, "Linhas com qualquer NaN removidas.", nil
}
