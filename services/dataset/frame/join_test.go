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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinFixtures(t *testing.T) (*Dataset, *Dataset) {
	t.Helper()
	left, err := New("vendas.csv",
		Column{Name: "produto", Type: KindString, Values: []Value{
			String("caneta"), String("caderno"), String("lapis"),
		}},
		Column{Name: "quantidade", Type: KindInt, Values: []Value{
			Int(10), Int(4), Int(7),
		}},
	)
	require.NoError(t, err)

	right, err := New("categorias.csv",
		Column{Name: "produto", Type: KindString, Values: []Value{
			String("caneta"), String("borracha"),
		}},
		Column{Name: "categoria", Type: KindString, Values: []Value{
			String("escrita"), String("correção"),
		}},
	)
	require.NoError(t, err)
	return left, right
}

func TestJoin_Inner(t *testing.T) {
	left, right := joinFixtures(t)
	out, err := Join(left, right, JoinSpec{
		Type: JoinInner, LeftKeys: []string{"produto"}, RightKeys: []string{"produto"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, out.NumRows())
	// The key column collides, so both sides are kept with suffixes.
	assert.True(t, out.HasColumn("produto_A"))
	assert.True(t, out.HasColumn("produto_B"))
	assert.True(t, out.HasColumn("quantidade"))
	assert.True(t, out.HasColumn("categoria"))
}

func TestJoin_LeftKeepsUnmatchedRows(t *testing.T) {
	left, right := joinFixtures(t)
	out, err := Join(left, right, JoinSpec{
		Type: JoinLeft, LeftKeys: []string{"produto"}, RightKeys: []string{"produto"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, out.NumRows())
	cat, _ := out.Column("categoria")
	assert.Equal(t, "escrita", cat.Values[0].Str)
	assert.True(t, cat.Values[1].IsNull())
	assert.True(t, cat.Values[2].IsNull())
}

func TestJoin_RightKeepsUnmatchedRows(t *testing.T) {
	left, right := joinFixtures(t)
	out, err := Join(left, right, JoinSpec{
		Type: JoinRight, LeftKeys: []string{"produto"}, RightKeys: []string{"produto"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumRows())
	qty, _ := out.Column("quantidade")
	assert.Equal(t, int64(10), qty.Values[0].Int)
	assert.True(t, qty.Values[1].IsNull())
}

func TestJoin_Outer(t *testing.T) {
	left, right := joinFixtures(t)
	out, err := Join(left, right, JoinSpec{
		Type: JoinOuter, LeftKeys: []string{"produto"}, RightKeys: []string{"produto"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, out.NumRows())
}

func TestJoin_NullKeysNeverMatch(t *testing.T) {
	left, err := New("",
		Column{Name: "k", Type: KindString, Values: []Value{Null(), String("x")}},
	)
	require.NoError(t, err)
	right, err := New("",
		Column{Name: "k", Type: KindString, Values: []Value{Null(), String("x")}},
		Column{Name: "v", Type: KindInt, Values: []Value{Int(1), Int(2)}},
	)
	require.NoError(t, err)

	out, joinErr := Join(left, right, JoinSpec{
		Type: JoinInner, LeftKeys: []string{"k"}, RightKeys: []string{"k"},
	})
	require.NoError(t, joinErr)
	// Only "x" matches; the two null keys do not pair up.
	assert.Equal(t, 1, out.NumRows())
}

func TestJoin_NumericKeysCompareAcrossKinds(t *testing.T) {
	left, err := New("",
		Column{Name: "id", Type: KindInt, Values: []Value{Int(1), Int(2)}},
	)
	require.NoError(t, err)
	right, err := New("",
		Column{Name: "id", Type: KindFloat, Values: []Value{Float(2), Float(3)}},
		Column{Name: "v", Type: KindString, Values: []Value{String("b"), String("c")}},
	)
	require.NoError(t, err)

	out, joinErr := Join(left, right, JoinSpec{
		Type: JoinInner, LeftKeys: []string{"id"}, RightKeys: []string{"id"},
	})
	require.NoError(t, joinErr)
	assert.Equal(t, 1, out.NumRows())
}

func TestJoin_EmptyResultIsRejected(t *testing.T) {
	left, right := joinFixtures(t)
	_, err := Join(left, right, JoinSpec{
		Type: JoinInner, LeftKeys: []string{"quantidade"}, RightKeys: []string{"categoria"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vazio")
}

func TestJoin_Validation(t *testing.T) {
	left, right := joinFixtures(t)

	_, err := Join(left, right, JoinSpec{Type: JoinInner})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ao menos uma coluna chave")

	_, err = Join(left, right, JoinSpec{
		Type: JoinInner, LeftKeys: []string{"produto", "quantidade"}, RightKeys: []string{"produto"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chaves deve ser igual")

	_, err = Join(left, right, JoinSpec{
		Type: "cross", LeftKeys: []string{"produto"}, RightKeys: []string{"produto"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tipo de join inválido")

	_, err = Join(left, right, JoinSpec{
		Type: JoinInner, LeftKeys: []string{"fantasma"}, RightKeys: []string{"produto"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tabela A")
}

func TestJoin_SourceLabel(t *testing.T) {
	left, right := joinFixtures(t)
	out, err := Join(left, right, JoinSpec{
		Type: JoinLeft, LeftKeys: []string{"produto"}, RightKeys: []string{"produto"},
	})
	require.NoError(t, err)
	assert.Equal(t, "vendas.csv + categorias.csv (join left)", out.Source)
}
