// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"reflect"
	"sort"
	"testing"
)

func newTable() *OrthoGroupTable {
	t := NewOrthoGroupTable()
	t.Groups["H1"] = &OrthoGroup{
		ID: "H1",
		Members: map[Species][]GeneID{
			"A": {"a1", "a2"},
			"B": {"b1"},
		},
	}
	t.GeneHOG["a1"] = "H1"
	t.GeneHOG["a2"] = "H1"
	t.GeneHOG["b1"] = "H1"
	return t
}

func TestBuildOrthoPairsCartesianAndCanonical(t *testing.T) {
	table := newTable()

	pairs := BuildOrthoPairs(table, "B", "A")
	if len(pairs) != 2 {
		t.Fatalf("len(pairs) = %d, want 2", len(pairs))
	}
	for _, p := range pairs {
		if p.HOG != "H1" {
			t.Errorf("pair %+v has wrong HOG", p)
		}
		// Canonicalisation: species "A" sorts before "B", so GeneA must
		// always be the species-A gene regardless of call order.
		if p.GeneA != "a1" && p.GeneA != "a2" {
			t.Errorf("pair %+v: GeneA should be an A gene", p)
		}
		if p.GeneB != "b1" {
			t.Errorf("pair %+v: GeneB should be b1", p)
		}
	}
}

func TestBuildOrthoPairsSwapInvariance(t *testing.T) {
	table := newTable()
	ab := BuildOrthoPairs(table, "A", "B")
	ba := BuildOrthoPairs(table, "B", "A")

	sortRows := func(rows []OrthoPairRow) {
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].GeneA != rows[j].GeneA {
				return rows[i].GeneA < rows[j].GeneA
			}
			return rows[i].GeneB < rows[j].GeneB
		})
	}
	sortRows(ab)
	sortRows(ba)
	if !reflect.DeepEqual(ab, ba) {
		t.Errorf("BuildOrthoPairs(A,B) = %+v, BuildOrthoPairs(B,A) = %+v, want equal (pair-swap invariance)", ab, ba)
	}
}

func TestBuildOrthoPairsExcludesSelfPairs(t *testing.T) {
	table := NewOrthoGroupTable()
	table.Groups["H2"] = &OrthoGroup{
		ID:      "H2",
		Members: map[Species][]GeneID{"A": {"shared"}, "B": {"shared"}},
	}
	pairs := BuildOrthoPairs(table, "A", "B")
	if len(pairs) != 0 {
		t.Errorf("len(pairs) = %d, want 0 (self-pair excluded)", len(pairs))
	}
}

func TestFilterBySize(t *testing.T) {
	table := NewOrthoGroupTable()
	table.Groups["small"] = &OrthoGroup{ID: "small", Members: map[Species][]GeneID{"A": {"a1"}}}
	table.Groups["big"] = &OrthoGroup{ID: "big", Members: map[Species][]GeneID{"A": {"a1", "a2", "a3"}}}
	table.GeneHOG["a1"] = "small"

	table.FilterBySize(2, 0)

	if _, ok := table.Groups["small"]; ok {
		t.Error("HOG below min size was not filtered")
	}
	if _, ok := table.Groups["big"]; !ok {
		t.Error("HOG within size bounds was incorrectly filtered")
	}
	if _, ok := table.GeneHOG["a1"]; ok {
		t.Error("gene index entry for a filtered HOG was not removed")
	}
}

func TestOrthoGroupGenesSorted(t *testing.T) {
	g := &OrthoGroup{Members: map[Species][]GeneID{"A": {"z", "a", "m"}}}
	got := g.Genes("A")
	want := []GeneID{"a", "m", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Genes(A) = %v, want %v", got, want)
	}
}
