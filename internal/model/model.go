// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package model holds the shared entity types of the co-expressolog
// engine: genes, species, tissues, orthology groups, and the ortholog-pair
// universe derived from them. These types are passed by value or as
// read-only pointers between components; no component mutates another's
// published output.
package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// GeneID is an opaque, globally unique gene identifier.
type GeneID string

// Species is a species identifier.
type Species string

// Tissue is a tissue identifier.
type Tissue string

// Attribute is a per-species categorical value, e.g. a life-habit class.
type Attribute string

// HOGID identifies a hierarchical ortholog group.
type HOGID string

// SpeciesMatrix is the typed in-memory expression view for one
// (Species, Tissue): a dense gene × sample matrix plus the index
// dictionaries that label its rows and columns.
type SpeciesMatrix struct {
	Species Species
	Tissue  Tissue

	// Genes and GeneIndex label the rows.
	Genes     []GeneID
	GeneIndex map[GeneID]int

	// Samples labels the columns.
	Samples []string

	// Data holds one row per gene, one column per sample.
	Data *mat.Dense
}

// Row returns the expression vector for gene, and whether it was found.
func (m *SpeciesMatrix) Row(gene GeneID) ([]float64, bool) {
	i, ok := m.GeneIndex[gene]
	if !ok {
		return nil, false
	}
	return m.Data.RawRowView(i), true
}

// OrthoGroup is a hierarchical ortholog group: a set of (Species, GeneID)
// members, many-to-many across species.
type OrthoGroup struct {
	ID      HOGID
	Members map[Species][]GeneID
}

// Genes returns the flattened, sorted set of gene ids belonging to sp in
// this group.
func (g *OrthoGroup) Genes(sp Species) []GeneID {
	genes := append([]GeneID(nil), g.Members[sp]...)
	sort.Slice(genes, func(i, j int) bool { return genes[i] < genes[j] })
	return genes
}

// Size is the total member count across all species, used for the
// min/max-genes-per-HOG filter.
func (g *OrthoGroup) Size() int {
	n := 0
	for _, genes := range g.Members {
		n += len(genes)
	}
	return n
}

// OrthoGroupTable holds every HOG's membership plus the inverse mapping
// from gene to its (unique) HOG.
type OrthoGroupTable struct {
	Groups  map[HOGID]*OrthoGroup
	GeneHOG map[GeneID]HOGID
}

// NewOrthoGroupTable returns an empty table ready for population.
func NewOrthoGroupTable() *OrthoGroupTable {
	return &OrthoGroupTable{
		Groups:  make(map[HOGID]*OrthoGroup),
		GeneHOG: make(map[GeneID]HOGID),
	}
}

// HOGOf returns the HOG that gene belongs to, and whether it was found.
// A gene with no HOG is, per the data model invariant, silently excluded
// from every comparison; callers must check ok.
func (t *OrthoGroupTable) HOGOf(gene GeneID) (HOGID, bool) {
	h, ok := t.GeneHOG[gene]
	return h, ok
}

// OrthoPairRow is one row of the OrthoPair relation: a gene from species A
// paired with a gene from species B via a shared HOG.
type OrthoPairRow struct {
	HOG   HOGID
	GeneA GeneID
	GeneB GeneID
}

// BuildOrthoPairs returns the OrthoPair rows for the unordered species
// pair {a, b}: the per-HOG Cartesian product of members(HOG, a) and
// members(HOG, b), excluding self-pairs, deduplicated, and canonicalised
// so that species are always compared in lexicographic order (GeneA is
// always the gene of whichever of a, b sorts first).
func BuildOrthoPairs(table *OrthoGroupTable, a, b Species) []OrthoPairRow {
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}

	var rows []OrthoPairRow
	seen := make(map[[3]string]bool)
	hogIDs := make([]HOGID, 0, len(table.Groups))
	for id := range table.Groups {
		hogIDs = append(hogIDs, id)
	}
	sort.Slice(hogIDs, func(i, j int) bool { return hogIDs[i] < hogIDs[j] })

	for _, id := range hogIDs {
		g := table.Groups[id]
		losGenes := g.Genes(lo)
		hisGenes := g.Genes(hi)
		for _, gl := range losGenes {
			for _, gh := range hisGenes {
				if gl == gh {
					continue
				}
				key := [3]string{string(id), string(gl), string(gh)}
				if seen[key] {
					continue
				}
				seen[key] = true
				rows = append(rows, OrthoPairRow{HOG: id, GeneA: gl, GeneB: gh})
			}
		}
	}
	return rows
}

// FilterBySize drops HOGs whose total member count across all configured
// species is outside [min, max]. A max of 0 means unbounded. This is
// applied before OrthoPair construction, per SPEC_FULL §4.7.
func (t *OrthoGroupTable) FilterBySize(min, max int) {
	for id, g := range t.Groups {
		n := g.Size()
		if n < min || (max > 0 && n > max) {
			delete(t.Groups, id)
			for _, genes := range g.Members {
				for _, gene := range genes {
					delete(t.GeneHOG, gene)
				}
			}
		}
	}
}
