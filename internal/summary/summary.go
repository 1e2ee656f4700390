// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package summary implements the Summary/Aggregator (C6): per-pair
// diagnostic counts and the final per-tissue manifest, modelled on the
// teacher's own JSON summary-document convention.
package summary

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/kortschak/orthoclique/internal/clique"
	"github.com/kortschak/orthoclique/internal/conserve"
	"github.com/kortschak/orthoclique/internal/failure"
	"github.com/kortschak/orthoclique/internal/model"
)

// PairStats are the per-pair diagnostic counts of spec.md §4.6.
type PairStats struct {
	Tissue   model.Tissue   `json:"tissue"`
	SpeciesA model.Species  `json:"species_a"`
	SpeciesB model.Species  `json:"species_b"`

	ConservedEdges int `json:"conserved_edges"`
	ConservedGenesA int `json:"conserved_genes_a"`
	ConservedGenesB int `json:"conserved_genes_b"`

	// ReciprocalHOGs is the number of distinct HOGs with at least one
	// conserved edge, i.e. reciprocally conserved orthogroups.
	ReciprocalHOGs int `json:"reciprocal_hogs"`
}

// PairStatsOf computes PairStats from a pair's Comparison rows and the
// conserved edges derived from them.
func PairStatsOf(tissue model.Tissue, a, b model.Species, rows []conserve.Row, edges []clique.ConservedEdge) PairStats {
	genesA := make(map[model.GeneID]bool)
	genesB := make(map[model.GeneID]bool)
	hogs := make(map[model.HOGID]bool)
	for _, e := range edges {
		genesA[e.GeneA] = true
		genesB[e.GeneB] = true
		hogs[e.HOG] = true
	}
	return PairStats{
		Tissue: tissue, SpeciesA: a, SpeciesB: b,
		ConservedEdges:  len(edges),
		ConservedGenesA: len(genesA),
		ConservedGenesB: len(genesB),
		ReciprocalHOGs:  len(hogs),
	}
}

// ClassCount is the clique count for one attribute class at one size.
type ClassCount struct {
	AttributeClass string `json:"attribute_class"`
	Size           int    `json:"size"`
	Count          int    `json:"count"`
}

// TissueManifest summarises one tissue's run: its pair diagnostics and
// its clique counts by class and size.
type TissueManifest struct {
	Tissue      model.Tissue  `json:"tissue"`
	Pairs       []PairStats   `json:"pairs"`
	Cliques     int           `json:"cliques"`
	ClassCounts []ClassCount  `json:"class_counts"`

	// FailedPairs lists species-pairs that did not complete, with the
	// failure.Kind recorded for each, per spec.md §7's per-run summary.
	FailedPairs []FailedPair `json:"failed_pairs,omitempty"`
}

// FailedPair records one species-pair task that failed during a run.
type FailedPair struct {
	SpeciesA model.Species `json:"species_a"`
	SpeciesB model.Species `json:"species_b"`
	Kind     failure.Kind  `json:"kind"`
	Message  string        `json:"message"`
}

// NewTissueManifest aggregates pairs and cliques into a TissueManifest.
func NewTissueManifest(tissue model.Tissue, pairs []PairStats, cliques []clique.AnnotatedClique, failed []FailedPair) TissueManifest {
	counts := make(map[[2]interface{}]int)
	for _, c := range cliques {
		key := [2]interface{}{c.AttributeClass, c.Size}
		counts[key]++
	}
	var classCounts []ClassCount
	for k, n := range counts {
		classCounts = append(classCounts, ClassCount{
			AttributeClass: k[0].(string),
			Size:           k[1].(int),
			Count:          n,
		})
	}
	sort.Slice(classCounts, func(i, j int) bool {
		if classCounts[i].AttributeClass != classCounts[j].AttributeClass {
			return classCounts[i].AttributeClass < classCounts[j].AttributeClass
		}
		return classCounts[i].Size < classCounts[j].Size
	})

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].SpeciesA != pairs[j].SpeciesA {
			return pairs[i].SpeciesA < pairs[j].SpeciesA
		}
		return pairs[i].SpeciesB < pairs[j].SpeciesB
	})

	return TissueManifest{
		Tissue:      tissue,
		Pairs:       pairs,
		Cliques:     len(cliques),
		ClassCounts: classCounts,
		FailedPairs: failed,
	}
}

// RunReport is the top-level per-run summary document, written once at
// the end of a run, analogous to the teacher's own SummaryDoc.
type RunReport struct {
	Tissues []TissueManifest `json:"tissues"`
}

// Succeeded reports whether the run as a whole should exit zero: every
// tissue must have produced at least one successful pair and completed
// clique enumeration, per spec.md §7's "User-visible behaviour".
func (r *RunReport) Succeeded() bool {
	for _, t := range r.Tissues {
		if len(t.Pairs) == 0 {
			return false
		}
	}
	return true
}

// WriteJSON writes the report to w as indented JSON.
func (r *RunReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	return enc.Encode(r)
}
