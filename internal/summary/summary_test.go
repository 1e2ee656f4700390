// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package summary

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kortschak/orthoclique/internal/clique"
	"github.com/kortschak/orthoclique/internal/failure"
)

func TestPairStatsOf(t *testing.T) {
	edges := []clique.ConservedEdge{
		{HOG: "H1", GeneA: "a1", GeneB: "b1"},
		{HOG: "H1", GeneA: "a2", GeneB: "b1"},
		{HOG: "H2", GeneA: "a3", GeneB: "b2"},
	}
	stats := PairStatsOf("liver", "human", "mouse", nil, edges)
	if stats.ConservedEdges != 3 {
		t.Errorf("ConservedEdges = %d, want 3", stats.ConservedEdges)
	}
	if stats.ConservedGenesA != 3 {
		t.Errorf("ConservedGenesA = %d, want 3", stats.ConservedGenesA)
	}
	if stats.ConservedGenesB != 2 {
		t.Errorf("ConservedGenesB = %d, want 2", stats.ConservedGenesB)
	}
	if stats.ReciprocalHOGs != 2 {
		t.Errorf("ReciprocalHOGs = %d, want 2", stats.ReciprocalHOGs)
	}
}

func TestNewTissueManifestAggregatesAndSorts(t *testing.T) {
	cliques := []clique.AnnotatedClique{
		{AttributeClass: "Mixed", Size: 3},
		{AttributeClass: "Mixed", Size: 3},
		{AttributeClass: "nocturnal", Size: 4},
	}
	pairs := []PairStats{
		{SpeciesA: "mouse", SpeciesB: "human"},
		{SpeciesA: "human", SpeciesB: "mouse"},
	}
	manifest := NewTissueManifest("liver", pairs, cliques, nil)
	if manifest.Cliques != 3 {
		t.Errorf("Cliques = %d, want 3", manifest.Cliques)
	}
	if len(manifest.ClassCounts) != 2 {
		t.Fatalf("len(ClassCounts) = %d, want 2", len(manifest.ClassCounts))
	}
	// Sorted by AttributeClass: "Mixed" < "nocturnal".
	if manifest.ClassCounts[0].AttributeClass != "Mixed" || manifest.ClassCounts[0].Count != 2 {
		t.Errorf("ClassCounts[0] = %+v, want Mixed/2", manifest.ClassCounts[0])
	}
	if manifest.Pairs[0].SpeciesA != "human" {
		t.Errorf("Pairs not sorted: %+v", manifest.Pairs)
	}
}

func TestRunReportSucceeded(t *testing.T) {
	ok := &RunReport{Tissues: []TissueManifest{{Pairs: []PairStats{{}}}}}
	if !ok.Succeeded() {
		t.Error("Succeeded() = false, want true when every tissue has pairs")
	}

	bad := &RunReport{Tissues: []TissueManifest{{Pairs: nil}}}
	if bad.Succeeded() {
		t.Error("Succeeded() = true, want false when a tissue has zero pairs")
	}
}

func TestRunReportWriteJSONIncludesFailedPairs(t *testing.T) {
	report := &RunReport{
		Tissues: []TissueManifest{
			{
				Tissue: "liver",
				FailedPairs: []FailedPair{
					{SpeciesA: "human", SpeciesB: "mouse", Kind: failure.InsufficientSamples, Message: "boom"},
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "failed_pairs") || !strings.Contains(out, "boom") {
		t.Errorf("WriteJSON output missing failed pair details: %s", out)
	}
}
