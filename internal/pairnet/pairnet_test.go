// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pairnet

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/kortschak/orthoclique/internal/model"
	"github.com/kortschak/orthoclique/internal/netbuild"
)

func newNetwork(sp model.Species, genes []model.GeneID, n *mat.Dense, tau float64, raw *mat.SymDense) *netbuild.Network {
	idx := make(map[model.GeneID]int, len(genes))
	for i, g := range genes {
		idx[g] = i
	}
	return &netbuild.Network{
		Species: sp, Genes: genes, GeneIndex: idx, N: n, Tau: tau, RawCorr: raw,
	}
}

func TestAssembleRestrictsToPairUniverse(t *testing.T) {
	genesA := []model.GeneID{"a1", "a2", "a3"}
	n := mat.NewDense(3, 3, []float64{
		0, 0.9, 0.1,
		0.9, 0, 0.2,
		0.1, 0.2, 0,
	})
	netA := newNetwork("human", genesA, n, 0.5, nil)

	genesB := []model.GeneID{"b1", "b2"}
	nb := mat.NewDense(2, 2, []float64{0, 0.3, 0.3, 0})
	netB := newNetwork("mouse", genesB, nb, 0.1, nil)

	pairs := []model.OrthoPairRow{
		{HOG: "H1", GeneA: "a1", GeneB: "b1"},
		{HOG: "H1", GeneA: "a2", GeneB: "b1"},
	}
	pn := Assemble(netA, netB, pairs, 0.5)

	if len(pn.A.Genes) != 2 {
		t.Fatalf("len(A.Genes) = %d, want 2 (a3 excluded, not in any pair)", len(pn.A.Genes))
	}
	if len(pn.B.Genes) != 1 {
		t.Fatalf("len(B.Genes) = %d, want 1 (b2 excluded)", len(pn.B.Genes))
	}
	// Restricted A submatrix must preserve the a1-a2 entry (0.9).
	i1, i2 := pn.A.GeneIndex["a1"], pn.A.GeneIndex["a2"]
	if pn.A.N.At(i1, i2) != 0.9 {
		t.Errorf("restricted A[a1,a2] = %v, want 0.9", pn.A.N.At(i1, i2))
	}
}

func TestRecalibrateReusesThresholdWhenBelowMax(t *testing.T) {
	n := mat.NewDense(2, 2, []float64{0, 0.8, 0.8, 0})
	got := recalibrate(0.5, n, 0.5)
	if got != 0.5 {
		t.Errorf("recalibrate() = %v, want 0.5 (original threshold reused)", got)
	}
}

func TestRecalibrateRecomputesWhenAboveMax(t *testing.T) {
	n := mat.NewDense(2, 2, []float64{0, 0.3, 0.3, 0})
	got := recalibrate(0.9, n, 1.0)
	if got != 0.3 {
		t.Errorf("recalibrate() = %v, want 0.3 (recomputed at density 1.0 over a single pair entry)", got)
	}
}

func TestRestrictCarriesRawCorrOnlyWhenPresent(t *testing.T) {
	genes := []model.GeneID{"a1", "a2"}
	n := mat.NewDense(2, 2, []float64{0, 0.5, 0.5, 0})
	raw := mat.NewSymDense(2, []float64{1, -0.5, -0.5, 1})
	net := newNetwork("human", genes, n, 0.1, raw)

	side := restrict(net, genes)
	if side.RawCorr == nil {
		t.Fatal("RawCorr not propagated by restrict")
	}
	if side.RawCorr.At(0, 1) != -0.5 {
		t.Errorf("RawCorr[0,1] = %v, want -0.5", side.RawCorr.At(0, 1))
	}

	netNoSign := newNetwork("human", genes, n, 0.1, nil)
	sideNoSign := restrict(netNoSign, genes)
	if sideNoSign.RawCorr != nil {
		t.Error("RawCorr populated for a network with no signed correlation data")
	}
}
