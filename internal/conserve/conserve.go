// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conserve implements the Conservation Tester (C4): the
// bidirectional hypergeometric neighbourhood-overlap test between two
// species' restricted networks, and the FDR correction of its p-values.
package conserve

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kortschak/orthoclique/internal/config"
	"github.com/kortschak/orthoclique/internal/failure"
	"github.com/kortschak/orthoclique/internal/model"
	"github.com/kortschak/orthoclique/internal/pairnet"
	"github.com/kortschak/orthoclique/internal/schedule"
)

// Row is a Comparison row, per spec.md §4.4: both directions of the
// bidirectional hypergeometric test for one ortholog pair.
type Row struct {
	HOG          model.HOGID
	GeneA, GeneB model.GeneID

	N1, K1, X1 int
	P1, E1     float64
	Sign1      int8

	N2, K2, X2 int
	P2, E2     float64
	Sign2      int8
}

// SignAgree reports whether the two directions' effect signs agree, per
// spec.md §8 invariant 5 ("both non-negative, or both non-positive"). A
// direction with no recorded sign (unsigned-mode networks, where RawCorr
// is not tracked) is treated as agreeing with anything.
func (r *Row) SignAgree() bool {
	if r.Sign1 == 0 || r.Sign2 == 0 {
		return true
	}
	return r.Sign1 == r.Sign2
}

// MaxQ returns max(q1, q2), the statistic the Clique Engine filters on.
func (r *Row) MaxQ() float64 {
	if r.P1 > r.P2 {
		return r.P1
	}
	return r.P2
}

// ComputeComparison emits one Row per entry of pairs, the bidirectional
// hypergeometric test of spec.md §4.4, then applies the post-processing
// of spec.md §4.4's numbered steps: dropping rows with no overlap in
// either direction and FDR-correcting each p-value column independently
// in place. Rows within a pair are independent (spec.md §4.4
// "Concurrency") and are fanned out across workers goroutines via
// internal/schedule.Parallel, which preserves input-row order so reruns
// are byte-identical (spec.md §5, "Ordering guarantees").
func ComputeComparison(pn *pairnet.PairNetworks, pairs []model.OrthoPairRow, method config.FDRMethod, workers int) ([]Row, error) {
	orthoOfA := make(map[model.GeneID][]model.GeneID)
	orthoOfB := make(map[model.GeneID][]model.GeneID)
	for _, p := range pairs {
		orthoOfA[p.GeneA] = append(orthoOfA[p.GeneA], p.GeneB)
		orthoOfB[p.GeneB] = append(orthoOfB[p.GeneB], p.GeneA)
	}

	results, err := schedule.Parallel(len(pairs), workers, func(i int) (interface{}, error) {
		return compareOne(pn, pairs[i], orthoOfA, orthoOfB)
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(results))
	for i, v := range results {
		rows[i] = v.(Row)
	}

	rows = dropNoOverlap(rows)
	applyFDR(rows, method)

	return rows, nil
}

// compareOne computes both directions of the hypergeometric test for a
// single OrthoPair row, per spec.md §4.4.
func compareOne(pn *pairnet.PairNetworks, p model.OrthoPairRow, orthoOfA, orthoOfB map[model.GeneID][]model.GeneID) (Row, error) {
	if _, ok := pn.A.GeneIndex[p.GeneA]; !ok {
		return Row{}, failure.New(failure.OrthologGeneMissing, "conserve.compareOne",
			fmt.Errorf("gene %s (HOG %s) absent from restricted network for %s", p.GeneA, p.HOG, pn.A.Species))
	}
	if _, ok := pn.B.GeneIndex[p.GeneB]; !ok {
		return Row{}, failure.New(failure.OrthologGeneMissing, "conserve.compareOne",
			fmt.Errorf("gene %s (HOG %s) absent from restricted network for %s", p.GeneB, p.HOG, pn.B.Species))
	}

	neigh1 := neighbours(pn.A, p.GeneA)
	neigh2 := neighbours(pn.B, p.GeneB)

	n1 := len(pn.A.Genes)
	n2 := len(pn.B.Genes)

	// ortho_neigh1: species-1 genes whose ortholog lies in g2's
	// co-expression neighbourhood in U2 (species-1 projection of
	// direction 2's neighbourhood), and symmetrically for ortho_neigh2.
	orthoNeigh1 := projectOrthologs(neigh2, orthoOfB)
	orthoNeigh2 := projectOrthologs(neigh1, orthoOfA)

	k1 := len(orthoNeigh1)
	k2 := len(orthoNeigh2)

	m1 := len(neigh1)
	m2 := len(neigh2)

	x1 := setIntersectionSize(neigh1, orthoNeigh1)
	x2 := setIntersectionSize(neigh2, orthoNeigh2)

	p1, e1 := hypergeomTest(x1, m1, k1, n1)
	p2, e2 := hypergeomTest(x2, m2, k2, n2)

	overlap1 := setIntersection(neigh1, orthoNeigh1)
	overlap2 := setIntersection(neigh2, orthoNeigh2)
	sign1 := overlapSign(pn.A, p.GeneA, overlap1)
	sign2 := overlapSign(pn.B, p.GeneB, overlap2)

	return Row{
		HOG: p.HOG, GeneA: p.GeneA, GeneB: p.GeneB,
		N1: n1, K1: k1, X1: x1, P1: p1, E1: e1, Sign1: sign1,
		N2: n2, K2: k2, X2: x2, P2: p2, E2: e2, Sign2: sign2,
	}, nil
}

// neighbours returns the gene ids in side's restricted network adjacent
// to gene at or above the side's recalibrated threshold.
func neighbours(side pairnet.Side, gene model.GeneID) map[model.GeneID]bool {
	out := make(map[model.GeneID]bool)
	i, ok := side.GeneIndex[gene]
	if !ok {
		return out
	}
	for j, g := range side.Genes {
		if j == i {
			continue
		}
		if side.N.At(i, j) >= side.Tau {
			out[g] = true
		}
	}
	return out
}

// projectOrthologs maps a neighbourhood of gene ids on one side back
// through the OrthoPair relation orthoOf, returning the set of ortholog
// gene ids on the opposite side.
func projectOrthologs(neigh map[model.GeneID]bool, orthoOf map[model.GeneID][]model.GeneID) map[model.GeneID]bool {
	out := make(map[model.GeneID]bool)
	for g := range neigh {
		for _, ortholog := range orthoOf[g] {
			out[ortholog] = true
		}
	}
	return out
}

func setIntersectionSize(a, b map[model.GeneID]bool) int {
	return len(setIntersection(a, b))
}

func setIntersection(a, b map[model.GeneID]bool) map[model.GeneID]bool {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	out := make(map[model.GeneID]bool)
	for g := range small {
		if large[g] {
			out[g] = true
		}
	}
	return out
}

// overlapSign returns the sign of the aggregate raw correlation between
// focal and the genes in overlap, on the given side. It is the basis of
// an edge's effect-size sign in signed mode (spec.md §8 invariant 5); it
// returns 0 when the side carries no signed information (unsigned mode).
func overlapSign(side pairnet.Side, focal model.GeneID, overlap map[model.GeneID]bool) int8 {
	if side.RawCorr == nil || len(overlap) == 0 {
		return 0
	}
	i, ok := side.GeneIndex[focal]
	if !ok {
		return 0
	}
	var sum float64
	for g := range overlap {
		j, ok := side.GeneIndex[g]
		if !ok {
			continue
		}
		sum += side.RawCorr.At(i, j)
	}
	switch {
	case sum > 0:
		return 1
	case sum < 0:
		return -1
	default:
		return 0
	}
}

// hypergeomTest implements spec.md §4.4's special case and hypergeometric
// tail test: population n, success states m, draws k, observed overlap x.
// p is P(X >= x) via the gonum convention dist.Survival(x-1), matching
// R's phyper(x-1, m, n-m, k, lower=false).
func hypergeomTest(x, m, k, n int) (p, e float64) {
	if x <= 1 {
		return 1, 1
	}
	dist := distuv.Hypergeometric{
		N: float64(n),
		K: float64(m),
		D: float64(k),
	}
	p = dist.Survival(float64(x) - 1)
	if k == 0 {
		e = 1
	} else {
		e = (float64(x) / float64(k)) / (float64(m) / float64(n))
	}
	return p, e
}

func dropNoOverlap(rows []Row) []Row {
	out := rows[:0]
	for _, r := range rows {
		if r.X1 == 0 || r.X2 == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

func applyFDR(rows []Row, method config.FDRMethod) {
	if len(rows) == 0 {
		return
	}
	p1 := make([]float64, len(rows))
	p2 := make([]float64, len(rows))
	for i, r := range rows {
		p1[i] = r.P1
		p2[i] = r.P2
	}
	var q1, q2 []float64
	switch method {
	case config.Bonferroni:
		q1, q2 = bonferroni(p1), bonferroni(p2)
	default: // BH
		q1, q2 = benjaminiHochberg(p1), benjaminiHochberg(p2)
	}
	for i := range rows {
		rows[i].P1 = q1[i]
		rows[i].P2 = q2[i]
	}
}
