// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conserve

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// benjaminiHochberg returns the BH q-values of p in a new slice, in the
// original order of p; p itself is not modified. gonum has no FDR function (see DESIGN.md), so this
// is the standard rank-sort-and-propagate-minimum pass over plain
// []float64 with stdlib sort.Slice.
func benjaminiHochberg(p []float64) []float64 {
	n := len(p)
	if n == 0 {
		return p
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })

	q := make([]float64, n)
	for rank, i := range idx {
		q[i] = p[i] * float64(n) / float64(rank+1)
	}
	// Enforce monotonicity from the largest p-value down, so that
	// q-values are non-decreasing as p-values increase (the standard
	// BH step-up adjustment), and clamp to 1.
	minSoFar := 1.0
	for k := n - 1; k >= 0; k-- {
		i := idx[k]
		if q[i] > minSoFar {
			q[i] = minSoFar
		} else {
			minSoFar = q[i]
		}
		if q[i] > 1 {
			q[i] = 1
		}
	}
	return q
}

// bonferroni returns the Bonferroni-corrected values of p, min(1, p*n), in
// a new slice; p itself is not modified.
func bonferroni(p []float64) []float64 {
	q := make([]float64, len(p))
	copy(q, p)
	floats.Scale(float64(len(p)), q)
	for i, v := range q {
		if v > 1 {
			q[i] = 1
		}
	}
	return q
}
