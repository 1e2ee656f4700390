// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netbuild

import "sort"

// rankDescending returns the tie-averaged rank of each element of v,
// ranked descending from strongest (the largest value gets rank 1). Tied
// values receive the average of the ranks they jointly occupy, matching
// spec.md §4.2 step 3's Mutual Rank definition.
//
// This is used both for MR's per-row ranking of the correlation matrix
// and, as an equivalent of ascending rank under Pearson correlation's
// invariance to the affine transform r ↦ n+1-r, for the Spearman
// correlation rank transform. gonum does not provide a tie-averaging
// ranker with this ordering convention, so it is written directly, in
// the teacher's small-numeric-helper style (see DESIGN.md).
func rankDescending(v []float64) []float64 {
	n := len(v)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] > v[idx[b]] })

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i + 1
		for j < n && v[idx[j]] == v[idx[i]] {
			j++
		}
		// Elements idx[i:j] are tied; their rank is the average of
		// the 1-based positions i+1 .. j.
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}
