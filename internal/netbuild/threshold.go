// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netbuild

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DensityThreshold returns τ such that the top d fraction of the strictly
// upper-triangular entries of n satisfy N[i,j] ≥ τ, per spec.md §4.2 step
// 5. This is the (1-d) sample quantile of the upper-triangular entries
// under stat.Empirical: x sorted ascending, τ is the lowest entry at or
// above the cumulative weight (1-d)*m, so τ is always an entry of n
// itself rather than an interpolated value.
func DensityThreshold(n *mat.Dense, d float64) float64 {
	rows, _ := n.Dims()
	m := rows * (rows - 1) / 2
	if m == 0 {
		return 0
	}
	upper := make([]float64, 0, m)
	for i := 0; i < rows; i++ {
		for j := i + 1; j < rows; j++ {
			upper = append(upper, n.At(i, j))
		}
	}
	sort.Float64s(upper)
	return stat.Quantile(1-d, stat.Empirical, upper, nil)
}
