// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netbuild

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kortschak/orthoclique/internal/config"
)

// normalize applies the configured normalisation to c, per spec.md §4.2
// step 3. It does not zero the diagonal; Build does that afterwards with
// zeroDiagonal (step 4).
func normalize(c *mat.SymDense, method config.Normalization) *mat.Dense {
	switch method {
	case config.CLR:
		return normalizeCLR(c)
	default: // MR
		return normalizeMR(c)
	}
}

// normalizeMR computes N = sqrt(R · Rᵀ) where R is the row-wise
// tie-averaged descending rank matrix of c. The matrix product routes
// through gonum's BLAS-backed mat.Dense.Mul, per spec.md §4.2's
// "BLAS-equivalent primitive" numerics requirement.
func normalizeMR(c *mat.SymDense) *mat.Dense {
	n, _ := c.Dims()
	r := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = c.At(i, j)
		}
		ranks := rankDescending(row)
		r.SetRow(i, ranks)
	}

	var prod mat.Dense
	prod.Mul(r, r.T())

	out := mat.NewDense(n, n, nil)
	elementwiseSqrt(out, &prod)
	return out
}

// normalizeCLR column-standardises c to z-scores, clamps negative
// entries to zero, then computes N = sqrt(Z·Zᵀ + Zᵀ·Z).
func normalizeCLR(c *mat.SymDense) *mat.Dense {
	n, _ := c.Dims()
	z := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = c.At(i, j)
		}
		mean, std := meanStd(col)
		for i := 0; i < n; i++ {
			v := 0.0
			if std != 0 {
				v = (col[i] - mean) / std
			}
			if v < 0 {
				v = 0
			}
			z.Set(i, j, v)
		}
	}

	var a, b mat.Dense
	a.Mul(z, z.T())
	b.Mul(z.T(), z)

	sum := mat.NewDense(n, n, nil)
	sum.Add(&a, &b)

	out := mat.NewDense(n, n, nil)
	elementwiseSqrt(out, sum)
	return out
}

func elementwiseSqrt(dst, src *mat.Dense) {
	rows, cols := src.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := src.At(i, j)
			if v < 0 {
				v = 0
			}
			dst.Set(i, j, math.Sqrt(v))
		}
	}
}

func meanStd(v []float64) (mean, std float64) {
	n := float64(len(v))
	if n == 0 {
		return 0, 0
	}
	for _, x := range v {
		mean += x
	}
	mean /= n
	var ss float64
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	if n > 0 {
		std = math.Sqrt(ss / n)
	}
	return mean, std
}

// zeroDiagonal sets N[i,i] = 0 for all i, per spec.md §4.2 step 4.
func zeroDiagonal(n *mat.Dense) {
	rows, _ := n.Dims()
	for i := 0; i < rows; i++ {
		n.Set(i, i, 0)
	}
}
