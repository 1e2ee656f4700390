// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netbuild

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/kortschak/orthoclique/internal/config"
	"github.com/kortschak/orthoclique/internal/failure"
)

// correlationMatrix computes the symmetric n×n sample-correlation matrix
// of rows (genes) over samples, using method. The diagonal is exactly 1.
func correlationMatrix(data *mat.Dense, method config.CorrelationMethod) (*mat.SymDense, error) {
	rows, _ := data.Dims()
	rowVecs := make([][]float64, rows)
	for i := range rowVecs {
		rowVecs[i] = append([]float64(nil), data.RawRowView(i)...)
	}

	switch method {
	case config.Spearman:
		for i := range rowVecs {
			rowVecs[i] = rankDescending(rowVecs[i])
		}
	case config.Kendall, config.Pearson:
		// Pearson uses raw values; Kendall computes its own
		// concordance directly from raw values.
	}

	c := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		c.SetSym(i, i, 1)
		for j := i + 1; j < rows; j++ {
			var v float64
			switch method {
			case config.Kendall:
				v = kendallTau(rowVecs[i], rowVecs[j])
			default: // Pearson, Spearman (Pearson over ranks).
				v = stat.Correlation(rowVecs[i], rowVecs[j], nil)
			}
			if math.IsNaN(v) {
				return nil, failure.New(failure.DegenerateExpression, "netbuild.correlationMatrix", nil)
			}
			c.SetSym(i, j, v)
		}
	}
	return c, nil
}

// foldSign replaces c by |c| when sign == config.Unsigned, leaving c
// unchanged for config.Signed. Per spec.md §4.2 step 2 and the Open
// Question resolution in DESIGN.md, the unsigned pipeline takes the
// absolute value before any subsequent ranking or standardisation step.
func foldSign(c *mat.SymDense, sign config.CorrelationSign) *mat.SymDense {
	if sign == config.Signed {
		return c
	}
	n, _ := c.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, math.Abs(c.At(i, j)))
		}
	}
	return out
}
