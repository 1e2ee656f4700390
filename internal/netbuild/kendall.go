// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netbuild

import "math"

// kendallTau returns the Kendall tau-b rank correlation coefficient
// between x and y, which must be of equal length. gonum has no Kendall
// correlation function (see DESIGN.md), so this is the textbook
// O(s²) concordant/discordant pair count, tie-corrected per the standard
// tau-b definition.
func kendallTau(x, y []float64) float64 {
	n := len(x)
	var concordant, discordant, tiesX, tiesY, tiesXY int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := x[i] - x[j]
			dy := y[i] - y[j]
			switch {
			case dx == 0 && dy == 0:
				tiesXY++
			case dx == 0:
				tiesX++
			case dy == 0:
				tiesY++
			case (dx > 0) == (dy > 0):
				concordant++
			default:
				discordant++
			}
		}
	}
	total := concordant + discordant + tiesX + tiesY + tiesXY
	n0 := float64(total)
	n1 := float64(tiesX + tiesXY)
	n2 := float64(tiesY + tiesXY)
	denom := sqrtProduct(n0-n1, n0-n2)
	if denom == 0 {
		return 0
	}
	return float64(concordant-discordant) / denom
}

func sqrtProduct(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return math.Sqrt(a * b)
}
