// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package netbuild implements the Species Network Builder (C2): computing
// a per-species, per-tissue co-expression matrix and its density
// threshold from an expression matrix.
package netbuild

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kortschak/orthoclique/internal/config"
	"github.com/kortschak/orthoclique/internal/failure"
	"github.com/kortschak/orthoclique/internal/model"
)

// Network is a SpeciesNetwork: a symmetric, zero-diagonal co-expression
// matrix over a gene universe, plus its density threshold.
type Network struct {
	Species model.Species
	Tissue  model.Tissue

	Genes     []model.GeneID
	GeneIndex map[model.GeneID]int

	N   *mat.Dense
	Tau float64

	// RawCorr holds the signed (unfolded) correlation matrix, populated
	// only when Sign is config.Signed. It is consulted solely to derive
	// the sign of a conserved edge's effect size (spec.md §8 invariant
	// 5, "sign discipline"); N itself is magnitude-only regardless of
	// Sign, since both MR and CLR normalisation route through a rank or
	// a squared term.
	RawCorr *mat.SymDense

	Method config.CorrelationMethod
	Sign   config.CorrelationSign
	Norm   config.Normalization
}

// Neighbours returns the genes adjacent to gene at or above the
// network's threshold, i.e. its co-expression neighbourhood.
func (nw *Network) Neighbours(gene model.GeneID) map[model.GeneID]bool {
	i, ok := nw.GeneIndex[gene]
	if !ok {
		return nil
	}
	out := make(map[model.GeneID]bool)
	for j, g := range nw.Genes {
		if j == i {
			continue
		}
		if nw.N.At(i, j) >= nw.Tau {
			out[g] = true
		}
	}
	return out
}

// Build computes the SpeciesNetwork for sm, restricted to genes that
// belong to some orthogroup shared with some other species in
// crossSpeciesGenes (the universe of genes participating in any
// cross-species HOG), per spec.md §4.2's "Restriction of the gene
// universe".
func Build(sm *model.SpeciesMatrix, crossSpeciesGenes map[model.GeneID]bool, cfg *config.Config) (*Network, error) {
	genes := make([]model.GeneID, 0, len(sm.Genes))
	for _, g := range sm.Genes {
		if crossSpeciesGenes[g] {
			genes = append(genes, g)
		}
	}
	if len(genes) == 0 {
		return nil, failure.New(failure.InsufficientSamples, "netbuild.Build",
			fmt.Errorf("species %s tissue %s: no genes shared with any other species", sm.Species, sm.Tissue))
	}

	_, sampleCount := sm.Data.Dims()
	if sampleCount < cfg.MinSamples {
		return nil, failure.New(failure.InsufficientSamples, "netbuild.Build",
			fmt.Errorf("species %s tissue %s: %d samples < minimum %d", sm.Species, sm.Tissue, sampleCount, cfg.MinSamples))
	}

	restricted := mat.NewDense(len(genes), sampleCount, nil)
	for i, g := range genes {
		row, _ := sm.Row(g)
		restricted.SetRow(i, row)
	}

	c, err := correlationMatrix(restricted, cfg.CorrelationMethod)
	if err != nil {
		return nil, err
	}

	sign := cfg.CorrelationSign
	if sign == config.Both {
		// The "both" diagnostic pipeline is handled by BuildBoth;
		// Build alone always produces the unsigned variant as the
		// conservative default when called directly with sign=Both.
		sign = config.Unsigned
	}
	var rawCorr *mat.SymDense
	if sign == config.Signed {
		rawCorr = c
	}
	c = foldSign(c, sign)

	n := normalize(c, cfg.Normalization)
	zeroDiagonal(n)
	tau := DensityThreshold(n, cfg.DensityThreshold)

	geneIndex := make(map[model.GeneID]int, len(genes))
	for i, g := range genes {
		geneIndex[g] = i
	}

	return &Network{
		Species:   sm.Species,
		Tissue:    sm.Tissue,
		Genes:     genes,
		GeneIndex: geneIndex,
		N:         n,
		Tau:       tau,
		RawCorr:   rawCorr,
		Method:    cfg.CorrelationMethod,
		Sign:      sign,
		Norm:      cfg.Normalization,
	}, nil
}

// BuildBoth returns both the signed and unsigned SpeciesNetwork variants
// for sm, for use when config.CorrelationSign is config.Both (spec.md
// §4.2 step 2's "diagnostic polarity pipeline").
func BuildBoth(sm *model.SpeciesMatrix, crossSpeciesGenes map[model.GeneID]bool, cfg *config.Config) (signed, unsigned *Network, err error) {
	signedCfg := *cfg
	signedCfg.CorrelationSign = config.Signed
	signed, err = Build(sm, crossSpeciesGenes, &signedCfg)
	if err != nil {
		return nil, nil, err
	}
	unsignedCfg := *cfg
	unsignedCfg.CorrelationSign = config.Unsigned
	unsigned, err = Build(sm, crossSpeciesGenes, &unsignedCfg)
	if err != nil {
		return nil, nil, err
	}
	return signed, unsigned, nil
}

// CrossSpeciesGenes returns the set of genes, across all species in
// tables, that belong to a HOG with at least one member in a different
// species — the gene universe any SpeciesNetwork must be restricted to.
func CrossSpeciesGenes(table *model.OrthoGroupTable) map[model.GeneID]bool {
	out := make(map[model.GeneID]bool)
	for _, g := range table.Groups {
		if len(g.Members) < 2 {
			continue
		}
		for _, genes := range g.Members {
			for _, gene := range genes {
				out[gene] = true
			}
		}
	}
	return out
}
