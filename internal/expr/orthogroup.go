// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package expr

import (
	"fmt"
	"io"

	"github.com/kortschak/orthoclique/internal/failure"
	"github.com/kortschak/orthoclique/internal/model"
)

// LoadOrthoGroups parses the orthogroup membership table at path,
// restricted to species (nil means "every species present"), and returns
// the resulting OrthoGroupTable. Unreferenced species rows are silently
// dropped, per spec.md §4.1.
func LoadOrthoGroups(path string, species map[model.Species]bool) (*model.OrthoGroupTable, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.LoadOrthoGroups", err)
	}
	defer r.Close()
	return loadOrthoGroups(r, species)
}

func loadOrthoGroups(r io.Reader, species map[model.Species]bool) (*model.OrthoGroupTable, error) {
	c := newTabReader(r)
	header, err := c.Read()
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.LoadOrthoGroups", fmt.Errorf("reading header: %w", err))
	}
	idx, err := columnIndex(header, orthogroupColumns)
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.LoadOrthoGroups", err)
	}

	table := model.NewOrthoGroupTable()
	for {
		rec, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, failure.New(failure.InputMalformed, "expr.LoadOrthoGroups", err)
		}
		sp := model.Species(rec[idx["species"]])
		if species != nil && !species[sp] {
			continue
		}
		hog := model.HOGID(rec[idx["ortho_group"]])
		gene := model.GeneID(rec[idx["gene_id"]])

		g, ok := table.Groups[hog]
		if !ok {
			g = &model.OrthoGroup{ID: hog, Members: make(map[model.Species][]model.GeneID)}
			table.Groups[hog] = g
		}
		g.Members[sp] = append(g.Members[sp], gene)

		if existing, ok := table.GeneHOG[gene]; ok && existing != hog {
			return nil, failure.New(failure.InputMalformed, "expr.LoadOrthoGroups",
				fmt.Errorf("gene %s assigned to both HOG %s and HOG %s", gene, existing, hog))
		}
		table.GeneHOG[gene] = hog
	}
	return table, nil
}

// SpeciesIn returns the set of species present in m, for use as the
// "species present in data" side of config.Validate.
func SpeciesIn(m map[model.Species]*model.SpeciesMatrix) map[model.Species]bool {
	out := make(map[model.Species]bool, len(m))
	for sp := range m {
		out[sp] = true
	}
	return out
}

// SpeciesInOrthoGroups returns the set of species with at least one HOG
// member, for use as the "species present in data" side of
// config.Validate.
func SpeciesInOrthoGroups(t *model.OrthoGroupTable) map[model.Species]bool {
	out := make(map[model.Species]bool)
	for _, g := range t.Groups {
		for sp, genes := range g.Members {
			if len(genes) > 0 {
				out[sp] = true
			}
		}
	}
	return out
}
