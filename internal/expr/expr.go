// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package expr implements the Input Loader (C1): parsing of the
// expression and orthogroup tables into typed, tissue- and
// species-filtered in-memory views.
package expr

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/kortschak/orthoclique/internal/failure"
	"github.com/kortschak/orthoclique/internal/model"
)

// expressionColumns are the required columns of the expression table, in
// the order spec.md §6 specifies.
var expressionColumns = []string{"species", "tissue", "gene_id", "sample_id", "expression", "attribute", "ortho_group"}

// orthogroupColumns are the required columns of the orthogroup table.
var orthogroupColumns = []string{"ortho_group", "sub_group", "species", "gene_id", "attribute", "is_core"}

// openMaybeGzip opens path and returns a reader that transparently
// decompresses it if it is gzip data, generalising the teacher's
// always-gzip convention to "gzip if present".
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &gzipCloser{Reader: gr, f: f}, nil
	}
	return &plainCloser{Reader: br, f: f}, nil
}

type gzipCloser struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipCloser) Close() error {
	g.Reader.Close()
	return g.f.Close()
}

type plainCloser struct {
	io.Reader
	f *os.File
}

func (p *plainCloser) Close() error { return p.f.Close() }

func newTabReader(r io.Reader) *csv.Reader {
	c := csv.NewReader(r)
	c.Comma = '\t'
	c.Comment = '#'
	c.ReuseRecord = true
	return c
}

func columnIndex(header, want []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, w := range want {
		if _, ok := idx[w]; !ok {
			return nil, fmt.Errorf("missing required column %q", w)
		}
	}
	return idx, nil
}

// exprRow is one parsed row of the expression table.
type exprRow struct {
	species  model.Species
	tissue   model.Tissue
	gene     model.GeneID
	sample   string
	value    float64
}

// LoadExpression parses the expression table at path, restricted to
// tissue, and returns one SpeciesMatrix per species named in species
// (species == nil means "every species present"). Rows for other tissues
// are skipped. Duplicates on (species, tissue, gene_id, sample_id) are
// rejected as InputMalformed. Non-finite expression values are rejected
// as InputMalformed.
func LoadExpression(path string, tissue model.Tissue, species map[model.Species]bool) (map[model.Species]*model.SpeciesMatrix, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.LoadExpression", err)
	}
	defer r.Close()
	return loadExpression(r, tissue, species)
}

func loadExpression(r io.Reader, tissue model.Tissue, species map[model.Species]bool) (map[model.Species]*model.SpeciesMatrix, error) {
	c := newTabReader(r)
	header, err := c.Read()
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.LoadExpression", fmt.Errorf("reading header: %w", err))
	}
	idx, err := columnIndex(header, expressionColumns)
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.LoadExpression", err)
	}

	// First pass: collect rows for the target tissue, tracking the
	// gene and sample universe per species without allocating the
	// dense matrix yet (Design Notes: size pass, then fill pass).
	seen := make(map[[4]string]bool)
	rows := make(map[model.Species][]exprRow)
	geneSet := make(map[model.Species]map[model.GeneID]bool)
	sampleSet := make(map[model.Species]map[string]bool)
	tissueSeen := make(map[model.Tissue]bool)

	for {
		rec, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, failure.New(failure.InputMalformed, "expr.LoadExpression", err)
		}
		rowTissue := model.Tissue(rec[idx["tissue"]])
		tissueSeen[rowTissue] = true
		if rowTissue != tissue {
			continue
		}
		sp := model.Species(rec[idx["species"]])
		if species != nil && !species[sp] {
			continue
		}
		gene := model.GeneID(rec[idx["gene_id"]])
		sample := rec[idx["sample_id"]]

		dupKey := [4]string{string(sp), string(rowTissue), string(gene), sample}
		if seen[dupKey] {
			return nil, failure.New(failure.InputMalformed, "expr.LoadExpression",
				fmt.Errorf("duplicate row for (species=%s, tissue=%s, gene=%s, sample=%s)", sp, rowTissue, gene, sample))
		}
		seen[dupKey] = true

		v, err := parseFloat(rec[idx["expression"]])
		if err != nil {
			return nil, failure.New(failure.InputMalformed, "expr.LoadExpression",
				fmt.Errorf("gene %s sample %s: %w", gene, sample, err))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, failure.New(failure.InputMalformed, "expr.LoadExpression",
				fmt.Errorf("non-finite expression value for gene %s sample %s", gene, sample))
		}

		rows[sp] = append(rows[sp], exprRow{species: sp, tissue: rowTissue, gene: gene, sample: sample, value: v})

		if geneSet[sp] == nil {
			geneSet[sp] = make(map[model.GeneID]bool)
			sampleSet[sp] = make(map[string]bool)
		}
		geneSet[sp][gene] = true
		sampleSet[sp][sample] = true
	}

	if !tissueSeen[tissue] {
		return nil, failure.New(failure.ConfigMismatch, "expr.LoadExpression",
			fmt.Errorf("tissue %q not present in expression table", tissue))
	}

	// Second pass: allocate and fill.
	out := make(map[model.Species]*model.SpeciesMatrix, len(rows))
	for sp, rs := range rows {
		genes := setToSortedSlice(geneSet[sp])
		samples := setToSortedSlice(sampleSet[sp])
		geneIndex := indexOf(genes)
		sampleIndex := indexOf(samples)

		m := denseZeros(len(genes), len(samples))
		for _, row := range rs {
			gi := geneIndex[row.gene]
			si := sampleIndex[row.sample]
			m.Set(gi, si, row.value)
		}

		out[sp] = &model.SpeciesMatrix{
			Species:   sp,
			Tissue:    tissue,
			Genes:     genes,
			GeneIndex: geneIndex,
			Samples:   samples,
			Data:      m,
		}
	}
	return out, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func denseZeros(rows, cols int) *mat.Dense {
	return mat.NewDense(rows, cols, nil)
}

func setToSortedSlice[T ~string](set map[T]bool) []T {
	out := make([]T, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func indexOf[T comparable](s []T) map[T]int {
	idx := make(map[T]int, len(s))
	for i, v := range s {
		idx[v] = i
	}
	return idx
}
