// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netbuild

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kortschak/orthoclique/internal/artifact"
	"github.com/kortschak/orthoclique/internal/config"
	"github.com/kortschak/orthoclique/internal/model"
)

// WriteTo encodes nw's full state into w, for content-addressed caching
// of the Species Network Builder stage (SPEC_FULL.md §8, "Resumption").
func (nw *Network) WriteTo(w *artifact.Writer) error {
	if err := w.WriteString(string(nw.Species)); err != nil {
		return err
	}
	if err := w.WriteString(string(nw.Tissue)); err != nil {
		return err
	}
	if err := w.WriteValue(int32(len(nw.Genes))); err != nil {
		return err
	}
	for _, g := range nw.Genes {
		if err := w.WriteString(string(g)); err != nil {
			return err
		}
	}
	rows, cols := nw.N.Dims()
	if err := w.WriteValue(int32(rows)); err != nil {
		return err
	}
	if err := w.WriteValue(int32(cols)); err != nil {
		return err
	}
	if err := w.WriteFloat64Slice(flattenDense(nw.N)); err != nil {
		return err
	}
	if err := w.WriteValue(nw.Tau); err != nil {
		return err
	}
	if nw.RawCorr == nil {
		if err := w.WriteValue(int32(0)); err != nil {
			return err
		}
	} else {
		if err := w.WriteValue(int32(1)); err != nil {
			return err
		}
		if err := w.WriteFloat64Slice(flattenSym(nw.RawCorr)); err != nil {
			return err
		}
	}
	if err := w.WriteString(string(nw.Method)); err != nil {
		return err
	}
	if err := w.WriteString(string(nw.Sign)); err != nil {
		return err
	}
	return w.WriteString(string(nw.Norm))
}

// ReadNetwork decodes a Network previously written by (*Network).WriteTo.
func ReadNetwork(r *artifact.Reader) (*Network, error) {
	species, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	tissue, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	var nGenes int32
	if err := r.ReadValue(&nGenes); err != nil {
		return nil, err
	}
	genes := make([]model.GeneID, nGenes)
	geneIndex := make(map[model.GeneID]int, nGenes)
	for i := range genes {
		g, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		genes[i] = model.GeneID(g)
		geneIndex[genes[i]] = i
	}
	var rows, cols int32
	if err := r.ReadValue(&rows); err != nil {
		return nil, err
	}
	if err := r.ReadValue(&cols); err != nil {
		return nil, err
	}
	flat, err := r.ReadFloat64Slice()
	if err != nil {
		return nil, err
	}
	n := unflattenDense(int(rows), int(cols), flat)

	var tau float64
	if err := r.ReadValue(&tau); err != nil {
		return nil, err
	}

	var hasRaw int32
	if err := r.ReadValue(&hasRaw); err != nil {
		return nil, err
	}
	var rawCorr *mat.SymDense
	if hasRaw == 1 {
		rawFlat, err := r.ReadFloat64Slice()
		if err != nil {
			return nil, err
		}
		rawCorr = mat.NewSymDense(int(rows), rawFlat)
	}

	method, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	sign, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	norm, err := r.ReadString()
	if err != nil {
		return nil, err
	}

	return &Network{
		Species:   model.Species(species),
		Tissue:    model.Tissue(tissue),
		Genes:     genes,
		GeneIndex: geneIndex,
		N:         n,
		Tau:       tau,
		RawCorr:   rawCorr,
		Method:    config.CorrelationMethod(method),
		Sign:      config.CorrelationSign(sign),
		Norm:      config.Normalization(norm),
	}, nil
}

func flattenDense(n *mat.Dense) []float64 {
	rows, cols := n.Dims()
	out := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = n.At(i, j)
		}
	}
	return out
}

func unflattenDense(rows, cols int, flat []float64) *mat.Dense {
	n := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			n.Set(i, j, flat[i*cols+j])
		}
	}
	return n
}

func flattenSym(s *mat.SymDense) []float64 {
	dim, _ := s.Dims()
	out := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			out[i*dim+j] = s.At(i, j)
		}
	}
	return out
}
