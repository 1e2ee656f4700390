// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pairnet

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kortschak/orthoclique/internal/artifact"
	"github.com/kortschak/orthoclique/internal/model"
)

// WriteTo encodes pn into w, for content-addressed caching of the Pair
// Subnetwork Assembler stage (SPEC_FULL.md §8, "Resumption").
func (pn *PairNetworks) WriteTo(w *artifact.Writer) error {
	if err := writeSide(w, pn.A); err != nil {
		return err
	}
	return writeSide(w, pn.B)
}

// ReadPairNetworks decodes a PairNetworks previously written by
// (*PairNetworks).WriteTo.
func ReadPairNetworks(r *artifact.Reader) (*PairNetworks, error) {
	a, err := readSide(r)
	if err != nil {
		return nil, err
	}
	b, err := readSide(r)
	if err != nil {
		return nil, err
	}
	return &PairNetworks{A: a, B: b}, nil
}

func writeSide(w *artifact.Writer, s Side) error {
	if err := w.WriteString(string(s.Species)); err != nil {
		return err
	}
	if err := w.WriteValue(int32(len(s.Genes))); err != nil {
		return err
	}
	for _, g := range s.Genes {
		if err := w.WriteString(string(g)); err != nil {
			return err
		}
	}
	dim, _ := s.N.Dims()
	if err := w.WriteValue(int32(dim)); err != nil {
		return err
	}
	if err := w.WriteFloat64Slice(flattenDense(s.N)); err != nil {
		return err
	}
	if err := w.WriteValue(s.Tau); err != nil {
		return err
	}
	if s.RawCorr == nil {
		return w.WriteValue(int32(0))
	}
	if err := w.WriteValue(int32(1)); err != nil {
		return err
	}
	return w.WriteFloat64Slice(flattenDense(s.RawCorr))
}

func readSide(r *artifact.Reader) (Side, error) {
	species, err := r.ReadString()
	if err != nil {
		return Side{}, err
	}
	var nGenes int32
	if err := r.ReadValue(&nGenes); err != nil {
		return Side{}, err
	}
	genes := make([]model.GeneID, nGenes)
	geneIndex := make(map[model.GeneID]int, nGenes)
	for i := range genes {
		g, err := r.ReadString()
		if err != nil {
			return Side{}, err
		}
		genes[i] = model.GeneID(g)
		geneIndex[genes[i]] = i
	}
	var dim int32
	if err := r.ReadValue(&dim); err != nil {
		return Side{}, err
	}
	flat, err := r.ReadFloat64Slice()
	if err != nil {
		return Side{}, err
	}
	n := unflattenDense(int(dim), int(dim), flat)

	var tau float64
	if err := r.ReadValue(&tau); err != nil {
		return Side{}, err
	}

	var hasRaw int32
	if err := r.ReadValue(&hasRaw); err != nil {
		return Side{}, err
	}
	var rawCorr *mat.Dense
	if hasRaw == 1 {
		rawFlat, err := r.ReadFloat64Slice()
		if err != nil {
			return Side{}, err
		}
		rawCorr = unflattenDense(int(dim), int(dim), rawFlat)
	}

	return Side{
		Species:   model.Species(species),
		Genes:     genes,
		GeneIndex: geneIndex,
		N:         n,
		Tau:       tau,
		RawCorr:   rawCorr,
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
