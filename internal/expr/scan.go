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

// ScanTissues returns the set of tissue identifiers present in the
// expression table at path, without allocating any matrices. Used by the
// driver to validate config.Tissues against the data before running any
// stage.
func ScanTissues(path string) (map[model.Tissue]bool, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.ScanTissues", err)
	}
	defer r.Close()

	c := newTabReader(r)
	header, err := c.Read()
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.ScanTissues", fmt.Errorf("reading header: %w", err))
	}
	idx, err := columnIndex(header, expressionColumns)
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.ScanTissues", err)
	}

	tissues := make(map[model.Tissue]bool)
	for {
		rec, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, failure.New(failure.InputMalformed, "expr.ScanTissues", err)
		}
		tissues[model.Tissue(rec[idx["tissue"]])] = true
	}
	return tissues, nil
}

// ScanSpecies returns the set of species identifiers present in the
// expression table at path, without allocating any matrices.
func ScanSpecies(path string) (map[model.Species]bool, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.ScanSpecies", err)
	}
	defer r.Close()

	c := newTabReader(r)
	header, err := c.Read()
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.ScanSpecies", fmt.Errorf("reading header: %w", err))
	}
	idx, err := columnIndex(header, expressionColumns)
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "expr.ScanSpecies", err)
	}

	species := make(map[model.Species]bool)
	for {
		rec, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, failure.New(failure.InputMalformed, "expr.ScanSpecies", err)
		}
		species[model.Species(rec[idx["species"]])] = true
	}
	return species, nil
}
