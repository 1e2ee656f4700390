// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conserve

import (
	"github.com/kortschak/orthoclique/internal/artifact"
	"github.com/kortschak/orthoclique/internal/model"
)

// WriteRows encodes rows into w, for content-addressed caching of the
// Conservation Tester stage (SPEC_FULL.md §8, "Resumption").
func WriteRows(w *artifact.Writer, rows []Row) error {
	if err := w.WriteValue(int64(len(rows))); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.WriteString(string(row.HOG)); err != nil {
			return err
		}
		if err := w.WriteString(string(row.GeneA)); err != nil {
			return err
		}
		if err := w.WriteString(string(row.GeneB)); err != nil {
			return err
		}
		if err := w.WriteValue(int32(row.N1)); err != nil {
			return err
		}
		if err := w.WriteValue(int32(row.K1)); err != nil {
			return err
		}
		if err := w.WriteValue(int32(row.X1)); err != nil {
			return err
		}
		if err := w.WriteValue(row.P1); err != nil {
			return err
		}
		if err := w.WriteValue(row.E1); err != nil {
			return err
		}
		if err := w.WriteValue(row.Sign1); err != nil {
			return err
		}
		if err := w.WriteValue(int32(row.N2)); err != nil {
			return err
		}
		if err := w.WriteValue(int32(row.K2)); err != nil {
			return err
		}
		if err := w.WriteValue(int32(row.X2)); err != nil {
			return err
		}
		if err := w.WriteValue(row.P2); err != nil {
			return err
		}
		if err := w.WriteValue(row.E2); err != nil {
			return err
		}
		if err := w.WriteValue(row.Sign2); err != nil {
			return err
		}
	}
	return nil
}

// ReadRows decodes a []Row previously written by WriteRows.
func ReadRows(r *artifact.Reader) ([]Row, error) {
	var n int64
	if err := r.ReadValue(&n); err != nil {
		return nil, err
	}
	rows := make([]Row, n)
	for i := range rows {
		hog, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		geneA, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		geneB, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		row := Row{HOG: model.HOGID(hog), GeneA: model.GeneID(geneA), GeneB: model.GeneID(geneB)}

		var n1, k1, x1, n2, k2, x2 int32
		if err := r.ReadValue(&n1); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&k1); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&x1); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&row.P1); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&row.E1); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&row.Sign1); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&n2); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&k2); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&x2); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&row.P2); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&row.E2); err != nil {
			return nil, err
		}
		if err := r.ReadValue(&row.Sign2); err != nil {
			return nil, err
		}
		row.N1, row.K1, row.X1 = int(n1), int(k1), int(x1)
		row.N2, row.K2, row.X2 = int(n2), int(k2), int(x2)
		rows[i] = row
	}
	return rows, nil
}
