// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"strings"
	"testing"

	"github.com/kortschak/orthoclique/internal/failure"
	"github.com/kortschak/orthoclique/internal/model"
)

func TestReadDefaults(t *testing.T) {
	cfg, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read(empty) error: %v", err)
	}
	if cfg.CorrelationMethod != Spearman {
		t.Errorf("CorrelationMethod = %v, want Spearman", cfg.CorrelationMethod)
	}
	if cfg.MinCliqueSize != 3 {
		t.Errorf("MinCliqueSize = %d, want 3", cfg.MinCliqueSize)
	}
	if cfg.DensityThreshold != 0.03 {
		t.Errorf("DensityThreshold = %v, want 0.03", cfg.DensityThreshold)
	}
}

func TestReadOverridesDefaults(t *testing.T) {
	doc := `
species_attribute:
  human: mammal
  mouse: mammal
tissues: [liver]
correlation_method: pearson
min_clique_size: 4
`
	cfg, err := Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if cfg.CorrelationMethod != Pearson {
		t.Errorf("CorrelationMethod = %v, want pearson", cfg.CorrelationMethod)
	}
	if cfg.MinCliqueSize != 4 {
		t.Errorf("MinCliqueSize = %d, want 4", cfg.MinCliqueSize)
	}
	// Untouched defaults must survive partial unmarshalling.
	if cfg.Normalization != MR {
		t.Errorf("Normalization = %v, want mr (default preserved)", cfg.Normalization)
	}
}

func TestSelfCheckRejectsBadValues(t *testing.T) {
	cases := []string{
		"correlation_method: bogus\n",
		"correlation_sign: bogus\n",
		"normalization: bogus\n",
		"fdr_method: bogus\n",
		"density_threshold: 0\n",
		"density_threshold: 1\n",
		"min_clique_size: 2\n",
	}
	for _, doc := range cases {
		_, err := Read(strings.NewReader(doc))
		if err == nil {
			t.Errorf("Read(%q) succeeded, want error", doc)
			continue
		}
		if kind, ok := failure.KindOf(err); !ok || kind != failure.InputMalformed {
			t.Errorf("Read(%q) kind = %v, %v, want InputMalformed, true", doc, kind, ok)
		}
	}
}

func TestValidateDetectsMismatch(t *testing.T) {
	cfg := Default()
	cfg.SpeciesAttribute = map[model.Species]model.Attribute{"human": "mammal"}
	cfg.Tissues = []model.Tissue{"liver"}

	exprSpecies := map[model.Species]bool{"human": true}
	hogSpecies := map[model.Species]bool{"human": true}
	exprTissues := map[model.Tissue]bool{"liver": true}

	if err := cfg.Validate(exprSpecies, hogSpecies, exprTissues); err != nil {
		t.Fatalf("Validate(consistent inputs) = %v, want nil", err)
	}

	err := cfg.Validate(map[model.Species]bool{}, hogSpecies, exprTissues)
	if err == nil {
		t.Fatal("Validate with species missing from expression data succeeded, want error")
	}
	if kind, ok := failure.KindOf(err); !ok || kind != failure.ConfigMismatch {
		t.Errorf("kind = %v, %v, want ConfigMismatch, true", kind, ok)
	}

	err = cfg.Validate(exprSpecies, hogSpecies, map[model.Tissue]bool{})
	if err == nil {
		t.Fatal("Validate with tissue missing from expression data succeeded, want error")
	}
}

func TestSpeciesSorted(t *testing.T) {
	cfg := Default()
	cfg.SpeciesAttribute = map[model.Species]model.Attribute{
		"zebrafish": "fish", "human": "mammal", "mouse": "mammal",
	}
	got := cfg.Species()
	want := []model.Species{"human", "mouse", "zebrafish"}
	if len(got) != len(want) {
		t.Fatalf("Species() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Species()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
