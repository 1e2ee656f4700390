// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads and validates the nested configuration document
// described in spec.md §6. Configuration is read once and passed
// explicitly through each component's constructor; nothing in this module
// reads a package-global configuration value.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kortschak/orthoclique/internal/failure"
	"github.com/kortschak/orthoclique/internal/model"
)

// CorrelationMethod selects the per-species correlation statistic.
type CorrelationMethod string

const (
	Pearson  CorrelationMethod = "pearson"
	Spearman CorrelationMethod = "spearman"
	Kendall  CorrelationMethod = "kendall"
)

// CorrelationSign selects whether the correlation matrix is sign-folded.
type CorrelationSign string

const (
	Signed   CorrelationSign = "signed"
	Unsigned CorrelationSign = "unsigned"
	Both     CorrelationSign = "both"
)

// Normalization selects the co-expression strength normalisation.
type Normalization string

const (
	MR  Normalization = "mr"
	CLR Normalization = "clr"
)

// FDRMethod selects the multiple-testing correction applied to Comparison
// p-values.
type FDRMethod string

const (
	BH         FDRMethod = "bh"
	Bonferroni FDRMethod = "bonferroni"
)

// Concurrency holds the scheduling knobs of spec.md §5.
type Concurrency struct {
	// MaxWorkers caps concurrent (tissue, species-pair) tasks.
	MaxWorkers int `yaml:"max_workers"`

	// InnerThreads caps the per-pair Tester's row-parallel pool.
	InnerThreads int `yaml:"inner_threads"`

	// PairWallTimeSeconds is the wall-time budget per pair task.
	PairWallTimeSeconds int `yaml:"pair_wall_time_seconds"`

	// MaxRetries bounds ResourceExhausted retries.
	MaxRetries int `yaml:"max_retries"`
}

// Config is the immutable, validated configuration document.
type Config struct {
	// SpeciesAttribute maps each configured species to its categorical
	// attribute value (spec.md §6 "species.<attribute>").
	SpeciesAttribute map[model.Species]model.Attribute `yaml:"species_attribute"`

	// Tissues is the closed set of tissues to process.
	Tissues []model.Tissue `yaml:"tissues"`

	CorrelationMethod CorrelationMethod `yaml:"correlation_method"`
	CorrelationSign   CorrelationSign   `yaml:"correlation_sign"`
	Normalization     Normalization     `yaml:"normalization"`

	DensityThreshold float64 `yaml:"density_threshold"`
	PThreshold       float64 `yaml:"p_threshold"`
	FDRMethod        FDRMethod `yaml:"fdr_method"`

	MinCliqueSize  int `yaml:"min_clique_size"`
	MaxCliqueEdges int `yaml:"max_clique_edges"`

	MinGenesPerHOG int `yaml:"min_genes_per_hog"`
	MaxGenesPerHOG int `yaml:"max_genes_per_hog"`

	MinSamples int `yaml:"min_samples"`

	Concurrency Concurrency `yaml:"concurrency"`
}

// Default returns a Config with spec.md's stated defaults. Callers
// unmarshal onto a copy of Default() so unset keys retain sane values.
func Default() Config {
	return Config{
		SpeciesAttribute: make(map[model.Species]model.Attribute),
		CorrelationMethod: Spearman,
		CorrelationSign:   Unsigned,
		Normalization:     MR,
		DensityThreshold:  0.03,
		PThreshold:        0.05,
		FDRMethod:         BH,
		MinCliqueSize:     3,
		MaxCliqueEdges:    10000,
		MinSamples:        3,
		Concurrency: Concurrency{
			MaxWorkers:          10,
			InnerThreads:        12,
			PairWallTimeSeconds: 24 * 60 * 60,
			MaxRetries:          2,
		},
	}
}

// Load reads and validates a Config from path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, failure.New(failure.InputMalformed, "config.Load", err)
	}
	defer f.Close()
	return Read(f)
}

// Read reads and validates a Config from r.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(false)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, failure.New(failure.InputMalformed, "config.Read", err)
	}
	if err := cfg.selfCheck(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// selfCheck validates internal consistency that does not depend on input
// data (species-vs-data checks happen in Validate, once the tables are
// loaded).
func (c *Config) selfCheck() error {
	switch c.CorrelationMethod {
	case Pearson, Spearman, Kendall:
	default:
		return failure.New(failure.InputMalformed, "config.selfCheck",
			fmt.Errorf("unknown correlation_method %q", c.CorrelationMethod))
	}
	switch c.CorrelationSign {
	case Signed, Unsigned, Both:
	default:
		return failure.New(failure.InputMalformed, "config.selfCheck",
			fmt.Errorf("unknown correlation_sign %q", c.CorrelationSign))
	}
	switch c.Normalization {
	case MR, CLR:
	default:
		return failure.New(failure.InputMalformed, "config.selfCheck",
			fmt.Errorf("unknown normalization %q", c.Normalization))
	}
	switch c.FDRMethod {
	case BH, Bonferroni:
	default:
		return failure.New(failure.InputMalformed, "config.selfCheck",
			fmt.Errorf("unknown fdr_method %q", c.FDRMethod))
	}
	if c.DensityThreshold <= 0 || c.DensityThreshold >= 1 {
		return failure.New(failure.InputMalformed, "config.selfCheck",
			fmt.Errorf("density_threshold must be in (0,1), got %v", c.DensityThreshold))
	}
	if c.MinCliqueSize < 3 {
		return failure.New(failure.InputMalformed, "config.selfCheck",
			fmt.Errorf("min_clique_size must be >= 3, got %d", c.MinCliqueSize))
	}
	return nil
}

// Validate checks that every species and tissue named in the
// configuration is present in both input tables, per spec.md §4.1's
// ConfigMismatch contract.
func (c *Config) Validate(exprSpecies, hogSpecies map[model.Species]bool, exprTissues map[model.Tissue]bool) error {
	for sp := range c.SpeciesAttribute {
		if !exprSpecies[sp] {
			return failure.New(failure.ConfigMismatch, "config.Validate",
				fmt.Errorf("species %q declared in config absent from expression data", sp))
		}
		if !hogSpecies[sp] {
			return failure.New(failure.ConfigMismatch, "config.Validate",
				fmt.Errorf("species %q declared in config absent from orthogroup data", sp))
		}
	}
	for _, t := range c.Tissues {
		if !exprTissues[t] {
			return failure.New(failure.ConfigMismatch, "config.Validate",
				fmt.Errorf("tissue %q declared in config absent from expression data", t))
		}
	}
	return nil
}

// Species returns the configured species set, sorted for deterministic
// iteration order.
func (c *Config) Species() []model.Species {
	sp := make([]model.Species, 0, len(c.SpeciesAttribute))
	for s := range c.SpeciesAttribute {
		sp = append(sp, s)
	}
	return sortedSpecies(sp)
}

func sortedSpecies(sp []model.Species) []model.Species {
	for i := 1; i < len(sp); i++ {
		for j := i; j > 0 && sp[j] < sp[j-1]; j-- {
			sp[j], sp[j-1] = sp[j-1], sp[j]
		}
	}
	return sp
}
