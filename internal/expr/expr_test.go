// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package expr

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kortschak/orthoclique/internal/failure"
	"github.com/kortschak/orthoclique/internal/model"
)

const exprTSV = `species	tissue	gene_id	sample_id	expression	attribute	ortho_group
human	liver	g1	s1	1.0	mammal	H1
human	liver	g1	s2	2.0	mammal	H1
human	liver	g2	s1	3.0	mammal	H1
human	liver	g2	s2	4.0	mammal	H1
human	kidney	g1	s1	9.0	mammal	H1
mouse	liver	m1	s1	0.5	mammal	H1
mouse	liver	m1	s2	0.6	mammal	H1
`

func TestLoadExpressionParsesTargetTissueOnly(t *testing.T) {
	matrices, err := loadExpression(strings.NewReader(exprTSV), "liver", nil)
	if err != nil {
		t.Fatalf("loadExpression error: %v", err)
	}
	human, ok := matrices["human"]
	if !ok {
		t.Fatal("human species matrix missing")
	}
	if len(human.Genes) != 2 {
		t.Errorf("len(human.Genes) = %d, want 2", len(human.Genes))
	}
	if len(human.Samples) != 2 {
		t.Errorf("len(human.Samples) = %d, want 2", len(human.Samples))
	}
	row, ok := human.Row("g1")
	if !ok {
		t.Fatal("g1 row missing")
	}
	if row[0] != 1.0 || row[1] != 2.0 {
		t.Errorf("g1 row = %v, want [1.0, 2.0]", row)
	}
}

func TestLoadExpressionFiltersBySpecies(t *testing.T) {
	matrices, err := loadExpression(strings.NewReader(exprTSV), "liver", map[model.Species]bool{"human": true})
	if err != nil {
		t.Fatalf("loadExpression error: %v", err)
	}
	if _, ok := matrices["mouse"]; ok {
		t.Error("mouse matrix present despite species filter excluding it")
	}
	if _, ok := matrices["human"]; !ok {
		t.Error("human matrix missing")
	}
}

func TestLoadExpressionRejectsDuplicateRow(t *testing.T) {
	doc := exprTSV + "human\tliver\tg1\ts1\t5.0\tmammal\tH1\n"
	_, err := loadExpression(strings.NewReader(doc), "liver", nil)
	if err == nil {
		t.Fatal("loadExpression with a duplicate row succeeded, want error")
	}
	if kind, ok := failure.KindOf(err); !ok || kind != failure.InputMalformed {
		t.Errorf("kind = %v, %v, want InputMalformed, true", kind, ok)
	}
}

func TestLoadExpressionRejectsNonFiniteValue(t *testing.T) {
	doc := "species\ttissue\tgene_id\tsample_id\texpression\tattribute\tortho_group\n" +
		"human\tliver\tg1\ts1\tNaN\tmammal\tH1\n"
	_, err := loadExpression(strings.NewReader(doc), "liver", nil)
	if err == nil {
		t.Fatal("loadExpression with a NaN expression value succeeded, want error")
	}
}

func TestLoadExpressionUnknownTissueIsConfigMismatch(t *testing.T) {
	_, err := loadExpression(strings.NewReader(exprTSV), "brain", nil)
	if err == nil {
		t.Fatal("loadExpression with an absent tissue succeeded, want error")
	}
	if kind, ok := failure.KindOf(err); !ok || kind != failure.ConfigMismatch {
		t.Errorf("kind = %v, %v, want ConfigMismatch, true", kind, ok)
	}
}

func TestLoadExpressionGzipTransparent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expr.tsv.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	gw := gzip.NewWriter(f)
	if _, err := gw.Write([]byte(exprTSV)); err != nil {
		t.Fatalf("gzip write error: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close error: %v", err)
	}
	f.Close()

	matrices, err := LoadExpression(path, "liver", nil)
	if err != nil {
		t.Fatalf("LoadExpression(gzip) error: %v", err)
	}
	if _, ok := matrices["human"]; !ok {
		t.Error("human matrix missing from gzip-loaded table")
	}
}

const hogTSV = `ortho_group	sub_group	species	gene_id	attribute	is_core
H1	S1	human	g1	mammal	true
H1	S1	mouse	m1	mammal	true
H2	S1	human	g2	mammal	true
`

func TestLoadOrthoGroupsBuildsMembershipAndGeneIndex(t *testing.T) {
	table, err := loadOrthoGroups(strings.NewReader(hogTSV), nil)
	if err != nil {
		t.Fatalf("loadOrthoGroups error: %v", err)
	}
	if len(table.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(table.Groups))
	}
	h1, ok := table.Groups["H1"]
	if !ok {
		t.Fatal("H1 missing")
	}
	if len(h1.Members["human"]) != 1 || len(h1.Members["mouse"]) != 1 {
		t.Errorf("H1 members = %+v, want one human one mouse gene", h1.Members)
	}
	if hog, ok := table.GeneHOG["g1"]; !ok || hog != "H1" {
		t.Errorf("GeneHOG[g1] = %v, %v, want H1, true", hog, ok)
	}
}

func TestLoadOrthoGroupsRejectsGeneInTwoHOGs(t *testing.T) {
	doc := hogTSV + "H2\tS1\thuman\tg1\tmammal\ttrue\n"
	_, err := loadOrthoGroups(strings.NewReader(doc), nil)
	if err == nil {
		t.Fatal("loadOrthoGroups with a gene in two HOGs succeeded, want error")
	}
}

func TestScanTissuesAndScanSpecies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expr.tsv")
	if err := os.WriteFile(path, []byte(exprTSV), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	tissues, err := ScanTissues(path)
	if err != nil {
		t.Fatalf("ScanTissues error: %v", err)
	}
	if !tissues["liver"] || !tissues["kidney"] {
		t.Errorf("ScanTissues() = %v, want liver and kidney present", tissues)
	}

	species, err := ScanSpecies(path)
	if err != nil {
		t.Fatalf("ScanSpecies error: %v", err)
	}
	if !species["human"] || !species["mouse"] {
		t.Errorf("ScanSpecies() = %v, want human and mouse present", species)
	}
}

func TestSpeciesInOrthoGroups(t *testing.T) {
	table, err := loadOrthoGroups(strings.NewReader(hogTSV), nil)
	if err != nil {
		t.Fatalf("loadOrthoGroups error: %v", err)
	}
	got := SpeciesInOrthoGroups(table)
	if !got["human"] || !got["mouse"] {
		t.Errorf("SpeciesInOrthoGroups() = %v, want human and mouse", got)
	}
}
