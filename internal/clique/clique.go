// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clique implements the Clique Engine (C5): collapsing conserved
// edges into a per-HOG graph and enumerating maximal cliques, then
// annotating each by species composition and attribute class.
package clique

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kortschak/orthoclique/internal/conserve"
	"github.com/kortschak/orthoclique/internal/model"
)

// ConservedEdge is a Comparison row that passed the bidirectional FDR
// filter, per spec.md §4.5.
type ConservedEdge struct {
	HOG          model.HOGID
	GeneA, GeneB model.GeneID
	MaxQ         float64
	E1, E2       float64
	Sign1, Sign2 int8
}

// FilterConservedEdges keeps rows with max(q1,q2) < alpha, the first
// step of the Clique Engine's filter.
func FilterConservedEdges(rows []conserve.Row, alpha float64) []ConservedEdge {
	out := make([]ConservedEdge, 0, len(rows))
	for _, r := range rows {
		q := r.MaxQ()
		if q >= alpha {
			continue
		}
		out = append(out, ConservedEdge{
			HOG: r.HOG, GeneA: r.GeneA, GeneB: r.GeneB,
			MaxQ: q, E1: r.E1, E2: r.E2, Sign1: r.Sign1, Sign2: r.Sign2,
		})
	}
	return out
}

// Clique is a maximal set of genes within one HOG, every pair of which
// is a conserved edge (and, in signed mode, sign-consistent).
type Clique struct {
	HOG   model.HOGID
	Genes []model.GeneID
}

// AnnotatedClique is a Clique plus the per-clique statistics of
// spec.md §4.5's "Per-clique annotation".
type AnnotatedClique struct {
	Clique

	Size           int
	Species        []model.Species
	NSpecies       int
	AttributeClass string

	MeanQ      float64
	MedianQ    float64
	MeanEffect float64
	NEdges     int
}

// DiagnosticSink receives per-HOG graph and enumeration diagnostics as
// the Clique Engine runs. It is an external interface (spec.md §1 names
// diagnostic plot rendering as an excluded collaborator); the engine
// calls it unconditionally and NoopSink is the zero-cost default.
type DiagnosticSink interface {
	// HOGGraph is called once per HOG that reaches graph construction,
	// before the edge-count guard is applied.
	HOGGraph(hog model.HOGID, edges []ConservedEdge)
	// HOGSkipped is called when a HOG is skipped because |Ê_h| exceeds
	// the configured maxEdges guard.
	HOGSkipped(hog model.HOGID, edgeCount, maxEdges int)
}

// NoopSink is a DiagnosticSink that discards everything.
type NoopSink struct{}

func (NoopSink) HOGGraph(model.HOGID, []ConservedEdge) {}
func (NoopSink) HOGSkipped(model.HOGID, int, int)      {}

// Config bundles the Clique Engine's tunables, kept separate from
// internal/config.Config so this package has no import-time dependency
// on the full configuration document.
type Config struct {
	Signed         bool
	MinCliqueSize  int
	MaxCliqueEdges int
	Alpha          float64

	// AttributeOf resolves a gene to its species' configured attribute.
	AttributeOf func(model.GeneID) (model.Attribute, model.Species, bool)
}

// Enumerate groups edges by HOG and returns every AnnotatedClique across
// all HOGs, sorted by (size desc, mean q asc), per spec.md §4.5's
// "Output".
func Enumerate(edges []ConservedEdge, cfg Config, sink DiagnosticSink) []AnnotatedClique {
	if sink == nil {
		sink = NoopSink{}
	}
	if cfg.MinCliqueSize < 3 {
		cfg.MinCliqueSize = 3
	}

	byHOG := make(map[model.HOGID][]ConservedEdge)
	for _, e := range edges {
		byHOG[e.HOG] = append(byHOG[e.HOG], e)
	}

	hogs := make([]model.HOGID, 0, len(byHOG))
	for h := range byHOG {
		hogs = append(hogs, h)
	}
	sort.Slice(hogs, func(i, j int) bool { return hogs[i] < hogs[j] })

	var out []AnnotatedClique
	for _, h := range hogs {
		out = append(out, cliquesForHOG(h, byHOG[h], cfg, sink)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].MeanQ < out[j].MeanQ
	})
	return out
}

func cliquesForHOG(hog model.HOGID, edges []ConservedEdge, cfg Config, sink DiagnosticSink) []AnnotatedClique {
	sink.HOGGraph(hog, edges)

	byPair := collapseEdges(edges, cfg.Signed)

	if len(byPair) < 3 {
		return nil
	}
	if cfg.MaxCliqueEdges > 0 && len(byPair) > cfg.MaxCliqueEdges {
		sink.HOGSkipped(hog, len(byPair), cfg.MaxCliqueEdges)
		return nil
	}

	g, geneOf := buildGraph(byPair)
	maximal := topo.BronKerbosch(g)

	var out []AnnotatedClique
	for _, nodes := range maximal {
		if len(nodes) < cfg.MinCliqueSize {
			continue
		}
		genes := make([]model.GeneID, len(nodes))
		for i, n := range nodes {
			genes[i] = geneOf[n.ID()]
		}
		sort.Slice(genes, func(i, j int) bool { return genes[i] < genes[j] })
		out = append(out, annotate(hog, genes, byPair, cfg))
	}
	return out
}

// pairEdge is the collapsed, unordered representation of Ê_h's members:
// one record per distinct gene pair, carrying the aggregate statistics
// the annotation step needs.
type pairEdge struct {
	a, b   model.GeneID
	maxQ   float64
	e1, e2 float64
}

func pairKey(a, b model.GeneID) [2]model.GeneID {
	if a > b {
		a, b = b, a
	}
	return [2]model.GeneID{a, b}
}

// collapseEdges reduces the HOG's conserved edges to Ê_h: a set of
// undirected gene pairs with distinct endpoints, optionally filtered to
// sign-consistent edges per spec.md §4.5's signed-mode filter. When
// multiple Comparison rows map to the same unordered pair (possible
// across repeated OrthoPair rows), the lowest max-q survivor is kept.
func collapseEdges(edges []ConservedEdge, signed bool) map[[2]model.GeneID]pairEdge {
	out := make(map[[2]model.GeneID]pairEdge)
	for _, e := range edges {
		if e.GeneA == e.GeneB {
			continue
		}
		if signed && e.Sign1 != 0 && e.Sign2 != 0 && e.Sign1 != e.Sign2 {
			continue
		}
		key := pairKey(e.GeneA, e.GeneB)
		cur, ok := out[key]
		if !ok || e.MaxQ < cur.maxQ {
			out[key] = pairEdge{a: key[0], b: key[1], maxQ: e.MaxQ, e1: e.E1, e2: e.E2}
		}
	}
	return out
}

// buildGraph builds an undirected graph over the endpoints of byPair,
// returning the graph and the node-id-to-gene lookup.
func buildGraph(byPair map[[2]model.GeneID]pairEdge) (*simple.UndirectedGraph, map[int64]model.GeneID) {
	g := simple.NewUndirectedGraph()
	nodeOf := make(map[model.GeneID]int64)
	geneOf := make(map[int64]model.GeneID)
	nextID := func(gene model.GeneID) int64 {
		if id, ok := nodeOf[gene]; ok {
			return id
		}
		id := int64(len(nodeOf))
		nodeOf[gene] = id
		geneOf[id] = gene
		g.AddNode(simple.Node(id))
		return id
	}
	for _, pe := range byPair {
		fa := nextID(pe.a)
		fb := nextID(pe.b)
		g.SetEdge(simple.Edge{F: simple.Node(fa), T: simple.Node(fb)})
	}
	return g, geneOf
}

// annotate computes an AnnotatedClique's statistics per spec.md §4.5.
func annotate(hog model.HOGID, genes []model.GeneID, byPair map[[2]model.GeneID]pairEdge, cfg Config) AnnotatedClique {
	speciesSet := make(map[model.Species]bool)
	attrSet := make(map[model.Attribute]bool)
	for _, g := range genes {
		if cfg.AttributeOf == nil {
			continue
		}
		attr, sp, ok := cfg.AttributeOf(g)
		if !ok {
			continue
		}
		speciesSet[sp] = true
		attrSet[attr] = true
	}
	species := make([]model.Species, 0, len(speciesSet))
	for sp := range speciesSet {
		species = append(species, sp)
	}
	sort.Slice(species, func(i, j int) bool { return species[i] < species[j] })

	var qs []float64
	var effects []float64
	nEdges := 0
	for i := 0; i < len(genes); i++ {
		for j := i + 1; j < len(genes); j++ {
			pe, ok := byPair[pairKey(genes[i], genes[j])]
			if !ok {
				continue
			}
			nEdges++
			qs = append(qs, pe.maxQ)
			effects = append(effects, pe.e1, pe.e2)
		}
	}

	return AnnotatedClique{
		Clique:         Clique{HOG: hog, Genes: genes},
		Size:           len(genes),
		Species:        species,
		NSpecies:       len(species),
		AttributeClass: attributeClass(attrSet),
		MeanQ:          mean(qs),
		MedianQ:        median(qs),
		MeanEffect:     mean(effects),
		NEdges:         nEdges,
	}
}

// attributeClass derives the N-way-generalised class label of spec.md
// §4.5: the sole attribute's name if every species shares it, else
// "Mixed".
func attributeClass(attrs map[model.Attribute]bool) string {
	if len(attrs) == 1 {
		for a := range attrs {
			return string(a)
		}
	}
	if len(attrs) == 0 {
		return "Unknown"
	}
	return "Mixed"
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// SplitByClass partitions cliques by AttributeClass, preserving the
// overall (size desc, mean q asc) ordering within each class, per
// spec.md §4.5's "Also split by attribute class."
func SplitByClass(cliques []AnnotatedClique) map[string][]AnnotatedClique {
	out := make(map[string][]AnnotatedClique)
	for _, c := range cliques {
		out[c.AttributeClass] = append(out[c.AttributeClass], c)
	}
	return out
}
