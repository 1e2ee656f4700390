// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command orthoclique discovers co-expressologs: orthologous genes
// across species whose co-expression neighbourhoods are statistically
// conserved, and groups them into maximal cliques.
//
// Inputs are a gene-level expression table and a hierarchical
// ortholog-group table, both tab-delimited and optionally gzip
// compressed. Outputs are, per configured tissue, a clique table and a
// per-run JSON summary written to --outdir.
//
//	orthoclique -config config.yaml -expression expr.tsv.gz -orthogroups hogs.tsv.gz -outdir out/
//
// The configuration keys are documented on the fields of config.Config.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kortschak/orthoclique/internal/artifact"
	"github.com/kortschak/orthoclique/internal/clique"
	"github.com/kortschak/orthoclique/internal/config"
	"github.com/kortschak/orthoclique/internal/conserve"
	"github.com/kortschak/orthoclique/internal/expr"
	"github.com/kortschak/orthoclique/internal/failure"
	"github.com/kortschak/orthoclique/internal/model"
	"github.com/kortschak/orthoclique/internal/netbuild"
	"github.com/kortschak/orthoclique/internal/pairnet"
	"github.com/kortschak/orthoclique/internal/schedule"
	"github.com/kortschak/orthoclique/internal/summary"
)

func main() {
	var (
		configPath = flag.String("config", "", "configuration document (yaml - required)")
		exprPath   = flag.String("expression", "", "expression table (.tsv/.tsv.gz - required)")
		hogPath    = flag.String("orthogroups", "", "orthogroup table (.tsv/.tsv.gz - required)")
		outdir     = flag.String("outdir", ".", "directory for clique tables and the run summary")
		debug      = flag.Bool("debug", false, "write a DOT graph dump of conserved-edge graphs per tissue")
		help       = flag.Bool("help", false, "print help text")
	)
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *configPath == "" || *exprPath == "" || *hogPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := os.MkdirAll(*outdir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	log.Println("[loading configuration]")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	log.Println("[scanning input tissues]")
	exprTissues, err := expr.ScanTissues(*exprPath)
	if err != nil {
		log.Fatalf("failed to scan expression table: %v", err)
	}
	exprSpecies, err := expr.ScanSpecies(*exprPath)
	if err != nil {
		log.Fatalf("failed to scan expression table: %v", err)
	}

	log.Println("[loading orthogroup table]")
	speciesSet := make(map[model.Species]bool, len(cfg.SpeciesAttribute))
	for sp := range cfg.SpeciesAttribute {
		speciesSet[sp] = true
	}
	table, err := expr.LoadOrthoGroups(*hogPath, speciesSet)
	if err != nil {
		log.Fatalf("failed to load orthogroup table: %v", err)
	}
	table.FilterBySize(cfg.MinGenesPerHOG, cfg.MaxGenesPerHOG)

	if err := cfg.Validate(exprSpecies, expr.SpeciesInOrthoGroups(table), exprTissues); err != nil {
		log.Fatalf("configuration does not match input data: %v", err)
	}

	report := &summary.RunReport{}

	for _, tissue := range cfg.Tissues {
		log.Printf("[tissue %s] loading expression data", tissue)
		manifest, err := runTissue(tissue, *exprPath, table, cfg, *outdir, *debug)
		if err != nil {
			log.Printf("[tissue %s] failed: %v", tissue, err)
			report.Tissues = append(report.Tissues, summary.TissueManifest{Tissue: tissue})
			continue
		}
		report.Tissues = append(report.Tissues, manifest)
	}

	summaryPath := filepath.Join(*outdir, "summary.json")
	f, err := os.Create(summaryPath)
	if err != nil {
		log.Fatalf("failed to write summary: %v", err)
	}
	if err := report.WriteJSON(f); err != nil {
		f.Close()
		log.Fatalf("failed to write summary: %v", err)
	}
	f.Close()

	b, _ := json.MarshalIndent(report, "", "  ")
	log.Printf("[done] %s", b)

	if !report.Succeeded() {
		os.Exit(1)
	}
}

func runTissue(tissue model.Tissue, exprPath string, table *model.OrthoGroupTable, cfg *config.Config, outdir string, debug bool) (summary.TissueManifest, error) {
	matrices, err := expr.LoadExpression(exprPath, tissue, speciesSetOf(cfg))
	if err != nil {
		return summary.TissueManifest{}, err
	}

	crossSpecies := netbuild.CrossSpeciesGenes(table)

	cacheDir := filepath.Join(outdir, "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return summary.TissueManifest{}, err
	}
	fingerprint := configFingerprint(cfg)

	log.Printf("[tissue %s] building species networks", tissue)
	networks := make(map[model.Species]*netbuild.Network, len(matrices))
	for sp, sm := range matrices {
		path := filepath.Join(cacheDir, fmt.Sprintf("species-%s.bin", cacheKey("species", string(sp), string(tissue), fingerprint)))
		nw, err := loadCachedNetwork(path)
		if err == nil {
			log.Printf("[tissue %s species %s] species network read from cache", tissue, sp)
			networks[sp] = nw
			continue
		}
		nw, err = netbuild.Build(sm, crossSpecies, cfg)
		if err != nil {
			log.Printf("[tissue %s species %s] %v", tissue, sp, err)
			continue
		}
		if err := storeNetwork(path, nw); err != nil {
			log.Printf("[tissue %s species %s] failed to cache species network: %v", tissue, sp, err)
		}
		networks[sp] = nw
	}

	species := cfg.Species()
	var sink *clique.DotSink
	if debug {
		sink = clique.NewDotSink()
	}

	var allEdges []clique.ConservedEdge
	var pairStats []summary.PairStats
	var failed []summary.FailedPair

	tasks := make([]schedule.PairTask, 0)
	results := make([]pairOutcome, len(species)*(len(species)-1)/2)
	idx := 0
	for i := 0; i < len(species); i++ {
		for j := i + 1; j < len(species); j++ {
			a, b := species[i], species[j]
			resultIdx := idx
			idx++
			results[resultIdx] = pairOutcome{a: a, b: b}
			tasks = append(tasks, schedule.PairTask{
				Label: fmt.Sprintf("%s-%s", a, b),
				Run: func(ctx context.Context, memoryBudget int64) error {
					netA, okA := networks[a]
					netB, okB := networks[b]
					if !okA || !okB {
						return failure.New(failure.InsufficientSamples, "main.runTissue",
							fmt.Errorf("missing species network for %s/%s", a, b))
					}
					pairs := model.BuildOrthoPairs(table, a, b)
					if len(pairs) == 0 {
						results[resultIdx] = pairOutcome{a: a, b: b}
						return nil
					}

					pairPath := filepath.Join(cacheDir, fmt.Sprintf("pair-%s.bin", cacheKey("pair", string(a), string(b), string(tissue), fingerprint)))
					pn, err := loadCachedPairNetworks(pairPath)
					if err != nil {
						pn = pairnet.Assemble(netA, netB, pairs, cfg.DensityThreshold)
						if err := storePairNetworks(pairPath, pn); err != nil {
							log.Printf("[tissue %s pair %s-%s] failed to cache pair network: %v", tissue, a, b, err)
						}
					} else {
						log.Printf("[tissue %s pair %s-%s] pair network read from cache", tissue, a, b)
					}

					cmpPath := filepath.Join(cacheDir, fmt.Sprintf("comparison-%s.bin", cacheKey("comparison", string(a), string(b), string(tissue), fingerprint)))
					rows, err := loadCachedRows(cmpPath)
					if err != nil {
						rows, err = conserve.ComputeComparison(pn, pairs, cfg.FDRMethod, cfg.Concurrency.InnerThreads)
						if err != nil {
							return err
						}
						if err := storeRows(cmpPath, rows); err != nil {
							log.Printf("[tissue %s pair %s-%s] failed to cache comparison: %v", tissue, a, b, err)
						}
					} else {
						log.Printf("[tissue %s pair %s-%s] comparison read from cache", tissue, a, b)
					}

					edges := clique.FilterConservedEdges(rows, cfg.PThreshold)
					results[resultIdx] = pairOutcome{a: a, b: b, rows: rows, edges: edges}
					return nil
				},
			})
		}
	}

	poolResults := schedule.RunPairPool(context.Background(), tasks, schedule.PairPoolConfig{
		MaxWorkers:          cfg.Concurrency.MaxWorkers,
		MaxRetries:          cfg.Concurrency.MaxRetries,
		PairWallTime:        time.Duration(cfg.Concurrency.PairWallTimeSeconds) * time.Second,
		InitialMemoryBudget: 1,
	})

	for i, r := range poolResults {
		if r.Err != nil {
			kind, _ := failure.KindOf(r.Err)
			failed = append(failed, summary.FailedPair{
				SpeciesA: results[i].a, SpeciesB: results[i].b,
				Kind: kind, Message: r.Err.Error(),
			})
			continue
		}
		o := results[i]
		if len(o.edges) == 0 && len(o.rows) == 0 {
			continue
		}
		allEdges = append(allEdges, o.edges...)
		pairStats = append(pairStats, summary.PairStatsOf(tissue, o.a, o.b, o.rows, o.edges))
		if sink != nil {
			byHOG := make(map[model.HOGID][]clique.ConservedEdge)
			for _, e := range o.edges {
				byHOG[e.HOG] = append(byHOG[e.HOG], e)
			}
			for hog, es := range byHOG {
				sink.HOGGraph(hog, es)
			}
		}
	}

	log.Printf("[tissue %s] enumerating cliques", tissue)
	cliqueCfg := clique.Config{
		Signed:         cfg.CorrelationSign == config.Signed,
		MinCliqueSize:  cfg.MinCliqueSize,
		MaxCliqueEdges: cfg.MaxCliqueEdges,
		Alpha:          cfg.PThreshold,
		AttributeOf: func(g model.GeneID) (model.Attribute, model.Species, bool) {
			hog, ok := table.HOGOf(g)
			if !ok {
				return "", "", false
			}
			grp := table.Groups[hog]
			for sp, genes := range grp.Members {
				for _, gg := range genes {
					if gg == g {
						return cfg.SpeciesAttribute[sp], sp, true
					}
				}
			}
			return "", "", false
		},
	}
	cliques := clique.Enumerate(allEdges, cliqueCfg, sinkOrNoop(sink))

	if sink != nil {
		dotPath := filepath.Join(outdir, fmt.Sprintf("%s.debug.dot", tissue))
		if f, err := os.Create(dotPath); err == nil {
			sink.Flush(f)
			f.Close()
		}
	}

	if err := writeCliqueArtifact(outdir, tissue, cliques); err != nil {
		log.Printf("[tissue %s] failed to persist clique table: %v", tissue, err)
	}

	manifest := summary.NewTissueManifest(tissue, pairStats, cliques, failed)
	return manifest, nil
}

type pairOutcome struct {
	a, b  model.Species
	rows  []conserve.Row
	edges []clique.ConservedEdge
}

func sinkOrNoop(s *clique.DotSink) clique.DiagnosticSink {
	if s == nil {
		return clique.NoopSink{}
	}
	return s
}

func speciesSetOf(cfg *config.Config) map[model.Species]bool {
	out := make(map[model.Species]bool, len(cfg.SpeciesAttribute))
	for sp := range cfg.SpeciesAttribute {
		out[sp] = true
	}
	return out
}

// configFingerprint renders the config.Config fields that change the
// numeric content of a cached stage output, for use as the "config" term
// of the content-addressing hash described in SPEC_FULL.md §8
// ("Resumption"): species-network, pair-network, and comparison
// artifacts are each keyed on (species-or-pair, tissue, this string).
func configFingerprint(cfg *config.Config) string {
	return fmt.Sprintf("%s|%s|%s|%s|%g|%d|%g|%d|%d",
		cfg.CorrelationMethod, cfg.CorrelationSign, cfg.Normalization,
		cfg.FDRMethod, cfg.DensityThreshold, cfg.MinSamples,
		cfg.PThreshold, cfg.MinGenesPerHOG, cfg.MaxGenesPerHOG)
}

// cacheKey returns a short, deterministic content-addressing key for
// parts. No corpus library offers domain hashing of this kind, so this
// is stdlib crypto/sha256, truncated to 16 hex characters (64 bits, far
// more than enough to avoid collision across one run's cache entries).
func cacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func loadCachedNetwork(path string) (*netbuild.Network, error) {
	r, err := artifact.Open(path, artifact.MagicSpeciesNetwork)
	if err != nil {
		return nil, err
	}
	nw, err := netbuild.ReadNetwork(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return nw, nil
}

func storeNetwork(path string, nw *netbuild.Network) error {
	w, err := artifact.Create(path, artifact.MagicSpeciesNetwork)
	if err != nil {
		return err
	}
	if err := nw.WriteTo(w); err != nil {
		return err
	}
	return w.Close()
}

func loadCachedPairNetworks(path string) (*pairnet.PairNetworks, error) {
	r, err := artifact.Open(path, artifact.MagicPairNetwork)
	if err != nil {
		return nil, err
	}
	pn, err := pairnet.ReadPairNetworks(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return pn, nil
}

func storePairNetworks(path string, pn *pairnet.PairNetworks) error {
	w, err := artifact.Create(path, artifact.MagicPairNetwork)
	if err != nil {
		return err
	}
	if err := pn.WriteTo(w); err != nil {
		return err
	}
	return w.Close()
}

func loadCachedRows(path string) ([]conserve.Row, error) {
	r, err := artifact.Open(path, artifact.MagicComparison)
	if err != nil {
		return nil, err
	}
	rows, err := conserve.ReadRows(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return rows, nil
}

func storeRows(path string, rows []conserve.Row) error {
	w, err := artifact.Create(path, artifact.MagicComparison)
	if err != nil {
		return err
	}
	if err := conserve.WriteRows(w, rows); err != nil {
		return err
	}
	return w.Close()
}

func writeCliqueArtifact(outdir string, tissue model.Tissue, cliques []clique.AnnotatedClique) error {
	w, err := artifact.Create(filepath.Join(outdir, fmt.Sprintf("%s.cliques.bin", tissue)), artifact.MagicCliqueTable)
	if err != nil {
		return err
	}
	if err := w.WriteValue(int64(len(cliques))); err != nil {
		return err
	}
	for _, c := range cliques {
		if err := w.WriteString(string(c.HOG)); err != nil {
			return err
		}
		if err := w.WriteValue(int32(len(c.Genes))); err != nil {
			return err
		}
		genes := append([]model.GeneID(nil), c.Genes...)
		sort.Slice(genes, func(i, j int) bool { return genes[i] < genes[j] })
		for _, g := range genes {
			if err := w.WriteString(string(g)); err != nil {
				return err
			}
		}
		if err := w.WriteString(c.AttributeClass); err != nil {
			return err
		}
		if err := w.WriteValue(c.MeanQ); err != nil {
			return err
		}
		if err := w.WriteValue(c.MeanEffect); err != nil {
			return err
		}
	}
	return w.Close()
}
