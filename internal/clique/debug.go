// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clique

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/kortschak/orthoclique/internal/model"
)

// DotSink is a DiagnosticSink that renders each HOG's conserved-edge
// graph as a DOT subgraph, one per HOG, and writes the combined
// document to w on Flush. Adapted from the teacher's ontology debug
// dump: accumulate per-unit-of-work buffers under a single mutex, then
// write them out once at the end of a run rather than interleaving
// concurrent callers' output.
type DotSink struct {
	mu      sync.Mutex
	buffers map[model.HOGID]*bytes.Buffer
	skipped []string
}

// NewDotSink returns a DotSink ready to accumulate per-HOG subgraphs.
func NewDotSink() *DotSink {
	return &DotSink{buffers: make(map[model.HOGID]*bytes.Buffer)}
}

func (d *DotSink) HOGGraph(hog model.HOGID, edges []ConservedEdge) {
	if len(edges) == 0 {
		return
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\tsubgraph \"cluster_%s\" {\n\t\tlabel=\"%s\";\n", hog, hog)
	for _, e := range edges {
		fmt.Fprintf(&buf, "\t\t%q -- %q [weight=%.6g];\n", e.GeneA, e.GeneB, e.MaxQ)
	}
	buf.WriteString("\t}\n")

	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers[hog] = &buf
}

func (d *DotSink) HOGSkipped(hog model.HOGID, edgeCount, maxEdges int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.skipped = append(d.skipped, fmt.Sprintf("%s: %d edges > max %d", hog, edgeCount, maxEdges))
}

// Flush writes the accumulated DOT document to w, HOGs in stable sorted
// order so the output is reproducible across runs.
func (d *DotSink) Flush(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.skipped) > 0 {
		fmt.Fprintln(w, "/*")
		sort.Strings(d.skipped)
		for _, s := range d.skipped {
			fmt.Fprintln(w, s)
		}
		fmt.Fprintln(w, "*/")
	}

	hogs := make([]model.HOGID, 0, len(d.buffers))
	for h := range d.buffers {
		hogs = append(hogs, h)
	}
	sort.Slice(hogs, func(i, j int) bool { return hogs[i] < hogs[j] })

	fmt.Fprintln(w, "strict graph cliques {")
	for _, h := range hogs {
		if _, err := io.Copy(w, d.buffers[h]); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "}")
	return nil
}
