// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clique

import (
	"bytes"
	"strings"
	"testing"
)

func TestDotSinkFlushOrdersHOGsAndReportsSkips(t *testing.T) {
	sink := NewDotSink()
	sink.HOGGraph("H2", []ConservedEdge{{GeneA: "x", GeneB: "y", MaxQ: 0.01}})
	sink.HOGGraph("H1", []ConservedEdge{{GeneA: "a", GeneB: "b", MaxQ: 0.02}})
	sink.HOGSkipped("H3", 500, 100)

	var buf bytes.Buffer
	if err := sink.Flush(&buf); err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "strict graph cliques {") {
		t.Error("Flush output missing graph wrapper")
	}
	h1 := strings.Index(out, "cluster_H1")
	h2 := strings.Index(out, "cluster_H2")
	if h1 == -1 || h2 == -1 || h1 > h2 {
		t.Errorf("HOGs not emitted in sorted order: %s", out)
	}
	if !strings.Contains(out, "H3: 500 edges > max 100") {
		t.Error("Flush output missing skipped-HOG diagnostic")
	}
	if !strings.Contains(out, `"a" -- "b"`) {
		t.Error("Flush output missing expected edge line")
	}
}

func TestDotSinkHOGGraphSkipsEmptyEdgeSet(t *testing.T) {
	sink := NewDotSink()
	sink.HOGGraph("H1", nil)
	var buf bytes.Buffer
	if err := sink.Flush(&buf); err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	if strings.Contains(buf.String(), "cluster_H1") {
		t.Error("empty-edge HOG should not produce a subgraph block")
	}
}
