// Package render converts a run's finished graph into Graphviz DOT, in the
// teacher's node-link style (pkg/render/nodelink/dot.go), relabelled for
// segment/cluster nodes and Cantor-paired edge keys (spec §6).
package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"

	"github.com/series2gpp/s2gpp-go/pkg/s2g/store"
	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// Cantor returns the Cantor pairing of a and b, used as each edge's DOT
// label key (spec §6).
func Cantor(a, b int) int {
	return (a+b)*(a+b+1)/2 + b
}

func nodeID(n store.Node) string {
	return fmt.Sprintf("%d:%d", n.Segment, n.Cluster)
}

// ToDOT renders ds's current graph as a Graphviz DOT document. Nodes are
// labelled "segment:cluster"; edges are labelled with their Cantor-paired
// (fromSegment, toSegment) key; the graph carries a "run <runID>" label.
func ToDOT(ds *store.DataStore, runID uuid.UUID) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  label=\"run %s\";\n", runID)
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	seen := make(map[string]bool)
	for _, n := range ds.Nodes() {
		id := nodeID(*n)
		if seen[id] {
			continue
		}
		seen[id] = true
		fmt.Fprintf(&buf, "  %q [label=%q];\n", id, id)
	}

	buf.WriteString("\n")
	for _, e := range ds.Edges() {
		key := Cantor(e.From.Segment, e.To.Segment)
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", nodeID(e.From), nodeID(e.To), fmt.Sprintf("%d", key))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT document to SVG bytes via Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeInternal, err, "render SVG")
	}
	return buf.Bytes(), nil
}
