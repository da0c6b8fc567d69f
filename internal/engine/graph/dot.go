package graph

import (
	"fmt"
	"strings"
)

// DOT renders the graph in Graphviz format for debugging a build:
// audio edges solid, event edges dashed, nodes labelled by processor
// type. Control-thread only; never called on the audio path.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph audio {\n")
	for _, nid := range g.Nodes() {
		fmt.Fprintf(&b, "  n%d [label=%q];\n", nid.Raw(), g.Processor(nid).TypeName())
	}
	for _, e := range g.AudioEdges() {
		fmt.Fprintf(&b, "  n%d -> n%d [label=\"%d:%d\"];\n",
			e.From.Node.Raw(), e.To.Node.Raw(), e.From.Port, e.To.Port)
	}
	for _, e := range g.EventEdges() {
		fmt.Fprintf(&b, "  n%d -> n%d [style=dashed];\n",
			e.From.Node.Raw(), e.To.Node.Raw())
	}
	b.WriteString("}\n")
	return b.String()
}
