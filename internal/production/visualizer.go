package production

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/comalice/tickfsm"
)

// Graph is the static part of a rendered machine: its states and, optionally,
// the one currently active.
type Graph struct {
	Name    string `json:"name"`
	Policy  string `json:"policy"`
	States  []Node `json:"states"`
	Current string `json:"current,omitempty"`
}

// Node is one state of a Graph.
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Edge is an observed transition between two states.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Cause string `json:"cause"`
	Count int    `json:"count"`
}

// DescribeDefinition returns the Graph of def. If m is non-nil its active
// state is marked current.
func DescribeDefinition[ID comparable, C any](def *tickfsm.Definition[ID, C], m *tickfsm.Machine[ID, C]) Graph {
	g := Graph{Name: def.Name(), Policy: def.Policy().String()}
	for _, id := range def.StateIDs() {
		g.States = append(g.States, Node{ID: fmt.Sprint(id), Type: def.StateName(id)})
	}
	if m != nil {
		g.Current = fmt.Sprint(m.StateID())
	}
	return g
}

// EdgeRecorder is a transition observer that counts the edges a machine
// actually takes. Handlers are opaque functions, so edges are learned at
// runtime rather than read from the definition.
type EdgeRecorder struct {
	mu     sync.Mutex
	counts map[edgeKey]int
}

type edgeKey struct{ from, to, cause string }

// OnTransition implements tickfsm.Observer.
func (r *EdgeRecorder) OnTransition(rec tickfsm.TransitionRecord) {
	k := edgeKey{fmt.Sprint(rec.From), fmt.Sprint(rec.To), rec.Cause}
	r.mu.Lock()
	if r.counts == nil {
		r.counts = make(map[edgeKey]int)
	}
	r.counts[k]++
	r.mu.Unlock()
}

// Edges returns the recorded edges sorted by from, to, cause.
func (r *EdgeRecorder) Edges() []Edge {
	r.mu.Lock()
	edges := make([]Edge, 0, len(r.counts))
	for k, n := range r.counts {
		edges = append(edges, Edge{From: k.from, To: k.to, Cause: k.cause, Count: n})
	}
	r.mu.Unlock()

	slices.SortFunc(edges, func(a, b Edge) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To), cmp.Compare(a.Cause, b.Cause))
	})
	return edges
}

// DefaultVisualizer renders graphs as Graphviz DOT or JSON.
type DefaultVisualizer struct{}

// ExportDOT generates Graphviz DOT source for g and its observed edges.
func (v *DefaultVisualizer) ExportDOT(g Graph, edges []Edge) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", g.Name)
	buf.WriteString(`  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)
	fmt.Fprintf(&buf, "  label=%q;\n", g.Name+" ("+g.Policy+")")

	for _, n := range g.States {
		style := ""
		if n.ID == g.Current {
			style = ` style="rounded,filled" fillcolor=lightgreen`
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", n.ID, n.Type, style)
	}

	for _, e := range edges {
		label := e.Cause
		if e.Count > 1 {
			label = fmt.Sprintf("%s x%d", e.Cause, e.Count)
		}
		style := ""
		if e.Cause == "force" {
			style = " style=dashed"
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q%s];\n", e.From, e.To, label, style)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the graph and its edges.
func (v *DefaultVisualizer) ExportJSON(g Graph, edges []Edge) ([]byte, error) {
	return json.MarshalIndent(struct {
		Graph
		Edges []Edge `json:"edges"`
	}{g, edges}, "", "  ")
}
