// Package graph holds the dependency graphs of winning hypotheses: which
// inference step derived which fact, per event.
package graph

import "fmt"

// NodeKind distinguishes the node types in an explanation graph.
type NodeKind string

const (
	// KindStep is an inference step of the winning hypothesis.
	KindStep NodeKind = "step"
	// KindFact is a fact established by an earlier event, referenced by a
	// recall step.
	KindFact NodeKind = "fact"
	// KindEvent is the single terminal node representing the fully
	// generated event.
	KindEvent NodeKind = "event"
)

// Node is one node of an explanation graph.
type Node struct {
	ID     int      `json:"id"`
	Kind   NodeKind `json:"kind"`
	Rule   string   `json:"rule,omitempty"`
	Symbol string   `json:"symbol,omitempty"`
	Cost   float64  `json:"cost,omitempty"`
	Covers []string `json:"covers,omitempty"`
	// SourceEvent is set on fact nodes: the earlier event whose winning
	// hypothesis established the fact.
	SourceEvent int `json:"source_event,omitempty"`
}

// Edge records that To requires the fact produced by From.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Graph is the explanation DAG for a single event. Acyclic by
// construction: AddEdge only accepts edges from an earlier node to a later
// one, and nodes are append-only.
type Graph struct {
	EventID  int    `json:"event_id"`
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`
	Terminal int    `json:"terminal"`
}

// NewGraph creates an empty explanation graph for an event.
func NewGraph(eventID int) *Graph {
	return &Graph{EventID: eventID, Terminal: -1}
}

// AddNode appends a node and returns its id.
func (g *Graph) AddNode(n Node) int {
	n.ID = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	return n.ID
}

// AddEdge records a derivation dependency. Steps may only depend on
// already-established nodes, which is what keeps the graph acyclic.
func (g *Graph) AddEdge(from, to int) error {
	if from >= to {
		return fmt.Errorf("edge %d -> %d would break acyclicity", from, to)
	}
	if from < 0 || to >= len(g.Nodes) {
		return fmt.Errorf("edge %d -> %d references unknown node", from, to)
	}
	g.Edges = append(g.Edges, Edge{From: from, To: to})
	return nil
}

// Seal adds the terminal event node, depending on every step node, and
// marks it as the designated winning terminal.
func (g *Graph) Seal() {
	steps := make([]int, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Kind == KindStep {
			steps = append(steps, n.ID)
		}
	}
	term := g.AddNode(Node{Kind: KindEvent})
	for _, id := range steps {
		// Edges to the freshly appended node cannot fail the ordering check.
		g.AddEdge(id, term)
	}
	g.Terminal = term
}

// Sealed reports whether the graph has its terminal node.
func (g *Graph) Sealed() bool {
	return g.Terminal >= 0
}
