package abduct

import "github.com/mkealey/salience/internal/graph"

// Explain builds the explanation graph for a finished search: one step
// node per hypothesis step in order, fact nodes for every referenced
// established fact, edges from each fact to the step that uses it, and a
// sealed terminal event node. Steps only reference facts established
// before the search started, so the graph is acyclic by construction.
func Explain(res Result) *graph.Graph {
	g := graph.NewGraph(res.EventID)

	factNodes := make(map[FactRef]int)
	for _, st := range res.Steps {
		// Fact nodes are established before the steps that use them.
		for _, dep := range st.Deps {
			if _, ok := factNodes[dep]; !ok {
				factNodes[dep] = g.AddNode(graph.Node{
					Kind:        graph.KindFact,
					Symbol:      dep.Symbol,
					SourceEvent: dep.EventID,
				})
			}
		}

		stepID := g.AddNode(graph.Node{
			Kind:   graph.KindStep,
			Rule:   st.Rule,
			Symbol: st.Symbol,
			Cost:   st.Cost,
			Covers: st.Covers,
		})
		for _, dep := range st.Deps {
			g.AddEdge(factNodes[dep], stepID)
		}
	}

	g.Seal()
	return g
}
