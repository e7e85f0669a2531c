package abduct

import (
	"container/heap"
	"strings"
)

// node is one partial hypothesis on the frontier. Nodes are immutable:
// extending a node copies its step list and uncovered set.
type node struct {
	steps     []Step
	uncovered []string // sorted
	cost      float64  // cumulative cost so far
	f         float64  // cost + admissible lower bound on the remainder
	key       string   // joined symbols, for deterministic tie-breaks
	seq       int      // insertion order, the final tie-break
}

func (n *node) complete() bool {
	return len(n.uncovered) == 0
}

// extend returns a new node with the step applied.
func (n *node) extend(st Step, h func(uncovered []string) float64, seq int) *node {
	steps := make([]Step, len(n.steps), len(n.steps)+1)
	copy(steps, n.steps)
	steps = append(steps, st)

	covered := make(map[string]bool, len(st.Covers))
	for _, k := range st.Covers {
		covered[k] = true
	}
	uncovered := make([]string, 0, len(n.uncovered))
	for _, k := range n.uncovered {
		if !covered[k] {
			uncovered = append(uncovered, k)
		}
	}

	cost := n.cost + st.Cost
	child := &node{
		steps:     steps,
		uncovered: uncovered,
		cost:      cost,
		f:         cost + h(uncovered),
		seq:       seq,
	}
	if n.key == "" {
		child.key = st.Symbol
	} else {
		child.key = n.key + "\x00" + st.Symbol
	}
	return child
}

// betterComplete reports whether a beats b under the completion tie-break:
// lower cost, then fewer steps, then lexicographically smaller symbol
// ordering.
func betterComplete(a, b *node) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if len(a.steps) != len(b.steps) {
		return len(a.steps) < len(b.steps)
	}
	return a.key < b.key
}

// frontier is the priority queue ordered by f, with deterministic
// tie-breaks so identical inputs always pop in the same order.
type frontier []*node

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	a, b := f[i], f[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if len(a.steps) != len(b.steps) {
		return len(a.steps) < len(b.steps)
	}
	if c := strings.Compare(a.key, b.key); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(*node)) }

func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*f = old[:len(old)-1]
	return n
}

func (f *frontier) push(n *node) { heap.Push(f, n) }
func (f *frontier) pop() *node   { return heap.Pop(f).(*node) }
