package abduct

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mkealey/salience/internal/event"
	"github.com/mkealey/salience/internal/vocab"
)

// State is the per-event search state machine:
// Initialized -> Searching -> {Found | Exhausted}. Searching self-loops
// through pop/expand/prune cycles. Both terminal states yield a usable
// hypothesis.
type State int

const (
	StateInitialized State = iota
	StateSearching
	// StateFound means the hypothesis was confirmed optimal: no frontier
	// branch could beat it.
	StateFound
	// StateExhausted means a budget ran out first; the result is the best
	// complete hypothesis found, or the fallback.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateSearching:
		return "searching"
	case StateFound:
		return "found"
	case StateExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Fallback selects what happens when no complete hypothesis is found at
// all: treat the raw description as its own generation (Cg := Cd), or
// surface an error.
type Fallback int

const (
	FallbackRaw Fallback = iota
	FallbackError
)

// ErrNoHypothesis is returned under FallbackError when the search finds no
// covering hypothesis within budget.
var ErrNoHypothesis = fmt.Errorf("no covering hypothesis found within budget")

// Budget bounds the search so it always terminates. Zero values take the
// defaults; MaxDuration of 0 means no wall-clock bound.
type Budget struct {
	MaxExpansions int
	MaxDepth      int
	MaxDuration   time.Duration
}

const (
	defaultMaxExpansions = 20000
	defaultMaxDepth      = 8
)

func (b Budget) maxExpansions() int {
	if b.MaxExpansions <= 0 {
		return defaultMaxExpansions
	}
	return b.MaxExpansions
}

func (b Budget) maxDepth() int {
	if b.MaxDepth <= 0 {
		return defaultMaxDepth
	}
	return b.MaxDepth
}

// Options configures a search: the rule grammar, the budget, and the
// no-hypothesis fallback policy.
type Options struct {
	Rules    []Rule
	Budget   Budget
	Fallback Fallback
}

// Result is the outcome of one event's search.
type Result struct {
	EventID    int
	State      State
	Steps      []Step
	Cost       float64 // generation complexity Cg
	Expansions int
	FellBack   bool // Cg was taken from the raw description
}

// Search runs best-first search for the cheapest hypothesis covering all
// of the event's attributes. Truncating the budget (including via ctx)
// yields a valid, possibly pessimal result rather than an error.
func Search(ctx context.Context, e event.Event, desc vocab.Description, v *vocab.Vocabulary, corpus *event.Store, facts *FactSet, opts Options) (Result, error) {
	rules := opts.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	uncovered := e.Keys()
	if len(uncovered) == 0 {
		return Result{}, fmt.Errorf("event %d has no attributes", e.ID)
	}

	baseQuery := Query{Event: e, Uncovered: uncovered, Vocab: v, Corpus: corpus, Facts: facts}

	// Admissible lower bound: the cheapest conceivable per-attribute cost
	// across the grammar, times the uncovered count. Every step covering c
	// attributes costs at least c times this floor, so the bound never
	// overestimates and best-first stays optimal.
	floor := rules[0].Floor(baseQuery)
	for _, r := range rules[1:] {
		if f := r.Floor(baseQuery); f < floor {
			floor = f
		}
	}
	h := func(uncovered []string) float64 {
		return float64(len(uncovered)) * floor
	}

	res := Result{EventID: e.ID, State: StateInitialized}

	start := time.Now()
	seq := 0
	fr := frontier{}
	fr.push(&node{uncovered: uncovered, f: h(uncovered)})

	res.State = StateSearching
	var best *node // best complete hypothesis seen so far, for Exhausted runs

	budget := opts.Budget
	overBudget := func() bool {
		if ctx.Err() != nil {
			return true
		}
		if res.Expansions >= budget.maxExpansions() {
			return true
		}
		if budget.MaxDuration > 0 && time.Since(start) > budget.MaxDuration {
			return true
		}
		return false
	}

	for fr.Len() > 0 {
		if overBudget() {
			res.State = StateExhausted
			break
		}

		n := fr.pop()
		if n.complete() {
			// With an admissible bound the first complete pop is optimal.
			res.State = StateFound
			best = n
			break
		}
		if best != nil && n.cost >= best.cost {
			continue // pruned: cannot beat the best complete hypothesis
		}
		if len(n.steps) >= budget.maxDepth() {
			continue
		}
		res.Expansions++

		q := baseQuery
		q.Uncovered = n.uncovered
		var proposals []Step
		for _, r := range rules {
			proposals = append(proposals, r.Propose(q)...)
		}
		sortSteps(proposals)

		for _, st := range proposals {
			if len(st.Covers) == 0 {
				continue
			}
			seq++
			child := n.extend(st, h, seq)
			if best != nil && child.cost > best.cost {
				continue // pruned branch
			}
			if child.complete() && (best == nil || betterComplete(child, best)) {
				best = child
			}
			fr.push(child)
		}
	}

	if res.State == StateSearching {
		// Frontier emptied without a confirmed-optimal pop.
		res.State = StateExhausted
	}

	if best == nil {
		if opts.Fallback == FallbackError {
			return res, fmt.Errorf("event %d: %w", e.ID, ErrNoHypothesis)
		}
		// Raw-description fallback: the full description is its own
		// generation, so Cg := Cd and unexpectedness is exactly zero.
		res.State = StateExhausted
		res.FellBack = true
		res.Steps = rawSteps(desc)
		res.Cost = desc.Total
		return res, nil
	}

	res.Steps = best.steps
	res.Cost = best.cost
	return res, nil
}

// rawSteps renders the encoder's description as a trivial hypothesis, one
// step per symbol, used by the raw fallback.
func rawSteps(desc vocab.Description) []Step {
	steps := make([]Step, len(desc.Symbols))
	for i, s := range desc.Symbols {
		key := s.Symbol
		if idx := strings.IndexByte(key, '='); idx > 0 {
			key = key[:idx]
		}
		steps[i] = Step{
			Rule:   "describe",
			Symbol: s.Symbol,
			Cost:   s.Cost,
			Covers: []string{key},
		}
	}
	return steps
}
