// Package vocab builds the shared symbol table mapping observed attribute
// values to encoding costs in bits, and encodes events against it.
package vocab

import (
	"fmt"
	"math"
	"sort"

	"github.com/mkealey/salience/internal/event"
)

// Scheme selects how symbol costs are assigned.
type Scheme string

const (
	// SchemeFrequency derives each symbol's cost from its empirical
	// frequency across the corpus: rarer values cost more bits.
	SchemeFrequency Scheme = "frequency"
	// SchemeUniform charges every symbol the bits needed to pick one
	// symbol out of the vocabulary.
	SchemeUniform Scheme = "uniform"
	// SchemeManual uses a hand-authored cost table.
	SchemeManual Scheme = "manual"
)

// FallbackPolicy selects the cost charged for a value never seen during
// vocabulary construction.
type FallbackPolicy string

const (
	// FallbackWorst charges the worst cost among known symbols.
	FallbackWorst FallbackPolicy = "worst"
	// FallbackConstant charges a configured constant.
	FallbackConstant FallbackPolicy = "constant"
)

// Config selects the cost scheme and the policy for unseen values.
type Config struct {
	Scheme       Scheme
	Fallback     FallbackPolicy
	FallbackCost float64            // used with FallbackConstant
	Costs        map[string]float64 // used with SchemeManual
}

// Symbol builds the vocabulary symbol for an attribute value.
func Symbol(key string, v event.Value) string {
	return key + "=" + v.Canon()
}

// Vocabulary maps symbols to strictly positive encoding costs. Immutable
// after Build.
type Vocabulary struct {
	costs    map[string]float64
	fallback float64
	scheme   Scheme
}

// Build scans the corpus once and computes a cost for every distinct
// attribute value observed. Fails fast on a malformed cost table, since a
// bad vocabulary corrupts every downstream score.
func Build(events []event.Event, cfg Config) (*Vocabulary, error) {
	counts := make(map[string]int)
	total := 0
	for _, e := range events {
		for _, a := range e.Attrs() {
			counts[Symbol(a.Key, a.Value)]++
			total++
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("build vocabulary: corpus has no attributes")
	}

	v := &Vocabulary{costs: make(map[string]float64, len(counts)), scheme: cfg.Scheme}

	switch cfg.Scheme {
	case SchemeFrequency, "":
		// Surprisal with a +1 smoothing on the denominator so even a
		// symbol covering the whole corpus keeps a strictly positive cost.
		for sym, n := range counts {
			v.costs[sym] = -math.Log2(float64(n) / float64(total+1))
		}
	case SchemeUniform:
		cost := math.Log2(float64(len(counts)))
		if cost < 1 {
			cost = 1
		}
		for sym := range counts {
			v.costs[sym] = cost
		}
	case SchemeManual:
		if len(cfg.Costs) == 0 {
			return nil, fmt.Errorf("manual cost scheme with empty cost table")
		}
		for sym, cost := range cfg.Costs {
			if cost <= 0 {
				return nil, fmt.Errorf("manual cost for %q must be positive, got %v", sym, cost)
			}
			v.costs[sym] = cost
		}
	default:
		return nil, fmt.Errorf("unknown vocabulary scheme %q", cfg.Scheme)
	}

	switch cfg.Fallback {
	case FallbackConstant:
		if cfg.FallbackCost <= 0 {
			return nil, fmt.Errorf("constant fallback cost must be positive, got %v", cfg.FallbackCost)
		}
		v.fallback = cfg.FallbackCost
	case FallbackWorst, "":
		worst := 0.0
		for _, c := range v.costs {
			if c > worst {
				worst = c
			}
		}
		v.fallback = worst
	default:
		return nil, fmt.Errorf("unknown fallback policy %q", cfg.Fallback)
	}

	return v, nil
}

// Manual builds a vocabulary directly from a cost table. Used by tests and
// callers that author their own symbol costs.
func Manual(costs map[string]float64) (*Vocabulary, error) {
	v := &Vocabulary{costs: make(map[string]float64, len(costs)), scheme: SchemeManual}
	worst := 0.0
	for sym, cost := range costs {
		if cost <= 0 {
			return nil, fmt.Errorf("cost for %q must be positive, got %v", sym, cost)
		}
		v.costs[sym] = cost
		if cost > worst {
			worst = cost
		}
	}
	v.fallback = worst
	return v, nil
}

// Scheme returns the scheme the vocabulary was built with.
func (v *Vocabulary) Scheme() Scheme {
	return v.scheme
}

// Len returns the number of known symbols.
func (v *Vocabulary) Len() int {
	return len(v.costs)
}

// Cost returns the cost of a known symbol.
func (v *Vocabulary) Cost(sym string) (float64, bool) {
	c, ok := v.costs[sym]
	return c, ok
}

// CostOrFallback returns the symbol's cost, substituting the fallback cost
// for unseen symbols. The second return reports whether this was a
// vocabulary gap.
func (v *Vocabulary) CostOrFallback(sym string) (cost float64, gap bool) {
	if c, ok := v.costs[sym]; ok {
		return c, false
	}
	return v.fallback, true
}

// MinCost returns the cheapest known symbol cost. Used by the search's
// admissible lower bound.
func (v *Vocabulary) MinCost() float64 {
	min := math.Inf(1)
	for _, c := range v.costs {
		if c < min {
			min = c
		}
	}
	if math.IsInf(min, 1) {
		return v.fallback
	}
	return min
}

// Symbols returns all known symbols in sorted order.
func (v *Vocabulary) Symbols() []string {
	syms := make([]string, 0, len(v.costs))
	for s := range v.costs {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}
