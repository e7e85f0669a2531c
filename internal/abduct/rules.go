package abduct

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mkealey/salience/internal/event"
	"github.com/mkealey/salience/internal/vocab"
)

// FactRef names a fact an inference step depends on.
type FactRef struct {
	EventID int    `json:"event_id"`
	Symbol  string `json:"symbol"`
}

// Step is one inference step of a hypothesis. Cost is the full cost of the
// step including rule framing; Covers lists the attribute keys the step
// accounts for. Step costs never depend on where in a hypothesis the step
// appears, so hypothesis cost is order-independent.
type Step struct {
	Rule   string    `json:"rule"`
	Symbol string    `json:"symbol"`
	Cost   float64   `json:"cost"`
	Covers []string  `json:"covers"`
	Deps   []FactRef `json:"deps,omitempty"`
}

// Query is what a rule sees when proposing steps: the event, the
// still-uncovered attribute keys (sorted; rules target the first one), the
// shared vocabulary, the corpus indexes, and the fact context snapshot.
type Query struct {
	Event     event.Event
	Uncovered []string
	Vocab     *vocab.Vocabulary
	Corpus    *event.Store
	Facts     *FactSet
}

// Target returns the attribute key proposals must cover. Restricting
// expansion to steps covering the first uncovered attribute kills
// permutation blowup without losing any solution set.
func (q Query) Target() string {
	return q.Uncovered[0]
}

// Rule proposes inference steps. The hypothesis grammar is a domain input:
// callers may supply their own rule set.
type Rule interface {
	Name() string
	// Propose returns candidate steps, each covering the query target.
	Propose(q Query) []Step
	// Floor is an admissible lower bound on the per-attribute cost of any
	// step this rule can propose for the event.
	Floor(q Query) float64
}

// DefaultRules returns the standard grammar: direct vocabulary symbols,
// recall of established facts, axis-rank extremum description, label
// frequency-rank description, and calendar components derived from the
// event timestamp. The per-step overhead is sized to the grammar.
func DefaultRules() []Rule {
	overhead := StepOverhead(5)
	return []Rule{
		&DirectRule{Overhead: overhead},
		&RecallRule{Overhead: overhead},
		&RankRule{Overhead: overhead},
		&LabelRule{Overhead: overhead},
		&CalendarRule{Overhead: overhead},
	}
}

// DirectRule covers the target attribute by spending its vocabulary symbol
// cost. It is the completeness backstop: any attribute can always be
// covered directly.
type DirectRule struct {
	Overhead float64
}

func (r *DirectRule) Name() string { return "direct" }

func (r *DirectRule) Propose(q Query) []Step {
	key := q.Target()
	val, ok := q.Event.Attr(key)
	if !ok {
		return nil
	}
	sym := vocab.Symbol(key, val)
	cost, _ := q.Vocab.CostOrFallback(sym)
	return []Step{{
		Rule:   r.Name(),
		Symbol: sym,
		Cost:   cost + r.Overhead,
		Covers: []string{key},
	}}
}

func (r *DirectRule) Floor(q Query) float64 {
	return q.Vocab.MinCost() + r.Overhead
}

// RecallRule covers the target (and any other uncovered attributes with
// matching values) by referencing an established fact. The reference costs
// the bits of the fact's stable ordinal, so recurring events get cheap
// generative explanations.
type RecallRule struct {
	Overhead float64
}

func (r *RecallRule) Name() string { return "recall" }

func (r *RecallRule) Propose(q Query) []Step {
	key := q.Target()
	want, ok := q.Event.Attr(key)
	if !ok {
		return nil
	}

	// Oldest facts have the smallest ordinals and therefore the cheapest
	// references, so the first step seen per coverage signature is the
	// cheapest and later duplicates can be dropped.
	seen := make(map[string]bool)
	var steps []Step
	for i := 0; i < q.Facts.Len(); i++ {
		f := q.Facts.At(i)
		got, ok := f.Attr(key)
		if !ok || !got.Equal(want) {
			continue
		}

		var covers []string
		var deps []FactRef
		for _, k := range q.Uncovered {
			ev, okE := q.Event.Attr(k)
			fv, okF := f.Attr(k)
			if okE && okF && ev.Equal(fv) {
				covers = append(covers, k)
				deps = append(deps, FactRef{EventID: f.EventID, Symbol: vocab.Symbol(k, fv)})
			}
		}

		sig := fmt.Sprint(covers)
		if seen[sig] {
			continue
		}
		seen[sig] = true

		steps = append(steps, Step{
			Rule:   r.Name(),
			Symbol: fmt.Sprintf("recall(%d)", f.EventID),
			Cost:   BitLength(f.Ord+1) + r.Overhead,
			Covers: covers,
			Deps:   deps,
		})
	}
	return steps
}

func (r *RecallRule) Floor(q Query) float64 {
	n := len(q.Event.Attrs())
	if n == 0 {
		n = 1
	}
	// A single recall step covers at most every attribute of the event.
	return (BitLength(1) + r.Overhead) / float64(n)
}

// RankRule covers a numeric target attribute by describing its value as
// the k-th largest or smallest along the corpus axis for that key.
type RankRule struct {
	Overhead float64
}

func (r *RankRule) Name() string { return "rank" }

func (r *RankRule) Propose(q Query) []Step {
	key := q.Target()
	val, ok := q.Event.Attr(key)
	if !ok || !val.Numeric {
		return nil
	}

	var steps []Step
	if k, ok := q.Corpus.RankFromTop(key, val.Num); ok {
		steps = append(steps, Step{
			Rule:   r.Name(),
			Symbol: fmt.Sprintf("rank(%s,max,%d)", key, k),
			Cost:   BitLength(k) + 1 + r.Overhead, // +1 direction bit
			Covers: []string{key},
		})
	}
	if k, ok := q.Corpus.RankFromBottom(key, val.Num); ok {
		steps = append(steps, Step{
			Rule:   r.Name(),
			Symbol: fmt.Sprintf("rank(%s,min,%d)", key, k),
			Cost:   BitLength(k) + 1 + r.Overhead,
			Covers: []string{key},
		})
	}
	return steps
}

func (r *RankRule) Floor(q Query) float64 {
	return BitLength(0) + 1 + r.Overhead
}

// LabelRule covers the label attribute by naming the label's corpus
// frequency rank: common kinds of events are cheap to generate.
type LabelRule struct {
	Overhead float64
}

func (r *LabelRule) Name() string { return "label" }

func (r *LabelRule) Propose(q Query) []Step {
	if q.Target() != "label" {
		return nil
	}
	rank, ok := q.Corpus.LabelRank(q.Event.Label())
	if !ok {
		return nil
	}
	return []Step{{
		Rule:   r.Name(),
		Symbol: fmt.Sprintf("label(%d)", rank),
		Cost:   BitLength(rank) + r.Overhead,
		Covers: []string{"label"},
	}}
}

func (r *LabelRule) Floor(q Query) float64 {
	return BitLength(0) + r.Overhead
}

// calendarComponents lists the attribute keys the calendar rule derives
// from the event timestamp. Index order sets the component naming cost.
var calendarComponents = []string{"hour", "day", "weekday", "month", "year"}

// CalendarRule covers calendar attributes whose value follows from the
// event's own timestamp. The timestamp is given, so a matching day or
// month carries no information beyond naming which component it is.
type CalendarRule struct {
	Overhead float64
}

func (r *CalendarRule) Name() string { return "calendar" }

func (r *CalendarRule) Propose(q Query) []Step {
	key := q.Target()
	idx := -1
	for i, c := range calendarComponents {
		if c == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}
	val, ok := q.Event.Attr(key)
	if !ok || !calendarMatches(key, val, q.Event.Timestamp) {
		return nil
	}
	return []Step{{
		Rule:   r.Name(),
		Symbol: fmt.Sprintf("calendar(%s)", key),
		Cost:   BitLength(idx) + r.Overhead,
		Covers: []string{key},
	}}
}

func calendarMatches(key string, val event.Value, ts int64) bool {
	t := time.Unix(ts, 0).UTC()
	switch key {
	case "hour":
		return val.Numeric && val.Num == float64(t.Hour())
	case "day":
		return val.Numeric && val.Num == float64(t.Day())
	case "weekday":
		if val.Numeric {
			return val.Num == float64(t.Weekday())
		}
		return strings.EqualFold(val.Text, t.Weekday().String())
	case "month":
		return val.Numeric && val.Num == float64(t.Month())
	case "year":
		return val.Numeric && val.Num == float64(t.Year())
	}
	return false
}

func (r *CalendarRule) Floor(q Query) float64 {
	return BitLength(0) + r.Overhead
}

// sortSteps orders proposals by (cost, symbol) so expansion is
// deterministic across runs.
func sortSteps(steps []Step) {
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].Cost != steps[j].Cost {
			return steps[i].Cost < steps[j].Cost
		}
		return steps[i].Symbol < steps[j].Symbol
	})
}
