// Package engine orchestrates a full analysis run: vocabulary building,
// per-event hypothesis search, scoring, and persistence.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mkealey/salience/internal/abduct"
	"github.com/mkealey/salience/internal/config"
	"github.com/mkealey/salience/internal/event"
	"github.com/mkealey/salience/internal/graph"
	"github.com/mkealey/salience/internal/score"
	"github.com/mkealey/salience/internal/store"
	"github.com/mkealey/salience/internal/vocab"
)

// Engine runs analyses. DB may be nil, in which case results are not
// persisted. Graphs always land in the in-memory graph store so the API
// and explorer can serve the latest run.
type Engine struct {
	DB     *store.DB
	Graphs *graph.Store
	Config config.Config
}

// New creates an Engine.
func New(db *store.DB, cfg config.Config) *Engine {
	return &Engine{
		DB:     db,
		Graphs: graph.NewStore(),
		Config: cfg,
	}
}

// EventResult is one event's analysis outcome.
type EventResult struct {
	EventID        int           `json:"event_id"`
	Timestamp      int64         `json:"timestamp"`
	Label          string        `json:"label,omitempty"`
	Cd             float64       `json:"cd"`
	Cg             float64       `json:"cg"`
	Unexpectedness float64       `json:"unexpectedness"`
	Score          float64       `json:"score"`
	State          string        `json:"state"`
	FellBack       bool          `json:"fell_back"`
	Gaps           int           `json:"gaps"`
	Truth          bool          `json:"truth"`
	Steps          []abduct.Step `json:"steps"`
}

// RunSummary is the outcome of one analysis run. Results are in
// chronological processing order. Evaluation is nil unless the corpus
// carries ground-truth flags for both classes.
type RunSummary struct {
	LoadID     string            `json:"load_id"`
	Source     string            `json:"source"`
	Strategy   string            `json:"strategy"`
	Events     int               `json:"events"`
	Labels     []string          `json:"labels,omitempty"`
	Elapsed    time.Duration     `json:"elapsed"`
	Results    []EventResult     `json:"results"`
	Evaluation *score.Evaluation `json:"evaluation,omitempty"`
}

// Ranked returns the results ordered by score descending, ties broken by
// event id for a stable ranking.
func (s *RunSummary) Ranked() []EventResult {
	ranked := make([]EventResult, len(s.Results))
	copy(ranked, s.Results)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].EventID < ranked[j].EventID
	})
	return ranked
}

// Run analyzes the corpus. Events are processed in chronological order,
// each searched against the facts established by its predecessors. Source
// names where the corpus came from, for the load record.
func (e *Engine) Run(ctx context.Context, corpus *event.Store, source string) (*RunSummary, error) {
	start := time.Now()

	v, err := buildVocabulary(corpus, e.Config.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("building vocabulary: %w", err)
	}

	strategy, err := score.New(e.Config.Scoring.Strategy, e.Config.Scoring.Threshold)
	if err != nil {
		return nil, err
	}

	opts, err := searchOptions(e.Config.Search)
	if err != nil {
		return nil, err
	}

	loadID := uuid.NewString()
	e.Graphs.Reset(loadID)

	summary := &RunSummary{
		LoadID:   loadID,
		Source:   source,
		Strategy: strategy.Name(),
		Events:   corpus.Len(),
		Labels:   corpus.Labels(),
	}

	workers := e.Config.Search.Workers
	if workers < 1 {
		workers = 1
	}

	facts := abduct.NewFactSet()
	events := corpus.Events()
	for lo := 0; lo < len(events); lo += workers {
		hi := lo + workers
		if hi > len(events) {
			hi = len(events)
		}

		// Each wave searches against a frozen snapshot of the facts
		// established before the wave. Events within a wave cannot see
		// each other, so results do not depend on worker count.
		wave, err := e.runWave(ctx, events[lo:hi], v, corpus, facts, opts, strategy)
		if err != nil {
			return nil, err
		}
		summary.Results = append(summary.Results, wave...)

		for _, ev := range events[lo:hi] {
			facts = facts.Append(ev.ID, ev.Timestamp, ev.Attrs())
		}
	}

	summary.Elapsed = time.Since(start)
	summary.Evaluation = evaluate(summary.Results)

	if e.DB != nil {
		if err := e.persist(summary, events); err != nil {
			return nil, err
		}
	}

	log.Printf("engine: analyzed %d events in %s (load %s)", summary.Events, summary.Elapsed.Round(time.Millisecond), loadID)
	return summary, nil
}

func (e *Engine) runWave(ctx context.Context, wave []event.Event, v *vocab.Vocabulary, corpus *event.Store, facts *abduct.FactSet, opts abduct.Options, strategy score.Strategy) ([]EventResult, error) {
	type outcome struct {
		idx int
		res EventResult
		err error
	}

	ch := make(chan outcome, len(wave))
	for i, ev := range wave {
		go func(i int, ev event.Event) {
			res, err := e.analyzeOne(ctx, ev, v, corpus, facts, opts, strategy)
			ch <- outcome{idx: i, res: res, err: err}
		}(i, ev)
	}

	results := make([]EventResult, len(wave))
	var firstErr error
	for range wave {
		out := <-ch
		if out.err != nil {
			if firstErr == nil {
				firstErr = out.err
			}
			continue
		}
		results[out.idx] = out.res
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (e *Engine) analyzeOne(ctx context.Context, ev event.Event, v *vocab.Vocabulary, corpus *event.Store, facts *abduct.FactSet, opts abduct.Options, strategy score.Strategy) (EventResult, error) {
	desc := v.Encode(ev)

	res, err := abduct.Search(ctx, ev, desc, v, corpus, facts, opts)
	if err != nil {
		return EventResult{}, fmt.Errorf("event %d: %w", ev.ID, err)
	}

	if err := e.Graphs.Record(ev.ID, abduct.Explain(res)); err != nil {
		return EventResult{}, err
	}

	return EventResult{
		EventID:        ev.ID,
		Timestamp:      ev.Timestamp,
		Label:          ev.Label(),
		Cd:             desc.Total,
		Cg:             res.Cost,
		Unexpectedness: score.Unexpectedness(desc.Total, res.Cost),
		Score:          strategy.Score(desc.Total, res.Cost),
		State:          res.State.String(),
		FellBack:       res.FellBack,
		Gaps:           desc.Gaps,
		Truth:          ev.GroundTruth(),
		Steps:          res.Steps,
	}, nil
}

// evaluate scores the ranking against the corpus's ground-truth flags.
// Nil when the flags do not cover both classes.
func evaluate(results []EventResult) *score.Evaluation {
	scored := make([]score.LabeledScore, len(results))
	for i, r := range results {
		scored[i] = score.LabeledScore{Score: r.Score, Truth: r.Truth}
	}
	return score.Evaluate(scored)
}

func (e *Engine) persist(summary *RunSummary, events []event.Event) error {
	if err := e.DB.CreateLoad(summary.LoadID, summary.Source, summary.Events); err != nil {
		return err
	}
	for _, ev := range events {
		attrs := make(map[string]string, len(ev.Attrs()))
		for _, a := range ev.Attrs() {
			attrs[a.Key] = a.Value.Canon()
		}
		if err := e.DB.AddEvent(summary.LoadID, ev.ID, ev.Timestamp, attrs); err != nil {
			return err
		}
	}
	for _, r := range summary.Results {
		if err := e.DB.AddResult(store.Result{
			LoadID:         summary.LoadID,
			EventID:        r.EventID,
			Cd:             r.Cd,
			Cg:             r.Cg,
			Unexpectedness: r.Unexpectedness,
			Score:          r.Score,
			Strategy:       summary.Strategy,
			State:          r.State,
			FellBack:       r.FellBack,
			Gaps:           r.Gaps,
			Truth:          r.Truth,
		}); err != nil {
			return err
		}
		g, err := e.Graphs.Get(r.EventID)
		if err != nil {
			return err
		}
		if err := e.DB.AddGraph(summary.LoadID, r.EventID, g); err != nil {
			return err
		}
	}
	return nil
}

func buildVocabulary(corpus *event.Store, cfg config.VocabularyConfig) (*vocab.Vocabulary, error) {
	if cfg.Scheme == "manual" {
		return vocab.Manual(cfg.Costs)
	}

	vc := vocab.Config{
		Scheme:       vocab.Scheme(cfg.Scheme),
		Fallback:     vocab.FallbackPolicy(cfg.Fallback),
		FallbackCost: cfg.FallbackCost,
	}
	return vocab.Build(corpus.Events(), vc)
}

func searchOptions(cfg config.SearchConfig) (abduct.Options, error) {
	opts := abduct.Options{
		Budget: abduct.Budget{
			MaxExpansions: cfg.MaxExpansions,
			MaxDepth:      cfg.MaxDepth,
			MaxDuration:   cfg.MaxDuration(),
		},
	}
	switch cfg.Fallback {
	case "", "raw":
		opts.Fallback = abduct.FallbackRaw
	case "error":
		opts.Fallback = abduct.FallbackError
	default:
		return opts, fmt.Errorf("unknown search fallback %q", cfg.Fallback)
	}
	return opts, nil
}
