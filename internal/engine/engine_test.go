package engine

import (
	"context"
	"reflect"
	"testing"

	"github.com/mkealey/salience/internal/config"
	"github.com/mkealey/salience/internal/event"
	"github.com/mkealey/salience/internal/store"
)

// routineCorpus is nine near-identical sensor readings and one oddball.
func routineCorpus(t *testing.T) *event.Store {
	t.Helper()
	var records []event.Record
	for i := 0; i < 9; i++ {
		records = append(records, event.Record{
			ID: i, Timestamp: int64(100 * (i + 1)), HasTime: true, Duration: -1,
			Attrs: map[string]event.Value{
				"label": event.TextValue("reading"),
				"room":  event.TextValue("kitchen"),
				"temp":  event.NumValue(21),
			},
		})
	}
	records = append(records, event.Record{
		ID: 9, Timestamp: 1000, HasTime: true, Duration: -1,
		Attrs: map[string]event.Value{
			"label": event.TextValue("alarm"),
			"room":  event.TextValue("attic"),
			"temp":  event.NumValue(70),
		},
	})
	s, err := event.Load(records, event.FailFast)
	if err != nil {
		t.Fatalf("event.Load: %v", err)
	}
	return s
}

func TestRunRanksOddballHighest(t *testing.T) {
	corpus := routineCorpus(t)
	eng := New(nil, config.Default())

	summary, err := eng.Run(context.Background(), corpus, "test-corpus")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Events != 10 || len(summary.Results) != 10 {
		t.Fatalf("got %d results for %d events", len(summary.Results), summary.Events)
	}

	// The first routine reading is also surprising (nothing to recall yet),
	// so the hard guarantee is that the oddball outranks every repeat.
	oddball := summary.Results[9]
	for _, r := range summary.Results[1:9] {
		if oddball.Score <= r.Score {
			t.Errorf("oddball score %v not above repeat event %d's %v", oddball.Score, r.EventID, r.Score)
		}
	}

	ranked := summary.Ranked()
	if ranked[0].EventID != 9 && ranked[1].EventID != 9 {
		t.Errorf("oddball not in top two: %d, %d", ranked[0].EventID, ranked[1].EventID)
	}
}

func TestRunRepeatedEventsGetCheaper(t *testing.T) {
	corpus := routineCorpus(t)
	eng := New(nil, config.Default())

	summary, err := eng.Run(context.Background(), corpus, "test-corpus")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The first routine reading has no prior facts to recall; the later
	// identical ones do, so their generation complexity must not exceed it.
	first := summary.Results[0]
	for _, r := range summary.Results[1:9] {
		if r.Cg > first.Cg {
			t.Errorf("event %d: Cg = %v exceeds first occurrence's %v", r.EventID, r.Cg, first.Cg)
		}
	}
}

func TestRunDeterministicAcrossWorkerCounts(t *testing.T) {
	corpus := routineCorpus(t)

	run := func(workers int) *RunSummary {
		cfg := config.Default()
		cfg.Search.Workers = workers
		summary, err := New(nil, cfg).Run(context.Background(), corpus, "test-corpus")
		if err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		return summary
	}

	sequential := run(1)
	for _, workers := range []int{2, 4} {
		parallel := run(workers)
		for i := range sequential.Results {
			a, b := sequential.Results[i], parallel.Results[i]
			if a.EventID != b.EventID || a.Cd != b.Cd || a.Score != b.Score {
				t.Errorf("workers=%d: result %d differs: %+v vs %+v", workers, i, a, b)
			}
		}
		// Ranking must also be identical.
		seqIDs := make([]int, 0, len(sequential.Results))
		parIDs := make([]int, 0, len(parallel.Results))
		for _, r := range sequential.Ranked() {
			seqIDs = append(seqIDs, r.EventID)
		}
		for _, r := range parallel.Ranked() {
			parIDs = append(parIDs, r.EventID)
		}
		if !reflect.DeepEqual(seqIDs, parIDs) {
			t.Errorf("workers=%d: ranking differs: %v vs %v", workers, seqIDs, parIDs)
		}
	}
}

func TestRunWaveIsolation(t *testing.T) {
	// With every event in one wave, none can recall another: the last
	// routine event must cost the same as the first occurrence.
	corpus := routineCorpus(t)

	cfg := config.Default()
	cfg.Search.Workers = corpus.Len()
	oneWave, err := New(nil, cfg).Run(context.Background(), corpus, "test-corpus")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if oneWave.Results[8].Cg != oneWave.Results[0].Cg {
		t.Errorf("single-wave run let events see each other: Cg %v vs %v",
			oneWave.Results[8].Cg, oneWave.Results[0].Cg)
	}
}

func TestRunPersists(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	corpus := routineCorpus(t)
	eng := New(db, config.Default())

	summary, err := eng.Run(context.Background(), corpus, "test-corpus")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	load, err := db.LatestLoad()
	if err != nil {
		t.Fatalf("LatestLoad: %v", err)
	}
	if load == nil || load.LoadID != summary.LoadID {
		t.Fatalf("LatestLoad = %+v, want load %s", load, summary.LoadID)
	}
	if load.Source != "test-corpus" || load.EventCount != 10 {
		t.Errorf("load metadata = %+v", load)
	}

	results, err := db.Results(summary.LoadID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 10 {
		t.Errorf("persisted %d results, want 10", len(results))
	}

	g, err := db.GetGraph(summary.LoadID, 9)
	if err != nil {
		t.Fatalf("GetGraph: %v", err)
	}
	if g == nil {
		t.Error("no graph persisted for event 9")
	}

	events, err := db.Events(summary.LoadID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 10 {
		t.Errorf("persisted %d events, want 10", len(events))
	}
}

// flaggedCorpus is routineCorpus with the oddball marked ground-truth
// notable.
func flaggedCorpus(t *testing.T) *event.Store {
	t.Helper()
	var records []event.Record
	for i := 0; i < 9; i++ {
		records = append(records, event.Record{
			ID: i, Timestamp: int64(100 * (i + 1)), HasTime: true, Duration: -1,
			Attrs: map[string]event.Value{
				"label": event.TextValue("reading"),
				"room":  event.TextValue("kitchen"),
				"temp":  event.NumValue(21),
			},
		})
	}
	records = append(records, event.Record{
		ID: 9, Timestamp: 1000, HasTime: true, Duration: -1, Truth: true,
		Attrs: map[string]event.Value{
			"label": event.TextValue("alarm"),
			"room":  event.TextValue("attic"),
			"temp":  event.NumValue(70),
		},
	})
	s, err := event.Load(records, event.FailFast)
	if err != nil {
		t.Fatalf("event.Load: %v", err)
	}
	return s
}

func TestRunEvaluatesGroundTruth(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	corpus := flaggedCorpus(t)
	eng := New(db, config.Default())

	summary, err := eng.Run(context.Background(), corpus, "test-corpus")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !summary.Results[9].Truth {
		t.Error("oddball result lost its ground-truth flag")
	}
	if summary.Results[0].Truth {
		t.Error("routine result gained a ground-truth flag")
	}

	ev := summary.Evaluation
	if ev == nil {
		t.Fatal("no evaluation despite both classes present")
	}
	if ev.Positives != 1 || ev.Negatives != 9 {
		t.Errorf("evaluation classes = %d/%d, want 1/9", ev.Positives, ev.Negatives)
	}
	// The oddball outranks every repeat; at worst the cold-start first
	// reading sits above it.
	if ev.AUC < 8.0/9 {
		t.Errorf("AUC = %v, want at least 8/9", ev.AUC)
	}

	persisted, err := db.GetResult(summary.LoadID, 9)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if persisted == nil || !persisted.Truth {
		t.Errorf("persisted oddball result = %+v, want truth flag set", persisted)
	}
}

func TestRunEvaluationNilWithoutFlags(t *testing.T) {
	corpus := routineCorpus(t)
	eng := New(nil, config.Default())

	summary, err := eng.Run(context.Background(), corpus, "test-corpus")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Evaluation != nil {
		t.Errorf("Evaluation = %+v, want nil for an unflagged corpus", summary.Evaluation)
	}
	if len(summary.Labels) != 2 || summary.Labels[0] != "reading" {
		t.Errorf("Labels = %v, want [reading alarm]", summary.Labels)
	}
}

func TestRunGraphStoreTracksLatestRun(t *testing.T) {
	corpus := routineCorpus(t)
	eng := New(nil, config.Default())

	first, err := eng.Run(context.Background(), corpus, "test-corpus")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if eng.Graphs.LoadID() != first.LoadID {
		t.Errorf("graph store load = %s, want %s", eng.Graphs.LoadID(), first.LoadID)
	}
	if eng.Graphs.Len() != 10 {
		t.Errorf("graph store has %d graphs, want 10", eng.Graphs.Len())
	}

	second, err := eng.Run(context.Background(), corpus, "test-corpus")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if eng.Graphs.LoadID() != second.LoadID {
		t.Errorf("graph store not reset to new load %s", second.LoadID)
	}
}

func TestRunManualVocabulary(t *testing.T) {
	records := []event.Record{
		{ID: 0, Timestamp: 100, HasTime: true, Duration: -1, Attrs: map[string]event.Value{
			"a": event.NumValue(1), "b": event.NumValue(2),
		}},
	}
	corpus, err := event.Load(records, event.FailFast)
	if err != nil {
		t.Fatalf("event.Load: %v", err)
	}

	cfg := config.Default()
	cfg.Vocabulary.Scheme = "manual"
	cfg.Vocabulary.Costs = map[string]float64{"a=1": 1, "b=2": 2}

	summary, err := New(nil, cfg).Run(context.Background(), corpus, "manual")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Results[0].Cd != 3 {
		t.Errorf("Cd = %v, want 3 from the manual cost table", summary.Results[0].Cd)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	corpus := routineCorpus(t)

	cfg := config.Default()
	cfg.Scoring.Strategy = "softmax"
	if _, err := New(nil, cfg).Run(context.Background(), corpus, "x"); err == nil {
		t.Error("expected error for unknown strategy")
	}

	cfg = config.Default()
	cfg.Vocabulary.Scheme = "zipf"
	if _, err := New(nil, cfg).Run(context.Background(), corpus, "x"); err == nil {
		t.Error("expected error for unknown vocabulary scheme")
	}
}
