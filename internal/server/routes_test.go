package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkealey/salience/internal/graph"
	"github.com/mkealey/salience/internal/store"
)

func testServer(t *testing.T) (*Server, *store.DB, *graph.Store) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	graphs := graph.NewStore()
	return New(db, graphs, "test"), db, graphs
}

func seedLoad(t *testing.T, db *store.DB, loadID string) {
	t.Helper()
	if err := db.CreateLoad(loadID, "data/*.csv", 2); err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}
	if err := db.AddEvent(loadID, 0, 100, map[string]string{"label": "reading"}); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if err := db.AddEvent(loadID, 1, 200, map[string]string{"label": "alarm"}); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	results := []store.Result{
		{LoadID: loadID, EventID: 0, Cd: 5, Cg: 5, Score: 0, Strategy: "raw", State: "found"},
		{LoadID: loadID, EventID: 1, Cd: 10, Cg: 17, Unexpectedness: 7, Score: 7, Strategy: "raw", State: "found", Truth: true},
	}
	for _, r := range results {
		if err := db.AddResult(r); err != nil {
			t.Fatalf("AddResult: %v", err)
		}
	}
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestResultsRanked(t *testing.T) {
	srv, db, _ := testServer(t)
	seedLoad(t, db, "load-1")

	w := get(t, srv, "/api/results")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		LoadID  string         `json:"load_id"`
		Results []store.Result `json:"results"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.LoadID != "load-1" {
		t.Errorf("load_id = %q, want load-1", resp.LoadID)
	}
	if len(resp.Results) != 2 || resp.Results[0].EventID != 1 {
		t.Errorf("results not ranked by score: %+v", resp.Results)
	}
}

func TestResultsEmptyDB(t *testing.T) {
	srv, _, _ := testServer(t)

	w := get(t, srv, "/api/results")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestEvaluation(t *testing.T) {
	srv, db, _ := testServer(t)
	seedLoad(t, db, "load-1")

	w := get(t, srv, "/api/evaluation")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		LoadID     string `json:"load_id"`
		Evaluation struct {
			Positives int     `json:"positives"`
			Negatives int     `json:"negatives"`
			AUC       float64 `json:"auc"`
		} `json:"evaluation"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.LoadID != "load-1" {
		t.Errorf("load_id = %q, want load-1", resp.LoadID)
	}
	if resp.Evaluation.Positives != 1 || resp.Evaluation.Negatives != 1 {
		t.Errorf("classes = %d/%d, want 1/1", resp.Evaluation.Positives, resp.Evaluation.Negatives)
	}
	// The flagged event holds the top score, so separation is perfect.
	if resp.Evaluation.AUC != 1.0 {
		t.Errorf("AUC = %v, want 1", resp.Evaluation.AUC)
	}
}

func TestEvaluationWithoutFlags(t *testing.T) {
	srv, db, _ := testServer(t)
	if err := db.CreateLoad("load-1", "data/*.csv", 1); err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}
	if err := db.AddResult(store.Result{LoadID: "load-1", EventID: 0, Score: 1, Strategy: "raw", State: "found"}); err != nil {
		t.Fatalf("AddResult: %v", err)
	}

	w := get(t, srv, "/api/evaluation")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d for a flagless load", w.Code, http.StatusNotFound)
	}
}

func TestEvaluationEmptyDB(t *testing.T) {
	srv, _, _ := testServer(t)

	w := get(t, srv, "/api/evaluation")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestResultByEvent(t *testing.T) {
	srv, db, _ := testServer(t)
	seedLoad(t, db, "load-1")

	w := get(t, srv, "/api/results/1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var r store.Result
	json.Unmarshal(w.Body.Bytes(), &r)
	if r.EventID != 1 || r.Score != 7 {
		t.Errorf("result = %+v", r)
	}

	if w := get(t, srv, "/api/results/99"); w.Code != http.StatusNotFound {
		t.Errorf("missing event status = %d, want 404", w.Code)
	}
	if w := get(t, srv, "/api/results/xyz"); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestEvents(t *testing.T) {
	srv, db, _ := testServer(t)
	seedLoad(t, db, "load-1")

	w := get(t, srv, "/api/events")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Events []store.StoredEvent `json:"events"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Events) != 2 || resp.Events[0].EventID != 0 {
		t.Errorf("events = %+v", resp.Events)
	}
}

func TestLatestLoad(t *testing.T) {
	srv, db, _ := testServer(t)
	seedLoad(t, db, "load-1")
	seedLoad(t, db, "load-2")

	w := get(t, srv, "/api/loads/latest")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["load_id"] != "load-2" {
		t.Errorf("load_id = %v, want load-2", resp["load_id"])
	}
}

func TestGraphFromMemoryStore(t *testing.T) {
	srv, _, graphs := testServer(t)

	graphs.Reset("load-1")
	g := graph.NewGraph(3)
	g.AddNode(graph.Node{Kind: graph.KindStep, Rule: "direct", Symbol: "a=1", Cost: 4})
	g.Seal()
	if err := graphs.Record(3, g); err != nil {
		t.Fatalf("Record: %v", err)
	}

	w := get(t, srv, "/api/graphs/3")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var got graph.Graph
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.EventID != 3 || len(got.Nodes) == 0 {
		t.Errorf("graph = %+v", got)
	}
}

func TestGraphFallsBackToDB(t *testing.T) {
	srv, db, _ := testServer(t)
	seedLoad(t, db, "load-1")
	if err := db.AddGraph("load-1", 0, map[string]any{"event_id": 0}); err != nil {
		t.Fatalf("AddGraph: %v", err)
	}

	w := get(t, srv, "/api/graphs/0")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
}

func TestGraphNotFound(t *testing.T) {
	srv, db, _ := testServer(t)
	seedLoad(t, db, "load-1")

	if w := get(t, srv, "/api/graphs/42"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := get(t, srv, "/api/graphs/abc"); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}
