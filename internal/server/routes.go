package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkealey/salience/internal/graph"
	"github.com/mkealey/salience/internal/score"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleLatestLoad(w http.ResponseWriter, r *http.Request) {
	load, err := s.db.LatestLoad()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if load == nil {
		writeError(w, http.StatusNotFound, "no loads recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"load_id":     load.LoadID,
		"source":      load.Source,
		"event_count": load.EventCount,
		"loaded_at":   load.LoadedAt,
	})
}

// handleResults returns the latest load's results ranked by score.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	load, err := s.db.LatestLoad()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if load == nil {
		writeError(w, http.StatusNotFound, "no loads recorded yet")
		return
	}

	results, err := s.db.Results(load.LoadID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"load_id": load.LoadID,
		"results": results,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "event id must be an integer")
		return
	}

	load, err := s.db.LatestLoad()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if load == nil {
		writeError(w, http.StatusNotFound, "no loads recorded yet")
		return
	}

	result, err := s.db.GetResult(load.LoadID, eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "no result for event "+strconv.Itoa(eventID))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleEvaluation returns the ROC curve of the latest load's scores
// against its ground-truth flags. 404 when the corpus carries no flags,
// or flags for only one class.
func (s *Server) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	load, err := s.db.LatestLoad()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if load == nil {
		writeError(w, http.StatusNotFound, "no loads recorded yet")
		return
	}

	results, err := s.db.Results(load.LoadID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scored := make([]score.LabeledScore, len(results))
	for i, res := range results {
		scored[i] = score.LabeledScore{Score: res.Score, Truth: res.Truth}
	}
	ev := score.Evaluate(scored)
	if ev == nil {
		writeError(w, http.StatusNotFound, "load has no ground-truth flags to evaluate against")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"load_id":    load.LoadID,
		"evaluation": ev,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	load, err := s.db.LatestLoad()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if load == nil {
		writeError(w, http.StatusNotFound, "no loads recorded yet")
		return
	}

	events, err := s.db.Events(load.LoadID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"load_id": load.LoadID,
		"events":  events,
	})
}

// handleGraph serves an event's derivation graph from the latest run. The
// in-memory store answers first; on a restart it is empty, so the
// persisted copy is the fallback.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "event id must be an integer")
		return
	}

	if s.graphs != nil {
		g, err := s.graphs.Get(eventID)
		if err == nil {
			writeJSON(w, http.StatusOK, g)
			return
		}
		if !errors.Is(err, graph.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	load, err := s.db.LatestLoad()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if load == nil {
		writeError(w, http.StatusNotFound, "no graph for event "+strconv.Itoa(eventID))
		return
	}

	blob, err := s.db.GetGraph(load.LoadID, eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if blob == nil {
		writeError(w, http.StatusNotFound, "no graph for event "+strconv.Itoa(eventID))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(blob)
}
