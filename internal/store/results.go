package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Load describes one analyzed corpus.
type Load struct {
	LoadID     string
	Source     string
	EventCount int
	LoadedAt   int64
}

// Result is one event's persisted outcome.
type Result struct {
	LoadID         string  `json:"load_id"`
	EventID        int     `json:"event_id"`
	Cd             float64 `json:"cd"`
	Cg             float64 `json:"cg"`
	Unexpectedness float64 `json:"unexpectedness"`
	Score          float64 `json:"score"`
	Strategy       string  `json:"strategy"`
	State          string  `json:"state"`
	FellBack       bool    `json:"fell_back"`
	Gaps           int     `json:"gaps"`
	Truth          bool    `json:"truth"`
}

// StoredEvent is a corpus row as persisted with its load.
type StoredEvent struct {
	LoadID    string          `json:"load_id"`
	EventID   int             `json:"event_id"`
	Timestamp int64           `json:"timestamp"`
	Attrs     json.RawMessage `json:"attrs"`
}

// CreateLoad records a new analyzed corpus.
func (db *DB) CreateLoad(loadID, source string, eventCount int) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO loads (load_id, source, event_count, loaded_at)
		VALUES (?, ?, ?, ?)
	`, loadID, source, eventCount, now)
	if err != nil {
		return fmt.Errorf("create load: %w", err)
	}
	return nil
}

// LatestLoad returns the most recently recorded load, or nil when the
// database is empty.
func (db *DB) LatestLoad() (*Load, error) {
	var l Load
	err := db.QueryRow(`
		SELECT load_id, source, event_count, loaded_at
		FROM loads ORDER BY loaded_at DESC, id DESC LIMIT 1
	`).Scan(&l.LoadID, &l.Source, &l.EventCount, &l.LoadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest load: %w", err)
	}
	return &l, nil
}

// AddEvent persists one corpus event under a load.
func (db *DB) AddEvent(loadID string, eventID int, timestamp int64, attrs any) error {
	blob, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshal event attrs: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO events (load_id, event_id, timestamp, attrs_json)
		VALUES (?, ?, ?, ?)
	`, loadID, eventID, timestamp, string(blob))
	if err != nil {
		return fmt.Errorf("add event: %w", err)
	}
	return nil
}

// Events returns the persisted corpus of a load in chronological order.
func (db *DB) Events(loadID string) ([]StoredEvent, error) {
	rows, err := db.Query(`
		SELECT load_id, event_id, timestamp, attrs_json
		FROM events WHERE load_id = ? ORDER BY timestamp, event_id
	`, loadID)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var blob string
		if err := rows.Scan(&e.LoadID, &e.EventID, &e.Timestamp, &blob); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Attrs = json.RawMessage(blob)
		events = append(events, e)
	}
	return events, rows.Err()
}

// AddResult persists one event's complexities and score.
func (db *DB) AddResult(r Result) error {
	_, err := db.Exec(`
		INSERT INTO results (load_id, event_id, cd, cg, unexpectedness, score, strategy, state, fell_back, gaps, truth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.LoadID, r.EventID, r.Cd, r.Cg, r.Unexpectedness, r.Score, r.Strategy, r.State, r.FellBack, r.Gaps, r.Truth)
	if err != nil {
		return fmt.Errorf("add result: %w", err)
	}
	return nil
}

// Results returns a load's results ordered by score descending (ties by
// event id, so rankings are stable).
func (db *DB) Results(loadID string) ([]Result, error) {
	rows, err := db.Query(`
		SELECT load_id, event_id, cd, cg, unexpectedness, score, strategy, state, fell_back, gaps, truth
		FROM results WHERE load_id = ? ORDER BY score DESC, event_id
	`, loadID)
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.LoadID, &r.EventID, &r.Cd, &r.Cg, &r.Unexpectedness, &r.Score, &r.Strategy, &r.State, &r.FellBack, &r.Gaps, &r.Truth); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetResult returns one event's result in a load, or nil when absent.
func (db *DB) GetResult(loadID string, eventID int) (*Result, error) {
	var r Result
	err := db.QueryRow(`
		SELECT load_id, event_id, cd, cg, unexpectedness, score, strategy, state, fell_back, gaps, truth
		FROM results WHERE load_id = ? AND event_id = ?
	`, loadID, eventID).Scan(&r.LoadID, &r.EventID, &r.Cd, &r.Cg, &r.Unexpectedness, &r.Score, &r.Strategy, &r.State, &r.FellBack, &r.Gaps, &r.Truth)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return &r, nil
}

// AddGraph persists an event's serialized derivation graph.
func (db *DB) AddGraph(loadID string, eventID int, graph any) error {
	blob, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO graphs (load_id, event_id, graph_json)
		VALUES (?, ?, ?)
	`, loadID, eventID, string(blob))
	if err != nil {
		return fmt.Errorf("add graph: %w", err)
	}
	return nil
}

// GetGraph returns an event's serialized graph, or nil when absent.
func (db *DB) GetGraph(loadID string, eventID int) (json.RawMessage, error) {
	var blob string
	err := db.QueryRow(`
		SELECT graph_json FROM graphs WHERE load_id = ? AND event_id = ?
	`, loadID, eventID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get graph: %w", err)
	}
	return json.RawMessage(blob), nil
}
