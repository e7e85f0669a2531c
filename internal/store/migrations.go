package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "loads: one row per analyzed corpus",
		SQL: `
CREATE TABLE loads (
    id          INTEGER PRIMARY KEY,
    load_id     TEXT NOT NULL UNIQUE,
    source      TEXT NOT NULL,
    event_count INTEGER NOT NULL,
    loaded_at   INTEGER NOT NULL
);

CREATE INDEX idx_loads_loaded_at ON loads(loaded_at DESC);
`,
	},
	{
		Version:     2,
		Description: "events: the corpus rows of a load",
		SQL: `
CREATE TABLE events (
    id         INTEGER PRIMARY KEY,
    load_id    TEXT NOT NULL,
    event_id   INTEGER NOT NULL,
    timestamp  INTEGER NOT NULL,
    attrs_json TEXT NOT NULL,

    UNIQUE (load_id, event_id),
    FOREIGN KEY (load_id) REFERENCES loads(load_id) ON DELETE CASCADE
);

CREATE INDEX idx_events_load ON events(load_id);
`,
	},
	{
		Version:     3,
		Description: "results: per-event complexities and scores",
		SQL: `
CREATE TABLE results (
    id             INTEGER PRIMARY KEY,
    load_id        TEXT NOT NULL,
    event_id       INTEGER NOT NULL,
    cd             REAL NOT NULL,
    cg             REAL NOT NULL,
    unexpectedness REAL NOT NULL,
    score          REAL NOT NULL,
    strategy       TEXT NOT NULL,
    state          TEXT NOT NULL CHECK (state IN ('found', 'exhausted')),
    fell_back      INTEGER NOT NULL DEFAULT 0,
    gaps           INTEGER NOT NULL DEFAULT 0,

    UNIQUE (load_id, event_id),
    FOREIGN KEY (load_id) REFERENCES loads(load_id) ON DELETE CASCADE
);

CREATE INDEX idx_results_load  ON results(load_id);
CREATE INDEX idx_results_score ON results(load_id, score DESC);
`,
	},
	{
		Version:     4,
		Description: "graphs: serialized derivation graphs",
		SQL: `
CREATE TABLE graphs (
    id         INTEGER PRIMARY KEY,
    load_id    TEXT NOT NULL,
    event_id   INTEGER NOT NULL,
    graph_json TEXT NOT NULL,

    UNIQUE (load_id, event_id),
    FOREIGN KEY (load_id) REFERENCES loads(load_id) ON DELETE CASCADE
);

CREATE INDEX idx_graphs_load ON graphs(load_id);
`,
	},
	{
		Version:     5,
		Description: "results: ground-truth notability flag",
		SQL: `
ALTER TABLE results ADD COLUMN truth INTEGER NOT NULL DEFAULT 0;
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
