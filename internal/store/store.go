// Package store persists GraphData and SweepResult blobs in SQLite, keyed
// by the identity of their inputs so unchanged inputs skip recomputation.
// Cached values are treated as immutable once written.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/halfamerica/tractcut/internal/model"
)

// Store wraps the SQLite cache database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and configures WAL
// mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS graphs (
	key      TEXT PRIMARY KEY,
	payload  TEXT NOT NULL,
	built_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sweeps (
	id         TEXT PRIMARY KEY,
	graph_key  TEXT NOT NULL,
	config_key TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sweeps_graph_config ON sweeps(graph_key, config_key);
`

// Migrate creates the schema if needed.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveGraph stores a built graph under its input-identity key, replacing
// any previous build for the same key.
func (s *Store) SaveGraph(ctx context.Context, key string, gd *model.GraphData) error {
	payload, err := json.Marshal(gd)
	if err != nil {
		return eris.Wrap(err, "store: marshal graph")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO graphs (key, payload) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, built_at = datetime('now')`,
		key, string(payload),
	)
	return eris.Wrap(err, "store: save graph")
}

// LoadGraph returns the cached graph for key, or found=false on a miss.
func (s *Store) LoadGraph(ctx context.Context, key string) (*model.GraphData, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM graphs WHERE key = ?`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "store: load graph")
	}
	var gd model.GraphData
	if err := json.Unmarshal([]byte(payload), &gd); err != nil {
		return nil, false, eris.Wrap(err, "store: unmarshal graph")
	}
	return &gd, true, nil
}

// SaveSweep stores one sweep result for (graphKey, configKey), replacing a
// previous run of the same configuration.
func (s *Store) SaveSweep(ctx context.Context, graphKey, configKey string, sr *model.SweepResult) (string, error) {
	payload, err := json.Marshal(sr)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal sweep")
	}
	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sweeps (id, graph_key, config_key, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(graph_key, config_key) DO UPDATE SET
		   payload = excluded.payload, created_at = datetime('now')`,
		id, graphKey, configKey, string(payload),
	)
	if err != nil {
		return "", eris.Wrap(err, "store: save sweep")
	}
	return id, nil
}

// LoadSweep returns the cached sweep for (graphKey, configKey), or
// found=false on a miss.
func (s *Store) LoadSweep(ctx context.Context, graphKey, configKey string) (*model.SweepResult, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM sweeps WHERE graph_key = ? AND config_key = ?`,
		graphKey, configKey,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "store: load sweep")
	}
	var sr model.SweepResult
	if err := json.Unmarshal([]byte(payload), &sr); err != nil {
		return nil, false, eris.Wrap(err, "store: unmarshal sweep")
	}
	return &sr, true, nil
}
