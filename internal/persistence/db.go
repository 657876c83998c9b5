// Package persistence provides SQLite storage for exploration runs: the
// reports explorers hand off, the cells and victims inside them, and the
// run's event log.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/rescue-explorer/internal/engine"
	"github.com/talgya/rescue-explorer/internal/explorer"
	"github.com/talgya/rescue-explorer/internal/world"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path, creating its
// directory if needed.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		grid_width INTEGER NOT NULL,
		grid_height INTEGER NOT NULL,
		base_x INTEGER NOT NULL,
		base_y INTEGER NOT NULL,
		started_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		agent TEXT NOT NULL,
		agent_index INTEGER NOT NULL,
		cells INTEGER NOT NULL,
		victims INTEGER NOT NULL,
		stats_json TEXT NOT NULL,
		UNIQUE (run_id, agent)
	);

	CREATE TABLE IF NOT EXISTS cells (
		run_id TEXT NOT NULL,
		agent TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		difficulty REAL NOT NULL,
		victim INTEGER NOT NULL,
		walls_json TEXT NOT NULL,
		PRIMARY KEY (run_id, agent, x, y)
	);

	CREATE TABLE IF NOT EXISTS victims (
		run_id TEXT NOT NULL,
		agent TEXT NOT NULL,
		victim_id INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		vitals_json TEXT NOT NULL,
		PRIMARY KEY (run_id, agent, victim_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		agent TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_victims_run ON victims(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun registers a new run on grid g and returns its identifier.
func (db *DB) BeginRun(seed int64, g *world.Grid) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, seed, grid_width, grid_height, base_x, base_y)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, seed, g.Width, g.Height, g.Base.X, g.Base.Y,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// HasRun reports whether a run with the given identifier exists.
func (db *DB) HasRun(runID string) bool {
	var count int
	err := db.conn.Get(&count, "SELECT COUNT(*) FROM runs WHERE id = ?", runID)
	return err == nil && count > 0
}

// SaveReport writes an explorer's report, its cells, and its victims in
// one transaction. A second report from the same explorer is rejected.
func (db *DB) SaveReport(runID string, r explorer.Report) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statsJSON, _ := json.Marshal(r.Stats)
	if _, err := tx.Exec(
		`INSERT INTO reports (run_id, agent, agent_index, cells, victims, stats_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, r.Agent, r.Index, r.Map.Len(), len(r.Victims), string(statsJSON),
	); err != nil {
		return fmt.Errorf("insert report %s: %w", r.Agent, err)
	}

	cellStmt, err := tx.Preparex(`INSERT OR REPLACE INTO cells
		(run_id, agent, x, y, difficulty, victim, walls_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cellStmt.Close()

	var cellErr error
	r.Map.Each(func(p world.Position, c world.Cell) {
		if cellErr != nil {
			return
		}
		wallsJSON, _ := json.Marshal(c.Walls)
		if _, err := cellStmt.Exec(runID, r.Agent, p.X, p.Y, c.Difficulty, int(c.Victim), string(wallsJSON)); err != nil {
			cellErr = fmt.Errorf("insert cell %s: %w", p, err)
		}
	})
	if cellErr != nil {
		return cellErr
	}

	for id, v := range r.Victims {
		vitalsJSON, _ := json.Marshal(v.Vitals)
		if _, err := tx.Exec(
			`INSERT INTO victims (run_id, agent, victim_id, x, y, vitals_json)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, r.Agent, int(id), v.Pos.X, v.Pos.Y, string(vitalsJSON),
		); err != nil {
			return fmt.Errorf("insert victim %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("report saved", "run", runID, "explorer", r.Agent, "cells", r.Map.Len(), "victims", len(r.Victims))
	return nil
}

type cellRow struct {
	X          int     `db:"x"`
	Y          int     `db:"y"`
	Difficulty float64 `db:"difficulty"`
	Victim     int     `db:"victim"`
	WallsJSON  string  `db:"walls_json"`
}

// LoadCells rebuilds the map an explorer handed off in a run.
func (db *DB) LoadCells(runID, agent string) (*world.Map, error) {
	var rows []cellRow
	if err := db.conn.Select(&rows,
		"SELECT x, y, difficulty, victim, walls_json FROM cells WHERE run_id = ? AND agent = ?",
		runID, agent,
	); err != nil {
		return nil, fmt.Errorf("select cells: %w", err)
	}

	m := world.NewMap()
	for _, r := range rows {
		var walls world.WallInfo
		if err := json.Unmarshal([]byte(r.WallsJSON), &walls); err != nil {
			return nil, fmt.Errorf("decode walls at (%d,%d): %w", r.X, r.Y, err)
		}
		m.Put(world.Position{X: r.X, Y: r.Y}, world.Cell{
			Difficulty: r.Difficulty,
			Victim:     world.VictimID(r.Victim),
			Walls:      walls,
		})
	}
	return m, nil
}

type victimRow struct {
	VictimID   int    `db:"victim_id"`
	X          int    `db:"x"`
	Y          int    `db:"y"`
	VitalsJSON string `db:"vitals_json"`
}

// LoadVictims returns every victim found in a run. When several explorers
// found the same victim, the earliest report wins.
func (db *DB) LoadVictims(runID string) (explorer.VictimTable, error) {
	var rows []victimRow
	if err := db.conn.Select(&rows,
		`SELECT v.victim_id, v.x, v.y, v.vitals_json
		 FROM victims v JOIN reports r ON r.run_id = v.run_id AND r.agent = v.agent
		 WHERE v.run_id = ?
		 ORDER BY r.id, v.victim_id`,
		runID,
	); err != nil {
		return nil, fmt.Errorf("select victims: %w", err)
	}

	table := make(explorer.VictimTable, len(rows))
	for _, r := range rows {
		id := world.VictimID(r.VictimID)
		if _, ok := table[id]; ok {
			continue
		}
		var vitals []float64
		if err := json.Unmarshal([]byte(r.VitalsJSON), &vitals); err != nil {
			return nil, fmt.Errorf("decode vitals of victim %d: %w", r.VictimID, err)
		}
		table[id] = explorer.VictimRecord{Pos: world.Position{X: r.X, Y: r.Y}, Vitals: vitals}
	}
	return table, nil
}

// ReportAgents lists the explorers that reported in a run, in arrival order.
func (db *DB) ReportAgents(runID string) ([]string, error) {
	var agents []string
	err := db.conn.Select(&agents, "SELECT agent FROM reports WHERE run_id = ? ORDER BY id", runID)
	return agents, err
}

// SaveEvents appends events to the run's log.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, agent, description, category) VALUES (?, ?, ?, ?, ?)",
			runID, e.Tick, e.Agent, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, agent, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair for a run.
func (db *DB) SaveMeta(runID, key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		runID, key, value,
	)
	return err
}

// ErrNoMeta is returned by GetMeta for a missing key.
var ErrNoMeta = errors.New("meta key not found")

// GetMeta retrieves a metadata value of a run.
func (db *DB) GetMeta(runID, key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE run_id = ? AND key = ?", runID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", key, ErrNoMeta)
	}
	return value, err
}

// RunSink binds the database to one run so it can receive handoffs.
type RunSink struct {
	db    *DB
	runID string
}

// Run returns a sink that saves reports under runID.
func (db *DB) Run(runID string) *RunSink {
	return &RunSink{db: db, runID: runID}
}

// ID returns the run identifier.
func (s *RunSink) ID() string {
	return s.runID
}

// SaveReport stores r under the sink's run.
func (s *RunSink) SaveReport(r explorer.Report) error {
	return s.db.SaveReport(s.runID, r)
}
