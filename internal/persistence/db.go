// Package persistence provides SQLite-based savegame storage: the game
// snapshot, the happenings log, and the player's settings.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/empires4x/internal/engine"
	"github.com/talgya/empires4x/internal/game"
	"github.com/talgya/empires4x/internal/settings"
)

// SchemaVersion is stored in world_meta and checked on load.
const SchemaVersion = 1

// ErrNoSave is returned by LoadSnapshot when nothing has been saved yet.
var ErrNoSave = errors.New("persistence: no saved game")

// DB wraps a SQLite connection for savegame persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
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
	CREATE TABLE IF NOT EXISTS hexes (
		seq INTEGER PRIMARY KEY,
		hex_row INTEGER NOT NULL,
		hex_col INTEGER NOT NULL,
		terrain TEXT NOT NULL,
		elevation REAL NOT NULL,
		rainfall REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nations (
		idx INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		frame INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS factions (
		idx INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		nation INTEGER NOT NULL,
		money REAL NOT NULL,
		cursor INTEGER NOT NULL,
		state TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cities (
		seq INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		nation INTEGER NOT NULL,
		hex_row INTEGER NOT NULL,
		hex_col INTEGER NOT NULL,
		stored_food INTEGER NOT NULL,
		queue_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tiles (
		seq INTEGER PRIMARY KEY,
		hex_row INTEGER NOT NULL,
		hex_col INTEGER NOT NULL,
		improvement TEXT NOT NULL,
		improvement_faction INTEGER NOT NULL,
		faction_claims_json TEXT NOT NULL,
		nation_claims_json TEXT NOT NULL,
		laborers_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		faction INTEGER NOT NULL,
		type TEXT NOT NULL,
		hex_row INTEGER NOT NULL,
		hex_col INTEGER NOT NULL,
		moves INTEGER NOT NULL,
		active INTEGER NOT NULL,
		target_row INTEGER,
		target_col INTEGER,
		pending TEXT NOT NULL,
		pending_row INTEGER,
		pending_col INTEGER
	);

	CREATE TABLE IF NOT EXISTS goods (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		faction INTEGER NOT NULL,
		type TEXT NOT NULL,
		hex_row INTEGER NOT NULL,
		hex_col INTEGER NOT NULL,
		origin_row INTEGER NOT NULL,
		origin_col INTEGER NOT NULL,
		target_row INTEGER,
		target_col INTEGER,
		quantity INTEGER NOT NULL,
		rounds INTEGER NOT NULL,
		moves INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		yaml TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_round ON events(round);
	CREATE INDEX IF NOT EXISTS idx_units_faction ON units(faction);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// HasSave reports whether a snapshot has been stored.
func (db *DB) HasSave() bool {
	_, err := db.GetMeta("round")
	return err == nil
}

// SaveGame stores a finished round: the snapshot and that round's happenings.
func (db *DB) SaveGame(r engine.RoundReport) error {
	slog.Info("saving game", "round", r.Stats.Round, "events", len(r.Events))

	if err := db.SaveSnapshot(r.Snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := db.SaveEvents(r.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	return nil
}

// SaveEvents appends happenings to the database.
func (db *DB) SaveEvents(evs []engine.Event) error {
	if len(evs) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range evs {
		_, err := tx.Exec(
			"INSERT INTO events (round, description, category) VALUES (?, ?, ?)",
			e.Round, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent happenings, oldest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var evs []engine.Event
	err := db.conn.Select(&evs,
		`SELECT round, description, category FROM
			(SELECT id, round, description, category FROM events ORDER BY id DESC LIMIT ?)
		ORDER BY id`,
		limit,
	)
	return evs, err
}

// SaveSettings stores the player's settings as YAML.
func (db *DB) SaveSettings(s *settings.Settings) error {
	raw, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT OR REPLACE INTO settings (name, version, yaml) VALUES (?, ?, ?)",
		"player", s.Version, string(raw),
	)
	return err
}

// LoadSettings returns the stored settings, or the defaults when none are stored.
func (db *DB) LoadSettings() (*settings.Settings, error) {
	var raw string
	err := db.conn.Get(&raw, "SELECT yaml FROM settings WHERE name = ?", "player")
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings.Parse([]byte(raw))
}

// SaveSnapshot replaces the stored game with s.
func (db *DB) SaveSnapshot(s *game.Snapshot) error {
	if s == nil {
		return errors.New("persistence: nil snapshot")
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"hexes", "nations", "factions", "cities", "tiles", "units", "goods"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, h := range s.Hexes {
		if _, err := tx.Exec(
			"INSERT INTO hexes (seq, hex_row, hex_col, terrain, elevation, rainfall) VALUES (?, ?, ?, ?, ?, ?)",
			i, h.Row, h.Col, string(h.Terrain), h.Elevation, h.Rainfall,
		); err != nil {
			return fmt.Errorf("insert hex %d,%d: %w", h.Row, h.Col, err)
		}
	}
	for _, n := range s.Nations {
		if _, err := tx.Exec(
			"INSERT INTO nations (idx, name, color, frame) VALUES (?, ?, ?, ?)",
			n.Index, n.Name, n.Color, n.Frame,
		); err != nil {
			return fmt.Errorf("insert nation %s: %w", n.Name, err)
		}
	}
	for _, f := range s.Factions {
		if _, err := tx.Exec(
			"INSERT INTO factions (idx, name, color, nation, money, cursor, state) VALUES (?, ?, ?, ?, ?, ?, ?)",
			f.Index, f.Name, f.Color, f.Nation, f.Money, f.Cursor, f.State,
		); err != nil {
			return fmt.Errorf("insert faction %s: %w", f.Name, err)
		}
	}
	for i, c := range s.Cities {
		queueJSON, _ := json.Marshal(c.Queue)
		if _, err := tx.Exec(
			`INSERT INTO cities (seq, name, nation, hex_row, hex_col, stored_food, queue_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i, c.Name, c.Nation, c.Row, c.Col, c.StoredFood, string(queueJSON),
		); err != nil {
			return fmt.Errorf("insert city %s: %w", c.Name, err)
		}
	}
	for i, t := range s.Tiles {
		factionJSON, _ := json.Marshal(t.FactionClaims)
		nationJSON, _ := json.Marshal(t.NationClaims)
		laborersJSON, _ := json.Marshal(t.Laborers)
		if _, err := tx.Exec(
			`INSERT INTO tiles (seq, hex_row, hex_col, improvement, improvement_faction,
				faction_claims_json, nation_claims_json, laborers_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i, t.Row, t.Col, t.Improvement, t.ImprovementFaction,
			string(factionJSON), string(nationJSON), string(laborersJSON),
		); err != nil {
			return fmt.Errorf("insert tile %d,%d: %w", t.Row, t.Col, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO units
		(seq, id, faction, type, hex_row, hex_col, moves, active,
		 target_row, target_col, pending, pending_row, pending_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, u := range s.Units {
		active := 0
		if u.Active {
			active = 1
		}
		targetRow, targetCol := nullOffset(u.PathTarget)
		pendingRow, pendingCol := nullOffset(u.PendingAt)
		if _, err := stmt.Exec(
			i, u.ID, u.Faction, u.Type, u.Row, u.Col, u.Moves, active,
			targetRow, targetCol, u.Pending, pendingRow, pendingCol,
		); err != nil {
			return fmt.Errorf("insert unit %s: %w", u.ID, err)
		}
	}

	for i, gd := range s.Goods {
		targetRow, targetCol := nullOffset(gd.Target)
		if _, err := tx.Exec(
			`INSERT INTO goods (seq, id, faction, type, hex_row, hex_col, origin_row, origin_col,
				target_row, target_col, quantity, rounds, moves)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, gd.ID, gd.Faction, gd.Type, gd.Row, gd.Col, gd.Origin.Row, gd.Origin.Col,
			targetRow, targetCol, gd.Quantity, gd.Rounds, gd.Moves,
		); err != nil {
			return fmt.Errorf("insert goods %s: %w", gd.ID, err)
		}
	}

	meta := map[string]string{
		"round":          strconv.Itoa(s.Round),
		"round_over":     strconv.FormatBool(s.RoundOver),
		"current":        strconv.Itoa(s.Current),
		"schema_version": strconv.Itoa(SchemaVersion),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}
