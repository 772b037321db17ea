package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/talgya/empires4x/internal/game"
	"github.com/talgya/empires4x/internal/world"
)

type hexRow struct {
	Row       int     `db:"hex_row"`
	Col       int     `db:"hex_col"`
	Terrain   string  `db:"terrain"`
	Elevation float64 `db:"elevation"`
	Rainfall  float64 `db:"rainfall"`
}

type cityRow struct {
	Name       string `db:"name"`
	Nation     int    `db:"nation"`
	Row        int    `db:"hex_row"`
	Col        int    `db:"hex_col"`
	StoredFood int    `db:"stored_food"`
	QueueJSON  string `db:"queue_json"`
}

type tileRow struct {
	Row                int    `db:"hex_row"`
	Col                int    `db:"hex_col"`
	Improvement        string `db:"improvement"`
	ImprovementFaction int    `db:"improvement_faction"`
	FactionClaimsJSON  string `db:"faction_claims_json"`
	NationClaimsJSON   string `db:"nation_claims_json"`
	LaborersJSON       string `db:"laborers_json"`
}

type unitRow struct {
	ID         uuid.UUID     `db:"id"`
	Faction    int           `db:"faction"`
	Type       string        `db:"type"`
	Row        int           `db:"hex_row"`
	Col        int           `db:"hex_col"`
	Moves      int           `db:"moves"`
	Active     int           `db:"active"`
	TargetRow  sql.NullInt64 `db:"target_row"`
	TargetCol  sql.NullInt64 `db:"target_col"`
	Pending    string        `db:"pending"`
	PendingRow sql.NullInt64 `db:"pending_row"`
	PendingCol sql.NullInt64 `db:"pending_col"`
}

type goodsRow struct {
	ID        uuid.UUID     `db:"id"`
	Faction   int           `db:"faction"`
	Type      string        `db:"type"`
	Row       int           `db:"hex_row"`
	Col       int           `db:"hex_col"`
	OriginRow int           `db:"origin_row"`
	OriginCol int           `db:"origin_col"`
	TargetRow sql.NullInt64 `db:"target_row"`
	TargetCol sql.NullInt64 `db:"target_col"`
	Quantity  int           `db:"quantity"`
	Rounds    int           `db:"rounds"`
	Moves     int           `db:"moves"`
}

// LoadSnapshot reads the stored game. It returns ErrNoSave when nothing
// has been saved and an error when the save was written by a newer schema.
func (db *DB) LoadSnapshot() (*game.Snapshot, error) {
	if !db.HasSave() {
		return nil, ErrNoSave
	}
	s := &game.Snapshot{}
	if err := db.loadMeta(s); err != nil {
		return nil, err
	}

	var hexes []hexRow
	if err := db.conn.Select(&hexes, "SELECT hex_row, hex_col, terrain, elevation, rainfall FROM hexes ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("load hexes: %w", err)
	}
	for _, h := range hexes {
		s.Hexes = append(s.Hexes, world.Hex{
			Row: h.Row, Col: h.Col, Terrain: world.Terrain(h.Terrain),
			Elevation: h.Elevation, Rainfall: h.Rainfall,
		})
	}

	if err := db.conn.Select(&s.Nations, "SELECT idx AS `index`, name, color, frame FROM nations ORDER BY idx"); err != nil {
		return nil, fmt.Errorf("load nations: %w", err)
	}
	if err := db.conn.Select(&s.Factions,
		"SELECT idx AS `index`, name, color, nation, money, cursor, state FROM factions ORDER BY idx"); err != nil {
		return nil, fmt.Errorf("load factions: %w", err)
	}

	var cities []cityRow
	if err := db.conn.Select(&cities,
		"SELECT name, nation, hex_row, hex_col, stored_food, queue_json FROM cities ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}
	for _, c := range cities {
		cs := game.CityState{Name: c.Name, Nation: c.Nation, Row: c.Row, Col: c.Col, StoredFood: c.StoredFood}
		if err := json.Unmarshal([]byte(c.QueueJSON), &cs.Queue); err != nil {
			return nil, fmt.Errorf("city %s queue: %w", c.Name, err)
		}
		s.Cities = append(s.Cities, cs)
	}

	var tiles []tileRow
	if err := db.conn.Select(&tiles, `SELECT hex_row, hex_col, improvement, improvement_faction,
		faction_claims_json, nation_claims_json, laborers_json FROM tiles ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("load tiles: %w", err)
	}
	for _, t := range tiles {
		ts := game.TileState{Row: t.Row, Col: t.Col, Improvement: t.Improvement, ImprovementFaction: t.ImprovementFaction}
		for _, part := range []struct {
			raw string
			dst any
		}{
			{t.FactionClaimsJSON, &ts.FactionClaims},
			{t.NationClaimsJSON, &ts.NationClaims},
			{t.LaborersJSON, &ts.Laborers},
		} {
			if err := json.Unmarshal([]byte(part.raw), part.dst); err != nil {
				return nil, fmt.Errorf("tile %d,%d: %w", t.Row, t.Col, err)
			}
		}
		s.Tiles = append(s.Tiles, ts)
	}

	var units []unitRow
	if err := db.conn.Select(&units, `SELECT id, faction, type, hex_row, hex_col, moves, active,
		target_row, target_col, pending, pending_row, pending_col FROM units ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	for _, u := range units {
		s.Units = append(s.Units, game.UnitState{
			ID: u.ID, Faction: u.Faction, Type: u.Type, Row: u.Row, Col: u.Col,
			Moves: u.Moves, Active: u.Active != 0,
			PathTarget: offsetFrom(u.TargetRow, u.TargetCol),
			Pending:    u.Pending,
			PendingAt:  offsetFrom(u.PendingRow, u.PendingCol),
		})
	}

	var goods []goodsRow
	if err := db.conn.Select(&goods, `SELECT id, faction, type, hex_row, hex_col, origin_row, origin_col,
		target_row, target_col, quantity, rounds, moves FROM goods ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("load goods: %w", err)
	}
	for _, gd := range goods {
		s.Goods = append(s.Goods, game.GoodsState{
			ID: gd.ID, Faction: gd.Faction, Type: gd.Type, Row: gd.Row, Col: gd.Col,
			Origin:   world.Offset{Row: gd.OriginRow, Col: gd.OriginCol},
			Target:   offsetFrom(gd.TargetRow, gd.TargetCol),
			Quantity: gd.Quantity, Rounds: gd.Rounds, Moves: gd.Moves,
		})
	}

	return s, nil
}

func (db *DB) loadMeta(s *game.Snapshot) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"round", &s.Round},
		{"current", &s.Current},
	}
	for _, m := range ints {
		raw, err := db.GetMeta(m.key)
		if err != nil {
			return fmt.Errorf("load meta %s: %w", m.key, err)
		}
		if *m.dst, err = strconv.Atoi(raw); err != nil {
			return fmt.Errorf("meta %s: %w", m.key, err)
		}
	}

	if raw, err := db.GetMeta("round_over"); err == nil {
		s.RoundOver, _ = strconv.ParseBool(raw)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load meta round_over: %w", err)
	}

	if raw, err := db.GetMeta("schema_version"); err == nil {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("meta schema_version: %w", err)
		}
		if v > SchemaVersion {
			return fmt.Errorf("persistence: save uses schema %d, this build reads up to %d", v, SchemaVersion)
		}
	}
	return nil
}

func nullOffset(o *world.Offset) (sql.NullInt64, sql.NullInt64) {
	if o == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(o.Row), Valid: true}, sql.NullInt64{Int64: int64(o.Col), Valid: true}
}

func offsetFrom(row, col sql.NullInt64) *world.Offset {
	if !row.Valid || !col.Valid {
		return nil
	}
	return &world.Offset{Row: int(row.Int64), Col: int(col.Int64)}
}
