package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/empires4x/internal/world"
)

// Snapshot is a plain-data copy of a game, suitable for storage and for
// the HTTP API. Entities refer to each other by index or hex coordinate.
// Fog of war is not captured; Restore recomputes it.
type Snapshot struct {
	Round     int            `json:"round"`
	RoundOver bool           `json:"round_over"`
	Current   int            `json:"current"`
	Hexes     []world.Hex    `json:"hexes"`
	Nations   []NationState  `json:"nations"`
	Factions  []FactionState `json:"factions"`
	Cities    []CityState    `json:"cities"`
	Tiles     []TileState    `json:"tiles,omitempty"`
	Units     []UnitState    `json:"units"`
	Goods     []GoodsState   `json:"goods,omitempty"`
}

type NationState struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Frame int    `json:"frame"`
}

type FactionState struct {
	Index  int     `json:"index"`
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Nation int     `json:"nation"`
	Money  float64 `json:"money"`
	Cursor int     `json:"cursor"`
	State  string  `json:"state"`
}

type QueueState struct {
	Faction  int    `json:"faction"`
	UnitType string `json:"unit_type"`
}

type CityState struct {
	Name       string       `json:"name"`
	Nation     int          `json:"nation"`
	Row        int          `json:"row"`
	Col        int          `json:"col"`
	StoredFood int          `json:"stored_food"`
	Queue      []QueueState `json:"queue,omitempty"`
}

// ClaimState is one ledger entry. Entries keep their first-claim order.
type ClaimState struct {
	Index int `json:"index"`
	Value int `json:"value"`
}

type LaborerState struct {
	Faction int           `json:"faction"`
	Type    string        `json:"type"`
	Home    *world.Offset `json:"home,omitempty"`
}

type TileState struct {
	Row                int            `json:"row"`
	Col                int            `json:"col"`
	FactionClaims      []ClaimState   `json:"faction_claims,omitempty"`
	NationClaims       []ClaimState   `json:"nation_claims,omitempty"`
	Improvement        string         `json:"improvement,omitempty"`
	ImprovementFaction int            `json:"improvement_faction"`
	Laborers           []LaborerState `json:"laborers,omitempty"`
}

type UnitState struct {
	ID         uuid.UUID     `json:"id"`
	Faction    int           `json:"faction"`
	Type       string        `json:"type"`
	Row        int           `json:"row"`
	Col        int           `json:"col"`
	Moves      int           `json:"moves"`
	Active     bool          `json:"active"`
	PathTarget *world.Offset `json:"path_target,omitempty"`
	Pending    string        `json:"pending,omitempty"`
	PendingAt  *world.Offset `json:"pending_at,omitempty"`
}

type GoodsState struct {
	ID       uuid.UUID     `json:"id"`
	Faction  int           `json:"faction"` // -1 for unowned goods
	Type     string        `json:"type"`
	Row      int           `json:"row"`
	Col      int           `json:"col"`
	Origin   world.Offset  `json:"origin"`
	Target   *world.Offset `json:"target,omitempty"`
	Quantity int           `json:"quantity"`
	Rounds   int           `json:"rounds"`
	Moves    int           `json:"moves"`
}

func offsetOf(h *world.Hex) *world.Offset {
	if h == nil {
		return nil
	}
	o := h.Offset()
	return &o
}

func factionIndex(f *Faction) int {
	if f == nil {
		return -1
	}
	return f.index
}

// Snapshot captures the current state. Deleted units and goods are omitted.
func (g *Game) Snapshot() *Snapshot {
	s := &Snapshot{Round: g.round, RoundOver: g.roundOver, Current: g.current}
	for _, h := range g.grid.Hexes() {
		s.Hexes = append(s.Hexes, *h)
	}
	for _, n := range g.nations {
		s.Nations = append(s.Nations, NationState{Index: n.index, Name: n.name, Color: n.color, Frame: n.frame})
	}
	for _, f := range g.factions {
		s.Factions = append(s.Factions, FactionState{
			Index:  f.index,
			Name:   f.name,
			Color:  f.color,
			Nation: f.nation.index,
			Money:  f.money,
			Cursor: f.cursor,
			State:  f.state.String(),
		})
		for _, u := range f.Units() {
			us := UnitState{
				ID:      u.id,
				Faction: f.index,
				Type:    u.unitType,
				Row:     u.hex.Row,
				Col:     u.hex.Col,
				Moves:   u.moves,
				Active:  u.active,
			}
			if !u.path.Done() {
				us.PathTarget = offsetOf(u.path.Target)
			}
			if p := u.pending; p != nil {
				us.Pending = p.Kind.Key()
				us.PendingAt = offsetOf(p.Target)
			}
			s.Units = append(s.Units, us)
		}
	}
	for _, c := range g.cities {
		cs := CityState{Name: c.name, Nation: c.nation.index, Row: c.hex.Row, Col: c.hex.Col, StoredFood: c.storedFood}
		for _, q := range c.queue {
			cs.Queue = append(cs.Queue, QueueState{Faction: q.Faction.index, UnitType: q.UnitType})
		}
		s.Cities = append(s.Cities, cs)
	}
	for _, h := range g.grid.Hexes() {
		if ts, ok := g.tiles[h].state(); ok {
			s.Tiles = append(s.Tiles, ts)
		}
	}
	for _, gd := range g.Goods() {
		s.Goods = append(s.Goods, GoodsState{
			ID:       gd.id,
			Faction:  factionIndex(gd.faction),
			Type:     gd.goodsType,
			Row:      gd.hex.Row,
			Col:      gd.hex.Col,
			Origin:   gd.origin.Offset(),
			Target:   offsetOf(gd.target),
			Quantity: gd.quantity,
			Rounds:   gd.rounds,
			Moves:    gd.moves,
		})
	}
	return s
}

// state reports the tile's overlay, or false when there is nothing to keep.
func (t *Tile) state() (TileState, bool) {
	ts := TileState{Row: t.hex.Row, Col: t.hex.Col, ImprovementFaction: -1}
	for _, e := range t.factions.entries() {
		ts.FactionClaims = append(ts.FactionClaims, ClaimState{Index: e.actor.index, Value: e.value})
	}
	for _, e := range t.nations.entries() {
		ts.NationClaims = append(ts.NationClaims, ClaimState{Index: e.actor.index, Value: e.value})
	}
	if imp := t.improvement; imp != nil {
		ts.Improvement = imp.Key
		ts.ImprovementFaction = factionIndex(imp.Faction)
	}
	for _, l := range t.laborers {
		ls := LaborerState{Faction: factionIndex(l.Faction), Type: l.Type}
		if l.Home != nil {
			ls.Home = offsetOf(l.Home.hex)
		}
		ts.Laborers = append(ts.Laborers, ls)
	}
	empty := len(ts.FactionClaims) == 0 && len(ts.NationClaims) == 0 && ts.Improvement == "" && len(ts.Laborers) == 0
	return ts, !empty
}

// Restore rebuilds a game from s. When opts.Grid is nil the grid is rebuilt
// from the snapshot's hexes. Restoring does not publish creation signals.
func Restore(opts Options, s *Snapshot) (*Game, error) {
	if s == nil {
		return nil, fmt.Errorf("restore: nil snapshot")
	}
	if opts.Grid == nil {
		grid := world.NewGrid()
		for i := range s.Hexes {
			h := s.Hexes[i]
			grid.Add(&h)
		}
		opts.Grid = grid
	}
	g, err := New(opts)
	if err != nil {
		return nil, err
	}
	r := restorer{g: g}

	for _, ns := range s.Nations {
		g.nations = append(g.nations, &Nation{index: len(g.nations), name: ns.Name, color: ns.Color, frame: ns.Frame})
	}
	for _, fs := range s.Factions {
		n, err := r.nation(fs.Nation)
		if err != nil {
			return nil, fmt.Errorf("restore faction %s: %w", fs.Name, err)
		}
		f, err := g.AddFaction(n)
		if err != nil {
			return nil, fmt.Errorf("restore faction %s: %w", fs.Name, err)
		}
		f.name, f.color = fs.Name, fs.Color
		if err := f.SetMoney(fs.Money); err != nil {
			return nil, fmt.Errorf("restore faction %s: %w", fs.Name, err)
		}
		f.cursor = fs.Cursor
		f.state = parseTurnState(fs.State)
	}
	for _, cs := range s.Cities {
		if err := r.city(cs); err != nil {
			return nil, fmt.Errorf("restore city %s: %w", cs.Name, err)
		}
	}
	for _, ts := range s.Tiles {
		if err := r.tile(ts); err != nil {
			return nil, fmt.Errorf("restore tile %d,%d: %w", ts.Row, ts.Col, err)
		}
	}
	for _, us := range s.Units {
		if err := r.unit(us); err != nil {
			return nil, fmt.Errorf("restore unit %s: %w", us.ID, err)
		}
	}
	for _, gs := range s.Goods {
		if err := r.goods(gs); err != nil {
			return nil, fmt.Errorf("restore goods %s: %w", gs.ID, err)
		}
	}

	g.round = s.Round
	g.roundOver = s.RoundOver
	g.current = s.Current
	if f := g.CurrentFaction(); f != nil {
		if u := f.ActiveUnit(); u != nil && u.active {
			g.activeUnit = u
		}
	}
	for _, f := range g.factions {
		g.fog.Recompute(f)
	}
	return g, nil
}

type restorer struct {
	g *Game
}

func (r restorer) hex(row, col int) (*world.Hex, error) {
	h := r.g.grid.HexAt(row, col)
	if h == nil {
		return nil, fmt.Errorf("%d,%d: %w", row, col, ErrInvalidHex)
	}
	return h, nil
}

func (r restorer) optHex(o *world.Offset) (*world.Hex, error) {
	if o == nil {
		return nil, nil
	}
	return r.hex(o.Row, o.Col)
}

func (r restorer) nation(i int) (*Nation, error) {
	if i < 0 || i >= len(r.g.nations) {
		return nil, fmt.Errorf("nation %d: %w", i, ErrNoNation)
	}
	return r.g.nations[i], nil
}

func (r restorer) faction(i int) (*Faction, error) {
	if i < 0 || i >= len(r.g.factions) {
		return nil, fmt.Errorf("faction %d: %w", i, ErrNoFaction)
	}
	return r.g.factions[i], nil
}

func (r restorer) city(cs CityState) error {
	hex, err := r.hex(cs.Row, cs.Col)
	if err != nil {
		return err
	}
	n, err := r.nation(cs.Nation)
	if err != nil {
		return err
	}
	c := newCity(r.g, hex, n, cs.Name)
	c.storedFood = cs.StoredFood
	for _, q := range cs.Queue {
		f, err := r.faction(q.Faction)
		if err != nil {
			return err
		}
		c.queue = append(c.queue, QueueItem{Faction: f, UnitType: q.UnitType})
	}
	r.g.tiles[hex].city = c
	r.g.cities = append(r.g.cities, c)
	r.g.cityNames[n]++
	return nil
}

func (r restorer) tile(ts TileState) error {
	hex, err := r.hex(ts.Row, ts.Col)
	if err != nil {
		return err
	}
	t := r.g.tiles[hex]
	for _, c := range ts.FactionClaims {
		f, err := r.faction(c.Index)
		if err != nil {
			return err
		}
		t.factions.add(f, c.Value)
	}
	for _, c := range ts.NationClaims {
		n, err := r.nation(c.Index)
		if err != nil {
			return err
		}
		t.nations.add(n, c.Value)
	}
	if ts.Improvement != "" {
		// Claims are restored above, so the improvement is placed without its bonus.
		if !t.SetImprovement(ts.Improvement, nil) {
			return fmt.Errorf("improvement %q not valid here", ts.Improvement)
		}
		if ts.ImprovementFaction >= 0 {
			f, err := r.faction(ts.ImprovementFaction)
			if err != nil {
				return err
			}
			t.improvement.Faction = f
		}
	}
	for _, ls := range ts.Laborers {
		l := &Laborer{Hex: hex, Type: ls.Type}
		if ls.Faction >= 0 {
			f, err := r.faction(ls.Faction)
			if err != nil {
				return err
			}
			l.Faction = f
		}
		home, err := r.optHex(ls.Home)
		if err != nil {
			return err
		}
		if home != nil {
			if c := r.g.tiles[home].city; c != nil {
				l.Home = c
				c.housing.AddLaborer(l)
			}
		}
		t.AddLaborer(l)
	}
	return nil
}

func (r restorer) unit(us UnitState) error {
	f, err := r.faction(us.Faction)
	if err != nil {
		return err
	}
	hex, err := r.hex(us.Row, us.Col)
	if err != nil {
		return err
	}
	def, ok := r.g.cat.Unit(us.Type)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUnitType, us.Type)
	}
	if us.Moves < 0 {
		return negative("unit moves", us.Moves)
	}
	u := &Unit{unitType: us.Type, def: def}
	u.Movable = r.g.newMovable(u, hex, f, def.MovementDef)
	u.id = us.ID
	u.moves = us.Moves
	u.active = us.Active

	target, err := r.optHex(us.PathTarget)
	if err != nil {
		return err
	}
	if target != nil {
		u.SetPath(target)
	}
	if us.Pending != "" {
		kind, ok := ActionByKey(us.Pending)
		if !ok {
			return fmt.Errorf("unknown pending action %q", us.Pending)
		}
		at, err := r.optHex(us.PendingAt)
		if err != nil {
			return err
		}
		u.pending = &PendingAction{Kind: kind, Target: at}
	}
	f.units = append(f.units, u)
	return nil
}

func (r restorer) goods(gs GoodsState) error {
	var f *Faction
	if gs.Faction >= 0 {
		var err error
		if f, err = r.faction(gs.Faction); err != nil {
			return err
		}
	}
	hex, err := r.hex(gs.Row, gs.Col)
	if err != nil {
		return err
	}
	origin, err := r.hex(gs.Origin.Row, gs.Origin.Col)
	if err != nil {
		return err
	}
	if gs.Quantity <= 0 {
		return fmt.Errorf("goods quantity %d must be positive", gs.Quantity)
	}
	if gs.Rounds < 0 {
		return negative("goods rounds", gs.Rounds)
	}
	gd, err := NewGoods(r.g, gs.Type, hex, gs.Quantity, f)
	if err != nil {
		return err
	}
	gd.id = gs.ID
	gd.origin = origin
	gd.rounds = gs.Rounds
	gd.moves = gs.Moves
	target, err := r.optHex(gs.Target)
	if err != nil {
		return err
	}
	if target != nil {
		gd.SetPath(target)
	}
	return nil
}

func parseTurnState(s string) TurnState {
	switch s {
	case TurnUnitActive.String():
		return TurnUnitActive
	case TurnEnded.String():
		return TurnEnded
	default:
		return TurnIdle
	}
}
