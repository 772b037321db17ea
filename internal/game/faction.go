package game

import (
	"fmt"
	"math"

	"github.com/talgya/empires4x/internal/world"
)

// TurnState tracks where a faction is within its turn.
type TurnState uint8

const (
	TurnIdle       TurnState = iota // No unit selected
	TurnUnitActive                  // One unit selected
	TurnEnded                       // No movable unit left; end-turn already announced
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnUnitActive:
		return "unit-active"
	case TurnEnded:
		return "turn-ended"
	default:
		return fmt.Sprintf("TurnState(%d)", s)
	}
}

// Nation is a cultural grouping that owns cities. Several factions may share one.
type Nation struct {
	index int
	name  string
	color string
	frame int
}

func (n *Nation) Index() int     { return n.index }
func (n *Nation) Name() string   { return n.name }
func (n *Nation) Color() string  { return n.color }
func (n *Nation) Frame() int     { return n.frame }
func (n *Nation) claimant()      {}
func (n *Nation) String() string { return n.name }

// Faction is a player, human (index 0) or computer. It owns a roster of
// units, a money ledger, and the activation cursor for its turn.
type Faction struct {
	game   *Game
	index  int
	name   string
	color  string
	nation *Nation
	money  float64
	units  []*Unit
	cursor int // roster index of the active unit, -1 when none
	state  TurnState
}

func (f *Faction) Index() int       { return f.index }
func (f *Faction) Name() string     { return f.name }
func (f *Faction) Color() string    { return f.color }
func (f *Faction) Nation() *Nation  { return f.nation }
func (f *Faction) Money() float64   { return f.money }
func (f *Faction) Cursor() int      { return f.cursor }
func (f *Faction) State() TurnState { return f.state }
func (f *Faction) IsHuman() bool    { return f.index == 0 }
func (f *Faction) claimant()        {}
func (f *Faction) String() string   { return f.name }

// Units returns the roster, skipping deleted units.
func (f *Faction) Units() []*Unit {
	out := make([]*Unit, 0, len(f.units))
	for _, u := range f.units {
		if Activatable(u) {
			out = append(out, u)
		}
	}
	return out
}

// SetUnits replaces the roster, dropping entries that cannot be activated.
// The cursor is cleared.
func (f *Faction) SetUnits(units []*Unit) {
	f.units = f.units[:0:0]
	for _, u := range units {
		if u != nil && Activatable(u) {
			f.units = append(f.units, u)
		}
	}
	f.cursor = -1
}

// AddUnit creates a unit for this faction and appends it to the roster.
func (f *Faction) AddUnit(unitType string, hex *world.Hex) (*Unit, error) {
	u, err := NewUnit(f.game, unitType, hex, f)
	if err != nil {
		return nil, err
	}
	f.units = append(f.units, u)
	return u, nil
}

// SetMoney assigns the treasury. Negative and non-finite values are rejected.
func (f *Faction) SetMoney(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidValueError{Field: "faction money", Value: v, Err: ErrNotFinite}
	}
	if v < 0 {
		return negative("faction money", v)
	}
	f.money = v
	return nil
}

// AddMoney credits (or, with a negative amount, debits) the treasury.
func (f *Faction) AddMoney(amount float64) error {
	return f.SetMoney(f.money + amount)
}

// SpendMoney debits amount, failing without change if the treasury is short.
func (f *Faction) SpendMoney(amount float64) error {
	if amount < 0 {
		return negative("spend amount", amount)
	}
	return f.SetMoney(f.money - amount)
}

// BeginTurn prunes deleted units, clears the cursor, and restores every
// unit's movement budget.
func (f *Faction) BeginTurn() {
	f.SetUnits(f.units)
	f.state = TurnIdle
	for _, u := range f.units {
		u.PrepareForNewTurn()
	}
}

// ActiveUnit returns the unit under the cursor, or nil.
func (f *Faction) ActiveUnit() *Unit {
	if f.cursor < 0 || f.cursor >= len(f.units) {
		return nil
	}
	return f.units[f.cursor]
}

// ActivateUnit selects the unit at roster index i. A faction without units
// ends its turn instead.
func (f *Faction) ActivateUnit(i int) bool {
	if len(f.units) == 0 {
		f.endTurn()
		return false
	}
	if i < 0 || i >= len(f.units) || !Activatable(f.units[i]) {
		return false
	}
	f.activateAt(i)
	return true
}

// ActivateNext selects the first movable unit after the cursor, wrapping around.
func (f *Faction) ActivateNext() bool {
	i := NextMovableIndex(f.units, f.cursor)
	if i < 0 {
		return false
	}
	f.activateAt(i)
	return true
}

// activateAt moves the cursor to i and activates that unit. The previously
// selected unit keeps its budget but loses the selection.
func (f *Faction) activateAt(i int) {
	next := f.units[i]
	if prev := f.game.activeUnit; prev != nil && prev != next && prev.faction == f {
		prev.Movable.Deactivate(false)
	}
	f.cursor = i
	f.state = TurnUnitActive
	next.Activate()
}

// CheckEndTurn selects the next movable unit, or ends the turn when none is
// left. The end-turn signal is raised once until the next BeginTurn.
func (f *Faction) CheckEndTurn() {
	if f.state == TurnEnded {
		return
	}
	if f.ActivateNext() {
		return
	}
	f.endTurn()
}

// EndTurn ends the turn immediately, deselecting the active unit.
func (f *Faction) EndTurn() {
	if u := f.ActiveUnit(); u != nil && u.active {
		u.Movable.Deactivate(false)
		if f.game.activeUnit == u {
			f.game.activeUnit = nil
		}
	}
	f.endTurn()
}

func (f *Faction) endTurn() {
	if f.state == TurnEnded {
		return
	}
	f.state = TurnEnded
	f.cursor = -1
	f.game.bus.Publish(EndTurn{Faction: f})
}

// NextMovableIndex scans units round-robin starting just after cursor and
// returns the index of the first movable unit, or -1. A cursor of -1 starts at 0.
func NextMovableIndex(units []*Unit, cursor int) int {
	n := len(units)
	if n == 0 {
		return -1
	}
	start := cursor + 1
	if start < 0 {
		start = 0
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if u := units[idx]; u != nil && CanMove(u) {
			return idx
		}
	}
	return -1
}
