package game

import (
	"fmt"

	"github.com/talgya/empires4x/internal/catalog"
	"github.com/talgya/empires4x/internal/world"
)

// PendingAction is performed automatically once the unit stands on Target.
type PendingAction struct {
	Kind   ActionKind
	Target *world.Hex
}

// Unit is a faction-owned mover with a role from the catalog.
type Unit struct {
	Movable
	unitType string
	def      catalog.UnitDef
	pending  *PendingAction
}

// NewUnit creates a unit on hex for faction and announces it. Most callers
// want Faction.AddUnit, which also puts the unit on the roster.
func NewUnit(g *Game, unitType string, hex *world.Hex, faction *Faction) (*Unit, error) {
	def, ok := g.cat.Unit(unitType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnitType, unitType)
	}
	if !g.grid.Contains(hex) {
		return nil, fmt.Errorf("unit %s: %w", unitType, ErrInvalidHex)
	}
	if faction == nil {
		return nil, fmt.Errorf("unit %s: %w", unitType, ErrNoFaction)
	}
	u := &Unit{unitType: unitType, def: def}
	u.Movable = g.newMovable(u, hex, faction, def.MovementDef)
	g.bus.Publish(UnitCreated{Unit: u})
	return u, nil
}

func (u *Unit) Type() string            { return u.unitType }
func (u *Unit) Def() catalog.UnitDef    { return u.def }
func (u *Unit) Pending() *PendingAction { return u.pending }

// Activate selects the unit. Units of computer factions end their turn at
// once; the human player's units resume any unfinished order.
func (u *Unit) Activate() {
	if u.deleted {
		return
	}
	u.Movable.Activate()
	u.game.activeUnit = u

	if u.faction.index != 0 {
		u.Deactivate(true)
		return
	}

	u.game.bus.Publish(UnitActivated{Unit: u})
	u.resume()
}

func (u *Unit) resume() {
	if p := u.pending; p != nil && p.Target == u.hex {
		u.pending = nil
		u.game.HandleAction(p.Kind, ActionContext{Unit: u, Hex: u.hex, Faction: u.faction})
		return
	}
	if !u.path.Done() {
		u.MoveOneTurn()
	}
}

// Deactivate releases the selection and lets the faction pick its next unit.
func (u *Unit) Deactivate(endMoves bool) {
	if u.deleted {
		return
	}
	u.Movable.Deactivate(endMoves)
	if u.game.activeUnit == u {
		u.game.activeUnit = nil
	}
	if u.faction.state == TurnUnitActive {
		u.faction.state = TurnIdle
	}
	u.game.bus.Publish(UnitDeactivated{Unit: u})
	u.faction.CheckEndTurn()
}

// DoAction steps one hex in direction d. Every failure is reported as false.
func (u *Unit) DoAction(d world.Direction) bool {
	if u.deleted {
		return false
	}
	row, col, err := world.Step(u.hex.Row, u.hex.Col, d)
	if err != nil {
		return false
	}
	target := u.game.grid.HexAt(row, col)
	if target == nil {
		return false
	}
	if u.SetPath(target) == nil {
		return false
	}
	return u.MoveOneStep()
}

// SetAction orders the unit to walk to target and perform kind on arrival.
func (u *Unit) SetAction(kind ActionKind, target *world.Hex) bool {
	if u.SetPath(target) == nil {
		return false
	}
	u.pending = &PendingAction{Kind: kind, Target: target}
	u.MoveOneTurn()
	return true
}

// BuildImprovement builds key on the unit's hex, settles a laborer there,
// and consumes the unit.
func (u *Unit) BuildImprovement(key string) bool {
	if u.deleted || !u.def.Builds(key) {
		return false
	}
	tile := u.game.TileAt(u.hex)
	if !tile.SetImprovement(key, u.faction) {
		return false
	}
	l := &Laborer{Hex: u.hex, Faction: u.faction, Type: u.unitType}
	tile.AddLaborer(l)
	if home := u.game.nearestCity(u.hex, u.faction.nation, true); home != nil && home.housing.AddLaborer(l) {
		l.Home = home
	}
	u.Destroy()
	return true
}

// Destroy removes the unit and takes its sight away from its faction.
func (u *Unit) Destroy() {
	if u.deleted {
		return
	}
	u.Movable.Destroy()
	u.game.fog.Recompute(u.faction)
}

// CanFoundCity reports whether the unit could found a city where it stands.
func (u *Unit) CanFoundCity() bool {
	return !u.deleted && u.def.CanFoundCity && u.game.CanHostCity(u.hex)
}

// FoundCity founds a city for the unit's nation and consumes the unit.
func (u *Unit) FoundCity(name string) (*City, error) {
	if !u.CanFoundCity() {
		return nil, fmt.Errorf("unit %s cannot found a city at %v", u.unitType, u.hex)
	}
	if name == "" {
		name = u.game.nextCityName(u.faction.nation)
	}
	c, err := FoundCity(u.game, u.hex, u.faction.nation, name)
	if err != nil {
		return nil, err
	}
	u.Destroy()
	return c, nil
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s(%s) at %v", u.unitType, u.faction.name, u.hex)
}
