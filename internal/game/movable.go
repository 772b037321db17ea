package game

import (
	"github.com/google/uuid"

	"github.com/talgya/empires4x/internal/catalog"
	"github.com/talgya/empires4x/internal/world"
)

// Mover is the capability set shared by units and goods.
type Mover interface {
	ID() uuid.UUID
	Hex() *world.Hex
	Faction() *Faction
	Moves() int
	Active() bool
	Deleted() bool
	Path() *Path

	PrepareForNewTurn()
	SetPath(target *world.Hex) *Path
	MoveOneStep() bool
	MoveOneTurn() int
	Activate()
	Deactivate(endMoves bool)
	Destroy()
}

// Path is the remaining route of a mover. Hexes excludes the current hex.
type Path struct {
	Target *world.Hex
	Hexes  []*world.Hex
	Cost   int
}

// Done reports whether every hex of the path has been entered.
func (p *Path) Done() bool {
	return p == nil || len(p.Hexes) == 0
}

// Next returns the next hex to enter, or nil.
func (p *Path) Next() *world.Hex {
	if p.Done() {
		return nil
	}
	return p.Hexes[0]
}

// Movable holds the position, budget, and path state embedded by Unit and Goods.
// self points at the embedding value so overridden methods are honored.
type Movable struct {
	game    *Game
	self    Mover
	id      uuid.UUID
	hex     *world.Hex
	faction *Faction
	profile catalog.MovementDef
	moves   int
	path    *Path
	active  bool
	deleted bool
}

func (g *Game) newMovable(self Mover, hex *world.Hex, faction *Faction, profile catalog.MovementDef) Movable {
	return Movable{
		game:    g,
		self:    self,
		id:      uuid.New(),
		hex:     hex,
		faction: faction,
		profile: profile,
	}
}

func (m *Movable) ID() uuid.UUID     { return m.id }
func (m *Movable) Hex() *world.Hex   { return m.hex }
func (m *Movable) Faction() *Faction { return m.faction }
func (m *Movable) Moves() int        { return m.moves }
func (m *Movable) Active() bool      { return m.active }
func (m *Movable) Deleted() bool     { return m.deleted }
func (m *Movable) Path() *Path       { return m.path }
func (m *Movable) BaseMovement() int { return m.profile.MovementPoints }
func (m *Movable) SightRadius() int  { return m.profile.SightRadius }

// PrepareForNewTurn resets the movement budget. Deleted movers stay at zero.
func (m *Movable) PrepareForNewTurn() {
	if m.deleted {
		return
	}
	m.moves = m.profile.MovementPoints
}

// Cost returns what this mover pays to enter h. A hex costing more than a
// full turn's budget cannot be entered at all.
func (m *Movable) Cost(h *world.Hex) (int, bool) {
	cost, ok := m.game.cat.MoveCost(m.profile, h.Terrain)
	if !ok || cost > m.profile.MovementPoints {
		return 0, false
	}
	return cost, true
}

// SetPath computes a minimum-cost route to target. On failure it returns nil
// and keeps the previous path. Position never changes.
func (m *Movable) SetPath(target *world.Hex) *Path {
	if m.deleted || target == nil {
		return nil
	}
	route, ok := m.game.grid.FindPath(m.hex, target, m.Cost)
	if !ok {
		return nil
	}
	m.path = &Path{Target: target, Hexes: route.Hexes, Cost: route.Cost}
	return m.path
}

// step enters the next path hex if the budget covers it. It does not notify.
func (m *Movable) step() bool {
	if m.deleted || m.path.Done() {
		return false
	}
	next := m.path.Hexes[0]
	cost, ok := m.Cost(next)
	if !ok || cost > m.moves {
		return false
	}
	m.moves -= cost
	m.hex = next
	m.path.Hexes = m.path.Hexes[1:]
	return true
}

// MoveOneStep enters the next path hex and shows the move.
func (m *Movable) MoveOneStep() bool {
	from := m.hex
	if !m.step() {
		return false
	}
	m.game.moved(m.self, from)
	return true
}

// MoveOneTurn steps until the path ends or the next step is unaffordable,
// then shows the whole move once. It returns the number of steps taken.
func (m *Movable) MoveOneTurn() int {
	from := m.hex
	n := 0
	for m.step() {
		n++
	}
	if n > 0 {
		m.game.moved(m.self, from)
	}
	return n
}

func (m *Movable) Activate() {
	if m.deleted {
		return
	}
	m.active = true
}

func (m *Movable) Deactivate(endMoves bool) {
	m.active = false
	if endMoves {
		m.moves = 0
	}
}

// Destroy ends the mover's turn, tombstones it, and releases its visual.
// Further calls do nothing.
func (m *Movable) Destroy() {
	if m.deleted {
		return
	}
	m.self.Deactivate(true)
	m.deleted = true
	m.active = false
	m.moves = 0
	m.game.presenter.Release(m.self)
}

// Activatable reports whether m may be selected at all.
func Activatable(m Mover) bool {
	return m != nil && !m.Deleted()
}

// CanMove reports whether m is activatable and has budget left.
func CanMove(m Mover) bool {
	return Activatable(m) && m.Moves() > 0
}
