package game

import "github.com/talgya/empires4x/internal/world"

// FogState is one faction's knowledge of one hex.
type FogState uint8

const (
	Unexplored FogState = iota
	Explored            // seen before, not currently in sight
	Visible
)

func (s FogState) String() string {
	switch s {
	case Explored:
		return "explored"
	case Visible:
		return "visible"
	default:
		return "unexplored"
	}
}

// FogOfWar tracks per-faction visibility. Hexes never touched are unexplored.
type FogOfWar struct {
	game   *Game
	states map[*Faction]map[*world.Hex]FogState
}

func newFogOfWar(g *Game) *FogOfWar {
	return &FogOfWar{game: g, states: make(map[*Faction]map[*world.Hex]FogState)}
}

func (f *FogOfWar) of(fac *Faction) map[*world.Hex]FogState {
	m := f.states[fac]
	if m == nil {
		m = make(map[*world.Hex]FogState)
		f.states[fac] = m
	}
	return m
}

// State returns what fac knows about hex.
func (f *FogOfWar) State(fac *Faction, hex *world.Hex) FogState {
	return f.states[fac][hex]
}

// StartTileFogState resets hex to unexplored for fac.
func (f *FogOfWar) StartTileFogState(fac *Faction, hex *world.Hex) {
	f.of(fac)[hex] = Unexplored
}

// ViewTileForFaction marks hex visible for fac.
func (f *FogOfWar) ViewTileForFaction(fac *Faction, hex *world.Hex) {
	f.of(fac)[hex] = Visible
}

// ExploreTileForFaction marks hex explored for fac.
func (f *FogOfWar) ExploreTileForFaction(fac *Faction, hex *world.Hex) {
	f.of(fac)[hex] = Explored
}

// Counts returns how many hexes fac has in each state.
func (f *FogOfWar) Counts(fac *Faction) map[FogState]int {
	counts := map[FogState]int{Unexplored: f.game.grid.Len()}
	for _, s := range f.states[fac] {
		if s != Unexplored {
			counts[s]++
			counts[Unexplored]--
		}
	}
	return counts
}

// Recompute rebuilds fac's visibility from scratch: everything visible
// becomes explored, then every hex in sight of a live unit and every hex the
// faction owns becomes visible.
func (f *FogOfWar) Recompute(fac *Faction) {
	if fac == nil {
		return
	}
	m := f.of(fac)
	for hex, s := range m {
		if s == Visible {
			m[hex] = Explored
		}
	}
	for _, u := range fac.Units() {
		for _, hex := range f.game.grid.InRange(u.hex, u.SightRadius()) {
			m[hex] = Visible
		}
	}
	for _, hex := range f.game.grid.Hexes() {
		if f.game.tiles[hex].Faction() == fac {
			m[hex] = Visible
		}
	}
	if fac.index == 0 {
		f.game.bus.Publish(FogUpdated{Faction: fac})
	}
}
