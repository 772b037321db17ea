// Computer faction behaviour: settlers look for room to found cities,
// builders look for farmland near home, everyone else wanders.
package engine

import (
	"github.com/talgya/empires4x/internal/game"
	"github.com/talgya/empires4x/internal/world"
)

// Policy tunes how computer factions play.
type Policy struct {
	SettleDistance int      `yaml:"settle_distance"` // Minimum hexes between a new city and any other
	SearchRadius   int      `yaml:"search_radius"`   // How far units look for city sites and farmland
	WanderRadius   int      `yaml:"wander_radius"`
	Builds         []string `yaml:"builds"` // City production rotation
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		SettleDistance: 3,
		SearchRadius:   4,
		WanderRadius:   3,
		Builds:         []string{"farmer", "settler", "farmer", "warrior"},
	}
}

// playFaction moves every unit of f that can still move, then performs the
// actions that consume units. Consuming a computer unit ends the turn for
// the units not yet moved, so those actions come last.
func (e *Engine) playFaction(f *game.Faction) {
	var consume []func()
	for _, u := range f.Units() {
		if !game.CanMove(u) {
			continue
		}
		def := u.Def()
		switch {
		case def.CanFoundCity:
			if u.CanFoundCity() && e.roomForCity(u.Hex()) {
				consume = append(consume, func() { e.foundCity(u) })
				continue
			}
			e.goTo(u, e.citySite(u))
		case len(def.CanBuild) > 0:
			key := def.CanBuild[0]
			if e.canBuild(u, key, u.Hex()) {
				consume = append(consume, func() { u.BuildImprovement(key) })
				continue
			}
			e.goTo(u, e.farmland(u, key))
		default:
			e.wander(u)
		}
	}
	for _, fn := range consume {
		fn()
	}
}

func (e *Engine) foundCity(u *game.Unit) {
	if _, err := u.FoundCity(""); err != nil {
		e.log.Debug("city not founded", "unit", u, "error", err)
	}
}

// goTo walks u toward target for one turn. Without a reachable target the
// unit wanders instead.
func (e *Engine) goTo(u *game.Unit, target *world.Hex) {
	if target == nil || u.SetPath(target) == nil {
		e.wander(u)
		return
	}
	u.MoveOneTurn()
}

// wander sends u toward a random passable hex nearby.
func (e *Engine) wander(u *game.Unit) {
	var options []*world.Hex
	for _, h := range e.Game.Grid().InRange(u.Hex(), e.Policy.WanderRadius) {
		if h == u.Hex() {
			continue
		}
		if _, ok := u.Cost(h); ok {
			options = append(options, h)
		}
	}
	if len(options) == 0 {
		return
	}
	if u.SetPath(options[e.rng.Intn(len(options))]) != nil {
		u.MoveOneTurn()
	}
}

// roomForCity reports whether every city is at least SettleDistance away.
func (e *Engine) roomForCity(h *world.Hex) bool {
	g := e.Game
	for _, c := range g.Cities() {
		if g.Grid().Distance(h, c.Hex()) < e.Policy.SettleDistance {
			return false
		}
	}
	return true
}

// citySite returns the closest hex within SearchRadius where u could found
// a city with room around it.
func (e *Engine) citySite(u *game.Unit) *world.Hex {
	return e.closest(u, func(h *world.Hex) bool {
		return e.Game.CanHostCity(h) && e.roomForCity(h)
	})
}

// farmland returns the closest hex within SearchRadius where u could build key.
func (e *Engine) farmland(u *game.Unit, key string) *world.Hex {
	return e.closest(u, func(h *world.Hex) bool { return e.canBuild(u, key, h) })
}

// canBuild reports whether u may put key on h: the tile is free, not held
// by a rival, and close enough to one of the unit's cities to feed it.
func (e *Engine) canBuild(u *game.Unit, key string, h *world.Hex) bool {
	g := e.Game
	t := g.TileAt(h)
	if t == nil || t.Improvement() != nil || !t.IsValidImprovement(key) {
		return false
	}
	f := u.Faction()
	if owner := t.Faction(); owner != nil && owner != f {
		return false
	}
	if n := t.Nation(); n != nil && n != f.Nation() {
		return false
	}
	home := g.NearestCity(h, f.Nation())
	return home != nil && g.Grid().Distance(h, home.Hex()) <= e.Policy.SearchRadius
}

func (e *Engine) closest(u *game.Unit, ok func(*world.Hex) bool) *world.Hex {
	g := e.Game
	var best *world.Hex
	bestDist := 0
	for _, h := range g.Grid().InRange(u.Hex(), e.Policy.SearchRadius) {
		if !ok(h) {
			continue
		}
		if d := g.Grid().Distance(u.Hex(), h); best == nil || d < bestDist {
			best, bestDist = h, d
		}
	}
	return best
}
