// End-of-round production: worked improvements ship their yield home and
// computer cities keep their production queues filled.
package engine

import "github.com/talgya/empires4x/internal/game"

// harvest ships the yield of every staffed improvement to the nearest city
// of its builder's nation. Shipments leave at once and move their first leg.
func (e *Engine) harvest() {
	g := e.Game
	for _, h := range g.Grid().Hexes() {
		t := g.TileAt(h)
		imp := t.Improvement()
		if imp == nil || imp.Faction == nil || imp.Produces == "" || imp.Quantity <= 0 {
			continue
		}
		if len(t.Laborers()) < max(imp.Laborers, 1) {
			continue
		}
		home := g.NearestCity(h, imp.Faction.Nation())
		if home == nil {
			continue
		}
		if _, err := g.Ship(imp.Produces, imp.Quantity, h, home.Hex(), imp.Faction); err != nil {
			e.log.Debug("harvest not shipped", "hex", h, "city", home.Name(), "error", err)
		}
	}
}

// planProduction queues the next unit of the build rotation in every idle
// city of f's nation.
func (e *Engine) planProduction(f *game.Faction, round int) {
	builds := e.Policy.Builds
	if len(builds) == 0 {
		return
	}
	for i, c := range e.Game.Cities() {
		if c.Nation() != f.Nation() || len(c.Queue()) > 0 {
			continue
		}
		unitType := builds[(round+i)%len(builds)]
		if err := c.AddToQueue(f, unitType); err != nil {
			e.log.Warn("production not queued", "city", c.Name(), "unit", unitType, "error", err)
		}
	}
}
