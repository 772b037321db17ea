package game

import (
	"fmt"

	"github.com/talgya/empires4x/internal/world"
)

// QueueItem is one unit request in a city's production queue.
type QueueItem struct {
	Faction  *Faction
	UnitType string
}

// Housing tracks the laborers a city can shelter.
type Housing struct {
	capacity int
	laborers []*Laborer
}

func (h *Housing) Capacity() int        { return h.capacity }
func (h *Housing) Laborers() []*Laborer { return append([]*Laborer(nil), h.laborers...) }
func (h *Housing) Vacancies() int       { return h.capacity - len(h.laborers) }

// AddLaborer houses l if there is room.
func (h *Housing) AddLaborer(l *Laborer) bool {
	if h.Vacancies() <= 0 {
		return false
	}
	h.laborers = append(h.laborers, l)
	return true
}

// City is founded on one hex for a nation and turns delivered food into units.
type City struct {
	game       *Game
	hex        *world.Hex
	nation     *Nation
	name       string
	queue      []QueueItem
	storedFood int
	housing    *Housing
}

// FoundCity places a city on hex. Any improvement there is destroyed, the
// surrounding land is claimed for nation, and so is nearby water.
func FoundCity(g *Game, hex *world.Hex, nation *Nation, name string) (*City, error) {
	if nation == nil {
		return nil, ErrNoNation
	}
	if !g.grid.Contains(hex) {
		return nil, fmt.Errorf("city %s: %w", name, ErrInvalidHex)
	}
	tile := g.TileAt(hex)
	if tile.city != nil {
		return nil, fmt.Errorf("city %s at %v: %w", name, hex, ErrCityExists)
	}

	c := newCity(g, hex, nation, name)
	tile.SetImprovement("destroy", nil)
	tile.city = c

	rules := g.cat.Rules
	for _, h := range g.grid.InRange(hex, rules.CityClaimRadius) {
		g.TileAt(h).ClaimTerritory(nation, rules.CityClaim)
	}
	for _, h := range g.grid.Ring(hex, rules.CityWaterRadius) {
		if h.IsWater() {
			g.TileAt(h).ClaimTerritory(nation, rules.CityWaterClaim)
		}
	}

	g.cities = append(g.cities, c)
	g.log.Info("city founded", "name", name, "nation", nation.name, "hex", hex)
	g.bus.Publish(CityFounded{City: c})
	return c, nil
}

func newCity(g *Game, hex *world.Hex, nation *Nation, name string) *City {
	return &City{
		game:    g,
		hex:     hex,
		nation:  nation,
		name:    name,
		housing: &Housing{capacity: g.cat.Rules.HousingCapacity},
	}
}

func (c *City) Hex() *world.Hex    { return c.hex }
func (c *City) Nation() *Nation    { return c.nation }
func (c *City) Name() string       { return c.name }
func (c *City) StoredFood() int    { return c.storedFood }
func (c *City) Housing() *Housing  { return c.housing }
func (c *City) Queue() []QueueItem { return append([]QueueItem(nil), c.queue...) }

// AddToQueue requests a unit of unitType for faction. Unknown unit types are
// logged and ignored.
func (c *City) AddToQueue(faction *Faction, unitType string) error {
	if faction == nil {
		return fmt.Errorf("city %s queue: %w", c.name, ErrNoFaction)
	}
	if _, ok := c.game.cat.Unit(unitType); !ok {
		c.game.log.Warn("city production queue: unknown unit type", "city", c.name, "unit", unitType)
		return nil
	}
	c.queue = append(c.queue, QueueItem{Faction: faction, UnitType: unitType})
	if c.nation.index == 0 {
		c.game.bus.Publish(RomeDemandIncrease{City: c, Faction: faction, UnitType: unitType})
	}
	return nil
}

// ReceiveFood stores delivered food and works the queue.
func (c *City) ReceiveFood(n int) error {
	if n < 0 {
		return negative("city food", n)
	}
	c.storedFood += n
	c.ProcessFood()
	return nil
}

// ProcessFood releases queued units while the city has food for them.
// A head request its faction cannot pay for is discarded; a head the
// city has too little food for waits.
func (c *City) ProcessFood() {
	for len(c.queue) > 0 {
		head := c.queue[0]
		def, _ := c.game.cat.Unit(head.UnitType)
		cost := def.ProductionCosts.RemoveFromQueue

		if head.Faction.money < cost.Money {
			c.queue = c.queue[1:]
			c.game.log.Info("production request discarded, faction cannot pay",
				"city", c.name, "faction", head.Faction.name, "unit", head.UnitType)
			return
		}
		if c.storedFood < cost.Food {
			return
		}

		c.storedFood -= cost.Food
		if err := head.Faction.SpendMoney(cost.Money); err != nil {
			c.game.log.Error("production payment failed", "city", c.name, "error", err)
			return
		}
		c.queue = c.queue[1:]
		if _, err := head.Faction.AddUnit(head.UnitType, c.hex); err != nil {
			c.game.log.Error("production spawn failed", "city", c.name, "unit", head.UnitType, "error", err)
		}
		if c.storedFood <= 0 {
			return
		}
	}
}

func (c *City) String() string {
	return fmt.Sprintf("%s (%s)", c.name, c.nation.name)
}
