package game

import (
	"github.com/talgya/empires4x/internal/catalog"
	"github.com/talgya/empires4x/internal/world"
)

// Claimant is a Faction or a Nation.
type Claimant interface {
	claimant()
}

// ledger accumulates claim weight per actor and remembers first-seen order,
// which decides ties.
type ledger[K comparable] struct {
	keys []K
	vals map[K]int
}

func (l *ledger[K]) get(k K) int {
	return l.vals[k]
}

func (l *ledger[K]) add(k K, inc int) int {
	if l.vals == nil {
		l.vals = make(map[K]int)
	}
	if _, seen := l.vals[k]; !seen {
		l.keys = append(l.keys, k)
	}
	l.vals[k] += inc
	return l.vals[k]
}

// top returns the actor with the largest positive total. Only a strictly
// larger total displaces an earlier actor.
func (l *ledger[K]) top() (K, bool) {
	var best K
	bestVal := 0
	found := false
	for _, k := range l.keys {
		if v := l.vals[k]; v > bestVal {
			best, bestVal, found = k, v, true
		}
	}
	return best, found
}

func (l *ledger[K]) entries() []claimEntry[K] {
	out := make([]claimEntry[K], 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, claimEntry[K]{k, l.vals[k]})
	}
	return out
}

type claimEntry[K comparable] struct {
	actor K
	value int
}

// Improvement is a built improvement with its terrain-specific yield merged in.
type Improvement struct {
	Key        string
	Name       string
	ClaimBonus int
	Laborers   int
	Produces   string
	Quantity   int
	Faction    *Faction
}

// Laborer works an improved tile and may be housed in a city.
type Laborer struct {
	Hex     *world.Hex
	Faction *Faction
	Type    string
	Home    *City
}

// Tile is the per-hex overlay of claims, improvement, laborers, and city.
type Tile struct {
	game        *Game
	hex         *world.Hex
	factions    ledger[*Faction]
	nations     ledger[*Nation]
	improvement *Improvement
	laborers    []*Laborer
	city        *City
}

func (t *Tile) Hex() *world.Hex           { return t.hex }
func (t *Tile) City() *City               { return t.city }
func (t *Tile) Improvement() *Improvement { return t.improvement }

// Laborers returns the laborers working this tile.
func (t *Tile) Laborers() []*Laborer {
	return append([]*Laborer(nil), t.laborers...)
}

// AddLaborer assigns l to this tile. Adding the same laborer twice is a no-op.
func (t *Tile) AddLaborer(l *Laborer) {
	for _, existing := range t.laborers {
		if existing == l {
			return
		}
	}
	t.laborers = append(t.laborers, l)
}

// Claims adds inc to the actor's claim and returns the new total. An
// increment of zero only reads. Negative increments are refused.
func (t *Tile) Claims(actor Claimant, inc int) int {
	if inc < 0 {
		t.game.log.Warn("negative claim increment ignored", "hex", t.hex, "increment", inc)
		inc = 0
	}
	switch a := actor.(type) {
	case *Faction:
		if a == nil {
			return 0
		}
		if inc == 0 {
			return t.factions.get(a)
		}
		return t.factions.add(a, inc)
	case *Nation:
		if a == nil {
			return 0
		}
		if inc == 0 {
			return t.nations.get(a)
		}
		return t.nations.add(a, inc)
	default:
		return 0
	}
}

// Faction returns the faction with the largest claim, or nil.
func (t *Tile) Faction() *Faction {
	f, _ := t.factions.top()
	return f
}

// Nation returns the nation with the largest claim, or nil.
func (t *Tile) Nation() *Nation {
	n, _ := t.nations.top()
	return n
}

// ClaimTerritory adds a claim and announces a change of the owning faction.
func (t *Tile) ClaimTerritory(actor Claimant, inc int) {
	if inc == 0 {
		return
	}
	prev := t.Faction()
	t.Claims(actor, inc)
	if _, ok := actor.(*Faction); !ok {
		return
	}
	if cur := t.Faction(); cur != prev {
		t.game.bus.Publish(TerritoryChanged{Hex: t.hex, Previous: prev, Current: cur})
	}
}

// IsValidImprovement reports whether key could be built here now.
func (t *Tile) IsValidImprovement(key string) bool {
	if key == "" {
		return false
	}
	def, ok := t.game.cat.Improvement(key)
	if !ok {
		return false
	}
	if t.improvement != nil && t.improvement.Key != key {
		return false
	}
	if _, ok := def.Terrains[string(t.hex.Terrain)]; !ok {
		return false
	}
	return t.city == nil
}

// SetImprovement builds key on the tile. The key "destroy" clears the tile
// unconditionally. A faction-built improvement adds the improvement's claim bonus.
func (t *Tile) SetImprovement(key string, faction *Faction) bool {
	if key == catalog.ImprovementDestroy {
		t.improvement = nil
		return true
	}
	if !t.IsValidImprovement(key) {
		if _, known := t.game.cat.Improvement(key); !known {
			t.game.log.Warn("unknown improvement", "key", key, "hex", t.hex)
		}
		return false
	}
	def, _ := t.game.cat.Improvement(key)
	yield := def.Terrains[string(t.hex.Terrain)]
	imp := &Improvement{
		Key:        key,
		Name:       def.Name,
		ClaimBonus: def.ClaimBonus,
		Laborers:   def.Laborers,
		Produces:   yield.Produces,
		Quantity:   yield.Quantity,
	}
	t.improvement = imp
	if faction != nil {
		t.ClaimTerritory(faction, def.ClaimBonus)
		imp.Faction = faction
	}
	return true
}
