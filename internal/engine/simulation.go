// Scenario setup, the happenings log, and per-round statistics.
package engine

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/empires4x/internal/events"
	"github.com/talgya/empires4x/internal/game"
	"github.com/talgya/empires4x/internal/world"
)

const (
	maxEvents = 1000 // In-memory happenings log
	subBuffer = 64   // Per-subscriber channel
)

// Config describes a fresh scenario.
type Config struct {
	World         world.GenConfig `yaml:"world"`
	Factions      int             `yaml:"factions"`       // One nation per faction; the first is human
	SiteSpacing   int             `yaml:"site_spacing"`   // Minimum hexes between starting cities
	StartingUnits []string        `yaml:"starting_units"` // Placed on every capital
	Policy        Policy          `yaml:"policy"`
}

// DefaultConfig returns a four-faction game on the default map.
func DefaultConfig() Config {
	return Config{
		World:         world.DefaultGenConfig(),
		Factions:      4,
		SiteSpacing:   6,
		StartingUnits: []string{"settler", "farmer", "warrior"},
		Policy:        DefaultPolicy(),
	}
}

// LoadConfig reads a scenario from a YAML file. Fields the file leaves out
// keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if cfg.Factions < 1 {
		return cfg, fmt.Errorf("scenario %s: factions must be at least 1, got %d", path, cfg.Factions)
	}
	return cfg, nil
}

// Event is a notable happening in the game.
type Event struct {
	Round       int    `json:"round" db:"round"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "city", "unit", "goods", "turn"
}

// Stats are aggregate figures taken at the end of a round.
type Stats struct {
	Round     int     `json:"round"`
	Cities    int     `json:"cities"`
	Units     int     `json:"units"`
	Farms     int     `json:"farms"`
	InTransit int     `json:"in_transit"`
	Treasury  float64 `json:"treasury"`
	Delivered int     `json:"delivered"` // Food delivered to cities, all rounds
	Spoiled   int     `json:"spoiled"`   // Food lost on the road, all rounds
}

// RoundReport is handed to OnRound once a round has been fully resolved.
type RoundReport struct {
	Stats    Stats
	Snapshot *game.Snapshot
	Events   []Event // Happenings of this round only
}

// NewScenario generates a map, places one capital per faction, and puts
// the starting units on it. opts.Grid is ignored.
func NewScenario(cfg Config, opts game.Options) (*Engine, error) {
	if cfg.Factions < 1 {
		return nil, fmt.Errorf("engine: scenario needs at least one faction, got %d", cfg.Factions)
	}
	if cfg.World.Seed == 0 {
		cfg.World.Seed = rand.Int63()
	}
	seed := cfg.World.Seed

	opts.Grid = world.Generate(cfg.World)
	g, err := game.New(opts)
	if err != nil {
		return nil, err
	}

	sites := world.PlaceSites(opts.Grid, cfg.Factions, cfg.SiteSpacing, seed)
	if len(sites) < cfg.Factions {
		return nil, fmt.Errorf("engine: only %d of %d starting sites fit the map", len(sites), cfg.Factions)
	}
	for _, site := range sites {
		n := g.AddNation()
		f, err := g.AddFaction(n)
		if err != nil {
			return nil, err
		}
		if _, err := game.FoundCity(g, site.Hex, n, site.Name); err != nil {
			return nil, fmt.Errorf("engine: capital for %s: %w", n.Name(), err)
		}
		for _, unitType := range cfg.StartingUnits {
			if _, err := f.AddUnit(unitType, site.Hex); err != nil {
				return nil, fmt.Errorf("engine: starting %s for %s: %w", unitType, f.Name(), err)
			}
		}
	}
	g.RunQueue()

	g.Logger().Info("scenario ready",
		"seed", seed,
		"hexes", opts.Grid.Len(),
		"factions", len(g.Factions()),
		"cities", len(g.Cities()),
	)

	e := New(g, seed)
	e.Policy = cfg.Policy
	return e, nil
}

// subscribe hooks the engine into the game's signals.
func (e *Engine) subscribe() {
	bus := e.Game.Bus()

	bus.Subscribe(game.KindTurnStarted, func(ev events.Event) {
		f := ev.(game.TurnStarted).Faction
		if !f.IsHuman() || e.Autopilot {
			e.playFaction(f)
		}
	})
	bus.Subscribe(game.KindRoundEnded, func(ev events.Event) {
		round := ev.(game.RoundEnded).Round
		e.harvest()
		for _, f := range e.Game.Factions() {
			if !f.IsHuman() || e.Autopilot {
				e.planProduction(f, round)
			}
		}
		e.finished = round
	})

	bus.Subscribe(game.KindCityFounded, func(ev events.Event) {
		c := ev.(game.CityFounded).City
		e.record("city", fmt.Sprintf("%s founded at %v", c, c.Hex()))
	})
	bus.Subscribe(game.KindUnitCreated, func(ev events.Event) {
		u := ev.(game.UnitCreated).Unit
		e.record("unit", fmt.Sprintf("%s raised %s", u.Faction(), u.Type()))
	})
	bus.Subscribe(game.KindGoodsDelivered, func(ev events.Event) {
		d := ev.(game.GoodsDelivered)
		e.stats.Delivered += d.Food
		e.record("goods", fmt.Sprintf("%d %s delivered to %s", d.Goods.Quantity(), d.Goods.Type(), d.City.Name()))
	})
	bus.Subscribe(game.KindFoodSpoiled, func(ev events.Event) {
		gd := ev.(game.FoodSpoiled).Goods
		e.stats.Spoiled += gd.Quantity()
		e.record("goods", fmt.Sprintf("%d food spoiled at %v", gd.Quantity(), gd.Hex()))
	})
	bus.Subscribe(game.KindRomeDemandIncrease, func(ev events.Event) {
		d := ev.(game.RomeDemandIncrease)
		e.record("city", fmt.Sprintf("%s asks %s for a %s", d.Faction, d.City.Name(), d.UnitType))
	})
}

func (e *Engine) record(category, description string) {
	ev := Event{Round: e.Game.Round(), Description: description, Category: category}
	e.events = append(e.events, ev)
	if len(e.events) > maxEvents {
		e.events = e.events[len(e.events)-maxEvents:]
	}
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.log.Debug("event dropped for slow subscriber", "sub_id", id)
		}
	}
}

// Subscribe returns a channel that receives every happening recorded from
// now on. Slow readers miss events rather than stall the game.
func (e *Engine) Subscribe() (int, <-chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[int]chan Event)
	}
	e.nextSub++
	ch := make(chan Event, subBuffer)
	e.subs[e.nextSub] = ch
	return e.nextSub, ch
}

// Unsubscribe closes and forgets a subscription.
func (e *Engine) Unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ch, ok := e.subs[id]; ok {
		close(ch)
		delete(e.subs, id)
	}
}

// Events returns up to limit of the most recent happenings, oldest first.
// A limit of zero or below returns them all.
func (e *Engine) Events(limit int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := 0
	if limit > 0 && len(e.events) > limit {
		start = len(e.events) - limit
	}
	return append([]Event(nil), e.events[start:]...)
}

// Stats returns the figures of the last finished round.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// finishRound refreshes the statistics, logs the round report, and hands
// it to OnRound. It runs after the completion queue has drained.
func (e *Engine) finishRound(round int) {
	e.updateStats(round)
	s := e.stats
	e.log.Info("round report",
		"round", round,
		"cities", s.Cities,
		"units", s.Units,
		"farms", s.Farms,
		"in_transit", s.InTransit,
		"treasury", fmt.Sprintf("%.0f", s.Treasury),
		"delivered", s.Delivered,
		"spoiled", s.Spoiled,
	)

	start := len(e.events)
	for start > 0 && e.events[start-1].Round == round {
		start--
	}
	if e.OnRound != nil {
		fresh := append([]Event(nil), e.events[start:]...)
		e.OnRound(RoundReport{Stats: s, Snapshot: e.Game.Snapshot(), Events: fresh})
	}
}

func (e *Engine) updateStats(round int) {
	g := e.Game
	s := &e.stats
	s.Round = round
	s.Cities = len(g.Cities())
	s.InTransit = len(g.Goods())
	s.Units, s.Treasury, s.Farms = 0, 0, 0
	for _, f := range g.Factions() {
		s.Units += len(f.Units())
		s.Treasury += f.Money()
	}
	for _, h := range g.Grid().Hexes() {
		if g.TileAt(h).Improvement() != nil {
			s.Farms++
		}
	}
}

// RestoreEvents seeds the happenings log, typically from a savegame.
func (e *Engine) RestoreEvents(evs []Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events[:0], evs...)
	if len(e.events) > maxEvents {
		e.events = e.events[len(e.events)-maxEvents:]
	}
}
