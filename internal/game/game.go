// Package game is the turn-based core: units and goods moving under
// per-turn budgets, tile claims, cities and their production queues, fog of
// war, player actions, and the per-faction turn cycle. It is single-threaded;
// presentation is decoupled through Presenter and the events completion queue.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/empires4x/internal/catalog"
	"github.com/talgya/empires4x/internal/events"
	"github.com/talgya/empires4x/internal/settings"
	"github.com/talgya/empires4x/internal/world"
)

// Options configures a new Game. Only Grid is required.
type Options struct {
	Grid      *world.Grid
	Catalog   *catalog.Catalog
	Presenter Presenter
	Logger    *slog.Logger
	Settings  *settings.Settings
}

// Game owns every piece of simulation state and the signal bus that ties them together.
type Game struct {
	grid      *world.Grid
	cat       *catalog.Catalog
	bus       *events.Bus
	queue     *events.Queue
	presenter Presenter
	log       *slog.Logger
	settings  *settings.Settings

	tiles    map[*world.Hex]*Tile
	nations  []*Nation
	factions []*Faction
	cities   []*City
	goods    []*Goods
	fog      *FogOfWar

	activeUnit *Unit
	activeTile *world.Hex

	current   int // index of the faction whose turn it is
	round     int
	roundOver bool

	cityNames map[*Nation]int
}

// New builds a game over opts.Grid with one tile per hex and no factions.
func New(opts Options) (*Game, error) {
	if opts.Grid == nil {
		return nil, errors.New("game: nil grid")
	}
	g := &Game{
		grid:      opts.Grid,
		cat:       opts.Catalog,
		presenter: opts.Presenter,
		log:       opts.Logger,
		settings:  opts.Settings,
		bus:       events.NewBus(),
		queue:     events.NewQueue(),
		tiles:     make(map[*world.Hex]*Tile, opts.Grid.Len()),
		cityNames: make(map[*Nation]int),
	}
	if g.cat == nil {
		g.cat = catalog.Default()
	}
	if g.presenter == nil {
		g.presenter = ImmediatePresenter{}
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	if g.settings == nil {
		g.settings = settings.Default()
	}
	for _, h := range g.grid.Hexes() {
		g.tiles[h] = &Tile{game: g, hex: h}
	}
	g.fog = newFogOfWar(g)
	g.subscribe()
	return g, nil
}

func (g *Game) subscribe() {
	g.bus.Subscribe(KindGoodsMoved, func(e events.Event) {
		g.deliver(e.(GoodsMoved).Goods)
	})
	g.bus.Subscribe(KindUnitCreated, func(e events.Event) {
		g.fog.Recompute(e.(UnitCreated).Unit.faction)
	})
	g.bus.Subscribe(KindUnitMoved, func(e events.Event) {
		g.fog.Recompute(e.(UnitMoved).Unit.faction)
	})
	g.bus.Subscribe(KindEndTurn, func(e events.Event) {
		if e.(EndTurn).Faction == g.CurrentFaction() {
			g.queue.Defer(g.advance)
		}
	})
	g.bus.Subscribe(KindKeyPressed, func(e events.Event) {
		g.handleKey(e.(KeyPressed).Key)
	})
	g.bus.Subscribe(KindHexClicked, func(e events.Event) {
		if hex := e.(HexClicked).Hex; g.grid.Contains(hex) {
			g.activeTile = hex
		}
	})
}

func (g *Game) Bus() *events.Bus             { return g.bus }
func (g *Game) Queue() *events.Queue         { return g.queue }
func (g *Game) Grid() *world.Grid            { return g.grid }
func (g *Game) Catalog() *catalog.Catalog    { return g.cat }
func (g *Game) Settings() *settings.Settings { return g.settings }
func (g *Game) Fog() *FogOfWar               { return g.fog }
func (g *Game) Logger() *slog.Logger         { return g.log }
func (g *Game) ActiveUnit() *Unit            { return g.activeUnit }
func (g *Game) ActiveTile() *world.Hex       { return g.activeTile }
func (g *Game) Round() int                   { return g.round }
func (g *Game) RoundOver() bool              { return g.roundOver }

func (g *Game) Nations() []*Nation   { return append([]*Nation(nil), g.nations...) }
func (g *Game) Factions() []*Faction { return append([]*Faction(nil), g.factions...) }
func (g *Game) Cities() []*City      { return append([]*City(nil), g.cities...) }

// Goods returns the shipments still in transit.
func (g *Game) Goods() []*Goods {
	out := make([]*Goods, 0, len(g.goods))
	for _, gd := range g.goods {
		if !gd.deleted {
			out = append(out, gd)
		}
	}
	return out
}

// TileAt returns the tile overlay for hex, or nil if hex is not on the grid.
func (g *Game) TileAt(hex *world.Hex) *Tile {
	return g.tiles[hex]
}

// CurrentFaction returns the faction whose turn it is, or nil when there are no factions.
func (g *Game) CurrentFaction() *Faction {
	if g.current < 0 || g.current >= len(g.factions) {
		return nil
	}
	return g.factions[g.current]
}

// SetSettings replaces the player settings used for key input.
func (g *Game) SetSettings(s *settings.Settings) {
	if s != nil {
		g.settings = s
	}
}

// SetActiveTile selects hex as the target for tile actions. Hexes off the grid are ignored.
func (g *Game) SetActiveTile(hex *world.Hex) {
	if g.grid.Contains(hex) {
		g.activeTile = hex
	}
}

// AddNation appends a nation named from the catalog.
func (g *Game) AddNation() *Nation {
	i := len(g.nations)
	def := g.cat.NationAt(i)
	n := &Nation{index: i, name: def.Name, color: def.Color, frame: def.Frame}
	g.nations = append(g.nations, n)
	return n
}

// AddFaction appends a faction belonging to nation, funded per the rules.
func (g *Game) AddFaction(nation *Nation) (*Faction, error) {
	if nation == nil {
		return nil, ErrNoNation
	}
	i := len(g.factions)
	def := g.cat.FactionAt(i)
	f := &Faction{
		game:   g,
		index:  i,
		name:   def.Name,
		color:  def.Color,
		nation: nation,
		cursor: -1,
	}
	if err := f.SetMoney(g.cat.Rules.StartingMoney); err != nil {
		return nil, fmt.Errorf("faction %s: %w", f.name, err)
	}
	g.factions = append(g.factions, f)

	g.bus.Subscribe(KindUnitMoved, func(e events.Event) {
		if e.(UnitMoved).Unit.faction == f && g.CurrentFaction() == f {
			f.CheckEndTurn()
		}
	})
	return f, nil
}

// Defer queues fn behind any pending completions.
func (g *Game) Defer(fn func()) {
	g.queue.Defer(fn)
}

// RunQueue drains pending completions and deferred work.
func (g *Game) RunQueue() int {
	return g.queue.Run()
}

// Publish raises e on the game bus, typically an input signal.
func (g *Game) Publish(e events.Event) {
	g.bus.Publish(e)
}

// moved hands a finished logical move to the presenter. The move signal is
// published on the queue once the presenter resolves.
func (g *Game) moved(m Mover, from *world.Hex) *events.Completion {
	to := m.Hex()
	done := g.queue.NewCompletion()
	next := done.Then(func() {
		switch v := m.(type) {
		case *Unit:
			g.bus.Publish(UnitMoved{Unit: v, From: from, To: to})
		case *Goods:
			g.bus.Publish(GoodsMoved{Goods: v, From: from, To: to})
		}
	})
	g.presenter.Move(m, to, done)
	return next
}

// NextRound starts a new round with the first faction's turn.
func (g *Game) NextRound() {
	if len(g.factions) == 0 {
		return
	}
	g.round++
	g.roundOver = false
	g.log.Debug("round started", "round", g.round)
	g.bus.Publish(RoundStarted{Round: g.round})
	g.beginTurn(0)
}

func (g *Game) beginTurn(i int) {
	g.current = i
	f := g.factions[i]
	f.BeginTurn()
	g.bus.Publish(TurnStarted{Faction: f})
	f.CheckEndTurn()
}

// advance hands the turn to the next faction, or closes the round once the
// last faction has ended. Goods move after every faction has had its turn.
func (g *Game) advance() {
	if g.roundOver {
		return
	}
	if next := g.current + 1; next < len(g.factions) {
		g.beginTurn(next)
		return
	}
	g.AdvanceGoods()
	g.roundOver = true
	g.log.Debug("round ended", "round", g.round)
	g.bus.Publish(RoundEnded{Round: g.round})
}

func (g *Game) handleKey(key string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	u := g.activeUnit
	if u != nil && u.faction.IsHuman() && !u.deleted {
		if d, ok := g.settings.Direction(key); ok {
			u.DoAction(d)
			return
		}
	}
	kind, ok := ActionByHotkey(key)
	if !ok {
		return
	}
	ctx := ActionContext{Unit: u, Hex: g.activeTile, Faction: g.CurrentFaction()}
	if ctx.Hex == nil && u != nil {
		ctx.Hex = u.hex
	}
	if !g.HandleAction(kind, ctx) {
		g.log.Debug("key ignored", "key", key, "action", kind)
	}
}

// nearestCity returns the closest city of nation to hex. With needVacancy
// only cities with free housing count. Ties go to the older city.
func (g *Game) nearestCity(hex *world.Hex, nation *Nation, needVacancy bool) *City {
	var best *City
	bestDist := 0
	for _, c := range g.cities {
		if c.nation != nation || (needVacancy && c.housing.Vacancies() <= 0) {
			continue
		}
		if d := g.grid.Distance(hex, c.hex); best == nil || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// NearestCity is the exported form of nearestCity without the housing filter.
func (g *Game) NearestCity(hex *world.Hex, nation *Nation) *City {
	return g.nearestCity(hex, nation, false)
}

// CanHostCity reports whether a city could be founded on hex.
func (g *Game) CanHostCity(hex *world.Hex) bool {
	t := g.tiles[hex]
	if t == nil || t.city != nil || hex.IsWater() {
		return false
	}
	def, ok := g.cat.Terrain(hex.Terrain)
	return ok && !def.Impassable
}

// nextCityName names a nation's next city: "Rome", then "Rome 2", and so on.
func (g *Game) nextCityName(n *Nation) string {
	g.cityNames[n]++
	if k := g.cityNames[n]; k > 1 {
		return fmt.Sprintf("%s %d", n.name, k)
	}
	return n.name
}
