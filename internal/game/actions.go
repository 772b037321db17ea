package game

import (
	"fmt"

	"github.com/talgya/empires4x/internal/events"
	"github.com/talgya/empires4x/internal/world"
)

// ActionKind is one of the closed set of player actions.
type ActionKind uint8

const (
	BuildFarm ActionKind = iota
	FoundCityAction
	CenterMapAction
	EndTurnAction
	Skip
	StartCityView
	StartMoveTo
	StartTileView
	Wait
)

// AllActions lists every action kind in menu order.
var AllActions = []ActionKind{
	BuildFarm, FoundCityAction, StartMoveTo, Wait, Skip,
	CenterMapAction, StartCityView, StartTileView, EndTurnAction,
}

// ActionContext carries what an action applies to.
// Menu, when set, restricts actions to those shown in that menu.
type ActionContext struct {
	Unit    *Unit
	Hex     *world.Hex
	Faction *Faction
	Menu    string
}

// Menus an action may appear in.
const (
	MenuUnit = "unit"
	MenuTile = "tile"
	MenuCity = "city"
)

type actionInfo struct {
	key       string
	label     string
	hotkey    string
	menus     []string
	unitTypes []string // nil means any or no unit
	command   bool     // commands skip the doing-action signal
}

func (k ActionKind) info() actionInfo {
	switch k {
	case BuildFarm:
		return actionInfo{key: "build-farm", label: "Build Farm", hotkey: "f", menus: []string{MenuUnit, MenuTile}, unitTypes: []string{"farmer"}}
	case FoundCityAction:
		return actionInfo{key: "found-city", label: "Found City", hotkey: "b", menus: []string{MenuUnit, MenuTile}, unitTypes: []string{"settler"}}
	case CenterMapAction:
		return actionInfo{key: "center-map", label: "Center Map", hotkey: "c", menus: []string{MenuUnit}, command: true}
	case EndTurnAction:
		return actionInfo{key: "end-turn", label: "End Turn", hotkey: "e", menus: []string{MenuUnit, MenuTile}}
	case Skip:
		return actionInfo{key: "skip", label: "Skip", hotkey: "s", menus: []string{MenuUnit}}
	case StartCityView:
		return actionInfo{key: "city-view", label: "View City", hotkey: "v", menus: []string{MenuTile, MenuCity}, command: true}
	case StartMoveTo:
		return actionInfo{key: "move-to", label: "Move To", hotkey: "m", menus: []string{MenuTile}}
	case StartTileView:
		return actionInfo{key: "tile-view", label: "View Tile", hotkey: "t", menus: []string{MenuTile}, command: true}
	case Wait:
		return actionInfo{key: "wait", label: "Wait", hotkey: "w", menus: []string{MenuUnit}}
	default:
		panic(fmt.Sprintf("unknown action kind %d", k))
	}
}

func (k ActionKind) Key() string    { return k.info().key }
func (k ActionKind) Label() string  { return k.info().label }
func (k ActionKind) Hotkey() string { return k.info().hotkey }
func (k ActionKind) String() string { return k.info().key }

// ActionByKey looks up an action by its key, e.g. "build-farm".
func ActionByKey(key string) (ActionKind, bool) {
	for _, k := range AllActions {
		if k.Key() == key {
			return k, true
		}
	}
	return 0, false
}

// ActionByHotkey looks up an action by its keyboard shortcut.
func ActionByHotkey(key string) (ActionKind, bool) {
	for _, k := range AllActions {
		if k.Hotkey() == key {
			return k, true
		}
	}
	return 0, false
}

// IsValid runs the menu filter, the unit-type gate, and the kind's validators.
func (g *Game) IsValid(k ActionKind, ctx ActionContext) bool {
	info := k.info()
	if ctx.Menu != "" && !contains(info.menus, ctx.Menu) {
		return false
	}
	if info.unitTypes != nil && (ctx.Unit == nil || !contains(info.unitTypes, ctx.Unit.unitType)) {
		return false
	}

	switch k {
	case BuildFarm:
		return g.currentPlayerTurn() && g.isFarmBuildable(ctx)
	case FoundCityAction:
		return g.currentPlayerTurn() && g.canFoundCityAt(ctx)
	case CenterMapAction:
		return true
	case EndTurnAction:
		return g.currentPlayerTurn()
	case Skip, Wait:
		return g.currentPlayerTurn() && ctx.Unit != nil && !ctx.Unit.deleted
	case StartCityView:
		return g.hexTileValid(ctx.Hex) && g.isCityTile(ctx.Hex)
	case StartMoveTo:
		return g.currentPlayerTurn() && g.isLegalMove(ctx)
	case StartTileView:
		return g.hexTileValid(ctx.Hex)
	default:
		panic(fmt.Sprintf("unknown action kind %d", k))
	}
}

// AvailableActions returns every action valid in ctx.
func (g *Game) AvailableActions(ctx ActionContext) []ActionKind {
	var out []ActionKind
	for _, k := range AllActions {
		if g.IsValid(k, ctx) {
			out = append(out, k)
		}
	}
	return out
}

// HandleAction validates and executes k. It reports whether the action was accepted.
func (g *Game) HandleAction(k ActionKind, ctx ActionContext) bool {
	return g.Execute(k, ctx) != nil
}

// Execute schedules k on the game queue and returns a completion that
// resolves once it has run, or nil if k is not valid in ctx. Actions that
// are not commands announce themselves with doing-action first.
func (g *Game) Execute(k ActionKind, ctx ActionContext) *events.Completion {
	if !g.IsValid(k, ctx) {
		return nil
	}
	return g.queue.Resolved().Then(func() {
		if !k.info().command {
			g.bus.Publish(DoingAction{Action: k, Unit: ctx.Unit})
		}
		g.perform(k, ctx)
	})
}

func (g *Game) perform(k ActionKind, ctx ActionContext) {
	switch k {
	case BuildFarm:
		u, hex := ctx.Unit, ctx.Hex
		if hex != u.hex {
			u.SetAction(BuildFarm, hex)
			return
		}
		u.BuildImprovement("farm")
	case FoundCityAction:
		u, hex := ctx.Unit, ctx.Hex
		if hex != u.hex {
			u.SetAction(FoundCityAction, hex)
			return
		}
		if _, err := u.FoundCity(""); err != nil {
			g.log.Warn("found city failed", "unit", u, "error", err)
		}
	case CenterMapAction:
		hex := ctx.Hex
		if hex == nil && ctx.Unit != nil {
			hex = ctx.Unit.hex
		}
		g.bus.Publish(CenterMap{Hex: hex})
	case EndTurnAction:
		if f := g.CurrentFaction(); f != nil {
			f.EndTurn()
		}
	case Skip:
		ctx.Unit.Deactivate(true)
	case StartCityView:
		g.bus.Publish(OpenCityView{Hex: ctx.Hex, City: g.TileAt(ctx.Hex).City()})
	case StartMoveTo:
		u := ctx.Unit
		if u == nil {
			u = g.activeUnit
		}
		hex := ctx.Hex
		if hex == nil {
			hex = g.activeTile
		}
		if hex == nil {
			hex = u.hex
		}
		if u.SetPath(hex) != nil {
			u.MoveOneTurn()
		}
	case StartTileView:
		g.bus.Publish(OpenTileView{Hex: ctx.Hex})
	case Wait:
		ctx.Unit.Deactivate(false)
	default:
		panic(fmt.Sprintf("unknown action kind %d", k))
	}
}

func (g *Game) currentPlayerTurn() bool {
	f := g.CurrentFaction()
	return f != nil && f.index == 0
}

func (g *Game) hexTileValid(hex *world.Hex) bool {
	return hex != nil && g.grid.Contains(hex) && g.tiles[hex] != nil
}

func (g *Game) isCityTile(hex *world.Hex) bool {
	return g.tiles[hex].city != nil
}

func (g *Game) isHexControlled(hex *world.Hex, f *Faction) bool {
	return g.tiles[hex].Faction() == f
}

// isFarmBuildable requires a farmer and a tile that is unclaimed or held by its faction.
func (g *Game) isFarmBuildable(ctx ActionContext) bool {
	if !g.hexTileValid(ctx.Hex) || ctx.Unit == nil || ctx.Unit.deleted {
		return false
	}
	if !ctx.Unit.def.Builds("farm") || !g.tiles[ctx.Hex].IsValidImprovement("farm") {
		return false
	}
	return g.tiles[ctx.Hex].Faction() == nil || g.isHexControlled(ctx.Hex, ctx.Unit.faction)
}

func (g *Game) canFoundCityAt(ctx ActionContext) bool {
	if !g.hexTileValid(ctx.Hex) || ctx.Unit == nil || ctx.Unit.deleted {
		return false
	}
	return ctx.Unit.def.CanFoundCity && g.CanHostCity(ctx.Hex)
}

// isLegalMove accepts a different, reachable hex the unit's faction has seen.
func (g *Game) isLegalMove(ctx ActionContext) bool {
	u, hex := ctx.Unit, ctx.Hex
	if u == nil || u.deleted || !g.hexTileValid(hex) || hex == u.hex {
		return false
	}
	if g.fog.State(u.faction, hex) == Unexplored {
		return false
	}
	_, ok := g.grid.FindPath(u.hex, hex, u.Cost)
	return ok
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
