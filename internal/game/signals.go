package game

import (
	"github.com/talgya/empires4x/internal/events"
	"github.com/talgya/empires4x/internal/world"
)

// Signal kinds produced by the core.
const (
	KindUnitCreated        events.Kind = "unit-created"
	KindUnitActivated      events.Kind = "unit-activated"
	KindUnitDeactivated    events.Kind = "unit-deactivated"
	KindUnitMoved          events.Kind = "unit-moved"
	KindGoodsMoved         events.Kind = "goods-moved"
	KindGoodsDelivered     events.Kind = "goods-delivered"
	KindGoodsDestroyed     events.Kind = "goods-destroyed"
	KindFoodSpoiled        events.Kind = "food-spoiled"
	KindEndTurn            events.Kind = "end-turn"
	KindTurnStarted        events.Kind = "turn-started"
	KindRoundStarted       events.Kind = "round-started"
	KindRoundEnded         events.Kind = "round-ended"
	KindRomeDemandIncrease events.Kind = "rome-demand-increase"
	KindTerritoryChanged   events.Kind = "territory-changed"
	KindCityFounded        events.Kind = "city-founded"
	KindFogUpdated         events.Kind = "fog-updated"
	KindDoingAction        events.Kind = "doing-action"
	KindCenterMap          events.Kind = "center-map"
	KindOpenCityView       events.Kind = "open-city-view"
	KindOpenTileView       events.Kind = "open-tile-view"
)

// Signal kinds consumed by the core.
const (
	KindKeyPressed events.Kind = "key-pressed"
	KindHexClicked events.Kind = "hex-clicked"
)

type UnitCreated struct{ Unit *Unit }
type UnitActivated struct{ Unit *Unit }
type UnitDeactivated struct{ Unit *Unit }

// UnitMoved is published once the presenter has finished showing the move.
type UnitMoved struct {
	Unit     *Unit
	From, To *world.Hex
}

// GoodsMoved is published once the presenter has finished showing the move.
type GoodsMoved struct {
	Goods    *Goods
	From, To *world.Hex
}

type GoodsDelivered struct {
	Goods *Goods
	City  *City
	Money float64
	Food  int
}

type GoodsDestroyed struct{ Goods *Goods }
type FoodSpoiled struct{ Goods *Goods }
type EndTurn struct{ Faction *Faction }
type TurnStarted struct{ Faction *Faction }
type RoundStarted struct{ Round int }
type RoundEnded struct{ Round int }

type RomeDemandIncrease struct {
	City     *City
	Faction  *Faction
	UnitType string
}

// TerritoryChanged reports a change of the tile's top faction claimant.
type TerritoryChanged struct {
	Hex               *world.Hex
	Previous, Current *Faction
}

type CityFounded struct{ City *City }
type FogUpdated struct{ Faction *Faction }

type DoingAction struct {
	Action ActionKind
	Unit   *Unit
}

type CenterMap struct{ Hex *world.Hex }

type OpenCityView struct {
	Hex  *world.Hex
	City *City
}

type OpenTileView struct{ Hex *world.Hex }

type KeyPressed struct{ Key string }
type HexClicked struct{ Hex *world.Hex }

func (UnitCreated) Kind() events.Kind        { return KindUnitCreated }
func (UnitActivated) Kind() events.Kind      { return KindUnitActivated }
func (UnitDeactivated) Kind() events.Kind    { return KindUnitDeactivated }
func (UnitMoved) Kind() events.Kind          { return KindUnitMoved }
func (GoodsMoved) Kind() events.Kind         { return KindGoodsMoved }
func (GoodsDelivered) Kind() events.Kind     { return KindGoodsDelivered }
func (GoodsDestroyed) Kind() events.Kind     { return KindGoodsDestroyed }
func (FoodSpoiled) Kind() events.Kind        { return KindFoodSpoiled }
func (EndTurn) Kind() events.Kind            { return KindEndTurn }
func (TurnStarted) Kind() events.Kind        { return KindTurnStarted }
func (RoundStarted) Kind() events.Kind       { return KindRoundStarted }
func (RoundEnded) Kind() events.Kind         { return KindRoundEnded }
func (RomeDemandIncrease) Kind() events.Kind { return KindRomeDemandIncrease }
func (TerritoryChanged) Kind() events.Kind   { return KindTerritoryChanged }
func (CityFounded) Kind() events.Kind        { return KindCityFounded }
func (FogUpdated) Kind() events.Kind         { return KindFogUpdated }
func (DoingAction) Kind() events.Kind        { return KindDoingAction }
func (CenterMap) Kind() events.Kind          { return KindCenterMap }
func (OpenCityView) Kind() events.Kind       { return KindOpenCityView }
func (OpenTileView) Kind() events.Kind       { return KindOpenTileView }
func (KeyPressed) Kind() events.Kind         { return KindKeyPressed }
func (HexClicked) Kind() events.Kind         { return KindHexClicked }
