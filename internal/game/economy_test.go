package game

import (
	"errors"
	"testing"

	"github.com/talgya/empires4x/internal/events"
	"github.com/talgya/empires4x/internal/world"
)

func TestClaims_ledger(t *testing.T) {
	fx := newFixture(t, 3, 3)
	tile := fx.g.TileAt(fx.hex(t, 1, 1))

	if got := tile.Claims(fx.player, 10); got != 10 {
		t.Fatalf("Claims(+10) = %d", got)
	}
	if got := tile.Claims(fx.player, 5); got != 15 {
		t.Fatalf("Claims(+5) = %d, want 15", got)
	}
	if got := tile.Claims(fx.player, 0); got != 15 {
		t.Errorf("Claims(0) = %d, want 15", got)
	}
	if got := tile.Claims(fx.player, -3); got != 15 {
		t.Errorf("negative increment changed the claim: %d", got)
	}
	if tile.Faction() != fx.player {
		t.Errorf("faction = %v", tile.Faction())
	}
	if tile.Nation() != nil {
		t.Errorf("nation = %v, want none", tile.Nation())
	}
	tile.Claims(fx.nation, 1)
	if tile.Nation() != fx.nation {
		t.Errorf("nation = %v", tile.Nation())
	}
}

func TestClaimTerritory_signalsOwnerChange(t *testing.T) {
	fx := newFixture(t, 3, 3)
	rival, err := fx.g.AddFaction(fx.g.AddNation())
	if err != nil {
		t.Fatal(err)
	}
	tile := fx.g.TileAt(fx.hex(t, 0, 0))
	var changes []TerritoryChanged
	fx.g.bus.Subscribe(KindTerritoryChanged, func(e events.Event) {
		changes = append(changes, e.(TerritoryChanged))
	})

	tile.ClaimTerritory(fx.player, 10)
	tile.ClaimTerritory(fx.player, 5)
	if len(changes) != 1 || changes[0].Previous != nil || changes[0].Current != fx.player {
		t.Fatalf("changes = %+v, want one change to the player", changes)
	}

	// A tie keeps the first claimant.
	tile.ClaimTerritory(rival, 15)
	if len(changes) != 1 || tile.Faction() != fx.player {
		t.Fatalf("tie changed the owner to %v", tile.Faction())
	}

	tile.ClaimTerritory(rival, 1)
	if len(changes) != 2 || changes[1].Previous != fx.player || changes[1].Current != rival {
		t.Fatalf("changes = %+v, want a change to the rival", changes)
	}

	tile.ClaimTerritory(fx.nation, 500)
	if len(changes) != 2 {
		t.Error("nation claim raised territory-changed")
	}
}

func TestSetImprovement(t *testing.T) {
	fx := newFixture(t, 3, 3)
	fx.hex(t, 2, 2).Terrain = world.TerrainWater
	fx.hex(t, 0, 1).Terrain = world.TerrainPlains
	grass := fx.g.TileAt(fx.hex(t, 1, 1))

	if !grass.SetImprovement("farm", fx.player) {
		t.Fatal("farm rejected on grass")
	}
	imp := grass.Improvement()
	if imp.Produces != "food" || imp.Quantity != 2 || imp.Faction != fx.player {
		t.Errorf("improvement = %+v", imp)
	}
	if grass.Claims(fx.player, 0) != 10 {
		t.Errorf("claim bonus = %d, want 10", grass.Claims(fx.player, 0))
	}
	if !grass.SetImprovement("farm", nil) {
		t.Error("re-applying the same improvement rejected")
	}
	if grass.SetImprovement("mine", fx.player) {
		t.Error("unknown improvement accepted")
	}

	plains := fx.g.TileAt(fx.hex(t, 0, 1))
	if !plains.SetImprovement("farm", nil) || plains.Improvement().Quantity != 3 {
		t.Errorf("plains farm = %+v", plains.Improvement())
	}
	if plains.Claims(fx.player, 0) != 0 {
		t.Error("improvement without a faction added a claim")
	}

	water := fx.g.TileAt(fx.hex(t, 2, 2))
	if water.IsValidImprovement("farm") || water.SetImprovement("farm", fx.player) {
		t.Error("farm accepted on water")
	}

	if !grass.SetImprovement("destroy", nil) || grass.Improvement() != nil {
		t.Error("destroy did not clear the tile")
	}
	if !water.SetImprovement("destroy", nil) {
		t.Error("destroy on an empty tile failed")
	}
}

func TestTile_addLaborerOnce(t *testing.T) {
	fx := newFixture(t, 2, 2)
	tile := fx.g.TileAt(fx.hex(t, 0, 0))
	l := &Laborer{Hex: tile.Hex(), Faction: fx.player, Type: "farmer"}
	tile.AddLaborer(l)
	tile.AddLaborer(l)
	if n := len(tile.Laborers()); n != 1 {
		t.Errorf("laborers = %d, want 1", n)
	}
}

func TestFoundCity(t *testing.T) {
	fx := newFixture(t, 7, 7)
	center := fx.hex(t, 3, 3)
	lake := fx.hex(t, 1, 3)
	lake.Terrain = world.TerrainWater
	fx.g.TileAt(center).SetImprovement("farm", fx.player)
	c := count(fx.g)

	city, err := FoundCity(fx.g, center, fx.nation, "Roma")
	if err != nil {
		t.Fatalf("FoundCity: %v", err)
	}
	if c[KindCityFounded] != 1 {
		t.Errorf("city-founded = %d", c[KindCityFounded])
	}
	tile := fx.g.TileAt(center)
	if tile.City() != city || tile.Improvement() != nil {
		t.Fatalf("tile city=%v improvement=%v", tile.City(), tile.Improvement())
	}
	if tile.IsValidImprovement("farm") {
		t.Error("farm allowed on a city")
	}
	if city.Housing().Capacity() != 6 || city.Housing().Vacancies() != 6 {
		t.Errorf("housing = %d/%d", city.Housing().Vacancies(), city.Housing().Capacity())
	}

	for _, h := range fx.g.grid.InRange(center, 1) {
		if got := fx.g.TileAt(h).Claims(fx.nation, 0); got != 100 {
			t.Errorf("claim at %v = %d, want 100", h, got)
		}
	}
	if got := fx.g.TileAt(lake).Claims(fx.nation, 0); got != 50 {
		t.Errorf("water claim = %d, want 50", got)
	}
	if got := fx.g.TileAt(fx.hex(t, 5, 3)).Claims(fx.nation, 0); got != 0 {
		t.Errorf("land claim at distance 2 = %d, want 0", got)
	}

	if _, err := FoundCity(fx.g, center, fx.nation, "Again"); !errors.Is(err, ErrCityExists) {
		t.Errorf("second city err = %v", err)
	}
	if _, err := FoundCity(fx.g, fx.hex(t, 6, 6), nil, "Nobody"); !errors.Is(err, ErrNoNation) {
		t.Errorf("nil nation err = %v", err)
	}
	if _, err := FoundCity(fx.g, &world.Hex{Row: 3, Col: 3}, fx.nation, "Ghost"); !errors.Is(err, ErrInvalidHex) {
		t.Errorf("foreign hex err = %v", err)
	}
}

func TestAddToQueue(t *testing.T) {
	fx := newFixture(t, 3, 3)
	city, err := FoundCity(fx.g, fx.hex(t, 1, 1), fx.nation, "Roma")
	if err != nil {
		t.Fatal(err)
	}
	c := count(fx.g)

	if err := city.AddToQueue(nil, "farmer"); !errors.Is(err, ErrNoFaction) {
		t.Errorf("nil faction err = %v", err)
	}
	if err := city.AddToQueue(fx.player, "dragon"); err != nil {
		t.Errorf("unknown unit type err = %v", err)
	}
	if len(city.Queue()) != 0 {
		t.Fatal("unknown unit type was queued")
	}
	if err := city.AddToQueue(fx.player, "farmer"); err != nil {
		t.Fatal(err)
	}
	if len(city.Queue()) != 1 || c[KindRomeDemandIncrease] != 1 {
		t.Errorf("queue=%d demand signals=%d", len(city.Queue()), c[KindRomeDemandIncrease])
	}

	other, err := FoundCity(fx.g, fx.hex(t, 2, 2), fx.g.AddNation(), "Qart")
	if err != nil {
		t.Fatal(err)
	}
	other.AddToQueue(fx.player, "farmer")
	if c[KindRomeDemandIncrease] != 1 {
		t.Error("demand signal raised for a city of another nation")
	}
}

func TestProcessFood_moneyShortfallDiscards(t *testing.T) {
	fx := newFixture(t, 3, 3)
	city, _ := FoundCity(fx.g, fx.hex(t, 1, 1), fx.nation, "Roma")
	if err := fx.player.SetMoney(5); err != nil {
		t.Fatal(err)
	}
	city.AddToQueue(fx.player, "farmer")
	city.AddToQueue(fx.player, "scout")

	if err := city.ReceiveFood(10); err != nil {
		t.Fatal(err)
	}
	q := city.Queue()
	if len(q) != 1 || q[0].UnitType != "scout" {
		t.Fatalf("queue = %+v, want only the scout left", q)
	}
	if city.StoredFood() != 10 || fx.player.Money() != 5 {
		t.Errorf("food %d money %v changed", city.StoredFood(), fx.player.Money())
	}
	if len(fx.player.Units()) != 0 {
		t.Error("unit spawned without payment")
	}
}

func TestProcessFood_foodShortfallWaits(t *testing.T) {
	fx := newFixture(t, 3, 3)
	city, _ := FoundCity(fx.g, fx.hex(t, 1, 1), fx.nation, "Roma")
	city.AddToQueue(fx.player, "settler")

	city.ReceiveFood(3)
	if len(city.Queue()) != 1 || city.StoredFood() != 3 {
		t.Fatalf("queue %d food %d, want the settler waiting", len(city.Queue()), city.StoredFood())
	}

	city.ReceiveFood(1)
	if len(city.Queue()) != 0 || city.StoredFood() != 0 {
		t.Fatalf("queue %d food %d after enough food", len(city.Queue()), city.StoredFood())
	}
	if fx.player.Money() != 60 {
		t.Errorf("money = %v, want 60", fx.player.Money())
	}
	units := fx.player.Units()
	if len(units) != 1 || units[0].Type() != "settler" || units[0].Hex() != city.Hex() {
		t.Errorf("units = %v, want a settler in the city", units)
	}
	if err := city.ReceiveFood(-1); !errors.Is(err, ErrNegative) {
		t.Errorf("negative food err = %v", err)
	}
}

func TestProcessFood_continuesWhileFoodLasts(t *testing.T) {
	fx := newFixture(t, 3, 3)
	city, _ := FoundCity(fx.g, fx.hex(t, 1, 1), fx.nation, "Roma")
	city.AddToQueue(fx.player, "farmer")
	city.AddToQueue(fx.player, "farmer")
	city.AddToQueue(fx.player, "farmer")

	city.ReceiveFood(5)
	if n := len(fx.player.Units()); n != 2 {
		t.Errorf("units = %d, want 2", n)
	}
	if len(city.Queue()) != 1 || city.StoredFood() != 1 {
		t.Errorf("queue %d food %d", len(city.Queue()), city.StoredFood())
	}
}

func TestGoods_newAndSetters(t *testing.T) {
	fx := newFixture(t, 3, 3)
	h := fx.hex(t, 1, 1)

	if _, err := NewGoods(fx.g, "gold", h, 1, fx.player); !errors.Is(err, ErrUnknownGoodsType) {
		t.Errorf("unknown type err = %v", err)
	}
	if _, err := NewGoods(fx.g, "food", nil, 1, fx.player); !errors.Is(err, ErrInvalidHex) {
		t.Errorf("nil hex err = %v", err)
	}
	empty, err := NewGoods(fx.g, "food", h, 0, fx.player)
	if err != nil || !empty.Deleted() {
		t.Fatalf("zero quantity goods: %v deleted=%v", err, empty.Deleted())
	}
	if len(fx.g.Goods()) != 0 {
		t.Error("zero quantity goods tracked")
	}

	gd, err := NewGoods(fx.g, "wood", h, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if gd.Origin() != h || gd.Faction() != nil {
		t.Errorf("origin %v faction %v", gd.Origin(), gd.Faction())
	}
	if err := gd.SetQuantity(-1); !errors.Is(err, ErrNegative) {
		t.Errorf("SetQuantity(-1) = %v", err)
	}
	if err := gd.SetRounds(-1); !errors.Is(err, ErrNegative) {
		t.Errorf("SetRounds(-1) = %v", err)
	}
	if err := gd.SetRounds(50); err != nil || gd.Deleted() {
		t.Errorf("durable goods spoiled: %v", err)
	}
	c := count(fx.g)
	if err := gd.SetQuantity(0); err != nil || !gd.Deleted() {
		t.Errorf("SetQuantity(0): %v deleted=%v", err, gd.Deleted())
	}
	if c[KindGoodsDestroyed] != 1 || c[KindFoodSpoiled] != 0 {
		t.Errorf("destroyed=%d spoiled=%d", c[KindGoodsDestroyed], c[KindFoodSpoiled])
	}
}

func TestAdvanceGoods_spoilsFood(t *testing.T) {
	fx := newFixture(t, 3, 3)
	gd, err := NewGoods(fx.g, "food", fx.hex(t, 0, 0), 4, fx.player)
	if err != nil {
		t.Fatal(err)
	}
	c := count(fx.g)

	for i := 1; i <= 4; i++ {
		fx.g.AdvanceGoods()
		if gd.Deleted() || gd.Rounds() != i {
			t.Fatalf("round %d: deleted=%v rounds=%d", i, gd.Deleted(), gd.Rounds())
		}
	}
	fx.g.AdvanceGoods()
	if !gd.Deleted() {
		t.Fatal("food survived its fifth round")
	}
	if c[KindFoodSpoiled] != 1 || c[KindGoodsDestroyed] != 1 {
		t.Errorf("spoiled=%d destroyed=%d", c[KindFoodSpoiled], c[KindGoodsDestroyed])
	}
	fx.g.AdvanceGoods()
	if c[KindFoodSpoiled] != 1 || len(fx.g.Goods()) != 0 {
		t.Error("spoiled goods still advancing")
	}
}

func TestShip_foodSpoilsOnLongRoute(t *testing.T) {
	fx := newFixture(t, 1, 30)
	city, err := FoundCity(fx.g, fx.hex(t, 0, 29), fx.nation, "Roma")
	if err != nil {
		t.Fatal(err)
	}
	origin := fx.hex(t, 0, 0)
	c := count(fx.g)

	gd, err := fx.g.Ship("food", 3, origin, city.Hex(), fx.player)
	if err != nil {
		t.Fatalf("Ship: %v", err)
	}
	fx.g.RunQueue()

	round := 0
	for !gd.Deleted() && round < 10 {
		round++
		fx.g.AdvanceGoods()
		fx.g.RunQueue()
	}
	if round != 5 {
		t.Fatalf("food destroyed in round %d, want 5", round)
	}
	if gd.Delivered() || c[KindGoodsDelivered] != 0 || c[KindFoodSpoiled] != 1 {
		t.Errorf("delivered=%v deliveries=%d spoiled=%d", gd.Delivered(), c[KindGoodsDelivered], c[KindFoodSpoiled])
	}
	if city.StoredFood() != 0 || fx.player.Money() != 100 {
		t.Errorf("city food %d money %v, want nothing received", city.StoredFood(), fx.player.Money())
	}
	// Five legs of two hexes: the first on shipping, then one per surviving round.
	if d := fx.g.grid.Distance(origin, gd.Hex()); d != 10 {
		t.Errorf("goods travelled %d hexes, want 10", d)
	}
}

func TestShip_deliversToCity(t *testing.T) {
	fx := newFixture(t, 3, 5)
	city, err := FoundCity(fx.g, fx.hex(t, 0, 3), fx.nation, "Roma")
	if err != nil {
		t.Fatal(err)
	}
	var delivered []GoodsDelivered
	fx.g.bus.Subscribe(KindGoodsDelivered, func(e events.Event) {
		delivered = append(delivered, e.(GoodsDelivered))
	})

	gd, err := fx.g.Ship("food", 3, fx.hex(t, 0, 0), city.Hex(), fx.player)
	if err != nil {
		t.Fatalf("Ship: %v", err)
	}
	fx.g.RunQueue()
	if gd.Deleted() || len(delivered) != 0 {
		t.Fatal("goods delivered before reaching the city")
	}
	if d := fx.g.grid.Distance(gd.Hex(), city.Hex()); d != 1 {
		t.Fatalf("first leg left goods %d hexes away, want 1", d)
	}

	fx.g.AdvanceGoods()
	fx.g.RunQueue()

	if len(delivered) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(delivered))
	}
	if delivered[0].Money != 3 || delivered[0].Food != 3 || delivered[0].City != city {
		t.Errorf("delivery = %+v", delivered[0])
	}
	if !gd.Deleted() || !gd.Delivered() {
		t.Error("goods not consumed by delivery")
	}
	if fx.player.Money() != 103 || city.StoredFood() != 3 {
		t.Errorf("money %v food %d", fx.player.Money(), city.StoredFood())
	}
}

func TestShip_noCityAtTarget(t *testing.T) {
	fx := newFixture(t, 1, 3)
	c := count(fx.g)
	gd, err := fx.g.Ship("wood", 2, fx.hex(t, 0, 0), fx.hex(t, 0, 2), fx.player)
	if err != nil {
		t.Fatal(err)
	}
	fx.g.RunQueue()
	if !gd.Deleted() || gd.Delivered() {
		t.Errorf("deleted=%v delivered=%v, want destroyed without delivery", gd.Deleted(), gd.Delivered())
	}
	if fx.player.Money() != 100 || c[KindGoodsDelivered] != 0 {
		t.Error("goods paid out without a city")
	}
}

func TestShip_unreachable(t *testing.T) {
	fx := newFixture(t, 1, 3)
	fx.hex(t, 0, 1).Terrain = world.TerrainWater
	if _, err := fx.g.Ship("food", 1, fx.hex(t, 0, 0), fx.hex(t, 0, 2), fx.player); err == nil {
		t.Error("expected an error for an unreachable target")
	}
	if len(fx.g.Goods()) != 0 {
		t.Error("undeliverable goods left in transit")
	}
}
