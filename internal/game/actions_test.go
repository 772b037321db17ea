package game

import (
	"slices"
	"testing"

	"github.com/talgya/empires4x/internal/events"
	"github.com/talgya/empires4x/internal/world"
)

func TestActionLookup(t *testing.T) {
	keys := map[string]bool{}
	hotkeys := map[string]bool{}
	for _, k := range AllActions {
		if keys[k.Key()] || hotkeys[k.Hotkey()] {
			t.Errorf("%s: duplicate key or hotkey", k)
		}
		keys[k.Key()], hotkeys[k.Hotkey()] = true, true
		if k.Label() == "" {
			t.Errorf("%s has no label", k)
		}
		if got, ok := ActionByKey(k.Key()); !ok || got != k {
			t.Errorf("ActionByKey(%q) = %v, %v", k.Key(), got, ok)
		}
		if got, ok := ActionByHotkey(k.Hotkey()); !ok || got != k {
			t.Errorf("ActionByHotkey(%q) = %v, %v", k.Hotkey(), got, ok)
		}
	}
	if _, ok := ActionByKey("teleport"); ok {
		t.Error("unknown key resolved")
	}
}

func TestIsValid(t *testing.T) {
	fx := newFixture(t, 7, 7)
	rival, err := fx.g.AddFaction(fx.g.AddNation())
	if err != nil {
		t.Fatal(err)
	}
	fx.hex(t, 3, 2).Terrain = world.TerrainWater
	farmer := fx.unit(t, fx.player, "farmer", 3, 3)
	settler := fx.unit(t, fx.player, "settler", 4, 3)
	warrior := fx.unit(t, fx.player, "warrior", 2, 4)
	claimed := fx.hex(t, 2, 3)
	fx.g.TileAt(claimed).ClaimTerritory(rival, 10)
	city, err := FoundCity(fx.g, fx.hex(t, 0, 0), fx.nation, "Roma")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		kind ActionKind
		ctx  ActionContext
		want bool
	}{
		{"farm where the farmer stands", BuildFarm, ActionContext{Unit: farmer, Hex: farmer.Hex()}, true},
		{"farm by a warrior", BuildFarm, ActionContext{Unit: warrior, Hex: warrior.Hex()}, false},
		{"farm on water", BuildFarm, ActionContext{Unit: farmer, Hex: fx.hex(t, 3, 2)}, false},
		{"farm on rival land", BuildFarm, ActionContext{Unit: farmer, Hex: claimed}, false},
		{"farm without a hex", BuildFarm, ActionContext{Unit: farmer}, false},
		{"farm on a city", BuildFarm, ActionContext{Unit: farmer, Hex: city.Hex()}, false},
		{"found city", FoundCityAction, ActionContext{Unit: settler, Hex: settler.Hex()}, true},
		{"found city from the city menu", FoundCityAction, ActionContext{Unit: settler, Hex: settler.Hex(), Menu: MenuCity}, false},
		{"found city on a city", FoundCityAction, ActionContext{Unit: settler, Hex: city.Hex()}, false},
		{"found city with a farmer", FoundCityAction, ActionContext{Unit: farmer, Hex: farmer.Hex()}, false},
		{"move within sight", StartMoveTo, ActionContext{Unit: warrior, Hex: fx.hex(t, 2, 6)}, true},
		{"move onto itself", StartMoveTo, ActionContext{Unit: warrior, Hex: warrior.Hex()}, false},
		{"move into the unknown", StartMoveTo, ActionContext{Unit: warrior, Hex: fx.hex(t, 6, 0)}, false},
		{"move onto water", StartMoveTo, ActionContext{Unit: farmer, Hex: fx.hex(t, 3, 2)}, false},
		{"move without a unit", StartMoveTo, ActionContext{Hex: fx.hex(t, 2, 6)}, false},
		{"city view on a city", StartCityView, ActionContext{Hex: city.Hex()}, true},
		{"city view elsewhere", StartCityView, ActionContext{Hex: farmer.Hex()}, false},
		{"tile view", StartTileView, ActionContext{Hex: farmer.Hex()}, true},
		{"tile view off the grid", StartTileView, ActionContext{Hex: &world.Hex{}}, false},
		{"wait", Wait, ActionContext{Unit: warrior}, true},
		{"skip without a unit", Skip, ActionContext{}, false},
		{"center map", CenterMapAction, ActionContext{}, true},
		{"end turn", EndTurnAction, ActionContext{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fx.g.IsValid(tt.kind, tt.ctx); got != tt.want {
				t.Errorf("IsValid(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}

	fx.g.current = rival.Index()
	for _, k := range []ActionKind{EndTurnAction, Wait, BuildFarm} {
		if fx.g.IsValid(k, ActionContext{Unit: farmer, Hex: farmer.Hex()}) {
			t.Errorf("%s valid outside the player's turn", k)
		}
	}
	if !fx.g.IsValid(CenterMapAction, ActionContext{}) {
		t.Error("center map should not depend on the turn")
	}
}

func TestAvailableActions_unitMenu(t *testing.T) {
	fx := newFixture(t, 3, 3)
	farmer := fx.unit(t, fx.player, "farmer", 1, 1)
	got := fx.g.AvailableActions(ActionContext{Unit: farmer, Hex: farmer.Hex(), Menu: MenuUnit})
	want := []ActionKind{BuildFarm, Wait, Skip, CenterMapAction, EndTurnAction}
	if !slices.Equal(got, want) {
		t.Errorf("AvailableActions = %v, want %v", got, want)
	}
}

func TestExecute(t *testing.T) {
	fx := newFixture(t, 3, 3)
	warrior := fx.unit(t, fx.player, "warrior", 1, 1)
	warrior.PrepareForNewTurn()
	c := count(fx.g)

	if fx.g.Execute(Skip, ActionContext{}) != nil {
		t.Fatal("invalid action returned a completion")
	}

	done := fx.g.Execute(CenterMapAction, ActionContext{Hex: warrior.Hex()})
	if done == nil {
		t.Fatal("center map rejected")
	}
	if done.Done() || c[KindCenterMap] != 0 {
		t.Fatal("action ran before the queue")
	}
	fx.g.RunQueue()
	if !done.Done() || c[KindCenterMap] != 1 || c[KindDoingAction] != 0 {
		t.Fatalf("center map: done=%v center=%d doing=%d", done.Done(), c[KindCenterMap], c[KindDoingAction])
	}

	fx.g.Execute(Wait, ActionContext{Unit: warrior})
	fx.g.RunQueue()
	if c[KindDoingAction] != 1 || c[KindUnitDeactivated] != 1 {
		t.Errorf("wait: doing=%d deactivated=%d", c[KindDoingAction], c[KindUnitDeactivated])
	}
	if warrior.Moves() != 2 {
		t.Errorf("wait spent moves: %d", warrior.Moves())
	}

	fx.g.Execute(Skip, ActionContext{Unit: warrior})
	fx.g.RunQueue()
	if warrior.Moves() != 0 {
		t.Errorf("skip kept moves: %d", warrior.Moves())
	}
}

func TestExecute_views(t *testing.T) {
	fx := newFixture(t, 3, 3)
	city, err := FoundCity(fx.g, fx.hex(t, 1, 1), fx.nation, "Roma")
	if err != nil {
		t.Fatal(err)
	}
	var opened *City
	fx.g.bus.Subscribe(KindOpenCityView, func(e events.Event) { opened = e.(OpenCityView).City })
	c := count(fx.g)

	fx.g.Execute(StartCityView, ActionContext{Hex: city.Hex()})
	fx.g.Execute(StartTileView, ActionContext{Hex: fx.hex(t, 0, 0)})
	fx.g.RunQueue()

	if opened != city {
		t.Errorf("opened %v, want %v", opened, city)
	}
	if c[KindOpenTileView] != 1 || c[KindDoingAction] != 0 {
		t.Errorf("tile view=%d doing=%d", c[KindOpenTileView], c[KindDoingAction])
	}
}

func TestBuildFarm_arriveThenAct(t *testing.T) {
	fx := newFixture(t, 5, 5)
	farmer := fx.unit(t, fx.player, "farmer", 2, 0)
	target := fx.hex(t, 2, 3)
	c := count(fx.g)

	fx.g.NextRound()
	fx.g.RunQueue()
	if !fx.g.HandleAction(BuildFarm, ActionContext{Unit: farmer, Hex: target}) {
		t.Fatal("build farm rejected")
	}
	fx.g.RunQueue()

	if fx.g.TileAt(target).Improvement() != nil {
		t.Fatal("farm built before the farmer arrived")
	}
	if p := farmer.Pending(); p == nil || p.Kind != BuildFarm || p.Target != target {
		t.Fatalf("pending = %+v", p)
	}
	if d := fx.g.grid.Distance(farmer.Hex(), target); d != 1 {
		t.Fatalf("farmer %d hexes from target, want 1", d)
	}

	fx.g.NextRound()
	fx.g.RunQueue()

	tile := fx.g.TileAt(target)
	if imp := tile.Improvement(); imp == nil || imp.Key != "farm" {
		t.Fatalf("improvement = %+v, want a farm", imp)
	}
	if !farmer.Deleted() {
		t.Error("farmer not consumed")
	}
	if tile.Faction() != fx.player || len(tile.Laborers()) != 1 {
		t.Errorf("tile faction %v laborers %d", tile.Faction(), len(tile.Laborers()))
	}
	if c[KindDoingAction] != 2 {
		t.Errorf("doing-action = %d, want 2", c[KindDoingAction])
	}
	if !fx.g.RoundOver() {
		t.Error("round should end once the only unit is gone")
	}
}

func TestBuildFarm_housesLaborer(t *testing.T) {
	fx := newFixture(t, 5, 5)
	city, err := FoundCity(fx.g, fx.hex(t, 0, 0), fx.nation, "Roma")
	if err != nil {
		t.Fatal(err)
	}
	farmer := fx.unit(t, fx.player, "farmer", 3, 3)

	if !fx.g.HandleAction(BuildFarm, ActionContext{Unit: farmer, Hex: farmer.Hex()}) {
		t.Fatal("build farm rejected")
	}
	fx.g.RunQueue()

	housed := city.Housing().Laborers()
	if len(housed) != 1 || housed[0].Home != city || housed[0].Hex != farmer.Hex() {
		t.Fatalf("housed = %+v", housed)
	}
	if city.Housing().Vacancies() != 5 {
		t.Errorf("vacancies = %d, want 5", city.Housing().Vacancies())
	}
}

func TestFoundCity_action(t *testing.T) {
	fx := newFixture(t, 7, 7)
	first := fx.unit(t, fx.player, "settler", 0, 0)
	second := fx.unit(t, fx.player, "settler", 6, 6)

	for _, u := range []*Unit{first, second} {
		if !fx.g.HandleAction(FoundCityAction, ActionContext{Unit: u, Hex: u.Hex()}) {
			t.Fatalf("found city rejected for %v", u)
		}
		fx.g.RunQueue()
	}

	cities := fx.g.Cities()
	if len(cities) != 2 {
		t.Fatalf("cities = %d, want 2", len(cities))
	}
	if cities[0].Name() != "Rome" || cities[1].Name() != "Rome 2" {
		t.Errorf("names = %q, %q", cities[0].Name(), cities[1].Name())
	}
	if !first.Deleted() || !second.Deleted() {
		t.Error("settlers not consumed")
	}
}

func TestStartMoveTo_fromKeyAndClick(t *testing.T) {
	fx := newFixture(t, 7, 7)
	u := fx.unit(t, fx.player, "warrior", 2, 2)
	fx.g.NextRound()
	fx.g.RunQueue()

	target := fx.hex(t, 2, 4)
	fx.g.Publish(HexClicked{Hex: target})
	fx.g.Publish(KeyPressed{Key: "m"})
	fx.g.RunQueue()

	if u.Hex() != target {
		t.Errorf("unit at %v, want %v", u.Hex(), target)
	}
}
