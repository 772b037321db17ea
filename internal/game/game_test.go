package game

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/talgya/empires4x/internal/events"
	"github.com/talgya/empires4x/internal/world"
)

type fixture struct {
	g      *Game
	nation *Nation
	player *Faction
}

func newFixture(t *testing.T, rows, cols int, opts ...func(*Options)) *fixture {
	t.Helper()
	o := Options{
		Grid:   world.NewRectGrid(rows, cols, world.TerrainGrass),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range opts {
		fn(&o)
	}
	g, err := New(o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := g.AddNation()
	f, err := g.AddFaction(n)
	if err != nil {
		t.Fatalf("AddFaction: %v", err)
	}
	return &fixture{g: g, nation: n, player: f}
}

func (fx *fixture) hex(t *testing.T, row, col int) *world.Hex {
	t.Helper()
	h := fx.g.grid.HexAt(row, col)
	if h == nil {
		t.Fatalf("no hex at %d,%d", row, col)
	}
	return h
}

func (fx *fixture) unit(t *testing.T, f *Faction, unitType string, row, col int) *Unit {
	t.Helper()
	u, err := f.AddUnit(unitType, fx.hex(t, row, col))
	if err != nil {
		t.Fatalf("AddUnit(%s): %v", unitType, err)
	}
	return u
}

// counter counts published events per kind.
type counter map[events.Kind]int

func count(g *Game) counter {
	c := counter{}
	g.bus.SubscribeAll(func(e events.Event) { c[e.Kind()]++ })
	return c
}

func TestNew_requiresGrid(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for nil grid")
	}
}

func TestNew_tilePerHex(t *testing.T) {
	fx := newFixture(t, 4, 5)
	for _, h := range fx.g.grid.Hexes() {
		if fx.g.TileAt(h) == nil {
			t.Fatalf("no tile for %v", h)
		}
	}
	if fx.g.TileAt(&world.Hex{Row: 0, Col: 0}) != nil {
		t.Error("tile returned for a hex from another grid")
	}
}

func TestAddFaction(t *testing.T) {
	fx := newFixture(t, 3, 3)
	if fx.player.Name() != "Player" || !fx.player.IsHuman() {
		t.Errorf("first faction = %s, human=%v", fx.player.Name(), fx.player.IsHuman())
	}
	if fx.player.Money() != 100 {
		t.Errorf("starting money = %v, want 100", fx.player.Money())
	}
	if fx.player.Cursor() != -1 {
		t.Errorf("cursor = %d, want -1", fx.player.Cursor())
	}
	if _, err := fx.g.AddFaction(nil); !errors.Is(err, ErrNoNation) {
		t.Errorf("AddFaction(nil) = %v, want ErrNoNation", err)
	}
}

func TestRound_turnRotation(t *testing.T) {
	fx := newFixture(t, 5, 5)
	ai, err := fx.g.AddFaction(fx.g.AddNation())
	if err != nil {
		t.Fatal(err)
	}
	human := fx.unit(t, fx.player, "warrior", 0, 0)
	fx.unit(t, ai, "warrior", 4, 4)
	c := count(fx.g)

	fx.g.NextRound()
	fx.g.RunQueue()

	if fx.g.Round() != 1 || fx.g.CurrentFaction() != fx.player {
		t.Fatalf("round %d current %v, want round 1 on the player", fx.g.Round(), fx.g.CurrentFaction())
	}
	if fx.g.ActiveUnit() != human || human.Moves() != 2 {
		t.Fatalf("active = %v moves %d", fx.g.ActiveUnit(), human.Moves())
	}
	if c[KindUnitActivated] != 1 {
		t.Errorf("unit-activated = %d, want 1", c[KindUnitActivated])
	}

	if !fx.g.HandleAction(EndTurnAction, ActionContext{}) {
		t.Fatal("end turn rejected")
	}
	fx.g.RunQueue()

	if !fx.g.RoundOver() {
		t.Fatal("round should be over once the computer faction has passed")
	}
	if c[KindEndTurn] != 2 {
		t.Errorf("end-turn = %d, want 2", c[KindEndTurn])
	}
	if c[KindRoundEnded] != 1 {
		t.Errorf("round-ended = %d, want 1", c[KindRoundEnded])
	}
	if fx.g.ActiveUnit() != nil {
		t.Errorf("active unit %v after round end", fx.g.ActiveUnit())
	}

	fx.g.NextRound()
	fx.g.RunQueue()
	if fx.g.Round() != 2 || fx.g.RoundOver() || human.Moves() != 2 {
		t.Errorf("round 2: over=%v moves=%d", fx.g.RoundOver(), human.Moves())
	}
}

func TestNextRound_withoutFactions(t *testing.T) {
	g, err := New(Options{Grid: world.NewRectGrid(2, 2, world.TerrainGrass)})
	if err != nil {
		t.Fatal(err)
	}
	g.NextRound()
	if g.Round() != 0 {
		t.Errorf("round = %d, want 0", g.Round())
	}
}

func TestKeyPressed_movesActiveUnit(t *testing.T) {
	fx := newFixture(t, 5, 5)
	u := fx.unit(t, fx.player, "warrior", 2, 2)
	fx.g.NextRound()
	fx.g.RunQueue()

	fx.g.Publish(KeyPressed{Key: "k"})
	fx.g.RunQueue()

	if u.Hex() != fx.hex(t, 3, 2) {
		t.Fatalf("unit at %v, want 3,2", u.Hex())
	}
	if u.Moves() != 1 {
		t.Errorf("moves = %d, want 1", u.Moves())
	}

	// Upper case and surrounding space are accepted.
	fx.g.Publish(KeyPressed{Key: " I "})
	fx.g.RunQueue()
	if u.Hex() != fx.hex(t, 2, 2) {
		t.Fatalf("unit at %v, want 2,2", u.Hex())
	}
}

func TestKeyPressed_hotkey(t *testing.T) {
	fx := newFixture(t, 3, 3)
	fx.unit(t, fx.player, "warrior", 1, 1)
	c := count(fx.g)
	fx.g.NextRound()
	fx.g.RunQueue()

	fx.g.Publish(KeyPressed{Key: "e"})
	fx.g.RunQueue()

	if c[KindEndTurn] != 1 || c[KindDoingAction] != 1 {
		t.Errorf("end-turn=%d doing-action=%d, want 1 and 1", c[KindEndTurn], c[KindDoingAction])
	}
	if !fx.g.RoundOver() {
		t.Error("round not over")
	}
}

func TestKeyPressed_unboundKeyIgnored(t *testing.T) {
	fx := newFixture(t, 3, 3)
	u := fx.unit(t, fx.player, "warrior", 1, 1)
	fx.g.NextRound()
	fx.g.RunQueue()
	c := count(fx.g)

	fx.g.Publish(KeyPressed{Key: "z"})
	fx.g.RunQueue()

	if u.Hex() != fx.hex(t, 1, 1) || c[KindDoingAction] != 0 {
		t.Errorf("unbound key had an effect: hex %v, doing-action %d", u.Hex(), c[KindDoingAction])
	}
}

func TestHexClicked_setsActiveTile(t *testing.T) {
	fx := newFixture(t, 3, 3)
	h := fx.hex(t, 1, 2)
	fx.g.Publish(HexClicked{Hex: h})
	if fx.g.ActiveTile() != h {
		t.Fatalf("active tile = %v, want %v", fx.g.ActiveTile(), h)
	}
	fx.g.Publish(HexClicked{Hex: &world.Hex{Row: 9, Col: 9}})
	if fx.g.ActiveTile() != h {
		t.Error("off-grid click changed the active tile")
	}
}

func TestDeferredPresenter_holdsMoveSignal(t *testing.T) {
	p := &DeferredPresenter{}
	fx := newFixture(t, 5, 5, func(o *Options) { o.Presenter = p })
	u := fx.unit(t, fx.player, "warrior", 2, 2)
	c := count(fx.g)
	u.PrepareForNewTurn()

	if !u.DoAction(world.DirDown) {
		t.Fatal("DoAction failed")
	}
	fx.g.RunQueue()
	if c[KindUnitMoved] != 0 {
		t.Fatalf("unit-moved published before the presenter finished")
	}
	if p.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", p.Pending())
	}

	p.Flush()
	fx.g.RunQueue()
	if c[KindUnitMoved] != 1 {
		t.Errorf("unit-moved = %d, want 1", c[KindUnitMoved])
	}

	u.Destroy()
	if got := p.Released(); len(got) != 1 || got[0] != u {
		t.Errorf("released = %v, want the destroyed unit", got)
	}
}

func TestFog_followsUnits(t *testing.T) {
	fx := newFixture(t, 11, 11)
	u := fx.unit(t, fx.player, "warrior", 5, 2)
	c := count(fx.g)
	fog := fx.g.Fog()

	if got := fog.State(fx.player, fx.hex(t, 5, 0)); got != Visible {
		t.Fatalf("5,0 = %v, want visible", got)
	}
	if got := fog.State(fx.player, fx.hex(t, 5, 8)); got != Unexplored {
		t.Fatalf("5,8 = %v, want unexplored", got)
	}

	u.PrepareForNewTurn()
	if u.SetPath(fx.hex(t, 5, 4)) == nil {
		t.Fatal("no path")
	}
	if n := u.MoveOneTurn(); n != 2 {
		t.Fatalf("MoveOneTurn = %d, want 2", n)
	}
	fx.g.RunQueue()

	tests := []struct {
		row, col int
		want     FogState
	}{
		{5, 0, Explored},
		{5, 4, Visible},
		{5, 6, Visible},
		{5, 8, Unexplored},
	}
	for _, tt := range tests {
		if got := fog.State(fx.player, fx.hex(t, tt.row, tt.col)); got != tt.want {
			t.Errorf("%d,%d = %v, want %v", tt.row, tt.col, got, tt.want)
		}
	}
	if c[KindFogUpdated] == 0 {
		t.Error("no fog-updated signal for the player")
	}
	counts := fog.Counts(fx.player)
	if counts[Unexplored]+counts[Explored]+counts[Visible] != fx.g.grid.Len() {
		t.Errorf("counts %v do not cover the grid", counts)
	}
}

func TestFog_destroyedUnitLosesSight(t *testing.T) {
	fx := newFixture(t, 11, 11)
	u := fx.unit(t, fx.player, "warrior", 5, 5)
	fog := fx.g.Fog()
	h := fx.hex(t, 5, 6)
	if got := fog.State(fx.player, h); got != Visible {
		t.Fatalf("5,6 = %v, want visible", got)
	}

	u.Destroy()
	if got := fog.State(fx.player, h); got != Explored {
		t.Errorf("5,6 after destroy = %v, want explored", got)
	}
	if counts := fog.Counts(fx.player); counts[Visible] != 0 {
		t.Errorf("visible hexes after destroy = %d, want 0", counts[Visible])
	}
}

func TestFog_explicitStates(t *testing.T) {
	fx := newFixture(t, 3, 3)
	fog := fx.g.Fog()
	h := fx.hex(t, 2, 2)

	fog.ExploreTileForFaction(fx.player, h)
	if fog.State(fx.player, h) != Explored {
		t.Fatal("explore did not mark explored")
	}
	fog.ViewTileForFaction(fx.player, h)
	if fog.State(fx.player, h) != Visible {
		t.Fatal("view did not mark visible")
	}
	fog.StartTileFogState(fx.player, h)
	if fog.State(fx.player, h) != Unexplored {
		t.Fatal("start state is not unexplored")
	}
}

func TestNearestCity(t *testing.T) {
	fx := newFixture(t, 9, 9)
	far, err := FoundCity(fx.g, fx.hex(t, 0, 0), fx.nation, "Far")
	if err != nil {
		t.Fatal(err)
	}
	near, err := FoundCity(fx.g, fx.hex(t, 6, 6), fx.nation, "Near")
	if err != nil {
		t.Fatal(err)
	}
	if got := fx.g.NearestCity(fx.hex(t, 7, 7), fx.nation); got != near {
		t.Errorf("nearest = %v, want %v", got, near)
	}
	if got := fx.g.NearestCity(fx.hex(t, 1, 1), fx.nation); got != far {
		t.Errorf("nearest = %v, want %v", got, far)
	}
	if got := fx.g.NearestCity(fx.hex(t, 1, 1), fx.g.AddNation()); got != nil {
		t.Errorf("nearest for a nation without cities = %v", got)
	}
}
