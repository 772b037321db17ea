package world

import "testing"

func TestStep_matchesOffsetLayout(t *testing.T) {
	tests := []struct {
		row, col int
		dir      Direction
		wantRow  int
		wantCol  int
	}{
		// even column
		{5, 2, DirUpLeft, 4, 1},
		{5, 2, DirUp, 4, 2},
		{5, 2, DirUpRight, 4, 3},
		{5, 2, DirDownLeft, 5, 1},
		{5, 2, DirDown, 6, 2},
		{5, 2, DirDownRight, 5, 3},
		// odd column
		{5, 3, DirUpLeft, 5, 2},
		{5, 3, DirUp, 4, 3},
		{5, 3, DirUpRight, 5, 4},
		{5, 3, DirDownLeft, 6, 2},
		{5, 3, DirDown, 6, 3},
		{5, 3, DirDownRight, 6, 4},
	}
	for _, tt := range tests {
		row, col, err := Step(tt.row, tt.col, tt.dir)
		if err != nil {
			t.Fatalf("Step(%d,%d,%s): %v", tt.row, tt.col, tt.dir, err)
		}
		if row != tt.wantRow || col != tt.wantCol {
			t.Errorf("Step(%d,%d,%s) = (%d,%d), want (%d,%d)", tt.row, tt.col, tt.dir, row, col, tt.wantRow, tt.wantCol)
		}
	}
}

func TestStep_unknownDirection(t *testing.T) {
	if _, _, err := Step(0, 0, Direction('x')); err == nil {
		t.Fatalf("expected error for unknown direction")
	}
	if _, err := ParseDirection("uu"); err == nil {
		t.Fatalf("expected error for multi-letter key")
	}
	if d, err := ParseDirection("k"); err != nil || d != DirDown {
		t.Fatalf("ParseDirection(k) = %v, %v", d, err)
	}
}

func TestStep_isAlwaysAdjacent(t *testing.T) {
	for _, start := range []Offset{{4, 4}, {4, 5}, {0, 0}, {-3, -1}} {
		for _, d := range Directions {
			row, col, err := Step(start.Row, start.Col, d)
			if err != nil {
				t.Fatal(err)
			}
			got := AxialDistance(start.ToAxial(), Offset{Row: row, Col: col}.ToAxial())
			if got != 1 {
				t.Errorf("%v step %s: distance %d, want 1", start, d, got)
			}
		}
	}
}

func TestOffsetAxialRoundTrip(t *testing.T) {
	for _, o := range []Offset{{0, 0}, {5, 2}, {5, 3}, {-2, -1}, {-4, -6}, {7, 11}} {
		if got := o.ToAxial().ToOffset(); got != o {
			t.Errorf("round trip %v -> %v", o, got)
		}
	}
}

func TestGrid_rangeAndRing(t *testing.T) {
	g := NewRectGrid(10, 10, TerrainGrass)
	center := g.HexAt(5, 5)
	if center == nil {
		t.Fatalf("HexAt(5,5) returned nil")
	}

	if got := len(g.Neighbors(center)); got != 6 {
		t.Errorf("Neighbors: got %d, want 6", got)
	}
	r1 := g.InRange(center, 1)
	if len(r1) != 7 || r1[0] != center {
		t.Errorf("InRange(1): got %d hexes, first %v", len(r1), r1[0])
	}
	if got := len(g.InRange(center, 2)); got != 19 {
		t.Errorf("InRange(2): got %d, want 19", got)
	}
	ring := g.Ring(center, 2)
	if len(ring) != 12 {
		t.Fatalf("Ring(2): got %d, want 12", len(ring))
	}
	for _, h := range ring {
		if d := g.Distance(center, h); d != 2 {
			t.Errorf("ring hex %v at distance %d", h, d)
		}
	}

	corner := g.HexAt(0, 0)
	if got := len(g.Neighbors(corner)); got != 2 {
		t.Errorf("corner neighbors: got %d, want 2", got)
	}
}

func TestGrid_identity(t *testing.T) {
	a := NewRectGrid(3, 3, TerrainGrass)
	b := NewRectGrid(3, 3, TerrainGrass)
	if !a.Contains(a.HexAt(1, 1)) {
		t.Fatalf("grid should contain its own hex")
	}
	if a.Contains(b.HexAt(1, 1)) {
		t.Fatalf("grid must not contain another grid's hex with equal coordinates")
	}
	if a.HexAt(3, 0) != nil {
		t.Fatalf("off-grid lookup should be nil")
	}
}

func TestSpiralGrid_size(t *testing.T) {
	g := NewSpiralGrid(Offset{Row: 0, Col: 0}, 3, TerrainPlains)
	if g.Len() != 37 {
		t.Fatalf("spiral radius 3: got %d hexes, want 37", g.Len())
	}
}

func landCost(h *Hex) (int, bool) {
	if h.IsWater() {
		return 0, false
	}
	return 1, true
}

func TestFindPath_straight(t *testing.T) {
	g := NewRectGrid(5, 5, TerrainGrass)
	from, to := g.HexAt(0, 0), g.HexAt(0, 4)
	route, ok := g.FindPath(from, to, landCost)
	if !ok {
		t.Fatalf("expected a path")
	}
	if len(route.Hexes) != 4 || route.Cost != 4 {
		t.Fatalf("got %d hexes cost %d, want 4/4", len(route.Hexes), route.Cost)
	}
	if route.Hexes[len(route.Hexes)-1] != to {
		t.Fatalf("path must end at target")
	}
	prev := from
	for _, h := range route.Hexes {
		if g.Distance(prev, h) != 1 {
			t.Fatalf("non-adjacent step %v -> %v", prev, h)
		}
		prev = h
	}
}

func TestFindPath_detourAndBlocked(t *testing.T) {
	g := NewRectGrid(5, 5, TerrainGrass)
	for row := 0; row < 4; row++ {
		g.HexAt(row, 2).Terrain = TerrainWater
	}
	route, ok := g.FindPath(g.HexAt(0, 0), g.HexAt(0, 4), landCost)
	if !ok {
		t.Fatalf("expected a detour path")
	}
	if len(route.Hexes) <= 4 {
		t.Fatalf("detour should be longer than the direct route, got %d", len(route.Hexes))
	}
	for _, h := range route.Hexes {
		if h.IsWater() {
			t.Fatalf("path crosses water at %v", h)
		}
	}

	g.HexAt(4, 2).Terrain = TerrainWater
	if _, ok := g.FindPath(g.HexAt(0, 0), g.HexAt(0, 4), landCost); ok {
		t.Fatalf("expected no path across a full water column")
	}
}

func TestFindPath_prefersCheaperTerrain(t *testing.T) {
	g := NewRectGrid(3, 3, TerrainGrass)
	g.HexAt(0, 1).Terrain = TerrainMountains
	cost := func(h *Hex) (int, bool) {
		if h.Terrain == TerrainMountains {
			return 5, true
		}
		return 1, true
	}
	route, ok := g.FindPath(g.HexAt(0, 0), g.HexAt(0, 2), cost)
	if !ok {
		t.Fatalf("expected a path")
	}
	for _, h := range route.Hexes {
		if h.Terrain == TerrainMountains {
			t.Fatalf("path should avoid the mountain: %v", route.Hexes)
		}
	}
	if route.Cost >= 6 {
		t.Fatalf("route cost %d should beat crossing the mountain", route.Cost)
	}
}

func TestFindPath_offGrid(t *testing.T) {
	g := NewRectGrid(3, 3, TerrainGrass)
	other := NewRectGrid(3, 3, TerrainGrass)
	if _, ok := g.FindPath(g.HexAt(0, 0), other.HexAt(1, 1), landCost); ok {
		t.Fatalf("expected failure for a foreign target hex")
	}
	if _, ok := g.FindPath(g.HexAt(0, 0), nil, landCost); ok {
		t.Fatalf("expected failure for a nil target")
	}
	route, ok := g.FindPath(g.HexAt(1, 1), g.HexAt(1, 1), landCost)
	if !ok || len(route.Hexes) != 0 {
		t.Fatalf("path to self should be empty and ok")
	}
}

func TestGenerate_deterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)
	if a.Len() != cfg.Rows*cfg.Cols {
		t.Fatalf("got %d hexes, want %d", a.Len(), cfg.Rows*cfg.Cols)
	}
	for _, h := range a.Hexes() {
		if other := b.HexAt(h.Row, h.Col); other.Terrain != h.Terrain {
			t.Fatalf("terrain differs at %v: %s vs %s", h.Offset(), h.Terrain, other.Terrain)
		}
	}
}

func TestPlaceSites_spacing(t *testing.T) {
	g := NewRectGrid(12, 12, TerrainPlains)
	sites := PlaceSites(g, 3, 4, 7)
	if len(sites) != 3 {
		t.Fatalf("got %d sites, want 3", len(sites))
	}
	for i := range sites {
		if sites[i].Name == "" {
			t.Errorf("site %d has no name", i)
		}
		for j := i + 1; j < len(sites); j++ {
			if d := g.Distance(sites[i].Hex, sites[j].Hex); d < 4 {
				t.Errorf("sites %d and %d only %d apart", i, j, d)
			}
		}
	}
}
