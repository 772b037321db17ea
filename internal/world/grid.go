package world

import "fmt"

// Grid holds every hex of the map. Hexes are stored once and handed out by pointer.
type Grid struct {
	byOffset map[Offset]*Hex
	byAxial  map[Axial]*Hex
	order    []*Hex // insertion order, for deterministic iteration
}

// NewGrid creates an empty grid.
func NewGrid() *Grid {
	return &Grid{
		byOffset: make(map[Offset]*Hex),
		byAxial:  make(map[Axial]*Hex),
	}
}

// NewRectGrid creates a rows x cols grid with uniform terrain, origin at (0,0).
func NewRectGrid(rows, cols int, terrain Terrain) *Grid {
	g := NewGrid()
	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			g.Add(&Hex{Row: row, Col: col, Terrain: terrain})
		}
	}
	return g
}

// NewSpiralGrid creates a hexagon-shaped grid of the given radius around center.
func NewSpiralGrid(center Offset, radius int, terrain Terrain) *Grid {
	g := NewGrid()
	c := center.ToAxial()
	g.Add(&Hex{Row: center.Row, Col: center.Col, Terrain: terrain})
	for k := 1; k <= radius; k++ {
		for _, a := range ringCoords(c, k) {
			o := a.ToOffset()
			g.Add(&Hex{Row: o.Row, Col: o.Col, Terrain: terrain})
		}
	}
	return g
}

// Add places a hex on the grid. Adding a second hex at an occupied coordinate
// replaces the earlier one.
func (g *Grid) Add(h *Hex) *Hex {
	o := h.Offset()
	if prev, ok := g.byOffset[o]; ok {
		for i, p := range g.order {
			if p == prev {
				g.order[i] = h
				break
			}
		}
	} else {
		g.order = append(g.order, h)
	}
	g.byOffset[o] = h
	g.byAxial[h.Axial()] = h
	return h
}

// HexAt returns the hex at the given offset coordinate, or nil if off-grid.
func (g *Grid) HexAt(row, col int) *Hex {
	return g.byOffset[Offset{Row: row, Col: col}]
}

// AtAxial returns the hex at the given axial coordinate, or nil if off-grid.
func (g *Grid) AtAxial(a Axial) *Hex {
	return g.byAxial[a]
}

// Contains reports whether h is a hex of this grid (identity, not coordinates).
func (g *Grid) Contains(h *Hex) bool {
	if h == nil {
		return false
	}
	return g.byOffset[h.Offset()] == h
}

// Hexes returns every hex in insertion order.
func (g *Grid) Hexes() []*Hex {
	out := make([]*Hex, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the total number of hexes in the grid.
func (g *Grid) Len() int {
	return len(g.order)
}

// Neighbors returns the on-grid hexes adjacent to h.
func (g *Grid) Neighbors(h *Hex) []*Hex {
	var out []*Hex
	for _, a := range h.Axial().Neighbors() {
		if n := g.byAxial[a]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

// InRange returns h and every on-grid hex within radius of it, ring by ring
// starting at the center.
func (g *Grid) InRange(h *Hex, radius int) []*Hex {
	if !g.Contains(h) || radius < 0 {
		return nil
	}
	out := []*Hex{h}
	for k := 1; k <= radius; k++ {
		out = append(out, g.Ring(h, k)...)
	}
	return out
}

// Ring returns the on-grid hexes at exactly distance radius from h.
func (g *Grid) Ring(h *Hex, radius int) []*Hex {
	if h == nil || radius < 0 {
		return nil
	}
	if radius == 0 {
		if g.Contains(h) {
			return []*Hex{h}
		}
		return nil
	}
	var out []*Hex
	for _, a := range ringCoords(h.Axial(), radius) {
		if n := g.byAxial[a]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Distance returns the hex distance between a and b.
func (g *Grid) Distance(a, b *Hex) int {
	return AxialDistance(a.Axial(), b.Axial())
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(hexes=%d)", g.Len())
}

// ringCoords walks the ring of the given radius starting at the direction-4 corner.
func ringCoords(center Axial, radius int) []Axial {
	out := make([]Axial, 0, 6*radius)
	cur := center.Add(AxialDirections[4].Scale(radius))
	for i := 0; i < 6; i++ {
		for j := 0; j < radius; j++ {
			out = append(out, cur)
			cur = cur.Add(AxialDirections[i])
		}
	}
	return out
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(g *Grid) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, hex := range g.order {
		counts[hex.Terrain]++
	}
	return counts
}
