// Package world provides the hex grid, terrain, and spatial queries consumed by the game core.
// Hexes are addressed by flat-top "odd-q" offset coordinates (row, col); distance and range
// math is done in axial coordinates (q, r).
package world

import "fmt"

// Terrain is a key into the catalog terrain table.
type Terrain string

const (
	TerrainGrass     Terrain = "grass"     // Open grassland, cheap to cross
	TerrainPlains    Terrain = "plains"    // Fertile plains, best farmland
	TerrainForest    Terrain = "forest"    // Slows land units
	TerrainHills     Terrain = "hills"     // Slows land units, good sight
	TerrainMountains Terrain = "mountains" // Very slow
	TerrainDesert    Terrain = "desert"    // Barren
	TerrainWater     Terrain = "water"     // Impassable for most land units
)

// Offset is a flat-top odd-q offset coordinate.
type Offset struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Axial is an axial hex coordinate. The third cube coordinate s is derived: s = -q - r.
type Axial struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (a Axial) S() int {
	return -a.Q - a.R
}

// Add returns the component sum of two axial coordinates.
func (a Axial) Add(b Axial) Axial {
	return Axial{Q: a.Q + b.Q, R: a.R + b.R}
}

// Scale multiplies both components by k.
func (a Axial) Scale(k int) Axial {
	return Axial{Q: a.Q * k, R: a.R * k}
}

// AxialDirections defines the six neighbor offsets in axial coordinates,
// in the order used for ring traversal.
var AxialDirections = [6]Axial{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent axial coordinates.
func (a Axial) Neighbors() [6]Axial {
	var result [6]Axial
	for i, dir := range AxialDirections {
		result[i] = a.Add(dir)
	}
	return result
}

// ToAxial converts an odd-q offset coordinate to axial.
// col&1 is 1 for odd columns, including negative ones.
func (o Offset) ToAxial() Axial {
	return Axial{Q: o.Col, R: o.Row - (o.Col-(o.Col&1))/2}
}

// ToOffset converts an axial coordinate to odd-q offset.
func (a Axial) ToOffset() Offset {
	return Offset{Row: a.R + (a.Q-(a.Q&1))/2, Col: a.Q}
}

// AxialDistance returns the hex distance between two axial coordinates.
func AxialDistance(a, b Axial) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}

// Hex is a single cell of a Grid. Hexes are compared by pointer identity:
// a Hex belongs to exactly one Grid.
type Hex struct {
	Row     int     `json:"row"`
	Col     int     `json:"col"`
	Terrain Terrain `json:"terrain"`

	// Set during generation; informational only.
	Elevation float64 `json:"elevation"` // 0.0 (sea level) to 1.0 (peak)
	Rainfall  float64 `json:"rainfall"`  // 0.0 (arid) to 1.0 (tropical)
}

// Offset returns the hex's offset coordinate.
func (h *Hex) Offset() Offset {
	return Offset{Row: h.Row, Col: h.Col}
}

// Axial returns the hex's axial coordinate.
func (h *Hex) Axial() Axial {
	return h.Offset().ToAxial()
}

// IsWater reports whether the hex is open water.
func (h *Hex) IsWater() bool {
	return h.Terrain == TerrainWater
}

func (h *Hex) String() string {
	if h == nil {
		return "hex(nil)"
	}
	return fmt.Sprintf("hex(%d,%d %s)", h.Row, h.Col, h.Terrain)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
