// World generation using layered simplex noise.
// Generates elevation, rainfall, and temperature fields over a rectangular
// odd-q grid, then derives terrain.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Rows        int     `yaml:"rows"`
	Cols        int     `yaml:"cols"`
	Seed        int64   `yaml:"seed"`         // Random seed (0 = random)
	SeaLevel    float64 `yaml:"sea_level"`    // Elevation threshold for water (0.0–1.0)
	MountainLvl float64 `yaml:"mountain_lvl"` // Elevation threshold for mountains (0.0–1.0)
	HillLvl     float64 `yaml:"hill_lvl"`     // Elevation threshold for hills (0.0–1.0)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Rows:        24,
		Cols:        32,
		Seed:        0,
		SeaLevel:    0.25,
		MountainLvl: 0.72,
		HillLvl:     0.58,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Rows:        10,
		Cols:        12,
		Seed:        42,
		SeaLevel:    0.20,
		MountainLvl: 0.80,
		HillLvl:     0.65,
	}
}

// Generate creates a complete world grid with terrain.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Three noise generators for independent layers.
	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	g := NewGrid()
	halfW := float64(cfg.Cols) / 2
	halfH := float64(cfg.Rows) / 2

	for col := 0; col < cfg.Cols; col++ {
		for row := 0; row < cfg.Rows; row++ {
			// Flat-top odd-q layout: odd columns sit half a row lower.
			x := float64(col) * 0.75 * 2 / math.Sqrt(3.0)
			y := float64(row)
			if col&1 == 1 {
				y += 0.5
			}

			elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)
			rain := octaveNoise(rainNoise, x, y, 3, 0.06, 0.5)
			temp := octaveNoise(tempNoise, x, y, 3, 0.05, 0.5)

			// Continental shaping: reduce elevation near the map border.
			dx := (float64(col) - halfW) / halfW
			dy := (float64(row) - halfH) / halfH
			dist := math.Sqrt(dx*dx+dy*dy) / math.Sqrt2
			edgeFalloff := 1.0 - math.Pow(dist, 3.5)
			if edgeFalloff < 0 {
				edgeFalloff = 0
			}
			elev *= edgeFalloff

			// Temperature decreases with elevation and distance from the middle row.
			temp = temp*0.6 + (1.0-math.Abs(dy))*0.3 + (1.0-elev)*0.1

			g.Add(&Hex{
				Row:       row,
				Col:       col,
				Terrain:   deriveTerrain(elev, rain, temp, cfg),
				Elevation: elev,
				Rainfall:  rain,
			})
		}
	}

	return g
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, rain, temp float64, cfg GenConfig) Terrain {
	if elev < cfg.SeaLevel {
		return TerrainWater
	}
	if elev > cfg.MountainLvl {
		return TerrainMountains
	}
	if elev > cfg.HillLvl {
		return TerrainHills
	}
	if rain < 0.25 && temp > 0.5 {
		return TerrainDesert
	}
	if rain > 0.45 && elev > 0.45 {
		return TerrainForest
	}
	if rain > 0.5 {
		return TerrainGrass
	}
	return TerrainPlains
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainGrass:
		return "Grass"
	case TerrainPlains:
		return "Plains"
	case TerrainForest:
		return "Forest"
	case TerrainHills:
		return "Hills"
	case TerrainMountains:
		return "Mountains"
	case TerrainDesert:
		return "Desert"
	case TerrainWater:
		return "Water"
	default:
		return "Unknown"
	}
}
