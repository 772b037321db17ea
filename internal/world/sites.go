// Starting-site placement: finds land suitable for founding cities and
// spreads the picks apart so each nation starts with room to grow.
package world

import (
	"math/rand"
	"sort"
)

// Site is a candidate location for a starting city.
type Site struct {
	Hex   *Hex
	Score float64 // Desirability score
	Name  string
}

// PlaceSites picks up to count land hexes for starting cities, best first,
// keeping every pair at least minDist apart. Ties keep grid order, so a
// fixed seed always yields the same sites.
func PlaceSites(g *Grid, count, minDist int, seed int64) []Site {
	rng := rand.New(rand.NewSource(seed + 200))

	type scored struct {
		hex   *Hex
		score float64
	}
	var candidates []scored
	for _, hex := range g.Hexes() {
		if s := siteScore(g, hex); s > 0 {
			candidates = append(candidates, scored{hex, s})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var sites []Site
	for _, c := range candidates {
		if len(sites) >= count {
			break
		}
		if tooClose(g, c.hex, sites, minDist) {
			continue
		}
		sites = append(sites, Site{Hex: c.hex, Score: c.score})
	}

	names := generateNames(rng, len(sites))
	for i := range sites {
		sites[i].Name = names[i]
	}
	return sites
}

// siteScore evaluates how desirable a hex is for a city.
// Prefers fertile grass and plains with nearby water and varied neighbors.
func siteScore(g *Grid, hex *Hex) float64 {
	score := 0.0

	switch hex.Terrain {
	case TerrainPlains:
		score += 3.0
	case TerrainGrass:
		score += 2.5
	case TerrainForest, TerrainHills:
		score += 1.0
	case TerrainDesert:
		score += 0.3
	default:
		return 0
	}

	// Bonus for nearby terrain diversity.
	terrainTypes := make(map[Terrain]bool)
	neighbors := g.Neighbors(hex)
	for _, nh := range neighbors {
		if !nh.IsWater() {
			terrainTypes[nh.Terrain] = true
		}
	}
	score += float64(len(terrainTypes)) * 0.3

	// Bonus for water access.
	for _, nh := range neighbors {
		if nh.IsWater() {
			score += 0.5
			break
		}
	}

	// Hexes on the map edge have less room to claim.
	if len(neighbors) < 6 {
		score -= 1.0
	}
	return score
}

func tooClose(g *Grid, hex *Hex, existing []Site, minDist int) bool {
	for _, s := range existing {
		if g.Distance(hex, s.Hex) < minDist {
			return true
		}
	}
	return false
}

// generateNames produces procedural city names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "High", "Low", "Old", "New",
		"Far", "Deep", "Broad", "Gold", "Storm", "Oak", "River",
	}
	suffixes := []string{
		"haven", "ford", "wick", "bridge", "gate", "keep", "stead",
		"field", "dale", "vale", "port", "town", "bury", "well",
		"brook", "ridge", "watch", "reach",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	return names
}
