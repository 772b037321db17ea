// Package catalog provides the static balance table: unit, goods, improvement
// and terrain definitions plus resource values and faction/nation names.
// A Catalog is read-only once loaded; tests swap in their own fixtures.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/talgya/empires4x/internal/world"
)

//go:embed world.yaml
var defaultYAML []byte

// Catalog holds every static definition the game core consults.
type Catalog struct {
	Rules               Rules                     `yaml:"rules"`
	Terrains            map[string]TerrainDef     `yaml:"terrains"`
	Units               map[string]UnitDef        `yaml:"units"`
	Goods               map[string]GoodsDef       `yaml:"goods"`
	ResourceTransporter MovementDef               `yaml:"resource_transporter"`
	ResourceValues      map[string]float64        `yaml:"resource_values"`
	Improvements        map[string]ImprovementDef `yaml:"improvements"`
	Nations             []NationDef               `yaml:"nations"`
	Factions            []FactionDef              `yaml:"factions"`
}

// Rules are scalar tunables that do not belong to a single definition.
type Rules struct {
	StartingMoney   float64 `yaml:"starting_money"`
	HousingCapacity int     `yaml:"housing_capacity"`
	CityClaim       int     `yaml:"city_claim"`
	CityClaimRadius int     `yaml:"city_claim_radius"`
	CityWaterClaim  int     `yaml:"city_water_claim"`
	CityWaterRadius int     `yaml:"city_water_radius"`
}

type TerrainDef struct {
	Name         string `yaml:"name"`
	MovementCost int    `yaml:"movement_cost"`
	IsWater      bool   `yaml:"is_water"`
	Impassable   bool   `yaml:"impassable"`
}

// MovementDef is the movement profile shared by units and goods.
// A MovementCosts entry overrides the terrain's default cost; an entry of
// zero or below makes that terrain impassable for the mover.
type MovementDef struct {
	MovementPoints int            `yaml:"movement_points"`
	MovementCosts  map[string]int `yaml:"movement_costs"`
	SightRadius    int            `yaml:"sight_radius"`
}

type Cost struct {
	Food  int     `yaml:"food"`
	Money float64 `yaml:"money"`
}

// ProductionCosts are charged when a city releases the unit from its queue.
type ProductionCosts struct {
	RemoveFromQueue Cost `yaml:"remove_from_queue"`
}

type UnitDef struct {
	MovementDef     `yaml:",inline"`
	Name            string          `yaml:"name"`
	Role            string          `yaml:"role"` // "military", "labor", "settler"
	CanFoundCity    bool            `yaml:"can_found_city"`
	CanBuild        []string        `yaml:"can_build"`
	ProductionCosts ProductionCosts `yaml:"production_costs"`
}

// Builds reports whether the unit type may construct the improvement.
func (u UnitDef) Builds(improvement string) bool {
	for _, k := range u.CanBuild {
		if k == improvement {
			return true
		}
	}
	return false
}

type GoodsDef struct {
	Name       string `yaml:"name"`
	Perishable bool   `yaml:"perishable"`
	MaxRounds  int    `yaml:"max_rounds"`
}

// Yield is the terrain-specific part of an improvement.
type Yield struct {
	Produces string `yaml:"produces"`
	Quantity int    `yaml:"quantity"`
}

type ImprovementDef struct {
	Name       string           `yaml:"name"`
	ClaimBonus int              `yaml:"claim_bonus"`
	Laborers   int              `yaml:"laborers"`
	Terrains   map[string]Yield `yaml:"terrains"`
}

type NationDef struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
	Frame int    `yaml:"frame"`
}

type FactionDef struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// Default returns the embedded catalog. It panics if the embedded file is
// malformed, which only happens on a bad build.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded world.yaml: %v", err))
	}
	return c
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks cross references and value ranges, reporting every problem found.
func (c *Catalog) Validate() error {
	var errs []error
	for _, key := range sortedKeys(c.Terrains) {
		if c.Terrains[key].MovementCost < 1 {
			errs = append(errs, fmt.Errorf("terrain %q: movement_cost must be at least 1", key))
		}
	}
	for _, key := range sortedKeys(c.Units) {
		u := c.Units[key]
		if u.MovementPoints < 0 {
			errs = append(errs, fmt.Errorf("unit %q: negative movement_points", key))
		}
		if u.SightRadius < 0 {
			errs = append(errs, fmt.Errorf("unit %q: negative sight_radius", key))
		}
		for _, imp := range u.CanBuild {
			if _, ok := c.Improvements[imp]; !ok {
				errs = append(errs, fmt.Errorf("unit %q: can_build references unknown improvement %q", key, imp))
			}
		}
		if cost := u.ProductionCosts.RemoveFromQueue; cost.Food < 0 || cost.Money < 0 {
			errs = append(errs, fmt.Errorf("unit %q: negative production cost", key))
		}
	}
	for _, key := range sortedKeys(c.Goods) {
		g := c.Goods[key]
		if g.Perishable && g.MaxRounds < 1 {
			errs = append(errs, fmt.Errorf("goods %q: perishable goods need max_rounds >= 1", key))
		}
	}
	for _, key := range sortedKeys(c.ResourceValues) {
		if c.ResourceValues[key] < 0 {
			errs = append(errs, fmt.Errorf("resource value %q is negative", key))
		}
	}
	for _, key := range sortedKeys(c.Improvements) {
		imp := c.Improvements[key]
		if key == ImprovementDestroy {
			errs = append(errs, fmt.Errorf("improvement key %q is reserved", key))
		}
		for _, t := range sortedKeys(imp.Terrains) {
			if _, ok := c.Terrains[t]; !ok {
				errs = append(errs, fmt.Errorf("improvement %q: unknown terrain %q", key, t))
			}
			if y := imp.Terrains[t]; y.Produces != "" {
				if _, ok := c.Goods[y.Produces]; !ok {
					errs = append(errs, fmt.Errorf("improvement %q: produces unknown goods %q", key, y.Produces))
				}
			}
		}
	}
	if c.Rules.HousingCapacity < 0 {
		errs = append(errs, errors.New("rules: negative housing_capacity"))
	}
	return errors.Join(errs...)
}

// ImprovementDestroy is the sentinel improvement key that clears a tile.
const ImprovementDestroy = "destroy"

// Unit looks up a unit definition.
func (c *Catalog) Unit(key string) (UnitDef, bool) {
	u, ok := c.Units[key]
	return u, ok
}

// GoodsType looks up a goods definition.
func (c *Catalog) GoodsType(key string) (GoodsDef, bool) {
	g, ok := c.Goods[key]
	return g, ok
}

// Improvement looks up an improvement definition.
func (c *Catalog) Improvement(key string) (ImprovementDef, bool) {
	imp, ok := c.Improvements[key]
	return imp, ok
}

// Terrain looks up a terrain definition.
func (c *Catalog) Terrain(t world.Terrain) (TerrainDef, bool) {
	td, ok := c.Terrains[string(t)]
	return td, ok
}

// ResourceValue returns the money paid per unit of delivered goods. Unknown types are worth nothing.
func (c *Catalog) ResourceValue(goodsType string) float64 {
	return c.ResourceValues[goodsType]
}

// MoveCost returns what it costs a mover with profile m to enter terrain t.
func (c *Catalog) MoveCost(m MovementDef, t world.Terrain) (int, bool) {
	if cost, ok := m.MovementCosts[string(t)]; ok {
		if cost <= 0 {
			return 0, false
		}
		return cost, true
	}
	td, ok := c.Terrains[string(t)]
	if !ok || td.Impassable {
		return 0, false
	}
	return td.MovementCost, true
}

// UnitKeys returns every unit type key in sorted order.
func (c *Catalog) UnitKeys() []string {
	return sortedKeys(c.Units)
}

// NationAt returns the configured nation definition, or a generated fallback.
func (c *Catalog) NationAt(index int) NationDef {
	if index >= 0 && index < len(c.Nations) {
		return c.Nations[index]
	}
	return NationDef{Name: fmt.Sprintf("Nation %d", index+1), Color: "#808080", Frame: index}
}

// FactionAt returns the configured faction definition, or a generated fallback.
func (c *Catalog) FactionAt(index int) FactionDef {
	if index >= 0 && index < len(c.Factions) {
		return c.Factions[index]
	}
	return FactionDef{Name: fmt.Sprintf("Faction %d", index+1), Color: "#808080"}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
