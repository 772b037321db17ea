package game

import (
	"fmt"

	"github.com/talgya/empires4x/internal/catalog"
	"github.com/talgya/empires4x/internal/world"
)

// GoodsFood is the goods type that cities store as food.
const GoodsFood = "food"

// Goods is a resource shipment moving toward a city. It has no turn of its
// own; the round driver advances it once per round.
type Goods struct {
	Movable
	goodsType string
	def       catalog.GoodsDef
	quantity  int
	rounds    int
	origin    *world.Hex
	target    *world.Hex
	delivered bool
}

// NewGoods creates a shipment on hex. faction may be nil for unowned goods.
// A shipment with no quantity is created already deleted.
func NewGoods(g *Game, goodsType string, hex *world.Hex, quantity int, faction *Faction) (*Goods, error) {
	def, ok := g.cat.GoodsType(goodsType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGoodsType, goodsType)
	}
	if !g.grid.Contains(hex) {
		return nil, fmt.Errorf("goods %s: %w", goodsType, ErrInvalidHex)
	}
	gd := &Goods{goodsType: goodsType, def: def, origin: hex}
	gd.Movable = g.newMovable(gd, hex, faction, g.cat.ResourceTransporter)
	if quantity <= 0 {
		gd.deleted = true
		return gd, nil
	}
	gd.quantity = quantity
	g.goods = append(g.goods, gd)
	return gd, nil
}

func (gd *Goods) Type() string       { return gd.goodsType }
func (gd *Goods) Quantity() int      { return gd.quantity }
func (gd *Goods) Rounds() int        { return gd.rounds }
func (gd *Goods) Origin() *world.Hex { return gd.origin }
func (gd *Goods) Target() *world.Hex { return gd.target }
func (gd *Goods) Delivered() bool    { return gd.delivered }
func (gd *Goods) Perishable() bool   { return gd.def.Perishable }

// SetPath routes the shipment and remembers target as its destination.
func (gd *Goods) SetPath(target *world.Hex) *Path {
	p := gd.Movable.SetPath(target)
	if p != nil {
		gd.target = target
	}
	return p
}

// SetQuantity changes the shipment size. Zero destroys the shipment.
func (gd *Goods) SetQuantity(n int) error {
	if n < 0 {
		return negative("goods quantity", n)
	}
	gd.quantity = n
	if n == 0 {
		gd.Destroy()
	}
	return nil
}

// SetRounds sets the time in transit. Perishable goods at or past their
// limit spoil and are destroyed.
func (gd *Goods) SetRounds(n int) error {
	if n < 0 {
		return negative("goods rounds", n)
	}
	gd.rounds = n
	if gd.spoiled() {
		gd.Destroy()
	}
	return nil
}

// AdvanceRound ages the shipment by one round.
func (gd *Goods) AdvanceRound() {
	if gd.deleted {
		return
	}
	_ = gd.SetRounds(gd.rounds + 1)
}

func (gd *Goods) spoiled() bool {
	return gd.def.Perishable && gd.rounds >= gd.def.MaxRounds
}

// Destroy removes the shipment, announcing spoilage first when that is the cause.
func (gd *Goods) Destroy() {
	if gd.deleted {
		return
	}
	if gd.spoiled() {
		gd.game.bus.Publish(FoodSpoiled{Goods: gd})
	}
	gd.Movable.Destroy()
	gd.game.bus.Publish(GoodsDestroyed{Goods: gd})
}

// arrived reports whether the shipment stands on its destination.
// Goods without a destination have arrived wherever they are.
func (gd *Goods) arrived() bool {
	return gd.target == nil || gd.hex == gd.target
}

// deliver converts the shipment into money and food if it stands on a city,
// then destroys it. It runs at most once.
func (g *Game) deliver(gd *Goods) {
	if gd.deleted || gd.delivered || !gd.arrived() {
		return
	}
	city := g.TileAt(gd.hex).City()
	if city != nil && gd.faction != nil {
		gd.delivered = true
		money := g.cat.ResourceValue(gd.goodsType) * float64(gd.quantity)
		if err := gd.faction.AddMoney(money); err != nil {
			g.log.Warn("goods delivery payment rejected", "goods", gd.goodsType, "error", err)
			money = 0
		}
		food := 0
		if gd.goodsType == GoodsFood {
			food = gd.quantity
		}
		g.bus.Publish(GoodsDelivered{Goods: gd, City: city, Money: money, Food: food})
		if food > 0 {
			city.ReceiveFood(food)
		}
	}
	gd.Destroy()
}

// AdvanceGoods runs the shipments' share of a round: every live shipment
// ages first, and the survivors move as far as their budget allows.
func (g *Game) AdvanceGoods() {
	live := g.goods[:0]
	for _, gd := range g.goods {
		if !gd.deleted {
			live = append(live, gd)
		}
	}
	g.goods = live

	for _, gd := range live {
		gd.AdvanceRound()
	}
	for _, gd := range live {
		if gd.deleted {
			continue
		}
		gd.PrepareForNewTurn()
		gd.MoveOneTurn()
	}
}

// Ship creates goods at from owned by faction and sends them toward to.
// The first leg is moved immediately.
func (g *Game) Ship(goodsType string, quantity int, from, to *world.Hex, faction *Faction) (*Goods, error) {
	gd, err := NewGoods(g, goodsType, from, quantity, faction)
	if err != nil {
		return nil, err
	}
	if gd.deleted {
		return gd, nil
	}
	if gd.SetPath(to) == nil {
		gd.Destroy()
		return nil, fmt.Errorf("no route for %s from %v to %v", goodsType, from, to)
	}
	gd.PrepareForNewTurn()
	if gd.MoveOneTurn() == 0 && gd.arrived() {
		g.deliver(gd)
	}
	return gd, nil
}
