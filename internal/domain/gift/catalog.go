package gift

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	// MaxGiftsPerMinute is the per-sender send budget over a sliding minute.
	MaxGiftsPerMinute = 10
)

// DiamondRate is the share of spent coins the receiver gets as diamonds.
var DiamondRate = decimal.RequireFromString("0.6")

// Gift is one entry of the server price table. Clients only ever send the
// id; the price always comes from here.
type Gift struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

var catalog = map[string]Gift{
	"rose":    {ID: "rose", Name: "Rose", Price: 10},
	"heart":   {ID: "heart", Name: "Heart", Price: 50},
	"crown":   {ID: "crown", Name: "Crown", Price: 100},
	"diamond": {ID: "diamond", Name: "Diamond", Price: 200},
	"rocket":  {ID: "rocket", Name: "Rocket", Price: 500},
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (Gift, bool) {
	g, ok := catalog[id]
	return g, ok
}

// Catalog lists every gift, cheapest first.
func Catalog() []Gift {
	out := make([]Gift, 0, len(catalog))
	for _, g := range catalog {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// DiamondsFor is floor(price * DiamondRate).
func DiamondsFor(price int64) int64 {
	return decimal.NewFromInt(price).Mul(DiamondRate).Floor().IntPart()
}
