package recharge

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CoinsPerInr is the nominal rate the packs are built around; every pack
// adds a bonus on top of it.
const CoinsPerInr = 10

// Pack is a purchasable coin bundle. The table is the price oracle: an
// amount that is not listed here cannot be bought.
type Pack struct {
	Inr   int64 `json:"inr"`
	Coins int64 `json:"coins"`
}

var packs = map[int64]int64{
	99:   1000,
	499:  5500,
	999:  12000,
	2499: 32000,
	4999: 70000,
}

// LookupPack returns the pack priced at exactly amountInr.
func LookupPack(amountInr int64) (Pack, bool) {
	coins, ok := packs[amountInr]
	return Pack{Inr: amountInr, Coins: coins}, ok
}

// Packs lists every pack, cheapest first.
func Packs() []Pack {
	out := make([]Pack, 0, len(packs))
	for inr, coins := range packs {
		out = append(out, Pack{Inr: inr, Coins: coins})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Inr < out[j].Inr })
	return out
}

// vipThresholds[i] is the cumulative INR needed for VIP level i.
var vipThresholds = []int64{0, 500, 2000, 5000, 10000, 25000}

// VipLevel returns the highest level whose threshold cumulative reaches.
func VipLevel(cumulative decimal.Decimal) int {
	level := 0
	for i, threshold := range vipThresholds {
		if cumulative.GreaterThanOrEqual(decimal.NewFromInt(threshold)) {
			level = i
		}
	}
	return level
}

type Status string

const (
	StatusCreated   Status = "created"
	StatusCompleted Status = "completed"
)

// Order is keyed by the gateway order id. Status only ever moves from
// created to completed, which is what makes verification replay-safe.
type Order struct {
	OrderID       string     `json:"orderId"`
	UserID        string     `json:"userId"`
	AmountPaise   int64      `json:"amountPaise"`
	AmountInr     int64      `json:"amountInr"`
	CoinsToCredit int64      `json:"coinsToCredit"`
	Status        Status     `json:"status"`
	Receipt       string     `json:"receipt"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	PaymentID     string     `json:"paymentId,omitempty"`
}

func (o Order) Validate() error {
	switch {
	case o.OrderID == "" || o.UserID == "":
		return errors.New("orderId and userId are required")
	case o.AmountInr <= 0 || o.AmountPaise != o.AmountInr*100:
		return errors.New("amount mismatch")
	case o.CoinsToCredit <= 0:
		return errors.New("coinsToCredit must be positive")
	case o.Status != StatusCreated && o.Status != StatusCompleted:
		return errors.New("unknown status " + string(o.Status))
	case o.Status == StatusCompleted && (o.CompletedAt == nil || o.PaymentID == ""):
		return errors.New("completed order needs completedAt and paymentId")
	}
	return nil
}
