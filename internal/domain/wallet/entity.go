package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// InitialCoins is the one-time grant written when a wallet is created.
const InitialCoins int64 = 1000

type Field string

const (
	Coins    Field = "coins"
	Diamonds Field = "diamonds"
)

type Wallet struct {
	UserID                string          `json:"userId"`
	Coins                 int64           `json:"coins"`
	Diamonds              int64           `json:"diamonds"`
	CumulativeRechargeInr decimal.Decimal `json:"cumulativeRechargeInr"`
	VipLevel              int             `json:"vipLevel"`
	LastTransactionID     string          `json:"lastTransactionId,omitempty"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

func (w Wallet) Validate() error {
	switch {
	case w.UserID == "":
		return errors.New("userId is required")
	case w.Coins < 0:
		return errors.New("coins must not be negative")
	case w.Diamonds < 0:
		return errors.New("diamonds must not be negative")
	case w.CumulativeRechargeInr.IsNegative():
		return errors.New("cumulativeRechargeInr must not be negative")
	case w.VipLevel < 0:
		return errors.New("vipLevel must not be negative")
	}
	return nil
}

// Credit adds amount to field.
func (w *Wallet) Credit(field Field, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	switch field {
	case Coins:
		w.Coins += amount
	case Diamonds:
		w.Diamonds += amount
	default:
		return ErrInvalidField
	}
	return nil
}

// Debit removes amount from field, refusing to go below zero.
func (w *Wallet) Debit(field Field, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	switch field {
	case Coins:
		if w.Coins < amount {
			return ErrInsufficientBalance
		}
		w.Coins -= amount
	case Diamonds:
		if w.Diamonds < amount {
			return ErrInsufficientBalance
		}
		w.Diamonds -= amount
	default:
		return ErrInvalidField
	}
	return nil
}
