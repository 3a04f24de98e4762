package wallet

import (
	"context"
	"time"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

// The helpers below run inside a caller's transaction. Wallet balances are
// never mutated on their own: every caller validates and writes its audit
// record in the same commit.

func key(userID string) ledger.Key {
	return ledger.K(ledger.Wallets, userID)
}

// Load reads a wallet. A missing wallet comes back zeroed with found=false,
// so credits to a user who never opened a wallet still land.
func Load(ctx context.Context, tx ledger.Tx, userID string) (*Wallet, bool, error) {
	w := &Wallet{}
	found, err := tx.Get(ctx, key(userID), w)
	if err != nil {
		return nil, false, err
	}
	if !found {
		w = &Wallet{UserID: userID}
	}
	return w, found, nil
}

// Save writes w, stamping the audit pointer and timestamp.
func Save(ctx context.Context, tx ledger.Tx, w *Wallet, transactionID string, now time.Time) error {
	w.LastTransactionID = transactionID
	w.UpdatedAt = now
	return tx.Set(ctx, key(w.UserID), w)
}

// Apply loads the wallet, runs mutate and saves the result.
func Apply(ctx context.Context, tx ledger.Tx, userID, transactionID string, now time.Time, mutate func(w *Wallet) error) (*Wallet, error) {
	w, _, err := Load(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err := mutate(w); err != nil {
		return nil, err
	}
	if err := Save(ctx, tx, w, transactionID, now); err != nil {
		return nil, err
	}
	return w, nil
}

// Credit adds amount to one balance.
func Credit(ctx context.Context, tx ledger.Tx, userID string, field Field, amount int64, transactionID string, now time.Time) (*Wallet, error) {
	return Apply(ctx, tx, userID, transactionID, now, func(w *Wallet) error {
		return w.Credit(field, amount)
	})
}

// Debit removes amount from one balance or fails with ErrInsufficientBalance.
func Debit(ctx context.Context, tx ledger.Tx, userID string, field Field, amount int64, transactionID string, now time.Time) (*Wallet, error) {
	return Apply(ctx, tx, userID, transactionID, now, func(w *Wallet) error {
		return w.Debit(field, amount)
	})
}
