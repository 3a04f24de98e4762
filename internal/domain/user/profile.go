package user

import (
	"context"
	"time"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

// Get reads a profile inside tx. A missing profile is returned empty.
func Get(ctx context.Context, tx ledger.Tx, userID string) (*Profile, bool, error) {
	p := &Profile{}
	found, err := tx.Get(ctx, key(userID), p)
	if err != nil {
		return nil, false, err
	}
	if !found {
		p = &Profile{UserID: userID}
	}
	return p, found, nil
}

// SetVipLevel copies the wallet's VIP tier onto the profile, merging with
// whatever else is stored there.
func SetVipLevel(ctx context.Context, tx ledger.Tx, userID string, level int, now time.Time) error {
	p, _, err := Get(ctx, tx, userID)
	if err != nil {
		return err
	}
	p.VipLevel = level
	p.UpdatedAt = now
	return tx.Set(ctx, key(userID), p)
}

// Lookup reads a profile outside any transaction.
func Lookup(ctx context.Context, store ledger.Store, userID string) (*Profile, error) {
	var p Profile
	found, err := ledger.Get(ctx, store, key(userID), &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return &p, nil
}
