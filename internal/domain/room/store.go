package room

import (
	"context"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

func Key(roomID string) ledger.Key {
	return ledger.K(ledger.Rooms, roomID)
}

// Load reads the room inside tx.
func Load(ctx context.Context, tx ledger.Tx, roomID string) (*Room, error) {
	var r Room
	found, err := tx.Get(ctx, Key(roomID), &r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRoomNotFound
	}
	if r.TreasureContributions == nil {
		r.TreasureContributions = map[string]int64{}
	}
	return &r, nil
}

func Save(ctx context.Context, tx ledger.Tx, r *Room) error {
	return tx.Set(ctx, Key(r.RoomID), r)
}
