package wallet

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

type Source string

const SourceGift Source = "gift"

// Transaction is the immutable audit record of one gift. TreasureRoomID is
// the only field written after creation, exactly once.
type Transaction struct {
	TransactionID  string    `json:"transactionId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	GiftID         string    `json:"giftId"`
	CoinAmount     int64     `json:"coinAmount"`
	DiamondAmount  int64     `json:"diamondAmount"`
	CreatedAt      time.Time `json:"createdAt"`
	Source         Source    `json:"source"`
	TreasureRoomID string    `json:"treasureRoomId,omitempty"`
}

func (t Transaction) Validate() error {
	switch {
	case t.TransactionID == "":
		return errors.New("transactionId is required")
	case t.SenderID == "" || t.ReceiverID == "":
		return errors.New("senderId and receiverId are required")
	case t.CoinAmount < 0 || t.DiamondAmount < 0:
		return errors.New("amounts must not be negative")
	case t.Source != SourceGift:
		return errors.New("unknown source " + string(t.Source))
	}
	return nil
}

func TransactionKey(id string) ledger.Key {
	return ledger.K(ledger.Transactions, id)
}

const maxHistory = 50

// ListTransactions returns gifts the user sent or received, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}

	var out []Transaction
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		out = out[:0]
		seen := make(map[string]bool)
		for _, field := range []string{"senderId", "receiverId"} {
			docs, err := tx.Query(ctx, ledger.Query{
				Collection: ledger.Transactions,
				Filters:    []ledger.Filter{ledger.Where(field, ledger.Eq, userID)},
				OrderBy:    &ledger.Sort{Field: "createdAt", Kind: ledger.SortTime, Desc: true},
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			for _, d := range docs {
				if seen[d.Key.ID] {
					continue
				}
				var t Transaction
				if err := d.Decode(&t); err != nil {
					return err
				}
				seen[d.Key.ID] = true
				out = append(out, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
