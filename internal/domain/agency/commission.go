package agency

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

// CommissionRate is each ancestor's share of the amount the level below
// it received: the direct parent gets 2% of the recharge, the grandparent
// 2% of that, and so on.
var CommissionRate = decimal.RequireFromString("0.02")

// Commission is floor(amount * CommissionRate).
func Commission(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(CommissionRate).Floor().IntPart()
}

func historyKey(parentUserID, orderID string, level int) ledger.Key {
	return ledger.K(ledger.CommissionHistory, fmt.Sprintf("%s_%s_%d", parentUserID, orderID, level))
}

// PropagateCommission pays the upline of userID for recharge orderID. The
// walk stops at the first unbound or missing node, a repeated node, the
// depth limit or a commission that rounds to zero. History is keyed by
// order and level, so running it again for the same order pays nothing.
func (s *Service) PropagateCommission(ctx context.Context, orderID, userID string, amountInr int64) (int, error) {
	if orderID == "" {
		return 0, ErrInvalidOrderID
	}
	if amountInr <= 0 {
		return 0, ErrInvalidRecharge
	}

	var credited []*Node
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		credited = credited[:0]
		now := s.now()

		current, found, err := loadNode(ctx, tx, userID)
		if err != nil || !found {
			return err
		}

		visited := map[string]bool{userID: true}
		base := amountInr
		for level := 1; level <= s.maxDepth; level++ {
			parentID := current.ParentUserID
			if parentID == "" {
				return nil
			}
			if visited[parentID] {
				log.Warn().Str("user_id", userID).Str("order_id", orderID).Str("node", parentID).Msg("agency cycle detected")
				return nil
			}
			visited[parentID] = true

			commission := Commission(base)
			if commission <= 0 {
				return nil
			}

			parent, found, err := loadNode(ctx, tx, parentID)
			if err != nil {
				return err
			}
			if !found {
				return nil
			}

			hk := historyKey(parentID, orderID, level)
			if level == 1 {
				var prior CommissionRecord
				done, err := tx.Get(ctx, hk, &prior)
				if err != nil {
					return err
				}
				if done {
					return nil
				}
			}

			parent.CommissionBalance += commission
			parent.TeamEarnings += commission
			parent.UpdatedAt = now
			if err := tx.Set(ctx, nodeKey(parentID), parent); err != nil {
				return err
			}
			if err := tx.Create(ctx, hk, CommissionRecord{
				ParentUserID:     parentID,
				FromUserID:       userID,
				OrderID:          orderID,
				Level:            level,
				Amount:           base,
				CommissionAmount: commission,
				Source:           SourceRecharge,
				CreatedAt:        now,
			}); err != nil {
				return err
			}

			credited = append(credited, parent)
			current = parent
			base = commission
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i, n := range credited {
		log.Info().
			Str("order_id", orderID).
			Str("from_user_id", userID).
			Str("parent_user_id", n.UserID).
			Int("level", i+1).
			Msg("commission credited")
		s.publisher.Publish(ctx, realtime.AgencyTopic(n.UserID), n)
	}
	return len(credited), nil
}
