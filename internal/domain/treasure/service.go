package treasure

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/domain/room"
	"github.com/voxroom/voxroom-api/internal/domain/wallet"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

// RewardDiamonds is paid to the winner of every box.
const RewardDiamonds int64 = 500

// Thresholds is the cyclic progress ladder a room climbs.
var Thresholds = [3]int64{12_000, 50_000, 150_000}

type Payout struct {
	WinnerID       string `json:"winnerId"`
	Diamonds       int64  `json:"diamonds"`
	Threshold      int64  `json:"threshold"`
	TransactionID  string `json:"transactionId"`
	NextThreshold  int64  `json:"nextThreshold"`
	ThresholdIndex int    `json:"thresholdIndex"`
}

type Result struct {
	RoomID         string  `json:"roomId"`
	Progress       int64   `json:"progress"`
	ThresholdIndex int     `json:"thresholdIndex"`
	Threshold      int64   `json:"threshold"`
	Payout         *Payout `json:"payout,omitempty"`
}

type Service struct {
	store     ledger.Store
	publisher realtime.Publisher
	random    RandomSource
	now       func() time.Time
}

func NewService(store ledger.Store, publisher realtime.Publisher, random RandomSource) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	if random == nil {
		random = NewRandomSource()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		random:    random,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func thresholdIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i > len(Thresholds)-1 {
		return len(Thresholds) - 1
	}
	return i
}

// AddContribution feeds a committed gift into the room's treasure box.
// Stamping the gift with the room id, bumping progress and paying out a
// crossed threshold all commit together.
func (s *Service) AddContribution(ctx context.Context, roomID, userID, transactionID string) (*Result, error) {
	var (
		res    *Result
		r      *room.Room
		winner *wallet.Wallet
	)
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		res, winner = nil, nil
		now := s.now()

		var record wallet.Transaction
		found, err := tx.Get(ctx, wallet.TransactionKey(transactionID), &record)
		if err != nil {
			return err
		}
		if !found || record.SenderID != userID || record.Source != wallet.SourceGift {
			return ErrInvalidTransaction
		}
		if record.TreasureRoomID != "" {
			return ErrAlreadyCounted
		}
		if record.CoinAmount <= 0 {
			return ErrInvalidAmount
		}

		r, err = room.Load(ctx, tx, roomID)
		if err != nil {
			return err
		}

		record.TreasureRoomID = roomID
		if err := tx.Set(ctx, wallet.TransactionKey(transactionID), record); err != nil {
			return err
		}

		r.TreasureProgress += record.CoinAmount
		r.TreasureContributions[userID] += record.CoinAmount
		idx := thresholdIndex(r.TreasureThresholdIndex)
		res = &Result{RoomID: roomID, Progress: r.TreasureProgress, ThresholdIndex: idx, Threshold: Thresholds[idx]}

		if r.TreasureProgress >= Thresholds[idx] {
			winnerID := pickWinner(r.TreasureContributions, s.random.Float64())
			payoutID := fmt.Sprintf("treasure_%s_%d", roomID, now.UnixMilli())
			winner, err = wallet.Credit(ctx, tx, winnerID, wallet.Diamonds, RewardDiamonds, payoutID, now)
			if err != nil {
				return err
			}

			next := (idx + 1) % len(Thresholds)
			r.TreasureProgress = 0
			r.TreasureContributions = map[string]int64{}
			r.TreasureThresholdIndex = next
			r.LastTreasureWinnerID = winnerID
			r.LastTreasureAt = &now

			res.Progress = 0
			res.Payout = &Payout{
				WinnerID:       winnerID,
				Diamonds:       RewardDiamonds,
				Threshold:      Thresholds[idx],
				TransactionID:  payoutID,
				NextThreshold:  Thresholds[next],
				ThresholdIndex: next,
			}
		}

		r.UpdatedAt = now
		return room.Save(ctx, tx, r)
	})
	if err != nil {
		return nil, err
	}

	l := log.Info().
		Str("room_id", roomID).
		Str("user_id", userID).
		Str("transaction_id", transactionID).
		Int64("progress", res.Progress)
	if res.Payout != nil {
		l = l.Str("winner_id", res.Payout.WinnerID).Int64("threshold", res.Payout.Threshold)
	}
	l.Msg("treasure contribution")

	s.publisher.Publish(ctx, realtime.RoomTopic(roomID), r)
	if winner != nil {
		s.publisher.Publish(ctx, realtime.WalletTopic(winner.UserID), winner)
	}
	return res, nil
}

// pickWinner walks contributors in user id order subtracting each amount
// from r*total; the contributor that takes it to zero wins.
func pickWinner(contributions map[string]int64, r float64) string {
	ids := make([]string, 0, len(contributions))
	var total int64
	for id, amount := range contributions {
		if amount <= 0 {
			continue
		}
		ids = append(ids, id)
		total += amount
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)

	remaining := r * float64(total)
	for _, id := range ids {
		remaining -= float64(contributions[id])
		if remaining <= 0 {
			return id
		}
	}
	return ids[0]
}
