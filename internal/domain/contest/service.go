package contest

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
	"github.com/voxroom/voxroom-api/internal/pkg/validator"
)

type Service struct {
	store     ledger.Store
	publisher realtime.Publisher
	now       func() time.Time
}

func NewService(store ledger.Store, publisher realtime.Publisher) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func activityKey(userID, weekKey string) ledger.Key {
	return ledger.K(ledger.HostActivity, userID+"_"+weekKey)
}

func markerKey(weekKey string) ledger.Key {
	return ledger.K(ledger.ContestRewards, weekKey)
}

// TickHostMinute credits one live minute to the room's host for the
// current week.
func (s *Service) TickHostMinute(ctx context.Context, roomID, userID string) (*HostActivity, error) {
	var activity HostActivity
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		r, err := room.Load(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if r.HostUserID != userID {
			return ErrNotHost
		}

		now := s.now()
		week := WeekKey(now)
		key := activityKey(userID, week)
		activity = HostActivity{}
		if _, err := tx.Get(ctx, key, &activity); err != nil {
			return err
		}
		activity.UserID = userID
		activity.WeekKey = week
		activity.Minutes++
		activity.UpdatedAt = now
		return tx.Set(ctx, key, activity)
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *Service) resolveWeek(weekKey string) (string, error) {
	if weekKey == "" {
		return WeekKey(s.now()), nil
	}
	if validator.ValidateVar(weekKey, "week_key") != nil {
		return "", ErrInvalidWeek
	}
	return weekKey, nil
}

func rank(docs []ledger.Document) ([]HostActivity, error) {
	out := make([]HostActivity, 0, len(docs))
	for _, d := range docs {
		var a HostActivity
		if err := d.Decode(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func weekQuery(weekKey string) ledger.Query {
	return ledger.Query{
		Collection: ledger.HostActivity,
		Filters:    []ledger.Filter{ledger.Where("weekKey", ledger.Eq, weekKey)},
	}
}

// Leaderboard ranks the week's hosts by minutes.
func (s *Service) Leaderboard(ctx context.Context, weekKey string, limit int) ([]HostActivity, error) {
	week, err := s.resolveWeek(weekKey)
	if err != nil {
		return nil, err
	}
	docs, err := ledger.Find(ctx, s.store, weekQuery(week))
	if err != nil {
		return nil, err
	}
	ranked, err := rank(docs)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// DistributeRewards pays the week's top hosts. The marker is checked and
// written in the payout transaction, so a week pays at most once. A week
// without activity pays nothing and leaves no marker.
func (s *Service) DistributeRewards(ctx context.Context, adminID, weekKey string) (*Distribution, error) {
	week, err := s.resolveWeek(weekKey)
	if err != nil {
		return nil, err
	}

	var (
		dist    *Distribution
		wallets []*wallet.Wallet
	)
	err = s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		wallets = wallets[:0]
		now := s.now()

		var prior Distribution
		done, err := tx.Get(ctx, markerKey(week), &prior)
		if err != nil {
			return err
		}
		if done {
			return ErrAlreadyDistributed
		}

		docs, err := tx.Query(ctx, weekQuery(week))
		if err != nil {
			return err
		}
		ranked, err := rank(docs)
		if err != nil {
			return err
		}

		dist = &Distribution{WeekKey: week, DistributedAt: now, AdminID: adminID, Winners: []Winner{}}
		for i, a := range ranked {
			if i >= len(Rewards) {
				break
			}
			w, err := wallet.Credit(ctx, tx, a.UserID, wallet.Diamonds, Rewards[i], fmt.Sprintf("contest_%s_%d", week, i), now)
			if err != nil {
				return err
			}
			wallets = append(wallets, w)
			dist.Winners = append(dist.Winners, Winner{Rank: i + 1, UserID: a.UserID, Minutes: a.Minutes, Diamonds: Rewards[i]})
		}
		dist.WinnerCount = len(dist.Winners)
		if dist.WinnerCount == 0 {
			return nil
		}
		return tx.Create(ctx, markerKey(week), dist)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("week_key", week).Str("admin_id", adminID).Int("winners", dist.WinnerCount).Msg("contest rewards distributed")
	for _, w := range wallets {
		s.publisher.Publish(ctx, realtime.WalletTopic(w.UserID), w)
	}
	return dist, nil
}

// PreviousWeek is the ISO week before the one containing t.
func PreviousWeek(t time.Time) string {
	return WeekKey(t.AddDate(0, 0, -7))
}

// DistributeWeek pays weekKey and returns how many hosts were paid. An
// empty weekKey means the week that just ended, for the scheduled run.
func (s *Service) DistributeWeek(ctx context.Context, adminID, weekKey string) (int, error) {
	if weekKey == "" {
		weekKey = PreviousWeek(s.now())
	}
	dist, err := s.DistributeRewards(ctx, adminID, weekKey)
	if err != nil {
		return 0, err
	}
	return dist.WinnerCount, nil
}
