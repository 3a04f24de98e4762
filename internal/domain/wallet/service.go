package wallet

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
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

// CreateWallet opens the wallet with the starting grant. Calling it again
// is a no-op, so the grant is paid exactly once.
func (s *Service) CreateWallet(ctx context.Context, userID string) (*Wallet, bool, error) {
	var (
		w       *Wallet
		created bool
	)
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		existing, found, err := Load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if found {
			w, created = existing, false
			return nil
		}
		w = &Wallet{
			UserID:    userID,
			Coins:     InitialCoins,
			UpdatedAt: s.now(),
		}
		created = true
		return tx.Create(ctx, key(userID), w)
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		log.Info().Str("user_id", userID).Int64("coins", w.Coins).Msg("wallet created")
		s.publisher.Publish(ctx, realtime.WalletTopic(userID), w)
	}
	return w, created, nil
}

func (s *Service) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	var w Wallet
	found, err := ledger.Get(ctx, s.store, key(userID), &w)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrWalletNotFound
	}
	return &w, nil
}
