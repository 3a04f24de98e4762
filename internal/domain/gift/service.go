package gift

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/domain/wallet"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

type Service struct {
	store     ledger.Store
	publisher realtime.Publisher
	now       func() time.Time
	newID     func() string
}

func NewService(store ledger.Store, publisher realtime.Publisher) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SendGift moves the catalog price from the sender's coins to the
// receiver's diamonds and records the transaction. The returned id is what
// the client forwards to the treasure box.
func (s *Service) SendGift(ctx context.Context, senderID, receiverID, giftID string) (*wallet.Transaction, error) {
	g, ok := Lookup(giftID)
	if !ok {
		return nil, ErrInvalidGift
	}
	if receiverID == "" {
		return nil, ErrInvalidReceiver
	}

	var (
		record           wallet.Transaction
		sender, receiver *wallet.Wallet
		transactionID    = s.newID()
		diamondCredit    = DiamondsFor(g.Price)
	)
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		now := s.now()

		// The count is part of the read set, so concurrent sends from one
		// sender cannot all slip under the limit.
		recent, err := tx.Query(ctx, ledger.Query{
			Collection: ledger.Transactions,
			Filters: []ledger.Filter{
				ledger.Where("senderId", ledger.Eq, senderID),
				ledger.Where("createdAt", ledger.Gte, now.Add(-time.Minute)),
			},
		})
		if err != nil {
			return err
		}
		if len(recent) >= MaxGiftsPerMinute {
			return ErrRateLimited
		}

		sender, err = wallet.Debit(ctx, tx, senderID, wallet.Coins, g.Price, transactionID, now)
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return ErrInsufficientCoins
		}
		if err != nil {
			return err
		}

		if diamondCredit > 0 {
			receiver, err = wallet.Credit(ctx, tx, receiverID, wallet.Diamonds, diamondCredit, transactionID, now)
			if err != nil {
				return err
			}
		} else {
			receiver, _, err = wallet.Load(ctx, tx, receiverID)
			if err != nil {
				return err
			}
		}

		record = wallet.Transaction{
			TransactionID: transactionID,
			SenderID:      senderID,
			ReceiverID:    receiverID,
			GiftID:        g.ID,
			CoinAmount:    g.Price,
			DiamondAmount: diamondCredit,
			CreatedAt:     now,
			Source:        wallet.SourceGift,
		}
		return tx.Create(ctx, wallet.TransactionKey(transactionID), record)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", transactionID).
		Str("sender_id", senderID).
		Str("receiver_id", receiverID).
		Str("gift_id", g.ID).
		Int64("coins", g.Price).
		Int64("diamonds", diamondCredit).
		Msg("gift sent")

	s.publisher.Publish(ctx, realtime.WalletTopic(senderID), sender)
	if receiverID != senderID {
		s.publisher.Publish(ctx, realtime.WalletTopic(receiverID), receiver)
	}
	return &record, nil
}
