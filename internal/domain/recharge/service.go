package recharge

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/domain/user"
	"github.com/voxroom/voxroom-api/internal/domain/wallet"
	"github.com/voxroom/voxroom-api/internal/pkg/errorhandler"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
	"github.com/voxroom/voxroom-api/internal/pkg/razorpay"
)

const maxReceiptLen = 40

// Gateway is the payment provider as the recharge engine uses it
type Gateway interface {
	Configured() bool
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

type CreateOrderResult struct {
	OrderID     string `json:"orderId"`
	AmountPaise int64  `json:"amountPaise"`
	Currency    string `json:"currency"`
	KeyID       string `json:"keyId"`
	Coins       int64  `json:"coins"`
}

type VerifyResult struct {
	Coins    int64          `json:"coins"`
	VipLevel int            `json:"vipLevel"`
	Wallet   *wallet.Wallet `json:"wallet"`
}

type Service struct {
	store      ledger.Store
	gateway    Gateway
	dispatcher CommissionDispatcher
	publisher  realtime.Publisher
	now        func() time.Time
}

func NewService(store ledger.Store, gateway Gateway, dispatcher CommissionDispatcher, publisher realtime.Publisher) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Service{
		store:      store,
		gateway:    gateway,
		dispatcher: dispatcher,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func receiptFor(userID string, now time.Time) string {
	r := fmt.Sprintf("recharge_%s_%d", userID, now.UnixMilli())
	if len(r) > maxReceiptLen {
		r = r[:maxReceiptLen]
	}
	return r
}

// CreateOrder opens a gateway order for one of the listed packs. The
// gateway call happens before any ledger write, so a failed call leaves
// nothing behind.
func (s *Service) CreateOrder(ctx context.Context, userID string, amountInr int64) (*CreateOrderResult, error) {
	pack, ok := LookupPack(amountInr)
	if !ok {
		return nil, ErrInvalidPack
	}
	if s.gateway == nil || !s.gateway.Configured() {
		return nil, ErrNotConfigured
	}

	now := s.now()
	receipt := receiptFor(userID, now)
	gwOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   pack.Inr * 100,
		Currency: "INR",
		Receipt:  receipt,
		Notes:    map[string]string{"userId": userID},
	})
	if err != nil {
		errorhandler.LogExternalServiceError(ctx, "razorpay", "/orders", 0, err, "")
		return nil, ErrGateway
	}

	order := Order{
		OrderID:       gwOrder.ID,
		UserID:        userID,
		AmountPaise:   pack.Inr * 100,
		AmountInr:     pack.Inr,
		CoinsToCredit: pack.Coins,
		Status:        StatusCreated,
		Receipt:       receipt,
		CreatedAt:     now,
	}
	err = s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Create(ctx, ledger.K(ledger.RechargeOrders, order.OrderID), order)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", order.OrderID).
		Str("user_id", userID).
		Int64("amount_inr", pack.Inr).
		Int64("coins", pack.Coins).
		Msg("recharge order created")

	return &CreateOrderResult{
		OrderID:     order.OrderID,
		AmountPaise: order.AmountPaise,
		Currency:    "INR",
		KeyID:       s.gateway.KeyID(),
		Coins:       pack.Coins,
	}, nil
}

// VerifyPayment completes an order once: the coin credit, the VIP update
// and the order status change commit together. Commission propagation
// runs after the commit and cannot undo the credit.
func (s *Service) VerifyPayment(ctx context.Context, userID, orderID, paymentID, signature string) (*VerifyResult, error) {
	if s.gateway == nil || !s.gateway.Configured() {
		return nil, ErrNotConfigured
	}
	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		return nil, ErrInvalidSignature
	}

	var (
		order Order
		w     *wallet.Wallet
	)
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		key := ledger.K(ledger.RechargeOrders, orderID)
		found, err := tx.Get(ctx, key, &order)
		if err != nil {
			return err
		}
		if !found || order.UserID != userID {
			return ErrOrderNotFound
		}
		if order.Status == StatusCompleted {
			return ErrReplay
		}

		now := s.now()
		w, err = wallet.Apply(ctx, tx, userID, "recharge_"+orderID, now, func(w *wallet.Wallet) error {
			if err := w.Credit(wallet.Coins, order.CoinsToCredit); err != nil {
				return err
			}
			w.CumulativeRechargeInr = w.CumulativeRechargeInr.Add(decimal.NewFromInt(order.AmountInr))
			w.VipLevel = VipLevel(w.CumulativeRechargeInr)
			return nil
		})
		if err != nil {
			return err
		}
		if err := user.SetVipLevel(ctx, tx, userID, w.VipLevel, now); err != nil {
			return err
		}

		order.Status = StatusCompleted
		order.CompletedAt = &now
		order.PaymentID = paymentID
		return tx.Set(ctx, key, order)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", orderID).
		Str("payment_id", paymentID).
		Str("user_id", userID).
		Int64("coins", order.CoinsToCredit).
		Int("vip_level", w.VipLevel).
		Msg("recharge completed")
	s.publisher.Publish(ctx, realtime.WalletTopic(userID), w)

	s.dispatchCommission(ctx, order)

	return &VerifyResult{Coins: order.CoinsToCredit, VipLevel: w.VipLevel, Wallet: w}, nil
}

// RedriveCommission re-runs propagation for a completed order. Safe to
// repeat: propagation is keyed by order.
func (s *Service) RedriveCommission(ctx context.Context, orderID string) error {
	var order Order
	found, err := ledger.Get(ctx, s.store, ledger.K(ledger.RechargeOrders, orderID), &order)
	if err != nil {
		return err
	}
	if !found {
		return ErrOrderNotFound
	}
	if order.Status != StatusCompleted {
		return fmt.Errorf("order %s is %s, not completed", orderID, order.Status)
	}
	if s.dispatcher == nil {
		return fmt.Errorf("no commission dispatcher configured")
	}
	return s.dispatcher.DispatchCommission(ctx, order.OrderID, order.UserID, order.AmountInr)
}

func (s *Service) dispatchCommission(ctx context.Context, order Order) {
	if s.dispatcher == nil {
		return
	}
	// The request may be cancelled once the response is written.
	ctx = context.WithoutCancel(ctx)
	if err := s.dispatcher.DispatchCommission(ctx, order.OrderID, order.UserID, order.AmountInr); err != nil {
		log.Error().
			Err(err).
			Str("alert", "commission_propagation").
			Str("order_id", order.OrderID).
			Str("user_id", order.UserID).
			Int64("amount_inr", order.AmountInr).
			Msg("commission propagation failed; re-drive with economyctl redrive-commission")
	}
}
