package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/domain/wallet"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
	"github.com/voxroom/voxroom-api/internal/pkg/storage"
)

const maxAdminList = 100

type Service struct {
	store     ledger.Store
	exports   storage.Storage
	publisher realtime.Publisher
	now       func() time.Time
}

func NewService(store ledger.Store, exports storage.Storage, publisher realtime.Publisher) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Service{
		store:     store,
		exports:   exports,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func key(requestID string) ledger.Key {
	return ledger.K(ledger.WithdrawalRequests, requestID)
}

// RequestWithdrawal debits diamonds into a pending payout. The cooldown
// lookup is part of the transaction, so two racing requests cannot both
// pass it.
func (s *Service) RequestWithdrawal(ctx context.Context, userID string, diamonds int64, upiID string) (*Request, error) {
	inr := InrFor(diamonds)
	if diamonds <= 0 || inr.LessThan(decimalMin) {
		return nil, ErrBelowMinimum
	}

	var (
		req *Request
		w   *wallet.Wallet
	)
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		now := s.now()

		latest, err := tx.Query(ctx, ledger.Query{
			Collection: ledger.WithdrawalRequests,
			Filters:    []ledger.Filter{ledger.Where("userId", ledger.Eq, userID)},
			OrderBy:    &ledger.Sort{Field: "requestedAt", Kind: ledger.SortTime, Desc: true},
			Limit:      1,
		})
		if err != nil {
			return err
		}
		if len(latest) > 0 {
			var last Request
			if err := latest[0].Decode(&last); err != nil {
				return err
			}
			if now.Sub(last.RequestedAt) < Cooldown {
				return ErrCooldown
			}
		}

		req = &Request{
			RequestID:   fmt.Sprintf("wd_%d_%s", now.UnixMilli(), userID),
			UserID:      userID,
			Diamonds:    diamonds,
			InrAmount:   inr,
			Status:      StatusPending,
			RequestedAt: now,
			UpiID:       strings.TrimSpace(upiID),
		}
		w, err = wallet.Debit(ctx, tx, userID, wallet.Diamonds, diamonds, req.RequestID, now)
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return ErrInsufficientDiamond
		}
		if err != nil {
			return err
		}
		return tx.Create(ctx, key(req.RequestID), req)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", req.RequestID).
		Str("user_id", userID).
		Int64("diamonds", diamonds).
		Str("inr", req.InrAmount.StringFixed(2)).
		Msg("withdrawal requested")
	s.publisher.Publish(ctx, realtime.WalletTopic(userID), w)
	return req, nil
}

// ProcessWithdrawal resolves a pending request. Rejecting refunds the held
// diamonds in the same commit; anything but a pending request is refused
// untouched.
func (s *Service) ProcessWithdrawal(ctx context.Context, adminID, requestID string, action Action) (*Request, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, ErrInvalidAction
	}

	var (
		req Request
		w   *wallet.Wallet
	)
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		w = nil
		found, err := tx.Get(ctx, key(requestID), &req)
		if err != nil {
			return err
		}
		if !found || req.Status != StatusPending {
			return ErrRequestNotFound
		}

		now := s.now()
		if action == ActionReject {
			req.Status = StatusRejected
			w, err = wallet.Credit(ctx, tx, req.UserID, wallet.Diamonds, req.Diamonds, "refund_"+requestID, now)
			if err != nil {
				return err
			}
		} else {
			req.Status = StatusApproved
		}
		req.ProcessedAt = &now
		req.AdminID = adminID
		return tx.Set(ctx, key(requestID), req)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", requestID).
		Str("admin_id", adminID).
		Str("status", string(req.Status)).
		Int64("diamonds", req.Diamonds).
		Msg("withdrawal processed")
	if w != nil {
		s.publisher.Publish(ctx, realtime.WalletTopic(req.UserID), w)
	}
	return &req, nil
}

// ListRequests returns the newest requests for the admin queue.
func (s *Service) ListRequests(ctx context.Context, status Status, limit int) ([]Request, error) {
	if limit <= 0 || limit > maxAdminList {
		limit = maxAdminList
	}
	q := ledger.Query{
		Collection: ledger.WithdrawalRequests,
		OrderBy:    &ledger.Sort{Field: "requestedAt", Kind: ledger.SortTime, Desc: true},
		Limit:      limit,
	}
	if status != "" {
		q.Filters = []ledger.Filter{ledger.Where("status", ledger.Eq, string(status))}
	}
	return s.find(ctx, q)
}

func (s *Service) find(ctx context.Context, q ledger.Query) ([]Request, error) {
	docs, err := ledger.Find(ctx, s.store, q)
	if err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(docs))
	for _, d := range docs {
		var r Request
		if err := d.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
