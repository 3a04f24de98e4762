package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/pkg/econerr"
)

// CommissionPropagator is implemented by the agency engine.
type CommissionPropagator interface {
	PropagateCommission(ctx context.Context, orderID, userID string, amountInr int64) (int, error)
}

// ContestDistributor is implemented by the contest engine.
type ContestDistributor interface {
	DistributeWeek(ctx context.Context, adminID, weekKey string) (int, error)
}

type Processor struct {
	commissions CommissionPropagator
	contests    ContestDistributor
}

func NewProcessor(commissions CommissionPropagator, contests ContestDistributor) *Processor {
	return &Processor{commissions: commissions, contests: contests}
}

// Mux routes every task type to its handler.
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCommissionPropagate, p.HandleCommission)
	mux.HandleFunc(TypeContestDistribute, p.HandleContest)
	return mux
}

func (p *Processor) HandleCommission(ctx context.Context, t *asynq.Task) error {
	var payload CommissionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode commission payload: %v: %w", err, asynq.SkipRetry)
	}

	paid, err := p.commissions.PropagateCommission(ctx, payload.OrderID, payload.UserID, payload.AmountInr)
	if err != nil {
		return final(err)
	}

	log.Info().Str("order_id", payload.OrderID).Str("user_id", payload.UserID).Int("levels_paid", paid).Msg("commission propagated")
	return nil
}

func (p *Processor) HandleContest(ctx context.Context, t *asynq.Task) error {
	var payload ContestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode contest payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.AdminID == "" {
		payload.AdminID = SchedulerAdminID
	}

	winners, err := p.contests.DistributeWeek(ctx, payload.AdminID, payload.WeekKey)
	if err != nil {
		return final(err)
	}

	log.Info().Str("week_key", payload.WeekKey).Int("winners", winners).Msg("contest distribution finished")
	return nil
}

// final stops retries for rejections that will not change on a second try.
func final(err error) error {
	if e, ok := econerr.As(err); ok {
		return fmt.Errorf("%s: %w", e.Code, asynq.SkipRetry)
	}
	return err
}
