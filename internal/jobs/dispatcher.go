package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Enqueuer is the part of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher queues commission propagation instead of running it in the
// verify request.
type Dispatcher struct {
	client Enqueuer
}

func NewDispatcher(client Enqueuer) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) DispatchCommission(ctx context.Context, orderID, userID string, amountInr int64) error {
	task, err := NewCommissionTask(CommissionPayload{OrderID: orderID, UserID: userID, AmountInr: amountInr})
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		log.Info().Str("order_id", orderID).Msg("commission task already queued")
		return nil
	}
	if err != nil {
		return err
	}

	log.Debug().Str("order_id", orderID).Str("task_id", info.ID).Str("queue", info.Queue).Msg("commission task queued")
	return nil
}

// EnqueueContest queues a contest payout for weekKey.
func EnqueueContest(ctx context.Context, client Enqueuer, adminID, weekKey string) (*asynq.TaskInfo, error) {
	task, err := NewContestTask(ContestPayload{WeekKey: weekKey, AdminID: adminID})
	if err != nil {
		return nil, err
	}
	return client.EnqueueContext(ctx, task)
}
