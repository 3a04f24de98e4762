// Package jobs moves work that must not block a request onto an asynq
// queue: commission propagation after a recharge and the weekly contest
// payout.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeCommissionPropagate = "commission:propagate"
	TypeContestDistribute   = "contest:distribute"

	QueueCritical = "critical"
	QueueDefault  = "default"

	// SchedulerAdminID is recorded as the distributing admin for cron runs.
	SchedulerAdminID = "scheduler"
)

type CommissionPayload struct {
	OrderID   string `json:"orderId"`
	UserID    string `json:"userId"`
	AmountInr int64  `json:"amountInr"`
}

type ContestPayload struct {
	// WeekKey empty means the week that just ended.
	WeekKey string `json:"weekKey,omitempty"`
	AdminID string `json:"adminId"`
}

// NewCommissionTask builds the propagation task for one order. The task id
// is derived from the order so a second enqueue of the same order is
// rejected by the queue.
func NewCommissionTask(p CommissionPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCommissionPropagate, payload,
		asynq.TaskID("commission:"+p.OrderID),
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(25),
		asynq.Timeout(time.Minute),
		asynq.Retention(7*24*time.Hour),
	), nil
}

func NewContestTask(p ContestPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeContestDistribute, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(5*time.Minute),
	), nil
}
