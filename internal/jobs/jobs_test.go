package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/voxroom/voxroom-api/internal/pkg/econerr"
)

type stubPropagator struct {
	calls []CommissionPayload
	err   error
}

func (s *stubPropagator) PropagateCommission(_ context.Context, orderID, userID string, amountInr int64) (int, error) {
	s.calls = append(s.calls, CommissionPayload{OrderID: orderID, UserID: userID, AmountInr: amountInr})
	return 1, s.err
}

type stubDistributor struct {
	weeks []string
	admin string
	err   error
}

func (s *stubDistributor) DistributeWeek(_ context.Context, adminID, weekKey string) (int, error) {
	s.weeks = append(s.weeks, weekKey)
	s.admin = adminID
	return 3, s.err
}

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: QueueCritical}, nil
}

func TestDispatcherQueuesCommission(t *testing.T) {
	q := &stubEnqueuer{}
	if err := NewDispatcher(q).DispatchCommission(context.Background(), "order_1", "buyer", 4999); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(q.tasks) != 1 || q.tasks[0].Type() != TypeCommissionPropagate {
		t.Fatalf("unexpected tasks: %+v", q.tasks)
	}

	var p CommissionPayload
	if err := json.Unmarshal(q.tasks[0].Payload(), &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.OrderID != "order_1" || p.UserID != "buyer" || p.AmountInr != 4999 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDispatcherTreatsDuplicateAsQueued(t *testing.T) {
	q := &stubEnqueuer{err: asynq.ErrTaskIDConflict}
	if err := NewDispatcher(q).DispatchCommission(context.Background(), "order_1", "buyer", 100); err != nil {
		t.Fatalf("expected duplicate enqueue to succeed, got %v", err)
	}

	boom := errors.New("redis down")
	q = &stubEnqueuer{err: boom}
	if err := NewDispatcher(q).DispatchCommission(context.Background(), "order_1", "buyer", 100); !errors.Is(err, boom) {
		t.Fatalf("expected enqueue error, got %v", err)
	}
}

func TestHandleCommission(t *testing.T) {
	prop := &stubPropagator{}
	p := NewProcessor(prop, &stubDistributor{})
	task, err := NewCommissionTask(CommissionPayload{OrderID: "order_9", UserID: "buyer", AmountInr: 2000})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.HandleCommission(context.Background(), task); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(prop.calls) != 1 || prop.calls[0].OrderID != "order_9" || prop.calls[0].AmountInr != 2000 {
		t.Fatalf("unexpected calls: %+v", prop.calls)
	}
}

func TestHandleCommissionRetryPolicy(t *testing.T) {
	task, _ := NewCommissionTask(CommissionPayload{OrderID: "order_9", UserID: "buyer", AmountInr: 2000})

	transient := errors.New("ledger busy")
	err := NewProcessor(&stubPropagator{err: transient}, nil).HandleCommission(context.Background(), task)
	if !errors.Is(err, transient) || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	rejected := econerr.Validation("INVALID_ORDER_ID", "Invalid order")
	err = NewProcessor(&stubPropagator{err: rejected}, nil).HandleCommission(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	bad := asynq.NewTask(TypeCommissionPropagate, []byte("{"))
	if err := NewProcessor(&stubPropagator{}, nil).HandleCommission(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for bad payload, got %v", err)
	}
}

func TestHandleContestDefaultsToScheduler(t *testing.T) {
	dist := &stubDistributor{}
	task, err := NewContestTask(ContestPayload{})
	if err != nil {
		t.Fatal(err)
	}

	if err := NewProcessor(nil, dist).HandleContest(context.Background(), task); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(dist.weeks) != 1 || dist.weeks[0] != "" || dist.admin != SchedulerAdminID {
		t.Fatalf("unexpected distribution call: %+v", dist)
	}
}

func TestHandleContestAlreadyDistributedIsFinal(t *testing.T) {
	dist := &stubDistributor{err: econerr.Business("ALREADY_DISTRIBUTED", "done")}
	task, _ := NewContestTask(ContestPayload{WeekKey: "2026-W07", AdminID: "ops"})

	err := NewProcessor(nil, dist).HandleContest(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestMuxRoutesBothTypes(t *testing.T) {
	prop := &stubPropagator{}
	dist := &stubDistributor{}
	mux := NewProcessor(prop, dist).Mux()

	ct, _ := NewCommissionTask(CommissionPayload{OrderID: "o", UserID: "u", AmountInr: 1})
	wt, _ := NewContestTask(ContestPayload{WeekKey: "2026-W07"})
	if err := mux.ProcessTask(context.Background(), ct); err != nil {
		t.Fatal(err)
	}
	if err := mux.ProcessTask(context.Background(), wt); err != nil {
		t.Fatal(err)
	}
	if len(prop.calls) != 1 || len(dist.weeks) != 1 {
		t.Fatalf("expected one call each, got %d/%d", len(prop.calls), len(dist.weeks))
	}
}

func TestRedisOpt(t *testing.T) {
	if _, err := RedisOpt(""); err == nil {
		t.Fatal("expected error for empty url")
	}
	opt, err := RedisOpt("redis://:secret@cache:6380/2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	c, ok := opt.(asynq.RedisClientOpt)
	if !ok || c.Addr != "cache:6380" || c.DB != 2 || c.Password != "secret" {
		t.Fatalf("unexpected opt: %#v", opt)
	}
}
