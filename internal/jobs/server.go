package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedisOpt parses a redis:// URL into asynq connection options.
func RedisOpt(redisURL string) (asynq.RedisConnOpt, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("jobs: redis url is required")
	}
	return asynq.ParseRedisURI(redisURL)
}

func NewClient(opt asynq.RedisConnOpt) *asynq.Client {
	return asynq.NewClient(opt)
}

func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
		},
		Logger:   zerologAdapter{l: log.With().Str("component", "asynq").Logger()},
		LogLevel: asynq.InfoLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			ev := log.Error().Err(err).Str("task_type", task.Type()).Int("retried", retried).Int("max_retry", maxRetry)
			if task.Type() == TypeCommissionPropagate && retried >= maxRetry {
				ev = ev.Str("alert", "commission_propagation")
			}
			ev.Msg("task failed")
		}),
	})
}

// NewScheduler registers the weekly contest payout on cronSpec (UTC).
func NewScheduler(opt asynq.RedisConnOpt, cronSpec string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   zerologAdapter{l: log.With().Str("component", "asynq-scheduler").Logger()},
	})

	task, err := NewContestTask(ContestPayload{AdminID: SchedulerAdminID})
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(cronSpec, task)
	if err != nil {
		return nil, fmt.Errorf("register contest cron %q: %w", cronSpec, err)
	}
	log.Info().Str("cron", cronSpec).Str("entry_id", entryID).Msg("contest payout scheduled")
	return scheduler, nil
}

type zerologAdapter struct {
	l zerolog.Logger
}

func (a zerologAdapter) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
