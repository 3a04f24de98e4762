package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxroom/voxroom-api/internal/config"
	"github.com/voxroom/voxroom-api/internal/domain/agency"
	"github.com/voxroom/voxroom-api/internal/domain/contest"
	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/domain/recharge"
	"github.com/voxroom/voxroom-api/internal/domain/withdrawal"
	"github.com/voxroom/voxroom-api/internal/jobs"
	"github.com/voxroom/voxroom-api/internal/pkg/database"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
	"github.com/voxroom/voxroom-api/internal/pkg/logger"
	"github.com/voxroom/voxroom-api/internal/pkg/password"
	"github.com/voxroom/voxroom-api/internal/pkg/storage"
)

// operatorID is recorded as the admin on actions run from this tool.
const operatorID = "economyctl"

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, Service: "economyctl"})

	if err := newRootCmd(cfg, openEnv).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is what a command runs against.
type env struct {
	store     ledger.Store
	publisher realtime.Publisher
	queue     jobs.Enqueuer
	close     func()
}

type openFunc func(cfg *config.Config) (*env, error)

func openEnv(cfg *config.Config) (*env, error) {
	store, err := database.OpenLedger(cfg.LedgerDriver, cfg.DatabaseURL, database.PoolConfig{MaxOpenConns: 4})
	if err != nil {
		return nil, err
	}
	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		store.Close()
		return nil, err
	}

	e := &env{store: store, publisher: realtime.Nop{}}
	closers := []func(){func() { store.Close() }}
	if rdb != nil {
		hub := realtime.NewHub(rdb)
		e.publisher = hub
		closers = append(closers, hub.Shutdown, func() { database.CloseRedis(rdb) })

		if opt, err := jobs.RedisOpt(cfg.RedisURL); err == nil {
			client := jobs.NewClient(opt)
			e.queue = client
			closers = append(closers, func() { client.Close() })
		}
	}
	e.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return e, nil
}

func newRootCmd(cfg *config.Config, open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "economyctl",
		Short:        "Operator tool for the VoxRoom economy ledger",
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(cfg, open),
		newRedriveCommissionCmd(cfg, open),
		newDistributeContestCmd(cfg, open),
		newSetRoleCmd(cfg, open),
		newExportPayoutsCmd(cfg, open),
		newHashPasswordCmd(),
	)
	return root
}

func newMigrateCmd(cfg *config.Config, open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger schema if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cfg)
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Fprintln(cmd.OutOrStdout(), "ledger schema ready")
			return nil
		},
	}
}

func newRedriveCommissionCmd(cfg *config.Config, open openFunc) *cobra.Command {
	var orderID string
	var queued bool
	cmd := &cobra.Command{
		Use:   "redrive-commission",
		Short: "Re-run agency commission propagation for a completed recharge order",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cfg)
			if err != nil {
				return err
			}
			defer e.close()

			agencies := agency.NewService(e.store, e.publisher)
			agencies.SetMaxDepth(cfg.CommissionMaxDepth)

			var dispatcher recharge.CommissionDispatcher = recharge.InlineDispatcher{Propagator: agencies}
			if queued {
				if e.queue == nil {
					return fmt.Errorf("--queue needs Redis")
				}
				dispatcher = jobs.NewDispatcher(e.queue)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := recharge.NewService(e.store, nil, dispatcher, e.publisher).RedriveCommission(ctx, orderID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "commission re-driven for %s\n", orderID)
			return nil
		},
	}
	cmd.Flags().StringVar(&orderID, "order", "", "recharge order id")
	cmd.Flags().BoolVar(&queued, "queue", false, "hand the order to the worker instead of running inline")
	cmd.MarkFlagRequired("order")
	return cmd
}

func newDistributeContestCmd(cfg *config.Config, open openFunc) *cobra.Command {
	var week string
	var queued bool
	cmd := &cobra.Command{
		Use:   "distribute-contest",
		Short: "Pay the weekly host contest (defaults to the week that just ended)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cfg)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			if queued {
				if e.queue == nil {
					return fmt.Errorf("--queue needs Redis")
				}
				info, err := jobs.EnqueueContest(ctx, e.queue, operatorID, week)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued contest payout as task %s\n", info.ID)
				return nil
			}

			paid, err := contest.NewService(e.store, e.publisher).DistributeWeek(ctx, operatorID, week)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paid %d hosts\n", paid)
			return nil
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "ISO week key, e.g. 2026-W07")
	cmd.Flags().BoolVar(&queued, "queue", false, "hand the payout to the worker instead of running inline")
	return cmd
}

func newSetRoleCmd(cfg *config.Config, open openFunc) *cobra.Command {
	var userID, role string
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Set a user's agency role without the in-app admin check",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cfg)
			if err != nil {
				return err
			}
			defer e.close()

			node, err := agency.NewService(e.store, e.publisher).SetRole(cmd.Context(), userID, agency.Role(role))
			if err != nil {
				return err
			}
			return printJSON(cmd, node)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&role, "role", string(agency.RoleChiefOfficial), "agency role")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newExportPayoutsCmd(cfg *config.Config, open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "export-payouts",
		Short: "Write pending withdrawals to a CSV payout batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cfg)
			if err != nil {
				return err
			}
			defer e.close()

			exports, err := storage.New(cmd.Context(), storage.Config{
				Driver:    cfg.PayoutStorageDriver,
				Endpoint:  cfg.S3Endpoint,
				Region:    cfg.S3Region,
				Bucket:    cfg.S3Bucket,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
				PublicURL: cfg.S3PublicURL,
				AccountID: cfg.R2AccountID,
				LocalDir:  cfg.PayoutLocalDir,
				LocalURL:  cfg.PayoutLocalURL,
			})
			if err != nil {
				return err
			}

			exp, err := withdrawal.NewService(e.store, exports, e.publisher).ExportPending(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, exp)
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := password.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
