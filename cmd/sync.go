package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/conference-payments/internal/payment"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise local payment state with the provider",
}

var syncPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Settle PENDING records whose webhook never arrived",
	Long:  `Ask the provider about every PENDING record older than --older-than and apply the final state it reports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := initializeDependencies(ctx)
		if err != nil {
			return err
		}
		defer deps.Close()

		syncer := payment.NewSyncer(deps.Stores, deps.Gateway, deps.Reconciler, deps.Logger)
		report, err := syncer.SyncPending(ctx, payment.SyncOptions{
			OlderThan:   syncOlderThan,
			Limit:       syncLimit,
			Concurrency: syncConcurrency,
		})

		waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if werr := deps.EventBus.Wait(waitCtx); werr != nil {
			deps.Logger.Warn("event handlers still running at exit", "error", werr)
		}

		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "checked=%d transitioned=%d still_open=%d failed=%d\n",
			report.Checked, report.Transitioned, report.StillOpen, report.Failed)
		return nil
	},
}

var (
	syncOlderThan   time.Duration
	syncLimit       int
	syncConcurrency int
)

func init() {
	syncPendingCmd.Flags().DurationVar(&syncOlderThan, "older-than", time.Hour, "Only records created before now minus this duration")
	syncPendingCmd.Flags().IntVar(&syncLimit, "limit", 100, "Maximum records per store")
	syncPendingCmd.Flags().IntVar(&syncConcurrency, "concurrency", 4, "Concurrent provider lookups")

	syncCmd.AddCommand(syncPendingCmd)
}
