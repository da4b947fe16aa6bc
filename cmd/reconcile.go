package cmd

import (
	"context"
	"fmt"
	"time"

	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	"github.com/frahmantamala/conference-payments/internal/payment"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <outcome>",
	Short: "Apply a payment outcome by hand",
	Long: `Apply completed, succeeded, failed or expired to the record holding --session or --payment-intent.
The record goes through the same lookup and state machine as a provider webhook.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := manualRequest(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		deps, err := initializeDependencies(ctx)
		if err != nil {
			return err
		}
		defer deps.Close()

		res, err := deps.Resolver.Reconcile(ctx, req)
		if err != nil {
			return err
		}

		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := deps.EventBus.Wait(waitCtx); err != nil {
			deps.Logger.Warn("event handlers still running at exit", "error", err)
		}

		if !res.Applied {
			fmt.Println("no record found")
			return nil
		}
		fmt.Printf("%s/%s record %d: %s -> %s\n", res.Vertical, res.Class, res.Result.Record.ID,
			res.Result.PreviousStatus, res.Result.Record.Status)
		return nil
	},
}

var (
	reconcileSession       string
	reconcileIntent        string
	reconcileVertical      string
	reconcileClass         string
	reconcilePaymentStatus string
)

func manualRequest(outcome string) (payment.ManualReconcile, error) {
	o, ok := payment.ParseOutcome(outcome)
	if !ok {
		return payment.ManualReconcile{}, fmt.Errorf("unknown outcome %q", outcome)
	}
	req := payment.ManualReconcile{
		SessionID:       reconcileSession,
		PaymentIntentID: reconcileIntent,
		Outcome:         o,
		PaymentStatus:   reconcilePaymentStatus,
	}
	if reconcileVertical != "" {
		v, ok := vertical.Parse(reconcileVertical)
		if !ok {
			return payment.ManualReconcile{}, fmt.Errorf("unknown vertical %q", reconcileVertical)
		}
		req.Vertical = v
	}
	if reconcileClass != "" {
		c, ok := paymentDatamodel.ParseClass(reconcileClass)
		if !ok {
			return payment.ManualReconcile{}, fmt.Errorf("unknown class %q", reconcileClass)
		}
		req.Class = c
	}
	return req, nil
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileSession, "session", "", "Checkout session id")
	reconcileCmd.Flags().StringVar(&reconcileIntent, "payment-intent", "", "Payment intent id")
	reconcileCmd.Flags().StringVar(&reconcileVertical, "vertical", "", "Vertical to search first")
	reconcileCmd.Flags().StringVar(&reconcileClass, "class", "", "Restrict to payment or discount records")
	reconcileCmd.Flags().StringVar(&reconcilePaymentStatus, "payment-status", "", "Provider payment status to record, e.g. paid")
}
