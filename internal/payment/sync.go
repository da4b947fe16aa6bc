package payment

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
	"golang.org/x/sync/errgroup"
)

// SessionFetcher is the part of the gateway the sync needs.
type SessionFetcher interface {
	GetSession(ctx context.Context, sessionID string) (*paymentgateway.Session, error)
}

type SyncOptions struct {
	OlderThan   time.Duration
	Limit       int
	Concurrency int
}

type SyncReport struct {
	Checked      int64
	Transitioned int64
	StillOpen    int64
	Failed       int64
}

// Syncer asks the provider about PENDING records whose webhook never arrived.
type Syncer struct {
	stores     *Stores
	sessions   SessionFetcher
	reconciler *Reconciler
	logger     *slog.Logger
}

func NewSyncer(stores *Stores, sessions SessionFetcher, reconciler *Reconciler, logger *slog.Logger) *Syncer {
	return &Syncer{
		stores:     stores,
		sessions:   sessions,
		reconciler: reconciler,
		logger:     logger,
	}
}

// SyncPending walks every store. A provider failure for one session is
// counted and skipped; a store failure aborts the run.
func (s *Syncer) SyncPending(ctx context.Context, opts SyncOptions) (SyncReport, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	cutoff := time.Now().UTC().Add(-opts.OlderThan)

	var report SyncReport
	for _, store := range s.stores.All() {
		pending, err := store.ListPending(ctx, cutoff, opts.Limit)
		if err != nil {
			return report, err
		}
		if len(pending) == 0 {
			continue
		}

		log := s.logger.With("vertical", store.Vertical(), "class", store.Class())
		log.Info("syncing pending records", "count", len(pending))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for _, rec := range pending {
			sessionID := rec.SessionID
			g.Go(func() error {
				atomic.AddInt64(&report.Checked, 1)

				session, err := s.sessions.GetSession(gctx, sessionID)
				if err != nil {
					atomic.AddInt64(&report.Failed, 1)
					log.Warn("provider lookup failed", "session_id", sessionID, "error", err)
					return nil
				}

				outcome, ok := OutcomeForSession(session)
				if !ok {
					atomic.AddInt64(&report.StillOpen, 1)
					return nil
				}

				res, err := s.reconciler.ApplyOutcome(gctx, store, sessionID, BySessionID, outcome, Update{
					PaymentStatus:   session.PaymentStatus,
					PaymentIntentID: session.PaymentIntentID,
				})
				if err != nil {
					return err
				}
				if res.Transitioned {
					atomic.AddInt64(&report.Transitioned, 1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}
	}

	s.logger.Info("pending sync finished",
		"checked", report.Checked,
		"transitioned", report.Transitioned,
		"still_open", report.StillOpen,
		"failed", report.Failed)
	return report, nil
}

// OutcomeForSession derives a terminal outcome from a session the provider
// reports. ok is false while the session is still open or unpaid.
func OutcomeForSession(s *paymentgateway.Session) (Outcome, bool) {
	switch s.Status {
	case "complete":
		if s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required" {
			return OutcomeCompleted, true
		}
	case "expired":
		return OutcomeExpired, true
	}
	return "", false
}
