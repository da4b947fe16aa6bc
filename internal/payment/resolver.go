package payment

import (
	"context"
	"log/slog"

	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/frahmantamala/conference-payments/pkg/logger"
)

// Scope limits which stores an ingress endpoint may search.
type Scope struct {
	Classes []paymentDatamodel.Class
	// Vertical, when set, is searched first.
	Vertical vertical.Vertical
}

// RegularScope searches regular stores and then discount stores.
func RegularScope() Scope {
	return Scope{Classes: []paymentDatamodel.Class{paymentDatamodel.ClassRegular, paymentDatamodel.ClassDiscount}}
}

func DiscountScope() Scope {
	return Scope{Classes: []paymentDatamodel.Class{paymentDatamodel.ClassDiscount}}
}

func VerticalScope(v vertical.Vertical) Scope {
	s := RegularScope()
	s.Vertical = v
	return s
}

// Resolution reports where, if anywhere, an event was applied.
type Resolution struct {
	Applied  bool
	Vertical vertical.Vertical
	Class    paymentDatamodel.Class
	Lookup   LookupKind
	Result   ApplyResult
}

type lookup struct {
	kind LookupKind
	id   string
}

// Resolver finds the store owning an event's record by searching every store
// in scope. Metadata hints only change the search order.
type Resolver struct {
	stores     *Stores
	reconciler *Reconciler
	logger     *slog.Logger
}

func NewResolver(stores *Stores, reconciler *Reconciler, logger *slog.Logger) *Resolver {
	return &Resolver{
		stores:     stores,
		reconciler: reconciler,
		logger:     logger,
	}
}

// ResolveAndApply applies outcome to the first store holding the event's
// record. An event matching nothing is logged and returns Applied=false
// with a nil error. Only store failures are returned as errors.
func (r *Resolver) ResolveAndApply(ctx context.Context, evt *paymentgateway.Event, outcome Outcome, scope Scope) (Resolution, error) {
	log := logger.FromOr(ctx, r.logger).With("event_id", evt.ID, "event_type", evt.Type)

	lookups, upd := lookupsFor(evt)
	if len(lookups) == 0 {
		log.Debug("event carries no object to reconcile")
		return Resolution{}, nil
	}

	order := r.searchOrder(evt.Metadata(), scope)
	for _, l := range lookups {
		for _, store := range order {
			res, err := r.reconciler.ApplyOutcome(ctx, store, l.id, l.kind, outcome, upd)
			if err != nil {
				return Resolution{}, err
			}
			if res.Matched {
				return Resolution{
					Applied:  true,
					Vertical: store.Vertical(),
					Class:    store.Class(),
					Lookup:   l.kind,
					Result:   res,
				}, nil
			}
		}
	}

	log.Warn("reconciliation miss: no store holds the event's record",
		"lookups", len(lookups),
		"stores_searched", len(order))
	return Resolution{}, nil
}

func lookupsFor(evt *paymentgateway.Event) ([]lookup, Update) {
	upd := Update{ProviderEventID: evt.ID}

	switch {
	case evt.Session != nil:
		upd.PaymentStatus = evt.Session.PaymentStatus
		upd.PaymentIntentID = evt.Session.PaymentIntentID
		return []lookup{{BySessionID, evt.Session.ID}}, upd

	case evt.PaymentIntent != nil:
		upd.PaymentStatus = evt.PaymentIntent.Status
		upd.PaymentIntentID = evt.PaymentIntent.ID
		lookups := []lookup{{ByPaymentIntentID, evt.PaymentIntent.ID}}
		if sid := evt.PaymentIntent.Metadata[paymentgateway.MetaSessionID]; sid != "" {
			lookups = append(lookups, lookup{BySessionID, sid})
		}
		return lookups, upd
	}

	return nil, upd
}

func (r *Resolver) searchOrder(meta map[string]string, scope Scope) []RecordStore {
	first := scope.Vertical
	if first == "" {
		if v, ok := vertical.Parse(meta[paymentgateway.MetaVertical]); ok {
			first = v
		}
	}

	classes := scope.Classes
	if looksLikeDiscount(meta) && len(classes) > 1 {
		reordered := []paymentDatamodel.Class{paymentDatamodel.ClassDiscount}
		for _, c := range classes {
			if c != paymentDatamodel.ClassDiscount {
				reordered = append(reordered, c)
			}
		}
		classes = reordered
	}

	return r.stores.Ordered(classes, first)
}

func looksLikeDiscount(meta map[string]string) bool {
	return meta[paymentgateway.MetaSource] == paymentgateway.SourceDiscountAPI ||
		meta[paymentgateway.MetaPaymentType] == paymentgateway.PaymentTypeDiscountRegistration
}
