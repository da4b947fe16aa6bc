package paymentgateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/conference-payments/internal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

type Config struct {
	SecretKey      string
	RequestTimeout time.Duration
	// APIBaseURL overrides the provider endpoint, e.g. for stripe-mock.
	APIBaseURL string
}

// StripeGateway uses a per-instance session client so no global key is ever set.
type StripeGateway struct {
	sessions *session.Client
	timeout  time.Duration
	logger   *slog.Logger
}

func NewStripeGateway(cfg Config, logger *slog.Logger) *StripeGateway {
	backendCfg := &stripe.BackendConfig{
		LeveledLogger:     &slogLeveledLogger{logger: logger},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.APIBaseURL != "" {
		backendCfg.URL = stripe.String(cfg.APIBaseURL)
	}

	return &StripeGateway{
		sessions: &session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		timeout: cfg.RequestTimeout,
		logger:  logger,
	}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	ctx, cancel := errors.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		CustomerEmail: stripe.String(req.Customer.Email),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, g.providerError("create checkout session", err)
	}

	g.logger.Info("checkout session created", "session_id", s.ID, "amount_total", s.AmountTotal, "currency", s.Currency)
	return fromStripeSession(s), nil
}

func (g *StripeGateway) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	ctx, cancel := errors.WithTimeout(ctx, g.timeout)
	defer cancel()

	s, err := g.sessions.Get(sessionID, &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, g.providerError("retrieve checkout session", err)
	}
	return fromStripeSession(s), nil
}

func (g *StripeGateway) ExpireSession(ctx context.Context, sessionID string) (*Session, error) {
	ctx, cancel := errors.WithTimeout(ctx, g.timeout)
	defer cancel()

	s, err := g.sessions.Expire(sessionID, &stripe.CheckoutSessionExpireParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, g.providerError("expire checkout session", err)
	}

	g.logger.Info("checkout session expired", "session_id", s.ID)
	return fromStripeSession(s), nil
}

func (g *StripeGateway) providerError(op string, err error) error {
	var stripeErr *stripe.Error
	if stderrors.As(err, &stripeErr) {
		g.logger.Error("payment provider rejected request",
			"operation", op,
			"status", stripeErr.HTTPStatusCode,
			"code", stripeErr.Code,
			"request_id", stripeErr.RequestID)
	} else {
		g.logger.Error("payment provider call failed", "operation", op, "error", err)
	}
	return errors.NewPaymentProviderError(fmt.Sprintf("failed to %s", op), err)
}

func fromStripeSession(s *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		CustomerEmail: s.CustomerEmail,
		CreatedAt:     unixTime(s.Created),
		ExpiresAt:     unixTime(s.ExpiresAt),
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// slogLeveledLogger routes the provider client's own logging into slog.
type slogLeveledLogger struct {
	logger *slog.Logger
}

func (l *slogLeveledLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *slogLeveledLogger) Infof(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *slogLeveledLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *slogLeveledLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "stripe")
}
