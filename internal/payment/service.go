package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	errors "github.com/frahmantamala/conference-payments/internal"
	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	registrationDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/registration"
	"github.com/frahmantamala/conference-payments/internal/paymentgateway"
	"github.com/frahmantamala/conference-payments/internal/pricing"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/frahmantamala/conference-payments/pkg/logger"
)

type PricingAPI interface {
	GetPricingConfig(ctx context.Context, v vertical.Vertical, id int64) (*pricing.PricingConfig, error)
}

// RedirectURLs are where the hosted checkout sends the registrant back to.
type RedirectURLs struct {
	SuccessURL string
	CancelURL  string
}

type Dependencies struct {
	Pricing    PricingAPI
	Gateway    paymentgateway.Gateway
	Stores     *Stores
	Writer        CheckoutWriter
	Registrations RegistrationReader
	Reconciler    *Reconciler
	Redirects     map[vertical.Vertical]RedirectURLs
}

type Service struct {
	pricing    PricingAPI
	gateway    paymentgateway.Gateway
	stores     *Stores
	writer        CheckoutWriter
	registrations RegistrationReader
	reconciler    *Reconciler
	redirects     map[vertical.Vertical]RedirectURLs
	logger        *slog.Logger
}

func NewService(deps Dependencies, logger *slog.Logger) *Service {
	return &Service{
		pricing:    deps.Pricing,
		gateway:    deps.Gateway,
		stores:     deps.Stores,
		writer:        deps.Writer,
		registrations: deps.Registrations,
		reconciler:    deps.Reconciler,
		redirects:     deps.Redirects,
		logger:        logger,
	}
}

// CreateCheckoutSession opens a hosted checkout charging the config's total
// and stores the PENDING record together with the registration form.
func (s *Service) CreateCheckoutSession(ctx context.Context, v vertical.Vertical, req CheckoutRequest) (*CheckoutResponse, error) {
	return s.createSession(ctx, v, paymentDatamodel.ClassRegular, req)
}

// CreateDiscountSession is the discount-class checkout. No registration form is written.
func (s *Service) CreateDiscountSession(ctx context.Context, v vertical.Vertical, req CheckoutRequest) (*CheckoutResponse, error) {
	return s.createSession(ctx, v, paymentDatamodel.ClassDiscount, req)
}

func (s *Service) createSession(ctx context.Context, v vertical.Vertical, class paymentDatamodel.Class, req CheckoutRequest) (*CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromOr(ctx, s.logger).With("vertical", v, "class", class, "pricing_config_id", req.PricingConfigID)

	cfg, err := s.pricing.GetPricingConfig(ctx, v, req.PricingConfigID)
	if err != nil {
		return nil, err
	}
	amount := cfg.TotalPrice.Round(2)

	source, paymentType := paymentgateway.SourcePaymentAPI, paymentgateway.PaymentTypeRegistration
	if class == paymentDatamodel.ClassDiscount {
		source, paymentType = paymentgateway.SourceDiscountAPI, paymentgateway.PaymentTypeDiscountRegistration
	}

	productName := req.ProductName
	if productName == "" {
		productName = fmt.Sprintf("%s conference registration", v)
	}

	redirect := s.redirects[v]
	session, err := s.gateway.CreateSession(ctx, paymentgateway.SessionRequest{
		ProductName: productName,
		AmountMinor: pricing.ToMinorUnits(amount),
		Currency:    req.Currency,
		Customer:    req.customer(),
		SuccessURL:  redirect.SuccessURL,
		CancelURL:   redirect.CancelURL,
		Metadata: map[string]string{
			paymentgateway.MetaSource:          source,
			paymentgateway.MetaPaymentType:     paymentType,
			paymentgateway.MetaVertical:        v.String(),
			paymentgateway.MetaPricingConfigID: strconv.FormatInt(cfg.ID, 10),
			paymentgateway.MetaCustomerEmail:   req.Email,
			paymentgateway.MetaCustomerName:    req.Name,
			paymentgateway.MetaCustomerPhone:   req.Phone,
			paymentgateway.MetaCustomerInst:    req.InstituteOrUniversity,
			paymentgateway.MetaCustomerCountry: req.Country,
		},
	})
	if err != nil {
		log.Error("checkout session could not be opened", "error", err)
		return nil, err
	}

	record := &paymentDatamodel.PaymentRecord{
		SessionID:         session.ID,
		Status:            paymentDatamodel.StatusPending,
		PaymentStatus:     session.PaymentStatus,
		AmountTotal:       amount,
		Currency:          req.Currency,
		PricingConfigID:   cfg.ID,
		CustomerEmail:     req.Email,
		CustomerName:      req.Name,
		CustomerPhone:     req.Phone,
		CustomerInstitute: req.InstituteOrUniversity,
		CustomerCountry:   req.Country,
		StripeCreatedAt:   session.CreatedAt,
		StripeExpiresAt:   session.ExpiresAt,
	}
	if session.PaymentIntentID != "" {
		intent := session.PaymentIntentID
		record.PaymentIntentID = &intent
	}

	var form *registrationDatamodel.RegistrationForm
	if class == paymentDatamodel.ClassRegular {
		form = &registrationDatamodel.RegistrationForm{
			Name:                  req.Name,
			Phone:                 req.Phone,
			Email:                 req.Email,
			InstituteOrUniversity: req.InstituteOrUniversity,
			Country:               req.Country,
			PricingConfigID:       cfg.ID,
			AmountPaid:            amount,
			SessionID:             session.ID,
		}
	}

	if err := s.writer.SaveCheckout(ctx, v, class, record, form); err != nil {
		log.Error("checkout session opened but not persisted", "session_id", session.ID, "error", err)
		return nil, errors.NewInternalError("failed to persist checkout session", err)
	}

	log.Info("checkout session created",
		"session_id", session.ID,
		"amount_total", amount.StringFixed(2),
		"currency", req.Currency)

	return &CheckoutResponse{
		SessionID:       session.ID,
		URL:             session.URL,
		Status:          session.Status,
		PaymentStatus:   session.PaymentStatus,
		PaymentIntentID: session.PaymentIntentID,
	}, nil
}

// GetSession returns the provider's view of a session this vertical created.
func (s *Service) GetSession(ctx context.Context, v vertical.Vertical, sessionID string) (*SessionSnapshot, error) {
	store, rec, err := s.localRecord(ctx, v, sessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionSnapshot{Session: session, Record: FromDataModel(store, rec)}, nil
}

// ExpireSession expires an open session at the provider and records EXPIRED.
func (s *Service) ExpireSession(ctx context.Context, v vertical.Vertical, sessionID string) (*SessionSnapshot, error) {
	store, rec, err := s.localRecord(ctx, v, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.Status == paymentDatamodel.StatusCompleted {
		return nil, errors.ErrSessionCompleted
	}

	session, err := s.gateway.ExpireSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.ApplyOutcome(ctx, store, sessionID, BySessionID, OutcomeExpired, Update{PaymentStatus: session.PaymentStatus})
	if err != nil {
		return nil, errors.NewInternalError("failed to record session expiry", err)
	}
	if res.Record != nil {
		rec = res.Record
	}
	return &SessionSnapshot{Session: session, Record: FromDataModel(store, rec)}, nil
}

// ListPayments returns every record of one vertical and class.
func (s *Service) ListPayments(ctx context.Context, v vertical.Vertical, class paymentDatamodel.Class) ([]*PaymentRecord, error) {
	store, ok := s.stores.Get(v, class)
	if !ok {
		return nil, errors.ErrUnknownVertical
	}

	records, err := store.FindAll(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to list payment records", err)
	}

	out := make([]*PaymentRecord, 0, len(records))
	for _, r := range records {
		out = append(out, FromDataModel(store, r))
	}
	return out, nil
}

// ListRegistrationForms returns the forms written at checkout for one vertical.
func (s *Service) ListRegistrationForms(ctx context.Context, v vertical.Vertical) ([]*RegistrationForm, error) {
	if _, ok := s.stores.Get(v, paymentDatamodel.ClassRegular); !ok {
		return nil, errors.ErrUnknownVertical
	}

	forms, err := s.registrations.ListRegistrationForms(ctx, v)
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to list registration forms", "vertical", v, "error", err)
		return nil, errors.NewInternalError("failed to list registration forms", err)
	}

	out := make([]*RegistrationForm, 0, len(forms))
	for _, f := range forms {
		out = append(out, registrationFromDataModel(f))
	}
	return out, nil
}

func (s *Service) localRecord(ctx context.Context, v vertical.Vertical, sessionID string) (RecordStore, *paymentDatamodel.PaymentRecord, error) {
	store, ok := s.stores.Get(v, paymentDatamodel.ClassRegular)
	if !ok {
		return nil, nil, errors.ErrUnknownVertical
	}

	rec, err := store.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, nil, errors.NewInternalError("failed to load payment record", err)
	}
	if rec == nil {
		return nil, nil, errors.ErrPaymentRecordNotFound
	}
	return store, rec, nil
}
