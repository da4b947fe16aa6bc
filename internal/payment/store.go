package payment

import (
	"context"
	"time"

	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	registrationDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/registration"
	"github.com/frahmantamala/conference-payments/internal/vertical"
)

// RecordStore is the payment record table of one vertical and class.
// Finders return (nil, nil) when no row matches.
type RecordStore interface {
	Vertical() vertical.Vertical
	Class() paymentDatamodel.Class

	FindBySessionID(ctx context.Context, sessionID string) (*paymentDatamodel.PaymentRecord, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*paymentDatamodel.PaymentRecord, error)
	Save(ctx context.Context, r *paymentDatamodel.PaymentRecord) error
	FindAll(ctx context.Context) ([]*paymentDatamodel.PaymentRecord, error)

	// CompareAndUpdate writes changes only if the row still has the given
	// status and payment intent id. It reports whether the row was updated.
	CompareAndUpdate(ctx context.Context, id int64, expectStatus string, expectIntent *string, changes RecordChanges) (bool, error)

	// ListPending returns PENDING rows created before the cutoff, oldest first.
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*paymentDatamodel.PaymentRecord, error)
}

type RecordChanges struct {
	Status          string
	PaymentStatus   string
	PaymentIntentID *string
	UpdatedAt       time.Time
}

// CheckoutWriter persists what a new checkout creates in a single transaction.
// form is nil for discount sessions.
type CheckoutWriter interface {
	SaveCheckout(ctx context.Context, v vertical.Vertical, class paymentDatamodel.Class, record *paymentDatamodel.PaymentRecord, form *registrationDatamodel.RegistrationForm) error
}

// RegistrationReader lists the registration forms of one vertical, newest first.
type RegistrationReader interface {
	ListRegistrationForms(ctx context.Context, v vertical.Vertical) ([]*registrationDatamodel.RegistrationForm, error)
}

// Stores indexes record stores by vertical and class and yields them in search order.
type Stores struct {
	byKey map[storeKey]RecordStore
}

type storeKey struct {
	vertical vertical.Vertical
	class    paymentDatamodel.Class
}

func NewStores(stores ...RecordStore) *Stores {
	s := &Stores{byKey: make(map[storeKey]RecordStore)}
	for _, st := range stores {
		s.byKey[storeKey{st.Vertical(), st.Class()}] = st
	}
	return s
}

func (s *Stores) Get(v vertical.Vertical, class paymentDatamodel.Class) (RecordStore, bool) {
	st, ok := s.byKey[storeKey{v, class}]
	return st, ok
}

// All returns every store: regular stores first, each class in vertical order.
func (s *Stores) All() []RecordStore {
	return s.Ordered([]paymentDatamodel.Class{paymentDatamodel.ClassRegular, paymentDatamodel.ClassDiscount}, "")
}

// Ordered returns the stores of the given classes, class by class, with
// first moved to the front of the vertical order.
func (s *Stores) Ordered(classes []paymentDatamodel.Class, first vertical.Vertical) []RecordStore {
	var out []RecordStore
	for _, class := range classes {
		for _, v := range vertical.Prioritize(first) {
			if st, ok := s.byKey[storeKey{v, class}]; ok {
				out = append(out, st)
			}
		}
	}
	return out
}
