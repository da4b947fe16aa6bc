package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	paymentDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/payment"
	registrationDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/registration"
	"github.com/frahmantamala/conference-payments/internal/payment"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"gorm.io/gorm"
)

// RecordsTable returns the table holding one vertical's records of a class.
func RecordsTable(v vertical.Vertical, class paymentDatamodel.Class) string {
	if class == paymentDatamodel.ClassDiscount {
		return v.String() + "_discounts"
	}
	return v.String() + "_payment_records"
}

func RegistrationFormsTable(v vertical.Vertical) string { return v.String() + "_registration_forms" }

// RecordRepository is the gorm record store for a single table.
type RecordRepository struct {
	db       *gorm.DB
	vertical vertical.Vertical
	class    paymentDatamodel.Class
	table    string
}

func NewRecordRepository(db *gorm.DB, v vertical.Vertical, class paymentDatamodel.Class) payment.RecordStore {
	return &RecordRepository{
		db:       db,
		vertical: v,
		class:    class,
		table:    RecordsTable(v, class),
	}
}

// NewRecordRepositories builds the regular and discount store of every vertical.
func NewRecordRepositories(db *gorm.DB) []payment.RecordStore {
	var stores []payment.RecordStore
	for _, class := range []paymentDatamodel.Class{paymentDatamodel.ClassRegular, paymentDatamodel.ClassDiscount} {
		for _, v := range vertical.All() {
			stores = append(stores, NewRecordRepository(db, v, class))
		}
	}
	return stores
}

func (r *RecordRepository) Vertical() vertical.Vertical { return r.vertical }

func (r *RecordRepository) Class() paymentDatamodel.Class { return r.class }

func (r *RecordRepository) records(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

func (r *RecordRepository) FindBySessionID(ctx context.Context, sessionID string) (*paymentDatamodel.PaymentRecord, error) {
	return r.first(ctx, "session_id = ?", sessionID)
}

func (r *RecordRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*paymentDatamodel.PaymentRecord, error) {
	return r.first(ctx, "payment_intent_id = ?", paymentIntentID)
}

func (r *RecordRepository) first(ctx context.Context, query string, arg string) (*paymentDatamodel.PaymentRecord, error) {
	if arg == "" {
		return nil, nil
	}
	var rec paymentDatamodel.PaymentRecord
	err := r.records(ctx).Where(query, arg).First(&rec).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *RecordRepository) Save(ctx context.Context, rec *paymentDatamodel.PaymentRecord) error {
	return r.records(ctx).Save(rec).Error
}

func (r *RecordRepository) FindAll(ctx context.Context) ([]*paymentDatamodel.PaymentRecord, error) {
	var recs []*paymentDatamodel.PaymentRecord
	err := r.records(ctx).Order("id ASC").Find(&recs).Error
	return recs, err
}

func (r *RecordRepository) CompareAndUpdate(ctx context.Context, id int64, expectStatus string, expectIntent *string, changes payment.RecordChanges) (bool, error) {
	q := r.records(ctx).Where("id = ? AND status = ?", id, expectStatus)
	if expectIntent == nil {
		q = q.Where("payment_intent_id IS NULL")
	} else {
		q = q.Where("payment_intent_id = ?", *expectIntent)
	}

	result := q.Updates(map[string]interface{}{
		"status":            changes.Status,
		"payment_status":    changes.PaymentStatus,
		"payment_intent_id": changes.PaymentIntentID,
		"updated_at":        changes.UpdatedAt,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *RecordRepository) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*paymentDatamodel.PaymentRecord, error) {
	var recs []*paymentDatamodel.PaymentRecord
	err := r.records(ctx).
		Where("status = ? AND created_at < ?", paymentDatamodel.StatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// CheckoutRepository writes a new checkout's record and form together.
type CheckoutRepository struct {
	db *gorm.DB
}

var (
	_ payment.CheckoutWriter     = (*CheckoutRepository)(nil)
	_ payment.RegistrationReader = (*CheckoutRepository)(nil)
)

func NewCheckoutRepository(db *gorm.DB) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

func (r *CheckoutRepository) ListRegistrationForms(ctx context.Context, v vertical.Vertical) ([]*registrationDatamodel.RegistrationForm, error) {
	var forms []*registrationDatamodel.RegistrationForm
	err := r.db.WithContext(ctx).Table(RegistrationFormsTable(v)).Order("id DESC").Find(&forms).Error
	return forms, err
}

func (r *CheckoutRepository) SaveCheckout(ctx context.Context, v vertical.Vertical, class paymentDatamodel.Class, record *paymentDatamodel.PaymentRecord, form *registrationDatamodel.RegistrationForm) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(RecordsTable(v, class)).Create(record).Error; err != nil {
			return fmt.Errorf("insert payment record: %w", err)
		}
		if form == nil {
			return nil
		}
		if err := tx.Table(RegistrationFormsTable(v)).Create(form).Error; err != nil {
			return fmt.Errorf("insert registration form: %w", err)
		}
		return nil
	})
}
