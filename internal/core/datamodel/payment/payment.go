package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusExpired   = "EXPIRED"
)

// Class separates regular registrations from discount registrations.
// Each class has its own tables and its own webhook signing secret.
type Class string

const (
	ClassRegular  Class = "payment"
	ClassDiscount Class = "discount"
)

func ParseClass(s string) (Class, bool) {
	switch Class(s) {
	case ClassRegular, ClassDiscount:
		return Class(s), true
	}
	return "", false
}

// PaymentRecord is the row shape shared by every <vertical>_payment_records
// and <vertical>_discounts table. The table is chosen by the repository.
type PaymentRecord struct {
	ID                int64           `gorm:"primaryKey"`
	SessionID         string          `gorm:"column:session_id;not null;uniqueIndex"`
	PaymentIntentID   *string         `gorm:"column:payment_intent_id;uniqueIndex"`
	Status            string          `gorm:"column:status;not null;default:PENDING"`
	PaymentStatus     string          `gorm:"column:payment_status"`
	AmountTotal       decimal.Decimal `gorm:"column:amount_total;type:numeric(12,2);not null"`
	Currency          string          `gorm:"column:currency;not null"`
	PricingConfigID   int64           `gorm:"column:pricing_config_id"`
	CustomerEmail     string          `gorm:"column:customer_email;not null"`
	CustomerName      string          `gorm:"column:customer_name;not null"`
	CustomerPhone     string          `gorm:"column:customer_phone"`
	CustomerInstitute string          `gorm:"column:customer_institute"`
	CustomerCountry   string          `gorm:"column:customer_country"`
	StripeCreatedAt   *time.Time      `gorm:"column:stripe_created_at"`
	StripeExpiresAt   *time.Time      `gorm:"column:stripe_expires_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
