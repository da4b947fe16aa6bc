package registration

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegistrationForm carries no payment status; payment state lives only on PaymentRecord.
type RegistrationForm struct {
	ID                    int64           `gorm:"primaryKey"`
	Name                  string          `gorm:"column:name;not null"`
	Phone                 string          `gorm:"column:phone"`
	Email                 string          `gorm:"column:email;not null"`
	InstituteOrUniversity string          `gorm:"column:institute_or_university"`
	Country               string          `gorm:"column:country"`
	PricingConfigID       int64           `gorm:"column:pricing_config_id;not null"`
	AmountPaid            decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2)"`
	SessionID             string          `gorm:"column:session_id;index"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
}
