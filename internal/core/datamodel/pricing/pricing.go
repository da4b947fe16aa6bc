package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

type PresentationType struct {
	ID        int64           `gorm:"primaryKey"`
	Type      string          `gorm:"column:type;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

type Accommodation struct {
	ID        int64           `gorm:"primaryKey"`
	Nights    int             `gorm:"column:nights;not null"`
	Guests    int             `gorm:"column:guests;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

type PricingConfig struct {
	ID                   int64           `gorm:"primaryKey"`
	PresentationTypeID   int64           `gorm:"column:presentation_type_id;not null;index"`
	AccommodationID      *int64          `gorm:"column:accommodation_id;index"`
	ProcessingFeePercent decimal.Decimal `gorm:"column:processing_fee_percent;type:numeric(5,2);not null;default:0"`
	TotalPrice           decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
