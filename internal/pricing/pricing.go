package pricing

import (
	"time"

	pricingDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/pricing"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type PresentationType struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Accommodation struct {
	ID        int64           `json:"id"`
	Nights    int             `json:"nights"`
	Guests    int             `json:"guests"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PricingConfig is the server-owned source of the amount charged at checkout.
type PricingConfig struct {
	ID                   int64           `json:"id"`
	PresentationTypeID   int64           `json:"presentation_type_id"`
	AccommodationID      *int64          `json:"accommodation_id,omitempty"`
	ProcessingFeePercent decimal.Decimal `json:"processing_fee_percent"`
	TotalPrice           decimal.Decimal `json:"total_price"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// CalculateTotal derives a config total from its components:
// (presentation + accommodation) * (1 + fee/100), rounded to cents.
// accommodation may be nil when the config has no stay attached.
func CalculateTotal(presentation decimal.Decimal, accommodation *decimal.Decimal, feePercent decimal.Decimal) decimal.Decimal {
	subtotal := presentation
	if accommodation != nil {
		subtotal = subtotal.Add(*accommodation)
	}
	multiplier := decimal.NewFromInt(1).Add(feePercent.Div(hundred))
	return subtotal.Mul(multiplier).Round(2)
}

// ToMinorUnits converts a decimal amount to integer cents for the payment provider.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(hundred)
}

func ToDataModel(c *PricingConfig) *pricingDatamodel.PricingConfig {
	return &pricingDatamodel.PricingConfig{
		ID:                   c.ID,
		PresentationTypeID:   c.PresentationTypeID,
		AccommodationID:      c.AccommodationID,
		ProcessingFeePercent: c.ProcessingFeePercent,
		TotalPrice:           c.TotalPrice,
		UpdatedAt:            c.UpdatedAt,
	}
}

func FromDataModel(c *pricingDatamodel.PricingConfig) *PricingConfig {
	return &PricingConfig{
		ID:                   c.ID,
		PresentationTypeID:   c.PresentationTypeID,
		AccommodationID:      c.AccommodationID,
		ProcessingFeePercent: c.ProcessingFeePercent,
		TotalPrice:           c.TotalPrice,
		UpdatedAt:            c.UpdatedAt,
	}
}

func presentationFromDataModel(p *pricingDatamodel.PresentationType) *PresentationType {
	return &PresentationType{ID: p.ID, Type: p.Type, Price: p.Price, UpdatedAt: p.UpdatedAt}
}

func accommodationFromDataModel(a *pricingDatamodel.Accommodation) *Accommodation {
	return &Accommodation{ID: a.ID, Nights: a.Nights, Guests: a.Guests, Price: a.Price, UpdatedAt: a.UpdatedAt}
}
