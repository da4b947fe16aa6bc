package pricing

import (
	errors "github.com/frahmantamala/conference-payments/internal"
	"github.com/frahmantamala/conference-payments/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

type CreatePresentationTypeRequest struct {
	Type  string          `json:"type"`
	Price decimal.Decimal `json:"price"`
}

func (r *CreatePresentationTypeRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("type", r.Type).Required().MaxLength(100)
	v.Field("price", r.Price).NonNegativeDecimal(errors.ErrCodeInvalidAmount)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CreateAccommodationRequest struct {
	Nights int             `json:"nights"`
	Guests int             `json:"guests"`
	Price  decimal.Decimal `json:"price"`
}

func (r *CreateAccommodationRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("nights", int64(r.Nights)).MinInt(1, errors.ErrCodeValidationFailed)
	v.Field("guests", int64(r.Guests)).MinInt(1, errors.ErrCodeValidationFailed)
	v.Field("price", r.Price).NonNegativeDecimal(errors.ErrCodeInvalidAmount)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (r *UpdatePriceRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("price", r.Price).NonNegativeDecimal(errors.ErrCodeInvalidAmount)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CreatePricingConfigRequest struct {
	PresentationTypeID   int64           `json:"presentation_type_id"`
	AccommodationID      *int64          `json:"accommodation_id,omitempty"`
	ProcessingFeePercent decimal.Decimal `json:"processing_fee_percent"`
}

func (r *CreatePricingConfigRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("presentation_type_id", r.PresentationTypeID).Required()
	v.Field("processing_fee_percent", r.ProcessingFeePercent).NonNegativeDecimal(errors.ErrCodeInvalidAmount)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type PriceUpdateResponse struct {
	UpdatedConfigs int `json:"updated_configs"`
}

type RecalculateResponse struct {
	Vertical       string `json:"vertical"`
	UpdatedConfigs int    `json:"updated_configs"`
}

type PresentationTypeListResponse struct {
	Vertical          string              `json:"vertical"`
	Count             int                 `json:"count"`
	PresentationTypes []*PresentationType `json:"presentation_types"`
}

type AccommodationListResponse struct {
	Vertical       string           `json:"vertical"`
	Count          int              `json:"count"`
	Accommodations []*Accommodation `json:"accommodations"`
}
