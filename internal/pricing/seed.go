package pricing

import (
	"context"
	"fmt"

	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/shopspring/decimal"
)

// CatalogSeed is the starter catalog written into an empty vertical.
type CatalogSeed struct {
	PresentationTypes    []CreatePresentationTypeRequest
	Accommodations       []CreateAccommodationRequest
	ProcessingFeePercent decimal.Decimal
}

// DefaultCatalog has one config per presentation type without accommodation
// and one per presentation and accommodation pair.
func DefaultCatalog() CatalogSeed {
	return CatalogSeed{
		PresentationTypes: []CreatePresentationTypeRequest{
			{Type: "Speaker", Price: decimal.RequireFromString("299.00")},
			{Type: "Poster", Price: decimal.RequireFromString("249.00")},
			{Type: "Listener", Price: decimal.RequireFromString("199.00")},
			{Type: "Student", Price: decimal.RequireFromString("149.00")},
		},
		Accommodations: []CreateAccommodationRequest{
			{Nights: 2, Guests: 1, Price: decimal.RequireFromString("220.00")},
			{Nights: 3, Guests: 1, Price: decimal.RequireFromString("320.00")},
			{Nights: 3, Guests: 2, Price: decimal.RequireFromString("420.00")},
		},
		ProcessingFeePercent: decimal.RequireFromString("3.00"),
	}
}

// Seed writes the catalog into v unless it already has pricing configs.
// It returns the number of configs created.
func (s *Service) Seed(ctx context.Context, v vertical.Vertical, seed CatalogSeed) (int, error) {
	repo, err := s.repo(v)
	if err != nil {
		return 0, err
	}
	existing, err := repo.ListPricingConfigs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pricing configs: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Info("catalog already present, skipping seed", "vertical", v, "pricing_configs", len(existing))
		return 0, nil
	}

	accommodations := make([]int64, 0, len(seed.Accommodations))
	for _, req := range seed.Accommodations {
		a, err := s.CreateAccommodation(ctx, v, req)
		if err != nil {
			return 0, err
		}
		accommodations = append(accommodations, a.ID)
	}

	created := 0
	for _, req := range seed.PresentationTypes {
		p, err := s.CreatePresentationType(ctx, v, req)
		if err != nil {
			return created, err
		}

		options := []*int64{nil}
		for i := range accommodations {
			options = append(options, &accommodations[i])
		}
		for _, accommodationID := range options {
			_, err := s.CreatePricingConfig(ctx, v, CreatePricingConfigRequest{
				PresentationTypeID:   p.ID,
				AccommodationID:      accommodationID,
				ProcessingFeePercent: seed.ProcessingFeePercent,
			})
			if err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}
