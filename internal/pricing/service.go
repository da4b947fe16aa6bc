package pricing

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/conference-payments/internal"
	pricingDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/pricing"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/frahmantamala/conference-payments/pkg/logger"
	"github.com/shopspring/decimal"
)

// RepositoryAPI is the catalog store of one vertical. Getters return (nil, nil) when absent.
type RepositoryAPI interface {
	GetPricingConfig(ctx context.Context, id int64) (*pricingDatamodel.PricingConfig, error)
	ListPricingConfigs(ctx context.Context) ([]*pricingDatamodel.PricingConfig, error)
	ListByPresentationType(ctx context.Context, presentationTypeID int64) ([]*pricingDatamodel.PricingConfig, error)
	ListByAccommodation(ctx context.Context, accommodationID int64) ([]*pricingDatamodel.PricingConfig, error)
	CreatePricingConfig(ctx context.Context, c *pricingDatamodel.PricingConfig) error
	SavePricingConfig(ctx context.Context, c *pricingDatamodel.PricingConfig) error

	GetPresentationType(ctx context.Context, id int64) (*pricingDatamodel.PresentationType, error)
	ListPresentationTypes(ctx context.Context) ([]*pricingDatamodel.PresentationType, error)
	CreatePresentationType(ctx context.Context, p *pricingDatamodel.PresentationType) error
	SavePresentationType(ctx context.Context, p *pricingDatamodel.PresentationType) error

	GetAccommodation(ctx context.Context, id int64) (*pricingDatamodel.Accommodation, error)
	ListAccommodations(ctx context.Context) ([]*pricingDatamodel.Accommodation, error)
	CreateAccommodation(ctx context.Context, a *pricingDatamodel.Accommodation) error
	SaveAccommodation(ctx context.Context, a *pricingDatamodel.Accommodation) error
	DeleteAccommodation(ctx context.Context, id int64) error

	// Transaction runs fn against a repository bound to a single database transaction.
	Transaction(ctx context.Context, fn func(repo RepositoryAPI) error) error
}

type Service struct {
	repos  map[vertical.Vertical]RepositoryAPI
	logger *slog.Logger
}

func NewService(repos map[vertical.Vertical]RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repos:  repos,
		logger: logger,
	}
}

func (s *Service) repo(v vertical.Vertical) (RepositoryAPI, error) {
	repo, ok := s.repos[v]
	if !ok {
		return nil, errors.ErrUnknownVertical
	}
	return repo, nil
}

// TotalPrice returns the authoritative amount for a pricing config.
func (s *Service) TotalPrice(ctx context.Context, v vertical.Vertical, pricingConfigID int64) (decimal.Decimal, error) {
	cfg, err := s.GetPricingConfig(ctx, v, pricingConfigID)
	if err != nil {
		return decimal.Zero, err
	}
	return cfg.TotalPrice, nil
}

func (s *Service) GetPricingConfig(ctx context.Context, v vertical.Vertical, id int64) (*PricingConfig, error) {
	repo, err := s.repo(v)
	if err != nil {
		return nil, err
	}

	cfg, err := repo.GetPricingConfig(ctx, id)
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to load pricing config", "vertical", v, "pricing_config_id", id, "error", err)
		return nil, errors.NewInternalError("failed to load pricing config", err)
	}
	if cfg == nil {
		return nil, errors.ErrPricingConfigNotFound
	}
	return FromDataModel(cfg), nil
}

func (s *Service) CreatePresentationType(ctx context.Context, v vertical.Vertical, req CreatePresentationTypeRequest) (*PresentationType, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	repo, err := s.repo(v)
	if err != nil {
		return nil, err
	}

	p := &pricingDatamodel.PresentationType{Type: req.Type, Price: req.Price.Round(2)}
	if err := repo.CreatePresentationType(ctx, p); err != nil {
		return nil, errors.NewInternalError("failed to create presentation type", err)
	}
	s.logger.Info("presentation type created", "vertical", v, "presentation_type_id", p.ID, "price", p.Price.StringFixed(2))
	return presentationFromDataModel(p), nil
}

func (s *Service) CreateAccommodation(ctx context.Context, v vertical.Vertical, req CreateAccommodationRequest) (*Accommodation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	repo, err := s.repo(v)
	if err != nil {
		return nil, err
	}

	a := &pricingDatamodel.Accommodation{Nights: req.Nights, Guests: req.Guests, Price: req.Price.Round(2)}
	if err := repo.CreateAccommodation(ctx, a); err != nil {
		return nil, errors.NewInternalError("failed to create accommodation", err)
	}
	s.logger.Info("accommodation created", "vertical", v, "accommodation_id", a.ID, "price", a.Price.StringFixed(2))
	return accommodationFromDataModel(a), nil
}

// CreatePricingConfig stores a config whose total is always computed server-side.
func (s *Service) CreatePricingConfig(ctx context.Context, v vertical.Vertical, req CreatePricingConfigRequest) (*PricingConfig, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	repo, err := s.repo(v)
	if err != nil {
		return nil, err
	}

	cfg := &pricingDatamodel.PricingConfig{
		PresentationTypeID:   req.PresentationTypeID,
		AccommodationID:      req.AccommodationID,
		ProcessingFeePercent: req.ProcessingFeePercent,
	}
	if err := s.recompute(ctx, repo, cfg); err != nil {
		return nil, err
	}
	if err := repo.CreatePricingConfig(ctx, cfg); err != nil {
		return nil, errors.NewInternalError("failed to create pricing config", err)
	}

	s.logger.Info("pricing config created", "vertical", v, "pricing_config_id", cfg.ID, "total_price", cfg.TotalPrice.StringFixed(2))
	return FromDataModel(cfg), nil
}

// UpdatePresentationTypePrice changes a component price and recomputes every config referencing it.
func (s *Service) UpdatePresentationTypePrice(ctx context.Context, v vertical.Vertical, id int64, req UpdatePriceRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	repo, err := s.repo(v)
	if err != nil {
		return 0, err
	}

	updated := 0
	err = repo.Transaction(ctx, func(tx RepositoryAPI) error {
		p, err := tx.GetPresentationType(ctx, id)
		if err != nil {
			return errors.NewInternalError("failed to load presentation type", err)
		}
		if p == nil {
			return errors.NewNotFoundError("Presentation type not found", errors.ErrCodePresentationTypeNotFound)
		}
		p.Price = req.Price.Round(2)
		if err := tx.SavePresentationType(ctx, p); err != nil {
			return errors.NewInternalError("failed to save presentation type", err)
		}

		configs, err := tx.ListByPresentationType(ctx, id)
		if err != nil {
			return errors.NewInternalError("failed to list pricing configs", err)
		}
		updated, err = s.recomputeAll(ctx, tx, configs)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("presentation type price updated", "vertical", v, "presentation_type_id", id, "updated_configs", updated)
	return updated, nil
}

func (s *Service) UpdateAccommodationPrice(ctx context.Context, v vertical.Vertical, id int64, req UpdatePriceRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	repo, err := s.repo(v)
	if err != nil {
		return 0, err
	}

	updated := 0
	err = repo.Transaction(ctx, func(tx RepositoryAPI) error {
		a, err := tx.GetAccommodation(ctx, id)
		if err != nil {
			return errors.NewInternalError("failed to load accommodation", err)
		}
		if a == nil {
			return errors.NewNotFoundError("Accommodation not found", errors.ErrCodeAccommodationNotFound)
		}
		a.Price = req.Price.Round(2)
		if err := tx.SaveAccommodation(ctx, a); err != nil {
			return errors.NewInternalError("failed to save accommodation", err)
		}

		configs, err := tx.ListByAccommodation(ctx, id)
		if err != nil {
			return errors.NewInternalError("failed to list pricing configs", err)
		}
		updated, err = s.recomputeAll(ctx, tx, configs)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("accommodation price updated", "vertical", v, "accommodation_id", id, "updated_configs", updated)
	return updated, nil
}

func (s *Service) ListPresentationTypes(ctx context.Context, v vertical.Vertical) ([]*PresentationType, error) {
	repo, err := s.repo(v)
	if err != nil {
		return nil, err
	}

	rows, err := repo.ListPresentationTypes(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to list presentation types", err)
	}
	out := make([]*PresentationType, 0, len(rows))
	for _, p := range rows {
		out = append(out, presentationFromDataModel(p))
	}
	return out, nil
}

func (s *Service) ListAccommodations(ctx context.Context, v vertical.Vertical) ([]*Accommodation, error) {
	repo, err := s.repo(v)
	if err != nil {
		return nil, err
	}

	rows, err := repo.ListAccommodations(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to list accommodations", err)
	}
	out := make([]*Accommodation, 0, len(rows))
	for _, a := range rows {
		out = append(out, accommodationFromDataModel(a))
	}
	return out, nil
}

// DeleteAccommodation removes a stay no pricing config refers to.
func (s *Service) DeleteAccommodation(ctx context.Context, v vertical.Vertical, id int64) error {
	repo, err := s.repo(v)
	if err != nil {
		return err
	}

	err = repo.Transaction(ctx, func(tx RepositoryAPI) error {
		a, err := tx.GetAccommodation(ctx, id)
		if err != nil {
			return errors.NewInternalError("failed to load accommodation", err)
		}
		if a == nil {
			return errors.NewNotFoundError("Accommodation not found", errors.ErrCodeAccommodationNotFound)
		}

		configs, err := tx.ListByAccommodation(ctx, id)
		if err != nil {
			return errors.NewInternalError("failed to list pricing configs", err)
		}
		if len(configs) > 0 {
			return errors.NewConflictError(
				fmt.Sprintf("Accommodation is used by %d pricing configs", len(configs)), errors.ErrCodeAccommodationInUse)
		}

		if err := tx.DeleteAccommodation(ctx, id); err != nil {
			return errors.NewInternalError("failed to delete accommodation", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("accommodation deleted", "vertical", v, "accommodation_id", id)
	return nil
}

// RecalculateAll recomputes the total of every config of a vertical.
func (s *Service) RecalculateAll(ctx context.Context, v vertical.Vertical) (int, error) {
	repo, err := s.repo(v)
	if err != nil {
		return 0, err
	}

	updated := 0
	err = repo.Transaction(ctx, func(tx RepositoryAPI) error {
		configs, err := tx.ListPricingConfigs(ctx)
		if err != nil {
			return errors.NewInternalError("failed to list pricing configs", err)
		}
		updated, err = s.recomputeAll(ctx, tx, configs)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("pricing configs recalculated", "vertical", v, "updated_configs", updated)
	return updated, nil
}

func (s *Service) recomputeAll(ctx context.Context, repo RepositoryAPI, configs []*pricingDatamodel.PricingConfig) (int, error) {
	for _, cfg := range configs {
		if err := s.recompute(ctx, repo, cfg); err != nil {
			return 0, err
		}
		if err := repo.SavePricingConfig(ctx, cfg); err != nil {
			return 0, errors.NewInternalError(fmt.Sprintf("failed to save pricing config %d", cfg.ID), err)
		}
	}
	return len(configs), nil
}

func (s *Service) recompute(ctx context.Context, repo RepositoryAPI, cfg *pricingDatamodel.PricingConfig) error {
	p, err := repo.GetPresentationType(ctx, cfg.PresentationTypeID)
	if err != nil {
		return errors.NewInternalError("failed to load presentation type", err)
	}
	if p == nil {
		return errors.NewNotFoundError("Presentation type not found", errors.ErrCodePresentationTypeNotFound)
	}

	var stay *decimal.Decimal
	if cfg.AccommodationID != nil {
		a, err := repo.GetAccommodation(ctx, *cfg.AccommodationID)
		if err != nil {
			return errors.NewInternalError("failed to load accommodation", err)
		}
		if a == nil {
			return errors.NewNotFoundError("Accommodation not found", errors.ErrCodeAccommodationNotFound)
		}
		stay = &a.Price
	}

	cfg.TotalPrice = CalculateTotal(p.Price, stay, cfg.ProcessingFeePercent)
	return nil
}
