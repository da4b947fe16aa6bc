package postgres

import (
	"context"
	stderrors "errors"

	pricingDatamodel "github.com/frahmantamala/conference-payments/internal/core/datamodel/pricing"
	"github.com/frahmantamala/conference-payments/internal/pricing"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"gorm.io/gorm"
)

func PresentationTypesTable(v vertical.Vertical) string { return v.String() + "_presentation_types" }
func AccommodationsTable(v vertical.Vertical) string    { return v.String() + "_accommodations" }
func PricingConfigsTable(v vertical.Vertical) string    { return v.String() + "_pricing_configs" }

// PricingRepository reads and writes the catalog tables of a single vertical.
type PricingRepository struct {
	db       *gorm.DB
	vertical vertical.Vertical
}

func NewPricingRepository(db *gorm.DB, v vertical.Vertical) pricing.RepositoryAPI {
	return &PricingRepository{db: db, vertical: v}
}

// NewPricingRepositories builds one repository per vertical.
func NewPricingRepositories(db *gorm.DB) map[vertical.Vertical]pricing.RepositoryAPI {
	repos := make(map[vertical.Vertical]pricing.RepositoryAPI)
	for _, v := range vertical.All() {
		repos[v] = NewPricingRepository(db, v)
	}
	return repos
}

func (r *PricingRepository) configs(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(PricingConfigsTable(r.vertical))
}

func (r *PricingRepository) presentations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(PresentationTypesTable(r.vertical))
}

func (r *PricingRepository) accommodations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(AccommodationsTable(r.vertical))
}

func (r *PricingRepository) GetPricingConfig(ctx context.Context, id int64) (*pricingDatamodel.PricingConfig, error) {
	var cfg pricingDatamodel.PricingConfig
	err := r.configs(ctx).Where("id = ?", id).First(&cfg).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *PricingRepository) ListPricingConfigs(ctx context.Context) ([]*pricingDatamodel.PricingConfig, error) {
	var configs []*pricingDatamodel.PricingConfig
	err := r.configs(ctx).Order("id ASC").Find(&configs).Error
	return configs, err
}

func (r *PricingRepository) ListByPresentationType(ctx context.Context, presentationTypeID int64) ([]*pricingDatamodel.PricingConfig, error) {
	var configs []*pricingDatamodel.PricingConfig
	err := r.configs(ctx).Where("presentation_type_id = ?", presentationTypeID).Order("id ASC").Find(&configs).Error
	return configs, err
}

func (r *PricingRepository) ListByAccommodation(ctx context.Context, accommodationID int64) ([]*pricingDatamodel.PricingConfig, error) {
	var configs []*pricingDatamodel.PricingConfig
	err := r.configs(ctx).Where("accommodation_id = ?", accommodationID).Order("id ASC").Find(&configs).Error
	return configs, err
}

func (r *PricingRepository) CreatePricingConfig(ctx context.Context, c *pricingDatamodel.PricingConfig) error {
	return r.configs(ctx).Create(c).Error
}

func (r *PricingRepository) SavePricingConfig(ctx context.Context, c *pricingDatamodel.PricingConfig) error {
	return r.configs(ctx).Save(c).Error
}

func (r *PricingRepository) GetPresentationType(ctx context.Context, id int64) (*pricingDatamodel.PresentationType, error) {
	var p pricingDatamodel.PresentationType
	err := r.presentations(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PricingRepository) ListPresentationTypes(ctx context.Context) ([]*pricingDatamodel.PresentationType, error) {
	var rows []*pricingDatamodel.PresentationType
	err := r.presentations(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *PricingRepository) CreatePresentationType(ctx context.Context, p *pricingDatamodel.PresentationType) error {
	return r.presentations(ctx).Create(p).Error
}

func (r *PricingRepository) SavePresentationType(ctx context.Context, p *pricingDatamodel.PresentationType) error {
	return r.presentations(ctx).Save(p).Error
}

func (r *PricingRepository) GetAccommodation(ctx context.Context, id int64) (*pricingDatamodel.Accommodation, error) {
	var a pricingDatamodel.Accommodation
	err := r.accommodations(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *PricingRepository) ListAccommodations(ctx context.Context) ([]*pricingDatamodel.Accommodation, error) {
	var rows []*pricingDatamodel.Accommodation
	err := r.accommodations(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *PricingRepository) CreateAccommodation(ctx context.Context, a *pricingDatamodel.Accommodation) error {
	return r.accommodations(ctx).Create(a).Error
}

func (r *PricingRepository) SaveAccommodation(ctx context.Context, a *pricingDatamodel.Accommodation) error {
	return r.accommodations(ctx).Save(a).Error
}

func (r *PricingRepository) DeleteAccommodation(ctx context.Context, id int64) error {
	return r.accommodations(ctx).Where("id = ?", id).Delete(&pricingDatamodel.Accommodation{}).Error
}

func (r *PricingRepository) Transaction(ctx context.Context, fn func(repo pricing.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PricingRepository{db: tx, vertical: r.vertical})
	})
}
