package stations

import (
	"context"
	"fmt"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles station persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to station operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new station row.
func (r *Repository) Create(ctx context.Context, dto CreateStationDTO) (*models.Station, error) {
	station := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(station).Error; err != nil {
		return nil, err
	}
	return station, nil
}

// FindByID loads a station by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Station, error) {
	var station models.Station
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&station).Error; err != nil {
		return nil, err
	}
	return &station, nil
}

// FindByCode loads a station by its unique code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Station, error) {
	var station models.Station
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&station).Error; err != nil {
		return nil, err
	}
	return &station, nil
}

// Update saves the provided station.
func (r *Repository) Update(ctx context.Context, station *models.Station) error {
	if station == nil {
		return fmt.Errorf("station is required")
	}
	return r.db.WithContext(ctx).Save(station).Error
}

// CreateWithTx persists a new station using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, dto CreateStationDTO) (*models.Station, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	station := dto.ToModel()
	if err := tx.Create(station).Error; err != nil {
		return nil, err
	}
	return station, nil
}

// FindByIDWithTx loads a station using the provided transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Station, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var station models.Station
	if err := tx.First(&station, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &station, nil
}
