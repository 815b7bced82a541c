package stations

import (
	"time"

	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
)

// StationDTO exposes safe tenant data in API responses.
type StationDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateStationDTO holds creation-time data for a new station.
type CreateStationDTO struct {
	Name     string
	Code     string
	Address  *string
	Phone    *string
	IsActive *bool
}

// FromModel maps the persisted station into a DTO.
func FromModel(m *models.Station) *StationDTO {
	if m == nil {
		return nil
	}

	return &StationDTO{
		ID:        m.ID,
		Name:      m.Name,
		Code:      m.Code,
		Address:   m.Address,
		Phone:     m.Phone,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ToModel prepares the GORM model from creation DTO, supplying defaults.
func (c CreateStationDTO) ToModel() *models.Station {
	model := &models.Station{
		Name:     c.Name,
		Code:     c.Code,
		Address:  c.Address,
		Phone:    c.Phone,
		IsActive: true,
	}

	if c.IsActive != nil {
		model.IsActive = *c.IsActive
	}

	return model
}
