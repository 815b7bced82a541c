package checkpoints

import (
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
	"github.com/google/uuid"
)

// CheckpointDTO represents the checkpoint payload returned to clients.
type CheckpointDTO struct {
	ID          uuid.UUID    `json:"id"`
	StationID   uuid.UUID    `json:"station_id"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Coordinates types.LatLng `json:"coordinates"`
	QRCodeID    uuid.UUID    `json:"qr_code_id"`
	ScanRadiusM *float64     `json:"scan_radius_m,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	IsActive    bool         `json:"is_active"`
	CreatedBy   *uuid.UUID   `json:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// QRCodeDTO carries a freshly issued QR payload for printing.
type QRCodeDTO struct {
	CheckpointID uuid.UUID `json:"checkpoint_id"`
	Payload      string    `json:"payload"`
	IssuedAt     time.Time `json:"issued_at"`
}

// FromModel converts the GORM model into the API DTO.
func FromModel(m *models.Checkpoint) *CheckpointDTO {
	if m == nil {
		return nil
	}
	return &CheckpointDTO{
		ID:          m.ID,
		StationID:   m.StationID,
		Name:        m.Name,
		Description: m.Description,
		Coordinates: m.Coordinates,
		QRCodeID:    m.QRCodeID,
		ScanRadiusM: m.ScanRadiusM,
		Tags:        m.Tags,
		IsActive:    m.IsActive,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
