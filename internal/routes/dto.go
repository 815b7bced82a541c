package routes

import (
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/google/uuid"
)

// RouteDTO represents the route payload returned to clients. CheckpointIDs
// preserves the prescribed patrol order.
type RouteDTO struct {
	ID                    uuid.UUID            `json:"id"`
	StationID             uuid.UUID            `json:"station_id"`
	Name                  string               `json:"name"`
	Description           *string              `json:"description,omitempty"`
	CheckpointIDs         []uuid.UUID          `json:"checkpoint_ids"`
	Priority              *enums.RoutePriority `json:"priority,omitempty"`
	EstimatedDurationMins *int                 `json:"estimated_duration_mins,omitempty"`
	IsActive              bool                 `json:"is_active"`
	CreatedBy             *uuid.UUID           `json:"created_by,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// FromModel converts the GORM model into the API DTO.
func FromModel(m *models.Route) *RouteDTO {
	if m == nil {
		return nil
	}
	return &RouteDTO{
		ID:                    m.ID,
		StationID:             m.StationID,
		Name:                  m.Name,
		Description:           m.Description,
		CheckpointIDs:         m.CheckpointIDs,
		Priority:              m.Priority,
		EstimatedDurationMins: m.EstimatedDurationMins,
		IsActive:              m.IsActive,
		CreatedBy:             m.CreatedBy,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}
