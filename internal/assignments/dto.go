package assignments

import (
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/google/uuid"
)

// AssignmentDTO is the API-facing projection of a route assignment.
type AssignmentDTO struct {
	ID                     uuid.UUID              `json:"id"`
	StationID              uuid.UUID              `json:"station_id"`
	RouteID                uuid.UUID              `json:"route_id"`
	UserID                 uuid.UUID              `json:"user_id"`
	AssignedByUserID       *uuid.UUID             `json:"assigned_by_user_id,omitempty"`
	Status                 enums.AssignmentStatus `json:"status"`
	CompletedCheckpointIDs []uuid.UUID            `json:"completed_checkpoint_ids"`
	StartDate              time.Time              `json:"start_date"`
	EndDate                *time.Time             `json:"end_date,omitempty"`
	Notes                  *string                `json:"notes,omitempty"`
	CancelReason           *string                `json:"cancel_reason,omitempty"`
	IsActive               bool                   `json:"is_active"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// FromModel converts a persistence row into the transport DTO.
func FromModel(assignment *models.RouteAssignment) *AssignmentDTO {
	if assignment == nil {
		return nil
	}
	return &AssignmentDTO{
		ID:                     assignment.ID,
		StationID:              assignment.StationID,
		RouteID:                assignment.RouteID,
		UserID:                 assignment.UserID,
		AssignedByUserID:       assignment.AssignedByUserID,
		Status:                 assignment.Status,
		CompletedCheckpointIDs: assignment.CompletedCheckpointIDs,
		StartDate:              assignment.StartDate,
		EndDate:                assignment.EndDate,
		Notes:                  assignment.Notes,
		CancelReason:           assignment.CancelReason,
		IsActive:               assignment.IsActive,
		CreatedAt:              assignment.CreatedAt,
		UpdatedAt:              assignment.UpdatedAt,
	}
}
