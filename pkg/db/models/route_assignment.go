package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/AVGC-lgtm/SmartPatrol/pkg/db/types"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
)

// RouteAssignment links an officer to a route for one patrol run.
// CompletedCheckpointIDs only ever grows; terminal statuses are frozen.
//
// Two partial unique indexes back the concurrency rules (see migrations):
// ux_route_assignments_active_route on (route_id) and
// ux_route_assignments_active_user_route on (user_id, route_id), both
// filtered to active, non-deleted rows.
type RouteAssignment struct {
	ID                     uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StationID              uuid.UUID              `gorm:"column:station_id;type:uuid;not null;index"`
	RouteID                uuid.UUID              `gorm:"column:route_id;type:uuid;not null;index"`
	UserID                 uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	AssignedByUserID       *uuid.UUID             `gorm:"column:assigned_by_user_id;type:uuid"`
	Status                 enums.AssignmentStatus `gorm:"column:status;type:assignment_status;not null;default:'assigned'"`
	CompletedCheckpointIDs dbtypes.UUIDArray      `gorm:"type:uuid[];column:completed_checkpoint_ids;not null;default:ARRAY[]::uuid[]"`
	StartDate              time.Time              `gorm:"column:start_date;not null"`
	EndDate                *time.Time             `gorm:"column:end_date"`
	Notes                  *string                `gorm:"column:notes"`
	CancelReason           *string                `gorm:"column:cancel_reason"`
	IsActive               bool                   `gorm:"column:is_active;not null;default:true"`
	CreatedAt              time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
