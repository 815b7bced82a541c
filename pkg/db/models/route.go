package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/AVGC-lgtm/SmartPatrol/pkg/db/types"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
)

// Route is an ordered sequence of checkpoints owned by a station.
// CheckpointIDs preserves the prescribed patrol order.
type Route struct {
	ID                    uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StationID             uuid.UUID            `gorm:"column:station_id;type:uuid;not null;index"`
	Name                  string               `gorm:"column:name;not null"`
	Description           *string              `gorm:"column:description"`
	CheckpointIDs         dbtypes.UUIDArray    `gorm:"type:uuid[];column:checkpoint_ids;not null;default:ARRAY[]::uuid[]"`
	Priority              *enums.RoutePriority `gorm:"column:priority;type:route_priority"`
	EstimatedDurationMins *int                 `gorm:"column:estimated_duration_mins"`
	IsActive              bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedBy             *uuid.UUID           `gorm:"column:created_by;type:uuid"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
