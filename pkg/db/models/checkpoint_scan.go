package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

// CheckpointScan is the append-only audit row for one verified scan.
// Rows are never updated except to scrub media URIs after object deletion.
type CheckpointScan struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StationID         uuid.UUID      `gorm:"column:station_id;type:uuid;not null;index"`
	UserID            uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	CheckpointID      uuid.UUID      `gorm:"column:checkpoint_id;type:uuid;not null;uniqueIndex:ux_checkpoint_scans_assignment_checkpoint"`
	RouteID           uuid.UUID      `gorm:"column:route_id;type:uuid;not null"`
	RouteAssignmentID uuid.UUID      `gorm:"column:route_assignment_id;type:uuid;not null;uniqueIndex:ux_checkpoint_scans_assignment_checkpoint"`
	ScannedAt         time.Time      `gorm:"column:scanned_at;not null"`
	Position          types.LatLng   `gorm:"column:position;type:text;not null"`
	DistanceM         float64        `gorm:"column:distance_m;not null"`
	WithinRadius      bool           `gorm:"column:within_radius;not null;default:true"`
	Notes             *string        `gorm:"column:notes"`
	Images            pq.StringArray `gorm:"column:images;type:text[]"`
	Videos            pq.StringArray `gorm:"column:videos;type:text[]"`
	Audios            pq.StringArray `gorm:"column:audios;type:text[]"`
	Metadata          types.JSONMap  `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
}
