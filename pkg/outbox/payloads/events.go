package payloads

import (
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/google/uuid"
)

// AssignmentCreatedEvent signals a route handed to an officer.
type AssignmentCreatedEvent struct {
	AssignmentID     uuid.UUID  `json:"assignment_id"`
	RouteID          uuid.UUID  `json:"route_id"`
	UserID           uuid.UUID  `json:"user_id"`
	StationID        uuid.UUID  `json:"station_id"`
	AssignedByUserID *uuid.UUID `json:"assigned_by_user_id,omitempty"`
	StartDate        time.Time  `json:"start_date"`
	CheckpointCount  int        `json:"checkpoint_count"`
}

// AssignmentStartedEvent is emitted when the officer begins the patrol run.
type AssignmentStartedEvent struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	RouteID      uuid.UUID `json:"route_id"`
	UserID       uuid.UUID `json:"user_id"`
	StationID    uuid.UUID `json:"station_id"`
	StartedAt    time.Time `json:"started_at"`
}

// AssignmentCompletedEvent surfaces the final tally when a run completes.
type AssignmentCompletedEvent struct {
	AssignmentID         uuid.UUID `json:"assignment_id"`
	RouteID              uuid.UUID `json:"route_id"`
	UserID               uuid.UUID `json:"user_id"`
	StationID            uuid.UUID `json:"station_id"`
	CompletedAt          time.Time `json:"completed_at"`
	Forced               bool      `json:"forced"`
	CompletedCheckpoints int       `json:"completed_checkpoints"`
	TotalCheckpoints     int       `json:"total_checkpoints"`
}

// AssignmentCancelledEvent is emitted whenever a run is cancelled before completion.
type AssignmentCancelledEvent struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	RouteID      uuid.UUID `json:"route_id"`
	UserID       uuid.UUID `json:"user_id"`
	StationID    uuid.UUID `json:"station_id"`
	CancelledAt  time.Time `json:"cancelled_at"`
	Reason       string    `json:"reason,omitempty"`
}

// AssignmentOverdueEvent flags a run that has been live past the configured window.
type AssignmentOverdueEvent struct {
	AssignmentID uuid.UUID              `json:"assignment_id"`
	RouteID      uuid.UUID              `json:"route_id"`
	UserID       uuid.UUID              `json:"user_id"`
	StationID    uuid.UUID              `json:"station_id"`
	Status       enums.AssignmentStatus `json:"status"`
	StartDate    time.Time              `json:"start_date"`
	DetectedAt   time.Time              `json:"detected_at"`
}

// CheckpointScannedEvent records one verified checkpoint scan.
type CheckpointScannedEvent struct {
	ScanID               uuid.UUID `json:"scan_id"`
	AssignmentID         uuid.UUID `json:"assignment_id"`
	CheckpointID         uuid.UUID `json:"checkpoint_id"`
	RouteID              uuid.UUID `json:"route_id"`
	UserID               uuid.UUID `json:"user_id"`
	StationID            uuid.UUID `json:"station_id"`
	ScannedAt            time.Time `json:"scanned_at"`
	DistanceM            float64   `json:"distance_m"`
	WithinRadius         bool      `json:"within_radius"`
	CompletedCheckpoints int       `json:"completed_checkpoints"`
	TotalCheckpoints     int       `json:"total_checkpoints"`
}

// MediaUploadedEvent is emitted once an upload is finalized against GCS.
type MediaUploadedEvent struct {
	MediaID   uuid.UUID       `json:"media_id"`
	StationID uuid.UUID       `json:"station_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      enums.MediaKind `json:"kind"`
	GCSKey    string          `json:"gcs_key"`
	SizeBytes int64           `json:"size_bytes"`
}
