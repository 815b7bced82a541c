package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// PatrolEventRow mirrors the patrol_events BigQuery schema. One row per
// assignment lifecycle transition.
type PatrolEventRow struct {
	EventID              string             `bigquery:"event_id"`
	EventType            string             `bigquery:"event_type"`
	OccurredAt           time.Time          `bigquery:"occurred_at"`
	StationID            *string            `bigquery:"station_id"`
	AssignmentID         *string            `bigquery:"assignment_id"`
	RouteID              *string            `bigquery:"route_id"`
	UserID               *string            `bigquery:"user_id"`
	AssignedByUserID     *string            `bigquery:"assigned_by_user_id"`
	Forced               *bool              `bigquery:"forced"`
	CancelReason         *string            `bigquery:"cancel_reason"`
	CompletedCheckpoints *int64             `bigquery:"completed_checkpoints"`
	TotalCheckpoints     *int64             `bigquery:"total_checkpoints"`
	Payload              cbigquery.NullJSON `bigquery:"payload"`
}

// ScanFactRow mirrors the scan_facts BigQuery schema. One row per verified
// checkpoint scan.
type ScanFactRow struct {
	EventID              string             `bigquery:"event_id"`
	OccurredAt           time.Time          `bigquery:"occurred_at"`
	ScanID               string             `bigquery:"scan_id"`
	AssignmentID         string             `bigquery:"assignment_id"`
	CheckpointID         string             `bigquery:"checkpoint_id"`
	RouteID              *string            `bigquery:"route_id"`
	UserID               *string            `bigquery:"user_id"`
	StationID            *string            `bigquery:"station_id"`
	ScannedAt            time.Time          `bigquery:"scanned_at"`
	DistanceM            float64            `bigquery:"distance_m"`
	WithinRadius         bool               `bigquery:"within_radius"`
	CompletedCheckpoints *int64             `bigquery:"completed_checkpoints"`
	TotalCheckpoints     *int64             `bigquery:"total_checkpoints"`
	Payload              cbigquery.NullJSON `bigquery:"payload"`
}
