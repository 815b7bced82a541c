package scans

import (
	"time"

	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

// ScanDTO is the API shape of one checkpoint scan audit row.
type ScanDTO struct {
	ID                uuid.UUID      `json:"id"`
	StationID         uuid.UUID      `json:"station_id"`
	UserID            uuid.UUID      `json:"user_id"`
	CheckpointID      uuid.UUID      `json:"checkpoint_id"`
	RouteID           uuid.UUID      `json:"route_id"`
	RouteAssignmentID uuid.UUID      `json:"route_assignment_id"`
	ScannedAt         time.Time      `json:"scanned_at"`
	Position          types.LatLng   `json:"position"`
	DistanceM         float64        `json:"distance_m"`
	WithinRadius      bool           `json:"within_radius"`
	Notes             *string        `json:"notes,omitempty"`
	Images            []string       `json:"images,omitempty"`
	Videos            []string       `json:"videos,omitempty"`
	Audios            []string       `json:"audios,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// FromModel maps a persisted scan row to its DTO.
func FromModel(scan *models.CheckpointScan) *ScanDTO {
	if scan == nil {
		return nil
	}
	return &ScanDTO{
		ID:                scan.ID,
		StationID:         scan.StationID,
		UserID:            scan.UserID,
		CheckpointID:      scan.CheckpointID,
		RouteID:           scan.RouteID,
		RouteAssignmentID: scan.RouteAssignmentID,
		ScannedAt:         scan.ScannedAt,
		Position:          scan.Position,
		DistanceM:         scan.DistanceM,
		WithinRadius:      scan.WithinRadius,
		Notes:             scan.Notes,
		Images:            scan.Images,
		Videos:            scan.Videos,
		Audios:            scan.Audios,
		Metadata:          scan.Metadata,
		CreatedAt:         scan.CreatedAt,
	}
}

// ScanResult is the response of a verified scan: the audit row plus the
// assignment progress it produced.
type ScanResult struct {
	Scan                   ScanDTO                `json:"scan"`
	AssignmentStatus       enums.AssignmentStatus `json:"assignment_status"`
	TotalCheckpoints       int                    `json:"total_checkpoints"`
	CompletedCheckpoints   int                    `json:"completed_checkpoints"`
	CompletionPercent      float64                `json:"completion_percent"`
	RemainingCheckpointIDs []uuid.UUID            `json:"remaining_checkpoint_ids"`
	AutoCompleted          bool                   `json:"auto_completed"`
}

// ScanEvidence is the media resolved for one scan, grouped by kind.
type ScanEvidence struct {
	Images []string
	Videos []string
	Audios []string
}
