package scans

import (
	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
)

// ListScansInput pages through one assignment's scan audit trail.
type ListScansInput struct {
	StationID    uuid.UUID
	AssignmentID uuid.UUID
	Pagination   pagination.Params
}

// ScanListResult is one page of scans plus the next cursor.
type ScanListResult struct {
	Scans      []ScanDTO `json:"scans"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
