package checkpoints

import (
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
	"github.com/google/uuid"
)

// CheckpointListFilters describe the supported filter knobs for the list endpoint.
type CheckpointListFilters struct {
	IsActive *bool  `json:"is_active,omitempty"`
	Query    string `json:"q,omitempty"`
}

// ListCheckpointsInput captures the inputs needed to paginate a station's checkpoints.
type ListCheckpointsInput struct {
	StationID  uuid.UUID
	Filters    CheckpointListFilters
	Pagination pagination.Params
}

// CheckpointListResult is one page of checkpoints plus the continuation cursor.
type CheckpointListResult struct {
	Checkpoints []CheckpointDTO `json:"checkpoints"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}
