package assignments

import (
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
	"github.com/google/uuid"
)

// AssignmentListFilters narrows an assignment listing.
type AssignmentListFilters struct {
	UserID  *uuid.UUID
	RouteID *uuid.UUID
	Status  *enums.AssignmentStatus
}

// ListAssignmentsInput is the station-scoped listing query.
type ListAssignmentsInput struct {
	StationID  uuid.UUID
	Filters    AssignmentListFilters
	Pagination pagination.Params
}

// AssignmentListResult is one page of assignments plus the next cursor.
type AssignmentListResult struct {
	Assignments []AssignmentDTO `json:"assignments"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}
