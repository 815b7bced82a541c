package routes

import (
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
	"github.com/google/uuid"
)

// RouteListFilters describe the supported filter knobs for the list endpoint.
type RouteListFilters struct {
	IsActive *bool                `json:"is_active,omitempty"`
	Priority *enums.RoutePriority `json:"priority,omitempty"`
	Query    string               `json:"q,omitempty"`
}

// ListRoutesInput captures the inputs needed to paginate a station's routes.
type ListRoutesInput struct {
	StationID  uuid.UUID
	Filters    RouteListFilters
	Pagination pagination.Params
}

// RouteListResult is one page of routes plus the continuation cursor.
type RouteListResult struct {
	Routes     []RouteDTO `json:"routes"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
