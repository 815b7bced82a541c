package media

import (
	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
)

// ListMediaInput carries an authenticated list request. Officers only see
// their own uploads; supervisors and admins see the whole station.
type ListMediaInput struct {
	StationID   uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.SystemRole
	Kind        *enums.MediaKind
	Status      *enums.MediaStatus
	Pagination  pagination.Params
}

// MediaListQuery is the repository-level filter derived from a list request.
type MediaListQuery struct {
	StationID  uuid.UUID
	UserID     uuid.UUID
	Kind       *enums.MediaKind
	Status     *enums.MediaStatus
	Pagination pagination.Params
}
