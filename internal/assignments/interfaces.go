package assignments

import (
	"context"
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for route assignments.
//
// TransitionStatus and SoftDelete are conditional updates: the status guard
// lives in the WHERE clause so concurrent transitions race on RowsAffected
// instead of on a stale read.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.RouteAssignment) (*models.RouteAssignment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.RouteAssignment, error)
	FindActiveByRoute(ctx context.Context, routeID uuid.UUID) (*models.RouteAssignment, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	HasLiveForRoute(ctx context.Context, routeID uuid.UUID) (bool, error)
	AppendCompletedCheckpoint(ctx context.Context, assignmentID, checkpointID uuid.UUID) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.AssignmentStatus, updates map[string]any) (int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, query ListAssignmentsInput) ([]models.RouteAssignment, string, error)
	FindStaleAssigned(ctx context.Context, before time.Time) ([]models.RouteAssignment, error)
}
