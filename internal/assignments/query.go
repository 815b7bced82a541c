package assignments

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recommended next actions, derived purely from status and pending count.
const (
	NextActionStartRoute         = "start_route"
	NextActionScanNextCheckpoint = "scan_next_checkpoint"
	NextActionCompleteRoute      = "complete_route"
	NextActionNone               = "none"
)

// CheckpointProgressDTO is one route checkpoint with its scan state.
// Position is the 1-based slot in the route's prescribed order.
type CheckpointProgressDTO struct {
	CheckpointID uuid.UUID `json:"checkpoint_id"`
	Name         string    `json:"name"`
	Position     int       `json:"position"`
	Completed    bool      `json:"completed"`
	IsNext       bool      `json:"is_next"`
}

// AssignmentProgressDTO is the composed read model for one assignment.
type AssignmentProgressDTO struct {
	AssignmentID         uuid.UUID               `json:"assignment_id"`
	RouteID              uuid.UUID               `json:"route_id"`
	UserID               uuid.UUID               `json:"user_id"`
	Status               enums.AssignmentStatus  `json:"status"`
	TotalCheckpoints     int                     `json:"total_checkpoints"`
	CompletedCheckpoints int                     `json:"completed_checkpoints"`
	CompletionPercent    float64                 `json:"completion_percent"`
	Checkpoints          []CheckpointProgressDTO `json:"checkpoints"`
	NextCheckpointID     *uuid.UUID              `json:"next_checkpoint_id,omitempty"`
	NextAction           string                  `json:"next_action"`
}

type routeCatalog interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Route, error)
}

type checkpointCatalog interface {
	FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Checkpoint, error)
}

// QueryService is the read side: listings and derived progress. It never
// mutates state.
type QueryService interface {
	Get(ctx context.Context, stationID, assignmentID uuid.UUID) (*AssignmentDTO, error)
	List(ctx context.Context, input ListAssignmentsInput) (*AssignmentListResult, error)
	Progress(ctx context.Context, stationID, assignmentID uuid.UUID) (*AssignmentProgressDTO, error)
}

type queryService struct {
	repo        Repository
	routes      routeCatalog
	checkpoints checkpointCatalog
}

// NewQueryService builds the assignment read-side service.
func NewQueryService(repo Repository, routes routeCatalog, checkpoints checkpointCatalog) (QueryService, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if routes == nil {
		return nil, fmt.Errorf("route catalog required")
	}
	if checkpoints == nil {
		return nil, fmt.Errorf("checkpoint catalog required")
	}
	return &queryService{repo: repo, routes: routes, checkpoints: checkpoints}, nil
}

func (q *queryService) Get(ctx context.Context, stationID, assignmentID uuid.UUID) (*AssignmentDTO, error) {
	assignment, err := loadScopedAssignment(ctx, q.repo, stationID, assignmentID)
	if err != nil {
		return nil, err
	}
	return FromModel(assignment), nil
}

func (q *queryService) List(ctx context.Context, input ListAssignmentsInput) (*AssignmentListResult, error) {
	rows, nextCursor, err := q.repo.List(ctx, input)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list assignments")
	}

	dtos := make([]AssignmentDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return &AssignmentListResult{Assignments: dtos, NextCursor: nextCursor}, nil
}

func (q *queryService) Progress(ctx context.Context, stationID, assignmentID uuid.UUID) (*AssignmentProgressDTO, error) {
	assignment, err := loadScopedAssignment(ctx, q.repo, stationID, assignmentID)
	if err != nil {
		return nil, err
	}

	route, err := q.routes.FindByID(ctx, assignment.RouteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeRouteNotFound, "route not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
	}

	names, err := q.checkpointNames(ctx, route.CheckpointIDs)
	if err != nil {
		return nil, err
	}

	completedSet := make(map[uuid.UUID]struct{}, len(assignment.CompletedCheckpointIDs))
	for _, id := range assignment.CompletedCheckpointIDs {
		completedSet[id] = struct{}{}
	}

	total := len(route.CheckpointIDs)
	done := 0
	var nextID *uuid.UUID
	checkpoints := make([]CheckpointProgressDTO, 0, total)
	for i, id := range route.CheckpointIDs {
		_, completed := completedSet[id]
		entry := CheckpointProgressDTO{
			CheckpointID: id,
			Name:         names[id],
			Position:     i + 1,
			Completed:    completed,
		}
		if completed {
			done++
		} else if nextID == nil && !assignment.Status.IsTerminal() {
			pointer := id
			nextID = &pointer
			entry.IsNext = true
		}
		checkpoints = append(checkpoints, entry)
	}

	percent := 0.0
	if total > 0 {
		percent = math.Round(float64(done)/float64(total)*1000) / 10
	}

	return &AssignmentProgressDTO{
		AssignmentID:         assignment.ID,
		RouteID:              assignment.RouteID,
		UserID:               assignment.UserID,
		Status:               assignment.Status,
		TotalCheckpoints:     total,
		CompletedCheckpoints: done,
		CompletionPercent:    percent,
		Checkpoints:          checkpoints,
		NextCheckpointID:     nextID,
		NextAction:           nextAction(assignment.Status, total-done),
	}, nil
}

func (q *queryService) checkpointNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := q.checkpoints.FindAllByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route checkpoints")
	}
	names := make(map[uuid.UUID]string, len(rows))
	for i := range rows {
		names[rows[i].ID] = rows[i].Name
	}
	return names, nil
}

func nextAction(status enums.AssignmentStatus, pending int) string {
	switch status {
	case enums.AssignmentStatusAssigned:
		return NextActionStartRoute
	case enums.AssignmentStatusInProgress:
		if pending > 0 {
			return NextActionScanNextCheckpoint
		}
		return NextActionCompleteRoute
	default:
		return NextActionNone
	}
}
