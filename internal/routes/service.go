package routes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	dbtypes "github.com/AVGC-lgtm/SmartPatrol/pkg/db/types"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minRouteCheckpoints             = 1
	defaultMaxRouteCheckpoints      = 50
	defaultMaxEstimatedDurationMins = 1440
)

// Service exposes station route management operations.
type Service interface {
	Create(ctx context.Context, stationID, createdBy uuid.UUID, input CreateRouteInput) (*RouteDTO, error)
	Get(ctx context.Context, stationID, routeID uuid.UUID) (*RouteDTO, error)
	List(ctx context.Context, input ListRoutesInput) (*RouteListResult, error)
	Update(ctx context.Context, stationID, routeID uuid.UUID, input UpdateRouteInput) (*RouteDTO, error)
	Deactivate(ctx context.Context, stationID, routeID uuid.UUID) error
}

// CreateRouteInput holds the validated payload to create a route.
type CreateRouteInput struct {
	Name                  string
	Description           *string
	CheckpointIDs         []uuid.UUID
	Priority              *enums.RoutePriority
	EstimatedDurationMins *int
	IsActive              *bool
}

// UpdateRouteInput holds optional mutation values for a route.
type UpdateRouteInput struct {
	Name                  *string
	Description           *string
	CheckpointIDs         *[]uuid.UUID
	Priority              *enums.RoutePriority
	EstimatedDurationMins *int
	IsActive              *bool
}

type routeRepository interface {
	Create(ctx context.Context, route *models.Route) (*models.Route, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Route, error)
	Update(ctx context.Context, route *models.Route) (*models.Route, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, query ListRoutesInput) ([]models.Route, string, error)
}

type checkpointCatalog interface {
	FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Checkpoint, error)
}

type assignmentGuard interface {
	HasLiveForRoute(ctx context.Context, routeID uuid.UUID) (bool, error)
}

type service struct {
	repo            routeRepository
	checkpoints     checkpointCatalog
	assignments     assignmentGuard
	maxCheckpoints  int
	maxDurationMins int
}

// NewService constructs a route service instance.
func NewService(repo routeRepository, checkpoints checkpointCatalog, assignments assignmentGuard, cfg config.PatrolConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("route repository required")
	}
	if checkpoints == nil {
		return nil, fmt.Errorf("checkpoint catalog required")
	}
	if assignments == nil {
		return nil, fmt.Errorf("assignment guard required")
	}

	maxCheckpoints := cfg.MaxRouteCheckpoints
	if maxCheckpoints <= 0 {
		maxCheckpoints = defaultMaxRouteCheckpoints
	}
	maxDurationMins := cfg.MaxEstimatedMinutes
	if maxDurationMins <= 0 {
		maxDurationMins = defaultMaxEstimatedDurationMins
	}

	return &service{
		repo:            repo,
		checkpoints:     checkpoints,
		assignments:     assignments,
		maxCheckpoints:  maxCheckpoints,
		maxDurationMins: maxDurationMins,
	}, nil
}

func (s *service) Create(ctx context.Context, stationID, createdBy uuid.UUID, input CreateRouteInput) (*RouteDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := s.validateRouteMeta(input.Priority, input.EstimatedDurationMins); err != nil {
		return nil, err
	}
	if err := s.validateCheckpointSelection(ctx, stationID, input.CheckpointIDs); err != nil {
		return nil, err
	}

	route := &models.Route{
		StationID:             stationID,
		Name:                  name,
		Description:           input.Description,
		CheckpointIDs:         dbtypes.UUIDArray(input.CheckpointIDs),
		Priority:              input.Priority,
		EstimatedDurationMins: input.EstimatedDurationMins,
		IsActive:              true,
	}
	if input.IsActive != nil {
		route.IsActive = *input.IsActive
	}
	if createdBy != uuid.Nil {
		route.CreatedBy = &createdBy
	}

	created, err := s.repo.Create(ctx, route)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert route")
	}
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, stationID, routeID uuid.UUID) (*RouteDTO, error) {
	route, err := s.loadScoped(ctx, stationID, routeID)
	if err != nil {
		return nil, err
	}
	return FromModel(route), nil
}

func (s *service) List(ctx context.Context, input ListRoutesInput) (*RouteListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, input)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list routes")
	}

	dtos := make([]RouteDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return &RouteListResult{Routes: dtos, NextCursor: nextCursor}, nil
}

func (s *service) Update(ctx context.Context, stationID, routeID uuid.UUID, input UpdateRouteInput) (*RouteDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if err := s.validateRouteMeta(input.Priority, input.EstimatedDurationMins); err != nil {
		return nil, err
	}

	route, err := s.loadScoped(ctx, stationID, routeID)
	if err != nil {
		return nil, err
	}

	// Membership changes and deactivation are frozen while an officer is
	// out on the route.
	changesMembership := input.CheckpointIDs != nil
	deactivates := input.IsActive != nil && !*input.IsActive && route.IsActive
	if changesMembership || deactivates {
		if err := s.ensureNoLiveAssignment(ctx, routeID); err != nil {
			return nil, err
		}
	}

	if changesMembership {
		if err := s.validateCheckpointSelection(ctx, stationID, *input.CheckpointIDs); err != nil {
			return nil, err
		}
		route.CheckpointIDs = dbtypes.UUIDArray(*input.CheckpointIDs)
	}
	if input.Name != nil {
		route.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		route.Description = input.Description
	}
	if input.Priority != nil {
		route.Priority = input.Priority
	}
	if input.EstimatedDurationMins != nil {
		route.EstimatedDurationMins = input.EstimatedDurationMins
	}
	if input.IsActive != nil {
		route.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, route)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update route")
	}
	return FromModel(updated), nil
}

func (s *service) Deactivate(ctx context.Context, stationID, routeID uuid.UUID) error {
	route, err := s.loadScoped(ctx, stationID, routeID)
	if err != nil {
		return err
	}
	if err := s.ensureNoLiveAssignment(ctx, route.ID); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, route.ID, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate route")
	}
	return nil
}

func (s *service) loadScoped(ctx context.Context, stationID, routeID uuid.UUID) (*models.Route, error) {
	route, err := s.repo.FindByID(ctx, routeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeRouteNotFound, "route not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
	}
	if route.StationID != stationID {
		return nil, pkgerrors.New(pkgerrors.CodeRouteNotFound, "route not found")
	}
	return route, nil
}

func (s *service) ensureNoLiveAssignment(ctx context.Context, routeID uuid.UUID) error {
	live, err := s.assignments.HasLiveForRoute(ctx, routeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check live assignments")
	}
	if live {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "route has a live assignment")
	}
	return nil
}

func (s *service) validateCheckpointSelection(ctx context.Context, stationID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) < minRouteCheckpoints {
		return pkgerrors.New(pkgerrors.CodeValidation, "route requires at least one checkpoint")
	}
	if len(ids) > s.maxCheckpoints {
		return pkgerrors.New(pkgerrors.CodeValidation, "too many checkpoints for one route").
			WithDetails(map[string]any{"count": len(ids), "max": s.maxCheckpoints})
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "checkpoint id cannot be nil")
		}
		if _, dup := seen[id]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate checkpoint in route").
				WithDetails(map[string]any{"checkpoint_id": id})
		}
		seen[id] = struct{}{}
	}

	rows, err := s.checkpoints.FindAllByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route checkpoints")
	}

	usable := make(map[uuid.UUID]struct{}, len(rows))
	for i := range rows {
		if rows[i].StationID == stationID && rows[i].IsActive {
			usable[rows[i].ID] = struct{}{}
		}
	}

	missing := make([]uuid.UUID, 0)
	for _, id := range ids {
		if _, ok := usable[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeCheckpointNotFound, "one or more checkpoints not found").
			WithDetails(map[string]any{"checkpoint_ids": missing})
	}
	return nil
}

func (s *service) validateRouteMeta(priority *enums.RoutePriority, durationMins *int) error {
	if priority != nil && !priority.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid route priority").
			WithDetails(map[string]any{"priority": priority.String()})
	}
	if durationMins != nil && (*durationMins < 0 || *durationMins > s.maxDurationMins) {
		return pkgerrors.New(pkgerrors.CodeValidation, "estimated duration out of bounds").
			WithDetails(map[string]any{"estimated_duration_mins": *durationMins, "max": s.maxDurationMins})
	}
	return nil
}
