package assignments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	dbpkg "github.com/AVGC-lgtm/SmartPatrol/pkg/db"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultMaxActiveAssignments = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type routeReader interface {
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Route, error)
}

// Service drives the assignment lifecycle
// assigned -> in_progress -> {completed, cancelled}.
type Service interface {
	AssignRoute(ctx context.Context, input AssignRouteInput) (*AssignmentDTO, error)
	StartRoute(ctx context.Context, input StartRouteInput) (*AssignmentDTO, error)
	CompleteRoute(ctx context.Context, input CompleteRouteInput) (*AssignmentDTO, error)
	CancelAssignment(ctx context.Context, input CancelAssignmentInput) (*AssignmentDTO, error)
	DeleteAssignment(ctx context.Context, input DeleteAssignmentInput) error
	RecordCheckpointCompletion(ctx context.Context, tx *gorm.DB, assignmentID, checkpointID uuid.UUID) (*CompletionSnapshot, error)
}

// AssignRouteInput hands a route to an officer.
type AssignRouteInput struct {
	RouteID     uuid.UUID
	UserID      uuid.UUID
	Notes       *string
	StationID   uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.SystemRole
}

// StartRouteInput begins the physical patrol run.
type StartRouteInput struct {
	AssignmentID uuid.UUID
	Notes        *string
	StationID    uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.SystemRole
}

// CompleteRouteInput closes out a run; Force overrides unscanned checkpoints.
type CompleteRouteInput struct {
	AssignmentID uuid.UUID
	Force        bool
	Notes        *string
	StationID    uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.SystemRole
}

// CancelAssignmentInput aborts a run before completion.
type CancelAssignmentInput struct {
	AssignmentID uuid.UUID
	Reason       *string
	Notes        *string
	StationID    uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.SystemRole
}

// DeleteAssignmentInput soft-deletes a non-running assignment.
type DeleteAssignmentInput struct {
	AssignmentID uuid.UUID
	StationID    uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.SystemRole
}

// CompletionSnapshot reports the assignment state after a checkpoint scan
// has been folded in.
type CompletionSnapshot struct {
	Assignment           *models.RouteAssignment
	CompletedCheckpoints int
	TotalCheckpoints     int
	AutoCompleted        bool
}

// ServiceParams wires the state machine's collaborators.
type ServiceParams struct {
	Repo      Repository
	TxRunner  txRunner
	Outbox    outboxPublisher
	UserRepo  userReader
	RouteRepo routeReader
	Patrol    config.PatrolConfig
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	users     userReader
	routes    routeReader
	maxActive int
}

// NewService builds the assignment state machine with its dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.RouteRepo == nil {
		return nil, fmt.Errorf("route repository required")
	}

	maxActive := params.Patrol.MaxActiveAssignments
	if maxActive <= 0 {
		maxActive = defaultMaxActiveAssignments
	}

	return &service{
		repo:      params.Repo,
		tx:        params.TxRunner,
		outbox:    params.Outbox,
		users:     params.UserRepo,
		routes:    params.RouteRepo,
		maxActive: maxActive,
	}, nil
}

// AssignRoute runs every conflict check and the insert inside one
// transaction; the partial unique indexes on route_assignments backstop the
// checks against concurrent racers.
func (s *service) AssignRoute(ctx context.Context, input AssignRouteInput) (*AssignmentDTO, error) {
	if input.RouteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "route id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "station context missing")
	}
	if !input.ActorRole.AtLeast(enums.SystemRoleSupervisor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supervisor role required")
	}

	officer, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUserNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if officer.StationID != input.StationID || !officer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUserNotFound, "user not found")
	}

	var created *models.RouteAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		route, err := s.routes.FindByIDWithTx(tx, input.RouteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeRouteNotFound, "route not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
		}
		if route.StationID != input.StationID {
			return pkgerrors.New(pkgerrors.CodeRouteNotFound, "route not found")
		}
		if !route.IsActive {
			return pkgerrors.New(pkgerrors.CodeRouteInactive, "route is not active")
		}

		holder, err := repo.FindActiveByRoute(ctx, input.RouteID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check route holder")
		}
		if holder != nil {
			if holder.UserID == input.UserID {
				return pkgerrors.New(pkgerrors.CodeDuplicateAssignment, "user already assigned to this route").
					WithDetails(map[string]any{"assignment_id": holder.ID})
			}
			return pkgerrors.New(pkgerrors.CodeRouteAlreadyAssigned, "route already has an active assignment").
				WithDetails(map[string]any{
					"assignment_id": holder.ID,
					"user_id":       holder.UserID,
					"status":        holder.Status,
				})
		}

		activeCount, err := repo.CountActiveByUser(ctx, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active assignments")
		}
		if activeCount >= int64(s.maxActive) {
			return pkgerrors.New(pkgerrors.CodeMaxAssignments, "active assignment limit reached").
				WithDetails(map[string]any{"limit": s.maxActive})
		}

		now := time.Now().UTC()
		assignment := &models.RouteAssignment{
			StationID: input.StationID,
			RouteID:   input.RouteID,
			UserID:    input.UserID,
			Status:    enums.AssignmentStatusAssigned,
			StartDate: now,
			Notes:     input.Notes,
			IsActive:  true,
		}
		if input.ActorUserID != uuid.Nil {
			actorID := input.ActorUserID
			assignment.AssignedByUserID = &actorID
		}

		created, err = repo.Create(ctx, assignment)
		if err != nil {
			return mapAssignmentCreateError(err)
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventAssignmentCreated,
			AggregateType: enums.AggregateRouteAssignment,
			AggregateID:   created.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.StationID, input.ActorRole),
			Data: payloads.AssignmentCreatedEvent{
				AssignmentID:     created.ID,
				RouteID:          created.RouteID,
				UserID:           created.UserID,
				StationID:        created.StationID,
				AssignedByUserID: created.AssignedByUserID,
				StartDate:        created.StartDate,
				CheckpointCount:  len(route.CheckpointIDs),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

// StartRoute flips assigned -> in_progress. start_date is reset to the
// moment the officer physically begins, not the administrative assign time.
func (s *service) StartRoute(ctx context.Context, input StartRouteInput) (*AssignmentDTO, error) {
	if input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var started *models.RouteAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := loadScopedAssignment(ctx, repo, input.StationID, input.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.UserID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "assignment belongs to another officer")
		}
		if assignment.Status != enums.AssignmentStatusAssigned {
			return stateConflict(assignment.Status)
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":     enums.AssignmentStatusInProgress,
			"start_date": now,
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}

		rows, err := repo.TransitionStatus(ctx, assignment.ID, []enums.AssignmentStatus{enums.AssignmentStatusAssigned}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start assignment")
		}
		if rows == 0 {
			return stateConflict(assignment.Status)
		}

		assignment.Status = enums.AssignmentStatusInProgress
		assignment.StartDate = now
		if input.Notes != nil {
			assignment.Notes = input.Notes
		}
		started = assignment

		event := outbox.DomainEvent{
			EventType:     enums.EventAssignmentStarted,
			AggregateType: enums.AggregateRouteAssignment,
			AggregateID:   assignment.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.StationID, input.ActorRole),
			Data: payloads.AssignmentStartedEvent{
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				UserID:       assignment.UserID,
				StationID:    assignment.StationID,
				StartedAt:    now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return FromModel(started), nil
}

func (s *service) CompleteRoute(ctx context.Context, input CompleteRouteInput) (*AssignmentDTO, error) {
	if input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var completed *models.RouteAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := loadScopedAssignment(ctx, repo, input.StationID, input.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.UserID != input.ActorUserID && !input.ActorRole.AtLeast(enums.SystemRoleSupervisor) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "assignment belongs to another officer")
		}
		if assignment.Status == enums.AssignmentStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "assignment already completed")
		}
		if assignment.Status == enums.AssignmentStatusCancelled {
			return stateConflict(assignment.Status)
		}

		route, err := s.routes.FindByIDWithTx(tx, assignment.RouteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeRouteNotFound, "route not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
		}

		total := len(route.CheckpointIDs)
		done := countCovered(assignment.CompletedCheckpointIDs, route.CheckpointIDs)
		remaining := total - done
		if remaining > 0 && !input.Force {
			return pkgerrors.New(pkgerrors.CodeIncompleteCheckpoints, "assignment has unscanned checkpoints").
				WithDetails(map[string]any{"remaining": remaining, "total": total})
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":   enums.AssignmentStatusCompleted,
			"end_date": now,
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}

		rows, err := repo.TransitionStatus(ctx, assignment.ID, enums.ActiveAssignmentStatuses, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete assignment")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "assignment already completed")
		}

		assignment.Status = enums.AssignmentStatusCompleted
		assignment.EndDate = &now
		if input.Notes != nil {
			assignment.Notes = input.Notes
		}
		completed = assignment

		event := outbox.DomainEvent{
			EventType:     enums.EventAssignmentCompleted,
			AggregateType: enums.AggregateRouteAssignment,
			AggregateID:   assignment.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.StationID, input.ActorRole),
			Data: payloads.AssignmentCompletedEvent{
				AssignmentID:         assignment.ID,
				RouteID:              assignment.RouteID,
				UserID:               assignment.UserID,
				StationID:            assignment.StationID,
				CompletedAt:          now,
				Forced:               input.Force,
				CompletedCheckpoints: done,
				TotalCheckpoints:     total,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return FromModel(completed), nil
}

func (s *service) CancelAssignment(ctx context.Context, input CancelAssignmentInput) (*AssignmentDTO, error) {
	if input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var cancelled *models.RouteAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := loadScopedAssignment(ctx, repo, input.StationID, input.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.UserID != input.ActorUserID && !input.ActorRole.AtLeast(enums.SystemRoleSupervisor) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "assignment belongs to another officer")
		}
		if assignment.Status.IsTerminal() {
			return stateConflict(assignment.Status)
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":   enums.AssignmentStatusCancelled,
			"end_date": now,
		}
		if input.Reason != nil {
			updates["cancel_reason"] = *input.Reason
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}

		rows, err := repo.TransitionStatus(ctx, assignment.ID, enums.ActiveAssignmentStatuses, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel assignment")
		}
		if rows == 0 {
			return stateConflict(assignment.Status)
		}

		assignment.Status = enums.AssignmentStatusCancelled
		assignment.EndDate = &now
		if input.Reason != nil {
			assignment.CancelReason = input.Reason
		}
		if input.Notes != nil {
			assignment.Notes = input.Notes
		}
		cancelled = assignment

		reason := ""
		if input.Reason != nil {
			reason = *input.Reason
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventAssignmentCancelled,
			AggregateType: enums.AggregateRouteAssignment,
			AggregateID:   assignment.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.StationID, input.ActorRole),
			Data: payloads.AssignmentCancelledEvent{
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				UserID:       assignment.UserID,
				StationID:    assignment.StationID,
				CancelledAt:  now,
				Reason:       reason,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return FromModel(cancelled), nil
}

// DeleteAssignment soft-deletes. In-progress runs must be cancelled first.
func (s *service) DeleteAssignment(ctx context.Context, input DeleteAssignmentInput) error {
	if input.AssignmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.AtLeast(enums.SystemRoleSupervisor) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "supervisor role required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := loadScopedAssignment(ctx, repo, input.StationID, input.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.Status == enums.AssignmentStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeCannotDeleteInProgress, "in-progress assignment cannot be deleted")
		}

		rows, err := repo.SoftDelete(ctx, assignment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete assignment")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeCannotDeleteInProgress, "in-progress assignment cannot be deleted")
		}
		return nil
	})
}

// RecordCheckpointCompletion folds a verified scan into the assignment
// inside the caller's transaction. The scan verifier has already rejected
// duplicates; the append itself is still conditional so replays cannot
// double-insert.
func (s *service) RecordCheckpointCompletion(ctx context.Context, tx *gorm.DB, assignmentID, checkpointID uuid.UUID) (*CompletionSnapshot, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	if err := repo.AppendCompletedCheckpoint(ctx, assignmentID, checkpointID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append completed checkpoint")
	}

	assignment, err := repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload assignment")
	}

	route, err := s.routes.FindByIDWithTx(tx, assignment.RouteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeRouteNotFound, "route not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
	}

	total := len(route.CheckpointIDs)
	done := countCovered(assignment.CompletedCheckpointIDs, route.CheckpointIDs)

	snapshot := &CompletionSnapshot{
		Assignment:           assignment,
		CompletedCheckpoints: done,
		TotalCheckpoints:     total,
	}

	if assignment.Status != enums.AssignmentStatusInProgress || total == 0 || done < total {
		return snapshot, nil
	}

	// Full traversal completes the run without a forceComplete flag.
	now := time.Now().UTC()
	rows, err := repo.TransitionStatus(ctx, assignment.ID, []enums.AssignmentStatus{enums.AssignmentStatusInProgress}, map[string]any{
		"status":   enums.AssignmentStatusCompleted,
		"end_date": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auto-complete assignment")
	}
	if rows == 0 {
		return snapshot, nil
	}

	assignment.Status = enums.AssignmentStatusCompleted
	assignment.EndDate = &now
	snapshot.AutoCompleted = true

	event := outbox.DomainEvent{
		EventType:     enums.EventAssignmentCompleted,
		AggregateType: enums.AggregateRouteAssignment,
		AggregateID:   assignment.ID,
		Version:       1,
		Actor:         buildActor(assignment.UserID, assignment.StationID, enums.SystemRoleOfficer),
		Data: payloads.AssignmentCompletedEvent{
			AssignmentID:         assignment.ID,
			RouteID:              assignment.RouteID,
			UserID:               assignment.UserID,
			StationID:            assignment.StationID,
			CompletedAt:          now,
			Forced:               false,
			CompletedCheckpoints: done,
			TotalCheckpoints:     total,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// loadScopedAssignment hides rows outside the caller's station and rows
// that were soft-deleted.
func loadScopedAssignment(ctx context.Context, repo Repository, stationID, assignmentID uuid.UUID) (*models.RouteAssignment, error) {
	assignment, err := repo.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	if assignment.StationID != stationID || !assignment.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	return assignment, nil
}

func stateConflict(current enums.AssignmentStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "state transition disallowed").
		WithDetails(map[string]any{"current_status": current})
}

func mapAssignmentCreateError(err error) error {
	if dbpkg.IsUniqueViolation(err, "ux_route_assignments_active_user_route") {
		return pkgerrors.New(pkgerrors.CodeDuplicateAssignment, "user already assigned to this route")
	}
	if dbpkg.IsUniqueViolation(err, "ux_route_assignments_active_route") {
		return pkgerrors.New(pkgerrors.CodeRouteAlreadyAssigned, "route already has an active assignment")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert assignment")
}

func countCovered(completed, routeCheckpoints []uuid.UUID) int {
	if len(completed) == 0 || len(routeCheckpoints) == 0 {
		return 0
	}
	member := make(map[uuid.UUID]struct{}, len(routeCheckpoints))
	for _, id := range routeCheckpoints {
		member[id] = struct{}{}
	}
	count := 0
	for _, id := range completed {
		if _, ok := member[id]; ok {
			count++
		}
	}
	return count
}

func buildActor(userID, stationID uuid.UUID, role enums.SystemRole) *outbox.ActorRef {
	station := stationID
	return &outbox.ActorRef{
		UserID:    userID,
		StationID: &station,
		Role:      role.String(),
	}
}
