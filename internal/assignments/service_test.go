package assignments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	dbtypes "github.com/AVGC-lgtm/SmartPatrol/pkg/db/types"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubAssignmentsRepo struct {
	assignments map[uuid.UUID]*models.RouteAssignment

	createErr  error
	listRows   []models.RouteAssignment
	listCursor string
	listErr    error
	stale      []models.RouteAssignment
}

func newStubAssignmentsRepo(seed ...*models.RouteAssignment) *stubAssignmentsRepo {
	repo := &stubAssignmentsRepo{assignments: make(map[uuid.UUID]*models.RouteAssignment)}
	for _, assignment := range seed {
		repo.assignments[assignment.ID] = assignment
	}
	return repo
}

func (r *stubAssignmentsRepo) WithTx(_ *gorm.DB) Repository { return r }

func (r *stubAssignmentsRepo) Create(_ context.Context, assignment *models.RouteAssignment) (*models.RouteAssignment, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	assignment.CreatedAt = time.Now().UTC()
	assignment.UpdatedAt = assignment.CreatedAt
	r.assignments[assignment.ID] = assignment
	return assignment, nil
}

func (r *stubAssignmentsRepo) FindByID(_ context.Context, id uuid.UUID) (*models.RouteAssignment, error) {
	assignment, ok := r.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *assignment
	return &copied, nil
}

func (r *stubAssignmentsRepo) FindActiveByRoute(_ context.Context, routeID uuid.UUID) (*models.RouteAssignment, error) {
	for _, assignment := range r.assignments {
		if assignment.RouteID != routeID || !assignment.IsActive || assignment.Status.IsTerminal() {
			continue
		}
		copied := *assignment
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAssignmentsRepo) CountActiveByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, assignment := range r.assignments {
		if assignment.UserID == userID && assignment.IsActive && !assignment.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (r *stubAssignmentsRepo) HasLiveForRoute(ctx context.Context, routeID uuid.UUID) (bool, error) {
	_, err := r.FindActiveByRoute(ctx, routeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *stubAssignmentsRepo) AppendCompletedCheckpoint(_ context.Context, assignmentID, checkpointID uuid.UUID) error {
	assignment, ok := r.assignments[assignmentID]
	if !ok {
		return nil
	}
	if assignment.CompletedCheckpointIDs.Contains(checkpointID) {
		return nil
	}
	assignment.CompletedCheckpointIDs = append(assignment.CompletedCheckpointIDs, checkpointID)
	return nil
}

func (r *stubAssignmentsRepo) TransitionStatus(_ context.Context, id uuid.UUID, from []enums.AssignmentStatus, updates map[string]any) (int64, error) {
	assignment, ok := r.assignments[id]
	if !ok || !assignment.IsActive {
		return 0, nil
	}
	allowed := false
	for _, status := range from {
		if assignment.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return 0, nil
	}
	for key, value := range updates {
		switch key {
		case "status":
			assignment.Status = value.(enums.AssignmentStatus)
		case "start_date":
			assignment.StartDate = value.(time.Time)
		case "end_date":
			at := value.(time.Time)
			assignment.EndDate = &at
		case "notes":
			notes := value.(string)
			assignment.Notes = &notes
		case "cancel_reason":
			reason := value.(string)
			assignment.CancelReason = &reason
		}
	}
	assignment.UpdatedAt = time.Now().UTC()
	return 1, nil
}

func (r *stubAssignmentsRepo) SoftDelete(_ context.Context, id uuid.UUID) (int64, error) {
	assignment, ok := r.assignments[id]
	if !ok || !assignment.IsActive || assignment.Status == enums.AssignmentStatusInProgress {
		return 0, nil
	}
	assignment.IsActive = false
	return 1, nil
}

func (r *stubAssignmentsRepo) List(_ context.Context, _ ListAssignmentsInput) ([]models.RouteAssignment, string, error) {
	if r.listErr != nil {
		return nil, "", r.listErr
	}
	return r.listRows, r.listCursor, nil
}

func (r *stubAssignmentsRepo) FindStaleAssigned(_ context.Context, _ time.Time) ([]models.RouteAssignment, error) {
	return r.stale, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (p *stubOutboxPublisher) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *stubOutboxPublisher) last(t *testing.T) outbox.DomainEvent {
	t.Helper()
	if len(p.events) == 0 {
		t.Fatalf("expected at least one emitted event")
	}
	return p.events[len(p.events)-1]
}

type stubUserReader struct {
	users map[uuid.UUID]*models.User
}

func (r *stubUserReader) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

type stubRouteCatalog struct {
	routes map[uuid.UUID]*models.Route
}

func (r *stubRouteCatalog) find(id uuid.UUID) (*models.Route, error) {
	route, ok := r.routes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *route
	return &copied, nil
}

func (r *stubRouteCatalog) FindByID(_ context.Context, id uuid.UUID) (*models.Route, error) {
	return r.find(id)
}

func (r *stubRouteCatalog) FindByIDWithTx(_ *gorm.DB, id uuid.UUID) (*models.Route, error) {
	return r.find(id)
}

func seedOfficer(stationID uuid.UUID) *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        "officer@station.test",
		PasswordHash: "hash",
		FirstName:    "Asha",
		LastName:     "Kulkarni",
		SystemRole:   enums.SystemRoleOfficer,
		StationID:    stationID,
		IsActive:     true,
	}
}

func seedPatrolRoute(stationID uuid.UUID, checkpointCount int) *models.Route {
	ids := make(dbtypes.UUIDArray, 0, checkpointCount)
	for i := 0; i < checkpointCount; i++ {
		ids = append(ids, uuid.New())
	}
	return &models.Route{
		ID:            uuid.New(),
		StationID:     stationID,
		Name:          "Night Perimeter",
		CheckpointIDs: ids,
		IsActive:      true,
	}
}

func seedAssignment(route *models.Route, userID uuid.UUID, status enums.AssignmentStatus) *models.RouteAssignment {
	return &models.RouteAssignment{
		ID:                     uuid.New(),
		StationID:              route.StationID,
		RouteID:                route.ID,
		UserID:                 userID,
		Status:                 status,
		CompletedCheckpointIDs: dbtypes.UUIDArray{},
		StartDate:              time.Now().UTC().Add(-time.Hour),
		IsActive:               true,
	}
}

func buildAssignmentService(t *testing.T, repo Repository, publisher *stubOutboxPublisher, users *stubUserReader, routes *stubRouteCatalog) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		TxRunner:  stubTxRunner{},
		Outbox:    publisher,
		UserRepo:  users,
		RouteRepo: routes,
		Patrol:    config.PatrolConfig{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func assertAssignmentCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error with code %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
	return typed
}

func TestServiceAssignRoute(t *testing.T) {
	stationID := uuid.New()
	supervisorID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 3)

	repo := newStubAssignmentsRepo()
	publisher := &stubOutboxPublisher{}
	svc := buildAssignmentService(t, repo, publisher,
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

	notes := "carry the spare radio"
	dto, err := svc.AssignRoute(context.Background(), AssignRouteInput{
		RouteID:     route.ID,
		UserID:      officer.ID,
		Notes:       &notes,
		StationID:   stationID,
		ActorUserID: supervisorID,
		ActorRole:   enums.SystemRoleSupervisor,
	})
	if err != nil {
		t.Fatalf("AssignRoute: %v", err)
	}

	if dto.Status != enums.AssignmentStatusAssigned {
		t.Fatalf("expected status assigned, got %s", dto.Status)
	}
	if dto.AssignedByUserID == nil || *dto.AssignedByUserID != supervisorID {
		t.Fatalf("expected assigned_by to be stamped with the supervisor")
	}
	if !dto.IsActive {
		t.Fatalf("new assignments should be active")
	}
	if time.Since(dto.StartDate) > 5*time.Second {
		t.Fatalf("expected start date close to now, got %s", dto.StartDate)
	}
	if dto.Notes == nil || *dto.Notes != notes {
		t.Fatalf("expected notes to be recorded")
	}
	if _, ok := repo.assignments[dto.ID]; !ok {
		t.Fatalf("assignment was not persisted")
	}

	event := publisher.last(t)
	if event.EventType != enums.EventAssignmentCreated {
		t.Fatalf("expected %s event, got %s", enums.EventAssignmentCreated, event.EventType)
	}
	if event.AggregateID != dto.ID {
		t.Fatalf("event aggregate does not match the assignment")
	}
	payload, ok := event.Data.(payloads.AssignmentCreatedEvent)
	if !ok {
		t.Fatalf("unexpected event payload %T", event.Data)
	}
	if payload.CheckpointCount != 3 {
		t.Fatalf("expected checkpoint count 3, got %d", payload.CheckpointCount)
	}
	if payload.UserID != officer.ID || payload.RouteID != route.ID {
		t.Fatalf("event payload does not reference the assignment")
	}
	if event.Actor == nil || event.Actor.UserID != supervisorID {
		t.Fatalf("expected the supervisor as event actor")
	}
}

func TestServiceAssignRouteRequiresSupervisor(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 2)

	svc := buildAssignmentService(t, newStubAssignmentsRepo(), &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

	_, err := svc.AssignRoute(context.Background(), AssignRouteInput{
		RouteID:     route.ID,
		UserID:      officer.ID,
		StationID:   stationID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.SystemRoleOfficer,
	})
	assertAssignmentCode(t, err, pkgerrors.CodeForbidden)
}

func TestServiceAssignRouteValidation(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 2)
	svc := buildAssignmentService(t, newStubAssignmentsRepo(), &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})
	ctx := context.Background()

	_, err := svc.AssignRoute(ctx, AssignRouteInput{UserID: officer.ID, StationID: stationID, ActorUserID: uuid.New(), ActorRole: enums.SystemRoleSupervisor})
	assertAssignmentCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AssignRoute(ctx, AssignRouteInput{RouteID: route.ID, StationID: stationID, ActorUserID: uuid.New(), ActorRole: enums.SystemRoleSupervisor})
	assertAssignmentCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AssignRoute(ctx, AssignRouteInput{RouteID: route.ID, UserID: officer.ID, StationID: stationID, ActorRole: enums.SystemRoleSupervisor})
	assertAssignmentCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.AssignRoute(ctx, AssignRouteInput{RouteID: route.ID, UserID: officer.ID, ActorUserID: uuid.New(), ActorRole: enums.SystemRoleSupervisor})
	assertAssignmentCode(t, err, pkgerrors.CodeForbidden)
}

func TestServiceAssignRouteUserChecks(t *testing.T) {
	stationID := uuid.New()
	route := seedPatrolRoute(stationID, 2)
	foreign := seedOfficer(uuid.New())
	retired := seedOfficer(stationID)
	retired.IsActive = false

	svc := buildAssignmentService(t, newStubAssignmentsRepo(), &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{foreign.ID: foreign, retired.ID: retired}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})
	ctx := context.Background()

	base := AssignRouteInput{RouteID: route.ID, StationID: stationID, ActorUserID: uuid.New(), ActorRole: enums.SystemRoleSupervisor}

	missing := base
	missing.UserID = uuid.New()
	_, err := svc.AssignRoute(ctx, missing)
	assertAssignmentCode(t, err, pkgerrors.CodeUserNotFound)

	crossStation := base
	crossStation.UserID = foreign.ID
	_, err = svc.AssignRoute(ctx, crossStation)
	assertAssignmentCode(t, err, pkgerrors.CodeUserNotFound)

	inactive := base
	inactive.UserID = retired.ID
	_, err = svc.AssignRoute(ctx, inactive)
	assertAssignmentCode(t, err, pkgerrors.CodeUserNotFound)
}

func TestServiceAssignRouteRouteChecks(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	foreignRoute := seedPatrolRoute(uuid.New(), 2)
	dormant := seedPatrolRoute(stationID, 2)
	dormant.IsActive = false

	svc := buildAssignmentService(t, newStubAssignmentsRepo(), &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{foreignRoute.ID: foreignRoute, dormant.ID: dormant}})
	ctx := context.Background()

	base := AssignRouteInput{UserID: officer.ID, StationID: stationID, ActorUserID: uuid.New(), ActorRole: enums.SystemRoleSupervisor}

	missing := base
	missing.RouteID = uuid.New()
	_, err := svc.AssignRoute(ctx, missing)
	assertAssignmentCode(t, err, pkgerrors.CodeRouteNotFound)

	crossStation := base
	crossStation.RouteID = foreignRoute.ID
	_, err = svc.AssignRoute(ctx, crossStation)
	assertAssignmentCode(t, err, pkgerrors.CodeRouteNotFound)

	inactive := base
	inactive.RouteID = dormant.ID
	_, err = svc.AssignRoute(ctx, inactive)
	assertAssignmentCode(t, err, pkgerrors.CodeRouteInactive)
}

func TestServiceAssignRouteHolderConflicts(t *testing.T) {
	stationID := uuid.New()
	holder := seedOfficer(stationID)
	other := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 2)
	existing := seedAssignment(route, holder.ID, enums.AssignmentStatusInProgress)

	repo := newStubAssignmentsRepo(existing)
	svc := buildAssignmentService(t, repo, &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{holder.ID: holder, other.ID: other}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})
	ctx := context.Background()

	_, err := svc.AssignRoute(ctx, AssignRouteInput{
		RouteID:     route.ID,
		UserID:      other.ID,
		StationID:   stationID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.SystemRoleSupervisor,
	})
	typed := assertAssignmentCode(t, err, pkgerrors.CodeRouteAlreadyAssigned)
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected holder details, got %T", typed.Details())
	}
	if details["assignment_id"] != existing.ID || details["user_id"] != holder.ID {
		t.Fatalf("conflict details should reference the current holder: %v", details)
	}

	_, err = svc.AssignRoute(ctx, AssignRouteInput{
		RouteID:     route.ID,
		UserID:      holder.ID,
		StationID:   stationID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.SystemRoleSupervisor,
	})
	assertAssignmentCode(t, err, pkgerrors.CodeDuplicateAssignment)
}

func TestServiceAssignRouteCapEnforced(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	target := seedPatrolRoute(stationID, 2)

	repo := newStubAssignmentsRepo()
	routes := map[uuid.UUID]*models.Route{target.ID: target}
	for i := 0; i < defaultMaxActiveAssignments; i++ {
		busy := seedPatrolRoute(stationID, 2)
		routes[busy.ID] = busy
		existing := seedAssignment(busy, officer.ID, enums.AssignmentStatusAssigned)
		repo.assignments[existing.ID] = existing
	}

	svc := buildAssignmentService(t, repo, &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: routes})
	ctx := context.Background()

	input := AssignRouteInput{
		RouteID:     target.ID,
		UserID:      officer.ID,
		StationID:   stationID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.SystemRoleSupervisor,
	}
	_, err := svc.AssignRoute(ctx, input)
	typed := assertAssignmentCode(t, err, pkgerrors.CodeMaxAssignments)
	details, ok := typed.Details().(map[string]any)
	if !ok || details["limit"] != defaultMaxActiveAssignments {
		t.Fatalf("expected the configured limit in details, got %v", typed.Details())
	}

	// Finishing one run frees a slot.
	for _, assignment := range repo.assignments {
		assignment.Status = enums.AssignmentStatusCancelled
		break
	}
	if _, err := svc.AssignRoute(ctx, input); err != nil {
		t.Fatalf("expected assignment after a slot freed up, got %v", err)
	}
}

func TestServiceAssignRouteConfiguredCap(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	first := seedPatrolRoute(stationID, 2)
	second := seedPatrolRoute(stationID, 2)
	existing := seedAssignment(first, officer.ID, enums.AssignmentStatusAssigned)

	repo := newStubAssignmentsRepo(existing)
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		TxRunner:  stubTxRunner{},
		Outbox:    &stubOutboxPublisher{},
		UserRepo:  &stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		RouteRepo: &stubRouteCatalog{routes: map[uuid.UUID]*models.Route{first.ID: first, second.ID: second}},
		Patrol:    config.PatrolConfig{MaxActiveAssignments: 1},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.AssignRoute(context.Background(), AssignRouteInput{
		RouteID:     second.ID,
		UserID:      officer.ID,
		StationID:   stationID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.SystemRoleSupervisor,
	})
	assertAssignmentCode(t, err, pkgerrors.CodeMaxAssignments)
}

func TestServiceAssignRouteMapsUniqueRaces(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 2)
	ctx := context.Background()

	cases := []struct {
		name    string
		message string
		want    pkgerrors.Code
	}{
		{
			name:    "route taken between check and insert",
			message: `ERROR: duplicate key value violates unique constraint "ux_route_assignments_active_route" (SQLSTATE 23505)`,
			want:    pkgerrors.CodeRouteAlreadyAssigned,
		},
		{
			name:    "same user raced their own assignment",
			message: `ERROR: duplicate key value violates unique constraint "ux_route_assignments_active_user_route" (SQLSTATE 23505)`,
			want:    pkgerrors.CodeDuplicateAssignment,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubAssignmentsRepo()
			repo.createErr = errors.New(tc.message)
			svc := buildAssignmentService(t, repo, &stubOutboxPublisher{},
				&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
				&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

			_, err := svc.AssignRoute(ctx, AssignRouteInput{
				RouteID:     route.ID,
				UserID:      officer.ID,
				StationID:   stationID,
				ActorUserID: uuid.New(),
				ActorRole:   enums.SystemRoleSupervisor,
			})
			assertAssignmentCode(t, err, tc.want)
		})
	}
}

func TestServiceStartRoute(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 3)
	assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusAssigned)
	assignedAt := assignment.StartDate

	repo := newStubAssignmentsRepo(assignment)
	publisher := &stubOutboxPublisher{}
	svc := buildAssignmentService(t, repo, publisher,
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

	notes := "starting from the east gate"
	dto, err := svc.StartRoute(context.Background(), StartRouteInput{
		AssignmentID: assignment.ID,
		Notes:        &notes,
		StationID:    stationID,
		ActorUserID:  officer.ID,
		ActorRole:    enums.SystemRoleOfficer,
	})
	if err != nil {
		t.Fatalf("StartRoute: %v", err)
	}

	if dto.Status != enums.AssignmentStatusInProgress {
		t.Fatalf("expected in_progress, got %s", dto.Status)
	}
	if !dto.StartDate.After(assignedAt) {
		t.Fatalf("start date should move to the actual start moment")
	}
	if repo.assignments[assignment.ID].Status != enums.AssignmentStatusInProgress {
		t.Fatalf("transition was not persisted")
	}
	if repo.assignments[assignment.ID].Notes == nil || *repo.assignments[assignment.ID].Notes != notes {
		t.Fatalf("notes were not persisted")
	}

	event := publisher.last(t)
	if event.EventType != enums.EventAssignmentStarted {
		t.Fatalf("expected %s event, got %s", enums.EventAssignmentStarted, event.EventType)
	}
	payload, ok := event.Data.(payloads.AssignmentStartedEvent)
	if !ok {
		t.Fatalf("unexpected event payload %T", event.Data)
	}
	if payload.AssignmentID != assignment.ID {
		t.Fatalf("event payload does not reference the assignment")
	}
}

func TestServiceStartRouteGuards(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 2)
	ctx := context.Background()

	t.Run("someone else's assignment", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusAssigned)
		svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		_, err := svc.StartRoute(ctx, StartRouteInput{
			AssignmentID: assignment.ID,
			StationID:    stationID,
			ActorUserID:  uuid.New(),
			ActorRole:    enums.SystemRoleOfficer,
		})
		assertAssignmentCode(t, err, pkgerrors.CodeForbidden)
	})

	t.Run("already running", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)
		svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		_, err := svc.StartRoute(ctx, StartRouteInput{
			AssignmentID: assignment.ID,
			StationID:    stationID,
			ActorUserID:  officer.ID,
			ActorRole:    enums.SystemRoleOfficer,
		})
		typed := assertAssignmentCode(t, err, pkgerrors.CodeStateConflict)
		details, ok := typed.Details().(map[string]any)
		if !ok || details["current_status"] != enums.AssignmentStatusInProgress {
			t.Fatalf("expected current status in details, got %v", typed.Details())
		}
	})

	t.Run("cancelled run", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusCancelled)
		svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		_, err := svc.StartRoute(ctx, StartRouteInput{
			AssignmentID: assignment.ID,
			StationID:    stationID,
			ActorUserID:  officer.ID,
			ActorRole:    enums.SystemRoleOfficer,
		})
		assertAssignmentCode(t, err, pkgerrors.CodeStateConflict)
	})

	t.Run("other station cannot see it", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusAssigned)
		svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		_, err := svc.StartRoute(ctx, StartRouteInput{
			AssignmentID: assignment.ID,
			StationID:    uuid.New(),
			ActorUserID:  officer.ID,
			ActorRole:    enums.SystemRoleOfficer,
		})
		assertAssignmentCode(t, err, pkgerrors.CodeNotFound)
	})

	t.Run("soft deleted", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusAssigned)
		assignment.IsActive = false
		svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		_, err := svc.StartRoute(ctx, StartRouteInput{
			AssignmentID: assignment.ID,
			StationID:    stationID,
			ActorUserID:  officer.ID,
			ActorRole:    enums.SystemRoleOfficer,
		})
		assertAssignmentCode(t, err, pkgerrors.CodeNotFound)
	})
}

func TestServiceCompleteRouteIncomplete(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 3)
	assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)
	assignment.CompletedCheckpointIDs = dbtypes.UUIDArray{route.CheckpointIDs[0], route.CheckpointIDs[1]}

	svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

	_, err := svc.CompleteRoute(context.Background(), CompleteRouteInput{
		AssignmentID: assignment.ID,
		StationID:    stationID,
		ActorUserID:  officer.ID,
		ActorRole:    enums.SystemRoleOfficer,
	})
	typed := assertAssignmentCode(t, err, pkgerrors.CodeIncompleteCheckpoints)
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected progress details, got %T", typed.Details())
	}
	if details["remaining"] != 1 || details["total"] != 3 {
		t.Fatalf("expected remaining=1 total=3, got %v", details)
	}
}

func TestServiceCompleteRouteForce(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 3)
	assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)
	assignment.CompletedCheckpointIDs = dbtypes.UUIDArray{route.CheckpointIDs[0]}

	repo := newStubAssignmentsRepo(assignment)
	publisher := &stubOutboxPublisher{}
	svc := buildAssignmentService(t, repo, publisher,
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

	dto, err := svc.CompleteRoute(context.Background(), CompleteRouteInput{
		AssignmentID: assignment.ID,
		Force:        true,
		StationID:    stationID,
		ActorUserID:  officer.ID,
		ActorRole:    enums.SystemRoleOfficer,
	})
	if err != nil {
		t.Fatalf("CompleteRoute: %v", err)
	}
	if dto.Status != enums.AssignmentStatusCompleted {
		t.Fatalf("expected completed, got %s", dto.Status)
	}
	if dto.EndDate == nil {
		t.Fatalf("expected end date to be set")
	}

	event := publisher.last(t)
	payload, ok := event.Data.(payloads.AssignmentCompletedEvent)
	if !ok {
		t.Fatalf("unexpected event payload %T", event.Data)
	}
	if !payload.Forced {
		t.Fatalf("forced completion should be flagged in the event")
	}
	if payload.CompletedCheckpoints != 1 || payload.TotalCheckpoints != 3 {
		t.Fatalf("expected 1/3 progress in event, got %d/%d", payload.CompletedCheckpoints, payload.TotalCheckpoints)
	}
}

func TestServiceCompleteRouteFullCoverage(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 2)
	assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)
	assignment.CompletedCheckpointIDs = dbtypes.UUIDArray{route.CheckpointIDs[1], route.CheckpointIDs[0]}

	publisher := &stubOutboxPublisher{}
	svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), publisher,
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

	dto, err := svc.CompleteRoute(context.Background(), CompleteRouteInput{
		AssignmentID: assignment.ID,
		StationID:    stationID,
		ActorUserID:  officer.ID,
		ActorRole:    enums.SystemRoleOfficer,
	})
	if err != nil {
		t.Fatalf("CompleteRoute: %v", err)
	}
	if dto.Status != enums.AssignmentStatusCompleted {
		t.Fatalf("expected completed, got %s", dto.Status)
	}
	payload := publisher.last(t).Data.(payloads.AssignmentCompletedEvent)
	if payload.Forced {
		t.Fatalf("full coverage completion must not be flagged as forced")
	}
}

func TestServiceCompleteRouteStateGuards(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 2)
	ctx := context.Background()

	done := seedAssignment(route, officer.ID, enums.AssignmentStatusCompleted)
	svc := buildAssignmentService(t, newStubAssignmentsRepo(done), &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})
	_, err := svc.CompleteRoute(ctx, CompleteRouteInput{
		AssignmentID: done.ID,
		StationID:    stationID,
		ActorUserID:  officer.ID,
		ActorRole:    enums.SystemRoleOfficer,
	})
	assertAssignmentCode(t, err, pkgerrors.CodeAlreadyCompleted)

	aborted := seedAssignment(route, officer.ID, enums.AssignmentStatusCancelled)
	svc = buildAssignmentService(t, newStubAssignmentsRepo(aborted), &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})
	_, err = svc.CompleteRoute(ctx, CompleteRouteInput{
		AssignmentID: aborted.ID,
		StationID:    stationID,
		ActorUserID:  officer.ID,
		ActorRole:    enums.SystemRoleOfficer,
	})
	assertAssignmentCode(t, err, pkgerrors.CodeStateConflict)
}

func TestServiceCompleteRouteActors(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 1)
	ctx := context.Background()

	t.Run("supervisor can close out another officer's run", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)
		assignment.CompletedCheckpointIDs = dbtypes.UUIDArray{route.CheckpointIDs[0]}
		svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		if _, err := svc.CompleteRoute(ctx, CompleteRouteInput{
			AssignmentID: assignment.ID,
			StationID:    stationID,
			ActorUserID:  uuid.New(),
			ActorRole:    enums.SystemRoleSupervisor,
		}); err != nil {
			t.Fatalf("CompleteRoute as supervisor: %v", err)
		}
	})

	t.Run("another officer cannot", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)
		assignment.CompletedCheckpointIDs = dbtypes.UUIDArray{route.CheckpointIDs[0]}
		svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		_, err := svc.CompleteRoute(ctx, CompleteRouteInput{
			AssignmentID: assignment.ID,
			StationID:    stationID,
			ActorUserID:  uuid.New(),
			ActorRole:    enums.SystemRoleOfficer,
		})
		assertAssignmentCode(t, err, pkgerrors.CodeForbidden)
	})
}

func TestServiceCancelAssignment(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 2)
	assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)

	repo := newStubAssignmentsRepo(assignment)
	publisher := &stubOutboxPublisher{}
	svc := buildAssignmentService(t, repo, publisher,
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})
	ctx := context.Background()

	reason := "storm lockdown"
	dto, err := svc.CancelAssignment(ctx, CancelAssignmentInput{
		AssignmentID: assignment.ID,
		Reason:       &reason,
		StationID:    stationID,
		ActorUserID:  officer.ID,
		ActorRole:    enums.SystemRoleOfficer,
	})
	if err != nil {
		t.Fatalf("CancelAssignment: %v", err)
	}
	if dto.Status != enums.AssignmentStatusCancelled {
		t.Fatalf("expected cancelled, got %s", dto.Status)
	}
	if dto.CancelReason == nil || *dto.CancelReason != reason {
		t.Fatalf("expected cancel reason to be recorded")
	}
	if dto.EndDate == nil {
		t.Fatalf("expected end date to be set")
	}
	stored := repo.assignments[assignment.ID]
	if stored.CancelReason == nil || *stored.CancelReason != reason {
		t.Fatalf("cancel reason was not persisted")
	}

	payload, ok := publisher.last(t).Data.(payloads.AssignmentCancelledEvent)
	if !ok {
		t.Fatalf("unexpected event payload %T", publisher.last(t).Data)
	}
	if payload.Reason != reason {
		t.Fatalf("expected reason in event, got %q", payload.Reason)
	}

	// A second cancel has nothing left to cancel.
	_, err = svc.CancelAssignment(ctx, CancelAssignmentInput{
		AssignmentID: assignment.ID,
		StationID:    stationID,
		ActorUserID:  officer.ID,
		ActorRole:    enums.SystemRoleOfficer,
	})
	assertAssignmentCode(t, err, pkgerrors.CodeStateConflict)
}

func TestServiceDeleteAssignment(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 2)
	ctx := context.Background()

	t.Run("supervisor deletes a pending assignment", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusAssigned)
		repo := newStubAssignmentsRepo(assignment)
		publisher := &stubOutboxPublisher{}
		svc := buildAssignmentService(t, repo, publisher,
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		if err := svc.DeleteAssignment(ctx, DeleteAssignmentInput{
			AssignmentID: assignment.ID,
			StationID:    stationID,
			ActorUserID:  uuid.New(),
			ActorRole:    enums.SystemRoleSupervisor,
		}); err != nil {
			t.Fatalf("DeleteAssignment: %v", err)
		}
		if repo.assignments[assignment.ID].IsActive {
			t.Fatalf("expected a soft delete")
		}
		if len(publisher.events) != 0 {
			t.Fatalf("delete should not emit events")
		}
	})

	t.Run("in progress refuses", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)
		svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		err := svc.DeleteAssignment(ctx, DeleteAssignmentInput{
			AssignmentID: assignment.ID,
			StationID:    stationID,
			ActorUserID:  uuid.New(),
			ActorRole:    enums.SystemRoleSupervisor,
		})
		assertAssignmentCode(t, err, pkgerrors.CodeCannotDeleteInProgress)
	})

	t.Run("officers cannot delete", func(t *testing.T) {
		assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusAssigned)
		svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
			&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
			&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

		err := svc.DeleteAssignment(ctx, DeleteAssignmentInput{
			AssignmentID: assignment.ID,
			StationID:    stationID,
			ActorUserID:  officer.ID,
			ActorRole:    enums.SystemRoleOfficer,
		})
		assertAssignmentCode(t, err, pkgerrors.CodeForbidden)
	})
}

func TestServiceRecordCheckpointCompletion(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 3)
	assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)

	repo := newStubAssignmentsRepo(assignment)
	publisher := &stubOutboxPublisher{}
	svc := buildAssignmentService(t, repo, publisher,
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

	snapshot, err := svc.RecordCheckpointCompletion(context.Background(), &gorm.DB{}, assignment.ID, route.CheckpointIDs[0])
	if err != nil {
		t.Fatalf("RecordCheckpointCompletion: %v", err)
	}
	if snapshot.CompletedCheckpoints != 1 || snapshot.TotalCheckpoints != 3 {
		t.Fatalf("expected 1/3 progress, got %d/%d", snapshot.CompletedCheckpoints, snapshot.TotalCheckpoints)
	}
	if snapshot.AutoCompleted {
		t.Fatalf("partial coverage must not auto-complete")
	}
	if !repo.assignments[assignment.ID].CompletedCheckpointIDs.Contains(route.CheckpointIDs[0]) {
		t.Fatalf("completed checkpoint was not persisted")
	}
	if len(publisher.events) != 0 {
		t.Fatalf("partial progress should not emit events")
	}
}

func TestServiceRecordCheckpointCompletionAutoCompletes(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 3)
	assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)

	repo := newStubAssignmentsRepo(assignment)
	publisher := &stubOutboxPublisher{}
	svc := buildAssignmentService(t, repo, publisher,
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})
	ctx := context.Background()

	// Scans arrive out of route order; that must not matter.
	scanOrder := []uuid.UUID{route.CheckpointIDs[2], route.CheckpointIDs[0], route.CheckpointIDs[1]}
	var snapshot *CompletionSnapshot
	var err error
	for _, checkpointID := range scanOrder {
		snapshot, err = svc.RecordCheckpointCompletion(ctx, &gorm.DB{}, assignment.ID, checkpointID)
		if err != nil {
			t.Fatalf("RecordCheckpointCompletion: %v", err)
		}
	}

	if !snapshot.AutoCompleted {
		t.Fatalf("full coverage should auto-complete the assignment")
	}
	if snapshot.CompletedCheckpoints != 3 || snapshot.TotalCheckpoints != 3 {
		t.Fatalf("expected 3/3 progress, got %d/%d", snapshot.CompletedCheckpoints, snapshot.TotalCheckpoints)
	}
	stored := repo.assignments[assignment.ID]
	if stored.Status != enums.AssignmentStatusCompleted {
		t.Fatalf("expected stored status completed, got %s", stored.Status)
	}
	if stored.EndDate == nil {
		t.Fatalf("expected end date on auto-complete")
	}

	event := publisher.last(t)
	if event.EventType != enums.EventAssignmentCompleted {
		t.Fatalf("expected %s event, got %s", enums.EventAssignmentCompleted, event.EventType)
	}
	payload := event.Data.(payloads.AssignmentCompletedEvent)
	if payload.Forced {
		t.Fatalf("auto-completion is not a forced completion")
	}
	if payload.CompletedCheckpoints != 3 || payload.TotalCheckpoints != 3 {
		t.Fatalf("expected 3/3 in event, got %d/%d", payload.CompletedCheckpoints, payload.TotalCheckpoints)
	}
	if event.Actor == nil || event.Actor.UserID != officer.ID {
		t.Fatalf("expected the patrolling officer as event actor")
	}
}

func TestServiceRecordCheckpointCompletionReplaySafe(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 3)
	assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)
	assignment.CompletedCheckpointIDs = dbtypes.UUIDArray{route.CheckpointIDs[0]}

	repo := newStubAssignmentsRepo(assignment)
	svc := buildAssignmentService(t, repo, &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

	snapshot, err := svc.RecordCheckpointCompletion(context.Background(), &gorm.DB{}, assignment.ID, route.CheckpointIDs[0])
	if err != nil {
		t.Fatalf("RecordCheckpointCompletion: %v", err)
	}
	if snapshot.CompletedCheckpoints != 1 {
		t.Fatalf("replayed append must not double-count, got %d", snapshot.CompletedCheckpoints)
	}
	if len(repo.assignments[assignment.ID].CompletedCheckpointIDs) != 1 {
		t.Fatalf("replayed append must not grow the array")
	}
}

func TestServiceRecordCheckpointCompletionRequiresTx(t *testing.T) {
	stationID := uuid.New()
	officer := seedOfficer(stationID)
	route := seedPatrolRoute(stationID, 1)
	assignment := seedAssignment(route, officer.ID, enums.AssignmentStatusInProgress)

	svc := buildAssignmentService(t, newStubAssignmentsRepo(assignment), &stubOutboxPublisher{},
		&stubUserReader{users: map[uuid.UUID]*models.User{officer.ID: officer}},
		&stubRouteCatalog{routes: map[uuid.UUID]*models.Route{route.ID: route}})

	_, err := svc.RecordCheckpointCompletion(context.Background(), nil, assignment.ID, route.CheckpointIDs[0])
	assertAssignmentCode(t, err, pkgerrors.CodeDependency)
}
