package scans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AVGC-lgtm/SmartPatrol/internal/assignments"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	dbpkg "github.com/AVGC-lgtm/SmartPatrol/pkg/db"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/geo"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/metrics"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/qr"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

const (
	defaultScanRadiusM = 100.0

	outcomeAccepted = "accepted"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type checkpointSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Checkpoint, error)
}

type routeSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Route, error)
}

type assignmentSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.RouteAssignment, error)
}

// completionRecorder folds a verified scan into the assignment inside the
// scan's transaction. Implemented by the assignments service.
type completionRecorder interface {
	RecordCheckpointCompletion(ctx context.Context, tx *gorm.DB, assignmentID, checkpointID uuid.UUID) (*assignments.CompletionSnapshot, error)
}

// evidenceResolver turns uploaded media ids into URI groups. Any failure
// aborts the scan before a row is written.
type evidenceResolver interface {
	ResolveForScan(ctx context.Context, stationID, userID uuid.UUID, mediaIDs []uuid.UUID) (*ScanEvidence, error)
}

// Service verifies and records checkpoint scans.
type Service interface {
	VerifyAndRecord(ctx context.Context, input RecordScanInput) (*ScanResult, error)
	ListByAssignment(ctx context.Context, input ListScansInput) (*ScanListResult, error)
}

// RecordScanInput carries one scan attempt. RouteID is an optional client
// cross-check; the assignment's route is authoritative.
type RecordScanInput struct {
	QRPayload    string
	Position     types.LatLng
	AssignmentID uuid.UUID
	RouteID      *uuid.UUID
	MediaIDs     []uuid.UUID
	Notes        *string
	Metadata     types.JSONMap
	StationID    uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    enums.SystemRole
}

// ServiceParams wires the verifier's collaborators.
type ServiceParams struct {
	Repo        Repository
	TxRunner    txRunner
	Outbox      outboxPublisher
	Checkpoints checkpointSource
	Routes      routeSource
	Assignments assignmentSource
	Recorder    completionRecorder
	Evidence    evidenceResolver
	Metrics     *metrics.ScanMetrics
	Patrol      config.PatrolConfig
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	checkpoints checkpointSource
	routes      routeSource
	assignments assignmentSource
	recorder    completionRecorder
	evidence    evidenceResolver
	metrics     *metrics.ScanMetrics
	radiusM     float64
}

// NewService builds the scan verifier.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("scans repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Checkpoints == nil {
		return nil, fmt.Errorf("checkpoint source required")
	}
	if params.Routes == nil {
		return nil, fmt.Errorf("route source required")
	}
	if params.Assignments == nil {
		return nil, fmt.Errorf("assignment source required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("completion recorder required")
	}
	if params.Evidence == nil {
		return nil, fmt.Errorf("evidence resolver required")
	}

	radius := params.Patrol.DefaultScanRadiusM
	if radius <= 0 {
		radius = defaultScanRadiusM
	}

	return &service{
		repo:        params.Repo,
		tx:          params.TxRunner,
		outbox:      params.Outbox,
		checkpoints: params.Checkpoints,
		routes:      params.Routes,
		assignments: params.Assignments,
		recorder:    params.Recorder,
		evidence:    params.Evidence,
		metrics:     params.Metrics,
		radiusM:     radius,
	}, nil
}

// VerifyAndRecord runs the scan checks in their fixed order, persists the
// audit row and the assignment progress in one transaction, and reports the
// outcome to metrics.
func (s *service) VerifyAndRecord(ctx context.Context, input RecordScanInput) (*ScanResult, error) {
	result, err := s.verifyAndRecord(ctx, input)
	if err != nil {
		s.metrics.IncOutcome(outcomeLabel(err))
		return nil, err
	}
	s.metrics.IncOutcome(outcomeAccepted)
	s.metrics.ObserveDistance(result.Scan.DistanceM)
	return result, nil
}

func (s *service) verifyAndRecord(ctx context.Context, input RecordScanInput) (*ScanResult, error) {
	if input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "station context missing")
	}

	if err := geo.Validate(input.Position); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidPosition, err, "scan position invalid")
	}

	payload, err := qr.Decode(input.QRPayload)
	if err != nil {
		return nil, err
	}

	checkpoint, err := s.loadScannableCheckpoint(ctx, input.StationID, payload)
	if err != nil {
		return nil, err
	}

	distance, err := geo.Distance(input.Position, checkpoint.Coordinates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkpoint coordinates unusable")
	}
	radius := checkpoint.EffectiveRadiusM(s.radiusM)
	if distance > radius {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfRange, "scan position outside checkpoint radius").
			WithDetails(map[string]any{
				"distance_m":       distance,
				"allowed_radius_m": radius,
			})
	}

	assignment, err := s.loadScannableAssignment(ctx, input)
	if err != nil {
		return nil, err
	}
	if input.RouteID != nil && *input.RouteID != assignment.RouteID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "route id does not match assignment")
	}

	route, err := s.routes.FindByID(ctx, assignment.RouteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeRouteNotFound, "route not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
	}

	if !route.CheckpointIDs.Contains(checkpoint.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeCheckpointNotInRoute, "checkpoint is not part of the assignment's route").
			WithDetails(map[string]any{
				"checkpoint_id": checkpoint.ID,
				"route_id":      route.ID,
			})
	}

	if assignment.CompletedCheckpointIDs.Contains(checkpoint.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyScanned, "checkpoint already scanned for this assignment").
			WithDetails(map[string]any{"checkpoint_id": checkpoint.ID})
	}

	// Evidence is resolved before anything is written; a missing or failed
	// upload aborts the whole scan.
	evidence := &ScanEvidence{}
	if len(input.MediaIDs) > 0 {
		evidence, err = s.evidence.ResolveForScan(ctx, input.StationID, input.ActorUserID, input.MediaIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeMediaUpload, err, "resolve scan evidence")
		}
	}

	now := time.Now().UTC()
	var created *models.CheckpointScan
	var snapshot *assignments.CompletionSnapshot
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		scan := &models.CheckpointScan{
			StationID:         input.StationID,
			UserID:            input.ActorUserID,
			CheckpointID:      checkpoint.ID,
			RouteID:           assignment.RouteID,
			RouteAssignmentID: assignment.ID,
			ScannedAt:         now,
			Position:          input.Position,
			DistanceM:         distance,
			WithinRadius:      true,
			Notes:             input.Notes,
			Images:            evidence.Images,
			Videos:            evidence.Videos,
			Audios:            evidence.Audios,
			Metadata:          input.Metadata,
		}

		created, err = repo.Create(ctx, scan)
		if err != nil {
			// Concurrent duplicate of the same checkpoint loses here.
			if dbpkg.IsUniqueViolation(err, "ux_checkpoint_scans_assignment_checkpoint") {
				return pkgerrors.New(pkgerrors.CodeAlreadyScanned, "checkpoint already scanned for this assignment").
					WithDetails(map[string]any{"checkpoint_id": checkpoint.ID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert scan")
		}

		snapshot, err = s.recorder.RecordCheckpointCompletion(ctx, tx, assignment.ID, checkpoint.ID)
		if err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCheckpointScanned,
			AggregateType: enums.AggregateRouteAssignment,
			AggregateID:   assignment.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID:    input.ActorUserID,
				StationID: &input.StationID,
				Role:      input.ActorRole.String(),
			},
			Data: payloads.CheckpointScannedEvent{
				ScanID:               created.ID,
				AssignmentID:         assignment.ID,
				CheckpointID:         checkpoint.ID,
				RouteID:              assignment.RouteID,
				UserID:               input.ActorUserID,
				StationID:            input.StationID,
				ScannedAt:            now,
				DistanceM:            distance,
				WithinRadius:         true,
				CompletedCheckpoints: snapshot.CompletedCheckpoints,
				TotalCheckpoints:     snapshot.TotalCheckpoints,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	return buildScanResult(created, snapshot, route.CheckpointIDs), nil
}

// ListByAssignment returns the audit trail for one assignment the caller's
// station owns.
func (s *service) ListByAssignment(ctx context.Context, input ListScansInput) (*ScanListResult, error) {
	if input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}

	assignment, err := s.assignments.FindByID(ctx, input.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	if assignment.StationID != input.StationID || !assignment.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}

	rows, nextCursor, err := s.repo.ListByAssignment(ctx, input)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list scans")
	}

	dtos := make([]ScanDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return &ScanListResult{Scans: dtos, NextCursor: nextCursor}, nil
}

// loadScannableCheckpoint resolves the QR payload to a live checkpoint the
// station owns. Stale label generations are refused.
func (s *service) loadScannableCheckpoint(ctx context.Context, stationID uuid.UUID, payload qr.Payload) (*models.Checkpoint, error) {
	checkpoint, err := s.checkpoints.FindByID(ctx, payload.CheckpointID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeCheckpointNotFound, "checkpoint not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkpoint")
	}
	if checkpoint.StationID != stationID || !checkpoint.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeCheckpointNotFound, "checkpoint not found")
	}
	if payload.QRCodeID != uuid.Nil && payload.QRCodeID != checkpoint.QRCodeID {
		return nil, pkgerrors.New(pkgerrors.CodeCheckpointNotFound, "checkpoint not found").
			WithDetails(map[string]any{"reason": "stale qr label"})
	}
	return checkpoint, nil
}

// loadScannableAssignment enforces ownership and the in_progress status; any
// miss reports the same no-active-assignment code.
func (s *service) loadScannableAssignment(ctx context.Context, input RecordScanInput) (*models.RouteAssignment, error) {
	assignment, err := s.assignments.FindByID(ctx, input.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNoActiveAssignment, "no active assignment for this scan")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	if assignment.StationID != input.StationID || assignment.UserID != input.ActorUserID || !assignment.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveAssignment, "no active assignment for this scan")
	}
	if assignment.Status != enums.AssignmentStatusInProgress {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveAssignment, "no active assignment for this scan").
			WithDetails(map[string]any{"current_status": assignment.Status})
	}
	return assignment, nil
}

func buildScanResult(scan *models.CheckpointScan, snapshot *assignments.CompletionSnapshot, routeCheckpoints []uuid.UUID) *ScanResult {
	completed := make(map[uuid.UUID]struct{}, len(snapshot.Assignment.CompletedCheckpointIDs))
	for _, id := range snapshot.Assignment.CompletedCheckpointIDs {
		completed[id] = struct{}{}
	}
	remaining := make([]uuid.UUID, 0, len(routeCheckpoints))
	for _, id := range routeCheckpoints {
		if _, ok := completed[id]; !ok {
			remaining = append(remaining, id)
		}
	}

	percent := 0.0
	if snapshot.TotalCheckpoints > 0 {
		percent = math.Round(float64(snapshot.CompletedCheckpoints)/float64(snapshot.TotalCheckpoints)*1000) / 10
	}

	return &ScanResult{
		Scan:                   *FromModel(scan),
		AssignmentStatus:       snapshot.Assignment.Status,
		TotalCheckpoints:       snapshot.TotalCheckpoints,
		CompletedCheckpoints:   snapshot.CompletedCheckpoints,
		CompletionPercent:      percent,
		RemainingCheckpointIDs: remaining,
		AutoCompleted:          snapshot.AutoCompleted,
	}
}

func outcomeLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return "internal"
}
