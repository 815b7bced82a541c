package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const defaultOverdueAfter = 48 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxOnceEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type staleAssignmentsReader interface {
	FindStaleAssigned(ctx context.Context, before time.Time) ([]models.RouteAssignment, error)
}

// OverdueAssignmentsJobParams configures the overdue patrol sweep.
type OverdueAssignmentsJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Assignments  staleAssignmentsReader
	Outbox       outboxOnceEmitter
	OverdueAfter time.Duration
}

// NewOverdueAssignmentsJob builds the job that flags assignments stuck in
// `assigned` past the configured window. The assignment row itself is left
// untouched; downstream consumers decide what an overdue patrol means.
func NewOverdueAssignmentsJob(params OverdueAssignmentsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Assignments == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	overdueAfter := params.OverdueAfter
	if overdueAfter <= 0 {
		overdueAfter = defaultOverdueAfter
	}
	return &overdueAssignmentsJob{
		logg:         params.Logger,
		db:           params.DB,
		assignments:  params.Assignments,
		outbox:       params.Outbox,
		overdueAfter: overdueAfter,
		now:          time.Now,
	}, nil
}

type overdueAssignmentsJob struct {
	logg         *logger.Logger
	db           txRunner
	assignments  staleAssignmentsReader
	outbox       outboxOnceEmitter
	overdueAfter time.Duration
	now          func() time.Time
}

func (j *overdueAssignmentsJob) Name() string { return "overdue-assignments" }

func (j *overdueAssignmentsJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.overdueAfter)
	rows, err := j.assignments.FindStaleAssigned(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale assignments: %w", err)
	}

	var errs []error
	count := 0
	for _, assignment := range rows {
		if err := j.flagOverdue(ctx, assignment); err != nil {
			errs = append(errs, fmt.Errorf("flag assignment %s: %w", assignment.ID, err))
			continue
		}
		count++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"overdue_after": j.overdueAfter.String(),
		"count":         count,
	})
	j.logg.Info(logCtx, "overdue assignment sweep complete")
	return multierr.Combine(errs...)
}

// flagOverdue emits at most one overdue event per assignment; re-runs find
// the earlier row and skip.
func (j *overdueAssignmentsJob) flagOverdue(ctx context.Context, assignment models.RouteAssignment) error {
	detectedAt := j.now().UTC()
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.EventAssignmentOverdue,
			AggregateType: enums.AggregateRouteAssignment,
			AggregateID:   assignment.ID,
			Version:       1,
			OccurredAt:    detectedAt,
			Data: payloads.AssignmentOverdueEvent{
				AssignmentID: assignment.ID,
				RouteID:      assignment.RouteID,
				UserID:       assignment.UserID,
				StationID:    assignment.StationID,
				Status:       assignment.Status,
				StartDate:    assignment.StartDate,
				DetectedAt:   detectedAt,
			},
		}
		return j.outbox.EmitIfNotExists(ctx, tx, event)
	})
}
