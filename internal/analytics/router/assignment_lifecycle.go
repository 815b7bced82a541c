package router

import (
	"context"
	"fmt"

	"github.com/AVGC-lgtm/SmartPatrol/internal/analytics/types"
	analyticswriter "github.com/AVGC-lgtm/SmartPatrol/internal/analytics/writer"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	outboxpayloads "github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// assignmentLifecycleHandler folds every assignment lifecycle event into a
// patrol_events row. The event-specific columns stay null for transitions
// that do not carry them.
type assignmentLifecycleHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newAssignmentLifecycleHandler(writer Writer, logg *logger.Logger) Handler {
	return &assignmentLifecycleHandler{writer: writer, logg: logg}
}

func (h *assignmentLifecycleHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	row, err := buildLifecycleRow(envelope, payload)
	if err != nil {
		h.logg.Error(ctx, "failed to build patrol event row", err)
		return err
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":    envelope.EventType,
		"assignment_id": envelope.AggregateID,
	})
	if err := h.writer.InsertPatrolEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert patrol event row", err)
		return err
	}

	h.logg.Info(logCtx, "assignment lifecycle row inserted")
	return nil
}

func buildLifecycleRow(envelope types.Envelope, payload any) (types.PatrolEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(payload)
	if err != nil {
		return types.PatrolEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	row := types.PatrolEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
		Payload:    payloadJSON,
	}

	switch event := payload.(type) {
	case *outboxpayloads.AssignmentCreatedEvent:
		row.AssignmentID = uuidPtr(event.AssignmentID)
		row.RouteID = uuidPtr(event.RouteID)
		row.UserID = uuidPtr(event.UserID)
		row.StationID = uuidPtr(event.StationID)
		if event.AssignedByUserID != nil {
			row.AssignedByUserID = uuidPtr(*event.AssignedByUserID)
		}
		row.TotalCheckpoints = int64Ptr(int64(event.CheckpointCount))
	case *outboxpayloads.AssignmentStartedEvent:
		row.AssignmentID = uuidPtr(event.AssignmentID)
		row.RouteID = uuidPtr(event.RouteID)
		row.UserID = uuidPtr(event.UserID)
		row.StationID = uuidPtr(event.StationID)
	case *outboxpayloads.AssignmentCompletedEvent:
		row.AssignmentID = uuidPtr(event.AssignmentID)
		row.RouteID = uuidPtr(event.RouteID)
		row.UserID = uuidPtr(event.UserID)
		row.StationID = uuidPtr(event.StationID)
		forced := event.Forced
		row.Forced = &forced
		row.CompletedCheckpoints = int64Ptr(int64(event.CompletedCheckpoints))
		row.TotalCheckpoints = int64Ptr(int64(event.TotalCheckpoints))
	case *outboxpayloads.AssignmentCancelledEvent:
		row.AssignmentID = uuidPtr(event.AssignmentID)
		row.RouteID = uuidPtr(event.RouteID)
		row.UserID = uuidPtr(event.UserID)
		row.StationID = uuidPtr(event.StationID)
		row.CancelReason = stringPtr(event.Reason)
	case *outboxpayloads.AssignmentOverdueEvent:
		row.AssignmentID = uuidPtr(event.AssignmentID)
		row.RouteID = uuidPtr(event.RouteID)
		row.UserID = uuidPtr(event.UserID)
		row.StationID = uuidPtr(event.StationID)
	default:
		return types.PatrolEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}

	return row, nil
}

func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	value := id.String()
	return &value
}
