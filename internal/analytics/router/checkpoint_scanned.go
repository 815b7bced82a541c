package router

import (
	"context"
	"fmt"

	"github.com/AVGC-lgtm/SmartPatrol/internal/analytics/types"
	analyticswriter "github.com/AVGC-lgtm/SmartPatrol/internal/analytics/writer"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	outboxpayloads "github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
)

type checkpointScannedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newCheckpointScannedHandler(writer Writer, logg *logger.Logger) Handler {
	return &checkpointScannedHandler{writer: writer, logg: logg}
}

func (h *checkpointScannedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*outboxpayloads.CheckpointScannedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for checkpoint_scanned")
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":    envelope.EventType,
		"scan_id":       event.ScanID,
		"checkpoint_id": event.CheckpointID,
		"assignment_id": event.AssignmentID,
	})

	row, err := buildScanFactRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build scan fact row", err)
		return err
	}

	if err := h.writer.InsertScanFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert scan fact row", err)
		return err
	}

	h.logg.Info(logCtx, "checkpoint_scanned handler inserted scan fact row")
	return nil
}

func buildScanFactRow(envelope types.Envelope, event *outboxpayloads.CheckpointScannedEvent) (types.ScanFactRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return types.ScanFactRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	return types.ScanFactRow{
		EventID:              envelope.EventID,
		OccurredAt:           envelope.OccurredAt,
		ScanID:               event.ScanID.String(),
		AssignmentID:         event.AssignmentID.String(),
		CheckpointID:         event.CheckpointID.String(),
		RouteID:              uuidPtr(event.RouteID),
		UserID:               uuidPtr(event.UserID),
		StationID:            uuidPtr(event.StationID),
		ScannedAt:            event.ScannedAt,
		DistanceM:            event.DistanceM,
		WithinRadius:         event.WithinRadius,
		CompletedCheckpoints: int64Ptr(int64(event.CompletedCheckpoints)),
		TotalCheckpoints:     int64Ptr(int64(event.TotalCheckpoints)),
		Payload:              payloadJSON,
	}, nil
}
