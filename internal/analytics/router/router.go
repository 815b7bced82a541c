package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AVGC-lgtm/SmartPatrol/internal/analytics/types"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	outboxpayloads "github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertPatrolEvent(ctx context.Context, row types.PatrolEventRow) error
	InsertScanFact(ctx context.Context, row types.ScanFactRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type handlerEntry struct {
	factory func() any
	handler Handler
}

// Router dispatches analytics envelopes to the configured handler per event type.
type Router struct {
	handlers map[enums.AnalyticsEventType]handlerEntry
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.AnalyticsEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	lifecycle := newAssignmentLifecycleHandler(writer, logg)
	entries := map[enums.AnalyticsEventType]handlerEntry{
		enums.AnalyticsEventAssignmentCreated: {
			factory: func() any { return &outboxpayloads.AssignmentCreatedEvent{} },
			handler: lifecycle,
		},
		enums.AnalyticsEventAssignmentStarted: {
			factory: func() any { return &outboxpayloads.AssignmentStartedEvent{} },
			handler: lifecycle,
		},
		enums.AnalyticsEventAssignmentCompleted: {
			factory: func() any { return &outboxpayloads.AssignmentCompletedEvent{} },
			handler: lifecycle,
		},
		enums.AnalyticsEventAssignmentCancelled: {
			factory: func() any { return &outboxpayloads.AssignmentCancelledEvent{} },
			handler: lifecycle,
		},
		enums.AnalyticsEventAssignmentOverdue: {
			factory: func() any { return &outboxpayloads.AssignmentOverdueEvent{} },
			handler: lifecycle,
		},
		enums.AnalyticsEventCheckpointScanned: {
			factory: func() any { return &outboxpayloads.CheckpointScannedEvent{} },
			handler: newCheckpointScannedHandler(writer, logg),
		},
	}

	for event, custom := range overrides {
		entry, ok := entries[event]
		if !ok || custom == nil {
			continue
		}
		entry.handler = custom
		entries[event] = entry
	}

	return &Router{
		handlers: entries,
		logg:     logg,
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	entry, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	payload := entry.factory()
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}

	return entry.handler.Handle(ctx, envelope, payload)
}
