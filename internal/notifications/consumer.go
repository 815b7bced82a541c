package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/idempotency"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const assignmentNotificationConsumer = "assignment-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns assignment lifecycle transitions into station notifications.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an assignment notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	switch eventType {
	case enums.EventAssignmentCompleted, enums.EventAssignmentCancelled, enums.EventAssignmentOverdue:
	default:
		c.logg.Info(logCtx, "skipping event without a notification")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, assignmentNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, assignmentNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventAssignmentCompleted:
		var payload payloads.AssignmentCompletedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode completed payload: %w", err)
		}
		return c.createCompletedNotification(ctx, payload, logCtx)
	case enums.EventAssignmentCancelled:
		var payload payloads.AssignmentCancelledEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode cancelled payload: %w", err)
		}
		return c.createCancelledNotification(ctx, payload, logCtx)
	case enums.EventAssignmentOverdue:
		var payload payloads.AssignmentOverdueEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode overdue payload: %w", err)
		}
		return c.createOverdueNotification(ctx, payload, logCtx)
	default:
		return fmt.Errorf("event type %s not handled", eventType)
	}
}

func (c *Consumer) createCompletedNotification(ctx context.Context, payload payloads.AssignmentCompletedEvent, logCtx context.Context) error {
	if payload.StationID == uuid.Nil {
		return fmt.Errorf("station id missing")
	}
	assignmentID := payload.AssignmentID.String()
	title := "Patrol completed"
	message := fmt.Sprintf("Patrol %s finished with %d of %d checkpoints scanned.", assignmentID, payload.CompletedCheckpoints, payload.TotalCheckpoints)
	if payload.Forced {
		title = "Patrol force-completed"
		message = fmt.Sprintf("Patrol %s was force-completed with %d of %d checkpoints scanned.", assignmentID, payload.CompletedCheckpoints, payload.TotalCheckpoints)
	}
	notification := &models.Notification{
		StationID: payload.StationID,
		Type:      enums.NotificationTypeAssignmentCompleted,
		Title:     title,
		Message:   message,
		Link:      stringPtr(assignmentLink(payload.AssignmentID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"assignment_id": assignmentID,
		"station_id":    payload.StationID.String(),
	}), "station notified of completed patrol")
	return nil
}

func (c *Consumer) createCancelledNotification(ctx context.Context, payload payloads.AssignmentCancelledEvent, logCtx context.Context) error {
	if payload.StationID == uuid.Nil {
		return fmt.Errorf("station id missing")
	}
	assignmentID := payload.AssignmentID.String()
	message := fmt.Sprintf("Patrol %s was cancelled.", assignmentID)
	if payload.Reason != "" {
		message = fmt.Sprintf("Patrol %s was cancelled. Reason: %s", assignmentID, payload.Reason)
	}
	notification := &models.Notification{
		StationID: payload.StationID,
		Type:      enums.NotificationTypeAssignmentCancelled,
		Title:     "Patrol cancelled",
		Message:   message,
		Link:      stringPtr(assignmentLink(payload.AssignmentID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"assignment_id": assignmentID,
		"station_id":    payload.StationID.String(),
	}), "station notified of cancelled patrol")
	return nil
}

func (c *Consumer) createOverdueNotification(ctx context.Context, payload payloads.AssignmentOverdueEvent, logCtx context.Context) error {
	if payload.StationID == uuid.Nil {
		return fmt.Errorf("station id missing")
	}
	assignmentID := payload.AssignmentID.String()
	started := payload.StartDate.Format("2006-01-02 15:04 MST")
	message := fmt.Sprintf("Patrol %s started %s and has not been completed.", assignmentID, started)
	if payload.Status == enums.AssignmentStatusAssigned {
		message = fmt.Sprintf("Patrol %s was scheduled for %s and was never started.", assignmentID, started)
	}
	notification := &models.Notification{
		StationID: payload.StationID,
		Type:      enums.NotificationTypeAssignmentOverdue,
		Title:     "Patrol overdue",
		Message:   message,
		Link:      stringPtr(assignmentLink(payload.AssignmentID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"assignment_id": assignmentID,
		"station_id":    payload.StationID.String(),
	}), "station notified of overdue patrol")
	return nil
}

func assignmentLink(assignmentID uuid.UUID) string {
	return fmt.Sprintf("/assignments/%s", assignmentID)
}

func stringPtr(value string) *string {
	return &value
}
