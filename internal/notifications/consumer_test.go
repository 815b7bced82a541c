package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/idempotency"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
	"github.com/google/uuid"
)

type stubNotificationRepo struct {
	created   []*models.Notification
	createErr error
}

func (s *stubNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, notification)
	return nil
}

type fakeIdempotencyStore struct {
	setNXResult bool
	setNXErr    error
	setNXCalls  int
	deleted     []string
}

func (f *fakeIdempotencyStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.setNXCalls++
	return f.setNXResult, f.setNXErr
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sp:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	return nil
}

func newNotificationConsumer(t *testing.T, repo *stubNotificationRepo, store *fakeIdempotencyStore) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	consumer, err := NewConsumer(repo, &pubsub.Subscriber{}, manager, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return consumer
}

func buildEventMessage(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         "msg-1",
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestConsumer_CreatesAssignmentNotifications(t *testing.T) {
	stationID := uuid.New()
	assignmentID := uuid.New()

	cases := []struct {
		name        string
		eventType   enums.OutboxEventType
		payload     any
		wantType    enums.NotificationType
		wantTitle   string
		wantMessage string
	}{
		{
			name:      "completed",
			eventType: enums.EventAssignmentCompleted,
			payload: payloads.AssignmentCompletedEvent{
				AssignmentID:         assignmentID,
				RouteID:              uuid.New(),
				UserID:               uuid.New(),
				StationID:            stationID,
				CompletedAt:          time.Now().UTC(),
				CompletedCheckpoints: 4,
				TotalCheckpoints:     5,
			},
			wantType:    enums.NotificationTypeAssignmentCompleted,
			wantTitle:   "Patrol completed",
			wantMessage: "finished with 4 of 5 checkpoints",
		},
		{
			name:      "force completed",
			eventType: enums.EventAssignmentCompleted,
			payload: payloads.AssignmentCompletedEvent{
				AssignmentID:         assignmentID,
				StationID:            stationID,
				Forced:               true,
				CompletedCheckpoints: 2,
				TotalCheckpoints:     5,
			},
			wantType:    enums.NotificationTypeAssignmentCompleted,
			wantTitle:   "Patrol force-completed",
			wantMessage: "force-completed with 2 of 5 checkpoints",
		},
		{
			name:      "cancelled with reason",
			eventType: enums.EventAssignmentCancelled,
			payload: payloads.AssignmentCancelledEvent{
				AssignmentID: assignmentID,
				StationID:    stationID,
				CancelledAt:  time.Now().UTC(),
				Reason:       "storm warning",
			},
			wantType:    enums.NotificationTypeAssignmentCancelled,
			wantTitle:   "Patrol cancelled",
			wantMessage: "Reason: storm warning",
		},
		{
			name:      "cancelled without reason",
			eventType: enums.EventAssignmentCancelled,
			payload: payloads.AssignmentCancelledEvent{
				AssignmentID: assignmentID,
				StationID:    stationID,
			},
			wantType:    enums.NotificationTypeAssignmentCancelled,
			wantTitle:   "Patrol cancelled",
			wantMessage: "was cancelled.",
		},
		{
			name:      "overdue in progress",
			eventType: enums.EventAssignmentOverdue,
			payload: payloads.AssignmentOverdueEvent{
				AssignmentID: assignmentID,
				StationID:    stationID,
				Status:       enums.AssignmentStatusInProgress,
				StartDate:    time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC),
			},
			wantType:    enums.NotificationTypeAssignmentOverdue,
			wantTitle:   "Patrol overdue",
			wantMessage: "has not been completed",
		},
		{
			name:      "overdue never started",
			eventType: enums.EventAssignmentOverdue,
			payload: payloads.AssignmentOverdueEvent{
				AssignmentID: assignmentID,
				StationID:    stationID,
				Status:       enums.AssignmentStatusAssigned,
				StartDate:    time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC),
			},
			wantType:    enums.NotificationTypeAssignmentOverdue,
			wantTitle:   "Patrol overdue",
			wantMessage: "was never started",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubNotificationRepo{}
			store := &fakeIdempotencyStore{setNXResult: true}
			consumer := newNotificationConsumer(t, repo, store)

			msg := buildEventMessage(t, tc.eventType, uuid.New(), tc.payload)
			result := consumer.process(context.Background(), msg)
			if !result.ack || result.nack {
				t.Fatalf("expected ack, got %+v", result)
			}
			if len(repo.created) != 1 {
				t.Fatalf("expected 1 notification, got %d", len(repo.created))
			}

			created := repo.created[0]
			if created.StationID != stationID {
				t.Fatalf("unexpected station id %s", created.StationID)
			}
			if created.Type != tc.wantType {
				t.Fatalf("expected type %s got %s", tc.wantType, created.Type)
			}
			if created.Title != tc.wantTitle {
				t.Fatalf("expected title %q got %q", tc.wantTitle, created.Title)
			}
			if !strings.Contains(created.Message, tc.wantMessage) {
				t.Fatalf("expected message to contain %q, got %q", tc.wantMessage, created.Message)
			}
			if created.Link == nil || *created.Link != "/assignments/"+assignmentID.String() {
				t.Fatalf("unexpected link %v", created.Link)
			}
		})
	}
}

func TestConsumer_SkipsUnrelatedEvents(t *testing.T) {
	for _, eventType := range []enums.OutboxEventType{
		enums.EventAssignmentCreated,
		enums.EventAssignmentStarted,
		enums.EventCheckpointScanned,
		enums.EventMediaUploaded,
	} {
		repo := &stubNotificationRepo{}
		store := &fakeIdempotencyStore{setNXResult: true}
		consumer := newNotificationConsumer(t, repo, store)

		msg := buildEventMessage(t, eventType, uuid.New(), map[string]string{"ignored": "yes"})
		result := consumer.process(context.Background(), msg)
		if !result.ack {
			t.Fatalf("expected ack for %s", eventType)
		}
		if len(repo.created) != 0 {
			t.Fatalf("expected no notifications for %s", eventType)
		}
		if store.setNXCalls != 0 {
			t.Fatalf("expected no idempotency reservation for %s", eventType)
		}
	}
}

func TestConsumer_SkipsProcessedEvent(t *testing.T) {
	repo := &stubNotificationRepo{}
	store := &fakeIdempotencyStore{setNXResult: false}
	consumer := newNotificationConsumer(t, repo, store)

	msg := buildEventMessage(t, enums.EventAssignmentCompleted, uuid.New(), payloads.AssignmentCompletedEvent{
		AssignmentID: uuid.New(),
		StationID:    uuid.New(),
	})
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no duplicate notification, got %d", len(repo.created))
	}
}

func TestConsumer_NacksWhenIdempotencyUnavailable(t *testing.T) {
	repo := &stubNotificationRepo{}
	store := &fakeIdempotencyStore{setNXErr: errors.New("redis down")}
	consumer := newNotificationConsumer(t, repo, store)

	msg := buildEventMessage(t, enums.EventAssignmentCancelled, uuid.New(), payloads.AssignmentCancelledEvent{
		AssignmentID: uuid.New(),
		StationID:    uuid.New(),
	})
	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack, got %+v", result)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no notification when guard is unavailable")
	}
}

func TestConsumer_ReleasesGuardOnCreateFailure(t *testing.T) {
	repo := &stubNotificationRepo{createErr: errors.New("insert failed")}
	store := &fakeIdempotencyStore{setNXResult: true}
	consumer := newNotificationConsumer(t, repo, store)

	eventID := uuid.New()
	msg := buildEventMessage(t, enums.EventAssignmentOverdue, eventID, payloads.AssignmentOverdueEvent{
		AssignmentID: uuid.New(),
		StationID:    uuid.New(),
		Status:       enums.AssignmentStatusInProgress,
		StartDate:    time.Now().UTC(),
	})
	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack, got %+v", result)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected guard release, got %d deletes", len(store.deleted))
	}
	if !strings.Contains(store.deleted[0], eventID.String()) {
		t.Fatalf("expected deleted key for event %s, got %q", eventID, store.deleted[0])
	}
}

func TestConsumer_AcksMalformedEnvelope(t *testing.T) {
	repo := &stubNotificationRepo{}
	store := &fakeIdempotencyStore{setNXResult: true}
	consumer := newNotificationConsumer(t, repo, store)

	msg := &pubsub.Message{
		ID:         "msg-1",
		Data:       []byte("%%%not-json%%%"),
		Attributes: map[string]string{"event_type": string(enums.EventAssignmentCompleted)},
	}
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected ack for poison envelope, got %+v", result)
	}
	if store.setNXCalls != 0 {
		t.Fatal("expected no idempotency reservation for poison envelope")
	}
	if len(repo.created) != 0 {
		t.Fatal("expected no notification for poison envelope")
	}
}

func TestConsumer_NacksMalformedPayload(t *testing.T) {
	repo := &stubNotificationRepo{}
	store := &fakeIdempotencyStore{setNXResult: true}
	consumer := newNotificationConsumer(t, repo, store)

	msg := buildEventMessage(t, enums.EventAssignmentCompleted, uuid.New(), "not-an-object")
	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack, got %+v", result)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected guard release before redelivery, got %d deletes", len(store.deleted))
	}
}

func TestConsumer_RejectsMissingStation(t *testing.T) {
	repo := &stubNotificationRepo{}
	store := &fakeIdempotencyStore{setNXResult: true}
	consumer := newNotificationConsumer(t, repo, store)

	msg := buildEventMessage(t, enums.EventAssignmentCompleted, uuid.New(), payloads.AssignmentCompletedEvent{
		AssignmentID: uuid.New(),
	})
	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack, got %+v", result)
	}
	if len(repo.created) != 0 {
		t.Fatal("expected no notification without a station id")
	}
}
