package consumer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/AVGC-lgtm/SmartPatrol/internal/media"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
)

const (
	objectFinalizeEvent  = "OBJECT_FINALIZE"
	payloadFormatJSONAPI = "JSON_API_V1"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Consumer processes GCS OBJECT_FINALIZE notifications from Pub/Sub. It is
// the safety net for clients that PUT the object but never call the finalize
// endpoint; both paths race on the same conditional update and the winner
// emits the uploaded event.
type Consumer struct {
	repo         media.Repository
	txRunner     txRunner
	outbox       outboxPublisher
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(repo media.Repository, txRunner txRunner, outboxSvc outboxPublisher, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, errors.New("media repository is required")
	}
	if txRunner == nil {
		return nil, errors.New("tx runner is required")
	}
	if outboxSvc == nil {
		return nil, errors.New("outbox publisher is required")
	}
	if subscription == nil {
		return nil, errors.New("media finalize subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		repo:         repo,
		txRunner:     txRunner,
		outbox:       outboxSvc,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
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
	attrs := parseAttributes(msg.Attributes)
	fields := c.buildLogFields(msg.ID, attrs, nil)
	logCtx := c.logg.WithFields(ctx, fields)
	if attrs.EventType != objectFinalizeEvent {
		c.logg.Info(logCtx, "skipping non-finalize event")
		return processResult{ack: true}
	}
	if attrs.PayloadFormat != payloadFormatJSONAPI {
		c.logg.Warn(logCtx, "unsupported payload format")
		return processResult{ack: true}
	}

	payload, err := decodePayload(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}

	var gcs gcsPayload
	if err := json.Unmarshal(payload, &gcs); err != nil {
		fields := c.buildLogFields(msg.ID, attrs, nil)
		fields["payload_preview"] = previewBytes(payload, 800) // small + safe
		fields["payload_len"] = len(payload)
		logCtx := c.logg.WithFields(ctx, fields)

		c.logg.Error(logCtx, "failed to unmarshal payload", err)
		return processResult{ack: true}
	}

	if strings.TrimSpace(gcs.Name) == "" {
		fields = c.buildLogFields(msg.ID, attrs, &gcs)
		logCtx = c.logg.WithFields(ctx, fields)
		c.logg.Error(logCtx, "payload missing gcs object name", fmt.Errorf("empty name"))
		return processResult{ack: true}
	}

	if attrs.ObjectID != "" && attrs.ObjectID != gcs.Name {
		fields = c.buildLogFields(msg.ID, attrs, &gcs)
		logCtx = c.logg.WithFields(ctx, fields)
		c.logg.Warn(logCtx, "attribute object_id differs from payload name")
	}

	fields = c.buildLogFields(msg.ID, attrs, &gcs)
	logCtx = c.logg.WithFields(ctx, fields)

	mediaRow, err := c.repo.FindByGCSKey(logCtx, gcs.Name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Warn(logCtx, "media row not found")
			return processResult{ack: true}
		}
		return c.handleDBError(logCtx, err)
	}

	fields["media_id"] = mediaRow.ID.String()
	logCtx = c.logg.WithFields(ctx, fields)

	if mediaRow.Status != enums.MediaStatusPending {
		c.logg.Info(logCtx, "media status already handled")
		return processResult{ack: true}
	}

	bucket := firstNonEmpty(gcs.Bucket, attrs.BucketID)
	if bucket == "" {
		c.logg.Error(logCtx, "notification missing bucket", fmt.Errorf("empty bucket"))
		return processResult{ack: true}
	}
	url := gsURI(bucket, gcs.Name)

	uploaded := false
	err = c.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := c.repo.WithTx(tx).MarkUploaded(ctx, mediaRow.ID, url)
		if err != nil {
			return err
		}
		if updated == 0 {
			// The finalize endpoint won; it emitted the event.
			return nil
		}
		uploaded = true
		return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMediaUploaded,
			AggregateType: enums.AggregateMedia,
			AggregateID:   mediaRow.ID,
			Data: payloads.MediaUploadedEvent{
				MediaID:   mediaRow.ID,
				StationID: mediaRow.StationID,
				UserID:    mediaRow.UserID,
				Kind:      mediaRow.Kind,
				GCSKey:    mediaRow.GCSKey,
				SizeBytes: mediaRow.SizeBytes,
			},
			Version: 1,
		})
	})
	if err != nil {
		return c.handleDBError(logCtx, err)
	}

	if !uploaded {
		c.logg.Info(logCtx, "media already marked uploaded")
		return processResult{ack: true}
	}

	c.logg.Info(logCtx, "media marked as uploaded")
	return processResult{ack: true}
}

func (c *Consumer) handleDBError(ctx context.Context, err error) processResult {
	c.logg.Error(ctx, "media persistence error", err)
	if isTransientDBError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) buildLogFields(messageID string, attrs gcsAttributes, payload *gcsPayload) map[string]any {
	fields := map[string]any{
		"message_id": messageID,
		"event_type": attrs.EventType,
		"bucket":     firstNonEmpty(attrs.BucketID, gcsBucket(payload)),
	}
	if payload != nil {
		fields["gcs_key"] = payload.Name
	}
	return fields
}

func gcsBucket(p *gcsPayload) string {
	if p == nil {
		return ""
	}
	return p.Bucket
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func gsURI(bucket, name string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, name)
}

func parseAttributes(attrs map[string]string) gcsAttributes {
	return gcsAttributes{
		EventType:     attrs["eventType"],
		BucketID:      attrs["bucketId"],
		ObjectID:      attrs["objectId"],
		PayloadFormat: attrs["payloadFormat"],
	}
}

type gcsAttributes struct {
	EventType     string
	BucketID      string
	ObjectID      string
	PayloadFormat string
}

type gcsPayload struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

func decodePayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}

func isTransientDBError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func previewBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
