package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
)

const (
	objectDeleteEvent = "OBJECT_DELETE"
)

type deletionRepository interface {
	FindByGCSKey(ctx context.Context, gcsKey string) (*models.Media, error)
	MarkDeleted(ctx context.Context, id uuid.UUID) (int64, error)
}

// scanScrubber removes a dead object URI from scan evidence arrays.
// Implemented by the scans repository.
type scanScrubber interface {
	ScrubMediaURI(ctx context.Context, uri string) (int64, error)
}

// DeletionConsumer watches Pub/Sub for GCS OBJECT_DELETE notifications,
// scrubs the dead URI out of scan evidence and tombstones the media row.
// It covers objects removed outside the API, e.g. by bucket lifecycle rules.
type DeletionConsumer struct {
	repo         deletionRepository
	scans        scanScrubber
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewDeletionConsumer wires the dependencies required for media cleanup.
func NewDeletionConsumer(repo deletionRepository, scans scanScrubber, subscription *pubsub.Subscriber, logg *logger.Logger) (*DeletionConsumer, error) {
	if repo == nil {
		return nil, errors.New("media repository is required")
	}
	if scans == nil {
		return nil, errors.New("scan scrubber is required")
	}
	if subscription == nil {
		return nil, errors.New("media deletion subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &DeletionConsumer{
		repo:         repo,
		scans:        scans,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes deletion notifications until the context is canceled.
func (c *DeletionConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *DeletionConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	attrs := parseAttributes(msg.Attributes)
	fields := c.buildLogFields(msg.ID, attrs, nil)
	logCtx := c.logg.WithFields(ctx, fields)

	if attrs.EventType != objectDeleteEvent {
		c.logg.Info(logCtx, "skipping non-delete event")
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
		fields = c.buildLogFields(msg.ID, attrs, nil)
		fields["payload_preview"] = previewBytes(payload, 800)
		fields["payload_len"] = len(payload)
		logCtx = c.logg.WithFields(ctx, fields)
		c.logg.Error(logCtx, "failed to unmarshal payload", err)
		return processResult{ack: true}
	}

	if gcs.Name == "" {
		fields = c.buildLogFields(msg.ID, attrs, &gcs)
		logCtx = c.logg.WithFields(ctx, fields)
		c.logg.Error(logCtx, "payload missing gcs object name", fmt.Errorf("empty name"))
		return processResult{ack: true}
	}

	fields = c.buildLogFields(msg.ID, attrs, &gcs)
	logCtx = c.logg.WithFields(ctx, fields)

	mediaRow, err := c.repo.FindByGCSKey(logCtx, gcs.Name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The API delete path removes the row before the notification
			// lands.
			c.logg.Info(logCtx, "media not found for deletion event")
			return processResult{ack: true}
		}
		return c.handleDBError(logCtx, err)
	}

	fields["media_id"] = mediaRow.ID.String()
	logCtx = c.logg.WithFields(ctx, fields)

	uri := gsURI(firstNonEmpty(gcs.Bucket, attrs.BucketID), gcs.Name)
	if mediaRow.URL != nil && *mediaRow.URL != "" {
		uri = *mediaRow.URL
	}

	scrubbed, err := c.scans.ScrubMediaURI(ctx, uri)
	if err != nil {
		return c.handleDBError(logCtx, err)
	}

	if _, err := c.repo.MarkDeleted(ctx, mediaRow.ID); err != nil {
		return c.handleDBError(logCtx, err)
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{"scrubbed_scans": scrubbed})
	c.logg.Info(logCtx, "processed media deletion event")
	return processResult{ack: true}
}

func (c *DeletionConsumer) handleDBError(ctx context.Context, err error) processResult {
	c.logg.Error(ctx, "media deletion db error", err)
	if isTransientDBError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *DeletionConsumer) buildLogFields(messageID string, attrs gcsAttributes, payload *gcsPayload) map[string]any {
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
