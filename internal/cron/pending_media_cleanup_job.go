package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultPendingMediaTTL   = 24 * time.Hour
	defaultPendingMediaBatch = 200
)

type pendingMediaRepo interface {
	FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type mediaObjectDeleter interface {
	DeleteObject(ctx context.Context, bucket, object string) error
}

// PendingMediaCleanupJobParams configures the abandoned-upload sweep.
type PendingMediaCleanupJobParams struct {
	Logger    *logger.Logger
	Media     pendingMediaRepo
	Storage   mediaObjectDeleter
	Bucket    string
	TTL       time.Duration
	BatchSize int
}

// NewPendingMediaCleanupJob builds the job that removes media rows still
// pending past the TTL. Presign grants expire well inside the TTL, so a row
// this old can no longer be finalized.
func NewPendingMediaCleanupJob(params PendingMediaCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage client required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingMediaTTL
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultPendingMediaBatch
	}
	return &pendingMediaCleanupJob{
		logg:      params.Logger,
		media:     params.Media,
		storage:   params.Storage,
		bucket:    params.Bucket,
		ttl:       ttl,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type pendingMediaCleanupJob struct {
	logg      *logger.Logger
	media     pendingMediaRepo
	storage   mediaObjectDeleter
	bucket    string
	ttl       time.Duration
	batchSize int
	now       func() time.Time
}

func (j *pendingMediaCleanupJob) Name() string { return "pending-media-cleanup" }

func (j *pendingMediaCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	rows, err := j.media.FindStalePending(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query stale pending media: %w", err)
	}

	var errs []error
	deleted := 0
	for _, row := range rows {
		if err := j.cleanupRow(ctx, row); err != nil {
			errs = append(errs, fmt.Errorf("cleanup media %s: %w", row.ID, err))
			continue
		}
		deleted++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"ttl":          j.ttl.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "pending media cleanup complete")
	return multierr.Combine(errs...)
}

// cleanupRow removes the object before the row. Most pending rows were never
// uploaded at all; the object delete treats missing objects as success.
func (j *pendingMediaCleanupJob) cleanupRow(ctx context.Context, row models.Media) error {
	if err := j.storage.DeleteObject(ctx, j.bucket, row.GCSKey); err != nil {
		return fmt.Errorf("delete object %s: %w", row.GCSKey, err)
	}
	if err := j.media.Delete(ctx, row.ID); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	return nil
}
