package scans

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
)

// Repository persists checkpoint scan audit rows. Rows are append-only; the
// single update path removes media URIs after the underlying object is gone.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, scan *models.CheckpointScan) (*models.CheckpointScan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckpointScan, error)
	ListByAssignment(ctx context.Context, query ListScansInput) ([]models.CheckpointScan, string, error)
	CountMediaURI(ctx context.Context, uri string) (int64, error)
	ScrubMediaURI(ctx context.Context, uri string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a scans repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, scan *models.CheckpointScan) (*models.CheckpointScan, error) {
	if err := r.db.WithContext(ctx).Create(scan).Error; err != nil {
		return nil, err
	}
	return scan, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckpointScan, error) {
	var scan models.CheckpointScan
	if err := r.db.WithContext(ctx).First(&scan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// ListByAssignment returns an assignment's scans newest first with cursor
// pagination.
func (r *repository) ListByAssignment(ctx context.Context, query ListScansInput) ([]models.CheckpointScan, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.CheckpointScan{}).
		Where("station_id = ? AND route_assignment_id = ?", query.StationID, query.AssignmentID)

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.CheckpointScan
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return rows, nextCursor, nil
}

// CountMediaURI reports how many scans reference the object URI as evidence.
func (r *repository) CountMediaURI(ctx context.Context, uri string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CheckpointScan{}).
		Where("? = ANY(images) OR ? = ANY(videos) OR ? = ANY(audios)", uri, uri, uri).
		Count(&count).Error
	return count, err
}

// ScrubMediaURI removes a deleted object's URI from every scan that
// references it. Used by the media deletion consumer.
func (r *repository) ScrubMediaURI(ctx context.Context, uri string) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE checkpoint_scans
		SET images = array_remove(images, ?),
			videos = array_remove(videos, ?),
			audios = array_remove(audios, ?)
		WHERE ? = ANY(images) OR ? = ANY(videos) OR ? = ANY(audios)
	`, uri, uri, uri, uri, uri, uri)
	return res.RowsAffected, res.Error
}
