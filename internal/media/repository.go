package media

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
)

// Repository persists media upload metadata. Status changes are conditional
// updates so the API finalize path and the GCS notification consumer can race
// safely.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Media, error)
	FindByGCSKey(ctx context.Context, gcsKey string) (*models.Media, error)
	MarkUploaded(ctx context.Context, id uuid.UUID, url string) (int64, error)
	MarkDeleted(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, query MediaListQuery) ([]models.Media, string, error)
	FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Media, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a media repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, media *models.Media) (*models.Media, error) {
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var m models.Media
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Media
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByGCSKey(ctx context.Context, gcsKey string) (*models.Media, error) {
	var m models.Media
	if err := r.db.WithContext(ctx).First(&m, "gcs_key = ?", gcsKey).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkUploaded flips a pending row to uploaded and records the object URI.
// Rows in any other state are left alone.
func (r *repository) MarkUploaded(ctx context.Context, id uuid.UUID, url string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ? AND status = ?", id, enums.MediaStatusPending).
		Updates(map[string]any{
			"status": enums.MediaStatusUploaded,
			"url":    url,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkDeleted(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ? AND status <> ?", id, enums.MediaStatusDeleted).
		Update("status", enums.MediaStatusDeleted)
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Media{}).Error
}

// List pages through a station's media newest first.
func (r *repository) List(ctx context.Context, query MediaListQuery) ([]models.Media, string, error) {
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
		Model(&models.Media{}).
		Where("station_id = ?", query.StationID)

	if query.UserID != uuid.Nil {
		qb = qb.Where("user_id = ?", query.UserID)
	}
	if query.Kind != nil {
		qb = qb.Where("kind = ?", *query.Kind)
	}
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Media
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

// FindStalePending returns presigned rows that never finished uploading.
// Used by the cleanup job.
func (r *repository) FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Media, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Media
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.MediaStatusPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
