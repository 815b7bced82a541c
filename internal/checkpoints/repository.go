package checkpoints

import (
	"context"
	"strings"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wires together checkpoint persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new checkpoint row.
func (r *Repository) Create(ctx context.Context, checkpoint *models.Checkpoint) (*models.Checkpoint, error) {
	if err := r.db.WithContext(ctx).Create(checkpoint).Error; err != nil {
		return nil, err
	}
	return checkpoint, nil
}

// FindByID loads the checkpoint without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Checkpoint, error) {
	var checkpoint models.Checkpoint
	if err := r.db.WithContext(ctx).First(&checkpoint, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

// FindAllByIDs loads every checkpoint in ids. Missing IDs simply do not
// appear in the result; callers decide whether that is an error.
func (r *Repository) FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Checkpoint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Checkpoint
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update saves the full checkpoint row.
func (r *Repository) Update(ctx context.Context, checkpoint *models.Checkpoint) (*models.Checkpoint, error) {
	if err := r.db.WithContext(ctx).Save(checkpoint).Error; err != nil {
		return nil, err
	}
	return checkpoint, nil
}

// SetActive flips the soft-activation flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Checkpoint{}).
		Where("id = ?", id).
		Update("is_active", active).
		Error
}

// List returns a station's checkpoints newest first with cursor pagination.
func (r *Repository) List(ctx context.Context, query ListCheckpointsInput) ([]models.Checkpoint, string, error) {
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
		Model(&models.Checkpoint{}).
		Where("station_id = ?", query.StationID)

	filter := query.Filters
	if filter.IsActive != nil {
		qb = qb.Where("is_active = ?", *filter.IsActive)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("LOWER(name) LIKE ?", pattern)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Checkpoint
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
