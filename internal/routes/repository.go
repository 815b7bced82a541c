package routes

import (
	"context"
	"strings"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wires together route persistence helpers.
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

// Create inserts a new route row.
func (r *Repository) Create(ctx context.Context, route *models.Route) (*models.Route, error) {
	if err := r.db.WithContext(ctx).Create(route).Error; err != nil {
		return nil, err
	}
	return route, nil
}

// FindByID loads the route without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	var route models.Route
	if err := r.db.WithContext(ctx).First(&route, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &route, nil
}

// FindByIDWithTx loads the route inside the provided transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Route, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var route models.Route
	if err := tx.First(&route, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &route, nil
}

// Update saves the full route row.
func (r *Repository) Update(ctx context.Context, route *models.Route) (*models.Route, error) {
	if err := r.db.WithContext(ctx).Save(route).Error; err != nil {
		return nil, err
	}
	return route, nil
}

// SetActive flips the soft-activation flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Route{}).
		Where("id = ?", id).
		Update("is_active", active).
		Error
}

// List returns a station's routes newest first with cursor pagination.
func (r *Repository) List(ctx context.Context, query ListRoutesInput) ([]models.Route, string, error) {
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
		Model(&models.Route{}).
		Where("station_id = ?", query.StationID)

	filter := query.Filters
	if filter.IsActive != nil {
		qb = qb.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Priority != nil {
		qb = qb.Where("priority = ?", *filter.Priority)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("LOWER(name) LIKE ?", pattern)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Route
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
