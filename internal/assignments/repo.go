package assignments

import (
	"context"
	"errors"
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an assignments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assignment *models.RouteAssignment) (*models.RouteAssignment, error) {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RouteAssignment, error) {
	var assignment models.RouteAssignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindActiveByRoute returns the assignment currently occupying the route,
// or gorm.ErrRecordNotFound when the route is free.
func (r *repository) FindActiveByRoute(ctx context.Context, routeID uuid.UUID) (*models.RouteAssignment, error) {
	var assignment models.RouteAssignment
	err := r.db.WithContext(ctx).
		Where("route_id = ? AND status IN ? AND is_active = ?", routeID, enums.ActiveAssignmentStatuses, true).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RouteAssignment{}).
		Where("user_id = ? AND status IN ? AND is_active = ?", userID, enums.ActiveAssignmentStatuses, true).
		Count(&count).Error
	return count, err
}

func (r *repository) HasLiveForRoute(ctx context.Context, routeID uuid.UUID) (bool, error) {
	_, err := r.FindActiveByRoute(ctx, routeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AppendCompletedCheckpoint appends at the storage layer so concurrent scans
// of different checkpoints cannot lose each other's writes. The containment
// guard makes a replayed append a no-op.
func (r *repository) AppendCompletedCheckpoint(ctx context.Context, assignmentID, checkpointID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE route_assignments
		SET completed_checkpoint_ids = array_append(completed_checkpoint_ids, ?),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND NOT (completed_checkpoint_ids @> ARRAY[?]::uuid[])
	`, checkpointID, assignmentID, checkpointID).Error
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.AssignmentStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RouteAssignment{}).
		Where("id = ? AND status IN ? AND is_active = ?", id, from, true).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RouteAssignment{}).
		Where("id = ? AND is_active = ? AND status <> ?", id, true, enums.AssignmentStatusInProgress).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// List returns a station's assignments newest first with cursor pagination.
// Soft-deleted rows never appear.
func (r *repository) List(ctx context.Context, query ListAssignmentsInput) ([]models.RouteAssignment, string, error) {
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
		Model(&models.RouteAssignment{}).
		Where("station_id = ? AND is_active = ?", query.StationID, true)

	filter := query.Filters
	if filter.UserID != nil {
		qb = qb.Where("user_id = ?", *filter.UserID)
	}
	if filter.RouteID != nil {
		qb = qb.Where("route_id = ?", *filter.RouteID)
	}
	if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.RouteAssignment
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

// FindStaleAssigned returns live assignments that have sat in `assigned`
// since before the cutoff. Used by the overdue sweep.
func (r *repository) FindStaleAssigned(ctx context.Context, before time.Time) ([]models.RouteAssignment, error) {
	var rows []models.RouteAssignment
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_active = ? AND start_date < ?", enums.AssignmentStatusAssigned, true, before).
		Order("start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
