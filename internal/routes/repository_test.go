package routes

import (
	"context"
	"testing"
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	dbtypes "github.com/AVGC-lgtm/SmartPatrol/pkg/db/types"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRoutesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.Exec(`CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		station_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		checkpoint_ids TEXT NOT NULL,
		priority TEXT,
		estimated_duration_mins INTEGER,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`).Error
	require.NoError(t, err)

	return db
}

func newRouteRow(stationID uuid.UUID, name string, createdAt time.Time, checkpointIDs ...uuid.UUID) *models.Route {
	return &models.Route{
		ID:            uuid.New(),
		StationID:     stationID,
		Name:          name,
		CheckpointIDs: dbtypes.UUIDArray(checkpointIDs),
		IsActive:      true,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupRoutesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stationID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	priority := enums.RoutePriorityHigh
	duration := 60
	route := newRouteRow(stationID, "Harbor Sweep", time.Now().UTC(), first, second)
	route.Priority = &priority
	route.EstimatedDurationMins = &duration

	created, err := repo.Create(ctx, route)
	require.NoError(t, err)
	require.Equal(t, route.ID, created.ID)

	found, err := repo.FindByID(ctx, route.ID)
	require.NoError(t, err)
	require.Equal(t, "Harbor Sweep", found.Name)
	require.Equal(t, stationID, found.StationID)
	require.Len(t, found.CheckpointIDs, 2)
	require.Equal(t, first, found.CheckpointIDs[0])
	require.Equal(t, second, found.CheckpointIDs[1])
	require.NotNil(t, found.Priority)
	require.Equal(t, enums.RoutePriorityHigh, *found.Priority)
	require.NotNil(t, found.EstimatedDurationMins)
	require.Equal(t, 60, *found.EstimatedDurationMins)
}

func TestRepositoryFindByIDWithTx(t *testing.T) {
	db := setupRoutesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	route := newRouteRow(uuid.New(), "Tx Route", time.Now().UTC(), uuid.New())
	_, err := repo.Create(ctx, route)
	require.NoError(t, err)

	_, err = repo.FindByIDWithTx(nil, route.ID)
	require.ErrorIs(t, err, gorm.ErrInvalidTransaction)

	err = db.Transaction(func(tx *gorm.DB) error {
		found, txErr := repo.FindByIDWithTx(tx, route.ID)
		require.NoError(t, txErr)
		require.Equal(t, route.ID, found.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestRepositorySetActive(t *testing.T) {
	db := setupRoutesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	route := newRouteRow(uuid.New(), "Toggle Route", time.Now().UTC(), uuid.New())
	_, err := repo.Create(ctx, route)
	require.NoError(t, err)

	require.NoError(t, repo.SetActive(ctx, route.ID, false))

	found, err := repo.FindByID(ctx, route.ID)
	require.NoError(t, err)
	require.False(t, found.IsActive)
}

func TestRepositoryListPaginatesNewestFirst(t *testing.T) {
	db := setupRoutesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stationID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	oldest := newRouteRow(stationID, "Oldest", base.Add(-3*time.Hour), uuid.New())
	middle := newRouteRow(stationID, "Middle", base.Add(-2*time.Hour), uuid.New())
	newest := newRouteRow(stationID, "Newest", base.Add(-1*time.Hour), uuid.New())
	other := newRouteRow(uuid.New(), "Other Station", base, uuid.New())

	for _, row := range []*models.Route{oldest, middle, newest, other} {
		_, err := repo.Create(ctx, row)
		require.NoError(t, err)
	}

	page1, cursor, err := repo.List(ctx, ListRoutesInput{
		StationID:  stationID,
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Equal(t, "Newest", page1[0].Name)
	require.Equal(t, "Middle", page1[1].Name)
	require.NotEmpty(t, cursor)

	page2, cursor2, err := repo.List(ctx, ListRoutesInput{
		StationID:  stationID,
		Pagination: pagination.Params{Limit: 2, Cursor: cursor},
	})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	require.Equal(t, "Oldest", page2[0].Name)
	require.Empty(t, cursor2)
}

func TestRepositoryListFilters(t *testing.T) {
	db := setupRoutesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stationID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	urgent := enums.RoutePriorityUrgent
	low := enums.RoutePriorityLow

	nightly := newRouteRow(stationID, "Nightly Perimeter", base.Add(-2*time.Hour), uuid.New())
	nightly.Priority = &urgent

	daytime := newRouteRow(stationID, "Daytime Yard", base.Add(-1*time.Hour), uuid.New())
	daytime.Priority = &low
	daytime.IsActive = false

	for _, row := range []*models.Route{nightly, daytime} {
		_, err := repo.Create(ctx, row)
		require.NoError(t, err)
	}

	active := true
	rows, _, err := repo.List(ctx, ListRoutesInput{
		StationID: stationID,
		Filters:   RouteListFilters{IsActive: &active},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Nightly Perimeter", rows[0].Name)

	rows, _, err = repo.List(ctx, ListRoutesInput{
		StationID: stationID,
		Filters:   RouteListFilters{Priority: &low},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Daytime Yard", rows[0].Name)

	rows, _, err = repo.List(ctx, ListRoutesInput{
		StationID: stationID,
		Filters:   RouteListFilters{Query: "yard"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Daytime Yard", rows[0].Name)
}
