package media

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
)

func setupMediaTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.Exec(`CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		station_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		url TEXT,
		gcs_key TEXT NOT NULL UNIQUE,
		file_name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`).Error
	require.NoError(t, err)

	return db
}

func newMediaRow(stationID uuid.UUID, kind enums.MediaKind, status enums.MediaStatus, createdAt time.Time) *models.Media {
	id := uuid.New()
	row := &models.Media{
		ID:        id,
		StationID: stationID,
		UserID:    uuid.New(),
		Kind:      kind,
		Status:    status,
		GCSKey:    fmt.Sprintf("stations/%s/media/%s/%s/file.jpg", stationID, kind, id),
		FileName:  "file.jpg",
		MimeType:  "image/jpeg",
		SizeBytes: 1024,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if status == enums.MediaStatusUploaded {
		url := "gs://smartpatrol-media/" + row.GCSKey
		row.URL = &url
	}
	return row
}

func TestRepositoryCreateAndFindMedia(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stationID := uuid.New()
	row := newMediaRow(stationID, enums.MediaKindScanImage, enums.MediaStatusPending, time.Now().UTC().Truncate(time.Second))

	created, err := repo.Create(ctx, row)
	require.NoError(t, err)
	require.Equal(t, row.ID, created.ID)

	byID, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	require.Equal(t, stationID, byID.StationID)
	require.Equal(t, enums.MediaKindScanImage, byID.Kind)
	require.Equal(t, enums.MediaStatusPending, byID.Status)
	require.Nil(t, byID.URL)

	byKey, err := repo.FindByGCSKey(ctx, row.GCSKey)
	require.NoError(t, err)
	require.Equal(t, row.ID, byKey.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindByGCSKey(ctx, "stations/unknown/object")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Two rows can never share an object key.
	duplicate := newMediaRow(stationID, enums.MediaKindScanImage, enums.MediaStatusPending, time.Now().UTC())
	duplicate.GCSKey = row.GCSKey
	_, err = repo.Create(ctx, duplicate)
	require.Error(t, err)
}

func TestRepositoryFindAllByIDs(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stationID := uuid.New()
	first := newMediaRow(stationID, enums.MediaKindScanImage, enums.MediaStatusUploaded, time.Now().UTC())
	second := newMediaRow(stationID, enums.MediaKindScanVideo, enums.MediaStatusUploaded, time.Now().UTC())
	for _, row := range []*models.Media{first, second} {
		_, err := repo.Create(ctx, row)
		require.NoError(t, err)
	}

	rows, err := repo.FindAllByIDs(ctx, []uuid.UUID{first.ID, second.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = repo.FindAllByIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRepositoryMarkUploaded(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := newMediaRow(uuid.New(), enums.MediaKindScanImage, enums.MediaStatusPending, time.Now().UTC())
	_, err := repo.Create(ctx, row)
	require.NoError(t, err)

	url := "gs://smartpatrol-media/" + row.GCSKey
	updated, err := repo.MarkUploaded(ctx, row.ID, url)
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	fresh, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	require.Equal(t, enums.MediaStatusUploaded, fresh.Status)
	require.NotNil(t, fresh.URL)
	require.Equal(t, url, *fresh.URL)

	// The conditional update only fires once.
	updated, err = repo.MarkUploaded(ctx, row.ID, "gs://elsewhere/object")
	require.NoError(t, err)
	require.EqualValues(t, 0, updated)

	fresh, err = repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	require.Equal(t, url, *fresh.URL)
}

func TestRepositoryMarkDeleted(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := newMediaRow(uuid.New(), enums.MediaKindScanImage, enums.MediaStatusUploaded, time.Now().UTC())
	_, err := repo.Create(ctx, row)
	require.NoError(t, err)

	updated, err := repo.MarkDeleted(ctx, row.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	fresh, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	require.Equal(t, enums.MediaStatusDeleted, fresh.Status)

	updated, err = repo.MarkDeleted(ctx, row.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, updated)

	// Tombstoned rows no longer accept an upload.
	uploadable, err := repo.MarkUploaded(ctx, row.ID, "gs://smartpatrol-media/late")
	require.NoError(t, err)
	require.EqualValues(t, 0, uploadable)
}

func TestRepositoryDeleteMedia(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := newMediaRow(uuid.New(), enums.MediaKindScanImage, enums.MediaStatusUploaded, time.Now().UTC())
	_, err := repo.Create(ctx, row)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, row.ID))

	_, err = repo.FindByID(ctx, row.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListMedia(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stationID := uuid.New()
	officerID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	newest := newMediaRow(stationID, enums.MediaKindScanImage, enums.MediaStatusUploaded, base)
	newest.UserID = officerID
	middle := newMediaRow(stationID, enums.MediaKindScanVideo, enums.MediaStatusPending, base.Add(-time.Minute))
	oldest := newMediaRow(stationID, enums.MediaKindScanImage, enums.MediaStatusUploaded, base.Add(-2*time.Minute))
	oldest.UserID = officerID
	foreign := newMediaRow(uuid.New(), enums.MediaKindScanImage, enums.MediaStatusUploaded, base)

	for _, row := range []*models.Media{newest, middle, oldest, foreign} {
		_, err := repo.Create(ctx, row)
		require.NoError(t, err)
	}

	rows, cursor, err := repo.List(ctx, MediaListQuery{StationID: stationID})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, newest.ID, rows[0].ID)
	require.Equal(t, middle.ID, rows[1].ID)
	require.Equal(t, oldest.ID, rows[2].ID)
	require.Empty(t, cursor)

	rows, _, err = repo.List(ctx, MediaListQuery{StationID: stationID, UserID: officerID})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	kind := enums.MediaKindScanVideo
	rows, _, err = repo.List(ctx, MediaListQuery{StationID: stationID, Kind: &kind})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, middle.ID, rows[0].ID)

	status := enums.MediaStatusUploaded
	rows, _, err = repo.List(ctx, MediaListQuery{StationID: stationID, Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Keyset paging walks the station newest first.
	pageOne, cursor, err := repo.List(ctx, MediaListQuery{StationID: stationID, Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, pageOne, 2)
	require.NotEmpty(t, cursor)

	pageTwo, cursor, err := repo.List(ctx, MediaListQuery{StationID: stationID, Pagination: pagination.Params{Limit: 2, Cursor: cursor}})
	require.NoError(t, err)
	require.Len(t, pageTwo, 1)
	require.Equal(t, oldest.ID, pageTwo[0].ID)
	require.Empty(t, cursor)
}

func TestRepositoryFindStalePending(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stationID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	staleOld := newMediaRow(stationID, enums.MediaKindScanImage, enums.MediaStatusPending, base.Add(-2*time.Hour))
	staleNewer := newMediaRow(stationID, enums.MediaKindScanImage, enums.MediaStatusPending, base.Add(-time.Hour))
	fresh := newMediaRow(stationID, enums.MediaKindScanImage, enums.MediaStatusPending, base)
	uploadedOld := newMediaRow(stationID, enums.MediaKindScanImage, enums.MediaStatusUploaded, base.Add(-2*time.Hour))

	for _, row := range []*models.Media{staleOld, staleNewer, fresh, uploadedOld} {
		_, err := repo.Create(ctx, row)
		require.NoError(t, err)
	}

	rows, err := repo.FindStalePending(ctx, base.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, staleOld.ID, rows[0].ID)
	require.Equal(t, staleNewer.ID, rows[1].ID)

	rows, err = repo.FindStalePending(ctx, base.Add(-30*time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, staleOld.ID, rows[0].ID)
}
