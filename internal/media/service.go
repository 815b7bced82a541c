package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AVGC-lgtm/SmartPatrol/internal/scans"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/payloads"
)

const (
	defaultUploadTTL   = 15 * time.Minute
	defaultDownloadTTL = time.Hour
	defaultMaxUploadMB = 200

	imageCapBytes = 25 * 1024 * 1024
	audioCapBytes = 50 * 1024 * 1024
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// scanReferences answers whether an object URI is still attached to a scan.
// Implemented by the scans repository.
type scanReferences interface {
	CountMediaURI(ctx context.Context, uri string) (int64, error)
}

type gcsSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// Service owns the media upload lifecycle: presign, finalize, listing,
// deletion and resolving uploads into scan evidence.
type Service interface {
	PresignUpload(ctx context.Context, input PresignInput) (*PresignResult, error)
	FinalizeUpload(ctx context.Context, input FinalizeInput) (*MediaDTO, error)
	ListMedia(ctx context.Context, input ListMediaInput) (*MediaListResult, error)
	DeleteMedia(ctx context.Context, input DeleteMediaInput) error
	ResolveForScan(ctx context.Context, stationID, userID uuid.UUID, mediaIDs []uuid.UUID) (*scans.ScanEvidence, error)
}

type service struct {
	repo           Repository
	txRunner       txRunner
	outbox         outboxPublisher
	scans          scanReferences
	storage        gcsSigner
	bucket         string
	uploadTTL      time.Duration
	downloadTTL    time.Duration
	maxUploadBytes int64
}

// ServiceParams wires the media service dependencies.
type ServiceParams struct {
	Repo     Repository
	TxRunner txRunner
	Outbox   outboxPublisher
	Scans    scanReferences
	Storage  gcsSigner
	GCS      config.GCSConfig
	Media    config.MediaConfig
}

// NewService constructs the media service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Scans == nil {
		return nil, fmt.Errorf("scan references required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("gcs signer required")
	}
	if strings.TrimSpace(params.GCS.BucketName) == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}

	uploadTTL := params.GCS.UploadURLExpiry
	if uploadTTL <= 0 {
		uploadTTL = defaultUploadTTL
	}
	downloadTTL := params.GCS.DownloadURLExpiry
	if downloadTTL <= 0 {
		downloadTTL = defaultDownloadTTL
	}
	maxUploadMB := params.Media.MaxUploadMB
	if maxUploadMB <= 0 {
		maxUploadMB = defaultMaxUploadMB
	}

	return &service{
		repo:           params.Repo,
		txRunner:       params.TxRunner,
		outbox:         params.Outbox,
		scans:          params.Scans,
		storage:        params.Storage,
		bucket:         params.GCS.BucketName,
		uploadTTL:      uploadTTL,
		downloadTTL:    downloadTTL,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
	}, nil
}

// PresignInput models the payload required to request an upload URL.
type PresignInput struct {
	StationID uuid.UUID
	UserID    uuid.UUID
	Kind      enums.MediaKind
	FileName  string
	MimeType  string
	SizeBytes int64
}

// FinalizeInput identifies the pending upload the client finished PUTting.
type FinalizeInput struct {
	StationID uuid.UUID
	UserID    uuid.UUID
	MediaID   uuid.UUID
}

// DeleteMediaInput identifies the media row an actor wants removed.
type DeleteMediaInput struct {
	StationID   uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.SystemRole
	MediaID     uuid.UUID
}

func (s *service) PresignUpload(ctx context.Context, input PresignInput) (*PresignResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "station context missing")
	}
	if input.Kind == "" || !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media kind")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}

	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if limit := s.maxBytesForKind(input.Kind); input.SizeBytes > limit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be ≤ %d bytes", limit)).
			WithDetails(map[string]any{"max_bytes": limit})
	}

	mimeType, err := sniffMimeType(input.MimeType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mime_type is invalid")
	}
	if !isAllowedMime(input.Kind, mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("mime_type not allowed for media kind, expected %s", allowedMimeDescription(input.Kind)))
	}

	mediaID := uuid.New()
	gcsKey := buildObjectKey(input.StationID, input.Kind, mediaID, fileName)

	mediaRow := &models.Media{
		ID:        mediaID,
		StationID: input.StationID,
		UserID:    input.UserID,
		Kind:      input.Kind,
		Status:    enums.MediaStatusPending,
		GCSKey:    gcsKey,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: input.SizeBytes,
	}

	if _, err := s.repo.Create(ctx, mediaRow); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist media row")
	}

	expiresAt := time.Now().Add(s.uploadTTL)
	signedURL, err := s.storage.SignedURL(s.bucket, gcsKey, mimeType, s.uploadTTL)
	if err != nil {
		_ = s.repo.Delete(ctx, mediaID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &PresignResult{
		MediaID:      mediaID,
		GCSKey:       gcsKey,
		SignedPUTURL: signedURL,
		ContentType:  mimeType,
		ExpiresAt:    expiresAt,
	}, nil
}

// FinalizeUpload flips a pending row to uploaded once the client reports the
// PUT finished. The GCS notification consumer races this on the same
// conditional update, so a zero-row update is re-read rather than failed.
func (s *service) FinalizeUpload(ctx context.Context, input FinalizeInput) (*MediaDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "station context missing")
	}
	if input.MediaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media id required")
	}

	mediaRow, err := s.loadStationMedia(ctx, input.StationID, input.MediaID)
	if err != nil {
		return nil, err
	}
	if mediaRow.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "upload belongs to another user")
	}

	switch mediaRow.Status {
	case enums.MediaStatusUploaded:
		return FromModel(mediaRow), nil
	case enums.MediaStatusPending:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "media is not awaiting upload").
			WithDetails(map[string]any{"current_status": mediaRow.Status})
	}

	url := objectURI(s.bucket, mediaRow.GCSKey)
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).MarkUploaded(ctx, mediaRow.ID, url)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark media uploaded")
		}
		if updated == 0 {
			// Lost the race against the notification consumer; the winner
			// already emitted the event.
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMediaUploaded,
			AggregateType: enums.AggregateMedia,
			AggregateID:   mediaRow.ID,
			Actor: &outbox.ActorRef{
				UserID:    input.UserID,
				StationID: &input.StationID,
			},
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
		return nil, err
	}

	fresh, err := s.repo.FindByID(ctx, mediaRow.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload media")
	}
	if fresh.Status != enums.MediaStatusUploaded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "media is not awaiting upload").
			WithDetails(map[string]any{"current_status": fresh.Status})
	}
	return FromModel(fresh), nil
}

func (s *service) ListMedia(ctx context.Context, input ListMediaInput) (*MediaListResult, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "station context missing")
	}
	if input.Kind != nil && !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media kind")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media status")
	}

	query := MediaListQuery{
		StationID:  input.StationID,
		Kind:       input.Kind,
		Status:     input.Status,
		Pagination: input.Pagination,
	}
	if !input.ActorRole.AtLeast(enums.SystemRoleSupervisor) {
		query.UserID = input.ActorUserID
	}

	rows, nextCursor, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list media")
	}

	dtos := make([]MediaDTO, 0, len(rows))
	for i := range rows {
		dto := FromModel(&rows[i])
		if rows[i].Status == enums.MediaStatusUploaded {
			signed, err := s.storage.SignedReadURL(s.bucket, rows[i].GCSKey, s.downloadTTL)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign download url")
			}
			dto.SignedURL = signed
		}
		dtos = append(dtos, *dto)
	}

	return &MediaListResult{Media: dtos, NextCursor: nextCursor}, nil
}

// DeleteMedia removes the object and its row. Evidence already attached to a
// scan is immutable and refuses deletion.
func (s *service) DeleteMedia(ctx context.Context, input DeleteMediaInput) error {
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.StationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "station context missing")
	}
	if input.MediaID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "media id required")
	}

	mediaRow, err := s.loadStationMedia(ctx, input.StationID, input.MediaID)
	if err != nil {
		return err
	}
	if mediaRow.UserID != input.ActorUserID && !input.ActorRole.AtLeast(enums.SystemRoleSupervisor) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "media belongs to another user")
	}

	if mediaRow.URL != nil && *mediaRow.URL != "" {
		refs, err := s.scans.CountMediaURI(ctx, *mediaRow.URL)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count scan references")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "media is attached to scan evidence").
				WithDetails(map[string]any{"scan_references": refs})
		}
	}

	if err := s.storage.DeleteObject(ctx, s.bucket, mediaRow.GCSKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete object")
	}
	if err := s.repo.Delete(ctx, mediaRow.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete media")
	}
	return nil
}

func (s *service) loadStationMedia(ctx context.Context, stationID, mediaID uuid.UUID) (*models.Media, error) {
	mediaRow, err := s.repo.FindByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media")
	}
	if mediaRow.StationID != stationID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	return mediaRow, nil
}

func (s *service) maxBytesForKind(kind enums.MediaKind) int64 {
	limit := s.maxUploadBytes
	switch kind {
	case enums.MediaKindScanVideo, enums.MediaKindOther:
	case enums.MediaKindScanAudio:
		if audioCapBytes < limit {
			limit = audioCapBytes
		}
	default:
		if imageCapBytes < limit {
			limit = imageCapBytes
		}
	}
	return limit
}

func objectURI(bucket, key string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, key)
}

func buildObjectKey(stationID uuid.UUID, kind enums.MediaKind, id uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = id.String()
	}
	return fmt.Sprintf("stations/%s/media/%s/%s/%s", stationID, kind, id, cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
