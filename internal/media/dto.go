package media

import (
	"time"

	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
)

// MediaDTO is the API representation of a media row.
type MediaDTO struct {
	ID        uuid.UUID         `json:"id"`
	StationID uuid.UUID         `json:"station_id"`
	UserID    uuid.UUID         `json:"user_id"`
	Kind      enums.MediaKind   `json:"kind"`
	Status    enums.MediaStatus `json:"status"`
	FileName  string            `json:"file_name"`
	MimeType  string            `json:"mime_type"`
	SizeBytes int64             `json:"size_bytes"`
	URL       *string           `json:"url,omitempty"`
	SignedURL string            `json:"signed_url,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FromModel maps a media row to its DTO.
func FromModel(m *models.Media) *MediaDTO {
	if m == nil {
		return nil
	}
	return &MediaDTO{
		ID:        m.ID,
		StationID: m.StationID,
		UserID:    m.UserID,
		Kind:      m.Kind,
		Status:    m.Status,
		FileName:  m.FileName,
		MimeType:  m.MimeType,
		SizeBytes: m.SizeBytes,
		URL:       m.URL,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// PresignResult is returned to clients so they can PUT the object directly
// to GCS.
type PresignResult struct {
	MediaID      uuid.UUID `json:"media_id"`
	GCSKey       string    `json:"gcs_key"`
	SignedPUTURL string    `json:"signed_put_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// MediaListResult is one page of media rows.
type MediaListResult struct {
	Media      []MediaDTO `json:"media"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
