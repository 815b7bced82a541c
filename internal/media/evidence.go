package media

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/internal/scans"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
)

// ResolveForScan validates that every referenced upload is finished, owned by
// the scanning officer and usable as evidence, then groups the object URIs by
// kind. Errors are plain; the scans service folds them into its media failure
// code.
func (s *service) ResolveForScan(ctx context.Context, stationID, userID uuid.UUID, mediaIDs []uuid.UUID) (*scans.ScanEvidence, error) {
	evidence := &scans.ScanEvidence{}
	if len(mediaIDs) == 0 {
		return evidence, nil
	}

	ids := dedupeIDs(mediaIDs)
	rows, err := s.repo.FindAllByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}

	byID := make(map[uuid.UUID]*models.Media, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	for _, id := range ids {
		row, ok := byID[id]
		// Rows outside the officer's scope read as missing.
		if !ok || row.StationID != stationID || row.UserID != userID {
			return nil, fmt.Errorf("media %s not found", id)
		}
		if row.Status != enums.MediaStatusUploaded || row.URL == nil || *row.URL == "" {
			return nil, fmt.Errorf("media %s is not uploaded", id)
		}
		switch row.Kind {
		case enums.MediaKindScanImage:
			evidence.Images = append(evidence.Images, *row.URL)
		case enums.MediaKindScanVideo:
			evidence.Videos = append(evidence.Videos, *row.URL)
		case enums.MediaKindScanAudio:
			evidence.Audios = append(evidence.Audios, *row.URL)
		default:
			return nil, fmt.Errorf("media %s kind %s cannot be used as scan evidence", id, row.Kind)
		}
	}

	return evidence, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
