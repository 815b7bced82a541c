package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

// Checkpoint is a scannable patrol point with a geofence center. A nil
// ScanRadiusM means the configured default applies. QRCodeID identifies the
// printed label; reissuing a label rotates it and orphans older prints.
type Checkpoint struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StationID   uuid.UUID      `gorm:"column:station_id;type:uuid;not null;index"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	Coordinates types.LatLng   `gorm:"column:coordinates;type:text;not null"`
	QRCodeID    uuid.UUID      `gorm:"column:qr_code_id;type:uuid;not null;default:gen_random_uuid();uniqueIndex"`
	ScanRadiusM *float64       `gorm:"column:scan_radius_m"`
	Tags        pq.StringArray `gorm:"column:tags;type:text[]"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	CreatedBy   *uuid.UUID     `gorm:"column:created_by;type:uuid"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveRadiusM resolves the scan radius against the configured default.
func (c Checkpoint) EffectiveRadiusM(defaultRadiusM float64) float64 {
	if c.ScanRadiusM != nil && *c.ScanRadiusM > 0 {
		return *c.ScanRadiusM
	}
	return defaultRadiusM
}
