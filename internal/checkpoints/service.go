package checkpoints

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/geo"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/qr"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes station checkpoint management operations.
type Service interface {
	Create(ctx context.Context, stationID, createdBy uuid.UUID, input CreateCheckpointInput) (*CheckpointDTO, error)
	Get(ctx context.Context, stationID, checkpointID uuid.UUID) (*CheckpointDTO, error)
	List(ctx context.Context, input ListCheckpointsInput) (*CheckpointListResult, error)
	Update(ctx context.Context, stationID, checkpointID uuid.UUID, input UpdateCheckpointInput) (*CheckpointDTO, error)
	Deactivate(ctx context.Context, stationID, checkpointID uuid.UUID) error
	IssueQR(ctx context.Context, stationID, checkpointID uuid.UUID) (*QRCodeDTO, error)
	RotateQR(ctx context.Context, stationID, checkpointID uuid.UUID) (*QRCodeDTO, error)
}

// CreateCheckpointInput holds the validated payload to create a checkpoint.
type CreateCheckpointInput struct {
	Name        string
	Description *string
	Coordinates types.LatLng
	ScanRadiusM *float64
	Tags        []string
	IsActive    *bool
}

// UpdateCheckpointInput holds optional mutation values for a checkpoint.
type UpdateCheckpointInput struct {
	Name        *string
	Description *string
	Coordinates *types.LatLng
	ScanRadiusM *float64
	Tags        *[]string
	IsActive    *bool
}

type checkpointRepository interface {
	Create(ctx context.Context, checkpoint *models.Checkpoint) (*models.Checkpoint, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Checkpoint, error)
	Update(ctx context.Context, checkpoint *models.Checkpoint) (*models.Checkpoint, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, query ListCheckpointsInput) ([]models.Checkpoint, string, error)
}

type service struct {
	repo checkpointRepository
}

// NewService constructs a checkpoint service instance.
func NewService(repo checkpointRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkpoint repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, stationID, createdBy uuid.UUID, input CreateCheckpointInput) (*CheckpointDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := geo.Validate(input.Coordinates); err != nil {
		return nil, err
	}
	if input.ScanRadiusM != nil && *input.ScanRadiusM <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scan_radius_m must be positive")
	}

	checkpoint := &models.Checkpoint{
		StationID:   stationID,
		Name:        name,
		Description: input.Description,
		Coordinates: input.Coordinates,
		QRCodeID:    uuid.New(),
		ScanRadiusM: input.ScanRadiusM,
		Tags:        input.Tags,
		IsActive:    true,
	}
	if input.IsActive != nil {
		checkpoint.IsActive = *input.IsActive
	}
	if createdBy != uuid.Nil {
		checkpoint.CreatedBy = &createdBy
	}

	created, err := s.repo.Create(ctx, checkpoint)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert checkpoint")
	}
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, stationID, checkpointID uuid.UUID) (*CheckpointDTO, error) {
	checkpoint, err := s.loadScoped(ctx, stationID, checkpointID)
	if err != nil {
		return nil, err
	}
	return FromModel(checkpoint), nil
}

func (s *service) List(ctx context.Context, input ListCheckpointsInput) (*CheckpointListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, input)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list checkpoints")
	}

	dtos := make([]CheckpointDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return &CheckpointListResult{Checkpoints: dtos, NextCursor: nextCursor}, nil
}

func (s *service) Update(ctx context.Context, stationID, checkpointID uuid.UUID, input UpdateCheckpointInput) (*CheckpointDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if input.Coordinates != nil {
		if err := geo.Validate(*input.Coordinates); err != nil {
			return nil, err
		}
	}
	if input.ScanRadiusM != nil && *input.ScanRadiusM <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scan_radius_m must be positive")
	}

	checkpoint, err := s.loadScoped(ctx, stationID, checkpointID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		checkpoint.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		checkpoint.Description = input.Description
	}
	if input.Coordinates != nil {
		checkpoint.Coordinates = *input.Coordinates
	}
	if input.ScanRadiusM != nil {
		checkpoint.ScanRadiusM = input.ScanRadiusM
	}
	if input.Tags != nil {
		checkpoint.Tags = *input.Tags
	}
	if input.IsActive != nil {
		checkpoint.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, checkpoint)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update checkpoint")
	}
	return FromModel(updated), nil
}

func (s *service) Deactivate(ctx context.Context, stationID, checkpointID uuid.UUID) error {
	if _, err := s.loadScoped(ctx, stationID, checkpointID); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, checkpointID, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate checkpoint")
	}
	return nil
}

// IssueQR returns the current printable payload for the checkpoint.
func (s *service) IssueQR(ctx context.Context, stationID, checkpointID uuid.UUID) (*QRCodeDTO, error) {
	checkpoint, err := s.loadScoped(ctx, stationID, checkpointID)
	if err != nil {
		return nil, err
	}
	return s.encodeQR(checkpoint)
}

// RotateQR mints a new label identity; previously printed labels stop
// verifying at scan time.
func (s *service) RotateQR(ctx context.Context, stationID, checkpointID uuid.UUID) (*QRCodeDTO, error) {
	checkpoint, err := s.loadScoped(ctx, stationID, checkpointID)
	if err != nil {
		return nil, err
	}

	checkpoint.QRCodeID = uuid.New()
	if _, err := s.repo.Update(ctx, checkpoint); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: rotate qr code id")
	}
	return s.encodeQR(checkpoint)
}

func (s *service) encodeQR(checkpoint *models.Checkpoint) (*QRCodeDTO, error) {
	payload, err := qr.Encode(qr.Payload{
		Type:         qr.TypeCheckpoint,
		CheckpointID: checkpoint.ID,
		QRCodeID:     checkpoint.QRCodeID,
		Name:         checkpoint.Name,
		Coordinates:  checkpoint.Coordinates,
		StationID:    checkpoint.StationID,
	})
	if err != nil {
		return nil, err
	}
	return &QRCodeDTO{
		CheckpointID: checkpoint.ID,
		Payload:      payload,
		IssuedAt:     time.Now().UTC(),
	}, nil
}

func (s *service) loadScoped(ctx context.Context, stationID, checkpointID uuid.UUID) (*models.Checkpoint, error) {
	checkpoint, err := s.repo.FindByID(ctx, checkpointID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeCheckpointNotFound, "checkpoint not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkpoint")
	}
	if checkpoint.StationID != stationID {
		return nil, pkgerrors.New(pkgerrors.CodeCheckpointNotFound, "checkpoint not found")
	}
	return checkpoint, nil
}
