package stations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AVGC-lgtm/SmartPatrol/internal/users"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Station, error)
	Update(ctx context.Context, station *models.Station) error
}

type usersRepository interface {
	ListByStation(ctx context.Context, stationID uuid.UUID) ([]models.User, error)
}

// Service exposes station operations.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*StationDTO, error)
	Update(ctx context.Context, stationID uuid.UUID, input UpdateStationInput) (*StationDTO, error)
	ListUsers(ctx context.Context, stationID uuid.UUID) ([]users.UserDTO, error)
}

type service struct {
	repo  stationRepository
	users usersRepository
}

// NewService builds a station service with the provided repositories.
func NewService(repo stationRepository, usersRepo usersRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("station repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{
		repo:  repo,
		users: usersRepo,
	}, nil
}

// UpdateStationInput captures the allowed station fields for mutation.
type UpdateStationInput struct {
	Name     *string
	Address  *string
	Phone    *string
	IsActive *bool
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*StationDTO, error) {
	station, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "station not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load station")
	}
	return FromModel(station), nil
}

func (s *service) Update(ctx context.Context, stationID uuid.UUID, input UpdateStationInput) (*StationDTO, error) {
	station, err := s.repo.FindByID(ctx, stationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "station not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load station")
	}

	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "station name cannot be empty")
		}
		station.Name = trimmed
	}
	if input.Address != nil {
		station.Address = input.Address
	}
	if input.Phone != nil {
		station.Phone = input.Phone
	}
	if input.IsActive != nil {
		station.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, station); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update station")
	}
	return FromModel(station), nil
}

func (s *service) ListUsers(ctx context.Context, stationID uuid.UUID) ([]users.UserDTO, error) {
	rows, err := s.users.ListByStation(ctx, stationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list station users")
	}
	out := make([]users.UserDTO, 0, len(rows))
	for i := range rows {
		if dto := users.FromModel(&rows[i]); dto != nil {
			out = append(out, *dto)
		}
	}
	return out, nil
}
