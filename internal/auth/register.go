package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/AVGC-lgtm/SmartPatrol/internal/stations"
	"github.com/AVGC-lgtm/SmartPatrol/internal/users"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/security"
	"gorm.io/gorm"
)

// RegisterStationRequest contains the payload required for onboarding a new station
// together with its first admin user.
type RegisterStationRequest struct {
	StationName    string  `json:"station_name" validate:"required"`
	StationCode    string  `json:"station_code" validate:"required,max=32"`
	StationAddress *string `json:"station_address,omitempty"`
	StationPhone   *string `json:"station_phone,omitempty"`
	FirstName      string  `json:"first_name" validate:"required"`
	LastName       string  `json:"last_name" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,min=8"`
	Phone          *string `json:"phone,omitempty"`
}

// RegisterStationResponse returns the station and admin created by the onboarding flow.
type RegisterStationResponse struct {
	Station *stations.StationDTO `json:"station"`
	User    *users.UserDTO       `json:"user"`
}

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	RegisterStation(ctx context.Context, req RegisterStationRequest) (*RegisterStationResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

type registerStationRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Station, error)
	Create(ctx context.Context, dto stations.CreateStationDTO) (*models.Station, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
// Repo factories default to the real repositories bound to the transaction.
type RegisterServiceParams struct {
	TxRunner           txRunner
	UserRepoFactory    func(tx *gorm.DB) registerUserRepository
	StationRepoFactory func(tx *gorm.DB) registerStationRepository
	PasswordConfig     config.PasswordConfig
}

type registerService struct {
	tx           txRunner
	userRepos    func(tx *gorm.DB) registerUserRepository
	stationRepos func(tx *gorm.DB) registerStationRepository
	passwordCfg  config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.UserRepoFactory == nil {
		params.UserRepoFactory = func(tx *gorm.DB) registerUserRepository {
			return users.NewRepository(tx)
		}
	}
	if params.StationRepoFactory == nil {
		params.StationRepoFactory = func(tx *gorm.DB) registerStationRepository {
			return stations.NewRepository(tx)
		}
	}
	return &registerService{
		tx:           params.TxRunner,
		userRepos:    params.UserRepoFactory,
		stationRepos: params.StationRepoFactory,
		passwordCfg:  params.PasswordConfig,
	}, nil
}

func (s *registerService) RegisterStation(ctx context.Context, req RegisterStationRequest) (*RegisterStationResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.StationName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "station_name is required")
	}
	code := strings.ToUpper(strings.TrimSpace(req.StationCode))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "station_code is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var resp *RegisterStationResponse
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepos(tx)
		stationRepo := s.stationRepos(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		if _, err := stationRepo.FindByCode(ctx, code); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "station code already in use")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check station code")
		}

		station, err := stationRepo.Create(ctx, stations.CreateStationDTO{
			Name:    name,
			Code:    code,
			Address: req.StationAddress,
			Phone:   req.StationPhone,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create station")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Phone:        req.Phone,
			SystemRole:   enums.SystemRoleAdmin,
			StationID:    station.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create admin user")
		}

		resp = &RegisterStationResponse{
			Station: stations.FromModel(station),
			User:    users.FromModel(user),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
