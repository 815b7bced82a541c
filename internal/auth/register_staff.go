package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/AVGC-lgtm/SmartPatrol/internal/users"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffRegisterRequest contains the payload an admin submits to add a user
// to their own station. Role defaults to officer when omitted.
type StaffRegisterRequest struct {
	FirstName   string           `json:"first_name" validate:"required"`
	LastName    string           `json:"last_name" validate:"required"`
	Email       string           `json:"email" validate:"required,email"`
	Password    string           `json:"password" validate:"required,min=8"`
	Phone       *string          `json:"phone,omitempty"`
	BadgeNumber *string          `json:"badge_number,omitempty"`
	Role        enums.SystemRole `json:"role,omitempty"`
}

// StaffRegisterService handles creating station staff accounts.
type StaffRegisterService interface {
	Register(ctx context.Context, stationID uuid.UUID, req StaffRegisterRequest) (*users.UserDTO, error)
}

// StaffRegisterServiceParams names the dependencies for the staff register flow.
type StaffRegisterServiceParams struct {
	TxRunner        txRunner
	UserRepoFactory func(tx *gorm.DB) registerUserRepository
	PasswordConfig  config.PasswordConfig
}

type staffRegisterService struct {
	tx          txRunner
	userRepos   func(tx *gorm.DB) registerUserRepository
	passwordCfg config.PasswordConfig
}

// NewStaffRegisterService builds a staff registration service.
func NewStaffRegisterService(params StaffRegisterServiceParams) (StaffRegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.UserRepoFactory == nil {
		params.UserRepoFactory = func(tx *gorm.DB) registerUserRepository {
			return users.NewRepository(tx)
		}
	}
	return &staffRegisterService{
		tx:          params.TxRunner,
		userRepos:   params.UserRepoFactory,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *staffRegisterService) Register(ctx context.Context, stationID uuid.UUID, req StaffRegisterRequest) (*users.UserDTO, error) {
	if stationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "station id is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	}
	lastName := strings.TrimSpace(req.LastName)
	if lastName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "last_name is required")
	}
	role := req.Role
	if role == "" {
		role = enums.SystemRoleOfficer
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepos(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    firstName,
			LastName:     lastName,
			Phone:        req.Phone,
			BadgeNumber:  req.BadgeNumber,
			SystemRole:   role,
			StationID:    stationID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
