package auth

import (
	"github.com/AVGC-lgtm/SmartPatrol/internal/users"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db/models"
	"github.com/google/uuid"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// StationSummary describes the station metadata returned after login.
type StationSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

// LoginResponse contains the tokens, user, and station produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Station      StationSummary `json:"station"`
	User         *users.UserDTO `json:"user"`
}

// RefreshRequest carries the expired access token plus the refresh token to rotate.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse returns the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func stationSummaryFromModel(station *models.Station) StationSummary {
	if station == nil {
		return StationSummary{}
	}
	return StationSummary{
		ID:   station.ID,
		Name: station.Name,
		Code: station.Code,
	}
}
