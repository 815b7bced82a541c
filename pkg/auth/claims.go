package auth

import (
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	StationID uuid.UUID
	Role      enums.SystemRole
	// JTI pins the token id so refresh can reuse the session key; empty means mint a new one.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID    uuid.UUID        `json:"user_id"`
	StationID uuid.UUID        `json:"station_id"`
	Role      enums.SystemRole `json:"role"`
	jwt.RegisteredClaims
}
