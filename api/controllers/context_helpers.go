package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/api/middleware"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
)

// actor bundles the authenticated identity extracted from the request context.
type actor struct {
	UserID    uuid.UUID
	StationID uuid.UUID
	Role      enums.SystemRole
}

func actorFromRequest(r *http.Request) (actor, error) {
	stationID := middleware.StationIDFromContext(r.Context())
	if stationID == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "station context missing")
	}
	sid, err := uuid.Parse(stationID)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid station id")
	}

	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	role, err := enums.ParseSystemRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "role context missing")
	}

	return actor{UserID: uid, StationID: sid, Role: role}, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing path parameter").WithDetails(map[string]any{"param": name})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid path parameter").WithDetails(map[string]any{"param": name})
	}
	return id, nil
}
