package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/api/responses"
	"github.com/AVGC-lgtm/SmartPatrol/api/validators"
	"github.com/AVGC-lgtm/SmartPatrol/internal/routes"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
)

type routeCreateRequest struct {
	Name                  string      `json:"name" validate:"required,min=1"`
	Description           *string     `json:"description,omitempty"`
	CheckpointIDs         []uuid.UUID `json:"checkpoint_ids" validate:"required,min=1"`
	Priority              *string     `json:"priority,omitempty"`
	EstimatedDurationMins *int        `json:"estimated_duration_mins,omitempty" validate:"omitempty,gt=0"`
	IsActive              *bool       `json:"is_active,omitempty"`
}

func (r routeCreateRequest) toInput() (routes.CreateRouteInput, error) {
	input := routes.CreateRouteInput{
		Name:                  strings.TrimSpace(r.Name),
		Description:           r.Description,
		CheckpointIDs:         r.CheckpointIDs,
		EstimatedDurationMins: r.EstimatedDurationMins,
		IsActive:              r.IsActive,
	}
	if r.Priority != nil {
		priority, err := enums.ParseRoutePriority(*r.Priority)
		if err != nil {
			return routes.CreateRouteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
		input.Priority = &priority
	}
	return input, nil
}

// RouteCreate builds an ordered patrol route from existing checkpoints.
func RouteCreate(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "route service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload routeCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), act.StationID, act.UserID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// RouteGet fetches one route with its ordered checkpoint stops.
func RouteGet(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "route service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		routeID, err := parseUUIDParam(r, "routeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := svc.Get(r.Context(), act.StationID, routeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, found)
	}
}

// RouteList returns a cursor-paginated page of the station's routes.
func RouteList(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "route service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := routes.ListRoutesInput{StationID: act.StationID}
		input.Pagination, err = paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if active := strings.TrimSpace(r.URL.Query().Get("is_active")); active != "" {
			value, parseErr := strconv.ParseBool(active)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid is_active value"))
				return
			}
			input.Filters.IsActive = &value
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("priority")); raw != "" {
			priority, parseErr := enums.ParseRoutePriority(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid priority"))
				return
			}
			input.Filters.Priority = &priority
		}
		input.Filters.Query = strings.TrimSpace(r.URL.Query().Get("q"))

		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

type routeUpdateRequest struct {
	Name                  *string      `json:"name,omitempty" validate:"omitempty,min=1"`
	Description           *string      `json:"description,omitempty"`
	CheckpointIDs         *[]uuid.UUID `json:"checkpoint_ids,omitempty"`
	Priority              *string      `json:"priority,omitempty"`
	EstimatedDurationMins *int         `json:"estimated_duration_mins,omitempty" validate:"omitempty,gt=0"`
	IsActive              *bool        `json:"is_active,omitempty"`
}

func (r routeUpdateRequest) toInput() (routes.UpdateRouteInput, error) {
	input := routes.UpdateRouteInput{
		Name:                  r.Name,
		Description:           r.Description,
		CheckpointIDs:         r.CheckpointIDs,
		EstimatedDurationMins: r.EstimatedDurationMins,
		IsActive:              r.IsActive,
	}
	if r.Priority != nil {
		priority, err := enums.ParseRoutePriority(*r.Priority)
		if err != nil {
			return routes.UpdateRouteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
		input.Priority = &priority
	}
	return input, nil
}

// RouteUpdate mutates route metadata or replaces the checkpoint sequence.
func RouteUpdate(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "route service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		routeID, err := parseUUIDParam(r, "routeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload routeUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), act.StationID, routeID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// RouteDeactivate soft-deletes a route; assignments in progress are unaffected.
func RouteDeactivate(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "route service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		routeID, err := parseUUIDParam(r, "routeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), act.StationID, routeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deactivated": true})
	}
}
