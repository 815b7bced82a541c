package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/AVGC-lgtm/SmartPatrol/api/responses"
	"github.com/AVGC-lgtm/SmartPatrol/api/validators"
	"github.com/AVGC-lgtm/SmartPatrol/internal/checkpoints"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pagination"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

type checkpointCreateRequest struct {
	Name        string       `json:"name" validate:"required,min=1"`
	Description *string      `json:"description,omitempty"`
	Coordinates types.LatLng `json:"coordinates" validate:"required"`
	ScanRadiusM *float64     `json:"scan_radius_m,omitempty" validate:"omitempty,gt=0"`
	Tags        []string     `json:"tags,omitempty"`
	IsActive    *bool        `json:"is_active,omitempty"`
}

func (r checkpointCreateRequest) toInput() checkpoints.CreateCheckpointInput {
	return checkpoints.CreateCheckpointInput{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Coordinates: r.Coordinates,
		ScanRadiusM: r.ScanRadiusM,
		Tags:        r.Tags,
		IsActive:    r.IsActive,
	}
}

// CheckpointCreate registers a geofenced checkpoint and issues its QR secret.
func CheckpointCreate(svc checkpoints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkpoint service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkpointCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), act.StationID, act.UserID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// CheckpointGet fetches one checkpoint scoped to the caller's station.
func CheckpointGet(svc checkpoints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkpoint service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkpointID, err := parseUUIDParam(r, "checkpointId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := svc.Get(r.Context(), act.StationID, checkpointID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, found)
	}
}

// CheckpointList returns a cursor-paginated page of the station's checkpoints.
func CheckpointList(svc checkpoints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkpoint service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkpoints.ListCheckpointsInput{StationID: act.StationID}
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
		input.Filters.Query = strings.TrimSpace(r.URL.Query().Get("q"))

		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

type checkpointUpdateRequest struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string       `json:"description,omitempty"`
	Coordinates *types.LatLng `json:"coordinates,omitempty"`
	ScanRadiusM *float64      `json:"scan_radius_m,omitempty" validate:"omitempty,gt=0"`
	Tags        *[]string     `json:"tags,omitempty"`
	IsActive    *bool         `json:"is_active,omitempty"`
}

func (r checkpointUpdateRequest) toInput() checkpoints.UpdateCheckpointInput {
	return checkpoints.UpdateCheckpointInput{
		Name:        r.Name,
		Description: r.Description,
		Coordinates: r.Coordinates,
		ScanRadiusM: r.ScanRadiusM,
		Tags:        r.Tags,
		IsActive:    r.IsActive,
	}
}

// CheckpointUpdate mutates the allowed checkpoint fields.
func CheckpointUpdate(svc checkpoints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkpoint service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkpointID, err := parseUUIDParam(r, "checkpointId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkpointUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), act.StationID, checkpointID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// CheckpointDeactivate soft-deletes a checkpoint so historical scans keep their reference.
func CheckpointDeactivate(svc checkpoints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkpoint service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkpointID, err := parseUUIDParam(r, "checkpointId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), act.StationID, checkpointID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deactivated": true})
	}
}

// CheckpointQR returns the printable QR payload for the checkpoint.
func CheckpointQR(svc checkpoints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkpoint service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkpointID, err := parseUUIDParam(r, "checkpointId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.IssueQR(r.Context(), act.StationID, checkpointID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, code)
	}
}

// CheckpointQRRotate invalidates the current QR secret and issues a new one.
func CheckpointQRRotate(svc checkpoints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkpoint service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkpointID, err := parseUUIDParam(r, "checkpointId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.RotateQR(r.Context(), act.StationID, checkpointID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, code)
	}
}

const maxListLimit = 200

func paginationFromQuery(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxListLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
