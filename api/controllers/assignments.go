package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/api/responses"
	"github.com/AVGC-lgtm/SmartPatrol/api/validators"
	"github.com/AVGC-lgtm/SmartPatrol/internal/assignments"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
)

type assignmentCreateRequest struct {
	RouteID uuid.UUID `json:"route_id" validate:"required"`
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	Notes   *string   `json:"notes,omitempty"`
}

// Free-text fields (notes, cancel reasons) are capped to keep rows bounded.
const assignmentTextMaxLen = 2000

func sanitizeOptionalText(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*value, assignmentTextMaxLen)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// AssignmentCreate assigns a route to an officer. Supervisor and above only.
func AssignmentCreate(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignmentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.AssignRoute(r.Context(), assignments.AssignRouteInput{
			RouteID:     payload.RouteID,
			UserID:      payload.UserID,
			Notes:       sanitizeOptionalText(payload.Notes),
			StationID:   act.StationID,
			ActorUserID: act.UserID,
			ActorRole:   act.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AssignmentGet fetches one assignment scoped to the caller's station.
func AssignmentGet(svc assignments.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseUUIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := svc.Get(r.Context(), act.StationID, assignmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, found)
	}
}

// AssignmentList returns assignments filtered by user, route, or status.
// Officers only see their own assignments; supervisors see the whole station.
func AssignmentList(svc assignments.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := assignments.ListAssignmentsInput{StationID: act.StationID}
		input.Pagination, err = paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			userID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid user_id"))
				return
			}
			input.Filters.UserID = &userID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("route_id")); raw != "" {
			routeID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid route_id"))
				return
			}
			input.Filters.RouteID = &routeID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseAssignmentStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			input.Filters.Status = &status
		}

		// Officers are pinned to their own assignments regardless of the filter.
		if !act.Role.AtLeast(enums.SystemRoleSupervisor) {
			self := act.UserID
			input.Filters.UserID = &self
		}

		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// AssignmentProgress reports checkpoint completion counts and the next action.
func AssignmentProgress(svc assignments.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseUUIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		progress, err := svc.Progress(r.Context(), act.StationID, assignmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, progress)
	}
}

type assignmentStartRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// AssignmentStart moves an assignment from assigned to in_progress.
func AssignmentStart(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseUUIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := assignmentStartRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		updated, err := svc.StartRoute(r.Context(), assignments.StartRouteInput{
			AssignmentID: assignmentID,
			Notes:        sanitizeOptionalText(payload.Notes),
			StationID:    act.StationID,
			ActorUserID:  act.UserID,
			ActorRole:    act.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

type assignmentCompleteRequest struct {
	Force bool    `json:"force,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// AssignmentComplete finishes an in-progress assignment. Completing with
// unscanned checkpoints requires the force flag and supervisor rights.
func AssignmentComplete(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseUUIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := assignmentCompleteRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		updated, err := svc.CompleteRoute(r.Context(), assignments.CompleteRouteInput{
			AssignmentID: assignmentID,
			Force:        payload.Force,
			Notes:        sanitizeOptionalText(payload.Notes),
			StationID:    act.StationID,
			ActorUserID:  act.UserID,
			ActorRole:    act.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

type assignmentCancelRequest struct {
	Reason *string `json:"reason,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// AssignmentCancel aborts an assignment that has not finished.
func AssignmentCancel(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseUUIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := assignmentCancelRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		updated, err := svc.CancelAssignment(r.Context(), assignments.CancelAssignmentInput{
			AssignmentID: assignmentID,
			Reason:       sanitizeOptionalText(payload.Reason),
			Notes:        sanitizeOptionalText(payload.Notes),
			StationID:    act.StationID,
			ActorUserID:  act.UserID,
			ActorRole:    act.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// AssignmentDelete soft-deletes a finished or never-started assignment.
func AssignmentDelete(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseUUIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteAssignment(r.Context(), assignments.DeleteAssignmentInput{
			AssignmentID: assignmentID,
			StationID:    act.StationID,
			ActorUserID:  act.UserID,
			ActorRole:    act.Role,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
