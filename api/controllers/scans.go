package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/api/responses"
	"github.com/AVGC-lgtm/SmartPatrol/api/validators"
	"github.com/AVGC-lgtm/SmartPatrol/internal/scans"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

type scanSubmitRequest struct {
	QRPayload    string        `json:"qr_payload" validate:"required"`
	Position     types.LatLng  `json:"position" validate:"required"`
	AssignmentID uuid.UUID     `json:"assignment_id" validate:"required"`
	RouteID      *uuid.UUID    `json:"route_id,omitempty"`
	MediaIDs     []uuid.UUID   `json:"media_ids,omitempty" validate:"omitempty,max=10"`
	Notes        *string       `json:"notes,omitempty"`
	Metadata     types.JSONMap `json:"metadata,omitempty"`
}

// ScanSubmit verifies a checkpoint QR scan against the officer's position
// and records it with its evidence. The whole check runs in one transaction.
func ScanSubmit(svc scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload scanSubmitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VerifyAndRecord(r.Context(), scans.RecordScanInput{
			QRPayload:    payload.QRPayload,
			Position:     payload.Position,
			AssignmentID: payload.AssignmentID,
			RouteID:      payload.RouteID,
			MediaIDs:     payload.MediaIDs,
			Notes:        payload.Notes,
			Metadata:     payload.Metadata,
			StationID:    act.StationID,
			ActorUserID:  act.UserID,
			ActorRole:    act.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ScanListByAssignment returns the audit trail of scans for one assignment.
func ScanListByAssignment(svc scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
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

		input := scans.ListScansInput{
			StationID:    act.StationID,
			AssignmentID: assignmentID,
		}
		input.Pagination, err = paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByAssignment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
