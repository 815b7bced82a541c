package controllers

import (
	"net/http"

	"github.com/AVGC-lgtm/SmartPatrol/api/responses"
	"github.com/AVGC-lgtm/SmartPatrol/api/validators"
	"github.com/AVGC-lgtm/SmartPatrol/internal/auth"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AuthRegister onboards a station with its first admin, then logs the admin in
// so the client gets a usable token pair in one round trip.
func AuthRegister(registerSvc auth.RegisterService, loginSvc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registerSvc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "register service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.RegisterStationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := registerSvc.RegisterStation(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if loginSvc != nil {
			login, err := loginSvc.Login(r.Context(), auth.LoginRequest{Email: body.Email, Password: body.Password})
			if err == nil {
				responses.WriteSuccessStatus(w, http.StatusCreated, login)
				return
			}
			if logg != nil {
				logg.Error(r.Context(), "post-register login failed", err)
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}
