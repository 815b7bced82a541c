package middleware

import (
	"net/http"

	"github.com/AVGC-lgtm/SmartPatrol/api/responses"
	pkgerrors "github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
)

// StationContext rejects requests whose token carries no station binding.
func StationContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if StationIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "station context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
