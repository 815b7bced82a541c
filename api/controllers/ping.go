package controllers

import (
	"net/http"

	"github.com/AVGC-lgtm/SmartPatrol/api/middleware"
	"github.com/AVGC-lgtm/SmartPatrol/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if station := middleware.StationIDFromContext(r.Context()); station != "" {
			payload["station_id"] = station
		}
		responses.WriteSuccess(w, payload)
	}
}
