package controllers

import (
	"net/http"

	"github.com/lucasrioja/storefront-backend/api/middleware"
	"github.com/lucasrioja/storefront-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			payload["user_id"] = userID
		} else if session := middleware.GuestSessionFromContext(r.Context()); session != "" {
			payload["guest_session"] = session
		}
		responses.WriteSuccess(w, payload)
	}
}
