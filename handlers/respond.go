package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/services"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps service sentinels to statuses. Anything
// unrecognised is logged and reported as a 500 with fallback as the message.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrUpdateInFlight):
		respondWithError(w, http.StatusConflict, "Another update is already in progress")
	case errors.Is(err, services.ErrChallengeNotActive):
		respondWithError(w, http.StatusNotFound, "Challenge is not active today")
	case errors.Is(err, services.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, services.ErrNotFriends):
		respondWithError(w, http.StatusForbidden, "You are not friends with this user")
	case errors.Is(err, services.ErrNotGroupMember):
		respondWithError(w, http.StatusForbidden, "You are not a member of this group")
	case errors.Is(err, docstore.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found")
	default:
		slog.Error(fallback, "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}
