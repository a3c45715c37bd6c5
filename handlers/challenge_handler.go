package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"dailyChallengesAPI/middleware"
	"dailyChallengesAPI/services"
)

type ChallengeHandler struct {
	progressionService *services.ProgressionService
	catalogService     *services.CatalogService
}

func NewChallengeHandler(progressionService *services.ProgressionService, catalogService *services.CatalogService) *ChallengeHandler {
	return &ChallengeHandler{
		progressionService: progressionService,
		catalogService:     catalogService,
	}
}

// GetToday returns the user's active challenges, drawing new ones when fewer
// than the daily count are open.
func (h *ChallengeHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view := h.progressionService.Refresh(ctx, userID)
	respondWithJSON(w, http.StatusOK, view)
}

func (h *ChallengeHandler) ToggleCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	challengeID := mux.Vars(r)["challengeId"]
	if challengeID == "" {
		respondWithError(w, http.StatusBadRequest, "challengeId is required")
		return
	}

	view, err := h.progressionService.ToggleCompletion(ctx, userID, challengeID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update challenge")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *ChallengeHandler) GetCompletedToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	completed, err := h.progressionService.CompletedToday(ctx, userID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get completed challenges")
		return
	}

	respondWithJSON(w, http.StatusOK, completed)
}

func (h *ChallengeHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	templates, err := h.catalogService.List(ctx)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get challenge catalog")
		return
	}

	respondWithJSON(w, http.StatusOK, templates)
}
