package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/middleware"
	"dailyChallengesAPI/services"
)

type SocialHandler struct {
	socialService *services.SocialService
}

func NewSocialHandler(socialService *services.SocialService) *SocialHandler {
	return &SocialHandler{socialService: socialService}
}

func (h *SocialHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req social.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.socialService.UpdateProfile(ctx, userID, req.DisplayName)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

func (h *SocialHandler) GetFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friends, err := h.socialService.Friends(ctx, userID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get friends")
		return
	}

	respondWithJSON(w, http.StatusOK, friends)
}

func (h *SocialHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req social.AddFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.socialService.AddFriend(ctx, userID, req.FriendID); err != nil {
		respondWithServiceError(w, r, err, "Failed to add friend")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"message": "Friend added"})
}

func (h *SocialHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.socialService.RemoveFriend(ctx, userID, mux.Vars(r)["friendId"]); err != nil {
		respondWithServiceError(w, r, err, "Failed to remove friend")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Friend removed"})
}

func (h *SocialHandler) GetFriendProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	profile, err := h.socialService.FriendProfile(ctx, userID, mux.Vars(r)["friendId"])
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get friend profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

func (h *SocialHandler) GetGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	groups, err := h.socialService.Groups(ctx, userID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get groups")
		return
	}

	respondWithJSON(w, http.StatusOK, groups)
}

func (h *SocialHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req social.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	group, err := h.socialService.CreateGroup(ctx, userID, req.Name)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create group")
		return
	}

	respondWithJSON(w, http.StatusCreated, group)
}

func (h *SocialHandler) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req social.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	group, err := h.socialService.AddGroupMember(ctx, mux.Vars(r)["groupId"], userID, req.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add group member")
		return
	}

	respondWithJSON(w, http.StatusOK, group)
}

func (h *SocialHandler) GetGroupRanking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	ranking, err := h.socialService.GroupRanking(ctx, mux.Vars(r)["groupId"], userID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get group ranking")
		return
	}

	respondWithJSON(w, http.StatusOK, ranking)
}
