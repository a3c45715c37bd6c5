package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

type Middleware = func(http.Handler) http.Handler

type RouterConfig struct {
	Challenges    *ChallengeHandler
	Stats         *StatsHandler
	Social        *SocialHandler
	Notifications *NotificationHandler

	Health  http.HandlerFunc
	Metrics http.Handler

	// Auth guards every /api/v1 route except the catalog.
	Auth     Middleware
	Standard []Middleware
}

func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()
	for _, m := range cfg.Standard {
		standardRouter.Use(m)
	}

	if cfg.Health != nil {
		standardRouter.HandleFunc("/health", cfg.Health).Methods("GET")
	}
	if cfg.Metrics != nil {
		standardRouter.Handle("/metrics", cfg.Metrics).Methods("GET")
	}

	api := standardRouter.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/catalog", cfg.Challenges.GetCatalog).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(cfg.Auth)

	protected.HandleFunc("/challenges/today", cfg.Challenges.GetToday).Methods("GET")
	protected.HandleFunc("/challenges/completed", cfg.Challenges.GetCompletedToday).Methods("GET")
	protected.HandleFunc("/challenges/{challengeId}/toggle", cfg.Challenges.ToggleCompletion).Methods("POST")

	protected.HandleFunc("/stats", cfg.Stats.GetStats).Methods("GET")
	protected.HandleFunc("/stats/ws", cfg.Stats.StreamStats).Methods("GET")

	protected.HandleFunc("/user/profile", cfg.Social.UpdateProfile).Methods("PUT")

	protected.HandleFunc("/friends", cfg.Social.GetFriends).Methods("GET")
	protected.HandleFunc("/friends", cfg.Social.AddFriend).Methods("POST")
	protected.HandleFunc("/friends/{friendId}", cfg.Social.RemoveFriend).Methods("DELETE")
	protected.HandleFunc("/friends/{friendId}/profile", cfg.Social.GetFriendProfile).Methods("GET")

	protected.HandleFunc("/groups", cfg.Social.GetGroups).Methods("GET")
	protected.HandleFunc("/groups", cfg.Social.CreateGroup).Methods("POST")
	protected.HandleFunc("/groups/{groupId}/members", cfg.Social.AddGroupMember).Methods("POST")
	protected.HandleFunc("/groups/{groupId}/ranking", cfg.Social.GetGroupRanking).Methods("GET")

	protected.HandleFunc("/notifications/register-device", cfg.Notifications.RegisterDevice).Methods("POST")

	return r
}
