package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dailyChallengesAPI/handlers"
	"dailyChallengesAPI/internal/bootstrap"
	"dailyChallengesAPI/internal/config"
	"dailyChallengesAPI/internal/logger"
	"dailyChallengesAPI/internal/notification"
	"dailyChallengesAPI/middleware"
	"dailyChallengesAPI/services"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	authMiddleware := middleware.ClerkAuthMiddleware
	switch {
	case cfg.IsDevelopment() && cfg.AuthDevSecret != "":
		authMiddleware = middleware.AuthMiddleware(middleware.HMACVerifier([]byte(cfg.AuthDevSecret)))
		slog.Warn("using development token verifier, Clerk is disabled")
	case cfg.ClerkSecretKey == "":
		slog.Error("CLERK_SECRET_KEY environment variable is not set")
		os.Exit(1)
	default:
		clerk.SetKey(cfg.ClerkSecretKey)
		slog.Info("clerk initialized successfully")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := bootstrap.Open(ctx, cfg)
	cancel()
	if err != nil {
		slog.Error("failed to open document store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		slog.Info("closing document store...")
		res.Store.Close()
	}()

	var pushProvider services.PushProvider
	if res.Firebase != nil {
		fcmService, err := notification.NewFCMService(context.Background(), res.Firebase)
		if err != nil {
			slog.Warn("could not initialize FCM", "error", err)
		} else {
			pushProvider = fcmService
			slog.Info("FCM push provider initialized successfully")
		}
	}
	dispatcher := services.NewNotificationDispatcher(res.Store, pushProvider, 5)
	defer dispatcher.Stop()

	progressionService, err := services.NewProgressionService(res.Store, res.Store, dispatcher, services.ProgressionOptions{
		DailyChallenges:  cfg.DailyChallenges,
		AccumulateWeekly: cfg.WeeklyPointsMode == config.WeeklyAccumulate,
		AllowRepeats:     cfg.RepeatPolicy == config.RepeatReuse,
		Location:         cfg.Location,
		SessionCacheSize: cfg.SessionCacheSize,
	})
	if err != nil {
		slog.Error("failed to create progression service", "error", err)
		os.Exit(1)
	}
	catalogService := services.NewCatalogService(res.Store)
	socialService := services.NewSocialService(res.Store, progressionService, cfg.Location)
	notificationService := services.NewNotificationService(res.Store)

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	services.RegisterMetrics(prometheus.DefaultRegisterer)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	if err := rateLimiter.TrustProxies(cfg.TrustedProxies...); err != nil {
		slog.Error("invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go rateLimiter.Cleanup(cleanupCtx, time.Minute, 3*time.Minute)

	r := handlers.NewRouter(handlers.RouterConfig{
		Challenges:    handlers.NewChallengeHandler(progressionService, catalogService),
		Stats:         handlers.NewStatsHandler(progressionService),
		Social:        handlers.NewSocialHandler(socialService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Health: func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			w.Header().Set("Content-Type", "application/json")
			if err := res.Store.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unhealthy", "error": "document store unreachable"}`))
				return
			}

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status": "healthy", "service": "daily-challenges-api"}`))
		},
		Metrics:  middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()),
		Auth:     authMiddleware,
		Standard: []handlers.Middleware{rateLimiter.Middleware, middleware.MonitorMiddleware},
	})

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "port", port, "store", cfg.StoreDriver, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("error starting server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	slog.Info("got signal", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server shutdown complete")
}
