package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dailyChallengesAPI/internal/types/stats"
	"dailyChallengesAPI/middleware"
	"dailyChallengesAPI/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type statsMessage struct {
	Type  string           `json:"type"`
	Stats stats.DailyStats `json:"stats"`
}

type StatsHandler struct {
	progressionService *services.ProgressionService
}

func NewStatsHandler(progressionService *services.ProgressionService) *StatsHandler {
	return &StatsHandler{progressionService: progressionService}
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	summary, err := h.progressionService.Summary(ctx, userID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get stats")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// StreamStats upgrades to a websocket and pushes the user's daily stats every
// time they change, starting with the current value.
func (h *StatsHandler) StreamStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("could not upgrade connection", "user_id", userID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		readUntilClosed(conn)
	}()
	go func() {
		defer wg.Done()
		pingUntilDone(ctx, conn)
	}()

	err = h.progressionService.OnStatsChanged(ctx, userID, func(d stats.DailyStats) {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(statsMessage{Type: "stats", Stats: d}); err != nil {
			slog.Debug("stats stream write failed", "user_id", userID, "error", err)
			cancel()
		}
	})
	if err != nil {
		slog.Error("stats stream failed", "user_id", userID, "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "stats unavailable"),
			time.Now().Add(writeWait))
	}

	cancel()
	conn.Close()
	wg.Wait()
}

// readUntilClosed drains client frames so control messages are processed and
// returns once the peer goes away.
func readUntilClosed(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func pingUntilDone(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
