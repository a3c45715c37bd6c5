package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"dailyChallengesAPI/internal/types/stats"
)

const listenerRetryDelay = 2 * time.Second

// statsListener owns one connection outside the pool that LISTENs on
// dailyStatsChannel for the whole process and fans events out to watchers.
type statsListener struct {
	connConfig *pgx.ConnConfig
	load       func(ctx context.Context, userID string) (stats.DailyStats, error)
	fanout     *statsFanout

	cancel context.CancelFunc
	done   chan struct{}
}

func newStatsListener(connConfig *pgx.ConnConfig, load func(ctx context.Context, userID string) (stats.DailyStats, error)) *statsListener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &statsListener{
		connConfig: connConfig,
		load:       load,
		fanout:     newStatsFanout(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go l.run(ctx)
	return l
}

func (l *statsListener) run(ctx context.Context) {
	defer close(l.done)

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("stats listener disconnected, reconnecting", "error", err, "retry_in", listenerRetryDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(listenerRetryDelay):
		}
	}
}

func (l *statsListener) listen(ctx context.Context) error {
	conn, err := pgx.ConnectConfig(ctx, l.connConfig.Copy())
	if err != nil {
		return fmt.Errorf("failed to connect listener: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+dailyStatsChannel); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	l.resync(ctx)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var event dailyStatsEvent
		if err := json.Unmarshal([]byte(n.Payload), &event); err != nil {
			slog.Warn("dropping malformed stats notification", "error", err)
			continue
		}
		l.fanout.publish(event.UserID, stats.DailyStats{
			Points:    event.Points,
			Level:     event.Level,
			UpdatedAt: event.UpdatedAt,
		})
	}
}

// resync pushes the stored stats of every watched user. Notifications sent
// while the listener was disconnected are lost otherwise.
func (l *statsListener) resync(ctx context.Context) {
	for _, userID := range l.fanout.users() {
		d, err := l.load(ctx, userID)
		if err != nil {
			continue
		}
		l.fanout.publish(userID, d)
	}
}

func (l *statsListener) subscribe(userID string) (<-chan stats.DailyStats, func()) {
	return l.fanout.subscribe(userID)
}

func (l *statsListener) stop() {
	l.cancel()
	<-l.done
}
