package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dailyChallengesAPI/internal/notification"
	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/internal/types/stats"
)

const dailyStatsChannel = "daily_stats_changed"

type PostgresStore struct {
	db *pgxpool.Pool

	listenerMu sync.Mutex
	listener   *statsListener
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresPool opens a pool with the same sizing the API has always used.
func NewPostgresPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func (s *PostgresStore) Templates(ctx context.Context) ([]challenge.Template, error) {
	query := `
	SELECT id, title, challenge_text, image_url
	FROM challenge_templates
	ORDER BY created_at, id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []challenge.Template
	for rows.Next() {
		var t challenge.Template
		if err := rows.Scan(&t.ID, &t.Title, &t.ChallengeText, &t.ImageURL); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	return templates, rows.Err()
}

func (s *PostgresStore) PutTemplate(ctx context.Context, t challenge.Template) error {
	query := `
	INSERT INTO challenge_templates (id, title, challenge_text, image_url)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		challenge_text = EXCLUDED.challenge_text,
		image_url = EXCLUDED.image_url
	`

	if _, err := s.db.Exec(ctx, query, t.ID, t.Title, t.ChallengeText, t.ImageURL); err != nil {
		return fmt.Errorf("failed to write template %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) AssignmentsForDay(ctx context.Context, userID, date string) ([]challenge.Assignment, error) {
	query := `
	SELECT doc_key, template_id, title, challenge_text, image_url, completed, date
	FROM daily_challenges
	WHERE user_id = $1 AND date = $2
	ORDER BY created_at, doc_key
	`

	rows, err := s.db.Query(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []challenge.Assignment
	for rows.Next() {
		var a challenge.Assignment
		if err := rows.Scan(&a.Key, &a.ID, &a.Title, &a.ChallengeText, &a.ImageURL, &a.Completed, &a.Date); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

func (s *PostgresStore) SaveAssignment(ctx context.Context, userID string, a challenge.Assignment) error {
	query := `
	INSERT INTO daily_challenges (user_id, doc_key, template_id, title, challenge_text, image_url, completed, date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (user_id, doc_key) DO UPDATE SET
		template_id = EXCLUDED.template_id,
		title = EXCLUDED.title,
		challenge_text = EXCLUDED.challenge_text,
		image_url = EXCLUDED.image_url,
		completed = EXCLUDED.completed,
		date = EXCLUDED.date
	`

	_, err := s.db.Exec(ctx, query, userID, a.Key, a.ID, a.Title, a.ChallengeText, a.ImageURL, a.Completed, a.Date)
	if err != nil {
		return fmt.Errorf("failed to write assignment %s: %w", a.Key, err)
	}
	return nil
}

func (s *PostgresStore) DailyStats(ctx context.Context, userID string) (stats.DailyStats, error) {
	var d stats.DailyStats
	err := s.db.QueryRow(ctx, `SELECT points, level, updated_at FROM daily_stats WHERE user_id = $1`, userID).
		Scan(&d.Points, &d.Level, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats.DailyStats{}, ErrNotFound
		}
		return stats.DailyStats{}, fmt.Errorf("failed to read daily stats: %w", err)
	}
	return d, nil
}

type dailyStatsEvent struct {
	UserID    string    `json:"user_id"`
	Points    int       `json:"points"`
	Level     int       `json:"level"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MergeDailyStats upserts the row and publishes it on dailyStatsChannel in
// the same statement.
func (s *PostgresStore) MergeDailyStats(ctx context.Context, userID string, d stats.DailyStats) error {
	query := `
	WITH upsert AS (
		INSERT INTO daily_stats (user_id, points, level, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			points = EXCLUDED.points,
			level = EXCLUDED.level,
			updated_at = EXCLUDED.updated_at
		RETURNING user_id, points, level, updated_at
	)
	SELECT pg_notify($5, json_build_object(
		'user_id', user_id,
		'points', points,
		'level', level,
		'updated_at', updated_at
	)::text)
	FROM upsert
	`

	if _, err := s.db.Exec(ctx, query, userID, d.Points, d.Level, d.UpdatedAt, dailyStatsChannel); err != nil {
		return fmt.Errorf("failed to write daily stats: %w", err)
	}
	return nil
}

func (s *PostgresStore) Historical(ctx context.Context, userID string) (stats.HistoricalStats, error) {
	var h stats.HistoricalStats
	var medalsJSON, weeklyJSON []byte

	query := `
	SELECT max_points, max_level, medals, weekly_points
	FROM historical_stats
	WHERE user_id = $1
	`

	err := s.db.QueryRow(ctx, query, userID).Scan(&h.MaxPoints, &h.MaxLevel, &medalsJSON, &weeklyJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats.HistoricalStats{}, ErrNotFound
		}
		return stats.HistoricalStats{}, fmt.Errorf("failed to read historical stats: %w", err)
	}

	if err := json.Unmarshal(medalsJSON, &h.Medals); err != nil {
		return stats.HistoricalStats{}, fmt.Errorf("failed to decode medals: %w", err)
	}
	if err := json.Unmarshal(weeklyJSON, &h.WeeklyPoints); err != nil {
		return stats.HistoricalStats{}, fmt.Errorf("failed to decode weekly points: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) MergeHistorical(ctx context.Context, userID string, h stats.HistoricalStats) error {
	medals := h.Medals
	if medals == nil {
		medals = []stats.Medal{}
	}
	medalsJSON, err := json.Marshal(medals)
	if err != nil {
		return fmt.Errorf("failed to encode medals: %w", err)
	}
	weekly := h.WeeklyPoints
	if weekly == nil {
		weekly = stats.WeeklyPoints{}
	}
	weeklyJSON, err := json.Marshal(weekly)
	if err != nil {
		return fmt.Errorf("failed to encode weekly points: %w", err)
	}

	query := `
	INSERT INTO historical_stats (user_id, max_points, max_level, medals, weekly_points, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (user_id) DO UPDATE SET
		max_points = EXCLUDED.max_points,
		max_level = EXCLUDED.max_level,
		medals = EXCLUDED.medals,
		weekly_points = EXCLUDED.weekly_points,
		updated_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, userID, h.MaxPoints, h.MaxLevel, medalsJSON, weeklyJSON); err != nil {
		return fmt.Errorf("failed to write historical stats: %w", err)
	}
	return nil
}

// WatchDailyStats subscribes to the store's shared listener, so watchers do
// not hold pool connections.
func (s *PostgresStore) WatchDailyStats(ctx context.Context, userID string, fn func(stats.DailyStats)) error {
	updates, unsubscribe := s.statsListener().subscribe(userID)
	defer unsubscribe()

	var last stats.DailyStats
	current, err := s.DailyStats(ctx, userID)
	switch {
	case err == nil:
		last = current
		fn(current)
	case errors.Is(err, ErrNotFound):
	default:
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-updates:
			// The initial read may already be newer than a queued event.
			if d.UpdatedAt.Before(last.UpdatedAt) {
				continue
			}
			last = d
			fn(d)
		}
	}
}

func (s *PostgresStore) statsListener() *statsListener {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	if s.listener == nil {
		s.listener = newStatsListener(s.db.Config().ConnConfig, s.DailyStats)
	}
	return s.listener
}

func (s *PostgresStore) stopListener() {
	s.listenerMu.Lock()
	l := s.listener
	s.listener = nil
	s.listenerMu.Unlock()

	if l != nil {
		l.stop()
	}
}

func (s *PostgresStore) Profile(ctx context.Context, userID string) (social.Profile, error) {
	p := social.Profile{UserID: userID}
	err := s.db.QueryRow(ctx, `SELECT display_name, updated_at FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.DisplayName, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return social.Profile{}, ErrNotFound
		}
		return social.Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p social.Profile) error {
	query := `
	INSERT INTO profiles (user_id, display_name, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE SET
		display_name = EXCLUDED.display_name,
		updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.Exec(ctx, query, p.UserID, p.DisplayName, p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddFriendship(ctx context.Context, userID, friendID string, at time.Time) error {
	query := `
	INSERT INTO friendships (user_id, friend_id, created_at)
	VALUES ($1, $2, $3), ($2, $1, $3)
	ON CONFLICT (user_id, friend_id) DO NOTHING
	`

	if _, err := s.db.Exec(ctx, query, userID, friendID, at); err != nil {
		return fmt.Errorf("failed to add friendship: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveFriendship(ctx context.Context, userID, friendID string) error {
	query := `
	DELETE FROM friendships
	WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`

	if _, err := s.db.Exec(ctx, query, userID, friendID); err != nil {
		return fmt.Errorf("failed to remove friendship: %w", err)
	}
	return nil
}

func (s *PostgresStore) Friendships(ctx context.Context, userID string) ([]social.Friendship, error) {
	rows, err := s.db.Query(ctx, `
	SELECT user_id, friend_id, created_at
	FROM friendships
	WHERE user_id = $1
	ORDER BY friend_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var out []social.Friendship
	for rows.Next() {
		var f social.Friendship
		if err := rows.Scan(&f.UserID, &f.FriendID, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}

	return out, rows.Err()
}

func (s *PostgresStore) AreFriends(ctx context.Context, userID, friendID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
	SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)
	`, userID, friendID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CreateGroup(ctx context.Context, g social.Group) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
	INSERT INTO challenge_groups (id, name, owner_id, created_at)
	VALUES ($1, $2, $3, $4)
	`, g.ID, g.Name, g.OwnerID, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	for _, member := range g.Members {
		_, err = tx.Exec(ctx, `
		INSERT INTO challenge_group_members (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		`, g.ID, member)
		if err != nil {
			return fmt.Errorf("failed to add group member %s: %w", member, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Group(ctx context.Context, groupID string) (social.Group, error) {
	g := social.Group{ID: groupID}
	err := s.db.QueryRow(ctx, `
	SELECT g.name, g.owner_id, g.created_at,
		COALESCE(ARRAY_AGG(m.user_id ORDER BY m.joined_at) FILTER (WHERE m.user_id IS NOT NULL), '{}')
	FROM challenge_groups g
	LEFT JOIN challenge_group_members m ON m.group_id = g.id
	WHERE g.id = $1
	GROUP BY g.id
	`, groupID).Scan(&g.Name, &g.OwnerID, &g.CreatedAt, &g.Members)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return social.Group{}, ErrNotFound
		}
		return social.Group{}, fmt.Errorf("failed to read group: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	tag, err := s.db.Exec(ctx, `
	INSERT INTO challenge_group_members (group_id, user_id)
	SELECT id, $2 FROM challenge_groups WHERE id = $1
	ON CONFLICT DO NOTHING
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Group(ctx, groupID); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GroupsFor(ctx context.Context, userID string) ([]social.Group, error) {
	rows, err := s.db.Query(ctx, `
	SELECT g.id, g.name, g.owner_id, g.created_at,
		ARRAY(SELECT m2.user_id FROM challenge_group_members m2 WHERE m2.group_id = g.id ORDER BY m2.joined_at)
	FROM challenge_groups g
	JOIN challenge_group_members m ON m.group_id = g.id
	WHERE m.user_id = $1
	ORDER BY g.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var out []social.Group
	for rows.Next() {
		var g social.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.Members); err != nil {
			return nil, err
		}
		out = append(out, g)
	}

	return out, rows.Err()
}

func (s *PostgresStore) SaveDeviceToken(ctx context.Context, userID string, t notification.DeviceToken) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform
	`, userID, t.Token, t.Platform, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write device token: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
	SELECT token, platform, created_at FROM device_tokens WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var out []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.stopListener()
	s.db.Close()
	return nil
}
