package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/internal/notification"
	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/stats"
	"dailyChallengesAPI/utils"
)

var (
	ErrUpdateInFlight     = errors.New("another update is already in progress")
	ErrChallengeNotActive = errors.New("challenge is not active today")
	ErrInvalidInput       = errors.New("invalid input")
)

type ProgressionOptions struct {
	DailyChallenges int
	// AccumulateWeekly adds every reconciliation's points to today's weekly
	// entry instead of overwriting it.
	AccumulateWeekly bool
	// AllowRepeats lets a template already assigned today be drawn again when
	// the unused part of the catalog cannot fill the day.
	AllowRepeats     bool
	Location         *time.Location
	SessionCacheSize int
	Now              func() time.Time
	Rand             *rand.Rand
}

// TodayView is what the challenges screen renders after a refresh.
type TodayView struct {
	Date        string                 `json:"date"`
	Challenges  []challenge.Assignment `json:"challenges"`
	Points      int                    `json:"points"`
	Level       int                    `json:"level"`
	Historical  stats.HistoricalStats  `json:"historical"`
	WeeklyTotal int                    `json:"weekly_total"`
	NewMedals   []stats.Medal          `json:"new_medals,omitempty"`
	LeveledUp   bool                   `json:"leveled_up"`
	Stale       bool                   `json:"stale"`
}

type session struct {
	seq       uint64
	view      TodayView
	completed []challenge.Assignment
}

func (s session) lookup(ref string) (challenge.Assignment, bool) {
	for _, a := range s.view.Challenges {
		if a.Matches(ref) {
			return a, true
		}
	}
	for _, a := range s.completed {
		if a.Matches(ref) {
			return a, true
		}
	}
	return challenge.Assignment{}, false
}

type ProgressionService struct {
	challenges docstore.ChallengeStore
	stats      docstore.StatsStore
	notifier   Notifier
	opts       ProgressionOptions

	rngMu sync.Mutex

	refreshes singleflight.Group

	sessionsMu sync.Mutex
	sessions   *lru.Cache
	seq        uint64

	inFlightMu sync.Mutex
	inFlight   map[string]string
}

func NewProgressionService(challenges docstore.ChallengeStore, statsStore docstore.StatsStore, notifier Notifier, opts ProgressionOptions) (*ProgressionService, error) {
	if opts.DailyChallenges < 1 {
		opts.DailyChallenges = 5
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SessionCacheSize < 1 {
		opts.SessionCacheSize = 10000
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	sessions, err := lru.New(opts.SessionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}

	return &ProgressionService{
		challenges: challenges,
		stats:      statsStore,
		notifier:   notifier,
		opts:       opts,
		sessions:   sessions,
		inFlight:   make(map[string]string),
	}, nil
}

func (s *ProgressionService) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// Refresh loads today's challenges for the user, tops them up from the
// catalog, recomputes the day's stats and reconciles the historical record.
// When any step fails the last view this process served is returned marked
// stale.
func (s *ProgressionService) Refresh(ctx context.Context, userID string) TodayView {
	if userID == "" {
		return TodayView{Challenges: []challenge.Assignment{}}
	}

	v, _, _ := s.refreshes.Do(userID, func() (interface{}, error) {
		return s.refresh(ctx, userID), nil
	})
	return v.(TodayView)
}

func (s *ProgressionService) refresh(ctx context.Context, userID string) TodayView {
	refreshesTotal.Inc()
	seq := s.nextSeq()

	sess, stage, err := s.load(ctx, userID)
	if err != nil {
		refreshFailures.WithLabelValues(stage).Inc()
		slog.Error("failed to refresh today's challenges", "user_id", userID, "stage", stage, "error", err)
		return s.staleView(userID)
	}

	sess.seq = seq
	s.storeSession(userID, sess)
	return sess.view
}

func (s *ProgressionService) load(ctx context.Context, userID string) (session, string, error) {
	now := s.now()
	today := challenge.Day(now)

	existing, err := s.challenges.AssignmentsForDay(ctx, userID, today)
	if err != nil {
		return session{}, "fetch_assignments", fmt.Errorf("failed to fetch today's challenges: %w", err)
	}

	var incomplete, completed []challenge.Assignment
	used := make(map[string]bool, len(existing))
	keys := make(map[string]bool, len(existing))
	for _, a := range existing {
		used[a.ID] = true
		keys[a.Key] = true
		if a.Completed {
			completed = append(completed, a)
		} else {
			incomplete = append(incomplete, a)
		}
	}

	if needed := s.opts.DailyChallenges - len(incomplete); needed > 0 {
		catalog, err := s.challenges.Templates(ctx)
		if err != nil {
			return session{}, "fetch_templates", fmt.Errorf("failed to fetch challenge templates: %w", err)
		}

		s.rngMu.Lock()
		drawn := utils.DrawTemplates(s.opts.Rand, catalog, used, needed, s.opts.AllowRepeats)
		s.rngMu.Unlock()

		fresh := make([]challenge.Assignment, 0, len(drawn))
		for _, t := range drawn {
			a := challenge.NewAssignment(t, today)
			if keys[a.Key] {
				a.Key = a.Key + "_" + uuid.NewString()[:8]
			}
			keys[a.Key] = true
			fresh = append(fresh, a)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, a := range fresh {
			g.Go(func() error {
				return s.challenges.SaveAssignment(gctx, userID, a)
			})
		}
		if err := g.Wait(); err != nil {
			return session{}, "save_assignments", fmt.Errorf("failed to save new challenges: %w", err)
		}

		incomplete = append(incomplete, fresh...)
	}

	if len(incomplete) > s.opts.DailyChallenges {
		incomplete = incomplete[:s.opts.DailyChallenges]
	}
	if incomplete == nil {
		incomplete = []challenge.Assignment{}
	}

	points := utils.CalculatePoints(len(completed))
	level := utils.CalculateLevel(points)

	daily := stats.DailyStats{Points: points, Level: level, UpdatedAt: now}
	if err := s.stats.MergeDailyStats(ctx, userID, daily); err != nil {
		return session{}, "save_daily_stats", fmt.Errorf("failed to save daily stats: %w", err)
	}

	view := TodayView{
		Date:       today,
		Challenges: incomplete,
		Points:     points,
		Level:      level,
	}
	s.reconcile(ctx, userID, now, &view)

	return session{view: view, completed: completed}, "", nil
}

// reconcile folds the day's points and level into the historical record and
// fills the historical part of view. Failures are logged and never abort the
// refresh.
func (s *ProgressionService) reconcile(ctx context.Context, userID string, now time.Time, view *TodayView) {
	h, err := s.stats.Historical(ctx, userID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		h = stats.DefaultHistorical()
	case err != nil:
		reconcileFailures.Inc()
		slog.Error("failed to read historical stats", "user_id", userID, "error", err)
		h = s.cachedHistorical(userID)
		view.Historical = h
		view.WeeklyTotal = utils.WeeklyTotal(h.WeeklyPoints, now)
		return
	}
	h.Normalize()

	previousMaxLevel := h.MaxLevel
	if view.Points > h.MaxPoints {
		h.MaxPoints = view.Points
	}
	if view.Level > h.MaxLevel {
		h.MaxLevel = view.Level
	}
	added := utils.AwardMedals(&h, view.Points, view.Level)

	utils.RecordWeeklyPoints(h.WeeklyPoints, challenge.Day(now), view.Points, s.opts.AccumulateWeekly)
	h.WeeklyPoints = utils.PruneWeeklyPoints(h.WeeklyPoints, now)

	view.Historical = h
	view.WeeklyTotal = utils.WeeklyTotal(h.WeeklyPoints, now)

	if err := s.stats.MergeHistorical(ctx, userID, h); err != nil {
		reconcileFailures.Inc()
		slog.Error("failed to save historical stats", "user_id", userID, "error", err)
		return
	}

	view.NewMedals = added
	view.LeveledUp = h.MaxLevel > previousMaxLevel
	s.announce(userID, *view)
}

func (s *ProgressionService) announce(userID string, view TodayView) {
	for _, m := range view.NewMedals {
		medalsUnlocked.WithLabelValues(m.ID).Inc()
		slog.Info("medal unlocked", "user_id", userID, "medal", m.ID)
	}
	if s.notifier == nil {
		return
	}

	if view.LeveledUp {
		s.notifier.Dispatch(notification.Notification{
			UserID: userID,
			Type:   notification.NotificationLevelUp,
			Title:  "Level up!",
			Body:   fmt.Sprintf("You reached level %d.", view.Level),
			Data:   map[string]string{"level": fmt.Sprint(view.Level)},
		})
	}
	for _, m := range view.NewMedals {
		s.notifier.Dispatch(notification.Notification{
			UserID: userID,
			Type:   notification.NotificationMedalUnlocked,
			Title:  m.Title,
			Body:   m.Description,
			Data:   map[string]string{"medal_id": m.ID},
		})
	}
}

// ToggleCompletion flips the completed flag of a challenge from the user's
// last loaded view and returns the refreshed view. Only one toggle per user
// runs at a time; a concurrent one fails with ErrUpdateInFlight.
func (s *ProgressionService) ToggleCompletion(ctx context.Context, userID, challengeID string) (TodayView, error) {
	if userID == "" || challengeID == "" {
		return TodayView{}, ErrInvalidInput
	}

	release, ok := s.acquire(userID)
	if !ok {
		togglesTotal.WithLabelValues("rejected").Inc()
		return TodayView{}, ErrUpdateInFlight
	}
	defer release()

	today := challenge.Day(s.now())
	sess, ok := s.session(userID)
	if !ok || sess.view.Date != today {
		s.Refresh(ctx, userID)
		if sess, ok = s.session(userID); !ok || sess.view.Date != today {
			return TodayView{}, fmt.Errorf("failed to load today's challenges for user %s", userID)
		}
	}

	target, ok := sess.lookup(challengeID)
	if !ok || target.Date != today {
		togglesTotal.WithLabelValues("not_active").Inc()
		return TodayView{}, ErrChallengeNotActive
	}

	current, err := s.challenges.AssignmentsForDay(ctx, userID, today)
	if err != nil {
		return TodayView{}, fmt.Errorf("failed to fetch today's challenges: %w", err)
	}
	found := false
	for _, a := range current {
		if a.Key == target.Key {
			target, found = a, true
			break
		}
	}
	if !found {
		togglesTotal.WithLabelValues("not_active").Inc()
		return TodayView{}, ErrChallengeNotActive
	}

	target.Completed = !target.Completed
	if err := s.challenges.SaveAssignment(ctx, userID, target); err != nil {
		return TodayView{}, fmt.Errorf("failed to update challenge: %w", err)
	}

	if target.Completed {
		togglesTotal.WithLabelValues("completed").Inc()
	} else {
		togglesTotal.WithLabelValues("uncompleted").Inc()
	}

	// A refresh already running for this user read the old flag.
	s.refreshes.Forget(userID)
	return s.Refresh(ctx, userID), nil
}

// CompletedToday lists the assignments of today the user has completed.
func (s *ProgressionService) CompletedToday(ctx context.Context, userID string) ([]challenge.Assignment, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	all, err := s.challenges.AssignmentsForDay(ctx, userID, challenge.Day(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch today's challenges: %w", err)
	}

	completed := []challenge.Assignment{}
	for _, a := range all {
		if a.Completed {
			completed = append(completed, a)
		}
	}
	return completed, nil
}

// Summary reads the stored progression of a user without touching it.
func (s *ProgressionService) Summary(ctx context.Context, userID string) (stats.Summary, error) {
	if userID == "" {
		return stats.Summary{}, ErrInvalidInput
	}

	daily, err := s.stats.DailyStats(ctx, userID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		daily = stats.DailyStats{Points: 0, Level: 1}
	case err != nil:
		return stats.Summary{}, fmt.Errorf("failed to get daily stats: %w", err)
	}

	h, err := s.stats.Historical(ctx, userID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		h = stats.DefaultHistorical()
	case err != nil:
		return stats.Summary{}, fmt.Errorf("failed to get historical stats: %w", err)
	}
	h.Normalize()

	return stats.Summary{
		Daily:       daily,
		Historical:  h,
		WeeklyTotal: utils.WeeklyTotal(h.WeeklyPoints, s.now()),
	}, nil
}

// OnStatsChanged calls fn with the user's daily stats now and on every later
// change until ctx is done.
func (s *ProgressionService) OnStatsChanged(ctx context.Context, userID string, fn func(stats.DailyStats)) error {
	if userID == "" {
		return ErrInvalidInput
	}
	if err := s.stats.WatchDailyStats(ctx, userID, fn); err != nil {
		return fmt.Errorf("failed to watch daily stats: %w", err)
	}
	return nil
}

func (s *ProgressionService) acquire(userID string) (func(), bool) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	if _, busy := s.inFlight[userID]; busy {
		return nil, false
	}
	token := uuid.NewString()
	s.inFlight[userID] = token

	return func() {
		s.inFlightMu.Lock()
		defer s.inFlightMu.Unlock()
		if s.inFlight[userID] == token {
			delete(s.inFlight, userID)
		}
	}, true
}

func (s *ProgressionService) nextSeq() uint64 {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.seq++
	return s.seq
}

// storeSession keeps sess unless a refresh that started later already stored
// its own.
func (s *ProgressionService) storeSession(userID string, sess session) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	if v, ok := s.sessions.Get(userID); ok && v.(session).seq > sess.seq {
		return
	}
	s.sessions.Add(userID, sess)
}

func (s *ProgressionService) session(userID string) (session, bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	v, ok := s.sessions.Get(userID)
	if !ok {
		return session{}, false
	}
	return v.(session), true
}

func (s *ProgressionService) staleView(userID string) TodayView {
	sess, ok := s.session(userID)
	if !ok {
		h := stats.DefaultHistorical()
		return TodayView{
			Challenges: []challenge.Assignment{},
			Level:      1,
			Historical: h,
			Stale:      true,
		}
	}
	view := sess.view
	view.NewMedals = nil
	view.LeveledUp = false
	view.Stale = true
	return view
}

func (s *ProgressionService) cachedHistorical(userID string) stats.HistoricalStats {
	if sess, ok := s.session(userID); ok {
		return sess.view.Historical
	}
	return stats.DefaultHistorical()
}
