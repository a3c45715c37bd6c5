package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dailyChallengesAPI/internal/notification"
	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/internal/types/stats"
)

// MemoryStore keeps every collection in process. It backs tests and the
// "memory" driver used for local development.
type MemoryStore struct {
	mu sync.RWMutex

	templates     map[string]challenge.Template
	templateOrder []string
	assignments   map[string][]challenge.Assignment
	daily         map[string]stats.DailyStats
	historical    map[string]stats.HistoricalStats
	profiles      map[string]social.Profile
	friends       map[string]map[string]social.Friendship
	groups        map[string]social.Group
	devices       map[string][]notification.DeviceToken

	watchers *statsFanout

	// Fail, when set, is consulted before every operation and its error returned.
	Fail func(op string) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates:   make(map[string]challenge.Template),
		assignments: make(map[string][]challenge.Assignment),
		daily:       make(map[string]stats.DailyStats),
		historical:  make(map[string]stats.HistoricalStats),
		profiles:    make(map[string]social.Profile),
		friends:     make(map[string]map[string]social.Friendship),
		groups:      make(map[string]social.Group),
		devices:     make(map[string][]notification.DeviceToken),
		watchers:    newStatsFanout(),
	}
}

func (s *MemoryStore) fail(op string) error {
	if s.Fail == nil {
		return nil
	}
	if err := s.Fail(op); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *MemoryStore) Templates(ctx context.Context) ([]challenge.Template, error) {
	if err := s.fail("templates"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]challenge.Template, 0, len(s.templateOrder))
	for _, id := range s.templateOrder {
		out = append(out, s.templates[id])
	}
	return out, nil
}

func (s *MemoryStore) PutTemplate(ctx context.Context, t challenge.Template) error {
	if err := s.fail("put_template"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[t.ID]; !ok {
		s.templateOrder = append(s.templateOrder, t.ID)
	}
	s.templates[t.ID] = t
	return nil
}

func (s *MemoryStore) AssignmentsForDay(ctx context.Context, userID, date string) ([]challenge.Assignment, error) {
	if err := s.fail("assignments_for_day"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []challenge.Assignment
	for _, a := range s.assignments[userID] {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveAssignment(ctx context.Context, userID string, a challenge.Assignment) error {
	if err := s.fail("save_assignment"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.assignments[userID]
	for i := range list {
		if list[i].Key == a.Key {
			list[i] = a
			return nil
		}
	}
	s.assignments[userID] = append(list, a)
	return nil
}

func (s *MemoryStore) DailyStats(ctx context.Context, userID string) (stats.DailyStats, error) {
	if err := s.fail("daily_stats"); err != nil {
		return stats.DailyStats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.daily[userID]
	if !ok {
		return stats.DailyStats{}, ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) MergeDailyStats(ctx context.Context, userID string, d stats.DailyStats) error {
	if err := s.fail("merge_daily_stats"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.daily[userID] = d
	s.watchers.publish(userID, d)
	return nil
}

func (s *MemoryStore) Historical(ctx context.Context, userID string) (stats.HistoricalStats, error) {
	if err := s.fail("historical"); err != nil {
		return stats.HistoricalStats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.historical[userID]
	if !ok {
		return stats.HistoricalStats{}, ErrNotFound
	}
	return cloneHistorical(h), nil
}

func (s *MemoryStore) MergeHistorical(ctx context.Context, userID string, h stats.HistoricalStats) error {
	if err := s.fail("merge_historical"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.historical[userID] = cloneHistorical(h)
	return nil
}

func (s *MemoryStore) WatchDailyStats(ctx context.Context, userID string, fn func(stats.DailyStats)) error {
	if err := s.fail("watch_daily_stats"); err != nil {
		return err
	}
	s.mu.RLock()
	ch, unsubscribe := s.watchers.subscribe(userID)
	current, hasCurrent := s.daily[userID]
	s.mu.RUnlock()
	defer unsubscribe()

	if hasCurrent {
		fn(current)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-ch:
			fn(d)
		}
	}
}

func (s *MemoryStore) Profile(ctx context.Context, userID string) (social.Profile, error) {
	if err := s.fail("profile"); err != nil {
		return social.Profile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return social.Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) SaveProfile(ctx context.Context, p social.Profile) error {
	if err := s.fail("save_profile"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.UserID] = p
	return nil
}

func (s *MemoryStore) AddFriendship(ctx context.Context, userID, friendID string, at time.Time) error {
	if err := s.fail("add_friendship"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addEdge(userID, friendID, at)
	s.addEdge(friendID, userID, at)
	return nil
}

func (s *MemoryStore) addEdge(from, to string, at time.Time) {
	if s.friends[from] == nil {
		s.friends[from] = make(map[string]social.Friendship)
	}
	s.friends[from][to] = social.Friendship{UserID: from, FriendID: to, CreatedAt: at}
}

func (s *MemoryStore) RemoveFriendship(ctx context.Context, userID, friendID string) error {
	if err := s.fail("remove_friendship"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.friends[userID], friendID)
	delete(s.friends[friendID], userID)
	return nil
}

func (s *MemoryStore) Friendships(ctx context.Context, userID string) ([]social.Friendship, error) {
	if err := s.fail("friendships"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]social.Friendship, 0, len(s.friends[userID]))
	for _, f := range s.friends[userID] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FriendID < out[j].FriendID })
	return out, nil
}

func (s *MemoryStore) AreFriends(ctx context.Context, userID, friendID string) (bool, error) {
	if err := s.fail("are_friends"); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.friends[userID][friendID]
	return ok, nil
}

func (s *MemoryStore) CreateGroup(ctx context.Context, g social.Group) error {
	if err := s.fail("create_group"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g.Members = append([]string(nil), g.Members...)
	s.groups[g.ID] = g
	return nil
}

func (s *MemoryStore) Group(ctx context.Context, groupID string) (social.Group, error) {
	if err := s.fail("group"); err != nil {
		return social.Group{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return social.Group{}, ErrNotFound
	}
	g.Members = append([]string(nil), g.Members...)
	return g, nil
}

func (s *MemoryStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	if err := s.fail("add_group_member"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	if g.HasMember(userID) {
		return nil
	}
	g.Members = append(g.Members, userID)
	s.groups[groupID] = g
	return nil
}

func (s *MemoryStore) GroupsFor(ctx context.Context, userID string) ([]social.Group, error) {
	if err := s.fail("groups_for"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []social.Group
	for _, g := range s.groups {
		if g.HasMember(userID) {
			g.Members = append([]string(nil), g.Members...)
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SaveDeviceToken(ctx context.Context, userID string, t notification.DeviceToken) error {
	if err := s.fail("save_device_token"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.devices[userID]
	for i := range tokens {
		if tokens[i].Token == t.Token {
			tokens[i] = t
			return nil
		}
	}
	s.devices[userID] = append(tokens, t)
	return nil
}

func (s *MemoryStore) DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	if err := s.fail("device_tokens"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]notification.DeviceToken(nil), s.devices[userID]...), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return s.fail("ping")
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneHistorical(h stats.HistoricalStats) stats.HistoricalStats {
	out := h
	out.Medals = append([]stats.Medal(nil), h.Medals...)
	out.WeeklyPoints = make(stats.WeeklyPoints, len(h.WeeklyPoints))
	for k, v := range h.WeeklyPoints {
		out.WeeklyPoints[k] = v
	}
	return out
}
