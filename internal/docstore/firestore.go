package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dailyChallengesAPI/internal/notification"
	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/internal/types/stats"
)

const (
	templatesCollection   = "dailyChallengesTemplates"
	usersCollection       = "users"
	assignmentsCollection = "dailyChallenges"
	statsCollection       = "stats"
	friendsCollection     = "friends"
	devicesCollection     = "devices"
	groupsCollection      = "groups"

	dailyStatsDoc      = "daily"
	historicalStatsDoc = "historical"
)

// FirestoreStore lays documents out the way the mobile client reads them:
// users/{uid}/dailyChallenges/{key}, users/{uid}/stats/{daily,historical}.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) user(userID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(userID)
}

func (s *FirestoreStore) statsDoc(userID, name string) *firestore.DocumentRef {
	return s.user(userID).Collection(statsCollection).Doc(name)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *FirestoreStore) Templates(ctx context.Context) ([]challenge.Template, error) {
	snaps, err := s.client.Collection(templatesCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make([]challenge.Template, 0, len(snaps))
	for _, snap := range snaps {
		var t challenge.Template
		if err := snap.DataTo(&t); err != nil {
			return nil, fmt.Errorf("failed to decode template %s: %w", snap.Ref.ID, err)
		}
		t.ID = snap.Ref.ID
		templates = append(templates, t)
	}
	return templates, nil
}

func (s *FirestoreStore) PutTemplate(ctx context.Context, t challenge.Template) error {
	_, err := s.client.Collection(templatesCollection).Doc(t.ID).Set(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to write template %s: %w", t.ID, err)
	}
	return nil
}

func (s *FirestoreStore) AssignmentsForDay(ctx context.Context, userID, date string) ([]challenge.Assignment, error) {
	snaps, err := s.user(userID).Collection(assignmentsCollection).
		Where("date", "==", date).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}

	assignments := make([]challenge.Assignment, 0, len(snaps))
	for _, snap := range snaps {
		var a challenge.Assignment
		if err := snap.DataTo(&a); err != nil {
			return nil, fmt.Errorf("failed to decode assignment %s: %w", snap.Ref.ID, err)
		}
		a.Key = snap.Ref.ID
		if a.ID == "" {
			a.ID = snap.Ref.ID
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}

func (s *FirestoreStore) SaveAssignment(ctx context.Context, userID string, a challenge.Assignment) error {
	_, err := s.user(userID).Collection(assignmentsCollection).Doc(a.Key).Set(ctx, a)
	if err != nil {
		return fmt.Errorf("failed to write assignment %s: %w", a.Key, err)
	}
	return nil
}

func (s *FirestoreStore) DailyStats(ctx context.Context, userID string) (stats.DailyStats, error) {
	snap, err := s.statsDoc(userID, dailyStatsDoc).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return stats.DailyStats{}, ErrNotFound
		}
		return stats.DailyStats{}, fmt.Errorf("failed to read daily stats: %w", err)
	}

	var d stats.DailyStats
	if err := snap.DataTo(&d); err != nil {
		return stats.DailyStats{}, fmt.Errorf("failed to decode daily stats: %w", err)
	}
	return d, nil
}

func (s *FirestoreStore) MergeDailyStats(ctx context.Context, userID string, d stats.DailyStats) error {
	_, err := s.statsDoc(userID, dailyStatsDoc).Set(ctx, map[string]any{
		"points":    d.Points,
		"level":     d.Level,
		"updatedAt": d.UpdatedAt,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to write daily stats: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Historical(ctx context.Context, userID string) (stats.HistoricalStats, error) {
	snap, err := s.statsDoc(userID, historicalStatsDoc).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return stats.HistoricalStats{}, ErrNotFound
		}
		return stats.HistoricalStats{}, fmt.Errorf("failed to read historical stats: %w", err)
	}

	var h stats.HistoricalStats
	if err := snap.DataTo(&h); err != nil {
		return stats.HistoricalStats{}, fmt.Errorf("failed to decode historical stats: %w", err)
	}
	return h, nil
}

func (s *FirestoreStore) MergeHistorical(ctx context.Context, userID string, h stats.HistoricalStats) error {
	medals := make([]map[string]any, 0, len(h.Medals))
	for _, m := range h.Medals {
		medals = append(medals, map[string]any{
			"id":          m.ID,
			"title":       m.Title,
			"description": m.Description,
		})
	}
	weekly := make(map[string]any, len(h.WeeklyPoints))
	for day, points := range h.WeeklyPoints {
		weekly[day] = points
	}

	// weeklyPoints is replaced as a whole so pruned days disappear; MergeAll
	// would keep them.
	_, err := s.statsDoc(userID, historicalStatsDoc).Set(ctx, map[string]any{
		"maxPoints":    h.MaxPoints,
		"maxLevel":     h.MaxLevel,
		"medals":       medals,
		"weeklyPoints": weekly,
	}, firestore.Merge([]string{"maxPoints"}, []string{"maxLevel"}, []string{"medals"}, []string{"weeklyPoints"}))
	if err != nil {
		return fmt.Errorf("failed to write historical stats: %w", err)
	}
	return nil
}

func (s *FirestoreStore) WatchDailyStats(ctx context.Context, userID string, fn func(stats.DailyStats)) error {
	it := s.statsDoc(userID, dailyStatsDoc).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("daily stats subscription: %w", err)
		}
		if !snap.Exists() {
			continue
		}

		var d stats.DailyStats
		if err := snap.DataTo(&d); err != nil {
			return fmt.Errorf("failed to decode daily stats: %w", err)
		}
		fn(d)
	}
}

func (s *FirestoreStore) Profile(ctx context.Context, userID string) (social.Profile, error) {
	snap, err := s.user(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return social.Profile{}, ErrNotFound
		}
		return social.Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}

	var p social.Profile
	if err := snap.DataTo(&p); err != nil {
		return social.Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	p.UserID = userID
	return p, nil
}

func (s *FirestoreStore) SaveProfile(ctx context.Context, p social.Profile) error {
	_, err := s.user(p.UserID).Set(ctx, map[string]any{
		"displayName": p.DisplayName,
		"updatedAt":   p.UpdatedAt,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

func (s *FirestoreStore) friendRef(userID, friendID string) *firestore.DocumentRef {
	return s.user(userID).Collection(friendsCollection).Doc(friendID)
}

func (s *FirestoreStore) AddFriendship(ctx context.Context, userID, friendID string, at time.Time) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(s.friendRef(userID, friendID), social.Friendship{UserID: userID, FriendID: friendID, CreatedAt: at}); err != nil {
			return err
		}
		return tx.Set(s.friendRef(friendID, userID), social.Friendship{UserID: friendID, FriendID: userID, CreatedAt: at})
	})
	if err != nil {
		return fmt.Errorf("failed to add friendship: %w", err)
	}
	return nil
}

func (s *FirestoreStore) RemoveFriendship(ctx context.Context, userID, friendID string) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Delete(s.friendRef(userID, friendID)); err != nil {
			return err
		}
		return tx.Delete(s.friendRef(friendID, userID))
	})
	if err != nil {
		return fmt.Errorf("failed to remove friendship: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Friendships(ctx context.Context, userID string) ([]social.Friendship, error) {
	snaps, err := s.user(userID).Collection(friendsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}

	out := make([]social.Friendship, 0, len(snaps))
	for _, snap := range snaps {
		var f social.Friendship
		if err := snap.DataTo(&f); err != nil {
			return nil, fmt.Errorf("failed to decode friend %s: %w", snap.Ref.ID, err)
		}
		f.UserID = userID
		f.FriendID = snap.Ref.ID
		out = append(out, f)
	}
	return out, nil
}

func (s *FirestoreStore) AreFriends(ctx context.Context, userID, friendID string) (bool, error) {
	_, err := s.friendRef(userID, friendID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read friendship: %w", err)
	}
	return true, nil
}

func (s *FirestoreStore) CreateGroup(ctx context.Context, g social.Group) error {
	_, err := s.client.Collection(groupsCollection).Doc(g.ID).Create(ctx, g)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Group(ctx context.Context, groupID string) (social.Group, error) {
	snap, err := s.client.Collection(groupsCollection).Doc(groupID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return social.Group{}, ErrNotFound
		}
		return social.Group{}, fmt.Errorf("failed to read group: %w", err)
	}

	var g social.Group
	if err := snap.DataTo(&g); err != nil {
		return social.Group{}, fmt.Errorf("failed to decode group: %w", err)
	}
	g.ID = snap.Ref.ID
	return g, nil
}

func (s *FirestoreStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	_, err := s.client.Collection(groupsCollection).Doc(groupID).Update(ctx, []firestore.Update{
		{Path: "members", Value: firestore.ArrayUnion(userID)},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GroupsFor(ctx context.Context, userID string) ([]social.Group, error) {
	snaps, err := s.client.Collection(groupsCollection).
		Where("members", "array-contains", userID).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	out := make([]social.Group, 0, len(snaps))
	for _, snap := range snaps {
		var g social.Group
		if err := snap.DataTo(&g); err != nil {
			return nil, fmt.Errorf("failed to decode group %s: %w", snap.Ref.ID, err)
		}
		g.ID = snap.Ref.ID
		out = append(out, g)
	}
	return out, nil
}

func (s *FirestoreStore) SaveDeviceToken(ctx context.Context, userID string, t notification.DeviceToken) error {
	_, err := s.user(userID).Collection(devicesCollection).Doc(t.Token).Set(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to write device token: %w", err)
	}
	return nil
}

func (s *FirestoreStore) DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	snaps, err := s.user(userID).Collection(devicesCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}

	out := make([]notification.DeviceToken, 0, len(snaps))
	for _, snap := range snaps {
		var t notification.DeviceToken
		if err := snap.DataTo(&t); err != nil {
			return nil, fmt.Errorf("failed to decode device token: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(templatesCollection).Limit(1).Documents(ctx).GetAll()
	return err
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
