package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/internal/types/stats"
)

func newTestSocial(t *testing.T) (*SocialService, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	progress, _ := newTestService(t, store, nil)
	svc := NewSocialService(store, progress, time.UTC)
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func TestFriendsAreSymmetric(t *testing.T) {
	svc, _ := newTestSocial(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, "bob", "Bob")
	require.NoError(t, err)
	require.NoError(t, svc.AddFriend(ctx, "alice", "bob"))

	aliceFriends, err := svc.Friends(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []social.Friend{{UserID: "bob", DisplayName: "Bob"}}, aliceFriends)

	bobFriends, err := svc.Friends(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []social.Friend{{UserID: "alice", DisplayName: social.DefaultDisplayName}}, bobFriends)

	require.NoError(t, svc.RemoveFriend(ctx, "bob", "alice"))
	aliceFriends, err = svc.Friends(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, aliceFriends)
}

func TestAddFriendRejectsSelf(t *testing.T) {
	svc, _ := newTestSocial(t)
	assert.ErrorIs(t, svc.AddFriend(context.Background(), "alice", "alice"), ErrInvalidInput)
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, _ := newTestSocial(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, "alice", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := svc.UpdateProfile(ctx, "alice", "  Alice  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)
}

func TestFriendProfileRequiresFriendship(t *testing.T) {
	svc, store := newTestSocial(t)
	ctx := context.Background()

	_, err := svc.FriendProfile(ctx, "alice", "bob")
	assert.ErrorIs(t, err, ErrNotFriends)

	require.NoError(t, svc.AddFriend(ctx, "alice", "bob"))
	require.NoError(t, store.MergeDailyStats(ctx, "bob", stats.DailyStats{Points: 300, Level: 1, UpdatedAt: testNow}))
	require.NoError(t, store.MergeHistorical(ctx, "bob", stats.HistoricalStats{
		MaxPoints:    700,
		MaxLevel:     2,
		Medals:       []stats.Medal{{ID: "5_challenges"}},
		WeeklyPoints: stats.WeeklyPoints{testToday: 300, "2025-03-09": 700},
	}))

	profile, err := svc.FriendProfile(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.UserID)
	assert.Equal(t, 300, profile.Stats.Daily.Points)
	assert.Equal(t, 700, profile.Stats.Historical.MaxPoints)
	assert.Equal(t, 1000, profile.Stats.WeeklyTotal)
}

func TestAddGroupMemberRules(t *testing.T) {
	svc, _ := newTestSocial(t)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, "alice", "Morning crew")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, g.Members)

	_, err = svc.AddGroupMember(ctx, g.ID, "alice", "bob")
	assert.ErrorIs(t, err, ErrNotFriends)

	_, err = svc.AddGroupMember(ctx, g.ID, "carol", "carol")
	assert.ErrorIs(t, err, ErrNotGroupMember)

	require.NoError(t, svc.AddFriend(ctx, "alice", "bob"))
	g, err = svc.AddGroupMember(ctx, g.ID, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, g.Members)

	_, err = svc.AddGroupMember(ctx, "missing", "alice", "bob")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	groups, err := svc.Groups(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Morning crew", groups[0].Name)
}

func TestGroupRankingOrdersByPointsThenName(t *testing.T) {
	svc, store := newTestSocial(t)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, "alice", "Crew")
	require.NoError(t, err)
	for _, id := range []string{"bob", "carol", "dave"} {
		require.NoError(t, svc.AddFriend(ctx, "alice", id))
		_, err = svc.AddGroupMember(ctx, g.ID, "alice", id)
		require.NoError(t, err)
	}
	for id, name := range map[string]string{"alice": "Alice", "bob": "Bob", "carol": "Carol", "dave": "Dave"} {
		_, err = svc.UpdateProfile(ctx, id, name)
		require.NoError(t, err)
	}

	require.NoError(t, store.MergeDailyStats(ctx, "alice", stats.DailyStats{Points: 200, Level: 1, UpdatedAt: testNow}))
	require.NoError(t, store.MergeDailyStats(ctx, "bob", stats.DailyStats{Points: 500, Level: 2, UpdatedAt: testNow}))
	require.NoError(t, store.MergeDailyStats(ctx, "carol", stats.DailyStats{Points: 200, Level: 1, UpdatedAt: testNow}))
	// yesterday's points do not count
	require.NoError(t, store.MergeDailyStats(ctx, "dave", stats.DailyStats{Points: 400, Level: 1, UpdatedAt: testNow.AddDate(0, 0, -1)}))

	_, err = svc.GroupRanking(ctx, g.ID, "eve")
	assert.ErrorIs(t, err, ErrNotGroupMember)

	ranking, err := svc.GroupRanking(ctx, g.ID, "bob")
	require.NoError(t, err)
	require.Len(t, ranking.Entries, 4)

	got := []social.RankingEntry{}
	for _, e := range ranking.Entries {
		got = append(got, *e)
	}
	assert.Equal(t, []social.RankingEntry{
		{Rank: 1, UserID: "bob", DisplayName: "Bob", Points: 500, Tier: social.TierSilver},
		{Rank: 2, UserID: "alice", DisplayName: "Alice", Points: 200, Tier: social.TierBronze},
		{Rank: 3, UserID: "carol", DisplayName: "Carol", Points: 200, Tier: social.TierBronze},
		{Rank: 4, UserID: "dave", DisplayName: "Dave", Points: 0, Tier: social.TierNone},
	}, got)
}
