package docstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyChallengesAPI/internal/notification"
	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/internal/types/stats"
)

// storeFactory returns a store with no data for the ids the caller picks.
type storeFactory func(t *testing.T) Store

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestPostgresStore(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPostgresPool(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, RunMigrations(pool))

	runStoreSuite(t, func(t *testing.T) Store {
		s := NewPostgresStore(pool)
		t.Cleanup(s.stopListener)
		return s
	})

	t.Run("watchers do not hold pool connections", func(t *testing.T) {
		s := NewPostgresStore(pool)
		t.Cleanup(s.stopListener)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		watchers := int(pool.Config().MaxConns) + 5
		users := make([]string, watchers)
		delivered := make(chan string, watchers*2)
		var wg sync.WaitGroup
		for i := range users {
			users[i] = uniqueUser("crowd")
			require.NoError(t, s.MergeDailyStats(ctx, users[i], stats.DailyStats{Points: 0, Level: 1, UpdatedAt: time.Now()}))

			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				s.WatchDailyStats(ctx, userID, func(d stats.DailyStats) { delivered <- userID })
			}(users[i])
		}
		for range users {
			select {
			case <-delivered:
			case <-time.After(10 * time.Second):
				t.Fatal("watchers did not start")
			}
		}

		readCtx, readCancel := context.WithTimeout(ctx, 2*time.Second)
		defer readCancel()
		require.NoError(t, s.MergeDailyStats(readCtx, users[0], stats.DailyStats{Points: 100, Level: 1, UpdatedAt: time.Now()}))
		d, err := s.DailyStats(readCtx, users[0])
		require.NoError(t, err)
		assert.Equal(t, 100, d.Points)

		cancel()
		wg.Wait()
	})
}

// uniqueUser keeps suites independent when they share a database.
func uniqueUser(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

func runStoreSuite(t *testing.T, newStore storeFactory) {
	t.Run("assignments by day", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		user := uniqueUser("assign")

		a := challenge.NewAssignment(challenge.Template{ID: "tpl_a", Title: "A"}, "2025-03-10")
		b := challenge.NewAssignment(challenge.Template{ID: "tpl_b", Title: "B"}, "2025-03-10")
		old := challenge.NewAssignment(challenge.Template{ID: "tpl_a", Title: "A"}, "2025-03-09")
		for _, x := range []challenge.Assignment{a, b, old} {
			require.NoError(t, s.SaveAssignment(ctx, user, x))
		}

		a.Completed = true
		require.NoError(t, s.SaveAssignment(ctx, user, a))

		got, err := s.AssignmentsForDay(ctx, user, "2025-03-10")
		require.NoError(t, err)
		sortByKey := cmpopts.SortSlices(func(x, y challenge.Assignment) bool { return x.Key < y.Key })
		if diff := cmp.Diff([]challenge.Assignment{a, b}, got, sortByKey); diff != "" {
			t.Errorf("assignments mismatch (-want +got):\n%s", diff)
		}

		got, err = s.AssignmentsForDay(ctx, uniqueUser("nobody"), "2025-03-10")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("daily stats", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		user := uniqueUser("daily")

		_, err := s.DailyStats(ctx, user)
		assert.ErrorIs(t, err, ErrNotFound)

		at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		require.NoError(t, s.MergeDailyStats(ctx, user, stats.DailyStats{Points: 200, Level: 1, UpdatedAt: at}))
		require.NoError(t, s.MergeDailyStats(ctx, user, stats.DailyStats{Points: 500, Level: 2, UpdatedAt: at}))

		d, err := s.DailyStats(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, 500, d.Points)
		assert.Equal(t, 2, d.Level)
		assert.True(t, at.Equal(d.UpdatedAt))
	})

	t.Run("historical stats replace weekly points", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		user := uniqueUser("hist")

		_, err := s.Historical(ctx, user)
		assert.ErrorIs(t, err, ErrNotFound)

		first := stats.HistoricalStats{
			MaxPoints:    300,
			MaxLevel:     1,
			Medals:       []stats.Medal{},
			WeeklyPoints: stats.WeeklyPoints{"2025-03-01": 100, "2025-03-09": 300},
		}
		require.NoError(t, s.MergeHistorical(ctx, user, first))

		second := stats.HistoricalStats{
			MaxPoints:    500,
			MaxLevel:     2,
			Medals:       []stats.Medal{{ID: "5_challenges", Title: "5 Challenges Completed", Description: "d"}},
			WeeklyPoints: stats.WeeklyPoints{"2025-03-09": 300, "2025-03-10": 500},
		}
		require.NoError(t, s.MergeHistorical(ctx, user, second))

		got, err := s.Historical(ctx, user)
		require.NoError(t, err)
		if diff := cmp.Diff(second, got); diff != "" {
			t.Errorf("historical mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("watch daily stats", func(t *testing.T) {
		s := newStore(t)
		user := uniqueUser("watch")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, s.MergeDailyStats(ctx, user, stats.DailyStats{Points: 100, Level: 1, UpdatedAt: time.Now()}))

		updates := make(chan stats.DailyStats, 8)
		done := make(chan error, 1)
		go func() {
			done <- s.WatchDailyStats(ctx, user, func(d stats.DailyStats) { updates <- d })
		}()

		select {
		case d := <-updates:
			assert.Equal(t, 100, d.Points)
		case <-time.After(5 * time.Second):
			t.Fatal("no current value delivered")
		}

		require.NoError(t, s.MergeDailyStats(ctx, uniqueUser("other"), stats.DailyStats{Points: 999, Level: 2, UpdatedAt: time.Now()}))
		require.NoError(t, s.MergeDailyStats(ctx, user, stats.DailyStats{Points: 200, Level: 1, UpdatedAt: time.Now()}))

		select {
		case d := <-updates:
			assert.Equal(t, 200, d.Points)
		case <-time.After(5 * time.Second):
			t.Fatal("no update delivered")
		}

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not return after cancel")
		}
	})

	t.Run("friendships are symmetric", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		alice, bob := uniqueUser("alice"), uniqueUser("bob")

		require.NoError(t, s.AddFriendship(ctx, alice, bob, time.Now()))
		require.NoError(t, s.AddFriendship(ctx, alice, bob, time.Now()))

		for _, pair := range [][2]string{{alice, bob}, {bob, alice}} {
			ok, err := s.AreFriends(ctx, pair[0], pair[1])
			require.NoError(t, err)
			assert.True(t, ok)

			edges, err := s.Friendships(ctx, pair[0])
			require.NoError(t, err)
			require.Len(t, edges, 1)
			assert.Equal(t, pair[1], edges[0].FriendID)
		}

		require.NoError(t, s.RemoveFriendship(ctx, bob, alice))
		ok, err := s.AreFriends(ctx, alice, bob)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("profiles", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		user := uniqueUser("profile")

		_, err := s.Profile(ctx, user)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.SaveProfile(ctx, social.Profile{UserID: user, DisplayName: "Ana", UpdatedAt: time.Now()}))
		p, err := s.Profile(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, user, p.UserID)
		assert.Equal(t, "Ana", p.DisplayName)
	})

	t.Run("groups", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		owner, member := uniqueUser("owner"), uniqueUser("member")

		g := social.Group{
			ID:        uuid.NewString(),
			Name:      "Crew",
			OwnerID:   owner,
			Members:   []string{owner},
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		require.NoError(t, s.CreateGroup(ctx, g))
		require.NoError(t, s.AddGroupMember(ctx, g.ID, member))
		require.NoError(t, s.AddGroupMember(ctx, g.ID, member))

		got, err := s.Group(ctx, g.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{owner, member}, got.Members)
		assert.Equal(t, "Crew", got.Name)

		groups, err := s.GroupsFor(ctx, member)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, g.ID, groups[0].ID)

		_, err = s.Group(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.AddGroupMember(ctx, uuid.NewString(), member), ErrNotFound)
	})

	t.Run("device tokens", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		user := uniqueUser("device")

		require.NoError(t, s.SaveDeviceToken(ctx, user, notification.DeviceToken{Token: "t1", Platform: "ios", CreatedAt: time.Now()}))
		require.NoError(t, s.SaveDeviceToken(ctx, user, notification.DeviceToken{Token: "t1", Platform: "android", CreatedAt: time.Now()}))
		require.NoError(t, s.SaveDeviceToken(ctx, user, notification.DeviceToken{Token: "t2", Platform: "web", CreatedAt: time.Now()}))

		tokens, err := s.DeviceTokens(ctx, user)
		require.NoError(t, err)
		require.Len(t, tokens, 2)
		byToken := map[string]string{}
		for _, tk := range tokens {
			byToken[tk.Token] = tk.Platform
		}
		assert.Equal(t, map[string]string{"t1": "android", "t2": "web"}, byToken)
	})
}

func TestMemoryStoreFailHook(t *testing.T) {
	s := NewMemoryStore()
	s.Fail = func(op string) error {
		if op == "templates" {
			return assert.AnError
		}
		return nil
	}

	_, err := s.Templates(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, s.PutTemplate(context.Background(), challenge.Template{ID: "x", Title: "X"}))
}

func TestMemoryWatchDeliversLatestToSlowConsumer(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.MergeDailyStats(ctx, "slow", stats.DailyStats{Points: 0, Level: 1}))

	first := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var last stats.DailyStats
	done := make(chan error, 1)
	go func() {
		calls := 0
		done <- s.WatchDailyStats(ctx, "slow", func(d stats.DailyStats) {
			calls++
			if calls == 1 {
				close(first)
				<-release
			}
			mu.Lock()
			last = d
			mu.Unlock()
		})
	}()

	<-first
	for i := 1; i <= 30; i++ {
		require.NoError(t, s.MergeDailyStats(ctx, "slow", stats.DailyStats{Points: i * 100, Level: i*100/500 + 1}))
	}
	close(release)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last.Points == 3000
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestStatsFanoutKeepsOnlyNewest(t *testing.T) {
	f := newStatsFanout()
	ch, unsubscribe := f.subscribe("u")

	f.publish("u", stats.DailyStats{Points: 100})
	f.publish("u", stats.DailyStats{Points: 200})
	f.publish("other", stats.DailyStats{Points: 999})

	assert.Equal(t, 200, (<-ch).Points)
	select {
	case d := <-ch:
		t.Fatalf("unexpected extra snapshot %+v", d)
	default:
	}

	assert.Equal(t, []string{"u"}, f.users())
	unsubscribe()
	assert.Empty(t, f.users())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	h := stats.HistoricalStats{MaxLevel: 1, WeeklyPoints: stats.WeeklyPoints{"2025-03-10": 100}}
	require.NoError(t, s.MergeHistorical(ctx, "u", h))

	h.WeeklyPoints["2025-03-10"] = 999
	got, err := s.Historical(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 100, got.WeeklyPoints["2025-03-10"])
}
