// Package docstore holds the persistence collaborators of the progression
// engine. Every document is scoped to a single user id except templates and
// groups.
package docstore

import (
	"context"
	"errors"
	"time"

	"dailyChallengesAPI/internal/notification"
	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/internal/types/stats"
)

var ErrNotFound = errors.New("document not found")

type ChallengeStore interface {
	Templates(ctx context.Context) ([]challenge.Template, error)
	PutTemplate(ctx context.Context, t challenge.Template) error
	// AssignmentsForDay returns the user's assignments dated date in store order.
	AssignmentsForDay(ctx context.Context, userID, date string) ([]challenge.Assignment, error)
	// SaveAssignment creates or replaces the document a.Key.
	SaveAssignment(ctx context.Context, userID string, a challenge.Assignment) error
}

type StatsStore interface {
	DailyStats(ctx context.Context, userID string) (stats.DailyStats, error)
	MergeDailyStats(ctx context.Context, userID string, s stats.DailyStats) error
	Historical(ctx context.Context, userID string) (stats.HistoricalStats, error)
	MergeHistorical(ctx context.Context, userID string, h stats.HistoricalStats) error
	// WatchDailyStats calls fn with the current daily stats and again on every
	// change. It blocks until ctx is done; cancellation is not an error.
	WatchDailyStats(ctx context.Context, userID string, fn func(stats.DailyStats)) error
}

type SocialStore interface {
	Profile(ctx context.Context, userID string) (social.Profile, error)
	SaveProfile(ctx context.Context, p social.Profile) error

	// AddFriendship writes both directed edges.
	AddFriendship(ctx context.Context, userID, friendID string, at time.Time) error
	RemoveFriendship(ctx context.Context, userID, friendID string) error
	Friendships(ctx context.Context, userID string) ([]social.Friendship, error)
	AreFriends(ctx context.Context, userID, friendID string) (bool, error)

	CreateGroup(ctx context.Context, g social.Group) error
	Group(ctx context.Context, groupID string) (social.Group, error)
	AddGroupMember(ctx context.Context, groupID, userID string) error
	GroupsFor(ctx context.Context, userID string) ([]social.Group, error)
}

type DeviceStore interface {
	SaveDeviceToken(ctx context.Context, userID string, t notification.DeviceToken) error
	DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error)
}

type Store interface {
	ChallengeStore
	StatsStore
	SocialStore
	DeviceStore
	Ping(ctx context.Context) error
	Close() error
}
