package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/internal/types/stats"
	"dailyChallengesAPI/utils"
)

var (
	ErrNotFriends     = errors.New("users are not friends")
	ErrNotGroupMember = errors.New("user is not a member of this group")
)

const maxDisplayNameLength = 40

// SummaryReader is the read side of the progression engine the social
// screens rely on.
type SummaryReader interface {
	Summary(ctx context.Context, userID string) (stats.Summary, error)
}

type SocialService struct {
	store    docstore.SocialStore
	progress SummaryReader
	location *time.Location
	now      func() time.Time
}

func NewSocialService(store docstore.SocialStore, progress SummaryReader, location *time.Location) *SocialService {
	if location == nil {
		location = time.UTC
	}
	return &SocialService{
		store:    store,
		progress: progress,
		location: location,
		now:      time.Now,
	}
}

func (s *SocialService) displayName(ctx context.Context, userID string) (string, error) {
	p, err := s.store.Profile(ctx, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return social.DefaultDisplayName, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	if p.DisplayName == "" {
		return social.DefaultDisplayName, nil
	}
	return p.DisplayName, nil
}

func (s *SocialService) UpdateProfile(ctx context.Context, userID, displayName string) (social.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if userID == "" || displayName == "" || len([]rune(displayName)) > maxDisplayNameLength {
		return social.Profile{}, ErrInvalidInput
	}

	p := social.Profile{
		UserID:      userID,
		DisplayName: displayName,
		UpdatedAt:   s.now(),
	}
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return social.Profile{}, fmt.Errorf("failed to save profile: %w", err)
	}
	return p, nil
}

func (s *SocialService) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == "" || friendID == "" || userID == friendID {
		return ErrInvalidInput
	}
	if err := s.store.AddFriendship(ctx, userID, friendID, s.now()); err != nil {
		return fmt.Errorf("failed to add friend: %w", err)
	}
	return nil
}

func (s *SocialService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if userID == "" || friendID == "" {
		return ErrInvalidInput
	}
	if err := s.store.RemoveFriendship(ctx, userID, friendID); err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	return nil
}

func (s *SocialService) Friends(ctx context.Context, userID string) ([]social.Friend, error) {
	edges, err := s.store.Friendships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}

	friends := make([]social.Friend, 0, len(edges))
	for _, e := range edges {
		name, err := s.displayName(ctx, e.FriendID)
		if err != nil {
			return nil, err
		}
		friends = append(friends, social.Friend{UserID: e.FriendID, DisplayName: name})
	}
	return friends, nil
}

// FriendProfile returns the progression of friendID as seen by userID. The two
// must be friends.
func (s *SocialService) FriendProfile(ctx context.Context, userID, friendID string) (social.FriendProfile, error) {
	ok, err := s.store.AreFriends(ctx, userID, friendID)
	if err != nil {
		return social.FriendProfile{}, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !ok {
		return social.FriendProfile{}, ErrNotFriends
	}

	name, err := s.displayName(ctx, friendID)
	if err != nil {
		return social.FriendProfile{}, err
	}
	summary, err := s.progress.Summary(ctx, friendID)
	if err != nil {
		return social.FriendProfile{}, err
	}
	summary.Daily = s.todayOnly(summary.Daily)

	return social.FriendProfile{
		Friend: social.Friend{UserID: friendID, DisplayName: name},
		Stats:  summary,
	}, nil
}

func (s *SocialService) CreateGroup(ctx context.Context, ownerID, name string) (social.Group, error) {
	name = strings.TrimSpace(name)
	if ownerID == "" || name == "" {
		return social.Group{}, ErrInvalidInput
	}

	g := social.Group{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		Members:   []string{ownerID},
		CreatedAt: s.now(),
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return social.Group{}, fmt.Errorf("failed to create group: %w", err)
	}
	return g, nil
}

// AddGroupMember lets a group member add themselves or one of their friends.
func (s *SocialService) AddGroupMember(ctx context.Context, groupID, requesterID, memberID string) (social.Group, error) {
	if groupID == "" || requesterID == "" || memberID == "" {
		return social.Group{}, ErrInvalidInput
	}

	g, err := s.store.Group(ctx, groupID)
	if err != nil {
		return social.Group{}, fmt.Errorf("failed to get group: %w", err)
	}
	if !g.HasMember(requesterID) {
		return social.Group{}, ErrNotGroupMember
	}
	if memberID != requesterID {
		ok, err := s.store.AreFriends(ctx, requesterID, memberID)
		if err != nil {
			return social.Group{}, fmt.Errorf("failed to check friendship: %w", err)
		}
		if !ok {
			return social.Group{}, ErrNotFriends
		}
	}
	if g.HasMember(memberID) {
		return g, nil
	}

	if err := s.store.AddGroupMember(ctx, groupID, memberID); err != nil {
		return social.Group{}, fmt.Errorf("failed to add group member: %w", err)
	}
	g.Members = append(g.Members, memberID)
	return g, nil
}

func (s *SocialService) Groups(ctx context.Context, userID string) ([]social.Group, error) {
	groups, err := s.store.GroupsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}
	if groups == nil {
		groups = []social.Group{}
	}
	return groups, nil
}

// GroupRanking orders the members of a group by today's points, highest
// first, breaking ties by display name. Only members may read it.
func (s *SocialService) GroupRanking(ctx context.Context, groupID, requesterID string) (*social.Ranking, error) {
	g, err := s.store.Group(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if !g.HasMember(requesterID) {
		return nil, ErrNotGroupMember
	}

	entries := make([]*social.RankingEntry, 0, len(g.Members))
	for _, memberID := range g.Members {
		name, err := s.displayName(ctx, memberID)
		if err != nil {
			return nil, err
		}
		summary, err := s.progress.Summary(ctx, memberID)
		if err != nil {
			return nil, err
		}
		points := s.todayOnly(summary.Daily).Points
		entries = append(entries, &social.RankingEntry{
			UserID:      memberID,
			DisplayName: name,
			Points:      points,
			Tier:        utils.TierForPoints(points),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i, e := range entries {
		e.Rank = i + 1
	}

	return &social.Ranking{
		GroupID: g.ID,
		Name:    g.Name,
		Entries: entries,
	}, nil
}

// todayOnly zeroes daily stats last written on an earlier day.
func (s *SocialService) todayOnly(d stats.DailyStats) stats.DailyStats {
	if d.UpdatedAt.IsZero() {
		return d
	}
	if challenge.Day(d.UpdatedAt.In(s.location)) != challenge.Day(s.now().In(s.location)) {
		return stats.DailyStats{Points: 0, Level: 1, UpdatedAt: d.UpdatedAt}
	}
	return d
}
