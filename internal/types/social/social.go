package social

import (
	"time"

	"dailyChallengesAPI/internal/types/stats"
)

type Friendship struct {
	UserID    string    `json:"user_id" firestore:"userId" db:"user_id"`
	FriendID  string    `json:"friend_id" firestore:"friendId" db:"friend_id"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt" db:"created_at"`
}

type Profile struct {
	UserID      string    `json:"user_id" firestore:"-" db:"user_id"`
	DisplayName string    `json:"display_name" firestore:"displayName" db:"display_name"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt" db:"updated_at"`
}

const DefaultDisplayName = "User"

type Friend struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

type Group struct {
	ID        string    `json:"id" firestore:"-" db:"id"`
	Name      string    `json:"name" firestore:"name" db:"name"`
	OwnerID   string    `json:"owner_id" firestore:"ownerId" db:"owner_id"`
	Members   []string  `json:"members" firestore:"members" db:"members"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt" db:"created_at"`
}

func (g Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type Tier string

const (
	TierNone     Tier = ""
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

type RankingEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Tier        Tier   `json:"tier,omitempty"`
}

type Ranking struct {
	GroupID string          `json:"group_id"`
	Name    string          `json:"name"`
	Entries []*RankingEntry `json:"entries"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

type AddFriendRequest struct {
	FriendID string `json:"friend_id"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

type FriendProfile struct {
	Friend
	Stats stats.Summary `json:"stats"`
}
