package notification

import (
	"time"
)

type NotificationType string

const (
	NotificationLevelUp       NotificationType = "level_up"
	NotificationMedalUnlocked NotificationType = "medal_unlocked"
)

type DeviceToken struct {
	Token     string    `json:"token" firestore:"token" db:"token"`
	Platform  string    `json:"platform" firestore:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt" db:"created_at"`
}

type Notification struct {
	UserID string            `json:"user_id"`
	Type   NotificationType  `json:"type"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}
