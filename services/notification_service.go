package services

import (
	"context"
	"fmt"
	"time"

	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/internal/notification"
)

type NotificationService struct {
	devices docstore.DeviceStore
	now     func() time.Time
}

func NewNotificationService(devices docstore.DeviceStore) *NotificationService {
	return &NotificationService{devices: devices, now: time.Now}
}

// RegisterDevice stores a push token for the user. Registering a known token
// again only refreshes its platform and timestamp.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req notification.RegisterDeviceRequest) error {
	if userID == "" || !req.Valid() {
		return ErrInvalidInput
	}

	token := notification.DeviceToken{
		Token:     req.Token,
		Platform:  req.Platform,
		CreatedAt: s.now(),
	}
	if err := s.devices.SaveDeviceToken(ctx, userID, token); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}
