package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []*messaging.Message
	failFor  map[string]bool
}

func (f *fakeSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[message.Token] {
		return "", errors.New("unregistered")
	}
	f.messages = append(f.messages, message)
	return "projects/test/messages/1", nil
}

func levelUp() Notification {
	return Notification{
		UserID: "user_1",
		Type:   NotificationLevelUp,
		Title:  "Level up!",
		Body:   "You reached level 2.",
		Data:   map[string]string{"level": "2"},
	}
}

func TestSendPushBuildsPlatformMessages(t *testing.T) {
	sender := &fakeSender{}
	svc := NewFCMServiceWithSender(sender)

	err := svc.SendPush(context.Background(), []DeviceToken{
		{Token: "ios-token", Platform: "ios"},
		{Token: "android-token", Platform: "android"},
	}, levelUp())
	require.NoError(t, err)
	require.Len(t, sender.messages, 2)

	ios, android := sender.messages[0], sender.messages[1]
	assert.Equal(t, "ios-token", ios.Token)
	require.NotNil(t, ios.APNS)
	assert.Nil(t, ios.Android)
	assert.Equal(t, "default", ios.APNS.Payload.Aps.Sound)

	assert.Equal(t, "android-token", android.Token)
	require.NotNil(t, android.Android)
	assert.Equal(t, "high", android.Android.Priority)

	assert.Equal(t, "Level up!", ios.Notification.Title)
	assert.Equal(t, map[string]string{"level": "2", "type": "level_up"}, ios.Data)
}

func TestSendPushPartialFailure(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"stale": true}}
	svc := NewFCMServiceWithSender(sender)

	err := svc.SendPush(context.Background(), []DeviceToken{
		{Token: "stale", Platform: "android"},
		{Token: "fresh", Platform: "android"},
	}, levelUp())
	assert.NoError(t, err)
	assert.Len(t, sender.messages, 1)

	err = svc.SendPush(context.Background(), []DeviceToken{{Token: "stale", Platform: "ios"}}, levelUp())
	assert.Error(t, err)
}

func TestSendPushWithoutTokens(t *testing.T) {
	sender := &fakeSender{}
	assert.NoError(t, NewFCMServiceWithSender(sender).SendPush(context.Background(), nil, levelUp()))
	assert.Empty(t, sender.messages)
}

func TestRegisterDeviceRequestValid(t *testing.T) {
	assert.True(t, RegisterDeviceRequest{Token: "t", Platform: "ios"}.Valid())
	assert.True(t, RegisterDeviceRequest{Token: "t", Platform: "web"}.Valid())
	assert.False(t, RegisterDeviceRequest{Token: "", Platform: "ios"}.Valid())
	assert.False(t, RegisterDeviceRequest{Token: "t", Platform: "blackberry"}.Valid())
}
