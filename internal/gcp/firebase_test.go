package gcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFirebaseAppFallsBackToDefaultCredentials(t *testing.T) {
	app, err := NewFirebaseApp(context.Background(), FirebaseConfig{ProjectID: "demo-daily-challenges"})
	require.NoError(t, err)
	assert.NotNil(t, app)
}

func TestNewFirebaseAppMissingCredentialsFile(t *testing.T) {
	_, err := NewFirebaseApp(context.Background(), FirebaseConfig{
		ProjectID:       "demo-daily-challenges",
		CredentialsFile: filepath.Join(t.TempDir(), "serviceAccountKey.json"),
	})
	assert.Error(t, err)
}

func TestNewFirebaseAppRejectsBadEncodedCredentials(t *testing.T) {
	_, err := NewFirebaseApp(context.Background(), FirebaseConfig{
		ProjectID:          "demo-daily-challenges",
		EncodedCredentials: "not base64!",
	})
	assert.Error(t, err)
}
