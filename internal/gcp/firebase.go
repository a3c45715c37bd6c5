package gcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

type FirebaseConfig struct {
	ProjectID string
	// Base64 encoded service account JSON. Takes precedence over CredentialsFile.
	EncodedCredentials string
	CredentialsFile    string
}

// NewFirebaseApp builds the shared firebase app used by Firestore and FCM.
// When neither credential source is set the default application credentials
// (or the Firestore emulator) are used.
func NewFirebaseApp(ctx context.Context, cfg FirebaseConfig) (*firebase.App, error) {
	var opts []option.ClientOption

	switch {
	case cfg.EncodedCredentials != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.EncodedCredentials)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
		slog.Info("firebase: using credentials from environment")
	case cfg.CredentialsFile != "":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		slog.Info("firebase: using credentials file", "path", cfg.CredentialsFile)
	default:
		slog.Info("firebase: using application default credentials")
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	return app, nil
}
