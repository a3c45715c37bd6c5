// Package bootstrap turns configuration into the shared backends used by the
// API server and the catalog tool.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"

	"dailyChallengesAPI/internal/config"
	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/internal/gcp"
)

type Resources struct {
	Store docstore.Store
	// Firebase is nil when the store is not Firestore and no credentials
	// could be loaded.
	Firebase *firebase.App
}

// Open connects the document store selected by cfg.StoreDriver. The firebase
// app is mandatory for the Firestore driver and best-effort otherwise, since
// it also backs push notifications.
func Open(ctx context.Context, cfg *config.Config) (*Resources, error) {
	res := &Resources{}

	app, err := gcp.NewFirebaseApp(ctx, gcp.FirebaseConfig{
		ProjectID:          cfg.FirebaseProjectID,
		EncodedCredentials: cfg.FirebaseCredentialsJSON,
		CredentialsFile:    cfg.FirebaseCredentialsFile,
	})
	switch {
	case err == nil:
		res.Firebase = app
	case cfg.StoreDriver == config.StoreFirestore:
		return nil, err
	default:
		slog.Warn("firebase unavailable, push notifications disabled", "error", err)
	}

	switch cfg.StoreDriver {
	case config.StoreFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		res.Store = docstore.NewFirestoreStore(client)
		slog.Info("using firestore document store", "project", cfg.FirebaseProjectID)

	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		pool, err := docstore.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := docstore.RunMigrations(pool); err != nil {
			pool.Close()
			return nil, err
		}
		res.Store = docstore.NewPostgresStore(pool)
		slog.Info("using postgres document store")

	case config.StoreMemory:
		res.Store = docstore.NewMemoryStore()
		slog.Warn("using in-memory document store, data is lost on restart")

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return res, nil
}
