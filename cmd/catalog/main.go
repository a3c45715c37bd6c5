// Command catalog manages the challenge template catalog shared by every user.
//
//	catalog import --file templates.toml
//	catalog list
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"dailyChallengesAPI/internal/bootstrap"
	"dailyChallengesAPI/internal/config"
	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/internal/logger"
)

type storeOpener func(ctx context.Context) (docstore.ChallengeStore, func() error, error)

func openConfiguredStore(ctx context.Context) (docstore.ChallengeStore, func() error, error) {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), "")

	res, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Store, res.Store.Close, nil
}

func newRootCmd(open storeOpener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "catalog",
		Short:        "Manage daily challenge templates",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newImportCmd(open), newListCmd(open))
	return rootCmd
}

func main() {
	if err := newRootCmd(openConfiguredStore).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
