package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dailyChallengesAPI/services"
)

func newImportCmd(open storeOpener) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert templates from a TOML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			store, closeStore, err := open(ctx)
			if err != nil {
				slog.Error("failed to open document store", "error", err)
				return err
			}
			defer closeStore()

			n, err := services.NewCatalogService(store).Import(ctx, f)
			if err != nil {
				slog.Error("import failed", "file", file, "imported", n, "error", err)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d templates\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "templates.toml", "TOML file with [[templates]] entries")
	return cmd
}

func newListCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, closeStore, err := open(ctx)
			if err != nil {
				slog.Error("failed to open document store", "error", err)
				return err
			}
			defer closeStore()

			templates, err := services.NewCatalogService(store).List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE")
			for _, t := range templates {
				fmt.Fprintf(w, "%s\t%s\n", t.ID, t.Title)
			}
			return w.Flush()
		},
	}
}
