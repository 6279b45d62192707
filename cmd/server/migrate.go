package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fitness-pay-backend/internal/orders"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the orders table in the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreURL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}

			ctx := context.Background()
			repo, err := orders.OpenRepository(ctx, cfg.StoreURL, cfg.StoreKey)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "orders table ready (%s)\n", storeKind(cfg.StoreURL))
			return nil
		},
	}
}

func storeKind(storeURL string) string {
	if i := strings.Index(storeURL, ":"); i > 0 {
		return storeURL[:i]
	}
	return storeURL
}
