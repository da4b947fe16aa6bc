package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/conference-payments/internal/pricing"
	pricingPostgres "github.com/frahmantamala/conference-payments/internal/pricing/postgres"
	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/frahmantamala/conference-payments/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	clearData     bool
	seedVerticals []string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the pricing catalog",
	Long:  `Write a starter catalog of presentation types, accommodations and pricing configs into each vertical that has none.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		lg := logger.LoggerWrapper()

		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			return err
		}

		targets, err := parseVerticals(seedVerticals)
		if err != nil {
			return err
		}

		if clearData {
			for _, v := range targets {
				for _, table := range []string{
					pricingPostgres.PricingConfigsTable(v),
					pricingPostgres.AccommodationsTable(v),
					pricingPostgres.PresentationTypesTable(v),
				} {
					if err := gdb.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
						return fmt.Errorf("clear %s: %w", table, err)
					}
				}
				lg.Info("catalog cleared", "vertical", v)
			}
		}

		service := pricing.NewService(pricingPostgres.NewPricingRepositories(gdb), lg)
		for _, v := range targets {
			created, err := service.Seed(ctx, v, pricing.DefaultCatalog())
			if err != nil {
				return fmt.Errorf("seed %s: %w", v, err)
			}
			fmt.Printf("Seeded %d pricing configs for %s\n", created, v)
		}
		return nil
	},
}

// parseVerticals returns every vertical when names is empty.
func parseVerticals(names []string) ([]vertical.Vertical, error) {
	if len(names) == 0 {
		return vertical.All(), nil
	}
	out := make([]vertical.Vertical, 0, len(names))
	for _, name := range names {
		v, ok := vertical.Parse(name)
		if !ok {
			return nil, fmt.Errorf("unknown vertical %q", name)
		}
		out = append(out, v)
	}
	return out, nil
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear the existing catalog before seeding")
	seedCmd.Flags().StringSliceVar(&seedVerticals, "vertical", nil, "Verticals to seed (default all)")
}
