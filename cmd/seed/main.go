package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"forgewealth/storefront/internal/config"
	"forgewealth/storefront/internal/logging"
	"forgewealth/storefront/internal/repository"
	"forgewealth/storefront/internal/routing"
	"forgewealth/storefront/internal/services"
)

var demoTenants = []services.CreateTenantInput{
	{
		TenantID: "acme",
		Config: services.TenantSettings{
			CompanyName:     "Acme Wealth Partners",
			TaxJurisdiction: "US",
			Currency:        "USD",
			Colors:          services.ColorsInput{Primary: "#1E40AF", Secondary: "#60A5FA"},
		},
	},
	{
		TenantID: "britannia",
		Config: services.TenantSettings{
			CompanyName:     "Britannia Capital",
			TaxJurisdiction: "UK",
			Currency:        "GBP",
			Colors:          services.ColorsInput{Primary: "#7C2D12", Secondary: "#FDBA74"},
		},
	},
	{
		TenantID: "maple-advisors",
		Config: services.TenantSettings{
			CompanyName:     "Maple Advisors",
			TaxJurisdiction: "CA",
			Currency:        "CAD",
			Colors:          services.ColorsInput{Primary: "#B91C1C", Secondary: "#FCA5A5"},
		},
	},
}

func main() {
	var envFile, configFile string

	rootCmd := &cobra.Command{
		Use:          "seed",
		Short:        "Create the demo tenants in the configured registry",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(envFile, configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.NewLogger(cfg.Log.Level, cfg.IsDev())
			defer func() { _ = logger.Sync() }()
			return seed(cmd.Context(), cfg, logger)
		},
	}
	rootCmd.Flags().StringVar(&envFile, "env", "", "Path to .env file")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to config file (default ./config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	if cfg.Registry.Driver != "postgres" {
		return fmt.Errorf("seeding needs a persistent registry, got driver %q", cfg.Registry.Driver)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	var provisioner services.OrgProvisioner = services.LocalOrgProvisioner{}
	if cfg.Provisioner.Driver == "http" {
		provisioner = services.NewHTTPOrgProvisioner(cfg.Provisioner.URL, cfg.Provisioner.APIKey, cfg.Provisioner.Timeout)
	}
	urls := routing.URLBuilder{
		Mode:             routing.ModeForEnvironment(cfg.Environment),
		LocalPort:        cfg.Server.Port,
		ProductionDomain: cfg.Routing.ProductionDomain,
		PreviewDomain:    cfg.Routing.PreviewDomain,
	}
	tenants := services.NewTenantService(repository.NewPostgresRegistry(pool), provisioner, urls, nil, logger)

	for _, in := range demoTenants {
		tenant, url, err := tenants.Create(ctx, in)
		switch {
		case errors.Is(err, repository.ErrConflict):
			logger.Info("Skipping existing tenant", "tenant_id", in.TenantID)
		case err != nil:
			return fmt.Errorf("failed to create tenant %s: %w", in.TenantID, err)
		default:
			logger.Info("Seeded tenant", "tenant_id", tenant.TenantID, "org_id", tenant.OrgID, "url", url)
		}
	}
	logger.Info("Seeding complete")
	return nil
}
