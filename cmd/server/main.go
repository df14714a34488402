package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"forgewealth/storefront/internal/api"
	"forgewealth/storefront/internal/auth"
	"forgewealth/storefront/internal/cache"
	"forgewealth/storefront/internal/config"
	"forgewealth/storefront/internal/httpserver"
	"forgewealth/storefront/internal/logging"
	"forgewealth/storefront/internal/mcp"
	"forgewealth/storefront/internal/metrics"
	"forgewealth/storefront/internal/repository"
	"forgewealth/storefront/internal/routing"
	"forgewealth/storefront/internal/services"
	"forgewealth/storefront/internal/tls"
	"forgewealth/storefront/internal/web"
)

func main() {
	var envFile, configFile string

	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Multi-tenant wealth storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(envFile, configFile)
			if err != nil {
				return fmt.Errorf("configuration loading failed: %w", err)
			}
			logger := logging.NewLogger(cfg.Log.Level, cfg.IsDev())
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}
	rootCmd.Flags().StringVar(&envFile, "env", "", "Path to .env file")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to config file (default ./config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"registry", cfg.Registry.Driver,
		"cache", cfg.Cache.Driver,
		"provisioner", cfg.Provisioner.Driver,
		"issuer", cfg.Auth.Issuer,
		"client_id", cfg.Auth.ClientID,
		"secret_len", len(cfg.Auth.ClientSecret),
		"config_file", cfg.ConfigFileUsed(),
	)
	if cfg.Auth.SwaggerClientID != "" && cfg.Auth.SwaggerClientID == cfg.Auth.ClientID {
		logger.Warn("Swagger client ID matches the backend client ID; PKCE logins from /docs will fail if the backend client requires a secret")
	}

	// Tenant registry
	var registry repository.Registry
	switch cfg.Registry.Driver {
	case "postgres":
		pool, err := initDatabase(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("database initialization failed: %w", err)
		}
		defer pool.Close()
		registry = repository.NewPostgresRegistry(pool)
	default:
		logger.Warn("Using in-memory tenant registry; tenants are lost on restart")
		registry = repository.NewMemoryRegistry()
	}

	if cfg.Cache.Driver != "none" {
		client, err := cache.New(ctx, cache.Config{
			Driver:     cfg.Cache.Driver,
			DefaultTTL: cfg.Cache.TTL,
			Addr:       cfg.Cache.Redis.Addr,
			Password:   cfg.Cache.Redis.Password,
			DB:         cfg.Cache.Redis.DB,
			Prefix:     cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return fmt.Errorf("cache initialization failed: %w", err)
		}
		defer client.Close()
		registry = repository.NewCachedRegistry(registry, client, cfg.Cache.TTL, logger)
		logger.Info("Registry cache enabled", "driver", cfg.Cache.Driver, "ttl", cfg.Cache.TTL)
	}

	// Service layer
	m := metrics.New()
	urls := routing.URLBuilder{
		Mode:             routing.ModeForEnvironment(cfg.Environment),
		LocalPort:        cfg.Server.Port,
		ProductionDomain: cfg.Routing.ProductionDomain,
		PreviewDomain:    cfg.Routing.PreviewDomain,
	}
	tenants := services.NewTenantService(registry, newProvisioner(cfg), urls, m, logger)

	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("auth initialization failed: %w", err)
	}
	if authz.Bypass() {
		logger.Warn("Authentication bypass enabled; every caller is the dev principal")
	}

	routingCfg := routing.Config{
		ProductionDomain: cfg.Routing.ProductionDomain,
		PreviewDomain:    cfg.Routing.PreviewDomain,
		LocalHosts:       cfg.Routing.LocalHosts,
		TenantPrefix:     cfg.Routing.TenantPrefix,
		ExemptPrefixes:   cfg.Routing.ExemptPrefixes,
		ReservedLabels:   cfg.Routing.ReservedLabels,
	}
	resolver := routing.NewResolver(routingCfg, registry, authz, m)

	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("template initialization failed: %w", err)
	}
	prefix, suffix := tenantURLParts(urls)
	pages := api.NewPages(tenants, web.NewIntakeForm(prefix, suffix), logger)

	logger.Info("Service layer initialized")

	// Create Echo server. Tenant resolution runs in the Pre chain so
	// rewritten paths hit the tenant routes.
	e := httpserver.New(httpserver.Options{
		ServiceName: "forgewealth-storefront",
		Logger:      logger,
		Metrics:     m,
		Resolver:    resolver,
		Resolution: routing.MiddlewareConfig{
			Principal: authz.Principal,
			NotFound:  pages.NotFound,
			Logger:    logger,
		},
	})
	e.Renderer = renderer

	// Health, readiness and metrics
	health := api.NewHandler(registry, logger)
	e.GET("/healthz", echo.WrapHandler(http.HandlerFunc(health.HandleHealth)))
	e.GET("/readyz", echo.WrapHandler(http.HandlerFunc(health.HandleReady)))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	// Register auth handlers
	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	// REST API and pages
	api.RegisterHandlers(e, api.NewServer(tenants, logger))
	api.RegisterPages(e, pages, cfg.Routing.TenantPrefix)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(tenants, routingCfg)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	mcpHandler := echo.WrapHandler(authz.RequireAuth(mcpHandlers))
	e.Any("/mcp", mcpHandler)
	e.Any("/mcp/*", mcpHandler)

	logger.Info("MCP protocol handlers mounted")

	// expose OpenAPI spec (with runtime substitution) and Swagger UI
	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler(cfg.Auth.Issuer)))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler(cfg.Auth.Issuer, cfg.Auth.SwaggerClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(api.OAuth2RedirectHandler()))

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.TLS.Enable {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return errors.New("tls enabled but cert_file or key_file is empty")
		}
		hosts := tls.Hostnames(cfg.TLS.Hostnames, cfg.Routing.ProductionDomain, cfg.Routing.PreviewDomain)
		created, err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, hosts)
		if err != nil {
			return fmt.Errorf("self-signed certificate: %w", err)
		}
		if created {
			logger.Info("Generated self-signed certificate", "cert_file", cfg.TLS.CertFile, "hosts", hosts)
		}
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		if err := server.Close(); err != nil {
			logger.Error("Server close error", "error", err)
		}
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func newProvisioner(cfg *config.Config) services.OrgProvisioner {
	if cfg.Provisioner.Driver == "http" {
		return services.NewHTTPOrgProvisioner(cfg.Provisioner.URL, cfg.Provisioner.APIKey, cfg.Provisioner.Timeout)
	}
	return services.LocalOrgProvisioner{}
}

// tenantURLParts splits a tenant URL around the identifier for the intake
// form's live preview.
func tenantURLParts(urls routing.URLBuilder) (string, string) {
	switch urls.Mode {
	case routing.ModeProduction:
		return "https://", "." + urls.ProductionDomain
	case routing.ModePreview:
		return "https://", "." + urls.PreviewDomain
	default:
		return "http://localhost:" + strconv.Itoa(urls.LocalPort) + "/", ""
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection", "host", cfg.DB.Host, "name", cfg.DB.Name)

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.DB.MaxConns > 0 {
		poolConfig.MaxConns = cfg.DB.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Registry.AutoMigrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		logger.Info("Registry schema applied")
	}
	logger.Info("Database connected")
	return pool, nil
}
