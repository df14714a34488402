package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Deployment environments. They decide how tenant URLs are generated and
// whether the authentication bypass may be enabled.
const (
	EnvDev     = "DEV"
	EnvPreview = "PREVIEW"
	EnvProd    = "PROD"
)

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	Server        struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"db"`
	Registry struct {
		// Driver is "memory" or "postgres".
		Driver      string `mapstructure:"driver"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"registry"`
	Cache struct {
		// Driver is "none", "memory" or "redis".
		Driver string        `mapstructure:"driver"`
		TTL    time.Duration `mapstructure:"ttl"`
		Redis  struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
			Prefix   string `mapstructure:"prefix"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`
	Auth struct {
		Issuer          string `mapstructure:"issuer"`
		ClientID        string `mapstructure:"client_id"`
		ClientSecret    string `mapstructure:"client_secret"`
		RedirectURL     string `mapstructure:"redirect_url"`
		SwaggerClientID string `mapstructure:"swagger_client_id"`
		GroupsClaim     string `mapstructure:"groups_claim"`
	} `mapstructure:"auth"`
	Routing struct {
		ProductionDomain string   `mapstructure:"production_domain"`
		PreviewDomain    string   `mapstructure:"preview_domain"`
		LocalHosts       []string `mapstructure:"local_hosts"`
		TenantPrefix     string   `mapstructure:"tenant_prefix"`
		ExemptPrefixes   []string `mapstructure:"exempt_prefixes"`
		ReservedLabels   []string `mapstructure:"reserved_labels"`
	} `mapstructure:"routing"`
	Provisioner struct {
		// Driver is "local" (generated organization IDs) or "http".
		Driver  string        `mapstructure:"driver"`
		URL     string        `mapstructure:"url"`
		APIKey  string        `mapstructure:"api_key"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"provisioner"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	configFile string
}

// ConfigFileUsed returns the path of the config file that was read, or an
// empty string when only defaults and the environment were used.
func (c *Config) ConfigFileUsed() string {
	return c.configFile
}

// IsDev reports whether the service runs in local development mode.
func (c *Config) IsDev() bool {
	return c.Environment == EnvDev
}

// DSN returns the libpq style connection string for the database section.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// LoadConfig loads the configuration from a file and the environment.
// envFile, when set, is read with godotenv before viper looks at the
// environment. configFile overrides the default search for config.yaml in
// "." and "./config"; a missing default file is not an error.
func LoadConfig(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	config.configFile = v.ConfigFileUsed()

	config.Environment = strings.ToUpper(strings.TrimSpace(config.Environment))
	config.Auth.Issuer = normalizeIssuer(config.Auth.Issuer)
	config.Routing.ProductionDomain = normalizeDomain(config.Routing.ProductionDomain)
	config.Routing.PreviewDomain = normalizeDomain(config.Routing.PreviewDomain)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDev)
	v.SetDefault("dev_mode_bypass", false)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "forgewealth")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 10)

	v.SetDefault("registry.driver", "memory")
	v.SetDefault("registry.auto_migrate", true)

	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "forgewealth")

	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.redirect_url", "")
	v.SetDefault("auth.swagger_client_id", "")
	v.SetDefault("auth.groups_claim", "groups")

	v.SetDefault("routing.production_domain", "forgewealth.app")
	v.SetDefault("routing.preview_domain", "preview.forgewealth.app")
	v.SetDefault("routing.local_hosts", []string{"localhost", "127.0.0.1", "::1"})
	v.SetDefault("routing.tenant_prefix", "/tenants")
	v.SetDefault("routing.exempt_prefixes", []string{
		"/api", "/static", "/assets", "/favicon.ico", "/healthz", "/metrics",
		"/readyz", "/login", "/logout", "/auth", "/docs", "/openapi.yaml", "/mcp",
	})
	v.SetDefault("routing.reserved_labels", []string{"www"})

	v.SetDefault("provisioner.driver", "local")
	v.SetDefault("provisioner.url", "")
	v.SetDefault("provisioner.api_key", "")
	v.SetDefault("provisioner.timeout", 10*time.Second)

	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.hostnames", []string{})

	v.SetDefault("log.level", "info")
}

// Validate checks the enumerated settings and the combinations that cannot
// work at runtime.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDev, EnvPreview, EnvProd:
	default:
		return fmt.Errorf("config: unknown environment %q", c.Environment)
	}
	if c.DevModeBypass && c.Environment != EnvDev {
		return fmt.Errorf("config: dev_mode_bypass is only allowed in %s", EnvDev)
	}
	switch c.Registry.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("config: unknown registry driver %q", c.Registry.Driver)
	}
	switch c.Cache.Driver {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache driver %q", c.Cache.Driver)
	}
	switch c.Provisioner.Driver {
	case "local":
	case "http":
		if c.Provisioner.URL == "" {
			return errors.New("config: provisioner.url is required for the http provisioner")
		}
	default:
		return fmt.Errorf("config: unknown provisioner driver %q", c.Provisioner.Driver)
	}
	if !strings.HasPrefix(c.Routing.TenantPrefix, "/") || strings.HasSuffix(c.Routing.TenantPrefix, "/") {
		return fmt.Errorf("config: routing.tenant_prefix %q must start and not end with '/'", c.Routing.TenantPrefix)
	}
	if c.Environment == EnvProd && c.Routing.ProductionDomain == "" {
		return errors.New("config: routing.production_domain is required in PROD")
	}
	if c.Environment == EnvPreview && c.Routing.PreviewDomain == "" {
		return errors.New("config: routing.preview_domain is required in PREVIEW")
	}
	return nil
}

// normalizeIssuer removes any trailing slash so the issuer URL can be pasted
// straight from the provider console.
func normalizeIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}

func normalizeDomain(input string) string {
	d := strings.ToLower(strings.TrimSpace(input))
	return strings.Trim(d, ".")
}
