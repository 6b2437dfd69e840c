package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/crm-api/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Storage   StorageConfig
	NATS      NATSConfig
	Jobs      JobsConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// AuthConfig holds the settings used to verify incoming principals
type AuthConfig struct {
	// JWTSecret is the HS256 key bearer tokens are signed with
	JWTSecret string
	// JWTIssuer and JWTAudience are checked when set
	JWTIssuer   string
	JWTAudience string
	// APIKey authenticates automation as the system management principal
	APIKey string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

// NATSConfig holds the domain notification bus settings. An empty URL disables publishing.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
}

// JobsConfig holds background maintenance settings
type JobsConfig struct {
	Enabled            bool
	AuditRetentionDays int
	AuditRetentionCron string
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig is handed to go-chi/cors. An empty origin list outside
// development rejects every cross-origin request.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// SecurityConfig lists the response headers set on every reply. Empty
// strings switch the matching header off.
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	XSSProtection         string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// RateLimitConfig drives httprate. Anonymous traffic is keyed by IP,
// authenticated traffic by principal.
type RateLimitConfig struct {
	Enabled               bool
	RequestsPerMinute     int
	RequestsPerMinuteAuth int
	BurstSize             int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// MaxUploadBytes returns the upload limit in bytes
func (s *StorageConfig) MaxUploadBytes() int64 {
	return s.MaxUploadSizeMB << 20
}

// AuditRetention returns how long audit entries are kept
func (j *JobsConfig) AuditRetention() time.Duration {
	return time.Duration(j.AuditRetentionDays) * 24 * time.Hour
}

// Validate reports settings the server cannot run with. Development may
// leave the signing secret empty; every bearer token is then refused.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" && c.App.Environment != "development" {
		errs = append(errs, errors.New("auth.jwtSecret is required outside development"))
	}
	switch c.Storage.Mode {
	case "local":
	case "cloud", "azure":
		if c.Storage.CloudConnectionString == "" {
			errs = append(errs, errors.New("storage.cloudConnectionString is required in cloud mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.mode must be local, cloud or azure, got %q", c.Storage.Mode))
	}
	if c.Storage.MaxUploadSizeMB <= 0 {
		errs = append(errs, errors.New("storage.maxUploadSizeMB must be positive"))
	}
	if c.Jobs.Enabled && c.Jobs.AuditRetentionDays < 0 {
		errs = append(errs, errors.New("jobs.auditRetentionDays must not be negative"))
	}
	return errors.Join(errs...)
}

// Load reads .env, config.json (from . or ./config) and the environment,
// in increasing precedence. It never talks to Key Vault.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// APP_PORT overrides app.port and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// bare variable names used by the deployment manifests
	if cfg.Auth.APIKey == "" {
		cfg.Auth.APIKey = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = v.GetString("NATS_URL")
	}

	return &cfg, nil
}

// LoadWithSecrets is Load followed by credential resolution from Azure Key
// Vault. The vault is consulted only when USE_AZURE_KEY_VAULT=true in
// staging or production; otherwise the environment values stand.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	env := cfg.App.Environment
	if !strings.EqualFold(os.Getenv("USE_AZURE_KEY_VAULT"), "true") {
		logger.Info("key vault disabled, secrets come from the environment", zap.String("environment", env))
		return cfg, nil
	}
	if env != "staging" && env != "production" {
		logger.Warn("key vault requested outside staging/production, ignoring", zap.String("environment", env))
		return cfg, nil
	}
	if cfg.Secrets.KeyVaultName == "" {
		return nil, errors.New("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  env,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open key vault %s: %w", cfg.Secrets.KeyVaultName, err)
	}

	applySecrets(ctx, cfg, provider)

	logger.Info("secrets resolved from key vault", zap.String("key_vault_name", cfg.Secrets.KeyVaultName))
	return cfg, nil
}

// secretSource is the part of secrets.Provider the loader needs
type secretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envVar string) (string, error)
}

// applySecrets overwrites credentials in cfg with values from src. A secret
// that is missing or empty keeps the value loaded from file or environment.
func applySecrets(ctx context.Context, cfg *Config, src secretSource) {
	targets := []struct {
		secret string
		env    string
		dst    *string
	}{
		{"POSTGRES-MAIN-HOST", "DATABASE_HOST", &cfg.Database.Host},
		{"POSTGRES-MAIN-USER", "DATABASE_USER", &cfg.Database.User},
		{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", &cfg.Database.Password},
		{"jwt-secret", "JWT_SECRET", &cfg.Auth.JWTSecret},
		{"admin-api-key", "ADMIN_API_KEY", &cfg.Auth.APIKey},
		{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", &cfg.Storage.CloudConnectionString},
		{"nats-url", "NATS_URL", &cfg.NATS.URL},
	}

	for _, t := range targets {
		if value, err := src.GetSecretOrEnv(ctx, t.secret, t.env); err == nil && value != "" {
			*t.dst = value
		}
	}

	// Database name and SSL mode vary per environment and never live in the vault
	if name := os.Getenv("DEFAULT_DATABASE"); name != "" {
		cfg.Database.Name = name
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}
}

// defaults apply whenever neither config.json nor the environment sets a key
var defaults = map[string]interface{}{
	"app.name":        "CRM API",
	"app.environment": "development",
	"app.port":        8080,

	"database.host":            "localhost",
	"database.port":            5432,
	"database.name":            "crm",
	"database.user":            "crm_user",
	"database.password":        "crm_password",
	"database.sslMode":         "disable",
	"database.maxOpenConns":    25,
	"database.maxIdleConns":    5,
	"database.connMaxLifetime": 300,

	"secrets.source":       "auto",
	"secrets.cacheEnabled": true,
	"secrets.cacheTTL":     300,

	"storage.mode":            "local",
	"storage.localBasePath":   "./storage",
	"storage.cloudContainer":  "contract-documents",
	"storage.maxUploadSizeMB": 20,

	"nats.subjectPrefix": "crm",
	"nats.name":          "crm-api",

	"jobs.enabled":            false,
	"jobs.auditRetentionDays": 365,
	"jobs.auditRetentionCron": "0 30 3 * * *",

	"logging.level":  "info",
	"logging.format": "console",

	"server.readTimeout":    30,
	"server.writeTimeout":   30,
	"server.requestTimeout": 60,
	"server.enableSwagger":  true,

	"cors.allowedOrigins":   []string{},
	"cors.allowedMethods":   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	"cors.allowedHeaders":   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
	"cors.exposedHeaders":   []string{"Location", "X-Request-ID"},
	"cors.allowCredentials": true,
	"cors.maxAge":           300,

	// HSTS only makes sense behind TLS, so production turns it on explicitly
	"security.enableHSTS":            false,
	"security.hstsMaxAge":            31536000,
	"security.hstsIncludeSubdomains": true,
	"security.hstsPreload":           false,
	"security.contentSecurityPolicy": "default-src 'self'",
	"security.frameOptions":          "DENY",
	"security.contentTypeNosniff":    true,
	"security.xssProtection":         "1; mode=block",
	"security.referrerPolicy":        "strict-origin-when-cross-origin",
	"security.permissionsPolicy":     "geolocation=(), microphone=(), camera=()",

	"rateLimit.enabled":               true,
	"rateLimit.requestsPerMinute":     60,
	"rateLimit.requestsPerMinuteAuth": 120,
	"rateLimit.burstSize":             10,
	"rateLimit.whitelistIPs":          []string{"127.0.0.1", "::1"},
	"rateLimit.whitelistPaths":        []string{"/health", "/health/db", "/health/ready"},
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
