package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	// SourceEnvironment loads secrets from environment variables
	SourceEnvironment SecretSource = "environment"
	// SourceVault loads secrets from Azure Key Vault
	SourceVault SecretSource = "vault"
	// SourceAuto picks vault outside development
	SourceAuto SecretSource = "auto"
)

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Provider resolves credentials such as the JWT signing secret, the admin API
// key and the database password from the environment or Key Vault.
type Provider struct {
	source SecretSource
	vault  *VaultClient
	logger *zap.Logger
}

// NewProvider creates a new secrets provider
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := resolveSource(cfg.Source, cfg.Environment)
	p := &Provider{source: source, logger: logger}

	if source != SourceVault {
		logger.Info("Secrets resolved from environment", zap.String("environment", cfg.Environment))
		return p, nil
	}

	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name required when using vault secret source")
	}
	vault, err := NewVaultClient(&VaultConfig{
		VaultName:    cfg.VaultName,
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	p.vault = vault
	return p, nil
}

func resolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "development", "local", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// Source returns the resolved secret source
func (p *Provider) Source() SecretSource {
	return p.source
}

// GetSecret reads name from the vault, or from the environment variable of
// the same name when the provider is environment backed.
func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	if p.vault == nil {
		value := os.Getenv(name)
		if value == "" {
			return "", fmt.Errorf("secret %s not set", name)
		}
		return value, nil
	}
	return p.vault.GetSecret(ctx, name)
}

// GetSecretOrEnv prefers a non-empty envVar so deployments can override a
// single vault entry, then falls back to secretName.
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envVar string) (string, error) {
	if value := os.Getenv(envVar); value != "" {
		p.logger.Debug("Secret overridden by environment", zap.String("env", envVar))
		return value, nil
	}
	if p.vault == nil {
		return "", fmt.Errorf("secret %s not set (env %s)", secretName, envVar)
	}
	return p.vault.GetSecret(ctx, secretName)
}
