package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

const defaultCacheTTL = 5 * time.Minute

// VaultConfig holds configuration for the vault client
type VaultConfig struct {
	VaultName    string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// fetcher reads the latest version of a named secret
type fetcher interface {
	fetch(ctx context.Context, name string) (string, error)
}

type azureFetcher struct {
	client *azsecrets.Client
}

func (f azureFetcher) fetch(ctx context.Context, name string) (string, error) {
	resp, err := f.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", err
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret '%s' has no value", name)
	}
	return *resp.Value, nil
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// VaultClient reads secrets from Azure Key Vault with an optional TTL cache.
// It is safe for concurrent use.
type VaultClient struct {
	source fetcher
	logger *zap.Logger
	ttl    time.Duration
	cached bool
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedSecret
}

// NewVaultClient authenticates with DefaultAzureCredential (environment,
// managed identity or Azure CLI) and connects to the named vault.
func NewVaultClient(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", cfg.VaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	logger.Info("Azure Key Vault client initialized",
		zap.String("vault_url", vaultURL),
		zap.Bool("cache_enabled", cfg.CacheEnabled),
	)
	return newVaultClient(azureFetcher{client: client}, cfg, logger), nil
}

func newVaultClient(source fetcher, cfg *VaultConfig, logger *zap.Logger) *VaultClient {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &VaultClient{
		source: source,
		logger: logger,
		ttl:    ttl,
		cached: cfg.CacheEnabled,
		now:    time.Now,
		cache:  make(map[string]cachedSecret),
	}
}

// GetSecret retrieves a secret, serving it from cache while it is fresh
func (v *VaultClient) GetSecret(ctx context.Context, name string) (string, error) {
	if v.cached {
		v.mu.Lock()
		entry, ok := v.cache[name]
		if ok && v.now().Before(entry.expiresAt) {
			v.mu.Unlock()
			return entry.value, nil
		}
		delete(v.cache, name)
		v.mu.Unlock()
	}

	value, err := v.source.fetch(ctx, name)
	if err != nil {
		v.logger.Warn("Failed to get secret from Key Vault",
			zap.String("secret_name", name),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to get secret '%s': %w", name, err)
	}

	if v.cached {
		v.mu.Lock()
		v.cache[name] = cachedSecret{value: value, expiresAt: v.now().Add(v.ttl)}
		v.mu.Unlock()
	}
	return value, nil
}

// ClearCache drops every cached secret
func (v *VaultClient) ClearCache() {
	v.mu.Lock()
	v.cache = make(map[string]cachedSecret)
	v.mu.Unlock()
}
