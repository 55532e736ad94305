package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	SourceEnvironment SecretSource = "environment"
	// SourceVault loads secrets from Azure Key Vault
	SourceVault SecretSource = "vault"
	// SourceAuto uses vault in staging/production and environment otherwise
	SourceAuto SecretSource = "auto"
)

// ErrSecretNotFound is returned when neither the override variable nor the source holds a value
var ErrSecretNotFound = errors.New("secret not found")

// Secret names one value in Key Vault and the environment variable that overrides it
type Secret struct {
	VaultName string
	EnvName   string
}

// Secrets read by the API at startup
var (
	DatabaseHost            = Secret{VaultName: "POSTGRES-MAIN-HOST", EnvName: "DATABASE_HOST"}
	DatabaseUser            = Secret{VaultName: "POSTGRES-MAIN-USER", EnvName: "DATABASE_USER"}
	DatabasePassword        = Secret{VaultName: "POSTGRES-MAIN-PASSWORD", EnvName: "DATABASE_PASSWORD"}
	JWTSigningKey           = Secret{VaultName: "jwt-secret", EnvName: "JWT_SECRET"}
	ArchiveConnectionString = Secret{VaultName: "storage-connection-string", EnvName: "STORAGE_CLOUDCONNECTIONSTRING"}
	BootstrapAdminPassword  = Secret{VaultName: "bootstrap-admin-password", EnvName: "BOOTSTRAP_ADMINPASSWORD"}
)

type secretGetter interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// Provider resolves secrets from the environment or Key Vault
type Provider struct {
	source SecretSource
	vault  secretGetter
	logger *zap.Logger
}

type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ResolveSource turns SourceAuto into a concrete source for the environment
func ResolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)
	provider := &Provider{source: source, logger: logger}

	if source == SourceVault {
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		vaultClient, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		provider.vault = vaultClient
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return provider, nil
}

// NewEnvironmentProvider returns a provider reading only environment variables
func NewEnvironmentProvider(logger *zap.Logger) *Provider {
	return &Provider{source: SourceEnvironment, logger: logger}
}

// Resolve returns the secret value. A non-empty override variable always wins;
// otherwise the configured source is asked. Missing values wrap ErrSecretNotFound.
func (p *Provider) Resolve(ctx context.Context, secret Secret) (string, error) {
	if value := os.Getenv(secret.EnvName); value != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", secret.EnvName))
		return value, nil
	}

	switch p.source {
	case SourceEnvironment:
		return "", fmt.Errorf("%w: %s is not set", ErrSecretNotFound, secret.EnvName)
	case SourceVault:
		if p.vault == nil {
			return "", fmt.Errorf("vault client not initialized")
		}
		value, err := p.vault.GetSecret(ctx, secret.VaultName)
		if err != nil {
			return "", err
		}
		if value == "" {
			return "", fmt.Errorf("%w: %s is empty in vault", ErrSecretNotFound, secret.VaultName)
		}
		return value, nil
	default:
		return "", fmt.Errorf("unknown secret source: %s", p.source)
	}
}

func (p *Provider) Source() SecretSource {
	return p.source
}
