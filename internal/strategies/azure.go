package strategies

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/arkit/internal/config"
	"github.com/systmms/arkit/pkg/strategy"
)

// AzureKeyVaultID is the id of the Azure Key Vault strategy.
const AzureKeyVaultID = "azure-keyvault"

// AzureKeyVaultAPI is the part of the Key Vault client the strategy uses.
// It allows mocking in tests.
type AzureKeyVaultAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

var azureKeyVaultMetadata = strategy.Metadata{
	ID:          AzureKeyVaultID,
	Name:        "Azure Key Vault",
	Description: "Arweave wallet key stored in Azure Key Vault",
	Theme:       "0, 120, 212",
	URL:         "https://learn.microsoft.com/azure/key-vault/secrets/quick-create-cli",
	Logo:        "https://azure.microsoft.com/favicon.ico",
}

// NewAzureKeyVault creates the Key Vault strategy. A user-assigned managed
// identity is used when configured, the default credential chain otherwise.
func NewAzureKeyVault(cfg config.AzureKeyVaultConfig) *SecretStore {
	ref := ""
	if cfg.VaultURL != "" && cfg.SecretName != "" {
		ref = cfg.SecretName
	}
	return NewSecretStore(azureKeyVaultMetadata, ref, func(ctx context.Context) (SecretSource, error) {
		var (
			cred azcore.TokenCredential
			err  error
		)
		if cfg.ManagedIdentityClientID != "" {
			cred, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
				ID: azidentity.ClientID(cfg.ManagedIdentityClientID),
			})
		} else {
			cred, err = azidentity.NewDefaultAzureCredential(nil)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", err)
		}

		client, err := azsecrets.NewClient(cfg.VaultURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		return &azureSecretSource{client: client, name: cfg.SecretName, version: cfg.Version}, nil
	})
}

// NewAzureKeyVaultWithClient creates the Key Vault strategy with a custom
// client.
func NewAzureKeyVaultWithClient(name, version string, client AzureKeyVaultAPI) *SecretStore {
	return NewSecretStore(azureKeyVaultMetadata, name, func(context.Context) (SecretSource, error) {
		return &azureSecretSource{client: client, name: name, version: version}, nil
	})
}

type azureSecretSource struct {
	client  AzureKeyVaultAPI
	name    string
	version string
}

func (s *azureSecretSource) Exists(ctx context.Context) (bool, error) {
	resp, err := s.client.GetSecret(ctx, s.name, s.version, nil)
	if isAzureNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get secret %s: %w", s.name, err)
	}
	return resp.Value != nil, nil
}

func (s *azureSecretSource) Fetch(ctx context.Context) ([]byte, error) {
	resp, err := s.client.GetSecret(ctx, s.name, s.version, nil)
	if isAzureNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, s.name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", s.name, err)
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("secret %s has no value", s.name)
	}
	return []byte(*resp.Value), nil
}

func isAzureNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
