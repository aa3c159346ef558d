package strategies

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/arkit/internal/config"
	"github.com/systmms/arkit/pkg/strategy"
)

// GCPSecretsID is the id of the Google Cloud Secret Manager strategy.
const GCPSecretsID = "gcp-secrets"

// GCPSecretManagerAPI is the part of the Secret Manager client the strategy
// uses. It allows mocking in tests.
type GCPSecretManagerAPI interface {
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

var gcpSecretsMetadata = strategy.Metadata{
	ID:          GCPSecretsID,
	Name:        "Google Secret Manager",
	Description: "Arweave wallet key stored in Google Cloud",
	Theme:       "66, 133, 244",
	URL:         "https://cloud.google.com/secret-manager/docs/create-secret-quickstart",
	Logo:        "https://cloud.google.com/favicon.ico",
}

// NewGCPSecrets creates the Secret Manager strategy. Application default
// credentials are used unless a credentials file is configured.
func NewGCPSecrets(cfg config.GCPSecretsConfig) *SecretStore {
	return NewSecretStore(gcpSecretsMetadata, cfg.Secret, func(ctx context.Context) (SecretSource, error) {
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		client, err := secretmanager.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		return &gcpSecretSource{client: client, closer: client.Close, secret: cfg.Secret, version: cfg.Version}, nil
	})
}

// NewGCPSecretsWithClient creates the Secret Manager strategy with a custom
// client. secret is projects/<project>/secrets/<name>.
func NewGCPSecretsWithClient(secret, version string, client GCPSecretManagerAPI) *SecretStore {
	return NewSecretStore(gcpSecretsMetadata, secret, func(context.Context) (SecretSource, error) {
		return &gcpSecretSource{client: client, secret: secret, version: version}, nil
	})
}

type gcpSecretSource struct {
	client  GCPSecretManagerAPI
	closer  func() error
	secret  string
	version string
}

func (s *gcpSecretSource) versionName() string {
	version := s.version
	if version == "" {
		version = "latest"
	}
	return s.secret + "/versions/" + version
}

func (s *gcpSecretSource) Exists(ctx context.Context) (bool, error) {
	_, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: s.secret})
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get secret %s: %w", s.secret, err)
	}
	return true, nil
}

func (s *gcpSecretSource) Fetch(ctx context.Context) ([]byte, error) {
	name := s.versionName()
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	if resp.GetPayload() == nil || len(resp.GetPayload().GetData()) == 0 {
		return nil, fmt.Errorf("secret %s has no data", name)
	}
	return resp.GetPayload().GetData(), nil
}

func (s *gcpSecretSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
