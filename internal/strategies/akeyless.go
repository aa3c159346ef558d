package strategies

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"

	"github.com/systmms/arkit/internal/config"
	"github.com/systmms/arkit/pkg/strategy"
)

// AkeylessID is the id of the Akeyless strategy.
const AkeylessID = "akeyless"

// akeylessTokenTTL stays below the 30 minute lifetime of gateway tokens.
const akeylessTokenTTL = 25 * time.Minute

// AkeylessAPI is the part of the Akeyless gateway the strategy uses.
type AkeylessAPI interface {
	Authenticate(ctx context.Context) (token string, err error)
	DescribeItem(ctx context.Context, token, path string) error
	GetSecretValue(ctx context.Context, token, path string) (string, error)
}

var akeylessMetadata = strategy.Metadata{
	ID:          AkeylessID,
	Name:        "Akeyless",
	Description: "Arweave wallet key stored as an Akeyless static secret",
	Theme:       "0, 194, 163",
	URL:         "https://docs.akeyless.io/docs/static-secrets",
	Logo:        "https://www.akeyless.io/favicon.ico",
}

// NewAkeyless creates the Akeyless strategy. It authenticates with an API
// key taken from the environment variable named in the configuration.
func NewAkeyless(cfg config.AkeylessConfig) *SecretStore {
	ref := ""
	if cfg.AccessID != "" && cfg.Path != "" {
		ref = cfg.Path
	}
	return NewSecretStore(akeylessMetadata, ref, func(context.Context) (SecretSource, error) {
		accessKey := os.Getenv(cfg.AccessKeyEnv)
		if accessKey == "" {
			return nil, fmt.Errorf("akeyless access key not set: export %s", cfg.AccessKeyEnv)
		}
		return newAkeylessSource(newAkeylessSDK(cfg, accessKey), cfg.Path), nil
	})
}

// NewAkeylessWithClient creates the Akeyless strategy with a custom client.
func NewAkeylessWithClient(path string, client AkeylessAPI) *SecretStore {
	return NewSecretStore(akeylessMetadata, path, func(context.Context) (SecretSource, error) {
		return newAkeylessSource(client, path), nil
	})
}

type akeylessSDK struct {
	client    *akeyless.APIClient
	accessID  string
	accessKey string
}

func newAkeylessSDK(cfg config.AkeylessConfig, accessKey string) *akeylessSDK {
	conf := akeyless.NewConfiguration()
	conf.Servers = []akeyless.ServerConfiguration{{URL: cfg.GatewayURL}}
	return &akeylessSDK{
		client:    akeyless.NewAPIClient(conf),
		accessID:  cfg.AccessID,
		accessKey: accessKey,
	}
}

func (c *akeylessSDK) Authenticate(ctx context.Context) (string, error) {
	body := akeyless.NewAuthWithDefaults()
	body.SetAccessId(c.accessID)
	body.SetAccessKey(c.accessKey)

	res, _, err := c.client.V2Api.Auth(ctx).Body(*body).Execute()
	if err != nil {
		return "", fmt.Errorf("akeyless authentication failed: %w", err)
	}
	return res.GetToken(), nil
}

func (c *akeylessSDK) DescribeItem(ctx context.Context, token, path string) error {
	body := akeyless.NewDescribeItem(path)
	body.SetToken(token)

	_, _, err := c.client.V2Api.DescribeItem(ctx).Body(*body).Execute()
	return err
}

func (c *akeylessSDK) GetSecretValue(ctx context.Context, token, path string) (string, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)

	res, _, err := c.client.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return "", err
	}
	value, ok := res[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	}
	return fmt.Sprint(value), nil
}

type akeylessSource struct {
	client AkeylessAPI
	path   string
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newAkeylessSource(client AkeylessAPI, path string) *akeylessSource {
	return &akeylessSource{client: client, path: path, now: time.Now}
}

// authToken returns a cached gateway token, authenticating when it expired.
func (s *akeylessSource) authToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires) {
		return s.token, nil
	}
	token, err := s.client.Authenticate(ctx)
	if err != nil {
		return "", err
	}
	s.token, s.expires = token, s.now().Add(akeylessTokenTTL)
	return token, nil
}

func (s *akeylessSource) Exists(ctx context.Context) (bool, error) {
	token, err := s.authToken(ctx)
	if err != nil {
		return false, err
	}
	err = s.client.DescribeItem(ctx, token, s.path)
	if isAkeylessNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to describe item %s: %w", s.path, err)
	}
	return true, nil
}

func (s *akeylessSource) Fetch(ctx context.Context) ([]byte, error) {
	token, err := s.authToken(ctx)
	if err != nil {
		return nil, err
	}
	value, err := s.client.GetSecretValue(ctx, token, s.path)
	if isAkeylessNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", s.path, err)
	}
	if value == "" {
		return nil, fmt.Errorf("secret %s has no value", s.path)
	}
	return []byte(value), nil
}

// The gateway reports missing items in the error text only.
func isAkeylessNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSecretNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "itemNotFound") || strings.Contains(msg, "not found")
}
