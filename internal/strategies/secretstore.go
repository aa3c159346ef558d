package strategies

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/systmms/arkit/pkg/strategy"
)

// ErrSecretNotFound is returned by sources when the secret does not exist.
var ErrSecretNotFound = errors.New("secret not found")

// SecretSource reads a wallet JWK from a remote secret manager.
type SecretSource interface {
	// Exists reports whether the secret is present. It returns false
	// without an error when it is missing.
	Exists(ctx context.Context) (bool, error)

	// Fetch returns the JWK bytes. The caller wipes them.
	Fetch(ctx context.Context) ([]byte, error)
}

// SourceFactory builds the source on first use, so that credentials are
// only resolved when a strategy is probed or connected.
type SourceFactory func(ctx context.Context) (SecretSource, error)

// SecretStore connects with an Arweave JWK kept in a cloud secret manager.
// It is unavailable until the secret is configured.
type SecretStore struct {
	keyWallet
	meta    strategy.Metadata
	ref     string
	factory SourceFactory

	srcMu  sync.Mutex
	source SecretSource
}

// NewSecretStore creates a secret store strategy. ref is the secret's
// display name; an empty ref means the strategy is not configured.
func NewSecretStore(meta strategy.Metadata, ref string, factory SourceFactory) *SecretStore {
	return &SecretStore{
		keyWallet: keyWallet{id: meta.ID, label: ref},
		meta:      meta,
		ref:       ref,
		factory:   factory,
	}
}

func (s *SecretStore) Metadata() strategy.Metadata {
	return s.meta
}

// Reference returns the configured secret, or "" when unconfigured.
func (s *SecretStore) Reference() string {
	return s.ref
}

func (s *SecretStore) getSource(ctx context.Context) (SecretSource, error) {
	s.srcMu.Lock()
	defer s.srcMu.Unlock()
	if s.source != nil {
		return s.source, nil
	}
	src, err := s.factory(ctx)
	if err != nil {
		return nil, err
	}
	s.source = src
	return src, nil
}

// IsAvailable reports whether the secret exists. Credential and network
// errors are returned as they are.
func (s *SecretStore) IsAvailable(ctx context.Context) (bool, error) {
	if s.ref == "" || s.factory == nil {
		return false, nil
	}
	src, err := s.getSource(ctx)
	if err != nil {
		return false, err
	}
	return src.Exists(ctx)
}

// Connect fetches the key and starts a session.
func (s *SecretStore) Connect(ctx context.Context, permissions strategy.PermissionSet, app strategy.AppInfo, gateway strategy.GatewayConfig) error {
	if s.ref == "" || s.factory == nil {
		return &strategy.ConnectionError{StrategyID: s.meta.ID, Reason: "no secret configured"}
	}
	src, err := s.getSource(ctx)
	if err != nil {
		return &strategy.ConnectionError{StrategyID: s.meta.ID, Reason: "cannot reach secret store", Err: err}
	}
	raw, err := src.Fetch(ctx)
	if err != nil {
		return &strategy.ConnectionError{StrategyID: s.meta.ID, Reason: "cannot read secret " + s.ref, Err: err}
	}
	return s.open(raw, permissions)
}

// Disconnect destroys the loaded key and releases the client.
func (s *SecretStore) Disconnect(ctx context.Context) error {
	s.close()

	s.srcMu.Lock()
	defer s.srcMu.Unlock()
	if c, ok := s.source.(io.Closer); ok {
		s.source = nil
		return c.Close()
	}
	return nil
}

var (
	_ strategy.Strategy      = (*SecretStore)(nil)
	_ strategy.Signer        = (*SecretStore)(nil)
	_ strategy.AddressLister = (*SecretStore)(nil)
	_ strategy.WalletNamer   = (*SecretStore)(nil)
)
