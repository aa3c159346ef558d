package strategies

import (
	"context"
	"crypto/rsa"
	"sync"

	"github.com/systmms/arkit/internal/secure"
	"github.com/systmms/arkit/pkg/strategy"
)

// keyPermissions are the permissions a wallet holding a private key can
// grant.
var keyPermissions = strategy.NewPermissionSet(
	strategy.PermissionAccessAddress,
	strategy.PermissionAccessAllAddresses,
	strategy.PermissionAccessPublicKey,
	strategy.PermissionSignature,
	strategy.PermissionAccessArweaveConfig,
)

// keyWallet is the session shared by the strategies that hold an Arweave
// JWK. The key stays sealed between operations.
type keyWallet struct {
	id    string
	label string

	mu      sync.RWMutex
	key     *secure.Key
	address strategy.Address
	owner   strategy.PublicKey
	granted strategy.PermissionSet
}

// open validates raw, seals it and starts a session. raw is wiped.
func (w *keyWallet) open(raw []byte, requested strategy.PermissionSet) error {
	jwk, err := ParseJWK(raw)
	if err != nil {
		wipe(raw)
		return &strategy.ConnectionError{StrategyID: w.id, Reason: "unusable wallet key", Err: err}
	}
	if _, err := jwk.PrivateKey(); err != nil {
		wipe(raw)
		return &strategy.ConnectionError{StrategyID: w.id, Reason: "unusable wallet key", Err: err}
	}
	address, err := jwk.Address()
	if err != nil {
		wipe(raw)
		return &strategy.ConnectionError{StrategyID: w.id, Reason: "unusable wallet key", Err: err}
	}

	key, err := secure.Seal(raw)
	if err != nil {
		return &strategy.ConnectionError{StrategyID: w.id, Reason: "could not protect wallet key", Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key != nil {
		w.key.Destroy()
	}
	w.key = key
	w.address = address
	w.owner = jwk.Owner()
	w.granted = requested.Intersect(keyPermissions)
	return nil
}

func (w *keyWallet) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key != nil {
		w.key.Destroy()
	}
	w.key = nil
	w.address = ""
	w.owner = ""
	w.granted = strategy.PermissionSet{}
}

// require must be called with w.mu held.
func (w *keyWallet) require(p strategy.Permission) error {
	if w.key == nil {
		return strategy.ErrNoSession
	}
	if !w.granted.Has(p) {
		return strategy.ErrPermissionDenied
	}
	return nil
}

func (w *keyWallet) ActiveAddress(ctx context.Context) (strategy.Address, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.require(strategy.PermissionAccessAddress); err != nil {
		return "", err
	}
	return w.address, nil
}

func (w *keyWallet) ActivePublicKey(ctx context.Context) (strategy.PublicKey, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.require(strategy.PermissionAccessPublicKey); err != nil {
		return "", err
	}
	return w.owner, nil
}

func (w *keyWallet) Permissions(ctx context.Context) (strategy.PermissionSet, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return strategy.PermissionSet{}, strategy.ErrNoSession
	}
	return w.granted, nil
}

func (w *keyWallet) AllAddresses(ctx context.Context) ([]strategy.Address, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.require(strategy.PermissionAccessAllAddresses); err != nil {
		return nil, err
	}
	return []strategy.Address{w.address}, nil
}

func (w *keyWallet) WalletNames(ctx context.Context) (map[strategy.Address]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.require(strategy.PermissionAccessAddress); err != nil {
		return nil, err
	}
	return map[strategy.Address]string{w.address: w.label}, nil
}

// Sign signs data with RSA-PSS. The key is only decrypted for the duration
// of the call.
func (w *keyWallet) Sign(ctx context.Context, data []byte) ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.require(strategy.PermissionSignature); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sig []byte
	err := w.key.Use(func(raw []byte) error {
		jwk, err := ParseJWK(raw)
		if err != nil {
			return err
		}
		var priv *rsa.PrivateKey
		if priv, err = jwk.PrivateKey(); err != nil {
			return err
		}
		sig, err = SignPSS(priv, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
