package strategies

import (
	"context"
	"sync"

	"github.com/systmms/arkit/pkg/strategy"
)

// ReadonlyID is the id of the watch-only strategy.
const ReadonlyID = "readonly"

var readonlyPermissions = strategy.NewPermissionSet(
	strategy.PermissionAccessAddress,
	strategy.PermissionAccessAllAddresses,
)

// Readonly exposes a configured address without any key. It cannot sign or
// report a public key.
type Readonly struct {
	address strategy.Address

	mu        sync.RWMutex
	connected bool
	granted   strategy.PermissionSet
}

// NewReadonly creates a watch-only strategy for address.
func NewReadonly(address strategy.Address) *Readonly {
	return &Readonly{address: address}
}

// Metadata implements strategy.Strategy.
func (r *Readonly) Metadata() strategy.Metadata {
	return strategy.Metadata{
		ID:          ReadonlyID,
		Name:        "Watch-only",
		Description: "Read a public address without signing",
		Theme:       "120, 120, 120",
		URL:         "https://viewblock.io/arweave",
		Logo:        "https://viewblock.io/favicon.ico",
	}
}

// IsAvailable reports whether a well-formed address is configured.
func (r *Readonly) IsAvailable(ctx context.Context) (bool, error) {
	return ValidAddress(string(r.address)), nil
}

func (r *Readonly) Connect(ctx context.Context, permissions strategy.PermissionSet, app strategy.AppInfo, gateway strategy.GatewayConfig) error {
	if !ValidAddress(string(r.address)) {
		return &strategy.ConnectionError{StrategyID: ReadonlyID, Reason: "invalid address " + string(r.address)}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = true
	r.granted = permissions.Intersect(readonlyPermissions)
	return nil
}

func (r *Readonly) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = false
	r.granted = strategy.PermissionSet{}
	return nil
}

func (r *Readonly) ActiveAddress(ctx context.Context) (strategy.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.require(strategy.PermissionAccessAddress); err != nil {
		return "", err
	}
	return r.address, nil
}

// ActivePublicKey always fails: a watch-only wallet has no key.
func (r *Readonly) ActivePublicKey(ctx context.Context) (strategy.PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.connected {
		return "", strategy.ErrNoSession
	}
	return "", strategy.ErrUnsupported
}

func (r *Readonly) Permissions(ctx context.Context) (strategy.PermissionSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.connected {
		return strategy.PermissionSet{}, strategy.ErrNoSession
	}
	return r.granted, nil
}

func (r *Readonly) AllAddresses(ctx context.Context) ([]strategy.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.require(strategy.PermissionAccessAllAddresses); err != nil {
		return nil, err
	}
	return []strategy.Address{r.address}, nil
}

func (r *Readonly) require(p strategy.Permission) error {
	if !r.connected {
		return strategy.ErrNoSession
	}
	if !r.granted.Has(p) {
		return strategy.ErrPermissionDenied
	}
	return nil
}

var (
	_ strategy.Strategy      = (*Readonly)(nil)
	_ strategy.AddressLister = (*Readonly)(nil)
)
