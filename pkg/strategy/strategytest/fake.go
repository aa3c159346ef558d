// Package strategytest provides a fake strategy for testing code that
// consumes pkg/strategy.
//
// The fake keeps its session in memory and can be configured to be
// unavailable, to fail or panic, and to hold probes and connects in flight
// until the test releases them.
package strategytest

import (
	"context"
	"sync"

	"github.com/systmms/arkit/pkg/strategy"
)

// Fake is a configurable strategy.Strategy.
//
// Example usage:
//
//	fake := strategytest.NewFake("a").
//	    WithAddress("addr-a").
//	    WithConnectErrors(errors.New("rejected"))
//
//	release := fake.HoldProbe()
//	// ... select the strategy, assert intermediate state ...
//	release()
type Fake struct {
	mu sync.Mutex

	meta          strategy.Metadata
	available     bool
	availErr      error
	probePanic    bool
	connectErrs   []error
	connectPanic  bool
	disconnectErr error
	readErr       error
	address       strategy.Address
	publicKey     strategy.PublicKey
	noPublicKey   bool

	connected bool
	granted   strategy.PermissionSet
	lastApp   strategy.AppInfo
	lastGW    strategy.GatewayConfig

	probeGate         chan struct{}
	connectGate       chan struct{}
	disconnectGate    chan struct{}
	probeStarted      chan struct{}
	connectStarted    chan struct{}
	disconnectStarted chan struct{}

	calls map[string]int
}

// NewFake creates an available fake that connects successfully and grants
// every requested permission.
func NewFake(id string) *Fake {
	return &Fake{
		meta: strategy.Metadata{
			ID:          id,
			Name:        "Fake " + id,
			Description: "Fake strategy " + id,
			Theme:       "0, 122, 255",
			URL:         "https://example.com/" + id,
		},
		available:      true,
		address:        strategy.Address("address-" + id),
		publicKey:      strategy.PublicKey("owner-" + id),
		probeStarted:      make(chan struct{}, 64),
		connectStarted:    make(chan struct{}, 64),
		disconnectStarted: make(chan struct{}, 64),
		calls:             make(map[string]int),
	}
}

// WithName sets the display name.
func (f *Fake) WithName(name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meta.Name = name
	return f
}

// WithAvailable sets the IsAvailable result.
func (f *Fake) WithAvailable(available bool) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = available
	return f
}

// WithAvailabilityError makes IsAvailable return err.
func (f *Fake) WithAvailabilityError(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availErr = err
	return f
}

// WithProbePanic makes IsAvailable panic.
func (f *Fake) WithProbePanic() *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probePanic = true
	return f
}

// WithConnectErrors queues errors returned by successive Connect calls.
// Once the queue is drained Connect succeeds.
func (f *Fake) WithConnectErrors(errs ...error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErrs = append(f.connectErrs, errs...)
	return f
}

// WithConnectPanic makes Connect panic.
func (f *Fake) WithConnectPanic() *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectPanic = true
	return f
}

// WithDisconnectError makes Disconnect return err.
func (f *Fake) WithDisconnectError(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectErr = err
	return f
}

// WithReadError makes every read operation return err while connected.
func (f *Fake) WithReadError(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
	return f
}

// WithAddress sets the active address.
func (f *Fake) WithAddress(addr strategy.Address) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.address = addr
	return f
}

// WithoutPublicKey makes ActivePublicKey return strategy.ErrUnsupported.
func (f *Fake) WithoutPublicKey() *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noPublicKey = true
	return f
}

// HoldProbe blocks IsAvailable calls until the returned release func is
// called or the call's context is done.
func (f *Fake) HoldProbe() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.probeGate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// HoldConnect blocks Connect calls until the returned release func is
// called or the call's context is done.
func (f *Fake) HoldConnect() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.connectGate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// HoldDisconnect blocks Disconnect calls until the returned release func
// is called or the call's context is done. The session is dropped only once
// the call is released.
func (f *Fake) HoldDisconnect() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.disconnectGate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// ProbeStarted receives a value each time IsAvailable is entered.
func (f *Fake) ProbeStarted() <-chan struct{} { return f.probeStarted }

// ConnectStarted receives a value each time Connect is entered.
func (f *Fake) ConnectStarted() <-chan struct{} { return f.connectStarted }

// DisconnectStarted receives a value each time Disconnect is entered.
func (f *Fake) DisconnectStarted() <-chan struct{} { return f.disconnectStarted }

// Calls returns how many times op ("IsAvailable", "Connect", "Disconnect",
// "ActiveAddress", ...) was called.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Connected reports whether the fake currently holds a session.
func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// LastConnect returns the app info and gateway passed to the last Connect.
func (f *Fake) LastConnect() (strategy.AppInfo, strategy.GatewayConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastApp, f.lastGW
}

// Metadata implements strategy.Strategy.
func (f *Fake) Metadata() strategy.Metadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meta
}

// IsAvailable implements strategy.Strategy.
func (f *Fake) IsAvailable(ctx context.Context) (bool, error) {
	f.mu.Lock()
	f.calls["IsAvailable"]++
	gate := f.probeGate
	available, err, panics := f.available, f.availErr, f.probePanic
	f.mu.Unlock()

	signal(f.probeStarted)
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if panics {
		panic("fake: availability probe panicked")
	}
	return available, err
}

// Connect implements strategy.Strategy.
func (f *Fake) Connect(ctx context.Context, permissions strategy.PermissionSet, app strategy.AppInfo, gateway strategy.GatewayConfig) error {
	f.mu.Lock()
	f.calls["Connect"]++
	gate := f.connectGate
	panics := f.connectPanic
	f.mu.Unlock()

	signal(f.connectStarted)
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if panics {
		panic("fake: connect panicked")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastApp, f.lastGW = app, gateway
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return err
	}
	f.connected = true
	f.granted = permissions
	return nil
}

// Disconnect implements strategy.Strategy.
func (f *Fake) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.calls["Disconnect"]++
	gate := f.disconnectGate
	f.mu.Unlock()

	signal(f.disconnectStarted)
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.granted = strategy.PermissionSet{}
	return f.disconnectErr
}

// ActiveAddress implements strategy.Strategy.
func (f *Fake) ActiveAddress(ctx context.Context) (strategy.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ActiveAddress"]++
	if err := f.readable(); err != nil {
		return "", err
	}
	return f.address, nil
}

// ActivePublicKey implements strategy.Strategy.
func (f *Fake) ActivePublicKey(ctx context.Context) (strategy.PublicKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ActivePublicKey"]++
	if err := f.readable(); err != nil {
		return "", err
	}
	if f.noPublicKey {
		return "", strategy.ErrUnsupported
	}
	return f.publicKey, nil
}

// Permissions implements strategy.Strategy.
func (f *Fake) Permissions(ctx context.Context) (strategy.PermissionSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Permissions"]++
	if err := f.readable(); err != nil {
		return strategy.PermissionSet{}, err
	}
	return f.granted, nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (f *Fake) readable() error {
	if !f.connected {
		return strategy.ErrNoSession
	}
	return f.readErr
}

// Signing returns a view of the fake that also implements
// strategy.Signer, strategy.AddressLister and strategy.WalletNamer.
func (f *Fake) Signing() *SigningFake {
	return &SigningFake{Fake: f}
}

// SigningFake is a Fake with the optional capabilities.
type SigningFake struct {
	*Fake
}

// Sign implements strategy.Signer. The signature is "sig:" followed by data.
func (f *SigningFake) Sign(ctx context.Context, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Sign"]++
	if err := f.readable(); err != nil {
		return nil, err
	}
	if !f.granted.Has(strategy.PermissionSignature) {
		return nil, strategy.ErrPermissionDenied
	}
	return append([]byte("sig:"), data...), nil
}

// AllAddresses implements strategy.AddressLister.
func (f *SigningFake) AllAddresses(ctx context.Context) ([]strategy.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AllAddresses"]++
	if err := f.readable(); err != nil {
		return nil, err
	}
	return []strategy.Address{f.address}, nil
}

// WalletNames implements strategy.WalletNamer.
func (f *SigningFake) WalletNames(ctx context.Context) (map[strategy.Address]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["WalletNames"]++
	if err := f.readable(); err != nil {
		return nil, err
	}
	return map[strategy.Address]string{f.address: f.meta.Name}, nil
}
