package connect

import (
	"context"
	"fmt"

	"github.com/systmms/arkit/pkg/strategy"
)

// Facade reads wallet data through whichever strategy is connected.
type Facade struct {
	machine *Machine
}

// NewFacade creates a facade over m.
func NewFacade(m *Machine) *Facade {
	return &Facade{machine: m}
}

// ActiveAddress returns the address of the connected wallet.
func (f *Facade) ActiveAddress(ctx context.Context) (strategy.Address, error) {
	return read(f, "ActiveAddress", func(s strategy.Strategy) (strategy.Address, error) {
		return s.ActiveAddress(ctx)
	})
}

// ActivePublicKey returns the public key of the connected wallet. Strategies
// without one fail with a *ProviderError wrapping strategy.ErrUnsupported.
func (f *Facade) ActivePublicKey(ctx context.Context) (strategy.PublicKey, error) {
	return read(f, "ActivePublicKey", func(s strategy.Strategy) (strategy.PublicKey, error) {
		return s.ActivePublicKey(ctx)
	})
}

// Permissions returns the permissions granted to the session.
func (f *Facade) Permissions(ctx context.Context) (strategy.PermissionSet, error) {
	return read(f, "Permissions", func(s strategy.Strategy) (strategy.PermissionSet, error) {
		return s.Permissions(ctx)
	})
}

// Sign signs data with the connected wallet.
func (f *Facade) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return read(f, "Sign", func(s strategy.Strategy) ([]byte, error) {
		signer, ok := s.(strategy.Signer)
		if !ok {
			return nil, strategy.ErrUnsupported
		}
		return signer.Sign(ctx, data)
	})
}

// AllAddresses returns every address the connected wallet manages. Wallets
// that cannot enumerate addresses report just the active one.
func (f *Facade) AllAddresses(ctx context.Context) ([]strategy.Address, error) {
	return read(f, "AllAddresses", func(s strategy.Strategy) ([]strategy.Address, error) {
		if lister, ok := s.(strategy.AddressLister); ok {
			return lister.AllAddresses(ctx)
		}
		addr, err := s.ActiveAddress(ctx)
		if err != nil {
			return nil, err
		}
		return []strategy.Address{addr}, nil
	})
}

// WalletNames returns the labels of the connected wallet's addresses.
func (f *Facade) WalletNames(ctx context.Context) (map[strategy.Address]string, error) {
	return read(f, "WalletNames", func(s strategy.Strategy) (map[strategy.Address]string, error) {
		namer, ok := s.(strategy.WalletNamer)
		if !ok {
			return nil, strategy.ErrUnsupported
		}
		return namer.WalletNames(ctx)
	})
}

func read[T any](f *Facade, op string, call func(strategy.Strategy) (T, error)) (result T, err error) {
	s, _ := f.machine.Active()
	if s == nil {
		return result, ErrNotConnected
	}
	id := s.Metadata().ID

	defer func() {
		if r := recover(); r != nil {
			var zero T
			result, err = zero, &ProviderError{StrategyID: id, Op: op, Err: fmt.Errorf("provider panicked: %v", r)}
		}
	}()

	result, err = call(s)
	if err != nil {
		var zero T
		return zero, &ProviderError{StrategyID: id, Op: op, Err: err}
	}
	return result, nil
}
