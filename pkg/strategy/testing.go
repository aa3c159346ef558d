package strategy

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ContractTest defines the standard test suite that all strategies must pass
type ContractTest struct {
	// CreateStrategy creates a new, disconnected instance of the strategy
	CreateStrategy func(t *testing.T) Strategy

	// Permissions requested during the connect tests. Defaults to
	// ACCESS_ADDRESS and ACCESS_PUBLIC_KEY.
	Permissions PermissionSet

	// Skip the connect tests for strategies that cannot be made available
	// in the test environment
	SkipConnect bool

	// The strategy cannot supply a public key
	NoPublicKey bool
}

// RunContractTests runs the standard strategy contract test suite
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Metadata", func(t *testing.T) {
			testStrategyMetadata(t, contract)
		})

		t.Run("IsAvailable", func(t *testing.T) {
			testStrategyIsAvailable(t, contract)
		})

		t.Run("ReadsBeforeConnect", func(t *testing.T) {
			testStrategyReadsBeforeConnect(t, contract)
		})

		if !contract.SkipConnect {
			t.Run("ConnectAndRead", func(t *testing.T) {
				testStrategyConnectAndRead(t, contract)
			})

			t.Run("Disconnect", func(t *testing.T) {
				testStrategyDisconnect(t, contract)
			})
		}
	})
}

func (c ContractTest) permissions() PermissionSet {
	if c.Permissions.Len() > 0 {
		return c.Permissions
	}
	return NewPermissionSet(PermissionAccessAddress, PermissionAccessPublicKey)
}

func testStrategyMetadata(t *testing.T, contract ContractTest) {
	s := contract.CreateStrategy(t)

	meta := s.Metadata()
	if meta.ID == "" {
		t.Error("Strategy.Metadata().ID is empty")
	}
	if meta.Name == "" {
		t.Error("Strategy.Metadata().Name is empty")
	}

	if meta != s.Metadata() {
		t.Error("Strategy.Metadata() not consistent between calls")
	}
}

func testStrategyIsAvailable(t *testing.T, contract ContractTest) {
	s := contract.CreateStrategy(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.IsAvailable(context.Background()); err != nil {
			t.Logf("Strategy.IsAvailable() returned error (treated as unavailable): %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Error("Strategy.IsAvailable() timed out after 5 seconds")
	}
}

func testStrategyReadsBeforeConnect(t *testing.T, contract ContractTest) {
	s := contract.CreateStrategy(t)
	ctx := context.Background()

	if addr, err := s.ActiveAddress(ctx); err == nil {
		t.Errorf("Strategy.ActiveAddress() before Connect returned %q, want error", addr)
	}

	// Disconnect without a session is not an error
	if err := s.Disconnect(ctx); err != nil {
		t.Errorf("Strategy.Disconnect() without session failed: %v", err)
	}
}

func testStrategyConnectAndRead(t *testing.T, contract ContractTest) {
	s := contract.CreateStrategy(t)
	ctx := context.Background()

	perms := contract.permissions()
	if err := s.Connect(ctx, perms, AppInfo{Name: "contract-test"}, DefaultGateway()); err != nil {
		t.Fatalf("Strategy.Connect() failed: %v", err)
	}
	defer func() { _ = s.Disconnect(ctx) }()

	addr, err := s.ActiveAddress(ctx)
	if err != nil {
		t.Fatalf("Strategy.ActiveAddress() failed: %v", err)
	}
	if addr == "" {
		t.Error("Strategy.ActiveAddress() returned empty address")
	}

	granted, err := s.Permissions(ctx)
	if err != nil {
		t.Fatalf("Strategy.Permissions() failed: %v", err)
	}
	if !perms.Contains(granted) {
		t.Errorf("Strategy.Permissions() = %s, not a subset of requested %s", granted, perms)
	}

	key, err := s.ActivePublicKey(ctx)
	if contract.NoPublicKey {
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("Strategy.ActivePublicKey() error = %v, want ErrUnsupported", err)
		}
		return
	}
	if err != nil {
		t.Fatalf("Strategy.ActivePublicKey() failed: %v", err)
	}
	if key == "" {
		t.Error("Strategy.ActivePublicKey() returned empty key")
	}
}

func testStrategyDisconnect(t *testing.T, contract ContractTest) {
	s := contract.CreateStrategy(t)
	ctx := context.Background()

	if err := s.Connect(ctx, contract.permissions(), AppInfo{}, DefaultGateway()); err != nil {
		t.Fatalf("Strategy.Connect() failed: %v", err)
	}
	if err := s.Disconnect(ctx); err != nil {
		t.Fatalf("Strategy.Disconnect() failed: %v", err)
	}

	if _, err := s.ActiveAddress(ctx); err == nil {
		t.Error("Strategy.ActiveAddress() after Disconnect should fail")
	}
}
