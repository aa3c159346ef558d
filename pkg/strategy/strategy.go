package strategy

import "context"

// Strategy is the capability contract for one wallet provider.
//
// Example:
//
//	ok, err := s.IsAvailable(ctx)
//	if err != nil || !ok {
//	    return fmt.Errorf("%s is not available", s.Metadata().Name)
//	}
//	perms := NewPermissionSet(PermissionAccessAddress)
//	if err := s.Connect(ctx, perms, AppInfo{Name: "my app"}, DefaultGateway()); err != nil {
//	    return err
//	}
//	addr, err := s.ActiveAddress(ctx)
type Strategy interface {
	// Metadata returns the strategy's identity and display information.
	//
	// The returned value must be the same on every call. Metadata.ID is the
	// key used by registries and by persisted sessions.
	Metadata() Metadata

	// IsAvailable probes whether the provider's runtime is present and usable.
	//
	// It is called every time a user selects the strategy, so it should be
	// cheap. Callers treat a returned error exactly like false.
	IsAvailable(ctx context.Context) (bool, error)

	// Connect asks the provider to establish a session with the given
	// permission scope.
	//
	// app and gateway are passed through unchanged from the host application.
	// Implementations should return a *ConnectionError describing rejections,
	// timeouts and provider failures.
	Connect(ctx context.Context, permissions PermissionSet, app AppInfo, gateway GatewayConfig) error

	// Disconnect ends the session. Calling it without a session is not an error.
	Disconnect(ctx context.Context) error

	// ActiveAddress returns the address of the connected wallet.
	ActiveAddress(ctx context.Context) (Address, error)

	// ActivePublicKey returns the public key of the connected wallet, or
	// ErrUnsupported if the provider cannot supply one.
	ActivePublicKey(ctx context.Context) (PublicKey, error)

	// Permissions returns the permissions granted to the current session.
	Permissions(ctx context.Context) (PermissionSet, error)
}

// Signer is implemented by strategies that can sign arbitrary data with the
// active wallet.
//
// Signatures are RSA-PSS over SHA-256, the scheme Arweave uses for data items.
type Signer interface {
	Sign(ctx context.Context, data []byte) ([]byte, error)
}

// AddressLister is implemented by strategies that manage more than one
// address and can enumerate them.
type AddressLister interface {
	AllAddresses(ctx context.Context) ([]Address, error)
}

// WalletNamer is implemented by strategies that attach user-facing labels to
// their addresses.
type WalletNamer interface {
	WalletNames(ctx context.Context) (map[Address]string, error)
}
