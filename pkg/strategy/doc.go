// Package strategy defines the contract every wallet strategy in arkit implements.
//
// A strategy wraps one Arweave wallet provider (a keyfile on disk, a key held by
// the OS keychain, a watch-only address, ...) behind a fixed set of capability
// operations. The rest of arkit only ever talks to wallets through this package,
// which keeps the connection state machine and the capability facade independent
// of any particular provider.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                 CLI / terminal picker                       │
//	│           (cmd/arkit/, internal/tui/)                       │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│      Connection state machine, session, facade              │
//	│                  (pkg/connect/)                             │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                Strategy contract                            │
//	│                 (pkg/strategy/)                ◄────────────┤
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│              Built-in strategies                            │
//	│             (internal/strategies/)                          │
//	│   ┌───────────┐   ┌───────────┐   ┌───────────┐             │
//	│   │  keyfile  │   │ keychain  │   │ readonly  │             │
//	│   └───────────┘   └───────────┘   └───────────┘             │
//	└─────────────────────────────────────────────────────────────┘
//
// # Strategy Interface
//
// Every strategy exposes static Metadata and six operations:
//
//   - IsAvailable(): whether the provider can be used in this environment
//   - Connect(): establish a session with a permission scope
//   - Disconnect(): end the session
//   - ActiveAddress(): the wallet address of the session
//   - ActivePublicKey(): the RSA modulus (Arweave "owner") of the session
//   - Permissions(): the permissions granted to the session
//
// Strategies may additionally implement Signer, AddressLister or WalletNamer.
// Callers discover these through type assertions and must treat their absence
// as ErrUnsupported.
//
// # Error Handling
//
//   - ErrUnsupported: the provider cannot supply the requested capability
//   - ErrPermissionDenied: the session was not granted the needed permission
//   - ConnectionError: Connect was rejected, timed out or failed in the provider
//
// # Threading and Concurrency
//
// Implementations must be safe for concurrent use. The connection state machine
// may probe one strategy while a stale Connect call on another is still running.
//
// # Testing
//
// RunContractTests exercises the behaviour every strategy must share. The
// strategytest subpackage provides a configurable fake for code that consumes
// strategies.
package strategy
