// Package connect drives the connection lifecycle between an application and
// one of several wallet strategies.
//
// A Machine owns a Session. The application (or a UI) calls Select with a
// strategy id; the machine probes the strategy's availability, connects with
// the host's permission set, app info and gateway, and records the outcome in
// the Session. Everything else reads the Session, either by polling Snapshot or
// by subscribing to changes.
//
//	Idle ──Select──► ProbingAvailability ──► Unavailable
//	                          │
//	                          ▼
//	                     Connecting ──► Failed ──Retry──► Connecting
//	                          │
//	                          ▼
//	                      Connected
//
// Reset (GoBack), Disconnect and Close return the machine to Idle from any
// state.
//
// # Supersession
//
// Provider calls cannot be cancelled. Instead every Select, Retry, Reset and
// Disconnect bumps a generation counter, and the result of an asynchronous
// probe or connect is applied only if its generation is still current. A user
// who backs out of a slow connect therefore never ends up with a session they
// did not ask for.
//
// # Errors
//
// Availability and connect failures never reach the caller: they become the
// Unavailable and Failed statuses (see Snapshot.Err). Reads through the Facade
// return ErrNotConnected without a session and *ProviderError when the wallet
// fails.
package connect
