package strategy

import "errors"

// ErrUnsupported is returned when a strategy cannot provide a capability,
// for example a public key from a watch-only wallet.
var ErrUnsupported = errors.New("operation not supported by strategy")

// ErrPermissionDenied is returned when the active session was not granted
// the permission an operation needs.
var ErrPermissionDenied = errors.New("permission not granted")

// ErrNoSession is returned by strategy reads made before Connect succeeded.
var ErrNoSession = errors.New("strategy has no active session")

// ConnectionError indicates that Connect was rejected by the user, timed out
// or failed inside the provider.
//
// Example:
//
//	if !userApproved {
//	    return &ConnectionError{StrategyID: "keyfile", Reason: "request rejected"}
//	}
type ConnectionError struct {
	// StrategyID is the id of the strategy that failed to connect.
	StrategyID string

	// Reason is a short human readable cause.
	Reason string

	// Err is the underlying provider error, if any.
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	msg := "connect " + e.StrategyID + " failed"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
