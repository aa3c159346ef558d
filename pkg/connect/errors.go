package connect

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Facade reads when no strategy is
	// connected.
	ErrNotConnected = errors.New("no wallet connected")

	// ErrUnavailableProvider describes the Unavailable status. It is never
	// returned by Select; see Snapshot.Err.
	ErrUnavailableProvider = errors.New("wallet provider is not available")

	// ErrConnectFailed describes the Failed status. Every connect failure is
	// retryable.
	ErrConnectFailed = errors.New("wallet connection failed")
)

// ProviderError wraps a failure of the connected strategy during a read.
type ProviderError struct {
	StrategyID string
	Op         string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.StrategyID, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
