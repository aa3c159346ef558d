package connect

import (
	"context"
	"time"

	"github.com/systmms/arkit/pkg/strategy"
)

// Options are the host application's inputs, passed unchanged to every
// Connect call.
type Options struct {
	Permissions strategy.PermissionSet
	App         strategy.AppInfo
	Gateway     strategy.GatewayConfig
}

// Catalog looks up strategies by id. The strategy registry implements it.
type Catalog interface {
	Find(id string) (strategy.Strategy, bool)
}

// Record is the persisted form of a successful connection.
type Record struct {
	StrategyID  string    `json:"strategy_id"`
	SessionID   string    `json:"session_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Store persists the last successful connection so it can be restored on the
// next start.
type Store interface {
	// Load returns nil and no error when nothing is stored.
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// Observer receives lifecycle events, typically to record metrics. Calls are
// made synchronously and must not block.
type Observer interface {
	Transition(strategyID string, from, to Status)
	Probed(strategyID string, available bool)
	ConnectFinished(strategyID string, err error, elapsed time.Duration)
}

// Logger is the logging interface the machine needs. internal/logging.Logger
// satisfies it.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithSession makes the machine own s instead of a fresh session.
func WithSession(s *Session) MachineOption {
	return func(m *Machine) { m.session = s }
}

// WithStore persists successful connections to s.
func WithStore(s Store) MachineOption {
	return func(m *Machine) { m.store = s }
}

// WithObserver reports lifecycle events to o.
func WithObserver(o Observer) MachineOption {
	return func(m *Machine) { m.observer = o }
}

// WithLogger logs through l.
func WithLogger(l Logger) MachineOption {
	return func(m *Machine) { m.logger = l }
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}

type nopObserver struct{}

func (nopObserver) Transition(string, Status, Status)            {}
func (nopObserver) Probed(string, bool)                          {}
func (nopObserver) ConnectFinished(string, error, time.Duration) {}

type nopStore struct{}

func (nopStore) Load(context.Context) (*Record, error) { return nil, nil }
func (nopStore) Save(context.Context, Record) error    { return nil }
func (nopStore) Clear(context.Context) error           { return nil }
