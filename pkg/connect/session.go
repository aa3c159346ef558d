package connect

import "sync"

// Status is the connection lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusProbingAvailability
	StatusConnecting
	StatusConnected
	StatusUnavailable
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusProbingAvailability:
		return "probing"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusUnavailable:
		return "unavailable"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	Status Status

	// SelectedStrategyID is the strategy the user picked, set from the
	// moment of selection until Reset or Disconnect.
	SelectedStrategyID string

	// ActiveStrategyID is set only while Status is StatusConnected.
	ActiveStrategyID string

	// Retryable is true when Status is StatusFailed.
	Retryable bool

	// SessionID identifies one successful connection.
	SessionID string

	// Version increases by one with every mutation.
	Version uint64
}

// Connected reports whether a strategy is connected.
func (s Snapshot) Connected() bool {
	return s.Status == StatusConnected
}

// Busy reports whether a probe or connect is in flight.
func (s Snapshot) Busy() bool {
	return s.Status == StatusProbingAvailability || s.Status == StatusConnecting
}

// Err maps the terminal failure statuses to ErrUnavailableProvider and
// ErrConnectFailed. It returns nil for every other status.
func (s Snapshot) Err() error {
	switch s.Status {
	case StatusUnavailable:
		return ErrUnavailableProvider
	case StatusFailed:
		return ErrConnectFailed
	}
	return nil
}

// Session holds the connection status shared by the machine, the facade and
// any UI. Only the Machine that owns it writes to it.
type Session struct {
	mu   sync.RWMutex
	snap Snapshot

	// serializes writes so subscribers see versions in order
	notifyMu sync.Mutex

	subsMu sync.Mutex
	subs   []subscriber
	nextID uint64
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

// NewSession creates an idle session.
func NewSession() *Session {
	return &Session{}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers fn to be called synchronously after every mutation,
// in subscription order. fn may read the session but must not call back into
// the Machine; hand the snapshot to another goroutine for that.
//
// The returned func removes the subscription. It is safe to call more than
// once.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// set replaces the state, notifies subscribers and returns the previous
// state. The version is assigned here.
func (s *Session) set(next Snapshot) Snapshot {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	prev := s.snap
	next.Version = prev.Version + 1
	s.snap = next
	s.mu.Unlock()

	s.subsMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(next)
	}
	return prev
}
