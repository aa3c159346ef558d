package connect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/systmms/arkit/pkg/strategy"
)

// Machine is the connection state machine. It is safe for concurrent use.
type Machine struct {
	catalog  Catalog
	opts     Options
	session  *Session
	store    Store
	observer Observer
	logger   Logger

	mu       sync.Mutex
	gen      uint64
	selected strategy.Strategy
	active   strategy.Strategy
	closed   bool

	// teardown is closed once every disconnect started so far has returned.
	// Provider calls of later selections wait on it.
	teardown chan struct{}
}

// NewMachine creates an idle machine that resolves strategy ids through
// catalog and connects with opts.
func NewMachine(catalog Catalog, opts Options, options ...MachineOption) *Machine {
	m := &Machine{
		catalog:  catalog,
		opts:     opts,
		session:  NewSession(),
		store:    nopStore{},
		observer: nopObserver{},
		logger:   nopLogger{},
	}
	for _, o := range options {
		o(m)
	}
	return m
}

// Session returns the session the machine writes to.
func (m *Machine) Session() *Session {
	return m.session
}

// Select starts connecting to the strategy with the given id.
//
// Any previous selection is superseded and a connected strategy is
// disconnected. An unknown id leaves the machine Idle. The returned channel
// is closed once this selection's probe and connect have finished, whether
// or not their results were applied.
func (m *Machine) Select(ctx context.Context, id string) <-chan struct{} {
	done := make(chan struct{})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(done)
		return done
	}

	m.gen++
	gen := m.gen
	torn := m.disconnectLocked(ctx, m.teardownLocked(ctx))

	s, ok := m.catalog.Find(id)
	if !ok {
		m.selected = nil
		m.setLocked(Snapshot{Status: StatusIdle})
		m.mu.Unlock()

		m.logger.Debug("Unknown strategy %q, selection cleared", id)
		go func() {
			defer close(done)
			waitTeardown(torn)
		}()
		return done
	}

	m.selected = s
	m.setLocked(Snapshot{Status: StatusProbingAvailability, SelectedStrategyID: id})
	m.mu.Unlock()

	go func() {
		defer close(done)
		waitTeardown(torn)
		m.probeAndConnect(ctx, gen, s)
	}()
	return done
}

// Retry re-runs the connect against the selected strategy. It does nothing
// unless the machine is Failed.
func (m *Machine) Retry(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	m.mu.Lock()
	if m.closed || m.selected == nil || m.session.Snapshot().Status != StatusFailed {
		m.mu.Unlock()
		close(done)
		return done
	}

	m.gen++
	gen := m.gen
	s := m.selected
	torn := m.teardown
	m.setLocked(Snapshot{Status: StatusConnecting, SelectedStrategyID: s.Metadata().ID})
	m.mu.Unlock()

	go func() {
		defer close(done)
		waitTeardown(torn)
		m.connect(ctx, gen, s)
	}()
	return done
}

// Reset clears the selection and returns to Idle from any state. A connected
// strategy is disconnected; results of in-flight calls are discarded.
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.gen++
	torn := m.disconnectLocked(ctx, m.teardownLocked(ctx))
	m.selected = nil
	m.setLocked(Snapshot{Status: StatusIdle})
	m.mu.Unlock()

	waitTeardown(torn)
}

// GoBack is Reset under the name UIs use for leaving a strategy's screen.
func (m *Machine) GoBack(ctx context.Context) {
	m.Reset(ctx)
}

// Disconnect ends the session and forgets the persisted connection. Provider
// errors are ignored; an error is returned only if the store could not be
// cleared.
func (m *Machine) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	prev := m.active
	m.active = nil
	m.selected = nil
	m.setLocked(Snapshot{Status: StatusIdle})
	err := m.store.Clear(ctx)
	torn := m.disconnectLocked(ctx, prev)
	m.mu.Unlock()

	waitTeardown(torn)
	if err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}
	return nil
}

// Close tears the session down when the application shuts down. The
// persisted connection is kept so Restore can pick it up next time. Later
// calls on the machine are no-ops.
func (m *Machine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	prev := m.active
	m.active = nil
	m.selected = nil
	m.setLocked(Snapshot{Status: StatusIdle})
	m.closed = true
	torn := m.disconnectLocked(context.Background(), prev)
	m.mu.Unlock()

	waitTeardown(torn)
	return nil
}

// Restore selects the strategy of the persisted connection. Without one the
// returned channel is already closed and the machine stays Idle.
func (m *Machine) Restore(ctx context.Context) <-chan struct{} {
	rec, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("Could not load stored session: %v", err)
	}
	if err != nil || rec == nil || rec.StrategyID == "" {
		done := make(chan struct{})
		close(done)
		return done
	}
	m.logger.Debug("Restoring session %s with strategy %s", rec.SessionID, rec.StrategyID)
	return m.Select(ctx, rec.StrategyID)
}

// Active returns the connected strategy and the snapshot it was read with.
// The strategy is nil unless the snapshot is Connected.
func (m *Machine) Active() (strategy.Strategy, Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.session.Snapshot()
	if snap.Status != StatusConnected {
		return nil, snap
	}
	return m.active, snap
}

func (m *Machine) probeAndConnect(ctx context.Context, gen uint64, s strategy.Strategy) {
	id := s.Metadata().ID

	available := m.probe(ctx, s)
	m.observer.Probed(id, available)

	next := Snapshot{Status: StatusConnecting, SelectedStrategyID: id}
	if !available {
		next.Status = StatusUnavailable
	}
	if !m.apply(gen, next) {
		m.logger.Debug("Discarding stale availability result for %s", id)
		return
	}
	if !available {
		m.logger.Info("%s is not available", s.Metadata().Name)
		return
	}

	m.connect(ctx, gen, s)
}

// probe never fails: errors and panics count as unavailable.
func (m *Machine) probe(ctx context.Context, s strategy.Strategy) (available bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("Availability probe of %s panicked: %v", s.Metadata().ID, r)
			available = false
		}
	}()

	ok, err := s.IsAvailable(ctx)
	if err != nil {
		m.logger.Debug("Availability probe of %s failed: %v", s.Metadata().ID, err)
		return false
	}
	return ok
}

func (m *Machine) connect(ctx context.Context, gen uint64, s strategy.Strategy) {
	id := s.Metadata().ID

	start := time.Now()
	err := m.callConnect(ctx, s)
	m.observer.ConnectFinished(id, err, time.Since(start))

	m.mu.Lock()
	if gen != m.gen || m.closed {
		// Keep a stale session only if it belongs to the current selection.
		stale := m.selected == nil || m.selected.Metadata().ID != id

		var torn chan struct{}
		if err == nil && stale {
			torn = m.disconnectLocked(ctx, s)
		}
		m.mu.Unlock()

		m.logger.Debug("Discarding stale connect result for %s", id)
		waitTeardown(torn)
		return
	}

	if err != nil {
		m.setLocked(Snapshot{Status: StatusFailed, SelectedStrategyID: id, Retryable: true})
		m.mu.Unlock()
		m.logger.Warn("Connecting to %s failed: %v", s.Metadata().Name, err)
		return
	}

	rec := Record{StrategyID: id, SessionID: uuid.NewString(), ConnectedAt: time.Now().UTC()}
	m.active = s
	m.setLocked(Snapshot{
		Status:             StatusConnected,
		SelectedStrategyID: id,
		ActiveStrategyID:   id,
		SessionID:          rec.SessionID,
	})
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Warn("Could not persist session: %v", err)
	}
	m.mu.Unlock()

	m.logger.Info("Connected to %s", s.Metadata().Name)
}

func (m *Machine) callConnect(ctx context.Context, s strategy.Strategy) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	return s.Connect(ctx, m.opts.Permissions, m.opts.App, m.opts.Gateway)
}

// apply sets next if gen is still current.
func (m *Machine) apply(gen uint64, next Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.closed {
		return false
	}
	m.setLocked(next)
	return true
}

// setLocked must be called with m.mu held.
func (m *Machine) setLocked(next Snapshot) {
	prev := m.session.set(next)
	if prev.Status == next.Status && prev.SelectedStrategyID == next.SelectedStrategyID {
		return
	}
	id := next.SelectedStrategyID
	if id == "" {
		id = prev.SelectedStrategyID
	}
	m.observer.Transition(id, prev.Status, next.Status)
}

// teardownLocked detaches the connected strategy, if any, and forgets the
// persisted session. The caller hands the returned strategy to
// disconnectLocked.
func (m *Machine) teardownLocked(ctx context.Context) strategy.Strategy {
	prev := m.active
	m.active = nil
	if prev != nil {
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("Could not clear stored session: %v", err)
		}
	}
	return prev
}

// disconnectLocked starts disconnecting s after every earlier disconnect has
// returned and makes later provider calls wait for it. It returns the
// channel to wait on, which is nil when nothing is being torn down. It must
// be called with m.mu held.
func (m *Machine) disconnectLocked(ctx context.Context, s strategy.Strategy) chan struct{} {
	if s == nil {
		return m.teardown
	}
	prev := m.teardown
	done := make(chan struct{})
	m.teardown = done
	go func() {
		defer close(done)
		waitTeardown(prev)
		m.disconnectQuietly(ctx, s)
	}()
	return done
}

func waitTeardown(ch chan struct{}) {
	if ch != nil {
		<-ch
	}
}

func (m *Machine) disconnectQuietly(ctx context.Context, s strategy.Strategy) {
	if s == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("Disconnect of %s panicked: %v", s.Metadata().ID, r)
		}
	}()
	if err := s.Disconnect(ctx); err != nil {
		m.logger.Debug("Disconnect of %s failed: %v", s.Metadata().ID, err)
	}
}
