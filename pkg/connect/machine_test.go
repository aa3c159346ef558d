package connect_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/arkit/pkg/connect"
	"github.com/systmms/arkit/pkg/strategy"
	"github.com/systmms/arkit/pkg/strategy/strategytest"
)

type catalog map[string]strategy.Strategy

func (c catalog) Find(id string) (strategy.Strategy, bool) {
	s, ok := c[id]
	return s, ok
}

func newCatalog(strategies ...strategy.Strategy) catalog {
	c := catalog{}
	for _, s := range strategies {
		c[s.Metadata().ID] = s
	}
	return c
}

var testOptions = connect.Options{
	Permissions: strategy.NewPermissionSet(strategy.PermissionAccessAddress, strategy.PermissionSignature),
	App:         strategy.AppInfo{Name: "test app", Logo: "logo.png"},
	Gateway:     strategy.GatewayConfig{Host: "localhost", Port: 1984, Protocol: "http"},
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for machine")
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for provider call")
	}
}

// recorder collects every snapshot published by a session.
type recorder struct {
	mu    sync.Mutex
	snaps []connect.Snapshot
}

func record(s *connect.Session) *recorder {
	r := &recorder{}
	s.Subscribe(func(snap connect.Snapshot) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.snaps = append(r.snaps, snap)
	})
	return r
}

func (r *recorder) statuses() []connect.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]connect.Status, len(r.snaps))
	for i, s := range r.snaps {
		out[i] = s.Status
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = nil
}

type memoryStore struct {
	mu    sync.Mutex
	rec   *connect.Record
	saves int
	err   error
}

func (s *memoryStore) Load(context.Context) (*connect.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, s.err
	}
	rec := *s.rec
	return &rec, s.err
}

func (s *memoryStore) Save(_ context.Context, rec connect.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec
	s.saves++
	return nil
}

func (s *memoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return s.err
}

func (s *memoryStore) record() *connect.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

func TestMachine_UnavailableThenAvailable(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	b := strategytest.NewFake("B").WithAvailable(false)
	m := connect.NewMachine(newCatalog(a, b), testOptions)
	rec := record(m.Session())
	ctx := context.Background()

	wait(t, m.Select(ctx, "B"))
	snap := m.Session().Snapshot()
	assert.Equal(t, connect.StatusUnavailable, snap.Status)
	assert.Equal(t, "B", snap.SelectedStrategyID)
	assert.Empty(t, snap.ActiveStrategyID)
	assert.ErrorIs(t, snap.Err(), connect.ErrUnavailableProvider)
	assert.Equal(t, 0, b.Calls("Connect"))

	rec.reset()
	wait(t, m.Select(ctx, "A"))
	assert.Equal(t, []connect.Status{
		connect.StatusProbingAvailability,
		connect.StatusConnecting,
		connect.StatusConnected,
	}, rec.statuses())

	snap = m.Session().Snapshot()
	assert.Equal(t, "A", snap.ActiveStrategyID)
	assert.NotEmpty(t, snap.SessionID)
	assert.NoError(t, snap.Err())
	assert.True(t, a.Connected())
}

func TestMachine_FailedConnectThenRetry(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A").WithConnectErrors(
		&strategy.ConnectionError{StrategyID: "A", Reason: "request rejected"},
	)
	m := connect.NewMachine(newCatalog(a), testOptions)
	ctx := context.Background()

	wait(t, m.Select(ctx, "A"))
	snap := m.Session().Snapshot()
	require.Equal(t, connect.StatusFailed, snap.Status)
	assert.True(t, snap.Retryable)
	assert.ErrorIs(t, snap.Err(), connect.ErrConnectFailed)

	rec := record(m.Session())
	wait(t, m.Retry(ctx))

	assert.Equal(t, []connect.Status{connect.StatusConnecting, connect.StatusConnected}, rec.statuses())
	assert.Equal(t, 2, a.Calls("Connect"))
	assert.Equal(t, 1, a.Calls("IsAvailable"), "retry must not probe again")
	assert.Equal(t, "A", m.Session().Snapshot().ActiveStrategyID)
	assert.False(t, m.Session().Snapshot().Retryable)
}

func TestMachine_RetryIsNoOpUnlessFailed(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	b := strategytest.NewFake("B").WithAvailable(false)
	m := connect.NewMachine(newCatalog(a, b), testOptions)
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func()
		want  connect.Status
	}{
		{"idle", func() { m.Reset(ctx) }, connect.StatusIdle},
		{"unavailable", func() { wait(t, m.Select(ctx, "B")) }, connect.StatusUnavailable},
		{"connected", func() { wait(t, m.Select(ctx, "A")) }, connect.StatusConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			before := m.Session().Snapshot()
			connects := a.Calls("Connect") + b.Calls("Connect")

			wait(t, m.Retry(ctx))

			after := m.Session().Snapshot()
			assert.Equal(t, tt.want, after.Status)
			assert.Equal(t, before.Version, after.Version, "retry must not touch the session")
			assert.Equal(t, connects, a.Calls("Connect")+b.Calls("Connect"))
		})
	}
}

func TestMachine_UnknownStrategyLeavesIdle(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	m := connect.NewMachine(newCatalog(a), testOptions)
	ctx := context.Background()

	wait(t, m.Select(ctx, "does-not-exist"))
	snap := m.Session().Snapshot()
	assert.Equal(t, connect.StatusIdle, snap.Status)
	assert.Empty(t, snap.SelectedStrategyID)
	assert.NoError(t, snap.Err())

	// An unknown id also clears a previous connection
	wait(t, m.Select(ctx, "A"))
	require.True(t, m.Session().Snapshot().Connected())
	wait(t, m.Select(ctx, "nope"))
	assert.Equal(t, connect.StatusIdle, m.Session().Snapshot().Status)
	assert.False(t, a.Connected())
}

func TestMachine_LaterSelectionSupersedesPendingProbe(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	b := strategytest.NewFake("B")
	release := a.HoldProbe()
	defer release()

	m := connect.NewMachine(newCatalog(a, b), testOptions)
	ctx := context.Background()

	doneA := m.Select(ctx, "A")
	waitSignal(t, a.ProbeStarted())

	wait(t, m.Select(ctx, "B"))
	require.Equal(t, connect.StatusConnected, m.Session().Snapshot().Status)
	version := m.Session().Snapshot().Version

	release()
	wait(t, doneA)

	snap := m.Session().Snapshot()
	assert.Equal(t, connect.StatusConnected, snap.Status)
	assert.Equal(t, "B", snap.ActiveStrategyID)
	assert.Equal(t, version, snap.Version, "stale probe must not alter the session")
	assert.Equal(t, 0, a.Calls("Connect"))
}

func TestMachine_OnlyLastSelectionResolves(t *testing.T) {
	t.Parallel()

	fakes := []*strategytest.Fake{
		strategytest.NewFake("A"),
		strategytest.NewFake("B").WithAvailable(false),
		strategytest.NewFake("C").WithConnectErrors(errors.New("boom")),
		strategytest.NewFake("D"),
	}
	var (
		cat      = catalog{}
		releases []func()
	)
	for _, f := range fakes {
		cat[f.Metadata().ID] = f
		releases = append(releases, f.HoldProbe())
	}

	m := connect.NewMachine(cat, testOptions)
	rec := record(m.Session())
	ctx := context.Background()

	var dones []<-chan struct{}
	for _, f := range fakes {
		dones = append(dones, m.Select(ctx, f.Metadata().ID))
		waitSignal(t, f.ProbeStarted())
	}

	// Resolve in reverse order: the last selection first
	for i := len(fakes) - 1; i >= 0; i-- {
		releases[i]()
		wait(t, dones[i])
	}

	snap := m.Session().Snapshot()
	assert.Equal(t, connect.StatusConnected, snap.Status)
	assert.Equal(t, "D", snap.ActiveStrategyID)

	for _, s := range rec.statuses() {
		assert.NotEqual(t, connect.StatusUnavailable, s, "B's stale probe leaked into the session")
		assert.NotEqual(t, connect.StatusFailed, s, "C's stale result leaked into the session")
	}
	for _, f := range fakes[:3] {
		assert.Equal(t, 0, f.Calls("Connect"), "%s should never connect", f.Metadata().ID)
	}
}

func TestMachine_ResetDiscardsInFlightConnect(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	release := a.HoldConnect()
	defer release()

	m := connect.NewMachine(newCatalog(a), testOptions)
	ctx := context.Background()

	done := m.Select(ctx, "A")
	waitSignal(t, a.ConnectStarted())
	require.Equal(t, connect.StatusConnecting, m.Session().Snapshot().Status)

	m.GoBack(ctx)
	assert.Equal(t, connect.StatusIdle, m.Session().Snapshot().Status)

	release()
	wait(t, done)

	snap := m.Session().Snapshot()
	assert.Equal(t, connect.StatusIdle, snap.Status)
	assert.Empty(t, snap.ActiveStrategyID)
	assert.False(t, a.Connected(), "late connect must not leave a provider session behind")
	assert.Equal(t, 1, a.Calls("Disconnect"))
}

func TestMachine_ProbeFailuresAreUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fake *strategytest.Fake
	}{
		{"false", strategytest.NewFake("x").WithAvailable(false)},
		{"error", strategytest.NewFake("x").WithAvailabilityError(errors.New("extension crashed"))},
		{"panic", strategytest.NewFake("x").WithProbePanic()},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := connect.NewMachine(newCatalog(tt.fake), testOptions)
			wait(t, m.Select(context.Background(), "x"))

			assert.Equal(t, connect.StatusUnavailable, m.Session().Snapshot().Status)
			assert.Equal(t, 0, tt.fake.Calls("Connect"))
		})
	}
}

func TestMachine_ConnectFailuresAreRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fake *strategytest.Fake
	}{
		{"rejected", strategytest.NewFake("x").WithConnectErrors(&strategy.ConnectionError{StrategyID: "x", Reason: "rejected"})},
		{"timeout", strategytest.NewFake("x").WithConnectErrors(context.DeadlineExceeded)},
		{"panic", strategytest.NewFake("x").WithConnectPanic()},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := connect.NewMachine(newCatalog(tt.fake), testOptions)
			wait(t, m.Select(context.Background(), "x"))

			snap := m.Session().Snapshot()
			assert.Equal(t, connect.StatusFailed, snap.Status)
			assert.True(t, snap.Retryable)
		})
	}
}

func TestMachine_NewSelectionDisconnectsPrevious(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A").WithDisconnectError(errors.New("ignored"))
	b := strategytest.NewFake("B")
	store := &memoryStore{}
	m := connect.NewMachine(newCatalog(a, b), testOptions, connect.WithStore(store))
	ctx := context.Background()

	wait(t, m.Select(ctx, "A"))
	require.True(t, a.Connected())
	require.Equal(t, "A", store.record().StrategyID)

	wait(t, m.Select(ctx, "B"))
	assert.Equal(t, 1, a.Calls("Disconnect"))
	assert.False(t, a.Connected())
	assert.True(t, b.Connected())
	assert.Equal(t, "B", m.Session().Snapshot().ActiveStrategyID)
	assert.Equal(t, "B", store.record().StrategyID)
}

func TestMachine_ReselectWaitsForPendingDisconnect(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	b := strategytest.NewFake("B")
	m := connect.NewMachine(newCatalog(a, b), testOptions)
	ctx := context.Background()

	wait(t, m.Select(ctx, "A"))
	require.True(t, a.Connected())

	release := a.HoldDisconnect()
	toB := m.Select(ctx, "B")
	waitSignal(t, a.DisconnectStarted())

	toA := m.Select(ctx, "A")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, a.Calls("IsAvailable"), "A must not be probed while its disconnect is pending")
	assert.Equal(t, 0, b.Calls("IsAvailable"))
	assert.Equal(t, 1, a.Calls("Connect"))

	release()
	wait(t, toB)
	wait(t, toA)

	snap := m.Session().Snapshot()
	assert.Equal(t, connect.StatusConnected, snap.Status)
	assert.Equal(t, "A", snap.ActiveStrategyID)
	assert.True(t, a.Connected(), "session must match the provider")
	assert.Equal(t, 2, a.Calls("Connect"))

	_, err := connect.NewFacade(m).ActiveAddress(ctx)
	assert.NoError(t, err)
}

func TestMachine_ResetWaitsForDisconnect(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	m := connect.NewMachine(newCatalog(a), testOptions)
	ctx := context.Background()

	wait(t, m.Select(ctx, "A"))
	release := a.HoldDisconnect()

	reset := make(chan struct{})
	go func() {
		defer close(reset)
		m.Reset(ctx)
	}()
	waitSignal(t, a.DisconnectStarted())

	select {
	case <-reset:
		t.Fatal("Reset returned before the provider disconnected")
	case <-time.After(20 * time.Millisecond):
	}
	release()
	wait(t, reset)
	assert.False(t, a.Connected())
	assert.Equal(t, connect.StatusIdle, m.Session().Snapshot().Status)
}

func TestMachine_PassesOptionsThrough(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	m := connect.NewMachine(newCatalog(a), testOptions)
	ctx := context.Background()

	wait(t, m.Select(ctx, "A"))

	app, gw := a.LastConnect()
	assert.Equal(t, testOptions.App, app)
	assert.Equal(t, testOptions.Gateway, gw)

	perms, err := connect.NewFacade(m).Permissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, testOptions.Permissions, perms)
}

func TestMachine_PersistsAndRestores(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	store := &memoryStore{}
	ctx := context.Background()

	first := connect.NewMachine(newCatalog(a), testOptions, connect.WithStore(store))
	wait(t, first.Select(ctx, "A"))
	sessionID := first.Session().Snapshot().SessionID

	saved := store.record()
	require.NotNil(t, saved)
	assert.Equal(t, "A", saved.StrategyID)
	assert.Equal(t, sessionID, saved.SessionID)
	assert.False(t, saved.ConnectedAt.IsZero())

	// Close keeps the stored session for the next start
	require.NoError(t, first.Close())
	require.NotNil(t, store.record())
	assert.Equal(t, connect.StatusIdle, first.Session().Snapshot().Status)

	second := connect.NewMachine(newCatalog(a), testOptions, connect.WithStore(store))
	wait(t, second.Restore(ctx))
	snap := second.Session().Snapshot()
	assert.Equal(t, connect.StatusConnected, snap.Status)
	assert.NotEqual(t, sessionID, snap.SessionID)

	require.NoError(t, second.Disconnect(ctx))
	assert.Nil(t, store.record())
	assert.Equal(t, connect.StatusIdle, second.Session().Snapshot().Status)
	assert.False(t, a.Connected())
}

func TestMachine_RestoreWithoutStoredSession(t *testing.T) {
	t.Parallel()

	m := connect.NewMachine(newCatalog(strategytest.NewFake("A")), testOptions, connect.WithStore(&memoryStore{}))
	wait(t, m.Restore(context.Background()))
	assert.Equal(t, connect.StatusIdle, m.Session().Snapshot().Status)
	assert.Zero(t, m.Session().Snapshot().Version)
}

func TestMachine_DisconnectReportsStoreError(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	store := &memoryStore{}
	m := connect.NewMachine(newCatalog(a), testOptions, connect.WithStore(store))
	ctx := context.Background()

	wait(t, m.Select(ctx, "A"))
	store.mu.Lock()
	store.err = errors.New("read-only filesystem")
	store.mu.Unlock()

	err := m.Disconnect(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only filesystem")
	assert.Equal(t, connect.StatusIdle, m.Session().Snapshot().Status)
	assert.False(t, a.Connected())
}

func TestMachine_CloseIgnoresLaterCalls(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A")
	m := connect.NewMachine(newCatalog(a), testOptions)
	ctx := context.Background()

	wait(t, m.Select(ctx, "A"))
	require.NoError(t, m.Close())
	assert.False(t, a.Connected())

	version := m.Session().Snapshot().Version
	wait(t, m.Select(ctx, "A"))
	wait(t, m.Retry(ctx))
	m.Reset(ctx)
	require.NoError(t, m.Disconnect(ctx))
	require.NoError(t, m.Close())

	assert.Equal(t, version, m.Session().Snapshot().Version)
	assert.Equal(t, 1, a.Calls("Connect"))
}

type transition struct {
	id       string
	from, to connect.Status
}

type observer struct {
	mu          sync.Mutex
	transitions []transition
	probes      map[string]bool
	connectErrs []error
}

func (o *observer) Transition(id string, from, to connect.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, transition{id, from, to})
}

func (o *observer) Probed(id string, available bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.probes == nil {
		o.probes = map[string]bool{}
	}
	o.probes[id] = available
}

func (o *observer) ConnectFinished(id string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connectErrs = append(o.connectErrs, err)
}

func TestMachine_ReportsToObserver(t *testing.T) {
	t.Parallel()

	a := strategytest.NewFake("A").WithConnectErrors(errors.New("rejected"))
	obs := &observer{}
	m := connect.NewMachine(newCatalog(a), testOptions, connect.WithObserver(obs))
	ctx := context.Background()

	wait(t, m.Select(ctx, "A"))
	wait(t, m.Retry(ctx))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []transition{
		{"A", connect.StatusIdle, connect.StatusProbingAvailability},
		{"A", connect.StatusProbingAvailability, connect.StatusConnecting},
		{"A", connect.StatusConnecting, connect.StatusFailed},
		{"A", connect.StatusFailed, connect.StatusConnecting},
		{"A", connect.StatusConnecting, connect.StatusConnected},
	}, obs.transitions)
	assert.Equal(t, map[string]bool{"A": true}, obs.probes)
	require.Len(t, obs.connectErrs, 2)
	assert.Error(t, obs.connectErrs[0])
	assert.NoError(t, obs.connectErrs[1])
}
