package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/systmms/arkit/internal/config"
	arerrors "github.com/systmms/arkit/internal/errors"
	"github.com/systmms/arkit/internal/metrics"
	"github.com/systmms/arkit/internal/state"
	"github.com/systmms/arkit/internal/strategies"
	"github.com/systmms/arkit/pkg/connect"
	"github.com/systmms/arkit/pkg/strategy"
)

// probeTimeout bounds availability checks made for listings
const probeTimeout = 5 * time.Second

// runtime wires the configured registry, store and metrics into a machine
type runtime struct {
	cfg      *config.Config
	registry *strategies.Registry
	store    *state.FileStore
	machine  *connect.Machine
	facade   *connect.Facade
	observer *connectObserver
	server   *metrics.Server
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	stateDir := cfg.Definition.StateDir
	if stateDir == "" {
		stateDir = state.DefaultStateDir()
	}

	metrics.InitMetrics()
	rt := &runtime{
		cfg:      cfg,
		registry: strategies.NewRegistry(cfg.Definition.Strategies),
		store:    state.NewFileStore(stateDir),
		observer: &connectObserver{next: metrics.NewObserver()},
	}

	machineOpts := []connect.MachineOption{
		connect.WithStore(rt.store),
		connect.WithObserver(rt.observer),
	}
	if cfg.Logger != nil {
		machineOpts = append(machineOpts, connect.WithLogger(cfg.Logger))
	}
	rt.machine = connect.NewMachine(rt.registry, opts, machineOpts...)
	rt.facade = connect.NewFacade(rt.machine)

	if cfg.MetricsAddr != "" {
		rt.server = metrics.NewServer(metrics.DefaultServerConfig(cfg.MetricsAddr))
		if err := rt.server.Start(); err != nil {
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
		if cfg.Logger != nil {
			cfg.Logger.Debug("Serving metrics on %s", rt.server.Addr())
		}
	}

	return rt, nil
}

// close releases the strategy but keeps the persisted session
func (r *runtime) close() {
	_ = r.machine.Close()
	if r.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = r.server.Stop(ctx)
	}
}

// lookup resolves a strategy id, suggesting the closest known id when it
// is unknown
func (r *runtime) lookup(id string) (strategy.Strategy, error) {
	if s, ok := r.registry.Find(id); ok {
		return s, nil
	}

	suggestion := fmt.Sprintf("Available strategies: %s", strings.Join(r.registry.IDs(), ", "))
	if closest, ok := r.registry.Suggest(id); ok {
		suggestion = fmt.Sprintf("Did you mean '%s'? %s", closest, suggestion)
	}
	return nil, arerrors.UserError{
		Message:    fmt.Sprintf("Unknown wallet strategy '%s'", id),
		Suggestion: suggestion,
	}
}

// restore reconnects the persisted session for commands that read from it
func (r *runtime) restore(ctx context.Context) error {
	if err := wait(ctx, r.machine.Restore(ctx)); err != nil {
		return err
	}

	snap := r.machine.Session().Snapshot()
	switch {
	case snap.Connected():
		return nil
	case snap.SelectedStrategyID == "":
		return arerrors.UserError{
			Message:    "No wallet connected",
			Suggestion: "Run 'arkit connect' first",
			Err:        connect.ErrNotConnected,
		}
	default:
		return r.outcomeError(snap)
	}
}

// outcomeError explains why a selection did not end up connected
func (r *runtime) outcomeError(snap connect.Snapshot) error {
	id := snap.SelectedStrategyID
	switch snap.Status {
	case connect.StatusUnavailable:
		suggestion := "Check the strategy configuration in " + r.cfg.Path
		if s, ok := r.registry.Find(id); ok && s.Metadata().URL != "" {
			suggestion = "Set it up first: " + s.Metadata().URL
		}
		return arerrors.UserError{
			Message:    fmt.Sprintf("%s wallet is not available", id),
			Suggestion: suggestion,
			Err:        connect.ErrUnavailableProvider,
		}
	case connect.StatusFailed:
		cause := r.observer.lastError(id)
		if cause == nil {
			cause = connect.ErrConnectFailed
		}
		return arerrors.StrategyError(id, "connect", cause)
	}
	return arerrors.UserError{
		Message: fmt.Sprintf("Connection ended in state %s", snap.Status),
		Err:     connect.ErrNotConnected,
	}
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connectObserver forwards to the metrics observer and remembers the last
// connect failure per strategy so the CLI can explain it
type connectObserver struct {
	next connect.Observer

	mu   sync.Mutex
	errs map[string]error
}

func (o *connectObserver) Transition(id string, from, to connect.Status) {
	o.next.Transition(id, from, to)
}

func (o *connectObserver) Probed(id string, available bool) {
	o.next.Probed(id, available)
}

func (o *connectObserver) ConnectFinished(id string, err error, elapsed time.Duration) {
	o.next.ConnectFinished(id, err, elapsed)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.errs == nil {
		o.errs = make(map[string]error)
	}
	o.errs[id] = err
}

func (o *connectObserver) lastError(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errs[id]
}
