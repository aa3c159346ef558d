package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/arkit/pkg/connect"
	"github.com/systmms/arkit/pkg/strategy"
	"github.com/systmms/arkit/pkg/strategy/strategytest"
)

// Metrics live in the default registry, so every test uses its own
// strategy ids.

func TestInitMetrics(t *testing.T) {
	InitMetrics()
	InitMetrics()

	assert.True(t, IsMetricsRegistered())
	assert.NotNil(t, transitionsTotal)
	assert.NotNil(t, probesTotal)
	assert.NotNil(t, connectAttemptsTotal)
	assert.NotNil(t, connectDuration)
	assert.NotNil(t, sessionConnected)
}

func TestObserver_Events(t *testing.T) {
	o := NewObserver()

	o.Probed("obs-a", true)
	o.Probed("obs-a", false)
	o.Probed("obs-a", false)
	o.ConnectFinished("obs-a", nil, 20*time.Millisecond)
	o.ConnectFinished("obs-a", errors.New("rejected"), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(probesTotal.WithLabelValues("obs-a", "available")))
	assert.Equal(t, 2.0, testutil.ToFloat64(probesTotal.WithLabelValues("obs-a", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("obs-a", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("obs-a", "failure")))
}

func TestObserver_SessionGauge(t *testing.T) {
	o := NewObserver()

	o.Transition("gauge-a", connect.StatusIdle, connect.StatusProbingAvailability)
	o.Transition("gauge-a", connect.StatusProbingAvailability, connect.StatusConnecting)
	o.Transition("gauge-a", connect.StatusConnecting, connect.StatusConnected)
	assert.Equal(t, 1.0, testutil.ToFloat64(sessionConnected.WithLabelValues("gauge-a")))

	// Selecting another strategy reports the new id
	o.Transition("gauge-b", connect.StatusConnected, connect.StatusProbingAvailability)
	assert.Equal(t, 0.0, testutil.ToFloat64(sessionConnected.WithLabelValues("gauge-a")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sessionConnected.WithLabelValues("gauge-b")))

	assert.Equal(t, 1.0, testutil.ToFloat64(transitionsTotal.WithLabelValues("gauge-a", "connected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(transitionsTotal.WithLabelValues("gauge-b", "probing")))
}

func TestObserver_WiredIntoMachine(t *testing.T) {
	fake := strategytest.NewFake("wired").WithConnectErrors(errors.New("no"))
	catalog := fakeCatalog{"wired": fake}
	m := connect.NewMachine(catalog, connect.Options{}, connect.WithObserver(NewObserver()))
	ctx := context.Background()

	<-m.Select(ctx, "wired")
	<-m.Retry(ctx)

	assert.Equal(t, 1.0, testutil.ToFloat64(probesTotal.WithLabelValues("wired", "available")))
	assert.Equal(t, 1.0, testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("wired", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("wired", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(transitionsTotal.WithLabelValues("wired", "connecting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sessionConnected.WithLabelValues("wired")))

	require.NoError(t, m.Disconnect(ctx))
	assert.Equal(t, 0.0, testutil.ToFloat64(sessionConnected.WithLabelValues("wired")))
}

func TestServer(t *testing.T) {
	s := NewServer(DefaultServerConfig("127.0.0.1:0"))
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	NewObserver().Probed("served", true)

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `arkit_availability_probes_total{result="available",strategy="served"} 1`))

	resp, err = http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
	_, open := <-s.Errors()
	assert.False(t, open)
}

func TestServer_Disabled(t *testing.T) {
	s := NewServer(DefaultServerConfig(""))
	require.NoError(t, s.Start())
	assert.Empty(t, s.Addr())
	assert.NoError(t, s.Stop(context.Background()))
}

type fakeCatalog map[string]*strategytest.Fake

func (c fakeCatalog) Find(id string) (strategy.Strategy, bool) {
	f, ok := c[id]
	if !ok {
		return nil, false
	}
	return f, true
}
