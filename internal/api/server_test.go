package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/cluster"
	"github.com/dreamware/clusterscope/internal/coordinator"
	"github.com/dreamware/clusterscope/internal/info"
	"github.com/dreamware/clusterscope/internal/metrics"
	"github.com/dreamware/clusterscope/internal/profile"
	"github.com/dreamware/clusterscope/internal/simnode"
	"github.com/dreamware/clusterscope/internal/telemetry"
)

// deadNode refuses every command.
type deadNode string

func (d deadNode) ID() string { return string(d) }

func (d deadNode) Info(context.Context, string) (string, error) {
	return "", info.ErrConnRefused
}

type fixture struct {
	srv      *httptest.Server
	store    *profile.SQLiteStore
	registry *coordinator.ClientRegistry
	udf      simnode.UDFModule
}

// newFixture serves the API over three in-process simulated nodes named
// sim-1..sim-3. Any other host in a profile resolves to a dead node.
func newFixture(t *testing.T, healthInterval time.Duration) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := profile.Open(ctx, filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	nodes := make([]*simnode.Node, 3)
	byHost := make(map[string]coordinator.NodeClient)
	for i := range nodes {
		nodes[i] = simnode.New(simnode.Config{
			ID:          fmt.Sprintf("node-%d", i+1),
			Service:     fmt.Sprintf("10.0.0.%d:3000", i+1),
			ClusterSize: 3,
			Namespaces:  []simnode.NamespaceConfig{{Name: "test", ReplicationFactor: 2}},
		})
		byHost[fmt.Sprintf("sim-%d", i+1)] = nodes[i]
	}
	for i := 0; i < 12; i++ {
		body := fmt.Sprintf(`{"name":"user%d","age":%d}`, i, 20+i)
		require.NoError(t, simnode.Replicate(nodes, "test", "users", fmt.Sprintf("user:%d", i), []byte(body)))
	}
	var udf simnode.UDFModule
	for _, n := range nodes {
		require.NoError(t, n.RegisterIndex(simnode.IndexDef{Namespace: "test", Name: "idx_age", Set: "users", Bin: "age", Type: "numeric"}))
		udf = n.RegisterUDF("geo.lua", "function f() end")
	}

	resolve := func(ctx context.Context, id string) ([]coordinator.NodeClient, error) {
		p, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out := make([]coordinator.NodeClient, 0, len(p.Hosts))
		for _, h := range p.Hosts {
			n, ok := byHost[h]
			if !ok {
				n = deadNode(h)
			}
			out = append(out, n)
		}
		return out, nil
	}

	reg := prometheus.NewRegistry()
	registry := coordinator.NewClientRegistry(resolve, coordinator.RegistryConfig{
		NodeTimeout:    time.Second,
		HealthInterval: healthInterval,
		Observer:       metrics.NewBroadcast(reg),
	}, zap.NewNop())
	t.Cleanup(registry.Close)

	srv := NewServer(store, registry, zap.NewNop(), Options{
		RoundTimeout: 5 * time.Second,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MetricsPath:  "/metrics",
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{srv: ts, store: store, registry: registry, udf: udf}
}

func (f *fixture) url(path string) string {
	return f.srv.URL + path
}

func (f *fixture) createProfile(t *testing.T, body string) profile.Profile {
	t.Helper()
	resp, err := http.Post(f.url("/api/connections"), "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var p profile.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

func (f *fixture) status(t *testing.T, method, path, body string) int {
	t.Helper()
	req, err := http.NewRequest(method, f.url(path), bytes.NewBufferString(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestConnectionsCRUD(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	created := f.createProfile(t, `{"name":"Local","hosts":["sim-1","sim-2","sim-3"],"clusterName":"dev"}`)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, profile.DefaultPort, created.Port)
	assert.Equal(t, profile.DefaultColor, created.Color)

	var list []profile.Profile
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/connections"), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	var got profile.Profile
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/connections/"+created.ID), &got))
	assert.Equal(t, "dev", got.ClusterName)

	// Opening the cluster caches a broadcaster; an update must drop it.
	require.Equal(t, http.StatusOK, f.status(t, http.MethodGet, "/api/clusters/"+created.ID, ""))
	assert.Contains(t, f.registry.Connections(), created.ID)

	var updated profile.Profile
	require.NoError(t, cluster.PutJSON(ctx, f.url("/api/connections/"+created.ID), map[string]any{"name": "Renamed"}, &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, []string{"sim-1", "sim-2", "sim-3"}, updated.Hosts, "omitted fields are kept")
	assert.NotContains(t, f.registry.Connections(), created.ID)

	assert.Equal(t, http.StatusNoContent, f.status(t, http.MethodDelete, "/api/connections/"+created.ID, ""))
	assert.Equal(t, http.StatusNotFound, f.status(t, http.MethodGet, "/api/connections/"+created.ID, ""))
	assert.Equal(t, http.StatusNotFound, f.status(t, http.MethodDelete, "/api/connections/"+created.ID, ""))
}

func TestConnectionsRejectBadInput(t *testing.T) {
	f := newFixture(t, 0)

	assert.Equal(t, http.StatusBadRequest, f.status(t, http.MethodPost, "/api/connections", "{not json"))
	assert.Equal(t, http.StatusBadRequest, f.status(t, http.MethodPost, "/api/connections", `{"name":"x"}`))
	assert.Equal(t, http.StatusBadRequest, f.status(t, http.MethodPost, "/api/connections", `{"name":"x","hosts":["h"],"port":70000}`))

	p := f.createProfile(t, `{"name":"ok","hosts":["sim-1"]}`)
	assert.Equal(t, http.StatusBadRequest, f.status(t, http.MethodPut, "/api/connections/"+p.ID, `{"hosts":[]}`))
	assert.Equal(t, http.StatusNotFound, f.status(t, http.MethodPut, "/api/connections/missing", `{"name":"n"}`))
}

func TestClusterTelemetry(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	p := f.createProfile(t, `{"name":"Local","hosts":["sim-1","sim-2","sim-3"]}`)

	var view telemetry.ClusterView
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/clusters/"+p.ID), &view))
	assert.Equal(t, p.ID, view.ConnectionID)
	require.Len(t, view.Nodes, 3)
	assert.Equal(t, "10.0.0.2", view.Nodes[1].Address)
	require.Len(t, view.Namespaces, 1)
	assert.Equal(t, int64(12), view.Namespaces[0].Objects)
	require.Len(t, view.Namespaces[0].Sets, 1)
	assert.Equal(t, int64(12), view.Namespaces[0].Sets[0].Objects)

	var m telemetry.MetricsView
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/metrics/"+p.ID), &m))
	assert.True(t, m.Connected)
	require.Len(t, m.Namespaces, 1)
	assert.Equal(t, int64(24), m.Namespaces[0].WriteSuccess, "every replica write counts")
	assert.Equal(t, int64(24), m.TotalWriteReqs)

	var indexes []telemetry.IndexView
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/indexes/"+p.ID), &indexes))
	assert.Equal(t, []telemetry.IndexView{{
		Name: "idx_age", Namespace: "test", Set: "users", Bin: "age",
		Type: "numeric", State: telemetry.IndexReady, NodeCount: 3,
	}}, indexes)

	var udfs []telemetry.UDFModule
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/udfs/"+p.ID), &udfs))
	assert.Equal(t, []telemetry.UDFModule{{Filename: "geo.lua", Type: "LUA", Hash: f.udf.Hash}}, udfs)

	var st telemetry.ConnectionStatus
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/connections/"+p.ID+"/health"), &st))
	assert.Equal(t, telemetry.ConnectionStatus{
		Connected:      true,
		NodeCount:      3,
		NamespaceCount: 1,
		Build:          "7.0.0.0",
		Edition:        "Aerospike Community Edition",
	}, st)

	resp, err := http.Get(f.url("/metrics"))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `clusterscope_info_rounds_total{command="statistics"}`)
	assert.Contains(t, string(body), `clusterscope_info_responding_nodes{command="sets"} 3`)
}

func TestUnreachableCluster(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	p := f.createProfile(t, `{"name":"gone","hosts":["dead-1","dead-2"]}`)

	assert.Equal(t, http.StatusBadGateway, f.status(t, http.MethodGet, "/api/clusters/"+p.ID, ""))
	assert.Equal(t, http.StatusBadGateway, f.status(t, http.MethodGet, "/api/indexes/"+p.ID, ""))
	assert.Equal(t, http.StatusBadGateway, f.status(t, http.MethodGet, "/api/udfs/"+p.ID, ""))

	var m telemetry.MetricsView
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/metrics/"+p.ID), &m))
	assert.False(t, m.Connected)
	assert.Equal(t, p.ID, m.ConnectionID)

	var st telemetry.ConnectionStatus
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/connections/"+p.ID+"/health"), &st))
	assert.False(t, st.Connected)
}

func TestPartiallyReachableCluster(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	p := f.createProfile(t, `{"name":"half","hosts":["sim-1","dead-1","sim-3"]}`)

	var view telemetry.ClusterView
	require.NoError(t, cluster.GetJSON(ctx, f.url("/api/clusters/"+p.ID), &view))
	require.Len(t, view.Nodes, 3)
	assert.Equal(t, "dead-1", view.Nodes[1].Name)
	assert.Empty(t, view.Nodes[1].Build)
	assert.Equal(t, 2, view.Summary.RespondingNodes)
	assert.Equal(t, 2, view.Namespaces[0].RespondingNodes)
}

func TestUnknownConnection(t *testing.T) {
	f := newFixture(t, 0)

	for _, path := range []string{
		"/api/clusters/nope",
		"/api/metrics/nope",
		"/api/indexes/nope",
		"/api/udfs/nope",
		"/api/nodes/nope/health",
		"/api/connections/nope/health",
	} {
		assert.Equal(t, http.StatusNotFound, f.status(t, http.MethodGet, path, ""), path)
	}
}

func TestNodeHealth(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	ctx := context.Background()
	p := f.createProfile(t, `{"name":"Local","hosts":["sim-1","dead-1"]}`)

	type nodeHealth struct {
		Nodes map[string]coordinator.NodeHealth `json:"nodes"`
	}
	require.Eventually(t, func() bool {
		var out nodeHealth
		if err := cluster.GetJSON(ctx, f.url("/api/nodes/"+p.ID+"/health"), &out); err != nil {
			return false
		}
		return out.Nodes["node-1"].Status == coordinator.StatusHealthy &&
			out.Nodes["dead-1"].Status == coordinator.StatusUnhealthy
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNodeHealthWithoutMonitor(t *testing.T) {
	f := newFixture(t, 0)
	p := f.createProfile(t, `{"name":"Local","hosts":["sim-1"]}`)

	var out struct {
		Nodes map[string]any `json:"nodes"`
	}
	require.NoError(t, cluster.GetJSON(context.Background(), f.url("/api/nodes/"+p.ID+"/health"), &out))
	assert.NotNil(t, out.Nodes)
	assert.Empty(t, out.Nodes)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("wrap: %w", profile.ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, statusFor(profile.ErrInvalid))
	assert.Equal(t, http.StatusBadGateway, statusFor(fmt.Errorf("list namespaces: %w", info.ErrTimeout)))
	assert.Equal(t, http.StatusBadGateway, statusFor(coordinator.ErrNoNodes))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func (f *fixture) terminal(t *testing.T, id, command string) terminalResult {
	t.Helper()
	body, err := json.Marshal(map[string]string{"command": command})
	require.NoError(t, err)
	resp, err := http.Post(f.url("/api/terminal/"+id), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out terminalResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestTerminal(t *testing.T) {
	f := newFixture(t, 0)
	p := f.createProfile(t, `{"name":"Local","hosts":["sim-1","sim-2","sim-3"]}`)

	tests := []struct {
		command string
		want    string
	}{
		{"show sets", "Sets:\n  test.users  objects=12  tombstones=0  (nodes=3)"},
		{"show bins", "Bins:\n  age\n  name"},
		{"show indexes", "Indexes:\n  test.idx_age  bin=age  type=numeric  state=ready  (nodes=3)"},
		{" node ", "node-1"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			res := f.terminal(t, p.ID, tt.command)
			assert.True(t, res.Success)
			assert.Equal(t, tt.want, res.Output)
			assert.Equal(t, strings.TrimSpace(tt.command), res.Command)
			assert.True(t, strings.HasPrefix(res.ID, "cmd-"), res.ID)
			assert.False(t, res.Timestamp.IsZero())
		})
	}
}

func TestTerminalNodeFailures(t *testing.T) {
	f := newFixture(t, 0)

	half := f.createProfile(t, `{"name":"half","hosts":["sim-1","dead-1"]}`)
	res := f.terminal(t, half.ID, "statistics")
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "--- node-1 ---\n  client_connections=")
	assert.Contains(t, res.Output, "--- dead-1 (error) ---")

	gone := f.createProfile(t, `{"name":"gone","hosts":["dead-1","dead-2"]}`)
	res = f.terminal(t, gone.ID, "show sets")
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Output, "Error: "), res.Output)
	assert.Contains(t, res.Output, "all 2 nodes failed")
}

func TestTerminalRejectsBadInput(t *testing.T) {
	f := newFixture(t, 0)
	p := f.createProfile(t, `{"name":"Local","hosts":["sim-1"]}`)

	assert.Equal(t, http.StatusBadRequest, f.status(t, http.MethodPost, "/api/terminal/"+p.ID, `{"command":"  "}`))
	assert.Equal(t, http.StatusBadRequest, f.status(t, http.MethodPost, "/api/terminal/"+p.ID, `{}`))
	assert.Equal(t, http.StatusBadRequest, f.status(t, http.MethodPost, "/api/terminal/"+p.ID, `not json`))
	assert.Equal(t, http.StatusNotFound, f.status(t, http.MethodPost, "/api/terminal/nope", `{"command":"status"}`))
	assert.Equal(t, http.StatusMethodNotAllowed, f.status(t, http.MethodGet, "/api/terminal/"+p.ID, ""))
}
