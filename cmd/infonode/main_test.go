package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/info"
)

func TestBuildNodeValidation(t *testing.T) {
	_, err := buildNode(options{clusterSize: 1})
	assert.ErrorContains(t, err, "node id is required")

	_, err = buildNode(options{id: "n", index: 2, clusterSize: 2})
	assert.ErrorContains(t, err, "outside cluster")

	_, err = buildNode(options{id: "n", clusterSize: 1, namespacesFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "failed to read namespaces")
}

func TestBuildNodeSeedsItsShare(t *testing.T) {
	ctx := context.Background()
	var total int64
	for idx := 0; idx < 3; idx++ {
		node, err := buildNode(options{id: "n", index: idx, clusterSize: 3, seed: 30})
		require.NoError(t, err)

		raw, err := node.Info(ctx, info.Namespace("test"))
		require.NoError(t, err)
		fields := info.ParseFlatPairs(raw, "")
		total += info.IntField(fields, 0, "objects")
	}
	assert.Equal(t, int64(60), total, "every record lands on replication-factor nodes")
}

func TestLoadNamespaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: cache
  replication_factor: 1
  memory_size: 1048576
- name: users
  replication_factor: 3
  default_ttl: 3600
`), 0o644))

	namespaces, err := loadNamespaces(path)
	require.NoError(t, err)
	require.Len(t, namespaces, 2)
	assert.Equal(t, "cache", namespaces[0].Name)
	assert.Equal(t, int64(1048576), namespaces[0].MemorySize)
	assert.Equal(t, 3, namespaces[1].ReplicationFactor)
	assert.Equal(t, int64(3600), namespaces[1].DefaultTTL)

	node, err := buildNode(options{id: "n", clusterSize: 1, namespacesFile: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"cache", "users"}, node.Namespaces())

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]"), 0o644))
	_, err = loadNamespaces(empty)
	assert.ErrorContains(t, err, "defines no namespaces")

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("- replication_factor: 2\n"), 0o644))
	_, err = loadNamespaces(unnamed)
	assert.ErrorContains(t, err, "has no name")
}

func TestAdvertised(t *testing.T) {
	assert.Equal(t, "10.0.0.5:3000", advertised("10.0.0.5:3000", ":3001"))
	assert.Equal(t, "127.0.0.1:3001", advertised("", ":3001"))
	assert.Equal(t, "0.0.0.0:3001", advertised("", "0.0.0.0:3001"))
	assert.Equal(t, "garbage", advertised("", "garbage"))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	node, err := buildNode(options{id: "n", clusterSize: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, node, "127.0.0.1:0", zap.NewNop()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunReportsListenError(t *testing.T) {
	node, err := buildNode(options{id: "n", clusterSize: 1})
	require.NoError(t, err)

	err = run(context.Background(), node, "not-an-address", zap.NewNop())
	assert.ErrorContains(t, err, "listen")
}

func TestRootCmdRequiresID(t *testing.T) {
	t.Setenv("NODE_ID", "")
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--log-level", "error"})
	assert.ErrorContains(t, cmd.Execute(), "node id is required")
}
