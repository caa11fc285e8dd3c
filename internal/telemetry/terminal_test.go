package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/info"
)

// terminalCluster extends threeNodeCluster (n2 down) with the answers the
// terminal commands need.
func terminalCluster() *fakeQuerier {
	f := threeNodeCluster()
	f.answer(info.CmdStatus, "ok\n", "", "ok")
	f.answer(info.CmdNode, "BB9010016AE4202", "", "BB9030016AE4202")
	f.answer(info.CmdUDFList, "  ", "", "")
	f.answer(info.Bins("test"),
		"bin_names=2,bin_names_quota=65535,age,name",
		"",
		"bin_names=2,bin_names_quota=65535,city,name")
	f.answer(info.SIndex("test"),
		"ns=test:indexname=idx_age:set=users:bin=age:type=NUMERIC:state=RW;",
		"",
		"ns=test:indexname=idx_age:set=users:bin=age:type=NUMERIC:state=RW;")
	return f
}

func TestExecute(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"show namespaces", "Namespaces:\n  test"},
		{"  SHOW Namespaces ", "Namespaces:\n  test"},
		{"show sets", "Sets:\n" +
			"  test.orders  objects=150  tombstones=0  (nodes=2)\n" +
			"  test.users  objects=10  tombstones=0  (nodes=1)"},
		{"show bins", "Bins:\n  age\n  city\n  name"},
		{"show indexes", "Indexes:\n  test.idx_age  bin=age  type=numeric  state=ready  (nodes=2)"},
		{"show sindex", "Indexes:\n  test.idx_age  bin=age  type=numeric  state=ready  (nodes=2)"},
		{"status", "ok"},
		{"node", "BB9010016AE4202"},
		{"build", "Aerospike Enterprise Edition 7.0.0.0"},
		{"Statistics", "Statistics:\n" +
			"--- n1 ---\n  client_connections=5\n  cluster_size=3\n  uptime=100\n\n" +
			"--- n2 (error) ---\n\n" +
			"--- n3 ---\n  client_connections=7\n  cluster_size=3\n  uptime=50"},
		// per-node passthrough
		{"bins/test", "--- n1 ---\nbin_names=2,bin_names_quota=65535,age,name\n\n" +
			"--- n2 (error) ---\n\n" +
			"--- n3 ---\nbin_names=2,bin_names_quota=65535,city,name"},
		// single-node passthrough
		{"service", "10.0.0.1:3000"},
		{"udf-list", "(empty response)"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			a := NewAssembler(terminalCluster(), zap.NewNop())
			got, err := a.Execute(context.Background(), tt.command)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecuteEmptyInventories(t *testing.T) {
	f := newFakeQuerier("n1")
	f.answer(info.CmdNamespaces, "test")
	f.answer(info.Namespace("test"), "objects=0;replication-factor=1")
	f.answer(info.Sets("test"), "")
	f.answer(info.Bins("test"), "bin_names=0,bin_names_quota=65535")
	f.answer(info.SIndex("test"), "")
	a := NewAssembler(f, zap.NewNop())

	for cmd, want := range map[string]string{
		"show sets":    "(no sets)",
		"show bins":    "(no bins)",
		"show indexes": "(no indexes)",
	} {
		got, err := a.Execute(context.Background(), cmd)
		require.NoError(t, err, cmd)
		assert.Equal(t, want, got, cmd)
	}

	empty := newFakeQuerier("n1").answer(info.CmdNamespaces, "")
	got, err := NewAssembler(empty, zap.NewNop()).Execute(context.Background(), "show namespaces")
	require.NoError(t, err)
	assert.Equal(t, "(no namespaces)", got)
}

func TestExecuteErrors(t *testing.T) {
	a := NewAssembler(terminalCluster(), zap.NewNop())

	_, err := a.Execute(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = a.Execute(context.Background(), "get-config:context=service")
	assert.ErrorIs(t, err, info.ErrProtocol, "no node answers an unknown command")

	down := terminalCluster()
	for _, n := range down.nodes {
		down.down[n] = true
	}
	a = NewAssembler(down, zap.NewNop())
	for _, cmd := range []string{"show namespaces", "show sets", "show bins", "show indexes", "status", "build"} {
		_, err := a.Execute(context.Background(), cmd)
		assert.ErrorIs(t, err, info.ErrTimeout, cmd)
	}

	got, err := a.Execute(context.Background(), "statistics")
	require.NoError(t, err, "per-node commands report failures inline")
	assert.Equal(t, "Statistics:\n--- n1 (error) ---\n\n--- n2 (error) ---\n\n--- n3 (error) ---", got)
}
