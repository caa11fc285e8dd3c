package telemetry

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/clusterscope/internal/info"
)

func TestListIndexes(t *testing.T) {
	f := newFakeQuerier("n1", "n2")
	f.answer(info.CmdNamespaces, "test;bar", "test;bar")
	f.answer(info.SIndex("test"),
		"ns=test:indexname=idx_age:set=users:bin=age:type=NUMERIC:state=WO;"+
			"ns=test:indexname=idx_geo:set=places:bin=loc:type=GEO2DSPHERE:state=RW",
		"ns=test:index_name=idx_age:set_name=users:bin_name=age:bin_type=numeric:state=RW")
	f.answer(info.SIndex("bar"), "indexname=idx_x:bin=x:type=blob:state=??", "")

	got, err := NewAssembler(f, nil).ListIndexes(context.Background())
	require.NoError(t, err)

	want := []IndexView{
		{Name: "idx_age", Namespace: "test", Set: "users", Bin: "age", Type: "numeric", State: IndexBuilding, NodeCount: 2},
		{Name: "idx_geo", Namespace: "test", Set: "places", Bin: "loc", Type: "geo2dsphere", State: IndexReady, NodeCount: 1},
		{Name: "idx_x", Namespace: "bar", Bin: "x", Type: "string", State: IndexReady, NodeCount: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListIndexes mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexViewStates(t *testing.T) {
	for raw, want := range map[string]string{"RW": IndexReady, "WO": IndexBuilding, "D": IndexError, "": IndexReady} {
		rec := info.AggregatedRecord{Name: "i", Attributes: map[string]string{"state": raw}}
		assert.Equal(t, want, indexView("ns", rec).State, raw)
	}
}

func TestListIndexesUnreachable(t *testing.T) {
	f := newFakeQuerier("n1")
	f.down["n1"] = true

	_, err := NewAssembler(f, nil).ListIndexes(context.Background())
	assert.ErrorIs(t, err, info.ErrTimeout)
}

func TestListUDFs(t *testing.T) {
	f := newFakeQuerier("n1", "n2")
	f.down["n1"] = true
	f.answer(info.CmdUDFList, "", "filename=a.lua,hash=abc,type=lua;filename=b.lua,content_hash=def;")

	got, err := NewAssembler(f, nil).ListUDFs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []UDFModule{
		{Filename: "a.lua", Type: "LUA", Hash: "abc"},
		{Filename: "b.lua", Type: "LUA", Hash: "def"},
	}, got)

	f.down["n2"] = true
	_, err = NewAssembler(f, nil).ListUDFs(context.Background())
	assert.Error(t, err)
}

func TestListUDFsEmpty(t *testing.T) {
	f := newFakeQuerier("n1")
	f.answer(info.CmdUDFList, "")

	got, err := NewAssembler(f, nil).ListUDFs(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStatus(t *testing.T) {
	f := newFakeQuerier("n1", "n2", "n3")
	f.down["n2"] = true
	f.answer(info.CmdNamespaces, "test;bar", "", "test;bar")
	f.answer(info.CmdStatus, "ok", "", "ok\n")
	f.answer(info.CmdBuild, "7.0.0.0", "", "7.0.0.0")
	f.answer(info.CmdEdition, "Aerospike Community Edition", "", "Aerospike Community Edition")

	st := NewAssembler(f, nil).Status(context.Background())
	assert.Equal(t, ConnectionStatus{
		Connected:      true,
		NodeCount:      2,
		NamespaceCount: 2,
		Build:          "7.0.0.0",
		Edition:        "Aerospike Community Edition",
	}, st)
}

func TestStatusDisconnected(t *testing.T) {
	f := newFakeQuerier("n1")
	f.down["n1"] = true

	assert.Equal(t, ConnectionStatus{}, NewAssembler(f, nil).Status(context.Background()))
}
