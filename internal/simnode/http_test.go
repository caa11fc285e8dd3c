package simnode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/clusterscope/internal/cluster"
)

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestHandlerRecords(t *testing.T) {
	srv := httptest.NewServer(Handler(newTestNode(t), nil))
	defer srv.Close()

	status, _ := do(t, srv, http.MethodPut, "/ns/test/sets/users/records/u1", `{"name":"ada"}`)
	assert.Equal(t, http.StatusNoContent, status)

	status, body := do(t, srv, http.MethodGet, "/ns/test/sets/users/records/u1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"name":"ada"}`, body)

	status, _ = do(t, srv, http.MethodDelete, "/ns/test/sets/users/records/u1", "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = do(t, srv, http.MethodGet, "/ns/test/sets/users/records/u1", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, srv, http.MethodPut, "/ns/nope/sets/users/records/u1", "x")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandlerInfo(t *testing.T) {
	srv := httptest.NewServer(Handler(newTestNode(t), nil))
	defer srv.Close()

	status, body := do(t, srv, http.MethodGet, "/info?cmd="+url.QueryEscape("namespaces"), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "test;bar", body)

	status, _ = do(t, srv, http.MethodGet, "/info?cmd=bogus", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)

	// The gateway client reads the same endpoint.
	node := cluster.NewHTTPNode(cluster.NodeInfo{ID: "n1", Addr: srv.URL}, srv.Client())
	got, err := node.Info(context.Background(), "status")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestHandlerIndexAndUDF(t *testing.T) {
	n := newTestNode(t)
	srv := httptest.NewServer(Handler(n, nil))
	defer srv.Close()

	status, _ := do(t, srv, http.MethodPut, "/ns/test/sindex/idx_age", `{"set":"users","bin":"age","type":"numeric"}`)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = do(t, srv, http.MethodPut, "/ns/test/sindex/bad", `{`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := do(t, srv, http.MethodPut, "/udfs/agg.lua", "function f() end")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"filename":"agg.lua"`)

	answer, err := n.Info(context.Background(), "sindex/test")
	require.NoError(t, err)
	assert.Contains(t, answer, "indexname=idx_age")
}
