package simnode

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/storage"
)

// maxRecordSize caps a record body accepted over HTTP.
const maxRecordSize = 1 << 20

// Handler exposes the node over HTTP:
//
//	GET    /info?cmd=<command>                   info answer as text/plain
//	GET    /health                               liveness
//	GET    /ns/{ns}/sets/{set}/records/{key}     read a record
//	PUT    /ns/{ns}/sets/{set}/records/{key}     write a record (raw body)
//	DELETE /ns/{ns}/sets/{set}/records/{key}     delete a record
//	PUT    /ns/{ns}/sindex/{name}                register a secondary index
//	PUT    /udfs/{filename}                      register a UDF module
func Handler(n *Node, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{node: n, logger: logger.Named("http")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /info", h.handleInfo)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ns/{ns}/sets/{set}/records/{key}", h.handleGet)
	mux.HandleFunc("PUT /ns/{ns}/sets/{set}/records/{key}", h.handlePut)
	mux.HandleFunc("DELETE /ns/{ns}/sets/{set}/records/{key}", h.handleDelete)
	mux.HandleFunc("PUT /ns/{ns}/sindex/{name}", h.handleIndex)
	mux.HandleFunc("PUT /udfs/{filename}", h.handleUDF)
	return mux
}

type handler struct {
	node   *Node
	logger *zap.Logger
}

func (h *handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	cmd := r.URL.Query().Get("cmd")
	answer, err := h.node.Info(r.Context(), cmd)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, answer); err != nil {
		h.logger.Debug("write info answer", zap.String("cmd", cmd), zap.Error(err))
	}
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "node_id": h.node.ID()})
}

func (h *handler) handleGet(w http.ResponseWriter, r *http.Request) {
	value, err := h.node.Get(r.PathValue("ns"), r.PathValue("set"), r.PathValue("key"))
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(value)
}

func (h *handler) handlePut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if err := h.node.Put(r.PathValue("ns"), r.PathValue("set"), r.PathValue("key"), body); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.node.Delete(r.PathValue("ns"), r.PathValue("set"), r.PathValue("key")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	var idx IndexDef
	if err := json.NewDecoder(r.Body).Decode(&idx); err != nil {
		http.Error(w, "invalid index definition: "+err.Error(), http.StatusBadRequest)
		return
	}
	idx.Namespace = r.PathValue("ns")
	idx.Name = r.PathValue("name")
	if err := h.node.RegisterIndex(idx); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleUDF(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.node.RegisterUDF(r.PathValue("filename"), string(body)))
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrUnknownCommand), errors.Is(err, ErrUnknownNamespace):
		status = http.StatusBadRequest
	case errors.Is(err, ErrStopWrites):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
