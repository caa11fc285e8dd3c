package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/coordinator"
	"github.com/dreamware/clusterscope/internal/profile"
	"github.com/dreamware/clusterscope/internal/telemetry"
)

// maxBodySize caps a JSON request body.
const maxBodySize = 64 << 10

// profileInput is the body of create and update requests. Fields left out of
// an update keep their stored value.
type profileInput struct {
	Name        *string  `json:"name"`
	Hosts       []string `json:"hosts"`
	Port        *int     `json:"port"`
	ClusterName *string  `json:"clusterName"`
	Color       *string  `json:"color"`
}

func (in profileInput) apply(p *profile.Profile) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Hosts != nil {
		p.Hosts = in.Hosts
	}
	if in.Port != nil {
		p.Port = *in.Port
	}
	if in.ClusterName != nil {
		p.ClusterName = *in.ClusterName
	}
	if in.Color != nil {
		p.Color = *in.Color
	}
}

func decodeProfileInput(w http.ResponseWriter, r *http.Request) (profileInput, error) {
	var in profileInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&in); err != nil {
		return profileInput{}, fmt.Errorf("%w: bad json: %v", errBadRequest, err)
	}
	return in, nil
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProfileInput(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var p profile.Profile
	in.apply(&p)

	created, err := s.profiles.Create(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateConnection(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProfileInput(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id := r.PathValue("id")
	updated, err := s.profiles.Update(r.Context(), id, in.apply)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// hosts may have changed
	s.registry.Invalidate(id)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.profiles.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.registry.Invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnectionHealth(w http.ResponseWriter, r *http.Request) {
	s.serveTelemetry(w, r, func(ctx context.Context, a *telemetry.Assembler) (any, error) {
		return a.Status(ctx), nil
	})
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	s.serveTelemetry(w, r, func(ctx context.Context, a *telemetry.Assembler) (any, error) {
		return a.FetchCluster(ctx, r.PathValue("id"))
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.serveTelemetry(w, r, func(ctx context.Context, a *telemetry.Assembler) (any, error) {
		return a.FetchMetrics(ctx, r.PathValue("id")), nil
	})
}

func (s *Server) handleIndexes(w http.ResponseWriter, r *http.Request) {
	s.serveTelemetry(w, r, func(ctx context.Context, a *telemetry.Assembler) (any, error) {
		return a.ListIndexes(ctx)
	})
}

func (s *Server) handleUDFs(w http.ResponseWriter, r *http.Request) {
	s.serveTelemetry(w, r, func(ctx context.Context, a *telemetry.Assembler) (any, error) {
		return a.ListUDFs(ctx)
	})
}

// handleNodeHealth reports the health monitor's view of every node of the
// connection. It is empty when health checks are disabled.
func (s *Server) handleNodeHealth(w http.ResponseWriter, r *http.Request) {
	b, err := s.connection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	nodes := map[string]*coordinator.NodeHealth{}
	if h := b.Health(); h != nil {
		nodes = h.GetAllNodeHealth()
	}
	writeJSON(w, http.StatusOK, struct {
		Nodes map[string]*coordinator.NodeHealth `json:"nodes"`
	}{Nodes: nodes})
}

type terminalRequest struct {
	Command string `json:"command"`
}

// terminalResult is one executed terminal command. A command that fails is
// still a 200 with Success false and the error as output.
type terminalResult struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	var req terminalRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: bad json: %v", errBadRequest, err))
		return
	}
	command := strings.TrimSpace(req.Command)
	if command == "" {
		s.fail(w, r, fmt.Errorf("%w: missing required field: command", errBadRequest))
		return
	}

	b, err := s.connection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()
	if s.opts.RoundTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RoundTimeout)
		defer cancel()
	}

	result := terminalResult{
		ID:        "cmd-" + uuid.NewString(),
		Command:   command,
		Timestamp: time.Now().UTC(),
		Success:   true,
	}
	result.Output, err = telemetry.NewAssembler(b, s.logger).Execute(ctx, command)
	if err != nil {
		s.logger.Info("terminal command failed",
			zap.String("connection", r.PathValue("id")),
			zap.String("command", command),
			zap.Error(err))
		result.Output = "Error: " + err.Error()
		result.Success = false
	}
	writeJSON(w, http.StatusOK, result)
}
