package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/info"
)

// Node health states.
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// NodeHealth is the status check history of one node.
type NodeHealth struct {
	LastCheck        time.Time `json:"last_check"`
	LastHealthy      time.Time `json:"last_healthy"`
	NodeID           string    `json:"node_id"`
	Status           string    `json:"status"`
	LastError        string    `json:"last_error,omitempty"`
	ConsecutiveFails int       `json:"consecutive_fails"`
}

// HealthMonitor checks nodes with the "status" info command on an interval
// and marks a node unhealthy after maxFailures consecutive failures.
type HealthMonitor struct {
	nodes          map[string]*NodeHealth
	checkFunc      func(ctx context.Context, node NodeClient) error
	onStatusChange func(nodeID string, healthy bool)
	logger         *zap.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	interval       time.Duration
	timeout        time.Duration
	mu             sync.RWMutex
	wg             sync.WaitGroup
	maxFailures    int
}

// NewHealthMonitor creates a monitor that is not yet running.
func NewHealthMonitor(interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HealthMonitor{
		interval:    interval,
		timeout:     DefaultNodeTimeout,
		maxFailures: 3,
		nodes:       make(map[string]*NodeHealth),
		logger:      logger.Named("health"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetMaxFailures sets how many consecutive failures mark a node unhealthy.
func (h *HealthMonitor) SetMaxFailures(n int) {
	if n > 0 {
		h.maxFailures = n
	}
}

// SetOnStatusChange registers a callback fired on every transition into
// healthy or unhealthy. It runs on the monitor goroutine, outside its lock.
func (h *HealthMonitor) SetOnStatusChange(callback func(nodeID string, healthy bool)) {
	h.onStatusChange = callback
}

// SetCheckFunction replaces the status check, mainly for tests.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(ctx context.Context, node NodeClient) error) {
	h.checkFunc = checkFunc
}

// Start runs the check loop in the background until Stop. nodeProvider is
// consulted each round so that removed nodes are forgotten.
func (h *HealthMonitor) Start(nodeProvider func() []NodeClient) {
	if h.checkFunc == nil {
		h.checkFunc = statusCheck
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		h.logger.Info("health monitor started", zap.Duration("interval", h.interval))
		h.checkAllNodes(nodeProvider())

		for {
			select {
			case <-ticker.C:
				h.checkAllNodes(nodeProvider())
			case <-h.ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit. It is safe to call more
// than once and on a monitor that was never started.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
}

func (h *HealthMonitor) checkAllNodes(nodes []NodeClient) {
	current := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		current[node.ID()] = true
		h.checkNode(node)
	}

	h.mu.Lock()
	for id := range h.nodes {
		if !current[id] {
			delete(h.nodes, id)
			h.logger.Info("node removed from health monitoring", zap.String("node", id))
		}
	}
	h.mu.Unlock()
}

func (h *HealthMonitor) checkNode(node NodeClient) {
	id := node.ID()

	h.mu.Lock()
	health, exists := h.nodes[id]
	if !exists {
		health = &NodeHealth{NodeID: id, Status: StatusUnknown}
		h.nodes[id] = health
	}
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	err := h.checkFunc(ctx, node)
	cancel()

	h.mu.Lock()
	previous := health.Status
	health.LastCheck = time.Now()
	if err != nil {
		health.ConsecutiveFails++
		health.LastError = err.Error()
		h.logger.Debug("status check failed",
			zap.String("node", id),
			zap.Int("attempt", health.ConsecutiveFails),
			zap.Int("max_failures", h.maxFailures),
			zap.Error(err))
		if health.ConsecutiveFails >= h.maxFailures {
			health.Status = StatusUnhealthy
		}
	} else {
		health.Status = StatusHealthy
		health.ConsecutiveFails = 0
		health.LastError = ""
		health.LastHealthy = health.LastCheck
	}
	current := health.Status
	h.mu.Unlock()

	if current == previous || current == StatusUnknown {
		return
	}
	switch {
	case current == StatusUnhealthy:
		h.logger.Warn("node marked unhealthy", zap.String("node", id), zap.Error(err))
	case previous == StatusUnhealthy:
		h.logger.Info("node recovered", zap.String("node", id))
	}
	if h.onStatusChange != nil {
		h.onStatusChange(id, current == StatusHealthy)
	}
}

// statusCheck expects the node to answer "ok" to the status command.
func statusCheck(ctx context.Context, node NodeClient) error {
	answer, err := node.Info(ctx, info.CmdStatus)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(answer), "ok") {
		return fmt.Errorf("%w: status answered %q", info.ErrProtocol, answer)
	}
	return nil
}

// GetNodeHealth returns a copy of one node's health, or nil if unknown.
func (h *HealthMonitor) GetNodeHealth(nodeID string) *NodeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.nodes[nodeID]
	if !exists {
		return nil
	}
	c := *health
	return &c
}

// GetAllNodeHealth returns copies of every tracked node's health.
func (h *HealthMonitor) GetAllNodeHealth() map[string]*NodeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]*NodeHealth, len(h.nodes))
	for id, health := range h.nodes {
		c := *health
		result[id] = &c
	}
	return result
}

// IsHealthy reports whether the last check of nodeID succeeded. Nodes that
// have not been checked yet, or that are not tracked, are not healthy.
func (h *HealthMonitor) IsHealthy(nodeID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.nodes[nodeID]
	return exists && health.Status == StatusHealthy
}

// IsUnhealthy is true only for nodes that have crossed the failure
// threshold; untracked nodes are not unhealthy.
func (h *HealthMonitor) IsUnhealthy(nodeID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.nodes[nodeID]
	return exists && health.Status == StatusUnhealthy
}
