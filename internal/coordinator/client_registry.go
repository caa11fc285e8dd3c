package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// ErrUnknownConnection wraps resolver failures for a connection ID.
var ErrUnknownConnection = errors.New("coordinator: unknown connection")

var errRegistryClosed = errors.New("coordinator: registry closed")

// Resolver returns the nodes of a connection. Errors from the resolver are
// wrapped together with ErrUnknownConnection.
type Resolver func(ctx context.Context, connID string) ([]NodeClient, error)

// RegistryConfig shapes the broadcasters a ClientRegistry builds.
type RegistryConfig struct {
	NodeTimeout time.Duration
	// HealthInterval of zero disables background status checks.
	HealthInterval time.Duration
	MaxFailures    int
	Observer       Observer
	// OnNodeHealth is passed to every health monitor.
	OnNodeHealth func(nodeID string, healthy bool)
}

// registryEntry is one open connection. monitor is nil when status checks
// are disabled.
type registryEntry struct {
	broadcaster *Broadcaster
	monitor     *HealthMonitor
}

// ClientRegistry owns one Broadcaster per connection profile. Entries are
// built on first use and dropped by Invalidate when the profile changes.
type ClientRegistry struct {
	entries map[string]*registryEntry
	resolve Resolver
	cfg     RegistryConfig
	logger  *zap.Logger
	mu      sync.Mutex
	closed  bool
}

// NewClientRegistry returns an empty registry. Nothing is resolved until the
// first Get for a connection. Every broadcaster it builds uses cfg; a nil
// logger is replaced by a no-op logger.
func NewClientRegistry(resolve Resolver, cfg RegistryConfig, logger *zap.Logger) *ClientRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientRegistry{
		entries: make(map[string]*registryEntry),
		resolve: resolve,
		cfg:     cfg,
		logger:  logger.Named("registry"),
	}
}

// Get returns the broadcaster for connID, building it on first use.
//
// The resolver runs without the registry lock held, so a slow profile lookup
// for one connection never delays Get for another. When two callers race on
// the same unopened connection both resolve it, and the first to insert
// wins; the loser's nodes are discarded before any monitor starts.
func (r *ClientRegistry) Get(ctx context.Context, connID string) (*Broadcaster, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errRegistryClosed
	}
	if e, ok := r.entries[connID]; ok {
		r.mu.Unlock()
		return e.broadcaster, nil
	}
	r.mu.Unlock()

	nodes, err := r.resolve(ctx, connID)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownConnection, connID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errRegistryClosed
	}
	if e, ok := r.entries[connID]; ok {
		return e.broadcaster, nil
	}

	e := r.newEntry(connID, nodes)
	r.entries[connID] = e
	if e.monitor != nil {
		e.monitor.Start(e.broadcaster.Nodes)
	}

	r.logger.Info("connection opened",
		zap.String("connection", connID),
		zap.Int("nodes", len(nodes)))
	return e.broadcaster, nil
}

// newEntry wires a broadcaster for nodes, plus a monitor when status checks
// are enabled. Nothing is started.
func (r *ClientRegistry) newEntry(connID string, nodes []NodeClient) *registryEntry {
	logger := r.logger.With(zap.String("connection", connID))
	e := &registryEntry{}
	opts := []Option{
		WithNodeTimeout(r.cfg.NodeTimeout),
		WithObserver(r.cfg.Observer),
		WithLogger(logger),
	}
	if r.cfg.HealthInterval > 0 {
		e.monitor = NewHealthMonitor(r.cfg.HealthInterval, logger)
		e.monitor.SetMaxFailures(r.cfg.MaxFailures)
		e.monitor.SetOnStatusChange(r.cfg.OnNodeHealth)
		opts = append(opts, WithHealthMonitor(e.monitor))
	}
	e.broadcaster = NewBroadcaster(nodes, opts...)
	return e
}

// Invalidate drops the cached broadcaster for connID and stops its monitor.
func (r *ClientRegistry) Invalidate(connID string) {
	r.mu.Lock()
	e, ok := r.entries[connID]
	delete(r.entries, connID)
	r.mu.Unlock()

	if ok {
		e.stop()
		r.logger.Info("connection closed", zap.String("connection", connID))
	}
}

// Connections returns the IDs of the open connections, sorted.
func (r *ClientRegistry) Connections() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close stops every monitor. Later Get calls fail.
func (r *ClientRegistry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.closed = true
	r.mu.Unlock()

	for _, e := range entries {
		e.stop()
	}
}

func (e *registryEntry) stop() {
	if e.monitor != nil {
		e.monitor.Stop()
	}
}
