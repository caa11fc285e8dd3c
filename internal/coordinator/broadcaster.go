package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/clusterscope/internal/info"
)

// ErrNoNodes is returned by QueryAnyNode when the broadcaster has no nodes.
var ErrNoNodes = errors.New("coordinator: no nodes configured")

// DefaultNodeTimeout bounds a single node's answer when no timeout is set.
const DefaultNodeTimeout = 2 * time.Second

// NodeClient sends info commands to one node.
//
// Implementations must be safe for concurrent use. Info returns the node's
// raw answer text, and any failure should wrap one of info.ErrTimeout,
// info.ErrConnRefused or info.ErrProtocol so callers can classify it.
type NodeClient interface {
	// ID names the node in responses, health records and metrics. It must
	// be stable and unique within one cluster.
	ID() string
	Info(ctx context.Context, cmd string) (string, error)
}

// Observer is told about every completed QueryAllNodes round.
//
// ObserveRound runs on the caller's goroutine after the last node has
// answered, with the responses in configuration order and the wall time of
// the whole round. It must not retain or modify responses.
type Observer interface {
	ObserveRound(command string, responses []info.NodeResponse, elapsed time.Duration)
}

// Broadcaster fans info commands out to a fixed set of nodes. The node list is
// immutable after construction; a changed cluster gets a new Broadcaster.
type Broadcaster struct {
	nodes       []NodeClient
	nodeTimeout time.Duration
	maxParallel int
	health      *HealthMonitor
	observer    Observer
	logger      *zap.Logger
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithNodeTimeout bounds each node's answer within a round. The deadline is
// per node, so one slow node costs at most d and never shortens the time
// the others get. Zero or negative disables the bound and leaves only the
// caller's context. The default is DefaultNodeTimeout.
func WithNodeTimeout(d time.Duration) Option {
	return func(b *Broadcaster) { b.nodeTimeout = d }
}

// WithMaxParallel caps concurrent node queries per round. Zero means no cap.
func WithMaxParallel(n int) Option {
	return func(b *Broadcaster) { b.maxParallel = n }
}

// WithHealthMonitor makes QueryAnyNode prefer nodes the monitor has not
// marked unhealthy.
func WithHealthMonitor(h *HealthMonitor) Option {
	return func(b *Broadcaster) { b.health = h }
}

// WithObserver reports every QueryAllNodes round to o. QueryAnyNode is not
// observed. A nil observer is ignored.
func WithObserver(o Observer) Option {
	return func(b *Broadcaster) { b.observer = o }
}

// WithLogger sets the logger for per-node failures, which are logged at
// debug level. The broadcaster names it "broadcaster". Defaults to a no-op
// logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Broadcaster) { b.logger = l }
}

// NewBroadcaster returns a Broadcaster over nodes, kept in the given order.
// The slice is copied, so later changes to it have no effect. Options are
// applied in order; a later option overrides an earlier one.
func NewBroadcaster(nodes []NodeClient, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		nodes:       slices.Clone(nodes),
		nodeTimeout: DefaultNodeTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("broadcaster")
	return b
}

// Nodes returns the configured nodes in configuration order.
func (b *Broadcaster) Nodes() []NodeClient {
	return slices.Clone(b.nodes)
}

// NodeCount is the number of configured nodes, answering or not.
func (b *Broadcaster) NodeCount() int {
	return len(b.nodes)
}

// Health returns the attached monitor, or nil when none was configured.
func (b *Broadcaster) Health() *HealthMonitor {
	return b.health
}

// QueryAllNodes sends cmd to every node concurrently and returns exactly one
// response per node, in configuration order. Each node is bounded by the
// node timeout; a failing node never cancels the others.
func (b *Broadcaster) QueryAllNodes(ctx context.Context, cmd string) []info.NodeResponse {
	start := time.Now()
	responses := make([]info.NodeResponse, len(b.nodes))

	var g errgroup.Group
	if b.maxParallel > 0 {
		g.SetLimit(b.maxParallel)
	}
	for i, node := range b.nodes {
		g.Go(func() error {
			payload, err := b.queryNode(ctx, node, cmd)
			responses[i] = info.NodeResponse{NodeID: node.ID(), Err: err, Payload: payload}
			if err != nil {
				b.logger.Debug("node query failed",
					zap.String("node", node.ID()),
					zap.String("cmd", cmd),
					zap.Stringer("code", info.Classify(err)),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if b.observer != nil {
		b.observer.ObserveRound(cmd, responses, time.Since(start))
	}
	return responses
}

// QueryAnyNode returns the first successful answer, trying nodes in
// configuration order with unhealthy nodes last.
func (b *Broadcaster) QueryAnyNode(ctx context.Context, cmd string) (string, error) {
	if len(b.nodes) == 0 {
		return "", ErrNoNodes
	}

	var lastErr error
	for _, node := range b.preferredOrder() {
		payload, err := b.queryNode(ctx, node, cmd)
		if err == nil {
			return payload, nil
		}
		b.logger.Debug("node query failed, trying next",
			zap.String("node", node.ID()),
			zap.String("cmd", cmd),
			zap.Error(err))
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("info %q: all %d nodes failed: %w", cmd, len(b.nodes), lastErr)
}

func (b *Broadcaster) queryNode(ctx context.Context, node NodeClient, cmd string) (string, error) {
	if b.nodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.nodeTimeout)
		defer cancel()
	}
	return node.Info(ctx, cmd)
}

func (b *Broadcaster) preferredOrder() []NodeClient {
	nodes := slices.Clone(b.nodes)
	if b.health == nil {
		return nodes
	}
	rank := func(n NodeClient) int {
		if b.health.IsUnhealthy(n.ID()) {
			return 1
		}
		return 0
	}
	slices.SortStableFunc(nodes, func(x, y NodeClient) int {
		return rank(x) - rank(y)
	})
	return nodes
}
