// Package coordinator fans info commands out to the nodes of a cluster and
// keeps track of which nodes are answering.
//
// # Overview
//
// The aggregation engine never talks to nodes itself. It asks a Broadcaster
// for either every node's answer to a command or for any one node's answer,
// and receives plain text in return:
//
//	b := coordinator.NewBroadcaster(nodes,
//		coordinator.WithNodeTimeout(2*time.Second),
//		coordinator.WithObserver(metrics))
//	responses := b.QueryAllNodes(ctx, "sets/test")
//	names, err := b.QueryAnyNode(ctx, "namespaces")
//
// Nothing in this package parses answers. A response is a node ID, the raw
// payload and an error; the info package turns a slice of them into a
// cluster-wide value.
//
// # Architecture
//
//	┌──────────────────────────────────────────────┐
//	│                 API handler                   │
//	└──────────────────────┬───────────────────────┘
//	                       │ Get(connID)
//	┌──────────────────────▼───────────────────────┐
//	│               ClientRegistry                  │
//	│  connID → { Broadcaster, HealthMonitor }      │
//	│  Resolver builds the NodeClient list          │
//	└──────────────────────┬───────────────────────┘
//	                       │
//	┌──────────────────────▼───────────────────────┐
//	│                 Broadcaster                   │
//	│  QueryAllNodes: errgroup, one slot per node   │
//	│  QueryAnyNode:  healthy nodes first           │
//	│  Observer:      one call per round            │
//	└───────┬──────────────┬──────────────┬────────┘
//	        │              │              │  Info(ctx, cmd)
//	   ┌────▼────┐    ┌────▼────┐    ┌────▼────┐
//	   │ node 1  │    │ node 2  │    │ node 3  │
//	   └─────────┘    └─────────┘    └─────────┘
//
// # Core Components
//
// Broadcaster: parallel per-node fan-out
//   - One NodeResponse per configured node, in configuration order
//   - Each node bounded by its own timeout; failures are recorded, not fatal
//   - QueryAnyNode tries healthy nodes first and returns the first success
//   - Rounds are reported to an optional Observer (Prometheus in practice)
//   - WithMaxParallel caps how many nodes are queried at once
//
// HealthMonitor: periodic "status" checks
//   - The first round runs as soon as Start is called
//   - A node is unhealthy after maxFailures consecutive failed checks
//   - One successful check makes it healthy again
//   - Transitions are logged and passed to an optional callback
//   - Nodes that leave the node list are forgotten on the next round
//
// ClientRegistry: one Broadcaster per connection profile
//   - Built lazily on first use through a Resolver
//   - Invalidate drops an entry after its profile changes
//   - Close stops every health monitor on shutdown
//
// # Query Semantics
//
// QueryAllNodes always returns len(Nodes()) responses. Slot i belongs to
// node i whether or not it answered, so callers can zip responses with the
// node list without matching IDs:
//
//	for i, r := range b.QueryAllNodes(ctx, "statistics") {
//		if !r.OK() {
//			continue // node b.Nodes()[i] is down
//		}
//		...
//	}
//
// QueryAnyNode walks the nodes in order and stops at the first answer. With
// a HealthMonitor attached, nodes marked unhealthy are moved to the end of
// the walk but still tried, so a monitor that is behind never makes a live
// cluster look dead. When every node fails, the error of the last node is
// wrapped:
//
//	info "namespaces": all 3 nodes failed: connection refused
//
// # Failure Model
//
// Node failures never surface as errors from QueryAllNodes. They appear as
// NodeResponse.Err, classified into timeout, connection-refused or
// protocol-error, and the aggregation code skips them. QueryAnyNode only
// fails when every node failed, or with ErrNoNodes when there are none.
//
// Cancelling the caller's context ends a round early. QueryAllNodes still
// returns a full slice, with the nodes that had not answered carrying the
// cancellation as their error, and QueryAnyNode stops walking the node list.
//
// # Health Tracking
//
// Each tracked node carries a NodeHealth record:
//
//	unknown ──ok──▶ healthy ──fail × maxFailures──▶ unhealthy
//	   │                ▲                               │
//	   └─fail × max─────┼───────────────────────────────┘
//	                    └──────────────ok───────────────┘
//
// The check is the info "status" command, which must answer "ok". Tests
// replace it with SetCheckFunction. Each check is bounded by
// DefaultNodeTimeout.
//
// # Configuration
//
// RegistryConfig carries the knobs for every broadcaster the registry builds:
//
//	NodeTimeout:    2s   // per-node deadline inside a round, 0 for none
//	HealthInterval: 10s  // 0 disables status checks
//	MaxFailures:    3    // consecutive failures before unhealthy
//	Observer:       nil  // round metrics
//	OnNodeHealth:   nil  // transition callback, e.g. a gauge
//
// # Concurrency
//
// A Broadcaster is immutable after construction and safe for concurrent use.
// HealthMonitor and ClientRegistry guard their maps with mutexes and hand out
// copies of health records. The registry never holds its lock while a
// Resolver runs, so a slow profile lookup only delays callers of that one
// connection.
//
// Every goroutine started here is stopped by Stop or Close, and the package
// tests check for leaks with goleak.
package coordinator
