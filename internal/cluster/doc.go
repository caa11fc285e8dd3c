// Package cluster is the node transport for clusterscope: it reaches each
// database node through an HTTP info gateway and returns the node's raw
// info-protocol text.
//
// # Overview
//
// Every node exposes a single read-only endpoint:
//
//	GET /info?cmd=<command>
//
// The response body is the info answer exactly as the node produced it, for
// example "ns=test:objects=10;ns=bar:objects=3" for sets/test. The package
// does not parse answers; that is left to the info package.
//
// # Core Components
//
// NodeInfo: identity and gateway base URL of one node
//   - ID is host:port, used to key responses and health state
//   - NewNodeInfo accepts bare hosts or full URLs
//
// HTTPNode: a NodeClient implementation over NodeInfo
//   - Info(ctx, cmd) issues one info command
//   - Deadlines come from the caller's context
//
// FetchInfo: the single request path used by HTTPNode
//   - Non-200 answers become info.ErrProtocol
//   - Dial refusals become info.ErrConnRefused
//   - Deadlines and network timeouts become info.ErrTimeout
//
// GetJSON and PutJSON are small helpers for the JSON surfaces that sit next
// to the info gateway (record writes on simulated nodes, the admin API).
//
// # Addressing
//
// Profiles store hosts as operators type them. NewNodeInfo turns each into a
// gateway base URL and a stable ID:
//
//	NewNodeInfo("10.0.0.1", 3000)               ID 10.0.0.1:3000     Addr http://10.0.0.1:3000
//	NewNodeInfo("::1", 3100)                    ID [::1]:3100        Addr http://[::1]:3100
//	NewNodeInfo("http://127.0.0.1:8081/", 0)    ID 127.0.0.1:8081    Addr http://127.0.0.1:8081
//
// A port of zero or less means DefaultInfoPort. Hosts that already carry a
// scheme keep their own port and path.
//
// # Answer Size
//
// An info answer is read in full before it is returned, up to 8 MiB. An
// answer above the cap fails with info.ErrProtocol instead of being cut
// short, because a truncated sub-record list would parse cleanly and
// silently undercount.
//
// # Error Classification
//
// The broadcast layer relies on every transport failure wrapping exactly one
// of the three info sentinels, so callers can use errors.Is or info.Classify:
//
//	_, err := node.Info(ctx, "statistics")
//	switch info.Classify(err) {
//	case info.CodeTimeout:
//	case info.CodeConnRefused:
//	case info.CodeProtocol:
//	}
//
// # Concurrency
//
// HTTPNode is immutable after construction and safe for concurrent use; the
// underlying http.Client pools connections per gateway.
package cluster
