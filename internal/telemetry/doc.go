// Package telemetry assembles the cluster views served by the API from the
// answers of a broadcast Querier.
//
// # Overview
//
// An Assembler runs the info commands it needs, feeds the answers through
// the info package and shapes the result:
//
//	FetchCluster  nodes, a merged summary, namespaces with their sets
//	FetchMetrics  request counters per namespace and for the cluster
//	ListIndexes   secondary indexes of every namespace
//	ListUDFs      registered UDF modules
//	Status        whether the cluster answers, node and namespace counts
//	Execute       one operator command, rendered as text
//
// An Assembler is built per request around the connection's broadcaster:
//
//	a := telemetry.NewAssembler(broadcaster, logger)
//	view, err := a.FetchCluster(ctx, connID)
//
// # Data Flow
//
//	            Querier
//	  QueryAllNodes      QueryAnyNode
//	        │                  │
//	[]info.NodeResponse     string
//	        │                  │
//	  info.MergeNodes    info.ParseTokenList
//	  info.Reconcile     info.ParseSubRecords
//	        │                  │
//	        └──────┬───────────┘
//	               ▼
//	  ClusterView, MetricsView, IndexView ...
//
// Per-node commands (statistics, namespace/<ns>, sets/<ns>, sindex/<ns>) go
// to every node and are merged. Cluster-wide answers (namespaces, udf-list)
// are read from any one node.
//
// # Counting Replicated Records
//
// Every node reports the records it holds, replicas included. Object and
// tombstone counts are therefore divided by the effective replication factor
// of the round, max(1, min(rf, respondingNodes)), where rf is the
// namespace's configured replication-factor. With RF 2 and one of two
// replica holders down the surviving node's count is taken as is, which
// undercounts less than halving it would.
//
// # Failure Handling
//
// Node failures lower the precision of a view but never fail it. The one
// exception is a single-node query such as the namespace list or the UDF
// list: if no node can answer it the cluster is unreachable and FetchCluster,
// ListIndexes and ListUDFs return an error. FetchMetrics and Status degrade
// to a disconnected view instead.
//
// Nodes that failed stay in ClusterView.Nodes with empty fields, so the node
// list always matches the connection profile. Summary.RespondingNodes and
// NamespaceView.RespondingNodes say how many answered.
//
// # Terminal
//
// Execute accepts a small command language for operators:
//
//	show namespaces | show sets | show bins | show indexes
//	status | node | build | statistics
//	<any info command>
//
// The show commands reuse the same reconciliation as the JSON views. Any
// other command is passed through. Per-node commands print one block per
// node, and a failed node prints a "--- <node> (error) ---" block instead
// of failing the command:
//
//	--- 10.0.0.1:3000 ---
//	  client_connections=5
//	  uptime=100
//
//	--- 10.0.0.2:3000 (error) ---
//
// # Concurrency
//
// An Assembler holds no state between calls and may be shared. Every query
// honours the caller's context; the API bounds each request with a round
// timeout on top of the broadcaster's per-node timeout.
package telemetry
