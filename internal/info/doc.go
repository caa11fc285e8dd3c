// Package info turns the text responses of the cluster info protocol into a
// single cluster-wide view.
//
// # Overview
//
// Every node answers an info command with a short line of delimited text.
// The same separators mean different things depending on the command, so the
// package exposes one parser per framing instead of a single guessing parser:
//
//	ParseFlatPairs   "cluster_size=3;uptime=120"         -> map
//	ParseTokenList   "test;bar"                           -> []string
//	ParseSubRecords  "set=a:objects=10;set=b:objects=4"   -> []map
//
// Parse dispatches on a Framing value and is the only function in the package
// that returns an error: asking for a framing that does not exist is a caller
// bug.
//
// # Commands
//
// The command vocabulary is fixed and small. Plain tokens ask about the node
// or the cluster; parameterized commands take a namespace after a slash:
//
//	command          framing       answered by
//	namespaces       token list    any node
//	udf-list         sub-records   any node (record ";", field ",")
//	status, node     plain text    any node
//	build, edition   plain text    every node
//	service          plain text    every node
//	statistics       flat pairs    every node
//	namespace/<ns>   flat pairs    every node
//	sets/<ns>        sub-records   every node
//	sindex/<ns>      sub-records   every node
//	bins/<ns>        flat pairs    every node (separator ",")
//
// IsPerNodeCommand reports the commands whose answers are node-local and
// must be merged, and SplitCommand separates a command from its parameter.
// The builders Namespace, Sets, SIndex and Bins produce the parameterized
// forms.
//
// # Aggregation
//
// A broadcast query yields one NodeResponse per node. Any of them may carry
// an error (timeout, refused connection, malformed reply); failed responses
// are skipped, never propagated. Two reducers combine the rest:
//
//   - MergeNodes folds flat-pair payloads into one map. Each key follows a
//     MergePolicy: Sum for additive counters, Min for bounded per-node values
//     such as uptime, First for everything else (build, edition, static
//     configuration), where the first node that reported the key wins.
//
//   - Reconcile groups named sub-records (sets, secondary indexes) from every
//     node by name. Counters are summed and divided by the effective
//     replication factor, sizes are summed, marks keep the maximum and
//     attributes keep the first value seen.
//
// # Effective replication factor
//
// Each record is stored on RF nodes, so summing per-node object counts
// overcounts by RF. When some replica holders do not answer, dividing by the
// configured RF undercounts instead. The divisor is therefore
//
//	max(1, min(configuredRF, respondingNodes))
//
// computed per group on every call, because node availability changes
// between calls.
//
// # Coercion
//
// ToInt never truncates: "3.14" is invalid and yields the default. ToBool is
// true only for the literal token "true" in any case; "1" and "yes" are false.
//
// # Concurrency
//
// Everything here is a pure function of its input slice. There is no shared
// state, no I/O and nothing to lock.
package info
