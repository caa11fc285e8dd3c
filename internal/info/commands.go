package info

import "strings"

// Info command names.
const (
	CmdNamespaces = "namespaces"
	CmdStatistics = "statistics"
	CmdBuild      = "build"
	CmdEdition    = "edition"
	CmdService    = "service"
	CmdStatus     = "status"
	CmdNode       = "node"
	CmdUDFList    = "udf-list"
)

// Parameterized command prefixes.
const (
	PrefixNamespace = "namespace/"
	PrefixSets      = "sets/"
	PrefixSIndex    = "sindex/"
	PrefixBins      = "bins/"
)

// Command builders for the parameterized commands.
func Namespace(ns string) string { return PrefixNamespace + ns }
func Sets(ns string) string      { return PrefixSets + ns }
func SIndex(ns string) string    { return PrefixSIndex + ns }
func Bins(ns string) string      { return PrefixBins + ns }

// SplitCommand splits "prefix/param" into its command and parameter. A plain
// token has an empty parameter.
func SplitCommand(cmd string) (name, param string) {
	name, param, _ = strings.Cut(cmd, "/")
	return name, param
}

// IsPerNodeCommand reports whether cmd returns node-local data that must be
// aggregated across the cluster rather than read from any single node.
func IsPerNodeCommand(cmd string) bool {
	if cmd == CmdStatistics {
		return true
	}
	for _, p := range []string{PrefixSets, PrefixBins, PrefixNamespace} {
		if strings.HasPrefix(cmd, p) {
			return true
		}
	}
	return false
}

// NamespaceSumKeys are the namespace statistics that are additive across nodes.
var NamespaceSumKeys = Keys(
	"objects",
	"tombstones",
	"memory_used_bytes",
	"memory-size",
	"device_used_bytes",
	"device-total-bytes",
	"client_read_success",
	"client_read_error",
	"client_write_success",
	"client_write_error",
)

// StatisticsSumKeys and StatisticsMinKeys classify node "statistics" fields.
var (
	StatisticsSumKeys = Keys("client_connections")
	StatisticsMinKeys = Keys("uptime")
)
