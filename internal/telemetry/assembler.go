package telemetry

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/cluster"
	"github.com/dreamware/clusterscope/internal/info"
)

// Querier is the broadcast collaborator. *coordinator.Broadcaster
// implements it.
type Querier interface {
	QueryAllNodes(ctx context.Context, cmd string) []info.NodeResponse
	QueryAnyNode(ctx context.Context, cmd string) (string, error)
}

// Assembler shapes broadcast answers into the views served by the API.
// It holds no state between calls.
type Assembler struct {
	q      Querier
	logger *zap.Logger
	now    func() time.Time
}

// NewAssembler returns an Assembler over q. A nil logger disables logging.
func NewAssembler(q Querier, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{q: q, logger: logger.Named("telemetry"), now: time.Now}
}

// Namespaces lists the cluster's namespaces from any one node. This is the
// only query whose failure is reported as an error: without it the cluster is
// unreachable.
func (a *Assembler) Namespaces(ctx context.Context) ([]string, error) {
	raw, err := a.q.QueryAnyNode(ctx, info.CmdNamespaces)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	return info.ParseTokenList(raw, ""), nil
}

// FetchCluster builds the full cluster view for connID.
func (a *Assembler) FetchCluster(ctx context.Context, connID string) (ClusterView, error) {
	stats := a.queryAll(ctx, info.CmdStatistics)
	builds := a.queryAll(ctx, info.CmdBuild)
	editions := a.queryAll(ctx, info.CmdEdition)
	services := a.queryAll(ctx, info.CmdService)

	names, err := a.Namespaces(ctx)
	if err != nil {
		return ClusterView{}, err
	}

	view := ClusterView{
		ConnectionID: connID,
		Nodes:        nodeViews(stats, builds, editions, services),
		Summary:      summarize(stats, builds, editions),
		Namespaces:   make([]NamespaceView, 0, len(names)),
	}
	for _, ns := range names {
		view.Namespaces = append(view.Namespaces, a.namespace(ctx, ns, len(stats)))
	}
	return view, nil
}

func nodeViews(stats, builds, editions, services []info.NodeResponse) []NodeView {
	build := payloadsByNode(builds)
	edition := payloadsByNode(editions)
	service := payloadsByNode(services)

	nodes := make([]NodeView, 0, len(stats))
	for _, r := range stats {
		fields := map[string]string{}
		if r.OK() {
			fields = info.ParseFlatPairs(r.Payload, "")
		}
		addr, port := splitService(service[r.NodeID])
		nodes = append(nodes, NodeView{
			Name:              r.NodeID,
			Address:           addr,
			Port:              port,
			Build:             build[r.NodeID],
			Edition:           edition[r.NodeID],
			ClusterSize:       info.IntField(fields, 1, "cluster_size"),
			Uptime:            info.IntField(fields, 0, "uptime"),
			ClientConnections: info.IntField(fields, 0, "client_connections"),
			Statistics:        fields,
		})
	}
	return nodes
}

func summarize(stats, builds, editions []info.NodeResponse) NodeSummary {
	merged := info.MergeNodes(stats, info.StatisticsSumKeys, info.StatisticsMinKeys)
	return NodeSummary{
		Build:             firstPayload(builds),
		Edition:           firstPayload(editions),
		Uptime:            info.IntField(merged, 0, "uptime"),
		ClientConnections: info.IntField(merged, 0, "client_connections"),
		TotalNodes:        len(stats),
		RespondingNodes:   len(info.Successful(stats)),
	}
}

// namespaceStats merges one namespace across nodes and returns the merged
// fields with the effective replication factor of the round.
func (a *Assembler) namespaceStats(ctx context.Context, ns string) (map[string]string, int64, int) {
	resps := a.queryAll(ctx, info.Namespace(ns))
	responding := len(info.Successful(resps))
	merged := info.MergeNodes(resps, info.NamespaceSumKeys, nil)
	rf := info.IntField(merged, 1, "replication-factor")
	return merged, int64(info.EffectiveReplicationFactor(int(rf), responding)), responding
}

func (a *Assembler) namespace(ctx context.Context, ns string, totalNodes int) NamespaceView {
	stats, effRF, responding := a.namespaceStats(ctx, ns)
	rf := info.IntField(stats, 1, "replication-factor")

	view := NamespaceView{
		Name:                ns,
		Objects:             info.IntField(stats, 0, "objects") / effRF,
		Tombstones:          info.IntField(stats, 0, "tombstones") / effRF,
		MemoryUsed:          info.IntField(stats, 0, "memory_used_bytes"),
		MemoryTotal:         info.IntField(stats, 0, "memory-size"),
		DeviceUsed:          info.IntField(stats, 0, "device_used_bytes"),
		DeviceTotal:         info.IntField(stats, 0, "device-total-bytes"),
		ReplicationFactor:   rf,
		StopWrites:          info.BoolField(stats, "stop_writes"),
		HWMBreached:         info.BoolField(stats, "hwm_breached"),
		HighWaterMemoryPct:  info.IntField(stats, 0, "high-water-memory-pct"),
		HighWaterDiskPct:    info.IntField(stats, 0, "high-water-disk-pct"),
		NsupPeriod:          info.IntField(stats, 0, "nsup-period"),
		DefaultTTL:          info.IntField(stats, 0, "default-ttl"),
		AllowTTLWithoutNsup: info.BoolField(stats, "allow-ttl-without-nsup"),
		RespondingNodes:     responding,
	}
	view.MemoryFreePct = freePct(view.MemoryUsed, view.MemoryTotal)

	sets := info.ReconcileNamedGroups(a.queryAll(ctx, info.Sets(ns)), int(rf))
	view.Sets = make([]SetView, 0, len(sets))
	for _, s := range sets {
		view.Sets = append(view.Sets, SetView{
			Name:            s.Name,
			Namespace:       ns,
			Objects:         s.Int("objects"),
			Tombstones:      s.Int("tombstones"),
			MemoryDataBytes: s.Int("memory_data_bytes"),
			DeviceDataBytes: s.Int("device_data_bytes"),
			StopWritesCount: s.Int("stop-writes-count"),
			NodeCount:       s.RespondingNodes,
			TotalNodes:      totalNodes,
		})
	}
	return view
}

// queryAll broadcasts cmd and logs which nodes were left out of the round.
func (a *Assembler) queryAll(ctx context.Context, cmd string) []info.NodeResponse {
	resps := a.q.QueryAllNodes(ctx, cmd)
	responding := 0
	for _, r := range resps {
		if r.OK() {
			responding++
			continue
		}
		a.logger.Debug("node excluded from aggregation",
			zap.String("node", r.NodeID),
			zap.String("cmd", cmd),
			zap.Stringer("code", r.Code()),
			zap.Error(r.Err))
	}
	if responding == 0 {
		a.logger.Warn("no node answered",
			zap.String("cmd", cmd),
			zap.Int("nodes", len(resps)))
	}
	return resps
}

func freePct(used, total int64) int {
	if total <= 0 {
		return 0
	}
	return int((1 - float64(used)/float64(total)) * 100)
}

func payloadsByNode(resps []info.NodeResponse) map[string]string {
	out := make(map[string]string, len(resps))
	for _, r := range resps {
		if r.OK() {
			out[r.NodeID] = strings.TrimSpace(r.Payload)
		}
	}
	return out
}

func firstPayload(resps []info.NodeResponse) string {
	for _, r := range resps {
		if r.OK() {
			return strings.TrimSpace(r.Payload)
		}
	}
	return ""
}

// splitService parses a "host:port" service answer. Only the first address is
// used when a node advertises several.
func splitService(service string) (string, int64) {
	first, _, _ := strings.Cut(strings.TrimSpace(service), ";")
	if first == "" {
		return "", cluster.DefaultInfoPort
	}
	host, port, err := net.SplitHostPort(first)
	if err != nil {
		return first, cluster.DefaultInfoPort
	}
	return host, info.ToInt(port, cluster.DefaultInfoPort)
}
