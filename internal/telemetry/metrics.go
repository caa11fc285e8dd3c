package telemetry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/info"
)

var errNoStatistics = errors.New("no node answered statistics")

// FetchMetrics returns a metrics snapshot for connID. It never fails: an
// unreachable cluster yields a view with Connected set to false.
func (a *Assembler) FetchMetrics(ctx context.Context, connID string) MetricsView {
	view, err := a.fetchMetrics(ctx, connID)
	if err != nil {
		a.logger.Warn("metrics unavailable",
			zap.String("connection", connID),
			zap.Error(err))
		return MetricsView{
			ConnectionID: connID,
			Timestamp:    a.now().UnixMilli(),
			Namespaces:   []NamespaceMetrics{},
		}
	}
	return view
}

func (a *Assembler) fetchMetrics(ctx context.Context, connID string) (MetricsView, error) {
	resps := a.queryAll(ctx, info.CmdStatistics)
	if len(info.Successful(resps)) == 0 {
		return MetricsView{}, errNoStatistics
	}
	stats := info.MergeNodes(resps, info.StatisticsSumKeys, info.StatisticsMinKeys)

	names, err := a.Namespaces(ctx)
	if err != nil {
		return MetricsView{}, err
	}

	view := MetricsView{
		ConnectionID:      connID,
		Timestamp:         a.now().UnixMilli(),
		Connected:         true,
		Uptime:            info.IntField(stats, 0, "uptime"),
		ClientConnections: info.IntField(stats, 0, "client_connections"),
		Namespaces:        make([]NamespaceMetrics, 0, len(names)),
	}
	for _, ns := range names {
		m := a.namespaceMetrics(ctx, ns)
		view.TotalReadReqs += m.ReadReqs
		view.TotalWriteReqs += m.WriteReqs
		view.TotalReadSuccess += m.ReadSuccess
		view.TotalWriteSuccess += m.WriteSuccess
		view.Namespaces = append(view.Namespaces, m)
	}
	return view, nil
}

func (a *Assembler) namespaceMetrics(ctx context.Context, ns string) NamespaceMetrics {
	stats, effRF, _ := a.namespaceStats(ctx, ns)
	readSuccess := info.IntField(stats, 0, "client_read_success")
	writeSuccess := info.IntField(stats, 0, "client_write_success")
	return NamespaceMetrics{
		Namespace:    ns,
		Objects:      info.IntField(stats, 0, "objects") / effRF,
		MemoryUsed:   info.IntField(stats, 0, "memory_used_bytes"),
		MemoryTotal:  info.IntField(stats, 0, "memory-size"),
		DeviceUsed:   info.IntField(stats, 0, "device_used_bytes"),
		DeviceTotal:  info.IntField(stats, 0, "device-total-bytes"),
		ReadReqs:     readSuccess + info.IntField(stats, 0, "client_read_error"),
		WriteReqs:    writeSuccess + info.IntField(stats, 0, "client_write_error"),
		ReadSuccess:  readSuccess,
		WriteSuccess: writeSuccess,
	}
}
