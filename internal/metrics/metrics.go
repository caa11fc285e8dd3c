// Package metrics exports broadcast and node health statistics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamware/clusterscope/internal/info"
)

// Broadcast records every info round issued by a broadcaster.
type Broadcast struct {
	rounds       *prometheus.CounterVec
	nodeFailures *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	responding   *prometheus.GaugeVec
	nodeHealthy  *prometheus.GaugeVec
}

// NewBroadcast creates the collectors and registers them with reg.
func NewBroadcast(reg prometheus.Registerer) *Broadcast {
	b := &Broadcast{
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterscope_info_rounds_total",
			Help: "Info broadcast rounds issued, by command name.",
		}, []string{"command"}),
		nodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterscope_info_node_failures_total",
			Help: "Per-node info failures, by command name and failure class.",
		}, []string{"command", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clusterscope_info_round_duration_seconds",
			Help:    "Wall time of a broadcast round.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"command"}),
		responding: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clusterscope_info_responding_nodes",
			Help: "Nodes that answered the last round of a command.",
		}, []string{"command"}),
		nodeHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clusterscope_node_healthy",
			Help: "1 when the node answers status checks, 0 otherwise.",
		}, []string{"node"}),
	}
	reg.MustRegister(b.rounds, b.nodeFailures, b.duration, b.responding, b.nodeHealthy)
	return b
}

// ObserveRound records one completed broadcast. Parameterized commands are
// labeled by their name only so that namespaces do not multiply series.
func (b *Broadcast) ObserveRound(command string, responses []info.NodeResponse, elapsed time.Duration) {
	name, _ := info.SplitCommand(command)
	b.rounds.WithLabelValues(name).Inc()
	b.duration.WithLabelValues(name).Observe(elapsed.Seconds())

	ok := 0
	for _, r := range responses {
		if r.OK() {
			ok++
			continue
		}
		b.nodeFailures.WithLabelValues(name, r.Code().String()).Inc()
	}
	b.responding.WithLabelValues(name).Set(float64(ok))
}

// SetNodeHealth updates the health gauge for one node.
func (b *Broadcast) SetNodeHealth(nodeID string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	b.nodeHealthy.WithLabelValues(nodeID).Set(v)
}
