package simnode

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dreamware/clusterscope/internal/info"
)

// Info answers one info command in the node's text framing. It satisfies
// coordinator.NodeClient, so a Node can be broadcast to in-process.
func (n *Node) Info(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch cmd {
	case info.CmdNamespaces:
		return strings.Join(n.Namespaces(), ";"), nil
	case info.CmdStatistics:
		return n.statistics(), nil
	case info.CmdBuild:
		return n.build, nil
	case info.CmdEdition:
		return n.edition, nil
	case info.CmdService:
		return n.service, nil
	case info.CmdStatus:
		return "ok", nil
	case info.CmdNode:
		return n.id, nil
	case info.CmdUDFList:
		return n.udfList(), nil
	}

	name, param := info.SplitCommand(cmd)
	if param == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	ns, err := n.Namespace(param)
	if err != nil {
		return "", err
	}
	switch name + "/" {
	case info.PrefixNamespace:
		return namespaceStats(ns), nil
	case info.PrefixSets:
		return setStats(ns), nil
	case info.PrefixSIndex:
		return n.sindexList(ns.Name()), nil
	case info.PrefixBins:
		return binNames(ns), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
}

type pairs []string

func (p *pairs) add(key string, value any) {
	*p = append(*p, fmt.Sprintf("%s=%v", key, value))
}

func (n *Node) statistics() string {
	var objects, tombstones int64
	for _, name := range n.Namespaces() {
		if ns, err := n.Namespace(name); err == nil {
			u := ns.Usage()
			objects += u.Objects
			tombstones += u.Tombstones
		}
	}

	var p pairs
	p.add("cluster_size", n.clusterSize)
	p.add("uptime", n.Uptime())
	p.add("client_connections", n.clientConnections.Load())
	p.add("objects", objects)
	p.add("tombstones", tombstones)
	return strings.Join(p, ";")
}

func namespaceStats(ns *Namespace) string {
	cfg := ns.Config()
	u := ns.Usage()
	ops := ns.Ops()

	var p pairs
	p.add("objects", u.Objects)
	p.add("tombstones", u.Tombstones)
	p.add("memory_used_bytes", u.MemoryUsed)
	p.add("memory-size", cfg.MemorySize)
	p.add("device_used_bytes", u.DeviceUsed)
	p.add("device-total-bytes", u.DeviceTotal)
	p.add("client_read_success", ops.ReadSuccess)
	p.add("client_read_error", ops.ReadError)
	p.add("client_write_success", ops.WriteSuccess)
	p.add("client_write_error", ops.WriteError)
	p.add("replication-factor", cfg.ReplicationFactor)
	p.add("stop_writes", ns.StopWrites())
	p.add("hwm_breached", ns.HWMBreached())
	p.add("high-water-memory-pct", cfg.HighWaterMemoryPct)
	p.add("high-water-disk-pct", cfg.HighWaterDiskPct)
	p.add("nsup-period", cfg.NsupPeriod)
	p.add("default-ttl", cfg.DefaultTTL)
	p.add("allow-ttl-without-nsup", cfg.AllowTTLWithoutNsup)
	return strings.Join(p, ";")
}

func setStats(ns *Namespace) string {
	device := ns.Config().DeviceSize > 0
	records := make([]string, 0)
	for _, s := range ns.Sets() {
		st := s.Store.Stats()
		var deviceBytes int64
		if device {
			deviceBytes = st.Bytes
		}
		records = append(records, strings.Join([]string{
			"ns=" + ns.Name(),
			"set=" + s.Name,
			"objects=" + strconv.Itoa(st.Keys),
			"tombstones=" + strconv.Itoa(st.Tombstones),
			"memory_data_bytes=" + strconv.FormatInt(st.Bytes, 10),
			"device_data_bytes=" + strconv.FormatInt(deviceBytes, 10),
			"stop-writes-count=" + strconv.FormatUint(s.StopWritesCount(), 10),
		}, ":"))
	}
	return joinRecords(records)
}

func (n *Node) sindexList(namespace string) string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	records := make([]string, 0, len(n.indexes))
	for _, idx := range n.indexes {
		if idx.Namespace != namespace {
			continue
		}
		records = append(records, strings.Join([]string{
			"ns=" + idx.Namespace,
			"indexname=" + idx.Name,
			"set=" + idx.Set,
			"bin=" + idx.Bin,
			"type=" + idx.Type,
			"state=" + idx.State,
		}, ":"))
	}
	return joinRecords(records)
}

func (n *Node) udfList() string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	records := make([]string, 0, len(n.udfs))
	for _, m := range n.udfs {
		records = append(records, "filename="+m.Filename+",hash="+m.Hash+",type="+m.Type)
	}
	return joinRecords(records)
}

// binNames reports the distinct top-level keys of the JSON object records in
// the namespace. Records that are not JSON objects have no bins.
func binNames(ns *Namespace) string {
	seen := make(map[string]struct{})
	for _, s := range ns.Sets() {
		for _, key := range s.Store.List() {
			value, err := s.Store.Get(key)
			if err != nil {
				continue
			}
			var bins map[string]json.RawMessage
			if json.Unmarshal(value, &bins) != nil {
				continue
			}
			for bin := range bins {
				seen[bin] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for bin := range seen {
		names = append(names, bin)
	}
	slices.Sort(names)

	fields := append([]string{
		"bin_names=" + strconv.Itoa(len(names)),
		"bin_names_quota=65535",
	}, names...)
	return strings.Join(fields, ",")
}

// joinRecords terminates every record with ';', matching the server.
func joinRecords(records []string) string {
	if len(records) == 0 {
		return ""
	}
	return strings.Join(records, ";") + ";"
}
