package simnode

import (
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/slices"

	"github.com/dreamware/clusterscope/internal/storage"
)

// ErrStopWrites is returned by writes to a namespace past its stop-writes
// threshold.
var ErrStopWrites = errors.New("simnode: namespace in stop-writes")

// recordOverhead is the per-record index memory charged to memory_used_bytes.
const recordOverhead = 64

// NamespaceConfig describes one namespace. Zero values take defaults.
type NamespaceConfig struct {
	Name                string `json:"name" yaml:"name"`
	ReplicationFactor   int    `json:"replication_factor" yaml:"replication_factor"`
	MemorySize          int64  `json:"memory_size" yaml:"memory_size"`
	DeviceSize          int64  `json:"device_size" yaml:"device_size"`
	HighWaterMemoryPct  int    `json:"high_water_memory_pct" yaml:"high_water_memory_pct"`
	HighWaterDiskPct    int    `json:"high_water_disk_pct" yaml:"high_water_disk_pct"`
	StopWritesPct       int    `json:"stop_writes_pct" yaml:"stop_writes_pct"`
	DefaultTTL          int64  `json:"default_ttl" yaml:"default_ttl"`
	NsupPeriod          int64  `json:"nsup_period" yaml:"nsup_period"`
	AllowTTLWithoutNsup bool   `json:"allow_ttl_without_nsup" yaml:"allow_ttl_without_nsup"`
}

func (c *NamespaceConfig) applyDefaults() {
	if c.ReplicationFactor <= 0 {
		c.ReplicationFactor = 2
	}
	if c.MemorySize <= 0 {
		c.MemorySize = 1 << 30
	}
	if c.HighWaterMemoryPct <= 0 {
		c.HighWaterMemoryPct = 60
	}
	if c.HighWaterDiskPct <= 0 {
		c.HighWaterDiskPct = 50
	}
	if c.StopWritesPct <= 0 {
		c.StopWritesPct = 90
	}
}

// OperationStats counts client requests against a namespace.
type OperationStats struct {
	ReadSuccess  uint64 `json:"client_read_success"`
	ReadError    uint64 `json:"client_read_error"`
	WriteSuccess uint64 `json:"client_write_success"`
	WriteError   uint64 `json:"client_write_error"`
}

// Set is a named record container within a namespace.
type Set struct {
	Name       string
	Store      storage.Store
	stopWrites atomic.Uint64
}

// StopWritesCount is how many writes to this set were refused.
func (s *Set) StopWritesCount() uint64 {
	return s.stopWrites.Load()
}

// Namespace owns the sets of one namespace on one node.
type Namespace struct {
	cfg   NamespaceConfig
	mu    sync.RWMutex
	sets  map[string]*Set
	order []string
	ops   OperationStats
}

func newNamespace(cfg NamespaceConfig) *Namespace {
	cfg.applyDefaults()
	return &Namespace{cfg: cfg, sets: make(map[string]*Set)}
}

func (ns *Namespace) Name() string { return ns.cfg.Name }

func (ns *Namespace) Config() NamespaceConfig { return ns.cfg }

// Set returns the named set, creating it on first use.
func (ns *Namespace) Set(name string) *Set {
	ns.mu.RLock()
	s, ok := ns.sets[name]
	ns.mu.RUnlock()
	if ok {
		return s
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	if s, ok := ns.sets[name]; ok {
		return s
	}
	s = &Set{Name: name, Store: storage.NewMemoryStore()}
	ns.sets[name] = s
	ns.order = append(ns.order, name)
	return s
}

// Sets returns the sets in creation order.
func (ns *Namespace) Sets() []*Set {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	out := make([]*Set, 0, len(ns.order))
	for _, name := range ns.order {
		out = append(out, ns.sets[name])
	}
	return out
}

// Get reads a record and counts the read as a success or an error.
func (ns *Namespace) Get(set, key string) ([]byte, error) {
	v, err := ns.Set(set).Store.Get(key)
	if err != nil {
		atomic.AddUint64(&ns.ops.ReadError, 1)
		return nil, err
	}
	atomic.AddUint64(&ns.ops.ReadSuccess, 1)
	return v, nil
}

// Put writes a record, creating the set on first use. Writes are refused
// with ErrStopWrites once memory use crosses the stop-writes threshold, and
// the refusal is counted against the set.
func (ns *Namespace) Put(set, key string, value []byte) error {
	s := ns.Set(set)
	if ns.StopWrites() {
		s.stopWrites.Add(1)
		atomic.AddUint64(&ns.ops.WriteError, 1)
		return ErrStopWrites
	}
	if err := s.Store.Put(key, value); err != nil {
		atomic.AddUint64(&ns.ops.WriteError, 1)
		return err
	}
	atomic.AddUint64(&ns.ops.WriteSuccess, 1)
	return nil
}

// Delete removes a record, leaving a tombstone. It counts as a write.
func (ns *Namespace) Delete(set, key string) error {
	if err := ns.Set(set).Store.Delete(key); err != nil {
		atomic.AddUint64(&ns.ops.WriteError, 1)
		return err
	}
	atomic.AddUint64(&ns.ops.WriteSuccess, 1)
	return nil
}

// Ops returns a snapshot of the request counters.
func (ns *Namespace) Ops() OperationStats {
	return OperationStats{
		ReadSuccess:  atomic.LoadUint64(&ns.ops.ReadSuccess),
		ReadError:    atomic.LoadUint64(&ns.ops.ReadError),
		WriteSuccess: atomic.LoadUint64(&ns.ops.WriteSuccess),
		WriteError:   atomic.LoadUint64(&ns.ops.WriteError),
	}
}

// Usage sums storage over all sets.
type Usage struct {
	Objects     int64
	Tombstones  int64
	DataBytes   int64
	MemoryUsed  int64
	DeviceUsed  int64
	DeviceTotal int64
}

// Usage is recomputed from the stores on every call. Each record costs a
// fixed index overhead in memory; data bytes count against the device when
// one is configured and against memory otherwise.
func (ns *Namespace) Usage() Usage {
	var u Usage
	for _, s := range ns.Sets() {
		st := s.Store.Stats()
		u.Objects += int64(st.Keys)
		u.Tombstones += int64(st.Tombstones)
		u.DataBytes += st.Bytes
	}
	u.MemoryUsed = u.Objects * recordOverhead
	if ns.cfg.DeviceSize > 0 {
		u.DeviceUsed = u.DataBytes
		u.DeviceTotal = ns.cfg.DeviceSize
	} else {
		u.MemoryUsed += u.DataBytes
	}
	return u
}

// HWMBreached reports memory use at or above the high water mark.
func (ns *Namespace) HWMBreached() bool {
	return ns.Usage().MemoryUsed*100 >= int64(ns.cfg.HighWaterMemoryPct)*ns.cfg.MemorySize
}

// StopWrites reports memory use at or above the stop-writes threshold.
func (ns *Namespace) StopWrites() bool {
	return ns.Usage().MemoryUsed*100 >= int64(ns.cfg.StopWritesPct)*ns.cfg.MemorySize
}

// Replicas returns the indexes of the nodes holding key: replica j lives on
// node (h+j) mod clusterSize, where h is the FNV-1a hash of key.
func Replicas(key string, replicationFactor, clusterSize int) []int {
	if clusterSize <= 0 {
		return nil
	}
	n := replicationFactor
	if n > clusterSize {
		n = clusterSize
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	base := int(h.Sum32() % uint32(clusterSize))

	out := make([]int, 0, n)
	for j := 0; j < n; j++ {
		out = append(out, (base+j)%clusterSize)
	}
	return out
}

// OwnsKey reports whether node index idx holds a replica of key.
func OwnsKey(key string, idx, replicationFactor, clusterSize int) bool {
	return slices.Contains(Replicas(key, replicationFactor, clusterSize), idx)
}
