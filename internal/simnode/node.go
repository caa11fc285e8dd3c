package simnode

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrUnknownCommand is returned for info commands the node does not serve.
	ErrUnknownCommand = errors.New("simnode: unknown info command")
	// ErrUnknownNamespace is returned for commands naming a missing namespace.
	ErrUnknownNamespace = errors.New("simnode: unknown namespace")
)

// Config describes a simulated node.
type Config struct {
	ID      string
	Build   string
	Edition string
	// Service is the host:port the node advertises.
	Service     string
	ClusterSize int
	Namespaces  []NamespaceConfig
	// Now is the clock used for uptime; time.Now when nil.
	Now func() time.Time
}

// IndexDef is a secondary index registered on a node.
type IndexDef struct {
	Namespace string `json:"ns"`
	Name      string `json:"name"`
	Set       string `json:"set"`
	Bin       string `json:"bin"`
	// Type is NUMERIC, STRING or GEO2DSPHERE.
	Type string `json:"type"`
	// State is RW, WO or D.
	State string `json:"state"`
}

// UDFModule is a registered user-defined function file.
type UDFModule struct {
	Filename string `json:"filename"`
	Hash     string `json:"hash"`
	Type     string `json:"type"`
}

// Node answers info commands for a set of in-memory namespaces.
type Node struct {
	id          string
	build       string
	edition     string
	service     string
	clusterSize int
	now         func() time.Time
	started     time.Time

	mu         sync.RWMutex
	namespaces map[string]*Namespace
	nsOrder    []string
	indexes    []IndexDef
	udfs       []UDFModule

	clientConnections atomic.Int64
}

// New creates a node with cfg's namespaces.
func New(cfg Config) *Node {
	if cfg.Build == "" {
		cfg.Build = "7.0.0.0"
	}
	if cfg.Edition == "" {
		cfg.Edition = "Aerospike Community Edition"
	}
	if cfg.ClusterSize <= 0 {
		cfg.ClusterSize = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	n := &Node{
		id:          cfg.ID,
		build:       cfg.Build,
		edition:     cfg.Edition,
		service:     cfg.Service,
		clusterSize: cfg.ClusterSize,
		now:         cfg.Now,
		started:     cfg.Now(),
		namespaces:  make(map[string]*Namespace),
	}
	for _, ns := range cfg.Namespaces {
		n.AddNamespace(ns)
	}
	return n
}

func (n *Node) ID() string { return n.id }

// AddNamespace adds or replaces a namespace.
func (n *Node) AddNamespace(cfg NamespaceConfig) *Namespace {
	ns := newNamespace(cfg)

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.namespaces[cfg.Name]; !exists {
		n.nsOrder = append(n.nsOrder, cfg.Name)
	}
	n.namespaces[cfg.Name] = ns
	return ns
}

// Namespace looks up a namespace by name.
func (n *Node) Namespace(name string) (*Namespace, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ns, ok := n.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
	}
	return ns, nil
}

// Namespaces returns the namespace names in the order they were added.
func (n *Node) Namespaces() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]string(nil), n.nsOrder...)
}

// Put writes a record into namespace ns. Unknown namespaces are an error.
func (n *Node) Put(ns, set, key string, value []byte) error {
	space, err := n.Namespace(ns)
	if err != nil {
		return err
	}
	return space.Put(set, key, value)
}

func (n *Node) Get(ns, set, key string) ([]byte, error) {
	space, err := n.Namespace(ns)
	if err != nil {
		return nil, err
	}
	return space.Get(set, key)
}

func (n *Node) Delete(ns, set, key string) error {
	space, err := n.Namespace(ns)
	if err != nil {
		return err
	}
	return space.Delete(set, key)
}

// RegisterIndex adds a secondary index, replacing one with the same
// namespace and name. An empty state means RW.
func (n *Node) RegisterIndex(idx IndexDef) error {
	if _, err := n.Namespace(idx.Namespace); err != nil {
		return err
	}
	if idx.State == "" {
		idx.State = "RW"
	}
	idx.Type = strings.ToUpper(idx.Type)

	n.mu.Lock()
	defer n.mu.Unlock()
	for i, existing := range n.indexes {
		if existing.Namespace == idx.Namespace && existing.Name == idx.Name {
			n.indexes[i] = idx
			return nil
		}
	}
	n.indexes = append(n.indexes, idx)
	return nil
}

// RegisterUDF stores a module's hash; the content itself is not kept.
func (n *Node) RegisterUDF(filename, content string) UDFModule {
	sum := sha1.Sum([]byte(content))
	mod := UDFModule{Filename: filename, Hash: hex.EncodeToString(sum[:]), Type: "LUA"}

	n.mu.Lock()
	defer n.mu.Unlock()
	for i, existing := range n.udfs {
		if existing.Filename == filename {
			n.udfs[i] = mod
			return mod
		}
	}
	n.udfs = append(n.udfs, mod)
	return mod
}

// SetClientConnections sets the reported client connection count.
func (n *Node) SetClientConnections(c int64) {
	n.clientConnections.Store(c)
}

// Uptime is the whole seconds since the node was created.
func (n *Node) Uptime() int64 {
	return int64(n.now().Sub(n.started) / time.Second)
}

// Replicate writes a record to every node holding one of its replicas.
// nodes is the whole cluster in placement order.
func Replicate(nodes []*Node, ns, set, key string, value []byte) error {
	if len(nodes) == 0 {
		return nil
	}
	space, err := nodes[0].Namespace(ns)
	if err != nil {
		return err
	}
	for _, idx := range Replicas(key, space.Config().ReplicationFactor, len(nodes)) {
		if err := nodes[idx].Put(ns, set, key, value); err != nil {
			return fmt.Errorf("replica on %s: %w", nodes[idx].ID(), err)
		}
	}
	return nil
}
