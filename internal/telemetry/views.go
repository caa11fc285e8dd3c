package telemetry

// ClusterView is the full cluster picture served to the UI.
type ClusterView struct {
	ConnectionID string          `json:"connectionId"`
	Nodes        []NodeView      `json:"nodes"`
	Summary      NodeSummary     `json:"summary"`
	Namespaces   []NamespaceView `json:"namespaces"`
}

// NodeView describes one node. A node whose queries failed is still listed,
// with empty fields.
type NodeView struct {
	Name              string            `json:"name"`
	Address           string            `json:"address"`
	Port              int64             `json:"port"`
	Build             string            `json:"build"`
	Edition           string            `json:"edition"`
	ClusterSize       int64             `json:"clusterSize"`
	Uptime            int64             `json:"uptime"`
	ClientConnections int64             `json:"clientConnections"`
	Statistics        map[string]string `json:"statistics"`
}

// NodeSummary is the cluster-wide merge of node identity and statistics.
type NodeSummary struct {
	Build             string `json:"build"`
	Edition           string `json:"edition"`
	Uptime            int64  `json:"uptime"`
	ClientConnections int64  `json:"clientConnections"`
	TotalNodes        int    `json:"totalNodes"`
	RespondingNodes   int    `json:"respondingNodes"`
}

// SetView is one set reconciled across the nodes holding it.
type SetView struct {
	Name            string `json:"name"`
	Namespace       string `json:"namespace"`
	Objects         int64  `json:"objects"`
	Tombstones      int64  `json:"tombstones"`
	MemoryDataBytes int64  `json:"memoryDataBytes"`
	DeviceDataBytes int64  `json:"deviceDataBytes"`
	StopWritesCount int64  `json:"stopWritesCount"`
	NodeCount       int    `json:"nodeCount"`
	TotalNodes      int    `json:"totalNodes"`
}

// NamespaceView is one namespace merged across nodes. Objects and Tombstones
// are estimates of unique records.
type NamespaceView struct {
	Name                string    `json:"name"`
	Objects             int64     `json:"objects"`
	Tombstones          int64     `json:"tombstones"`
	MemoryUsed          int64     `json:"memoryUsed"`
	MemoryTotal         int64     `json:"memoryTotal"`
	MemoryFreePct       int       `json:"memoryFreePct"`
	DeviceUsed          int64     `json:"deviceUsed"`
	DeviceTotal         int64     `json:"deviceTotal"`
	ReplicationFactor   int64     `json:"replicationFactor"`
	StopWrites          bool      `json:"stopWrites"`
	HWMBreached         bool      `json:"hwmBreached"`
	HighWaterMemoryPct  int64     `json:"highWaterMemoryPct"`
	HighWaterDiskPct    int64     `json:"highWaterDiskPct"`
	NsupPeriod          int64     `json:"nsupPeriod"`
	DefaultTTL          int64     `json:"defaultTtl"`
	AllowTTLWithoutNsup bool      `json:"allowTtlWithoutNsup"`
	RespondingNodes     int       `json:"respondingNodes"`
	Sets                []SetView `json:"sets"`
}

// NamespaceMetrics carries the request counters of one namespace.
type NamespaceMetrics struct {
	Namespace    string `json:"namespace"`
	Objects      int64  `json:"objects"`
	MemoryUsed   int64  `json:"memoryUsed"`
	MemoryTotal  int64  `json:"memoryTotal"`
	DeviceUsed   int64  `json:"deviceUsed"`
	DeviceTotal  int64  `json:"deviceTotal"`
	ReadReqs     int64  `json:"readReqs"`
	WriteReqs    int64  `json:"writeReqs"`
	ReadSuccess  int64  `json:"readSuccess"`
	WriteSuccess int64  `json:"writeSuccess"`
}

// MetricsView is a point-in-time metrics snapshot. When the cluster cannot
// be reached Connected is false and every counter is zero.
type MetricsView struct {
	ConnectionID      string             `json:"connectionId"`
	Timestamp         int64              `json:"timestamp"`
	Connected         bool               `json:"connected"`
	Uptime            int64              `json:"uptime"`
	ClientConnections int64              `json:"clientConnections"`
	TotalReadReqs     int64              `json:"totalReadReqs"`
	TotalWriteReqs    int64              `json:"totalWriteReqs"`
	TotalReadSuccess  int64              `json:"totalReadSuccess"`
	TotalWriteSuccess int64              `json:"totalWriteSuccess"`
	Namespaces        []NamespaceMetrics `json:"namespaces"`
}

// Index states.
const (
	IndexReady    = "ready"
	IndexBuilding = "building"
	IndexError    = "error"
)

// IndexView is one secondary index reconciled across nodes.
type IndexView struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Set       string `json:"set"`
	Bin       string `json:"bin"`
	Type      string `json:"type"`
	State     string `json:"state"`
	NodeCount int    `json:"nodeCount"`
}

// UDFModule is one registered UDF.
type UDFModule struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Hash     string `json:"hash"`
}

// ConnectionStatus is the health summary of a connection.
type ConnectionStatus struct {
	Connected      bool   `json:"connected"`
	NodeCount      int    `json:"nodeCount"`
	NamespaceCount int    `json:"namespaceCount"`
	Build          string `json:"build,omitempty"`
	Edition        string `json:"edition,omitempty"`
}
