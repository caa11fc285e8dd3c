// Package simnode simulates a database node that speaks the info protocol.
//
// A Node owns namespaces, each namespace owns sets, and each set keeps its
// records in a storage.MemoryStore. The node answers info commands from this
// live state in the exact text framing a real server uses, so the whole
// aggregation path can run against it:
//
//	namespaces          test;bar
//	statistics          cluster_size=3;uptime=42;client_connections=7;...
//	namespace/test      objects=120;memory_used_bytes=...;replication-factor=2;...
//	sets/test           ns=test:set=users:objects=40:tombstones=1:...;
//	sindex/test         ns=test:indexname=idx_age:set=users:bin=age:type=NUMERIC:state=RW;
//	udf-list            filename=a.lua,hash=...,type=LUA;
//
// Counts are node-local: a record replicated to two nodes is reported by
// both, which is what the aggregation code divides out.
//
// # Replica Placement
//
// Replicas places a key on node (h+j) mod clusterSize for j below the
// replication factor, with h the FNV-1a hash of the key. Replicate writes a
// record to exactly those nodes, which lets tests build a cluster whose true
// unique object count is known.
//
// # Namespace Accounting
//
// A namespace reports what a real server would derive from its storage:
//
//	objects, tombstones    summed over the set stores
//	memory_used_bytes      a fixed index overhead per record, plus the data
//	                       bytes when the namespace has no device
//	device_used_bytes      the data bytes when a device size is configured
//	stop_writes            memory use at or above stop_writes_pct
//	hwm_breached           memory use at or above high-water-memory-pct
//
// Once stop_writes is reached further writes fail with ErrStopWrites and are
// counted both as write errors and in the set's stop-writes-count.
//
// Reads and writes through Node or Namespace update the client_read_* and
// client_write_* counters atomically, so load generated through the HTTP
// surface shows up in the metrics view.
//
// # HTTP
//
// Handler serves the info gateway plus the endpoints used to load data:
//
//	GET    /info?cmd=<command>                 raw info answer, 400 on unknown
//	GET    /health                             liveness
//	GET    /ns/{ns}/sets/{set}/records/{key}   read a record
//	PUT    /ns/{ns}/sets/{set}/records/{key}   write a record
//	DELETE /ns/{ns}/sets/{set}/records/{key}   delete, leaving a tombstone
//	PUT    /ns/{ns}/sindex/{name}              register a secondary index
//	PUT    /udfs/{filename}                    register a UDF module
//
// cmd/infonode runs it as a standalone process, one per simulated node.
//
// # Concurrency
//
// A Node is safe for concurrent use. Its namespace and index tables are
// guarded by a read-write mutex, set stores lock themselves, and counters are
// atomics, so Info never blocks writers for longer than a table lookup.
package simnode
