// Package storage holds the records of a simulated node.
//
// # Overview
//
// A simulated node keeps every set of every namespace in its own Store. The
// store is deliberately small: a node only needs to answer how many records
// a set holds, how many were deleted and how many bytes the live values
// take, and to serve the records back to the tools that loaded them.
//
// MemoryStore is a mutex-guarded map with two additions over a plain cache:
// deletes leave tombstones, and the byte size of live values is tracked
// incrementally. Both figures feed the "tombstones" and "memory_data_bytes"
// fields a node reports in its sets/<ns> info answer.
//
//	s := storage.NewMemoryStore()
//	_ = s.Put("user:1", []byte(`{"name":"ada"}`))
//	_ = s.Delete("user:1")
//	s.Stats() // {Keys:0 Tombstones:1 Bytes:0}
//	s.PurgeTombstones()
//
// # Record Lifecycle
//
//	          Put                 Delete
//	absent ─────────▶ live ─────────────────▶ tombstone
//	                   ▲                          │
//	                   └────────── Put ───────────┘
//	                                              │ PurgeTombstones
//	                                              ▼
//	                                            absent
//
// Writing a key that has a tombstone revives it and clears the tombstone.
// Deleting a key that is not live does nothing, so a tombstone is never
// counted twice. Get and List only see live keys.
//
// # Accounting
//
// Stats is computed from state maintained on every write rather than by
// walking the map:
//
//	Keys        len(live keys)
//	Tombstones  len(tombstoned keys)
//	Bytes       sum of len(value) over live keys
//
// Replacing a value adjusts Bytes by the size difference, and deleting a key
// subtracts its size. Tombstones carry no bytes.
//
// # Store Interface
//
// A simulated set holds a Store, not a MemoryStore, so it could be backed by
// anything that honours the same tombstone and accounting rules. MemoryStore
// is the only implementation today.
//
// # Concurrency
//
// All methods are safe for concurrent use. Reads take a shared lock and
// writes an exclusive one. Values are copied on Put and on Get, so callers
// never share memory with the store and may reuse their buffers.
package storage
