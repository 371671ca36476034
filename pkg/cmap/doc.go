// Package cmap provides a concurrent map implementation for RollCall.
//
// This package implements a sharded concurrent map keyed by string,
// used for session and attendance lookups:
//
//   - Sharding: Configurable shard count for parallelism
//   - Fine-grained Locking: Per-shard RWMutex for minimal contention
//   - Iteration: Safe iteration while holding read locks
//
// Usage:
//
//	m := cmap.New[*Session]()
//	m.Set("Lecture1", session)
//	val, ok := m.Get("Lecture1")
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Has) use RLock,
// write operations (Set, Delete) use Lock.
package cmap
