// Package memory provides in-memory storage for RollCall.
//
// It implements the session and attendance repositories using
// concurrent-safe data structures with sharded locking.
//
// Features:
//
//   - Sharded Storage: Sessions and records distributed across shards
//   - Secondary Indexes: Fast duplicate lookup by (session, participant)
//   - Optimistic Locking: Version-based concurrency control for sessions
//   - Snapshot Support: Full dump and restore for the durable engine
//
// Thread Safety:
//
// All operations are thread-safe. Writers that touch multiple indexes
// hold a store-wide lock; readers go straight to the sharded maps.
package memory
