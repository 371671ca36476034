// Package storage provides the persistence backends for RollCall.
//
// Three interchangeable backends implement the session and attendance
// repositories:
//
//   - Engine: the in-memory store made durable with a write-ahead log
//     and periodic snapshots; every mutation is logged before it is
//     applied, and recovery restores the latest snapshot then replays
//     the WAL tail
//   - sqlite.Store: a single SQLite file (the default backend)
//   - BadgerStore: an embedded Badger key-value store
//
// All backends enforce one attendance record per (session, participant)
// pair at the storage level, so a racing duplicate submission fails
// instead of producing a second row. Optional at-rest encryption for
// the Engine's WAL and snapshots uses adaptive ciphers.
package storage
