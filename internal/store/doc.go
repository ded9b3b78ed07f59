// Package store provides SQLite-backed durable storage for the foreign asset
// registry, the materialized reserve mapping and the migration ledger.
//
// # Patterns
//
// Canonical bytes
//   - Locations and record lists are stored as RFC 8785 canonical JSON
//   - Equal values always produce identical rows, so a re-applied migration
//     leaves the table byte-identical
//
// Logical time
//   - Ordering uses seq INTEGER columns, never timestamps
//
// Deterministic reads
//   - Asset queries use ORDER BY asset_key COLLATE BINARY
//   - Ledger queries use ORDER BY seq
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
