// Package store provides SQLite-backed durable storage for log entries and
// everything derived from them.
//
// Tables:
//   - rules_router: routing rules, unique by name
//   - entries: append-only raw lines with their routing outcome
//   - tasks, transactions, facts, metrics_daily, projects: derived records,
//     each with a weak entry_id back-reference
//   - narrative_memory: daily/weekly narrative snapshots, unique by (date, snapshot_type)
//   - north_star_snapshots: clarity scores, unique by (period_type, reference_date)
//   - behavior_events: reactions, unique by (event_type, reference_date)
//   - daily_logs: totals captured when a day is closed
//
// # Transactions
//
// Every read and write is a method on *Tx, obtained from Store.WithTx. The
// pool holds a single connection and transactions begin IMMEDIATE, so a
// write lock is taken up front and busy errors surface at begin, where they
// are retried with backoff. Tx.Savepoint nests a rollback scope inside a
// transaction; batch ingestion uses one savepoint per item.
//
// # Idempotency
//
// Derived snapshots are upserted with ON CONFLICT DO UPDATE ... RETURNING id
// so recompiles keep a stable id. Behavior events use ON CONFLICT DO NOTHING
// and report whether the row was inserted; uniqueness violations elsewhere
// surface as errors matching ErrConflict.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
