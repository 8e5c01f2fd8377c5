// Package db contains the data-access layer used by Warden.
//
// A single BunStore serves SQLite, PostgreSQL and MySQL. It implements the
// recovery.Store port (Create, Load, Update) so the engine can run against a
// real database, and it doubles as the transfer outbox (recovery.Transferer)
// and the audit sink (recovery.Auditor).
//
// Schema
//   - accounts holds the scalar fields of each account record.
//   - account_members holds the ordered identity lists, one row per entry,
//     keyed by (account, role, position). Roles are guardian, pending,
//     signer and family.
//   - transfers is the outbox of funds-transfer instructions.
//   - audit_log records every committed command.
//
// Update runs the load, the caller's mutation and the write inside one
// transaction; on PostgreSQL and MySQL the account row is locked with
// SELECT ... FOR UPDATE.
//
// Testing notes
//   - Prefer a shared in-memory SQLite DSN such as
//     "file:<name>?mode=memory&cache=shared" in tests that need real DB
//     semantics and migrations.
package db
