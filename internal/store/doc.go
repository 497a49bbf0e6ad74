// Package store provides the SQLite-backed storage for sunshine.
//
// The schema is a three-table star:
//   - employers: dimension, UNIQUE(employer_name, sector)
//   - individuals: dimension, UNIQUE(last_name, first_name, job_title)
//   - salaries: fact, PRIMARY KEY(employer_id, individual_id, year) with
//     foreign keys to both dimensions
//
// # Lifecycle
//
// Create makes a new database file and applies the schema; it refuses to
// touch a path that already exists. OpenExisting opens a database that must
// already exist and never creates one. Open creates or opens and is what
// tests use.
//
// # Database Configuration
//
//   - journal_mode: configurable, WAL by default
//   - synchronous=NORMAL
//   - busy_timeout: configurable, 5 seconds by default
//   - foreign_keys=ON: enforce referential integrity
//
// The pool is limited to one connection. The store is owned by a single
// goroutine for the lifetime of a command; it is not safe for concurrent
// writers.
//
// # Indexes
//
// CreateIndex and DropIndex mutate index metadata only. Each call is its own
// statement, so a failed benchmark never leaves a half-created index.
package store
