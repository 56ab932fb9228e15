// Package storage persists every job posting that was ever ingested.
//
// Drivers:
//   - "sqlite": SQLite database file (default)
//   - "file": dependency-free JSON Lines journal
//   - "postgres": PostgreSQL via pgx
//
// All drivers enforce uniqueness on the posting id and, independently, on the
// posting URL. A conflicting insert is reported as Duplicate, never as an error.
package storage
