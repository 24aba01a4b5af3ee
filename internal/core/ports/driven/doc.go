// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EventSource: Yields upstream change events (Kafka, PostgreSQL, NDJSON files)
//   - SearchClient: Bulk, search and scroll against the cluster
//   - ConfigStore: Key/value access to the config file
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ArchiveSink: Stores request/response pairs (S3, SQLite, memory).
//     Without it, results are not archived.
//   - ArchiveReader: Reads archived pairs back for replay.
//   - ArchiveLister: Lists archived pairs (SQLite, memory).
//   - Committer: Acknowledges consumed events upstream.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
