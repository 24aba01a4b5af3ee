// Package domain defines the core entities of the loader.
//
// This package is part of the hexagonal architecture's innermost layer.
// It defines the fundamental types:
//
//   - Event: An upstream envelope with metadata and a payload
//   - Record: The payload of an event, addressing one or more documents
//   - Action: A bulk command and its optional document line
//   - Batch: An ordered group of encoded actions sent as one request
//   - BulkResult: The outcome of sending and archiving one batch
//   - QueryRequest / QueryResult: Paginated search over the cluster
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. All other packages depend on
// domain, never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library, error aggregation helpers
//   - Cannot Import: Any internal/ package, any adapter dependency
package domain
