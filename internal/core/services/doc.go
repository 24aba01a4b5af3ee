// Package services implements the driving port interfaces.
// Services contain the core loading logic and orchestrate
// calls to driven ports (adapters).
//
// The stages are, in data order:
//
//   - Transformer: event to encoded bulk actions, resolving delete-by-field
//     records through the QueryEngine
//   - Batcher: count, byte and age bounded grouping of actions
//   - BulkSender: one bulk request per batch, archived with its response
//   - Pipeline: runs the stages over bounded channels
//
// QueryEngine is independent of the other stages and also serves callers
// that need results beyond a single page.
package services
