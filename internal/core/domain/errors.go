package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Pipeline Errors.

	// ErrInvalidRecord indicates a record is missing index, type (when
	// required) or id. Only the offending event fails.
	ErrInvalidRecord = errors.New("invalid data: index, type & id are required")

	// ErrIDResolution indicates a delete-by-field lookup failed. Nothing is
	// emitted for the record.
	ErrIDResolution = errors.New("id resolution failed")

	// ErrBulkPartialFailure indicates the bulk response reported item errors.
	// Details live in the archived response.
	ErrBulkPartialFailure = errors.New("cannot load")

	// ErrBulkTransport indicates the bulk request itself failed.
	ErrBulkTransport = errors.New("bulk request failed")

	// ErrArchival indicates the request/response pair could not be archived.
	ErrArchival = errors.New("archive failed")

	// ErrQuery indicates a search or scroll round-trip failed.
	ErrQuery = errors.New("query failed")
)
