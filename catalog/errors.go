package catalog

import "errors"

// Configuration errors. Task- and subset-level problems are logged and the
// offending entry skipped; the others fail the operation that hit them.
var (
	// ErrMissingField is returned when a subset declares neither "uri" nor "uris".
	ErrMissingField = errors.New("missing mandatory 'uri' entry")

	// ErrMalformedEntry is returned when a declaration has the wrong shape.
	ErrMalformedEntry = errors.New("malformed entry")

	// ErrUnsupportedTask is logged when no capability exists for a task.
	ErrUnsupportedTask = errors.New("unsupported task")

	// ErrUnsupportedSubset is logged for subset names outside files/train/development/test.
	ErrUnsupportedSubset = errors.New("unsupported subset")

	// ErrDatabaseNotFound is returned for unknown database names.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrInvalidProtocolName is returned for names not shaped "Database.Task.Protocol".
	ErrInvalidProtocolName = errors.New("invalid protocol name")

	// ErrAlreadyInitialized is returned by Init when the global registry is set.
	ErrAlreadyInitialized = errors.New("catalog already initialized")

	// ErrNotInitialized is returned when reading the global registry before Init.
	ErrNotInitialized = errors.New("catalog not initialized")
)
