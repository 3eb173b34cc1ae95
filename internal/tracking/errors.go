package tracking

import "errors"

// Error taxonomy surfaced by the transition authority. Handlers map
// these onto response codes; anything else is a store failure.
var (
	// ErrNotFound means the referenced order has no tracking record.
	ErrNotFound = errors.New("tracking record not found")

	// ErrForbidden means the caller's role has no write access to
	// tracking state. Checked before any lookup.
	ErrForbidden = errors.New("caller is not allowed to advance tracking")

	// ErrNotAdvanceable means the record is already in its terminal
	// state and has no legal successor.
	ErrNotAdvanceable = errors.New("tracking record has no next status")

	// ErrConflict means a concurrent advance won the race: the record's
	// status changed between the read and the conditional write. No
	// writes were performed.
	ErrConflict = errors.New("tracking record was advanced concurrently")
)
