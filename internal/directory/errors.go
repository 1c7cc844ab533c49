package directory

import "errors"

// Error kinds. Operations wrap one of these with context using %w, so callers
// classify outcomes with errors.Is.
var (
	// ErrNotFound means a referenced profile or request id is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers duplicate registrations, duplicate pending requests,
	// and responses to requests that are no longer pending.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable means the backing store could not serve the call for
	// reasons unrelated to business rules.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrInvalidInput covers empty queries, empty updates and unknown
	// category names.
	ErrInvalidInput = errors.New("invalid input")
)

// Kind returns the error kind err wraps, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrUnavailable, ErrInvalidInput} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
