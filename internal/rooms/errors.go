package rooms

import "errors"

var (
	// ErrConflict is returned when an action's precondition is violated,
	// e.g. starting a room that is already mid-clean.
	ErrConflict = errors.New("room cleaning already in progress")

	// ErrNotFound is returned for actions on a room with no open record.
	ErrNotFound = errors.New("no open cleaning record for room")
)
