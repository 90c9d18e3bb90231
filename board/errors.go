package board

import "errors"

// Domain error taxonomy. Operations wrap these sentinels so callers can map
// them to transport-level failures without inspecting message text.
var (
	// ErrNotFound means the referenced entity ID does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the operation would violate a uniqueness constraint,
	// such as a duplicate plan file name.
	ErrConflict = errors.New("conflict")

	// ErrValidation means the input was malformed: a bad criterion index, an
	// unknown enum value, and so on.
	ErrValidation = errors.New("validation failed")
)
