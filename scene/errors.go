package scene

import "errors"

// Sentinel errors. Returned errors wrap these with the names of the objects
// involved; test with errors.Is.
var (
	// ErrInvalidArgument is returned for nil or malformed inputs.
	ErrInvalidArgument = errors.New("scene: invalid argument")

	// ErrDuplicateName is returned when two item lists, surfaces or
	// framebuffers share a name.
	ErrDuplicateName = errors.New("scene: duplicate name")

	// ErrNotFound is returned when a named object does not exist.
	ErrNotFound = errors.New("scene: not found")

	// ErrTypeMismatch is returned when a surface is used as the wrong type.
	ErrTypeMismatch = errors.New("scene: surface type mismatch")

	// ErrPermission is returned when replacing a surface the view owns.
	ErrPermission = errors.New("scene: operation not permitted")

	// ErrCycle is returned when a node would become its own ancestor.
	ErrCycle = errors.New("scene: node would become its own ancestor")

	// ErrResourceContext is returned when a draw thread cannot acquire a
	// resource context.
	ErrResourceContext = errors.New("scene: resource context creation failed")

	// ErrThreadCreation is returned when a draw thread fails to start.
	ErrThreadCreation = errors.New("scene: draw thread failed to start")

	// ErrDestroyed is returned when using a destroyed object.
	ErrDestroyed = errors.New("scene: object destroyed")
)
