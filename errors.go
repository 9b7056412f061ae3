package patchwork

import "errors"

var (
	// ErrUnknownModuleType means the registry has no constructor for a type
	// name. The module is not created; loading continues with the others.
	ErrUnknownModuleType = errors.New("unknown module type")

	// ErrUnknownModule is returned by lookups of names that do not exist.
	ErrUnknownModule = errors.New("unknown module")

	// ErrUnknownModuleReference means a layout entry names a module that
	// does not exist after all the modules of the layout have been created.
	ErrUnknownModuleReference = errors.New("unknown module reference")

	// ErrWrongCapability means a reference resolved to a module lacking the
	// capability the reference requires. The reference is treated as absent.
	ErrWrongCapability = errors.New("module lacks the required capability")

	// ErrMalformedDocument means the layout document itself could not be
	// parsed. The whole load is aborted.
	ErrMalformedDocument = errors.New("malformed layout document")

	// ErrStateDesync means a state block could not be parsed or was not
	// followed by the synchronization marker.
	ErrStateDesync = errors.New("state desynchronized")

	ErrStaleHandle     = errors.New("stale module handle")
	ErrBadControlPath  = errors.New("bad control path")
	ErrUnknownControl  = errors.New("unknown control")
	ErrProtectedModule = errors.New("module cannot be removed")
	ErrChannelRange    = errors.New("channel out of range")
)
