package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidUser indicates an invalid user identifier.
	ErrInvalidUser = errors.New("invalid user")
	// ErrInvalidDeviceType indicates an unknown device type.
	ErrInvalidDeviceType = errors.New("invalid device type")
	// ErrNotFound indicates no document exists for a device type.
	// It is not a failure; it triggers the device fallback chain.
	ErrNotFound = errors.New("device config not found")
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrTabNotClosable indicates the tab is protected from removal.
	ErrTabNotClosable = errors.New("tab is not closable")
	// ErrLastTab indicates the sole remaining tab cannot be removed.
	ErrLastTab = errors.New("cannot remove the last tab")
	// ErrDuplicateTabName indicates the tab name is already in use.
	ErrDuplicateTabName = errors.New("duplicate tab name")
	// ErrReservedTabName indicates the name matches a reserved pattern.
	ErrReservedTabName = errors.New("reserved tab name")
	// ErrInvalidTabName indicates an empty or malformed tab name.
	ErrInvalidTabName = errors.New("invalid tab name")
	// ErrComponentNotFound indicates a component could not be found.
	ErrComponentNotFound = errors.New("component not found")
	// ErrDuplicateComponent indicates the component id is already in use.
	ErrDuplicateComponent = errors.New("duplicate component id")
	// ErrInvalidPosition indicates a malformed grid position.
	ErrInvalidPosition = errors.New("invalid grid position")
	// ErrInvalidTargetEmail indicates a copy target outside the allowed domains.
	ErrInvalidTargetEmail = errors.New("target email not in an allowed domain")
	// ErrEngineStopped indicates the engine has been torn down.
	ErrEngineStopped = errors.New("engine stopped")
)
