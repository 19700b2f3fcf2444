package shared

import "errors"

var (
	// ErrNotFound indicates the referenced resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique-key collision on creation.
	ErrDuplicate = errors.New("duplicate key")
	// ErrProtectedResource indicates an attempt to delete a protected resource.
	ErrProtectedResource = errors.New("protected resource")
	// ErrHasDependents indicates deletion was refused because other records still reference the resource.
	ErrHasDependents = errors.New("has dependents")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationDisabled indicates self-registration is switched off.
	ErrRegistrationDisabled = errors.New("registration disabled")
)
