package model

import "errors"

var (
	// ErrNotFound is returned when a task, agent or lease referenced by
	// id/path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an operation loses against current state
	// (task already assigned, lease held by another agent...).
	ErrConflict = errors.New("conflict")
	// ErrInvalidState is returned when the operation is not legal from the
	// resource's current state (e.g. completing an already completed task).
	ErrInvalidState = errors.New("invalid state")
	// ErrTimeout is returned when a bounded wait exceeds its deadline.
	ErrTimeout = errors.New("timed out")
	// ErrNotInitialized is returned when the workflow document has not been
	// created yet.
	ErrNotInitialized = errors.New("workflow not initialized")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
)
