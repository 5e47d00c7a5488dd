package models

import "errors"

// Common validation and state errors for models.
var (
	// ErrTitleRequired indicates a required title field is empty.
	ErrTitleRequired = errors.New("title is required")

	// ErrSourcePathRequired indicates a required source path field is empty.
	ErrSourcePathRequired = errors.New("source path is required")

	// ErrInvalidStatus indicates an unknown video status value.
	ErrInvalidStatus = errors.New("invalid video status")

	// ErrInvalidTransition indicates a disallowed status transition.
	ErrInvalidTransition = errors.New("invalid status transition")
)
