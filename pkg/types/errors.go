package types

import "errors"

// Domain errors for type validation
var (
	ErrMissingProjectID = errors.New("project ID is required")
	ErrMissingFilePath  = errors.New("file path is required")
	ErrEmptyContent     = errors.New("content cannot be empty")
	ErrInvalidScore     = errors.New("score must be between -1 and 1")
)
