package domain

import "errors"

// Error classes shared by both stores and the coordinator. Callers wrap them
// with context and test with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("project not found")
	ErrAuthRequired = errors.New("authentication required")
	ErrStorage      = errors.New("local storage failure")
	ErrNetwork      = errors.New("remote store unavailable")
	ErrConflict     = errors.New("project was modified elsewhere")
)
