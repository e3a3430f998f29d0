package services

import "errors"

// Price service errors
var (
	// ErrDatasetNotLoaded is returned by queries before the first successful load
	ErrDatasetNotLoaded = errors.New("dataset not loaded")

	// ErrInvalidSelection wraps every rejected region or year filter
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrWatchDisabled is returned by Watch when no debounce is configured
	ErrWatchDisabled = errors.New("workbook watch disabled")
)

// SelectionError names the filter field that was rejected
type SelectionError struct {
	Field   string
	Message string
}

func (e *SelectionError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets callers test for ErrInvalidSelection
func (e *SelectionError) Unwrap() error {
	return ErrInvalidSelection
}

func invalidSelection(field, message string) error {
	return &SelectionError{Field: field, Message: message}
}
