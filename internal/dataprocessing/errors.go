package dataprocessing

import (
	"errors"
	"fmt"
)

// Load failures. All of them are fatal for the load that produced them.
var (
	ErrSourceFileMissing    = errors.New("source file missing")
	ErrSourceFileUnreadable = errors.New("source file unreadable")
	ErrSchemaMismatch       = errors.New("schema mismatch")
	ErrDuplicateRecord      = errors.New("duplicate price record")
)

// SheetError attaches the offending sheet to a load failure
type SheetError struct {
	Sheet  string
	Reason string
	Err    error
}

func (e *SheetError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("%v: sheet %q: %s", e.Err, e.Sheet, e.Reason)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

func schemaMismatch(sheet, format string, args ...any) error {
	return &SheetError{Sheet: sheet, Reason: fmt.Sprintf(format, args...), Err: ErrSchemaMismatch}
}
