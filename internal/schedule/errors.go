package schedule

import (
	"errors"
	"fmt"
)

// ErrMixedSchemes is wrapped by the StorageError returned when a loaded
// document contains both weekday keys and date keys.
var ErrMixedSchemes = errors.New("store mixes weekday keys and date keys")

// ValidationError rejects an input. The store is left unmodified.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a remove against an absent key or index.
type NotFoundError struct {
	Key   string
	Index int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no class at index %d under %q", e.Index, e.Key)
}

// StorageError reports a failure of the durable backing.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ImportError rejects a whole import document. Line is 1-based and zero
// when the problem is not tied to a single row.
type ImportError struct {
	Line   int
	Reason string
}

func (e *ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("import rejected at line %d: %s", e.Line, e.Reason)
	}
	return "import rejected: " + e.Reason
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
