package prismlate

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFields is returned when discovery yields no translatable fields.
	ErrNoFields = errors.New("no translatable fields found on this page")
	// ErrSelectionBusy is returned when a selection translation is already in flight.
	ErrSelectionBusy = errors.New("selection translation already in progress")
	// ErrRangeDetached reports a selection range no longer attached to its document.
	ErrRangeDetached = errors.New("selection range is no longer attached to the document")
	// ErrEmptyTranslation reports a missing or unchanged translation.
	ErrEmptyTranslation = errors.New("translation is empty or identical to the source")
)

// TranslationError is the base error type for translation failures.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates a translation provider failure (API error, rate limit, etc.).
type ProviderError struct {
	Provider   string
	Message    string
	StatusCode int // HTTP status when known
	Cause      error
	Retryable  bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	prefix := "provider error"
	if e.Provider != "" {
		prefix = e.Provider + " error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// FieldError records the failure of a single field in a run.
// Index is 1-based, matching the field numbering shown to users.
type FieldError struct {
	Index   int
	FieldID string
	Cause   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Field %d: %v", e.Index, e.Cause)
}

func (e *FieldError) Unwrap() error {
	return e.Cause
}

// SelectionError indicates a selection-scoped translation failure.
type SelectionError struct {
	Message string
	Cause   error
}

func (e *SelectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("selection error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("selection error: %s", e.Message)
}

func (e *SelectionError) Unwrap() error {
	return e.Cause
}
