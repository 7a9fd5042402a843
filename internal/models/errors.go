package models

import (
	"errors"
	"fmt"
)

// Error taxonomy for the collection pipeline. Item-level errors
// (fetch/extraction) are recovered at the item boundary and never abort
// sibling work; only TaskError escalates to task failure.

// FetchError is a network, timeout, or non-2xx failure. Retryable up to
// the configured retry budget.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch failed for %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch failed for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError means the parser was unavailable or required fields were
// missing after parsing. Deterministic, never retried.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.URL, e.Reason)
}

// FilterRejection means the content filter decided the item must be
// dropped. Recorded as an outcome, not treated as a hard error.
type FilterRejection struct {
	URL    string
	Reason string
}

func (e *FilterRejection) Error() string {
	return fmt.Sprintf("item rejected by content filter for %s: %s", e.URL, e.Reason)
}

// TaskError is an orchestration-level failure (e.g. shop discovery threw
// before any item started). Sets task status to failed; items already
// collected remain valid.
type TaskError struct {
	TaskID string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is (or wraps) a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsExtractionError reports whether err is (or wraps) an ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
