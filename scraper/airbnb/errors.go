package airbnb

import (
	"context"
	"errors"
	"fmt"
)

// FetchError reports a page that could not be retrieved within the attempt
// bound. The page counts as never visited.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseStructureError reports markup that cannot be read as a document.
type ParseStructureError struct {
	URL string
	Err error
}

func (e *ParseStructureError) Error() string {
	return fmt.Sprintf("unexpected page structure at %s: %v", e.URL, e.Err)
}

func (e *ParseStructureError) Unwrap() error { return e.Err }

// isPageFailure reports whether err only costs the current page: a fetch that
// ran out of attempts or a page that could not be parsed. Cancellation and
// store errors are not page failures.
func isPageFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	var pe *ParseStructureError
	return errors.As(err, &fe) || errors.As(err, &pe)
}
