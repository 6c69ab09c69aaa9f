package sheets

import (
	"errors"
	"fmt"
)

// TransientError marks a fetch failure that is worth retrying: network
// trouble, throttling, a 5xx from the API, or a token refresh hiccup.
// It never causes cached data to be evicted.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("sheets: transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// NotFoundError marks a missing spreadsheet or worksheet. This points at
// misconfigured coordinates and is not retriable.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sheets: %s not found", e.Resource)
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
