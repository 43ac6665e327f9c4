package worklist

import "fmt"

// ValidationError rejects a batch or item before any write happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError signals a missing item or a transaction with nothing to recover.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ServerError wraps an unexpected data-store or runtime failure. The wrapped
// cause is only exposed to callers in development mode.
type ServerError struct {
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServerError) Unwrap() error { return e.Err }
