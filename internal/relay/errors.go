package relay

import "errors"

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeTicketClosed ErrorCode = "ticket_closed"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

// Error is returned by every event handler. Message is safe to show to the
// client; Err carries the cause for logs.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// asError converts any handler error into an *Error, treating unknown errors as internal.
func asError(err error) *Error {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr
	}
	return newError(ErrorCodeInternal, "Internal server error", err)
}
