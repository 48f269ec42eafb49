package upload

import (
	"fmt"
)

type Cause uint8

const (
	CauseNoFileSelected Cause = iota + 1
	CauseFileUnreadable
	CauseNetwork
	CauseServer
	CauseParse
	CauseApplication
	CauseAborted
)

func (c Cause) String() string {
	switch c {
	case CauseNoFileSelected:
		return "no_file_selected"
	case CauseFileUnreadable:
		return "file_unreadable"
	case CauseNetwork:
		return "network_error"
	case CauseServer:
		return "server_error"
	case CauseParse:
		return "parse_error"
	case CauseApplication:
		return "application"
	case CauseAborted:
		return "aborted"
	default:
		return fmt.Sprintf("cause(%d)", uint8(c))
	}
}

// DefaultApplicationMessage is used when the agent reports success=false
// without an errorMessage.
const DefaultApplicationMessage = "upload failed"

// Error is the failure cause of an upload attempt.
type Error struct {
	Cause Cause
	// Status is the HTTP status for CauseServer.
	Status int
	// Message is the agent's message for CauseApplication, and the agent's
	// errorMessage (if it sent one) for CauseServer.
	Message string
	Err     error
}

var (
	ErrNoFileSelected = &Error{Cause: CauseNoFileSelected}
	ErrFileUnreadable = &Error{Cause: CauseFileUnreadable}
	ErrNetwork        = &Error{Cause: CauseNetwork}
	ErrServer         = &Error{Cause: CauseServer}
	ErrParse          = &Error{Cause: CauseParse}
	ErrApplication    = &Error{Cause: CauseApplication}
	ErrAborted        = &Error{Cause: CauseAborted}
)

func (e *Error) Error() string {
	switch e.Cause {
	case CauseNoFileSelected:
		return "no file selected"
	case CauseFileUnreadable:
		if e.Err != nil {
			return fmt.Sprintf("file unreadable: %v", e.Err)
		}
		return "file unreadable"
	case CauseNetwork:
		if e.Err != nil {
			return fmt.Sprintf("network error: %v", e.Err)
		}
		return "network error"
	case CauseServer:
		if e.Message != "" {
			return fmt.Sprintf("server error: %d: %s", e.Status, e.Message)
		}
		return fmt.Sprintf("server error: %d", e.Status)
	case CauseParse:
		return "failed to parse response"
	case CauseApplication:
		if e.Message == "" {
			return DefaultApplicationMessage
		}
		return e.Message
	case CauseAborted:
		return "upload aborted"
	default:
		return e.Cause.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on the cause, and on the status when the target sets one, so
// errors.Is(err, ErrServer) holds for any server error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Cause != e.Cause {
		return false
	}
	return t.Status == 0 || t.Status == e.Status
}

func networkError(err error) *Error {
	return &Error{Cause: CauseNetwork, Err: err}
}

func serverError(status int, message string) *Error {
	return &Error{Cause: CauseServer, Status: status, Message: message}
}

func parseError(err error) *Error {
	return &Error{Cause: CauseParse, Err: err}
}

func applicationError(message string) *Error {
	if message == "" {
		message = DefaultApplicationMessage
	}
	return &Error{Cause: CauseApplication, Message: message}
}

func abortedError(err error) *Error {
	return &Error{Cause: CauseAborted, Err: err}
}
