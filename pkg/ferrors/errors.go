// Package ferrors defines the error taxonomy shared by the Name Server and
// Storage Server. Handlers build *Error values with the constructors below;
// the wire layer translates them to an (error_code, error_msg) pair on the
// control record and back.
package ferrors

import "fmt"

// Code identifies the category of a domain error. The numeric values mirror
// the wire protocol's error_code field (see pkg/wire).
type Code int

const (
	Success Code = iota
	NotFound
	Exists
	AccessDenied
	SentenceLocked
	InvalidIndex
	ServerError
	ConnectionFailed
	InvalidCommand
	NotOwner
	UserNotFound
	SSNotFound
	NoUndo
)

func (c Code) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case NotFound:
		return "FILE_NOT_FOUND"
	case Exists:
		return "FILE_EXISTS"
	case AccessDenied:
		return "ACCESS_DENIED"
	case SentenceLocked:
		return "SENTENCE_LOCKED"
	case InvalidIndex:
		return "INVALID_INDEX"
	case ServerError:
		return "SERVER_ERROR"
	case ConnectionFailed:
		return "CONNECTION_FAILED"
	case InvalidCommand:
		return "INVALID_COMMAND"
	case NotOwner:
		return "NOT_OWNER"
	case UserNotFound:
		return "USER_NOT_FOUND"
	case SSNotFound:
		return "SS_NOT_FOUND"
	case NoUndo:
		return "NO_UNDO"
	default:
		return "UNKNOWN"
	}
}

// Error is a domain error returned by an NS or SS operation.
type Error struct {
	Code    Code
	Message string
	Path    string // filename the error pertains to, if any
	cause   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether err is a *Error with the given code.
func Is(err error, code Code) bool {
	fe, ok := err.(*Error)
	return ok && fe.Code == code
}

// CodeOf extracts the Code from err, defaulting to ServerError for any error
// that did not originate as a *Error (so raw IO/transport failures are never
// put on the wire verbatim).
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	if fe, ok := err.(*Error); ok {
		return fe.Code
	}
	return ServerError
}

func New(code Code, path, msg string) *Error {
	return &Error{Code: code, Path: path, Message: msg}
}

func Wrap(code Code, path string, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: code, Path: path, Message: msg, cause: cause}
}

func NotFoundf(path string) *Error {
	return New(NotFound, path, "no such file")
}

func Existsf(path string) *Error {
	return New(Exists, path, "file already exists")
}

func AccessDeniedf(path, msg string) *Error {
	return New(AccessDenied, path, msg)
}

func SentenceLockedf(path string, idx int) *Error {
	return New(SentenceLocked, path, fmt.Sprintf("sentence %d is locked by another user", idx))
}

func InvalidIndexf(path, msg string) *Error {
	return New(InvalidIndex, path, msg)
}

func ServerErrorf(path string, cause error) *Error {
	return Wrap(ServerError, path, cause)
}

func ConnectionFailedf(path string, cause error) *Error {
	return Wrap(ConnectionFailed, path, cause)
}

func InvalidCommandf(msg string) *Error {
	return New(InvalidCommand, "", msg)
}

func NotOwnerf(path string) *Error {
	return New(NotOwner, path, "caller is not the owner")
}

func UserNotFoundf(username string) *Error {
	return New(UserNotFound, "", fmt.Sprintf("unknown user %q", username))
}

func SSNotFoundf(id string) *Error {
	return New(SSNotFound, "", fmt.Sprintf("unknown storage server %q", id))
}

func NoUndof(path string) *Error {
	return New(NoUndo, path, "nothing to undo")
}
