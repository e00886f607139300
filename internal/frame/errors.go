package frame

import (
	"errors"
	"fmt"
)

// ErrDecode matches every *DecodeError via errors.Is.
var ErrDecode = errors.New("decode failed")

type DecodeErrorKind int

const (
	MalformedSyntax DecodeErrorKind = iota + 1
	MissingField
	InvalidTimestamp
	DuplicateID
)

func (k DecodeErrorKind) String() string {
	switch k {
	case MalformedSyntax:
		return "malformed syntax"
	case MissingField:
		return "missing field"
	case InvalidTimestamp:
		return "invalid timestamp"
	case DuplicateID:
		return "duplicate id"
	}
	return "unknown"
}

// DecodeError describes persisted data that could not be decoded.
// Index is the position of the offending frame, or -1 for the document
// as a whole and for the session file.
type DecodeError struct {
	Kind  DecodeErrorKind
	Index int
	Field string
	ID    string
	Err   error
}

func (e *DecodeError) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Index >= 0 {
		msg = fmt.Sprintf("frame %d: %s", e.Index, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
