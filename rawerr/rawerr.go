// Package rawerr holds the tagged error kinds shared by the decode stages.
//
// Every stage returns an *Error carrying a Kind so that callers (the batch
// pipeline, the HTTP handlers) can act on the failure reason without parsing
// messages.
package rawerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure
type Kind int

const (
	// Unknown is the kind of any error that did not originate in this module
	Unknown Kind = iota

	// ShapeMismatch means the buffer size is inconsistent with the declared dimensions or stride
	ShapeMismatch

	// InvalidGeometry means the dimensions are incompatible with the demosaic filter pattern
	InvalidGeometry

	// UnsupportedFormat means the packed format is anything but 10-bit CSI-2
	UnsupportedFormat

	// Corrupt means a stored capture failed its checksum or could not be parsed
	Corrupt

	// IO means reading a capture or writing a result failed
	IO

	// Config means a profile, pattern, or mode was invalid
	Config

	// Canceled means the item was never processed because the batch was canceled
	Canceled
)

var kindNames = map[Kind]string{
	Unknown:           "Unknown",
	ShapeMismatch:     "ShapeMismatch",
	InvalidGeometry:   "InvalidGeometry",
	UnsupportedFormat: "UnsupportedFormat",
	Corrupt:           "Corrupt",
	IO:                "IO",
	Config:            "Config",
	Canceled:          "Canceled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is a failure tagged with its Kind and the operation that produced it
type Error struct {
	// Kind is the failure class
	Kind Kind

	// Op is the operation, e.g. "raw10.Unpack"
	Op string

	// Err is the underlying cause
	Err error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the cause
func (e *Error) Unwrap() error { return e.Err }

// Cause returns the cause, for github.com/pkg/errors.Cause
func (e *Error) Cause() error { return e.Err }

// New returns an *Error of kind k with a formatted message
func New(k Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: k, Op: op, Err: errors.Errorf(format, args...)}
}

// Wrap tags err with kind k.  A nil err returns nil.
func Wrap(k Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Op: op, Err: err}
}

// KindOf digs through any wrapping and returns the kind of err.
// nil has kind Unknown, as does any error not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries kind k
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
