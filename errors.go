package spanz

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned for a missing or malformed input.
	// Nothing is mutated when it is returned.
	ErrInvalidArgument = errors.New("spanz: invalid argument")

	// ErrNoOpenSpan is returned when an operation needs an open span on
	// the flow and there is none.
	ErrNoOpenSpan = errors.New("spanz: no open span")

	// ErrDuplicateLabel is returned when a label key is already set on the
	// span. It wraps ErrInvalidArgument.
	ErrDuplicateLabel = errors.Wrap(ErrInvalidArgument, "duplicate label")

	// ErrSpanEnded is returned when annotating a span that has ended.
	ErrSpanEnded = errors.New("spanz: span already ended")
)

func invalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func errInvalidKind(k Kind) error {
	return invalidArgument("unknown span kind %d", int(k))
}

func errInvalidKindName(name string) error {
	return invalidArgument("unknown span kind %q", name)
}
