package borrow

import (
	"errors"
	"fmt"
)

// ErrAbsent is returned when a reference is requested through an address whose
// holder has already been destroyed. It is not an invariant violation.
var ErrAbsent = errors.New("borrow: address is no longer valid")

// Invariant violations. These indicate a bug in the caller, not bad input.
var (
	ErrBorrowConflict = errors.New("borrow conflict")
	ErrUseAfterFree   = errors.New("use after free")
	ErrCorrupted      = errors.New("borrow counter corrupted")
	ErrHeldOnDestroy  = errors.New("holder destroyed while borrowed")
)

// Kind identifies the category of an invariant violation.
type Kind int

const (
	// KindUnknown indicates an unclassified violation.
	KindUnknown Kind = iota
	// KindBorrowConflict indicates a shared/exclusive aliasing conflict.
	KindBorrowConflict
	// KindUseAfterFree indicates a guard outlived its holder.
	KindUseAfterFree
	// KindCorrupted indicates the counter left its legal range.
	KindCorrupted
	// KindHeldOnDestroy indicates a holder was destroyed with guards outstanding.
	KindHeldOnDestroy
)

func (k Kind) String() string {
	switch k {
	case KindBorrowConflict:
		return "borrow conflict"
	case KindUseAfterFree:
		return "use after free"
	case KindCorrupted:
		return "corrupted"
	case KindHeldOnDestroy:
		return "held on destroy"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindBorrowConflict:
		return ErrBorrowConflict
	case KindUseAfterFree:
		return ErrUseAfterFree
	case KindCorrupted:
		return ErrCorrupted
	case KindHeldOnDestroy:
		return ErrHeldOnDestroy
	default:
		return nil
	}
}

// Error is an invariant violation detected by a Cell.
type Error struct {
	// Op is the operation that failed (e.g. "acquire exclusive").
	Op string
	// Kind categorizes the violation.
	Kind Kind
	// Subject names the borrowed value, usually its type name.
	Subject string
	// Detail describes the counter state that caused the violation.
	Detail string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s %q", e.Kind, e.Op, e.Subject)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

// IsInvariant reports whether err carries an invariant violation.
func IsInvariant(err error) bool {
	var be *Error
	return errors.As(err, &be)
}
