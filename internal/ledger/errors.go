package ledger

import (
	"github.com/cockroachdb/errors"
)

// Kind classifies a rejected operation. Callers branch on Kind, never on the
// reason text.
type Kind int

const (
	// KindNone marks errors outside the taxonomy (storage, codec).
	KindNone Kind = iota
	KindInvalidRoyalty
	KindDuplicateFingerprint
	KindNotFound
	KindNotOwner
	KindAlreadyListed
	KindNotListed
	KindInsufficientPayment
	KindInvalidIdentity
)

// Sentinels for errors.Is. Every rejected operation returns an error marked
// with exactly one of these.
var (
	ErrInvalidRoyalty       = errors.New("invalid royalty")
	ErrDuplicateFingerprint = errors.New("duplicate fingerprint")
	ErrNotFound             = errors.New("not found")
	ErrNotOwner             = errors.New("not owner")
	ErrAlreadyListed        = errors.New("already listed")
	ErrNotListed            = errors.New("not listed")
	ErrInsufficientPayment  = errors.New("insufficient payment")
	ErrInvalidIdentity      = errors.New("invalid identity")
)

var kinds = []struct {
	kind     Kind
	name     string
	sentinel error
}{
	{KindInvalidRoyalty, "InvalidRoyalty", ErrInvalidRoyalty},
	{KindDuplicateFingerprint, "DuplicateFingerprint", ErrDuplicateFingerprint},
	{KindNotFound, "NotFound", ErrNotFound},
	{KindNotOwner, "NotOwner", ErrNotOwner},
	{KindAlreadyListed, "AlreadyListed", ErrAlreadyListed},
	{KindNotListed, "NotListed", ErrNotListed},
	{KindInsufficientPayment, "InsufficientPayment", ErrInsufficientPayment},
	{KindInvalidIdentity, "InvalidIdentity", ErrInvalidIdentity},
}

// String returns the taxonomy name of k.
func (k Kind) String() string {
	for _, e := range kinds {
		if e.kind == k {
			return e.name
		}
	}

	return "None"
}

// Reject builds an error of the given kind carrying a human-readable reason.
func Reject(kind Kind, format string, args ...any) error {
	for _, e := range kinds {
		if e.kind == kind {
			return errors.Mark(errors.Newf(format, args...), e.sentinel)
		}
	}

	return errors.Newf(format, args...)
}

// KindOf returns the taxonomy kind of err, or KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	for _, e := range kinds {
		if errors.Is(err, e.sentinel) {
			return e.kind
		}
	}

	return KindNone
}

// IsRejection reports whether err is a caller-input or precondition failure
// rather than an infrastructure fault.
func IsRejection(err error) bool {
	return KindOf(err) != KindNone
}
