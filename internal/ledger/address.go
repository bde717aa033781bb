package ledger

import (
	"encoding/hex"
	"fmt"
)

// AddressSize is the byte length of an actor identity.
const AddressSize = 32

// Address is an opaque actor identity. The zero Address means "none" and is
// never a valid creator, owner or buyer.
type Address [AddressSize]byte

// IsZero reports whether a is the reserved "none" identity.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the full hex encoding.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Short returns the first 8 bytes in hex, for log lines and reasons.
func (a Address) Short() string {
	return hex.EncodeToString(a[:8])
}

// MarshalText encodes the address as hex.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a hex address.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// ParseAddress decodes a 64-character hex string.
func ParseAddress(s string) (Address, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode address:\n%w", err)
	}

	return AddressFromBytes(raw)
}

// AddressFromBytes copies a 32-byte slice into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("invalid address length: got %d, want %d", len(b), AddressSize)
	}

	copy(a[:], b)

	return a, nil
}
