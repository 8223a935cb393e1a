package ir

import (
	"encoding/hex"
	"fmt"
)

// AddressLen is the size of an Address in bytes.
const AddressLen = 32

// Address identifies a record or a caller identity.
// Record addresses come from Derive; identities are public keys verified
// outside the ledger. Both render as lowercase hex.
type Address [AddressLen]byte

// ParseAddress decodes a 64-character hex string.
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) != hex.EncodedLen(AddressLen) {
		return a, fmt.Errorf("address must be %d hex characters, got %d", hex.EncodedLen(AddressLen), len(s))
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return a, nil
}

// String returns the lowercase hex form.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Short returns the first 8 hex characters, for logs.
func (a Address) Short() string {
	return a.String()[:8]
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLen)
	copy(b, a[:])
	return b
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IR returns the address as an IRString.
func (a Address) IR() IRString {
	return IRString(a.String())
}
