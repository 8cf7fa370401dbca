package ident

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

const (
	// AddressSize is the size of an account or component address.
	AddressSize = 20

	// SelectorSize is the size of a short name hash.
	SelectorSize = 4
)

// Address identifies an account or a deployed component.
type Address [AddressSize]byte

// Zero is the empty address.
var Zero Address

// Selector is the first 4 bytes of blake3(name).
// Used for asset classes, strategies, roles and interface ids.
type Selector [SelectorSize]byte

// SelectorOf hashes a canonical name into its selector.
func SelectorOf(name string) Selector {
	sum := blake3.Sum256([]byte(name))

	var s Selector
	copy(s[:], sum[:SelectorSize])

	return s
}

// String returns the selector as 0x-prefixed hex.
func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// MarshalText encodes the selector as hex for JSON.
func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a hex selector.
func (s *Selector) UnmarshalText(text []byte) error {
	parsed, err := ParseSelector(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseSelector parses a 0x-prefixed or bare hex selector.
func ParseSelector(s string) (Selector, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Selector{}, fmt.Errorf("decode selector:\n%w", err)
	}

	if len(raw) != SelectorSize {
		return Selector{}, fmt.Errorf("invalid selector length: %d", len(raw))
	}

	var out Selector
	copy(out[:], raw)

	return out, nil
}

// FromPubkey derives the account address of an ed25519 public key:
// the last 20 bytes of blake3(pubkey).
func FromPubkey(pub ed25519.PublicKey) Address {
	sum := blake3.Sum256(pub)

	var a Address
	copy(a[:], sum[32-AddressSize:])

	return a
}

// Derive computes a deterministic component address from a namespace and nonce.
func Derive(namespace string, nonce uint64) Address {
	buf := make([]byte, len(namespace)+8)
	copy(buf, namespace)
	binary.BigEndian.PutUint64(buf[len(namespace):], nonce)

	sum := blake3.Sum256(buf)

	var a Address
	copy(a[:], sum[32-AddressSize:])

	return a
}

// Named computes a deterministic component address from a fixed name.
func Named(name string) Address {
	sum := blake3.Sum256([]byte("component:" + name))

	var a Address
	copy(a[:], sum[32-AddressSize:])

	return a
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Zero
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressSize)
	copy(out, a[:])

	return out
}

// String returns the address as 0x-prefixed hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Short returns the first 4 bytes as hex for logs.
func (a Address) Short() string {
	return hex.EncodeToString(a[:4])
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

// ParseAddress parses a 0x-prefixed or bare hex address.
func ParseAddress(s string) (Address, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Address{}, fmt.Errorf("decode address:\n%w", err)
	}

	return AddressFromBytes(raw)
}

// AddressFromBytes copies a 20-byte slice into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("invalid address length: %d", len(b))
	}

	var a Address
	copy(a[:], b)

	return a, nil
}
