package asset

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"Warpgate/internal/ident"
)

const (
	// wordSize is the width of one fixed-layout field.
	wordSize = 32

	// erc721DataSize is word(collection) || word(tokenId).
	erc721DataSize = 2 * wordSize
)

// ERC721 is the class identifier of unique items.
var ERC721 = ident.SelectorOf("ERC721")

// ErrMalformed is returned when encoded asset data does not follow its class layout.
var ErrMalformed = errors.New("malformed asset data")

// Asset is a class-tagged reference to an item with a magnitude.
type Asset struct {
	Class ident.Selector `json:"class"` // Class is the 4-byte asset class identifier
	Data  []byte         `json:"data"`  // Data is the class-specific encoded reference
	Value uint64         `json:"value"` // Value is 1 for unique items
}

// NewERC721 builds the asset for token tokenID of collection.
func NewERC721(collection ident.Address, tokenID uint64) Asset {
	data := make([]byte, erc721DataSize)

	// Address is right-aligned in its word, token id is big-endian in the last 8 bytes.
	copy(data[wordSize-ident.AddressSize:wordSize], collection[:])
	binary.BigEndian.PutUint64(data[erc721DataSize-8:], tokenID)

	return Asset{Class: ERC721, Data: data, Value: 1}
}

// DecodeERC721 extracts the collection and token id of a unique-item asset.
func DecodeERC721(a Asset) (ident.Address, uint64, error) {
	if a.Class != ERC721 {
		return ident.Address{}, 0, fmt.Errorf("class %s is not ERC721:\n%w", a.Class, ErrMalformed)
	}

	if len(a.Data) != erc721DataSize {
		return ident.Address{}, 0, fmt.Errorf("data is %d bytes:\n%w", len(a.Data), ErrMalformed)
	}

	if !isZero(a.Data[:wordSize-ident.AddressSize]) {
		return ident.Address{}, 0, fmt.Errorf("dirty address padding:\n%w", ErrMalformed)
	}

	if !isZero(a.Data[wordSize : erc721DataSize-8]) {
		return ident.Address{}, 0, fmt.Errorf("token id exceeds 64 bits:\n%w", ErrMalformed)
	}

	var collection ident.Address
	copy(collection[:], a.Data[wordSize-ident.AddressSize:wordSize])

	return collection, binary.BigEndian.Uint64(a.Data[erc721DataSize-8:]), nil
}

// Key returns a stable storage key for the asset: class || data.
func (a Asset) Key() []byte {
	key := make([]byte, 0, ident.SelectorSize+len(a.Data))
	key = append(key, a.Class[:]...)
	key = append(key, a.Data...)

	return key
}

// Equal reports whether two assets reference the same item and value.
func (a Asset) Equal(b Asset) bool {
	return a.Class == b.Class && a.Value == b.Value && bytes.Equal(a.Data, b.Data)
}

// String renders the asset for logs.
func (a Asset) String() string {
	return fmt.Sprintf("%s:%s:%d", a.Class, hex.EncodeToString(a.Data), a.Value)
}

// Encode serializes the asset in Borsh layout.
// Format: [u8; 4] class + u32 len + data bytes + u64 value (little-endian).
func (a Asset) Encode() []byte {
	buf := make([]byte, 0, ident.SelectorSize+4+len(a.Data)+8)
	buf = append(buf, a.Class[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(a.Data)))
	buf = append(buf, a.Data...)
	buf = binary.LittleEndian.AppendUint64(buf, a.Value)

	return buf
}

// Decode parses an asset produced by Encode.
func Decode(data []byte) (Asset, error) {
	if len(data) < ident.SelectorSize+4 {
		return Asset{}, fmt.Errorf("encoded asset too short:\n%w", ErrMalformed)
	}

	var a Asset
	copy(a.Class[:], data[:ident.SelectorSize])

	offset := ident.SelectorSize
	dataLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	if len(data) != offset+dataLen+8 {
		return Asset{}, fmt.Errorf("encoded asset length mismatch:\n%w", ErrMalformed)
	}

	a.Data = make([]byte, dataLen)
	copy(a.Data, data[offset:offset+dataLen])
	a.Value = binary.LittleEndian.Uint64(data[offset+dataLen:])

	return a, nil
}

// isZero reports whether every byte of b is zero.
func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}

	return true
}
