package ledger

import "encoding/binary"

// Key builds a storage key: prefix followed by each part verbatim.
func Key(prefix string, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}

	key := make([]byte, 0, size)
	key = append(key, prefix...)

	for _, p := range parts {
		key = append(key, p...)
	}

	return key
}

// U64 encodes v as 8 big-endian bytes so keys sort numerically.
func U64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)

	return buf[:]
}

// ReadU64 decodes 8 big-endian bytes. Returns 0 for short input.
func ReadU64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}

	return binary.BigEndian.Uint64(b)
}
