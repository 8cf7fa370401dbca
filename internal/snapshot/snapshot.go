package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"Warpgate/internal/storage"
)

const (
	// formatVersion is the current snapshot format version.
	formatVersion = 1

	// checksumSize is the size of the trailing blake3 checksum.
	checksumSize = 32

	// headerSize is magic + u32 version + u64 entry count.
	headerSize = 4 + 4 + 8
)

// magic prefixes every decompressed snapshot.
var magic = []byte("WGSN")

var (
	// ErrChecksumMismatch is returned when the snapshot body does not match its checksum.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

	// ErrUnsupportedVersion is returned for snapshots written by an unknown format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrNotEmpty is returned when importing into a store that already holds data.
	ErrNotEmpty = errors.New("target storage is not empty")
)

// Info describes a snapshot.
type Info struct {
	Version  uint32   // Version is the format version
	Entries  uint64   // Entries is the number of key-value pairs
	Checksum [32]byte // Checksum is the blake3 digest of the body
}

// Create captures every key of db.
// Format (before zstd): "WGSN" + u32 version + u64 count + (u32 klen + key + u32 vlen + value)* + [32]byte blake3
func Create(db *storage.Storage) ([]byte, Info, error) {
	var (
		body  bytes.Buffer
		count uint64
		lenb  [4]byte
	)

	err := db.Iterate(func(key, value []byte) error {
		binary.LittleEndian.PutUint32(lenb[:], uint32(len(key)))
		body.Write(lenb[:])
		body.Write(key)

		binary.LittleEndian.PutUint32(lenb[:], uint32(len(value)))
		body.Write(lenb[:])
		body.Write(value)

		count++
		return nil
	})
	if err != nil {
		return nil, Info{}, fmt.Errorf("iterate storage:\n%w", err)
	}

	raw := make([]byte, 0, headerSize+body.Len()+checksumSize)
	raw = append(raw, magic...)
	raw = binary.LittleEndian.AppendUint32(raw, formatVersion)
	raw = binary.LittleEndian.AppendUint64(raw, count)
	raw = append(raw, body.Bytes()...)

	info := Info{Version: formatVersion, Entries: count, Checksum: blake3.Sum256(raw)}
	raw = append(raw, info.Checksum[:]...)

	compressed, err := compress(raw)
	if err != nil {
		return nil, Info{}, err
	}

	return compressed, info, nil
}

// Apply verifies data and writes its entries into db, which must be empty.
func Apply(db *storage.Storage, data []byte) (Info, error) {
	empty, err := isEmpty(db)
	if err != nil {
		return Info{}, err
	}

	if !empty {
		return Info{}, ErrNotEmpty
	}

	info, pairs, err := Decode(data)
	if err != nil {
		return Info{}, err
	}

	if err := db.SetBatch(pairs); err != nil {
		return Info{}, fmt.Errorf("write entries:\n%w", err)
	}

	return info, nil
}

// Decode decompresses and verifies data and returns its entries in key order.
func Decode(data []byte) (Info, []storage.KeyValue, error) {
	raw, err := decompress(data)
	if err != nil {
		return Info{}, nil, err
	}

	if len(raw) < headerSize+checksumSize || !bytes.Equal(raw[:4], magic) {
		return Info{}, nil, fmt.Errorf("not a snapshot: %d bytes", len(raw))
	}

	body, stored := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]

	info := Info{
		Version:  binary.LittleEndian.Uint32(body[4:]),
		Entries:  binary.LittleEndian.Uint64(body[8:]),
		Checksum: blake3.Sum256(body),
	}

	if !bytes.Equal(info.Checksum[:], stored) {
		return Info{}, nil, ErrChecksumMismatch
	}

	if info.Version != formatVersion {
		return Info{}, nil, fmt.Errorf("version %d:\n%w", info.Version, ErrUnsupportedVersion)
	}

	pairs, err := decodeEntries(body[headerSize:], info.Entries)
	if err != nil {
		return Info{}, nil, err
	}

	return info, pairs, nil
}

// decodeEntries parses count length-prefixed pairs from data.
func decodeEntries(data []byte, count uint64) ([]storage.KeyValue, error) {
	pairs := make([]storage.KeyValue, 0, min(count, 1<<16))

	for i := uint64(0); i < count; i++ {
		key, rest, err := readField(data)
		if err != nil {
			return nil, fmt.Errorf("entry %d key:\n%w", i, err)
		}

		value, rest, err := readField(rest)
		if err != nil {
			return nil, fmt.Errorf("entry %d value:\n%w", i, err)
		}

		pairs = append(pairs, storage.KeyValue{Key: key, Value: value})
		data = rest
	}

	if len(data) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after entries", len(data))
	}

	return pairs, nil
}

// readField reads one u32-prefixed field.
func readField(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("truncated length")
	}

	n := binary.LittleEndian.Uint32(data)
	data = data[4:]

	if uint64(len(data)) < uint64(n) {
		return nil, nil, fmt.Errorf("truncated field: want %d, have %d", n, len(data))
	}

	return data[:n], data[n:], nil
}

// WriteFile creates a snapshot of db at path.
func WriteFile(db *storage.Storage, path string) (Info, error) {
	data, info, err := Create(db)
	if err != nil {
		return Info{}, err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Info{}, fmt.Errorf("write snapshot:\n%w", err)
	}

	return info, nil
}

// ReadFile applies the snapshot stored at path to db.
func ReadFile(db *storage.Storage, path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("read snapshot:\n%w", err)
	}

	return Apply(db, data)
}

// isEmpty reports whether db holds no key.
func isEmpty(db *storage.Storage) (bool, error) {
	errFound := errors.New("found")

	err := db.Iterate(func(_, _ []byte) error {
		return errFound
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errFound):
		return false, nil
	default:
		return false, err
	}
}

// compress compresses data using zstd.
func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// decompress decompresses zstd data.
func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot:\n%w", err)
	}

	return out, nil
}
