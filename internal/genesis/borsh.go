package genesis

import (
	"encoding/binary"
	"fmt"

	"Warpgate/internal/ident"
)

// Manifest is the record written by the one-time bootstrap.
type Manifest struct {
	Admin       ident.Address // Admin received ADMIN and SUPERVISOR
	Generations uint32        // Generations counts deployed custody pairs
	Presets     []string      // Presets lists the registered preset ids
}

// EncodeManifest encodes m in Borsh format.
// Format: [u8; 20] admin + u32 generations + u32 count + (u32 len + bytes)*
func EncodeManifest(m Manifest) []byte {
	buf := make([]byte, 0, ident.AddressSize+8+16*len(m.Presets))
	buf = append(buf, m.Admin[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, m.Generations)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.Presets)))

	for _, p := range m.Presets {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p)))
		buf = append(buf, p...)
	}

	return buf
}

// DecodeManifest decodes a manifest from Borsh format.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest

	if len(data) < ident.AddressSize+8 {
		return m, fmt.Errorf("manifest too short: %d bytes", len(data))
	}

	copy(m.Admin[:], data[:ident.AddressSize])
	offset := ident.AddressSize

	m.Generations = binary.LittleEndian.Uint32(data[offset:])
	count := binary.LittleEndian.Uint32(data[offset+4:])
	offset += 8

	for i := uint32(0); i < count; i++ {
		if len(data) < offset+4 {
			return m, fmt.Errorf("manifest truncated at preset %d", i)
		}

		n := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4

		if len(data) < offset+n {
			return m, fmt.Errorf("manifest truncated in preset %d", i)
		}

		m.Presets = append(m.Presets, string(data[offset:offset+n]))
		offset += n
	}

	return m, nil
}
