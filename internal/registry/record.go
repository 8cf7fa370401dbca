package registry

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"Warpgate/internal/ident"
	"Warpgate/internal/types"
)

// presetRecord is the persisted state of a preset id.
type presetRecord struct {
	ID             string
	Implementation string
	Enabled        bool
}

// Registration describes a deployed warper and its manager state.
type Registration struct {
	Address    ident.Address  `json:"address"`
	Preset     string         `json:"preset"`
	Original   ident.Address  `json:"original"`
	Metahub    ident.Address  `json:"metahub"`
	AssetClass ident.Selector `json:"assetClass"`
	UniverseID uint64         `json:"universeId"`
	Registered bool           `json:"registered"`
	Paused     bool           `json:"paused"`
}

// encodePreset serializes a preset record.
func encodePreset(p presetRecord) []byte {
	builder := flatbuffers.NewBuilder(128)

	idOff := builder.CreateString(p.ID)
	implOff := builder.CreateString(p.Implementation)

	types.PresetStart(builder)
	types.PresetAddId(builder, idOff)
	types.PresetAddImplementation(builder, implOff)
	types.PresetAddEnabled(builder, p.Enabled)
	builder.Finish(types.PresetEnd(builder))

	return builder.FinishedBytes()
}

// decodePreset parses a preset record.
func decodePreset(data []byte) (p presetRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt preset record: %v", r)
		}
	}()

	fb := types.GetRootAsPreset(data, 0)

	return presetRecord{
		ID:             string(fb.Id()),
		Implementation: string(fb.Implementation()),
		Enabled:        fb.Enabled(),
	}, nil
}

// encodeRegistration serializes a warper record.
func encodeRegistration(reg Registration) []byte {
	builder := flatbuffers.NewBuilder(256)

	addrVec := builder.CreateByteVector(reg.Address[:])
	presetOff := builder.CreateString(reg.Preset)
	originalVec := builder.CreateByteVector(reg.Original[:])
	metahubVec := builder.CreateByteVector(reg.Metahub[:])
	classVec := builder.CreateByteVector(reg.AssetClass[:])

	types.WarperRecordStart(builder)
	types.WarperRecordAddAddress(builder, addrVec)
	types.WarperRecordAddPreset(builder, presetOff)
	types.WarperRecordAddOriginal(builder, originalVec)
	types.WarperRecordAddMetahub(builder, metahubVec)
	types.WarperRecordAddAssetClass(builder, classVec)
	types.WarperRecordAddUniverse(builder, reg.UniverseID)
	types.WarperRecordAddRegistered(builder, reg.Registered)
	types.WarperRecordAddPaused(builder, reg.Paused)
	builder.Finish(types.WarperRecordEnd(builder))

	return builder.FinishedBytes()
}

// decodeRegistration parses a warper record.
func decodeRegistration(data []byte) (reg Registration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt warper record: %v", r)
		}
	}()

	fb := types.GetRootAsWarperRecord(data, 0)

	if fb.AddressLength() != ident.AddressSize || fb.OriginalLength() != ident.AddressSize ||
		fb.MetahubLength() != ident.AddressSize || fb.AssetClassLength() != ident.SelectorSize {
		return Registration{}, fmt.Errorf("corrupt warper record: bad field sizes")
	}

	copy(reg.Address[:], fb.AddressBytes())
	copy(reg.Original[:], fb.OriginalBytes())
	copy(reg.Metahub[:], fb.MetahubBytes())
	copy(reg.AssetClass[:], fb.AssetClassBytes())
	reg.Preset = string(fb.Preset())
	reg.UniverseID = fb.Universe()
	reg.Registered = fb.Registered()
	reg.Paused = fb.Paused()

	return reg, nil
}
