package registry

import (
	"fmt"

	"Warpgate/internal/access"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
	"Warpgate/internal/warper"
)

// InitArgs are the one-time initialization arguments of a deployed warper.
type InitArgs struct {
	Original ident.Address // Original is the collection the warper mirrors
	Metahub  ident.Address // Metahub is the orchestrator allowed to drive rentals
}

// RegisterPreset binds presetID to bp. Caller must hold SUPERVISOR.
// An id can be registered once, whatever the implementation.
func (r *Registry) RegisterPreset(tx *ledger.Tx, caller ident.Address, presetID string, bp *warper.Blueprint) error {
	if err := r.acl.CheckRole(tx, caller, access.RoleSupervisor); err != nil {
		return err
	}

	key := ledger.Key(prefixPreset, []byte(presetID))

	exists, err := tx.Has(key)
	if err != nil {
		return err
	}

	if exists {
		return fmt.Errorf("preset %q:\n%w", presetID, ErrDuplicatePresetId)
	}

	if !declaresRentalSurface(bp) {
		return fmt.Errorf("preset %q:\n%w", presetID, ErrIncompatibleImplementation)
	}

	record := presetRecord{ID: presetID, Implementation: bp.Name, Enabled: true}
	if err := tx.Set(key, encodePreset(record)); err != nil {
		return err
	}

	tx.OnCommit(func() { r.AddBlueprint(bp) })

	logger.Info("preset registered", "preset", presetID, "implementation", bp.Name, "by", caller)

	return nil
}

// EnablePreset allows deployments from presetID. Caller must hold SUPERVISOR.
func (r *Registry) EnablePreset(tx *ledger.Tx, caller ident.Address, presetID string) error {
	return r.setPresetEnabled(tx, caller, presetID, true)
}

// DisablePreset blocks deployments from presetID. Deployed instances are unaffected.
func (r *Registry) DisablePreset(tx *ledger.Tx, caller ident.Address, presetID string) error {
	return r.setPresetEnabled(tx, caller, presetID, false)
}

// PresetEnabled reports whether presetID is registered and enabled.
func (r *Registry) PresetEnabled(tx *ledger.Tx, presetID string) (bool, error) {
	p, err := r.preset(tx, presetID)
	if err != nil {
		return false, err
	}

	return p.Enabled, nil
}

// DeployFromPreset creates a fresh warper sharing the preset's logic and
// initializes it with args. The new instance is not registered yet.
func (r *Registry) DeployFromPreset(tx *ledger.Tx, presetID string, args InitArgs) (*warper.Warper, error) {
	p, err := r.preset(tx, presetID)
	if err != nil {
		return nil, err
	}

	if !p.Enabled {
		return nil, fmt.Errorf("preset %q:\n%w", presetID, ErrPresetDisabled)
	}

	bp, ok := r.Blueprint(p.Implementation)
	if !ok {
		return nil, fmt.Errorf("implementation %q:\n%w", p.Implementation, ErrUnknownImplementation)
	}

	nonce, err := tx.NextID("warper")
	if err != nil {
		return nil, err
	}

	w := warper.New(ident.Derive("warper", nonce), bp, r)

	if err := w.Initialize(tx, args.Original, args.Metahub); err != nil {
		return nil, fmt.Errorf("initialize warper:\n%w", err)
	}

	reg := Registration{
		Address:  w.Address(),
		Preset:   presetID,
		Original: args.Original,
		Metahub:  args.Metahub,
	}

	if err := r.writeRegistration(tx, reg); err != nil {
		return nil, err
	}

	logger.Info("warper deployed", "warper", w.Address(), "preset", presetID, "original", args.Original)

	return w, nil
}

// Load rebuilds the warper deployed at addr.
func (r *Registry) Load(tx *ledger.Tx, addr ident.Address) (*warper.Warper, error) {
	reg, err := r.Registration(tx, addr)
	if err != nil {
		return nil, err
	}

	p, err := r.preset(tx, reg.Preset)
	if err != nil {
		return nil, err
	}

	bp, ok := r.Blueprint(p.Implementation)
	if !ok {
		return nil, fmt.Errorf("implementation %q:\n%w", p.Implementation, ErrUnknownImplementation)
	}

	return warper.New(addr, bp, r), nil
}

// setPresetEnabled flips the enabled flag of presetID.
func (r *Registry) setPresetEnabled(tx *ledger.Tx, caller ident.Address, presetID string, enabled bool) error {
	if err := r.acl.CheckRole(tx, caller, access.RoleSupervisor); err != nil {
		return err
	}

	p, err := r.preset(tx, presetID)
	if err != nil {
		return err
	}

	p.Enabled = enabled
	if err := tx.Set(ledger.Key(prefixPreset, []byte(presetID)), encodePreset(p)); err != nil {
		return err
	}

	logger.Info("preset updated", "preset", presetID, "enabled", enabled, "by", caller)

	return nil
}

// preset reads the record of presetID.
func (r *Registry) preset(tx *ledger.Tx, presetID string) (presetRecord, error) {
	raw, err := tx.Get(ledger.Key(prefixPreset, []byte(presetID)))
	if err != nil {
		return presetRecord{}, err
	}

	if raw == nil {
		return presetRecord{}, fmt.Errorf("preset %q:\n%w", presetID, ErrUnknownPreset)
	}

	return decodePreset(raw)
}

// declaresRentalSurface reports whether bp supports every rental-rights interface.
// A panicking implementation is incompatible.
func declaresRentalSurface(bp *warper.Blueprint) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	if bp == nil || bp.Name == "" {
		return false
	}

	return bp.SupportsInterface(warper.InterfaceWarper) &&
		bp.SupportsInterface(warper.InterfaceERC721) &&
		bp.SupportsInterface(warper.InterfaceAvailabilityPeriod) &&
		bp.SupportsInterface(warper.InterfaceRentalPeriod)
}
