package registry

import (
	"bytes"
	"fmt"

	"Warpgate/internal/access"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
)

// RegisterParams select where a warper is registered.
type RegisterParams struct {
	UniverseID uint64         // UniverseID is the owning universe
	AssetClass ident.Selector // AssetClass is the class of the original collection
}

// RegisterWarper makes a deployed warper usable by the metahub.
// Caller must own the target universe.
func (r *Registry) RegisterWarper(tx *ledger.Tx, caller, addr ident.Address, params RegisterParams) error {
	reg, err := r.Registration(tx, addr)
	if err != nil {
		return err
	}

	if reg.Registered {
		return fmt.Errorf("warper %s:\n%w", addr, ErrDuplicateWarper)
	}

	if err := r.checkUniverseOwner(tx, params.UniverseID, caller); err != nil {
		return err
	}

	if reg.Metahub != r.metahub {
		return fmt.Errorf("metahub %s:\n%w", reg.Metahub, ErrForeignMetahub)
	}

	controller, _, err := r.classes.Resolve(tx, params.AssetClass)
	if err != nil {
		return err
	}

	w, err := r.Load(tx, addr)
	if err != nil {
		return err
	}

	if !controller.IsCompatibleWarper(w) {
		return fmt.Errorf("warper %s for class %s:\n%w", addr, params.AssetClass, ErrIncompatibleImplementation)
	}

	reg.Registered = true
	reg.Paused = false
	reg.UniverseID = params.UniverseID
	reg.AssetClass = params.AssetClass

	if err := r.writeRegistration(tx, reg); err != nil {
		return err
	}

	if err := r.indexOriginal(tx, reg.Original, addr, true); err != nil {
		return err
	}

	logger.Info("warper registered",
		"warper", addr,
		"universe", params.UniverseID,
		"class", params.AssetClass,
		"original", reg.Original,
	)

	return nil
}

// DeregisterWarper stops future rentals through addr. Agreements already
// recorded still return through it.
func (r *Registry) DeregisterWarper(tx *ledger.Tx, caller, addr ident.Address) error {
	reg, err := r.registered(tx, addr)
	if err != nil {
		return err
	}

	if err := r.checkWarperAdmin(tx, reg, caller); err != nil {
		return err
	}

	reg.Registered = false
	reg.Paused = false

	if err := r.writeRegistration(tx, reg); err != nil {
		return err
	}

	if err := r.indexOriginal(tx, reg.Original, addr, false); err != nil {
		return err
	}

	logger.Info("warper deregistered", "warper", addr, "by", caller)

	return nil
}

// PauseWarper blocks new rentals through addr.
func (r *Registry) PauseWarper(tx *ledger.Tx, caller, addr ident.Address) error {
	return r.setPaused(tx, caller, addr, true)
}

// UnpauseWarper allows new rentals through addr again.
func (r *Registry) UnpauseWarper(tx *ledger.Tx, caller, addr ident.Address) error {
	return r.setPaused(tx, caller, addr, false)
}

// IsWarperAdmin reports whether caller may configure addr: the owner of its
// universe, or any ADMIN.
func (r *Registry) IsWarperAdmin(tx *ledger.Tx, addr, caller ident.Address) (bool, error) {
	reg, err := r.Registration(tx, addr)
	if err != nil {
		return false, err
	}

	if reg.Registered {
		owner, err := r.UniverseOwner(tx, reg.UniverseID)
		if err != nil {
			return false, err
		}

		if owner == caller {
			return true, nil
		}
	}

	return r.acl.HasRole(tx, caller, access.RoleAdmin)
}

// Registration returns the record of the warper deployed at addr.
func (r *Registry) Registration(tx *ledger.Tx, addr ident.Address) (Registration, error) {
	raw, err := tx.Get(ledger.Key(prefixWarper, addr[:]))
	if err != nil {
		return Registration{}, err
	}

	if raw == nil {
		return Registration{}, fmt.Errorf("warper %s:\n%w", addr, ErrUnknownWarper)
	}

	return decodeRegistration(raw)
}

// WarpersFor returns the registered warpers mirroring original.
func (r *Registry) WarpersFor(tx *ledger.Tx, original ident.Address) ([]ident.Address, error) {
	raw, err := tx.Get(ledger.Key(prefixOriginal, original[:]))
	if err != nil {
		return nil, err
	}

	out := make([]ident.Address, 0, len(raw)/ident.AddressSize)
	for off := 0; off+ident.AddressSize <= len(raw); off += ident.AddressSize {
		var a ident.Address
		copy(a[:], raw[off:off+ident.AddressSize])
		out = append(out, a)
	}

	return out, nil
}

// setPaused flips the pause flag of a registered warper.
func (r *Registry) setPaused(tx *ledger.Tx, caller, addr ident.Address, paused bool) error {
	reg, err := r.registered(tx, addr)
	if err != nil {
		return err
	}

	if err := r.checkWarperAdmin(tx, reg, caller); err != nil {
		return err
	}

	reg.Paused = paused
	if err := r.writeRegistration(tx, reg); err != nil {
		return err
	}

	logger.Info("warper pause updated", "warper", addr, "paused", paused, "by", caller)

	return nil
}

// registered returns the record of addr, failing unless it is registered.
func (r *Registry) registered(tx *ledger.Tx, addr ident.Address) (Registration, error) {
	reg, err := r.Registration(tx, addr)
	if err != nil {
		return Registration{}, err
	}

	if !reg.Registered {
		return Registration{}, fmt.Errorf("warper %s:\n%w", addr, ErrWarperNotRegistered)
	}

	return reg, nil
}

// checkWarperAdmin fails unless caller may manage reg.
func (r *Registry) checkWarperAdmin(tx *ledger.Tx, reg Registration, caller ident.Address) error {
	ok, err := r.IsWarperAdmin(tx, reg.Address, caller)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("universe %d, caller %s:\n%w", reg.UniverseID, caller, ErrNotUniverseOwner)
	}

	return nil
}

// writeRegistration stores reg under its address.
func (r *Registry) writeRegistration(tx *ledger.Tx, reg Registration) error {
	return tx.Set(ledger.Key(prefixWarper, reg.Address[:]), encodeRegistration(reg))
}

// indexOriginal adds or removes addr from the warpers of original.
func (r *Registry) indexOriginal(tx *ledger.Tx, original, addr ident.Address, add bool) error {
	key := ledger.Key(prefixOriginal, original[:])

	raw, err := tx.Get(key)
	if err != nil {
		return err
	}

	var out []byte
	for off := 0; off+ident.AddressSize <= len(raw); off += ident.AddressSize {
		if !bytes.Equal(raw[off:off+ident.AddressSize], addr[:]) {
			out = append(out, raw[off:off+ident.AddressSize]...)
		}
	}

	if add {
		out = append(out, addr[:]...)
	}

	if len(out) == 0 {
		return tx.Delete(key)
	}

	return tx.Set(key, out)
}
