package registry

import (
	"fmt"

	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
)

// Universe is an owned grouping of warper registrations.
type Universe struct {
	ID    uint64        `json:"id"`
	Name  string        `json:"name"`
	Owner ident.Address `json:"owner"`
}

// CreateUniverse creates a universe owned by caller and returns its id.
func (r *Registry) CreateUniverse(tx *ledger.Tx, caller ident.Address, name string) (uint64, error) {
	id, err := tx.NextID("universe")
	if err != nil {
		return 0, err
	}

	if err := r.writeUniverse(tx, Universe{ID: id, Name: name, Owner: caller}); err != nil {
		return 0, err
	}

	logger.Info("universe created", "id", id, "name", name, "owner", caller)

	return id, nil
}

// Universe returns the universe with the given id.
func (r *Registry) Universe(tx *ledger.Tx, id uint64) (Universe, error) {
	raw, err := tx.Get(ledger.Key(prefixUniverse, ledger.U64(id)))
	if err != nil {
		return Universe{}, err
	}

	if len(raw) < ident.AddressSize {
		return Universe{}, fmt.Errorf("universe %d:\n%w", id, ErrUnknownUniverse)
	}

	u := Universe{ID: id, Name: string(raw[ident.AddressSize:])}
	copy(u.Owner[:], raw[:ident.AddressSize])

	return u, nil
}

// UniverseOwner returns the owner of universe id.
func (r *Registry) UniverseOwner(tx *ledger.Tx, id uint64) (ident.Address, error) {
	u, err := r.Universe(tx, id)
	return u.Owner, err
}

// TransferUniverse hands ownership of universe id to newOwner.
func (r *Registry) TransferUniverse(tx *ledger.Tx, caller ident.Address, id uint64, newOwner ident.Address) error {
	u, err := r.Universe(tx, id)
	if err != nil {
		return err
	}

	if u.Owner != caller {
		return fmt.Errorf("caller %s:\n%w", caller, ErrNotUniverseOwner)
	}

	if newOwner.IsZero() {
		return fmt.Errorf("zero new owner:\n%w", ErrNotUniverseOwner)
	}

	u.Owner = newOwner
	if err := r.writeUniverse(tx, u); err != nil {
		return err
	}

	logger.Info("universe transferred", "id", id, "from", caller, "to", newOwner)

	return nil
}

// checkUniverseOwner fails unless caller owns universe id.
func (r *Registry) checkUniverseOwner(tx *ledger.Tx, id uint64, caller ident.Address) error {
	owner, err := r.UniverseOwner(tx, id)
	if err != nil {
		return err
	}

	if owner != caller {
		return fmt.Errorf("universe %d, caller %s:\n%w", id, caller, ErrNotUniverseOwner)
	}

	return nil
}

// writeUniverse stores owner || name.
func (r *Registry) writeUniverse(tx *ledger.Tx, u Universe) error {
	value := append(u.Owner.Bytes(), u.Name...)
	return tx.Set(ledger.Key(prefixUniverse, ledger.U64(u.ID)), value)
}
