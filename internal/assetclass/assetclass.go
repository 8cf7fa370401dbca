package assetclass

import (
	"errors"
	"fmt"

	"Warpgate/internal/access"
	"Warpgate/internal/asset"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
)

var (
	// ErrDuplicateClass is returned when registering a class twice.
	ErrDuplicateClass = errors.New("asset class already registered")

	// ErrUnknownClass is returned when resolving an unregistered class.
	ErrUnknownClass = errors.New("unknown asset class")

	// ErrClassMismatch is returned when an implementation serves another class.
	ErrClassMismatch = errors.New("implementation does not serve asset class")
)

// prefixClass stores ac:<class> -> controller || vault.
const prefixClass = "ac:"

// Introspector answers capability queries.
type Introspector interface {
	SupportsInterface(id ident.Selector) bool
}

// Vault holds escrowed originals of one class.
type Vault interface {
	Address() ident.Address
	Class() ident.Selector
	// ReleaseAsset hands custody of a back to to. Only the operator may call it.
	ReleaseAsset(tx *ledger.Tx, caller ident.Address, a asset.Asset, to ident.Address) error
	// Custodian returns the depositor of a while it is held.
	Custodian(tx *ledger.Tx, a asset.Asset) (ident.Address, bool, error)
}

// Controller bridges generic custody requests to class-specific mechanics.
type Controller interface {
	Address() ident.Address
	Class() ident.Selector
	// ValidateAsset checks that a resolves to a live item of this class.
	ValidateAsset(tx *ledger.Tx, a asset.Asset) error
	// Identify returns the original collection of a and the id its
	// rental-rights token uses.
	Identify(tx *ledger.Tx, a asset.Asset) (ident.Address, uint64, error)
	// Holder returns the current holder of the original item.
	Holder(tx *ledger.Tx, a asset.Asset) (ident.Address, error)
	// TransferAssetToVault moves a from from into v's custody.
	TransferAssetToVault(tx *ledger.Tx, a asset.Asset, from ident.Address, v Vault) error
	// ReturnAssetFromVault releases a from v to to.
	ReturnAssetFromVault(tx *ledger.Tx, a asset.Asset, v Vault, to ident.Address) error
	// IsCompatibleWarper inspects a rental-rights token. It never fails the caller.
	IsCompatibleWarper(candidate Introspector) bool
}

// Registry resolves asset classes to implementations.
type Registry struct {
	acl         access.Checker               // acl gates registration
	controllers map[ident.Address]Controller // controllers holds every implementation ever registered
	vaults      map[ident.Address]Vault      // vaults holds every vault ever registered
}

// New creates an asset class registry.
func New(acl access.Checker) *Registry {
	return &Registry{
		acl:         acl,
		controllers: make(map[ident.Address]Controller),
		vaults:      make(map[ident.Address]Vault),
	}
}

// Register binds class to a controller and vault. Caller must hold ADMIN.
func (r *Registry) Register(tx *ledger.Tx, caller ident.Address, class ident.Selector, c Controller, v Vault) error {
	if err := r.acl.CheckRole(tx, caller, access.RoleAdmin); err != nil {
		return err
	}

	exists, err := tx.Has(classKey(class))
	if err != nil {
		return err
	}

	if exists {
		return fmt.Errorf("class %s:\n%w", class, ErrDuplicateClass)
	}

	if err := r.bind(tx, class, c, v); err != nil {
		return err
	}

	logger.Info("asset class registered", "class", class, "controller", c.Address(), "vault", v.Address())

	return nil
}

// Reregister replaces the implementations of an existing class. Operations
// already in flight keep the vault recorded with them; only later calls to
// Resolve see the new binding.
func (r *Registry) Reregister(tx *ledger.Tx, caller ident.Address, class ident.Selector, c Controller, v Vault) error {
	if err := r.acl.CheckRole(tx, caller, access.RoleAdmin); err != nil {
		return err
	}

	exists, err := tx.Has(classKey(class))
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("class %s:\n%w", class, ErrUnknownClass)
	}

	if err := r.bind(tx, class, c, v); err != nil {
		return err
	}

	logger.Info("asset class reregistered", "class", class, "controller", c.Address(), "vault", v.Address())

	return nil
}

// IsRegistered reports whether class has a binding.
func (r *Registry) IsRegistered(tx *ledger.Tx, class ident.Selector) (bool, error) {
	return tx.Has(classKey(class))
}

// Resolve returns the current controller and vault of class.
func (r *Registry) Resolve(tx *ledger.Tx, class ident.Selector) (Controller, Vault, error) {
	raw, err := tx.Get(classKey(class))
	if err != nil {
		return nil, nil, err
	}

	if len(raw) != 2*ident.AddressSize {
		return nil, nil, fmt.Errorf("class %s:\n%w", class, ErrUnknownClass)
	}

	var cAddr, vAddr ident.Address
	copy(cAddr[:], raw[:ident.AddressSize])
	copy(vAddr[:], raw[ident.AddressSize:])

	c, ok := r.controllers[cAddr]
	if !ok {
		return nil, nil, fmt.Errorf("controller %s not loaded:\n%w", cAddr, ErrUnknownClass)
	}

	v, ok := r.vaults[vAddr]
	if !ok {
		return nil, nil, fmt.Errorf("vault %s not loaded:\n%w", vAddr, ErrUnknownClass)
	}

	return c, v, nil
}

// VaultAt returns a vault by address, including superseded ones.
func (r *Registry) VaultAt(addr ident.Address) (Vault, bool) {
	v, ok := r.vaults[addr]
	return v, ok
}

// ControllerAt returns a controller by address, including superseded ones.
func (r *Registry) ControllerAt(addr ident.Address) (Controller, bool) {
	c, ok := r.controllers[addr]
	return c, ok
}

// Load makes implementations addressable without touching the ledger.
// Used on restart so persisted bindings resolve again.
func (r *Registry) Load(c Controller, v Vault) {
	r.controllers[c.Address()] = c
	r.vaults[v.Address()] = v
}

// bind validates and stores a class binding.
func (r *Registry) bind(tx *ledger.Tx, class ident.Selector, c Controller, v Vault) error {
	if c.Class() != class || v.Class() != class {
		return fmt.Errorf("class %s:\n%w", class, ErrClassMismatch)
	}

	value := append(c.Address().Bytes(), v.Address().Bytes()...)
	if err := tx.Set(classKey(class), value); err != nil {
		return err
	}

	tx.OnCommit(func() { r.Load(c, v) })

	return nil
}

// classKey builds ac:<class>.
func classKey(class ident.Selector) []byte {
	return ledger.Key(prefixClass, class[:])
}
