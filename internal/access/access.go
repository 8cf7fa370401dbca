package access

import (
	"errors"
	"fmt"

	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
)

// Role is a named capability. Membership is stored under the role's selector.
type Role string

const (
	// RoleAdmin is the root role; it grants and revokes every role.
	RoleAdmin Role = "ADMIN"

	// RoleSupervisor manages presets and protocol wiring.
	RoleSupervisor Role = "SUPERVISOR"
)

var (
	// ErrUnauthorized is matched by every UnauthorizedError.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyBootstrapped is returned when Bootstrap runs twice.
	ErrAlreadyBootstrapped = errors.New("access control already bootstrapped")

	// ErrLastAdmin is returned when revoking the only remaining admin.
	ErrLastAdmin = errors.New("cannot revoke the last admin")
)

// Key prefixes.
const (
	prefixMember = "acl:m:" // acl:m:<role><account> -> 0x01
	prefixCount  = "acl:n:" // acl:n:<role> -> u64 member count
	keyBootstrap = "acl:boot"
)

// UnauthorizedError names the role the caller is missing.
type UnauthorizedError struct {
	Account ident.Address // Account is the rejected caller
	Role    Role          // Role is the missing role
}

// Error implements error.
func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s is missing role %s", e.Account, e.Role)
}

// Is matches ErrUnauthorized.
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Checker is the capability check injected into other components.
type Checker interface {
	HasRole(tx *ledger.Tx, account ident.Address, role Role) (bool, error)
	CheckRole(tx *ledger.Tx, account ident.Address, role Role) error
}

// Registry stores role membership in the ledger. Results are never cached.
type Registry struct{}

// New creates an access control registry.
func New() *Registry {
	return &Registry{}
}

// Bootstrap grants ADMIN to admin. It may run exactly once per ledger.
func (r *Registry) Bootstrap(tx *ledger.Tx, admin ident.Address) error {
	done, err := tx.Has([]byte(keyBootstrap))
	if err != nil {
		return fmt.Errorf("read bootstrap flag:\n%w", err)
	}

	if done {
		return ErrAlreadyBootstrapped
	}

	if err := tx.Set([]byte(keyBootstrap), admin.Bytes()); err != nil {
		return err
	}

	if err := r.add(tx, admin, RoleAdmin); err != nil {
		return err
	}

	logger.Info("access control bootstrapped", "admin", admin)

	return nil
}

// Bootstrapped reports whether Bootstrap already ran.
func (r *Registry) Bootstrapped(tx *ledger.Tx) (bool, error) {
	return tx.Has([]byte(keyBootstrap))
}

// HasRole reports whether account currently holds role.
func (r *Registry) HasRole(tx *ledger.Tx, account ident.Address, role Role) (bool, error) {
	return tx.Has(memberKey(role, account))
}

// CheckRole returns an UnauthorizedError if account lacks role.
func (r *Registry) CheckRole(tx *ledger.Tx, account ident.Address, role Role) error {
	ok, err := r.HasRole(tx, account, role)
	if err != nil {
		return fmt.Errorf("read role %s:\n%w", role, err)
	}

	if !ok {
		return &UnauthorizedError{Account: account, Role: role}
	}

	return nil
}

// GrantRole adds account to role. Caller must hold ADMIN.
func (r *Registry) GrantRole(tx *ledger.Tx, caller, account ident.Address, role Role) error {
	if err := r.CheckRole(tx, caller, RoleAdmin); err != nil {
		return err
	}

	if err := r.add(tx, account, role); err != nil {
		return err
	}

	logger.Info("role granted", "role", role, "account", account, "by", caller)

	return nil
}

// RevokeRole removes account from role. Caller must hold ADMIN.
func (r *Registry) RevokeRole(tx *ledger.Tx, caller, account ident.Address, role Role) error {
	if err := r.CheckRole(tx, caller, RoleAdmin); err != nil {
		return err
	}

	has, err := r.HasRole(tx, account, role)
	if err != nil {
		return err
	}

	if !has {
		return nil
	}

	count, err := r.count(tx, role)
	if err != nil {
		return err
	}

	if role == RoleAdmin && count <= 1 {
		return ErrLastAdmin
	}

	if err := tx.Delete(memberKey(role, account)); err != nil {
		return err
	}

	if err := r.setCount(tx, role, count-1); err != nil {
		return err
	}

	logger.Info("role revoked", "role", role, "account", account, "by", caller)

	return nil
}

// add inserts a membership, keeping the member count.
func (r *Registry) add(tx *ledger.Tx, account ident.Address, role Role) error {
	has, err := r.HasRole(tx, account, role)
	if err != nil {
		return err
	}

	if has {
		return nil
	}

	if err := tx.Set(memberKey(role, account), []byte{1}); err != nil {
		return err
	}

	count, err := r.count(tx, role)
	if err != nil {
		return err
	}

	return r.setCount(tx, role, count+1)
}

// count reads the number of members of role.
func (r *Registry) count(tx *ledger.Tx, role Role) (uint64, error) {
	raw, err := tx.Get(countKey(role))
	if err != nil {
		return 0, err
	}

	return ledger.ReadU64(raw), nil
}

// setCount writes the number of members of role.
func (r *Registry) setCount(tx *ledger.Tx, role Role, n uint64) error {
	return tx.Set(countKey(role), ledger.U64(n))
}

// memberKey builds acl:m:<role selector><account>.
func memberKey(role Role, account ident.Address) []byte {
	sel := ident.SelectorOf(string(role))
	return ledger.Key(prefixMember, sel[:], account[:])
}

// countKey builds acl:n:<role selector>.
func countKey(role Role) []byte {
	sel := ident.SelectorOf(string(role))
	return ledger.Key(prefixCount, sel[:])
}
