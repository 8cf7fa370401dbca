package warper

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
)

var (
	ErrMethodNotAllowed               = errors.New("method not allowed")
	ErrApproveToCaller                = errors.New("approve to caller")
	ErrCallerIsNotWarperAdmin         = errors.New("caller is not warper admin")
	ErrCallerIsNotMetahub             = errors.New("caller is not metahub")
	ErrAlreadyInitialized             = errors.New("warper already initialized")
	ErrNotInitialized                 = errors.New("warper not initialized")
	ErrOwnerQueryForNonexistentToken  = errors.New("owner query for nonexistent token")
	ErrBalanceQueryForZeroAddress     = errors.New("balance query for the zero address")
	ErrTokenAlreadyMinted             = errors.New("token already minted")
	ErrNotOwnerNorApproved            = errors.New("transfer caller is not owner nor approved")
	ErrTransferFromIncorrectOwner     = errors.New("transfer from incorrect owner")
	ErrTransferToZeroAddress          = errors.New("transfer to the zero address")
	ErrInvalidStatusTransition        = errors.New("invalid rental status transition")
	ErrInvalidAvailabilityPeriodStart = errors.New("invalid availability period start")
	ErrInvalidAvailabilityPeriodEnd   = errors.New("invalid availability period end")
	ErrInvalidMinRentalPeriod         = errors.New("invalid min rental period")
	ErrInvalidMaxRentalPeriod         = errors.New("invalid max rental period")
)

// RentalStatus is the per-token rental state.
type RentalStatus uint8

const (
	StatusNone RentalStatus = iota
	StatusAvailable
	StatusRented
)

// String returns the status name.
func (s RentalStatus) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusAvailable:
		return "AVAILABLE"
	case StatusRented:
		return "RENTED"
	default:
		return fmt.Sprintf("RentalStatus(%d)", uint8(s))
	}
}

// Key prefixes. Every key continues with the warper address.
const (
	prefixInit     = "w:i:"  // -> original || metahub
	prefixParams   = "w:p:"  // -> Params
	prefixOwner    = "w:o:"  // <id> -> owner
	prefixBalance  = "w:b:"  // <owner> -> u64
	prefixStatus   = "w:s:"  // <id> -> status byte
	prefixApproved = "w:a:"  // <id> -> approved
	prefixOperator = "w:op:" // <owner><operator> -> 0x01
)

// AdminChecker decides who may change a warper's parameters.
type AdminChecker interface {
	IsWarperAdmin(tx *ledger.Tx, warper, caller ident.Address) (bool, error)
}

// Params are the admin-configurable extension bounds, in seconds.
// Invariants: AvailabilityPeriodStart < AvailabilityPeriodEnd and
// MinRentalPeriod <= MaxRentalPeriod.
type Params struct {
	AvailabilityPeriodStart uint32 `json:"availabilityPeriodStart"`
	AvailabilityPeriodEnd   uint32 `json:"availabilityPeriodEnd"`
	MinRentalPeriod         uint32 `json:"minRentalPeriod"`
	MaxRentalPeriod         uint32 `json:"maxRentalPeriod"`
}

// DefaultParams leaves both windows fully open.
func DefaultParams() Params {
	return Params{
		AvailabilityPeriodStart: 0,
		AvailabilityPeriodEnd:   math.MaxUint32,
		MinRentalPeriod:         0,
		MaxRentalPeriod:         math.MaxUint32,
	}
}

// Warper is one deployed rental-rights token instance.
type Warper struct {
	addr      ident.Address // addr is the instance address
	blueprint *Blueprint    // blueprint is the preset logic shared across instances
	admin     AdminChecker  // admin gates parameter setters
}

// New binds an instance address to its preset logic.
func New(addr ident.Address, blueprint *Blueprint, admin AdminChecker) *Warper {
	return &Warper{addr: addr, blueprint: blueprint, admin: admin}
}

// Address returns the instance address.
func (w *Warper) Address() ident.Address {
	return w.addr
}

// Blueprint returns the preset logic.
func (w *Warper) Blueprint() *Blueprint {
	return w.blueprint
}

// SupportsInterface answers capability queries from the preset's declaration.
func (w *Warper) SupportsInterface(id ident.Selector) bool {
	return w.blueprint.SupportsInterface(id)
}

// Initialize records the original collection and the metahub. It runs once.
func (w *Warper) Initialize(tx *ledger.Tx, original, metahub ident.Address) error {
	key := ledger.Key(prefixInit, w.addr[:])

	done, err := tx.Has(key)
	if err != nil {
		return err
	}

	if done {
		return fmt.Errorf("warper %s:\n%w", w.addr, ErrAlreadyInitialized)
	}

	if err := tx.Set(key, append(original.Bytes(), metahub.Bytes()...)); err != nil {
		return err
	}

	return w.writeParams(tx, DefaultParams())
}

// Original returns the collection this warper mirrors.
func (w *Warper) Original(tx *ledger.Tx) (ident.Address, error) {
	original, _, err := w.init(tx)
	return original, err
}

// Metahub returns the only identity allowed to mint and drive rentals.
func (w *Warper) Metahub(tx *ledger.Tx) (ident.Address, error) {
	_, metahub, err := w.init(tx)
	return metahub, err
}

// OwnerOf returns the holder of token id.
func (w *Warper) OwnerOf(tx *ledger.Tx, id uint64) (ident.Address, error) {
	raw, err := tx.Get(w.idKey(prefixOwner, id))
	if err != nil {
		return ident.Address{}, err
	}

	if raw == nil {
		return ident.Address{}, fmt.Errorf("token %d:\n%w", id, ErrOwnerQueryForNonexistentToken)
	}

	return ident.AddressFromBytes(raw)
}

// BalanceOf returns the number of tokens held by owner.
func (w *Warper) BalanceOf(tx *ledger.Tx, owner ident.Address) (uint64, error) {
	if owner.IsZero() {
		return 0, ErrBalanceQueryForZeroAddress
	}

	raw, err := tx.Get(w.addrKey(prefixBalance, owner))
	if err != nil {
		return 0, err
	}

	return ledger.ReadU64(raw), nil
}

// RentalStatus returns the rental state of token id.
func (w *Warper) RentalStatus(tx *ledger.Tx, id uint64) (RentalStatus, error) {
	raw, err := tx.Get(w.idKey(prefixStatus, id))
	if err != nil {
		return StatusNone, err
	}

	if len(raw) != 1 {
		return StatusNone, nil
	}

	return RentalStatus(raw[0]), nil
}

// Mint creates token id for to in the AVAILABLE state. Metahub only.
func (w *Warper) Mint(tx *ledger.Tx, caller, to ident.Address, id uint64) error {
	if err := w.onlyMetahub(tx, caller); err != nil {
		return err
	}

	if to.IsZero() {
		return ErrTransferToZeroAddress
	}

	status, err := w.RentalStatus(tx, id)
	if err != nil {
		return err
	}

	if status != StatusNone {
		return fmt.Errorf("token %d:\n%w", id, ErrTokenAlreadyMinted)
	}

	if err := tx.Set(w.idKey(prefixOwner, id), to.Bytes()); err != nil {
		return err
	}

	if err := w.addBalance(tx, to, 1); err != nil {
		return err
	}

	return w.setStatus(tx, id, StatusAvailable)
}

// StartRental moves token id to renter and marks it RENTED. Metahub only.
func (w *Warper) StartRental(tx *ledger.Tx, caller, renter ident.Address, id uint64) error {
	if err := w.onlyMetahub(tx, caller); err != nil {
		return err
	}

	if err := w.transition(tx, id, StatusAvailable, StatusRented); err != nil {
		return err
	}

	holder, err := w.OwnerOf(tx, id)
	if err != nil {
		return err
	}

	return w.move(tx, holder, renter, id)
}

// EndRental takes token id back to the metahub and marks it AVAILABLE. Metahub only.
func (w *Warper) EndRental(tx *ledger.Tx, caller ident.Address, id uint64) error {
	if err := w.onlyMetahub(tx, caller); err != nil {
		return err
	}

	if err := w.transition(tx, id, StatusRented, StatusAvailable); err != nil {
		return err
	}

	holder, err := w.OwnerOf(tx, id)
	if err != nil {
		return err
	}

	return w.move(tx, holder, caller, id)
}

// Approve lets to move token id. Disabled on restricted presets.
func (w *Warper) Approve(tx *ledger.Tx, caller, to ident.Address, id uint64) error {
	if w.blueprint.Policy.Approvals == ApprovalsDisabled {
		return ErrMethodNotAllowed
	}

	owner, err := w.OwnerOf(tx, id)
	if err != nil {
		return err
	}

	if to == owner {
		return ErrApproveToCaller
	}

	if caller != owner {
		ok, err := w.isOperator(tx, owner, caller)
		if err != nil {
			return err
		}

		if !ok {
			return ErrNotOwnerNorApproved
		}
	}

	return tx.Set(w.idKey(prefixApproved, id), to.Bytes())
}

// SetApprovalForAll lets operator move every token of caller. Disabled on restricted presets.
func (w *Warper) SetApprovalForAll(tx *ledger.Tx, caller, operator ident.Address, approved bool) error {
	if w.blueprint.Policy.Approvals == ApprovalsDisabled {
		return ErrMethodNotAllowed
	}

	if operator == caller {
		return ErrApproveToCaller
	}

	key := w.pairKey(caller, operator)
	if approved {
		return tx.Set(key, []byte{1})
	}

	return tx.Delete(key)
}

// GetApproved returns the approved account of token id. Disabled on restricted presets.
func (w *Warper) GetApproved(tx *ledger.Tx, id uint64) (ident.Address, error) {
	if w.blueprint.Policy.Approvals == ApprovalsDisabled {
		return ident.Address{}, ErrMethodNotAllowed
	}

	if _, err := w.OwnerOf(tx, id); err != nil {
		return ident.Address{}, err
	}

	raw, err := tx.Get(w.idKey(prefixApproved, id))
	if err != nil || raw == nil {
		return ident.Address{}, err
	}

	return ident.AddressFromBytes(raw)
}

// IsApprovedForAll reports whether operator may move owner's tokens. Disabled on restricted presets.
func (w *Warper) IsApprovedForAll(tx *ledger.Tx, owner, operator ident.Address) (bool, error) {
	if w.blueprint.Policy.Approvals == ApprovalsDisabled {
		return false, ErrMethodNotAllowed
	}

	return w.isOperator(tx, owner, operator)
}

// TransferFrom moves token id. Restricted presets only accept the metahub as caller.
func (w *Warper) TransferFrom(tx *ledger.Tx, caller, from, to ident.Address, id uint64) error {
	owner, err := w.OwnerOf(tx, id)
	if err != nil {
		return err
	}

	if owner != from {
		return ErrTransferFromIncorrectOwner
	}

	if to.IsZero() {
		return ErrTransferToZeroAddress
	}

	switch w.blueprint.Policy.Transfers {
	case TransfersMetahubOnly:
		if err := w.onlyMetahub(tx, caller); err != nil {
			return err
		}
	default:
		if err := w.checkSpender(tx, caller, owner, id); err != nil {
			return err
		}
	}

	return w.move(tx, from, to, id)
}

// Params returns the current extension bounds.
func (w *Warper) Params(tx *ledger.Tx) (Params, error) {
	raw, err := tx.Get(ledger.Key(prefixParams, w.addr[:]))
	if err != nil {
		return Params{}, err
	}

	if len(raw) != 16 {
		return Params{}, fmt.Errorf("warper %s:\n%w", w.addr, ErrNotInitialized)
	}

	return Params{
		AvailabilityPeriodStart: binary.LittleEndian.Uint32(raw[0:4]),
		AvailabilityPeriodEnd:   binary.LittleEndian.Uint32(raw[4:8]),
		MinRentalPeriod:         binary.LittleEndian.Uint32(raw[8:12]),
		MaxRentalPeriod:         binary.LittleEndian.Uint32(raw[12:16]),
	}, nil
}

// AvailabilityPeriod returns the window in which rentals may start.
func (w *Warper) AvailabilityPeriod(tx *ledger.Tx) (start, end uint32, err error) {
	p, err := w.Params(tx)
	return p.AvailabilityPeriodStart, p.AvailabilityPeriodEnd, err
}

// RentalPeriod returns the accepted rental duration range in seconds.
func (w *Warper) RentalPeriod(tx *ledger.Tx) (shortest, longest uint32, err error) {
	p, err := w.Params(tx)
	return p.MinRentalPeriod, p.MaxRentalPeriod, err
}

// SetAvailabilityPeriodStart sets the first second rentals may start.
func (w *Warper) SetAvailabilityPeriodStart(tx *ledger.Tx, caller ident.Address, start uint32) error {
	return w.updateParams(tx, caller, func(p *Params) error {
		if start >= p.AvailabilityPeriodEnd {
			return ErrInvalidAvailabilityPeriodStart
		}
		p.AvailabilityPeriodStart = start
		return nil
	})
}

// SetAvailabilityPeriodEnd sets the last second rentals may start.
func (w *Warper) SetAvailabilityPeriodEnd(tx *ledger.Tx, caller ident.Address, end uint32) error {
	return w.updateParams(tx, caller, func(p *Params) error {
		if p.AvailabilityPeriodStart >= end {
			return ErrInvalidAvailabilityPeriodEnd
		}
		p.AvailabilityPeriodEnd = end
		return nil
	})
}

// SetMinRentalPeriod sets the shortest allowed rental.
func (w *Warper) SetMinRentalPeriod(tx *ledger.Tx, caller ident.Address, min uint32) error {
	return w.updateParams(tx, caller, func(p *Params) error {
		if min > p.MaxRentalPeriod {
			return ErrInvalidMinRentalPeriod
		}
		p.MinRentalPeriod = min
		return nil
	})
}

// SetMaxRentalPeriod sets the longest allowed rental.
func (w *Warper) SetMaxRentalPeriod(tx *ledger.Tx, caller ident.Address, max uint32) error {
	return w.updateParams(tx, caller, func(p *Params) error {
		if p.MinRentalPeriod > max {
			return ErrInvalidMaxRentalPeriod
		}
		p.MaxRentalPeriod = max
		return nil
	})
}

// updateParams checks admin rights, applies change to a copy and writes it
// back only if change accepted it.
func (w *Warper) updateParams(tx *ledger.Tx, caller ident.Address, change func(p *Params) error) error {
	ok, err := w.admin.IsWarperAdmin(tx, w.addr, caller)
	if err != nil {
		return fmt.Errorf("check warper admin:\n%w", err)
	}

	if !ok {
		return fmt.Errorf("caller %s:\n%w", caller, ErrCallerIsNotWarperAdmin)
	}

	params, err := w.Params(tx)
	if err != nil {
		return err
	}

	if err := change(&params); err != nil {
		return err
	}

	if err := w.writeParams(tx, params); err != nil {
		return err
	}

	logger.Info("warper params updated", "warper", w.addr, "by", caller,
		"availability", fmt.Sprintf("[%d,%d]", params.AvailabilityPeriodStart, params.AvailabilityPeriodEnd),
		"rental", fmt.Sprintf("[%d,%d]", params.MinRentalPeriod, params.MaxRentalPeriod),
	)

	return nil
}

// writeParams stores p as four little-endian u32.
func (w *Warper) writeParams(tx *ledger.Tx, p Params) error {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], p.AvailabilityPeriodStart)
	binary.LittleEndian.PutUint32(buf[4:8], p.AvailabilityPeriodEnd)
	binary.LittleEndian.PutUint32(buf[8:12], p.MinRentalPeriod)
	binary.LittleEndian.PutUint32(buf[12:16], p.MaxRentalPeriod)

	return tx.Set(ledger.Key(prefixParams, w.addr[:]), buf)
}

// init reads the initialization record.
func (w *Warper) init(tx *ledger.Tx) (original, metahub ident.Address, err error) {
	raw, err := tx.Get(ledger.Key(prefixInit, w.addr[:]))
	if err != nil {
		return original, metahub, err
	}

	if len(raw) != 2*ident.AddressSize {
		return original, metahub, fmt.Errorf("warper %s:\n%w", w.addr, ErrNotInitialized)
	}

	copy(original[:], raw[:ident.AddressSize])
	copy(metahub[:], raw[ident.AddressSize:])

	return original, metahub, nil
}

// onlyMetahub rejects every caller but the metahub.
func (w *Warper) onlyMetahub(tx *ledger.Tx, caller ident.Address) error {
	metahub, err := w.Metahub(tx)
	if err != nil {
		return err
	}

	if caller != metahub {
		return fmt.Errorf("caller %s:\n%w", caller, ErrCallerIsNotMetahub)
	}

	return nil
}

// transition moves token id from one status to the next, rejecting anything else.
func (w *Warper) transition(tx *ledger.Tx, id uint64, from, to RentalStatus) error {
	current, err := w.RentalStatus(tx, id)
	if err != nil {
		return err
	}

	if current != from {
		return fmt.Errorf("token %d is %s, want %s:\n%w", id, current, from, ErrInvalidStatusTransition)
	}

	return w.setStatus(tx, id, to)
}

// setStatus writes the status byte.
func (w *Warper) setStatus(tx *ledger.Tx, id uint64, s RentalStatus) error {
	return tx.Set(w.idKey(prefixStatus, id), []byte{byte(s)})
}

// checkSpender allows the owner, the approved account and operators.
func (w *Warper) checkSpender(tx *ledger.Tx, caller, owner ident.Address, id uint64) error {
	if caller == owner {
		return nil
	}

	raw, err := tx.Get(w.idKey(prefixApproved, id))
	if err != nil {
		return err
	}

	if len(raw) == ident.AddressSize && ident.Address(raw) == caller {
		return nil
	}

	ok, err := w.isOperator(tx, owner, caller)
	if err != nil {
		return err
	}

	if !ok {
		return ErrNotOwnerNorApproved
	}

	return nil
}

// isOperator reads the operator flag.
func (w *Warper) isOperator(tx *ledger.Tx, owner, operator ident.Address) (bool, error) {
	return tx.Has(w.pairKey(owner, operator))
}

// move changes the holder of id, updating balances and clearing approval.
func (w *Warper) move(tx *ledger.Tx, from, to ident.Address, id uint64) error {
	if from == to {
		return nil
	}

	if err := tx.Delete(w.idKey(prefixApproved, id)); err != nil {
		return err
	}

	if err := w.addBalance(tx, from, -1); err != nil {
		return err
	}

	if err := w.addBalance(tx, to, 1); err != nil {
		return err
	}

	return tx.Set(w.idKey(prefixOwner, id), to.Bytes())
}

// addBalance adjusts the balance of owner by delta.
func (w *Warper) addBalance(tx *ledger.Tx, owner ident.Address, delta int64) error {
	key := w.addrKey(prefixBalance, owner)

	raw, err := tx.Get(key)
	if err != nil {
		return err
	}

	balance := ledger.ReadU64(raw)
	if delta < 0 && balance == 0 {
		return fmt.Errorf("balance underflow for %s", owner)
	}

	return tx.Set(key, ledger.U64(uint64(int64(balance)+delta)))
}

// idKey builds <prefix><warper><id>.
func (w *Warper) idKey(prefix string, id uint64) []byte {
	return ledger.Key(prefix, w.addr[:], ledger.U64(id))
}

// addrKey builds <prefix><warper><account>.
func (w *Warper) addrKey(prefix string, a ident.Address) []byte {
	return ledger.Key(prefix, w.addr[:], a[:])
}

// pairKey builds the operator key for owner and operator.
func (w *Warper) pairKey(owner, operator ident.Address) []byte {
	return ledger.Key(prefixOperator, w.addr[:], owner[:], operator[:])
}
