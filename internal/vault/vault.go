package vault

import (
	"errors"
	"fmt"

	"Warpgate/internal/asset"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
	"Warpgate/internal/nft"
)

var (
	// ErrNotOperator is returned when anyone but the operator moves custody.
	ErrNotOperator = errors.New("caller is not the vault operator")

	// ErrAlreadyCustodied is returned when depositing an item already held.
	ErrAlreadyCustodied = errors.New("asset already in custody")

	// ErrNotCustodied is returned when releasing an item the vault does not hold.
	ErrNotCustodied = errors.New("asset not in custody")
)

// prefixCustody stores vc:<vault><asset key> -> depositor + encoded asset.
const prefixCustody = "vc:"

// ERC721Vault escrows unique items on behalf of a single operator.
type ERC721Vault struct {
	addr     ident.Address // addr is the vault's own address
	operator ident.Address // operator is the only identity allowed to move custody
	book     *nft.Book     // book is the collection ledger holding the originals
}

// NewERC721 creates a vault at addr and installs its acceptance hook in book.
// The operator is fixed for the lifetime of the vault.
func NewERC721(addr, operator ident.Address, book *nft.Book) *ERC721Vault {
	v := Prepare(addr, operator, book)
	v.Install()

	return v
}

// Prepare creates a vault without installing its acceptance hook.
// Until Install is called, book treats addr as a plain account.
func Prepare(addr, operator ident.Address, book *nft.Book) *ERC721Vault {
	return &ERC721Vault{
		addr:     addr,
		operator: operator,
		book:     book,
	}
}

// Install registers the vault's acceptance hook in its book.
func (v *ERC721Vault) Install() {
	v.book.RegisterReceiver(v.addr, v)
}

// Address returns the vault address.
func (v *ERC721Vault) Address() ident.Address {
	return v.addr
}

// Class returns the ERC721 class id.
func (v *ERC721Vault) Class() ident.Selector {
	return asset.ERC721
}

// Operator returns the immutable operator.
func (v *ERC721Vault) Operator() ident.Address {
	return v.operator
}

// OnERC721Received is the hand-off hook run by the collection after the
// token moved to the vault. It acknowledges only deposits made by the operator.
func (v *ERC721Vault) OnERC721Received(tx *ledger.Tx, collection, operator, from ident.Address, tokenID uint64, data []byte) (ident.Selector, error) {
	a := asset.NewERC721(collection, tokenID)

	if err := v.AcceptAsset(tx, operator, a, from); err != nil {
		return ident.Selector{}, err
	}

	return nft.ReceivedSelector, nil
}

// AcceptAsset records custody of a deposited by from.
// The item must already be held by the vault in the collection ledger.
func (v *ERC721Vault) AcceptAsset(tx *ledger.Tx, operator ident.Address, a asset.Asset, from ident.Address) error {
	if operator != v.operator {
		return fmt.Errorf("operator %s:\n%w", operator, ErrNotOperator)
	}

	collection, id, err := asset.DecodeERC721(a)
	if err != nil {
		return err
	}

	_, held, err := v.Custodian(tx, a)
	if err != nil {
		return err
	}

	if held {
		return fmt.Errorf("asset %s:\n%w", a, ErrAlreadyCustodied)
	}

	owner, err := v.book.OwnerOf(tx, collection, id)
	if err != nil {
		return fmt.Errorf("read original owner:\n%w", err)
	}

	if owner != v.addr {
		return fmt.Errorf("item is held by %s:\n%w", owner, ErrNotCustodied)
	}

	record := append(from.Bytes(), a.Encode()...)
	if err := tx.Set(custodyKey(v.addr, a), record); err != nil {
		return err
	}

	logger.Debug("asset custodied", "vault", v.addr.Short(), "asset", a, "from", from)

	return nil
}

// ReleaseAsset hands the item back to to and clears the custody record.
func (v *ERC721Vault) ReleaseAsset(tx *ledger.Tx, caller ident.Address, a asset.Asset, to ident.Address) error {
	if caller != v.operator {
		return fmt.Errorf("caller %s:\n%w", caller, ErrNotOperator)
	}

	_, held, err := v.Custodian(tx, a)
	if err != nil {
		return err
	}

	if !held {
		return fmt.Errorf("asset %s:\n%w", a, ErrNotCustodied)
	}

	collection, id, err := asset.DecodeERC721(a)
	if err != nil {
		return err
	}

	if err := v.book.TransferFrom(tx, v.addr, collection, v.addr, to, id); err != nil {
		return fmt.Errorf("release original:\n%w", err)
	}

	if err := tx.Delete(custodyKey(v.addr, a)); err != nil {
		return err
	}

	logger.Debug("asset released", "vault", v.addr.Short(), "asset", a, "to", to)

	return nil
}

// Custodian returns who deposited a, if the vault holds it.
func (v *ERC721Vault) Custodian(tx *ledger.Tx, a asset.Asset) (ident.Address, bool, error) {
	raw, err := tx.Get(custodyKey(v.addr, a))
	if err != nil {
		return ident.Address{}, false, err
	}

	if raw == nil {
		return ident.Address{}, false, nil
	}

	if len(raw) < ident.AddressSize {
		return ident.Address{}, false, fmt.Errorf("custody record of %s is %d bytes", a, len(raw))
	}

	depositor, err := ident.AddressFromBytes(raw[:ident.AddressSize])
	if err != nil {
		return ident.Address{}, false, err
	}

	stored, err := asset.Decode(raw[ident.AddressSize:])
	if err != nil {
		return ident.Address{}, false, fmt.Errorf("decode custody record:\n%w", err)
	}

	if !stored.Equal(a) {
		return ident.Address{}, false, fmt.Errorf("custody record holds %s, want %s", stored, a)
	}

	return depositor, true, nil
}

// custodyKey builds vc:<vault><asset key>.
func custodyKey(vault ident.Address, a asset.Asset) []byte {
	return ledger.Key(prefixCustody, vault[:], a.Key())
}
