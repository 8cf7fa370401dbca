package controller

import (
	"errors"
	"fmt"

	"Warpgate/internal/asset"
	"Warpgate/internal/assetclass"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
	"Warpgate/internal/nft"
	"Warpgate/internal/warper"
)

// ErrIncompatibleAsset is returned when an asset does not resolve to a live item of the class.
var ErrIncompatibleAsset = errors.New("incompatible asset")

// ERC721Controller moves unique items between holders and the ERC721 vault.
// It acts with the identity of the operator that drives rentals.
type ERC721Controller struct {
	addr     ident.Address // addr is the controller's own address
	operator ident.Address // operator is the identity used for collection calls
	book     *nft.Book     // book is the collection ledger
}

// NewERC721 creates a controller acting as operator on book.
func NewERC721(addr, operator ident.Address, book *nft.Book) *ERC721Controller {
	return &ERC721Controller{
		addr:     addr,
		operator: operator,
		book:     book,
	}
}

// Address returns the controller address.
func (c *ERC721Controller) Address() ident.Address {
	return c.addr
}

// Class returns the ERC721 class id.
func (c *ERC721Controller) Class() ident.Selector {
	return asset.ERC721
}

// ValidateAsset checks layout, magnitude and that the item exists.
func (c *ERC721Controller) ValidateAsset(tx *ledger.Tx, a asset.Asset) error {
	_, _, err := c.decode(tx, a)
	return err
}

// Identify returns the collection and token id of a live item.
func (c *ERC721Controller) Identify(tx *ledger.Tx, a asset.Asset) (ident.Address, uint64, error) {
	return c.decode(tx, a)
}

// Holder returns the current holder of the original item.
func (c *ERC721Controller) Holder(tx *ledger.Tx, a asset.Asset) (ident.Address, error) {
	collection, id, err := c.decode(tx, a)
	if err != nil {
		return ident.Address{}, err
	}

	return c.book.OwnerOf(tx, collection, id)
}

// TransferAssetToVault safe-transfers the item from from to v.
// The vault's acceptance hook must acknowledge or the call fails.
func (c *ERC721Controller) TransferAssetToVault(tx *ledger.Tx, a asset.Asset, from ident.Address, v assetclass.Vault) error {
	collection, id, err := c.decode(tx, a)
	if err != nil {
		return err
	}

	if v.Class() != asset.ERC721 {
		return fmt.Errorf("vault %s serves class %s:\n%w", v.Address(), v.Class(), ErrIncompatibleAsset)
	}

	if err := c.book.SafeTransferFrom(tx, c.operator, collection, from, v.Address(), id, nil); err != nil {
		return fmt.Errorf("transfer to vault:\n%w", err)
	}

	logger.Debug("asset moved to vault", "asset", a, "from", from, "vault", v.Address().Short())

	return nil
}

// ReturnAssetFromVault releases the item from v to to.
func (c *ERC721Controller) ReturnAssetFromVault(tx *ledger.Tx, a asset.Asset, v assetclass.Vault, to ident.Address) error {
	if _, _, err := c.decode(tx, a); err != nil {
		return err
	}

	if err := v.ReleaseAsset(tx, c.operator, a, to); err != nil {
		return fmt.Errorf("return from vault:\n%w", err)
	}

	return nil
}

// IsCompatibleWarper reports whether candidate declares the rental-rights and
// holder-facing interfaces. Any introspection failure yields false.
func (c *ERC721Controller) IsCompatibleWarper(candidate assetclass.Introspector) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("warper introspection failed", "panic", r)
			ok = false
		}
	}()

	if candidate == nil {
		return false
	}

	return candidate.SupportsInterface(warper.InterfaceWarper) &&
		candidate.SupportsInterface(warper.InterfaceERC721)
}

// decode validates a and returns its collection and token id.
func (c *ERC721Controller) decode(tx *ledger.Tx, a asset.Asset) (ident.Address, uint64, error) {
	collection, id, err := asset.DecodeERC721(a)
	if err != nil {
		return ident.Address{}, 0, fmt.Errorf("%w:\n%w", ErrIncompatibleAsset, err)
	}

	if a.Value != 1 {
		return ident.Address{}, 0, fmt.Errorf("unique item value %d:\n%w", a.Value, ErrIncompatibleAsset)
	}

	if _, err := c.book.OwnerOf(tx, collection, id); err != nil {
		if errors.Is(err, nft.ErrUnknownCollection) || errors.Is(err, nft.ErrNonexistentToken) {
			return ident.Address{}, 0, fmt.Errorf("%w:\n%w", ErrIncompatibleAsset, err)
		}

		return ident.Address{}, 0, err
	}

	return collection, id, nil
}
