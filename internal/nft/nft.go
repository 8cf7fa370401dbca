package nft

import (
	"errors"
	"fmt"

	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
)

// ReceivedSelector is the acknowledgment a receiver must return from OnERC721Received.
var ReceivedSelector = ident.SelectorOf("onERC721Received(address,address,uint256,bytes)")

var (
	// ErrUnknownCollection is returned for an address that is not a collection.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrNonexistentToken is returned when a token id was never minted.
	ErrNonexistentToken = errors.New("nonexistent token")

	// ErrTokenExists is returned when minting an already minted id.
	ErrTokenExists = errors.New("token already minted")

	// ErrNotCreator is returned when a non-creator mints.
	ErrNotCreator = errors.New("caller is not the collection creator")

	// ErrNotOwnerNorApproved is returned when the caller may not move the token.
	ErrNotOwnerNorApproved = errors.New("caller is not owner nor approved")

	// ErrWrongFrom is returned when from is not the current owner.
	ErrWrongFrom = errors.New("transfer from incorrect owner")

	// ErrZeroAddress is returned for transfers or mints to the zero address.
	ErrZeroAddress = errors.New("zero address recipient")

	// ErrTransferRejected is returned when a receiver hook refuses the hand-off.
	ErrTransferRejected = errors.New("transfer rejected by receiver")
)

// Key prefixes.
const (
	prefixCollection = "nft:c:"  // nft:c:<collection> -> creator || name
	prefixOwner      = "nft:o:"  // nft:o:<collection><id> -> owner
	prefixOperator   = "nft:op:" // nft:op:<collection><owner><operator> -> 0x01
)

// Receiver accepts tokens through the safe-transfer hook.
type Receiver interface {
	// OnERC721Received is invoked after ownership moved to the receiver.
	// Returning anything but ReceivedSelector, or an error, aborts the transfer.
	OnERC721Received(tx *ledger.Tx, collection, operator, from ident.Address, tokenID uint64, data []byte) (ident.Selector, error)
}

// Book holds every original collection and the receivers living at addresses.
type Book struct {
	receivers map[ident.Address]Receiver // receivers maps component addresses to hooks
}

// NewBook creates an empty collection book.
func NewBook() *Book {
	return &Book{receivers: make(map[ident.Address]Receiver)}
}

// RegisterReceiver installs the hook run when tokens are safely sent to addr.
func (b *Book) RegisterReceiver(addr ident.Address, r Receiver) {
	b.receivers[addr] = r
}

// CreateCollection deploys a new collection owned by creator.
func (b *Book) CreateCollection(tx *ledger.Tx, creator ident.Address, name string) (ident.Address, error) {
	nonce, err := tx.NextID("collection")
	if err != nil {
		return ident.Address{}, err
	}

	addr := ident.Derive("collection", nonce)

	value := append(creator.Bytes(), name...)
	if err := tx.Set(ledger.Key(prefixCollection, addr[:]), value); err != nil {
		return ident.Address{}, err
	}

	logger.Info("collection created", "collection", addr, "name", name, "creator", creator)

	return addr, nil
}

// Mint creates token id for to. Only the collection creator may mint.
func (b *Book) Mint(tx *ledger.Tx, caller, collection, to ident.Address, id uint64) error {
	creator, err := b.creator(tx, collection)
	if err != nil {
		return err
	}

	if caller != creator {
		return ErrNotCreator
	}

	if to.IsZero() {
		return ErrZeroAddress
	}

	key := ownerKey(collection, id)

	exists, err := tx.Has(key)
	if err != nil {
		return err
	}

	if exists {
		return fmt.Errorf("token %d:\n%w", id, ErrTokenExists)
	}

	return tx.Set(key, to.Bytes())
}

// OwnerOf returns the holder of token id.
func (b *Book) OwnerOf(tx *ledger.Tx, collection ident.Address, id uint64) (ident.Address, error) {
	if _, err := b.creator(tx, collection); err != nil {
		return ident.Address{}, err
	}

	raw, err := tx.Get(ownerKey(collection, id))
	if err != nil {
		return ident.Address{}, err
	}

	if raw == nil {
		return ident.Address{}, fmt.Errorf("token %d:\n%w", id, ErrNonexistentToken)
	}

	return ident.AddressFromBytes(raw)
}

// SetApprovalForAll lets operator move every token caller holds in collection.
func (b *Book) SetApprovalForAll(tx *ledger.Tx, caller, collection, operator ident.Address, approved bool) error {
	if _, err := b.creator(tx, collection); err != nil {
		return err
	}

	key := ledger.Key(prefixOperator, collection[:], caller[:], operator[:])
	if approved {
		return tx.Set(key, []byte{1})
	}

	return tx.Delete(key)
}

// IsApprovedForAll reports whether operator may move owner's tokens.
func (b *Book) IsApprovedForAll(tx *ledger.Tx, collection, owner, operator ident.Address) (bool, error) {
	return tx.Has(ledger.Key(prefixOperator, collection[:], owner[:], operator[:]))
}

// TransferFrom moves token id from from to to on behalf of caller.
func (b *Book) TransferFrom(tx *ledger.Tx, caller, collection, from, to ident.Address, id uint64) error {
	owner, err := b.OwnerOf(tx, collection, id)
	if err != nil {
		return err
	}

	if owner != from {
		return ErrWrongFrom
	}

	if to.IsZero() {
		return ErrZeroAddress
	}

	if caller != owner {
		approved, err := b.IsApprovedForAll(tx, collection, owner, caller)
		if err != nil {
			return err
		}

		if !approved {
			return ErrNotOwnerNorApproved
		}
	}

	return tx.Set(ownerKey(collection, id), to.Bytes())
}

// SafeTransferFrom transfers like TransferFrom, then runs the receiver hook
// when to is a registered receiver. A missing or wrong acknowledgment fails
// the call; the caller's transaction must then be discarded.
func (b *Book) SafeTransferFrom(tx *ledger.Tx, caller, collection, from, to ident.Address, id uint64, data []byte) error {
	if err := b.TransferFrom(tx, caller, collection, from, to, id); err != nil {
		return err
	}

	receiver, ok := b.receivers[to]
	if !ok {
		return nil
	}

	ack, err := receiver.OnERC721Received(tx, collection, caller, from, id, data)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrTransferRejected, err)
	}

	if ack != ReceivedSelector {
		return fmt.Errorf("bad acknowledgment %s:\n%w", ack, ErrTransferRejected)
	}

	return nil
}

// creator returns the creator of collection.
func (b *Book) creator(tx *ledger.Tx, collection ident.Address) (ident.Address, error) {
	raw, err := tx.Get(ledger.Key(prefixCollection, collection[:]))
	if err != nil {
		return ident.Address{}, err
	}

	if len(raw) < ident.AddressSize {
		return ident.Address{}, fmt.Errorf("collection %s:\n%w", collection, ErrUnknownCollection)
	}

	return ident.AddressFromBytes(raw[:ident.AddressSize])
}

// ownerKey builds nft:o:<collection><id>.
func ownerKey(collection ident.Address, id uint64) []byte {
	return ledger.Key(prefixOwner, collection[:], ledger.U64(id))
}
