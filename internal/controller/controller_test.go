package controller

import (
	"errors"
	"testing"

	"Warpgate/internal/asset"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/ledger/ledgertest"
	"Warpgate/internal/nft"
	"Warpgate/internal/vault"
	"Warpgate/internal/warper"
)

var (
	creator  = ident.Named("creator")
	lister   = ident.Named("lister")
	operator = ident.Named("metahub")
)

type fixture struct {
	l     *ledger.Ledger
	book  *nft.Book
	ctrl  *ERC721Controller
	vault *vault.ERC721Vault
	coll  ident.Address
}

// newFixture mints token 5 to lister and approves the operator.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{l: ledgertest.New(t), book: nft.NewBook()}
	f.ctrl = NewERC721(ident.Named("controller"), operator, f.book)
	f.vault = vault.NewERC721(ident.Named("vault"), operator, f.book)

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		var err error
		f.coll, err = f.book.CreateCollection(tx, creator, "apes")
		if err != nil {
			return err
		}
		if err := f.book.Mint(tx, creator, f.coll, lister, 5); err != nil {
			return err
		}
		return f.book.SetApprovalForAll(tx, lister, f.coll, operator, true)
	})

	return f
}

func TestValidateAsset(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		asset asset.Asset
		ok    bool
	}{
		{"live item", asset.NewERC721(f.coll, 5), true},
		{"missing token", asset.NewERC721(f.coll, 6), false},
		{"unknown collection", asset.NewERC721(ident.Named("nowhere"), 5), false},
		{"short data", asset.Asset{Class: asset.ERC721, Data: []byte{1, 2}, Value: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
				err := f.ctrl.ValidateAsset(tx, tt.asset)
				if tt.ok && err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if !tt.ok && !errors.Is(err, ErrIncompatibleAsset) {
					t.Errorf("expected ErrIncompatibleAsset, got %v", err)
				}
				return nil
			})
		})
	}
}

func TestValidateRejectsValue(t *testing.T) {
	f := newFixture(t)

	a := asset.NewERC721(f.coll, 5)
	a.Value = 2

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if err := f.ctrl.ValidateAsset(tx, a); !errors.Is(err, ErrIncompatibleAsset) {
			t.Errorf("expected ErrIncompatibleAsset, got %v", err)
		}
		return nil
	})
}

func TestVaultRoundTrip(t *testing.T) {
	f := newFixture(t)
	a := asset.NewERC721(f.coll, 5)

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.ctrl.TransferAssetToVault(tx, a, lister, f.vault)
	})

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		holder, err := f.ctrl.Holder(tx, a)
		if err != nil {
			t.Fatalf("Holder failed: %v", err)
		}
		if holder != f.vault.Address() {
			t.Errorf("holder = %s, want vault", holder)
		}
		return nil
	})

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.ctrl.ReturnAssetFromVault(tx, a, f.vault, lister)
	})

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if holder, _ := f.ctrl.Holder(tx, a); holder != lister {
			t.Errorf("holder = %s, want lister", holder)
		}
		return nil
	})
}

// TestTransferWithoutApproval verifies nothing moves when the operator is not approved.
func TestTransferWithoutApproval(t *testing.T) {
	f := newFixture(t)
	a := asset.NewERC721(f.coll, 5)

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.book.SetApprovalForAll(tx, lister, f.coll, operator, false)
	})

	err := f.l.Update(func(tx *ledger.Tx) error {
		return f.ctrl.TransferAssetToVault(tx, a, lister, f.vault)
	})
	if !errors.Is(err, nft.ErrNotOwnerNorApproved) {
		t.Fatalf("expected ErrNotOwnerNorApproved, got %v", err)
	}

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if holder, _ := f.ctrl.Holder(tx, a); holder != lister {
			t.Errorf("item moved to %s", holder)
		}
		return nil
	})
}

// panicky panics on every interface query.
type panicky struct{}

func (panicky) SupportsInterface(ident.Selector) bool {
	panic("introspection exploded")
}

// partial declares the holder surface only.
type partial struct{}

func (partial) SupportsInterface(id ident.Selector) bool {
	return id == warper.InterfaceERC721
}

func TestIsCompatibleWarper(t *testing.T) {
	c := NewERC721(ident.Named("controller"), operator, nft.NewBook())

	if !c.IsCompatibleWarper(warper.ConfigurablePreset) {
		t.Error("configurable preset should be compatible")
	}

	if c.IsCompatibleWarper(partial{}) {
		t.Error("token without the warper interface should be incompatible")
	}

	if c.IsCompatibleWarper(panicky{}) {
		t.Error("failing introspection should yield false")
	}

	if c.IsCompatibleWarper(nil) {
		t.Error("nil candidate should yield false")
	}
}
