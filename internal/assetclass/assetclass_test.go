package assetclass_test

import (
	"errors"
	"testing"

	"Warpgate/internal/access"
	"Warpgate/internal/asset"
	"Warpgate/internal/assetclass"
	"Warpgate/internal/controller"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/ledger/ledgertest"
	"Warpgate/internal/nft"
	"Warpgate/internal/vault"
)

var (
	admin    = ident.Named("admin")
	stranger = ident.Named("stranger")
	operator = ident.Named("metahub")
)

type fixture struct {
	l    *ledger.Ledger
	reg  *assetclass.Registry
	book *nft.Book
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	acl := access.New()
	f := &fixture{
		l:    ledgertest.New(t),
		reg:  assetclass.New(acl),
		book: nft.NewBook(),
	}

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return acl.Bootstrap(tx, admin)
	})

	return f
}

// pair deploys a controller and vault with the given name suffix.
func (f *fixture) pair(suffix string) (*controller.ERC721Controller, *vault.ERC721Vault) {
	return controller.NewERC721(ident.Named("controller-"+suffix), operator, f.book),
		vault.NewERC721(ident.Named("vault-"+suffix), operator, f.book)
}

func TestRegisterAndResolve(t *testing.T) {
	f := newFixture(t)
	c, v := f.pair("a")

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.reg.Register(tx, admin, asset.ERC721, c, v)
	})

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		gotC, gotV, err := f.reg.Resolve(tx, asset.ERC721)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if gotC.Address() != c.Address() || gotV.Address() != v.Address() {
			t.Errorf("resolved wrong pair: %s / %s", gotC.Address(), gotV.Address())
		}
		return nil
	})
}

func TestRegisterRollback(t *testing.T) {
	f := newFixture(t)
	c, v := f.pair("a")

	abort := errors.New("abort")
	err := f.l.Update(func(tx *ledger.Tx) error {
		if err := f.reg.Register(tx, admin, asset.ERC721, c, v); err != nil {
			return err
		}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("expected abort, got %v", err)
	}

	if _, ok := f.reg.VaultAt(v.Address()); ok {
		t.Error("vault from a discarded unit should not be addressable")
	}

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.reg.Register(tx, admin, asset.ERC721, c, v)
	})

	if _, ok := f.reg.VaultAt(v.Address()); !ok {
		t.Error("vault should be addressable once the unit commits")
	}
}

func TestRegisterRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	c, v := f.pair("a")

	err := f.l.Update(func(tx *ledger.Tx) error {
		return f.reg.Register(tx, stranger, asset.ERC721, c, v)
	})

	if !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if ok, _ := f.reg.IsRegistered(tx, asset.ERC721); ok {
			t.Error("class must not be registered")
		}
		return nil
	})
}

func TestDuplicateAndUnknown(t *testing.T) {
	f := newFixture(t)
	c, v := f.pair("a")

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.reg.Register(tx, admin, asset.ERC721, c, v)
	})

	err := f.l.Update(func(tx *ledger.Tx) error {
		return f.reg.Register(tx, admin, asset.ERC721, c, v)
	})
	if !errors.Is(err, assetclass.ErrDuplicateClass) {
		t.Errorf("expected ErrDuplicateClass, got %v", err)
	}

	other := ident.SelectorOf("ERC1155")
	err = f.l.Update(func(tx *ledger.Tx) error {
		return f.reg.Reregister(tx, admin, other, c, v)
	})
	if !errors.Is(err, assetclass.ErrUnknownClass) {
		t.Errorf("expected ErrUnknownClass, got %v", err)
	}

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if _, _, err := f.reg.Resolve(tx, other); !errors.Is(err, assetclass.ErrUnknownClass) {
			t.Errorf("expected ErrUnknownClass on resolve, got %v", err)
		}
		return nil
	})
}

func TestClassMismatch(t *testing.T) {
	f := newFixture(t)
	c, v := f.pair("a")

	err := f.l.Update(func(tx *ledger.Tx) error {
		return f.reg.Register(tx, admin, ident.SelectorOf("ERC20"), c, v)
	})

	if !errors.Is(err, assetclass.ErrClassMismatch) {
		t.Fatalf("expected ErrClassMismatch, got %v", err)
	}
}

// TestReregisterKeepsOldVaultAddressable verifies superseded vaults still resolve by address.
func TestReregisterKeepsOldVaultAddressable(t *testing.T) {
	f := newFixture(t)
	c1, v1 := f.pair("a")
	c2, v2 := f.pair("b")

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.reg.Register(tx, admin, asset.ERC721, c1, v1)
	})
	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.reg.Reregister(tx, admin, asset.ERC721, c2, v2)
	})

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		_, gotV, err := f.reg.Resolve(tx, asset.ERC721)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if gotV.Address() != v2.Address() {
			t.Errorf("resolve should return the new vault")
		}
		return nil
	})

	if _, ok := f.reg.VaultAt(v1.Address()); !ok {
		t.Error("old vault should stay addressable")
	}
	if _, ok := f.reg.ControllerAt(c1.Address()); !ok {
		t.Error("old controller should stay addressable")
	}
}

// TestResolveAfterRestart verifies persisted bindings resolve once implementations are loaded.
func TestResolveAfterRestart(t *testing.T) {
	f := newFixture(t)
	c, v := f.pair("a")

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.reg.Register(tx, admin, asset.ERC721, c, v)
	})

	fresh := assetclass.New(access.New())

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if _, _, err := fresh.Resolve(tx, asset.ERC721); !errors.Is(err, assetclass.ErrUnknownClass) {
			t.Errorf("expected ErrUnknownClass before Load, got %v", err)
		}
		return nil
	})

	fresh.Load(c, v)

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if _, _, err := fresh.Resolve(tx, asset.ERC721); err != nil {
			t.Errorf("Resolve after Load failed: %v", err)
		}
		return nil
	})
}
