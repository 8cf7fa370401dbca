package vault

import (
	"errors"
	"testing"

	"Warpgate/internal/asset"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/ledger/ledgertest"
	"Warpgate/internal/nft"
)

var (
	creator  = ident.Named("creator")
	owner    = ident.Named("owner")
	operator = ident.Named("metahub")
	stranger = ident.Named("stranger")
)

type fixture struct {
	l     *ledger.Ledger
	book  *nft.Book
	vault *ERC721Vault
	coll  ident.Address
	item  asset.Asset
}

// newFixture mints token 1 to owner, approved for the operator.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{l: ledgertest.New(t), book: nft.NewBook()}
	f.vault = NewERC721(ident.Named("vault"), operator, f.book)

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		var err error
		f.coll, err = f.book.CreateCollection(tx, creator, "punks")
		if err != nil {
			return err
		}
		if err := f.book.Mint(tx, creator, f.coll, owner, 1); err != nil {
			return err
		}
		return f.book.SetApprovalForAll(tx, owner, f.coll, operator, true)
	})

	f.item = asset.NewERC721(f.coll, 1)

	return f
}

// deposit moves the item into the vault through the safe-transfer hook.
func (f *fixture) deposit(tx *ledger.Tx, caller ident.Address) error {
	return f.book.SafeTransferFrom(tx, caller, f.coll, owner, f.vault.Address(), 1, nil)
}

func TestDepositByOperator(t *testing.T) {
	f := newFixture(t)

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.deposit(tx, operator)
	})

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		depositor, held, err := f.vault.Custodian(tx, f.item)
		if err != nil || !held {
			t.Fatalf("expected custody, held=%v err=%v", held, err)
		}
		if depositor != owner {
			t.Errorf("depositor = %s, want owner", depositor)
		}
		return nil
	})
}

// TestDepositByNonOperatorRejected verifies the hook refuses and the transfer unwinds.
func TestDepositByNonOperatorRejected(t *testing.T) {
	f := newFixture(t)

	err := f.l.Update(func(tx *ledger.Tx) error {
		return f.deposit(tx, owner)
	})

	if !errors.Is(err, ErrNotOperator) || !errors.Is(err, nft.ErrTransferRejected) {
		t.Fatalf("expected rejected hand-off with ErrNotOperator, got %v", err)
	}

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if holder, _ := f.book.OwnerOf(tx, f.coll, 1); holder != owner {
			t.Errorf("item should stay with owner, held by %s", holder)
		}
		if _, held, _ := f.vault.Custodian(tx, f.item); held {
			t.Error("no custody record expected")
		}
		return nil
	})
}

func TestAcceptWithoutHandOff(t *testing.T) {
	f := newFixture(t)

	err := f.l.Update(func(tx *ledger.Tx) error {
		return f.vault.AcceptAsset(tx, operator, f.item, owner)
	})

	if !errors.Is(err, ErrNotCustodied) {
		t.Errorf("expected ErrNotCustodied when the vault does not hold the item, got %v", err)
	}
}

func TestReleaseAsset(t *testing.T) {
	f := newFixture(t)

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.deposit(tx, operator)
	})

	err := f.l.Update(func(tx *ledger.Tx) error {
		return f.vault.ReleaseAsset(tx, stranger, f.item, stranger)
	})
	if !errors.Is(err, ErrNotOperator) {
		t.Fatalf("expected ErrNotOperator, got %v", err)
	}

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.vault.ReleaseAsset(tx, operator, f.item, owner)
	})

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if holder, _ := f.book.OwnerOf(tx, f.coll, 1); holder != owner {
			t.Errorf("item should be back with owner, held by %s", holder)
		}
		if _, held, _ := f.vault.Custodian(tx, f.item); held {
			t.Error("custody record should be cleared")
		}
		return nil
	})

	err = f.l.Update(func(tx *ledger.Tx) error {
		return f.vault.ReleaseAsset(tx, operator, f.item, owner)
	})
	if !errors.Is(err, ErrNotCustodied) {
		t.Errorf("expected ErrNotCustodied on second release, got %v", err)
	}
}

// TestCustodyRecordMismatch verifies a record holding another asset is reported.
func TestCustodyRecordMismatch(t *testing.T) {
	f := newFixture(t)

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.deposit(tx, operator)
	})

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		other := asset.NewERC721(f.coll, 2)
		return tx.Set(custodyKey(f.vault.Address(), f.item), append(owner.Bytes(), other.Encode()...))
	})

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if _, _, err := f.vault.Custodian(tx, f.item); err == nil {
			t.Error("expected error for a record holding another asset")
		}
		return nil
	})
}

// TestPreparedVaultIgnoresDeposits verifies the hook only runs once installed.
func TestPreparedVaultIgnoresDeposits(t *testing.T) {
	f := newFixture(t)
	v := Prepare(ident.Named("vault-2"), operator, f.book)

	ledgertest.Update(t, f.l, func(tx *ledger.Tx) error {
		return f.book.SafeTransferFrom(tx, owner, f.coll, owner, v.Address(), 1, nil)
	})

	ledgertest.View(t, f.l, func(tx *ledger.Tx) error {
		if _, held, _ := v.Custodian(tx, f.item); held {
			t.Error("uninstalled vault must not record custody")
		}
		return nil
	})
}
