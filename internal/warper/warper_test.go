package warper

import (
	"errors"
	"math"
	"testing"

	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/ledger/ledgertest"
)

var (
	original = ident.Named("original")
	metahub  = ident.Named("metahub")
	admin    = ident.Named("admin")
	renter   = ident.Named("renter")
	stranger = ident.Named("stranger")
)

// fixedAdmin grants admin rights to a single account.
type fixedAdmin struct {
	account ident.Address
}

func (f fixedAdmin) IsWarperAdmin(tx *ledger.Tx, warper, caller ident.Address) (bool, error) {
	return caller == f.account, nil
}

// newWarper deploys and initializes an instance of bp.
func newWarper(t *testing.T, bp *Blueprint) (*ledger.Ledger, *Warper) {
	t.Helper()

	l := ledgertest.New(t)
	w := New(ident.Derive("warper", 1), bp, fixedAdmin{account: admin})

	ledgertest.Update(t, l, func(tx *ledger.Tx) error {
		return w.Initialize(tx, original, metahub)
	})

	return l, w
}

func TestInitializeOnce(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)

	err := l.Update(func(tx *ledger.Tx) error {
		return w.Initialize(tx, original, stranger)
	})

	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		if got, _ := w.Metahub(tx); got != metahub {
			t.Errorf("metahub changed to %s", got)
		}
		if got, _ := w.Original(tx); got != original {
			t.Errorf("original = %s", got)
		}
		return nil
	})
}

func TestDefaultParams(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		p, err := w.Params(tx)
		if err != nil {
			t.Fatalf("Params failed: %v", err)
		}
		if p.AvailabilityPeriodStart != 0 || p.AvailabilityPeriodEnd != math.MaxUint32 {
			t.Errorf("unexpected availability %+v", p)
		}
		if p.MinRentalPeriod != 0 || p.MaxRentalPeriod != math.MaxUint32 {
			t.Errorf("unexpected rental period %+v", p)
		}
		return nil
	})
}

// TestRentalStatusLifecycle walks NONE -> AVAILABLE -> RENTED -> AVAILABLE.
func TestRentalStatusLifecycle(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)

	status := func() RentalStatus {
		var s RentalStatus
		ledgertest.View(t, l, func(tx *ledger.Tx) error {
			s, _ = w.RentalStatus(tx, 7)
			return nil
		})
		return s
	}

	if status() != StatusNone {
		t.Fatalf("fresh token should be NONE, got %s", status())
	}

	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.Mint(tx, metahub, metahub, 7) })
	if status() != StatusAvailable {
		t.Fatalf("minted token should be AVAILABLE, got %s", status())
	}

	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.StartRental(tx, metahub, renter, 7) })
	if status() != StatusRented {
		t.Fatalf("rented token should be RENTED, got %s", status())
	}

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		if owner, _ := w.OwnerOf(tx, 7); owner != renter {
			t.Errorf("renter should hold the token, got %s", owner)
		}
		if n, _ := w.BalanceOf(tx, renter); n != 1 {
			t.Errorf("renter balance = %d, want 1", n)
		}
		return nil
	})

	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.EndRental(tx, metahub, 7) })
	if status() != StatusAvailable {
		t.Fatalf("returned token should be AVAILABLE, got %s", status())
	}

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		if owner, _ := w.OwnerOf(tx, 7); owner != metahub {
			t.Errorf("metahub should hold the token, got %s", owner)
		}
		if n, _ := w.BalanceOf(tx, renter); n != 0 {
			t.Errorf("renter balance = %d, want 0", n)
		}
		return nil
	})
}

func TestInvalidTransitions(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)

	err := l.Update(func(tx *ledger.Tx) error { return w.StartRental(tx, metahub, renter, 1) })
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("NONE -> RENTED should fail, got %v", err)
	}

	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.Mint(tx, metahub, metahub, 1) })

	err = l.Update(func(tx *ledger.Tx) error { return w.EndRental(tx, metahub, 1) })
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("AVAILABLE -> AVAILABLE should fail, got %v", err)
	}

	err = l.Update(func(tx *ledger.Tx) error { return w.Mint(tx, metahub, metahub, 1) })
	if !errors.Is(err, ErrTokenAlreadyMinted) {
		t.Errorf("second mint should fail, got %v", err)
	}
}

func TestMintOnlyMetahub(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)

	err := l.Update(func(tx *ledger.Tx) error { return w.Mint(tx, stranger, stranger, 1) })
	if !errors.Is(err, ErrCallerIsNotMetahub) {
		t.Errorf("expected ErrCallerIsNotMetahub, got %v", err)
	}
}

func TestQueries(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		if _, err := w.OwnerOf(tx, 99); !errors.Is(err, ErrOwnerQueryForNonexistentToken) {
			t.Errorf("expected ErrOwnerQueryForNonexistentToken, got %v", err)
		}
		if _, err := w.BalanceOf(tx, ident.Zero); !errors.Is(err, ErrBalanceQueryForZeroAddress) {
			t.Errorf("expected ErrBalanceQueryForZeroAddress, got %v", err)
		}
		return nil
	})
}

// TestRestrictedApprovals verifies every approval entry point is disabled and nothing is stored.
func TestRestrictedApprovals(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)
	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.Mint(tx, metahub, metahub, 1) })
	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.StartRental(tx, metahub, renter, 1) })

	err := l.Update(func(tx *ledger.Tx) error { return w.SetApprovalForAll(tx, renter, stranger, true) })
	if !errors.Is(err, ErrMethodNotAllowed) {
		t.Errorf("SetApprovalForAll: expected ErrMethodNotAllowed, got %v", err)
	}

	err = l.Update(func(tx *ledger.Tx) error { return w.Approve(tx, renter, stranger, 1) })
	if !errors.Is(err, ErrMethodNotAllowed) {
		t.Errorf("Approve: expected ErrMethodNotAllowed, got %v", err)
	}

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		if _, err := w.GetApproved(tx, 1); !errors.Is(err, ErrMethodNotAllowed) {
			t.Errorf("GetApproved: expected ErrMethodNotAllowed, got %v", err)
		}
		if _, err := w.IsApprovedForAll(tx, renter, stranger); !errors.Is(err, ErrMethodNotAllowed) {
			t.Errorf("IsApprovedForAll: expected ErrMethodNotAllowed, got %v", err)
		}
		if ok, _ := tx.Has(w.pairKey(renter, stranger)); ok {
			t.Error("no operator record may exist")
		}
		return nil
	})
}

func TestRestrictedTransfer(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)
	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.Mint(tx, metahub, metahub, 1) })
	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.StartRental(tx, metahub, renter, 1) })

	err := l.Update(func(tx *ledger.Tx) error { return w.TransferFrom(tx, renter, renter, stranger, 1) })
	if !errors.Is(err, ErrCallerIsNotMetahub) {
		t.Errorf("renter transfer should fail, got %v", err)
	}
}

func TestBasicPresetApprovals(t *testing.T) {
	l, w := newWarper(t, BasicPreset)
	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.Mint(tx, metahub, metahub, 1) })
	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.StartRental(tx, metahub, renter, 1) })

	err := l.Update(func(tx *ledger.Tx) error { return w.Approve(tx, renter, renter, 1) })
	if !errors.Is(err, ErrApproveToCaller) {
		t.Errorf("self approval should fail, got %v", err)
	}

	err = l.Update(func(tx *ledger.Tx) error { return w.SetApprovalForAll(tx, renter, renter, true) })
	if !errors.Is(err, ErrApproveToCaller) {
		t.Errorf("self operator approval should fail, got %v", err)
	}

	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.Approve(tx, renter, stranger, 1) })

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		if got, _ := w.GetApproved(tx, 1); got != stranger {
			t.Errorf("approved = %s, want stranger", got)
		}
		return nil
	})

	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.TransferFrom(tx, stranger, renter, stranger, 1) })

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		if owner, _ := w.OwnerOf(tx, 1); owner != stranger {
			t.Errorf("owner = %s, want stranger", owner)
		}
		if got, _ := w.GetApproved(tx, 1); !got.IsZero() {
			t.Error("approval should be cleared by transfer")
		}
		return nil
	})

	// The metahub still recovers the token from whoever holds it.
	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.EndRental(tx, metahub, 1) })
}

// readParams fetches the current params.
func readParams(t *testing.T, l *ledger.Ledger, w *Warper) Params {
	t.Helper()

	var p Params
	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		var err error
		p, err = w.Params(tx)
		return err
	})

	return p
}

func TestSetterRequiresAdmin(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)
	before := readParams(t, l, w)

	err := l.Update(func(tx *ledger.Tx) error { return w.SetMinRentalPeriod(tx, stranger, 60) })
	if !errors.Is(err, ErrCallerIsNotWarperAdmin) {
		t.Fatalf("expected ErrCallerIsNotWarperAdmin, got %v", err)
	}

	if after := readParams(t, l, w); after != before {
		t.Errorf("params changed: %+v -> %+v", before, after)
	}
}

func TestAvailabilityPeriodInvariant(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)

	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.SetAvailabilityPeriodEnd(tx, admin, 1000) })
	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.SetAvailabilityPeriodStart(tx, admin, 100) })

	before := readParams(t, l, w)

	err := l.Update(func(tx *ledger.Tx) error { return w.SetAvailabilityPeriodStart(tx, admin, 1000) })
	if !errors.Is(err, ErrInvalidAvailabilityPeriodStart) {
		t.Errorf("start == end should fail, got %v", err)
	}

	err = l.Update(func(tx *ledger.Tx) error { return w.SetAvailabilityPeriodEnd(tx, admin, 50) })
	if !errors.Is(err, ErrInvalidAvailabilityPeriodEnd) {
		t.Errorf("end < start should fail, got %v", err)
	}

	after := readParams(t, l, w)
	if after != before {
		t.Errorf("rejected setters changed params: %+v -> %+v", before, after)
	}

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		start, end, err := w.AvailabilityPeriod(tx)
		if err != nil {
			return err
		}
		if start != 100 || end != 1000 {
			t.Errorf("availability period = [%d, %d], want [100, 1000]", start, end)
		}
		return nil
	})
}

func TestRentalPeriodInvariant(t *testing.T) {
	l, w := newWarper(t, ConfigurablePreset)

	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.SetMaxRentalPeriod(tx, admin, 3600) })

	// min == max is accepted
	ledgertest.Update(t, l, func(tx *ledger.Tx) error { return w.SetMinRentalPeriod(tx, admin, 3600) })

	err := l.Update(func(tx *ledger.Tx) error { return w.SetMinRentalPeriod(tx, admin, 3601) })
	if !errors.Is(err, ErrInvalidMinRentalPeriod) {
		t.Errorf("min > max should fail, got %v", err)
	}

	err = l.Update(func(tx *ledger.Tx) error { return w.SetMaxRentalPeriod(tx, admin, 3599) })
	if !errors.Is(err, ErrInvalidMaxRentalPeriod) {
		t.Errorf("max < min should fail, got %v", err)
	}

	ledgertest.View(t, l, func(tx *ledger.Tx) error {
		shortest, longest, err := w.RentalPeriod(tx)
		if err != nil || shortest != 3600 || longest != 3600 {
			t.Errorf("rental period after rejections = [%d, %d] (%v)", shortest, longest, err)
		}
		return nil
	})
}

func TestSupportsInterface(t *testing.T) {
	w := New(ident.Derive("warper", 9), ConfigurablePreset, fixedAdmin{})

	for _, id := range []ident.Selector{InterfaceERC721, InterfaceWarper, InterfaceAvailabilityPeriod, InterfaceRentalPeriod} {
		if !w.SupportsInterface(id) {
			t.Errorf("expected support for %s", id)
		}
	}

	if w.SupportsInterface(ident.SelectorOf("IERC1155")) {
		t.Error("unexpected support for IERC1155")
	}
}
