package metahub

import (
	"errors"
	"fmt"

	"Warpgate/internal/assetclass"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
	"Warpgate/internal/registry"
	"Warpgate/internal/strategy"
	"Warpgate/internal/warper"
)

// Rent sub-steps, in execution order.
const (
	StepCustody     = "custody"
	StepMint        = "mint"
	StepStartRental = "start-rental"
	StepPricing     = "pricing"
	StepRecord      = "record"
)

// RentRequest describes a rental.
type RentRequest struct {
	ListingID  uint64        // ListingID is the listing to rent
	Renter     ident.Address // Renter receives the rental-rights token
	Warper     ident.Address // Warper selects the token; zero picks the only registered one
	Period     uint32        // Period is the rental duration in seconds
	MaxPayment uint64        // MaxPayment caps the price; zero means no cap
}

// Rent escrows the listed asset and hands its rental-rights token to the
// renter. Every step runs in one transaction: any failure leaves no trace.
func (m *Metahub) Rent(req RentRequest) (RentalAgreement, error) {
	var out RentalAgreement

	err := m.update(func(tx *ledger.Tx) error {
		var err error
		out, err = m.rent(tx, req)
		return err
	})
	if err != nil {
		return RentalAgreement{}, err
	}

	logger.Info("rental started",
		"id", out.ID,
		"listing", out.ListingID,
		"renter", out.Renter,
		"warper", out.Warper.Short(),
		"end", out.RentalEnd,
		"paid", out.Paid,
	)

	return out, nil
}

// rent runs the rent sequence inside tx.
func (m *Metahub) rent(tx *ledger.Tx, req RentRequest) (RentalAgreement, error) {
	// (a) listing and asset class
	l, err := m.readListing(tx, req.ListingID)
	if err != nil {
		return RentalAgreement{}, err
	}

	if l.State != ListingListed {
		return RentalAgreement{}, fmt.Errorf("listing %d is %s:\n%w", l.ID, l.State, ErrListingNotActive)
	}

	if l.ActiveRental != 0 {
		return RentalAgreement{}, fmt.Errorf("listing %d, rental %d:\n%w", l.ID, l.ActiveRental, ErrAssetAlreadyRented)
	}

	controller, vault, err := m.classes.Resolve(tx, l.Asset.Class)
	if err != nil {
		return RentalAgreement{}, err
	}

	original, tokenID, err := controller.Identify(tx, l.Asset)
	if err != nil {
		return RentalAgreement{}, err
	}

	w, err := m.resolveWarper(tx, req.Warper, original, l.Asset.Class)
	if err != nil {
		return RentalAgreement{}, err
	}

	// (b) rental period bounds
	shortest, longest, err := w.RentalPeriod(tx)
	if err != nil {
		return RentalAgreement{}, err
	}

	if req.Period == 0 || req.Period < shortest || req.Period > longest {
		return RentalAgreement{}, fmt.Errorf("period %d not in [%d,%d]:\n%w",
			req.Period, shortest, longest, ErrRentalPeriodOutOfBounds)
	}

	// (c) availability window, both ends inclusive
	opens, closes, err := w.AvailabilityPeriod(tx)
	if err != nil {
		return RentalAgreement{}, err
	}

	now := m.now()
	if now < uint64(opens) || now > uint64(closes) {
		return RentalAgreement{}, fmt.Errorf("now %d not in [%d,%d]:\n%w",
			now, opens, closes, ErrAssetNotAvailable)
	}

	holder, err := controller.Holder(tx, l.Asset)
	if err != nil {
		return RentalAgreement{}, err
	}

	if holder != l.Lister {
		return RentalAgreement{}, fmt.Errorf("held by %s:\n%w", holder, ErrNotAssetOwner)
	}

	// (d) custody
	if err := controller.TransferAssetToVault(tx, l.Asset, l.Lister, vault); err != nil {
		return RentalAgreement{}, err
	}

	if err := m.step(StepCustody); err != nil {
		return RentalAgreement{}, err
	}

	// (e) rental-rights token
	status, err := w.RentalStatus(tx, tokenID)
	if err != nil {
		return RentalAgreement{}, err
	}

	switch status {
	case warper.StatusNone:
		if err := w.Mint(tx, m.addr, m.addr, tokenID); err != nil {
			return RentalAgreement{}, fmt.Errorf("mint rental token:\n%w", err)
		}
	case warper.StatusRented:
		return RentalAgreement{}, fmt.Errorf("token %d:\n%w", tokenID, ErrAssetAlreadyRented)
	}

	if err := m.step(StepMint); err != nil {
		return RentalAgreement{}, err
	}

	if err := w.StartRental(tx, m.addr, req.Renter, tokenID); err != nil {
		return RentalAgreement{}, fmt.Errorf("start rental:\n%w", err)
	}

	if err := m.step(StepStartRental); err != nil {
		return RentalAgreement{}, err
	}

	// (f) price
	quote, err := strategy.ComputePrice(l.Strategy, l.StrategyParams, req.Period)
	if err != nil {
		return RentalAgreement{}, err
	}

	if req.MaxPayment != 0 && quote.Price > req.MaxPayment {
		return RentalAgreement{}, fmt.Errorf("price %d above %d:\n%w", quote.Price, req.MaxPayment, ErrPaymentExceedsMax)
	}

	if err := m.step(StepPricing); err != nil {
		return RentalAgreement{}, err
	}

	// (g) agreement
	id, err := tx.NextID("rental")
	if err != nil {
		return RentalAgreement{}, err
	}

	agreement := RentalAgreement{
		ID:           id,
		ListingID:    l.ID,
		Renter:       req.Renter,
		Warper:       w.Address(),
		Vault:        vault.Address(),
		Controller:   controller.Address(),
		RentalStart:  now,
		RentalEnd:    now + uint64(req.Period),
		Paid:         quote.Price,
		ListerReward: quote.ListerReward,
	}

	if err := m.writeAgreement(tx, agreement); err != nil {
		return RentalAgreement{}, err
	}

	l.ActiveRental = id
	if err := m.writeListing(tx, l); err != nil {
		return RentalAgreement{}, err
	}

	if err := m.step(StepRecord); err != nil {
		return RentalAgreement{}, err
	}

	return agreement, nil
}

// ReturnAsset ends a rental: the token goes back to the metahub and the
// original back to the lister. The renter may return at any time, anyone
// else only once the rental expired.
func (m *Metahub) ReturnAsset(caller ident.Address, rentalID uint64) (RentalAgreement, error) {
	var out RentalAgreement

	err := m.update(func(tx *ledger.Tx) error {
		a, err := m.readAgreement(tx, rentalID)
		if err != nil {
			return err
		}

		if a.Ended {
			return fmt.Errorf("rental %d:\n%w", rentalID, ErrRentalNotActive)
		}

		if caller != a.Renter && m.now() < a.RentalEnd {
			return fmt.Errorf("ends at %d:\n%w", a.RentalEnd, ErrRentalNotExpired)
		}

		l, err := m.readListing(tx, a.ListingID)
		if err != nil {
			return err
		}

		// The implementations recorded at rent time, even if the class was reregistered since.
		controller, ok := m.classes.ControllerAt(a.Controller)
		if !ok {
			return fmt.Errorf("controller %s not loaded:\n%w", a.Controller, assetclass.ErrUnknownClass)
		}

		vault, ok := m.classes.VaultAt(a.Vault)
		if !ok {
			return fmt.Errorf("vault %s not loaded:\n%w", a.Vault, assetclass.ErrUnknownClass)
		}

		_, tokenID, err := controller.Identify(tx, l.Asset)
		if err != nil {
			return err
		}

		w, err := m.warpers.Load(tx, a.Warper)
		if err != nil {
			return err
		}

		if err := w.EndRental(tx, m.addr, tokenID); err != nil {
			return fmt.Errorf("end rental:\n%w", err)
		}

		if err := controller.ReturnAssetFromVault(tx, l.Asset, vault, l.Lister); err != nil {
			return err
		}

		a.Ended = true
		if err := m.writeAgreement(tx, a); err != nil {
			return err
		}

		l.ActiveRental = 0
		if err := m.writeListing(tx, l); err != nil {
			return err
		}

		out = a
		return nil
	})
	if err != nil {
		return RentalAgreement{}, err
	}

	logger.Info("asset returned", "rental", rentalID, "listing", out.ListingID, "by", caller)

	return out, nil
}

// Rental returns rental agreement id.
func (m *Metahub) Rental(id uint64) (RentalAgreement, error) {
	var out RentalAgreement

	err := m.ledger.View(func(tx *ledger.Tx) error {
		var err error
		out, err = m.readAgreement(tx, id)
		return err
	})

	return out, err
}

// Rentals returns every rental agreement in id order.
func (m *Metahub) Rentals() ([]RentalAgreement, error) {
	var out []RentalAgreement

	err := m.ledger.IteratePrefix([]byte(prefixRental), func(_, value []byte) error {
		a, err := decodeAgreement(value)
		if err != nil {
			return err
		}

		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate rentals:\n%w", err)
	}

	return out, nil
}

// resolveWarper picks the registered, unpaused warper for original.
func (m *Metahub) resolveWarper(tx *ledger.Tx, requested, original ident.Address, class ident.Selector) (*warper.Warper, error) {
	candidates, err := m.warpers.WarpersFor(tx, original)
	if err != nil {
		return nil, err
	}

	var chosen ident.Address

	switch {
	case !requested.IsZero():
		for _, c := range candidates {
			if c == requested {
				chosen = c
			}
		}
		if chosen.IsZero() {
			return nil, fmt.Errorf("warper %s for %s:\n%w", requested, original, ErrWarperNotRegistered)
		}
	case len(candidates) == 0:
		return nil, fmt.Errorf("collection %s:\n%w", original, ErrWarperNotRegistered)
	case len(candidates) > 1:
		return nil, fmt.Errorf("%d warpers for %s:\n%w", len(candidates), original, ErrAmbiguousWarper)
	default:
		chosen = candidates[0]
	}

	reg, err := m.warpers.Registration(tx, chosen)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownWarper) {
			return nil, fmt.Errorf("%w:\n%w", ErrWarperNotRegistered, err)
		}
		return nil, err
	}

	if !reg.Registered || reg.AssetClass != class {
		return nil, fmt.Errorf("warper %s:\n%w", chosen, ErrWarperNotRegistered)
	}

	if reg.Paused {
		return nil, fmt.Errorf("warper %s:\n%w", chosen, ErrWarperPaused)
	}

	return m.warpers.Load(tx, chosen)
}

// readAgreement loads rental id.
func (m *Metahub) readAgreement(tx *ledger.Tx, id uint64) (RentalAgreement, error) {
	raw, err := tx.Get(ledger.Key(prefixRental, ledger.U64(id)))
	if err != nil {
		return RentalAgreement{}, err
	}

	if raw == nil {
		return RentalAgreement{}, fmt.Errorf("rental %d:\n%w", id, ErrUnknownRental)
	}

	return decodeAgreement(raw)
}

// writeAgreement stores a.
func (m *Metahub) writeAgreement(tx *ledger.Tx, a RentalAgreement) error {
	return tx.Set(ledger.Key(prefixRental, ledger.U64(a.ID)), encodeAgreement(a))
}
