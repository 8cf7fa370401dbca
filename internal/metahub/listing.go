package metahub

import (
	"fmt"

	"Warpgate/internal/asset"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
	"Warpgate/internal/strategy"
)

// ListingRequest describes a new listing.
type ListingRequest struct {
	Lister         ident.Address  // Lister is the current holder of the asset
	Asset          asset.Asset    // Asset is the item offered
	Strategy       ident.Selector // Strategy prices rentals
	StrategyParams []byte         // StrategyParams is the strategy-specific encoding
}

// CreateListing stores a new LISTED listing. The asset stays with the lister
// until it is rented.
func (m *Metahub) CreateListing(req ListingRequest) (Listing, error) {
	var out Listing

	err := m.update(func(tx *ledger.Tx) error {
		controller, _, err := m.classes.Resolve(tx, req.Asset.Class)
		if err != nil {
			return err
		}

		if err := controller.ValidateAsset(tx, req.Asset); err != nil {
			return err
		}

		if err := strategy.Validate(req.Strategy, req.StrategyParams); err != nil {
			return err
		}

		holder, err := controller.Holder(tx, req.Asset)
		if err != nil {
			return err
		}

		if holder != req.Lister {
			return fmt.Errorf("held by %s:\n%w", holder, ErrNotAssetOwner)
		}

		liveKey := ledger.Key(prefixLive, req.Asset.Key())

		live, err := tx.Has(liveKey)
		if err != nil {
			return err
		}

		if live {
			return fmt.Errorf("asset %s:\n%w", req.Asset, ErrAssetAlreadyListed)
		}

		id, err := tx.NextID("listing")
		if err != nil {
			return err
		}

		out = Listing{
			ID:             id,
			Lister:         req.Lister,
			Asset:          req.Asset,
			Strategy:       req.Strategy,
			StrategyParams: req.StrategyParams,
			State:          ListingListed,
			CreatedAt:      m.now(),
		}

		if err := m.writeListing(tx, out); err != nil {
			return err
		}

		return tx.Set(liveKey, ledger.U64(id))
	})
	if err != nil {
		return Listing{}, err
	}

	logger.Info("listing created", "id", out.ID, "lister", out.Lister, "asset", out.Asset, "strategy", out.Strategy)

	return out, nil
}

// Delist withdraws a listing. An ongoing rental still returns the asset to the lister.
func (m *Metahub) Delist(caller ident.Address, listingID uint64) error {
	err := m.update(func(tx *ledger.Tx) error {
		l, err := m.readListing(tx, listingID)
		if err != nil {
			return err
		}

		if l.State != ListingListed {
			return fmt.Errorf("listing %d is %s:\n%w", listingID, l.State, ErrListingNotActive)
		}

		if caller != l.Lister {
			return fmt.Errorf("caller %s:\n%w", caller, ErrNotLister)
		}

		l.State = ListingDelisted

		if err := m.writeListing(tx, l); err != nil {
			return err
		}

		return tx.Delete(ledger.Key(prefixLive, l.Asset.Key()))
	})
	if err != nil {
		return err
	}

	logger.Info("listing delisted", "id", listingID, "by", caller)

	return nil
}

// Listing returns listing id.
func (m *Metahub) Listing(id uint64) (Listing, error) {
	var out Listing

	err := m.ledger.View(func(tx *ledger.Tx) error {
		var err error
		out, err = m.readListing(tx, id)
		return err
	})

	return out, err
}

// Listings returns every listing in id order.
func (m *Metahub) Listings() ([]Listing, error) {
	var out []Listing

	err := m.ledger.IteratePrefix([]byte(prefixListing), func(_, value []byte) error {
		l, err := decodeListing(value)
		if err != nil {
			return err
		}

		out = append(out, l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate listings:\n%w", err)
	}

	return out, nil
}

// readListing loads listing id.
func (m *Metahub) readListing(tx *ledger.Tx, id uint64) (Listing, error) {
	raw, err := tx.Get(ledger.Key(prefixListing, ledger.U64(id)))
	if err != nil {
		return Listing{}, err
	}

	if raw == nil {
		return Listing{}, fmt.Errorf("listing %d:\n%w", id, ErrUnknownListing)
	}

	return decodeListing(raw)
}

// writeListing stores l.
func (m *Metahub) writeListing(tx *ledger.Tx, l Listing) error {
	return tx.Set(ledger.Key(prefixListing, ledger.U64(l.ID)), encodeListing(l))
}
