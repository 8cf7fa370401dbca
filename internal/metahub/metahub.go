package metahub

import (
	"errors"
	"sync/atomic"
	"time"

	"Warpgate/internal/assetclass"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/registry"
)

var (
	ErrReentrantCall           = errors.New("reentrant call")
	ErrUnknownListing          = errors.New("unknown listing")
	ErrListingNotActive        = errors.New("listing not active")
	ErrNotLister               = errors.New("caller is not the lister")
	ErrNotAssetOwner           = errors.New("lister does not hold the asset")
	ErrAssetAlreadyListed      = errors.New("asset already listed")
	ErrAssetAlreadyRented      = errors.New("asset already rented")
	ErrRentalPeriodOutOfBounds = errors.New("rental period out of bounds")
	ErrAssetNotAvailable       = errors.New("asset not available")
	ErrWarperNotRegistered     = errors.New("no registered warper for asset")
	ErrAmbiguousWarper         = errors.New("several warpers registered for asset")
	ErrWarperPaused            = errors.New("warper paused")
	ErrPaymentExceedsMax       = errors.New("payment exceeds maximum")
	ErrUnknownRental           = errors.New("unknown rental")
	ErrRentalNotActive         = errors.New("rental not active")
	ErrRentalNotExpired        = errors.New("rental not expired")
)

// Key prefixes.
const (
	prefixListing = "mh:l:" // mh:l:<id> -> types.Listing
	prefixLive    = "mh:a:" // mh:a:<asset key> -> live listing id
	prefixRental  = "mh:r:" // mh:r:<id> -> types.RentalAgreement
)

// Clock returns the current time.
type Clock func() time.Time

// Metahub coordinates listings, custody and rental-rights tokens.
type Metahub struct {
	ledger  *ledger.Ledger       // ledger holds all state
	classes *assetclass.Registry // classes resolves controllers and vaults
	warpers *registry.Registry   // warpers resolves registered rental-rights tokens
	addr    ident.Address        // addr is the metahub identity used as operator
	clock   Clock                // clock supplies the time rentals are checked against

	busy atomic.Bool // busy is set while an operation runs

	// afterStep runs after each rent sub-step; tests use it to inject failures.
	afterStep func(step string) error
}

// New creates the orchestrator. Its identity is the metahub the registry
// binds warpers to.
func New(l *ledger.Ledger, classes *assetclass.Registry, warpers *registry.Registry) *Metahub {
	return &Metahub{
		ledger:  l,
		classes: classes,
		warpers: warpers,
		addr:    warpers.Metahub(),
		clock:   time.Now,
	}
}

// Address returns the metahub identity.
func (m *Metahub) Address() ident.Address {
	return m.addr
}

// SetClock replaces the time source.
func (m *Metahub) SetClock(c Clock) {
	m.clock = c
}

// enter marks an operation as running and rejects nested entry.
// The caller must invoke the returned function when done.
func (m *Metahub) enter() (func(), error) {
	if !m.busy.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}

	return func() { m.busy.Store(false) }, nil
}

// update runs fn as one guarded atomic operation.
func (m *Metahub) update(fn func(tx *ledger.Tx) error) error {
	exit, err := m.enter()
	if err != nil {
		return err
	}
	defer exit()

	return m.ledger.Update(fn)
}

// step reports completion of a rent sub-step.
func (m *Metahub) step(name string) error {
	if m.afterStep == nil {
		return nil
	}

	return m.afterStep(name)
}

// now returns the current unix time in seconds.
func (m *Metahub) now() uint64 {
	sec := m.clock().Unix()
	if sec < 0 {
		return 0
	}

	return uint64(sec)
}
