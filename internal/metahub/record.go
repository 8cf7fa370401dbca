package metahub

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"Warpgate/internal/asset"
	"Warpgate/internal/ident"
	"Warpgate/internal/types"
)

// ListingState is the lifecycle state of a listing.
type ListingState uint8

const (
	ListingNone ListingState = iota
	ListingListed
	ListingDelisted
)

// String returns the state name.
func (s ListingState) String() string {
	switch s {
	case ListingListed:
		return "LISTED"
	case ListingDelisted:
		return "DELISTED"
	default:
		return "NONE"
	}
}

// MarshalText encodes the state name for JSON.
func (s ListingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *ListingState) UnmarshalText(text []byte) error {
	for _, v := range []ListingState{ListingNone, ListingListed, ListingDelisted} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}

	return fmt.Errorf("unknown listing state %q", text)
}

// Listing is an owner's offer to rent out one asset.
type Listing struct {
	ID             uint64         `json:"id"`
	Lister         ident.Address  `json:"lister"`
	Asset          asset.Asset    `json:"asset"`
	Strategy       ident.Selector `json:"strategy"`
	StrategyParams []byte         `json:"strategyParams"`
	State          ListingState   `json:"state"`
	CreatedAt      uint64         `json:"createdAt"`
	ActiveRental   uint64         `json:"activeRental"` // 0 when not rented
}

// RentalAgreement records one rental. Only Ended changes after creation.
type RentalAgreement struct {
	ID           uint64        `json:"id"`
	ListingID    uint64        `json:"listingId"`
	Renter       ident.Address `json:"renter"`
	Warper       ident.Address `json:"warper"`
	Vault        ident.Address `json:"vault"`
	Controller   ident.Address `json:"controller"`
	RentalStart  uint64        `json:"rentalStart"`
	RentalEnd    uint64        `json:"rentalEnd"`
	Paid         uint64        `json:"paid"`
	ListerReward uint64        `json:"listerReward"`
	Ended        bool          `json:"ended"`
}

// encodeListing serializes a listing.
func encodeListing(l Listing) []byte {
	builder := flatbuffers.NewBuilder(256)

	listerVec := builder.CreateByteVector(l.Lister[:])
	classVec := builder.CreateByteVector(l.Asset.Class[:])
	dataVec := builder.CreateByteVector(l.Asset.Data)
	strategyVec := builder.CreateByteVector(l.Strategy[:])
	paramsVec := builder.CreateByteVector(l.StrategyParams)

	types.ListingStart(builder)
	types.ListingAddId(builder, l.ID)
	types.ListingAddLister(builder, listerVec)
	types.ListingAddAssetClass(builder, classVec)
	types.ListingAddAssetData(builder, dataVec)
	types.ListingAddAssetValue(builder, l.Asset.Value)
	types.ListingAddStrategy(builder, strategyVec)
	types.ListingAddStrategyParams(builder, paramsVec)
	types.ListingAddState(builder, byte(l.State))
	types.ListingAddCreatedAt(builder, l.CreatedAt)
	types.ListingAddActiveRental(builder, l.ActiveRental)
	builder.Finish(types.ListingEnd(builder))

	return builder.FinishedBytes()
}

// decodeListing parses a listing.
func decodeListing(data []byte) (l Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt listing record: %v", r)
		}
	}()

	fb := types.GetRootAsListing(data, 0)

	if fb.ListerLength() != ident.AddressSize || fb.AssetClassLength() != ident.SelectorSize ||
		fb.StrategyLength() != ident.SelectorSize {
		return Listing{}, fmt.Errorf("corrupt listing record: bad field sizes")
	}

	l.ID = fb.Id()
	copy(l.Lister[:], fb.ListerBytes())
	copy(l.Asset.Class[:], fb.AssetClassBytes())
	l.Asset.Data = append([]byte(nil), fb.AssetDataBytes()...)
	l.Asset.Value = fb.AssetValue()
	copy(l.Strategy[:], fb.StrategyBytes())
	l.StrategyParams = append([]byte(nil), fb.StrategyParamsBytes()...)
	l.State = ListingState(fb.State())
	l.CreatedAt = fb.CreatedAt()
	l.ActiveRental = fb.ActiveRental()

	return l, nil
}

// encodeAgreement serializes a rental agreement.
func encodeAgreement(a RentalAgreement) []byte {
	builder := flatbuffers.NewBuilder(256)

	renterVec := builder.CreateByteVector(a.Renter[:])
	warperVec := builder.CreateByteVector(a.Warper[:])
	vaultVec := builder.CreateByteVector(a.Vault[:])
	controllerVec := builder.CreateByteVector(a.Controller[:])

	types.RentalAgreementStart(builder)
	types.RentalAgreementAddId(builder, a.ID)
	types.RentalAgreementAddListing(builder, a.ListingID)
	types.RentalAgreementAddRenter(builder, renterVec)
	types.RentalAgreementAddWarper(builder, warperVec)
	types.RentalAgreementAddVault(builder, vaultVec)
	types.RentalAgreementAddController(builder, controllerVec)
	types.RentalAgreementAddRentalStart(builder, a.RentalStart)
	types.RentalAgreementAddRentalEnd(builder, a.RentalEnd)
	types.RentalAgreementAddPaid(builder, a.Paid)
	types.RentalAgreementAddListerReward(builder, a.ListerReward)
	types.RentalAgreementAddEnded(builder, a.Ended)
	builder.Finish(types.RentalAgreementEnd(builder))

	return builder.FinishedBytes()
}

// decodeAgreement parses a rental agreement.
func decodeAgreement(data []byte) (a RentalAgreement, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt rental record: %v", r)
		}
	}()

	fb := types.GetRootAsRentalAgreement(data, 0)

	if fb.RenterLength() != ident.AddressSize || fb.WarperLength() != ident.AddressSize ||
		fb.VaultLength() != ident.AddressSize || fb.ControllerLength() != ident.AddressSize {
		return RentalAgreement{}, fmt.Errorf("corrupt rental record: bad field sizes")
	}

	a.ID = fb.Id()
	a.ListingID = fb.Listing()
	copy(a.Renter[:], fb.RenterBytes())
	copy(a.Warper[:], fb.WarperBytes())
	copy(a.Vault[:], fb.VaultBytes())
	copy(a.Controller[:], fb.ControllerBytes())
	a.RentalStart = fb.RentalStart()
	a.RentalEnd = fb.RentalEnd()
	a.Paid = fb.Paid()
	a.ListerReward = fb.ListerReward()
	a.Ended = fb.Ended()

	return a, nil
}
