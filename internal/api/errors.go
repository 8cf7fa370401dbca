package api

import (
	"errors"
	"net/http"

	"Warpgate/internal/access"
	"Warpgate/internal/asset"
	"Warpgate/internal/assetclass"
	"Warpgate/internal/controller"
	"Warpgate/internal/ledger"
	"Warpgate/internal/metahub"
	"Warpgate/internal/nft"
	"Warpgate/internal/registry"
	"Warpgate/internal/strategy"
	"Warpgate/internal/vault"
	"Warpgate/internal/warper"
)

// errKind names an error for API callers and picks its status code.
type errKind struct {
	err    error  // err is the matched sentinel
	kind   string // kind is the stable name returned to callers
	status int    // status is the HTTP status code
}

// errKinds is checked in order with errors.Is; the first match wins.
var errKinds = []errKind{
	// wrappers around a lower-level cause, matched before the cause
	{controller.ErrIncompatibleAsset, "IncompatibleAsset", http.StatusUnprocessableEntity},
	{registry.ErrIncompatibleImplementation, "IncompatibleImplementation", http.StatusUnprocessableEntity},
	{nft.ErrTransferRejected, "TransferRejected", http.StatusUnprocessableEntity},

	// permissions
	{access.ErrUnauthorized, "Unauthorized", http.StatusForbidden},
	{metahub.ErrNotLister, "NotLister", http.StatusForbidden},
	{registry.ErrNotUniverseOwner, "NotUniverseOwner", http.StatusForbidden},
	{warper.ErrCallerIsNotWarperAdmin, "CallerIsNotWarperAdmin", http.StatusForbidden},
	{warper.ErrCallerIsNotMetahub, "CallerIsNotMetahub", http.StatusForbidden},
	{nft.ErrNotCreator, "NotCreator", http.StatusForbidden},
	{nft.ErrNotOwnerNorApproved, "NotOwnerNorApproved", http.StatusForbidden},
	{warper.ErrNotOwnerNorApproved, "NotOwnerNorApproved", http.StatusForbidden},
	{vault.ErrNotOperator, "NotVaultOperator", http.StatusForbidden},

	// lookups
	{metahub.ErrUnknownListing, "UnknownListing", http.StatusNotFound},
	{metahub.ErrUnknownRental, "UnknownRental", http.StatusNotFound},
	{registry.ErrUnknownUniverse, "UnknownUniverse", http.StatusNotFound},
	{registry.ErrUnknownPreset, "UnknownPreset", http.StatusNotFound},
	{registry.ErrUnknownWarper, "UnknownWarper", http.StatusNotFound},
	{registry.ErrUnknownImplementation, "UnknownImplementation", http.StatusNotFound},
	{assetclass.ErrUnknownClass, "UnknownAssetClass", http.StatusNotFound},
	{nft.ErrUnknownCollection, "UnknownCollection", http.StatusNotFound},
	{nft.ErrNonexistentToken, "NonexistentToken", http.StatusNotFound},
	{warper.ErrOwnerQueryForNonexistentToken, "OwnerQueryForNonexistentToken", http.StatusNotFound},
	{strategy.ErrUnknownStrategy, "UnknownStrategy", http.StatusNotFound},

	// state conflicts
	{metahub.ErrReentrantCall, "ReentrantCall", http.StatusConflict},
	{ledger.ErrNestedUpdate, "ReentrantCall", http.StatusConflict},
	{metahub.ErrListingNotActive, "ListingNotActive", http.StatusConflict},
	{metahub.ErrAssetAlreadyListed, "AssetAlreadyListed", http.StatusConflict},
	{metahub.ErrAssetAlreadyRented, "AssetAlreadyRented", http.StatusConflict},
	{metahub.ErrAssetNotAvailable, "AssetNotAvailable", http.StatusConflict},
	{metahub.ErrWarperNotRegistered, "WarperNotRegistered", http.StatusConflict},
	{metahub.ErrAmbiguousWarper, "AmbiguousWarper", http.StatusConflict},
	{metahub.ErrWarperPaused, "WarperPaused", http.StatusConflict},
	{metahub.ErrRentalNotActive, "RentalNotActive", http.StatusConflict},
	{metahub.ErrRentalNotExpired, "RentalNotExpired", http.StatusConflict},
	{metahub.ErrNotAssetOwner, "NotAssetOwner", http.StatusConflict},
	{registry.ErrDuplicatePresetId, "DuplicatePresetId", http.StatusConflict},
	{registry.ErrDuplicateWarper, "DuplicateWarper", http.StatusConflict},
	{registry.ErrWarperNotRegistered, "WarperNotRegistered", http.StatusConflict},
	{registry.ErrPresetDisabled, "PresetDisabled", http.StatusConflict},
	{assetclass.ErrDuplicateClass, "DuplicateAssetClass", http.StatusConflict},
	{access.ErrAlreadyBootstrapped, "AlreadyBootstrapped", http.StatusConflict},
	{access.ErrLastAdmin, "LastAdmin", http.StatusConflict},
	{warper.ErrAlreadyInitialized, "AlreadyInitialized", http.StatusConflict},
	{warper.ErrNotInitialized, "NotInitialized", http.StatusConflict},
	{warper.ErrTokenAlreadyMinted, "TokenAlreadyMinted", http.StatusConflict},
	{warper.ErrInvalidStatusTransition, "InvalidStatusTransition", http.StatusConflict},
	{nft.ErrTokenExists, "TokenExists", http.StatusConflict},
	{vault.ErrAlreadyCustodied, "AlreadyCustodied", http.StatusConflict},
	{vault.ErrNotCustodied, "NotCustodied", http.StatusConflict},

	// invalid input
	{metahub.ErrRentalPeriodOutOfBounds, "RentalPeriodOutOfBounds", http.StatusUnprocessableEntity},
	{metahub.ErrPaymentExceedsMax, "PaymentExceedsMax", http.StatusUnprocessableEntity},
	{strategy.ErrInvalidParams, "InvalidStrategyParams", http.StatusUnprocessableEntity},
	{strategy.ErrPriceOverflow, "PriceOverflow", http.StatusUnprocessableEntity},
	{registry.ErrForeignMetahub, "ForeignMetahub", http.StatusUnprocessableEntity},
	{assetclass.ErrClassMismatch, "AssetClassMismatch", http.StatusUnprocessableEntity},
	{asset.ErrMalformed, "MalformedAsset", http.StatusUnprocessableEntity},
	{warper.ErrMethodNotAllowed, "MethodNotAllowed", http.StatusUnprocessableEntity},
	{warper.ErrApproveToCaller, "ApproveToCaller", http.StatusUnprocessableEntity},
	{warper.ErrInvalidAvailabilityPeriodStart, "InvalidAvailabilityPeriodStart", http.StatusUnprocessableEntity},
	{warper.ErrInvalidAvailabilityPeriodEnd, "InvalidAvailabilityPeriodEnd", http.StatusUnprocessableEntity},
	{warper.ErrInvalidMinRentalPeriod, "InvalidMinRentalPeriod", http.StatusUnprocessableEntity},
	{warper.ErrInvalidMaxRentalPeriod, "InvalidMaxRentalPeriod", http.StatusUnprocessableEntity},
	{nft.ErrWrongFrom, "TransferFromIncorrectOwner", http.StatusUnprocessableEntity},
	{nft.ErrZeroAddress, "TransferToZeroAddress", http.StatusUnprocessableEntity},
}

// classify returns the kind and status of err. Unknown errors are internal.
func classify(err error) (string, int) {
	for _, k := range errKinds {
		if errors.Is(err, k.err) {
			return k.kind, k.status
		}
	}

	return "Internal", http.StatusInternalServerError
}
