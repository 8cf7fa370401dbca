package warper

import "Warpgate/internal/ident"

// Interface ids checked by controllers and the preset factory.
var (
	InterfaceERC721             = ident.SelectorOf("IERC721")
	InterfaceWarper             = ident.SelectorOf("IWarper")
	InterfaceAvailabilityPeriod = ident.SelectorOf("IAvailabilityPeriodMechanics")
	InterfaceRentalPeriod       = ident.SelectorOf("IRentalPeriodMechanics")
)

// ApprovalPolicy controls delegated transfer approvals.
type ApprovalPolicy uint8

const (
	// ApprovalsDisabled rejects approve, setApprovalForAll and their queries.
	ApprovalsDisabled ApprovalPolicy = iota
	// ApprovalsEnabled allows approvals with the self-approval guard.
	ApprovalsEnabled
)

// TransferPolicy controls who may move a token.
type TransferPolicy uint8

const (
	// TransfersMetahubOnly lets only the metahub move tokens.
	TransfersMetahubOnly TransferPolicy = iota
	// TransfersHolder lets the holder and approved accounts move tokens.
	TransfersHolder
)

// Policy is the per-preset table of holder-facing operations.
type Policy struct {
	Approvals ApprovalPolicy // Approvals gates approve and setApprovalForAll
	Transfers TransferPolicy // Transfers gates transferFrom
}

// Blueprint is the shared logic of a preset: a policy plus declared interfaces.
// Every instance deployed from a preset points at the same Blueprint.
type Blueprint struct {
	Name       string           // Name identifies the implementation
	Policy     Policy           // Policy selects the enabled operations
	Interfaces []ident.Selector // Interfaces lists the declared capabilities
}

// SupportsInterface reports whether the blueprint declares id.
func (b *Blueprint) SupportsInterface(id ident.Selector) bool {
	for _, s := range b.Interfaces {
		if s == id {
			return true
		}
	}

	return false
}

// allInterfaces is declared by both shipped presets.
var allInterfaces = []ident.Selector{
	InterfaceERC721,
	InterfaceWarper,
	InterfaceAvailabilityPeriod,
	InterfaceRentalPeriod,
}

// ConfigurablePreset is the restricted rental-rights token: no approvals,
// transfers only through the metahub.
var ConfigurablePreset = &Blueprint{
	Name: "ERC721ConfigurablePreset",
	Policy: Policy{
		Approvals: ApprovalsDisabled,
		Transfers: TransfersMetahubOnly,
	},
	Interfaces: allInterfaces,
}

// BasicPreset is the unrestricted variant with holder transfers and approvals.
var BasicPreset = &Blueprint{
	Name: "ERC721BasicPreset",
	Policy: Policy{
		Approvals: ApprovalsEnabled,
		Transfers: TransfersHolder,
	},
	Interfaces: allInterfaces,
}
