package client

import (
	"fmt"

	"Warpgate/internal/api"
	"Warpgate/internal/ident"
	"Warpgate/internal/metahub"
	"Warpgate/internal/registry"
	"Warpgate/internal/warper"
)

// CreateCollection creates an NFT collection owned by the wallet.
func (w *Wallet) CreateCollection(c *Client, name string) (ident.Address, error) {
	var out map[string]ident.Address
	if err := c.post(w, "/collections", api.CollectionRequest{Name: name}, &out); err != nil {
		return ident.Address{}, fmt.Errorf("create collection:\n%w", err)
	}

	return out["address"], nil
}

// Mint mints tokenID of collection to to. The wallet must be the creator.
func (w *Wallet) Mint(c *Client, collection, to ident.Address, tokenID uint64) error {
	path := "/collections/" + collection.String() + "/mint"
	return c.post(w, path, api.CollectionRequest{To: to, TokenID: tokenID}, nil)
}

// ApproveAll sets operator approval over every wallet token of collection.
func (w *Wallet) ApproveAll(c *Client, collection, operator ident.Address, approved bool) error {
	path := "/collections/" + collection.String() + "/approve"
	return c.post(w, path, api.CollectionRequest{Operator: operator, Approved: approved}, nil)
}

// CreateUniverse creates a universe owned by the wallet.
func (w *Wallet) CreateUniverse(c *Client, name string) (registry.Universe, error) {
	var out registry.Universe
	err := c.post(w, "/universes", api.UniverseRequest{Name: name}, &out)
	return out, err
}

// TransferUniverse hands universe id to owner.
func (w *Wallet) TransferUniverse(c *Client, id uint64, owner ident.Address) error {
	return c.post(w, fmt.Sprintf("/universes/%d/transfer", id), api.UniverseRequest{Owner: owner}, nil)
}

// RegisterPreset registers presetID backed by the named implementation.
func (w *Wallet) RegisterPreset(c *Client, presetID, implementation string) error {
	return c.post(w, "/presets", api.PresetRequest{ID: presetID, Implementation: implementation}, nil)
}

// SetPresetEnabled enables or disables presetID.
func (w *Wallet) SetPresetEnabled(c *Client, presetID string, enabled bool) error {
	action := "disable"
	if enabled {
		action = "enable"
	}

	return c.post(w, "/presets/"+presetID+"/"+action, nil, nil)
}

// DeployWarper deploys a warper for original from presetID.
func (w *Wallet) DeployWarper(c *Client, presetID string, original ident.Address) (ident.Address, error) {
	var out map[string]ident.Address
	if err := c.post(w, "/warpers", api.DeployRequest{Preset: presetID, Original: original}, &out); err != nil {
		return ident.Address{}, fmt.Errorf("deploy warper:\n%w", err)
	}

	return out["address"], nil
}

// RegisterWarper registers a deployed warper in universeID for the ERC721 class.
func (w *Wallet) RegisterWarper(c *Client, addr ident.Address, universeID uint64) error {
	return c.post(w, "/warpers/"+addr.String()+"/register", api.RegisterRequest{UniverseID: universeID}, nil)
}

// DeregisterWarper removes a warper from the registry.
func (w *Wallet) DeregisterWarper(c *Client, addr ident.Address) error {
	return c.post(w, "/warpers/"+addr.String()+"/deregister", nil, nil)
}

// SetWarperPaused pauses or unpauses a warper.
func (w *Wallet) SetWarperPaused(c *Client, addr ident.Address, paused bool) error {
	action := "unpause"
	if paused {
		action = "pause"
	}

	return c.post(w, "/warpers/"+addr.String()+"/"+action, nil, nil)
}

// SetWarperParams updates the given extension bounds and returns the result.
func (w *Wallet) SetWarperParams(c *Client, addr ident.Address, req api.ParamsRequest) (warper.Params, error) {
	var out warper.Params
	err := c.post(w, "/warpers/"+addr.String()+"/params", req, &out)
	return out, err
}

// CreateListing lists token tokenID of collection.
func (w *Wallet) CreateListing(c *Client, req api.CreateListingRequest) (metahub.Listing, error) {
	var out metahub.Listing
	err := c.post(w, "/listings", req, &out)
	return out, err
}

// Delist withdraws listing id.
func (w *Wallet) Delist(c *Client, id uint64) error {
	return c.post(w, fmt.Sprintf("/listings/%d/delist", id), nil, nil)
}

// Rent rents listing id for the wallet.
func (w *Wallet) Rent(c *Client, id uint64, req api.RentRequest) (metahub.RentalAgreement, error) {
	var out metahub.RentalAgreement
	err := c.post(w, fmt.Sprintf("/listings/%d/rent", id), req, &out)
	return out, err
}

// Return ends rental id.
func (w *Wallet) Return(c *Client, id uint64) (metahub.RentalAgreement, error) {
	var out metahub.RentalAgreement
	err := c.post(w, fmt.Sprintf("/rentals/%d/return", id), nil, &out)
	return out, err
}

// GrantRole grants role to account. The wallet must hold ADMIN.
func (w *Wallet) GrantRole(c *Client, account ident.Address, role string) error {
	return c.post(w, "/admin/roles/grant", map[string]any{"account": account, "role": role}, nil)
}

// RevokeRole revokes role from account. The wallet must hold ADMIN.
func (w *Wallet) RevokeRole(c *Client, account ident.Address, role string) error {
	return c.post(w, "/admin/roles/revoke", map[string]any{"account": account, "role": role}, nil)
}

// MigrateCustody moves new rentals to a fresh vault and returns its address.
func (w *Wallet) MigrateCustody(c *Client) (ident.Address, error) {
	var out map[string]ident.Address
	if err := c.post(w, "/admin/custody/migrate", nil, &out); err != nil {
		return ident.Address{}, err
	}

	return out["vault"], nil
}
