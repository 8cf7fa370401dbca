package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"Warpgate/internal/api"
	"Warpgate/internal/ident"
	"Warpgate/internal/metahub"
	"Warpgate/internal/registry"
	"Warpgate/internal/warper"
)

// Client connects to a Warpgate node via HTTP.
type Client struct {
	baseURL string        // baseURL is the node endpoint (e.g. "http://127.0.0.1:8080")
	http    *http.Client  // http performs the requests
	metahub ident.Address // metahub is the orchestrator reported by the node
}

// Wallet holds an ed25519 keypair and signs requests.
type Wallet struct {
	privKey ed25519.PrivateKey // privKey is the Ed25519 private key
	pubKey  ed25519.PublicKey  // pubKey is the Ed25519 public key
	addr    ident.Address      // addr is the account derived from pubKey
}

// APIError is a request the node rejected.
type APIError struct {
	Status  int    // Status is the HTTP status code
	Kind    string // Kind is the stable error name
	Message string // Message is the full error text
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

// IsKind reports whether err wraps an APIError of kind.
func IsKind(err error, kind string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// NewClient creates a client connected to a node.
// It fetches the metahub address from the node's /health endpoint.
func NewClient(nodeAddr string) (*Client, error) {
	base := nodeAddr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	c := &Client{
		baseURL: strings.TrimSuffix(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}

	var health struct {
		Status  string        `json:"status"`
		Metahub ident.Address `json:"metahub"`
	}

	if err := c.get("/health", &health); err != nil {
		return nil, fmt.Errorf("get health:\n%w", err)
	}

	c.metahub = health.Metahub

	return c, nil
}

// Metahub returns the orchestrator address reported by the node.
func (c *Client) Metahub() ident.Address {
	return c.metahub
}

// NewWallet creates a new wallet with a random Ed25519 keypair.
func NewWallet() *Wallet {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)

	return &Wallet{
		privKey: priv,
		pubKey:  pub,
		addr:    ident.FromPubkey(pub),
	}
}

// WalletFromKey wraps an existing private key.
func WalletFromKey(priv ed25519.PrivateKey) *Wallet {
	pub := priv.Public().(ed25519.PublicKey)

	return &Wallet{
		privKey: priv,
		pubKey:  pub,
		addr:    ident.FromPubkey(pub),
	}
}

// Address returns the wallet's account address.
func (w *Wallet) Address() ident.Address {
	return w.addr
}

// sign returns the signature of a request.
func (w *Wallet) sign(method, path string, body []byte) []byte {
	return ed25519.Sign(w.privKey, api.SigningMessage(method, path, body))
}

// Listing returns listing id.
func (c *Client) Listing(id uint64) (metahub.Listing, error) {
	var out metahub.Listing
	err := c.get(fmt.Sprintf("/listings/%d", id), &out)
	return out, err
}

// Listings returns every listing.
func (c *Client) Listings() ([]metahub.Listing, error) {
	var out []metahub.Listing
	err := c.get("/listings", &out)
	return out, err
}

// Rental returns rental agreement id.
func (c *Client) Rental(id uint64) (metahub.RentalAgreement, error) {
	var out metahub.RentalAgreement
	err := c.get(fmt.Sprintf("/rentals/%d", id), &out)
	return out, err
}

// Rentals returns every rental agreement.
func (c *Client) Rentals() ([]metahub.RentalAgreement, error) {
	var out []metahub.RentalAgreement
	err := c.get("/rentals", &out)
	return out, err
}

// Universe returns universe id.
func (c *Client) Universe(id uint64) (registry.Universe, error) {
	var out registry.Universe
	err := c.get(fmt.Sprintf("/universes/%d", id), &out)
	return out, err
}

// PresetEnabled reports whether preset id can be deployed.
func (c *Client) PresetEnabled(id string) (bool, error) {
	var out api.PresetStatus
	err := c.get("/presets/"+id, &out)
	return out.Enabled, err
}

// Warper returns the registration and parameters of a warper.
func (c *Client) Warper(addr ident.Address) (api.WarperInfo, error) {
	var out api.WarperInfo
	err := c.get("/warpers/"+addr.String(), &out)
	return out, err
}

// RentalToken returns the holder and status of a rental-rights token.
func (c *Client) RentalToken(w ident.Address, tokenID uint64) (ident.Address, warper.RentalStatus, error) {
	var out api.WarperToken
	if err := c.get(fmt.Sprintf("/warpers/%s/tokens/%d", w, tokenID), &out); err != nil {
		return ident.Address{}, warper.StatusNone, err
	}

	for _, s := range []warper.RentalStatus{warper.StatusNone, warper.StatusAvailable, warper.StatusRented} {
		if s.String() == out.Status {
			return out.Owner, s, nil
		}
	}

	return ident.Address{}, warper.StatusNone, fmt.Errorf("unknown rental status %q", out.Status)
}

// OwnerOf returns the holder of token tokenID of collection.
func (c *Client) OwnerOf(collection ident.Address, tokenID uint64) (ident.Address, error) {
	var out map[string]ident.Address
	err := c.get(fmt.Sprintf("/collections/%s/tokens/%d", collection, tokenID), &out)
	return out["owner"], err
}

// HasRole reports whether account holds role.
func (c *Client) HasRole(account ident.Address, role string) (bool, error) {
	var out map[string]bool
	err := c.get(fmt.Sprintf("/admin/roles/%s/%s", role, account), &out)
	return out["hasRole"], err
}
