package api

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"Warpgate/internal/genesis"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger/ledgertest"
	"Warpgate/internal/metahub"
	"Warpgate/internal/warper"
)

// account is a test signer.
type account struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
	addr ident.Address
}

func newAccount(t *testing.T) account {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return account{pub: pub, priv: priv, addr: ident.FromPubkey(pub)}
}

// env is a running API over a freshly bootstrapped deployment.
type env struct {
	srv   *httptest.Server
	d     *genesis.Deployment
	admin account
}

func newEnv(t *testing.T) *env {
	t.Helper()

	admin := newAccount(t)

	d, err := genesis.Deploy(ledgertest.New(t), genesis.Config{Admin: admin.addr})
	if err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	srv := httptest.NewServer(New("", d).Handler())
	t.Cleanup(srv.Close)

	return &env{srv: srv, d: d, admin: admin}
}

// call sends a request signed by from (unsigned when from is nil) and
// decodes the response into out when the status is 200.
func (e *env) call(t *testing.T, from *account, method, path string, body, out any) (int, ErrorBody) {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	req, err := http.NewRequest(method, e.srv.URL+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	if from != nil {
		sig := ed25519.Sign(from.priv, SigningMessage(method, path, raw))
		req.Header.Set(HeaderSender, hex.EncodeToString(from.pub))
		req.Header.Set(HeaderSignature, hex.EncodeToString(sig))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var failure ErrorBody
	if resp.StatusCode != http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return resp.StatusCode, failure
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}

	return resp.StatusCode, failure
}

// mustCall is call that fails the test on any non-200 response.
func (e *env) mustCall(t *testing.T, from *account, method, path string, body, out any) {
	t.Helper()

	if status, failure := e.call(t, from, method, path, body, out); status != http.StatusOK {
		t.Fatalf("%s %s: status %d kind %s: %s", method, path, status, failure.Kind, failure.Error)
	}
}

// setupRental creates a collection with token 7 held by lister, approves the
// metahub and registers one warper for it. It returns the collection and warper.
func (e *env) setupRental(t *testing.T, lister, owner account) (ident.Address, ident.Address) {
	t.Helper()

	var coll map[string]ident.Address
	e.mustCall(t, &lister, "POST", "/collections", CollectionRequest{Name: "punks"}, &coll)
	collection := coll["address"]

	e.mustCall(t, &lister, "POST", "/collections/"+collection.String()+"/mint",
		CollectionRequest{To: lister.addr, TokenID: 7}, nil)
	e.mustCall(t, &lister, "POST", "/collections/"+collection.String()+"/approve",
		CollectionRequest{Operator: genesis.MetahubAddress, Approved: true}, nil)

	var u struct {
		ID uint64 `json:"id"`
	}
	e.mustCall(t, &owner, "POST", "/universes", UniverseRequest{Name: "arcade"}, &u)

	var deployed map[string]ident.Address
	e.mustCall(t, &owner, "POST", "/warpers", DeployRequest{Preset: genesis.PresetConfigurable, Original: collection}, &deployed)
	w := deployed["address"]

	e.mustCall(t, &owner, "POST", "/warpers/"+w.String()+"/register", RegisterRequest{UniverseID: u.ID}, nil)

	return collection, w
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t)

	var resp map[string]string
	e.mustCall(t, nil, "GET", "/health", nil, &resp)

	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}

	if resp["metahub"] != genesis.MetahubAddress.String() {
		t.Errorf("metahub = %s", resp["metahub"])
	}
}

func TestStrategiesEndpoint(t *testing.T) {
	e := newEnv(t)

	var names []string
	e.mustCall(t, nil, "GET", "/strategies", nil, &names)

	if len(names) != 2 || names[0] != "FIXED_PRICE" || names[1] != "FIXED_PRICE_WITH_REWARD" {
		t.Errorf("strategies = %v", names)
	}
}

func TestSignatureRequired(t *testing.T) {
	e := newEnv(t)

	status, failure := e.call(t, nil, "POST", "/universes", UniverseRequest{Name: "x"}, nil)
	if status != http.StatusUnauthorized || failure.Kind != "BadSignature" {
		t.Errorf("unsigned: status %d kind %s", status, failure.Kind)
	}

	// Signature over a different path.
	raw, _ := json.Marshal(UniverseRequest{Name: "x"})
	req, _ := http.NewRequest("POST", e.srv.URL+"/universes", bytes.NewReader(raw))
	req.Header.Set(HeaderSender, hex.EncodeToString(e.admin.pub))
	req.Header.Set(HeaderSignature, hex.EncodeToString(ed25519.Sign(e.admin.priv, SigningMessage("POST", "/presets", raw))))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("mismatched signature: status %d", resp.StatusCode)
	}
}

func TestRentalFlow(t *testing.T) {
	e := newEnv(t)
	lister, renter, owner := newAccount(t), newAccount(t), newAccount(t)

	collection, w := e.setupRental(t, lister, owner)

	var listing metahub.Listing
	e.mustCall(t, &lister, "POST", "/listings", CreateListingRequest{
		Collection: collection,
		TokenID:    7,
		Strategy:   "FIXED_PRICE",
		BaseRate:   10,
	}, &listing)

	if listing.Lister != lister.addr || listing.State != metahub.ListingListed {
		t.Fatalf("unexpected listing %+v", listing)
	}

	var agreement metahub.RentalAgreement
	e.mustCall(t, &renter, "POST", "/listings/1/rent", RentRequest{Period: 60}, &agreement)

	if agreement.Renter != renter.addr || agreement.Paid != 600 || agreement.Warper != w {
		t.Fatalf("unexpected agreement %+v", agreement)
	}

	var token WarperToken
	e.mustCall(t, nil, "GET", "/warpers/"+w.String()+"/tokens/7", nil, &token)
	if token.Owner != renter.addr || token.Status != warper.StatusRented.String() {
		t.Errorf("rental token = %+v", token)
	}

	var holder map[string]ident.Address
	e.mustCall(t, nil, "GET", "/collections/"+collection.String()+"/tokens/7", nil, &holder)
	if holder["owner"] == lister.addr {
		t.Error("original should be in custody during the rental")
	}

	status, failure := e.call(t, &lister, "POST", "/rentals/1/return", nil, nil)
	if status != http.StatusConflict || failure.Kind != "RentalNotExpired" {
		t.Errorf("early return by lister: status %d kind %s", status, failure.Kind)
	}

	var returned metahub.RentalAgreement
	e.mustCall(t, &renter, "POST", "/rentals/1/return", nil, &returned)
	if !returned.Ended {
		t.Error("returned agreement should be ended")
	}

	e.mustCall(t, nil, "GET", "/collections/"+collection.String()+"/tokens/7", nil, &holder)
	if holder["owner"] != lister.addr {
		t.Errorf("original owner after return = %s", holder["owner"])
	}

	var rentals []metahub.RentalAgreement
	e.mustCall(t, nil, "GET", "/rentals", nil, &rentals)
	if len(rentals) != 1 || !rentals[0].Ended {
		t.Errorf("rentals = %+v", rentals)
	}
}

func TestErrorKinds(t *testing.T) {
	e := newEnv(t)
	lister, renter, owner := newAccount(t), newAccount(t), newAccount(t)

	collection, _ := e.setupRental(t, lister, owner)

	e.mustCall(t, &lister, "POST", "/listings", CreateListingRequest{
		Collection: collection,
		TokenID:    7,
		Strategy:   "FIXED_PRICE",
		BaseRate:   10,
	}, nil)

	cases := []struct {
		name   string
		from   *account
		path   string
		body   any
		status int
		kind   string
	}{
		{"unknown listing", &renter, "/listings/99/rent", RentRequest{Period: 60}, http.StatusNotFound, "UnknownListing"},
		{"payment cap", &renter, "/listings/1/rent", RentRequest{Period: 60, MaxPayment: 599}, http.StatusUnprocessableEntity, "PaymentExceedsMax"},
		{"zero period", &renter, "/listings/1/rent", RentRequest{}, http.StatusUnprocessableEntity, "RentalPeriodOutOfBounds"},
		{"not lister", &renter, "/listings/1/delist", nil, http.StatusForbidden, "NotLister"},
		{"grant by stranger", &renter, "/admin/roles/grant", RoleRequest{Account: renter.addr, Role: "ADMIN"}, http.StatusForbidden, "Unauthorized"},
		{"migrate by stranger", &renter, "/admin/custody/migrate", nil, http.StatusForbidden, "Unauthorized"},
		{"unknown strategy", &lister, "/listings", CreateListingRequest{Collection: collection, TokenID: 7, Strategy: "AUCTION"}, http.StatusNotFound, "UnknownStrategy"},
		{"unminted token", &lister, "/listings", CreateListingRequest{Collection: collection, TokenID: 99, Strategy: "FIXED_PRICE", BaseRate: 10}, http.StatusUnprocessableEntity, "IncompatibleAsset"},
		{"unknown collection", &lister, "/listings", CreateListingRequest{Collection: ident.Named("nowhere"), TokenID: 7, Strategy: "FIXED_PRICE", BaseRate: 10}, http.StatusUnprocessableEntity, "IncompatibleAsset"},
		{"unknown implementation", &e.admin, "/presets", PresetRequest{ID: "x", Implementation: "missing"}, http.StatusNotFound, "UnknownImplementation"},
		{"duplicate preset", &e.admin, "/presets", PresetRequest{ID: genesis.PresetBasic, Implementation: warper.BasicPreset.Name}, http.StatusConflict, "DuplicatePresetId"},
	}

	for _, tc := range cases {
		status, failure := e.call(t, tc.from, "POST", tc.path, tc.body, nil)
		if status != tc.status || failure.Kind != tc.kind {
			t.Errorf("%s: status %d kind %s, want %d %s (%s)", tc.name, status, failure.Kind, tc.status, tc.kind, failure.Error)
		}
	}
}

func TestWarperParams(t *testing.T) {
	e := newEnv(t)
	lister, owner, stranger := newAccount(t), newAccount(t), newAccount(t)

	_, w := e.setupRental(t, lister, owner)
	path := "/warpers/" + w.String() + "/params"

	start, end, shortest, longest := uint32(100), uint32(200), uint32(10), uint32(20)

	var params warper.Params
	e.mustCall(t, &owner, "POST", path, ParamsRequest{
		AvailabilityPeriodStart: &start,
		AvailabilityPeriodEnd:   &end,
		MinRentalPeriod:         &shortest,
		MaxRentalPeriod:         &longest,
	}, &params)

	want := warper.Params{AvailabilityPeriodStart: 100, AvailabilityPeriodEnd: 200, MinRentalPeriod: 10, MaxRentalPeriod: 20}
	if params != want {
		t.Fatalf("params = %+v, want %+v", params, want)
	}

	// Move the window past its current end in one request.
	start, end = 300, 400
	e.mustCall(t, &owner, "POST", path, ParamsRequest{AvailabilityPeriodStart: &start, AvailabilityPeriodEnd: &end}, &params)
	if params.AvailabilityPeriodStart != 300 || params.AvailabilityPeriodEnd != 400 {
		t.Errorf("moved window = %+v", params)
	}

	status, failure := e.call(t, &stranger, "POST", path, ParamsRequest{MinRentalPeriod: &shortest}, nil)
	if status != http.StatusForbidden || failure.Kind != "CallerIsNotWarperAdmin" {
		t.Errorf("stranger: status %d kind %s", status, failure.Kind)
	}

	bad := uint32(50)
	status, failure = e.call(t, &owner, "POST", path, ParamsRequest{MinRentalPeriod: &bad}, nil)
	if status != http.StatusUnprocessableEntity || failure.Kind != "InvalidMinRentalPeriod" {
		t.Errorf("min above max: status %d kind %s", status, failure.Kind)
	}

	var info WarperInfo
	e.mustCall(t, nil, "GET", "/warpers/"+w.String(), nil, &info)
	if info.Params.MinRentalPeriod != 10 || !info.Registration.Registered {
		t.Errorf("warper info = %+v", info)
	}
}

func TestAdminRoutes(t *testing.T) {
	e := newEnv(t)
	sup := newAccount(t)

	e.mustCall(t, &e.admin, "POST", "/admin/roles/grant", RoleRequest{Account: sup.addr, Role: "SUPERVISOR"}, nil)

	var has map[string]bool
	e.mustCall(t, nil, "GET", "/admin/roles/SUPERVISOR/"+sup.addr.String(), nil, &has)
	if !has["hasRole"] {
		t.Error("supervisor role should be granted")
	}

	e.mustCall(t, &sup, "POST", "/presets/"+genesis.PresetBasic+"/disable", nil, nil)

	var preset PresetStatus
	e.mustCall(t, nil, "GET", "/presets/"+genesis.PresetBasic, nil, &preset)
	if preset.Enabled {
		t.Error("preset should be disabled")
	}

	var migrated map[string]ident.Address
	e.mustCall(t, &e.admin, "POST", "/admin/custody/migrate", nil, &migrated)
	if migrated["vault"] != ident.Derive("erc721-vault", 2) {
		t.Errorf("migrated vault = %s", migrated["vault"])
	}

	e.mustCall(t, &e.admin, "POST", "/admin/roles/revoke", RoleRequest{Account: sup.addr, Role: "SUPERVISOR"}, nil)
	e.mustCall(t, nil, "GET", "/admin/roles/SUPERVISOR/"+sup.addr.String(), nil, &has)
	if has["hasRole"] {
		t.Error("supervisor role should be revoked")
	}
}
