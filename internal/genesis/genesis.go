package genesis

import (
	"errors"
	"fmt"

	"Warpgate/internal/access"
	"Warpgate/internal/asset"
	"Warpgate/internal/assetclass"
	"Warpgate/internal/controller"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
	"Warpgate/internal/metahub"
	"Warpgate/internal/nft"
	"Warpgate/internal/registry"
	"Warpgate/internal/vault"
	"Warpgate/internal/warper"
)

// keyManifest stores the bootstrap manifest.
var keyManifest = []byte("genesis:manifest")

// ErrNoManifest is returned when access control exists without a bootstrap manifest.
var ErrNoManifest = errors.New("ledger bootstrapped without a deployment manifest")

// MetahubAddress is the fixed identity of the orchestrator.
var MetahubAddress = ident.Named("warpgate/metahub")

// Preset ids registered at bootstrap.
const (
	PresetConfigurable = "erc721-configurable"
	PresetBasic        = "erc721-basic"
)

// presets maps the shipped preset ids to their logic, in registration order.
var presets = []struct {
	id string
	bp *warper.Blueprint
}{
	{PresetConfigurable, warper.ConfigurablePreset},
	{PresetBasic, warper.BasicPreset},
}

// Config holds the bootstrap configuration.
type Config struct {
	// Admin receives ADMIN and SUPERVISOR on first start.
	Admin ident.Address
}

// Deployment holds every wired component of a node.
type Deployment struct {
	Ledger   *ledger.Ledger
	ACL      *access.Registry
	Book     *nft.Book
	Classes  *assetclass.Registry
	Registry *registry.Registry
	Metahub  *metahub.Metahub
	Manifest Manifest
}

// Deploy builds the components over l and bootstraps the ledger on first start.
func Deploy(l *ledger.Ledger, cfg Config) (*Deployment, error) {
	d := &Deployment{
		Ledger: l,
		ACL:    access.New(),
		Book:   nft.NewBook(),
	}
	d.Classes = assetclass.New(d.ACL)
	d.Registry = registry.New(d.ACL, d.Classes, MetahubAddress)
	d.Metahub = metahub.New(l, d.Classes, d.Registry)

	for _, p := range presets {
		d.Registry.AddBlueprint(p.bp)
	}

	manifest, found, err := d.readManifest()
	if err != nil {
		return nil, err
	}

	if found {
		d.Manifest = manifest
		d.loadCustody(manifest.Generations)

		if !cfg.Admin.IsZero() && cfg.Admin != manifest.Admin {
			logger.Warn("configured admin ignored, ledger already bootstrapped",
				"configured", cfg.Admin,
				"bootstrap", manifest.Admin,
			)
		}

		logger.Info("deployment loaded", "admin", manifest.Admin, "generations", manifest.Generations)

		return d, nil
	}

	var bootstrapped bool
	if err := l.View(func(tx *ledger.Tx) error {
		var err error
		bootstrapped, err = d.ACL.Bootstrapped(tx)
		return err
	}); err != nil {
		return nil, fmt.Errorf("read access control:\n%w", err)
	}

	if bootstrapped {
		return nil, ErrNoManifest
	}

	if cfg.Admin.IsZero() {
		return nil, fmt.Errorf("admin is required to bootstrap a fresh ledger")
	}

	if err := l.Update(func(tx *ledger.Tx) error {
		return d.bootstrap(tx, cfg.Admin)
	}); err != nil {
		return nil, fmt.Errorf("bootstrap ledger:\n%w", err)
	}

	logger.Info("ledger bootstrapped", "admin", cfg.Admin, "metahub", MetahubAddress)

	return d, nil
}

// bootstrap performs the one-time setup inside tx.
func (d *Deployment) bootstrap(tx *ledger.Tx, admin ident.Address) error {
	if err := d.ACL.Bootstrap(tx, admin); err != nil {
		return err
	}

	if err := d.ACL.GrantRole(tx, admin, admin, access.RoleSupervisor); err != nil {
		return err
	}

	c, v := d.custodyPair(1)
	if err := d.Classes.Register(tx, admin, asset.ERC721, c, v); err != nil {
		return fmt.Errorf("register ERC721 class:\n%w", err)
	}

	tx.OnCommit(v.Install)

	m := Manifest{Admin: admin, Generations: 1}

	for _, p := range presets {
		if err := d.Registry.RegisterPreset(tx, admin, p.id, p.bp); err != nil {
			return fmt.Errorf("register preset %s:\n%w", p.id, err)
		}

		m.Presets = append(m.Presets, p.id)
	}

	d.Manifest = m

	return tx.Set(keyManifest, EncodeManifest(m))
}

// MigrateCustody deploys a new ERC721 controller and vault and reregisters
// the class to them. Active rentals keep returning through the previous vault.
// Caller must hold ADMIN.
func (d *Deployment) MigrateCustody(caller ident.Address) (ident.Address, error) {
	m := d.Manifest
	m.Generations++

	c, v := d.custodyPair(m.Generations)

	err := d.Ledger.Update(func(tx *ledger.Tx) error {
		if err := d.Classes.Reregister(tx, caller, asset.ERC721, c, v); err != nil {
			return err
		}

		tx.OnCommit(v.Install)

		return tx.Set(keyManifest, EncodeManifest(m))
	})
	if err != nil {
		return ident.Address{}, err
	}

	d.Manifest = m

	logger.Info("custody migrated", "generation", m.Generations, "vault", v.Address(), "by", caller)

	return v.Address(), nil
}

// loadCustody makes every custody generation addressable again.
func (d *Deployment) loadCustody(generations uint32) {
	for gen := uint32(1); gen <= generations; gen++ {
		c, v := d.custodyPair(gen)
		v.Install()
		d.Classes.Load(c, v)
	}
}

// custodyPair builds the controller and vault of one generation.
// The vault's acceptance hook is not installed yet.
func (d *Deployment) custodyPair(gen uint32) (*controller.ERC721Controller, *vault.ERC721Vault) {
	c := controller.NewERC721(ident.Derive("erc721-controller", uint64(gen)), MetahubAddress, d.Book)
	v := vault.Prepare(ident.Derive("erc721-vault", uint64(gen)), MetahubAddress, d.Book)

	return c, v
}

// readManifest loads the bootstrap manifest if present.
func (d *Deployment) readManifest() (Manifest, bool, error) {
	var (
		m     Manifest
		found bool
	)

	err := d.Ledger.View(func(tx *ledger.Tx) error {
		raw, err := tx.Get(keyManifest)
		if err != nil || raw == nil {
			return err
		}

		found = true
		m, err = DecodeManifest(raw)
		return err
	})
	if err != nil {
		return Manifest{}, false, fmt.Errorf("read manifest:\n%w", err)
	}

	return m, found, nil
}
