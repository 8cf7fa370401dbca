package registry

import (
	"errors"
	"sync"

	"Warpgate/internal/access"
	"Warpgate/internal/assetclass"
	"Warpgate/internal/ident"
	"Warpgate/internal/warper"
)

var (
	// ErrUnknownUniverse is returned for an id that was never created.
	ErrUnknownUniverse = errors.New("unknown universe")

	// ErrNotUniverseOwner is returned when a non-owner acts on a universe.
	ErrNotUniverseOwner = errors.New("caller is not the universe owner")

	// ErrDuplicatePresetId is returned when a preset id is already taken.
	ErrDuplicatePresetId = errors.New("duplicate preset id")

	// ErrIncompatibleImplementation is returned when a preset or warper fails the capability check.
	ErrIncompatibleImplementation = errors.New("incompatible implementation")

	// ErrUnknownPreset is returned for a preset id that was never registered.
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrPresetDisabled is returned when deploying from a disabled preset.
	ErrPresetDisabled = errors.New("preset disabled")

	// ErrUnknownImplementation is returned when a preset's logic is not loaded.
	ErrUnknownImplementation = errors.New("unknown implementation")

	// ErrUnknownWarper is returned for an address that was not deployed here.
	ErrUnknownWarper = errors.New("unknown warper")

	// ErrDuplicateWarper is returned when registering a warper twice.
	ErrDuplicateWarper = errors.New("warper already registered")

	// ErrWarperNotRegistered is returned when acting on an unregistered warper.
	ErrWarperNotRegistered = errors.New("warper not registered")

	// ErrForeignMetahub is returned when a warper was initialized for another metahub.
	ErrForeignMetahub = errors.New("warper bound to another metahub")
)

// Key prefixes.
const (
	prefixUniverse = "rg:u:" // rg:u:<id> -> owner || name
	prefixPreset   = "rg:p:" // rg:p:<preset id> -> types.Preset
	prefixWarper   = "rg:w:" // rg:w:<warper> -> types.WarperRecord
	prefixOriginal = "rg:o:" // rg:o:<original> -> warper || warper ...
)

// Registry is the warper factory and manager.
type Registry struct {
	acl     access.Checker       // acl gates presets and grants protocol-wide admin rights
	classes *assetclass.Registry // classes supplies controllers for compatibility checks
	metahub ident.Address        // metahub is the only orchestrator warpers may be bound to

	mu         sync.RWMutex                 // mu protects blueprints
	blueprints map[string]*warper.Blueprint // blueprints maps implementation names to preset logic
}

// New creates a registry bound to one metahub.
func New(acl access.Checker, classes *assetclass.Registry, metahub ident.Address) *Registry {
	return &Registry{
		acl:        acl,
		classes:    classes,
		metahub:    metahub,
		blueprints: make(map[string]*warper.Blueprint),
	}
}

// Metahub returns the orchestrator address warpers must be bound to.
func (r *Registry) Metahub() ident.Address {
	return r.metahub
}

// AddBlueprint makes preset logic available by name.
// Registered presets resolve their implementation through it after a restart.
func (r *Registry) AddBlueprint(bp *warper.Blueprint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blueprints[bp.Name] = bp
}

// Blueprint returns the logic loaded under name.
func (r *Registry) Blueprint(name string) (*warper.Blueprint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bp, ok := r.blueprints[name]
	return bp, ok
}
