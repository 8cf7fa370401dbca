package api

import (
	"fmt"
	"net/http"

	"Warpgate/internal/asset"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/registry"
	"Warpgate/internal/warper"
)

// UniverseRequest is the body of POST /universes and its transfer.
type UniverseRequest struct {
	Name  string        `json:"name"`  // Name labels a new universe
	Owner ident.Address `json:"owner"` // Owner receives a transferred universe
}

// PresetRequest is the body of POST /presets.
type PresetRequest struct {
	ID             string `json:"id"`             // ID is the new preset id
	Implementation string `json:"implementation"` // Implementation names the preset logic
}

// PresetStatus is returned by GET /presets/{id}.
type PresetStatus struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// DeployRequest is the body of POST /warpers.
type DeployRequest struct {
	Preset   string        `json:"preset"`   // Preset is the preset to instantiate
	Original ident.Address `json:"original"` // Original is the mirrored collection
}

// RegisterRequest is the body of POST /warpers/{addr}/register.
type RegisterRequest struct {
	UniverseID uint64         `json:"universeId"` // UniverseID groups the warper
	AssetClass ident.Selector `json:"assetClass"` // AssetClass defaults to ERC721 when zero
}

// ParamsRequest is the body of POST /warpers/{addr}/params. Nil fields are left unchanged.
type ParamsRequest struct {
	AvailabilityPeriodStart *uint32 `json:"availabilityPeriodStart,omitempty"`
	AvailabilityPeriodEnd   *uint32 `json:"availabilityPeriodEnd,omitempty"`
	MinRentalPeriod         *uint32 `json:"minRentalPeriod,omitempty"`
	MaxRentalPeriod         *uint32 `json:"maxRentalPeriod,omitempty"`
}

// WarperInfo is returned by GET /warpers/{addr}.
type WarperInfo struct {
	Registration registry.Registration `json:"registration"`
	Params       warper.Params         `json:"params"`
}

// WarperToken is returned by GET /warpers/{addr}/tokens/{id}.
type WarperToken struct {
	Owner  ident.Address `json:"owner"`
	Status string        `json:"status"`
}

func (s *Server) handleCreateUniverse(w http.ResponseWriter, r *http.Request) {
	var req UniverseRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	var out registry.Universe
	err := s.update(func(tx *ledger.Tx) error {
		id, err := s.d.Registry.CreateUniverse(tx, caller, req.Name)
		if err != nil {
			return err
		}

		out, err = s.d.Registry.Universe(tx, id)
		return err
	})

	respond(w, out, err)
}

func (s *Server) handleUniverse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	var out registry.Universe
	err := s.view(func(tx *ledger.Tx) error {
		var err error
		out, err = s.d.Registry.Universe(tx, id)
		return err
	})

	respond(w, out, err)
}

func (s *Server) handleTransferUniverse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	var req UniverseRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	var out registry.Universe
	err := s.update(func(tx *ledger.Tx) error {
		if err := s.d.Registry.TransferUniverse(tx, caller, id, req.Owner); err != nil {
			return err
		}

		var err error
		out, err = s.d.Registry.Universe(tx, id)
		return err
	})

	respond(w, out, err)
}

func (s *Server) handleRegisterPreset(w http.ResponseWriter, r *http.Request) {
	var req PresetRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	bp, found := s.d.Registry.Blueprint(req.Implementation)
	if !found {
		writeFailure(w, fmt.Errorf("implementation %q:\n%w", req.Implementation, registry.ErrUnknownImplementation))
		return
	}

	err := s.update(func(tx *ledger.Tx) error {
		return s.d.Registry.RegisterPreset(tx, caller, req.ID, bp)
	})

	respond(w, PresetStatus{ID: req.ID, Enabled: true}, err)
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var out PresetStatus
	err := s.view(func(tx *ledger.Tx) error {
		enabled, err := s.d.Registry.PresetEnabled(tx, id)
		out = PresetStatus{ID: id, Enabled: enabled}
		return err
	})

	respond(w, out, err)
}

func (s *Server) handleEnablePreset(w http.ResponseWriter, r *http.Request) {
	s.setPreset(w, r, true)
}

func (s *Server) handleDisablePreset(w http.ResponseWriter, r *http.Request) {
	s.setPreset(w, r, false)
}

// setPreset enables or disables the preset named in the path.
func (s *Server) setPreset(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := r.PathValue("id")

	caller, ok := signed(w, r, nil)
	if !ok {
		return
	}

	err := s.update(func(tx *ledger.Tx) error {
		if enabled {
			return s.d.Registry.EnablePreset(tx, caller, id)
		}
		return s.d.Registry.DisablePreset(tx, caller, id)
	})

	respond(w, PresetStatus{ID: id, Enabled: enabled}, err)
}

func (s *Server) handleDeployWarper(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if _, ok := signed(w, r, &req); !ok {
		return
	}

	var out ident.Address
	err := s.update(func(tx *ledger.Tx) error {
		wp, err := s.d.Registry.DeployFromPreset(tx, req.Preset, registry.InitArgs{
			Original: req.Original,
			Metahub:  s.d.Metahub.Address(),
		})
		if err != nil {
			return err
		}

		out = wp.Address()
		return nil
	})

	respond(w, map[string]ident.Address{"address": out}, err)
}

func (s *Server) handleWarper(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "addr")
	if !ok {
		return
	}

	var out WarperInfo
	err := s.view(func(tx *ledger.Tx) error {
		reg, err := s.d.Registry.Registration(tx, addr)
		if err != nil {
			return err
		}

		wp, err := s.d.Registry.Load(tx, addr)
		if err != nil {
			return err
		}

		params, err := wp.Params(tx)
		if err != nil {
			return err
		}

		out = WarperInfo{Registration: reg, Params: params}
		return nil
	})

	respond(w, out, err)
}

func (s *Server) handleWarperToken(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "addr")
	if !ok {
		return
	}

	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	var out WarperToken
	err := s.view(func(tx *ledger.Tx) error {
		wp, err := s.d.Registry.Load(tx, addr)
		if err != nil {
			return err
		}

		owner, err := wp.OwnerOf(tx, id)
		if err != nil {
			return err
		}

		status, err := wp.RentalStatus(tx, id)
		if err != nil {
			return err
		}

		out = WarperToken{Owner: owner, Status: status.String()}
		return nil
	})

	respond(w, out, err)
}

func (s *Server) handleRegisterWarper(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "addr")
	if !ok {
		return
	}

	var req RegisterRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	if req.AssetClass == (ident.Selector{}) {
		req.AssetClass = asset.ERC721
	}

	err := s.update(func(tx *ledger.Tx) error {
		return s.d.Registry.RegisterWarper(tx, caller, addr, registry.RegisterParams{
			UniverseID: req.UniverseID,
			AssetClass: req.AssetClass,
		})
	})

	respond(w, map[string]ident.Address{"registered": addr}, err)
}

func (s *Server) handleDeregisterWarper(w http.ResponseWriter, r *http.Request) {
	s.manageWarper(w, r, "deregistered", s.d.Registry.DeregisterWarper)
}

func (s *Server) handlePauseWarper(w http.ResponseWriter, r *http.Request) {
	s.manageWarper(w, r, "paused", s.d.Registry.PauseWarper)
}

func (s *Server) handleUnpauseWarper(w http.ResponseWriter, r *http.Request) {
	s.manageWarper(w, r, "unpaused", s.d.Registry.UnpauseWarper)
}

// manageWarper runs a caller-checked registry action on the warper in the path.
func (s *Server) manageWarper(w http.ResponseWriter, r *http.Request, label string, action func(tx *ledger.Tx, caller, addr ident.Address) error) {
	addr, ok := pathAddress(w, r, "addr")
	if !ok {
		return
	}

	caller, ok := signed(w, r, nil)
	if !ok {
		return
	}

	err := s.update(func(tx *ledger.Tx) error {
		return action(tx, caller, addr)
	})

	respond(w, map[string]ident.Address{label: addr}, err)
}

func (s *Server) handleWarperParams(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "addr")
	if !ok {
		return
	}

	var req ParamsRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	var out warper.Params
	err := s.update(func(tx *ledger.Tx) error {
		wp, err := s.d.Registry.Load(tx, addr)
		if err != nil {
			return err
		}

		if err := applyParams(tx, wp, caller, req); err != nil {
			return err
		}

		out, err = wp.Params(tx)
		return err
	})

	respond(w, out, err)
}

// applyParams runs the setters for every field of req.
// Within each bound pair the widening side is applied first.
func applyParams(tx *ledger.Tx, wp *warper.Warper, caller ident.Address, req ParamsRequest) error {
	cur, err := wp.Params(tx)
	if err != nil {
		return err
	}

	setStart := func() error {
		if req.AvailabilityPeriodStart == nil {
			return nil
		}
		return wp.SetAvailabilityPeriodStart(tx, caller, *req.AvailabilityPeriodStart)
	}
	setEnd := func() error {
		if req.AvailabilityPeriodEnd == nil {
			return nil
		}
		return wp.SetAvailabilityPeriodEnd(tx, caller, *req.AvailabilityPeriodEnd)
	}
	setMin := func() error {
		if req.MinRentalPeriod == nil {
			return nil
		}
		return wp.SetMinRentalPeriod(tx, caller, *req.MinRentalPeriod)
	}
	setMax := func() error {
		if req.MaxRentalPeriod == nil {
			return nil
		}
		return wp.SetMaxRentalPeriod(tx, caller, *req.MaxRentalPeriod)
	}

	order := []func() error{setStart, setEnd, setMin, setMax}

	if req.AvailabilityPeriodEnd != nil && *req.AvailabilityPeriodEnd >= cur.AvailabilityPeriodEnd {
		order[0], order[1] = setEnd, setStart
	}

	if req.MaxRentalPeriod != nil && *req.MaxRentalPeriod >= cur.MaxRentalPeriod {
		order[2], order[3] = setMax, setMin
	}

	for _, set := range order {
		if err := set(); err != nil {
			return err
		}
	}

	return nil
}
