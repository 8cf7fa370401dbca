package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"Warpgate/internal/genesis"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
)

// Server is the HTTP API server.
// Every request runs through a single executor so ledger writes never overlap.
type Server struct {
	addr   string              // addr is the HTTP listen address
	d      *genesis.Deployment // d holds the wired rental core
	mu     sync.Mutex          // mu serializes request execution
	server *http.Server        // server is the underlying HTTP server
}

// New creates a new HTTP API server over d.
func New(addr string, d *genesis.Deployment) *Server {
	return &Server{
		addr: addr,
		d:    d,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /strategies", s.handleStrategies)

	mux.HandleFunc("POST /listings", s.handleCreateListing)
	mux.HandleFunc("GET /listings", s.handleListings)
	mux.HandleFunc("GET /listings/{id}", s.handleListing)
	mux.HandleFunc("POST /listings/{id}/delist", s.handleDelist)
	mux.HandleFunc("POST /listings/{id}/rent", s.handleRent)

	mux.HandleFunc("GET /rentals", s.handleRentals)
	mux.HandleFunc("GET /rentals/{id}", s.handleRental)
	mux.HandleFunc("POST /rentals/{id}/return", s.handleReturn)

	mux.HandleFunc("POST /universes", s.handleCreateUniverse)
	mux.HandleFunc("GET /universes/{id}", s.handleUniverse)
	mux.HandleFunc("POST /universes/{id}/transfer", s.handleTransferUniverse)

	mux.HandleFunc("POST /presets", s.handleRegisterPreset)
	mux.HandleFunc("GET /presets/{id}", s.handlePreset)
	mux.HandleFunc("POST /presets/{id}/enable", s.handleEnablePreset)
	mux.HandleFunc("POST /presets/{id}/disable", s.handleDisablePreset)

	mux.HandleFunc("POST /warpers", s.handleDeployWarper)
	mux.HandleFunc("GET /warpers/{addr}", s.handleWarper)
	mux.HandleFunc("GET /warpers/{addr}/tokens/{id}", s.handleWarperToken)
	mux.HandleFunc("POST /warpers/{addr}/register", s.handleRegisterWarper)
	mux.HandleFunc("POST /warpers/{addr}/deregister", s.handleDeregisterWarper)
	mux.HandleFunc("POST /warpers/{addr}/pause", s.handlePauseWarper)
	mux.HandleFunc("POST /warpers/{addr}/unpause", s.handleUnpauseWarper)
	mux.HandleFunc("POST /warpers/{addr}/params", s.handleWarperParams)

	mux.HandleFunc("POST /collections", s.handleCreateCollection)
	mux.HandleFunc("GET /collections/{addr}/tokens/{id}", s.handleCollectionToken)
	mux.HandleFunc("POST /collections/{addr}/mint", s.handleMint)
	mux.HandleFunc("POST /collections/{addr}/approve", s.handleApprove)

	mux.HandleFunc("GET /admin/roles/{role}/{account}", s.handleHasRole)
	mux.HandleFunc("POST /admin/roles/grant", s.handleGrantRole)
	mux.HandleFunc("POST /admin/roles/revoke", s.handleRevokeRole)
	mux.HandleFunc("POST /admin/custody/migrate", s.handleMigrateCustody)

	return mux
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// exec runs fn on the executor.
func (s *Server) exec(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn()
}

// update runs fn in one ledger transaction on the executor.
func (s *Server) update(fn func(tx *ledger.Tx) error) error {
	return s.exec(func() error {
		return s.d.Ledger.Update(fn)
	})
}

// view runs fn in a read-only transaction on the executor.
func (s *Server) view(fn func(tx *ledger.Tx) error) error {
	return s.exec(func() error {
		return s.d.Ledger.View(fn)
	})
}

// signed authenticates r and decodes its JSON body into req when non-nil.
// On failure it writes the response and returns false.
func signed(w http.ResponseWriter, r *http.Request, req any) (ident.Address, bool) {
	caller, body, err := authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "BadSignature", err.Error())
		return ident.Address{}, false
	}

	if req != nil && len(body) > 0 {
		if err := json.Unmarshal(body, req); err != nil {
			writeError(w, http.StatusBadRequest, "BadRequest", "invalid JSON body: "+err.Error())
			return ident.Address{}, false
		}
	}

	return caller, true
}

// pathUint parses the named path segment as a uint64.
func pathUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid "+name)
		return 0, false
	}

	return v, true
}

// pathAddress parses the named path segment as an address.
func pathAddress(w http.ResponseWriter, r *http.Request, name string) (ident.Address, bool) {
	a, err := ident.ParseAddress(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid "+name)
		return ident.Address{}, false
	}

	return a, true
}

// respond writes data, or the classified failure when err is set.
func respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error string `json:"error"` // Error is the full error message
	Kind  string `json:"kind"`  // Kind is the stable error name
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorBody{Error: message, Kind: kind})
}

// writeFailure classifies err and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	kind, status := classify(err)

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Debug("request rejected", "kind", kind, "error", err)
	}

	writeError(w, status, kind, err.Error())
}
