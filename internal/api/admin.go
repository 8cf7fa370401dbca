package api

import (
	"net/http"

	"Warpgate/internal/access"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
)

// CollectionRequest is the body of the collection routes.
type CollectionRequest struct {
	Name     string        `json:"name"`     // Name labels a new collection
	To       ident.Address `json:"to"`       // To receives a minted token
	TokenID  uint64        `json:"tokenId"`  // TokenID is the minted token
	Operator ident.Address `json:"operator"` // Operator is approved for all tokens
	Approved bool          `json:"approved"` // Approved grants or revokes Operator
}

// RoleRequest is the body of the role grant and revoke routes.
type RoleRequest struct {
	Account ident.Address `json:"account"`
	Role    access.Role   `json:"role"`
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CollectionRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	var out ident.Address
	err := s.update(func(tx *ledger.Tx) error {
		var err error
		out, err = s.d.Book.CreateCollection(tx, caller, req.Name)
		return err
	})

	respond(w, map[string]ident.Address{"address": out}, err)
}

func (s *Server) handleCollectionToken(w http.ResponseWriter, r *http.Request) {
	collection, ok := pathAddress(w, r, "addr")
	if !ok {
		return
	}

	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	var out ident.Address
	err := s.view(func(tx *ledger.Tx) error {
		var err error
		out, err = s.d.Book.OwnerOf(tx, collection, id)
		return err
	})

	respond(w, map[string]ident.Address{"owner": out}, err)
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	collection, ok := pathAddress(w, r, "addr")
	if !ok {
		return
	}

	var req CollectionRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	err := s.update(func(tx *ledger.Tx) error {
		return s.d.Book.Mint(tx, caller, collection, req.To, req.TokenID)
	})

	respond(w, map[string]ident.Address{"owner": req.To}, err)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	collection, ok := pathAddress(w, r, "addr")
	if !ok {
		return
	}

	var req CollectionRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	err := s.update(func(tx *ledger.Tx) error {
		return s.d.Book.SetApprovalForAll(tx, caller, collection, req.Operator, req.Approved)
	})

	respond(w, map[string]bool{"approved": req.Approved}, err)
}

func (s *Server) handleHasRole(w http.ResponseWriter, r *http.Request) {
	account, ok := pathAddress(w, r, "account")
	if !ok {
		return
	}

	role := access.Role(r.PathValue("role"))

	var has bool
	err := s.view(func(tx *ledger.Tx) error {
		var err error
		has, err = s.d.ACL.HasRole(tx, account, role)
		return err
	})

	respond(w, map[string]bool{"hasRole": has}, err)
}

func (s *Server) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	err := s.update(func(tx *ledger.Tx) error {
		return s.d.ACL.GrantRole(tx, caller, req.Account, req.Role)
	})

	respond(w, req, err)
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	err := s.update(func(tx *ledger.Tx) error {
		return s.d.ACL.RevokeRole(tx, caller, req.Account, req.Role)
	})

	respond(w, req, err)
}

func (s *Server) handleMigrateCustody(w http.ResponseWriter, r *http.Request) {
	caller, ok := signed(w, r, nil)
	if !ok {
		return
	}

	var out ident.Address
	err := s.exec(func() error {
		var err error
		out, err = s.d.MigrateCustody(caller)
		return err
	})

	respond(w, map[string]ident.Address{"vault": out}, err)
}
