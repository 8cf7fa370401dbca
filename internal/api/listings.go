package api

import (
	"fmt"
	"net/http"

	"Warpgate/internal/asset"
	"Warpgate/internal/ident"
	"Warpgate/internal/metahub"
	"Warpgate/internal/strategy"
)

// CreateListingRequest is the body of POST /listings.
type CreateListingRequest struct {
	Collection    ident.Address `json:"collection"`    // Collection holds the listed token
	TokenID       uint64        `json:"tokenId"`       // TokenID is the listed token
	Strategy      string        `json:"strategy"`      // Strategy is FIXED_PRICE or FIXED_PRICE_WITH_REWARD
	BaseRate      uint64        `json:"baseRate"`      // BaseRate is the price per second
	RewardPercent uint16        `json:"rewardPercent"` // RewardPercent is the lister share, reward strategy only
}

// RentRequest is the body of POST /listings/{id}/rent.
type RentRequest struct {
	Warper     ident.Address `json:"warper"`     // Warper is optional when one warper is registered
	Period     uint32        `json:"period"`     // Period is the rental duration in seconds
	MaxPayment uint64        `json:"maxPayment"` // MaxPayment caps the price, zero for no cap
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"metahub": s.d.Metahub.Address().String(),
	})
}

// handleStrategies lists the known listing strategies.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	var names []string

	for _, id := range strategy.Known() {
		st, err := strategy.Lookup(id)
		if err != nil {
			writeFailure(w, err)
			return
		}
		names = append(names, st.Name())
	}

	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req CreateListingRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	id, params, err := strategyParams(req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	var out metahub.Listing
	err = s.exec(func() error {
		var err error
		out, err = s.d.Metahub.CreateListing(metahub.ListingRequest{
			Lister:         caller,
			Asset:          asset.NewERC721(req.Collection, req.TokenID),
			Strategy:       id,
			StrategyParams: params,
		})
		return err
	})

	respond(w, out, err)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	var out []metahub.Listing
	err := s.exec(func() error {
		var err error
		out, err = s.d.Metahub.Listings()
		return err
	})

	respond(w, orEmpty(out), err)
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	var out metahub.Listing
	err := s.exec(func() error {
		var err error
		out, err = s.d.Metahub.Listing(id)
		return err
	})

	respond(w, out, err)
}

func (s *Server) handleDelist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	caller, ok := signed(w, r, nil)
	if !ok {
		return
	}

	err := s.exec(func() error {
		return s.d.Metahub.Delist(caller, id)
	})

	respond(w, map[string]uint64{"delisted": id}, err)
}

func (s *Server) handleRent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	var req RentRequest
	caller, ok := signed(w, r, &req)
	if !ok {
		return
	}

	var out metahub.RentalAgreement
	err := s.exec(func() error {
		var err error
		out, err = s.d.Metahub.Rent(metahub.RentRequest{
			ListingID:  id,
			Renter:     caller,
			Warper:     req.Warper,
			Period:     req.Period,
			MaxPayment: req.MaxPayment,
		})
		return err
	})

	respond(w, out, err)
}

func (s *Server) handleRentals(w http.ResponseWriter, r *http.Request) {
	var out []metahub.RentalAgreement
	err := s.exec(func() error {
		var err error
		out, err = s.d.Metahub.Rentals()
		return err
	})

	respond(w, orEmpty(out), err)
}

func (s *Server) handleRental(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	var out metahub.RentalAgreement
	err := s.exec(func() error {
		var err error
		out, err = s.d.Metahub.Rental(id)
		return err
	})

	respond(w, out, err)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	caller, ok := signed(w, r, nil)
	if !ok {
		return
	}

	var out metahub.RentalAgreement
	err := s.exec(func() error {
		var err error
		out, err = s.d.Metahub.ReturnAsset(caller, id)
		return err
	})

	respond(w, out, err)
}

// strategyParams encodes the strategy named in req.
func strategyParams(req CreateListingRequest) (ident.Selector, []byte, error) {
	switch req.Strategy {
	case "FIXED_PRICE":
		return strategy.FixedPrice, strategy.FixedPriceParams(req.BaseRate), nil
	case "FIXED_PRICE_WITH_REWARD":
		return strategy.FixedPriceWithReward, strategy.FixedPriceWithRewardParams(req.BaseRate, req.RewardPercent), nil
	default:
		return ident.Selector{}, nil, fmt.Errorf("strategy %q:\n%w", req.Strategy, strategy.ErrUnknownStrategy)
	}
}

// orEmpty keeps empty collections encoded as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
