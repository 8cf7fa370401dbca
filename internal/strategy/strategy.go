package strategy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"Warpgate/internal/ident"
)

var (
	// ErrUnknownStrategy is returned for a strategy id outside the table.
	ErrUnknownStrategy = errors.New("unknown listing strategy")

	// ErrInvalidParams is returned when params do not follow the strategy layout.
	ErrInvalidParams = errors.New("invalid strategy params")

	// ErrPriceOverflow is returned when a price does not fit 64 bits.
	ErrPriceOverflow = errors.New("price overflow")
)

// Strategy ids.
var (
	FixedPrice           = ident.SelectorOf("FIXED_PRICE")
	FixedPriceWithReward = ident.SelectorOf("FIXED_PRICE_WITH_REWARD")
)

// Quote is the outcome of pricing one rental.
type Quote struct {
	Price        uint64 // Price is the total paid by the renter
	ListerReward uint64 // ListerReward is the share of Price credited to the lister
}

// Strategy prices rentals from opaque listing params.
type Strategy interface {
	// Name returns the canonical strategy name.
	Name() string
	// Validate checks params at listing time.
	Validate(params []byte) error
	// ComputePrice prices a rental of period seconds.
	ComputePrice(params []byte, period uint32) (Quote, error)
}

// table is the closed set of known strategies.
var table = map[ident.Selector]Strategy{
	FixedPrice:           fixedPrice{},
	FixedPriceWithReward: fixedPriceWithReward{},
}

// Lookup returns the strategy registered under id.
func Lookup(id ident.Selector) (Strategy, error) {
	s, ok := table[id]
	if !ok {
		return nil, fmt.Errorf("strategy %s:\n%w", id, ErrUnknownStrategy)
	}

	return s, nil
}

// Known returns every strategy id, sorted by name.
func Known() []ident.Selector {
	ids := make([]ident.Selector, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return table[ids[i]].Name() < table[ids[j]].Name()
	})

	return ids
}

// Validate checks params against the strategy id.
func Validate(id ident.Selector, params []byte) error {
	s, err := Lookup(id)
	if err != nil {
		return err
	}

	return s.Validate(params)
}

// ComputePrice prices a rental with the strategy id.
func ComputePrice(id ident.Selector, params []byte, period uint32) (Quote, error) {
	s, err := Lookup(id)
	if err != nil {
		return Quote{}, err
	}

	return s.ComputePrice(params, period)
}

// FixedPriceParams encodes a FIXED_PRICE base rate per second.
func FixedPriceParams(baseRate uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, baseRate)
}

// FixedPriceWithRewardParams encodes a base rate and the lister reward percent.
func FixedPriceWithRewardParams(baseRate uint64, rewardPercent uint16) []byte {
	buf := binary.LittleEndian.AppendUint64(nil, baseRate)
	return binary.LittleEndian.AppendUint16(buf, rewardPercent)
}

// fixedPrice charges baseRate per second.
type fixedPrice struct{}

func (fixedPrice) Name() string { return "FIXED_PRICE" }

func (fixedPrice) Validate(params []byte) error {
	_, err := decodeFixed(params)
	return err
}

func (fixedPrice) ComputePrice(params []byte, period uint32) (Quote, error) {
	rate, err := decodeFixed(params)
	if err != nil {
		return Quote{}, err
	}

	price, err := multiply(rate, period)
	if err != nil {
		return Quote{}, err
	}

	return Quote{Price: price}, nil
}

// fixedPriceWithReward charges like fixedPrice and credits a share to the lister.
type fixedPriceWithReward struct{}

func (fixedPriceWithReward) Name() string { return "FIXED_PRICE_WITH_REWARD" }

func (fixedPriceWithReward) Validate(params []byte) error {
	_, _, err := decodeReward(params)
	return err
}

func (fixedPriceWithReward) ComputePrice(params []byte, period uint32) (Quote, error) {
	rate, pct, err := decodeReward(params)
	if err != nil {
		return Quote{}, err
	}

	price, err := multiply(rate, period)
	if err != nil {
		return Quote{}, err
	}

	// price * pct can exceed 64 bits; divide the 128-bit product.
	hi, lo := bits.Mul64(price, uint64(pct))
	reward, _ := bits.Div64(hi, lo, 100)

	return Quote{Price: price, ListerReward: reward}, nil
}

// decodeFixed reads a u64 base rate.
func decodeFixed(params []byte) (uint64, error) {
	if len(params) != 8 {
		return 0, fmt.Errorf("FIXED_PRICE expects 8 bytes, got %d:\n%w", len(params), ErrInvalidParams)
	}

	return binary.LittleEndian.Uint64(params), nil
}

// decodeReward reads a u64 base rate and a u16 percent.
func decodeReward(params []byte) (uint64, uint16, error) {
	if len(params) != 10 {
		return 0, 0, fmt.Errorf("FIXED_PRICE_WITH_REWARD expects 10 bytes, got %d:\n%w", len(params), ErrInvalidParams)
	}

	pct := binary.LittleEndian.Uint16(params[8:])
	if pct > 100 {
		return 0, 0, fmt.Errorf("reward percent %d above 100:\n%w", pct, ErrInvalidParams)
	}

	return binary.LittleEndian.Uint64(params[:8]), pct, nil
}

// multiply returns rate * period or ErrPriceOverflow.
func multiply(rate uint64, period uint32) (uint64, error) {
	hi, lo := bits.Mul64(rate, uint64(period))
	if hi != 0 {
		return 0, fmt.Errorf("rate %d for %d seconds:\n%w", rate, period, ErrPriceOverflow)
	}

	return lo, nil
}
