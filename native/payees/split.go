package payees

import (
	"bytes"
	"errors"
	"math/big"
	"sort"
)

// Payee is a registered recipient and its share weight.
type Payee struct {
	Address [20]byte
	Weight  uint64
}

// Share is the amount apportioned to one payee by a split.
type Share struct {
	Address [20]byte
	Amount  *big.Int
}

// Split is the outcome of apportioning a pool among payees.
type Split struct {
	Shares        []Share
	TotalAssigned *big.Int
	Dust          *big.Int
}

// normalize merges duplicate addresses and orders payees by address so that
// splits are deterministic. Zero weights are rejected.
func normalize(list []Payee) ([]Payee, *big.Int, error) {
	merged := make(map[[20]byte]uint64)
	for _, p := range list {
		if isZeroAddress(p.Address) {
			return nil, nil, ErrZeroAddress
		}
		if p.Weight == 0 {
			return nil, nil, errors.New("payees: weight must be positive")
		}
		merged[p.Address] += p.Weight
	}
	if len(merged) == 0 {
		return nil, nil, ErrNoPayees
	}
	out := make([]Payee, 0, len(merged))
	total := big.NewInt(0)
	for addr, w := range merged {
		out = append(out, Payee{Address: addr, Weight: w})
		total.Add(total, new(big.Int).SetUint64(w))
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out, total, nil
}

// SplitPool apportions pool plus carried dust by weight with floor division.
// The remainder is returned as the new dust balance.
func SplitPool(pool, carry *big.Int, list []Payee, totalWeight *big.Int) (*Split, error) {
	if pool == nil {
		pool = big.NewInt(0)
	}
	if pool.Sign() < 0 {
		return nil, errors.New("payees: pool cannot be negative")
	}
	if totalWeight == nil || totalWeight.Sign() == 0 {
		return nil, ErrNoPayees
	}
	effective := new(big.Int).Set(pool)
	if carry != nil && carry.Sign() > 0 {
		effective.Add(effective, carry)
	}
	split := &Split{
		Shares:        make([]Share, len(list)),
		TotalAssigned: big.NewInt(0),
		Dust:          big.NewInt(0),
	}
	for i, p := range list {
		amount := new(big.Int).Mul(effective, new(big.Int).SetUint64(p.Weight))
		amount.Quo(amount, totalWeight)
		split.Shares[i] = Share{Address: p.Address, Amount: amount}
		split.TotalAssigned.Add(split.TotalAssigned, amount)
	}
	split.Dust.Sub(effective, split.TotalAssigned)
	return split, nil
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
