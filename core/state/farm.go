package state

import (
	"math/big"

	"unitfarm/native/farm"
	"unitfarm/native/fees"
)

var (
	farmMarketKey = []byte("farm/market")
)

const (
	farmAccountPrefix = "farm/account/"
	feeTotalsPrefix   = "fees/totals/"
)

type storedAccount struct {
	ClaimedUnits   *big.Int
	Producers      *big.Int
	LastSettlement uint64
	Referrer       [20]byte
}

type storedMarket struct {
	PoolUnits   *big.Int
	Initialized bool
}

type storedTotals struct {
	Domain string
	Gross  *big.Int
	Fee    *big.Int
	Net    *big.Int
	Count  uint64
}

func farmAccountKey(addr [20]byte) []byte {
	return prefixedKey(farmAccountPrefix, addr[:])
}

func feeTotalsKey(domain string) []byte {
	return prefixedKey(feeTotalsPrefix, []byte(fees.NormalizeDomain(domain)))
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// FarmAccountGet returns the account record or nil when none was stored.
func (m *Manager) FarmAccountGet(addr [20]byte) (*farm.Account, error) {
	var stored storedAccount
	ok, err := m.KVGet(farmAccountKey(addr), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &farm.Account{
		Address:        addr,
		ClaimedUnits:   nonNil(stored.ClaimedUnits),
		Producers:      nonNil(stored.Producers),
		LastSettlement: int64(stored.LastSettlement),
		Referrer:       stored.Referrer,
	}, nil
}

// FarmAccountPut persists the account record.
func (m *Manager) FarmAccountPut(acc *farm.Account) error {
	if acc == nil {
		return nil
	}
	var ts uint64
	if acc.LastSettlement > 0 {
		ts = uint64(acc.LastSettlement)
	}
	return m.KVPut(farmAccountKey(acc.Address), &storedAccount{
		ClaimedUnits:   nonNil(acc.ClaimedUnits),
		Producers:      nonNil(acc.Producers),
		LastSettlement: ts,
		Referrer:       acc.Referrer,
	})
}

// FarmMarketGet returns the market record or nil before the first write.
func (m *Manager) FarmMarketGet() (*farm.Market, error) {
	var stored storedMarket
	ok, err := m.KVGet(farmMarketKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &farm.Market{PoolUnits: nonNil(stored.PoolUnits), Initialized: stored.Initialized}, nil
}

// FarmMarketPut persists the market record.
func (m *Manager) FarmMarketPut(market *farm.Market) error {
	if market == nil {
		return nil
	}
	return m.KVPut(farmMarketKey, &storedMarket{PoolUnits: nonNil(market.PoolUnits), Initialized: market.Initialized})
}

// FeeTotalsGet returns the running fee totals for domain or nil.
func (m *Manager) FeeTotalsGet(domain string) (*fees.Totals, error) {
	var stored storedTotals
	ok, err := m.KVGet(feeTotalsKey(domain), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &fees.Totals{
		Domain: stored.Domain,
		Gross:  nonNil(stored.Gross),
		Fee:    nonNil(stored.Fee),
		Net:    nonNil(stored.Net),
		Count:  stored.Count,
	}, nil
}

// FeeTotalsPut persists the fee totals for their domain.
func (m *Manager) FeeTotalsPut(totals *fees.Totals) error {
	if totals == nil {
		return nil
	}
	return m.KVPut(feeTotalsKey(totals.Domain), &storedTotals{
		Domain: fees.NormalizeDomain(totals.Domain),
		Gross:  nonNil(totals.Gross),
		Fee:    nonNil(totals.Fee),
		Net:    nonNil(totals.Net),
		Count:  totals.Count,
	})
}
