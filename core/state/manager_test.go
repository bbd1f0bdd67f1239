package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"unitfarm/native/farm"
	"unitfarm/native/fees"
	"unitfarm/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestFarmRecordsRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	acc, err := m.FarmAccountGet(addr(1))
	require.NoError(t, err)
	require.Nil(t, acc)
	market, err := m.FarmMarketGet()
	require.NoError(t, err)
	require.Nil(t, market)

	require.NoError(t, m.FarmAccountPut(&farm.Account{
		Address:        addr(1),
		ClaimedUnits:   big.NewInt(12),
		Producers:      big.NewInt(3),
		LastSettlement: 1_700_000_000,
		Referrer:       addr(2),
	}))
	acc, err = m.FarmAccountGet(addr(1))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(12), acc.ClaimedUnits)
	require.Equal(t, big.NewInt(3), acc.Producers)
	require.EqualValues(t, 1_700_000_000, acc.LastSettlement)
	require.Equal(t, addr(2), acc.Referrer)

	require.NoError(t, m.FarmMarketPut(&farm.Market{PoolUnits: big.NewInt(99), Initialized: true}))
	market, err = m.FarmMarketGet()
	require.NoError(t, err)
	require.True(t, market.Initialized)
	require.Equal(t, big.NewInt(99), market.PoolUnits)
}

func TestFeeTotalsRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	totals := fees.NewTotals(fees.DomainSell)
	totals.Add(fees.ApplyResult{Gross: big.NewInt(100), Fee: big.NewInt(5), Net: big.NewInt(95)})
	require.NoError(t, m.FeeTotalsPut(totals))

	got, err := m.FeeTotalsGet(" SELL ")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), got.Fee)
	require.EqualValues(t, 1, got.Count)
}

func TestAmountsDefaultToZero(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	bal, err := m.BankBalanceGet(addr(1))
	require.NoError(t, err)
	require.Equal(t, 0, bal.Sign())

	require.NoError(t, m.BankBalancePut(addr(1), big.NewInt(7)))
	require.NoError(t, m.PayeePendingPut(addr(2), big.NewInt(3)))
	require.NoError(t, m.PayeeDustPut(big.NewInt(1)))
	bal, err = m.BankBalanceGet(addr(1))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(7), bal)
	dust, err := m.PayeeDustGet()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), dust)

	require.NoError(t, m.BankBalancePut(addr(1), big.NewInt(0)))
	holder := addr(1)
	ok, err := m.KVGet(prefixedKey(bankBalancePrefix, holder[:]), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStateVersion(t *testing.T) {
	db := storage.NewMemDB()
	require.NoError(t, EnsureStateVersion(db, false))
	version, ok, err := NewManager(db).StateVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StateVersion, version)

	require.NoError(t, NewManager(db).SetStateVersion(StateVersion+1))
	require.ErrorIs(t, EnsureStateVersion(db, false), ErrStateVersionMismatch)
	require.NoError(t, EnsureStateVersion(db, true))
}

func TestOverlayRollback(t *testing.T) {
	db := storage.NewMemDB()
	overlay := storage.NewOverlay(db)
	m := NewManager(overlay)
	require.NoError(t, m.BankBalancePut(addr(1), big.NewInt(5)))
	overlay.Discard()

	bal, err := NewManager(db).BankBalanceGet(addr(1))
	require.NoError(t, err)
	require.Equal(t, 0, bal.Sign())
}
