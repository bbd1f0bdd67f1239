package farm

import "math/big"

// Account is the per-participant accrual record. Records spring into
// existence zero-valued on first read and are never deleted.
type Account struct {
	Address        [20]byte `json:"address"`
	ClaimedUnits   *big.Int `json:"claimedUnits"`
	Producers      *big.Int `json:"producers"`
	LastSettlement int64    `json:"lastSettlement"`
	Referrer       [20]byte `json:"referrer"`
}

// NewAccount returns the zero record for addr.
func NewAccount(addr [20]byte) *Account {
	return &Account{Address: addr, ClaimedUnits: big.NewInt(0), Producers: big.NewInt(0)}
}

// HasReferrer reports whether a referrer has been bound.
func (a *Account) HasReferrer() bool {
	return a != nil && !isZeroAddress(a.Referrer)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.ClaimedUnits = newBigInt(a.ClaimedUnits)
	clone.Producers = newBigInt(a.Producers)
	return &clone
}

// Market is the single global pricing record.
type Market struct {
	PoolUnits   *big.Int `json:"poolUnits"`
	Initialized bool     `json:"initialized"`
}

// NewMarket returns the pre-bootstrap market record.
func NewMarket() *Market {
	return &Market{PoolUnits: big.NewInt(0)}
}

// Clone returns a deep copy of the market.
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	return &Market{PoolUnits: newBigInt(m.PoolUnits), Initialized: m.Initialized}
}

// MarketView is the read-only market snapshot including the held value.
type MarketView struct {
	PoolUnits   *big.Int `json:"poolUnits"`
	HeldValue   *big.Int `json:"heldValue"`
	Initialized bool     `json:"initialized"`
}

// CompoundResult describes a conversion of units into producers.
type CompoundResult struct {
	Account        [20]byte
	TotalUnits     *big.Int
	NewProducers   *big.Int
	Producers      *big.Int
	MarketBoost    *big.Int
	Referrer       [20]byte
	ReferralReward *big.Int
	Timestamp      int64
}

// BuyResult describes a purchase and the conversion it triggered.
type BuyResult struct {
	Account     [20]byte
	Paid        *big.Int
	Fee         *big.Int
	UnitsBought *big.Int
	Candidate   [20]byte
	Compound    *CompoundResult
	Timestamp   int64
}

// SellResult describes a redemption.
type SellResult struct {
	Account   [20]byte
	Units     *big.Int
	Gross     *big.Int
	Fee       *big.Int
	Payout    *big.Int
	Timestamp int64
}
