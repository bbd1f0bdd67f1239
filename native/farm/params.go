package farm

import (
	"errors"
	"math/big"
)

const (
	DefaultAccrualCap         = uint64(1_080_000)
	DefaultFeeRatePercent     = uint64(5)
	DefaultReferralDivisor    = uint64(8)
	DefaultMarketBoostDivisor = uint64(5)
	DefaultCurveScale         = uint64(10_000)
	DefaultInitialPoolSeed    = uint64(108_000_000_000)
)

// Params enumerates the economy constants. They are fixed for the lifetime
// of a ledger.
type Params struct {
	// AccrualCap is the number of seconds one producer needs to mature and the
	// most elapsed time a single settlement can credit.
	AccrualCap         uint64 `toml:"AccrualCap" json:"accrualCap"`
	FeeRatePercent     uint64 `toml:"FeeRatePercent" json:"feeRatePercent"`
	ReferralDivisor    uint64 `toml:"ReferralDivisor" json:"referralDivisor"`
	MarketBoostDivisor uint64 `toml:"MarketBoostDivisor" json:"marketBoostDivisor"`
	CurveScale         uint64 `toml:"CurveScale" json:"curveScale"`
	InitialPoolSeed    uint64 `toml:"InitialPoolSeed" json:"initialPoolSeed"`
}

// DefaultParams returns the canonical economy constants.
func DefaultParams() Params {
	return Params{
		AccrualCap:         DefaultAccrualCap,
		FeeRatePercent:     DefaultFeeRatePercent,
		ReferralDivisor:    DefaultReferralDivisor,
		MarketBoostDivisor: DefaultMarketBoostDivisor,
		CurveScale:         DefaultCurveScale,
		InitialPoolSeed:    DefaultInitialPoolSeed,
	}
}

// Validate rejects parameter sets that would divide by zero or mint nothing.
func (p Params) Validate() error {
	switch {
	case p.AccrualCap == 0:
		return errors.New("farm params: accrual cap must be positive")
	case p.FeeRatePercent >= 100:
		return errors.New("farm params: fee rate must be below 100 percent")
	case p.ReferralDivisor == 0:
		return errors.New("farm params: referral divisor must be positive")
	case p.MarketBoostDivisor == 0:
		return errors.New("farm params: market boost divisor must be positive")
	case p.CurveScale < 2:
		return errors.New("farm params: curve scale must be at least 2")
	case p.InitialPoolSeed == 0:
		return errors.New("farm params: initial pool seed must be positive")
	}
	return nil
}

func (p Params) accrualCap() *big.Int { return new(big.Int).SetUint64(p.AccrualCap) }
