package fees

import (
	"errors"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

const (
	// DomainBuy identifies fees charged on incoming purchase value.
	DomainBuy = "buy"
	// DomainSell identifies fees charged on outgoing redemption value.
	DomainSell = "sell"

	percentDenominator = 100
)

var (
	errRateTooHigh   = errors.New("fees: rate must be below 100 percent")
	errGrossOverflow = errors.New("fees: gross amount exceeds 256 bits")
	errNegativeGross = errors.New("fees: gross amount cannot be negative")
)

// NormalizeDomain canonicalises domain identifiers for consistent lookups.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// ApplyInput captures the amount subject to the fee and the configured rate.
type ApplyInput struct {
	Domain      string
	Gross       *big.Int
	RatePercent uint64
}

// ApplyResult summarises the computed fee and the remaining net amount.
type ApplyResult struct {
	Domain string
	Gross  *big.Int
	Fee    *big.Int
	Net    *big.Int
}

// Apply computes fee = floor(gross * rate / 100) and net = gross - fee.
func Apply(input ApplyInput) (ApplyResult, error) {
	result := ApplyResult{
		Domain: NormalizeDomain(input.Domain),
		Gross:  big.NewInt(0),
		Fee:    big.NewInt(0),
		Net:    big.NewInt(0),
	}
	if input.RatePercent >= percentDenominator {
		return result, errRateTooHigh
	}
	if input.Gross == nil || input.Gross.Sign() == 0 {
		return result, nil
	}
	if input.Gross.Sign() < 0 {
		return result, errNegativeGross
	}
	gross, overflow := uint256.FromBig(input.Gross)
	if overflow {
		return result, errGrossOverflow
	}
	fee, overflow := new(uint256.Int).MulOverflow(gross, uint256.NewInt(input.RatePercent))
	if overflow {
		return result, errGrossOverflow
	}
	fee.Div(fee, uint256.NewInt(percentDenominator))
	net := new(uint256.Int).Sub(gross, fee)

	result.Gross = gross.ToBig()
	result.Fee = fee.ToBig()
	result.Net = net.ToBig()
	return result, nil
}

// Totals aggregates fee accounting per domain.
type Totals struct {
	Domain string
	Gross  *big.Int
	Fee    *big.Int
	Net    *big.Int
	Count  uint64
}

// NewTotals returns zeroed totals for the domain.
func NewTotals(domain string) *Totals {
	return &Totals{
		Domain: NormalizeDomain(domain),
		Gross:  big.NewInt(0),
		Fee:    big.NewInt(0),
		Net:    big.NewInt(0),
	}
}

// Add folds a fee evaluation into the running totals.
func (t *Totals) Add(result ApplyResult) {
	if t == nil {
		return
	}
	t.ensure()
	if result.Gross != nil {
		t.Gross.Add(t.Gross, result.Gross)
	}
	if result.Fee != nil {
		t.Fee.Add(t.Fee, result.Fee)
	}
	if result.Net != nil {
		t.Net.Add(t.Net, result.Net)
	}
	t.Count++
}

func (t *Totals) ensure() {
	if t.Gross == nil {
		t.Gross = big.NewInt(0)
	}
	if t.Fee == nil {
		t.Fee = big.NewInt(0)
	}
	if t.Net == nil {
		t.Net = big.NewInt(0)
	}
}

// Clone returns a copy of the totals structure with duplicated big.Int values.
func (t *Totals) Clone() *Totals {
	if t == nil {
		return nil
	}
	clone := &Totals{Domain: t.Domain, Count: t.Count}
	if t.Gross != nil {
		clone.Gross = new(big.Int).Set(t.Gross)
	}
	if t.Fee != nil {
		clone.Fee = new(big.Int).Set(t.Fee)
	}
	if t.Net != nil {
		clone.Net = new(big.Int).Set(t.Net)
	}
	clone.ensure()
	return clone
}
