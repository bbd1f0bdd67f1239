package farm

import "math/big"

// accrued returns min(cap, now-lastSettlement) * producers. A clock behind
// the last settlement counts as no elapsed time.
func accrued(acc *Account, now int64, cap uint64) *big.Int {
	if acc == nil || acc.Producers == nil || acc.Producers.Sign() == 0 {
		return big.NewInt(0)
	}
	elapsed := now - acc.LastSettlement
	if elapsed <= 0 {
		return big.NewInt(0)
	}
	window := new(big.Int).SetInt64(elapsed)
	if window.Cmp(new(big.Int).SetUint64(cap)) > 0 {
		window.SetUint64(cap)
	}
	return window.Mul(window, acc.Producers)
}

// balance returns claimed plus accrued units.
func balance(acc *Account, now int64, cap uint64) *big.Int {
	if acc == nil {
		return big.NewInt(0)
	}
	total := accrued(acc, now, cap)
	if acc.ClaimedUnits != nil {
		total.Add(total, acc.ClaimedUnits)
	}
	return total
}

// settle zeroes the claimed balance and restarts the accrual clock.
func settle(acc *Account, now int64) {
	acc.ClaimedUnits = big.NewInt(0)
	acc.LastSettlement = now
}
