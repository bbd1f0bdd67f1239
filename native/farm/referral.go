package farm

import "math/big"

// bindReferral records candidate as the account's referrer unless one is
// already bound. Self-referral counts as no referral. It reports whether a
// non-empty referrer was bound by this call.
func (e *Engine) bindReferral(acc *Account, candidate [20]byte, now int64) bool {
	if candidate == acc.Address {
		candidate = [20]byte{}
	}
	if acc.HasReferrer() {
		return false
	}
	acc.Referrer = candidate
	if isZeroAddress(candidate) {
		return false
	}
	e.emit(ReferralBoundEvent(hexAddr(acc.Address), hexAddr(candidate), now))
	return true
}

// rewardReferrer credits floor(converted / divisor) straight into the
// referrer's claimed units.
func (e *Engine) rewardReferrer(referrer, user [20]byte, converted *big.Int, now int64) (*big.Int, error) {
	reward := new(big.Int).Div(converted, new(big.Int).SetUint64(e.params.ReferralDivisor))
	acc, err := e.account(referrer)
	if err != nil {
		return nil, err
	}
	acc.ClaimedUnits = new(big.Int).Add(acc.ClaimedUnits, reward)
	if err := e.state.FarmAccountPut(acc); err != nil {
		return nil, err
	}
	e.emit(ReferralRewardedEvent(hexAddr(referrer), hexAddr(user), reward.String(), now))
	return reward, nil
}
