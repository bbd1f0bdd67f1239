package state

import "math/big"

const (
	bankBalancePrefix  = "bank/balance/"
	payeePendingPrefix = "payees/pending/"
)

var payeeDustKey = []byte("payees/dust")

func (m *Manager) getAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (m *Manager) putAmount(key []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, amount)
}

// BankBalanceGet returns the value held by addr.
func (m *Manager) BankBalanceGet(addr [20]byte) (*big.Int, error) {
	return m.getAmount(prefixedKey(bankBalancePrefix, addr[:]))
}

// BankBalancePut records the value held by addr. Zero balances are removed.
func (m *Manager) BankBalancePut(addr [20]byte, balance *big.Int) error {
	return m.putAmount(prefixedKey(bankBalancePrefix, addr[:]), balance)
}

// PayeePendingGet returns the withdrawable balance of a payee.
func (m *Manager) PayeePendingGet(addr [20]byte) (*big.Int, error) {
	return m.getAmount(prefixedKey(payeePendingPrefix, addr[:]))
}

// PayeePendingPut records the withdrawable balance of a payee.
func (m *Manager) PayeePendingPut(addr [20]byte, amount *big.Int) error {
	return m.putAmount(prefixedKey(payeePendingPrefix, addr[:]), amount)
}

// PayeeDustGet returns the rounding remainder carried into the next deposit.
func (m *Manager) PayeeDustGet() (*big.Int, error) {
	return m.getAmount(payeeDustKey)
}

// PayeeDustPut records the rounding remainder.
func (m *Manager) PayeeDustPut(amount *big.Int) error {
	return m.putAmount(payeeDustKey, amount)
}
