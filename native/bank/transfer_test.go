package bank

import (
	"context"
	"errors"
	"math/big"
	"testing"
)

type memState struct {
	balances map[[20]byte]*big.Int
}

func newMemState() *memState {
	return &memState{balances: make(map[[20]byte]*big.Int)}
}

func (m *memState) BankBalanceGet(addr [20]byte) (*big.Int, error) {
	if bal, ok := m.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return nil, nil
}

func (m *memState) BankBalancePut(addr [20]byte, balance *big.Int) error {
	m.balances[addr] = new(big.Int).Set(balance)
	return nil
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestTransferMovesValue(t *testing.T) {
	state := newMemState()
	b := New(state, nil)
	alice, bob := addr(1), addr(2)
	if err := b.Credit(alice, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := b.Transfer(context.Background(), alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	aBal, _ := b.Balance(alice)
	bBal, _ := b.Balance(bob)
	if aBal.Int64() != 60 || bBal.Int64() != 40 {
		t.Fatalf("unexpected balances alice=%s bob=%s", aBal, bBal)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	b := New(newMemState(), nil)
	err := b.Transfer(context.Background(), addr(1), addr(2), big.NewInt(1))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := b.Transfer(context.Background(), addr(1), addr(2), big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer should be a no-op, got %v", err)
	}
}

func TestTransferHookRejection(t *testing.T) {
	hooks := NewRegistry()
	b := New(newMemState(), hooks)
	sender, recipient := addr(1), addr(2)
	if err := b.Credit(sender, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	var seen *big.Int
	hooks.Register(recipient, ReceiverFunc(func(_ context.Context, from [20]byte, amount *big.Int) error {
		if from != sender {
			t.Fatalf("unexpected sender %x", from)
		}
		seen = amount
		return errors.New("no thanks")
	}))
	err := b.Transfer(context.Background(), sender, recipient, big.NewInt(5))
	if !errors.Is(err, ErrTransferRejected) {
		t.Fatalf("expected ErrTransferRejected, got %v", err)
	}
	if seen == nil || seen.Int64() != 5 {
		t.Fatalf("hook did not observe the transfer amount")
	}

	hooks.Register(recipient, nil)
	if err := b.Transfer(context.Background(), sender, recipient, big.NewInt(1)); err != nil {
		t.Fatalf("expected hook removal to allow transfer, got %v", err)
	}
}

func TestRegistryTracksRunningHooks(t *testing.T) {
	state := newMemState()
	hooks := NewRegistry()
	b := New(state, hooks)
	alice, bob := addr(1), addr(2)
	if err := b.Credit(alice, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	var during bool
	hooks.Register(bob, ReceiverFunc(func(context.Context, [20]byte, *big.Int) error {
		during = hooks.Active()
		return nil
	}))
	if hooks.Active() {
		t.Fatalf("no hook should be running yet")
	}
	if err := b.Transfer(context.Background(), alice, bob, big.NewInt(4)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !during {
		t.Fatalf("expected Active inside the hook")
	}
	if hooks.Active() {
		t.Fatalf("expected no running hook after transfer")
	}
}
