package bank

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
)

var (
	ErrInsufficientFunds = errors.New("bank: insufficient balance")
	ErrInvalidAmount     = errors.New("bank: amount cannot be negative")
	ErrTransferRejected  = errors.New("bank: transfer rejected by recipient")
	errNilState          = errors.New("bank: state not configured")
)

type bankState interface {
	BankBalanceGet(addr [20]byte) (*big.Int, error)
	BankBalancePut(addr [20]byte, balance *big.Int) error
}

// Receiver is invoked after value lands on an address. A non-nil error fails
// the transfer and with it the enclosing operation.
type Receiver interface {
	OnReceive(ctx context.Context, from [20]byte, amount *big.Int) error
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(ctx context.Context, from [20]byte, amount *big.Int) error

// OnReceive implements Receiver.
func (f ReceiverFunc) OnReceive(ctx context.Context, from [20]byte, amount *big.Int) error {
	return f(ctx, from, amount)
}

// Registry holds the receiver hooks. It outlives individual operations and
// counts the hooks currently running.
type Registry struct {
	mu      sync.RWMutex
	hooks   map[[20]byte]Receiver
	running atomic.Int32
}

// NewRegistry constructs an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[[20]byte]Receiver)}
}

// Register installs or, with a nil receiver, removes the hook for addr.
func (r *Registry) Register(addr [20]byte, recv Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if recv == nil {
		delete(r.hooks, addr)
		return
	}
	r.hooks[addr] = recv
}

// Active reports whether a receiver hook is running.
func (r *Registry) Active() bool {
	return r != nil && r.running.Load() > 0
}

func (r *Registry) invoke(ctx context.Context, recv Receiver, from [20]byte, amount *big.Int) error {
	r.running.Add(1)
	defer r.running.Add(-1)
	return recv.OnReceive(ctx, from, amount)
}

func (r *Registry) lookup(addr [20]byte) Receiver {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks[addr]
}

// Bank moves value between addresses on top of the ledger state.
type Bank struct {
	state bankState
	hooks *Registry
}

// New constructs a bank over the supplied state and optional hook registry.
func New(state bankState, hooks *Registry) *Bank {
	return &Bank{state: state, hooks: hooks}
}

// Balance returns the value held by addr.
func (b *Bank) Balance(addr [20]byte) (*big.Int, error) {
	if b == nil || b.state == nil {
		return nil, errNilState
	}
	bal, err := b.state.BankBalanceGet(addr)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

// Credit mints value onto addr. Only genesis allocation uses it.
func (b *Bank) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	bal, err := b.Balance(addr)
	if err != nil {
		return err
	}
	return b.state.BankBalancePut(addr, bal.Add(bal, amount))
}

// Transfer debits from and credits to, then runs the recipient hook. Balances
// are updated before the hook runs.
func (b *Bank) Transfer(ctx context.Context, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromBal, err := b.Balance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if err := b.state.BankBalancePut(from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	toBal, err := b.Balance(to)
	if err != nil {
		return err
	}
	if err := b.state.BankBalancePut(to, toBal.Add(toBal, amount)); err != nil {
		return err
	}
	if recv := b.hooks.lookup(to); recv != nil {
		if err := b.hooks.invoke(ctx, recv, from, new(big.Int).Set(amount)); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferRejected, err)
		}
	}
	return nil
}
