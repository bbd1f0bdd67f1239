package payees

import (
	"context"
	"errors"
	"math/big"
	"time"

	"unitfarm/core/events"
	"unitfarm/core/types"
)

var (
	ErrNoPayees          = errors.New("payees: at least one payee required")
	ErrZeroAddress       = errors.New("payees: address cannot be zero")
	ErrNothingToWithdraw = errors.New("payees: nothing to withdraw")
	ErrUnknownPayee      = errors.New("payees: unknown payee")

	errNilState = errors.New("payees: state not configured")
)

type distributorState interface {
	PayeePendingGet(addr [20]byte) (*big.Int, error)
	PayeePendingPut(addr [20]byte, amount *big.Int) error
	PayeeDustGet() (*big.Int, error)
	PayeeDustPut(amount *big.Int) error
}

// Custody moves value on behalf of the distributor.
type Custody interface {
	Transfer(ctx context.Context, from, to [20]byte, amount *big.Int) error
}

// Distributor receives lump-sum deposits and apportions them among a fixed
// payee list. Each payee withdraws its own balance.
type Distributor struct {
	address     [20]byte
	payees      []Payee
	index       map[[20]byte]struct{}
	totalWeight *big.Int
	state       distributorState
	custody     Custody
	emitter     events.Emitter
	nowFn       func() int64
}

// NewDistributor validates the payee list and binds the distributor to its
// custody address.
func NewDistributor(address [20]byte, list []Payee) (*Distributor, error) {
	if isZeroAddress(address) {
		return nil, ErrZeroAddress
	}
	normalized, total, err := normalize(list)
	if err != nil {
		return nil, err
	}
	index := make(map[[20]byte]struct{}, len(normalized))
	for _, p := range normalized {
		index[p.Address] = struct{}{}
	}
	return &Distributor{
		address:     address,
		payees:      normalized,
		index:       index,
		totalWeight: total,
		emitter:     events.NoopEmitter{},
		nowFn:       func() int64 { return time.Now().Unix() },
	}, nil
}

// Address returns the distributor's custody address.
func (d *Distributor) Address() [20]byte { return d.address }

// Payees returns the normalized payee list.
func (d *Distributor) Payees() []Payee {
	out := make([]Payee, len(d.payees))
	copy(out, d.payees)
	return out
}

// SetState configures the state backend.
func (d *Distributor) SetState(state distributorState) { d.state = state }

// SetCustody configures the value ledger.
func (d *Distributor) SetCustody(c Custody) { d.custody = c }

// SetEmitter configures the event emitter.
func (d *Distributor) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		d.emitter = events.NoopEmitter{}
		return
	}
	d.emitter = emitter
}

// SetNowFunc overrides the time source.
func (d *Distributor) SetNowFunc(now func() int64) {
	if now == nil {
		d.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	d.nowFn = now
}

func (d *Distributor) emit(evt *types.Event) {
	if d.emitter != nil && evt != nil {
		d.emitter.Emit(wrap(evt))
	}
}

func (d *Distributor) pending(addr [20]byte) (*big.Int, error) {
	amount, err := d.state.PayeePendingGet(addr)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// Deposit pulls amount from `from` into the distributor and credits each
// payee its weighted share.
func (d *Distributor) Deposit(ctx context.Context, from [20]byte, amount *big.Int) error {
	if d.state == nil || d.custody == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := d.custody.Transfer(ctx, from, d.address, amount); err != nil {
		return err
	}
	carry, err := d.state.PayeeDustGet()
	if err != nil {
		return err
	}
	split, err := SplitPool(amount, carry, d.payees, d.totalWeight)
	if err != nil {
		return err
	}
	for _, share := range split.Shares {
		if share.Amount.Sign() == 0 {
			continue
		}
		current, err := d.pending(share.Address)
		if err != nil {
			return err
		}
		if err := d.state.PayeePendingPut(share.Address, current.Add(current, share.Amount)); err != nil {
			return err
		}
	}
	if err := d.state.PayeeDustPut(split.Dust); err != nil {
		return err
	}
	d.emit(DepositEvent(hexAddr(from), amount.String(), split.TotalAssigned.String(), split.Dust.String(), d.nowFn()))
	return nil
}

// Pending returns the withdrawable balance of payee.
func (d *Distributor) Pending(payee [20]byte) (*big.Int, error) {
	if d.state == nil {
		return nil, errNilState
	}
	if _, ok := d.index[payee]; !ok {
		return nil, ErrUnknownPayee
	}
	return d.pending(payee)
}

// Withdraw pays out the payee's full pending balance. The balance is zeroed
// before the transfer.
func (d *Distributor) Withdraw(ctx context.Context, payee [20]byte) (*big.Int, error) {
	if d.state == nil || d.custody == nil {
		return nil, errNilState
	}
	if _, ok := d.index[payee]; !ok {
		return nil, ErrUnknownPayee
	}
	amount, err := d.pending(payee)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, ErrNothingToWithdraw
	}
	if err := d.state.PayeePendingPut(payee, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := d.custody.Transfer(ctx, d.address, payee, amount); err != nil {
		return nil, err
	}
	d.emit(WithdrawEvent(hexAddr(payee), amount.String(), d.nowFn()))
	return amount, nil
}
