package farm

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"unitfarm/core/events"
	"unitfarm/core/types"
	"unitfarm/native/common"
	"unitfarm/native/fees"
)

var (
	ErrNotInitialized      = errors.New("farm engine: market not initialized")
	ErrZeroValue           = errors.New("farm engine: value must be positive")
	ErrAlreadyBootstrapped = errors.New("farm engine: market already bootstrapped")
	ErrNoUnits             = errors.New("farm engine: no units to redeem")
	ErrZeroRedemption      = errors.New("farm engine: redemption value is zero")
	ErrReentrant           = errors.New("farm engine: reentrant call")
	ErrCurveOverflow       = errors.New("farm engine: curve arithmetic overflow")
	ErrNegativeAmount      = errors.New("farm engine: amount cannot be negative")

	errNilState          = errors.New("farm engine: state not configured")
	errNilCustody        = errors.New("farm engine: custody not configured")
	errNilDistributor    = errors.New("farm engine: fee distributor not configured")
	errVaultNotSet       = errors.New("farm engine: vault not configured")
	errZeroCallerAddress = errors.New("farm engine: caller address required")
)

type engineState interface {
	FarmAccountGet(addr [20]byte) (*Account, error)
	FarmAccountPut(acc *Account) error
	FarmMarketGet() (*Market, error)
	FarmMarketPut(market *Market) error
	FeeTotalsGet(domain string) (*fees.Totals, error)
	FeeTotalsPut(totals *fees.Totals) error
}

// Custody moves value between holders. Transfers may hand control to the
// recipient before returning.
type Custody interface {
	Balance(addr [20]byte) (*big.Int, error)
	Transfer(ctx context.Context, from, to [20]byte, amount *big.Int) error
}

// Distributor accepts trade fees on behalf of the payee set.
type Distributor interface {
	Deposit(ctx context.Context, from [20]byte, amount *big.Int) error
}

// Engine wires the unit economy with persistence, custody and event emission.
type Engine struct {
	params      Params
	curve       Curve
	state       engineState
	custody     Custody
	distributor Distributor
	admin       common.AdminView
	emitter     events.Emitter
	nowFn       func() int64
	vault       [20]byte
	guard       Guard
}

// NewEngine constructs an engine for params. Invalid params fall back to the
// defaults.
func NewEngine(params Params) *Engine {
	if err := params.Validate(); err != nil {
		params = DefaultParams()
	}
	return &Engine{
		params:  params,
		curve:   NewCurve(params.CurveScale),
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// Params returns the constants the engine was built with.
func (e *Engine) Params() Params { return e.params }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCustody configures the value ledger.
func (e *Engine) SetCustody(custody Custody) { e.custody = custody }

// SetDistributor configures the fee sink.
func (e *Engine) SetDistributor(d Distributor) { e.distributor = d }

// SetAdmin configures the capability check used by Bootstrap.
func (e *Engine) SetAdmin(admin common.AdminView) { e.admin = admin }

// SetVault configures the account holding the market's value.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// Vault returns the configured vault address.
func (e *Engine) Vault() [20]byte { return e.vault }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	switch {
	case e.state == nil:
		return errNilState
	case e.custody == nil:
		return errNilCustody
	case isZeroAddress(e.vault):
		return errVaultNotSet
	}
	return nil
}

func (e *Engine) account(addr [20]byte) (*Account, error) {
	acc, err := e.state.FarmAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return NewAccount(addr), nil
	}
	acc.Address = addr
	if acc.ClaimedUnits == nil {
		acc.ClaimedUnits = big.NewInt(0)
	}
	if acc.Producers == nil {
		acc.Producers = big.NewInt(0)
	}
	return acc, nil
}

func (e *Engine) market() (*Market, error) {
	m, err := e.state.FarmMarketGet()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return NewMarket(), nil
	}
	if m.PoolUnits == nil {
		m.PoolUnits = big.NewInt(0)
	}
	return m, nil
}

func (e *Engine) heldValue() (*big.Int, error) {
	held, err := e.custody.Balance(e.vault)
	if err != nil {
		return nil, err
	}
	return newBigInt(held), nil
}

func (e *Engine) recordFee(result fees.ApplyResult) error {
	totals, err := e.state.FeeTotalsGet(result.Domain)
	if err != nil {
		return err
	}
	if totals == nil {
		totals = fees.NewTotals(result.Domain)
	}
	totals.Add(result)
	return e.state.FeeTotalsPut(totals)
}

func (e *Engine) payFee(ctx context.Context, fee *big.Int) error {
	if fee == nil || fee.Sign() == 0 {
		return nil
	}
	if e.distributor == nil {
		return errNilDistributor
	}
	return e.distributor.Deposit(ctx, e.vault, fee)
}

// Bootstrap opens the market by seeding the pool. Only the administrator may
// call it and only while the pool is empty.
func (e *Engine) Bootstrap(caller [20]byte) (*Market, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.RequireAdmin(e.admin, caller); err != nil {
		return nil, err
	}
	market, err := e.market()
	if err != nil {
		return nil, err
	}
	if market.PoolUnits.Sign() != 0 {
		return nil, ErrAlreadyBootstrapped
	}
	market.Initialized = true
	market.PoolUnits = new(big.Int).SetUint64(e.params.InitialPoolSeed)
	if err := e.state.FarmMarketPut(market); err != nil {
		return nil, err
	}
	e.emit(BootstrapEvent(hexAddr(caller), market.PoolUnits.String(), e.now()))
	return market.Clone(), nil
}

// Buy spends value on units at the curve price and converts the caller's
// whole balance into producers.
func (e *Engine) Buy(ctx context.Context, caller [20]byte, referrer [20]byte, value *big.Int) (*BuyResult, error) {
	if err := e.guard.Enter(); err != nil {
		return nil, err
	}
	defer e.guard.Exit()
	if err := e.ready(); err != nil {
		return nil, err
	}
	if isZeroAddress(caller) {
		return nil, errZeroCallerAddress
	}
	market, err := e.market()
	if err != nil {
		return nil, err
	}
	if !market.Initialized {
		return nil, ErrNotInitialized
	}
	if value == nil || value.Sign() <= 0 {
		return nil, ErrZeroValue
	}
	// The curve prices against the held value before this payment lands.
	before, err := e.heldValue()
	if err != nil {
		return nil, err
	}
	if err := e.custody.Transfer(ctx, caller, e.vault, value); err != nil {
		return nil, err
	}
	fee, err := fees.Apply(fees.ApplyInput{Domain: fees.DomainBuy, Gross: value, RatePercent: e.params.FeeRatePercent})
	if err != nil {
		return nil, err
	}
	bought, err := e.curve.Trade(fee.Net, before, market.PoolUnits)
	if err != nil {
		return nil, err
	}
	now := e.now()
	acc, err := e.account(caller)
	if err != nil {
		return nil, err
	}
	acc.ClaimedUnits = new(big.Int).Add(acc.ClaimedUnits, bought)
	if err := e.state.FarmAccountPut(acc); err != nil {
		return nil, err
	}
	compound, err := e.compound(caller, referrer, now)
	if err != nil {
		return nil, err
	}
	if err := e.recordFee(fee); err != nil {
		return nil, err
	}
	if err := e.payFee(ctx, fee.Fee); err != nil {
		return nil, err
	}
	e.emit(BuyEvent(hexAddr(caller), hexAddr(referrer), value.String(), fee.Fee.String(), bought.String(), now))
	return &BuyResult{
		Account:     caller,
		Paid:        newBigInt(value),
		Fee:         fee.Fee,
		UnitsBought: bought,
		Candidate:   referrer,
		Compound:    compound,
		Timestamp:   now,
	}, nil
}

// Compound converts the caller's unit balance into producers.
func (e *Engine) Compound(caller [20]byte, referrer [20]byte) (*CompoundResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if isZeroAddress(caller) {
		return nil, errZeroCallerAddress
	}
	market, err := e.market()
	if err != nil {
		return nil, err
	}
	if !market.Initialized {
		return nil, ErrNotInitialized
	}
	return e.compound(caller, referrer, e.now())
}

func (e *Engine) compound(caller [20]byte, referrer [20]byte, now int64) (*CompoundResult, error) {
	acc, err := e.account(caller)
	if err != nil {
		return nil, err
	}
	e.bindReferral(acc, referrer, now)
	total := balance(acc, now, e.params.AccrualCap)
	minted := new(big.Int).Div(total, e.params.accrualCap())
	acc.Producers = new(big.Int).Add(acc.Producers, minted)
	settle(acc, now)
	if err := e.state.FarmAccountPut(acc); err != nil {
		return nil, err
	}

	result := &CompoundResult{
		Account:        caller,
		TotalUnits:     total,
		NewProducers:   minted,
		Producers:      newBigInt(acc.Producers),
		ReferralReward: big.NewInt(0),
		Referrer:       acc.Referrer,
		Timestamp:      now,
	}
	if acc.HasReferrer() {
		reward, err := e.rewardReferrer(acc.Referrer, caller, total, now)
		if err != nil {
			return nil, err
		}
		result.ReferralReward = reward
	}

	market, err := e.market()
	if err != nil {
		return nil, err
	}
	boost := new(big.Int).Div(total, new(big.Int).SetUint64(e.params.MarketBoostDivisor))
	market.PoolUnits = new(big.Int).Add(market.PoolUnits, boost)
	if err := e.state.FarmMarketPut(market); err != nil {
		return nil, err
	}
	result.MarketBoost = boost
	e.emit(CompoundEvent(hexAddr(caller), total.String(), minted.String(), acc.Producers.String(), boost.String(), now))
	return result, nil
}

// Sell redeems the caller's entire unit balance for value. Producers are
// left untouched.
func (e *Engine) Sell(ctx context.Context, caller [20]byte) (*SellResult, error) {
	if err := e.guard.Enter(); err != nil {
		return nil, err
	}
	defer e.guard.Exit()
	if err := e.ready(); err != nil {
		return nil, err
	}
	market, err := e.market()
	if err != nil {
		return nil, err
	}
	if !market.Initialized {
		return nil, ErrNotInitialized
	}
	now := e.now()
	acc, err := e.account(caller)
	if err != nil {
		return nil, err
	}
	units := balance(acc, now, e.params.AccrualCap)
	if units.Sign() == 0 {
		return nil, ErrNoUnits
	}
	held, err := e.heldValue()
	if err != nil {
		return nil, err
	}
	gross, err := e.curve.Trade(units, market.PoolUnits, held)
	if err != nil {
		return nil, err
	}
	if gross.Sign() == 0 {
		return nil, ErrZeroRedemption
	}
	fee, err := fees.Apply(fees.ApplyInput{Domain: fees.DomainSell, Gross: gross, RatePercent: e.params.FeeRatePercent})
	if err != nil {
		return nil, err
	}

	// Effects land before any value leaves the vault.
	settle(acc, now)
	if err := e.state.FarmAccountPut(acc); err != nil {
		return nil, err
	}
	market.PoolUnits = new(big.Int).Add(market.PoolUnits, units)
	if err := e.state.FarmMarketPut(market); err != nil {
		return nil, err
	}
	if err := e.recordFee(fee); err != nil {
		return nil, err
	}

	if err := e.payFee(ctx, fee.Fee); err != nil {
		return nil, err
	}
	if err := e.custody.Transfer(ctx, e.vault, caller, fee.Net); err != nil {
		return nil, fmt.Errorf("farm engine: payout: %w", err)
	}
	e.emit(SellEvent(hexAddr(caller), units.String(), gross.String(), fee.Fee.String(), fee.Net.String(), now))
	return &SellResult{
		Account:   caller,
		Units:     units,
		Gross:     gross,
		Fee:       fee.Fee,
		Payout:    fee.Net,
		Timestamp: now,
	}, nil
}

// BalanceOf returns claimed plus accrued units for addr.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	acc, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return balance(acc, e.now(), e.params.AccrualCap), nil
}

// ProducersOf returns the producer count for addr.
func (e *Engine) ProducersOf(addr [20]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	acc, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return newBigInt(acc.Producers), nil
}

// ReferrerOf returns the bound referrer for addr, or the zero address.
func (e *Engine) ReferrerOf(addr [20]byte) ([20]byte, error) {
	if e.state == nil {
		return [20]byte{}, errNilState
	}
	acc, err := e.account(addr)
	if err != nil {
		return [20]byte{}, err
	}
	return acc.Referrer, nil
}

// AccountOf returns a copy of the stored record for addr.
func (e *Engine) AccountOf(addr [20]byte) (*Account, error) {
	if e.state == nil {
		return nil, errNilState
	}
	acc, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return acc.Clone(), nil
}

// PendingRewardsOf quotes the gross value the caller's units would redeem
// for right now. No fee is deducted.
func (e *Engine) PendingRewardsOf(addr [20]byte) (*big.Int, error) {
	units, err := e.BalanceOf(addr)
	if err != nil {
		return nil, err
	}
	return e.EstimateRedemption(units)
}

// EstimateRedemption quotes Trade(units, poolUnits, heldValue).
func (e *Engine) EstimateRedemption(units *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	market, err := e.market()
	if err != nil {
		return nil, err
	}
	held, err := e.heldValue()
	if err != nil {
		return nil, err
	}
	return e.curve.Trade(units, market.PoolUnits, held)
}

// EstimatePurchase quotes Trade(value, heldValue, poolUnits). The quote
// prices the full value with no fee deducted.
func (e *Engine) EstimatePurchase(value *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	market, err := e.market()
	if err != nil {
		return nil, err
	}
	held, err := e.heldValue()
	if err != nil {
		return nil, err
	}
	return e.curve.Trade(value, held, market.PoolUnits)
}

// Market returns the pool units, the held value and the bootstrap flag.
func (e *Engine) Market() (*MarketView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	market, err := e.market()
	if err != nil {
		return nil, err
	}
	held, err := e.heldValue()
	if err != nil {
		return nil, err
	}
	return &MarketView{PoolUnits: newBigInt(market.PoolUnits), HeldValue: held, Initialized: market.Initialized}, nil
}

// FeeTotals returns the running fee accounting for domain.
func (e *Engine) FeeTotals(domain string) (*fees.Totals, error) {
	if e.state == nil {
		return nil, errNilState
	}
	totals, err := e.state.FeeTotalsGet(fees.NormalizeDomain(domain))
	if err != nil {
		return nil, err
	}
	if totals == nil {
		return fees.NewTotals(domain), nil
	}
	return totals.Clone(), nil
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func newBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
