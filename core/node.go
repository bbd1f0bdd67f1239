package core

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"unitfarm/core/events"
	nhbstate "unitfarm/core/state"
	"unitfarm/core/types"
	"unitfarm/native/bank"
	"unitfarm/native/common"
	"unitfarm/native/farm"
	"unitfarm/native/fees"
	"unitfarm/native/payees"
	"unitfarm/observability"
	"unitfarm/observability/metrics"
	"unitfarm/storage"
)

var (
	errNilDatabase   = errors.New("node: database required")
	errVaultRequired = errors.New("node: vault address required")
)

// Options wires a node to its deployment configuration.
type Options struct {
	Params             farm.Params
	Admin              [20]byte
	Vault              [20]byte
	DistributorAddress [20]byte
	Payees             []payees.Payee
	Network            string
	// Genesis credits bank balances the first time the store is opened.
	Genesis map[[20]byte]*big.Int
	Emitter events.Emitter
	Hooks   *bank.Registry
	Logger  *slog.Logger
	NowFunc func() int64
}

// Receipt summarises a committed state-changing operation.
type Receipt struct {
	ID        string         `json:"id"`
	Operation string         `json:"operation"`
	Caller    string         `json:"caller"`
	Timestamp int64          `json:"timestamp"`
	Events    []*types.Event `json:"events"`
}

// Node is the single writer over the ledger. Every operation runs to
// completion against a private overlay and either commits in one batch or
// leaves the store untouched.
type Node struct {
	db          storage.Database
	stateMu     sync.Mutex
	params      farm.Params
	admin       common.AdminView
	vault       [20]byte
	distributor [20]byte
	payees      []payees.Payee
	network     string
	emitter     events.Emitter
	hooks       *bank.Registry
	logger      *slog.Logger
	metrics     *metrics.FarmMetrics
	nowFn       func() int64
	seq         uint64
}

type opEnvKey struct{}

// opEnv is the per-operation wiring. It travels in the context so that
// nested calls made by receiver hooks can be detected.
type opEnv struct {
	manager     *nhbstate.Manager
	bank        *bank.Bank
	engine      *farm.Engine
	distributor *payees.Distributor
	now         int64
}

// NewNode opens the ledger on db, verifying the schema version and applying
// genesis allocations once.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, errNilDatabase
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.Vault == ([20]byte{}) {
		return nil, errVaultRequired
	}
	if _, err := payees.NewDistributor(opts.DistributorAddress, opts.Payees); err != nil {
		return nil, fmt.Errorf("node: distributor: %w", err)
	}
	if err := nhbstate.EnsureStateVersion(db, false); err != nil {
		return nil, err
	}
	n := &Node{
		db:          db,
		params:      opts.Params,
		admin:       common.StaticAdmin(opts.Admin),
		vault:       opts.Vault,
		distributor: opts.DistributorAddress,
		payees:      append([]payees.Payee(nil), opts.Payees...),
		network:     opts.Network,
		emitter:     opts.Emitter,
		hooks:       opts.Hooks,
		logger:      opts.Logger,
		metrics:     metrics.Farm(),
		nowFn:       opts.NowFunc,
	}
	if n.emitter == nil {
		n.emitter = events.NoopEmitter{}
	}
	if n.hooks == nil {
		n.hooks = bank.NewRegistry()
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	if n.nowFn == nil {
		n.nowFn = func() int64 { return time.Now().Unix() }
	}
	if err := n.applyGenesis(opts.Genesis); err != nil {
		return nil, err
	}
	return n, nil
}

// Hooks exposes the receiver hook registry.
func (n *Node) Hooks() *bank.Registry { return n.hooks }

// Params returns the economy constants.
func (n *Node) Params() farm.Params { return n.params }

// Network returns the deployment label.
func (n *Node) Network() string { return n.network }

// VaultAddress returns the account holding the market's value.
func (n *Node) VaultAddress() [20]byte { return n.vault }

// DistributorAddress returns the account holding undistributed fees.
func (n *Node) DistributorAddress() [20]byte { return n.distributor }

func (n *Node) applyGenesis(alloc map[[20]byte]*big.Int) error {
	_, err := n.execute(context.Background(), "genesis", [20]byte{}, func(ctx context.Context, env *opEnv) error {
		applied, err := env.manager.GenesisApplied()
		if err != nil || applied {
			return err
		}
		addrs := make([][20]byte, 0, len(alloc))
		for addr := range alloc {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool { return hex.EncodeToString(addrs[i][:]) < hex.EncodeToString(addrs[j][:]) })
		for _, addr := range addrs {
			if err := env.bank.Credit(addr, alloc[addr]); err != nil {
				return fmt.Errorf("genesis: %s: %w", hex.EncodeToString(addr[:]), err)
			}
		}
		return env.manager.MarkGenesisApplied()
	})
	return err
}

func (n *Node) newEnv(db storage.Database, emitter events.Emitter) (*opEnv, error) {
	manager := nhbstate.NewManager(db)
	custody := bank.New(manager, n.hooks)
	now := n.nowFn()

	dist, err := payees.NewDistributor(n.distributor, n.payees)
	if err != nil {
		return nil, err
	}
	dist.SetState(manager)
	dist.SetCustody(custody)
	dist.SetEmitter(emitter)
	dist.SetNowFunc(func() int64 { return now })

	engine := farm.NewEngine(n.params)
	engine.SetState(manager)
	engine.SetCustody(custody)
	engine.SetDistributor(dist)
	engine.SetAdmin(n.admin)
	engine.SetVault(n.vault)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return now })

	return &opEnv{manager: manager, bank: custody, engine: engine, distributor: dist, now: now}, nil
}

// execute runs fn against a fresh overlay while holding the state lock.
// Success commits the overlay and publishes the buffered events; failure
// discards both.
func (n *Node) execute(ctx context.Context, op string, caller [20]byte, fn func(ctx context.Context, env *opEnv) error) (*Receipt, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if n.nested(ctx) {
		n.metrics.IncReentrancy()
		return nil, farm.ErrReentrant
	}
	start := time.Now()
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	overlay := storage.NewOverlay(n.db)
	buffer := &events.Buffer{}
	env, err := n.newEnv(overlay, buffer)
	if err != nil {
		overlay.Discard()
		return nil, err
	}
	err = fn(context.WithValue(ctx, opEnvKey{}, env), env)
	dirty := overlay.Dirty()
	if err == nil {
		err = overlay.Commit()
	} else {
		overlay.Discard()
	}
	n.metrics.ObserveOperation(op, time.Since(start), err)
	if err != nil {
		buffer.Reset()
		if errors.Is(err, farm.ErrReentrant) {
			n.metrics.IncReentrancy()
		}
		n.logger.Warn("operation failed", "operation", op, "caller", hexAddr(caller), "error", err)
		return nil, err
	}

	receipt := n.receipt(op, caller, env.now, buffer.Events())
	for _, evt := range buffer.Events() {
		if raw := events.Raw(evt); raw != nil {
			observability.Events().RecordPublished(raw.Type)
			n.observeEvent(raw)
		}
	}
	buffer.Flush(n.emitter)
	n.updateMarketGauges()
	n.logger.Info("operation committed", "operation", op, "caller", hexAddr(caller), "receipt", receipt.ID, "events", len(receipt.Events), "keys", dirty)
	return receipt, nil
}

// nested reports whether ctx belongs to a running operation or a receiver
// hook is executing. Hooks run under stateMu, so a call from one that dropped
// the operation context would otherwise wait on the lock forever.
func (n *Node) nested(ctx context.Context) bool {
	if _, ok := ctx.Value(opEnvKey{}).(*opEnv); ok {
		return true
	}
	return n.hooks.Active()
}

// view runs a read-only fn. Reads issued from inside an operation (for
// example by a receiver hook) observe that operation's pending state instead
// of waiting for the lock. A hook reading without that context is rejected.
func (n *Node) view(ctx context.Context, fn func(env *opEnv) error) error {
	if ctx != nil {
		if env, ok := ctx.Value(opEnvKey{}).(*opEnv); ok {
			return fn(env)
		}
	}
	if n.hooks.Active() {
		return farm.ErrReentrant
	}
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	overlay := storage.NewOverlay(n.db)
	defer overlay.Discard()
	env, err := n.newEnv(overlay, events.NoopEmitter{})
	if err != nil {
		return err
	}
	return fn(env)
}

func (n *Node) receipt(op string, caller [20]byte, now int64, buffered []events.Event) *Receipt {
	n.seq++
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], n.seq)
	binary.BigEndian.PutUint64(buf[8:], uint64(now))
	h := blake3.New(32, nil)
	h.Write([]byte(op))
	h.Write(caller[:])
	h.Write(buf[:])
	receipt := &Receipt{Operation: op, Caller: hexAddr(caller), Timestamp: now}
	for _, evt := range buffered {
		if raw := events.Raw(evt); raw != nil {
			h.Write([]byte(raw.Type))
			receipt.Events = append(receipt.Events, raw.Clone())
		}
	}
	receipt.ID = "0x" + hex.EncodeToString(h.Sum(nil))
	return receipt
}

func (n *Node) observeEvent(evt *types.Event) {
	switch evt.Type {
	case farm.EventTypeBuy:
		n.metrics.AddFee(fees.DomainBuy, parseAmount(evt.Attr("fee")))
	case farm.EventTypeSell:
		n.metrics.AddFee(fees.DomainSell, parseAmount(evt.Attr("fee")))
	case farm.EventTypeReferralRewarded:
		n.metrics.AddReferralReward(parseAmount(evt.Attr("units")))
	}
}

func (n *Node) updateMarketGauges() {
	manager := nhbstate.NewManager(n.db)
	market, err := manager.FarmMarketGet()
	if err != nil || market == nil {
		return
	}
	held, err := manager.BankBalanceGet(n.vault)
	if err != nil {
		return
	}
	n.metrics.SetMarket(market.PoolUnits, held)
}

func parseAmount(raw string) *big.Int {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil
	}
	return v
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
