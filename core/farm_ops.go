package core

import (
	"context"
	"math/big"

	"unitfarm/native/farm"
	"unitfarm/native/fees"
)

// FarmBootstrap seeds the market. Administrator only.
func (n *Node) FarmBootstrap(ctx context.Context, caller [20]byte) (*farm.Market, *Receipt, error) {
	var market *farm.Market
	receipt, err := n.execute(ctx, "bootstrap", caller, func(ctx context.Context, env *opEnv) error {
		var err error
		market, err = env.engine.Bootstrap(caller)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return market, receipt, nil
}

// FarmBuy spends value from the caller's bank balance on units.
func (n *Node) FarmBuy(ctx context.Context, caller, referrer [20]byte, value *big.Int) (*farm.BuyResult, *Receipt, error) {
	var result *farm.BuyResult
	receipt, err := n.execute(ctx, "buy", caller, func(ctx context.Context, env *opEnv) error {
		var err error
		result, err = env.engine.Buy(ctx, caller, referrer, value)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return result, receipt, nil
}

// FarmCompound converts the caller's units into producers.
func (n *Node) FarmCompound(ctx context.Context, caller, referrer [20]byte) (*farm.CompoundResult, *Receipt, error) {
	var result *farm.CompoundResult
	receipt, err := n.execute(ctx, "compound", caller, func(ctx context.Context, env *opEnv) error {
		var err error
		result, err = env.engine.Compound(caller, referrer)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return result, receipt, nil
}

// FarmSell redeems the caller's whole unit balance.
func (n *Node) FarmSell(ctx context.Context, caller [20]byte) (*farm.SellResult, *Receipt, error) {
	var result *farm.SellResult
	receipt, err := n.execute(ctx, "sell", caller, func(ctx context.Context, env *opEnv) error {
		var err error
		result, err = env.engine.Sell(ctx, caller)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return result, receipt, nil
}

// PayeesWithdraw pays the caller's pending fee share.
func (n *Node) PayeesWithdraw(ctx context.Context, caller [20]byte) (*big.Int, *Receipt, error) {
	var amount *big.Int
	receipt, err := n.execute(ctx, "payees_withdraw", caller, func(ctx context.Context, env *opEnv) error {
		var err error
		amount, err = env.distributor.Withdraw(ctx, caller)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amount, receipt, nil
}

// FarmBalanceOf returns claimed plus accrued units.
func (n *Node) FarmBalanceOf(ctx context.Context, addr [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.engine.BalanceOf(addr)
		return err
	})
	return out, err
}

// FarmPendingRewardsOf quotes the gross redemption value of addr's units.
func (n *Node) FarmPendingRewardsOf(ctx context.Context, addr [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.engine.PendingRewardsOf(addr)
		return err
	})
	return out, err
}

// FarmProducersOf returns the producer count of addr.
func (n *Node) FarmProducersOf(ctx context.Context, addr [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.engine.ProducersOf(addr)
		return err
	})
	return out, err
}

// FarmReferrerOf returns the bound referrer of addr.
func (n *Node) FarmReferrerOf(ctx context.Context, addr [20]byte) ([20]byte, error) {
	var out [20]byte
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.engine.ReferrerOf(addr)
		return err
	})
	return out, err
}

// FarmAccount returns the stored account record of addr.
func (n *Node) FarmAccount(ctx context.Context, addr [20]byte) (*farm.Account, error) {
	var out *farm.Account
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.engine.AccountOf(addr)
		return err
	})
	return out, err
}

// FarmEstimatePurchase quotes the units value would buy.
func (n *Node) FarmEstimatePurchase(ctx context.Context, value *big.Int) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.engine.EstimatePurchase(value)
		return err
	})
	return out, err
}

// FarmEstimateRedemption quotes the value units would redeem for.
func (n *Node) FarmEstimateRedemption(ctx context.Context, units *big.Int) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.engine.EstimateRedemption(units)
		return err
	})
	return out, err
}

// FarmMarket returns the market snapshot.
func (n *Node) FarmMarket(ctx context.Context) (*farm.MarketView, error) {
	var out *farm.MarketView
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.engine.Market()
		return err
	})
	return out, err
}

// FarmFeeTotals returns the running fee accounting for domain.
func (n *Node) FarmFeeTotals(ctx context.Context, domain string) (*fees.Totals, error) {
	var out *fees.Totals
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.engine.FeeTotals(domain)
		return err
	})
	return out, err
}

// PayeesPending returns the withdrawable fee share of payee.
func (n *Node) PayeesPending(ctx context.Context, payee [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.distributor.Pending(payee)
		return err
	})
	return out, err
}

// BankBalance returns the value held by addr.
func (n *Node) BankBalance(ctx context.Context, addr [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(env *opEnv) error {
		var err error
		out, err = env.bank.Balance(addr)
		return err
	})
	return out, err
}
