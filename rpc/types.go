package rpc

import (
	"unitfarm/core"
	"unitfarm/core/types"
	"unitfarm/native/farm"
	"unitfarm/native/fees"
)

type accountParams struct {
	Account string `json:"account"`
}

type payeeParams struct {
	Payee string `json:"payee"`
}

type buyParams struct {
	Referrer string `json:"referrer"`
	Value    string `json:"value"`
}

type compoundParams struct {
	Referrer string `json:"referrer"`
}

type valueParams struct {
	Value string `json:"value"`
}

type unitsParams struct {
	Units string `json:"units"`
}

type feeTotalsParams struct {
	Domain string `json:"domain"`
}

type eventsParams struct {
	Account string `json:"account"`
	Type    string `json:"type"`
	Limit   int    `json:"limit"`
}

// ReceiptResult describes a committed operation.
type ReceiptResult struct {
	ID        string         `json:"id"`
	Operation string         `json:"operation"`
	Caller    string         `json:"caller"`
	Timestamp int64          `json:"timestamp"`
	Events    []*types.Event `json:"events"`
}

type MarketResult struct {
	PoolUnits   string `json:"poolUnits"`
	HeldValue   string `json:"heldValue"`
	Initialized bool   `json:"initialized"`
}

type AccountResult struct {
	Address        string `json:"address"`
	ClaimedUnits   string `json:"claimedUnits"`
	Producers      string `json:"producers"`
	LastSettlement int64  `json:"lastSettlement"`
	Referrer       string `json:"referrer,omitempty"`
}

type CompoundResult struct {
	Account        string `json:"account"`
	TotalUnits     string `json:"totalUnits"`
	NewProducers   string `json:"newProducers"`
	Producers      string `json:"producers"`
	MarketBoost    string `json:"marketBoost"`
	Referrer       string `json:"referrer,omitempty"`
	ReferralReward string `json:"referralReward"`
	Timestamp      int64  `json:"timestamp"`
}

type BootstrapResponse struct {
	Market  MarketResult   `json:"market"`
	Receipt *ReceiptResult `json:"receipt"`
}

type BuyResponse struct {
	Account     string         `json:"account"`
	Paid        string         `json:"paid"`
	Fee         string         `json:"fee"`
	UnitsBought string         `json:"unitsBought"`
	Referrer    string         `json:"referrer,omitempty"`
	Compound    CompoundResult `json:"compound"`
	Receipt     *ReceiptResult `json:"receipt"`
}

type CompoundResponse struct {
	CompoundResult
	Receipt *ReceiptResult `json:"receipt"`
}

type SellResponse struct {
	Account string         `json:"account"`
	Units   string         `json:"units"`
	Gross   string         `json:"gross"`
	Fee     string         `json:"fee"`
	Payout  string         `json:"payout"`
	Receipt *ReceiptResult `json:"receipt"`
}

type WithdrawResponse struct {
	Payee   string         `json:"payee"`
	Amount  string         `json:"amount"`
	Receipt *ReceiptResult `json:"receipt"`
}

type AmountResult struct {
	Amount string `json:"amount"`
}

type ReferrerResult struct {
	Account  string `json:"account"`
	Referrer string `json:"referrer,omitempty"`
}

type FeeTotalsResult struct {
	Domain string `json:"domain"`
	Gross  string `json:"gross"`
	Fee    string `json:"fee"`
	Net    string `json:"net"`
	Count  uint64 `json:"count"`
}

type ParamsResult struct {
	farm.Params
	Network     string `json:"network"`
	Vault       string `json:"vault"`
	Distributor string `json:"distributor"`
}

func receiptResult(r *core.Receipt) *ReceiptResult {
	if r == nil {
		return nil
	}
	return &ReceiptResult{ID: r.ID, Operation: r.Operation, Caller: r.Caller, Timestamp: r.Timestamp, Events: r.Events}
}

func marketResult(m *farm.MarketView) MarketResult {
	if m == nil {
		return MarketResult{PoolUnits: "0", HeldValue: "0"}
	}
	return MarketResult{PoolUnits: amountString(m.PoolUnits), HeldValue: amountString(m.HeldValue), Initialized: m.Initialized}
}

func accountResult(acc *farm.Account) AccountResult {
	return AccountResult{
		Address:        addressString(acc.Address),
		ClaimedUnits:   amountString(acc.ClaimedUnits),
		Producers:      amountString(acc.Producers),
		LastSettlement: acc.LastSettlement,
		Referrer:       addressString(acc.Referrer),
	}
}

func compoundResult(res *farm.CompoundResult) CompoundResult {
	if res == nil {
		return CompoundResult{}
	}
	return CompoundResult{
		Account:        addressString(res.Account),
		TotalUnits:     amountString(res.TotalUnits),
		NewProducers:   amountString(res.NewProducers),
		Producers:      amountString(res.Producers),
		MarketBoost:    amountString(res.MarketBoost),
		Referrer:       addressString(res.Referrer),
		ReferralReward: amountString(res.ReferralReward),
		Timestamp:      res.Timestamp,
	}
}

func feeTotalsResult(t *fees.Totals) FeeTotalsResult {
	return FeeTotalsResult{
		Domain: t.Domain,
		Gross:  amountString(t.Gross),
		Fee:    amountString(t.Fee),
		Net:    amountString(t.Net),
		Count:  t.Count,
	}
}
