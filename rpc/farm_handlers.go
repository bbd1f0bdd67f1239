package rpc

import (
	"net/http"

	"unitfarm/native/fees"
	"unitfarm/services/indexer"
)

func (s *Server) handleFarmBootstrap(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	market, receipt, err := s.node.FarmBootstrap(r.Context(), caller)
	if err != nil {
		writeOpError(w, req.ID, "bootstrap failed", err)
		return
	}
	view, err := s.node.FarmMarket(r.Context())
	if err != nil {
		writeOpError(w, req.ID, "failed to load market", err)
		return
	}
	result := BootstrapResponse{Market: marketResult(view), Receipt: receiptResult(receipt)}
	result.Market.PoolUnits = amountString(market.PoolUnits)
	writeResult(w, req.ID, result)
}

func (s *Server) handleFarmBuy(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params buyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	referrer, err := parseAccount(params.Referrer, "referrer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := parseAmount(params.Value, "value")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	res, receipt, err := s.node.FarmBuy(r.Context(), caller, referrer, value)
	if err != nil {
		writeOpError(w, req.ID, "buy failed", err)
		return
	}
	writeResult(w, req.ID, BuyResponse{
		Account:     addressString(res.Account),
		Paid:        amountString(res.Paid),
		Fee:         amountString(res.Fee),
		UnitsBought: amountString(res.UnitsBought),
		Referrer:    addressString(res.Candidate),
		Compound:    compoundResult(res.Compound),
		Receipt:     receiptResult(receipt),
	})
}

func (s *Server) handleFarmCompound(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	var params compoundParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	referrer, err := parseAccount(params.Referrer, "referrer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	res, receipt, err := s.node.FarmCompound(r.Context(), caller, referrer)
	if err != nil {
		writeOpError(w, req.ID, "compound failed", err)
		return
	}
	writeResult(w, req.ID, CompoundResponse{CompoundResult: compoundResult(res), Receipt: receiptResult(receipt)})
}

func (s *Server) handleFarmSell(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	res, receipt, err := s.node.FarmSell(r.Context(), caller)
	if err != nil {
		writeOpError(w, req.ID, "sell failed", err)
		return
	}
	writeResult(w, req.ID, SellResponse{
		Account: addressString(res.Account),
		Units:   amountString(res.Units),
		Gross:   amountString(res.Gross),
		Fee:     amountString(res.Fee),
		Payout:  amountString(res.Payout),
		Receipt: receiptResult(receipt),
	})
}

func (s *Server) handlePayeesWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) {
	amount, receipt, err := s.node.PayeesWithdraw(r.Context(), caller)
	if err != nil {
		writeOpError(w, req.ID, "withdraw failed", err)
		return
	}
	writeResult(w, req.ID, WithdrawResponse{Payee: addressString(caller), Amount: amountString(amount), Receipt: receiptResult(receipt)})
}

func (s *Server) accountParam(w http.ResponseWriter, req *RPCRequest) ([20]byte, bool) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return [20]byte{}, false
	}
	addr, err := parseRequiredAccount(params.Account, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return [20]byte{}, false
	}
	return addr, true
}

func (s *Server) handleFarmBalanceOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.accountParam(w, req)
	if !ok {
		return
	}
	amount, err := s.node.FarmBalanceOf(r.Context(), addr)
	if err != nil {
		writeOpError(w, req.ID, "failed to load balance", err)
		return
	}
	writeResult(w, req.ID, AmountResult{Amount: amountString(amount)})
}

func (s *Server) handleFarmPendingRewardsOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.accountParam(w, req)
	if !ok {
		return
	}
	amount, err := s.node.FarmPendingRewardsOf(r.Context(), addr)
	if err != nil {
		writeOpError(w, req.ID, "failed to estimate rewards", err)
		return
	}
	writeResult(w, req.ID, AmountResult{Amount: amountString(amount)})
}

func (s *Server) handleFarmProducersOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.accountParam(w, req)
	if !ok {
		return
	}
	amount, err := s.node.FarmProducersOf(r.Context(), addr)
	if err != nil {
		writeOpError(w, req.ID, "failed to load producers", err)
		return
	}
	writeResult(w, req.ID, AmountResult{Amount: amountString(amount)})
}

func (s *Server) handleFarmReferrerOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.accountParam(w, req)
	if !ok {
		return
	}
	referrer, err := s.node.FarmReferrerOf(r.Context(), addr)
	if err != nil {
		writeOpError(w, req.ID, "failed to load referrer", err)
		return
	}
	writeResult(w, req.ID, ReferrerResult{Account: addressString(addr), Referrer: addressString(referrer)})
}

func (s *Server) handleFarmAccount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.accountParam(w, req)
	if !ok {
		return
	}
	acc, err := s.node.FarmAccount(r.Context(), addr)
	if err != nil {
		writeOpError(w, req.ID, "failed to load account", err)
		return
	}
	writeResult(w, req.ID, accountResult(acc))
}

func (s *Server) handleFarmEstimatePurchase(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params valueParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := parseAmount(params.Value, "value")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	units, err := s.node.FarmEstimatePurchase(r.Context(), value)
	if err != nil {
		writeOpError(w, req.ID, "estimate failed", err)
		return
	}
	writeResult(w, req.ID, AmountResult{Amount: amountString(units)})
}

func (s *Server) handleFarmEstimateRedemption(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params unitsParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	units, err := parseAmount(params.Units, "units")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := s.node.FarmEstimateRedemption(r.Context(), units)
	if err != nil {
		writeOpError(w, req.ID, "estimate failed", err)
		return
	}
	writeResult(w, req.ID, AmountResult{Amount: amountString(value)})
}

func (s *Server) handleFarmMarket(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	view, err := s.node.FarmMarket(r.Context())
	if err != nil {
		writeOpError(w, req.ID, "failed to load market", err)
		return
	}
	writeResult(w, req.ID, marketResult(view))
}

func (s *Server) handleFarmFeeTotals(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	params := feeTotalsParams{Domain: fees.DomainBuy}
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	domain := fees.NormalizeDomain(params.Domain)
	if domain != fees.DomainBuy && domain != fees.DomainSell {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "domain must be buy or sell", params.Domain)
		return
	}
	totals, err := s.node.FarmFeeTotals(r.Context(), domain)
	if err != nil {
		writeOpError(w, req.ID, "failed to load fee totals", err)
		return
	}
	writeResult(w, req.ID, feeTotalsResult(totals))
}

func (s *Server) handleFarmParams(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, ParamsResult{
		Params:      s.node.Params(),
		Network:     s.node.Network(),
		Vault:       addressString(s.node.VaultAddress()),
		Distributor: addressString(s.node.DistributorAddress()),
	})
}

func (s *Server) handleFarmEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "event indexer disabled", nil)
		return
	}
	var params eventsParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	filter := indexer.Filter{Type: params.Type, Limit: params.Limit}
	if params.Account != "" {
		addr, err := parseAccount(params.Account, "account")
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		filter.Account = hexLower(addr)
	}
	records, err := s.journal.ListEvents(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to list events", err.Error())
		return
	}
	writeResult(w, req.ID, records)
}

func (s *Server) handlePayeesPending(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params payeeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payee, err := parseRequiredAccount(params.Payee, "payee")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := s.node.PayeesPending(r.Context(), payee)
	if err != nil {
		writeOpError(w, req.ID, "failed to load pending amount", err)
		return
	}
	writeResult(w, req.ID, AmountResult{Amount: amountString(amount)})
}

func (s *Server) handleBankBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := s.accountParam(w, req)
	if !ok {
		return
	}
	amount, err := s.node.BankBalance(r.Context(), addr)
	if err != nil {
		writeOpError(w, req.ID, "failed to load balance", err)
		return
	}
	writeResult(w, req.ID, AmountResult{Amount: amountString(amount)})
}
