package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"unitfarm/native/bank"
	"unitfarm/native/common"
	"unitfarm/native/farm"
	"unitfarm/native/payees"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeOpError maps ledger failures onto JSON-RPC errors. Rejected
// preconditions are reported as invalid params; everything else, reentrancy
// included, is a server error.
func writeOpError(w http.ResponseWriter, id interface{}, message string, err error) {
	switch {
	case isPrecondition(err):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, message, err.Error())
	case errors.Is(err, farm.ErrReentrant):
		writeError(w, http.StatusConflict, id, codeServerError, message, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, message, err.Error())
	}
}

func isPrecondition(err error) bool {
	for _, target := range []error{
		farm.ErrNotInitialized,
		farm.ErrZeroValue,
		farm.ErrAlreadyBootstrapped,
		farm.ErrNoUnits,
		farm.ErrZeroRedemption,
		farm.ErrNegativeAmount,
		common.ErrNotAdmin,
		bank.ErrInsufficientFunds,
		payees.ErrNothingToWithdraw,
		payees.ErrUnknownPayee,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// decodeParams unmarshals the first positional parameter into dst. Missing
// params leave dst untouched.
func decodeParams(req *RPCRequest, dst interface{}) error {
	if len(req.Params) == 0 {
		return nil
	}
	if len(req.Params) > 1 {
		return fmt.Errorf("expected a single parameter object")
	}
	if err := json.Unmarshal(req.Params[0], dst); err != nil {
		return fmt.Errorf("invalid parameter object: %w", err)
	}
	return nil
}

func parseAccount(raw, field string) ([20]byte, error) {
	addr, err := common.ParseAddress(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

func parseRequiredAccount(raw, field string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, fmt.Errorf("%s is required", field)
	}
	return parseAccount(raw, field)
}

// parseAmount reads a non-negative base-10 integer string.
func parseAmount(raw, field string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%s must be a base-10 integer", field)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%s cannot be negative", field)
	}
	return amount, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addressString(addr [20]byte) string {
	if addr == ([20]byte{}) {
		return ""
	}
	return common.FormatAddress(addr)
}

// hexLower matches the address encoding used in event attributes.
func hexLower(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
