package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"unitfarm/rpc"
	"unitfarm/services/indexer"
)

const defaultMaxTries = 3

// Error is a JSON-RPC error returned by the node.
type Error struct {
	Status  int
	Code    int
	Message string
	Data    interface{}
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s: %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client calls the farm JSON-RPC endpoint.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	maxTries   uint
	nextID     atomic.Int64
}

// Option mutates the client configuration during construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithMaxTries bounds attempts for requests that fail in transit or with a
// retryable status. Values below one disable retries.
func WithMaxTries(tries uint) Option {
	return func(c *Client) {
		if tries < 1 {
			tries = 1
		}
		c.maxTries = tries
	}
}

// New constructs a client pointed at the node's base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("baseURL required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	c := &Client{endpoint: parsed.String(), httpClient: http.DefaultClient, maxTries: defaultMaxTries}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call invokes method with a single parameter object and decodes the result
// into out.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      c.nextID.Add(1),
		"method":  method,
	}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	raw, err := backoff.Retry(ctx, func() (json.RawMessage, error) {
		return c.do(ctx, body)
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) do(ctx context.Context, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpc.RPCError   `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		if retryable(res.StatusCode) {
			return nil, fmt.Errorf("http %d", res.StatusCode)
		}
		return nil, backoff.Permanent(fmt.Errorf("http %d: %s", res.StatusCode, strings.TrimSpace(string(payload))))
	}
	if envelope.Error != nil {
		rpcErr := &Error{Status: res.StatusCode, Code: envelope.Error.Code, Message: envelope.Error.Message, Data: envelope.Error.Data}
		if retryable(res.StatusCode) {
			return nil, rpcErr
		}
		return nil, backoff.Permanent(rpcErr)
	}
	return envelope.Result, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout
}

// IsCode reports whether err is an RPC error with the given code.
func IsCode(err error, code int) bool {
	var rpcErr *Error
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (c *Client) Bootstrap(ctx context.Context) (*rpc.BootstrapResponse, error) {
	var out rpc.BootstrapResponse
	if err := c.Call(ctx, "farm_bootstrap", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Buy converts value into units, binding referrer on first use. An empty
// referrer leaves the binding untouched.
func (c *Client) Buy(ctx context.Context, referrer string, value *big.Int) (*rpc.BuyResponse, error) {
	var out rpc.BuyResponse
	params := map[string]string{"referrer": referrer, "value": amount(value)}
	if err := c.Call(ctx, "farm_buy", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Compound(ctx context.Context, referrer string) (*rpc.CompoundResponse, error) {
	var out rpc.CompoundResponse
	if err := c.Call(ctx, "farm_compound", map[string]string{"referrer": referrer}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Sell(ctx context.Context) (*rpc.SellResponse, error) {
	var out rpc.SellResponse
	if err := c.Call(ctx, "farm_sell", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Withdraw(ctx context.Context) (*rpc.WithdrawResponse, error) {
	var out rpc.WithdrawResponse
	if err := c.Call(ctx, "payees_withdraw", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) amountQuery(ctx context.Context, method string, params interface{}) (*big.Int, error) {
	var out rpc.AmountResult
	if err := c.Call(ctx, method, params, &out); err != nil {
		return nil, err
	}
	value, ok := new(big.Int).SetString(out.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("%s: malformed amount %q", method, out.Amount)
	}
	return value, nil
}

func (c *Client) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	return c.amountQuery(ctx, "farm_balanceOf", map[string]string{"account": account})
}

func (c *Client) PendingRewardsOf(ctx context.Context, account string) (*big.Int, error) {
	return c.amountQuery(ctx, "farm_pendingRewardsOf", map[string]string{"account": account})
}

func (c *Client) ProducersOf(ctx context.Context, account string) (*big.Int, error) {
	return c.amountQuery(ctx, "farm_producersOf", map[string]string{"account": account})
}

func (c *Client) EstimatePurchase(ctx context.Context, value *big.Int) (*big.Int, error) {
	return c.amountQuery(ctx, "farm_estimatePurchase", map[string]string{"value": amount(value)})
}

func (c *Client) EstimateRedemption(ctx context.Context, units *big.Int) (*big.Int, error) {
	return c.amountQuery(ctx, "farm_estimateRedemption", map[string]string{"units": amount(units)})
}

func (c *Client) PayeePending(ctx context.Context, payee string) (*big.Int, error) {
	return c.amountQuery(ctx, "payees_pending", map[string]string{"payee": payee})
}

func (c *Client) BankBalance(ctx context.Context, account string) (*big.Int, error) {
	return c.amountQuery(ctx, "bank_balance", map[string]string{"account": account})
}

func (c *Client) ReferrerOf(ctx context.Context, account string) (string, error) {
	var out rpc.ReferrerResult
	if err := c.Call(ctx, "farm_referrerOf", map[string]string{"account": account}, &out); err != nil {
		return "", err
	}
	return out.Referrer, nil
}

func (c *Client) Account(ctx context.Context, account string) (*rpc.AccountResult, error) {
	var out rpc.AccountResult
	if err := c.Call(ctx, "farm_account", map[string]string{"account": account}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Market(ctx context.Context) (*rpc.MarketResult, error) {
	var out rpc.MarketResult
	if err := c.Call(ctx, "farm_market", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FeeTotals(ctx context.Context, domain string) (*rpc.FeeTotalsResult, error) {
	var out rpc.FeeTotalsResult
	if err := c.Call(ctx, "farm_feeTotals", map[string]string{"domain": domain}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Params(ctx context.Context) (*rpc.ParamsResult, error) {
	var out rpc.ParamsResult
	if err := c.Call(ctx, "farm_params", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Events lists journaled events, newest first.
func (c *Client) Events(ctx context.Context, account, eventType string, limit int) ([]indexer.Record, error) {
	var out []indexer.Record
	params := map[string]interface{}{"account": account, "type": eventType, "limit": limit}
	if err := c.Call(ctx, "farm_events", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
