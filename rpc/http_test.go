package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"nhooyr.io/websocket"

	"unitfarm/core"
	"unitfarm/core/events"
	"unitfarm/core/types"
	"unitfarm/gateway/middleware"
	"unitfarm/native/farm"
	"unitfarm/native/payees"
	"unitfarm/services/indexer"
	"unitfarm/storage"
)

const testSecret = "rpc-test-secret"

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

var (
	testAdmin = addr(0xA1)
	testVault = addr(0xA2)
	testDist  = addr(0xA3)
	testPayee = addr(0xB1)
	testBuyer = addr(0x01)
)

type harness struct {
	server  *httptest.Server
	bus     *events.Bus
	journal *indexer.Indexer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	journal, err := indexer.New(db, indexer.Config{Network: "testnet", Logger: logger})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = journal.Run(ctx) }()
	t.Cleanup(cancel)

	bus := events.NewBus()
	now := int64(1_700_000_000)
	node, err := core.NewNode(storage.NewMemDB(), core.Options{
		Params:             farm.DefaultParams(),
		Admin:              testAdmin,
		Vault:              testVault,
		DistributorAddress: testDist,
		Payees:             []payees.Payee{{Address: testPayee, Weight: 1}},
		Network:            "testnet",
		Genesis:            map[[20]byte]*big.Int{testBuyer: big.NewInt(1_000_000_000_000)},
		Emitter:            events.Multi{bus, journal},
		Logger:             logger,
		NowFunc:            func() int64 { return now },
	})
	require.NoError(t, err)

	srv, err := NewServer(node, bus, journal, ServerConfig{
		Auth: middleware.AuthConfig{HMACSecret: testSecret, Issuer: "farm-tests"},
	}, logger)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{server: ts, bus: bus, journal: journal}
}

func token(t *testing.T, caller [20]byte) string {
	t.Helper()
	tok, err := middleware.SignToken(testSecret, "farm-tests", nil, caller, time.Minute)
	require.NoError(t, err)
	return tok
}

func (h *harness) call(t *testing.T, bearer, method string, params interface{}) (int, RPCResponse) {
	t.Helper()
	req := map[string]interface{}{"jsonrpc": jsonRPCVersion, "id": 1, "method": method}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq, err := http.NewRequest(http.MethodPost, h.server.URL+"/", bytes.NewReader(body))
	require.NoError(t, err)
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := h.server.Client().Do(httpReq)
	require.NoError(t, err)
	defer res.Body.Close()
	var out RPCResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func decodeResult(t *testing.T, resp RPCResponse, dst interface{}) {
	t.Helper()
	require.Nil(t, resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	res, err := h.server.Client().Get(h.server.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestWriteMethodsRequireCaller(t *testing.T) {
	h := newHarness(t)
	status, resp := h.call(t, "", "farm_buy", map[string]string{"value": "10"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	status, resp = h.call(t, "", "farm_nope", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestBootstrapBuyAndViews(t *testing.T) {
	h := newHarness(t)

	status, resp := h.call(t, token(t, testBuyer), "farm_bootstrap", nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = h.call(t, token(t, testAdmin), "farm_bootstrap", nil)
	require.Equal(t, http.StatusOK, status)
	var boot BootstrapResponse
	decodeResult(t, resp, &boot)
	require.Equal(t, "108000000000", boot.Market.PoolUnits)
	require.True(t, boot.Market.Initialized)

	status, resp = h.call(t, token(t, testBuyer), "farm_buy", map[string]string{"value": "1000"})
	require.Equal(t, http.StatusOK, status)
	var buy BuyResponse
	decodeResult(t, resp, &buy)
	require.Equal(t, "50", buy.Fee)
	require.Equal(t, "1000", buy.Paid)
	require.NotEmpty(t, buy.Receipt.ID)
	require.Equal(t, buy.UnitsBought, buy.Compound.TotalUnits)

	buyer := strings.ToLower(addressString(testBuyer))
	_, resp = h.call(t, "", "farm_producersOf", map[string]string{"account": buyer})
	var producers AmountResult
	decodeResult(t, resp, &producers)
	require.Equal(t, buy.Compound.Producers, producers.Amount)

	_, resp = h.call(t, "", "bank_balance", map[string]string{"account": addressString(testBuyer)})
	var balance AmountResult
	decodeResult(t, resp, &balance)
	require.Equal(t, "999999999000", balance.Amount)

	_, resp = h.call(t, "", "payees_pending", map[string]string{"payee": addressString(testPayee)})
	var pending AmountResult
	decodeResult(t, resp, &pending)
	require.Equal(t, "50", pending.Amount)

	_, resp = h.call(t, "", "farm_feeTotals", map[string]string{"domain": "buy"})
	var totals FeeTotalsResult
	decodeResult(t, resp, &totals)
	require.Equal(t, "50", totals.Fee)
	require.Equal(t, uint64(1), totals.Count)

	require.Eventually(t, func() bool {
		_, resp := h.call(t, "", "farm_events", map[string]interface{}{"account": addressString(testBuyer)})
		var records []indexer.Record
		if resp.Error != nil {
			return false
		}
		decodeResult(t, resp, &records)
		return len(records) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSellPreconditionsAndParams(t *testing.T) {
	h := newHarness(t)
	_, _ = h.call(t, token(t, testAdmin), "farm_bootstrap", nil)

	status, resp := h.call(t, token(t, testBuyer), "farm_sell", nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
	require.Equal(t, farm.ErrNoUnits.Error(), resp.Error.Data)

	status, resp = h.call(t, token(t, testBuyer), "farm_buy", map[string]string{"value": "-5"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = h.call(t, "", "farm_balanceOf", map[string]string{"account": "not-an-address"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = h.call(t, token(t, testPayee), "payees_withdraw", nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, payees.ErrNothingToWithdraw.Error(), resp.Error.Data)
}

func TestEventStreamDeliversCommittedEvents(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws/events?type=farm."
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	received := make(chan *types.Event, 1)
	go func() {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var evt types.Event
		if json.Unmarshal(data, &evt) == nil {
			received <- &evt
		}
	}()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case evt := <-received:
			require.Equal(t, farm.EventTypeBootstrap, evt.Type)
			return
		case <-ticker.C:
			h.bus.Emit(farm.WrapEvent(&types.Event{Type: payees.EventTypeWithdraw}))
			h.bus.Emit(farm.WrapEvent(farm.BootstrapEvent(hexLower(testAdmin), "1", 1)))
		case <-ctx.Done():
			t.Fatal("no event received")
		}
	}
}
