package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"unitfarm/core"
	"unitfarm/core/events"
	"unitfarm/gateway/middleware"
	"unitfarm/observability"
	"unitfarm/services/indexer"
)

const (
	rateLimitRPC = "rpc"
	rateLimitWS  = "ws"
)

// EventLog serves journaled events to farm_events.
type EventLog interface {
	ListEvents(ctx context.Context, filter indexer.Filter) ([]indexer.Record, error)
}

type ServerConfig struct {
	ServiceName string
	Auth        middleware.AuthConfig
	RateLimit   middleware.RateLimit
	LogRequests bool
}

type Server struct {
	node    *core.Node
	bus     *events.Bus
	journal EventLog
	logger  *slog.Logger

	auth    *middleware.Authenticator
	limiter *middleware.RateLimiter
	obs     *middleware.Observability
	handler http.Handler
	httpSrv *http.Server
}

// NewServer builds the HTTP surface over node. bus and journal are optional;
// without them the event stream and farm_events are unavailable.
func NewServer(node *core.Node, bus *events.Bus, journal EventLog, cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "farmd"
	}
	limits := map[string]middleware.RateLimit{}
	if cfg.RateLimit.RatePerSecond > 0 {
		limits[rateLimitRPC] = cfg.RateLimit
		limits[rateLimitWS] = cfg.RateLimit
	}
	s := &Server{
		node:    node,
		bus:     bus,
		journal: journal,
		logger:  logger.With("component", "rpc"),
		auth:    middleware.NewAuthenticator(cfg.Auth, logger),
		limiter: middleware.NewRateLimiter(limits, logger),
		obs: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: cfg.ServiceName,
			LogRequests: cfg.LogRequests,
		}, logger),
	}
	s.handler = otelhttp.NewHandler(s.routes(), cfg.ServiceName)
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.obs.MetricsHandler())
	r.Group(func(gr chi.Router) {
		gr.Use(s.obs.Middleware("jsonrpc"))
		gr.Use(s.limiter.Middleware(rateLimitRPC))
		gr.Use(s.auth.Middleware)
		gr.Post("/", s.handle)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(s.obs.Middleware("events_ws"))
		gr.Use(s.limiter.Middleware(rateLimitWS))
		gr.Get("/ws/events", s.handleEventsWS)
	})
	return r
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler { return s.handler }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = "request body too large"
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	recorder := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	w = recorder
	defer func() {
		method := req.Method
		if recorder.status == http.StatusNotFound {
			method = "unknown"
		}
		observability.ModuleMetrics().Observe(moduleName(method), method, recorder.status, time.Since(start))
	}()

	switch req.Method {
	case "farm_bootstrap":
		s.withCaller(w, r, req, s.handleFarmBootstrap)
	case "farm_buy":
		s.withCaller(w, r, req, s.handleFarmBuy)
	case "farm_compound":
		s.withCaller(w, r, req, s.handleFarmCompound)
	case "farm_sell":
		s.withCaller(w, r, req, s.handleFarmSell)
	case "payees_withdraw":
		s.withCaller(w, r, req, s.handlePayeesWithdraw)
	case "farm_balanceOf":
		s.handleFarmBalanceOf(w, r, req)
	case "farm_pendingRewardsOf":
		s.handleFarmPendingRewardsOf(w, r, req)
	case "farm_producersOf":
		s.handleFarmProducersOf(w, r, req)
	case "farm_referrerOf":
		s.handleFarmReferrerOf(w, r, req)
	case "farm_account":
		s.handleFarmAccount(w, r, req)
	case "farm_estimatePurchase":
		s.handleFarmEstimatePurchase(w, r, req)
	case "farm_estimateRedemption":
		s.handleFarmEstimateRedemption(w, r, req)
	case "farm_market":
		s.handleFarmMarket(w, r, req)
	case "farm_feeTotals":
		s.handleFarmFeeTotals(w, r, req)
	case "farm_params":
		s.handleFarmParams(w, r, req)
	case "farm_events":
		s.handleFarmEvents(w, r, req)
	case "payees_pending":
		s.handlePayeesPending(w, r, req)
	case "bank_balance":
		s.handleBankBalance(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// moduleName is the method prefix, e.g. "farm" for "farm_buy".
func moduleName(method string) string {
	module, _, ok := strings.Cut(method, "_")
	if !ok {
		return "unknown"
	}
	return module
}

type callerHandler func(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte)

func (s *Server) withCaller(w http.ResponseWriter, r *http.Request, req *RPCRequest, next callerHandler) {
	caller, err := middleware.RequireCaller(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "authentication required", err.Error())
		return
	}
	next(w, r, req, caller)
}
