package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"fytemarket/events"
	"fytemarket/market"
	"fytemarket/observability"
	"fytemarket/state"
	"fytemarket/token"
)

// Server exposes the marketplace engine over JSON-RPC 2.0. Administrative
// methods additionally require a bearer token when MARKET_RPC_TOKEN is set.
type Server struct {
	engine *market.Engine
	hub    *events.Hub
	kv     *state.Manager
	log    *slog.Logger

	mu       sync.Mutex
	token    *token.Token
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int

	authToken string
}

// NewServer wires the RPC surface around an engine and its settlement ledger.
// rps and burst bound per-client request rates.
func NewServer(engine *market.Engine, tok *token.Token, kv *state.Manager, hub *events.Hub, logger *slog.Logger, rps, burst int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = rps
	}
	return &Server{
		engine:    engine,
		hub:       hub,
		kv:        kv,
		log:       logger,
		token:     tok,
		limiters:  make(map[string]*rate.Limiter),
		limit:     rate.Limit(rps),
		burst:     burst,
		authToken: strings.TrimSpace(os.Getenv("MARKET_RPC_TOKEN")),
	}
}

// Router returns the HTTP handler serving the RPC endpoint, health probe,
// metrics, and the event stream.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	return r
}

// Start serves the router until the context is cancelled, then drains with a
// short shutdown grace period.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("rpc server listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) limiterFor(clientIP string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[clientIP]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[clientIP] = limiter
	}
	return limiter
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	presented := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(presented), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

type handlerFunc func(req *RPCRequest) (interface{}, *RPCError)

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
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
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
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
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

	if !s.limiterFor(clientIP(r)).Allow() {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	handler, needsAuth, ok := s.route(req.Method)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
		return
	}
	if needsAuth {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	started := time.Now()
	result, rpcErr := handler(req)
	var outcome error
	if rpcErr != nil {
		outcome = errors.New(rpcErr.Message)
	}
	observability.Metrics().Observe(req.Method, outcome, started)

	if rpcErr != nil {
		s.log.Warn("rpc request failed", "method", req.Method, "code", rpcErr.Code, "error", rpcErr.Message)
		writeError(w, http.StatusOK, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	s.log.Debug("rpc request served", "method", req.Method, "duration", time.Since(started))
	writeResult(w, req.ID, result)
}

// route maps a method name to its handler and whether the handler mutates
// administrative state and therefore requires the bearer token.
func (s *Server) route(method string) (handlerFunc, bool, bool) {
	switch method {
	case "market_list":
		return s.handleMarketList, true, true
	case "market_close":
		return s.handleMarketClose, true, true
	case "market_delete":
		return s.handleMarketDelete, true, true
	case "market_buy":
		return s.handleMarketBuy, false, true
	case "market_edit":
		return s.handleMarketEdit, true, true
	case "market_changeToken":
		return s.handleMarketChangeToken, true, true
	case "market_addRole":
		return s.handleMarketAddRole, true, true
	case "market_removeRole":
		return s.handleMarketRemoveRole, true, true
	case "market_hasRole":
		return s.handleMarketHasRole, false, true
	case "market_withdraw":
		return s.handleMarketWithdraw, true, true
	case "market_getListing":
		return s.handleMarketGetListing, false, true
	case "market_activeListings":
		return s.handleMarketActiveListings, false, true
	case "market_closedListings":
		return s.handleMarketClosedListings, false, true
	case "token_balanceOf":
		return s.handleTokenBalanceOf, false, true
	case "token_allowance":
		return s.handleTokenAllowance, false, true
	case "token_totalSupply":
		return s.handleTokenTotalSupply, false, true
	case "token_approve":
		return s.handleTokenApprove, false, true
	case "token_transfer":
		return s.handleTokenTransfer, false, true
	case "token_claim":
		return s.handleTokenClaim, false, true
	default:
		return nil, false, false
	}
}

// errorToRPC converts engine and ledger failures into JSON-RPC errors,
// preserving the sentinel message as the client-visible reason.
func errorToRPC(err error) *RPCError {
	if err == nil {
		return nil
	}
	code := codeServerError
	if errors.Is(err, market.ErrUnauthorized) {
		code = codeUnauthorized
	}
	return &RPCError{Code: code, Message: err.Error()}
}

func invalidParams(err error) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
}

func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single params object"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return invalidParams(err)
	}
	return nil
}
