// Package ledgerapi serves a reference ledger over JSON/HTTP.
package ledgerapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/ledger"
	"golang.org/x/time/rate"
)

// Config tunes the HTTP front end.
type Config struct {
	// RequestsPerSecond and Burst bound each client address. Zero disables
	// rate limiting.
	RequestsPerSecond float64
	Burst             int

	// Faucet enables the airdrop and mint administration endpoints.
	Faucet bool

	MaxBodyBytes int64

	// CORSOrigins lists the browser origins allowed to call the API. Empty
	// means no CORS headers are sent.
	CORSOrigins []string
}

var DefaultConfig = Config{
	RequestsPerSecond: 20,
	Burst:             40,
	MaxBodyBytes:      1 << 20,
}

// JSON bodies.
type (
	CheckpointResponse struct {
		Checkpoint common.Hash    `json:"checkpoint"`
		Slot       hexutil.Uint64 `json:"slot"`
	}
	BundleRequest struct {
		Bundle hexutil.Bytes `json:"bundle"`
	}
	BundleResponse struct {
		ID common.Signature `json:"id"`
	}
	AccountResponse struct {
		Address  common.Address `json:"address"`
		Owner    common.Address `json:"owner"`
		Lamports hexutil.Uint64 `json:"lamports"`
		Data     hexutil.Bytes  `json:"data"`
		Slot     hexutil.Uint64 `json:"slot"`
	}
	RentResponse struct {
		Lamports hexutil.Uint64 `json:"lamports"`
	}
	AirdropRequest struct {
		Address  common.Address `json:"address"`
		Lamports hexutil.Uint64 `json:"lamports"`
	}
	CreateMintRequest struct {
		Mint         common.Address `json:"mint"`
		Authority    common.Address `json:"authority"`
		Decimals     uint8          `json:"decimals"`
		Confidential bool           `json:"confidential"`
		AutoApprove  bool           `json:"autoApprove"`
	}
	MintToRequest struct {
		Destination common.Address `json:"destination"`
		Amount      hexutil.Uint64 `json:"amount"`
	}
)

// AccountResponseFrom converts a ledger account to its wire form.
func AccountResponseFrom(info *types.AccountInfo) *AccountResponse {
	return &AccountResponse{
		Address:  info.Address,
		Owner:    info.Owner,
		Lamports: hexutil.Uint64(info.Lamports),
		Data:     info.Data,
		Slot:     hexutil.Uint64(info.Slot),
	}
}

// Info converts the wire form back to a ledger account.
func (a *AccountResponse) Info() *types.AccountInfo {
	return &types.AccountInfo{
		Address:  a.Address,
		Owner:    a.Owner,
		Lamports: uint64(a.Lamports),
		Data:     a.Data,
		Slot:     uint64(a.Slot),
	}
}

type Server struct {
	ledger  *ledger.Ledger
	cfg     Config
	clients *lru.Cache // client address -> *rate.Limiter
	log     log.Logger

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func New(l *ledger.Ledger, cfg Config) (*Server, error) {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig.MaxBodyBytes
	}
	clients, err := lru.New(4096)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ledger:  l,
		cfg:     cfg,
		clients: clients,
		log:     log.New("module", "ledgerapi"),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctoken",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status.",
		}, []string{"route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ctoken",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if err := l.Registry().Register(s.requests); err != nil {
		return nil, err
	}
	if err := l.Registry().Register(s.duration); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.rateLimit)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.ledger.Registry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/checkpoint", s.observe("checkpoint", s.checkpoint))
		r.Post("/bundles", s.observe("send", s.sendBundle))
		r.Post("/bundles/simulate", s.observe("simulate", s.simulateBundle))
		r.Get("/bundles/{id}", s.observe("confirm", s.confirmBundle))
		r.Get("/accounts/{address}", s.observe("account", s.account))
		r.Get("/rent/{size}", s.observe("rent", s.rent))
		if s.cfg.Faucet {
			r.Post("/airdrop", s.observe("airdrop", s.airdrop))
			r.Post("/mints", s.observe("createMint", s.createMint))
			r.Post("/mints/{mint}/mint-to", s.observe("mintTo", s.mintTo))
		}
	})
	if len(s.cfg.CORSOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         600,
	})
	return c.Handler(r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) observe(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RequestsPerSecond <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !s.limiter(clientID(r)).Allow() {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: http.StatusText(http.StatusTooManyRequests), Code: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiter(id string) *rate.Limiter {
	if v, ok := s.clients.Get(id); ok {
		return v.(*rate.Limiter)
	}
	burst := s.cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	l := rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), burst)
	s.clients.Add(id, l)
	return l
}

func clientID(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status, resp := encodeError(err)
	if status == http.StatusInternalServerError {
		s.log.Warn("Request failed", "err", err)
	}
	writeJSON(w, status, resp)
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error(), Code: "bundle_too_large"})
			return false
		}
		s.badRequest(w, "invalid payload: "+err.Error())
		return false
	}
	return true
}

func (s *Server) checkpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := s.ledger.LatestCheckpoint(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckpointResponse{Checkpoint: cp, Slot: hexutil.Uint64(s.ledger.Slot())})
}

func (s *Server) readBundle(w http.ResponseWriter, r *http.Request) (*types.Bundle, bool) {
	var req BundleRequest
	if !s.decode(w, r, &req) {
		return nil, false
	}
	b, err := types.DecodeBundle(req.Bundle)
	if err != nil {
		s.badRequest(w, "invalid bundle: "+err.Error())
		return nil, false
	}
	return b, true
}

func (s *Server) sendBundle(w http.ResponseWriter, r *http.Request) {
	b, ok := s.readBundle(w, r)
	if !ok {
		return
	}
	id, err := s.ledger.SendBundle(r.Context(), b)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, BundleResponse{ID: id})
}

func (s *Server) simulateBundle(w http.ResponseWriter, r *http.Request) {
	b, ok := s.readBundle(w, r)
	if !ok {
		return
	}
	est, err := s.ledger.SimulateBundle(r.Context(), b)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) confirmBundle(w http.ResponseWriter, r *http.Request) {
	var id common.Signature
	if err := id.UnmarshalText([]byte(chi.URLParam(r, "id"))); err != nil {
		s.badRequest(w, "invalid bundle id")
		return
	}
	receipt, err := s.ledger.ConfirmBundle(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	addr, err := common.Base58ToAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.badRequest(w, "invalid address")
		return
	}
	info, err := s.ledger.GetAccount(r.Context(), addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponseFrom(info))
}

func (s *Server) rent(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.ParseUint(chi.URLParam(r, "size"), 10, 32)
	if err != nil {
		s.badRequest(w, "invalid size")
		return
	}
	lamports, err := s.ledger.RentExemptMinimum(r.Context(), size)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RentResponse{Lamports: hexutil.Uint64(lamports)})
}

func (s *Server) airdrop(w http.ResponseWriter, r *http.Request) {
	var req AirdropRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Lamports == 0 {
		s.badRequest(w, "lamports must be positive")
		return
	}
	if err := s.ledger.Airdrop(r.Context(), req.Address, uint64(req.Lamports)); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createMint(w http.ResponseWriter, r *http.Request) {
	var req CreateMintRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.ledger.CreateMint(r.Context(), req.Mint, req.Authority, req.Decimals, req.Confidential, req.AutoApprove); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) mintTo(w http.ResponseWriter, r *http.Request) {
	mint, err := common.Base58ToAddress(chi.URLParam(r, "mint"))
	if err != nil {
		s.badRequest(w, "invalid mint")
		return
	}
	var req MintToRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.ledger.MintTo(r.Context(), mint, req.Destination, uint64(req.Amount)); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
