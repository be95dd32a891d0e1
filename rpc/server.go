// Package rpc serves a read-only HTTP view of the distributor, the facility
// and the ledger.
package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coreerr "synthvault/core/errors"
	"synthvault/crypto"
	"synthvault/native/claimtoken"
	"synthvault/native/transmuter"
	"synthvault/native/vault"
)

// Backend is the query surface the server reads from.
type Backend interface {
	Height() uint64
	StateRoot() ([32]byte, error)
	Buffer() (*transmuter.BufferInfo, error)
	StakePosition(addr common.Address) (*transmuter.PositionView, error)
	StakePositions(offset, limit uint64) ([]*transmuter.PositionView, error)
	RedeemableCapacity(origin common.Address) (*big.Int, error)
	Facility() (*vault.Summary, error)
	Adapters() ([]*vault.Adapter, error)
	CollateralPosition(owner common.Address) (*vault.PositionView, error)
	Balance(addr common.Address, asset string) (*big.Int, error)
	Minter(addr common.Address) (*claimtoken.MinterRecord, error)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type server struct {
	backend Backend
	logger  *slog.Logger
}

// NewHandler builds the router.
func NewHandler(backend Backend, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{backend: backend, logger: logger}
	r := chi.NewRouter()
	r.Use(observe(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v chi.Router) {
		v.Get("/state", s.getState)
		v.Route("/transmuter", func(t chi.Router) {
			t.Get("/buffer", s.getBuffer)
			t.Get("/positions", s.listStakePositions)
			t.Get("/positions/{address}", s.getStakePosition)
			t.Get("/capacity/{address}", s.getCapacity)
		})
		v.Route("/vault", func(f chi.Router) {
			f.Get("/facility", s.getFacility)
			f.Get("/adapters", s.listAdapters)
			f.Get("/positions/{address}", s.getCollateralPosition)
		})
		v.Get("/balances/{address}/{asset}", s.getBalance)
		v.Get("/minters/{address}", s.getMinter)
	})
	return r
}

// Serve runs the handler on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("inspection server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	kind := coreerr.KindName(err)
	if kind == "none" {
		kind = ""
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("rpc query failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func (s *server) address(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return common.Address{}, false
	}
	return addr, true
}

func queryUint(r *http.Request, key string, fallback uint64) (uint64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func (s *server) getState(w http.ResponseWriter, r *http.Request) {
	root, err := s.backend.StateRoot()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"height": s.backend.Height(),
		"root":   "0x" + hex.EncodeToString(root[:]),
	})
}

func (s *server) getBuffer(w http.ResponseWriter, r *http.Request) {
	info, err := s.backend.Buffer()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *server) listStakePositions(w http.ResponseWriter, r *http.Request) {
	offset, err := queryUint(r, "offset", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := queryUint(r, "limit", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	views, err := s.backend.StakePositions(offset, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *server) getStakePosition(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.address(w, r)
	if !ok {
		return
	}
	view, err := s.backend.StakePosition(addr)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) getCapacity(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.address(w, r)
	if !ok {
		return
	}
	capacity, err := s.backend.RedeemableCapacity(addr)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"origin": addr.Hex(), "capacity": capacity})
}

func (s *server) getFacility(w http.ResponseWriter, r *http.Request) {
	summary, err := s.backend.Facility()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) listAdapters(w http.ResponseWriter, r *http.Request) {
	adapters, err := s.backend.Adapters()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, adapters)
}

func (s *server) getCollateralPosition(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.address(w, r)
	if !ok {
		return
	}
	view, err := s.backend.CollateralPosition(addr)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.address(w, r)
	if !ok {
		return
	}
	asset := strings.ToUpper(chi.URLParam(r, "asset"))
	balance, err := s.backend.Balance(addr, asset)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, coreerr.ErrConfiguration) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": crypto.FromCommon(addr).String(),
		"asset":   asset,
		"balance": balance,
	})
}

func (s *server) getMinter(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.address(w, r)
	if !ok {
		return
	}
	rec, err := s.backend.Minter(addr)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":     crypto.FromCommon(rec.Address).String(),
		"whitelisted": rec.Whitelisted,
		"blacklisted": rec.Blacklisted,
		"ceiling":     rec.Ceiling,
		"issued":      rec.Issued,
	})
}
