// Package rpc exposes the ledger's read surface over HTTP. Write operations
// are deliberately absent: user intent arrives through the caller layer that
// owns authentication and custody, which is outside this service.
package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendledger/ledger"
	"lendledger/oracle"
)

// Server serves ledger snapshots.
type Server struct {
	engine *ledger.Engine
	log    *slog.Logger
}

// NewServer wraps the engine.
func NewServer(engine *ledger.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, log: log}
}

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/assets", s.handleAssets)
		r.Get("/assets/{symbol}", s.handleAsset)
		r.Get("/assets/{symbol}/price", s.handlePrice)
		r.Get("/assets/{symbol}/liquidatable", s.handleLiquidatable)
		r.Get("/positions/{user}", s.handleUserPositions)
		r.Get("/positions/{user}/{symbol}", s.handlePosition)
	})
	return r
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.engine.Symbols()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snapshots := make([]*ledger.AssetSnapshot, 0, len(symbols))
	for _, symbol := range symbols {
		snap, err := s.engine.AssetSnapshot(symbol)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		snapshots = append(snapshots, snap)
	}
	s.writeJSON(w, snapshots)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.AssetSnapshot(chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	price, err := s.engine.LatestPrice(symbol)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, map[string]string{
		"symbol": ledger.NormalizeSymbol(symbol),
		"price":  price.String(),
	})
}

func (s *Server) handleLiquidatable(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.engine.LiquidationCandidates(chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []ledger.LiquidationCandidate{}
	}
	s.writeJSON(w, candidates)
}

func (s *Server) handleUserPositions(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.engine.UserPositions(chi.URLParam(r, "user"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, snapshots)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.PositionSnapshot(chi.URLParam(r, "user"), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, oracle.ErrUnavailable), errors.Is(err, oracle.ErrInvalidPrice):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
