package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tiltcast/tiltcast/pkg/estimator"
	"github.com/tiltcast/tiltcast/pkg/log"
	"github.com/tiltcast/tiltcast/pkg/types"
)

type estimateResponse struct {
	Cached  bool                `json:"cached"`
	Profile types.EnergyProfile `json:"profile"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	req := estimator.Request{Location: q.Get("location")}

	if v := q.Get("years"); v != "" {
		years, err := strconv.Atoi(v)
		if err != nil {
			writeJSONError(w, "years must be an integer", http.StatusBadRequest)
			return
		}
		req.Years = years
	}
	if v := q.Get("fixedTilt"); v != "" {
		tilt, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSONError(w, "fixedTilt must be a number", http.StatusBadRequest)
			return
		}
		req.FixedTilt = &tilt
	}

	profile, cached, err := s.estimator.Estimate(ctx, req)
	if err != nil {
		if errors.Is(err, estimator.ErrInvalidInput) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "estimate failed",
			slog.String("location", req.Location), slog.Any("error", err))
		writeJSONError(w, "failed to compute estimate", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(estimateResponse{Cached: cached, Profile: profile}); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleListCacheKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.isAdmin(s.getUser(r)) {
		writeJSONError(w, "admin access required", http.StatusForbidden)
		return
	}

	keys, err := s.estimator.ListCached(ctx, r.URL.Query().Get("prefix"))
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list cache keys", slog.Any("error", err))
		writeJSONError(w, "failed to list cache keys", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(struct {
		Keys []string `json:"keys"`
	}{Keys: keys}); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.isAdmin(s.getUser(r)) {
		writeJSONError(w, "admin access required", http.StatusForbidden)
		return
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		writeJSONError(w, "location is required", http.StatusBadRequest)
		return
	}

	if err := s.estimator.Invalidate(ctx, location); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to invalidate cache",
			slog.String("location", location), slog.Any("error", err))
		writeJSONError(w, "failed to invalidate cache", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "cache invalidated", slog.String("location", location))
	w.WriteHeader(http.StatusNoContent)
}
