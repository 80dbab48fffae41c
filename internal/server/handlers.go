package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"IPOWatcher/internal/fields"
	"IPOWatcher/internal/infrastructure/respcache"
)

const clearConfirmation = "Cache cleared and meta-data pre-loaded successfully. Individual details will load on demand."

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, "years", nil, s.ttls.IndexTTL(), func(ctx context.Context) (any, error) {
		return s.query.Years(ctx)
	})
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, "all", nil, s.ttls.OverviewTTL(), func(ctx context.Context) (any, error) {
		return s.query.All(ctx)
	})
}

func (s *Server) handleByYear(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("year must be numeric"))
		return
	}

	params := map[string]string{"year": raw}
	s.serveCached(w, r, "year", params, s.ttls.OverviewTTL(), func(ctx context.Context) (any, error) {
		return s.query.ByYear(ctx, year)
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	rawFields := r.URL.Query().Get("fields")

	params := map[string]string{"slug": slug, "fields": rawFields}
	s.serveCached(w, r, "detail", params, s.ttls.DetailTTL(), func(ctx context.Context) (any, error) {
		return s.query.Detail(ctx, slug, fields.Parse(rawFields))
	})
}

func (s *Server) handleByStatus(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("status")

	params := map[string]string{"status": token}
	s.serveCached(w, r, "status", params, s.ttls.OverviewTTL(), func(ctx context.Context) (any, error) {
		return s.query.ByStatus(ctx, token)
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	params := map[string]string{"query": query}
	s.serveCached(w, r, "search", params, s.ttls.SearchTTL(), func(ctx context.Context) (any, error) {
		return s.query.Search(ctx, query)
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	rawLimit := r.URL.Query().Get("limit")
	var limit *int
	if n, err := strconv.Atoi(rawLimit); err == nil {
		limit = &n
	}

	params := map[string]string{"limit": rawLimit}
	s.serveCached(w, r, "overview", params, s.ttls.OverviewTTL(), func(ctx context.Context) (any, error) {
		return s.query.Overview(ctx, limit)
	})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, "today", nil, s.ttls.OverviewTTL(), func(ctx context.Context) (any, error) {
		return s.query.Today(ctx)
	})
}

func (s *Server) handleByListingType(w http.ResponseWriter, r *http.Request) {
	listingType := r.PathValue("type")

	params := map[string]string{"type": listingType}
	s.serveCached(w, r, "listing-type", params, s.ttls.OverviewTTL(), func(ctx context.Context) (any, error) {
		return s.query.ByListingType(ctx, listingType)
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("manual cache clear requested")
	if err := s.refresher.Refresh(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": clearConfirmation})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// serveCached serves one cacheable GET operation: response-cache lookup,
// assembly on miss, store, then conditional delivery. Failures are never
// cached.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, op string, params map[string]string, ttl time.Duration, load func(context.Context) (any, error)) {
	ctx := r.Context()
	key := respcache.Key(s.prefix, op, params)

	if body, ok := s.responses.Get(ctx, key); ok {
		s.writeConditional(w, r, body, ttl)
		return
	}

	payload, err := load(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.responses.Set(ctx, key, body, ttl)
	s.writeConditional(w, r, body, ttl)
}
