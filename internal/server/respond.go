package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"IPOWatcher/internal/usecase"
)

// fingerprint derives the ETag of a rendered body. JSON marshalling sorts
// object keys, so equal payloads always produce equal tags.
func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:])[:16] + `"`
}

func etagMatches(header, etag string) bool {
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}

// writeConditional delivers a rendered JSON body with its fingerprint and
// per-category cache header, answering 304 when the client already holds
// the current revision.
func (s *Server) writeConditional(w http.ResponseWriter, r *http.Request, body []byte, ttl time.Duration) {
	etag := fingerprint(body)

	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("ETag", etag)
	if ttl > 0 {
		header.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
	}

	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError maps use-case failures onto status codes with a JSON body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, usecase.ErrYearNotFound), errors.Is(err, usecase.ErrSlugNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrInvalidStatus), errors.Is(err, usecase.ErrMissingQuery):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func errorBody(description string) map[string]string {
	return map[string]string{"description": description}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// The status line is already out; nothing sensible left to do.
		return
	}
}
