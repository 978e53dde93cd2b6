package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

// envelope is the uniform JSON response shape for every API endpoint.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *apiError  `json:"error,omitempty"`
	Meta    *ListMeta  `json:"meta,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ListMeta carries pagination metadata on list responses.
type ListMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondList(w http.ResponseWriter, data any, meta ListMeta) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Meta: &meta})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Success: false, Error: &apiError{Code: code, Message: message}})
}

// respondFromError maps domain sentinel errors onto HTTP statuses.
//
// Upstream catalog auth failures deliberately surface as 500, not 401: a 401
// from this API always means the caller's own token is bad.
func respondFromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrUpstreamNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrUnresolvedConflict):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		respondError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, shared.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, shared.ErrUpstreamAuth):
		respondError(w, http.StatusInternalServerError, "upstream_error", "catalog provider request failed")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// pageParams reads limit/offset query parameters, clamped to sane bounds.
func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// paginate slices a full result set down to one page. Used where the
// repository query does not paginate itself.
func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}
