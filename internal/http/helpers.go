package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finapi/internal/core"
)

// errorBody is the uniform error envelope. The errors list appears
// only for validation failures.
type errorBody struct {
	Message string            `json:"message"`
	Errors  []core.FieldError `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, fields []core.FieldError) {
	respondJSON(w, status, errorBody{Message: message, Errors: fields})
}

// respondDomainError maps domain errors onto HTTP statuses: validation,
// conflict and referenced problems are client errors; unknown ownership
// is indistinguishable from absence and stays 404.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
	case errors.Is(err, core.ErrConflict):
		respondError(w, http.StatusBadRequest, "already exists", nil)
	case errors.Is(err, core.ErrReferenced):
		respondError(w, http.StatusBadRequest, "still referenced by existing transactions", nil)
	case errors.Is(err, core.ErrGlobalReadOnly):
		respondError(w, http.StatusBadRequest, "global categories are read-only", nil)
	case errors.Is(err, core.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found", nil)
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &core.ValidationError{Fields: []core.FieldError{
			{Field: "body", Message: "invalid JSON payload"},
		}}
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Fields: []core.FieldError{
			{Field: "id", Message: "must be a positive integer"},
		}}
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

func queryInt64(r *http.Request, key string) *int64 {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return &n
	}
	return nil
}

// queryDate parses a YYYY-MM-DD query parameter.
func queryDate(r *http.Request, key string) *time.Time {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func queryMoney(r *http.Request, key string) *core.Money {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	m, err := core.ParseMoney(v)
	if err != nil {
		return nil
	}
	return &m
}

// parseYearMonth reads year and month, defaulting to the current UTC
// month. Range validation happens in the report layer.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now().UTC()
	year = queryInt(r, "year", now.Year())
	month = queryInt(r, "month", int(now.Month()))
	return year, month
}
