// Package http is the JSON API boundary: routing, middleware, and the
// translation between wire payloads and domain calls.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"finapi/internal/auth"
	"finapi/internal/export"
	"finapi/internal/notify"
	"finapi/internal/services"
	"finapi/internal/store"
)

type ctxKey int

const claimsKey ctxKey = iota

// Options carries everything a Server needs.
type Options struct {
	Addr         string
	Store        store.Store
	Issuer       *auth.TokenIssuer
	Transactions *services.TransactionService
	Exporter     *export.Exporter

	// Rate limit applied to the auth endpoints.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type Server struct {
	http.Server

	store        store.Store
	issuer       *auth.TokenIssuer
	transactions *services.TransactionService
	evaluator    *notify.Evaluator
	exporter     *export.Exporter
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	limit, window := opts.RateLimitRequests, opts.RateLimitWindow
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		store:        opts.Store,
		issuer:       opts.Issuer,
		transactions: opts.Transactions,
		evaluator:    notify.NewEvaluator(opts.Store),
		exporter:     opts.Exporter,
		rateLimiter:  newRateLimiter(limit, window),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// Auth endpoints are public but rate limited.
	mux.HandleFunc("POST /api/auth/register", s.withCommon(s.withRateLimit(s.handleRegister)))
	mux.HandleFunc("POST /api/auth/login", s.withCommon(s.withRateLimit(s.handleLogin)))
	mux.HandleFunc("GET /api/auth/me", s.protected(s.handleMe))
	mux.HandleFunc("POST /api/auth/change-password", s.protected(s.handleChangePassword))

	mux.HandleFunc("GET /api/accounts", s.protected(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.protected(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts/{id}", s.protected(s.handleGetAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.protected(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.protected(s.handleDeleteAccount))
	mux.HandleFunc("GET /api/accounts/{id}/balance", s.protected(s.handleAccountBalance))

	mux.HandleFunc("GET /api/categories", s.protected(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.protected(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories/statistics", s.protected(s.handleCategoryStatistics))
	mux.HandleFunc("GET /api/categories/{id}", s.protected(s.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.protected(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.protected(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/transactions", s.protected(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.protected(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.protected(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.protected(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.protected(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/reports/monthly", s.protected(s.handleMonthlyReport))
	mux.HandleFunc("GET /api/reports/categories", s.protected(s.handleCategoryReport))
	mux.HandleFunc("GET /api/reports/export/transactions", s.protected(s.handleExportTransactions))
	mux.HandleFunc("GET /api/reports/export/monthly", s.protected(s.handleExportMonthly))

	mux.HandleFunc("GET /api/notifications", s.protected(s.handleListNotifications))
	mux.HandleFunc("PUT /api/notifications/{id}/read", s.protected(s.handleMarkNotificationRead))
	mux.HandleFunc("DELETE /api/notifications/{id}", s.protected(s.handleDeleteNotification))
	mux.HandleFunc("POST /api/notifications/check-budgets", s.protected(s.handleCheckBudgets))
	mux.HandleFunc("POST /api/notifications/check-balances", s.protected(s.handleCheckBalances))

	return s
}

// Shutdown stops the rate limiter's cleanup goroutine along with the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withCommon(s.withAuth(next))
}

// withCommon adds the request id, security headers and request
// logging shared by every route.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := clientAddr(r)
		if !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		next(w, r)
	}
}

// withAuth verifies the bearer token and stores its claims in the
// request context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}
		claims, err := s.issuer.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	return claims
}

func clientAddr(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

const requestIDKey ctxKey = 1

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
