// Package http exposes the ledger as a JSON API. Presentation lives in
// the browser client; the server only serves data.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"garagebook/internal/core"
	"garagebook/internal/ledger"
	"garagebook/internal/log"
	"garagebook/internal/services"
)

type Server struct {
	http.Server
	svc         *services.LedgerService
	httpLog     *log.StructuredLogger
	rateLimiter *rateLimiter

	totalsCache  *lruCache[core.Totals]
	monthlyCache *lruCache[[]core.MonthlyRow]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes and returns a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:              svc,
		httpLog:          log.NewStructuredLogger(log.New(log.DefaultConfig())),
		rateLimiter:      newRateLimiter(),
		totalsCache:      newLRUCache[core.Totals](16, 5*time.Minute),
		monthlyCache:     newLRUCache[[]core.MonthlyRow](16, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/ledger", s.withMiddleware(s.handleGetLedger))
	mux.HandleFunc("PUT /api/ledger", s.withMiddleware(s.handlePutLedger))

	mux.HandleFunc("GET /api/invoices", s.withMiddleware(s.handleListInvoices))
	mux.HandleFunc("POST /api/invoices", s.withMiddleware(s.handleCreateInvoice))
	mux.HandleFunc("DELETE /api/invoices/{id}", s.withMiddleware(s.handleDeleteInvoice))

	mux.HandleFunc("GET /api/expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withMiddleware(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/totals", s.withMiddleware(s.handleTotals))
	mux.HandleFunc("GET /api/report/monthly", s.withMiddleware(s.handleMonthlyReport))

	mux.HandleFunc("GET /api/export", s.withMiddleware(s.handleExport))
	mux.HandleFunc("POST /api/import", s.withMiddleware(s.handleImport))
	mux.HandleFunc("POST /api/clear", s.withMiddleware(s.handleClear))

	return s
}

// withMiddleware adds request IDs, logging, security headers and
// mutation rate limiting around a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, requestID, clientIP)

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.httpLog.LogHTTPEnd(ctx, r, requestID, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			totalsCleaned := s.totalsCache.CleanExpired()
			monthlyCleaned := s.monthlyCache.CleanExpired()
			if totalsCleaned > 0 || monthlyCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"totals_entries_removed", totalsCleaned,
					"monthly_entries_removed", monthlyCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// ApplySnapshot replaces the ledger on behalf of writers outside the
// request path, such as the remote-ledger refresher. Cached report
// figures are dropped along with the records they were derived from.
func (s *Server) ApplySnapshot(ctx context.Context, snap ledger.Snapshot) error {
	if err := s.svc.ReplaceSnapshot(ctx, snap); err != nil {
		return err
	}
	s.invalidateReports()
	return nil
}

// invalidateReports drops cached derived figures after any write.
func (s *Server) invalidateReports() {
	s.totalsCache.Delete(totalsCacheKey)
	s.monthlyCache.Delete(monthlyCacheKey)
}

const (
	totalsCacheKey  = "totals"
	monthlyCacheKey = "monthly"
)

// Shutdown stops background goroutines once, then drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.Snapshot(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
