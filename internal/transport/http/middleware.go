package http

import (
	"context"
	"net/http"

	"github.com/eveul/storefront/internal/domain"
	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

type contextKey string

// ContextKeyProduct holds the validated *domain.ProductInput of a request
const ContextKeyProduct contextKey = "product"

// Middleware struct holds dependencies for middleware functions
type Middleware struct {
	Logger    hclog.Logger
	Validator *domain.Validation
}

// NewMiddleware creates a new Middleware instance
func NewMiddleware(logger hclog.Logger, validator *domain.Validation) *Middleware {
	return &Middleware{
		Logger:    logger,
		Validator: validator,
	}
}

// ContentTypeMiddleware sets the Content-Type header to application/json
func (m *Middleware) ContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs the incoming requests and responses
func (m *Middleware) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		m.Logger.Debug("Incoming request",
			"method", r.Method,
			"url", r.URL.Path,
			"request_id", requestID,
		)

		// Add the request ID to the response header
		w.Header().Set("X-Request-ID", requestID)

		// httpsnoop keeps the Hijacker of w intact for /ws
		metrics := httpsnoop.CaptureMetrics(next, w, r)

		m.Logger.Info("Completed request",
			"method", r.Method,
			"url", r.URL.Path,
			"request_id", requestID,
			"status", metrics.Code,
			"bytes", metrics.Written,
			"duration", metrics.Duration,
		)
	})
}

// ValidationMiddleware decodes and validates the product in the request body
// and adds it to the context
func (m *Middleware) ValidationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in domain.ProductInput
		if err := readJSON(r, &in); err != nil {
			m.Logger.Debug("Error decoding product", "error", err)
			writeError(w, m.Logger, domain.E(domain.InvalidInput, "http.ValidationMiddleware", "invalid product data", err))
			return
		}

		in.Normalize()
		if errs := m.Validator.Validate(&in); len(errs) > 0 {
			m.Logger.Debug("Validation errors", "errors", errs.Messages())
			writeError(w, m.Logger, domain.E(domain.InvalidInput, "http.ValidationMiddleware", "invalid product", errs))
			return
		}

		// Add the validated product to the context
		ctx := context.WithValue(r.Context(), ContextKeyProduct, &in)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// productInput returns the product stored by ValidationMiddleware
func productInput(r *http.Request) (*domain.ProductInput, bool) {
	in, ok := r.Context().Value(ContextKeyProduct).(*domain.ProductInput)
	return in, ok
}
