package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"education-agent/internal/usecase"
)

const (
	maxBodyBytes   = 64 << 10
	errRateLimited = "RATE_LIMITED"
)

type correlationKey struct{}

type routerOptions struct {
	limiter *rate.Limiter
}

type RouterOption func(*routerOptions)

// WithRateLimit caps POST requests across all clients at rps with the given
// burst. rps <= 0 leaves the router unlimited.
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(o *routerOptions) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewRouter serves the same API as Handler over plain HTTP, plus /metrics.
func NewRouter(svc IntakeService, allowedOrigins []string, opts ...RouterOption) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: intake service must not be nil")
	}
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}
	a := api{svc: svc}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", correlationHeader},
		ExposedHeaders: []string{correlationHeader},
	}).Handler)
	r.Use(correlation)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, root())
	})
	r.Group(func(r chi.Router) {
		r.Use(limit(o.limiter))
		r.Post("/chat", withBody(a.chat))
		r.Post("/reset", withBody(a.reset))
	})
	r.Get("/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeResult(w, a.session(req.Context(), correlationFrom(req.Context()), chi.URLParam(req, "id")))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeResult(w, notFound(correlationFrom(req.Context())))
	})

	return r, nil
}

func withBody(fn func(ctx context.Context, correlationID string, body []byte) result) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		correlationID := correlationFrom(req.Context())
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err != nil {
			writeResult(w, api{}.fail(correlationID, "read_body", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "unreadable_body", Err: err}))
			return
		}
		writeResult(w, fn(req.Context(), correlationID, body))
	}
}

// limit rejects requests with 429 once l is exhausted. A nil limiter lets
// everything through.
func limit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeResult(w, result{status: http.StatusTooManyRequests, body: errorResponse{
					Error:         errRateLimited,
					CorrelationID: correlationFrom(req.Context()),
				}})
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// correlation echoes or assigns X-Correlation-Id.
func correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(correlationHeader)
		if id == "" {
			id = newCorrelationID()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), correlationKey{}, id)))
	})
}

func correlationFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

func writeResult(w http.ResponseWriter, res result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.status)
	_, _ = io.WriteString(w, marshal(res.body))
}
