/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Logger:     zap request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend

AUTHENTICATION:
  /api routes require an HS256 bearer token. The owner id is read from the
  configured claim (default "uid") and put on the request context; every
  engine call is scoped to it. /health is public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/ledger"
)

// RouterOptions carries the HTTP-facing settings.
type RouterOptions struct {
	AllowedOrigins []string
	OwnerClaim     string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, auth *jwtauth.JWTAuth, opts RouterOptions) *chi.Mux {
	if opts.OwnerClaim == "" {
		opts.OwnerClaim = "uid"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(jwtauth.Verifier(auth))
		r.Use(RequireOwner(opts.OwnerClaim))

		r.Post("/attendance/submit", h.SubmitAttendance)

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/limit", h.GetMonthlyLimit)
			r.Put("/limit", h.SetMonthlyLimit)
			r.Delete("/{id}", h.DeleteMember)
		})

		r.Route("/overtimes", func(r chi.Router) {
			r.Get("/", h.ListOvertimes)
			r.Delete("/", h.DeleteOvertimes)
			r.Get("/summary", h.GetSummary)
			r.Get("/export", h.ExportOvertimes)
		})

		r.Route("/staging", func(r chi.Router) {
			r.Get("/", h.ListStaging)
			r.Post("/confirm", h.ConfirmStaging)
			r.Post("/cancel", h.CancelStaging)
			r.Patch("/{name}", h.EditStaging)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/reconcile", h.Reconcile)
			r.Get("/reconcile/runs", h.ListReconcileRuns)
		})
	})

	return r
}

// =============================================================================
// OWNER
// =============================================================================

type ownerKey struct{}

// RequireOwner rejects requests without a verified token carrying claim and
// stores the owner id on the context.
func RequireOwner(claim string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}
			owner, ok := claims[claim].(string)
			if !ok || owner == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
				return
			}
			ctx := WithOwner(r.Context(), ledger.OwnerID(owner))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithOwner returns a copy of ctx carrying owner.
func WithOwner(ctx context.Context, owner ledger.OwnerID) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the owner on ctx, or "" when there is none.
func OwnerFrom(ctx context.Context) ledger.OwnerID {
	owner, _ := ctx.Value(ownerKey{}).(ledger.OwnerID)
	return owner
}

// =============================================================================
// LOGGING
// =============================================================================

// RequestLogger logs one line per request with zap: Info below 400, Warn
// for client errors, Error for server errors.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote", r.RemoteAddr),
			}
			switch {
			case status >= 500:
				logger.Error("request", fields...)
			case status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
		})
	}
}
