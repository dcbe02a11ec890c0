package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kirillfoster544-cpu/telegram/internal/auth"
	"github.com/kirillfoster544-cpu/telegram/internal/http/handlers"
	"github.com/kirillfoster544-cpu/telegram/internal/middleware"
)

// Operator API budget per operator
const (
	OperatorRateWindow = time.Minute
	OperatorRateMax    = 60
)

// NewOperatorLimiter creates the limiter guarding the operator routes
func NewOperatorLimiter() *middleware.RateLimiter {
	return middleware.NewRateLimiter(OperatorRateWindow, OperatorRateMax)
}

// RouterDeps are the collaborators of the operator HTTP API
type RouterDeps struct {
	Health     *handlers.HealthHandler
	Operator   *handlers.OperatorHandler
	JWTService *auth.JWTService
	// AdminID restricts operator tokens to this id when non-zero.
	AdminID int64
	Limiter *middleware.RateLimiter
	// CORSOrigins enables browser access from these origins. Empty disables CORS.
	CORSOrigins []string
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.CORSOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", deps.Health.ServeHTTP)

	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewOperatorLimiter()
	}

	// Protected routes (require a valid operator token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.OperatorAuth(deps.JWTService, deps.AdminID))
		r.Use(middleware.RateLimitMiddleware(limiter, middleware.OperatorKey))
		r.Get("/audit", deps.Operator.HandleAudit)
		r.Get("/usage/{userID}", deps.Operator.HandleUsage)
	})

	return r
}
