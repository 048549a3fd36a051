package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gatherly/server/internal/api/handlers"
	"github.com/gatherly/server/internal/api/middleware"
	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/config"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/sessions"
	"github.com/gatherly/server/internal/domain/users"
	"github.com/gatherly/server/internal/metrics"
	"github.com/gatherly/server/internal/storage"
	"github.com/rs/zerolog"
)

// NewRouter wires services, handlers and middleware. The rate limiter
// is shared across routes; the login route carries its own tier so
// credential guessing is throttled harder than normal traffic.
func NewRouter(cfg config.Config, logger zerolog.Logger, repo storage.Repository, db handlers.Pinger) http.Handler {
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)
	userService := users.NewService(repo.Users(), logger)
	sessionService := sessions.NewService(userService, repo.Tokens(), jwtManager, logger)
	quota := events.NewQuotaGuard(cfg.Quota.MaxEventsPerWindow, cfg.Quota.Window)
	eventService := events.NewService(repo.Events(), quota, logger)

	authHandler := handlers.NewAuthHandler(userService, sessionService, cfg.Environment)
	eventsHandler := handlers.NewEventsHandler(eventService, cfg.Environment)

	limit := middleware.RateLimit(cfg.RateLimit)
	requireAuth := middleware.RequireAuth(sessionService, cfg.Environment)
	loginTier := middleware.WithRateLimitTier(middleware.TierLogin)

	protected := func(h http.HandlerFunc) http.Handler {
		return limit(requireAuth(h))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(db))
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/api/v1/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: limit(http.HandlerFunc(authHandler.Register)),
	}))
	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: loginTier(limit(http.HandlerFunc(authHandler.Login))),
	}))
	mux.Handle("/api/v1/auth/logout", methodMux(map[string]http.Handler{
		http.MethodPost: protected(authHandler.Logout),
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  protected(eventsHandler.List),
		http.MethodPost: protected(eventsHandler.Create),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    protected(eventsHandler.Get),
		http.MethodPut:    protected(eventsHandler.Update),
		http.MethodDelete: protected(eventsHandler.Delete),
	}))
	mux.Handle("/api/v1/events/{id}/join", methodMux(map[string]http.Handler{
		http.MethodPost: protected(eventsHandler.Join),
	}))
	mux.Handle("/api/v1/events/{id}/participants", methodMux(map[string]http.Handler{
		http.MethodGet: protected(eventsHandler.Participants),
	}))

	var handler http.Handler = mux
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
