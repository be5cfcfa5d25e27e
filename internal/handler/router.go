package handler

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/confsite/internal/locale"
	"github.com/hitoshi/confsite/internal/metrics"
	"github.com/hitoshi/confsite/internal/middleware"
	"github.com/hitoshi/confsite/internal/model"
	"github.com/hitoshi/confsite/internal/route"
	"github.com/hitoshi/confsite/internal/session"
	"github.com/hitoshi/confsite/internal/site"
)

const healthCheckTimeout = 3 * time.Second

// HealthChecker は/healthで疎通確認する依存先。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// DispatchDeps はNewDispatcherに必要な依存関係をまとめた構造体。
type DispatchDeps struct {
	Sessions   *session.Store
	Renderer   route.Renderer
	Strategies StrategyFactory
	Users      UserResolver
	Locales    *locale.Resolver
	Metrics    metrics.MetricsCollector
	BaseURL    string
	EventYears []int
	Static     fs.FS // nilの場合は静的ファイルを配信しない
}

// NewDispatcher は認証・サイト・レガシーリダイレクトのテーブルをこの順に連結し、
// モデル装飾フィルターで包んだDispatcherを返す。
func NewDispatcher(deps DispatchDeps) (*route.Dispatcher, error) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deps.Metrics.RecordDispatch(metrics.DispatchNotFound)
		middleware.WriteError(w, r, model.ErrNoRouteMatched)
	})

	var fallback http.Handler = notFound
	if deps.Static != nil {
		fallback = route.StaticFallback(deps.Static, notFound)
	}

	authHandler := NewAuthHandler(deps.Strategies, deps.Users, deps.Metrics)

	return route.NewDispatcher(route.DispatcherConfig{
		Sessions:    deps.Sessions,
		Renderer:    deps.Renderer,
		Filters:     []route.Filter{middleware.NewModelDecorator(deps.BaseURL, deps.Locales)},
		Fallback:    fallback,
		ErrorWriter: middleware.WriteError,
		Metrics:     deps.Metrics,
	},
		authHandler.Routes(),
		site.NewContributor(deps.EventYears),
		site.NewRedirects(deps.BaseURL, deps.EventYears),
	)
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger         *slog.Logger
	Dispatcher     http.Handler
	HealthChecker  HealthChecker
	RateLimiter    *middleware.RateLimiter
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
	SecureHeaders  bool
}

// NewRouter はミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → SecurityHeaders → RateLimit(General) → RateLimit(Login)
//
// /health と /metrics 以外はすべてDispatcherに委譲する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.SecureHeaders))

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Use(deps.RateLimiter.LoginMiddleware())
		}
		r.Handle("/*", deps.Dispatcher)
	})

	return r
}

// healthHandler は依存先への疎通を確認する。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
