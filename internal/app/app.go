package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/confsite/internal/auth"
	"github.com/hitoshi/confsite/internal/config"
	"github.com/hitoshi/confsite/internal/database"
	"github.com/hitoshi/confsite/internal/handler"
	"github.com/hitoshi/confsite/internal/locale"
	"github.com/hitoshi/confsite/internal/logger"
	"github.com/hitoshi/confsite/internal/metrics"
	"github.com/hitoshi/confsite/internal/middleware"
	"github.com/hitoshi/confsite/internal/render"
	"github.com/hitoshi/confsite/internal/repository"
	"github.com/hitoshi/confsite/internal/session"
	"github.com/hitoshi/confsite/internal/worker/cleanup"
)

const (
	dbPingTimeout   = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_backend", cfg.SessionBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// sessionBackend はSESSION_BACKENDに応じたセッション保存先。
// purgerがnilの場合は保存先自身が有効期限を管理する（Redis）。
type sessionBackend struct {
	backend session.Backend
	purger  cleanup.Purger
	close   func() error
}

// newSessionBackend はセッションの保存先を構築する。
func newSessionBackend(cfg *config.Config, db *sql.DB) (*sessionBackend, error) {
	noop := func() error { return nil }

	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		client, err := session.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return &sessionBackend{backend: session.NewRedisBackend(client), close: client.Close}, nil
	case config.SessionBackendMemory:
		mem := session.NewMemoryBackend()
		return &sessionBackend{backend: mem, purger: mem, close: noop}, nil
	case config.SessionBackendPostgres:
		if db == nil {
			return nil, errors.New("postgres session backend requires a database connection")
		}
		repo := repository.NewPostgresSessionRepo(db)
		return &sessionBackend{backend: repo, purger: repo, close: noop}, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

// newStrategies は設定済みのOAuthプロバイダーを登録したFactoryを返す。
// 認証情報が空のプロバイダーも登録し、利用時にErrMissingCredentialsとする。
func newStrategies(cfg *config.Config) *auth.Factory {
	return auth.NewFactory(
		auth.NewGoogleStrategy(auth.ProviderConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			BaseURL:      cfg.BaseURL,
			Timeout:      cfg.OAuthTimeout,
		}),
		auth.NewGitHubStrategy(auth.ProviderConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			BaseURL:      cfg.BaseURL,
			Timeout:      cfg.OAuthTimeout,
		}),
	)
}

// newDispatcher はセッション・認証・描画の依存関係を組み立ててDispatcherを返す。
func newDispatcher(cfg *config.Config, sessions *session.Store, users repository.UserRepository, collector metrics.MetricsCollector) (http.Handler, error) {
	renderer, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	locales, err := locale.NewResolver(cfg.DefaultLocale, cfg.Locales)
	if err != nil {
		return nil, fmt.Errorf("failed to configure locales: %w", err)
	}

	var static = os.DirFS(cfg.StaticDir)
	if _, err := os.Stat(cfg.StaticDir); err != nil {
		slog.Warn("static directory is not available",
			slog.String("dir", cfg.StaticDir),
			slog.String("error", err.Error()),
		)
		static = nil
	}

	return handler.NewDispatcher(handler.DispatchDeps{
		Sessions:   sessions,
		Renderer:   renderer,
		Strategies: newStrategies(cfg),
		Users:      auth.NewResolver(users, collector, cfg.PersistenceTimeout),
		Locales:    locales,
		Metrics:    collector,
		BaseURL:    cfg.BaseURL,
		EventYears: cfg.EventYears,
		Static:     static,
	})
}

// runServe はWebサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	backend, err := newSessionBackend(cfg, db)
	if err != nil {
		return fmt.Errorf("failed to configure session backend: %w", err)
	}
	defer backend.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	sessions := session.NewStore(backend.backend, session.StoreConfig{
		HashKey:      []byte(cfg.SessionSecret),
		MaxAge:       cfg.SessionTTL(),
		Timeout:      cfg.PersistenceTimeout,
		CookieSecure: cfg.CookieSecure,
		CookieDomain: cfg.CookieDomain,
	})

	dispatcher, err := newDispatcher(cfg, sessions, repository.NewPostgresUserRepo(db), collector)
	if err != nil {
		return err
	}

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:         slog.Default(),
		Dispatcher:     dispatcher,
		HealthChecker:  db,
		RateLimiter:    rateLimiter,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		SecureHeaders:  cfg.CookieSecure,
	})

	// メモリ保存の場合はワーカーから見えないため、同じプロセスで掃除する
	if cfg.SessionBackend == config.SessionBackendMemory {
		job := cleanup.NewCleanupJob(backend.purger, collector, slog.Default())
		go job.Start(ctx, cfg.SessionCleanupInterval)
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの定期削除を行い、ctxがキャンセルされるまでブロックする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.SessionBackend != config.SessionBackendPostgres {
		// RedisはTTLで失効し、メモリはserveプロセス内で掃除する
		slog.Info("session cleanup is not required for this backend",
			slog.String("session_backend", cfg.SessionBackend),
		)
		<-ctx.Done()
		return nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	backend, err := newSessionBackend(cfg, db)
	if err != nil {
		return err
	}
	defer backend.close()

	collector := metrics.NewCollector(prometheus.NewRegistry())
	job := cleanup.NewCleanupJob(backend.purger, collector, slog.Default())

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はdistroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
