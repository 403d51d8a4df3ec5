package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/storeadmin/internal/apiclient"
	"github.com/hitoshi/storeadmin/internal/auth"
	"github.com/hitoshi/storeadmin/internal/config"
	"github.com/hitoshi/storeadmin/internal/credential"
	"github.com/hitoshi/storeadmin/internal/database"
	"github.com/hitoshi/storeadmin/internal/handler"
	"github.com/hitoshi/storeadmin/internal/listing"
	"github.com/hitoshi/storeadmin/internal/logger"
	"github.com/hitoshi/storeadmin/internal/metrics"
	"github.com/hitoshi/storeadmin/internal/middleware"
	"github.com/hitoshi/storeadmin/internal/product"
	"github.com/hitoshi/storeadmin/internal/repository"
	"github.com/hitoshi/storeadmin/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
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
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe は管理画面サーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 3. セキュリティサービスの初期化
	outboundGuard := security.NewOutboundGuard()
	if err := outboundGuard.ValidateBaseURL(cfg.APIBaseURL); err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}
	sanitizer := security.NewContentSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. リモートAPIクライアントと認証サービスの初期化
	// クライアントは401検出時にauthServiceのTeardownを呼ぶため、
	// 構築後に相互参照を注入する
	apiClient := apiclient.NewClient(
		cfg.APIBaseURL,
		outboundGuard.NewSafeClient(cfg.RequestTimeout),
		slog.Default(),
		collector,
		nil,
	)
	verifier := auth.NewRoleVerifier(cfg.SigningSecret, slog.Default())
	authService := auth.NewService(
		apiClient, sessionRepo, verifier, collector, slog.Default(),
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	apiClient.SetInvalidator(authService)

	// 6. ドメインサービスの初期化
	gateway := product.NewGateway(apiClient, sanitizer, slog.Default())
	validator := product.NewValidator()

	viewRegistry := listing.NewRegistry(cfg.DebounceWindow)
	defer viewRegistry.Stop()

	// 7. ルーターの構築
	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router, err := handler.NewRouter(handler.RouterDeps{
		Logger:         slog.Default(),
		AuthService:    authService,
		ProductGateway: gateway,
		Validator:      validator,
		Views:          viewRegistry,
		ViewRemover:    viewRegistry,
		RateLimiter:    rateLimiter,
		GuardConfig:    middleware.DefaultGuardConfig(),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		CookieConfig: credential.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		MetricsHandler:    metrics.Handler(registry),
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("admin server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down admin server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("admin server stopped gracefully")
	return nil
}

// sessionCleanupInterval は期限切れセッション掃除の実行間隔。
const sessionCleanupInterval = 1 * time.Hour

// runWorker はワーカーモードで起動する。
// 期限切れセッション行を定期的に削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	sessionRepo := repository.NewPostgresSessionRepo(db)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("session cleanup worker starting",
		slog.Duration("interval", sessionCleanupInterval),
	)

	// 起動直後に1回実行
	runSessionCleanup(ctx, sessionRepo)

	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			runSessionCleanup(ctx, sessionRepo)
		}
	}
}

// runSessionCleanup は期限切れセッションの削除を1回実行する。
func runSessionCleanup(ctx context.Context, sessionRepo repository.SessionRepository) {
	count, err := sessionRepo.DeleteExpired(ctx)
	if err != nil {
		slog.Error("session cleanup failed", slog.String("error", err.Error()))
		return
	}
	if count > 0 {
		slog.Info("expired sessions removed", slog.Int64("count", count))
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
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

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
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
