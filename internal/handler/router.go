package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storeadmin/internal/credential"
	"github.com/hitoshi/storeadmin/internal/middleware"
)

// RouterDeps はルーター構築に必要な依存をまとめる。
type RouterDeps struct {
	Logger *slog.Logger

	AuthService    AuthServiceInterface
	ProductGateway ProductGatewayInterface
	Validator      InputValidator
	Views          ViewProvider
	ViewRemover    ViewRemover

	RateLimiter *middleware.RateLimiter

	GuardConfig  middleware.GuardConfig
	CSRFConfig   middleware.CSRFConfig
	AuthConfig   AuthHandlerConfig
	CookieConfig credential.CookieConfig

	CORSAllowedOrigin string

	// MetricsHandler が非nilの場合、/metrics にマウントする。
	MetricsHandler http.Handler
}

// NewRouter はアプリケーション全体のルーティングを構築する。
// ミドルウェアチェーンは Recovery → SecurityHeaders → Logging → CORS →
// RouteGuard の順で、ガードはすべてのハンドラーより前に評価される。
func NewRouter(deps RouterDeps) (chi.Router, error) {
	pages, err := NewPageHandler(deps.ProductGateway, deps.CookieConfig)
	if err != nil {
		return nil, err
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.ViewRemover, deps.AuthConfig)
	productHandler := NewProductHandler(deps.ProductGateway, deps.Validator, deps.CookieConfig)
	viewHandler := NewViewHandler(deps.Views)

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRouteGuardMiddleware(deps.GuardConfig))

	// インフラ用エンドポイント（ガードの除外パス）
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 管理画面ページ
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/products", http.StatusTemporaryRedirect)
	})
	r.Get("/login", pages.LoginPage)
	r.Get("/register", pages.RegisterPage)
	r.Route("/products", func(r chi.Router) {
		r.Get("/", pages.ProductsPage)
		r.Get("/new", pages.ProductNewPage)
		r.Get("/{id}/edit", pages.ProductEditPage)
	})

	// 認証API（ガードのrule 3から除外される /api/auth/ 配下）
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/csrf", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)
		r.Post("/login", authHandler.Login)
		r.Get("/me", authHandler.Me)
		r.Post("/logout", authHandler.Logout)
	})

	// 認証必須API（レート制限 + CSRF検証）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		mutation := deps.RateLimiter.MutationMiddleware()

		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/categories", productHandler.Categories)
			r.With(mutation).Post("/", productHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productHandler.Get)
				r.With(mutation).Put("/", productHandler.Update)
				r.With(mutation).Delete("/", productHandler.Delete)
			})
		})

		r.Route("/api/view", func(r chi.Router) {
			r.Post("/filter", viewHandler.FilterEvent)
			r.Get("/location", viewHandler.Location)
		})
	})

	return r, nil
}
