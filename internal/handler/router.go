package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kindnesshome/backend/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder

	// 認証
	AuthService AuthServiceInterface
	Metrics     LoginMetricsRecorder

	// 団体ディレクトリ
	OrganizationService OrganizationServiceInterface
	Sanitizer           HTMLSanitizer

	// ヘルスチェック
	HealthChecker HealthChecker

	// Prometheusスクレイプ用ハンドラー（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → LoggingMiddleware → (BearerAuthMiddleware → RateLimitMiddleware)
//
// OAuthフロー（/api/oauth/*）とヘルスチェックは認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORSとアクセスログは全ルートに適用する
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.StatusRecorder))

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)
	orgHandler := NewOrganizationHandler(deps.OrganizationService, deps.Sanitizer)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---

	r.Route("/api/oauth/google", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
	})

	r.Get("/api/health", healthHandler.Check)

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Route("/api/organizations", func(r chi.Router) {
			r.Get("/", orgHandler.ListOrganizations)
			r.Get("/search", orgHandler.SearchOrganizations)
			r.Get("/categories", orgHandler.ListCategories)
			r.Get("/categories/{code}", orgHandler.ListOrganizationsByCategory)
			r.Get("/{ein}", orgHandler.GetOrganization)
		})
	})

	return r
}
