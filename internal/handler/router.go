package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hitoshi/pttman/internal/metrics"
	"github.com/hitoshi/pttman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ツール
	Caller ToolCaller
	Tools  []mcp.Tool

	// メトリクス（nilの場合は /metrics を公開しない）
	Gatherer prometheus.Gatherer

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
}

// NewRouter はserveモードのルーティングとミドルウェアチェーンを構成したハンドラーを返す。
//
// ミドルウェアスタックの実行順序:
//
//	otelhttp → Logging → Recovery → SecurityHeaders → CORS → RateLimit（/api/* のみ）
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.Get("/health", Health)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	toolHandler := NewToolHandler(deps.Caller, deps.Tools)

	r.Route("/api/tools", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Get("/", toolHandler.ListTools)
		r.Post("/{name}", toolHandler.CallTool)
	})

	return otelhttp.NewHandler(r, "pttman",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
