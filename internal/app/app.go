package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/pttman/internal/boardcache"
	"github.com/hitoshi/pttman/internal/config"
	"github.com/hitoshi/pttman/internal/dateutil"
	"github.com/hitoshi/pttman/internal/handler"
	"github.com/hitoshi/pttman/internal/logger"
	"github.com/hitoshi/pttman/internal/mcpserver"
	"github.com/hitoshi/pttman/internal/metrics"
	"github.com/hitoshi/pttman/internal/middleware"
	"github.com/hitoshi/pttman/internal/pagination"
	"github.com/hitoshi/pttman/internal/ptt"
	"github.com/hitoshi/pttman/internal/security"
	"github.com/hitoshi/pttman/internal/tool"
	"github.com/hitoshi/pttman/internal/worker/sweep"
)

// shutdownTimeout はHTTPサーバーのグレースフルシャットダウン待機時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// ログは常にwへ出力する（stdioモードでは標準出力をプロトコルに使うため、wには標準エラーを渡す）。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVEL を反映する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

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
		slog.String("ptt_base_url", cfg.PTTBaseURL),
		slog.String("timezone", cfg.Location.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := build(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer c.Close()

	// 看板キャッシュのスイープをバックグラウンドで起動
	go sweep.NewJob(c.cache, cfg.BoardSweepPeriod, c.logger).Start(ctx)

	switch cmd {
	case CommandServe:
		return runServe(ctx, cfg, c)
	default:
		return runStdio(ctx, c, os.Stdin, os.Stdout)
	}
}

// components は起動モードに依存しない組み立て済みの依存関係。
type components struct {
	logger     *slog.Logger
	registry   *prometheus.Registry
	cache      *boardcache.Cache
	dispatcher *tool.Dispatcher
}

// Close はバックグラウンドで動作するリソースを解放する。
func (c *components) Close() {
	c.cache.Close()
}

// build は設定から全依存関係をワイヤリングする。
func build(cfg *config.Config, log *slog.Logger) (*components, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. セキュリティサービスの初期化
	guard, err := security.NewURLGuard(cfg.PTTBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create url guard: %w", err)
	}
	httpClient := guard.NewSafeClient(cfg.FetchTimeout)
	if security.IsLoopbackHost(cfg.PTTBaseURL) {
		// ローカルミラーはSSRFガードでは到達できない
		log.Warn("ループバックのPTTベースURLのためSSRF防止クライアントを使用しません",
			slog.String("ptt_base_url", cfg.PTTBaseURL),
		)
		httpClient = &http.Client{Timeout: cfg.FetchTimeout}
	}
	sanitizer := security.NewContentSanitizer()

	// 3. PTTクライアント
	client, err := ptt.NewClient(ptt.ClientConfig{
		BaseURL:     cfg.PTTBaseURL,
		UserAgent:   cfg.PTTUserAgent,
		MaxBodySize: cfg.FetchMaxSize,
		Rate:        cfg.FetchRate,
		Burst:       cfg.FetchBurst,
	}, httpClient, sanitizer, collector, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create ptt client: %w", err)
	}

	// 4. 看板一覧
	directory := ptt.DefaultDirectory()
	if cfg.BoardsFile != "" {
		directory, err = ptt.LoadDirectory(cfg.BoardsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load boards file: %w", err)
		}
	}

	// 5. ドメインサービスの初期化
	cache := boardcache.New(client, directory, boardcache.Config{
		ValidTTL:    cfg.BoardValidTTL,
		InvalidTTL:  cfg.BoardInvalidTTL,
		FallbackTTL: cfg.BoardFallbackTTL,
	}, log, boardcache.WithMetrics(collector))

	dates := dateutil.New(cfg.Location)
	walker := pagination.NewWalker(client, dates, collector, log)
	svc := tool.NewService(cache, walker, client, directory, guard, dates, cfg.LookbackDays, log)

	return &components{
		logger:     log,
		registry:   registry,
		cache:      cache,
		dispatcher: tool.NewDispatcher(svc, collector, log),
	}, nil
}

// runStdio はMCPサーバーとして標準入出力で待ち受ける。
// 入力が閉じられるかシグナルを受信すると終了する。
func runStdio(ctx context.Context, c *components, in io.Reader, out io.Writer) error {
	s := mcpserver.New(c.dispatcher)
	if err := mcpserver.ServeStdio(ctx, s, in, out, c.logger); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server failed: %w", err)
	}
	c.logger.Info("MCPサーバを停止しました")
	return nil
}

// runServe はHTTP APIサーバーモードで起動する。
// ctxがキャンセルされる（SIGINTまたはSIGTERMを受信する）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, c *components) error {
	rateLimiter := middleware.NewRateLimiter(middleware.PerMinuteConfig(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Caller:            c.dispatcher,
		Tools:             mcpserver.Tools(),
		Gatherer:          c.registry,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            c.logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("API server starting",
			slog.String("addr", ln.Addr().String()),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	c.logger.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	c.logger.Info("API server stopped gracefully")
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
