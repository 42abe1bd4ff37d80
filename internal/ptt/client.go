// Package ptt はPTT（www.ptt.cc）のWebページ取得と解析を提供する。
// 看板一覧・検索結果・記事詳細の取得、看板の存在確認、看板ディレクトリを含む。
package ptt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/hitoshi/pttman/internal/metrics"
	"github.com/hitoshi/pttman/internal/model"
)

// Sanitizer は記事本文HTMLをプレーンテキストに変換するインターフェース。
// security.ContentSanitizerServiceを抽象化してテスタビリティを向上させる。
type Sanitizer interface {
	PlainText(rawHTML string) string
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	// BaseURL はPTTのベースURL（例: https://www.ptt.cc）。
	BaseURL string
	// UserAgent は送信するUser-Agentヘッダー。
	UserAgent string
	// MaxBodySize はレスポンスボディの最大読み取りバイト数。0以下は無制限。
	MaxBodySize int64
	// Rate は1秒あたりの最大リクエスト数。0以下は無制限。
	Rate float64
	// Burst はレートリミッタのバースト数。
	Burst int
}

// Client はPTTのWebページを取得・解析するクライアント。
// 全リクエストに over18=1 Cookie を付与し、共有のレートリミッタで間隔を調整する。
// 複数のgoroutineから同時に使用できる。
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	limiter     *rate.Limiter
	sanitizer   Sanitizer
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
	userAgent   string
	maxBodySize int64
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientのTransportはotelhttpでラップされる（元のクライアントは変更しない）。
func NewClient(cfg ClientConfig, httpClient *http.Client, sanitizer Sanitizer, mc metrics.MetricsCollector, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("PTTベースURLのパースに失敗しました: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("PTTベースURLが不正です: %s", cfg.BaseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}
	traced := *httpClient
	transport := traced.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	traced.Transport = otelhttp.NewTransport(transport)

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	if mc == nil {
		mc = metrics.Nop{}
	}

	return &Client{
		baseURL:     base,
		httpClient:  &traced,
		limiter:     rate.NewLimiter(limit, burst),
		sanitizer:   sanitizer,
		metrics:     mc,
		logger:      logger,
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
	}, nil
}

// IndexURL は看板の最新一覧ページのURLを返す。
func (c *Client) IndexURL(board string) string {
	return c.resolve("/bbs/" + url.PathEscape(board) + "/index.html")
}

// SearchURL は看板内検索のURLを返す。pageが1以下の場合はpage指定を省略する。
// クエリはスペースを "+" とするフォームエンコードで付与する。
func (c *Client) SearchURL(board, query string, page int) string {
	path := "/bbs/" + url.PathEscape(board) + "/search"
	q := "q=" + url.QueryEscape(query)
	if page > 1 {
		q = "page=" + strconv.Itoa(page) + "&" + q
	}
	return c.resolve(path) + "?" + q
}

// FetchListPage は一覧ページまたは検索結果ページを取得して解析する。
// 404の場合は ErrNotFound をラップした *FetchError を返す。
func (c *Client) FetchListPage(ctx context.Context, pageURL string) (*model.ListPage, error) {
	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	page := ParseListPage(doc, c.baseURL)
	c.logger.Debug("一覧ページを取得しました",
		slog.String("url", pageURL),
		slog.Int("items_count", len(page.Items)),
		slog.Bool("has_prev", page.PrevURL != ""),
		slog.Bool("has_next", page.NextURL != ""),
	)
	return page, nil
}

// FetchThread は記事ページを取得し、本文と推文を解析する。
func (c *Client) FetchThread(ctx context.Context, articleURL string) (*model.ThreadDetail, error) {
	doc, err := c.fetchDocument(ctx, articleURL)
	if err != nil {
		return nil, err
	}
	return ParseThread(doc, articleURL, c.sanitizer), nil
}

// ProbeBoard は看板の存在を確認する。
// 最新一覧ページがHTTP 200を返せば存在するとみなす。
// ネットワーク障害の場合のみエラーを返す。
func (c *Client) ProbeBoard(ctx context.Context, board string) (bool, error) {
	resp, err := c.do(ctx, c.IndexURL(board))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode == http.StatusOK, nil
}

// fetchDocument はページを取得し、HTMLをgoqueryドキュメントとして返す。
func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.do(ctx, pageURL)
	if err != nil {
		c.metrics.RecordPageFetch(false)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordPageFetch(false)
		c.logger.Warn("PTTがエラーステータスを返しました",
			slog.String("url", pageURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, newStatusError(pageURL, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if c.maxBodySize > 0 {
		body = io.LimitReader(resp.Body, c.maxBodySize)
	}
	root, err := html.Parse(body)
	if err != nil {
		c.metrics.RecordPageFetch(false)
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("HTMLのパースに失敗しました: %w", err)}
	}

	c.metrics.RecordPageFetch(true)
	return goquery.NewDocumentFromNode(root), nil
}

// do はレートリミッタを待ってからGETリクエストを送信する。
// ネットワーク障害は *FetchError として返す。
func (c *Client) do(ctx context.Context, pageURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.AddCookie(&http.Cookie{Name: "over18", Value: "1"})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordFetchLatency(time.Since(start))
	if err != nil {
		c.logger.Error("PTTへのHTTPリクエストに失敗しました",
			slog.String("url", pageURL),
			slog.String("error", err.Error()),
		)
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	c.metrics.RecordHTTPStatus(resp.StatusCode)
	return resp, nil
}

// resolve はベースURLに対して相対参照を解決する。
func (c *Client) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return c.baseURL.ResolveReference(u).String()
}
