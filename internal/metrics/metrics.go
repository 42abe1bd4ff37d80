// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// PTTクライアント、看板キャッシュ、ページ走査、ツールディスパッチャから利用する。
type MetricsCollector interface {
	RecordPageFetch(success bool)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordBoardCache(outcome string)
	RecordWalkPages(mode string, pages int)
	RecordToolCall(tool string, isError bool)
}

// 看板キャッシュの結果ラベル。
const (
	BoardCacheHit        = "hit"
	BoardCacheMiss       = "miss"
	BoardCacheProbeError = "probe_error"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	pageFetch    *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
	fetchLatency prometheus.Histogram
	boardCache   *prometheus.CounterVec
	walkPages    *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pageFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pttman_page_fetch_total",
			Help: "PTTページ取得の合計数（result=success|failure）",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pttman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pttman_fetch_latency_seconds",
			Help:    "PTTページ取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		boardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pttman_board_cache_total",
			Help: "看板有効性キャッシュの参照結果（hit|miss|probe_error）",
		}, []string{"outcome"}),
		walkPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pttman_walk_pages_total",
			Help: "ページ走査で取得したページ数（mode=listing|search）",
		}, []string{"mode"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pttman_tool_calls_total",
			Help: "ツール呼び出し数（result=success|error）",
		}, []string{"tool", "result"}),
	}

	reg.MustRegister(
		c.pageFetch,
		c.httpStatus,
		c.fetchLatency,
		c.boardCache,
		c.walkPages,
		c.toolCalls,
	)

	return c
}

// RecordPageFetch はページ取得の成否を記録する。
func (c *Collector) RecordPageFetch(success bool) {
	c.pageFetch.WithLabelValues(resultLabel(success)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はページ取得のレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordBoardCache は看板キャッシュの参照結果を記録する。
func (c *Collector) RecordBoardCache(outcome string) {
	c.boardCache.WithLabelValues(outcome).Inc()
}

// RecordWalkPages はページ走査1回で取得したページ数を記録する。
func (c *Collector) RecordWalkPages(mode string, pages int) {
	c.walkPages.WithLabelValues(mode).Add(float64(pages))
}

// RecordToolCall はツール呼び出しの結果を記録する。
func (c *Collector) RecordToolCall(tool string, isError bool) {
	c.toolCalls.WithLabelValues(tool, resultLabel(!isError)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordPageFetch(bool) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordFetchLatency(time.Duration) {}
func (Nop) RecordBoardCache(string) {}
func (Nop) RecordWalkPages(string, int) {}
func (Nop) RecordToolCall(string, bool) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
