// Package boardcache は看板名の有効性をTTL付きでキャッシュする。
//
// 未キャッシュの看板は Prober で存在確認し、結果を有効/無効それぞれのTTLで保持する。
// 存在確認に失敗した場合はエラーを返さず、許可リストへの所属で判定して短いTTLで保持する。
// 期限切れのエントリはタイマーではなく参照時に遅延削除する。
package boardcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/pttman/internal/metrics"
)

// Prober は看板の存在確認を行うインターフェース。
// ptt.Client.ProbeBoard を抽象化してテスタビリティを向上させる。
type Prober interface {
	ProbeBoard(ctx context.Context, board string) (bool, error)
}

// Fallback は存在確認失敗時の許可リスト判定インターフェース。
type Fallback interface {
	InFallback(board string) bool
}

// Config はキャッシュのTTL設定。
type Config struct {
	ValidTTL    time.Duration
	InvalidTTL  time.Duration
	FallbackTTL time.Duration
}

// DefaultConfig はデフォルトのTTL設定を返す。
func DefaultConfig() Config {
	return Config{
		ValidTTL:    time.Hour,
		InvalidTTL:  10 * time.Minute,
		FallbackTTL: 5 * time.Minute,
	}
}

type entry struct {
	valid     bool
	expiresAt time.Time
}

// Cache は看板有効性のTTLキャッシュ。
// 同一看板への同時問い合わせは1回の存在確認を共有する。
// 複数のgoroutineから同時に使用できる。
type Cache struct {
	prober   Prober
	fallback Fallback
	cfg      Config
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group
	closed  bool
}

// Option はCacheの生成オプション。
type Option func(*Cache)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMetrics はメトリクス収集先を設定する。
func WithMetrics(mc metrics.MetricsCollector) Option {
	return func(c *Cache) {
		c.metrics = mc
	}
}

// New はCacheの新しいインスタンスを生成する。
func New(prober Prober, fallback Fallback, cfg Config, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		prober:   prober,
		fallback: fallback,
		cfg:      cfg,
		metrics:  metrics.Nop{},
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsValid は看板が存在するかを返す。エラーは返さない。
// 期限内のキャッシュがあればネットワークアクセスせずに返す。
// 存在確認はリクエストのキャンセルから切り離して実行し、結果は後続の呼び出しにも共有される。
func (c *Cache) IsValid(ctx context.Context, board string) bool {
	if valid, ok := c.lookup(board); ok {
		c.metrics.RecordBoardCache(metrics.BoardCacheHit)
		return valid
	}
	c.metrics.RecordBoardCache(metrics.BoardCacheMiss)

	probeCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(board, func() (interface{}, error) {
		if valid, ok := c.lookup(board); ok {
			return valid, nil
		}
		return c.probe(probeCtx, board), nil
	})

	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-ctx.Done():
		// 呼び出し元のキャンセル時は許可リストで判定する。存在確認自体は継続する。
		return c.fallback.InFallback(board)
	}
}

// probe は存在確認を行い、結果をキャッシュに格納する。
func (c *Cache) probe(ctx context.Context, board string) bool {
	valid, err := c.prober.ProbeBoard(ctx, board)
	if err != nil {
		c.metrics.RecordBoardCache(metrics.BoardCacheProbeError)
		valid = c.fallback.InFallback(board)
		c.logger.Warn("看板の存在確認に失敗したため許可リストで判定しました",
			slog.String("board", board),
			slog.Bool("valid", valid),
			slog.String("error", err.Error()),
		)
		c.store(board, valid, c.cfg.FallbackTTL)
		return valid
	}

	ttl := c.cfg.InvalidTTL
	if valid {
		ttl = c.cfg.ValidTTL
	}
	c.store(board, valid, ttl)
	c.logger.Debug("看板の存在確認を行いました",
		slog.String("board", board),
		slog.Bool("valid", valid),
		slog.Duration("ttl", ttl),
	)
	return valid
}

// lookup は期限内のエントリを返す。期限切れのエントリは削除する。
func (c *Cache) lookup(board string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[board]
	if !ok {
		return false, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, board)
		return false, false
	}
	return e.valid, true
}

// store はエントリを格納する。Close後は格納しない。
func (c *Cache) store(board string, valid bool, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.entries[board] = entry{valid: valid, expiresAt: c.now().Add(ttl)}
}

// Sweep は期限切れのエントリをすべて削除し、削除件数を返す。
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for board, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, board)
			removed++
		}
	}
	return removed
}

// Len は保持しているエントリ数（期限切れ未削除分を含む）を返す。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close はキャッシュを破棄する。以後の問い合わせは毎回存在確認を行う。
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries = make(map[string]entry)
}
