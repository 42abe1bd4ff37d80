// Package sweep は看板存在キャッシュの期限切れエントリを定期的に削除するジョブを提供する。
// キャッシュは参照時に期限を判定するため、このジョブは一度しか問い合わせのない看板が
// メモリに残り続けないようにするためのもの。
package sweep

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval はスイープ間隔のデフォルト値。
const DefaultInterval = 10 * time.Minute

// Sweeper は期限切れエントリの削除を抽象化するインターフェース。
// boardcache.Cache が実装する。
type Sweeper interface {
	Sweep() int
	Len() int
}

// Job は期限切れキャッシュエントリの定期削除ジョブ。
type Job struct {
	cache    Sweeper
	logger   *slog.Logger
	interval time.Duration
}

// NewJob は新しいJobを生成する。intervalが0以下の場合はDefaultIntervalを使う。
func NewJob(cache Sweeper, interval time.Duration, logger *slog.Logger) *Job {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Job{
		cache:    cache,
		logger:   logger,
		interval: interval,
	}
}

// RunOnce は期限切れエントリを1回削除し、削除件数を返す。
func (j *Job) RunOnce() int {
	start := time.Now()
	removed := j.cache.Sweep()

	level := slog.LevelDebug
	if removed > 0 {
		level = slog.LevelInfo
	}
	j.logger.Log(context.Background(), level, "看板キャッシュのスイープが完了しました",
		slog.Int("removed_count", removed),
		slog.Int("remaining_count", j.cache.Len()),
		slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
	)
	return removed
}

// Start はジョブをティッカーで定期実行する。ctxがキャンセルされるまでブロックする。
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("看板キャッシュのスイープを開始しました",
		slog.Duration("interval", j.interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("看板キャッシュのスイープを停止しました")
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}
