package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pttman/internal/metrics"
	"github.com/hitoshi/pttman/internal/model"
)

// ツール名。
const (
	NameListPosts         = "list_posts"
	NameGetPostDetail     = "get_post_detail"
	NameSearchPosts       = "search_posts"
	NameSearchThreadPosts = "search_thread_posts"
	NameSummarizePosts    = "summarize_posts"
	NameListPopularBoards = "list_popular_boards"
)

// unknownToolLabel は未登録ツール呼び出しのメトリクスラベル。
const unknownToolLabel = "unknown"

// HandlerFunc はJSON引数を受け取って操作を実行する関数。
type HandlerFunc func(ctx context.Context, raw json.RawMessage) (*Reply, error)

// Dispatcher はツール名から操作を呼び出し、結果をエンベロープに変換する。
// エラーのテキスト化はここでのみ行う。
type Dispatcher struct {
	handlers map[string]HandlerFunc
	names    []string
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewDispatcher はServiceの6操作を登録したDispatcherを生成する。
func NewDispatcher(svc *Service, mc metrics.MetricsCollector, logger *slog.Logger) *Dispatcher {
	if mc == nil {
		mc = metrics.Nop{}
	}
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		metrics:  mc,
		logger:   logger,
	}
	d.Register(NameListPosts, bind(svc.ListPosts))
	d.Register(NameGetPostDetail, bind(svc.GetPostDetail))
	d.Register(NameSearchThreadPosts, bind(svc.SearchThread))
	d.Register(NameSearchPosts, bind(svc.SearchPosts))
	d.Register(NameListPopularBoards, func(ctx context.Context, _ json.RawMessage) (*Reply, error) {
		return svc.ListPopularBoards(ctx)
	})
	d.Register(NameSummarizePosts, bind(svc.SummarizePosts))
	return d
}

// Register はツールを登録する。同名の登録は上書きする。
func (d *Dispatcher) Register(name string, h HandlerFunc) {
	if _, exists := d.handlers[name]; !exists {
		d.names = append(d.names, name)
	}
	d.handlers[name] = h
}

// Names は登録順のツール名を返す。
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Has はツールが登録されているかを返す。
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.handlers[name]
	return ok
}

// Call はツールを実行し、結果をエンベロープとして返す。
// 操作内のpanicは回復し、システムエラーのエンベロープに変換する。
func (d *Dispatcher) Call(ctx context.Context, name string, raw json.RawMessage) (env Envelope) {
	requestID := uuid.NewString()
	logger := d.logger.With(slog.String("request_id", requestID), slog.String("tool", name))
	start := time.Now()

	h, ok := d.handlers[name]
	if !ok {
		logger.Warn("未登録のツールが呼び出されました")
		d.metrics.RecordToolCall(unknownToolLabel, true)
		return failureEnvelope(model.NewUnknownToolError(name))
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			env = failureEnvelope(model.NewInternalError(fmt.Sprint(rec)))
		}
		d.metrics.RecordToolCall(name, env.IsError)
	}()

	reply, err := h(ctx, raw)
	if err == nil {
		env, err = successEnvelope(reply)
	}
	duration := time.Since(start)
	if err != nil {
		level := slog.LevelWarn
		if _, isToolErr := asToolError(err); !isToolErr {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "ツールの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return failureEnvelope(err)
	}

	logger.Info("ツールを実行しました", slog.Duration("duration", duration))
	return env
}

// bind は型付き引数の操作をHandlerFuncに変換する。
func bind[T any](fn func(context.Context, T) (*Reply, error)) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (*Reply, error) {
		args, err := decodeArgs[T](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}
