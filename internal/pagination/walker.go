// Package pagination は看板一覧・検索結果ページを順に辿り、条件に合う投稿を集める。
// 停止条件は StopPolicy で操作ごとに明示する。
package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hitoshi/pttman/internal/dateutil"
	"github.com/hitoshi/pttman/internal/metrics"
	"github.com/hitoshi/pttman/internal/model"
	"github.com/hitoshi/pttman/internal/ptt"
)

const tracerName = "github.com/hitoshi/pttman/internal/pagination"

// Mode は走査の種類。
type Mode int

const (
	// ModeListing は看板の最新一覧から「‹ 上頁」リンクを辿る。
	ModeListing Mode = iota
	// ModeSearch は検索結果をページ番号で辿る。
	ModeSearch
)

// String はメトリクスのラベルとして使う名前を返す。
func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "listing"
}

// PageSource はページの取得元。ptt.Client が実装する。
type PageSource interface {
	IndexURL(board string) string
	SearchURL(board, query string, page int) string
	FetchListPage(ctx context.Context, pageURL string) (*model.ListPage, error)
}

// Request は1回の走査の入力。
type Request struct {
	Mode  Mode
	Board string
	// Query は検索モードの検索語（PTT検索構文のまま）。
	Query string
	// Cursor は再開位置。一覧モードでは一覧ページのURL、検索モードではページ番号。
	// ページ途中で打ち切った場合は返済み件数が付く。空の場合は先頭から走査する。
	Cursor   string
	Policy   StopPolicy
	Criteria Criteria
	// ProbeAhead は検索モードで予算を使い切ったとき、次ページを1回だけ取得して
	// HasMorePages を判定する。取得した投稿は捨てる。
	ProbeAhead bool
}

// Result は走査の結果。
type Result struct {
	Items      []model.ListItem
	Pagination model.PaginationCursor
}

// Walker はページ走査を行う。ページ取得は常に逐次で行う。
type Walker struct {
	source  PageSource
	dates   *dateutil.Engine
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewWalker はWalkerの新しいインスタンスを生成する。
func NewWalker(source PageSource, dates *dateutil.Engine, mc metrics.MetricsCollector, logger *slog.Logger) *Walker {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Walker{
		source:  source,
		dates:   dates,
		metrics: mc,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// position は走査中の現在位置。
// skip はそのページで既に返した一致件数。
type position struct {
	url  string
	page int
	skip int
}

// Walk は停止条件を満たすまでページを辿り、条件に合う投稿を返す。
// 検索モードで404を受けた場合は結果の終端として扱う。それ以外の取得失敗はエラーを返す。
func (w *Walker) Walk(ctx context.Context, req Request) (*Result, error) {
	ctx, span := w.tracer.Start(ctx, "pagination.Walk", trace.WithAttributes(
		attribute.String("ptt.board", req.Board),
		attribute.String("pagination.mode", req.Mode.String()),
	))
	defer span.End()

	pos, err := w.start(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	preds := req.Criteria.Predicates(w.dates)
	budget := clampBudget(req.Policy.PageBudget)
	target := req.Policy.TargetItems

	result := &Result{
		Items:      []model.ListItem{},
		Pagination: model.PaginationCursor{Cursor: pos.label(req.Mode)},
	}

	var (
		pages   int
		hasMore bool
		next    position
	)
	for {
		page, err := w.source.FetchListPage(ctx, w.pageURL(req, pos))
		if err != nil {
			if req.Mode == ModeSearch && errors.Is(err, ptt.ErrNotFound) {
				hasMore = false
				break
			}
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%s の %d ページ目の取得に失敗しました: %w", req.Board, pages+1, err)
		}
		pages++

		matched := 0
		cut := false
		for _, raw := range page.Items {
			item := model.ListItem{
				Title:     raw.Title,
				Author:    raw.Author,
				Date:      raw.DateText,
				URL:       raw.URL,
				PushCount: ptt.DecodePushCount(raw.PushText),
			}
			if !Match(preds, item) {
				continue
			}
			matched++
			if matched <= pos.skip {
				continue
			}
			if target > 0 && len(result.Items) >= target {
				cut = true
				break
			}
			result.Items = append(result.Items, item)
		}

		if cut {
			// 残りの一致はこのページから再開する。
			next = position{url: pos.url, page: pos.page, skip: matched - 1}
			hasMore = true
			break
		}
		next, hasMore = w.sibling(req.Mode, pos, page)
		if req.Mode == ModeSearch && len(page.Items) == 0 {
			hasMore = false
			break
		}
		if target > 0 && len(result.Items) >= target {
			break
		}
		if pages >= budget {
			if hasMore && req.Mode == ModeSearch && req.ProbeAhead {
				hasMore = w.probe(ctx, req, next)
			}
			break
		}
		if !hasMore {
			break
		}
		pos = next
	}

	result.Pagination.PagesRetrieved = pages
	result.Pagination.HasMorePages = hasMore
	if hasMore {
		cursor := next.label(req.Mode)
		result.Pagination.NextCursor = &cursor
	}

	w.metrics.RecordWalkPages(req.Mode.String(), pages)
	span.SetAttributes(
		attribute.Int("pagination.pages", pages),
		attribute.Int("pagination.items", len(result.Items)),
		attribute.Bool("pagination.has_more", hasMore),
	)
	w.logger.Debug("ページ走査が完了しました",
		slog.String("board", req.Board),
		slog.String("mode", req.Mode.String()),
		slog.Int("pages", pages),
		slog.Int("items_count", len(result.Items)),
		slog.Bool("has_more", hasMore),
	)
	return result, nil
}

// start はカーソルから開始位置を決める。
func (w *Walker) start(req Request) (position, error) {
	if req.Mode == ModeSearch {
		if req.Cursor == "" {
			return position{page: 1}, nil
		}
		page, skip, err := ParseSearchCursor(req.Cursor)
		if err != nil {
			return position{}, model.NewInvalidCursorError(req.Cursor)
		}
		return position{page: page, skip: skip}, nil
	}
	if req.Cursor == "" {
		return position{url: w.source.IndexURL(req.Board)}, nil
	}
	pageURL, skip, err := ParseListingCursor(req.Cursor)
	if err != nil {
		return position{}, model.NewInvalidCursorError(req.Cursor)
	}
	return position{url: pageURL, skip: skip}, nil
}

func (w *Walker) pageURL(req Request, pos position) string {
	if req.Mode == ModeSearch {
		return w.source.SearchURL(req.Board, req.Query, pos.page)
	}
	return pos.url
}

// sibling は次に辿るページと、その存在有無を返す。
// どちらのモードでも古い方向への「‹ 上頁」リンクの有無で判定する。
func (w *Walker) sibling(mode Mode, pos position, page *model.ListPage) (position, bool) {
	if page.PrevURL == "" {
		return position{}, false
	}
	if mode == ModeSearch {
		return position{page: pos.page + 1}, true
	}
	return position{url: page.PrevURL}, true
}

// probe は次ページを1回取得し、投稿が存在するかを返す。
// 404や空ページは false、その他の失敗はリンク判定の結果（true）を維持する。
func (w *Walker) probe(ctx context.Context, req Request, next position) bool {
	page, err := w.source.FetchListPage(ctx, w.pageURL(req, next))
	if err != nil {
		if errors.Is(err, ptt.ErrNotFound) {
			return false
		}
		w.logger.Warn("次ページの先読みに失敗しました",
			slog.String("board", req.Board),
			slog.Int("page", next.page),
			slog.String("error", err.Error()),
		)
		return true
	}
	return len(page.Items) > 0
}
