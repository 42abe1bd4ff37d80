// Package tool はPTT看板ツール（list_posts など6種）の操作と、
// 結果をテキストエンベロープに変換するディスパッチャを提供する。
package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/pttman/internal/analytics"
	"github.com/hitoshi/pttman/internal/dateutil"
	"github.com/hitoshi/pttman/internal/model"
	"github.com/hitoshi/pttman/internal/pagination"
)

// BoardValidator は看板の存在確認のインターフェース。boardcache.Cache が実装する。
type BoardValidator interface {
	IsValid(ctx context.Context, board string) bool
}

// PostWalker はページ走査のインターフェース。pagination.Walker が実装する。
type PostWalker interface {
	Walk(ctx context.Context, req pagination.Request) (*pagination.Result, error)
}

// ThreadFetcher は記事詳細取得のインターフェース。ptt.Client が実装する。
type ThreadFetcher interface {
	FetchThread(ctx context.Context, articleURL string) (*model.ThreadDetail, error)
}

// BoardDirectory は人気看板一覧のインターフェース。ptt.Directory が実装する。
type BoardDirectory interface {
	Popular() []model.Board
}

// URLValidator は記事URLと一覧カーソルの検証インターフェース。security.URLGuardService が実装する。
type URLValidator interface {
	ValidateArticleURL(rawURL string) error
	ValidateIndexURL(rawURL, board string) error
}

// PostsPayload は一覧・検索結果のJSONペイロード。
type PostsPayload struct {
	Posts      []model.ListItem       `json:"posts"`
	Pagination model.PaginationCursor `json:"pagination"`
}

// Service はツール操作のサービス層。
// 引数の検証、停止ポリシーの決定、走査結果の整形を行う。
type Service struct {
	boards       BoardValidator
	walker       PostWalker
	threads      ThreadFetcher
	directory    BoardDirectory
	guard        URLValidator
	dates        *dateutil.Engine
	lookbackDays int
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	boards BoardValidator,
	walker PostWalker,
	threads ThreadFetcher,
	directory BoardDirectory,
	guard URLValidator,
	dates *dateutil.Engine,
	lookbackDays int,
	logger *slog.Logger,
) *Service {
	return &Service{
		boards:       boards,
		walker:       walker,
		threads:      threads,
		directory:    directory,
		guard:        guard,
		dates:        dates,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

// ListPosts は看板の最新一覧を新しい順に辿り、条件に合う投稿を返す。
func (s *Service) ListPosts(ctx context.Context, args ListPostsArgs) (*Reply, error) {
	board := boardOrDefault(args.Board)

	if err := checkRange("pageLimit", args.PageLimit, 1, MaxPageLimit); err != nil {
		return nil, err
	}
	if err := checkRange("limit", args.Limit, 1, MaxListLimit); err != nil {
		return nil, err
	}
	if err := validatePushRange(args.MinPushCount, args.MaxPushCount); err != nil {
		return nil, err
	}
	if err := s.validateDates(args.DateFrom, args.DateTo); err != nil {
		return nil, err
	}
	if args.DateFrom != "" && s.dates.TooFarBack(args.DateFrom, s.lookbackDays) {
		return nil, model.NewLookbackLimitError(s.lookbackDays)
	}
	if args.Cursor != "" {
		if err := s.guard.ValidateIndexURL(args.Cursor, board); err != nil {
			return nil, model.NewInvalidCursorError(args.Cursor)
		}
	}
	if err := s.ensureBoard(ctx, board); err != nil {
		return nil, err
	}

	onlyToday := args.OnlyToday != nil && *args.OnlyToday
	res, err := s.walker.Walk(ctx, pagination.Request{
		Mode:   pagination.ModeListing,
		Board:  board,
		Cursor: args.Cursor,
		Policy: choosePolicy(args.PageLimit, args.Limit),
		Criteria: pagination.Criteria{
			Date:         model.DateRangeFilter{From: args.DateFrom, To: args.DateTo, OnlyToday: &onlyToday},
			TitleKeyword: args.TitleKeyword,
			MinPush:      args.MinPushCount,
			MaxPush:      args.MaxPushCount,
		},
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("成功取得 %d 篇 PTT %s 版最新文章", len(res.Items), board)
	msg += filterSummary(filterInfo{
		dateFrom:  args.DateFrom,
		dateTo:    args.DateTo,
		onlyToday: onlyToday,
		keyword:   args.TitleKeyword,
		minPush:   args.MinPushCount,
		maxPush:   args.MaxPushCount,
	})
	return &Reply{Message: msg, Payload: PostsPayload{Posts: res.Items, Pagination: res.Pagination}}, nil
}

// SearchPosts はPTTの看板内検索を辿り、日付条件に合う投稿を返す。
func (s *Service) SearchPosts(ctx context.Context, args SearchPostsArgs) (*Reply, error) {
	board := boardOrDefault(args.Board)

	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, model.NewMissingArgumentError("query")
	}
	searchType := args.SearchType
	if searchType == "" {
		searchType = SearchTypeKeyword
	}
	if searchType != SearchTypeKeyword && searchType != SearchTypeTitle && searchType != SearchTypeAuthor {
		return nil, model.NewInvalidArgumentError(fmt.Sprintf("無效的搜尋類型: %s (可用: keyword, title, author)", args.SearchType))
	}
	if err := checkRange("pageLimit", args.PageLimit, 1, MaxPageLimit); err != nil {
		return nil, err
	}
	if err := checkRange("limit", args.Limit, 1, MaxSearchLimit); err != nil {
		return nil, err
	}
	if err := s.validateDates(args.DateFrom, args.DateTo); err != nil {
		return nil, err
	}
	if args.Cursor != "" {
		if _, _, err := pagination.ParseSearchCursor(args.Cursor); err != nil {
			return nil, model.NewInvalidCursorError(args.Cursor)
		}
	}
	if err := s.ensureBoard(ctx, board); err != nil {
		return nil, err
	}

	onlyToday := args.OnlyToday != nil && *args.OnlyToday
	res, err := s.walker.Walk(ctx, pagination.Request{
		Mode:   pagination.ModeSearch,
		Board:  board,
		Query:  searchQuery(searchType, query),
		Cursor: args.Cursor,
		Policy: choosePolicy(args.PageLimit, args.Limit),
		Criteria: pagination.Criteria{
			Date: model.DateRangeFilter{From: args.DateFrom, To: args.DateTo, OnlyToday: &onlyToday},
		},
		ProbeAhead: true,
	})
	if err != nil {
		return nil, err
	}

	var msg string
	if searchType == SearchTypeAuthor {
		msg = fmt.Sprintf("成功搜尋到 %d 篇作者為 \"%s\" 的文章", len(res.Items), query)
	} else {
		msg = fmt.Sprintf("成功搜尋到 %d 篇標題包含 \"%s\" 的文章", len(res.Items), query)
	}
	msg += filterSummary(filterInfo{dateFrom: args.DateFrom, dateTo: args.DateTo, onlyToday: onlyToday})
	return &Reply{Message: msg, Payload: PostsPayload{Posts: res.Items, Pagination: res.Pagination}}, nil
}

// SearchThread は同じ標題の投稿（原文と回文）を検索する。
func (s *Service) SearchThread(ctx context.Context, args SearchThreadArgs) (*Reply, error) {
	board := boardOrDefault(args.Board)

	title := strings.TrimSpace(args.Title)
	if title == "" {
		return nil, model.NewMissingArgumentError("title")
	}
	if err := checkRange("limit", args.Limit, 1, MaxSearchLimit); err != nil {
		return nil, err
	}
	limit := DefaultThreadLimit
	if args.Limit != nil {
		limit = *args.Limit
	}
	if err := s.ensureBoard(ctx, board); err != nil {
		return nil, err
	}

	allDates := false
	res, err := s.walker.Walk(ctx, pagination.Request{
		Mode:     pagination.ModeSearch,
		Board:    board,
		Query:    "thread:" + title,
		Policy:   pagination.LegacyItemPolicy(limit),
		Criteria: pagination.Criteria{Date: model.DateRangeFilter{OnlyToday: &allDates}},
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("成功搜尋到 %d 篇標題為 \"%s\" 的相關文章", len(res.Items), title)
	return &Reply{Message: msg, Payload: res.Items}, nil
}

// GetPostDetail は記事の本文と推文を返す。
func (s *Service) GetPostDetail(ctx context.Context, args PostDetailArgs) (*Reply, error) {
	detail, err := s.fetchThread(ctx, args.URL)
	if err != nil {
		return nil, err
	}
	return &Reply{Message: "文章詳細內容", Payload: detail}, nil
}

// SummarizePosts は複数の記事を順に取得し、摘要レポートを返す。
// 個々の記事の失敗はレポート内に記載し、全体は成功として返す。
func (s *Service) SummarizePosts(ctx context.Context, args SummarizeArgs) (*Reply, error) {
	if args.Posts == nil {
		return nil, model.NewMissingArgumentError("posts")
	}
	summaryType := args.SummaryType
	if summaryType == "" {
		summaryType = SummaryBrief
	}
	if summaryType != SummaryBrief && summaryType != SummaryDetailed {
		return nil, model.NewInvalidArgumentError(fmt.Sprintf("無效的摘要類型: %s (可用: brief, detailed)", args.SummaryType))
	}

	sections := make([]string, 0, len(args.Posts))
	for _, post := range args.Posts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		section, err := s.summarizeOne(ctx, post, summaryType)
		if err != nil {
			s.logger.Warn("記事の摘要に失敗しました",
				slog.String("url", post.URL),
				slog.String("error", err.Error()),
			)
			section = fmt.Sprintf("%s: 無法取得詳細資訊 (%s)", post.Title, UserMessage(err))
		}
		sections = append(sections, section)
	}

	return &Reply{Message: "文章摘要報告:\n\n" + strings.Join(sections, "\n---\n")}, nil
}

// ListPopularBoards は人気看板の一覧を返す。
func (s *Service) ListPopularBoards(_ context.Context) (*Reply, error) {
	boards := s.directory.Popular()
	lines := make([]string, 0, len(boards))
	for _, b := range boards {
		lines = append(lines, fmt.Sprintf("• %s: %s", b.Name, b.Description))
	}
	return &Reply{Message: "PTT 熱門看板清單:\n\n" + strings.Join(lines, "\n")}, nil
}

func (s *Service) summarizeOne(ctx context.Context, post PostRef, summaryType string) (string, error) {
	detail, err := s.fetchThread(ctx, post.URL)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "標題: %s\n", post.Title)
	if summaryType == SummaryDetailed {
		fmt.Fprintf(&b, "內容摘要: %s\n", analytics.Summarize(detail.Content))
		fmt.Fprintf(&b, "推文統計: 共 %d 則回應\n", detail.CommentCount)
		fmt.Fprintf(&b, "主要觀點: %s\n", analytics.TallyOpinions(detail.Comments))
	} else {
		fmt.Fprintf(&b, "回應數: %d\n", detail.CommentCount)
		fmt.Fprintf(&b, "熱門度: %s\n", analytics.ClassifyPopularity(detail.Comments))
	}
	return b.String(), nil
}

// fetchThread は記事URLを検証してから取得する。
func (s *Service) fetchThread(ctx context.Context, articleURL string) (*model.ThreadDetail, error) {
	articleURL = strings.TrimSpace(articleURL)
	if articleURL == "" {
		return nil, model.NewMissingArgumentError("url")
	}
	if err := s.guard.ValidateArticleURL(articleURL); err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}
	return s.threads.FetchThread(ctx, articleURL)
}

// ensureBoard は看板が存在しない場合にエラーを返す。
func (s *Service) ensureBoard(ctx context.Context, board string) error {
	if !s.boards.IsValid(ctx, board) {
		return model.NewInvalidBoardError(board)
	}
	return nil
}

// validateDates は日付引数の形式と前後関係を検証する。
func (s *Service) validateDates(from, to string) error {
	var fromT, toT = dateutil.Epoch, dateutil.Epoch
	if from != "" {
		t, ok := s.dates.ParseFlexible(from)
		if !ok {
			return model.NewInvalidDateError("dateFrom", from)
		}
		fromT = t
	}
	if to != "" {
		t, ok := s.dates.ParseFlexible(to)
		if !ok {
			return model.NewInvalidDateError("dateTo", to)
		}
		toT = t
	}
	if from != "" && to != "" && fromT.After(toT) {
		return model.NewInvalidArgumentError(fmt.Sprintf("起始日期 (%s) 不能晚於結束日期 (%s)", from, to))
	}
	return nil
}

// validatePushRange は推文数の下限・上限を検証する。
func validatePushRange(minPush, maxPush *int) error {
	if minPush != nil && *minPush < MinPushCountFloor {
		return model.NewInvalidArgumentError(fmt.Sprintf("無效的最小推文數: %d. 必須 >= %d", *minPush, MinPushCountFloor))
	}
	if maxPush != nil && *maxPush > MaxPushCountCeil {
		return model.NewInvalidArgumentError(fmt.Sprintf("無效的最大推文數: %d. 必須 <= %d", *maxPush, MaxPushCountCeil))
	}
	if minPush != nil && maxPush != nil && *minPush > *maxPush {
		return model.NewInvalidArgumentError(fmt.Sprintf("最小推文數 (%d) 不能大於最大推文數 (%d)", *minPush, *maxPush))
	}
	return nil
}

// choosePolicy は pageLimit / limit の指定から停止ポリシーを決める。
//
//	pageLimit のみ  → PagePolicy(pageLimit)
//	limit のみ      → LegacyItemPolicy(limit)
//	両方            → ItemPolicy(limit, pageLimit)
//	どちらもなし    → PagePolicy(DefaultPageLimit)
func choosePolicy(pageLimit, limit *int) pagination.StopPolicy {
	switch {
	case pageLimit != nil && limit != nil:
		return pagination.ItemPolicy(*limit, *pageLimit)
	case pageLimit != nil:
		return pagination.PagePolicy(*pageLimit)
	case limit != nil:
		return pagination.LegacyItemPolicy(*limit)
	default:
		return pagination.PagePolicy(DefaultPageLimit)
	}
}

// searchQuery は検索種別をPTT検索構文に変換する。
func searchQuery(searchType, query string) string {
	if searchType == SearchTypeAuthor {
		return "author:" + query
	}
	return query
}

type filterInfo struct {
	dateFrom  string
	dateTo    string
	onlyToday bool
	keyword   string
	minPush   *int
	maxPush   *int
}

// filterSummary は応答メッセージに付ける篩選条件の説明を返す。条件がなければ空文字列。
func filterSummary(f filterInfo) string {
	var parts []string
	switch {
	case f.dateFrom != "" && f.dateTo != "":
		parts = append(parts, fmt.Sprintf("日期範圍 %s 到 %s", f.dateFrom, f.dateTo))
	case f.dateFrom != "":
		parts = append(parts, fmt.Sprintf("%s 之後", f.dateFrom))
	case f.dateTo != "":
		parts = append(parts, fmt.Sprintf("%s 之前", f.dateTo))
	case f.onlyToday:
		parts = append(parts, "僅限今日")
	}
	if f.keyword != "" {
		parts = append(parts, fmt.Sprintf("標題包含 '%s'", f.keyword))
	}
	if f.minPush != nil {
		parts = append(parts, fmt.Sprintf("推文數 >= %d", *f.minPush))
	}
	if f.maxPush != nil {
		parts = append(parts, fmt.Sprintf("推文數 <= %d", *f.maxPush))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (篩選條件: " + strings.Join(parts, ", ") + ")"
}
