package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitoshi/pttman/internal/model"
)

// 引数の既定値と上下限。
const (
	DefaultBoard       = "Stock"
	DefaultPageLimit   = 3
	MaxPageLimit       = 10
	MaxListLimit       = 200
	MaxSearchLimit     = 100
	DefaultThreadLimit = 30
	MinPushCountFloor  = -100
	MaxPushCountCeil   = 200
)

// 検索種別。
const (
	SearchTypeKeyword = "keyword"
	SearchTypeTitle   = "title"
	SearchTypeAuthor  = "author"
)

// 摘要種別。
const (
	SummaryBrief    = "brief"
	SummaryDetailed = "detailed"
)

// ListPostsArgs は list_posts の引数。
type ListPostsArgs struct {
	Board        string `json:"board"`
	PageLimit    *int   `json:"pageLimit"`
	Limit        *int   `json:"limit"`
	MinPushCount *int   `json:"minPushCount"`
	MaxPushCount *int   `json:"maxPushCount"`
	TitleKeyword string `json:"titleKeyword"`
	DateFrom     string `json:"dateFrom"`
	DateTo       string `json:"dateTo"`
	OnlyToday    *bool  `json:"onlyToday"`
	Cursor       string `json:"cursor"`
}

// PostDetailArgs は get_post_detail の引数。
type PostDetailArgs struct {
	URL string `json:"url"`
}

// SearchPostsArgs は search_posts の引数。
type SearchPostsArgs struct {
	Board      string `json:"board"`
	Query      string `json:"query"`
	SearchType string `json:"searchType"`
	PageLimit  *int   `json:"pageLimit"`
	Limit      *int   `json:"limit"`
	OnlyToday  *bool  `json:"onlyToday"`
	DateFrom   string `json:"dateFrom"`
	DateTo     string `json:"dateTo"`
	Cursor     string `json:"cursor"`
}

// SearchThreadArgs は search_thread_posts の引数。
type SearchThreadArgs struct {
	Board string `json:"board"`
	Title string `json:"title"`
	Limit *int   `json:"limit"`
}

// PostRef は摘要対象の投稿。
type PostRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SummarizeArgs は summarize_posts の引数。
type SummarizeArgs struct {
	Posts       []PostRef `json:"posts"`
	SummaryType string    `json:"summaryType"`
}

// decodeArgs はJSON引数をTにデコードする。空またはnullの場合はゼロ値を返す。
func decodeArgs[T any](raw json.RawMessage) (T, error) {
	var args T
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, model.NewInvalidArgumentError(fmt.Sprintf("參數格式錯誤: %v", err))
	}
	return args, nil
}

// boardOrDefault は看板名の前後空白を除き、空なら既定値を返す。
func boardOrDefault(board string) string {
	if b := strings.TrimSpace(board); b != "" {
		return b
	}
	return DefaultBoard
}

// checkRange は値が [lo, hi] に収まるかを検証する。
func checkRange(name string, v *int, lo, hi int) error {
	if v == nil {
		return nil
	}
	if *v < lo || *v > hi {
		return model.NewInvalidArgumentError(fmt.Sprintf("%s 必須介於 %d 到 %d 之間: %d", name, lo, hi, *v))
	}
	return nil
}
