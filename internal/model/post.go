// Package model はドメインモデルを定義する。
package model

// RawItem は一覧ページ・検索ページの1行から抽出した未加工の投稿情報。
// PushText は推文数欄の文字列をそのまま保持する（"爆"、"X1"、"12"、""）。
type RawItem struct {
	Title    string
	Author   string
	DateText string
	URL      string
	PushText string
}

// ListItem はフィルタ済み結果として返す1件の投稿。
// Date は PTT 形式（"5/25" など）のまま保持する。生成後は変更しない。
type ListItem struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	URL       string `json:"url"`
	PushCount int    `json:"pushCount"`
}

// ListPage は取得した1ページ分の一覧を表す。
// PrevURL/NextURL は「‹ 上頁」「下頁 ›」リンクの絶対URL。存在しなければ空文字列。
type ListPage struct {
	Items   []RawItem
	PrevURL string
	NextURL string
}

// DateRangeFilter は日付範囲の指定を表す。
// From/To のどちらかが指定されている場合は範囲モードとなり、OnlyToday は無視される。
// OnlyToday が nil の場合は「今日のみ」として扱う。
type DateRangeFilter struct {
	From      string
	To        string
	OnlyToday *bool
}

// RangeMode は範囲モードかどうかを返す。
func (f DateRangeFilter) RangeMode() bool {
	return f.From != "" || f.To != ""
}

// PaginationCursor はページング走査の結果状態を表す。
// HasMorePages が false の場合、NextCursor は必ず nil となる。
type PaginationCursor struct {
	Cursor         string  `json:"cursor"`
	PagesRetrieved int     `json:"pagesRetrieved"`
	HasMorePages   bool    `json:"hasMorePages"`
	NextCursor     *string `json:"nextCursor"`
}

// Board は看板（掲示板）の名前と説明。
type Board struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}
