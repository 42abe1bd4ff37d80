package model

// 推文の種別タグ。
const (
	CommentPush    = "推"
	CommentBoo     = "噓"
	CommentNeutral = "→"
)

// Comment はスレッドに付いた1件の推文。
// Category は推・噓・→ のいずれか。それ以外の値はソース上のタグをそのまま保持する。
type Comment struct {
	Category string `json:"type"`
	Author   string `json:"author"`
	Content  string `json:"content"`
	Time     string `json:"time"`
}

// ThreadDetail はスレッド本文と推文一覧。
type ThreadDetail struct {
	URL          string    `json:"url"`
	Content      string    `json:"content"`
	Comments     []Comment `json:"comments"`
	CommentCount int       `json:"commentCount"`
}
