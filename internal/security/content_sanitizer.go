package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTML断片をプレーンテキストに変換するインターフェースを定義する。
// 記事本文と推文をツール応答に載せる前に使用される。
type ContentSanitizerService interface {
	// PlainText は全てのタグを除去し、エンティティを復元したテキストを返す。
	// script/style要素は中身ごと除去される。
	PlainText(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフに処理する。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// PlainText はHTML断片をプレーンテキストに変換する。
// 前後の空白は除去する。空文字列の入力には空文字列を返す。
func (s *contentSanitizer) PlainText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(rawHTML)))
}
