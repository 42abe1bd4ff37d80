// Package analytics はスレッド本文と推文から軽量な分析結果を算出する。
// すべての関数は純粋関数で、ネットワークアクセスを行わない。
package analytics

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/pttman/internal/model"
)

const (
	// NoContent は本文が空の場合の要約。
	NoContent = "無內容"
	// NoComments は推文が無い場合の集計結果。
	NoComments = "無推文"

	minFragmentRunes = 10
	maxSummaryRunes  = 100
	summaryFragments = 2
)

// Popularity は推文の構成から判定した人気度ラベル。
type Popularity string

const (
	PopularityCold          Popularity = "冷門"
	PopularityHotPositive   Popularity = "熱門正面"
	PopularityModerate      Popularity = "中等熱度"
	PopularityControversial Popularity = "爭議性高"
	PopularityNormal        Popularity = "普通"
)

// Summarize は本文から短い要約を生成する。
// 句読点（. ! ? 。 ！ ？）と改行で分割し、前後の空白を除いて 10 文字以下の断片を捨て、
// 先頭 2 件を「。」で連結する。100 文字を超える場合は 100 文字で切り詰め "..." を付ける。
// 文字数はルーン単位で数える。
func Summarize(body string) string {
	if body == "" {
		return NoContent
	}

	fragments := strings.FieldsFunc(body, isSentenceBreak)
	kept := make([]string, 0, summaryFragments)
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if utf8.RuneCountInString(f) <= minFragmentRunes {
			continue
		}
		kept = append(kept, f)
		if len(kept) == summaryFragments {
			break
		}
	}

	summary := strings.Join(kept, "。")
	if utf8.RuneCountInString(summary) > maxSummaryRunes {
		summary = string([]rune(summary)[:maxSummaryRunes]) + "..."
	}
	return summary
}

func isSentenceBreak(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '\n', '\r':
		return true
	}
	return false
}

// Tally は推文種別ごとの件数。
type Tally struct {
	Push    int
	Boo     int
	Neutral int
}

// CountComments は推文を種別ごとに数える。推・噓・→ 以外のタグは無視する。
func CountComments(comments []model.Comment) Tally {
	var t Tally
	for _, c := range comments {
		switch c.Category {
		case model.CommentPush:
			t.Push++
		case model.CommentBoo:
			t.Boo++
		case model.CommentNeutral:
			t.Neutral++
		}
	}
	return t
}

// TallyOpinions は推文の集計を "推 N / 噓 N / 中性 N" 形式で返す。
// 推文が空の場合は NoComments を返す。
func TallyOpinions(comments []model.Comment) string {
	if len(comments) == 0 {
		return NoComments
	}
	t := CountComments(comments)
	return fmt.Sprintf("推 %d / 噓 %d / 中性 %d", t.Push, t.Boo, t.Neutral)
}

// ClassifyPopularity は推文の件数と推の比率から人気度を判定する。
// 件数は種別を問わない推文総数、比率は 推 / 総数。
// 規則は上から順に評価し、境界値（ちょうど 50 件、比率 0.7 など）は下位の規則へ落ちる。
func ClassifyPopularity(comments []model.Comment) Popularity {
	if len(comments) == 0 {
		return PopularityCold
	}

	total := len(comments)
	ratio := float64(CountComments(comments).Push) / float64(total)

	switch {
	case total > 50 && ratio > 0.7:
		return PopularityHotPositive
	case total > 30 && ratio > 0.5:
		return PopularityModerate
	case total > 50 && ratio < 0.3:
		return PopularityControversial
	case total > 10:
		return PopularityNormal
	default:
		return PopularityCold
	}
}
