package pagination

import (
	"strings"

	"github.com/hitoshi/pttman/internal/dateutil"
	"github.com/hitoshi/pttman/internal/model"
)

// Criteria は投稿の絞り込み条件。
// 評価順は 日付範囲 → タイトルキーワード → 推文数下限 → 推文数上限 で固定。
type Criteria struct {
	Date         model.DateRangeFilter
	TitleKeyword string
	MinPush      *int
	MaxPush      *int
}

// Predicate は投稿を残すかどうかを判定する。
type Predicate func(item model.ListItem) bool

// Predicates は評価順に並んだ判定関数を返す。
// 範囲指定がなく onlyToday=false の場合、日付の判定は含めない。
func (c Criteria) Predicates(dates *dateutil.Engine) []Predicate {
	var preds []Predicate
	if c.Date.RangeMode() || c.Date.OnlyToday == nil || *c.Date.OnlyToday {
		preds = append(preds, func(item model.ListItem) bool {
			return dates.InRange(item.Date, c.Date.From, c.Date.To, c.Date.OnlyToday)
		})
	}
	if c.TitleKeyword != "" {
		kw := strings.ToLower(c.TitleKeyword)
		preds = append(preds, func(item model.ListItem) bool {
			return strings.Contains(strings.ToLower(item.Title), kw)
		})
	}
	if c.MinPush != nil {
		lo := *c.MinPush
		preds = append(preds, func(item model.ListItem) bool {
			return item.PushCount >= lo
		})
	}
	if c.MaxPush != nil {
		hi := *c.MaxPush
		preds = append(preds, func(item model.ListItem) bool {
			return item.PushCount <= hi
		})
	}
	return preds
}

// Match はすべての判定関数を満たすかを返す。
func Match(preds []Predicate, item model.ListItem) bool {
	for _, p := range preds {
		if !p(item) {
			return false
		}
	}
	return true
}
