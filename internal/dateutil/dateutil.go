// Package dateutil は PTT の日付表記を扱う日付エンジンを提供する。
//
// PTT の一覧ページは年を含まない "M/D" 形式のみを表示するため、
// 解釈時は常に「現在の年」を補う。年をまたぐ期間では前年末の投稿が
// 未来日付として扱われる点に注意（既知の制約）。
package dateutil

import (
	"regexp"
	"strconv"
	"time"
)

// Epoch は日付を含まない文字列を ParseNative した際に返す番兵値。
var Epoch = time.Unix(0, 0).UTC()

var (
	slashDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
	isoDatePattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	nativeDateSearch = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)

	rangeLowerSentinel = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeUpperSentinel = time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Engine は現在時刻とタイムゾーンを注入可能な日付エンジン。
// ゼロ値は使用できない。New で生成すること。
type Engine struct {
	loc *time.Location
	now func() time.Time
}

// Option は Engine の生成オプション。
type Option func(*Engine)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New は指定タイムゾーンで日付を解釈する Engine を生成する。
// loc が nil の場合は time.Local を使用する。
func New(loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now はエンジンのタイムゾーンでの現在時刻を返す。
func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

// Today は今日の 00:00:00 を返す。
func (e *Engine) Today() time.Time {
	n := e.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, e.loc)
}

// ParseFlexible は利用者が指定した日付文字列を解釈する。
// 受け付ける形式は "today"、"yesterday"（小文字のみ）、"M/D"（現在の年を補う）、"YYYY-MM-DD"。
// 範囲外の月日は time.Date の正規化により翌月・翌年へ繰り越される。
// 解釈できない場合は ok=false を返す。
func (e *Engine) ParseFlexible(text string) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	switch text {
	case "today":
		return e.Today(), true
	case "yesterday":
		return e.Today().AddDate(0, 0, -1), true
	}

	if m := slashDatePattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return time.Date(e.Now().Year(), time.Month(month), day, 0, 0, 0, 0, e.loc), true
	}

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, e.loc), true
	}

	return time.Time{}, false
}

// ParseNative は PTT の日付欄（" 5/25" など）を解釈する。
// 文字列中の最初の M/D を現在の年の 23:59:59 として返す。
// M/D が見つからない場合は Epoch を返す。
// "13/40" のような範囲外の値は繰り越された日付になる。
func (e *Engine) ParseNative(text string) time.Time {
	m := nativeDateSearch.FindStringSubmatch(text)
	if m == nil {
		return Epoch
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	return time.Date(e.Now().Year(), time.Month(month), day, 23, 59, 59, 0, e.loc)
}

// InRange は投稿日付が日付条件を満たすかを判定する。
//
// from または to が指定されている場合は範囲モードとなり onlyToday は無視される。
// 未指定側は 1900-01-01 / 2100-12-31 を境界とし、to は当日 23:59:59.999 まで含む。
// 指定された境界を解釈できない場合は false を返す。
// 範囲モードでない場合、onlyToday が nil または true なら今日の投稿のみ true、
// false なら常に true を返す。
func (e *Engine) InRange(itemDate, from, to string, onlyToday *bool) bool {
	if from != "" || to != "" {
		lower := rangeLowerSentinel
		if from != "" {
			t, ok := e.ParseFlexible(from)
			if !ok {
				return false
			}
			lower = t
		}
		upper := rangeUpperSentinel
		if to != "" {
			t, ok := e.ParseFlexible(to)
			if !ok {
				return false
			}
			upper = t
		}
		upper = time.Date(upper.Year(), upper.Month(), upper.Day(), 23, 59, 59, 999_000_000, upper.Location())

		d := e.ParseNative(itemDate)
		return !d.Before(lower) && !d.After(upper)
	}

	if onlyToday == nil || *onlyToday {
		return sameDay(e.ParseNative(itemDate), e.Now())
	}
	return true
}

// TooFarBack は from が今日から days 日より前かを判定する。
// from を解釈できない場合は false を返す（形式エラーは別途検証する）。
func (e *Engine) TooFarBack(from string, days int) bool {
	t, ok := e.ParseFlexible(from)
	if !ok {
		return false
	}
	return t.Before(e.Today().AddDate(0, 0, -days))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
