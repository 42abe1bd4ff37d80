package ptt

import (
	"strconv"
	"strings"
)

// ExplodedPushCount は推文欄が「爆」のときの値。
const ExplodedPushCount = 100

// BooedPushCount は推文欄が "X" で始まるとき（噓が多い投稿）の値。
const BooedPushCount = -10

// DecodePushCount は一覧の推文欄文字列を整数に変換する。
//
//	""     → 0
//	"爆"   → 100
//	"X1"   → -10（数字部分は見ない）
//	"42"   → 42
//	"abc"  → 0
//
// 先頭の符号付き数字列のみを読み、数字が無い・桁あふれの場合は 0 を返す。
func DecodePushCount(text string) int {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return 0
	case text == "爆":
		return ExplodedPushCount
	case strings.HasPrefix(text, "X"):
		return BooedPushCount
	}

	end := 0
	if text[0] == '+' || text[0] == '-' {
		end = 1
	}
	digitsStart := end
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	n, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0
	}
	return n
}
