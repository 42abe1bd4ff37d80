package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// 一覧カーソルはページURLの後ろに、検索カーソルはページ番号の後ろに、
// そのページで既に返した一致件数を付ける（例: ".../index3.html#skip=2"、"4:2"）。
const (
	listingSkipMarker = "#skip="
	searchSkipMarker  = ":"
)

var errMalformedCursor = errors.New("カーソルの形式が不正です")

// ParseListingCursor は一覧カーソルをページURLとスキップ件数に分解する。
func ParseListingCursor(cursor string) (string, int, error) {
	pageURL, rawSkip, found := strings.Cut(cursor, listingSkipMarker)
	if pageURL == "" {
		return "", 0, errMalformedCursor
	}
	if !found {
		return pageURL, 0, nil
	}
	skip, err := parsePositive(rawSkip)
	if err != nil {
		return "", 0, err
	}
	return pageURL, skip, nil
}

// ParseSearchCursor は検索カーソルをページ番号とスキップ件数に分解する。
func ParseSearchCursor(cursor string) (int, int, error) {
	rawPage, rawSkip, found := strings.Cut(cursor, searchSkipMarker)
	page, err := parsePositive(rawPage)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return page, 0, nil
	}
	skip, err := parsePositive(rawSkip)
	if err != nil {
		return 0, 0, err
	}
	return page, skip, nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", errMalformedCursor, s)
	}
	return n, nil
}

func (p position) label(mode Mode) string {
	if mode == ModeSearch {
		if p.skip > 0 {
			return strconv.Itoa(p.page) + searchSkipMarker + strconv.Itoa(p.skip)
		}
		return strconv.Itoa(p.page)
	}
	if p.skip > 0 {
		return p.url + listingSkipMarker + strconv.Itoa(p.skip)
	}
	return p.url
}
