package ptt

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound はページが存在しない（HTTP 404）ことを表す。
// 検索モードのページ走査では結果の終端として扱われる。
var ErrNotFound = errors.New("page not found")

// ErrUnavailable はPTT側が一時的に応答できない（429/5xx）ことを表す。
var ErrUnavailable = errors.New("source temporarily unavailable")

// StatusClass はHTTPステータスコードの分類。
type StatusClass int

const (
	// StatusOK は取得成功（200）。
	StatusOK StatusClass = iota
	// StatusNotFound はページ不在（404/410）。
	StatusNotFound
	// StatusUnavailable は一時的な失敗（429/5xx）。
	StatusUnavailable
	// StatusOther はその他のステータス。
	StatusOther
)

// ClassifyHTTPStatus はHTTPステータスコードを分類する。
func ClassifyHTTPStatus(statusCode int) StatusClass {
	switch {
	case statusCode == http.StatusOK:
		return StatusOK
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return StatusNotFound
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return StatusUnavailable
	default:
		return StatusOther
	}
}

// FetchError はページ取得の失敗を表す。
// StatusCode が 0 の場合はネットワーク層の失敗。
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("取得頁面失敗: HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("取得頁面失敗: %v", e.Err)
}

// Unwrap は内包するエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// newStatusError はステータスコードからFetchErrorを生成する。
func newStatusError(pageURL string, statusCode int) *FetchError {
	var cause error
	switch ClassifyHTTPStatus(statusCode) {
	case StatusNotFound:
		cause = ErrNotFound
	case StatusUnavailable:
		cause = ErrUnavailable
	default:
		cause = fmt.Errorf("unexpected status %d", statusCode)
	}
	return &FetchError{URL: pageURL, StatusCode: statusCode, Err: cause}
}
