package model

import "fmt"

// エラーカテゴリ。
const (
	CategoryValidation = "validation"
	CategoryTransport  = "transport"
	CategorySystem     = "system"
)

// ToolError はツール操作の統一エラーフォーマットを表す。
// Message は利用者に返すテキスト（繁体字中国語）で、エンベロープにそのまま載る。
type ToolError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, transport, system
	Action   string // 利用者向け対処方法（空の場合あり）
}

// Error はerrorインターフェースを実装する。
func (e *ToolError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidBoard    = "INVALID_BOARD"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeMissingArgument = "MISSING_ARGUMENT"
	ErrCodeInvalidDate     = "INVALID_DATE"
	ErrCodeLookbackLimit   = "LOOKBACK_LIMIT"
	ErrCodeInvalidCursor   = "INVALID_CURSOR"
	ErrCodeInvalidURL      = "INVALID_URL"
	ErrCodeUnknownTool     = "UNKNOWN_TOOL"
	ErrCodeFetchFailed     = "FETCH_FAILED"
	ErrCodeInternal        = "INTERNAL"
)

// NewInvalidBoardError は存在しない看板名のエラーを生成する。
func NewInvalidBoardError(board string) *ToolError {
	return &ToolError{
		Code:     ErrCodeInvalidBoard,
		Message:  fmt.Sprintf("無效的看板名稱: %s", board),
		Category: CategoryValidation,
		Action:   "請使用 list_popular_boards 查看可用的看板。",
	}
}

// NewInvalidArgumentError は引数の値が不正な場合のエラーを生成する。
func NewInvalidArgumentError(msg string) *ToolError {
	return &ToolError{
		Code:     ErrCodeInvalidArgument,
		Message:  msg,
		Category: CategoryValidation,
	}
}

// NewMissingArgumentError は必須引数が指定されていない場合のエラーを生成する。
func NewMissingArgumentError(name string) *ToolError {
	return &ToolError{
		Code:     ErrCodeMissingArgument,
		Message:  fmt.Sprintf("缺少必要參數: %s", name),
		Category: CategoryValidation,
	}
}

// NewInvalidDateError は日付文字列を解釈できない場合のエラーを生成する。
func NewInvalidDateError(field, value string) *ToolError {
	return &ToolError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無效的日期格式 %s: %s", field, value),
		Category: CategoryValidation,
		Action:   "支援格式: today、yesterday、M/D、YYYY-MM-DD。",
	}
}

// NewLookbackLimitError は一覧走査の遡及上限を超えた場合のエラーを生成する。
func NewLookbackLimitError(days int) *ToolError {
	return &ToolError{
		Code:     ErrCodeLookbackLimit,
		Message:  fmt.Sprintf("list_posts 僅支援查詢最近 %d 天內的文章，較早的文章請改用 search_posts 搜尋。", days),
		Category: CategoryValidation,
		Action:   "請改用 search_posts 並指定 dateFrom/dateTo。",
	}
}

// NewInvalidCursorError はカーソル形式が不正な場合のエラーを生成する。
func NewInvalidCursorError(cursor string) *ToolError {
	return &ToolError{
		Code:     ErrCodeInvalidCursor,
		Message:  fmt.Sprintf("無效的分頁游標: %s", cursor),
		Category: CategoryValidation,
		Action:   "請使用上一次回應中的 nextCursor。",
	}
}

// NewInvalidURLError は取得対象外のURLが指定された場合のエラーを生成する。
func NewInvalidURLError(reason string) *ToolError {
	return &ToolError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無效的文章網址: %s", reason),
		Category: CategoryValidation,
		Action:   "請提供 PTT 文章網址，例如 https://www.ptt.cc/bbs/Stock/M.1700000000.A.123.html。",
	}
}

// NewUnknownToolError は未登録のツール名が呼ばれた場合のエラーを生成する。
func NewUnknownToolError(name string) *ToolError {
	return &ToolError{
		Code:     ErrCodeUnknownTool,
		Message:  fmt.Sprintf("未知的工具: %s", name),
		Category: CategoryValidation,
	}
}

// NewFetchFailedError はページ取得に失敗した場合のエラーを生成する。
func NewFetchFailedError(reason string) *ToolError {
	return &ToolError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("取得 PTT 資料失敗: %s", reason),
		Category: CategoryTransport,
		Action:   "請稍後再試。",
	}
}

// NewInternalError は想定外の内部エラーを生成する。
func NewInternalError(reason string) *ToolError {
	return &ToolError{
		Code:     ErrCodeInternal,
		Message:  fmt.Sprintf("內部錯誤: %s", reason),
		Category: CategorySystem,
	}
}
