package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hitoshi/pttman/internal/middleware"
	"github.com/hitoshi/pttman/internal/model"
	"github.com/hitoshi/pttman/internal/tool"
)

// maxRequestBodyBytes はツール呼び出しリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// ToolCaller はツールハンドラーが必要とするディスパッチャーのインターフェース。
type ToolCaller interface {
	// Call は名前と生のJSON引数でツールを実行し、エンベロープを返す。
	Call(ctx context.Context, name string, raw json.RawMessage) tool.Envelope
	// Has は指定名のツールが登録済みかを返す。
	Has(name string) bool
}

// ToolHandler はツール操作をHTTPで公開するハンドラー。
type ToolHandler struct {
	caller ToolCaller
	tools  []mcp.Tool
}

// NewToolHandler はToolHandlerを生成する。
func NewToolHandler(caller ToolCaller, tools []mcp.Tool) *ToolHandler {
	return &ToolHandler{caller: caller, tools: tools}
}

type toolListResponse struct {
	Tools []mcp.Tool `json:"tools"`
}

// ListTools はツール定義（名前・説明・入力スキーマ）の一覧を返す。
// GET /api/tools
func (h *ToolHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	tools := h.tools
	if tools == nil {
		tools = []mcp.Tool{}
	}
	writeJSON(w, http.StatusOK, toolListResponse{Tools: tools})
}

// CallTool はJSONボディを引数としてツールを実行し、エンベロープをそのまま返す。
// POST /api/tools/{name}
//
// 成功・失敗のエンベロープはいずれも200で返す。未登録のツールは404、JSONとして解釈できないボディは400。
func (h *ToolHandler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
				model.NewInvalidArgumentError("請求內容過大"))
			return
		}
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidArgumentError("無法讀取請求內容"))
		return
	}

	var raw json.RawMessage
	if len(body) > 0 {
		if !json.Valid(body) {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidArgumentError("請求內容不是有效的 JSON"))
			return
		}
		raw = body
	}

	status := http.StatusOK
	if !h.caller.Has(name) {
		status = http.StatusNotFound
	}

	writeJSON(w, status, h.caller.Call(r.Context(), name, raw))
}

// Health はプロセスの稼働確認用エンドポイント。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
