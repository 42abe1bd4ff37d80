// Package mcpserver はツールディスパッチャをMCP（Model Context Protocol）サーバとして公開する。
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hitoshi/pttman/internal/tool"
)

// サーバ識別情報。
const (
	ServerName    = "ptt-board-scraper"
	ServerVersion = "2.0.0"
)

// Caller はツール呼び出しのインターフェース。tool.Dispatcher が実装する。
type Caller interface {
	Call(ctx context.Context, name string, raw json.RawMessage) tool.Envelope
}

// New はToolsの全ツールを登録したMCPサーバを生成する。
func New(caller Caller) *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, t := range Tools() {
		s.AddTool(t, Handler(caller, t.Name))
	}
	return s
}

// Handler は指定ツールをCallerに委譲するハンドラを返す。
// 失敗もエンベロープ（IsError=true）として返し、プロトコルエラーにはしない。
func Handler(caller Caller, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := json.Marshal(req.GetRawArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("錯誤: 參數格式錯誤: %v", err)), nil
		}
		return toResult(caller.Call(ctx, name, raw)), nil
	}
}

func toResult(env tool.Envelope) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(env.Content))
	for _, c := range env.Content {
		content = append(content, mcp.NewTextContent(c.Text))
	}
	return &mcp.CallToolResult{Content: content, IsError: env.IsError}
}

// ServeStdio は in/out 上でMCPサーバを実行する。ctxがキャンセルされるまでブロックする。
// stdoutはプロトコル専用のため、ライブラリのエラーログはloggerに流す。
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger *slog.Logger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	logger.Info("MCPサーバを起動しました",
		slog.String("name", ServerName),
		slog.String("version", ServerVersion),
		slog.String("transport", "stdio"),
	)
	return stdio.Listen(ctx, in, out)
}
