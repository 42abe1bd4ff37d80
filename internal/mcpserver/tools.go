package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hitoshi/pttman/internal/tool"
)

const (
	boardDesc    = "看板名稱 (例如: Stock, Baseball, Gossiping, HatePolitics, Tech_Job, Movie, NBA)"
	dateFromDesc = "起始日期過濾 (可選, 格式: 'M/DD' 如 '5/25'、'YYYY-MM-DD' 如 '2025-05-25'、today、yesterday)"
	dateToDesc   = "結束日期過濾 (可選, 格式同 dateFrom)"
)

// Tools は公開する6ツールの定義（名前・説明・入力スキーマ）を返す。
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(tool.NameListPosts,
			mcp.WithDescription("列出指定 PTT 看板的文章列表 (由新到舊，可依推文數、標題、日期篩選並以 cursor 續查)"),
			mcp.WithString("board", mcp.Description(boardDesc), mcp.DefaultString(tool.DefaultBoard)),
			mcp.WithNumber("pageLimit",
				mcp.Description("最多讀取的頁數 (預設: 3, 範圍: 1-10)"),
				mcp.Min(1), mcp.Max(tool.MaxPageLimit),
			),
			mcp.WithNumber("limit",
				mcp.Description("希望取得的文章數量 (範圍: 1-200)。與 pageLimit 同時指定時，以兩者先達到者為準"),
				mcp.Min(1), mcp.Max(tool.MaxListLimit),
			),
			mcp.WithNumber("minPushCount",
				mcp.Description("最小推文數過濾 (可選, 例如: 10 表示只返回推文數 >= 10 的文章, 最小 -100)"),
				mcp.Min(tool.MinPushCountFloor),
			),
			mcp.WithNumber("maxPushCount",
				mcp.Description("最大推文數過濾 (可選, 例如: 50 表示只返回推文數 <= 50 的文章, 最大 200)"),
				mcp.Max(tool.MaxPushCountCeil),
			),
			mcp.WithString("titleKeyword", mcp.Description("標題關鍵字過濾 (可選, 不分大小寫)")),
			mcp.WithString("dateFrom", mcp.Description(dateFromDesc+"。最多回溯 14 天，更早請使用 search_posts")),
			mcp.WithString("dateTo", mcp.Description(dateToDesc)),
			mcp.WithBoolean("onlyToday", mcp.Description("只顯示今天的文章 (預設: false)"), mcp.DefaultBool(false)),
			mcp.WithString("cursor", mcp.Description("上一次回應的 pagination.nextCursor，用於續查更舊的頁面")),
		),
		mcp.NewTool(tool.NameGetPostDetail,
			mcp.WithDescription("取得特定文章的詳細內容包含推文"),
			mcp.WithString("url", mcp.Required(), mcp.Description("文章的 URL (必須為 PTT 文章網址)")),
		),
		mcp.NewTool(tool.NameSearchThreadPosts,
			mcp.WithDescription("搜尋指定標題的所有相關文章 (同標題文章)"),
			mcp.WithString("board", mcp.Description(boardDesc), mcp.DefaultString(tool.DefaultBoard)),
			mcp.WithString("title", mcp.Required(), mcp.Description("要搜尋的文章標題 (例如: '[新聞] 台積電Q4財報亮眼')")),
			mcp.WithNumber("limit",
				mcp.Description("限制返回文章數量 (預設: 30, 最大: 100)"),
				mcp.DefaultNumber(tool.DefaultThreadLimit), mcp.Min(1), mcp.Max(tool.MaxSearchLimit),
			),
		),
		mcp.NewTool(tool.NameSearchPosts,
			mcp.WithDescription("在指定看板搜尋文章 (支援多種搜尋類型)"),
			mcp.WithString("board", mcp.Description(boardDesc), mcp.DefaultString(tool.DefaultBoard)),
			mcp.WithString("query", mcp.Required(), mcp.Description("搜尋關鍵字或片語")),
			mcp.WithString("searchType",
				mcp.Description("搜尋類型: keyword(關鍵字), title(標題包含關鍵字), author(作者)"),
				mcp.Enum(tool.SearchTypeKeyword, tool.SearchTypeTitle, tool.SearchTypeAuthor),
				mcp.DefaultString(tool.SearchTypeKeyword),
			),
			mcp.WithNumber("pageLimit",
				mcp.Description("最多讀取的搜尋結果頁數 (預設: 3, 範圍: 1-10)"),
				mcp.Min(1), mcp.Max(tool.MaxPageLimit),
			),
			mcp.WithNumber("limit",
				mcp.Description("希望取得的文章數量 (範圍: 1-100)"),
				mcp.Min(1), mcp.Max(tool.MaxSearchLimit),
			),
			mcp.WithBoolean("onlyToday", mcp.Description("只顯示今天的文章 (預設: false)"), mcp.DefaultBool(false)),
			mcp.WithString("dateFrom", mcp.Description(dateFromDesc)),
			mcp.WithString("dateTo", mcp.Description(dateToDesc)),
			mcp.WithString("cursor", mcp.Description("上一次回應的 pagination.nextCursor (頁碼，可能附帶 \":已回傳筆數\")")),
		),
		mcp.NewTool(tool.NameListPopularBoards,
			mcp.WithDescription("列出常用的 PTT 看板清單"),
		),
		mcp.NewTool(tool.NameSummarizePosts,
			mcp.WithDescription("摘要指定文章的內容和推文"),
			mcp.WithArray("posts",
				mcp.Required(),
				mcp.Description("要摘要的文章列表"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
						"url":   map[string]any{"type": "string"},
					},
				}),
			),
			mcp.WithString("summaryType",
				mcp.Description("摘要類型：簡要或詳細"),
				mcp.Enum(tool.SummaryBrief, tool.SummaryDetailed),
				mcp.DefaultString(tool.SummaryBrief),
			),
		),
	}
}
