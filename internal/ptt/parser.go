package ptt

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/pttman/internal/model"
)

const (
	deletedMarker = "(本文已被刪除)"
	prevLinkText  = "‹ 上頁"
	nextLinkText  = "下頁 ›"
)

var leadingColon = regexp.MustCompile(`^:\s*`)

// ParseListPage は一覧ページ・検索結果ページから投稿行と前後ページのリンクを抽出する。
// タイトルかリンクの無い行、削除済みの行は除外する。URLはbaseに対して絶対化する。
func ParseListPage(doc *goquery.Document, base *url.URL) *model.ListPage {
	page := &model.ListPage{}

	doc.Find(".r-ent").Each(func(_ int, s *goquery.Selection) {
		link := s.Find(".title a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" || strings.Contains(title, deletedMarker) {
			return
		}
		page.Items = append(page.Items, model.RawItem{
			Title:    title,
			Author:   strings.TrimSpace(s.Find(".author").First().Text()),
			DateText: strings.TrimSpace(s.Find(".date").First().Text()),
			URL:      absolute(base, href),
			PushText: strings.TrimSpace(s.Find(".nrec").First().Text()),
		})
	})

	page.PrevURL = findButtonLink(doc, base, prevLinkText)
	page.NextURL = findButtonLink(doc, base, nextLinkText)
	return page
}

// findButtonLink は指定テキストを含む .btn.wide ボタンのリンク先を返す。
// 無効化されたボタン（href無し）は空文字列となる。
func findButtonLink(doc *goquery.Document, base *url.URL, text string) string {
	var found string
	doc.Find(".btn.wide").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), text) {
			return true
		}
		if href, ok := s.Attr("href"); ok && href != "" {
			found = absolute(base, href)
		}
		return false
	})
	return found
}

// ParseThread は記事ページから本文と推文を抽出する。
// 本文は #main-content からメタ行と推文を取り除いたもの。
func ParseThread(doc *goquery.Document, articleURL string, sanitizer Sanitizer) *model.ThreadDetail {
	main := doc.Find("#main-content").First().Clone()
	main.Find(".article-metaline, .article-metaline-right, .push").Remove()

	var content string
	if raw, err := main.Html(); err == nil {
		if sanitizer != nil {
			content = sanitizer.PlainText(raw)
		} else {
			content = strings.TrimSpace(main.Text())
		}
	}

	comments := []model.Comment{}
	doc.Find(".push").Each(func(_ int, s *goquery.Selection) {
		comments = append(comments, model.Comment{
			Category: strings.TrimSpace(s.Find(".push-tag").Text()),
			Author:   strings.TrimSpace(s.Find(".push-userid").Text()),
			Content:  strings.TrimSpace(leadingColon.ReplaceAllString(s.Find(".push-content").Text(), "")),
			Time:     strings.TrimSpace(s.Find(".push-ipdatetime").Text()),
		})
	})

	return &model.ThreadDetail{
		URL:          articleURL,
		Content:      content,
		Comments:     comments,
		CommentCount: len(comments),
	}
}

// absolute はhrefをbaseに対する絶対URLにする。
func absolute(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
