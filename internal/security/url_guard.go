// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLGuardService は外部取得先URLの検証と安全なHTTPクライアント生成のインターフェースを定義する。
// 取得先は設定されたPTTホストに限定される。
type URLGuardService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// safeurlライブラリにより、プライベートIP、ループバック、リンクローカル、
	// メタデータIPへのリクエストが自動的にブロックされる。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateArticleURL は記事URLがPTTホスト上の記事ページかを検証する。
	ValidateArticleURL(rawURL string) error

	// ValidateIndexURL は一覧カーソルが指定看板の一覧ページURLかを検証する。
	ValidateIndexURL(rawURL, board string) error
}

// allowedSchemes は許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// articlePathPattern は記事ページのパス形式（/bbs/{board}/{id}.html）。
var articlePathPattern = regexp.MustCompile(`^/bbs/[A-Za-z0-9_\-]+/[A-Za-z0-9_.\-]+\.html$`)

// indexPathPattern は一覧ページのパス形式（/bbs/{board}/index{n}.html）。
var indexPathPattern = regexp.MustCompile(`^/bbs/([A-Za-z0-9_\-]+)/index[0-9]*\.html$`)

// indexFragmentPattern は一覧カーソルに付く再開位置（#skip=N）の形式。
var indexFragmentPattern = regexp.MustCompile(`^skip=[1-9][0-9]*$`)

// urlGuard はURLGuardServiceの実装。
type urlGuard struct {
	base *url.URL
}

// NewURLGuard はPTTのベースURLを基準とするURLGuardServiceを生成する。
func NewURLGuard(baseURL string) (*urlGuard, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !isAllowedScheme(u.Scheme) || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid base URL: %s", baseURL)
	}
	return &urlGuard{base: u}, nil
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// 許可ポートは 80/443 に加え、ベースURLに明示されたポート。
// timeoutが0の場合はクライアント側のタイムアウトを設けず、contextに委ねる。
func (g *urlGuard) NewSafeClient(timeout time.Duration) *http.Client {
	ports := []int{80, 443}
	if p, err := strconv.Atoi(g.base.Port()); err == nil && p != 80 && p != 443 {
		ports = append(ports, p)
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(ports...).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}

// ValidateArticleURL は記事URLを検証する。
// スキームがhttp/https、ホストがベースURLと一致、パスが記事ページ形式であることを要求する。
func (g *urlGuard) ValidateArticleURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if !isAllowedScheme(parsed.Scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", parsed.Scheme, allowedSchemes)
	}

	if !sameHost(parsed, g.base) {
		return fmt.Errorf("host not allowed: %s", parsed.Host)
	}

	if !articlePathPattern.MatchString(parsed.Path) {
		return fmt.Errorf("not an article path: %s", parsed.Path)
	}

	return nil
}

// ValidateIndexURL は一覧ページURLを検証する。
// 末尾の "#skip=N" は再開位置として許可する。ホストがベースURLと一致し、パスの看板名がboardと一致（大文字小文字は区別しない）することを要求する。
func (g *urlGuard) ValidateIndexURL(rawURL, board string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !isAllowedScheme(parsed.Scheme) || !sameHost(parsed, g.base) {
		return fmt.Errorf("host not allowed: %s", parsed.Host)
	}
	m := indexPathPattern.FindStringSubmatch(parsed.Path)
	if m == nil {
		return fmt.Errorf("not an index path: %s", parsed.Path)
	}
	if !strings.EqualFold(m[1], board) {
		return fmt.Errorf("board mismatch: %s", m[1])
	}
	if parsed.Fragment != "" && !indexFragmentPattern.MatchString(parsed.Fragment) {
		return fmt.Errorf("invalid cursor position: %s", parsed.Fragment)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("unexpected query: %s", parsed.RawQuery)
	}
	return nil
}

// isAllowedScheme はURLスキームが許可リストに含まれるかを検証する。
func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// sameHost はホスト名とポートが一致するかを検証する。
// ポート省略時はスキームの既定ポートとして比較する。
func sameHost(a, b *url.URL) bool {
	if !strings.EqualFold(a.Hostname(), b.Hostname()) {
		return false
	}
	return effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	if strings.EqualFold(u.Scheme, "http") {
		return "80"
	}
	return "443"
}

// IsLoopbackHost はホストがループバックアドレスまたはlocalhostかを返す。
// 開発用のローカルPTTミラーではSSRF防止クライアントを使えないため、呼び出し側の判断に使う。
func IsLoopbackHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
