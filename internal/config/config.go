package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // distroless イメージにはゾーン情報が無いため埋め込む

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// PTT
	PTTBaseURL   string
	PTTUserAgent string
	Location     *time.Location

	// Fetch
	FetchTimeout time.Duration
	FetchMaxSize int64
	FetchRate    float64
	FetchBurst   int

	// Board cache
	BoardValidTTL    time.Duration
	BoardInvalidTTL  time.Duration
	BoardFallbackTTL time.Duration
	BoardSweepPeriod time.Duration
	BoardsFile       string

	// Tool
	LookbackDays int

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string

	// Logging
	LogLevel string

	// CORS
	CORSAllowedOrigin string
}

// DefaultUserAgent は PTT_USER_AGENT 未設定時に送信する User-Agent。
const DefaultUserAgent = "Mozilla/5.0 (compatible; pttman/2.0; +https://github.com/hitoshi/pttman)"

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに .env があれば先に読み込む（既存の環境変数は上書きしない）。
// PTT_BASE_URL や PTT_TIMEZONE が不正な場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env の読み込みに失敗: %w", err)
	}

	cfg := &Config{}

	cfg.PTTBaseURL = getEnvString("PTT_BASE_URL", "https://www.ptt.cc")
	u, err := url.Parse(cfg.PTTBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid PTT_BASE_URL: %q", cfg.PTTBaseURL)
	}

	tz := getEnvString("PTT_TIMEZONE", "Asia/Taipei")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid PTT_TIMEZONE %q: %w", tz, err)
	}

	cfg.PTTUserAgent = getEnvString("PTT_USER_AGENT", DefaultUserAgent)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 0)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchRate = getEnvFloat("FETCH_RATE", 4)
	cfg.FetchBurst = getEnvInt("FETCH_BURST", 4)
	cfg.BoardValidTTL = getEnvDuration("BOARD_VALID_TTL", time.Hour)
	cfg.BoardInvalidTTL = getEnvDuration("BOARD_INVALID_TTL", 10*time.Minute)
	cfg.BoardFallbackTTL = getEnvDuration("BOARD_FALLBACK_TTL", 5*time.Minute)
	cfg.BoardSweepPeriod = getEnvDuration("BOARD_SWEEP_INTERVAL", 10*time.Minute)
	cfg.BoardsFile = getEnvString("BOARDS_FILE", "")
	cfg.LookbackDays = getEnvInt("LOOKBACK_DAYS", 14)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
