// Package config holds process-wide settings, loaded from the environment
// with an optional .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Endpoints carries the upstream URL templates. Tests point these at local
// httptest servers.
type Endpoints struct {
	Quote   string // %s = prefixed symbol
	Kline   string // %s = prefixed symbol, %d = row count
	Suggest string // %s = url-escaped keyword
	News    string // %s = url-escaped keyword
	Notices string // %s = bare code
	Finance string // %s = bare code
	Info    string // %s = eastmoney secid
}

// DefaultEndpoints returns the production upstream URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Quote:   "https://hq.sinajs.cn/list=%s",
		Kline:   "https://finance.sina.com.cn/realstock/company/%s/kline.js?scale=240&ma=no&datalen=%d",
		Suggest: "https://suggest3.sinajs.cn/suggest/type=11,12,15&key=%s",
		News:    "https://so.eastmoney.com/news/s?keyword=%s",
		Notices: "https://data.eastmoney.com/notices/stock/%s.html",
		Finance: "https://basic.10jqka.com.cn/%s/finance.html",
		Info:    "https://push2.eastmoney.com/api/qt/stock/get?secid=%s&fields=f57,f58,f84,f85,f116,f117,f127,f162,f167,f189",
	}
}

type Config struct {
	UserAgent         string
	RequestTimeoutSec int
	HTTPRetries       int // extra attempts after the first request
	OpRetries         int // logical-operation retry attempts
	RetryBaseDelay    time.Duration
	KlineLength       int // daily candles requested per kline fetch
	NewsCount         int // default news/announcement batch size
	NameCacheSize     int
	Debug             bool

	Endpoints Endpoints
}

// DefaultConfig loads settings with environment overrides applied.
func DefaultConfig() *Config {
	cfg := &Config{
		UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		RequestTimeoutSec: 10,
		HTTPRetries:       2,
		OpRetries:         3,
		RetryBaseDelay:    time.Second,
		KlineLength:       120,
		NewsCount:         10,
		NameCacheSize:     256,
		Debug:             false,
		Endpoints:         DefaultEndpoints(),
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()
	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("STOCKPULSE_USER_AGENT"); val != "" {
		c.UserAgent = val
	}
	if val := os.Getenv("STOCKPULSE_REQUEST_TIMEOUT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			c.RequestTimeoutSec = v
		}
	}
	if val := os.Getenv("STOCKPULSE_HTTP_RETRIES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v >= 0 {
			c.HTTPRetries = v
		}
	}
	if val := os.Getenv("STOCKPULSE_OP_RETRIES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			c.OpRetries = v
		}
	}
	if val := os.Getenv("STOCKPULSE_RETRY_BASE_DELAY_MS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			c.RetryBaseDelay = time.Duration(v) * time.Millisecond
		}
	}
	if val := os.Getenv("STOCKPULSE_KLINE_LENGTH"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			c.KlineLength = v
		}
	}
	if val := os.Getenv("STOCKPULSE_NEWS_COUNT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			c.NewsCount = v
		}
	}
	if val := os.Getenv("STOCKPULSE_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
}
