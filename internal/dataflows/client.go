// Package dataflows owns every upstream request the engine makes: quote
// lines, kline payloads, symbol suggestions, news and announcement pages
// and financial disclosure tables. It wraps one shared resty client with
// a transport-level retry policy and converts structural failures into
// typed errors instead of letting them escape uncontrolled.
package dataflows

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/quantflow/stockpulse/internal/config"
	"github.com/quantflow/stockpulse/internal/logging"
)

// Transient HTTP statuses worth another attempt.
var retryableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// Client is the resilient fetch layer. It owns the HTTP connection pool
// for the life of the process and is safe for reuse across sequential
// calls; concurrent callers must hold their own Client.
type Client struct {
	http      *resty.Client
	endpoints config.Endpoints
	cfg       *config.Config
	log       *zap.SugaredLogger
	nameCache *lru.Cache[string, string]
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// Default returns the process-wide client, lazily constructed from the
// default configuration.
func Default() *Client {
	defaultOnce.Do(func() {
		defaultClient = New(config.DefaultConfig())
	})
	return defaultClient
}

// New builds a client from explicit configuration.
func New(cfg *config.Config) *Client {
	httpc := resty.New().
		SetTimeout(time.Duration(cfg.RequestTimeoutSec) * time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "*/*").
		SetRetryCount(cfg.HTTPRetries).
		SetRetryWaitTime(cfg.RetryBaseDelay).
		SetRetryMaxWaitTime(10 * cfg.RetryBaseDelay).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return retryableStatus[r.StatusCode()]
		})

	// lru.New rejects non-positive sizes; a hand-built Config may leave
	// NameCacheSize unset, so clamp rather than run without a cache.
	size := cfg.NameCacheSize
	if size <= 0 {
		size = 1
	}
	cache, _ := lru.New[string, string](size)

	return &Client{
		http:      httpc,
		endpoints: cfg.Endpoints,
		cfg:       cfg,
		log:       logging.Named("dataflows"),
		nameCache: cache,
	}
}

// get issues one GET with the retry policy applied, returning the decoded
// body. Referer is set per upstream host; sina endpoints answer in GBK and
// are transcoded before parsing.
func (c *Client) get(url, referer string, gbk bool) (string, error) {
	req := c.http.R()
	if referer != "" {
		req.SetHeader("Referer", referer)
	}

	resp, err := req.Get(url)
	if err != nil {
		return "", transientErr(url, err)
	}
	if resp.StatusCode() != 200 {
		// Retryable statuses stay transient; anything else will not get
		// better on a retry and is surfaced immediately.
		if retryableStatus[resp.StatusCode()] {
			return "", transientErr(url, fmt.Errorf("unexpected http status %d", resp.StatusCode()))
		}
		return "", malformedErr(url, "unexpected http status %d", resp.StatusCode())
	}

	body := resp.Body()
	if gbk {
		decoded, err := decodeGBK(body)
		if err != nil {
			return "", malformedErr(url, "decode gbk body: %w", err)
		}
		return decoded, nil
	}
	return string(body), nil
}

// WithRetry wraps a whole logical operation with a bounded retry count and
// linear backoff, for operations that chain several dependent requests.
// Malformed payloads are not retried; re-fetching cannot fix them.
func WithRetry(attempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(baseDelay * time.Duration(i))
		}
		if err := fn(); err != nil {
			if IsMalformed(err) {
				return err
			}
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
