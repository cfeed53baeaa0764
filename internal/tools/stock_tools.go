// Package tools exposes the engine's boundary operations. Every operation
// takes a ticker (or keyword) and returns a formatted report string; errors
// are typed so callers can either branch on them or flatten them into the
// human-readable failure text via FailureText.
package tools

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/quantflow/stockpulse/internal/analysis"
	"github.com/quantflow/stockpulse/internal/config"
	"github.com/quantflow/stockpulse/internal/dataflows"
	"github.com/quantflow/stockpulse/internal/fundamentals"
	"github.com/quantflow/stockpulse/internal/indicators"
	"github.com/quantflow/stockpulse/internal/logging"
	"github.com/quantflow/stockpulse/internal/market"
)

// StockTools bundles the engine operations over one fetch client.
type StockTools struct {
	data *dataflows.Client
	cfg  *config.Config
	log  *zap.SugaredLogger
}

// New builds the operation set from configuration.
func New(cfg *config.Config) *StockTools {
	return NewWithClient(cfg, dataflows.New(cfg))
}

// NewWithClient injects an explicit fetch client (tests use this).
func NewWithClient(cfg *config.Config, client *dataflows.Client) *StockTools {
	return &StockTools{
		data: client,
		cfg:  cfg,
		log:  logging.Named("tools"),
	}
}

// FailureText converts an operation error into the failure string handed
// across the agent boundary. The enclosing process never sees a panic or
// a raw error from here.
func FailureText(op string, err error) string {
	switch {
	case errors.Is(err, indicators.ErrInsufficientData):
		return fmt.Sprintf("%s failed: %v", op, err)
	case errors.Is(err, dataflows.ErrNotFound):
		return fmt.Sprintf("%s failed: no data found, check the stock code", op)
	case dataflows.IsMalformed(err):
		return fmt.Sprintf("%s failed: upstream returned an unreadable payload, try again later", op)
	default:
		return fmt.Sprintf("%s failed: network unstable, try again later (%v)", op, err)
	}
}

// Safe runs fn and flattens any error into the failure string, for callers
// that only speak strings.
func Safe(op string, fn func() (string, error)) string {
	report, err := fn()
	if err != nil {
		return FailureText(op, err)
	}
	return report
}

// GetStockInfo reports the company profile: name, industry, market caps,
// valuation ratios and listing date.
func (t *StockTools) GetStockInfo(code string) (string, error) {
	symbol := market.NormalizeSymbol(code)

	var info *dataflows.StockInfo
	err := dataflows.WithRetry(t.cfg.OpRetries, t.cfg.RetryBaseDelay, func() error {
		var fetchErr error
		info, fetchErr = t.data.FetchInfo(symbol)
		return fetchErr
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stock profile - %s\n%s\n", symbol, divider)
	fmt.Fprintf(&b, "Name:            %s\n", orNA(info.Name))
	fmt.Fprintf(&b, "Industry:        %s\n", orNA(info.Industry))
	fmt.Fprintf(&b, "Total mkt cap:   %s\n", formatCNY(info.TotalMarketCap))
	fmt.Fprintf(&b, "Float mkt cap:   %s\n", formatCNY(info.FloatMarketCap))
	fmt.Fprintf(&b, "PE (dynamic):    %s\n", formatRatio(info.PERatio))
	fmt.Fprintf(&b, "PB:              %s\n", formatRatio(info.PBRatio))
	fmt.Fprintf(&b, "Listed since:    %s\n", orNA(info.ListingDate))
	b.WriteString(divider + "\n")
	return b.String(), nil
}

// GetRealtimeQuote reports the live quote, falling back to the latest
// daily candle when the quote endpoint is unavailable. The fallback report
// is marked as non-realtime instead of failing the operation.
func (t *StockTools) GetRealtimeQuote(code string) (string, error) {
	symbol := market.NormalizeSymbol(code)
	name := t.data.ResolveName(symbol)

	var quote *dataflows.Quote
	err := dataflows.WithRetry(t.cfg.OpRetries, t.cfg.RetryBaseDelay, func() error {
		var fetchErr error
		quote, fetchErr = t.data.FetchQuote(symbol)
		return fetchErr
	})
	if err == nil {
		// Float shares enable the turnover-rate line; best effort only.
		var floatShares float64
		if info, infoErr := t.data.FetchInfo(symbol); infoErr == nil {
			floatShares = info.FloatShares
		}
		return renderQuote(name, symbol, quote, floatShares, false), nil
	}
	t.log.Warnw("live quote unavailable, falling back to daily candle", "symbol", symbol, "err", err)

	series, klineErr := t.data.FetchKline(symbol, t.cfg.KlineLength)
	if klineErr != nil || len(series) == 0 {
		return "", err
	}

	last := series[len(series)-1]
	prevClose := last.Open
	if len(series) >= 2 {
		prevClose = series[len(series)-2].Close
	}
	fallback := &dataflows.Quote{
		Symbol:    symbol,
		Name:      name,
		Open:      last.Open,
		PrevClose: prevClose,
		Price:     last.Close,
		High:      last.High,
		Low:       last.Low,
		Volume:    last.Volume,
		Date:      last.Date,
	}
	fallback.Change = fallback.Price - prevClose
	if prevClose > 0 {
		fallback.ChangePct = fallback.Change / prevClose * 100
	}
	return renderQuote(name, symbol, fallback, 0, true), nil
}

// SearchStock reports suggestion hits for a name or code fragment.
func (t *StockTools) SearchStock(keyword string) (string, error) {
	hits, err := t.data.SearchStock(keyword)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return fmt.Sprintf("No stock matching %q was found\n", keyword), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search results - %q\n%s\n", keyword, divider)
	for _, hit := range hits {
		fmt.Fprintf(&b, "%s  %s  (%s)\n", hit.Code, hit.Name, hit.Symbol)
	}
	b.WriteString(divider + "\n")
	b.WriteString("Use the stock code to query quotes and analysis\n")
	return b.String(), nil
}

// GetKlineData reports the most recent candles at daily, weekly or
// monthly granularity.
func (t *StockTools) GetKlineData(code, period string) (string, error) {
	p, err := market.ParsePeriod(period)
	if err != nil {
		return "", err
	}
	symbol := market.NormalizeSymbol(code)

	series, err := t.data.FetchKline(symbol, t.cfg.KlineLength)
	if err != nil {
		return "", err
	}
	if len(series) == 0 {
		return "", fmt.Errorf("kline for %s: %w", symbol, dataflows.ErrNotFound)
	}

	resampled := series.Resample(p)
	recent := resampled.Tail(10)

	var b strings.Builder
	fmt.Fprintf(&b, "Kline data - %s (%s)\n%s\n", symbol, p, divider)
	b.WriteString("Date       | Open    | Close   | High    | Low     | Volume\n")
	b.WriteString(strings.Repeat("-", 64) + "\n")
	for _, c := range recent {
		fmt.Fprintf(&b, "%s | %7.2f | %7.2f | %7.2f | %7.2f | %s\n",
			c.Date, c.Open, c.Close, c.High, c.Low, formatVolume(c.Volume))
	}
	b.WriteString(divider + "\n")
	return b.String(), nil
}

// CalculateIndicators reports the full technical-indicator snapshot with
// qualitative signal lines. Requires at least 60 trading days of history.
func (t *StockTools) CalculateIndicators(code string) (string, error) {
	symbol := market.NormalizeSymbol(code)
	name := t.data.ResolveName(symbol)

	series, err := t.data.FetchKline(symbol, t.cfg.KlineLength)
	if err != nil {
		return "", err
	}

	set, err := indicators.Compute(series)
	if err != nil {
		return "", err
	}
	return renderIndicators(name, symbol, series, set), nil
}

// GetStockNews reports recent news plus exchange announcements for a
// stock. A batch whose article summaries could not be fetched is reported
// title-only with an explicit note, never dropped.
func (t *StockTools) GetStockNews(code string, count int) (string, error) {
	if count <= 0 {
		count = t.cfg.NewsCount
	}
	symbol := market.NormalizeSymbol(code)
	name := t.data.ResolveName(symbol)

	news, err := t.data.FetchNews(name, count)
	if err != nil {
		return "", err
	}

	// Announcements enrich the batch; their failure never fails the report.
	if notices, noticeErr := t.data.FetchAnnouncements(market.BareCode(symbol), 3); noticeErr == nil {
		news.Items = mergeItems(news.Items, notices.Items, count+3)
	} else {
		t.log.Debugw("announcement fetch failed", "symbol", symbol, "err", noticeErr)
	}

	if len(news.Items) == 0 {
		return fmt.Sprintf("No recent news found for %s (%s)\n", name, symbol), nil
	}
	return renderNews(name, symbol, news), nil
}

// GetFinancialData reports the normalized financial metrics with
// period-over-period changes and qualitative judgments.
func (t *StockTools) GetFinancialData(code string) (string, error) {
	symbol := market.NormalizeSymbol(code)
	name := t.data.ResolveName(symbol)

	rows, err := t.data.FetchFinancialAbstract(market.BareCode(symbol))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No financial data found for %s (%s)\n", name, symbol), nil
	}

	table := fundamentals.Normalize(rows)
	return renderFinancials(name, symbol, table), nil
}

// AnalyzeTrend reports the composite trend assessment. The most recent
// tradable price comes from the live quote when available and otherwise
// falls back to the last close. Requires at least 60 trading days.
func (t *StockTools) AnalyzeTrend(code string) (string, error) {
	symbol := market.NormalizeSymbol(code)
	name := t.data.ResolveName(symbol)

	series, err := t.data.FetchKline(symbol, t.cfg.KlineLength)
	if err != nil {
		return "", err
	}

	set, err := indicators.Compute(series)
	if err != nil {
		return "", err
	}

	currentPrice := 0.0
	if quote, quoteErr := t.data.FetchQuote(symbol); quoteErr == nil && quote.Price > 0 {
		currentPrice = quote.Price
	}

	assessment, err := analysis.AssessTrend(series, set, currentPrice)
	if err != nil {
		return "", err
	}
	return renderTrend(name, symbol, series, set, assessment), nil
}

func mergeItems(news, notices []dataflows.NewsItem, limit int) []dataflows.NewsItem {
	seen := make(map[string]bool, len(news))
	for _, item := range news {
		seen[item.URL] = true
	}
	merged := news
	for _, item := range notices {
		if seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		merged = append(merged, item)
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
