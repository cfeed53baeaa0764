package tools

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantflow/stockpulse/internal/config"
	"github.com/quantflow/stockpulse/internal/dataflows"
)

func testConfig(serverURL string) *config.Config {
	return &config.Config{
		UserAgent:         "stockpulse-test",
		RequestTimeoutSec: 5,
		HTTPRetries:       0,
		OpRetries:         2,
		RetryBaseDelay:    time.Millisecond,
		KlineLength:       120,
		NewsCount:         10,
		NameCacheSize:     16,
		Endpoints: config.Endpoints{
			Quote:   serverURL + "/quote/%s",
			Kline:   serverURL + "/kline/%s?datalen=%d",
			Suggest: serverURL + "/suggest/%s",
			News:    serverURL + "/news/%s",
			Notices: serverURL + "/notices/%s",
			Finance: serverURL + "/finance/%s",
			Info:    serverURL + "/info/%s",
		},
	}
}

func newTestTools(serverURL string) *StockTools {
	cfg := testConfig(serverURL)
	return NewWithClient(cfg, dataflows.New(cfg))
}

// klineBody renders n rising daily candles as the JSONP-style payload the
// kline endpoint answers with.
func klineBody(n int) string {
	var rows []string
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 10 + 0.1*float64(i)
		rows = append(rows, fmt.Sprintf(
			`{"day":"%s","open":"%.2f","high":"%.2f","low":"%.2f","close":"%.2f","volume":"1000"}`,
			day.Format("2006-01-02"), c, c+1, c-1, c))
		day = day.AddDate(0, 0, 1)
	}
	return "kline_data=[" + strings.Join(rows, ",") + "]"
}

func quoteBody(price float64) string {
	fields := make([]string, 33)
	for i := range fields {
		fields[i] = "0.00"
	}
	fields[0] = "TestCo"
	fields[1] = "17.50"
	fields[2] = "17.60"
	fields[3] = fmt.Sprintf("%.2f", price)
	fields[4] = "18.10"
	fields[5] = "17.40"
	fields[8] = "100000"
	fields[9] = "1790000"
	fields[30] = "2024-03-21"
	fields[31] = "15:00:00"
	return fmt.Sprintf(`var hq_str_sh600036="%s";`, strings.Join(fields, ","))
}

const infoBody = `{"data":{"f57":"600036","f58":"TestCo","f127":"Banking",` +
	`"f116":850000000000,"f117":695000000000,"f162":633,"f167":98,"f189":20020409}}`

func marketServer(t *testing.T, candles int, quoteOK bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/kline/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(klineBody(candles)))
	})
	mux.HandleFunc("/quote/", func(w http.ResponseWriter, r *http.Request) {
		if !quoteOK {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(quoteBody(17.90)))
	})
	mux.HandleFunc("/info/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(infoBody))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGetStockInfo(t *testing.T) {
	server := marketServer(t, 80, true)
	st := newTestTools(server.URL)

	report, err := st.GetStockInfo("600036")
	require.NoError(t, err)
	assert.Contains(t, report, "TestCo")
	assert.Contains(t, report, "Banking")
	assert.Contains(t, report, "2002-04-09")
	assert.Contains(t, report, "8500.00亿")
}

func TestGetStockInfoBlankFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/info/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"f57":"600036","f58":"TestCo"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	st := newTestTools(server.URL)
	report, err := st.GetStockInfo("600036")
	require.NoError(t, err)
	assert.Contains(t, report, "Industry:        N/A")
	assert.Contains(t, report, "Listed since:    N/A")
}

func TestGetRealtimeQuote(t *testing.T) {
	server := marketServer(t, 80, true)
	st := newTestTools(server.URL)

	report, err := st.GetRealtimeQuote("600036")
	require.NoError(t, err)
	assert.Contains(t, report, "17.90")
	assert.Contains(t, report, "Limit up/dn: 19.36 / 15.84", "main-board band is 10% of prev close")
	assert.NotContains(t, report, "not realtime")
}

func TestGetRealtimeQuoteFallsBackToCandle(t *testing.T) {
	server := marketServer(t, 80, false)
	st := newTestTools(server.URL)

	report, err := st.GetRealtimeQuote("600036")
	require.NoError(t, err, "a dead quote endpoint with candles available must still report")
	assert.Contains(t, report, "not realtime")
	// Last candle close on the 80-candle fixture.
	assert.Contains(t, report, "17.90")
}

func TestGetKlineDataWeekly(t *testing.T) {
	server := marketServer(t, 80, true)
	st := newTestTools(server.URL)

	report, err := st.GetKlineData("600036", "weekly")
	require.NoError(t, err)
	assert.Contains(t, report, "(weekly)")
	assert.Contains(t, report, "Date")

	if _, err := st.GetKlineData("600036", "hourly"); err == nil {
		t.Error("unsupported period must be rejected")
	}
}

func TestCalculateIndicators(t *testing.T) {
	server := marketServer(t, 80, true)
	st := newTestTools(server.URL)

	report, err := st.CalculateIndicators("600036")
	require.NoError(t, err)
	assert.Contains(t, report, "[Moving averages]")
	assert.Contains(t, report, "[MACD]")
	assert.Contains(t, report, "[KDJ]")
	assert.Contains(t, report, "[RSI]")
	assert.Contains(t, report, "[Bollinger bands]")
	assert.Contains(t, report, "bullish alignment")
}

func TestCalculateIndicatorsInsufficientData(t *testing.T) {
	server := marketServer(t, 30, true)
	st := newTestTools(server.URL)

	_, err := st.CalculateIndicators("600036")
	require.Error(t, err)

	failure := FailureText("indicators", err)
	assert.Contains(t, failure, "insufficient data")
	assert.Contains(t, failure, "60")
}

func TestAnalyzeTrend(t *testing.T) {
	server := marketServer(t, 80, true)
	st := newTestTools(server.URL)

	report, err := st.AnalyzeTrend("600036")
	require.NoError(t, err)
	assert.Contains(t, report, "Trend score:")
	assert.Contains(t, report, "★★★★☆")
	assert.Contains(t, report, "bullish")
	assert.Contains(t, report, "Resistance: 18.90", "resistance is the 20-day high")
	assert.Contains(t, report, "Support: 15.00", "support is the 20-day low")
	assert.Contains(t, report, "Current price: 17.90")
}

func TestGetStockNewsMergesAnnouncements(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/info/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(infoBody))
	})
	mux.HandleFunc("/news/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<div class="news_item"><div class="news_item_t"><a href="/article/1">业绩点评</a></div>
				<div class="news_item_c">来源 2024-03-21</div></div>
			</body></html>`))
	})
	mux.HandleFunc("/notices/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<div class="notice-item"><a href="/article/2">分红派息公告</a><span class="date">2024-03-20</span></div>
			</body></html>`))
	})
	mux.HandleFunc("/article/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="article-content">摘要内容摘要内容</div></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	st := newTestTools(server.URL)
	report, err := st.GetStockNews("600036", 5)
	require.NoError(t, err)
	assert.Contains(t, report, "[news] 业绩点评")
	assert.Contains(t, report, "[notice] 分红派息公告")
}

func TestGetFinancialData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/info/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(infoBody))
	})
	mux.HandleFunc("/finance/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><table class="m_table">
			<thead><tr><th>指标</th><th>2024-09-30</th><th>2024-06-30</th></tr></thead>
			<tbody>
			<tr><th>净资产收益率</th><td>16.5%</td><td>15.0%</td></tr>
			<tr><th>资产负债率</th><td>35.0%</td><td>36.0%</td></tr>
			<tr><th>净利润同比增长率</th><td>25.0%</td><td>22.0%</td></tr>
			</tbody></table></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	st := newTestTools(server.URL)
	report, err := st.GetFinancialData("600036")
	require.NoError(t, err)
	assert.Contains(t, report, "Return on equity: 16.5%")
	assert.Contains(t, report, "QoQ +1.5 (10%)")
	assert.Contains(t, report, "excellent capital efficiency")
	assert.Contains(t, report, "conservative balance sheet")
	assert.Contains(t, report, "rapid expansion")
}

func TestSafeFlattensErrors(t *testing.T) {
	out := Safe("quote", func() (string, error) {
		return "", fmt.Errorf("wrapped: %w", dataflows.ErrNotFound)
	})
	assert.Contains(t, out, "quote failed")
	assert.Contains(t, out, "check the stock code")

	out = Safe("quote", func() (string, error) { return "fine\n", nil })
	assert.Equal(t, "fine\n", out)
}
