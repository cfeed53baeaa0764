package dataflows

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/quantflow/stockpulse/internal/config"
)

func testConfig(serverURL string) *config.Config {
	return &config.Config{
		UserAgent:         "stockpulse-test",
		RequestTimeoutSec: 5,
		HTTPRetries:       0,
		OpRetries:         3,
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

func gbkBytes(t *testing.T, s string) []byte {
	t.Helper()
	out, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return out
}

func quoteLine(name string, fieldCount int) string {
	fields := make([]string, fieldCount)
	for i := range fields {
		fields[i] = "0.00"
	}
	fields[0] = name
	fields[1] = "33.10" // open
	fields[2] = "33.00" // prev close
	fields[3] = "33.66" // price
	fields[4] = "33.80" // high
	fields[5] = "32.90" // low
	fields[8] = "12345600"
	fields[9] = "411223344.00"
	if fieldCount > 31 {
		fields[30] = "2024-09-30"
		fields[31] = "15:00:03"
	}
	return fmt.Sprintf(`var hq_str_sh600036="%s";`, strings.Join(fields, ","))
}

func TestFetchQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(gbkBytes(t, quoteLine("招商银行", 33)))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	q, err := c.FetchQuote("sh600036")
	require.NoError(t, err)

	assert.Equal(t, "招商银行", q.Name)
	assert.Equal(t, 33.66, q.Price)
	assert.Equal(t, 33.00, q.PrevClose)
	assert.InDelta(t, 0.66, q.Change, 1e-9)
	assert.InDelta(t, 2.0, q.ChangePct, 1e-9)
	assert.Equal(t, "2024-09-30", q.Date)
	assert.Equal(t, "15:00:03", q.Time)
}

func TestFetchQuoteShortLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(gbkBytes(t, quoteLine("招商银行", 12)))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	_, err := c.FetchQuote("sh600036")
	require.Error(t, err)
	assert.True(t, IsMalformed(err), "short quote line should be a malformed payload, got %v", err)
}

func TestFetchQuoteUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`var hq_str_sh999999="";`))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	_, err := c.FetchQuote("sh999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchKline(t *testing.T) {
	body := `/*<script>*/ kline_data=[` +
		`{"day":"2024-09-27","open":"33.00","high":"33.50","low":"32.80","close":"33.20","volume":"100000"},` +
		`{"day":"2024-09-30","open":"33.20","high":"33.90","low":"33.10","close":"33.66","volume":"120000"}]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	series, err := c.FetchKline("sh600036", 120)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2024-09-30", series[1].Date)
	assert.Equal(t, 33.66, series[1].Close)
	assert.Equal(t, 120000.0, series[1].Volume)
}

func TestFetchKlineNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	series, err := c.FetchKline("sh999999", 120)
	require.NoError(t, err, "a payload without an array is no data, not an error")
	assert.Empty(t, series)
}

func TestFetchKlineBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"day":"2024-09-30","open":}]`))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	_, err := c.FetchKline("sh600036", 120)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestSearchStock(t *testing.T) {
	record := "招商银行,11,600036,sh600036,招商银行,,招商银行;" +
		"平安银行,11,000001,sz000001,平安银行,,平安银行;" +
		"重复的,11,600036,sh600036,重复的,,重复的"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(gbkBytes(t, fmt.Sprintf(`var suggestvalue="%s";`, record)))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	hits, err := c.SearchStock("银行")
	require.NoError(t, err)
	require.Len(t, hits, 2, "duplicate symbols should be collapsed")
	assert.Equal(t, "600036", hits[0].Code)
	assert.Equal(t, "sh600036", hits[0].Symbol)
	assert.Equal(t, "招商银行", hits[0].Name)
}

func TestSearchStockNoHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`var suggestvalue="";`))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	hits, err := c.SearchStock("nothing")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFetchInfo(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"data":{"f57":"600036","f58":"招商银行","f84":25219845601,"f85":20628944429,` +
			`"f116":849516498921,"f117":694894273204,"f127":"银行","f162":633,"f167":98,"f189":20020409}}`))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	info, err := c.FetchInfo("sh600036")
	require.NoError(t, err)

	assert.Equal(t, "/info/1.600036", gotPath, "shanghai symbols map to market index 1")
	assert.Equal(t, "招商银行", info.Name)
	assert.Equal(t, "银行", info.Industry)
	assert.InDelta(t, 6.33, info.PERatio, 1e-9)
	assert.InDelta(t, 0.98, info.PBRatio, 1e-9)
	assert.Equal(t, "2002-04-09", info.ListingDate)
}

func TestFetchInfoNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null}`))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	_, err := c.FetchInfo("sh999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveNameCachesAndFallsBack(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"data":{"f57":"600036","f58":"招商银行"}}`))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	assert.Equal(t, "招商银行", c.ResolveName("sh600036"))
	assert.Equal(t, "招商银行", c.ResolveName("sh600036"))
	assert.Equal(t, 1, hits, "second resolution should come from the cache")

	server.Close()
	assert.Equal(t, "000001", c.ResolveName("sz000001"), "unreachable upstream falls back to the bare code")
}

func TestResolveNameZeroCacheSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"f57":"600036","f58":"招商银行"}}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.NameCacheSize = 0
	c := New(cfg)
	assert.Equal(t, "招商银行", c.ResolveName("sh600036"), "unset cache size must not disable resolution")
}

func TestTransportRetry(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":{"f57":"600036","f58":"CMB"}}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.HTTPRetries = 2
	c := New(cfg)

	info, err := c.FetchInfo("sh600036")
	require.NoError(t, err)
	assert.Equal(t, 3, hits, "two 502s then success should take exactly three attempts")
	assert.Equal(t, "CMB", info.Name)
}

func TestNonRetryableStatus(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.HTTPRetries = 2
	c := New(cfg)

	err := WithRetry(3, time.Millisecond, func() error {
		_, ferr := c.FetchQuote("sh600036")
		return ferr
	})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.Equal(t, 1, hits, "404 should not be retried at either layer")
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := WithRetry(3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return transientErr("x", errors.New("boom"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = WithRetry(3, time.Millisecond, func() error {
		calls++
		return malformedErr("x", "broken payload")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "malformed payloads must not be retried")
	assert.True(t, IsMalformed(err))

	calls = 0
	err = WithRetry(2, time.Millisecond, func() error {
		calls++
		return transientErr("x", errors.New("still down"))
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, IsTransient(err))
}

func TestFetchFinancialAbstract(t *testing.T) {
	page := `<html><body><table class="m_table">
		<thead><tr><th>指标</th><th>2024-09-30</th><th>2024-06-30</th></tr></thead>
		<tbody>
		<tr><th>营业总收入</th><td>2527亿</td><td>1730亿</td></tr>
		<tr><th>净资产收益率</th><td>12.5%</td><td>10.0%</td></tr>
		</tbody></table></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	rows, err := c.FetchFinancialAbstract("600036")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "营业总收入", rows[0].Name)
	assert.Equal(t, []string{"2024-09-30", "2024-06-30"}, rows[0].Periods)
	assert.Equal(t, []string{"2527亿", "1730亿"}, rows[0].Values)
}

func TestFetchFinancialAbstractEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>暂无数据</p></body></html>`))
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	rows, err := c.FetchFinancialAbstract("999999")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchNews(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/news/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<div class="news_item"><div class="news_item_t"><a href="/article/1">银行三季报点评</a></div>
				<div class="news_item_c">证券时报 2024-09-30 09:30</div></div>
			<div class="news_item"><div class="news_item_t"><a href="/article/2">信贷投放加速</a></div>
				<div class="news_item_c">财联社 2024-09-29 18:00</div></div>
			<div class="news_item"><div class="news_item_t"><a href="/article/1#comments">重复链接</a></div>
				<div class="news_item_c">x 2024-09-28</div></div>
			</body></html>`))
	})
	mux.HandleFunc("/article/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="article-content">` +
			strings.Repeat("正文内容 ", 40) + `</div></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(testConfig(server.URL))
	result, err := c.FetchNews("银行", 10)
	require.NoError(t, err)
	require.Len(t, result.Items, 2, "fragment-only duplicates should collapse")

	assert.Equal(t, "银行三季报点评", result.Items[0].Title)
	assert.Equal(t, "证券时报", result.Items[0].Source)
	assert.False(t, result.SummariesUnavailable)
	assert.NotEmpty(t, result.Items[0].Summary)
	assert.LessOrEqual(t, len([]rune(result.Items[0].Summary)), summaryLimit+3)
}

func TestFetchNewsSummariesUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/news/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<div class="news_item"><div class="news_item_t"><a href="/article/1">标题一</a></div>
				<div class="news_item_c">来源 2024-09-30</div></div>
			</body></html>`))
	})
	mux.HandleFunc("/article/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(testConfig(server.URL))
	result, err := c.FetchNews("test", 10)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.True(t, result.SummariesUnavailable, "all summaries failing demotes the batch, not the operation")
	assert.Empty(t, result.Items[0].Summary)
}
