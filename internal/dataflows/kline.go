package dataflows

import (
	"encoding/json"
	"fmt"

	"github.com/quantflow/stockpulse/internal/market"
)

// klineRow mirrors one entry of the sina kline array. Numeric cells arrive
// as strings and stay strings until the candle store coerces them.
type klineRow struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

// FetchKline retrieves up to datalen daily candles for a market-prefixed
// symbol. A response without a bracketed array yields an empty series:
// upstream answers exactly that way for unknown symbols, so it is "no
// data", not an error.
func (c *Client) FetchKline(symbol string, datalen int) (market.Series, error) {
	url := fmt.Sprintf(c.endpoints.Kline, symbol, datalen)
	body, err := c.get(url, "https://finance.sina.com.cn", false)
	if err != nil {
		return nil, err
	}

	payload, ok := extractBracketArray(body)
	if !ok {
		return market.Series{}, nil
	}

	var rows []klineRow
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return nil, malformedErr(url, "decode kline array: %w", err)
	}

	raw := make([]market.RawRow, len(rows))
	for i, r := range rows {
		raw[i] = market.RawRow{
			Date:   r.Day,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}

	series, dropped := market.BuildSeries(raw)
	if dropped > 0 {
		c.log.Warnw("dropped malformed kline rows", "symbol", symbol, "dropped", dropped, "kept", len(series))
	}
	return series, nil
}

// extractBracketArray scans for the first top-level bracketed array in the
// body and returns it including the brackets. Scanning by bracket depth
// copes with the JSONP wrappers the kline endpoint emits.
func extractBracketArray(body string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(body); i++ {
		ch := body[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			if depth == 0 {
				start = i
			}
			depth++
		case ']':
			if depth > 0 {
				depth--
				if depth == 0 {
					return body[start : i+1], true
				}
			}
		}
	}
	return "", false
}
