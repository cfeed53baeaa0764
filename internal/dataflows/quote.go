package dataflows

import (
	"fmt"
	"strconv"
	"strings"
)

// quoteFieldCount is the minimum field count of a valid sina quote line.
const quoteFieldCount = 32

// Quote is one parsed realtime quote line.
type Quote struct {
	Symbol    string
	Name      string
	Open      float64
	PrevClose float64
	Price     float64
	High      float64
	Low       float64
	Volume    float64 // shares
	Amount    float64 // CNY
	Date      string  // YYYY-MM-DD
	Time      string  // HH:MM:SS

	Change    float64
	ChangePct float64
}

// FetchQuote retrieves and parses the delimited quote line for a
// market-prefixed symbol. A structurally valid response with fewer than 32
// fields is a malformed payload; an empty record (unknown symbol) maps to
// ErrNotFound.
func (c *Client) FetchQuote(symbol string) (*Quote, error) {
	url := fmt.Sprintf(c.endpoints.Quote, symbol)
	body, err := c.get(url, "https://finance.sina.com.cn", true)
	if err != nil {
		return nil, err
	}

	record, ok := extractQuoted(body)
	if !ok {
		return nil, malformedErr(url, "no quote record in response")
	}
	if strings.TrimSpace(record) == "" {
		return nil, fmt.Errorf("quote for %s: %w", symbol, ErrNotFound)
	}

	fields := strings.Split(record, ",")
	if len(fields) < quoteFieldCount {
		return nil, malformedErr(url, "quote line has %d fields, want at least %d", len(fields), quoteFieldCount)
	}

	q := &Quote{
		Symbol:    symbol,
		Name:      strings.TrimSpace(fields[0]),
		Open:      parseFloat(fields[1]),
		PrevClose: parseFloat(fields[2]),
		Price:     parseFloat(fields[3]),
		High:      parseFloat(fields[4]),
		Low:       parseFloat(fields[5]),
		Volume:    parseFloat(fields[8]),
		Amount:    parseFloat(fields[9]),
		Date:      strings.TrimSpace(fields[30]),
		Time:      strings.TrimSpace(fields[31]),
	}
	q.Change = q.Price - q.PrevClose
	if q.PrevClose > 0 {
		q.ChangePct = q.Change / q.PrevClose * 100
	}

	c.log.Debugw("fetched quote", "symbol", symbol, "price", q.Price, "date", q.Date)
	return q, nil
}

// extractQuoted pulls the payload between the first pair of double quotes
// of a `var hq_str_…="…";` wrapper.
func extractQuoted(body string) (string, bool) {
	start := strings.Index(body, `"`)
	if start < 0 {
		return "", false
	}
	end := strings.Index(body[start+1:], `"`)
	if end < 0 {
		return "", false
	}
	return body[start+1 : start+1+end], true
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}
