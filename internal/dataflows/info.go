package dataflows

import (
	"fmt"
	"strings"

	"github.com/quantflow/stockpulse/internal/market"
)

// StockInfo is the basic company profile served by the eastmoney quote
// detail endpoint. Zero-valued fields mean the upstream omitted them.
type StockInfo struct {
	Code           string
	Name           string
	Industry       string
	TotalShares    float64
	FloatShares    float64
	TotalMarketCap float64
	FloatMarketCap float64
	PERatio        float64
	PBRatio        float64
	ListingDate    string
}

// infoPayload is the JSON shape of the info endpoint. Pointers distinguish
// omitted fields from genuine zeros.
type infoPayload struct {
	Data *struct {
		F57  string   `json:"f57"`  // code
		F58  string   `json:"f58"`  // name
		F84  *float64 `json:"f84"`  // total shares
		F85  *float64 `json:"f85"`  // float shares
		F116 *float64 `json:"f116"` // total market cap
		F117 *float64 `json:"f117"` // float market cap
		F127 string   `json:"f127"` // industry
		F162 *float64 `json:"f162"` // PE (dynamic), scaled x100
		F167 *float64 `json:"f167"` // PB, scaled x100
		F189 *int64   `json:"f189"` // listing date, yyyymmdd
	} `json:"data"`
}

// FetchInfo retrieves the company profile for a market-prefixed symbol.
func (c *Client) FetchInfo(symbol string) (*StockInfo, error) {
	url := fmt.Sprintf(c.endpoints.Info, toSecID(symbol))
	body, err := c.get(url, "https://quote.eastmoney.com/", false)
	if err != nil {
		return nil, err
	}

	var payload infoPayload
	if err := decodeJSON(body, &payload); err != nil {
		return nil, malformedErr(url, "decode info payload: %w", err)
	}
	if payload.Data == nil || payload.Data.F57 == "" {
		return nil, fmt.Errorf("info for %s: %w", symbol, ErrNotFound)
	}

	d := payload.Data
	info := &StockInfo{
		Code:           d.F57,
		Name:           d.F58,
		Industry:       d.F127,
		TotalShares:    deref(d.F84),
		FloatShares:    deref(d.F85),
		TotalMarketCap: deref(d.F116),
		FloatMarketCap: deref(d.F117),
		PERatio:        deref(d.F162) / 100,
		PBRatio:        deref(d.F167) / 100,
	}
	if d.F189 != nil && *d.F189 > 0 {
		raw := fmt.Sprintf("%08d", *d.F189)
		info.ListingDate = fmt.Sprintf("%s-%s-%s", raw[0:4], raw[4:6], raw[6:8])
	}
	return info, nil
}

// ResolveName resolves a symbol to its listed short name, retrying the
// info fetch once before falling back to the bare code. Results are held
// in a small LRU so one session does not refetch the profile per report.
func (c *Client) ResolveName(symbol string) string {
	if name, ok := c.nameCache.Get(symbol); ok {
		return name
	}

	var info *StockInfo
	err := WithRetry(2, c.cfg.RetryBaseDelay, func() error {
		var fetchErr error
		info, fetchErr = c.FetchInfo(symbol)
		return fetchErr
	})
	if err != nil || info.Name == "" {
		c.log.Debugw("name resolution failed, using code", "symbol", symbol, "err", err)
		return market.BareCode(symbol)
	}

	c.nameCache.Add(symbol, info.Name)
	return info.Name
}

// toSecID converts a prefixed symbol to the eastmoney secid form:
// market index 1 for Shanghai, 0 otherwise, dot, bare code.
func toSecID(symbol string) string {
	symbol = strings.ToLower(symbol)
	if strings.HasPrefix(symbol, "sh") {
		return "1." + strings.TrimPrefix(symbol, "sh")
	}
	return "0." + market.BareCode(symbol)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
