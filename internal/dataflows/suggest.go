package dataflows

import (
	"fmt"
	"net/url"
	"strings"
)

// Suggestion is one symbol-suggestion hit.
type Suggestion struct {
	Code   string // bare code
	Symbol string // market-prefixed symbol
	Name   string
}

// maxSuggestions caps the result list the way the upstream UI does.
const maxSuggestions = 10

// SearchStock queries the suggestion endpoint for a keyword (name
// fragment or code fragment). An empty hit list is a valid result, not an
// error.
func (c *Client) SearchStock(keyword string) ([]Suggestion, error) {
	endpoint := fmt.Sprintf(c.endpoints.Suggest, url.QueryEscape(keyword))
	body, err := c.get(endpoint, "https://finance.sina.com.cn", true)
	if err != nil {
		return nil, err
	}

	record, ok := extractQuoted(body)
	if !ok {
		return nil, malformedErr(endpoint, "no suggestion record in response")
	}
	if strings.TrimSpace(record) == "" {
		return []Suggestion{}, nil
	}

	var out []Suggestion
	seen := make(map[string]bool)
	for _, item := range strings.Split(record, ";") {
		fields := strings.Split(item, ",")
		if len(fields) < 5 {
			continue
		}
		s := Suggestion{
			Code:   strings.TrimSpace(fields[2]),
			Symbol: strings.ToLower(strings.TrimSpace(fields[3])),
			Name:   strings.TrimSpace(fields[4]),
		}
		if s.Code == "" || s.Name == "" || seen[s.Symbol] {
			continue
		}
		seen[s.Symbol] = true
		out = append(out, s)
		if len(out) >= maxSuggestions {
			break
		}
	}
	return out, nil
}
