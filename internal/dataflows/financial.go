package dataflows

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/quantflow/stockpulse/internal/fundamentals"
)

// Table selectors for the financial abstract page, tried in order.
var financeTableSelectors = []string{
	"table.m_table",
	"div.finance-table table",
	"table#financial-abstract",
	"table",
}

// FetchFinancialAbstract scrapes the financial disclosure table for a bare
// stock code into raw metric rows, most recent period first. All selector
// strategies yielding nothing returns an empty slice; the caller reports
// "no data".
func (c *Client) FetchFinancialAbstract(code string) ([]fundamentals.RawRow, error) {
	endpoint := fmt.Sprintf(c.endpoints.Finance, code)
	body, err := c.get(endpoint, "https://basic.10jqka.com.cn/", false)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, malformedErr(endpoint, "parse html: %w", err)
	}

	for _, selector := range financeTableSelectors {
		rows := parseFinanceTable(doc.Find(selector).First())
		if len(rows) > 0 {
			c.log.Debugw("parsed financial table", "endpoint", endpoint, "metrics", len(rows))
			return rows, nil
		}
	}
	return nil, nil
}

// parseFinanceTable walks one table whose header row carries period labels
// and whose body rows carry a metric name followed by one cell per period.
func parseFinanceTable(table *goquery.Selection) []fundamentals.RawRow {
	if table.Length() == 0 {
		return nil
	}

	header := table.Find("thead tr").First()
	if header.Length() == 0 {
		header = table.Find("tr").First()
	}
	var periods []string
	header.Find("th").Each(func(i int, s *goquery.Selection) {
		if i == 0 {
			return // metric-name column
		}
		periods = append(periods, strings.TrimSpace(s.Text()))
	})

	bodyRows := table.Find("tbody tr")
	if bodyRows.Length() == 0 {
		bodyRows = table.Find("tr")
	}

	var rows []fundamentals.RawRow
	bodyRows.Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		name := strings.TrimSpace(tr.Find("th").First().Text())
		valueOffset := 0
		if name == "" {
			name = strings.TrimSpace(cells.First().Text())
			valueOffset = 1
		}
		if name == "" {
			return
		}

		var values []string
		cells.Each(func(i int, td *goquery.Selection) {
			if i < valueOffset {
				return
			}
			values = append(values, strings.TrimSpace(td.Text()))
		})
		if len(values) == 0 {
			return
		}
		rows = append(rows, fundamentals.RawRow{
			Name:    name,
			Periods: periods,
			Values:  values,
		})
	})
	return rows
}
