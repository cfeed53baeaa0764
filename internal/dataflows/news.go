package dataflows

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NewsItem is one news article or company announcement.
type NewsItem struct {
	Title   string
	URL     string
	Source  string
	Time    string
	Summary string
	Notice  bool // true for exchange announcements
}

// NewsResult is a batch of news items. SummariesUnavailable is set when
// detail enrichment failed for every item and the batch was demoted to
// title-only records.
type NewsResult struct {
	Items                []NewsItem
	SummariesUnavailable bool
}

// listStrategy is one way of locating news rows in a result page.
// Strategies are tried in order; the first that yields rows wins.
type listStrategy struct {
	item, title, link, meta string
}

var newsStrategies = []listStrategy{
	{item: "div.news_item", title: "div.news_item_t a", link: "div.news_item_t a", meta: "div.news_item_c"},
	{item: "div.repeat-item", title: "a.news-title", link: "a.news-title", meta: "span.time"},
	{item: "li.news-list-item", title: "h3 a", link: "h3 a", meta: "span"},
}

var noticeStrategies = []listStrategy{
	{item: "table.notice-table tr", title: "td a", link: "td a", meta: "td.time"},
	{item: "div.notice-item", title: "a", link: "a", meta: "span.date"},
	{item: "li.notice", title: "a", link: "a", meta: "span"},
}

// Article-body selectors for summary enrichment, tried in order.
var contentSelectors = []string{
	"div.article-content", "div#ContentBody", "div.newsContent", "article p", "div.content",
}

// summaryLimit truncates enriched article bodies, in runes.
const summaryLimit = 100

// FetchNews scrapes the news search page for a keyword (usually the stock
// name) and enriches each hit with a short summary from the article page.
// All strategies yielding nothing returns an empty result, not an error.
func (c *Client) FetchNews(keyword string, count int) (*NewsResult, error) {
	endpoint := fmt.Sprintf(c.endpoints.News, url.QueryEscape(keyword))
	items, err := c.scrapeList(endpoint, newsStrategies, false)
	if err != nil {
		return nil, err
	}
	if count > 0 && len(items) > count {
		items = items[:count]
	}

	result := &NewsResult{Items: items}
	c.enrichSummaries(result)
	return result, nil
}

// FetchAnnouncements scrapes the exchange announcement list for a bare
// stock code.
func (c *Client) FetchAnnouncements(code string, count int) (*NewsResult, error) {
	endpoint := fmt.Sprintf(c.endpoints.Notices, code)
	items, err := c.scrapeList(endpoint, noticeStrategies, true)
	if err != nil {
		return nil, err
	}
	if count > 0 && len(items) > count {
		items = items[:count]
	}
	return &NewsResult{Items: items}, nil
}

func (c *Client) scrapeList(endpoint string, strategies []listStrategy, notice bool) ([]NewsItem, error) {
	body, err := c.get(endpoint, "https://www.eastmoney.com/", false)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, malformedErr(endpoint, "parse html: %w", err)
	}

	var items []NewsItem
	seen := make(map[string]bool)
	for _, strat := range strategies {
		doc.Find(strat.item).Each(func(_ int, s *goquery.Selection) {
			title := strings.TrimSpace(s.Find(strat.title).First().Text())
			href, _ := s.Find(strat.link).First().Attr("href")
			href = canonicalURL(endpoint, href)
			if title == "" || href == "" || seen[href] {
				return
			}
			seen[href] = true

			meta := strings.TrimSpace(s.Find(strat.meta).First().Text())
			source, when := splitMeta(meta)
			items = append(items, NewsItem{
				Title:  title,
				URL:    href,
				Source: source,
				Time:   when,
				Notice: notice,
			})
		})
		if len(items) > 0 {
			break
		}
	}

	c.log.Debugw("scraped list page", "endpoint", endpoint, "items", len(items))
	return items, nil
}

// enrichSummaries fetches each article body and attaches a truncated
// summary. When every fetch fails the batch is demoted to title-only
// records with the degradation flag set; partial data beats no data.
func (c *Client) enrichSummaries(result *NewsResult) {
	if len(result.Items) == 0 {
		return
	}
	failures := 0
	for i := range result.Items {
		summary, err := c.fetchSummary(result.Items[i].URL)
		if err != nil || summary == "" {
			failures++
			continue
		}
		result.Items[i].Summary = summary
	}
	if failures == len(result.Items) {
		result.SummariesUnavailable = true
		c.log.Warnw("summaries unavailable for batch", "items", len(result.Items))
	}
}

func (c *Client) fetchSummary(articleURL string) (string, error) {
	body, err := c.get(articleURL, "https://www.eastmoney.com/", false)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	for _, selector := range contentSelectors {
		text := strings.Join(strings.Fields(doc.Find(selector).First().Text()), " ")
		if text != "" {
			return truncateRunes(text, summaryLimit), nil
		}
	}
	return "", nil
}

// canonicalURL resolves relative links against the list page and strips
// fragments so deduplication keys on the real article address.
func canonicalURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	resolved := baseURL.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

// splitMeta pulls "source time" style metadata apart; upstream pages are
// inconsistent, so anything that does not split survives as the time.
func splitMeta(meta string) (source, when string) {
	fields := strings.Fields(meta)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
