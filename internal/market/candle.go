package market

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Period is the resampling granularity of a candle series.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod validates a user-supplied period string.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodDaily, "":
		return PeriodDaily, nil
	case PeriodWeekly:
		return PeriodWeekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	}
	return "", fmt.Errorf("unsupported period %q (want daily, weekly or monthly)", s)
}

// Candle is one OHLCV record for a trading period.
type Candle struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Series is a candle sequence ordered by strictly increasing date.
type Series []Candle

// RawRow is one uncoerced row from an upstream kline payload. Cells are
// kept as strings so invalid values can be rejected explicitly instead of
// silently becoming zero.
type RawRow struct {
	Date   string
	Open   string
	High   string
	Low    string
	Close  string
	Volume string
}

// BuildSeries coerces raw rows into a Series. Rows with an unparseable
// date or price cell are dropped; the count of dropped rows is returned so
// callers can log it. Dates are normalized to YYYY-MM-DD and the result is
// de-duplicated, keeping the first occurrence of each date, and sorted so
// the strictly-increasing-date ordering holds even when the upstream
// payload is out of order.
func BuildSeries(rows []RawRow) (Series, int) {
	series := make(Series, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	dropped := 0

	for _, row := range rows {
		date, ok := normalizeDate(row.Date)
		if !ok || seen[date] {
			dropped++
			continue
		}
		open, ok1 := parseCell(row.Open)
		high, ok2 := parseCell(row.High)
		low, ok3 := parseCell(row.Low)
		closep, ok4 := parseCell(row.Close)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			dropped++
			continue
		}
		// Volume may legitimately be blank on suspension days.
		volume, ok := parseCell(row.Volume)
		if !ok {
			volume = 0
		}

		seen[date] = true
		series = append(series, Candle{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closep,
			Volume: volume,
		})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, dropped
}

func parseCell(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"20060102",
	"2006/01/02",
}

func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// Closes returns the closing-price column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high column.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows returns the low column.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the volume column.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Tail returns the last n candles (or the whole series when shorter).
func (s Series) Tail(n int) Series {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Resample aggregates a daily series into weekly or monthly candles:
// open is the bucket's first open, high the max, low the min, close the
// last close and volume the sum. Buckets with no input rows simply do not
// appear; nothing is interpolated. Daily input is returned as-is.
func (s Series) Resample(p Period) Series {
	if p == PeriodDaily || len(s) == 0 {
		return s
	}

	var out Series
	var bucket string
	for _, c := range s {
		key := bucketKey(c.Date, p)
		if key != bucket {
			bucket = key
			out = append(out, c)
			continue
		}
		last := &out[len(out)-1]
		if c.High > last.High {
			last.High = c.High
		}
		if c.Low < last.Low {
			last.Low = c.Low
		}
		last.Close = c.Close
		last.Volume += c.Volume
		last.Date = c.Date
	}
	return out
}

func bucketKey(date string, p Period) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	if p == PeriodMonthly {
		return t.Format("2006-01")
	}
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
