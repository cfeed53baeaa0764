// Package fundamentals normalizes heterogeneous disclosure tables into a
// fixed set of financial metrics with period-over-period deltas.
package fundamentals

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MetricKey enumerates the metrics the engine tracks. Upstream rows that
// match none of the aliases land in the table's Extra bucket instead of
// being discarded.
type MetricKey string

const (
	MetricRevenue            MetricKey = "revenue"
	MetricNetProfit          MetricKey = "net_profit"
	MetricRevenueGrowth      MetricKey = "revenue_growth"
	MetricNetProfitGrowth    MetricKey = "net_profit_growth"
	MetricROE                MetricKey = "roe"
	MetricNetMargin          MetricKey = "net_margin"
	MetricGrossMargin        MetricKey = "gross_margin"
	MetricEPS                MetricKey = "eps"
	MetricBVPS               MetricKey = "bvps"
	MetricOCFPS              MetricKey = "ocf_per_share"
	MetricDebtRatio          MetricKey = "debt_ratio"
	MetricCurrentRatio       MetricKey = "current_ratio"
	MetricQuickRatio         MetricKey = "quick_ratio"
	MetricInventoryDays      MetricKey = "inventory_turnover_days"
	MetricReceivableDays     MetricKey = "receivable_turnover_days"
)

// metricAliases maps upstream row labels to tracked keys. Disclosure
// sources are inconsistent about exact wording, so several spellings map
// to the same key.
var metricAliases = map[string]MetricKey{
	"营业总收入":      MetricRevenue,
	"营业收入":       MetricRevenue,
	"净利润":        MetricNetProfit,
	"归母净利润":      MetricNetProfit,
	"营业总收入同比增长率": MetricRevenueGrowth,
	"营业收入同比增长率":  MetricRevenueGrowth,
	"净利润同比增长率":   MetricNetProfitGrowth,
	"净资产收益率":     MetricROE,
	"净资产收益率-摊薄":  MetricROE,
	"销售净利率":      MetricNetMargin,
	"销售毛利率":      MetricGrossMargin,
	"毛利率":        MetricGrossMargin,
	"基本每股收益":     MetricEPS,
	"每股收益":       MetricEPS,
	"每股净资产":      MetricBVPS,
	"每股经营现金流":    MetricOCFPS,
	"资产负债率":      MetricDebtRatio,
	"流动比率":       MetricCurrentRatio,
	"速动比率":       MetricQuickRatio,
	"存货周转天数":     MetricInventoryDays,
	"应收账款周转天数":   MetricReceivableDays,
}

// Labels for report output, keyed by metric.
var metricLabels = map[MetricKey]string{
	MetricRevenue:        "Revenue",
	MetricNetProfit:      "Net profit",
	MetricRevenueGrowth:  "Revenue growth YoY",
	MetricNetProfitGrowth: "Net profit growth YoY",
	MetricROE:            "Return on equity",
	MetricNetMargin:      "Net margin",
	MetricGrossMargin:    "Gross margin",
	MetricEPS:            "Basic EPS",
	MetricBVPS:           "Book value per share",
	MetricOCFPS:          "Operating cash flow per share",
	MetricDebtRatio:      "Debt-to-asset ratio",
	MetricCurrentRatio:   "Current ratio",
	MetricQuickRatio:     "Quick ratio",
	MetricInventoryDays:  "Inventory turnover days",
	MetricReceivableDays: "Receivable turnover days",
}

// Label returns the report label for a metric key.
func (k MetricKey) Label() string {
	if l, ok := metricLabels[k]; ok {
		return l
	}
	return string(k)
}

// Unit is a magnitude or percent annotation carried by a raw value.
type Unit string

const (
	UnitNone           Unit = ""
	UnitPercent        Unit = "%"
	UnitTenThousand    Unit = "万"  // 1e4
	UnitHundredMillion Unit = "亿"  // 1e8
	UnitTrillion       Unit = "万亿" // 1e12
)

// PeriodValue is one reported value for one period.
type PeriodValue struct {
	Period  string          // period label, e.g. 2024-09-30
	Raw     string          // value as published
	Unit    Unit
	Value   decimal.Decimal // magnitude with unit suffix stripped
	Numeric bool
}

// Metric holds up to maxPeriods most-recent values (newest first) plus the
// derived period-over-period change. A unit mismatch across the sampled
// periods suppresses the delta; no unit conversion is attempted.
type Metric struct {
	Key          MetricKey
	Periods      []PeriodValue
	Delta        *decimal.Decimal
	PctChange    *decimal.Decimal
	UnitMismatch bool
}

// Table maps tracked metrics to their normalized values. Rows whose label
// matched no alias are preserved under Extra by their raw label.
type Table struct {
	Metrics map[MetricKey]Metric
	Extra   map[string][]PeriodValue
}

// RawRow is one row of a disclosure table: a metric label and its values,
// most recent period first, paired with the period labels.
type RawRow struct {
	Name    string
	Periods []string
	Values  []string
}

const maxPeriods = 3

// Normalize builds a metric table from raw disclosure rows. Metrics absent
// from the input are simply omitted.
func Normalize(rows []RawRow) *Table {
	t := &Table{
		Metrics: make(map[MetricKey]Metric),
		Extra:   make(map[string][]PeriodValue),
	}

	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		values := coerceRow(row)
		if len(values) == 0 {
			continue
		}

		key, tracked := metricAliases[name]
		if !tracked {
			t.Extra[name] = values
			continue
		}
		// First alias match wins when a source repeats a metric.
		if _, dup := t.Metrics[key]; dup {
			continue
		}

		m := Metric{Key: key, Periods: values}
		m.UnitMismatch = mixedUnits(values)
		if !m.UnitMismatch {
			m.Delta, m.PctChange = periodDelta(values)
		}
		t.Metrics[key] = m
	}
	return t
}

// Get returns a tracked metric when at least one period was reported.
func (t *Table) Get(key MetricKey) (Metric, bool) {
	m, ok := t.Metrics[key]
	return m, ok
}

func coerceRow(row RawRow) []PeriodValue {
	n := len(row.Values)
	if n > maxPeriods {
		n = maxPeriods
	}
	out := make([]PeriodValue, 0, n)
	for i := 0; i < n; i++ {
		raw := strings.TrimSpace(row.Values[i])
		if raw == "" || raw == "-" || raw == "--" {
			continue
		}
		pv := PeriodValue{Raw: raw}
		if i < len(row.Periods) {
			pv.Period = strings.TrimSpace(row.Periods[i])
		}
		pv.Value, pv.Unit, pv.Numeric = coerceValue(raw)
		out = append(out, pv)
	}
	return out
}

// coerceValue strips thousands separators, a percent sign and a magnitude
// suffix, returning the numeric value alongside the unit annotation.
func coerceValue(raw string) (decimal.Decimal, Unit, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	unit := UnitNone

	switch {
	case strings.HasSuffix(s, string(UnitTrillion)):
		unit = UnitTrillion
		s = strings.TrimSuffix(s, string(UnitTrillion))
	case strings.HasSuffix(s, string(UnitHundredMillion)):
		unit = UnitHundredMillion
		s = strings.TrimSuffix(s, string(UnitHundredMillion))
	case strings.HasSuffix(s, string(UnitTenThousand)):
		unit = UnitTenThousand
		s = strings.TrimSuffix(s, string(UnitTenThousand))
	case strings.HasSuffix(s, "%"):
		unit = UnitPercent
		s = strings.TrimSuffix(s, "%")
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, unit, false
	}
	return v, unit, true
}

func mixedUnits(values []PeriodValue) bool {
	var first Unit
	seen := false
	for _, pv := range values {
		if !pv.Numeric {
			continue
		}
		if !seen {
			first = pv.Unit
			seen = true
			continue
		}
		if pv.Unit != first {
			return true
		}
	}
	return false
}

// periodDelta derives current-minus-prior and the percentage change when
// the two most recent periods are numeric and the prior one is non-zero.
func periodDelta(values []PeriodValue) (*decimal.Decimal, *decimal.Decimal) {
	if len(values) < 2 || !values[0].Numeric || !values[1].Numeric {
		return nil, nil
	}
	prior := values[1].Value
	if prior.IsZero() {
		return nil, nil
	}
	delta := values[0].Value.Sub(prior)
	pct := delta.Div(prior.Abs()).Mul(decimal.NewFromInt(100)).Round(2)
	return &delta, &pct
}
