package tools

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/quantflow/stockpulse/internal/analysis"
	"github.com/quantflow/stockpulse/internal/dataflows"
	"github.com/quantflow/stockpulse/internal/fundamentals"
	"github.com/quantflow/stockpulse/internal/indicators"
	"github.com/quantflow/stockpulse/internal/market"
)

const divider = "----------------------------------------"

func renderQuote(name, symbol string, q *dataflows.Quote, floatShares float64, fallback bool) string {
	var b strings.Builder
	if fallback {
		fmt.Fprintf(&b, "Quote - %s (%s) [daily close, not realtime]\n", name, symbol)
	} else {
		fmt.Fprintf(&b, "Quote - %s (%s)\n", name, symbol)
	}
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "Price:       %.2f\n", q.Price)
	fmt.Fprintf(&b, "Change:      %+.2f (%+.2f%%)\n", q.Change, q.ChangePct)
	fmt.Fprintf(&b, "Open:        %.2f\n", q.Open)
	fmt.Fprintf(&b, "Prev close:  %.2f\n", q.PrevClose)
	fmt.Fprintf(&b, "High:        %.2f\n", q.High)
	fmt.Fprintf(&b, "Low:         %.2f\n", q.Low)
	fmt.Fprintf(&b, "Volume:      %s\n", formatVolume(q.Volume))
	if q.Amount > 0 {
		fmt.Fprintf(&b, "Turnover:    %s\n", formatCNY(q.Amount))
	}
	if floatShares > 0 {
		fmt.Fprintf(&b, "Turnover %%:  %.2f%%\n", q.Volume/floatShares*100)
	}
	if q.PrevClose > 0 && !fallback {
		band := limitBand(symbol)
		fmt.Fprintf(&b, "Limit up/dn: %.2f / %.2f\n", q.PrevClose*(1+band), q.PrevClose*(1-band))
	}
	if q.Time != "" {
		fmt.Fprintf(&b, "As of:       %s %s\n", q.Date, q.Time)
	} else {
		fmt.Fprintf(&b, "As of:       %s\n", q.Date)
	}
	b.WriteString(divider + "\n")
	return b.String()
}

func renderIndicators(name, symbol string, series market.Series, set *indicators.Set) string {
	snap := set.Latest(series)
	last := len(series) - 1

	var b strings.Builder
	fmt.Fprintf(&b, "Technical indicators - %s (%s)  %s\n", name, symbol, snap.Date)
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "Close: %.2f\n\n", snap.Close)

	b.WriteString("[Moving averages]\n")
	fmt.Fprintf(&b, "MA5:  %s  MA10: %s\n", fmtNum(snap.MA5), fmtNum(snap.MA10))
	fmt.Fprintf(&b, "MA20: %s  MA60: %s\n", fmtNum(snap.MA20), fmtNum(snap.MA60))
	fmt.Fprintf(&b, "Signal: %s\n\n", alignmentText(set.MAAlignment(last)))

	b.WriteString("[MACD]\n")
	fmt.Fprintf(&b, "DIF: %.4f  DEA: %.4f  MACD: %.4f\n", snap.DIF, snap.DEA, snap.MACD)
	fmt.Fprintf(&b, "Signal: %s\n\n", macdText(set, last))

	b.WriteString("[KDJ]\n")
	fmt.Fprintf(&b, "K: %.2f  D: %.2f  J: %.2f\n", snap.K, snap.D, snap.J)
	fmt.Fprintf(&b, "Signal: %s\n\n", kdjText(set, last, snap))

	b.WriteString("[RSI]\n")
	fmt.Fprintf(&b, "RSI14: %s\n", fmtNum(snap.RSI))
	fmt.Fprintf(&b, "Signal: %s\n\n", rsiText(snap.RSI))

	b.WriteString("[Bollinger bands]\n")
	fmt.Fprintf(&b, "Upper: %s  Mid: %s  Lower: %s\n",
		fmtNum(snap.BollUpper), fmtNum(snap.BollMid), fmtNum(snap.BollLower))
	fmt.Fprintf(&b, "Signal: %s\n", bollText(snap))
	b.WriteString(divider + "\n")
	return b.String()
}

func alignmentText(a indicators.Alignment) string {
	switch a {
	case indicators.AlignBullish:
		return "bullish alignment (MA5 > MA10 > MA20), short-term strength"
	case indicators.AlignBearish:
		return "bearish alignment (MA5 < MA10 < MA20), short-term weakness"
	default:
		return "averages entangled, no clear short-term direction"
	}
}

func macdText(set *indicators.Set, last int) string {
	switch set.MACDCross(last) {
	case indicators.CrossGolden:
		return "golden cross, momentum turning up"
	case indicators.CrossDeath:
		return "death cross, momentum turning down"
	}
	if set.DIF[last] > set.DEA[last] {
		if set.DIF[last] > 0 {
			return "DIF above DEA over the zero axis, bull territory"
		}
		return "DIF above DEA below the zero axis, rebound phase"
	}
	if set.DIF[last] < 0 {
		return "DIF below DEA under the zero axis, bear territory"
	}
	return "DIF below DEA above the zero axis, pullback phase"
}

// limitBand returns the daily price-limit fraction for a symbol's board:
// 20% for ChiNext and STAR (30x/68x codes), 30% for Beijing, 10%
// otherwise. ST status is not derivable from the code alone.
func limitBand(symbol string) float64 {
	code := market.BareCode(symbol)
	switch {
	case strings.HasPrefix(strings.ToLower(symbol), "bj"):
		return 0.30
	case strings.HasPrefix(code, "30"), strings.HasPrefix(code, "68"):
		return 0.20
	default:
		return 0.10
	}
}

func kdjText(set *indicators.Set, last int, snap indicators.Snapshot) string {
	switch set.KDJCross(last) {
	case indicators.CrossGolden:
		return "K crossed above D, short-term buy signal"
	case indicators.CrossDeath:
		return "K crossed below D, short-term sell signal"
	}
	switch {
	case snap.K > indicators.KDJOverbought:
		return "overbought zone, pullback risk"
	case snap.K < indicators.KDJOversold:
		return "oversold zone, rebound potential"
	default:
		return "neutral zone"
	}
}

func rsiText(rsi float64) string {
	switch {
	case math.IsNaN(rsi):
		return "not enough history"
	case rsi > indicators.RSIOverbought:
		return "overbought, pullback risk"
	case rsi < indicators.RSIOversold:
		return "oversold, rebound potential"
	default:
		return "neutral zone"
	}
}

func bollText(snap indicators.Snapshot) string {
	switch {
	case math.IsNaN(snap.BollUpper):
		return "not enough history"
	case snap.Close > snap.BollUpper:
		return "close above the upper band, stretched short term"
	case snap.Close < snap.BollLower:
		return "close below the lower band, oversold short term"
	case snap.Close > snap.BollMid:
		return "running between the mid and upper band, firm"
	default:
		return "running between the mid and lower band, soft"
	}
}

func renderNews(name, symbol string, news *dataflows.NewsResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "News & announcements - %s (%s)\n%s\n", name, symbol, divider)
	if news.SummariesUnavailable {
		b.WriteString("Note: article summaries are temporarily unavailable, titles only\n\n")
	}
	for i, item := range news.Items {
		kind := "news"
		if item.Notice {
			kind = "notice"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, kind, item.Title)
		if item.Source != "" || item.Time != "" {
			fmt.Fprintf(&b, "   %s %s\n", item.Source, item.Time)
		}
		if item.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", item.Summary)
		}
		fmt.Fprintf(&b, "   %s\n", item.URL)
	}
	b.WriteString(divider + "\n")
	return b.String()
}

// financialGroups orders metrics into report sections.
var financialGroups = []struct {
	title string
	keys  []fundamentals.MetricKey
}{
	{"Profitability", []fundamentals.MetricKey{
		fundamentals.MetricRevenue, fundamentals.MetricNetProfit,
		fundamentals.MetricRevenueGrowth, fundamentals.MetricNetProfitGrowth,
		fundamentals.MetricROE, fundamentals.MetricGrossMargin, fundamentals.MetricNetMargin,
	}},
	{"Per share", []fundamentals.MetricKey{
		fundamentals.MetricEPS, fundamentals.MetricBVPS, fundamentals.MetricOCFPS,
	}},
	{"Solvency", []fundamentals.MetricKey{
		fundamentals.MetricDebtRatio, fundamentals.MetricCurrentRatio, fundamentals.MetricQuickRatio,
	}},
	{"Efficiency", []fundamentals.MetricKey{
		fundamentals.MetricInventoryDays, fundamentals.MetricReceivableDays,
	}},
}

func renderFinancials(name, symbol string, table *fundamentals.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Financial summary - %s (%s)\n%s\n", name, symbol, divider)

	for _, group := range financialGroups {
		lines := make([]string, 0, len(group.keys))
		for _, key := range group.keys {
			m, ok := table.Get(key)
			if !ok || len(m.Periods) == 0 {
				continue
			}
			lines = append(lines, formatMetric(m))
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n[%s]\n", group.title)
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
	}

	if extra := extraNames(table); len(extra) > 0 {
		b.WriteString("\n[Other reported items]\n")
		for _, name := range extra {
			values := table.Extra[name]
			fmt.Fprintf(&b, "%s: %s (%s)\n", name, values[0].Raw, values[0].Period)
		}
	}

	if judgments := judge(table); len(judgments) > 0 {
		b.WriteString("\n[Assessment]\n")
		for _, j := range judgments {
			b.WriteString(j + "\n")
		}
	}
	b.WriteString(divider + "\n")
	return b.String()
}

func formatMetric(m fundamentals.Metric) string {
	latest := m.Periods[0]
	line := fmt.Sprintf("%s: %s (%s)", m.Key.Label(), latest.Raw, latest.Period)
	switch {
	case m.UnitMismatch:
		line += "  [units differ across periods, change not comparable]"
	case m.Delta != nil && m.PctChange != nil:
		sign := ""
		if m.Delta.IsPositive() {
			sign = "+"
		}
		line += fmt.Sprintf("  QoQ %s%s (%s%%)", sign, m.Delta.String(), m.PctChange.String())
	}
	return line
}

func extraNames(table *fundamentals.Table) []string {
	names := make([]string, 0, len(table.Extra))
	for name, values := range table.Extra {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// judge derives the qualitative one-liners from the latest numeric values.
func judge(table *fundamentals.Table) []string {
	var out []string

	if v, ok := latestNumeric(table, fundamentals.MetricROE); ok {
		switch {
		case v > 15:
			out = append(out, "ROE above 15%: excellent capital efficiency")
		case v > 10:
			out = append(out, "ROE above 10%: good capital efficiency")
		case v > 5:
			out = append(out, "ROE above 5%: fair capital efficiency")
		default:
			out = append(out, "ROE at or below 5%: weak capital efficiency")
		}
	}

	if v, ok := latestNumeric(table, fundamentals.MetricDebtRatio); ok {
		switch {
		case v < 40:
			out = append(out, "Debt ratio under 40%: conservative balance sheet")
		case v < 60:
			out = append(out, "Debt ratio under 60%: reasonable leverage")
		default:
			out = append(out, "Debt ratio at 60% or above: elevated leverage, watch solvency")
		}
	}

	if v, ok := latestNumeric(table, fundamentals.MetricNetProfitGrowth); ok {
		switch {
		case v > 20:
			out = append(out, "Net profit growing over 20% YoY: rapid expansion")
		case v > 0:
			out = append(out, "Net profit growing YoY")
		case v > -20:
			out = append(out, "Net profit declining YoY")
		default:
			out = append(out, "Net profit down over 20% YoY: sharp deterioration")
		}
	}
	return out
}

func latestNumeric(table *fundamentals.Table, key fundamentals.MetricKey) (float64, bool) {
	m, ok := table.Get(key)
	if !ok {
		return 0, false
	}
	for _, pv := range m.Periods {
		if pv.Numeric {
			f, _ := pv.Value.Float64()
			return f, true
		}
	}
	return 0, false
}

func renderTrend(name, symbol string, series market.Series, set *indicators.Set, a *analysis.Assessment) string {
	last := len(series) - 1

	var b strings.Builder
	fmt.Fprintf(&b, "Trend analysis - %s (%s)  %s\n%s\n", name, symbol, a.LatestDate, divider)
	fmt.Fprintf(&b, "Current price: %.2f\n\n", a.CurrentPrice)

	b.WriteString("[Price action]\n")
	fmt.Fprintf(&b, "5-day:  %+.2f%%\n", a.Change5d)
	fmt.Fprintf(&b, "10-day: %+.2f%%\n", a.Change10d)
	fmt.Fprintf(&b, "20-day: %+.2f%%\n", a.Change20d)
	fmt.Fprintf(&b, "Direction: %s\n\n", a.Direction)

	b.WriteString("[Moving averages]\n")
	fmt.Fprintf(&b, "MA5: %s  MA10: %s  MA20: %s  MA60: %s\n",
		fmtNum(set.MA5[last]), fmtNum(set.MA10[last]), fmtNum(set.MA20[last]), fmtNum(set.MA60[last]))
	fmt.Fprintf(&b, "Alignment: %s\n\n", alignmentText(a.Alignment))

	b.WriteString("[Key levels]\n")
	fmt.Fprintf(&b, "Resistance: %.2f (20-day high)", a.Resistance)
	if a.NearResistance {
		b.WriteString("  <- price is testing this level")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Secondary resistance: %s (MA20)\n", fmtNum(a.SecondaryResistance))
	fmt.Fprintf(&b, "Support: %.2f (20-day low)", a.Support)
	if a.NearSupport {
		b.WriteString("  <- price is testing this level")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Secondary support: %s (MA60)\n\n", fmtNum(a.SecondarySupport))

	b.WriteString("[Volume]\n")
	fmt.Fprintf(&b, "Latest vs 20-day average: %.2fx\n", a.VolumeRatio)
	fmt.Fprintf(&b, "Volume MA5: %s  MA20: %s\n\n", formatVolume(a.VolumeMA5), formatVolume(a.VolumeMA20))

	b.WriteString("[Verdict]\n")
	fmt.Fprintf(&b, "Trend score: %d/100  %s\n", a.Score, stars(a.Score))
	fmt.Fprintf(&b, "Rating: %s\n", a.Rating)
	fmt.Fprintf(&b, "Strategy note: %s\n", strategyText(a))
	b.WriteString(divider + "\n")
	return b.String()
}

func stars(score int) string {
	n := score / 20
	if n < 1 {
		n = 1
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func strategyText(a *analysis.Assessment) string {
	switch {
	case a.Score >= 70:
		return fmt.Sprintf("trend is strong; holders can stay with it, with a stop near support at %.2f", a.Support)
	case a.Score >= 50:
		return fmt.Sprintf("trend is undecided; keep positions light until the %.2f-%.2f range resolves", a.Support, a.Resistance)
	default:
		return fmt.Sprintf("trend is weak; protect capital, a close below support at %.2f opens further downside", a.Support)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func fmtNum(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// formatCNY renders a yuan amount with the customary magnitude suffix.
func formatCNY(v float64) string {
	switch {
	case v <= 0:
		return "N/A"
	case v >= 1e12:
		return fmt.Sprintf("%.2f万亿", v/1e12)
	case v >= 1e8:
		return fmt.Sprintf("%.2f亿", v/1e8)
	case v >= 1e4:
		return fmt.Sprintf("%.2f万", v/1e4)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func formatRatio(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}

// formatVolume renders a share count with the customary magnitude suffix.
func formatVolume(v float64) string {
	switch {
	case v >= 1e8:
		return fmt.Sprintf("%.2f亿", v/1e8)
	case v >= 1e4:
		return fmt.Sprintf("%.2f万", v/1e4)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
