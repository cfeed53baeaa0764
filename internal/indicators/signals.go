package indicators

// Alignment labels the relative order of the short moving averages.
type Alignment string

const (
	AlignBullish Alignment = "bullish"
	AlignBearish Alignment = "bearish"
	AlignMixed   Alignment = "mixed"
)

// Cross labels a DIF/DEA or K/D crossover between the last two periods.
type Cross string

const (
	CrossGolden Cross = "golden"
	CrossDeath  Cross = "death"
	CrossNone   Cross = "none"
)

// MAAlignment classifies the moving-average stack at index i: bullish only
// when MA5 > MA10 > MA20 strictly, bearish when strictly reversed.
func (set *Set) MAAlignment(i int) Alignment {
	switch {
	case set.MA5[i] > set.MA10[i] && set.MA10[i] > set.MA20[i]:
		return AlignBullish
	case set.MA5[i] < set.MA10[i] && set.MA10[i] < set.MA20[i]:
		return AlignBearish
	default:
		return AlignMixed
	}
}

// MACDCross detects a DIF/DEA sign change between index i-1 and i.
func (set *Set) MACDCross(i int) Cross {
	if i < 1 {
		return CrossNone
	}
	return detectCross(set.DIF[i-1]-set.DEA[i-1], set.DIF[i]-set.DEA[i])
}

// KDJCross detects a K/D crossover between index i-1 and i.
func (set *Set) KDJCross(i int) Cross {
	if i < 1 {
		return CrossNone
	}
	return detectCross(set.K[i-1]-set.D[i-1], set.K[i]-set.D[i])
}

func detectCross(prev, curr float64) Cross {
	switch {
	case curr > 0 && prev <= 0:
		return CrossGolden
	case curr < 0 && prev >= 0:
		return CrossDeath
	default:
		return CrossNone
	}
}

// Overbought/oversold thresholds used by report formatting.
const (
	KDJOverbought = 80.0
	KDJOversold   = 20.0
	RSIOverbought = 70.0
	RSIOversold   = 30.0
)
