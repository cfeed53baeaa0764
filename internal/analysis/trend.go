// Package analysis produces the composite trend assessment used by the
// trend report: a bounded score, an ordinal rating and key price levels.
package analysis

import (
	"fmt"

	"github.com/quantflow/stockpulse/internal/indicators"
	"github.com/quantflow/stockpulse/internal/market"
)

// Rating is the ordinal category derived from the trend score.
type Rating string

const (
	RatingStrongBullish  Rating = "strong bullish"
	RatingLeaningBullish Rating = "leaning bullish"
	RatingNeutral        Rating = "neutral"
	RatingLeaningBearish Rating = "leaning bearish"
	RatingStrongBearish  Rating = "strong bearish"
)

// Assessment is the per-request trend bundle. It is recomputed on every
// call and never persisted.
type Assessment struct {
	Score     int
	Rating    Rating
	Direction string

	CurrentPrice float64
	LatestDate   string

	Change5d  float64
	Change10d float64
	Change20d float64

	Resistance          float64 // max high over trailing 20 periods
	SecondaryResistance float64 // MA20
	Support             float64 // min low over trailing 20 periods
	SecondarySupport    float64 // MA60

	NearResistance bool
	NearSupport    bool

	VolumeRatio float64
	VolumeMA5   float64
	VolumeMA20  float64

	Alignment indicators.Alignment
}

// proximityBand is the fraction of a level within which the price counts
// as "near" that level.
const proximityBand = 0.02

// AssessTrend scores a series of at least indicators.MinPeriods candles.
// currentPrice should be the live tradable price when available; pass a
// non-positive value to fall back to the last close.
func AssessTrend(series market.Series, set *indicators.Set, currentPrice float64) (*Assessment, error) {
	if len(series) < indicators.MinPeriods {
		return nil, fmt.Errorf("%w: need at least %d periods, have %d",
			indicators.ErrInsufficientData, indicators.MinPeriods, len(series))
	}

	last := len(series) - 1
	if currentPrice <= 0 {
		currentPrice = series[last].Close
	}

	a := &Assessment{
		CurrentPrice:        currentPrice,
		LatestDate:          series[last].Date,
		Change5d:            changePct(series, 5),
		Change10d:           changePct(series, 10),
		Change20d:           changePct(series, 20),
		SecondaryResistance: set.MA20[last],
		SecondarySupport:    set.MA60[last],
		Alignment:           set.MAAlignment(last),
	}

	recent := series.Tail(20)
	a.Resistance = recent[0].High
	a.Support = recent[0].Low
	for _, c := range recent {
		if c.High > a.Resistance {
			a.Resistance = c.High
		}
		if c.Low < a.Support {
			a.Support = c.Low
		}
	}
	a.NearResistance = currentPrice > a.Resistance*(1-proximityBand)
	a.NearSupport = currentPrice < a.Support*(1+proximityBand)

	volumes := series.Volumes()
	volMA5 := indicators.MA(volumes, 5)
	volMA20 := indicators.MA(volumes, 20)
	a.VolumeMA5 = volMA5[last]
	a.VolumeMA20 = volMA20[last]
	a.VolumeRatio = 1
	if volMA20[last] > 0 {
		a.VolumeRatio = volumes[last] / volMA20[last]
	}

	a.Score = score(a, set, last)
	a.Rating = rate(a.Score)
	a.Direction = direction(a.Change5d, a.Change10d)
	return a, nil
}

func score(a *Assessment, set *indicators.Set, last int) int {
	s := 50

	switch a.Alignment {
	case indicators.AlignBullish:
		s += 15
	case indicators.AlignBearish:
		s -= 15
	}

	if a.CurrentPrice > set.MA20[last] {
		s += 10
	} else {
		s -= 10
	}
	if a.CurrentPrice > set.MA60[last] {
		s += 10
	} else {
		s -= 10
	}

	if a.Change5d > 5 {
		s += 10
	} else if a.Change5d < -5 {
		s -= 10
	}

	if a.VolumeRatio > 1.5 {
		if a.Change5d > 0 {
			s += 5
		} else {
			s -= 5
		}
	}

	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return s
}

func rate(score int) Rating {
	switch {
	case score >= 80:
		return RatingStrongBullish
	case score >= 65:
		return RatingLeaningBullish
	case score >= 50:
		return RatingNeutral
	case score >= 35:
		return RatingLeaningBearish
	default:
		return RatingStrongBearish
	}
}

func direction(chg5, chg10 float64) string {
	switch {
	case chg5 > 3 && chg10 > 5:
		return "strong short-term uptrend"
	case chg5 > 0 && chg10 > 0:
		return "mild uptrend"
	case chg5 < -3 && chg10 < -5:
		return "marked short-term downtrend"
	case chg5 < 0 && chg10 < 0:
		return "mild downtrend"
	default:
		return "sideways consolidation"
	}
}

// changePct is the percentage return over the trailing n periods, zero when
// history is too short or the reference close is non-positive.
func changePct(series market.Series, n int) float64 {
	last := len(series) - 1
	ref := last - n
	if ref < 0 {
		return 0
	}
	base := series[ref].Close
	if base <= 0 {
		return 0
	}
	return (series[last].Close/base - 1) * 100
}
