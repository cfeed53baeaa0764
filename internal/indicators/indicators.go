// Package indicators derives technical-analysis series from a candle
// series. All computations are pure; KDJ is the only recurrence and is
// written as an explicit fold over the raw stochastic values.
package indicators

import (
	"errors"
	"fmt"
	"math"

	"github.com/quantflow/stockpulse/internal/market"
)

// MinPeriods is the minimum candle history required before any indicator
// set is computed.
const MinPeriods = 60

// ErrInsufficientData is returned when a series is shorter than MinPeriods.
var ErrInsufficientData = errors.New("insufficient data")

// Set holds every derived series aligned index-for-index with the source
// candle series. Entries where a rolling window is not yet filled are NaN,
// except K/D/J which are defined from the start via the 50/50 seed.
type Set struct {
	MA5  []float64
	MA10 []float64
	MA20 []float64
	MA60 []float64

	DIF  []float64
	DEA  []float64
	MACD []float64

	K []float64
	D []float64
	J []float64

	RSI []float64

	BollUpper []float64
	BollMid   []float64
	BollLower []float64
}

// Snapshot is the latest value of each derived series.
type Snapshot struct {
	Date  string
	Close float64

	MA5, MA10, MA20, MA60 float64
	DIF, DEA, MACD        float64
	K, D, J               float64
	RSI                   float64
	BollUpper             float64
	BollMid               float64
	BollLower             float64
}

// Compute derives the full indicator set for a series. Fails with
// ErrInsufficientData below MinPeriods rather than attempting a degraded
// computation.
func Compute(s market.Series) (*Set, error) {
	if len(s) < MinPeriods {
		return nil, fmt.Errorf("%w: need at least %d periods, have %d", ErrInsufficientData, MinPeriods, len(s))
	}

	closes := s.Closes()
	highs := s.Highs()
	lows := s.Lows()

	set := &Set{
		MA5:  MA(closes, 5),
		MA10: MA(closes, 10),
		MA20: MA(closes, 20),
		MA60: MA(closes, 60),
		RSI:  RSI(closes, 14),
	}
	set.DIF, set.DEA, set.MACD = MACD(closes)
	set.K, set.D, set.J = KDJ(highs, lows, closes, 9)
	set.BollUpper, set.BollMid, set.BollLower = Boll(closes, 20, 2)
	return set, nil
}

// Latest returns the snapshot at the last index of the source series.
func (set *Set) Latest(s market.Series) Snapshot {
	i := len(s) - 1
	return Snapshot{
		Date:      s[i].Date,
		Close:     s[i].Close,
		MA5:       set.MA5[i],
		MA10:      set.MA10[i],
		MA20:      set.MA20[i],
		MA60:      set.MA60[i],
		DIF:       set.DIF[i],
		DEA:       set.DEA[i],
		MACD:      set.MACD[i],
		K:         set.K[i],
		D:         set.D[i],
		J:         set.J[i],
		RSI:       set.RSI[i],
		BollUpper: set.BollUpper[i],
		BollMid:   set.BollMid[i],
		BollLower: set.BollLower[i],
	}
}

// MA computes a simple rolling mean; the first n-1 entries are NaN.
func MA(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA computes an exponential moving average with smoothing 2/(span+1),
// seeded directly from the first value.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	ema := values[0]
	out[0] = ema
	for i := 1; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		out[i] = ema
	}
	return out
}

// MACD returns the DIF (EMA12−EMA26), DEA (9-period EMA of DIF) and the
// doubled histogram series.
func MACD(closes []float64) (dif, dea, macd []float64) {
	ema12 := EMA(closes, 12)
	ema26 := EMA(closes, 26)

	dif = make([]float64, len(closes))
	for i := range closes {
		dif[i] = ema12[i] - ema26[i]
	}
	dea = EMA(dif, 9)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = 2 * (dif[i] - dea[i])
	}
	return dif, dea, macd
}

// KDJ computes the stochastic K/D/J lines over an n-period window. The raw
// stochastic value defaults to 50 while the window is unfilled or when the
// high-low range is zero. K and D follow the standard 2/3-1/3 recurrence
// from a 50/50 seed, expressed as a fold carrying the (K, D) pair.
func KDJ(highs, lows, closes []float64, n int) (k, d, j []float64) {
	size := len(closes)
	k = make([]float64, size)
	d = make([]float64, size)
	j = make([]float64, size)

	prevK, prevD := 50.0, 50.0
	for i := 0; i < size; i++ {
		rsv := 50.0
		if i >= n-1 {
			lowest, highest := lows[i], highs[i]
			for w := i - n + 1; w <= i; w++ {
				if lows[w] < lowest {
					lowest = lows[w]
				}
				if highs[w] > highest {
					highest = highs[w]
				}
			}
			if highest > lowest {
				rsv = (closes[i] - lowest) / (highest - lowest) * 100
			}
		}

		if i == 0 {
			k[i], d[i] = 50, 50
		} else {
			k[i] = 2.0/3.0*prevK + 1.0/3.0*rsv
			d[i] = 2.0/3.0*prevD + 1.0/3.0*k[i]
		}
		j[i] = 3*k[i] - 2*d[i]
		prevK, prevD = k[i], d[i]
	}
	return k, d, j
}

// RSI computes the n-period relative strength index over close deltas.
// When the window holds no losses the value is clamped to 100 rather than
// propagating an unbounded ratio. Entries before the window fills are NaN.
func RSI(closes []float64, n int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) <= n {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(closes); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > n {
			gainSum -= gains[i-n]
			lossSum -= losses[i-n]
		}
		if i < n {
			continue
		}
		if lossSum == 0 {
			out[i] = 100
			continue
		}
		rs := (gainSum / float64(n)) / (lossSum / float64(n))
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// Boll computes Bollinger Bands: an n-period mean with bands at ±width
// sample standard deviations. Undefined (NaN) until n periods exist.
func Boll(closes []float64, n int, width float64) (upper, mid, lower []float64) {
	mid = MA(closes, n)
	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))
	if len(closes) < n || n < 2 {
		return upper, mid, lower
	}

	for i := n - 1; i < len(closes); i++ {
		var sq float64
		for w := i - n + 1; w <= i; w++ {
			diff := closes[w] - mid[i]
			sq += diff * diff
		}
		// Sample standard deviation, matching the rolling-window convention.
		sd := math.Sqrt(sq / float64(n-1))
		upper[i] = mid[i] + width*sd
		lower[i] = mid[i] - width*sd
	}
	return upper, mid, lower
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
