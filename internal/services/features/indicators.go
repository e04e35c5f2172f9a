package features

import (
	"math"

	"EdgeLab/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes the sample standard deviation of the
// latest window of log returns. Returns 0 when the window is not filled.
func RealizedVolatility(logReturns []float64, window int) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// SMA returns the simple moving average of the latest period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average over the whole series,
// seeded with the first value, alpha = 2/(period+1).
func EMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	alpha := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = ema*(1-alpha) + v*alpha
	}
	return ema
}

// emaSeries returns the full EMA series for MACD signal computation.
func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1]*(1-alpha) + values[i]*alpha
	}
	return out
}

// RSI computes the Wilder relative strength index of the latest bar.
// Returns 50 while the series is shorter than period+1.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line, signal line, and histogram for the latest
// bar using the standard 12/26/9 parameterization.
func MACD(closes []float64, fast, slow, signal int) (float64, float64, float64) {
	if len(closes) < slow+signal {
		return 0, 0, 0
	}
	fastS := emaSeries(closes, fast)
	slowS := emaSeries(closes, slow)
	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fastS[i] - slowS[i]
	}
	signalS := emaSeries(macdLine, signal)
	last := len(closes) - 1
	return macdLine[last], signalS[last], macdLine[last] - signalS[last]
}

// ATR computes the average true range of the latest period bars.
func ATR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		tr := candles[i].High - candles[i].Low
		if prev := candles[i-1].Close; prev > 0 {
			tr = math.Max(tr, math.Max(math.Abs(candles[i].High-prev), math.Abs(candles[i].Low-prev)))
		}
		sum += tr
	}
	return sum / float64(period)
}

// Bollinger returns %B and bandwidth for the latest bar (period, k stddevs).
func Bollinger(closes []float64, period int, k float64) (pctB, bandwidth float64) {
	if period <= 1 || len(closes) < period {
		return 0.5, 0
	}
	mid := SMA(closes, period)
	sumSq := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - mid
		sumSq += d * d
	}
	sd := math.Sqrt(sumSq / float64(period))
	upper := mid + k*sd
	lower := mid - k*sd
	last := closes[len(closes)-1]
	if upper == lower {
		return 0.5, 0
	}
	pctB = (last - lower) / (upper - lower)
	if mid != 0 {
		bandwidth = (upper - lower) / mid
	}
	return pctB, bandwidth
}
