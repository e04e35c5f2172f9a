package features

import (
	"fmt"
	"math"

	"EdgeLab/internal/domain/models"
)

const (
	// MinCandles covers the slow-EMA/MACD warm-up plus a usable tail of
	// bars for the rolling windows.
	MinCandles = 50

	fastPeriod = 10
	slowPeriod = 30
	rsiPeriod  = 14
	atrPeriod  = 14
	bollPeriod = 20
	volWindow  = 20
)

// Builder turns an ordered candle sequence into a fixed, named, ordered
// feature vector for the most recent bar. Pure function of its input;
// the feature set and order are identical between training and scoring.
type Builder struct{}

// NewBuilder creates a feature builder.
func NewBuilder() *Builder { return &Builder{} }

// Build computes the feature row for the latest candle. Candles must be
// ascending by bucket time. Returns models.ErrDataUnavailable when fewer
// than MinCandles bars are available after warm-up.
func (b *Builder) Build(candles []models.Candle) (*models.FeatureVector, error) {
	if len(candles) < MinCandles {
		return nil, fmt.Errorf("%w: have %d candles, need %d", models.ErrDataUnavailable, len(candles), MinCandles)
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}
	last := candles[len(candles)-1]
	if last.Close <= 0 {
		return nil, fmt.Errorf("%w: non-positive close", models.ErrDataUnavailable)
	}

	rets := ComputeLogReturns(candles)
	emaFast := EMA(closes, fastPeriod)
	emaSlow := EMA(closes, slowPeriod)
	macd, macdSignal, macdHist := MACD(closes, 12, 26, 9)

	fv := models.NewFeatureVector()
	fv.Set("ret_1", lastN(rets, 1))
	fv.Set("ret_5", sumLastN(rets, 5))
	fv.Set("ret_10", sumLastN(rets, 10))
	fv.Set("sma_ratio", ratio(last.Close, SMA(closes, bollPeriod)))
	fv.Set("ema_fast", ratio(emaFast, last.Close))
	fv.Set("ema_slow", ratio(emaSlow, last.Close))
	fv.Set("rsi_14", RSI(closes, rsiPeriod)/100)
	fv.Set("macd", safeDiv(macd, last.Close))
	fv.Set("macd_signal", safeDiv(macdSignal, last.Close))
	fv.Set("macd_hist", safeDiv(macdHist, last.Close))
	fv.Set("atr_norm", safeDiv(ATR(candles, atrPeriod), last.Close))
	pctB, bandwidth := Bollinger(closes, bollPeriod, 2)
	fv.Set("boll_pct_b", pctB)
	fv.Set("boll_bandwidth", bandwidth)
	fv.Set("realized_vol", RealizedVolatility(rets, volWindow))
	fv.Set("volume_ratio", ratio(last.Volume, SMA(volumes, volWindow)))

	// candle geometry
	rng := last.High - last.Low
	body := math.Abs(last.Close - last.Open)
	upper := last.High - math.Max(last.Open, last.Close)
	lower := math.Min(last.Open, last.Close) - last.Low
	fv.Set("body_range", safeDiv(body, rng))
	fv.Set("upper_wick", safeDiv(upper, rng))
	fv.Set("lower_wick", safeDiv(lower, rng))

	trend := 0.0
	if emaFast > emaSlow {
		trend = 1.0
	}
	fv.Set("trend_up", trend)

	// session flags
	hour := last.Bucket.UTC().Hour()
	fv.Set("hour_bucket", float64(hour/4))
	fv.Set("day_of_week", float64(last.Bucket.UTC().Weekday()))

	return fv, nil
}

func lastN(xs []float64, n int) float64 {
	if len(xs) < n {
		return 0
	}
	return xs[len(xs)-n]
}

func sumLastN(xs []float64, n int) float64 {
	if len(xs) < n {
		return 0
	}
	sum := 0.0
	for i := len(xs) - n; i < len(xs); i++ {
		sum += xs[i]
	}
	return sum
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 1
	}
	return a / b
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
