package models

import "time"

// Candle represents an OHLCV record for feature engineering and training.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Outcome is one realized trade result from the outcome log.
// Label() is the training target: 1 for a winning trade, 0 otherwise.
type Outcome struct {
	Symbol     string
	Pattern    string
	Timeframe  string
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Quantity   float64
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// Label returns the binary training target for the outcome.
func (o Outcome) Label() int {
	if o.PnL > 0 {
		return 1
	}
	return 0
}
