package models

// Requests for the scoring HTTP endpoints. Defined in domain for consistency and reuse.

type TrainRequest struct {
	Lookback string `query:"lookback" json:"lookback" default:"720h" validate:"required"`
}

type ScoreRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"oneof=15m 1h 4h 1d"`
}

type PatternScoreRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required"`
	TF      string `query:"tf" json:"tf" default:"1h" validate:"oneof=15m 1h 4h 1d"`
	Pattern string `query:"pattern" json:"pattern" validate:"required"`
}

type FuseRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Regime string `query:"regime" json:"regime" default:"all" validate:"oneof=trend_up trend_down all"`
}

type OnlineStatsRequest struct {
	Segment string `query:"segment" json:"segment"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"oneof=15m 1h 4h 1d"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=0,lte=50000"`
}

type StreamRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Regime   string `query:"regime" json:"regime" default:"all" validate:"oneof=trend_up trend_down all"`
	Interval string `query:"interval" json:"interval" default:"5s"`
}
