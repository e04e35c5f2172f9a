package models

import "strings"

// AssetClass is the coarse instrument family of a symbol.
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetCrypto AssetClass = "crypto"
	AssetFX     AssetClass = "fx"
)

// Regime is the coarse trend classification derived from moving-average
// ordering. RegimeAll doubles as the fallback namespace trained on all
// regimes of a segment.
type Regime string

const (
	RegimeTrendUp   Regime = "trend_up"
	RegimeTrendDown Regime = "trend_down"
	RegimeAll       Regime = "all"
)

// SegmentKey identifies the scope of one trained model. Pattern is empty
// for global bundles and set only for pattern-specific bundles.
type SegmentKey struct {
	AssetClass AssetClass `json:"asset_class"`
	Timeframe  string     `json:"timeframe"`
	Regime     Regime     `json:"regime"`
	Pattern    string     `json:"pattern,omitempty"`
}

// WithRegime returns a copy of the key with the regime replaced.
func (k SegmentKey) WithRegime(r Regime) SegmentKey {
	k.Regime = r
	return k
}

// WithPattern returns a copy of the key with the pattern set.
func (k SegmentKey) WithPattern(p string) SegmentKey {
	k.Pattern = p
	return k
}

// Global returns the key with the pattern dimension stripped.
func (k SegmentKey) Global() SegmentKey {
	k.Pattern = ""
	return k
}

// String renders the key as a stable slash-separated identifier, used
// for logging, metrics labels, and online-state file names.
func (k SegmentKey) String() string {
	parts := []string{string(k.AssetClass), k.Timeframe}
	if k.Pattern != "" {
		parts = append(parts, k.Pattern)
	}
	parts = append(parts, string(k.Regime))
	return strings.Join(parts, "/")
}
