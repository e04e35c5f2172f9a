package segment

import (
	"strings"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
)

// Resolver derives a segment key from a symbol, timeframe, and the
// current feature row. Deterministic and side-effect free.
type Resolver struct{}

// NewResolver creates a segment resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve builds the global segment key for a symbol. The regime is read
// from the moving-average ordering in the feature row and degrades to
// RegimeAll when the indicators are unavailable.
func (r *Resolver) Resolve(symbol string, tf domrepo.Timeframe, fv *models.FeatureVector) models.SegmentKey {
	return models.SegmentKey{
		AssetClass: ClassifySymbol(symbol),
		Timeframe:  string(tf),
		Regime:     resolveRegime(fv),
	}
}

// ClassifySymbol maps a symbol to an asset class using naming
// conventions: pair separators and stable-quote suffixes mark crypto,
// six-letter currency pairs (optionally with a "=X" suffix) mark fx,
// and everything else is treated as an equity ticker.
func ClassifySymbol(symbol string) models.AssetClass {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return models.AssetEquity
	}
	if strings.ContainsAny(s, "/-") {
		base, quote := splitPair(s)
		if isFiat(base) && isFiat(quote) {
			return models.AssetFX
		}
		return models.AssetCrypto
	}
	if strings.HasSuffix(s, "USDT") || strings.HasSuffix(s, "USDC") || strings.HasSuffix(s, "BTC") {
		return models.AssetCrypto
	}
	if strings.HasSuffix(s, "=X") {
		return models.AssetFX
	}
	if len(s) == 6 && isFiat(s[:3]) && isFiat(s[3:]) {
		return models.AssetFX
	}
	return models.AssetEquity
}

func splitPair(s string) (string, string) {
	for _, sep := range []string{"/", "-"} {
		if i := strings.Index(s, sep); i > 0 {
			return s[:i], s[i+len(sep):]
		}
	}
	return s, ""
}

var fiatCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
	"AUD": true, "CAD": true, "NZD": true, "SEK": true, "NOK": true,
}

func isFiat(code string) bool { return fiatCodes[code] }

func resolveRegime(fv *models.FeatureVector) models.Regime {
	if fv == nil {
		return models.RegimeAll
	}
	fast, okFast := fv.Get("ema_fast")
	slow, okSlow := fv.Get("ema_slow")
	if !okFast || !okSlow {
		return models.RegimeAll
	}
	if fast > slow {
		return models.RegimeTrendUp
	}
	return models.RegimeTrendDown
}
