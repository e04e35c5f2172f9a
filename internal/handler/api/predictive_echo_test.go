package api

import (
	"testing"

	models "EdgeLab/internal/domain/models"
)

func TestParseSegmentKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    models.SegmentKey
		wantErr bool
	}{
		{
			name: "global segment",
			in:   "crypto/1h/trend_up",
			want: models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeTrendUp},
		},
		{
			name: "pattern segment",
			in:   "equity/4h/bull_flag/all",
			want: models.SegmentKey{AssetClass: models.AssetEquity, Timeframe: "4h", Pattern: "bull_flag", Regime: models.RegimeAll},
		},
		{
			name: "leading and trailing slashes trimmed",
			in:   "/fx/1d/all/",
			want: models.SegmentKey{AssetClass: models.AssetFX, Timeframe: "1d", Regime: models.RegimeAll},
		},
		{
			name:    "too few parts",
			in:      "crypto/1h",
			wantErr: true,
		},
		{
			name:    "too many parts",
			in:      "crypto/1h/a/b/c",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSegmentKey(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSegmentKey(%q) expected error, got %+v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSegmentKey(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseSegmentKey(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
