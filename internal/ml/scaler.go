package ml

import "math"

// StandardScaler applies z-score normalization. Fields are exported so a
// fitted scaler round-trips through JSON with its model.
type StandardScaler struct {
	Means   []float64 `json:"means"`
	Stddevs []float64 `json:"stddevs"`
	Fitted  bool      `json:"fitted"`
}

// NewStandardScaler creates an unfitted scaler for numFeatures columns.
func NewStandardScaler(numFeatures int) *StandardScaler {
	return &StandardScaler{
		Means:   make([]float64, numFeatures),
		Stddevs: make([]float64, numFeatures),
	}
}

// Fit computes per-column mean and standard deviation.
func (s *StandardScaler) Fit(data [][]float64) {
	if len(data) == 0 {
		return
	}
	n := len(data[0])
	if len(s.Means) != n {
		s.Means = make([]float64, n)
		s.Stddevs = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, row := range data {
			sum += row[i]
		}
		s.Means[i] = sum / float64(len(data))
	}
	for i := 0; i < n; i++ {
		sumSq := 0.0
		for _, row := range data {
			d := row[i] - s.Means[i]
			sumSq += d * d
		}
		s.Stddevs[i] = math.Sqrt(sumSq / float64(len(data)))
		if s.Stddevs[i] < 1e-10 {
			s.Stddevs[i] = 1.0
		}
	}
	s.Fitted = true
}

// Transform normalizes one row. Unfitted scalers pass values through.
func (s *StandardScaler) Transform(x []float64) []float64 {
	if !s.Fitted || len(x) != len(s.Means) {
		return x
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Means[i]) / s.Stddevs[i]
	}
	return out
}
