package ml

import (
	"fmt"
	"time"
)

// OnlineLogit is a logistic-regression model updated by stochastic
// gradient steps. It starts Unfitted and returns neutral probabilities
// until the first PartialFit; the transition is one-way. All fields are
// exported for JSON persistence.
type OnlineLogit struct {
	Weights      []float64       `json:"weights"`
	Bias         float64         `json:"bias"`
	LearningRate float64         `json:"learning_rate"`
	Scaler       *StandardScaler `json:"scaler"`
	Fitted       bool            `json:"fitted"`
	NSamplesSeen int64           `json:"n_samples_seen"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewOnlineLogit creates an unfitted online model for numFeatures columns.
func NewOnlineLogit(numFeatures int) *OnlineLogit {
	return &OnlineLogit{
		Weights:      make([]float64, numFeatures),
		LearningRate: 0.05,
		Scaler:       NewStandardScaler(numFeatures),
	}
}

// PartialFit applies one incremental gradient pass over the batch.
// The scaler is fit on the first call only; later batches reuse it.
// NSamplesSeen grows by len(y) on every call.
func (m *OnlineLogit) PartialFit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("partial fit: %d rows, %d labels", len(X), len(y))
	}
	if len(X[0]) != len(m.Weights) {
		return fmt.Errorf("partial fit: row has %d features, model expects %d", len(X[0]), len(m.Weights))
	}

	if !m.Fitted {
		m.Scaler.Fit(X)
	}
	for i, row := range X {
		x := m.Scaler.Transform(row)
		p := m.rawProba(x)
		err := float64(y[i]) - p
		for j, v := range x {
			m.Weights[j] += m.LearningRate * err * v
		}
		m.Bias += m.LearningRate * err
	}
	m.Fitted = true
	m.NSamplesSeen += int64(len(y))
	m.UpdatedAt = time.Now()
	return nil
}

// PredictProba returns the positive-class probability, or the neutral 0.5
// while the model is unfitted or the row width does not match.
func (m *OnlineLogit) PredictProba(x []float64) float64 {
	if !m.Fitted || len(x) != len(m.Weights) {
		return 0.5
	}
	return m.rawProba(m.Scaler.Transform(x))
}

func (m *OnlineLogit) rawProba(x []float64) float64 {
	z := m.Bias
	for j, v := range x {
		z += m.Weights[j] * v
	}
	return sigmoid(z)
}
