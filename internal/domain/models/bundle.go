package models

import "time"

// Classifier is the minimal prediction surface a persisted bundle carries.
// x must already be ordered per the bundle's column list.
type Classifier interface {
	PredictProba(x []float64) float64
}

// ModelBundle is a trained classifier plus the exact feature-column order
// it was fit on, persisted as one unit so a bundle is always
// self-describing. Columns is authoritative at score time.
type ModelBundle struct {
	Columns       []string
	Classifier    Classifier
	TrainedAt     time.Time
	SampleCount   int
	ValidationAUC float64
}
