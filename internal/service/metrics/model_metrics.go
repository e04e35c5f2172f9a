package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	SegmentValidationAUC = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "edgelab",
			Subsystem: "models",
			Name:      "validation_auc",
			Help:      "Validation AUC of the latest trained bundle per segment",
		},
		[]string{"segment"},
	)

	SegmentSampleCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "edgelab",
			Subsystem: "models",
			Name:      "sample_count",
			Help:      "Training sample count of the latest trained bundle per segment",
		},
		[]string{"segment"},
	)

	OnlineRollingAccuracy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "edgelab",
			Subsystem: "online",
			Name:      "rolling_accuracy",
			Help:      "Rolling-window accuracy of the online model per segment",
		},
		[]string{"segment"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(SegmentValidationAUC, SegmentSampleCount, OnlineRollingAccuracy)
	})
}
