package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	segmentsTrained *prometheus.CounterVec
	segmentsSkipped *prometheus.CounterVec
	scoresTotal     *prometheus.CounterVec
	onlineUpdates   prometheus.Counter
	onlineSegments  prometheus.Gauge
	queueDepth      prometheus.Gauge
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		segmentsTrained: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgelab_segments_trained_total",
				Help: "Total number of segment models trained",
			},
			[]string{"asset_class", "timeframe"},
		),
		segmentsSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgelab_segments_skipped_total",
				Help: "Total number of segment groups skipped during training",
			},
			[]string{"reason"},
		),
		scoresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgelab_scores_total",
				Help: "Total number of score requests served",
			},
			[]string{"asset_class", "timeframe"},
		),
		onlineUpdates: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "edgelab_online_updates_total",
				Help: "Total number of online-model sample updates applied",
			},
		),
		onlineSegments: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "edgelab_online_segments",
				Help: "Segments touched by the most recent queue drain",
			},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "edgelab_online_queue_depth",
				Help: "Current depth of the online sample queue",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgelab_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edgelab_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSegmentTrained records one trained segment model.
func (r *Recorder) RecordSegmentTrained(assetClass, timeframe string) {
	r.segmentsTrained.WithLabelValues(assetClass, timeframe).Inc()
}

// RecordSegmentSkipped records one skipped segment group.
func (r *Recorder) RecordSegmentSkipped(reason string) {
	r.segmentsSkipped.WithLabelValues(reason).Inc()
}

// RecordScore records one served score request.
func (r *Recorder) RecordScore(assetClass, timeframe string) {
	r.scoresTotal.WithLabelValues(assetClass, timeframe).Inc()
}

// RecordOnlineUpdate records one drain pass over the online queue.
func (r *Recorder) RecordOnlineUpdate(segments, samples int) {
	r.onlineUpdates.Add(float64(samples))
	r.onlineSegments.Set(float64(segments))
}

// RecordQueueDepth records the current online queue depth.
func (r *Recorder) RecordQueueDepth(n int) {
	r.queueDepth.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
