package models

// FeatureVector is an insertion-ordered mapping of feature name to value.
// The set and order of names must be reproducible between training and
// scoring; bundles persist their training-time order and live rows are
// reindexed onto it, never the reverse.
type FeatureVector struct {
	names  []string
	values map[string]float64
}

// NewFeatureVector creates an empty feature vector.
func NewFeatureVector() *FeatureVector {
	return &FeatureVector{values: make(map[string]float64)}
}

// Set registers a feature, preserving first-insertion order.
func (fv *FeatureVector) Set(name string, value float64) {
	if _, ok := fv.values[name]; !ok {
		fv.names = append(fv.names, name)
	}
	fv.values[name] = value
}

// Get returns the value for name and whether it is present.
func (fv *FeatureVector) Get(name string) (float64, bool) {
	v, ok := fv.values[name]
	return v, ok
}

// Names returns the feature names in insertion order.
func (fv *FeatureVector) Names() []string {
	out := make([]string, len(fv.names))
	copy(out, fv.names)
	return out
}

// Values returns the feature values in insertion order.
func (fv *FeatureVector) Values() []float64 {
	out := make([]float64, len(fv.names))
	for i, n := range fv.names {
		out[i] = fv.values[n]
	}
	return out
}

// Len returns the number of features.
func (fv *FeatureVector) Len() int { return len(fv.names) }

// Reindex projects the vector onto columns, zero-filling names absent
// from the live row and ignoring live names absent from columns. This is
// the single reconciliation path between training and scoring schemas.
func (fv *FeatureVector) Reindex(columns []string) []float64 {
	out := make([]float64, len(columns))
	for i, c := range columns {
		if v, ok := fv.values[c]; ok {
			out[i] = v
		}
	}
	return out
}
