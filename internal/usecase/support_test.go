package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
)

type fakeOutcomeSource struct {
	outcomes []models.Outcome
	err      error
}

func (f *fakeOutcomeSource) ListOutcomes(ctx context.Context, from, to time.Time) ([]models.Outcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Outcome
	for _, o := range f.outcomes {
		if !o.ClosedAt.Before(from) && !o.ClosedAt.After(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

// fakeCandleSource serves one synthetic ascending hourly series per
// symbol, sliced to the requested range.
type fakeCandleSource struct {
	series map[string][]models.Candle
	err    error
}

func (f *fakeCandleSource) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Candle
	for _, c := range f.series[symbol] {
		if !c.Bucket.Before(from) && !c.Bucket.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCandleSource) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	cs := f.series[symbol]
	if len(cs) > n {
		cs = cs[len(cs)-n:]
	}
	return cs, nil
}

func syntheticCandles(symbol string, n int, start time.Time) []models.Candle {
	out := make([]models.Candle, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		step := 0.4
		if i%3 == 0 {
			step = -0.3
		}
		open := price
		price += step
		high := open + 0.8
		low := open - 0.8
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
		out = append(out, models.Candle{
			Bucket: start.Add(time.Duration(i) * time.Hour),
			Symbol: symbol,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 1000 + float64(i%7)*40,
		})
	}
	return out
}

// memModelStore is an in-memory ModelStore with the same fallback
// semantics as the filesystem store.
type memModelStore struct {
	mu      sync.Mutex
	bundles map[models.SegmentKey]*models.ModelBundle
	putErr  error
}

func newMemModelStore() *memModelStore {
	return &memModelStore{bundles: make(map[models.SegmentKey]*models.ModelBundle)}
}

func (s *memModelStore) Put(ctx context.Context, key models.SegmentKey, bundle *models.ModelBundle) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	s.bundles[key] = bundle
	s.mu.Unlock()
	return "mem://" + key.String(), nil
}

func (s *memModelStore) Get(ctx context.Context, key models.SegmentKey) (*models.ModelBundle, string, error) {
	s.mu.Lock()
	b, ok := s.bundles[key]
	s.mu.Unlock()
	if !ok {
		return nil, "", models.ErrBundleNotFound
	}
	return b, "mem://" + key.String(), nil
}

func (s *memModelStore) Exists(ctx context.Context, key models.SegmentKey) (bool, error) {
	s.mu.Lock()
	_, ok := s.bundles[key]
	s.mu.Unlock()
	return ok, nil
}

func (s *memModelStore) GetWithFallback(ctx context.Context, key models.SegmentKey) (*models.ModelBundle, models.SegmentKey, string, error) {
	if b, path, err := s.Get(ctx, key); err == nil {
		return b, key, path, nil
	}
	if key.Regime != models.RegimeAll {
		fallback := key.WithRegime(models.RegimeAll)
		if b, path, err := s.Get(ctx, fallback); err == nil {
			return b, fallback, path, nil
		}
	}
	return nil, key, "", models.ErrModelNotTrained
}

// memStateStore is an in-memory OnlineStateStore.
type memStateStore struct {
	mu     sync.Mutex
	states map[models.SegmentKey][]byte
	saves  int
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[models.SegmentKey][]byte)}
}

func (s *memStateStore) SaveState(ctx context.Context, key models.SegmentKey, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = append([]byte(nil), data...)
	s.saves++
	return nil
}

func (s *memStateStore) LoadState(ctx context.Context, key models.SegmentKey) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.states[key]
	if !ok {
		return nil, models.ErrBundleNotFound
	}
	return b, nil
}

func (s *memStateStore) ListStates(ctx context.Context) ([]models.SegmentKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]models.SegmentKey, 0, len(s.states))
	for k := range s.states {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *memStateStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// stubClassifier returns a fixed probability regardless of input.
type stubClassifier struct {
	p float64
}

func (c stubClassifier) PredictProba(x []float64) float64 { return c.p }

// stubScorer returns canned per-timeframe results for fusion tests.
type stubScorer struct {
	results map[domrepo.Timeframe]models.ScoreResult
}

func (s *stubScorer) Score(ctx context.Context, symbol string, tf domrepo.Timeframe) models.ScoreResult {
	if r, ok := s.results[tf]; ok {
		return r
	}
	return models.ScoreResult{Symbol: symbol, Timeframe: string(tf), Error: "no model"}
}

func (s *stubScorer) ScoreWithPattern(ctx context.Context, symbol string, tf domrepo.Timeframe, pattern string) models.BlendedScore {
	return models.BlendedScore{}
}

var errBoom = errors.New("boom")
