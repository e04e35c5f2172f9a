package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
	"EdgeLab/internal/ml"
	icache "EdgeLab/internal/service/cache"
	applogger "EdgeLab/pkg/logger"
)

var _ domrepo.ModelStore = (*FSModelStore)(nil)

const bundleFileName = "bundle.json"

// bundleFile is the on-disk encoding of a model bundle. The classifier
// and its column order are persisted as one unit so a stored bundle is
// always self-describing.
type bundleFile struct {
	Columns       []string            `json:"columns"`
	Classifier    *ml.GradientBoosted `json:"classifier"`
	TrainedAt     time.Time           `json:"trained_at"`
	SampleCount   int                 `json:"sample_count"`
	ValidationAUC float64             `json:"validation_auc"`
}

// FSModelStore persists model bundles on the filesystem, one directory
// level per segment-key field, so lookups never need an index:
//
//	root/{asset}/{tf}/{regime}/bundle.json
//	root/{asset}/{tf}/{pattern}/{regime}/bundle.json
//
// Writes go through a temp file and rename so concurrent readers never
// observe a partially-written bundle. The store only grows; a write at
// an existing key replaces the prior bundle wholesale.
type FSModelStore struct {
	root     string
	cache    *icache.TTLCache
	cacheTTL time.Duration
	l        *applogger.Logger
}

// NewFSModelStore creates a store rooted at root.
func NewFSModelStore(root string, cacheTTL time.Duration) *FSModelStore {
	return &FSModelStore{root: root, cache: icache.NewTTLCache(), cacheTTL: cacheTTL}
}

// SetLogger injects a structured logger.
func (s *FSModelStore) SetLogger(l *applogger.Logger) { s.l = l }

// PathFor derives the bundle path for a key. Pure function of the key's
// fields; the pattern level keeps global and pattern-specific namespaces
// separated.
func (s *FSModelStore) PathFor(key models.SegmentKey) string {
	parts := []string{s.root, string(key.AssetClass), key.Timeframe}
	if key.Pattern != "" {
		parts = append(parts, sanitizeSegment(key.Pattern))
	}
	parts = append(parts, string(key.Regime), bundleFileName)
	return filepath.Join(parts...)
}

// Put writes the bundle for key and returns the bundle path.
func (s *FSModelStore) Put(ctx context.Context, key models.SegmentKey, bundle *models.ModelBundle) (string, error) {
	gbm, ok := bundle.Classifier.(*ml.GradientBoosted)
	if !ok {
		return "", fmt.Errorf("model store put %s: unsupported classifier %T", key, bundle.Classifier)
	}
	path := s.PathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("model store put %s: %w", key, err)
	}
	data, err := json.Marshal(bundleFile{
		Columns:       bundle.Columns,
		Classifier:    gbm,
		TrainedAt:     bundle.TrainedAt,
		SampleCount:   bundle.SampleCount,
		ValidationAUC: bundle.ValidationAUC,
	})
	if err != nil {
		return "", fmt.Errorf("model store put %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), bundleFileName+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("model store put %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("model store put %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("model store put %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("model store put %s: %w", key, err)
	}

	if s.l != nil {
		s.l.Info("model bundle written",
			applogger.String("segment", key.String()),
			applogger.String("path", path),
			applogger.Int("samples", bundle.SampleCount),
		)
	}
	return path, nil
}

// Get loads the bundle for key, or models.ErrBundleNotFound.
func (s *FSModelStore) Get(ctx context.Context, key models.SegmentKey) (*models.ModelBundle, string, error) {
	path := s.PathFor(key)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", models.ErrBundleNotFound
		}
		return nil, "", fmt.Errorf("model store get %s: %w", key, err)
	}

	// cache key includes mtime so a retrain invalidates naturally
	ck := cacheKey(path, info.ModTime())
	if v, ok := s.cache.Get(ck); ok {
		if b, ok2 := v.(*models.ModelBundle); ok2 && b != nil {
			return b, path, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("model store get %s: %w", key, err)
	}
	var bf bundleFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", models.ErrCorruptBundle, path, err)
	}
	if len(bf.Columns) == 0 || bf.Classifier == nil {
		return nil, "", fmt.Errorf("%w: %s: missing columns or classifier", models.ErrCorruptBundle, path)
	}
	bundle := &models.ModelBundle{
		Columns:       bf.Columns,
		Classifier:    bf.Classifier,
		TrainedAt:     bf.TrainedAt,
		SampleCount:   bf.SampleCount,
		ValidationAUC: bf.ValidationAUC,
	}
	s.cache.Set(ck, bundle, s.cacheTTL)
	return bundle, path, nil
}

// Exists reports whether a bundle is stored for key.
func (s *FSModelStore) Exists(ctx context.Context, key models.SegmentKey) (bool, error) {
	_, err := os.Stat(s.PathFor(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// GetWithFallback tries the exact-regime bundle, then the all-regime
// bundle of the same (asset class, timeframe[, pattern]). The returned
// key reports which regime actually resolved.
func (s *FSModelStore) GetWithFallback(ctx context.Context, key models.SegmentKey) (*models.ModelBundle, models.SegmentKey, string, error) {
	b, path, err := s.Get(ctx, key)
	if err == nil {
		return b, key, path, nil
	}
	if !errors.Is(err, models.ErrBundleNotFound) {
		return nil, key, "", err
	}
	if key.Regime == models.RegimeAll {
		return nil, key, "", models.ErrModelNotTrained
	}
	fallback := key.WithRegime(models.RegimeAll)
	b, path, err = s.Get(ctx, fallback)
	if err == nil {
		return b, fallback, path, nil
	}
	if errors.Is(err, models.ErrBundleNotFound) {
		return nil, key, "", models.ErrModelNotTrained
	}
	return nil, key, "", err
}

func cacheKey(path string, mtime time.Time) string {
	return path + "@" + mtime.UTC().Format(time.RFC3339Nano)
}

func sanitizeSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
