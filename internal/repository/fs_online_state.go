package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
)

var _ domrepo.OnlineStateStore = (*FSOnlineStateStore)(nil)

// onlineEnvelope wraps serialized online-model state with the segment
// key it belongs to, so ListStates never has to reverse filename
// sanitization.
type onlineEnvelope struct {
	Key   models.SegmentKey `json:"key"`
	State json.RawMessage   `json:"state"`
}

// FSOnlineStateStore persists online-model state as one JSON file per
// segment under root/online/. Writes use the same temp-and-rename
// discipline as the bundle store.
type FSOnlineStateStore struct {
	dir string
}

// NewFSOnlineStateStore creates a state store under root/online.
func NewFSOnlineStateStore(root string) *FSOnlineStateStore {
	return &FSOnlineStateStore{dir: filepath.Join(root, "online")}
}

func (s *FSOnlineStateStore) pathFor(key models.SegmentKey) string {
	name := sanitizeSegment(strings.ReplaceAll(key.String(), "/", "__"))
	return filepath.Join(s.dir, name+".json")
}

// SaveState writes the state blob for key.
func (s *FSOnlineStateStore) SaveState(ctx context.Context, key models.SegmentKey, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("online state save %s: %w", key, err)
	}
	env, err := json.Marshal(onlineEnvelope{Key: key, State: data})
	if err != nil {
		return fmt.Errorf("online state save %s: %w", key, err)
	}
	path := s.pathFor(key)
	tmp, err := os.CreateTemp(s.dir, "state.tmp.*")
	if err != nil {
		return fmt.Errorf("online state save %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(env); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("online state save %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("online state save %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("online state save %s: %w", key, err)
	}
	return nil
}

// LoadState returns the state blob for key, or models.ErrBundleNotFound
// when no state has been saved.
func (s *FSOnlineStateStore) LoadState(ctx context.Context, key models.SegmentKey) ([]byte, error) {
	data, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrBundleNotFound
		}
		return nil, fmt.Errorf("online state load %s: %w", key, err)
	}
	var env onlineEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: online state %s: %v", models.ErrCorruptBundle, key, err)
	}
	return env.State, nil
}

// ListStates returns the segment keys with saved state.
func (s *FSOnlineStateStore) ListStates(ctx context.Context) ([]models.SegmentKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("online state list: %w", err)
	}
	keys := make([]models.SegmentKey, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var env onlineEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		keys = append(keys, env.Key)
	}
	return keys, nil
}
