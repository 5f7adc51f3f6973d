// Package cache persists transcript artifacts keyed by video ID. The cache
// is an optimization, never a hard dependency: read and write failures are
// for the caller to log, and a miss simply means "compute".
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Innoddu/speakflow/internal/pipeline"
)

// ErrNotFound reports a cache miss.
var ErrNotFound = errors.New("transcript not cached")

// Store is the narrow contract the pipeline needs from an artifact cache.
type Store interface {
	Exists(key string) bool
	Get(key string) (*pipeline.Result, error)
	Put(key string, result *pipeline.Result) error
}

// FileStore keeps one JSON file per key under a root directory. Entries are
// written whole and never mutated; a refined result is stored under its own
// key so the unrefined original survives as a fallback.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

// RefinedKey returns the cache key for the refined variant of a video's
// transcript.
func RefinedKey(videoID string) string {
	return "refined:" + videoID
}

func (s *FileStore) path(key string) string {
	// Keys may carry a "refined:" prefix; keep filenames filesystem-safe.
	name := strings.NewReplacer(":", "_", "/", "_").Replace(key)
	return filepath.Join(s.root, name+".json")
}

// Exists reports whether a usable entry is present for key.
func (s *FileStore) Exists(key string) bool {
	info, err := os.Stat(s.path(key))
	return err == nil && info.Size() > 0
}

// Get loads the artifact for key, returning ErrNotFound on a miss.
func (s *FileStore) Get(key string) (*pipeline.Result, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	var result pipeline.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &result, nil
}

// Put writes the artifact atomically (temp file + rename) so concurrent
// readers never observe a torn entry. Two racing writers produce benign
// duplicate work, not corruption.
func (s *FileStore) Put(key string, result *pipeline.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache entry: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
