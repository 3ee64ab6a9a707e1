package cache

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/county-loads/internal/observability"
)

// Store persists dataset files in a cache directory. Keys are deterministic
// filenames derived from request parameters; entries ending in .gz are
// gzip-compressed transparently. Writes go to a temp file and are renamed
// into place so concurrent first-time downloads of the same key cannot leave
// a torn entry behind.
type Store struct {
	dir     string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates the cache directory if needed and returns a store over it.
func New(dir string, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir, logger: logger, metrics: metrics}, nil
}

// Dir returns the cache directory path.
func (s *Store) Dir() string { return s.dir }

// Key builds a cache filename from parts, skipping empty parts and replacing
// spaces with dashes.
func Key(ext string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, strings.ReplaceAll(p, " ", "-"))
		}
	}
	return strings.Join(kept, "_") + ext
}

// Path returns the absolute path of a cache key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key)
}

// Exists reports whether the key is already cached.
func (s *Store) Exists(key string) bool {
	info, err := os.Stat(s.Path(key))
	return err == nil && info.Mode().IsRegular()
}

// Fetch returns the cached bytes for key, invoking fill to produce them on a
// miss. The dataset label is used for cache metrics only.
func (s *Store) Fetch(dataset, key string, fill func() ([]byte, error)) ([]byte, error) {
	if data, err := s.Read(key); err == nil {
		s.metrics.CacheHits.WithLabelValues(dataset).Inc()
		return data, nil
	}
	s.metrics.CacheMisses.WithLabelValues(dataset).Inc()

	data, err := fill()
	if err != nil {
		return nil, err
	}
	if err := s.Write(key, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Read returns the decompressed content of a cached entry.
func (s *Store) Read(key string) ([]byte, error) {
	f, err := os.Open(s.Path(key))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(key, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open cache entry %s: %w", key, err)
		}
		defer gz.Close()
		r = gz
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	return data, nil
}

// Write persists data under key, compressing when the key ends in .gz. The
// entry is written to a temp file in the cache directory and renamed into
// place.
func (s *Store) Write(key string, data []byte) error {
	payload := data
	if strings.HasSuffix(key, ".gz") {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return fmt.Errorf("compress cache entry %s: %w", key, err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("compress cache entry %s: %w", key, err)
		}
		payload = buf.Bytes()
	}

	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit cache entry %s: %w", key, err)
	}
	return nil
}

// Clear deletes every regular file in the cache directory. Per-file deletion
// failures are logged as warnings and do not stop the sweep.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list cache dir: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			s.logger.Warn("cache delete failed", "file", e.Name(), "error", err)
		}
	}
	return nil
}
