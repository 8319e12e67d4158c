// Package filestore persists the session record as a JSON document on disk.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/fsnotify/fsnotify"
)

var _ ports.WatchableStore = (*Store)(nil)

// Store keeps every key in a single JSON object. Writes replace the file
// atomically via rename so readers never observe a partial document.
type Store struct {
	path   string
	logger *slog.Logger

	mu        sync.Mutex
	lastWrite []byte
}

// New creates a store backed by path, creating its directory if needed.
func New(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("filestore: create directory: %w", err)
	}
	return &Store{path: path, logger: logger.With("component", "filestore")}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.MapStoreError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := doc[key]
	if !ok {
		return "", apperrors.NotFoundf("key %q not found", key)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.MapStoreError(err)
	}
	if key == "" {
		return apperrors.ValidationField("key", "key cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc[key] = value
	return s.save(doc)
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.MapStoreError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := doc[k]; ok {
			delete(doc, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(doc)
}

// Keys lists stored keys in sorted order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.MapStoreError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// load must be called with mu held. A missing file is an empty document.
func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", s.path, err)
	}
	doc := map[string]string{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "filestore: corrupt document %s", s.path)
	}
	return doc, nil
}

// save must be called with mu held.
func (s *Store) save(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) error {
		_ = tmp.Close()
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return errors.Join(cause, rmErr)
		}
		return cause
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("filestore: write temp: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("filestore: sync temp: %w", err))
	}
	if err := tmp.Chmod(0o600); err != nil {
		return cleanup(fmt.Errorf("filestore: chmod temp: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return cleanup(fmt.Errorf("filestore: close temp: %w", err))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return cleanup(fmt.Errorf("filestore: rename: %w", err))
	}
	s.lastWrite = data
	return nil
}

// Watch reports modifications made by other writers until ctx is done.
// Events caused by this store's own writes are suppressed.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filestore: create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic renames replace the inode, which drops a file watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("filestore: watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if s.isOwnWrite() {
				continue
			}
			s.logger.Debug("session file changed externally", "op", event.Op.String())
			onChange()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("session file watcher error", "error", werr)
		}
	}
}

func (s *Store) isOwnWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.lastWrite == nil && errors.Is(err, fs.ErrNotExist)
	}
	return s.lastWrite != nil && bytes.Equal(data, s.lastWrite)
}
