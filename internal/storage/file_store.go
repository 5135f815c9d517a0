package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// FileStore persists the slots as one JSON object on disk.
type FileStore struct {
	path string
	dir  string
	base string

	mu          sync.Mutex
	lastWritten []byte
	listeners
}

// NewFileStore creates a store for the given file path. The parent directory is created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("storage file path is required")
	}

	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{path: path, dir: dir, base: filepath.Base(path)}, nil
}

func (f *FileStore) Get(slot Slot) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readUnlocked()
	if err != nil {
		return "", false, err
	}
	v, ok := doc[slot]
	return v, ok, nil
}

// Set merges values into the stored document. A corrupt document is replaced.
func (f *FileStore) Set(values map[Slot]string) error {
	f.mu.Lock()
	doc, err := f.readUnlocked()
	if err != nil {
		logger.WithComponent("storage").Warnf("replacing unreadable storage file: %v", err)
		doc = map[Slot]string{}
	}
	for k, v := range values {
		doc[k] = v
	}
	err = f.writeUnlocked(doc)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.notify()
	return nil
}

// Remove deletes the slots. It always leaves a readable document behind.
func (f *FileStore) Remove(slots ...Slot) error {
	f.mu.Lock()
	doc, err := f.readUnlocked()
	if err != nil {
		doc = map[Slot]string{}
	}
	for _, s := range slots {
		delete(doc, s)
	}
	err = f.writeUnlocked(doc)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.notify()
	return nil
}

func (f *FileStore) Subscribe(fn func()) func() {
	return f.subscribe(fn)
}

func (f *FileStore) readUnlocked() (map[Slot]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[Slot]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[Slot]string{}, nil
	}

	doc := map[Slot]string{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc, nil
}

// writeUnlocked replaces the file atomically (temp file + rename).
func (f *FileStore) writeUnlocked(doc map[Slot]string) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}

	tmpFile, err := os.CreateTemp(f.dir, f.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), f.path); err != nil {
		return fmt.Errorf("replace storage file: %w", err)
	}

	f.lastWritten = payload
	return nil
}

// StartWatcher notifies subscribers when another process rewrites the file.
// The parent directory is watched so temp+rename replacements are observed, and
// bursts of events are debounced. Cancel ctx to stop the watcher.
func (f *FileStore) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, f.reloadFromDisk)
		}

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != f.base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithComponent("storage").Errorf("watcher error: %v", err)
			}
		}
	}()

	return nil
}

// reloadFromDisk notifies only when the content differs from our own last write.
func (f *FileStore) reloadFromDisk() {
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		f.mu.Unlock()
		logger.WithComponent("storage").Errorf("watch reload failed: %v", err)
		return
	}
	same := bytes.Equal(data, f.lastWritten)
	f.mu.Unlock()

	if same {
		logger.WithComponent("storage").Tracef("storage file unchanged since last write")
		return
	}
	logger.WithComponent("storage").Debugf("storage file changed on disk, notifying subscribers")
	f.notify()
}
