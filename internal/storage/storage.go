// Package storage persists opaque blobs by key: presets, takes and
// anything else the controller saves between sessions.
package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultExt is appended to keys by DirStore.
const DefaultExt = ".json.gz"

// Store is a key/value blob store. Get reports ok=false for a missing key
// without an error.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, blob []byte) error
}

// MemStore keeps blobs in memory.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (s *MemStore) Set(key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), blob...)
	return nil
}

// Keys returns the stored keys in order.
func (s *MemStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DirStore keeps one file per key inside a project folder.
type DirStore struct {
	Dir string
	Ext string
}

// NewDirStore creates a store rooted at dir. The folder is created on the
// first write.
func NewDirStore(dir string) *DirStore {
	return &DirStore{Dir: dir, Ext: DefaultExt}
}

// sanitize maps a key to a safe file name.
func sanitize(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// Path returns the file that holds key.
func (s *DirStore) Path(key string) string {
	return filepath.Join(s.Dir, sanitize(key)+s.Ext)
}

func (s *DirStore) Get(key string) ([]byte, bool, error) {
	b, err := os.ReadFile(s.Path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return b, true, nil
}

// Set writes blob to a temp file and renames it over the old one so a
// crash never leaves a half-written file.
func (s *DirStore) Set(key string, blob []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create save folder: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// AutoSaver coalesces bursts of changes into one save after a quiet
// period.
type AutoSaver struct {
	mu      sync.Mutex
	delay   time.Duration
	save    func() error
	timer   *time.Timer
	pending bool
	saves   int
}

// NewAutoSaver calls save once delay has passed without another Touch.
func NewAutoSaver(delay time.Duration, save func() error) *AutoSaver {
	return &AutoSaver{delay: delay, save: save}
}

// Touch marks state dirty and restarts the quiet period.
func (a *AutoSaver) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *AutoSaver) fire() {
	a.mu.Lock()
	if !a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.saves++
	a.mu.Unlock()

	if err := a.save(); err != nil {
		log.Printf("autosave: %v", err)
	}
}

// Flush saves now if a change is pending.
func (a *AutoSaver) Flush() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	a.fire()
}

// Saves returns how many saves have run.
func (a *AutoSaver) Saves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves
}
