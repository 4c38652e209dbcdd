// Package registry keeps the loaded scheme catalog. Lookups read an
// immutable snapshot through an atomic pointer, so a reload swaps the whole
// catalog at once and in-flight evaluations keep the definitions they
// started with.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"yojana/internal/logic"
	"yojana/internal/scheme"
)

// Entry pairs a scheme definition with its compiled logic program. Program is
// nil when compilation failed; the direct backend still works off the
// definition alone.
type Entry struct {
	Definition *scheme.Definition
	Program    *logic.Program
	CompileErr error
}

type snapshot struct {
	entries map[string]*Entry
	codes   []string
}

// Registry loads scheme documents from a directory and serves them by code.
type Registry struct {
	dir    string
	logger *zap.Logger
	snap   atomic.Pointer[snapshot]

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// Open loads every scheme document under dir. Files that fail to parse are
// logged and skipped; a directory with no valid scheme at all is an error.
func Open(dir string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{dir: dir, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-scans the directory and atomically swaps the catalog.
func (r *Registry) Reload() error {
	paths, err := schemeFiles(r.dir)
	if err != nil {
		return err
	}

	snap := &snapshot{entries: make(map[string]*Entry)}
	for _, path := range paths {
		defs, err := scheme.ParseFile(path)
		if err != nil {
			r.logger.Warn("skipping scheme document",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		for _, def := range defs {
			if _, dup := snap.entries[def.Code]; dup {
				r.logger.Warn("duplicate scheme code, keeping first",
					zap.String("code", def.Code),
					zap.String("path", path))
				continue
			}
			entry := &Entry{Definition: def}
			entry.Program, entry.CompileErr = logic.Compile(def)
			if entry.CompileErr != nil {
				r.logger.Warn("scheme does not compile, reasoner backend disabled",
					zap.String("code", def.Code),
					zap.Error(entry.CompileErr))
			}
			snap.entries[def.Code] = entry
			snap.codes = append(snap.codes, def.Code)
		}
	}
	if len(snap.entries) == 0 {
		return fmt.Errorf("registry: no usable schemes in %s", r.dir)
	}
	sort.Strings(snap.codes)

	r.snap.Store(snap)
	r.logger.Info("scheme catalog loaded",
		zap.String("dir", r.dir),
		zap.Int("schemes", len(snap.entries)))
	return nil
}

// Get returns the entry for a scheme code.
func (r *Registry) Get(code string) (*Entry, bool) {
	snap := r.snap.Load()
	if snap == nil {
		return nil, false
	}
	e, ok := snap.entries[code]
	return e, ok
}

// List returns all entries ordered by scheme code.
func (r *Registry) List() []*Entry {
	snap := r.snap.Load()
	if snap == nil {
		return nil
	}
	out := make([]*Entry, 0, len(snap.codes))
	for _, code := range snap.codes {
		out = append(out, snap.entries[code])
	}
	return out
}

// Codes returns the sorted scheme codes.
func (r *Registry) Codes() []string {
	snap := r.snap.Load()
	if snap == nil {
		return nil
	}
	return append([]string(nil), snap.codes...)
}

// Watch starts a background reload whenever a scheme document changes.
// Events are debounced so a burst of saves triggers a single reload.
func (r *Registry) Watch() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry: watch: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("registry: watch %s: %w", r.dir, err)
	}

	r.watcher = watcher
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.running = true
	go r.run()
	return nil
}

// Stop halts the watcher and waits for the loop to exit.
func (r *Registry) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stopCh, doneCh, watcher := r.stopCh, r.doneCh, r.watcher
	r.mu.Unlock()

	close(stopCh)
	<-doneCh
	watcher.Close()
}

func (r *Registry) run() {
	defer close(r.doneCh)

	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-r.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !isSchemeFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			pending = timer.C
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("scheme watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := r.Reload(); err != nil {
				// Keep serving the previous snapshot.
				r.logger.Error("scheme reload failed", zap.Error(err))
			}
		}
	}
}

func schemeFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isSchemeFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func isSchemeFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
