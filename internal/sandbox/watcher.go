package sandbox

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultIgnorePatterns excludes build artifacts and vendored trees from
// the collected file set. Scaffolding commands pull in thousands of files
// under these; none of them belong in a fragment.
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"dist/",
	"build/",
	".next/",
	"coverage/",
	"vendor/",
	"__pycache__/",
	"*.lock",
	"package-lock.json",
}

// WorkspaceWatcher records which workspace files the agent's commands
// touch, so the final fragment can include files created outside the
// file-write tool (e.g. by a scaffolding CLI).
type WorkspaceWatcher struct {
	root    string
	watcher *fsnotify.Watcher
	ignores *gitignore.GitIgnore

	mu       sync.Mutex
	modified map[string]struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWorkspaceWatcher creates a watcher rooted at the session workspace.
func NewWorkspaceWatcher(root string) (*WorkspaceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &WorkspaceWatcher{
		root:     root,
		watcher:  watcher,
		ignores:  gitignore.CompileIgnoreLines(defaultIgnorePatterns...),
		modified: make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Directories created during the run are added to
// the watch set as they appear.
func (w *WorkspaceWatcher) Start() error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // continue walking
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if rel != "." && w.ignores.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				log.Printf("⚠️  Failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk workspace: %w", err)
	}

	w.wg.Add(1)
	go w.eventLoop()
	return nil
}

func (w *WorkspaceWatcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  Watcher error: %v", err)
		}
	}
}

func (w *WorkspaceWatcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	if w.ignores.MatchesPath(rel) {
		return
	}

	info, statErr := os.Stat(event.Name)
	if event.Op.Has(fsnotify.Create) && statErr == nil && info.IsDir() {
		// New directory: watch it so nested writes are seen.
		if err := w.watcher.Add(event.Name); err != nil {
			log.Printf("⚠️  Failed to watch %s: %v", event.Name, err)
		}
		return
	}

	if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
		if statErr == nil && info.Mode().IsRegular() {
			w.mu.Lock()
			w.modified[rel] = struct{}{}
			w.mu.Unlock()
		}
	}
	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		w.mu.Lock()
		delete(w.modified, rel)
		w.mu.Unlock()
	}
}

// Collect reads the current content of every recorded file. Files deleted
// since their last write are skipped silently.
func (w *WorkspaceWatcher) Collect() map[string]string {
	w.mu.Lock()
	paths := make([]string, 0, len(w.modified))
	for rel := range w.modified {
		paths = append(paths, rel)
	}
	w.mu.Unlock()

	files := make(map[string]string, len(paths))
	for _, rel := range paths {
		data, err := os.ReadFile(filepath.Join(w.root, rel))
		if err != nil {
			continue
		}
		files[rel] = string(data)
	}
	return files
}

// Stop shuts the watcher down.
func (w *WorkspaceWatcher) Stop() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
