// Package summary generates post-meeting summaries through an external
// chat-completion service, driven by an operator-editable prompt template.
package summary

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// PromptStore holds the summary prompt template and reloads it whenever the
// file changes on disk, so operators can tune prompts without a restart.
type PromptStore struct {
	path    string
	watcher *fsnotify.Watcher

	mu       sync.RWMutex
	template string
}

// NewPromptStore loads the template and starts watching its directory.
func NewPromptStore(path string) (*PromptStore, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	p := &PromptStore{path: path, watcher: watcher}
	if err := p.reload(); err != nil {
		slog.Warn("Summary prompt template not loaded yet", "error", err, "path", path)
	}

	// Watch the directory, not the file: editors replace files on save.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go p.watch()
	return p, nil
}

func (p *PromptStore) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("failed to read prompt template: %w", err)
	}
	p.mu.Lock()
	p.template = string(data)
	p.mu.Unlock()
	return nil
}

func (p *PromptStore) watch() {
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if event.Name != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := p.reload(); err != nil {
				slog.Error("Failed to reload summary prompt", "error", err, "path", p.path)
				continue
			}
			slog.Info("Reloaded summary prompt template", "path", p.path)

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Prompt watcher error", "error", err)
		}
	}
}

// Template returns the current prompt template, empty if never loaded.
func (p *PromptStore) Template() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.template
}

// Close stops the watcher.
func (p *PromptStore) Close() error {
	return p.watcher.Close()
}
