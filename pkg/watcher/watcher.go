package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/flow-builder/pkg/logging"
)

// ChangeType represents the type of file change detected.
// Later types need more work in the browser, so a batch takes the largest.
type ChangeType int

const (
	ChangeTypeStyle ChangeType = iota
	ChangeTypeScript
	ChangeTypePage
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeStyle:
		return "style"
	case ChangeTypeScript:
		return "script"
	case ChangeTypePage:
		return "page"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches an assets directory tree for file changes
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	events  chan ChangeEvent
}

// NewFileWatcher creates a new file system watcher for an assets directory
func NewFileWatcher(root string) (*FileWatcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat assets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		root:    root,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching for file changes until ctx is canceled
func (fw *FileWatcher) Start(ctx context.Context) error {
	count, err := fw.watchTree(fw.root)
	if err != nil {
		fw.watcher.Close()
		return err
	}

	logging.Info("started watching assets", "path", fw.root, "directories", count)

	go fw.processEvents(ctx)
	return nil
}

// watchTree adds dir and every directory below it; fsnotify does not recurse
func (fw *FileWatcher) watchTree(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk assets: %w", err)
	}
	return count, nil
}

// processEvents turns relevant file system events into change events
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if _, err := fw.watchTree(event.Name); err != nil {
						logging.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}

			// Attribute changes alone don't alter what the browser sees
			if event.Op == fsnotify.Chmod {
				continue
			}

			changeType, relevant := Classify(event.Name)
			if !relevant {
				logging.Trace("ignoring asset event", "path", event.Name, "op", event.Op.String())
				continue
			}

			select {
			case fw.events <- ChangeEvent{Type: changeType, Paths: []string{event.Name}, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when watching stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Watch watches root and calls onReload once per debounced batch of changes.
// It returns after setup; watching continues until ctx is canceled.
func Watch(ctx context.Context, root string, quietPeriod, maxWait time.Duration, onReload func(Reload)) error {
	fw, err := NewFileWatcher(root)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := NewDebouncer(fw.Events(), quietPeriod, maxWait)
	debouncer.Start(ctx)

	log := logging.New("watcher").With("root", root)
	go func() {
		for event := range debouncer.Output() {
			reload := PlanReload(event, root)
			log.Info("assets changed", "type", event.Type.String(), "files", len(reload.Paths))
			onReload(reload)
		}
	}()
	return nil
}
