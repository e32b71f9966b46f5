package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nathoo/shellquest/engine/catalog"
)

// WatchFunc receives the outcome of each reload.
type WatchFunc func(cat *catalog.Catalog, warnings []Issue, err error)

// watchDebounce batches rapid saves into one reload.
const watchDebounce = 300 * time.Millisecond

// Watch loads path once, then again after every change to its level
// files, until ctx is done.
func Watch(ctx context.Context, path string, fn WatchFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	dir, only := path, ""
	if !info.IsDir() {
		// Editors replace files on save, so the parent directory is watched.
		dir, only = filepath.Dir(path), filepath.Clean(path)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	reload := func() {
		cat, warnings, err := LoadWithWarnings(path)
		fn(cat, warnings, err)
	}
	reload()

	relevant := func(name string) bool {
		if only != "" {
			return filepath.Clean(name) == only
		}
		return sourceExts[strings.ToLower(filepath.Ext(name))]
	}

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 || !relevant(ev.Name) {
				continue
			}
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fn(nil, nil, fmt.Errorf("watch error: %w", err))
		case <-timer.C:
			reload()
		}
	}
}
