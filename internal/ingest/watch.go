package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 250 * time.Millisecond

// Watch blocks watching the directories under the glob pattern and calls
// reload after each debounced burst of CSV changes. It returns when the
// context is cancelled. Reload errors are logged, not fatal: the previous
// corpus stays live until a clean load succeeds.
func Watch(ctx context.Context, pattern string, reload func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dirs, err := watchDirs(pattern)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		log.Printf("ingest: watching %s", dir)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			// The watcher does not recurse, so directories created under
			// the root must be added as they appear.
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := watcher.Add(ev.Name); err != nil {
						log.Printf("ingest: cannot watch new directory %s: %v", ev.Name, err)
					}
					continue
				}
			}
			if !relevant(ev, pattern) {
				continue
			}
			// Restart the debounce window on every burst member so one
			// multi-file save triggers one reload.
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-fire
				}
				timer.Reset(debounceWindow)
			}

		case <-fire:
			timer = nil
			fire = nil
			if err := reload(); err != nil {
				log.Printf("ingest: reload failed, keeping previous corpus: %v", err)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			log.Printf("ingest: watcher error: %v", werr)
		}
	}
}

func relevant(ev fsnotify.Event, pattern string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	ok, err := doublestar.PathMatch(filepath.ToSlash(pattern), filepath.ToSlash(ev.Name))
	return err == nil && ok
}

// watchDirs returns the literal directory prefix of the pattern and every
// directory below it: the pattern can reach into subdirectories but the
// watcher only reports on directories it was given.
func watchDirs(pattern string) ([]string, error) {
	root := pattern
	for strings.ContainsAny(root, "*?[{") {
		root = filepath.Dir(root)
	}
	if root == "" {
		root = "."
	}

	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return dirs, nil
}
