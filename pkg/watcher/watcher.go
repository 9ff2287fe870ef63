package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/saworbit/cygbridge/pkg/scanner"
	"k8s.io/klog/v2"
)

const minTick = 10 * time.Millisecond

// Watcher reports compatibility symlinks as they appear under a directory tree.
type Watcher struct {
	root string
	fsw  *fsnotify.Watcher
}

// New registers watches on root and every directory below it.
func New(root string) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absRoot)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{root: absRoot, fsw: fsw}
	if err := w.addRecursive(absRoot, nil); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the absolute path being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Close releases the underlying watches.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run processes events until ctx is cancelled or fn returns an error. Files
// are inspected once they have been quiet for settle, since the runtime sets
// a link's attributes after creating it.
func (w *Watcher) Run(ctx context.Context, r scanner.Resolver, settle time.Duration, fn func(scanner.Finding) error) error {
	if r == nil {
		return fmt.Errorf("watcher requires a resolver")
	}

	tick := settle / 2
	if tick < minTick {
		tick = minTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	pending := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if evt.Op&fsnotify.Create != 0 {
				info, err := os.Stat(evt.Name)
				if err == nil && info.IsDir() {
					if err := w.addRecursive(evt.Name, pending); err != nil {
						klog.ErrorS(err, "Failed to watch new directory", "path", evt.Name)
					}
					continue
				}
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Chmod) != 0 {
				pending[evt.Name] = time.Now()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			klog.ErrorS(err, "Watcher error", "root", w.root)

		case <-ticker.C:
			for path, seen := range pending {
				if time.Since(seen) < settle {
					continue
				}
				delete(pending, path)

				finding, ok := w.inspect(r, path)
				if !ok {
					continue
				}
				if err := fn(finding); err != nil {
					return err
				}
			}
		}
	}
}

func (w *Watcher) inspect(r scanner.Resolver, path string) (scanner.Finding, bool) {
	info, err := os.Lstat(path)
	if err != nil || info.IsDir() {
		return scanner.Finding{}, false
	}
	return scanner.Inspect(r, scanner.NewEntry(path, fs.FileInfoToDirEntry(info)))
}

// addRecursive watches root and its subdirectories. Files already present
// are queued in pending so links created together with their directory are not missed.
func (w *Watcher) addRecursive(root string, pending map[string]time.Time) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if pending != nil {
				pending[path] = time.Now()
			}
			return nil
		}
		return w.fsw.Add(path)
	})
}

// Watch is New followed by Run; the watches are released when it returns.
func Watch(ctx context.Context, root string, r scanner.Resolver, settle time.Duration, fn func(scanner.Finding) error) error {
	w, err := New(root)
	if err != nil {
		return err
	}
	defer w.Close()

	klog.InfoS("Watching for compatibility symlinks", "root", w.Root(), "settle", settle)
	return w.Run(ctx, r, settle, fn)
}
