package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/saworbit/cygbridge/internal/metrics"
	"github.com/saworbit/cygbridge/pkg/cygpath"
	"k8s.io/klog/v2"
)

// Resolver is the part of cygpath.Translator the scanner relies on
type Resolver interface {
	Active() bool
	EntryLooksLikeSymlink(entry cygpath.DirEntry) bool
	Dereference(path string) (string, error)
}

// Finding describes one compatibility symlink found on disk
type Finding struct {
	Path   string
	Target string // empty when the runtime is inactive or the link could not be resolved
	Err    error  // dereference failure, if any
}

// Resolved reports whether the link target is known
func (f Finding) Resolved() bool {
	return f.Target != "" && f.Err == nil
}

// Entry adapts an fs.DirEntry found under a walk root to cygpath.DirEntry
type Entry struct {
	path string
	fs.DirEntry
}

// NewEntry wraps d, located at path
func NewEntry(path string, d fs.DirEntry) Entry {
	return Entry{path: path, DirEntry: d}
}

// Path returns the full native path of the entry
func (e Entry) Path() string {
	return e.path
}

// Inspect applies the symlink heuristic to one entry and dereferences it when possible.
// ok is false when the entry does not look like a compatibility symlink.
func Inspect(r Resolver, entry cygpath.DirEntry) (Finding, bool) {
	metrics.ObserveFileScanned()

	if !r.EntryLooksLikeSymlink(entry) {
		return Finding{}, false
	}

	finding := Finding{Path: entry.Path()}
	if !r.Active() {
		return finding, true
	}

	target, err := r.Dereference(entry.Path())
	if err != nil {
		finding.Err = err
		return finding, true
	}
	finding.Target = target
	return finding, true
}

// Scan walks root and calls fn for every compatibility symlink found.
// Unreadable subtrees are logged and skipped; an error from fn stops the walk.
func Scan(ctx context.Context, root string, r Resolver, fn func(Finding) error) error {
	if r == nil {
		return fmt.Errorf("scanner requires a resolver")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	if !r.Active() {
		klog.InfoS("Compatibility runtime inactive, link targets will not be resolved", "root", absRoot)
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == absRoot {
				return err
			}
			klog.V(1).InfoS("Skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		finding, ok := Inspect(r, NewEntry(path, d))
		if !ok {
			return nil
		}
		if finding.Err != nil && !errors.Is(finding.Err, cygpath.ErrNotRepresentable) {
			klog.ErrorS(finding.Err, "Dereference failed", "path", path)
		}
		return fn(finding)
	})
}
