package cygpath

import (
	"strings"
	"time"

	"github.com/saworbit/cygbridge/internal/metrics"
	"k8s.io/klog/v2"
)

// attributeQuery returns the native attributes of path
type attributeQuery func(path string) (Attributes, error)

var _ Translator = (*liveTranslator)(nil)

type liveTranslator struct {
	library string
	ep      *entryPoint
	attrs   attributeQuery
	suffix  string
}

func newLiveTranslator(library string, ep *entryPoint, attrs attributeQuery, suffix string) *liveTranslator {
	if !ep.valid() {
		library, ep = "", nil
	}
	return &liveTranslator{
		library: library,
		ep:      ep,
		attrs:   attrs,
		suffix:  suffix,
	}
}

func (t *liveTranslator) Active() bool {
	return t.ep != nil
}

func (t *liveTranslator) Library() string {
	return t.library
}

func (t *liveTranslator) Convert(dir Direction, path string) (string, error) {
	start := time.Now()
	mode := dir.Mode()

	if !t.Active() {
		metrics.ObserveConversion(start, dir.String(), "inactive")
		return "", ErrInactive
	}

	in, err := encodeInput(mode, path)
	if err != nil {
		metrics.ObserveConversion(start, dir.String(), "not_representable")
		return "", &ConversionError{Direction: dir, Path: path, Err: err}
	}

	raw, err := t.ep.convert(mode, in)
	if err != nil {
		metrics.ObserveConversion(start, dir.String(), "not_representable")
		return "", &ConversionError{Direction: dir, Path: path, Err: err}
	}

	metrics.ObserveConversion(start, dir.String(), "ok")
	return decodeOutput(mode, raw), nil
}

func (t *liveTranslator) ToNative(path string) (string, error) {
	return t.Convert(PosixToNative, path)
}

func (t *liveTranslator) ToPosix(path string) (string, error) {
	return t.Convert(NativeToPosix, path)
}

// LooksLikeSymlink reports whether path is probably a Cygwin symlink. Files
// with the system attribute are; so are read-only files named with the
// shortcut suffix. An attribute query failure counts as "no".
func (t *liveTranslator) LooksLikeSymlink(path string) bool {
	if t.attrs == nil {
		return false
	}

	attrs, err := t.attrs(path)
	if err != nil {
		klog.V(4).InfoS("Attribute query failed", "path", path, "err", err)
		metrics.ObserveSymlinkCheck("unknown")
		return false
	}

	switch {
	case attrs.Has(AttrSystem):
		metrics.ObserveSymlinkCheck("system")
		return true
	case attrs.Has(AttrReadOnly) && hasSuffixFold(baseName(path), t.suffix):
		metrics.ObserveSymlinkCheck("shortcut")
		return true
	default:
		metrics.ObserveSymlinkCheck("plain")
		return false
	}
}

// EntryLooksLikeSymlink checks a directory entry by its path.
// TODO: use the attributes already carried by the entry's FileInfo on Windows
// instead of a second GetFileAttributesW call.
func (t *liveTranslator) EntryLooksLikeSymlink(entry DirEntry) bool {
	return t.LooksLikeSymlink(entry.Path())
}

// Dereference resolves a Cygwin symlink by converting it to the POSIX
// namespace and back; the runtime follows the link on the way.
func (t *liveTranslator) Dereference(path string) (string, error) {
	posix, err := t.ToPosix(path)
	if err != nil {
		return "", err
	}
	return t.ToNative(posix)
}

func baseName(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func hasSuffixFold(name, suffix string) bool {
	if suffix == "" || len(name) < len(suffix) {
		return false
	}
	return strings.EqualFold(name[len(name)-len(suffix):], suffix)
}
