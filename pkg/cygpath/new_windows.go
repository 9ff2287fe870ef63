//go:build windows

package cygpath

import (
	"runtime"
	"unsafe"

	"github.com/saworbit/cygbridge/internal/metrics"
	"github.com/saworbit/cygbridge/internal/platform"
	"github.com/saworbit/cygbridge/pkg/config"
	"golang.org/x/sys/windows"
	"k8s.io/klog/v2"
)

// New links to the first configured runtime library that loads and exports
// the conversion entry point. A missing runtime is the normal case on hosts
// without Cygwin or MSYS2 and yields an inactive translator.
func New(cfg *config.TranslatorConfig) Translator {
	if cfg == nil {
		def := config.DefaultConfig().Translator
		cfg = &def
	}

	for _, name := range cfg.Libraries {
		ep, err := resolveEntryPoint(name, cfg.EntryPoint)
		if err != nil {
			klog.V(2).InfoS("Compatibility library unavailable", "library", name, "entryPoint", cfg.EntryPoint, "err", err)
			continue
		}

		klog.V(2).InfoS("Linked compatibility library", "library", name, "entryPoint", cfg.EntryPoint, "handle", ep.handle)
		metrics.SetLibraryLoaded(name, true)
		return newLiveTranslator(name, ep, nativeAttributes, cfg.SymlinkSuffix)
	}

	metrics.SetLibraryLoaded("", false)
	return newLiveTranslator("", nil, nativeAttributes, cfg.SymlinkSuffix)
}

func resolveEntryPoint(library, symbol string) (*entryPoint, error) {
	dll := windows.NewLazyDLL(library)
	if err := dll.Load(); err != nil {
		return nil, err
	}

	proc := dll.NewProc(symbol)
	if err := proc.Find(); err != nil {
		return nil, err
	}

	return &entryPoint{
		handle: dll.Handle(),
		call:   procCall(proc),
	}, nil
}

func procCall(proc *windows.LazyProc) convFunc {
	return func(mode Mode, from, to []byte) int {
		var dst unsafe.Pointer
		if len(to) > 0 {
			dst = unsafe.Pointer(&to[0])
		}
		r1, _, _ := proc.Call(uintptr(mode), uintptr(unsafe.Pointer(&from[0])), uintptr(dst), uintptr(len(to)))
		runtime.KeepAlive(from)
		runtime.KeepAlive(to)
		return ssize(r1)
	}
}

// ssize reinterprets a register-sized return value as ssize_t.
func ssize(r uintptr) int {
	return int(r)
}

func nativeAttributes(path string) (Attributes, error) {
	p, err := windows.UTF16PtrFromString(platform.ExtendedPath(path))
	if err != nil {
		return 0, err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return 0, err
	}
	return Attributes(attrs), nil
}
