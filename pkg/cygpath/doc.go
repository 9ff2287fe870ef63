// Package cygpath translates paths between the POSIX namespace emulated by
// Cygwin (or MSYS2, which ships the same runtime as msys-2.0.dll) and the
// native Windows namespace, and recognises Cygwin symlinks on disk.
//
// The runtime is linked at process start: New tries each configured library
// and resolves its cygwin_conv_path export. When that fails, or on any
// platform other than Windows, the returned Translator is inactive and every
// conversion returns ErrInactive. Callers are expected to check Active once
// per path-crossing operation; the check is a field read.
//
// cygwin_conv_path is driven with a query-then-fill protocol: the first call
// passes no output buffer and returns the size needed, the second call fills a
// buffer of exactly that size. A negative size means the input has no
// representation in the target namespace and surfaces as a *ConversionError
// wrapping ErrNotRepresentable. ConvertForDisplay restores the older
// behaviour of always returning something path-shaped.
//
// Cygwin stores its own symlinks as ordinary files: either with the system
// attribute set, or, in the legacy shortcut style, read-only with a ".lnk"
// suffix. LooksLikeSymlink applies that heuristic, and Dereference resolves a
// link by round-tripping it through the runtime's own conversion.
//
// A Translator holds no mutable state after construction and is safe for
// concurrent use. The loaded library is never unloaded.
package cygpath
