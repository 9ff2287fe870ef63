package cygpath

import (
	"errors"
	"fmt"
)

// ErrInactive is returned by conversions when the compatibility library is not loaded
var ErrInactive = errors.New("cygwin runtime is not loaded")

// ErrNotRepresentable is returned when a path has no form in the target namespace
var ErrNotRepresentable = errors.New("path is not representable in the target namespace")

// Mode is a cygwin_conv_path_t selector. The values are fixed by the runtime's ABI.
type Mode uintptr

const (
	// ModePosixToWinW converts a char POSIX path to a wide native path (CCP_POSIX_TO_WIN_W)
	ModePosixToWinW Mode = 1
	// ModeWinWToPosix converts a wide native path to a char POSIX path (CCP_WIN_W_TO_POSIX)
	ModeWinWToPosix Mode = 3
)

// Direction selects which way a path crosses the namespace boundary
type Direction int

const (
	PosixToNative Direction = iota
	NativeToPosix
)

// Mode returns the protocol mode code for the direction
func (d Direction) Mode() Mode {
	if d == NativeToPosix {
		return ModeWinWToPosix
	}
	return ModePosixToWinW
}

func (d Direction) String() string {
	switch d {
	case PosixToNative:
		return "posix_to_native"
	case NativeToPosix:
		return "native_to_posix"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Attributes is a native file attribute bitset. Bit values match FILE_ATTRIBUTE_*.
type Attributes uint32

const (
	AttrReadOnly Attributes = 0x1
	AttrHidden   Attributes = 0x2
	AttrSystem   Attributes = 0x4
)

// Has reports whether every bit in mask is set
func (a Attributes) Has(mask Attributes) bool {
	return a&mask == mask
}

// DirEntry is the minimal view of a directory entry the symlink check needs
type DirEntry interface {
	Path() string
}

// Translator exposes the compatibility layer's path services regardless of platform
type Translator interface {
	// Active reports whether the runtime library and its conversion entry point were resolved
	Active() bool
	// Library names the loaded runtime library, or "" when inactive
	Library() string

	Convert(dir Direction, path string) (string, error)
	ToNative(path string) (string, error)
	ToPosix(path string) (string, error)

	LooksLikeSymlink(path string) bool
	EntryLooksLikeSymlink(entry DirEntry) bool
	Dereference(path string) (string, error)
}

// ConversionError records a path the runtime refused to convert
type ConversionError struct {
	Direction Direction
	Path      string
	Err       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s %q: %v", e.Direction, e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// InvalidPathPrefix marks a path the runtime could not convert in ConvertForDisplay output
const InvalidPathPrefix = "::CYGWIN::INVALID_PATH:: "

// ConvertForDisplay converts path and never fails. A path that is not
// representable comes back as InvalidPathPrefix followed by the input, and
// an inactive translator returns the input unchanged.
func ConvertForDisplay(t Translator, dir Direction, path string) string {
	out, err := t.Convert(dir, path)
	switch {
	case err == nil:
		return out
	case errors.Is(err, ErrNotRepresentable):
		return InvalidPathPrefix + path
	default:
		return path
	}
}
