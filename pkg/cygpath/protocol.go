package cygpath

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// convFunc is the calling convention of cygwin_conv_path. A call with an
// empty destination returns the number of bytes the result needs, terminator
// included; a call with a destination fills it and returns 0. Negative means failure.
type convFunc func(mode Mode, from, to []byte) int

// entryPoint is a resolved cygwin_conv_path. The query-then-fill exchange in
// convert is the only way to invoke it.
type entryPoint struct {
	handle uintptr // module handle of the library that exports call
	call   convFunc
}

func (ep *entryPoint) valid() bool {
	return ep != nil && ep.handle != 0 && ep.call != nil
}

// convert runs the two-phase exchange and returns the raw bytes written by
// the runtime, or ErrNotRepresentable.
func (ep *entryPoint) convert(mode Mode, from []byte) ([]byte, error) {
	size := ep.call(mode, from, nil)
	if size < 0 {
		return nil, ErrNotRepresentable
	}
	if size == 0 {
		return nil, nil
	}

	out := make([]byte, size)
	if rc := ep.call(mode, from, out); rc < 0 {
		return nil, ErrNotRepresentable
	}
	return out, nil
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// encodeInput produces the NUL-terminated argument the runtime expects for mode:
// narrow UTF-8 for POSIX sources, UTF-16LE for native ones.
func encodeInput(mode Mode, path string) ([]byte, error) {
	if strings.IndexByte(path, 0) >= 0 {
		return nil, ErrNotRepresentable
	}

	if mode == ModeWinWToPosix {
		wide, err := utf16le.NewEncoder().String(path)
		if err != nil {
			return nil, err
		}
		return append([]byte(wide), 0, 0), nil
	}

	return append([]byte(path), 0), nil
}

// decodeOutput interprets the filled buffer, stopping at the terminator.
// Invalid sequences become U+FFFD rather than failing.
func decodeOutput(mode Mode, raw []byte) string {
	if mode == ModePosixToWinW {
		return decodeWide(raw)
	}

	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToValidUTF8(string(raw), "\uFFFD")
}

func decodeWide(raw []byte) string {
	for i := 0; i+1 < len(raw); i += 2 {
		if raw[i] == 0 && raw[i+1] == 0 {
			raw = raw[:i]
			break
		}
	}

	// Unpaired surrogates and odd trailing bytes decode to U+FFFD, never an error.
	out, _ := utf16le.NewDecoder().Bytes(raw)
	return string(out)
}
