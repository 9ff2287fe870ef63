package cygpath

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
)

const fakeRoot = `C:\cygwin64`

// fakeRuntime imitates cygwin_conv_path for a Cygwin install at C:\cygwin64.
type fakeRuntime struct {
	// links maps a native link path to the POSIX path it points at
	links map[string]string

	mu    sync.Mutex
	calls []fakeCall
}

type fakeCall struct {
	Mode  Mode
	Query bool
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{links: map[string]string{}}
}

func (f *fakeRuntime) entryPoint() *entryPoint {
	return &entryPoint{handle: 0x7ff0000, call: f.call}
}

func (f *fakeRuntime) recorded() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func (f *fakeRuntime) call(mode Mode, from, to []byte) int {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Mode: mode, Query: len(to) == 0})
	f.mu.Unlock()

	var out []byte
	switch mode {
	case ModePosixToWinW:
		native, ok := fakeToNative(string(bytes.TrimRight(from, "\x00")))
		if !ok {
			return -1
		}
		wide, err := encodeInput(ModeWinWToPosix, native)
		if err != nil {
			return -1
		}
		out = wide
	case ModeWinWToPosix:
		native := decodeWide(from)
		if target, ok := f.links[native]; ok {
			out = append([]byte(target), 0)
			break
		}
		out = append([]byte(fakeToPosix(native)), 0)
	default:
		return -1
	}

	if len(to) == 0 {
		return len(out)
	}
	if len(to) < len(out) {
		return -1
	}
	copy(to, out)
	return 0
}

func fakeToNative(p string) (string, bool) {
	if strings.ContainsAny(p, `<>:"|?*`) {
		return "", false
	}
	switch {
	case strings.HasPrefix(p, "/cygdrive/") && len(p) > len("/cygdrive/c"):
		drive := strings.ToUpper(p[len("/cygdrive/") : len("/cygdrive/")+1])
		return drive + ":" + toBackslash(p[len("/cygdrive/c"):]), true
	case p == "/":
		return fakeRoot, true
	case strings.HasPrefix(p, "/"):
		return fakeRoot + toBackslash(p), true
	default:
		return toBackslash(p), true
	}
}

func fakeToPosix(n string) string {
	switch {
	case n == fakeRoot:
		return "/"
	case strings.HasPrefix(n, fakeRoot+`\`):
		return "/" + toSlash(n[len(fakeRoot)+1:])
	case len(n) >= 3 && n[1] == ':' && n[2] == '\\':
		return fmt.Sprintf("/cygdrive/%s/%s", strings.ToLower(n[:1]), toSlash(n[3:]))
	default:
		return toSlash(n)
	}
}

func toBackslash(p string) string { return strings.ReplaceAll(p, "/", `\`) }
func toSlash(p string) string     { return strings.ReplaceAll(p, `\`, "/") }

// fakeAttributes serves attributes from a map; unknown paths fail like a missing file.
type fakeAttributes map[string]Attributes

func (f fakeAttributes) query(path string) (Attributes, error) {
	attrs, ok := f[path]
	if !ok {
		return 0, fmt.Errorf("GetFileAttributes %s: The system cannot find the file specified.", path)
	}
	return attrs, nil
}

type fakeEntry string

func (e fakeEntry) Path() string { return string(e) }
