package platform

import "strings"

const (
	extendedPrefix    = `\\?\`
	extendedUNCPrefix = `\\?\UNC\`
	devicePrefix      = `\\.\`
)

func extendedPath(path string) string {
	if strings.HasPrefix(path, extendedPrefix) || strings.HasPrefix(path, devicePrefix) {
		return path
	}

	path = strings.ReplaceAll(path, "/", `\`)

	switch {
	case strings.HasPrefix(path, `\\`):
		return extendedUNCPrefix + cleanComponents(path[2:])
	case len(path) >= 3 && isDriveLetter(path[0]) && path[1] == ':' && path[2] == '\\':
		return extendedPrefix + path[:3] + cleanComponents(path[3:])
	default:
		return path
	}
}

// cleanComponents resolves "." and ".." itself because the extended prefix
// disables that normalisation in the Win32 layer.
func cleanComponents(rest string) string {
	var parts []string
	for _, part := range strings.Split(rest, `\`) {
		switch part {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, `\`)
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
