//go:build windows

package platform

// ExtendedPath adds the \\?\ prefix to absolute drive and UNC paths so
// attribute queries are not limited to MAX_PATH. Relative and already
// prefixed paths are returned unchanged.
func ExtendedPath(path string) string {
	return extendedPath(path)
}
