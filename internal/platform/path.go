//go:build !windows

package platform

// ExtendedPath is a no-op on non-Windows platforms.
func ExtendedPath(path string) string {
	return path
}
