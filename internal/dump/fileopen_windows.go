//go:build windows

package dump

import (
	"os"
)

// openFileNoFollow opens a file.
// On Windows, O_NOFOLLOW is not available. Symlink creation needs elevated
// privileges there, and candidates are Lstat-checked before they are opened.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens a file for reading.
func openFileNoFollowRead(path string) (*os.File, error) {
	return os.Open(path)
}
