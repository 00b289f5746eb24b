package dump

import (
	stderrors "errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/hpungsan/dirdump/internal/errors"
)

// MaxReadBytes caps how much of a stored payload ReadFile returns.
const MaxReadBytes = 10 * 1024 * 1024

// Resolve joins a slash-separated path relative to root, rejecting absolute
// paths and any ".." component.
func Resolve(root, rel string) (string, error) {
	if rel == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) {
		return "", errors.NewInvalidRequest("path must be relative to the dump root")
	}
	if containsTraversal(rel) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

// ReadFile returns the stored payload at rel below root.
// The final component is opened without following symlinks.
func ReadFile(root, rel string) ([]byte, error) {
	path, err := Resolve(root, rel)
	if err != nil {
		return nil, err
	}

	f, err := openFileNoFollowRead(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewFileNotFound(rel)
		}
		return nil, errors.NewFilesystem("open", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxReadBytes))
	if err != nil {
		return nil, errors.NewFilesystem("read", path, err)
	}
	return data, nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}
