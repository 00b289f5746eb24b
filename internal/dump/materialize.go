package dump

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/dirdump/internal/errors"
)

// DirMarker is appended to an entry that has to make room for a different
// kind of entry under the same name.
const DirMarker = "[dir]"

// dirPerm is the mode for directories created under the dump root.
const dirPerm = 0o755

// moveFunc is notified when an entry is renamed aside.
type moveFunc func(from, to string)

// EnsureDir makes root/comps[0]/.../comps[n-1] exist as a chain of directories
// and returns its path.
//
// A plain file (or symlink) sitting where a directory is needed is renamed
// to the first free name of name[dir], name[dir][dir], ... and the directory
// takes the unmarked name. root itself is created if missing and never renamed.
func EnsureDir(root string, comps []string) (string, error) {
	return materialize(root, comps, nil)
}

func materialize(root string, comps []string, onMove moveFunc) (string, error) {
	if len(comps) == 0 {
		if err := os.MkdirAll(root, dirPerm); err != nil {
			return "", errors.NewFilesystem("mkdir", root, err)
		}
		return root, nil
	}

	name := comps[len(comps)-1]
	if err := checkComponent(name); err != nil {
		return "", err
	}

	parent, err := materialize(root, comps[:len(comps)-1], onMove)
	if err != nil {
		return "", err
	}
	target := filepath.Join(parent, name)

	info, err := os.Lstat(target)
	switch {
	case err == nil && info.IsDir():
		return target, nil
	case err == nil:
		aside, err := moveAside(target)
		if err != nil {
			return "", err
		}
		if onMove != nil {
			onMove(target, aside)
		}
	case !stderrors.Is(err, fs.ErrNotExist):
		return "", errors.NewFilesystem("stat", target, err)
	}

	if err := os.Mkdir(target, dirPerm); err != nil {
		// Another writer may have created it in between.
		if stderrors.Is(err, fs.ErrExist) {
			if info, serr := os.Lstat(target); serr == nil && info.IsDir() {
				return target, nil
			}
		}
		return "", errors.NewFilesystem("mkdir", target, err)
	}
	return target, nil
}

// moveAside renames path to the first free path+DirMarker... name.
func moveAside(path string) (string, error) {
	aside := path + DirMarker
	for {
		_, err := os.Lstat(aside)
		if stderrors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", errors.NewFilesystem("stat", aside, err)
		}
		aside += DirMarker
	}
	if err := os.Rename(path, aside); err != nil {
		return "", errors.NewFilesystem("rename", path, err)
	}
	return aside, nil
}

// checkComponent rejects names that would leave the parent directory.
func checkComponent(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.NewInvalidRequest("invalid path component: " + name)
	}
	return nil
}
