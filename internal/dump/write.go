package dump

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hpungsan/dirdump/internal/errors"
)

// RequestSuffix marks files holding a request body.
const RequestSuffix = " (request)"

// filePerm is the mode for payload files.
const filePerm = 0o644

// Outcome tells what a persistence call did on disk.
type Outcome string

const (
	OutcomeWritten   Outcome = "written"   // new file created
	OutcomeDuplicate Outcome = "duplicate" // identical content already stored
	OutcomeEmpty     Outcome = "empty"     // zero-length payload, nothing touched
)

// WriteResult is the file a payload ended up in.
type WriteResult struct {
	Path    string
	Outcome Outcome
}

// Write stores content in dir as base[ (request)][N]ext.
//
// A directory occupying the unsuffixed name is renamed aside first. Candidates
// are then probed unsuffixed, 1, 2, ...: a file with identical bytes ends the
// search without writing, any other entry advances the suffix, and the first
// free name receives the content.
func Write(dir, base, ext string, request bool, content []byte) (WriteResult, error) {
	return write(dir, base, ext, request, content, nil)
}

func write(dir, base, ext string, request bool, content []byte, onMove moveFunc) (WriteResult, error) {
	if err := checkComponent(base + ext); err != nil {
		return WriteResult{}, err
	}

	stem := base
	if request {
		stem += RequestSuffix
	}

	first := filepath.Join(dir, stem+ext)
	info, err := os.Lstat(first)
	switch {
	case err == nil && info.IsDir():
		aside, err := moveAside(first)
		if err != nil {
			return WriteResult{}, err
		}
		if onMove != nil {
			onMove(first, aside)
		}
	case err != nil && !stderrors.Is(err, fs.ErrNotExist):
		return WriteResult{}, errors.NewFilesystem("stat", first, err)
	}

	for n := 0; ; n++ {
		candidate := filepath.Join(dir, stem+suffix(n)+ext)

		same, err := sameContent(candidate, content)
		if err == nil {
			if same {
				return WriteResult{Path: candidate, Outcome: OutcomeDuplicate}, nil
			}
			continue
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return WriteResult{}, errors.NewFilesystem("read", candidate, err)
		}

		created, err := createExclusive(candidate, content)
		if err != nil {
			return WriteResult{}, err
		}
		if !created {
			// Lost the slot to a concurrent writer; look at it again.
			n--
			continue
		}
		return WriteResult{Path: candidate, Outcome: OutcomeWritten}, nil
	}
}

// suffix returns the numeric disambiguator for probe n ("" for the first).
func suffix(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// sameContent reports whether path is a regular file holding exactly content.
// A missing path yields an fs.ErrNotExist error; any other entry kind is
// reported as different content.
func sameContent(path string, content []byte) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() || info.Size() != int64(len(content)) {
		return false, nil
	}

	f, err := openFileNoFollowRead(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	existing, err := io.ReadAll(io.LimitReader(f, int64(len(content))+1))
	if err != nil {
		return false, err
	}
	return bytes.Equal(existing, content), nil
}

// createExclusive creates path and writes content to it.
// It returns false without error if path already exists.
func createExclusive(path string, content []byte) (bool, error) {
	f, err := openFileNoFollow(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, errors.NewFilesystem("create", path, err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return false, errors.NewFilesystem("write", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return false, errors.NewFilesystem("close", path, err)
	}
	return true, nil
}
