package fsutil

import (
	"os"
)

// CreateExclusive creates name for writing and fails if it already exists.
func CreateExclusive(name string) (*os.File, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FileModeDefault)
}

// CreateFilePerm creates a new file with the specified permissions, truncating any existing file.
func CreateFilePerm(name string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
}
