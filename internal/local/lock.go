package local

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrConflict is returned when another writer is already staging the same
// object.
var ErrConflict = errors.New("conflict: object is being written by another process")

// LockFile stages the content of an object next to its final path. The
// staging file is created exclusively, so only one writer can hold it.
type LockFile struct {
	path     string
	temp     string
	tempFile *os.File
}

var (
	_ io.Writer = &LockFile{}
	_ io.Closer = &LockFile{}
)

// NewLockFile creates the staging file `path.lock`. It returns ErrConflict if
// the staging file already exists.
func NewLockFile(path string, perm fs.FileMode) (*LockFile, error) {
	temp := path + ".lock"
	f, err := os.OpenFile(temp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, temp)
		}
		return nil, err
	}
	return &LockFile{
		path:     path,
		temp:     temp,
		tempFile: f,
	}, nil
}

// Name returns the path of the staging file.
func (l *LockFile) Name() string {
	return l.temp
}

// Write writes the given data to the lock file.
func (l *LockFile) Write(data []byte) (int, error) {
	return l.tempFile.Write(data)
}

// Close closes the lock file.
func (l *LockFile) Close() error {
	return l.tempFile.Close()
}

// Persist links the staged content to its final path. It fails with
// fs.ErrExist when the final path is already taken.
func (l *LockFile) Persist() error {
	if err := os.Link(l.temp, l.path); err != nil {
		return fmt.Errorf("error persisting lock file: %w", err)
	}
	return nil
}

// Remove removes the lock file.
func (l *LockFile) Remove() error {
	if err := os.Remove(l.temp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
