package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage is a storage implementation that stores objects on the local
// filesystem.
type LocalStorage struct {
	root  string
	umask fs.FileMode
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a new LocalStorage. Directories and files are
// created with 0777 and 0666 masked by umask.
func NewLocalStorage(root string, umask fs.FileMode) *LocalStorage {
	return &LocalStorage{root: root, umask: umask}
}

// Path returns the absolute filesystem path of name.
func (l *LocalStorage) Path(name string) string {
	return l.fixPath(name)
}

// Delete removes name. It fails if name does not exist.
func (l *LocalStorage) Delete(name string) error {
	name = l.fixPath(name)
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("failed to remove file %s: %w", name, err)
	}
	return nil
}

// Remove deletes name, treating a missing file as success.
func (l *LocalStorage) Remove(name string) error {
	if err := l.Delete(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Open implements Storage.
func (l *LocalStorage) Open(name string) (Object, error) {
	name = l.fixPath(name)
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	return f, nil
}

// ReadFile returns the whole content of name.
func (l *LocalStorage) ReadFile(name string) ([]byte, error) {
	name = l.fixPath(name)
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}
	return b, nil
}

// Stat implements Storage.
func (l *LocalStorage) Stat(name string) (fs.FileInfo, error) {
	name = l.fixPath(name)
	info, err := os.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", name, err)
	}
	return info, nil
}

// MkdirAll creates the parent directory of name. It is a no-op when the
// directory already exists.
func (l *LocalStorage) MkdirAll(name string) error {
	dir := filepath.Dir(l.fixPath(name))
	if err := os.MkdirAll(dir, 0o777&^l.umask); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	return nil
}

// CreateExclusive creates name for writing. It fails with fs.ErrExist if the
// file already exists, so concurrent writers of the same name can't both win.
func (l *LocalStorage) CreateExclusive(name string) (*os.File, error) {
	name = l.fixPath(name)
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666&^l.umask)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", name, err)
	}
	return f, nil
}

// Exists implements Storage.
func (l *LocalStorage) Exists(name string) (bool, error) {
	name = l.fixPath(name)
	_, err := os.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence of file %s: %w", name, err)
}

// Replace all slashes with the OS-specific separator.
func (l LocalStorage) fixPath(path string) string {
	path = strings.ReplaceAll(path, "/", string(os.PathSeparator))
	if !filepath.IsAbs(path) {
		return filepath.Join(l.root, path)
	}

	return path
}
