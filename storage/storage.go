// Package storage provides the on-disk content-addressable object store.
package storage

import (
	"io"
	"io/fs"
	"os"
)

// Object is an interface for objects that can be stored.
type Object interface {
	io.Seeker
	fs.File
	Name() string
}

// Storage is an interface for storing and retrieving objects. Names are
// slash separated and relative to the storage root.
type Storage interface {
	Path(name string) string
	Open(name string) (Object, error)
	Stat(name string) (fs.FileInfo, error)
	Exists(name string) (bool, error)
	ReadFile(name string) ([]byte, error)
	MkdirAll(name string) error
	CreateExclusive(name string) (*os.File, error)
	Remove(name string) error
}
