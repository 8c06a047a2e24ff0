package transfer

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Pointer identifies a Git LFS object by its content hash and size.
type Pointer struct {
	Oid  Oid   `json:"oid"`
	Size int64 `json:"size"`
}

// NewPointer returns a new Pointer, validating the oid and size.
func NewPointer(oid string, size int64) (Pointer, error) {
	o, err := NewOid(oid)
	if err != nil {
		return Pointer{}, fmt.Errorf("%w: %q", err, oid)
	}
	if size < 0 {
		return Pointer{}, fmt.Errorf("invalid size %d for %s", size, oid)
	}
	return Pointer{Oid: o, Size: size}, nil
}

// GeneratePointer hashes the content read from r and returns its Pointer.
func GeneratePointer(r io.Reader) (Pointer, error) {
	hr := NewHashingReader(r, sha256.New())
	if _, err := io.Copy(io.Discard, hr); err != nil {
		return Pointer{}, err
	}
	return hr.Pointer(), nil
}

// Valid reports whether the pointer has a well formed oid and a non-negative
// size. It doesn't check if the pointed-to content exists.
func (p Pointer) Valid() bool {
	return p.Oid.Valid() && p.Size >= 0
}

// Hash returns the digest of the object.
func (p Pointer) Hash() Hash {
	return p.Oid.Hash()
}

// RelativePath returns the relative storage path of the object.
func (p Pointer) RelativePath() string {
	return p.Oid.RelativePath()
}

// String returns a short human readable form of the pointer.
func (p Pointer) String() string {
	if p.Size < 0 {
		return fmt.Sprintf("%s (%d)", p.Oid, p.Size)
	}
	return fmt.Sprintf("%s (%s)", p.Oid, humanize.IBytes(uint64(p.Size)))
}
