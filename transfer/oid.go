package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"path/filepath"
)

// Oid is a Git LFS object ID.
type Oid string

// NewOid creates a new Oid from a hex string.
func NewOid(s string) (Oid, error) {
	o := Oid(s)
	if o.Valid() {
		return o, nil
	}
	return Oid(""), ErrInvalidOid
}

// Valid returns true if the Oid is a lowercase hex encoded sha256 sum.
func (o Oid) Valid() bool {
	if len(o) != hex.EncodedLen(sha256.Size) {
		return false
	}
	for _, c := range []byte(o) {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// String returns the string representation of the Oid.
func (o Oid) String() string {
	return string(o)
}

// Hash decodes the Oid into its digest. Invalid oids decode to the zero Hash.
func (o Oid) Hash() Hash {
	var h Hash
	if !o.Valid() {
		return h
	}
	_, _ = hex.Decode(h[:], []byte(o))
	return h
}

// RelativePath returns the path of the object relative to the objects
// directory, sharded by the first two pairs of hex characters.
func (o Oid) RelativePath() string {
	if len(o) < 5 {
		return string(o)
	}
	s := string(o)
	return path.Join(s[0:2], s[2:4], s)
}

// ExpectedPath returns the expected path of the Oid. The path argument should
// be a `.git/lfs` directory.
func (o Oid) ExpectedPath(path string) string {
	return filepath.Join(path, "objects", filepath.FromSlash(o.RelativePath()))
}

// Hash is a sha256 digest. Unlike Oid it is compared by value, not by its
// textual encoding.
type Hash [sha256.Size]byte

// String returns the hex encoding of the digest.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Oid returns the digest as an Oid.
func (h Hash) Oid() Oid {
	return Oid(h.String())
}
