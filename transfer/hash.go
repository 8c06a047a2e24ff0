package transfer

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

var _ io.Reader = (*HashingReader)(nil)

// HashingReader is a reader that hashes the data it reads.
type HashingReader struct {
	r    io.Reader
	hash hash.Hash
	size int64
}

// NewHashingReader creates a new hashing reader.
func NewHashingReader(r io.Reader, hash hash.Hash) *HashingReader {
	return &HashingReader{
		r:    r,
		hash: hash,
	}
}

// Size returns the number of bytes read.
func (h *HashingReader) Size() int64 {
	return h.size
}

// Oid returns the hash of the data read.
func (h *HashingReader) Oid() string {
	return hex.EncodeToString(h.hash.Sum(nil))
}

// Pointer returns a Pointer describing the data read so far.
func (h *HashingReader) Pointer() Pointer {
	return Pointer{Oid: Oid(h.Oid()), Size: h.size}
}

// Read reads data from the underlying reader and hashes it.
func (h *HashingReader) Read(p []byte) (int, error) {
	n, err := h.r.Read(p)
	h.size += int64(n)
	h.hash.Write(p[:n])
	return n, err
}

var _ io.Writer = (*HashingWriter)(nil)

// HashingWriter is a writer that hashes the data written through it.
type HashingWriter struct {
	w    io.Writer
	hash hash.Hash
	size int64
}

// NewHashingWriter creates a new hashing writer.
func NewHashingWriter(w io.Writer, hash hash.Hash) *HashingWriter {
	return &HashingWriter{
		w:    w,
		hash: hash,
	}
}

// Write writes p to the underlying writer and hashes the bytes it accepted.
func (h *HashingWriter) Write(p []byte) (int, error) {
	n, err := h.w.Write(p)
	h.size += int64(n)
	h.hash.Write(p[:n])
	return n, err
}

// Size returns the number of bytes written.
func (h *HashingWriter) Size() int64 {
	return h.size
}

// Pointer returns a Pointer describing the data written so far.
func (h *HashingWriter) Pointer() Pointer {
	return Pointer{Oid: Oid(hex.EncodeToString(h.hash.Sum(nil))), Size: h.size}
}

var _ io.Reader = (*VerifyingReader)(nil)

// VerifyingReader is a reader that hashes the data it reads.
// At EOF, it compares the OID and size with expected values and replaces EOF
// with an error in the case of mismatch. A negative expected size skips the
// size comparison.
type VerifyingReader struct {
	r            *HashingReader
	expectedOid  string
	expectedSize int64
}

// NewVerifyingReader creates a new VerifyingReader.
func NewVerifyingReader(r io.Reader, hash hash.Hash, oid string, size int64) *VerifyingReader {
	return &VerifyingReader{
		r:            NewHashingReader(r, hash),
		expectedOid:  oid,
		expectedSize: size,
	}
}

// Read reads data from the underlying HashingReader.
// At EOF, it compares results and returns error if OID or size mismatch
func (v *VerifyingReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	if err == io.EOF {
		// stream consumed, now check for mismatch
		if v.expectedSize >= 0 && v.r.Size() != v.expectedSize {
			err = fmt.Errorf("%w: invalid object size, expected %v, got %v", ErrChecksumMismatch, v.expectedSize, v.r.Size())
		}
		if v.r.Oid() != v.expectedOid {
			err = fmt.Errorf("%w: invalid object ID, expected %v, got %v", ErrChecksumMismatch, v.expectedOid, v.r.Oid())
		}
	}
	return n, err
}
