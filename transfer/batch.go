package transfer

import (
	"fmt"
	"time"
)

const (
	// MediaType contains the media type for LFS server requests.
	MediaType = "application/vnd.git-lfs+json"

	// TransferBasic is the name of the Git LFS basic transfer adapter.
	TransferBasic = "basic"
)

// HashAlgo is the hash family used to compute object IDs.
type HashAlgo int

const (
	// HashAlgoSHA256 is the only hash algorithm Git LFS defines.
	HashAlgoSHA256 HashAlgo = iota
)

// String returns the wire name of the algorithm.
func (h HashAlgo) String() string {
	switch h {
	case HashAlgoSHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h HashAlgo) MarshalText() ([]byte, error) {
	if h != HashAlgoSHA256 {
		return nil, fmt.Errorf("unknown hash algorithm %d", int(h))
	}
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value means the
// default, sha256.
func (h *HashAlgo) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "sha256":
		*h = HashAlgoSHA256
	default:
		return fmt.Errorf("unsupported hash algorithm %q", b)
	}
	return nil
}

// Ref is the git reference a batch request is made for.
type Ref struct {
	Name string `json:"name"`
}

// BatchRequest contains multiple requests processed in one batch operation.
// https://github.com/git-lfs/git-lfs/blob/main/docs/api/batch.md#requests
type BatchRequest struct {
	Operation Operation `json:"operation"`
	Transfers []string  `json:"transfers,omitempty"`
	Ref       *Ref      `json:"ref,omitempty"`
	Objects   []Pointer `json:"objects"`
	HashAlgo  HashAlgo  `json:"hash_algo"`
}

// NewBatchRequest returns a basic-transfer, sha256 batch request for the
// given pointers, preserving their order.
func NewBatchRequest(op Operation, pointers []Pointer) *BatchRequest {
	objects := make([]Pointer, len(pointers))
	copy(objects, pointers)
	return &BatchRequest{
		Operation: op,
		Transfers: []string{TransferBasic},
		Objects:   objects,
		HashAlgo:  HashAlgoSHA256,
	}
}

// BatchResponse contains the per-object results of a batch request.
// https://github.com/git-lfs/git-lfs/blob/main/docs/api/batch.md#successful-responses
type BatchResponse struct {
	Transfer string         `json:"transfer,omitempty"`
	Objects  []*BatchObject `json:"objects"`
	HashAlgo HashAlgo       `json:"hash_algo"`
}

// BatchObject is the remote's answer for one object. Error, when set, takes
// precedence over Actions. A nil Actions means there is nothing to do.
type BatchObject struct {
	Oid           Oid          `json:"oid"`
	Size          int64        `json:"size"`
	Authenticated bool         `json:"authenticated,omitempty"`
	Actions       *Actions     `json:"actions,omitempty"`
	Error         *ObjectError `json:"error,omitempty"`
}

// Pointer returns the pointer the object describes.
func (o *BatchObject) Pointer() Pointer {
	return Pointer{Oid: o.Oid, Size: o.Size}
}

// Actions are the sub-operations the remote wants performed on an object.
type Actions struct {
	Download *ObjectAction `json:"download,omitempty"`
	Upload   *ObjectAction `json:"upload,omitempty"`
	Verify   *ObjectAction `json:"verify,omitempty"`
}

// ObjectAction describes how to perform one sub-operation on one object.
type ObjectAction struct {
	Href      string            `json:"href"`
	Header    map[string]string `json:"header,omitempty"`
	ExpiresIn int               `json:"expires_in,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

// Expired reports whether the action has an absolute expiry before now.
func (a *ObjectAction) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.IsZero() && a.ExpiresAt.Before(now)
}
