package transfer

import (
	"context"
	"fmt"
	"io"
)

// Operation is a Git LFS operation.
type Operation int

const (
	// UploadOperation is an upload operation.
	UploadOperation Operation = iota
	// DownloadOperation is a download operation.
	DownloadOperation
)

// String returns the string representation of the Operation.
func (o Operation) String() string {
	switch o {
	case UploadOperation:
		return "upload"
	case DownloadOperation:
		return "download"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Operation) MarshalText() ([]byte, error) {
	switch o {
	case UploadOperation, DownloadOperation:
		return []byte(o.String()), nil
	default:
		return nil, fmt.Errorf("unknown operation %d", int(o))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operation) UnmarshalText(b []byte) error {
	switch string(b) {
	case "upload":
		*o = UploadOperation
	case "download":
		*o = DownloadOperation
	default:
		return fmt.Errorf("unknown operation %q", b)
	}
	return nil
}

// Remote is a Git LFS remote. Implementations must be safe for concurrent
// use; the Client holds no locks around these calls.
type Remote interface {
	// Batch negotiates transfer actions for a set of objects.
	Batch(ctx context.Context, req *BatchRequest) (*BatchResponse, error)
	// Download streams the object described by action into w and returns
	// the Pointer computed from the bytes received.
	Download(ctx context.Context, action *ObjectAction, w io.Writer) (Pointer, error)
	// Upload sends content to the endpoint described by action.
	Upload(ctx context.Context, action *ObjectAction, content []byte) error
	// Verify asks the remote to confirm it holds the object p.
	Verify(ctx context.Context, action *ObjectAction, p Pointer) error
}
