package transfer

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAccessDenied is returned when the remote rejects a request for
	// authorization reasons.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotFound is returned when a batch response names an object that was
	// never requested.
	ErrNotFound = errors.New("not found")
	// ErrBatch is returned when the batch negotiation itself fails.
	ErrBatch = errors.New("batch failed")
	// ErrDownload is returned when a transport download fails.
	ErrDownload = errors.New("download failed")
	// ErrUpload is returned when a transport upload fails.
	ErrUpload = errors.New("upload failed")
	// ErrVerify is returned when the remote fails to verify an upload.
	ErrVerify = errors.New("verify failed")
	// ErrChecksumMismatch is returned when downloaded content doesn't hash to
	// the expected oid.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrEmptyResponse is returned when the remote returns an action set that
	// lacks the action needed for the operation.
	ErrEmptyResponse = errors.New("empty response")
	// ErrURLParse is returned for malformed endpoints and action hrefs.
	ErrURLParse = errors.New("url parse error")
	// ErrIO is returned on local I/O faults.
	ErrIO = errors.New("io")
	// ErrInvalidOid is returned when an invalid Oid is encountered.
	ErrInvalidOid = errors.New("invalid oid")
	// ErrRetriesExhausted is returned when every transfer attempt of an
	// object failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// ObjectError is a per-object error reported by the remote in a batch
// response.
type ObjectError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var _ error = (*ObjectError)(nil)

// Error implements error.
func (e *ObjectError) Error() string {
	return fmt.Sprintf("object error: %d - %s", e.Code, e.Message)
}

// Is makes authorization failures match ErrAccessDenied and missing objects
// match ErrNotFound.
func (e *ObjectError) Is(target error) bool {
	switch target {
	case ErrAccessDenied:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// wrap tags err with kind unless it already carries it.
func wrap(kind, err error) error {
	if err == nil || errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
