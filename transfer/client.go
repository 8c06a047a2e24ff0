package transfer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/charmbracelet/git-lfs-client/storage"
	"github.com/dustin/go-humanize"
)

// Client pulls and pushes Git LFS objects between a local `.git/lfs`
// directory and a Remote.
//
// Objects of one call are processed strictly in batch response order. When a
// call fails at response index k, every object before k is done or skipped
// and nothing at or after k has been started, other than the failed object
// whose partial file is removed.
type Client struct {
	remote   Remote
	storage  storage.Storage
	attempts uint
	delay    time.Duration
	umask    fs.FileMode
	ref      string
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithRetry sets the number of attempts per object transfer and the fixed
// delay between them. Attempts below one are treated as one.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		if delay < 0 {
			delay = 0
		}
		c.attempts = uint(attempts)
		c.delay = delay
	}
}

// WithUmask sets the umask applied to created object files and directories.
func WithUmask(umask fs.FileMode) Option {
	return func(c *Client) {
		c.umask = umask
	}
}

// WithRef sets the git reference sent along with batch requests.
func WithRef(name string) Option {
	return func(c *Client) {
		c.ref = name
	}
}

// WithObserver registers fn to be called on every object state transition.
func WithObserver(fn Observer) Option {
	return func(c *Client) {
		c.observer = fn
	}
}

// NewClient creates a new transfer client. lfsPath should be a `.git/lfs`
// directory; objects are stored under its `objects` subdirectory.
func NewClient(lfsPath string, remote Remote, opts ...Option) *Client {
	c := &Client{
		remote:   remote,
		attempts: DefaultAttempts,
		delay:    DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.storage = storage.NewLocalStorage(filepath.Join(lfsPath, "objects"), c.umask)
	return c
}

// Pull downloads the given objects into the local object store.
func (c *Client) Pull(ctx context.Context, pointers []Pointer) error {
	if len(pointers) == 0 {
		return nil
	}
	res, err := c.batch(ctx, DownloadOperation, pointers)
	if err != nil {
		return err
	}
	return c.downloadObjects(ctx, res, pointers)
}

// Push uploads the given objects from the local object store.
func (c *Client) Push(ctx context.Context, pointers []Pointer) error {
	if len(pointers) == 0 {
		return nil
	}
	res, err := c.batch(ctx, UploadOperation, pointers)
	if err != nil {
		return err
	}
	return c.uploadObjects(ctx, res, pointers)
}

// batch validates the pointers and negotiates actions with the remote.
func (c *Client) batch(ctx context.Context, op Operation, pointers []Pointer) (*BatchResponse, error) {
	for _, p := range pointers {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOid, p.Oid)
		}
	}

	req := NewBatchRequest(op, pointers)
	if c.ref != "" {
		req.Ref = &Ref{Name: c.ref}
	}

	logger(ctx).Debug("batch request", "operation", op, "objects", len(req.Objects))
	res, err := c.remote.Batch(ctx, req)
	if err != nil {
		return nil, wrap(ErrBatch, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: no response", ErrBatch)
	}
	if res.Transfer != "" && res.Transfer != TransferBasic {
		return nil, fmt.Errorf("%w: unsupported transfer adapter %q", ErrBatch, res.Transfer)
	}
	logger(ctx).Debug("batch response", "operation", op, "objects", len(res.Objects))
	return res, nil
}

// index maps oids to the requested pointers. The first pointer wins for
// duplicated oids.
func index(pointers []Pointer) map[Oid]Pointer {
	m := make(map[Oid]Pointer, len(pointers))
	for _, p := range pointers {
		if _, ok := m[p.Oid]; !ok {
			m[p.Oid] = p
		}
	}
	return m
}

func (c *Client) downloadObjects(ctx context.Context, res *BatchResponse, pointers []Pointer) error {
	requested := index(pointers)
	for i, object := range res.Objects {
		if object == nil {
			return fmt.Errorf("%w: object %d is null", ErrEmptyResponse, i)
		}
		st := &ObjectStatus{Index: i, Operation: DownloadOperation, Pointer: object.Pointer()}
		c.transition(st, StateNegotiated)

		if object.Error != nil {
			return c.fail(st, fmt.Errorf("pull: object %d %s: %w", i, object.Oid, object.Error))
		}

		if object.Actions == nil {
			logger(ctx).Warn("pull: server has nothing to do for object; skip", "index", i, "oid", object.Oid)
			c.transition(st, StateSkipped)
			continue
		}

		action := object.Actions.Download
		if action == nil {
			return c.fail(st, fmt.Errorf("%w: pull: object %d %s has no download action", ErrEmptyResponse, i, object.Oid))
		}

		pointer, ok := requested[object.Oid]
		if !ok {
			return c.fail(st, fmt.Errorf("%w: pull: object %d %s was not requested", ErrNotFound, i, object.Oid))
		}
		st.Pointer = pointer

		if err := c.storage.MkdirAll(pointer.RelativePath()); err != nil {
			return c.fail(st, wrap(ErrIO, err))
		}

		c.transition(st, StateTransferring)
		logger(ctx).Info("downloading lfs object", "index", i, "path", pointer.RelativePath(), "href", action.Href, "size", humanize.IBytes(uint64(pointer.Size)))
		attempts, err := c.retry(ctx, st, func() error {
			return c.download(ctx, pointer, action)
		})
		st.Attempts = attempts
		if err != nil {
			return c.fail(st, err)
		}
		bytesCounter.WithLabelValues(DownloadOperation.String()).Add(float64(pointer.Size))
		c.transition(st, StateDone)
	}
	return nil
}

// download performs a single download attempt. The object file is created
// exclusively and removed again on any failure, so a failed attempt never
// leaves a partial object behind.
func (c *Client) download(ctx context.Context, pointer Pointer, action *ObjectAction) error {
	name := pointer.RelativePath()
	if err := c.storage.Remove(name); err != nil {
		return wrap(ErrIO, err)
	}
	f, err := c.storage.CreateExclusive(name)
	if err != nil {
		return wrap(ErrIO, err)
	}

	buf := bufio.NewWriter(f)
	sink := NewHashingWriter(buf, sha256.New())
	downloaded, err := c.remote.Download(ctx, action, sink)
	if err != nil {
		err = wrap(ErrDownload, err)
	} else if ferr := buf.Flush(); ferr != nil {
		err = wrap(ErrIO, ferr)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = wrap(ErrIO, cerr)
	}
	if err != nil {
		if rerr := c.storage.Remove(name); rerr != nil {
			logger(ctx).Error("failed to remove partial object", "path", name, "err", rerr)
		}
		return err
	}

	if downloaded.Hash() != pointer.Hash() || sink.Pointer().Hash() != pointer.Hash() {
		logger(ctx).Error("checksum mismatch; removing downloaded object", "path", name, "expected", pointer.Oid, "got", downloaded.Oid, "written", sink.Pointer().Oid)
		if rerr := c.storage.Remove(name); rerr != nil {
			logger(ctx).Error("failed to remove corrupt object", "path", name, "err", rerr)
		}
		return fmt.Errorf("%w: %s: expected %s, got %s", ErrChecksumMismatch, name, pointer.Oid, downloaded.Oid)
	}
	return nil
}

func (c *Client) uploadObjects(ctx context.Context, res *BatchResponse, pointers []Pointer) error {
	requested := index(pointers)
	for i, object := range res.Objects {
		if object == nil {
			return fmt.Errorf("%w: object %d is null", ErrEmptyResponse, i)
		}
		st := &ObjectStatus{Index: i, Operation: UploadOperation, Pointer: object.Pointer()}
		c.transition(st, StateNegotiated)

		if object.Error != nil {
			return c.fail(st, fmt.Errorf("push: object %d %s: %w", i, object.Oid, object.Error))
		}

		if object.Actions == nil {
			logger(ctx).Warn("push: server has nothing to do for object; skip", "index", i, "oid", object.Oid)
			c.transition(st, StateSkipped)
			continue
		}

		pointer, ok := requested[object.Oid]
		if !ok {
			return c.fail(st, fmt.Errorf("%w: push: object %d %s was not requested", ErrNotFound, i, object.Oid))
		}
		st.Pointer = pointer
		name := pointer.RelativePath()

		upload, verify := object.Actions.Upload, object.Actions.Verify
		if upload == nil && verify == nil {
			logger(ctx).Warn("push: no upload or verify action for object; skip", "index", i, "oid", object.Oid)
			c.transition(st, StateSkipped)
			continue
		}

		if upload != nil {
			content, err := c.storage.ReadFile(name)
			if err != nil {
				return c.fail(st, wrap(ErrIO, err))
			}

			c.transition(st, StateTransferring)
			logger(ctx).Info("uploading lfs object", "index", i, "path", name, "href", upload.Href, "size", humanize.IBytes(uint64(len(content))))
			attempts, err := c.retry(ctx, st, func() error {
				return wrap(ErrUpload, c.remote.Upload(ctx, upload, content))
			})
			st.Attempts = attempts
			if err != nil {
				return c.fail(st, err)
			}
			bytesCounter.WithLabelValues(UploadOperation.String()).Add(float64(len(content)))
		}

		if verify != nil {
			c.transition(st, StateVerifying)
			logger(ctx).Info("verifying lfs object", "index", i, "path", name, "href", verify.Href)
			if err := c.remote.Verify(ctx, verify, pointer); err != nil {
				return c.fail(st, wrap(ErrVerify, err))
			}
		}

		c.transition(st, StateDone)
	}
	return nil
}

// IsIntegrityError reports whether err means the remote served or holds
// content that doesn't match its oid.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrVerify)
}
