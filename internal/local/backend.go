// Package local implements a Git LFS remote on top of another repository's
// `.git/lfs` directory, as addressed by a file:// URL.
package local

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/git-lfs-client/storage"
	"github.com/charmbracelet/git-lfs-client/transfer"
	"github.com/charmbracelet/log"
)

var _ transfer.Remote = &Remote{}

// Remote is a local Git LFS remote.
type Remote struct {
	lfsPath string
	umask   fs.FileMode
	store   storage.Storage
}

// New creates a new local remote. lfsPath should be the `.git/lfs` directory
// of the remote repository.
func New(lfsPath string, umask fs.FileMode) *Remote {
	if abs, err := filepath.Abs(lfsPath); err == nil {
		lfsPath = abs
	}
	return &Remote{
		lfsPath: lfsPath,
		umask:   umask,
		store:   storage.NewLocalStorage(filepath.Join(lfsPath, "objects"), umask),
	}
}

// FromURL creates a local remote for a file:// URL pointing at a repository,
// either bare or with a working tree.
func FromURL(rawURL string, umask fs.FileMode) (*Remote, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transfer.ErrURLParse, err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("%w: not a file URL: %q", transfer.ErrURLParse, rawURL)
	}
	path := filepath.FromSlash(u.Path)
	if fi, err := os.Stat(filepath.Join(path, ".git")); err == nil && fi.IsDir() {
		path = filepath.Join(path, ".git")
	}
	return New(filepath.Join(path, "lfs"), umask), nil
}

func (r *Remote) logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithPrefix("local")
}

// href returns the file:// URL of an object.
func (r *Remote) href(oid transfer.Oid) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(r.store.Path(oid.RelativePath()))}
	return u.String()
}

// resolve returns the object path and oid an action refers to. Actions must
// point inside the object store.
func (r *Remote) resolve(action *transfer.ObjectAction) (string, transfer.Oid, error) {
	u, err := url.Parse(action.Href)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", transfer.ErrURLParse, err)
	}
	if u.Scheme != "file" {
		return "", "", fmt.Errorf("%w: not a file URL: %q", transfer.ErrURLParse, action.Href)
	}
	path := filepath.FromSlash(u.Path)
	oid := transfer.Oid(filepath.Base(path))
	if !oid.Valid() || path != r.store.Path(oid.RelativePath()) {
		return "", "", fmt.Errorf("%w: %q is not an object of %s", transfer.ErrURLParse, action.Href, r.lfsPath)
	}
	return path, oid, nil
}

// Batch implements transfer.Remote. Objects are answered in request order.
// Downloads of missing objects fail with a 404 object error and uploads of
// present objects have nothing to do.
func (r *Remote) Batch(ctx context.Context, req *transfer.BatchRequest) (*transfer.BatchResponse, error) {
	if req.HashAlgo != transfer.HashAlgoSHA256 {
		return nil, fmt.Errorf("unsupported hash algorithm %s", req.HashAlgo)
	}
	objects := make([]*transfer.BatchObject, 0, len(req.Objects))
	for _, p := range req.Objects {
		item := &transfer.BatchObject{Oid: p.Oid, Size: p.Size}
		objects = append(objects, item)
		if !p.Oid.Valid() {
			item.Error = &transfer.ObjectError{Code: http.StatusUnprocessableEntity, Message: "Invalid object ID"}
			continue
		}

		present, err := r.store.Exists(p.RelativePath())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", transfer.ErrIO, err)
		}
		r.logger(ctx).Debug("batch", "operation", req.Operation, "oid", p.Oid, "present", present)

		switch req.Operation {
		case transfer.DownloadOperation:
			if !present {
				item.Error = &transfer.ObjectError{Code: http.StatusNotFound, Message: "Object does not exist"}
				continue
			}
			item.Actions = &transfer.Actions{
				Download: &transfer.ObjectAction{Href: r.href(p.Oid)},
			}
		case transfer.UploadOperation:
			if present {
				continue
			}
			item.Actions = &transfer.Actions{
				Upload: &transfer.ObjectAction{Href: r.href(p.Oid)},
				Verify: &transfer.ObjectAction{Href: r.href(p.Oid)},
			}
		default:
			return nil, fmt.Errorf("unknown operation %s", req.Operation)
		}
	}
	return &transfer.BatchResponse{
		Transfer: transfer.TransferBasic,
		Objects:  objects,
		HashAlgo: transfer.HashAlgoSHA256,
	}, nil
}

// Download implements transfer.Remote.
func (r *Remote) Download(ctx context.Context, action *transfer.ObjectAction, w io.Writer) (transfer.Pointer, error) {
	if err := ctx.Err(); err != nil {
		return transfer.Pointer{}, err
	}
	_, oid, err := r.resolve(action)
	if err != nil {
		return transfer.Pointer{}, err
	}
	f, err := r.store.Open(oid.RelativePath())
	if err != nil {
		return transfer.Pointer{}, err
	}
	defer f.Close() // nolint: errcheck

	hr := transfer.NewHashingReader(f, sha256.New())
	if _, err := io.Copy(w, hr); err != nil {
		return transfer.Pointer{}, err
	}
	return hr.Pointer(), nil
}

// Upload implements transfer.Remote. The content is staged in a lock file,
// checked against the oid it is stored under and then linked into place.
func (r *Remote) Upload(ctx context.Context, action *transfer.ObjectAction, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, oid, err := r.resolve(action)
	if err != nil {
		return err
	}
	if err := r.store.MkdirAll(oid.RelativePath()); err != nil {
		return err
	}

	lf, err := NewLockFile(path, 0o666&^r.umask)
	if err != nil {
		return err
	}
	defer func() {
		if err := lf.Remove(); err != nil {
			r.logger(ctx).Error("failed to remove staging file", "path", lf.Name(), "err", err)
		}
	}()

	vr := transfer.NewVerifyingReader(bytes.NewReader(content), sha256.New(), oid.String(), -1)
	if _, err := io.Copy(lf, vr); err != nil {
		_ = lf.Close()
		return err
	}
	if err := lf.Close(); err != nil {
		return err
	}
	if err := r.FixPermissions(lf.Name()); err != nil {
		return err
	}
	if err := lf.Persist(); err != nil {
		if errors.Is(err, fs.ErrExist) {
			r.logger(ctx).Debug("object already present", "oid", oid)
			return nil
		}
		return err
	}
	r.logger(ctx).Debug("stored object", "oid", oid, "size", len(content))
	return nil
}

// Verify implements transfer.Remote.
func (r *Remote) Verify(ctx context.Context, action *transfer.ObjectAction, p transfer.Pointer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, oid, err := r.resolve(action)
	if err != nil {
		return err
	}
	if oid != p.Oid {
		return fmt.Errorf("verify action for %s does not match object %s", oid, p.Oid)
	}
	stat, err := r.store.Stat(oid.RelativePath())
	if err != nil {
		return err
	}
	if stat.Size() != p.Size {
		return fmt.Errorf("size mismatch: expected %d, got %d", p.Size, stat.Size())
	}

	f, err := r.store.Open(oid.RelativePath())
	if err != nil {
		return err
	}
	defer f.Close() // nolint: errcheck

	got, err := transfer.GeneratePointer(f)
	if err != nil {
		return err
	}
	if got.Hash() != p.Hash() {
		return fmt.Errorf("%w: expected %s, got %s", transfer.ErrChecksumMismatch, p.Oid, got.Oid)
	}
	return nil
}

// String returns a description of the remote for logs.
func (r *Remote) String() string {
	return "file://" + strings.TrimSuffix(filepath.ToSlash(r.lfsPath), "/")
}
