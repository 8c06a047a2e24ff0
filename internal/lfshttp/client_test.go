package lfshttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmbracelet/git-lfs-client/internal/lfshttp"
	"github.com/charmbracelet/git-lfs-client/transfer"
)

// lfsServer is a minimal in-memory Git LFS server.
type lfsServer struct {
	t *testing.T

	mu       sync.Mutex
	objects  map[transfer.Oid][]byte
	requests []transfer.BatchRequest
	headers  []http.Header
	verified []transfer.Pointer
	status   int
	failGets int
	url      string
}

func newLFSServer(t *testing.T) *lfsServer {
	s := &lfsServer{t: t, objects: map[transfer.Oid][]byte{}}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	s.url = srv.URL
	return s
}

func (s *lfsServer) endpoint(t *testing.T) lfshttp.Endpoint {
	e, err := lfshttp.NewEndpoint(s.url + "/org/repo")
	require.NoError(t, err)
	return e
}

func (s *lfsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = append(s.headers, r.Header.Clone())

	if s.status != 0 {
		w.Header().Set("Content-Type", transfer.MediaType)
		w.WriteHeader(s.status)
		_ = json.NewEncoder(w).Encode(lfshttp.ErrorResponse{Message: "go away", RequestID: "42"})
		return
	}

	oid := transfer.Oid(filepath.Base(r.URL.Path))
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/org/repo.git/info/lfs/objects/batch":
		var req transfer.BatchRequest
		assert.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))
		s.requests = append(s.requests, req)
		res := transfer.BatchResponse{Transfer: transfer.TransferBasic}
		for _, p := range req.Objects {
			obj := &transfer.BatchObject{Oid: p.Oid, Size: p.Size}
			href := s.url + "/objects/" + p.Oid.String()
			_, present := s.objects[p.Oid]
			switch {
			case req.Operation == transfer.DownloadOperation && present:
				obj.Actions = &transfer.Actions{Download: &transfer.ObjectAction{
					Href:   href,
					Header: map[string]string{"Authorization": "Bearer download"},
				}}
			case req.Operation == transfer.DownloadOperation:
				obj.Error = &transfer.ObjectError{Code: 404, Message: "Object does not exist"}
			case !present:
				obj.Actions = &transfer.Actions{
					Upload: &transfer.ObjectAction{Href: href},
					Verify: &transfer.ObjectAction{Href: href + "/verify"},
				}
			}
			res.Objects = append(res.Objects, obj)
		}
		w.Header().Set("Content-Type", transfer.MediaType)
		_ = json.NewEncoder(w).Encode(res)
	case r.Method == http.MethodGet:
		if s.failGets > 0 {
			s.failGets--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		b, ok := s.objects[oid]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(b)
	case r.Method == http.MethodPut:
		b, err := io.ReadAll(r.Body)
		assert.NoError(s.t, err)
		s.objects[oid] = b
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/verify"):
		var p transfer.Pointer
		assert.NoError(s.t, json.NewDecoder(r.Body).Decode(&p))
		s.verified = append(s.verified, p)
		if b, ok := s.objects[p.Oid]; !ok || int64(len(b)) != p.Size {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(lfshttp.ErrorResponse{Message: "verification failed"})
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func pointerFor(t *testing.T, content string) transfer.Pointer {
	t.Helper()
	p, err := transfer.GeneratePointer(strings.NewReader(content))
	require.NoError(t, err)
	return p
}

func TestBatch(t *testing.T) {
	srv := newLFSServer(t)
	p := pointerFor(t, "hello")
	srv.objects[p.Oid] = []byte("hello")
	client, err := lfshttp.New(srv.endpoint(t), lfshttp.WithHeaders(map[string]string{"X-Extra": "yes"}))
	require.NoError(t, err)

	res, err := client.Batch(context.Background(), transfer.NewBatchRequest(transfer.DownloadOperation, []transfer.Pointer{p}))
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	require.NotNil(t, res.Objects[0].Actions.Download)

	require.Len(t, srv.requests, 1)
	assert.Equal(t, transfer.DownloadOperation, srv.requests[0].Operation)
	assert.Equal(t, []transfer.Pointer{p}, srv.requests[0].Objects)
	assert.Equal(t, transfer.MediaType, srv.headers[0].Get("Content-Type"))
	assert.Equal(t, transfer.MediaType, srv.headers[0].Get("Accept"))
	assert.Equal(t, "yes", srv.headers[0].Get("X-Extra"))
}

func TestBatchAccessDenied(t *testing.T) {
	srv := newLFSServer(t)
	srv.status = http.StatusUnauthorized
	client, err := lfshttp.New(srv.endpoint(t))
	require.NoError(t, err)

	_, err = client.Batch(context.Background(), transfer.NewBatchRequest(transfer.UploadOperation, []transfer.Pointer{pointerFor(t, "x")}))
	assert.ErrorIs(t, err, transfer.ErrAccessDenied)

	var serr *lfshttp.StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
	assert.Contains(t, serr.Error(), "go away")
}

func TestDownloadSendsActionHeaders(t *testing.T) {
	srv := newLFSServer(t)
	p := pointerFor(t, "hello")
	srv.objects[p.Oid] = []byte("hello")
	client, err := lfshttp.New(srv.endpoint(t), lfshttp.WithHeaders(map[string]string{"Authorization": "Basic default"}))
	require.NoError(t, err)

	res, err := client.Batch(context.Background(), transfer.NewBatchRequest(transfer.DownloadOperation, []transfer.Pointer{p}))
	require.NoError(t, err)

	var buf bytes.Buffer
	got, err := client.Download(context.Background(), res.Objects[0].Actions.Download, &buf)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, "hello", buf.String())
	assert.Equal(t, "Basic default", srv.headers[0].Get("Authorization"))
	assert.Equal(t, "Bearer download", srv.headers[1].Get("Authorization"))
}

func TestInvalidHref(t *testing.T) {
	srv := newLFSServer(t)
	client, err := lfshttp.New(srv.endpoint(t))
	require.NoError(t, err)

	_, err = client.Download(context.Background(), &transfer.ObjectAction{Href: "://nope"}, io.Discard)
	assert.ErrorIs(t, err, transfer.ErrURLParse)
}

func TestNewRejectsNonHTTPEndpoint(t *testing.T) {
	e, err := lfshttp.NewEndpoint("ssh://git@example.com/repo.git")
	require.NoError(t, err)
	_, err = lfshttp.New(e)
	assert.ErrorIs(t, err, transfer.ErrURLParse)
}

func TestPushAndPull(t *testing.T) {
	srv := newLFSServer(t)
	remote, err := lfshttp.New(srv.endpoint(t), lfshttp.WithTimeout(5*time.Second))
	require.NoError(t, err)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "lfs")
	p := pointerFor(t, "large file content")
	require.NoError(t, writeObject(src, p, "large file content"))
	require.NoError(t, transfer.NewClient(src, remote, transfer.WithRetry(3, 0)).Push(ctx, []transfer.Pointer{p}))
	assert.Equal(t, "large file content", string(srv.objects[p.Oid]))
	assert.Equal(t, []transfer.Pointer{p}, srv.verified)

	// The first GET fails with a 503 and is retried.
	srv.failGets = 1
	dst := filepath.Join(t.TempDir(), "lfs")
	require.NoError(t, transfer.NewClient(dst, remote, transfer.WithRetry(3, 0)).Pull(ctx, []transfer.Pointer{p}))
	got, err := readObject(dst, p)
	require.NoError(t, err)
	assert.Equal(t, "large file content", got)
}

func TestPullTamperedObject(t *testing.T) {
	srv := newLFSServer(t)
	p := pointerFor(t, "original")
	srv.objects[p.Oid] = []byte("tampered")
	remote, err := lfshttp.New(srv.endpoint(t))
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "lfs")
	err = transfer.NewClient(dst, remote, transfer.WithRetry(3, 0)).Pull(context.Background(), []transfer.Pointer{p})
	assert.ErrorIs(t, err, transfer.ErrChecksumMismatch)
	_, err = readObject(dst, p)
	assert.Error(t, err)
}
