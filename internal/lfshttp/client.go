// Package lfshttp implements a Git LFS remote speaking the batch API and the
// basic transfer adapter over HTTP.
package lfshttp

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/git-lfs-client/transfer"
	"github.com/charmbracelet/log"
	"github.com/rubyist/tracerx"
)

// ErrorResponse is the body of a failed Git LFS API response.
// https://github.com/git-lfs/git-lfs/blob/main/docs/api/batch.md#response-errors
type ErrorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

// Client is a Git LFS HTTP remote.
type Client struct {
	client   *http.Client
	endpoint Endpoint
	headers  map[string]string
}

var _ transfer.Remote = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets a timeout for every single request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.client
		hc.Timeout = d
		c.client = &hc
	}
}

// WithHeaders adds headers to every request. Headers of an action take
// precedence over these.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// New returns a new Git LFS HTTP remote for the given endpoint.
func New(endpoint Endpoint, opts ...Option) (*Client, error) {
	if endpoint == nil || (endpoint.Scheme != "http" && endpoint.Scheme != "https") {
		return nil, fmt.Errorf("%w: not an http endpoint: %v", transfer.ErrURLParse, endpoint)
	}
	c := &Client{
		client:   http.DefaultClient,
		endpoint: endpoint,
		headers:  map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithPrefix("lfs")
}

// Batch implements transfer.Remote.
func (c *Client) Batch(ctx context.Context, request *transfer.BatchRequest) (*transfer.BatchResponse, error) {
	url := fmt.Sprintf("%s/objects/batch", c.endpoint.String())

	payload := new(bytes.Buffer)
	if err := json.NewEncoder(payload).Encode(request); err != nil {
		logger(ctx).Errorf("Error encoding json: %v", err)
		return nil, err
	}

	res, err := c.performRequest(ctx, http.MethodPost, &transfer.ObjectAction{Href: url}, payload, func(req *http.Request) {
		req.Header.Set("Content-Type", transfer.MediaType)
	})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close() // nolint: errcheck

	var response transfer.BatchResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		logger(ctx).Errorf("Error decoding json: %v", err)
		return nil, fmt.Errorf("invalid batch response: %w", err)
	}

	if len(response.Transfer) == 0 {
		response.Transfer = transfer.TransferBasic
	}

	return &response, nil
}

// Download implements transfer.Remote.
func (c *Client) Download(ctx context.Context, action *transfer.ObjectAction, w io.Writer) (transfer.Pointer, error) {
	res, err := c.performRequest(ctx, http.MethodGet, action, nil, nil)
	if err != nil {
		return transfer.Pointer{}, err
	}
	defer res.Body.Close() // nolint: errcheck

	hr := transfer.NewHashingReader(res.Body, sha256.New())
	if _, err := io.Copy(w, hr); err != nil {
		return transfer.Pointer{}, err
	}
	tracerx.Printf("HTTP: downloaded %d bytes from %s", hr.Size(), action.Href)
	return hr.Pointer(), nil
}

// Upload implements transfer.Remote.
func (c *Client) Upload(ctx context.Context, action *transfer.ObjectAction, content []byte) error {
	res, err := c.performRequest(ctx, http.MethodPut, action, bytes.NewReader(content), func(req *http.Request) {
		if len(req.Header.Get("Content-Type")) == 0 {
			req.Header.Set("Content-Type", "application/octet-stream")
		}

		if req.Header.Get("Transfer-Encoding") == "chunked" {
			req.TransferEncoding = []string{"chunked"}
		}

		req.ContentLength = int64(len(content))
	})
	if err != nil {
		return err
	}
	return res.Body.Close()
}

// Verify implements transfer.Remote.
func (c *Client) Verify(ctx context.Context, action *transfer.ObjectAction, p transfer.Pointer) error {
	b, err := json.Marshal(p)
	if err != nil {
		logger(ctx).Errorf("Error encoding json: %v", err)
		return err
	}

	res, err := c.performRequest(ctx, http.MethodPost, action, bytes.NewReader(b), func(req *http.Request) {
		req.Header.Set("Content-Type", transfer.MediaType)
	})
	if err != nil {
		return err
	}
	return res.Body.Close()
}

// performRequest sends a request for the given action and returns the
// response if it has a 2xx status. The caller must close the body.
func (c *Client) performRequest(ctx context.Context, method string, action *transfer.ObjectAction, body io.Reader, callback func(*http.Request)) (*http.Response, error) {
	logger(ctx).Debugf("Calling: %s %s", method, action.Href)
	if action.Expired(time.Now()) {
		logger(ctx).Warn("action has expired", "href", action.Href, "expires_at", action.ExpiresAt)
	}

	req, err := http.NewRequestWithContext(ctx, method, action.Href, body)
	if err != nil {
		logger(ctx).Errorf("Error creating request: %v", err)
		return nil, fmt.Errorf("%w: %w", transfer.ErrURLParse, err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range action.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Accept", transfer.MediaType)

	if callback != nil {
		callback(req)
	}

	tracerx.Printf("HTTP: %s %s", method, action.Href)
	res, err := c.client.Do(req)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		logger(ctx).Errorf("Error while processing request: %v", err)
		return nil, err
	}
	tracerx.Printf("HTTP: %d %s", res.StatusCode, action.Href)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, handleErrorResponse(res)
	}

	return res, nil
}

// StatusError is returned for unsuccessful HTTP responses.
type StatusError struct {
	StatusCode int
	Message    string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Is makes 401 and 403 responses match transfer.ErrAccessDenied and 404
// responses match transfer.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	switch target {
	case transfer.ErrAccessDenied:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case transfer.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

func handleErrorResponse(resp *http.Response) error {
	defer resp.Body.Close() // nolint: errcheck

	serr := &StatusError{StatusCode: resp.StatusCode}
	er, err := decodeResponseError(resp.Body)
	if err == nil {
		serr.Message = er.Message
		if er.RequestID != "" {
			serr.Message += " (request id " + strconv.Quote(er.RequestID) + ")"
		}
	}
	return serr
}

func decodeResponseError(r io.Reader) (ErrorResponse, error) {
	var er ErrorResponse
	if err := json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(&er); err != nil {
		return er, err
	}
	if er.Message == "" {
		return er, errors.New("empty error message")
	}
	return er, nil
}
