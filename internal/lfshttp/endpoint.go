package lfshttp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/git-lfs-client/transfer"
)

// Endpoint is a Git LFS endpoint.
type Endpoint = *url.URL

// NewEndpoint returns the Git LFS endpoint of a repository URL. Remote URLs
// of http(s) repositories get `.git/info/lfs` appended. file:// and ssh
// URLs are returned as is.
func NewEndpoint(rawurl string) (Endpoint, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		e, err := endpointFromBareSSH(rawurl)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", transfer.ErrURLParse, err)
		}
		u = e
	}

	u.Path = strings.TrimSuffix(u.Path, "/")

	switch u.Scheme {
	case "git":
		// Use https for git:// URLs and strip the port if it exists.
		u.Scheme = "https"
		if u.Port() != "" {
			u.Host = u.Hostname()
		}
		fallthrough
	case "http", "https":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: missing host: %s", transfer.ErrURLParse, rawurl)
		}
		switch {
		case strings.HasSuffix(u.Path, "/info/lfs"):
		case strings.HasSuffix(u.Path, ".git"):
			u.Path += "/info/lfs"
		default:
			u.Path += ".git/info/lfs"
		}
	case "file", "ssh", "git+ssh", "ssh+git":
	default:
		return nil, fmt.Errorf("%w: unknown url: %s", transfer.ErrURLParse, rawurl)
	}

	return u, nil
}

// endpointFromBareSSH creates a new endpoint from a bare ssh repo.
//
//	user@host.com:path/to/repo.git or
//	[user@host.com:port]:path/to/repo.git
func endpointFromBareSSH(rawurl string) (*url.URL, error) {
	parts := strings.Split(rawurl, ":")
	partsLen := len(parts)
	if partsLen < 2 {
		return url.Parse(rawurl)
	}

	// Treat presence of ':' as a bare URL
	var newPath string
	if len(parts) > 2 { // port included; really should only ever be 3 parts
		// Correctly handle [host:port]:path URLs
		parts[0] = strings.TrimPrefix(parts[0], "[")
		parts[1] = strings.TrimSuffix(parts[1], "]")
		newPath = fmt.Sprintf("%v:%v", parts[0], strings.Join(parts[1:], "/"))
	} else {
		newPath = strings.Join(parts, "/")
	}
	newrawurl := fmt.Sprintf("ssh://%v", newPath)
	return url.Parse(newrawurl)
}
