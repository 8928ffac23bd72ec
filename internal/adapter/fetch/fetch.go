// Package fetch opens CSV sources from local files and http(s) URLs, and
// dispatches s3:// URIs to an object storage client.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
)

// Source is a CSV resource that can be read from start to end.
type Source interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
	Source() string
}

// File reads a CSV document from the local filesystem.
type File struct {
	path string
}

// NewFile creates a File source.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Fetch(_ context.Context) (io.ReadCloser, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}
	return fh, nil
}

func (f *File) Source() string { return f.path }

// HTTP reads a CSV document with a GET request.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP creates an HTTP source. A nil client uses http.DefaultClient.
func NewHTTP(url string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{url: url, client: client}
}

func (h *HTTP) Fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrFetchFailure, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrFetchFailure, h.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: get %s: status %d", domain.ErrFetchFailure, h.url, resp.StatusCode)
	}
	return resp.Body, nil
}

func (h *HTTP) Source() string { return h.url }

// Resolver turns configured source strings into Sources.
type Resolver struct {
	HTTPClient *http.Client

	// S3 opens s3:// URIs. When nil, s3 sources are rejected.
	S3 func(uri string) (Source, error)
}

// Resolve picks a Source by URI scheme: s3://, http(s)://, otherwise a file path.
func (r *Resolver) Resolve(uri string) (Source, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		if r.S3 == nil {
			return nil, fmt.Errorf("resolve %s: s3 sources are not configured", uri)
		}
		return r.S3(uri)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return NewHTTP(uri, r.HTTPClient), nil
	default:
		return NewFile(strings.TrimPrefix(uri, "file://")), nil
	}
}

// ResolveAll resolves every uri in order, stopping at the first failure.
func (r *Resolver) ResolveAll(uris []string) ([]Source, error) {
	out := make([]Source, 0, len(uris))
	for _, u := range uris {
		src, err := r.Resolve(u)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}
