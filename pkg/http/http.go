// Package http implements the HTTP transport used to fetch product files.
// A single HTTPClient carries the authenticated session (its cookie jar) and is
// shared by every download of a batch.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/cperrin88/dlkeep/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "dlkeep/1.0"

// Options configures an HTTPClient.
type Options struct {
	// Timeout bounds connection setup and waiting for response headers.
	// Reading the body is not bounded.
	Timeout time.Duration

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// Jar holds the session cookies. A fresh public-suffix aware jar is
	// created when nil.
	Jar http.CookieJar
}

// HTTPClient handles ranged GET requests for product files.
type HTTPClient struct {
	client    *http.Client
	userAgent string
}

// NewCookieJar returns an empty cookie jar that honours the public suffix list.
func NewCookieJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}
	return jar, nil
}

// NewHTTPClient creates a new HTTP client for file downloads.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Jar == nil {
		jar, err := NewCookieJar()
		if err != nil {
			return nil, err
		}
		opts.Jar = jar
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Timeout > 0 {
		transport.ResponseHeaderTimeout = opts.Timeout
		transport.TLSHandshakeTimeout = opts.Timeout
	}
	// Ranged requests need the raw bytes.
	transport.DisableCompression = true

	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Jar:       opts.Jar,
		},
		userAgent: opts.UserAgent,
	}, nil
}

// Jar returns the cookie jar carrying the session.
func (hc *HTTPClient) Jar() http.CookieJar {
	return hc.client.Jar
}

// SetCookies installs session cookies for the host of rawURL.
func (hc *HTTPClient) SetCookies(rawURL string, cookies map[string]string) error {
	if len(cookies) == 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(err, "invalid cookie URL %q", rawURL)
	}
	list := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		list = append(list, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	hc.client.Jar.SetCookies(u, list)
	return nil
}

// GetRange implements Client. The response status is not checked: the server
// is trusted to honour the range header.
func (hc *HTTPClient) GetRange(ctx context.Context, rawURL string, offset uint64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, errors.WrapKind(errors.ErrConnection, err, "failed to create request for %q", rawURL)
	}

	req.Header.Set("User-Agent", hc.userAgent)
	req.Header.Set("Range", RangeHeader(offset))

	resp, err := hc.client.Do(req)
	if err != nil {
		return nil, errors.WrapKind(errors.ErrConnection, err, "request failed for %q", rawURL)
	}
	return resp.Body, nil
}

// RangeHeader formats the open-ended range header value starting at offset.
func RangeHeader(offset uint64) string {
	return fmt.Sprintf("bytes=%d-", offset)
}
