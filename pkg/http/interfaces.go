//go:generate mockgen -destination=mocks/http.go . Client
package http

import (
	"context"
	"io"
)

// Client is the transport capability the downloader needs: a GET that starts
// at a byte offset and exposes the response body as a stream.
type Client interface {
	// GetRange issues a GET for rawURL carrying "Range: bytes={offset}-" and
	// returns the response body. An error means the request could not be
	// established; errors while reading the body are reported by the reader.
	GetRange(ctx context.Context, rawURL string, offset uint64) (io.ReadCloser, error)
}
