// Package testutil provides an HTTP file server for exercising ranged,
// resumable downloads in tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// RangeRequest records one request seen by a RangeServer.
type RangeRequest struct {
	Path      string
	Offset    uint64
	UserAgent string
	Cookies   []*http.Cookie
}

// RangeServer serves in-memory files and honors "Range: bytes=N-" headers.
// A file can be configured to drop the connection once after a number of
// bytes, which a client observes as a mid-stream read error.
type RangeServer struct {
	*httptest.Server

	mu        sync.Mutex
	files     map[string][]byte
	dropAfter map[string]int
	requests  []RangeRequest
}

// NewRangeServer starts a server and registers its shutdown with t.Cleanup.
func NewRangeServer(t *testing.T) *RangeServer {
	t.Helper()
	rs := &RangeServer{
		files:     map[string][]byte{},
		dropAfter: map[string]int{},
	}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(rs.Close)
	return rs
}

// AddFile serves content at path.
func (rs *RangeServer) AddFile(path string, content []byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.files[path] = content
}

// DropAfter makes the next response for path abort after n body bytes.
func (rs *RangeServer) DropAfter(path string, n int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.dropAfter[path] = n
}

// Requests returns a copy of the requests served so far.
func (rs *RangeServer) Requests() []RangeRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]RangeRequest(nil), rs.requests...)
}

// RequestsFor returns the requests made for path.
func (rs *RangeServer) RequestsFor(path string) []RangeRequest {
	var out []RangeRequest
	for _, req := range rs.Requests() {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func (rs *RangeServer) serve(w http.ResponseWriter, r *http.Request) {
	offset := parseRange(r.Header.Get("Range"))

	rs.mu.Lock()
	rs.requests = append(rs.requests, RangeRequest{
		Path:      r.URL.Path,
		Offset:    offset,
		UserAgent: r.UserAgent(),
		Cookies:   r.Cookies(),
	})
	content, ok := rs.files[r.URL.Path]
	drop, dropping := rs.dropAfter[r.URL.Path]
	if dropping {
		delete(rs.dropAfter, r.URL.Path)
	}
	rs.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if offset > uint64(len(content)) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", len(content)))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	body := content[offset:]
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if offset > 0 {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, len(content)-1, len(content)))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if dropping && drop < len(body) {
		_, _ = w.Write(body[:drop])
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Aborting after a short write closes the connection, so the client
		// sees an unexpected EOF before Content-Length bytes arrived.
		panic(http.ErrAbortHandler)
	}
	_, _ = w.Write(body)
}

func parseRange(header string) uint64 {
	rng, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0
	}
	start, _, _ := strings.Cut(rng, "-")
	offset, err := strconv.ParseUint(start, 10, 64)
	if err != nil {
		return 0
	}
	return offset
}
