package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cperrin88/dlkeep/pkg/errors"
)

// fakeClient serves in-memory content and can be told to refuse connections,
// drop streams at given offsets, or hang until the context is cancelled.
type fakeClient struct {
	mu           sync.Mutex
	content      map[string][]byte
	connFailures map[string]int
	drops        map[string][]uint64
	hang         map[string]bool
	offsets      map[string][]uint64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		content:      map[string][]byte{},
		connFailures: map[string]int{},
		drops:        map[string][]uint64{},
		hang:         map[string]bool{},
		offsets:      map[string][]uint64{},
	}
}

func (c *fakeClient) GetRange(ctx context.Context, rawURL string, offset uint64) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.offsets[rawURL] = append(c.offsets[rawURL], offset)

	if c.connFailures[rawURL] != 0 {
		if c.connFailures[rawURL] > 0 {
			c.connFailures[rawURL]--
		}
		return nil, fmt.Errorf("%w: connection refused", errors.ErrConnection)
	}
	if c.hang[rawURL] {
		return &hangingReader{ctx: ctx}, nil
	}

	content, ok := c.content[rawURL]
	if !ok {
		return nil, fmt.Errorf("%w: unknown url %s", errors.ErrConnection, rawURL)
	}
	if drops := c.drops[rawURL]; len(drops) > 0 && offset < drops[0] {
		end := drops[0]
		c.drops[rawURL] = drops[1:]
		return &droppingReader{data: bytes.NewReader(content[offset:end])}, nil
	}
	return io.NopCloser(bytes.NewReader(content[offset:])), nil
}

func (c *fakeClient) requestedOffsets(rawURL string) []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.offsets[rawURL]...)
}

// droppingReader yields its data and then fails like a reset connection.
type droppingReader struct {
	data *bytes.Reader
}

func (r *droppingReader) Read(p []byte) (int, error) {
	if r.data.Len() == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	return r.data.Read(p)
}

func (r *droppingReader) Close() error { return nil }

type hangingReader struct {
	ctx context.Context
}

func (r *hangingReader) Read([]byte) (int, error) {
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

func (r *hangingReader) Close() error { return nil }

// sleepRecorder replaces real backoff waits and remembers what was requested.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waits)
}

func testPolicy(maxRetries int, rec *sleepRecorder) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		Backoff:    5 * time.Second,
		Sleep:      rec.sleep,
	}
}

func patternContent(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}

// progressLog collects observer calls.
type progressLog struct {
	mu    sync.Mutex
	calls [][2]uint64
}

func (p *progressLog) observe(received, total uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, [2]uint64{received, total})
}

func (p *progressLog) snapshot() [][2]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][2]uint64(nil), p.calls...)
}
