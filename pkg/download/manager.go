// Package download fetches all files of a product into a fresh directory.
//
// A batch either completes with every manifest file written in full, or fails
// and leaves no target directory behind. Files are transferred concurrently
// over one shared client; each file resumes with ranged requests after
// disconnects.
package download

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cperrin88/dlkeep/internal/logger"
	"github.com/cperrin88/dlkeep/pkg/errors"
	dlhttp "github.com/cperrin88/dlkeep/pkg/http"
	"github.com/cperrin88/dlkeep/pkg/model"
	"github.com/google/uuid"
)

// Options control the behavior of the download manager.
type Options struct {
	BaseURL string      // store section URL; DefaultBaseURL when empty
	Policy  RetryPolicy // per-file retry behavior
}

// ManagerImpl downloads product batches through one shared HTTP client.
type ManagerImpl struct {
	client  dlhttp.Client
	baseURL string
	policy  RetryPolicy
}

// NewManager creates a new download manager around client.
func NewManager(client dlhttp.Client, opts Options) *ManagerImpl {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &ManagerImpl{
		client:  client,
		baseURL: opts.BaseURL,
		policy:  opts.Policy,
	}
}

// DownloadProductFiles implements Manager.
func (m *ManagerImpl) DownloadProductFiles(
	ctx context.Context,
	productID string,
	manifest *model.Manifest,
	baseDir string,
	onProgress ProgressObserver,
) error {
	if manifest == nil {
		return annotate(productID, "manifest", fmt.Errorf("nil manifest: %w", errors.ErrManifest))
	}
	if err := manifest.Validate(); err != nil {
		return annotate(productID, "manifest", err)
	}
	total, err := manifest.TotalSize()
	if err != nil {
		return annotate(productID, "manifest", err)
	}

	urls := ResolveFileURLsFrom(m.baseURL, productID, len(manifest.Files))

	targetPath, err := PrepareTargetPath(productID, baseDir)
	if err != nil {
		return annotate(productID, "prepare", err)
	}

	fields := logger.Fields{
		"batch":   uuid.NewString(),
		"product": productID,
		"files":   len(urls),
		"bytes":   total,
	}
	logger.Debug("Starting batch download", fields)
	started := time.Now()

	progress := NewAggregator(total, onProgress)
	progress.Start()

	if err := m.runBatch(ctx, urls, targetPath, manifest, progress); err != nil {
		// Cleanup is best-effort; the download error is what the caller needs.
		_ = os.RemoveAll(targetPath)
		logger.Error("Batch download failed", fields, logger.Fields{"error": err.Error()})
		return annotate(productID, "download", err)
	}

	logger.Success("Batch download finished", fields, logger.Fields{"elapsed": time.Since(started).String()})
	return nil
}

// runBatch downloads every file concurrently and returns the first failure.
// A failure cancels the remaining transfers; all goroutines have returned,
// and released their files, by the time runBatch does.
func (m *ManagerImpl) runBatch(ctx context.Context, urls []string, targetPath string, manifest *model.Manifest, progress *Aggregator) error {
	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, url := range urls {
		entry := manifest.Files[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := DownloadFile(batchCtx, m.client, url, targetPath, entry.FileName, m.policy, func(n uint64) {
				progress.Add(n)
			})
			if err == nil {
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = err
				cancel()
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return firstErr
}

func annotate(productID, stage string, err error) error {
	return fmt.Errorf("failed to download product files for product id %q: %s: %w", productID, stage, err)
}
