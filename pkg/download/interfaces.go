//go:generate mockgen -destination=mocks/download.go . Manager
package download

import (
	"context"

	"github.com/cperrin88/dlkeep/pkg/model"
)

// Manager downloads every file of a product into baseDir/productID as one
// all-or-nothing batch.
type Manager interface {
	// DownloadProductFiles fetches all manifest entries concurrently. On
	// success the target directory holds exactly the manifest's files; on
	// failure it is removed and the first error is returned.
	DownloadProductFiles(ctx context.Context, productID string, manifest *model.Manifest, baseDir string, onProgress ProgressObserver) error
}

// ProgressObserver receives the cumulative number of bytes written across a
// batch together with the batch's expected total.
type ProgressObserver func(received, total uint64)
